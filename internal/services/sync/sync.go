// Package services содержит бизнес-логику синхронизации: идемпотентные
// upsert пользователей и объявлений, пакетную загрузку с изоляцией ошибок
// и проверку прав на изменение объявлений.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/lurzyako/classifieds-sync/internal/lib/authz"
	"github.com/lurzyako/classifieds-sync/internal/lib/normalize"
	"github.com/lurzyako/classifieds-sync/internal/models"
	"github.com/lurzyako/classifieds-sync/internal/storage/repository"
)

// Repository определяет методы хранилища, используемые сервисом синхронизации.
type Repository interface {
	// UpsertTelegramUser вставляет или обновляет профиль по telegram_id.
	UpsertTelegramUser(ctx context.Context, user models.TelegramUser) (*models.TelegramUser, bool, error)
	// GetTelegramUser возвращает профиль по telegram_id.
	GetTelegramUser(ctx context.Context, telegramID int64) (*models.TelegramUser, error)
	// CreateUserAction добавляет запись в журнал действий и возвращает её ID.
	CreateUserAction(ctx context.Context, action models.UserAction) (int64, error)
	// UpsertAdItem вставляет или обновляет объявление по ad_id.
	UpsertAdItem(ctx context.Context, ad models.AdItem) (*models.AdItem, bool, error)
	// GetAdItem возвращает объявление по ad_id.
	GetAdItem(ctx context.Context, adID string) (*models.AdItem, error)
	// UpdateAdItem обновляет изменяемые поля объявления, возвращает число строк.
	UpdateAdItem(ctx context.Context, ad models.AdItem) (int, error)
	// DeleteAdItem удаляет объявление, возвращает число удалённых строк.
	DeleteAdItem(ctx context.Context, adID string) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(ctx context.Context, key string) error
}

// SyncService реализует приём синхронизируемых сущностей от продюсера:
// пользователей, событий журнала и объявлений.
type SyncService struct {
	repo         Repository
	cache        Cache
	roleCacheTTL time.Duration
	log          *slog.Logger
}

// NewSyncService создает новый экземпляр SyncService.
func NewSyncService(repo Repository, cache Cache, roleCacheTTL time.Duration, log *slog.Logger) *SyncService {
	return &SyncService{
		repo:         repo,
		cache:        cache,
		roleCacheTTL: roleCacheTTL,
		log:          log,
	}
}

func roleCacheKey(telegramID int64) string {
	return fmt.Sprintf("user_role:%d", telegramID)
}

// UpsertUser создаёт или обновляет профиль пользователя по telegram_id.
// При создании роль обязательна и должна быть одной из трёх известных.
// При обновлении пустая роль сохраняет записанное значение, непустая
// заменяет его. Возвращает итоговый профиль и признак создания.
func (s *SyncService) UpsertUser(ctx context.Context, req models.DummyUser) (*models.TelegramUser, bool, error) {
	role, err := s.resolveRole(ctx, req)
	if err != nil {
		return nil, false, err
	}

	user := models.TelegramUser{
		TelegramID:      req.TelegramID,
		Username:        strings.TrimSpace(req.Username),
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		LanguageCode:    strings.TrimSpace(req.LanguageCode),
		PhoneNumber:     strings.TrimSpace(req.PhoneNumber),
		AvatarFileID:    strings.TrimSpace(req.AvatarFileID),
		Role:            role,
		IsAuthenticated: req.IsAuthenticated,
	}
	if at := normalize.Time(req.AuthenticatedAt); at != nil {
		user.AuthenticatedAt = at
	} else if req.IsAuthenticated {
		now := time.Now().UTC()
		user.AuthenticatedAt = &now
	}

	result, created, err := s.repo.UpsertTelegramUser(ctx, user)
	if err != nil {
		return nil, false, err
	}
	s.log.Info("upserted telegram user",
		slog.Int64("telegram_id", result.TelegramID),
		slog.Bool("created", created))

	cacheKey := roleCacheKey(result.TelegramID)
	if err := s.cache.Invalidate(ctx, cacheKey); err != nil {
		s.log.Warn("failed to invalidate role cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return result, created, nil
}

// resolveRole возвращает роль для записи. Непустая роль из запроса обязана
// разбираться, неизвестное значение отклоняется, а не заменяется умолчанием.
// Пустая роль означает «оставить как есть» и допустима только для уже
// существующего пользователя.
func (s *SyncService) resolveRole(ctx context.Context, req models.DummyUser) (models.Role, error) {
	if strings.TrimSpace(req.Role) != "" {
		role, err := models.ParseRole(req.Role)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return role, nil
	}

	existing, err := s.repo.GetTelegramUser(ctx, req.TelegramID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("%w: role is required for a new user", ErrValidation)
	}
	if err != nil {
		return "", err
	}
	return existing.Role, nil
}

// GetUserRole возвращает роль пользователя, используя кеш или хранилище.
// Отказ кеша не фатален: роль читается из хранилища. Отсутствие
// пользователя — repository.ErrNotFound.
func (s *SyncService) GetUserRole(ctx context.Context, telegramID int64) (models.Role, error) {
	cacheKey := roleCacheKey(telegramID)
	var cached string
	found, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read role cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found {
		if role := models.Role(cached); role.Valid() {
			return role, nil
		}
	}

	user, err := s.repo.GetTelegramUser(ctx, telegramID)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, cacheKey, string(user.Role), s.roleCacheTTL); err != nil {
		s.log.Warn("failed to cache role", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return user.Role, nil
}

// RecordAction добавляет запись в журнал действий пользователя. Метка
// времени продюсера используется как есть, при её отсутствии берётся
// момент записи. Исходный payload сохраняется целиком.
func (s *SyncService) RecordAction(ctx context.Context, req models.DummyAction) (*models.UserAction, error) {
	createdAt := time.Now().UTC()
	if ts := normalize.Time(req.Timestamp); ts != nil {
		createdAt = *ts
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal action payload: %w", err)
	}

	action := models.UserAction{
		TelegramID: req.TelegramID,
		Username:   strings.TrimSpace(req.Username),
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Action:     strings.TrimSpace(req.Action),
		Details:    req.Details,
		CreatedAt:  createdAt,
		RawPayload: raw,
	}
	id, err := s.repo.CreateUserAction(ctx, action)
	if err != nil {
		return nil, err
	}
	action.ID = id

	s.log.Info("recorded user action",
		slog.Int64("telegram_id", action.TelegramID),
		slog.String("action", action.Action))
	return &action, nil
}

// UpsertAd создаёт или обновляет объявление по внешнему ключу. Ключ и
// заголовок обязательны, числовые поля и статус приводятся к доменным
// значениям. Автор задаётся только при создании: для существующей записи
// хранилище не трогает author_telegram_id. Возвращает итоговое объявление
// и признак создания.
func (s *SyncService) UpsertAd(ctx context.Context, req models.DummyAd) (*models.AdItem, bool, error) {
	key := req.Key()
	if key == "" {
		return nil, false, fmt.Errorf("%w: ad id is required", ErrValidation)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, false, fmt.Errorf("%w: title is required", ErrValidation)
	}

	ad := models.AdItem{
		AdID:            key,
		SourceType:      models.NormalizeAdSource(req.SourceType),
		ExternalID:      strings.TrimSpace(req.ExternalID),
		Title:           title,
		Category:        strings.TrimSpace(req.Category),
		Price:           normalize.Amount(req.Price),
		Year:            normalize.Year(req.Year),
		Details:         req.Details,
		Location:        strings.TrimSpace(req.Location),
		Image:           strings.TrimSpace(req.Image),
		Status:          models.NormalizeAdStatus(req.Status),
		CreatedAtRemote: normalize.Time(req.RemoteTimestamp()),
	}
	if req.Author != nil {
		ad.AuthorTelegramID = normalize.TelegramID(req.Author.ID)
		ad.AuthorUsername = strings.TrimSpace(req.Author.Username)
		ad.AuthorFirstName = strings.TrimSpace(req.Author.FirstName)
		ad.AuthorLastName = strings.TrimSpace(req.Author.LastName)
	}

	result, created, err := s.repo.UpsertAdItem(ctx, ad)
	if err != nil {
		return nil, false, err
	}
	s.log.Info("upserted ad item",
		slog.String("ad_id", result.AdID),
		slog.Bool("created", created))
	return result, created, nil
}

// BulkUpsertAds обрабатывает список объявлений поэлементно: ошибка одного
// элемента не прерывает остальные. Результаты возвращаются в порядке входа,
// каждый содержит либо сохранённое объявление, либо причину отказа.
func (s *SyncService) BulkUpsertAds(ctx context.Context, reqs []models.DummyAd) []models.AdBulkItemOutcome {
	outcomes := make([]models.AdBulkItemOutcome, 0, len(reqs))
	var failed int
	for i, req := range reqs {
		ad, created, err := s.UpsertAd(ctx, req)
		if err != nil {
			failed++
		}
		outcomes = append(outcomes, models.AdBulkItemOutcome{
			Index:   i,
			AdID:    req.Key(),
			Ad:      ad,
			Created: created,
			Err:     err,
		})
	}
	s.log.Info("bulk upsert finished",
		slog.Int("total", len(reqs)),
		slog.Int("failed", failed))
	return outcomes
}

// UpdateAd изменяет объявление от имени актора. Права проверяются по
// сохранённому author_telegram_id, заявленное клиентом владение не
// учитывается. Применяются только изменяемые поля, ключ и автор из
// запроса молча отбрасываются.
func (s *SyncService) UpdateAd(ctx context.Context, req models.DummyAdUpdate) (*models.AdItem, error) {
	key := req.Key()
	if key == "" {
		return nil, fmt.Errorf("%w: ad id is required", ErrValidation)
	}

	ad, err := s.repo.GetAdItem(ctx, key)
	if err != nil {
		return nil, err
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(req.ActorRole)))
	allowed, reason := authz.CanManageAd(role, req.ActorTelegramID, ad.AuthorTelegramID, authz.OpUpdate)
	if !allowed {
		s.log.Warn("ad update denied",
			slog.String("ad_id", key),
			slog.Int64("actor", req.ActorTelegramID),
			slog.String("role", string(role)),
			slog.String("reason", reason))
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, reason)
	}

	updated := *ad
	if err := applyAdUpdates(&updated, req.Updates); err != nil {
		return nil, err
	}

	rows, err := s.repo.UpdateAdItem(ctx, updated)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, repository.ErrNotFound
	}

	s.log.Info("updated ad item",
		slog.String("ad_id", key),
		slog.Int64("actor", req.ActorTelegramID))
	return &updated, nil
}

// applyAdUpdates переносит изменяемые поля из запроса в объявление.
// Ключи вне списка, включая author и ad_id, игнорируются; статус и
// источник вне известных наборов тоже пропускаются, а не приводятся
// к умолчанию. Отсутствие хотя бы одного применимого поля — ошибка
// валидации.
func applyAdUpdates(ad *models.AdItem, updates map[string]any) error {
	fields := 0
	for key, value := range updates {
		switch key {
		case "title":
			title := strings.TrimSpace(cast.ToString(value))
			if title == "" {
				return fmt.Errorf("%w: title must not be empty", ErrValidation)
			}
			ad.Title = title
		case "category":
			ad.Category = strings.TrimSpace(cast.ToString(value))
		case "price":
			ad.Price = normalize.Amount(value)
		case "year":
			ad.Year = normalize.Year(value)
		case "details":
			ad.Details = cast.ToString(value)
		case "location":
			ad.Location = cast.ToString(value)
		case "image":
			ad.Image = cast.ToString(value)
		case "status":
			status := strings.ToLower(strings.TrimSpace(cast.ToString(value)))
			if !models.ValidAdStatus(status) {
				continue
			}
			ad.Status = status
		case "external_id":
			ad.ExternalID = cast.ToString(value)
		case "source_type":
			source := strings.ToLower(strings.TrimSpace(cast.ToString(value)))
			if !models.ValidAdSource(source) {
				continue
			}
			ad.SourceType = source
		case "createdAt":
			ad.CreatedAtRemote = normalize.Time(cast.ToString(value))
		case "created_at":
			// createdAt имеет приоритет над snake_case-вариантом
			if _, ok := updates["createdAt"]; ok {
				continue
			}
			ad.CreatedAtRemote = normalize.Time(cast.ToString(value))
		default:
			continue
		}
		fields++
	}
	if fields == 0 {
		return fmt.Errorf("%w: no updatable fields", ErrValidation)
	}
	return nil
}

// DeleteAd удаляет объявление от имени актора. Права проверяются по
// сохранённому author_telegram_id. Удаление отсутствующего ключа —
// repository.ErrNotFound, а не тихий успех.
func (s *SyncService) DeleteAd(ctx context.Context, req models.DummyAdDelete) error {
	key := req.Key()
	if key == "" {
		return fmt.Errorf("%w: ad id is required", ErrValidation)
	}

	ad, err := s.repo.GetAdItem(ctx, key)
	if err != nil {
		return err
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(req.ActorRole)))
	allowed, reason := authz.CanManageAd(role, req.ActorTelegramID, ad.AuthorTelegramID, authz.OpDelete)
	if !allowed {
		s.log.Warn("ad delete denied",
			slog.String("ad_id", key),
			slog.Int64("actor", req.ActorTelegramID),
			slog.String("role", string(role)),
			slog.String("reason", reason))
		return fmt.Errorf("%w: %s", ErrPermissionDenied, reason)
	}

	rows, err := s.repo.DeleteAdItem(ctx, key)
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	s.log.Info("deleted ad item",
		slog.String("ad_id", key),
		slog.Int64("actor", req.ActorTelegramID))
	return nil
}
