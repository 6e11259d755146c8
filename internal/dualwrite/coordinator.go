// Package dualwrite координирует двойную запись продюсера: каждая мутация
// сначала фиксируется в локальных файлах бота, затем отправляется на шлюз
// синхронизации. Локальная запись обязательна — её ошибка возвращается
// вызывающему. Отправка на шлюз выполняется по возможности: ограничена
// таймаутом, ошибка пишется в журнал и никогда не прерывает работу бота.
package dualwrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lurzyako/classifieds-sync/internal/feedstore"
	"github.com/lurzyako/classifieds-sync/internal/lib/authz"
	"github.com/lurzyako/classifieds-sync/internal/lib/sl"
	"github.com/lurzyako/classifieds-sync/internal/models"
)

// ErrPermissionDenied возвращается мутациями объявлений, когда локальная
// проверка прав отклонила операцию. Шлюз в этом случае не вызывается.
var ErrPermissionDenied = errors.New("permission denied")

// Backend описывает методы клиента шлюза, используемые координатором.
type Backend interface {
	UpsertUser(ctx context.Context, user models.DummyUser) error
	FetchUserRole(ctx context.Context, telegramID int64) (string, error)
	RecordAction(ctx context.Context, action models.DummyAction) error
	UpsertAd(ctx context.Context, ad models.DummyAd) error
	BulkUpsertAds(ctx context.Context, items []models.DummyAd) error
	UpdateAd(ctx context.Context, adID string, actorTelegramID int64, actorRole string, updates map[string]any) error
	DeleteAd(ctx context.Context, adID string, actorTelegramID int64, actorRole string) error
}

// Coordinator выполняет двойную запись: локальный файл, затем шлюз.
type Coordinator struct {
	feed           *feedstore.Store
	backend        Backend
	enabled        bool
	forwardTimeout time.Duration
	log            *slog.Logger
}

// New создаёт координатор. enabled=false полностью выключает отправку
// на шлюз, локальные записи продолжают работать.
func New(feed *feedstore.Store, backend Backend, enabled bool, forwardTimeout time.Duration, log *slog.Logger) *Coordinator {
	return &Coordinator{
		feed:           feed,
		backend:        backend,
		enabled:        enabled,
		forwardTimeout: forwardTimeout,
		log:            log.With(sl.Module("dualwrite")),
	}
}

// forward выполняет отправку на шлюз под таймаутом. Ошибка пишется
// в журнал и в локальный лог действий, но не возвращается.
func (c *Coordinator) forward(ctx context.Context, op string, fn func(ctx context.Context) error) {
	if !c.enabled {
		return
	}
	fwdCtx, cancel := context.WithTimeout(ctx, c.forwardTimeout)
	defer cancel()

	if err := fn(fwdCtx); err != nil {
		c.log.Warn("backend sync failed", slog.String("op", op), sl.Err(err))
		c.recordSyncFailure(op, err)
	}
}

// recordSyncFailure фиксирует неудачную отправку отдельной записью журнала,
// чтобы расхождение с бэкендом было видно в /stats. Сама запись best effort.
func (c *Coordinator) recordSyncFailure(op string, cause error) {
	_, err := c.feed.AppendAction(feedstore.LogEntry{
		Action:  "sync_error",
		Details: fmt.Sprintf("%s: %v", op, cause),
	})
	if err != nil {
		c.log.Error("failed to record sync failure", sl.Err(err))
	}
}

// RecordUser сохраняет запись пользователя локально и отправляет профиль
// на шлюз.
func (c *Coordinator) RecordUser(ctx context.Context, user feedstore.AuthUser) error {
	if err := c.feed.SaveAuthUser(user); err != nil {
		return err
	}
	c.forward(ctx, "users.upsert", func(ctx context.Context) error {
		return c.backend.UpsertUser(ctx, models.DummyUser{
			TelegramID:      user.TelegramID,
			Username:        user.Username,
			FirstName:       user.FirstName,
			LastName:        user.LastName,
			LanguageCode:    user.LanguageCode,
			PhoneNumber:     user.PhoneNumber,
			AvatarFileID:    user.AvatarFileID,
			Role:            user.Role,
			IsAuthenticated: user.IsAuthenticated,
			AuthenticatedAt: user.AuthenticatedAt,
		})
	})
	return nil
}

// RecordAction добавляет событие в локальный журнал и отправляет его на шлюз.
func (c *Coordinator) RecordAction(ctx context.Context, entry feedstore.LogEntry) error {
	stored, err := c.feed.AppendAction(entry)
	if err != nil {
		return err
	}
	c.forward(ctx, "actions.create", func(ctx context.Context) error {
		return c.backend.RecordAction(ctx, models.DummyAction{
			TelegramID: stored.UserID,
			Username:   stored.Username,
			FirstName:  stored.FirstName,
			LastName:   stored.LastName,
			Action:     stored.Action,
			Details:    stored.Details,
			Timestamp:  stored.Timestamp,
		})
	})
	return nil
}

// SaveAd записывает объявление в локальный фид и отправляет его на шлюз.
// Объявление без ключа получает сгенерированный manual-<uuid>; источник,
// статус и время создания заполняются значениями по умолчанию.
func (c *Coordinator) SaveAd(ctx context.Context, ad feedstore.FeedAd) (feedstore.FeedAd, error) {
	if ad.ID == "" {
		ad.ID = "manual-" + uuid.NewString()
	}
	if ad.SourceType == "" {
		ad.SourceType = models.AdSourceManual
	}
	if ad.ExternalID == "" {
		ad.ExternalID = ad.ID
	}
	if ad.Status == "" {
		ad.Status = models.AdStatusActive
	}
	if ad.CreatedAt == "" {
		ad.CreatedAt = time.Now().Format(time.RFC3339)
	}

	stored, err := c.feed.UpsertAd(ad)
	if err != nil {
		return feedstore.FeedAd{}, err
	}
	c.forward(ctx, "ads.upsert", func(ctx context.Context) error {
		return c.backend.UpsertAd(ctx, serializeAd(stored))
	})
	return stored, nil
}

// ReplaceExcelAds заменяет Excel-часть локального фида и отправляет
// свежую выгрузку пакетом.
func (c *Coordinator) ReplaceExcelAds(ctx context.Context, items []feedstore.FeedAd) (int, error) {
	count, err := c.feed.ReplaceExcelAds(items)
	if err != nil {
		return 0, err
	}

	payload := make([]models.DummyAd, 0, len(items))
	for _, item := range items {
		payload = append(payload, serializeAd(item))
	}
	c.forward(ctx, "ads.bulk-upsert", func(ctx context.Context) error {
		return c.backend.BulkUpsertAds(ctx, payload)
	})
	return count, nil
}

// UpdateAd изменяет объявление от имени актора: сначала локальная проверка
// прав по сохранённому автору, затем локальная запись, затем отправка того же
// набора изменений на шлюз, который повторит проверку на своей стороне.
func (c *Coordinator) UpdateAd(ctx context.Context, adID string, actorID int64, role models.Role, updates map[string]any) (*feedstore.FeedAd, error) {
	ad, err := c.feed.GetAd(adID)
	if err != nil {
		return nil, err
	}
	if ok, reason := authz.CanManageAd(role, actorID, ad.AuthorTelegramID(), authz.OpUpdate); !ok {
		c.log.Warn("local update denied",
			slog.String("ad_id", adID),
			slog.Int64("actor", actorID),
			slog.String("role", role.String()),
			slog.String("reason", reason))
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, reason)
	}

	updated, err := c.feed.UpdateAd(adID, updates)
	if err != nil {
		return nil, err
	}
	c.forward(ctx, "ads.update", func(ctx context.Context) error {
		return c.backend.UpdateAd(ctx, adID, actorID, role.String(), updates)
	})
	return updated, nil
}

// DeleteAd удаляет объявление от имени актора с локальной проверкой прав.
func (c *Coordinator) DeleteAd(ctx context.Context, adID string, actorID int64, role models.Role) error {
	ad, err := c.feed.GetAd(adID)
	if err != nil {
		return err
	}
	if ok, reason := authz.CanManageAd(role, actorID, ad.AuthorTelegramID(), authz.OpDelete); !ok {
		c.log.Warn("local delete denied",
			slog.String("ad_id", adID),
			slog.Int64("actor", actorID),
			slog.String("role", role.String()),
			slog.String("reason", reason))
		return fmt.Errorf("%w: %s", ErrPermissionDenied, reason)
	}

	if err = c.feed.DeleteAd(adID); err != nil {
		return err
	}
	c.forward(ctx, "ads.delete", func(ctx context.Context) error {
		return c.backend.DeleteAd(ctx, adID, actorID, role.String())
	})
	return nil
}

// UserRole возвращает роль пользователя: сначала ответ шлюза, затем
// локальная запись, по умолчанию user. Роль нужна каждому действию бота,
// поэтому метод не возвращает ошибку — при любом сбое действует
// минимальная роль.
func (c *Coordinator) UserRole(ctx context.Context, telegramID int64) models.Role {
	if c.enabled {
		fwdCtx, cancel := context.WithTimeout(ctx, c.forwardTimeout)
		defer cancel()

		raw, err := c.backend.FetchUserRole(fwdCtx, telegramID)
		if err == nil {
			if role, parseErr := models.ParseRole(raw); parseErr == nil {
				return role
			}
			c.log.Warn("backend returned unknown role",
				slog.Int64("telegram_id", telegramID),
				slog.String("role", raw))
		} else if !errors.Is(err, context.Canceled) {
			c.log.Debug("backend role lookup failed", slog.Int64("telegram_id", telegramID), sl.Err(err))
		}
	}

	record, err := c.feed.GetAuthUser(telegramID)
	if err != nil {
		return models.RoleUser
	}
	role, err := models.ParseRole(record.Role)
	if err != nil {
		return models.RoleUser
	}
	return role
}

// serializeAd переводит объявление фида в wire-модель шлюза.
func serializeAd(ad feedstore.FeedAd) models.DummyAd {
	wire := models.DummyAd{
		ID:         ad.ID,
		SourceType: ad.SourceType,
		ExternalID: ad.ExternalID,
		Title:      ad.Title,
		Category:   ad.Category,
		Price:      ad.Price,
		Details:    ad.Details,
		Location:   ad.Location,
		Image:      ad.Image,
		Status:     ad.Status,
		CreatedAt:  ad.CreatedAt,
	}
	if ad.Year != nil {
		wire.Year = *ad.Year
	}
	if ad.Author != nil {
		wire.Author = &models.DummyAdAuthor{
			ID:        ad.Author.ID,
			Username:  ad.Author.Username,
			FirstName: ad.Author.FirstName,
			LastName:  ad.Author.LastName,
		}
	}
	return wire
}
