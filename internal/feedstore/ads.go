package feedstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"

	"github.com/lurzyako/classifieds-sync/internal/lib/normalize"
	"github.com/lurzyako/classifieds-sync/internal/models"
)

// Описание объявления ограничивается этим числом символов.
const maxDetailsLen = 2000

// Feed — документ ads_feed.json: единый фид объявлений для фронтенда.
type Feed struct {
	UpdatedAt string   `json:"updated_at"`
	Items     []FeedAd `json:"items"`
}

// FeedAuthor — автор объявления в фиде.
type FeedAuthor struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// FeedAd — объявление в локальном фиде. Поля именованы так,
// как их ожидает фронтенд каталога.
type FeedAd struct {
	ID         string      `json:"id"`
	SourceType string      `json:"source_type"`
	ExternalID string      `json:"external_id,omitempty"`
	Title      string      `json:"title"`
	Category   string      `json:"category,omitempty"`
	Price      int64       `json:"price"`
	Year       *int        `json:"year,omitempty"`
	Details    string      `json:"details,omitempty"`
	Location   string      `json:"location,omitempty"`
	Image      string      `json:"image,omitempty"`
	Status     string      `json:"status"`
	CreatedAt  string      `json:"createdAt,omitempty"`
	UpdatedAt  string      `json:"updatedAt,omitempty"`
	Author     *FeedAuthor `json:"author,omitempty"`
}

// AuthorTelegramID возвращает идентификатор владельца, 0 для объявлений
// без автора (например, импорт из Excel).
func (a FeedAd) AuthorTelegramID() int64 {
	if a.Author == nil {
		return 0
	}
	return a.Author.ID
}

// LoadFeed читает фид целиком. Отсутствующий файл даёт пустой фид,
// файл старого формата (просто список объявлений) принимается.
func (s *Store) LoadFeed() (Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadFeedLocked()
}

func (s *Store) loadFeedLocked() (Feed, error) {
	data, err := os.ReadFile(s.path(adsFeedFile))
	if errors.Is(err, os.ErrNotExist) {
		return Feed{UpdatedAt: nowISO(), Items: []FeedAd{}}, nil
	}
	if err != nil {
		return Feed{}, fmt.Errorf("read %s: %w", adsFeedFile, err)
	}

	var feed Feed
	if err = json.Unmarshal(data, &feed); err != nil {
		var items []FeedAd
		if errList := json.Unmarshal(data, &items); errList == nil {
			s.log.Warn("ads feed file is in legacy list format, will be rewritten on next save")
			return Feed{UpdatedAt: nowISO(), Items: items}, nil
		}
		return Feed{}, fmt.Errorf("decode %s: %w", adsFeedFile, err)
	}
	if feed.Items == nil {
		feed.Items = []FeedAd{}
	}
	return feed, nil
}

func (s *Store) saveFeedLocked(feed *Feed) error {
	feed.UpdatedAt = nowISO()
	return s.writeJSON(adsFeedFile, feed)
}

// GetAd возвращает объявление по ключу.
func (s *Store) GetAd(id string) (*FeedAd, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, err := s.loadFeedLocked()
	if err != nil {
		return nil, err
	}
	for i := range feed.Items {
		if feed.Items[i].ID == id {
			ad := feed.Items[i]
			return &ad, nil
		}
	}
	return nil, ErrNotFound
}

// UpsertAd записывает объявление в фид: существующая запись с тем же
// ключом заменяется, новая добавляется в конец.
func (s *Store) UpsertAd(ad FeedAd) (FeedAd, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, err := s.loadFeedLocked()
	if err != nil {
		return FeedAd{}, err
	}

	items := make([]FeedAd, 0, len(feed.Items)+1)
	for _, item := range feed.Items {
		if item.ID != ad.ID {
			items = append(items, item)
		}
	}
	items = append(items, ad)
	feed.Items = items

	if err = s.saveFeedLocked(&feed); err != nil {
		return FeedAd{}, err
	}
	return ad, nil
}

// ReplaceExcelAds полностью заменяет Excel-часть фида на свежую выгрузку,
// ручные объявления не трогаются. Возвращает число записанных Excel-позиций.
func (s *Store) ReplaceExcelAds(items []FeedAd) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, err := s.loadFeedLocked()
	if err != nil {
		return 0, err
	}

	kept := make([]FeedAd, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.SourceType != models.AdSourceExcel {
			kept = append(kept, item)
		}
	}
	for i := range items {
		items[i].SourceType = models.AdSourceExcel
	}
	feed.Items = append(kept, items...)

	if err = s.saveFeedLocked(&feed); err != nil {
		return 0, err
	}
	return len(items), nil
}

// UpdateAd применяет разрешённые поля updates к объявлению.
// Ключ и автор через updates не меняются. Пустой после фильтрации
// набор изменений — ошибка ErrInvalidUpdate.
func (s *Store) UpdateAd(id string, updates map[string]any) (*FeedAd, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, err := s.loadFeedLocked()
	if err != nil {
		return nil, err
	}

	index := -1
	for i := range feed.Items {
		if feed.Items[i].ID == id {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, ErrNotFound
	}

	target := feed.Items[index]
	fields := 0

	if raw, ok := updates["title"]; ok {
		title := strings.TrimSpace(cast.ToString(raw))
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidUpdate)
		}
		target.Title = title
		fields++
	}
	if raw, ok := updates["category"]; ok {
		target.Category = normalize.Category(raw)
		fields++
	}
	if raw, ok := updates["price"]; ok {
		target.Price = normalize.Amount(raw)
		fields++
	}
	if raw, ok := updates["year"]; ok {
		target.Year = normalize.Year(raw)
		fields++
	}
	if raw, ok := updates["details"]; ok {
		target.Details = truncateRunes(strings.TrimSpace(cast.ToString(raw)), maxDetailsLen)
		fields++
	}
	if raw, ok := updates["location"]; ok {
		location := strings.TrimSpace(cast.ToString(raw))
		if location == "" {
			location = "Не указано"
		}
		target.Location = location
		fields++
	}
	if raw, ok := updates["status"]; ok {
		status := strings.ToLower(strings.TrimSpace(cast.ToString(raw)))
		if models.ValidAdStatus(status) {
			target.Status = status
			fields++
		}
	}
	// Ключ images имеет приоритет над image: берётся первый элемент списка.
	if raw, ok := updates["images"]; ok {
		if images, isList := raw.([]any); isList && len(images) > 0 {
			target.Image = cast.ToString(images[0])
			fields++
		}
	} else if raw, ok := updates["image"]; ok {
		target.Image = cast.ToString(raw)
		fields++
	}

	if fields == 0 {
		return nil, fmt.Errorf("%w: no updatable fields", ErrInvalidUpdate)
	}

	target.UpdatedAt = nowISO()
	feed.Items[index] = target

	if err = s.saveFeedLocked(&feed); err != nil {
		return nil, err
	}
	return &target, nil
}

// DeleteAd удаляет объявление из фида. Отсутствующий ключ — ErrNotFound.
func (s *Store) DeleteAd(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed, err := s.loadFeedLocked()
	if err != nil {
		return err
	}

	index := -1
	for i := range feed.Items {
		if feed.Items[i].ID == id {
			index = i
			break
		}
	}
	if index == -1 {
		return ErrNotFound
	}

	feed.Items = append(feed.Items[:index], feed.Items[index+1:]...)
	return s.saveFeedLocked(&feed)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
