package models

import (
	"strings"
	"time"
)

// Статусы объявления.
const (
	AdStatusActive   = "active"
	AdStatusInactive = "inactive"
	AdStatusArchived = "archived"
)

// Источники объявления.
const (
	AdSourceExcel  = "excel"
	AdSourceManual = "manual"
)

// ValidAdStatus сообщает, входит ли статус в известный набор.
func ValidAdStatus(s string) bool {
	switch s {
	case AdStatusActive, AdStatusInactive, AdStatusArchived:
		return true
	default:
		return false
	}
}

// ValidAdSource сообщает, входит ли источник в известный набор.
func ValidAdSource(s string) bool {
	switch s {
	case AdSourceExcel, AdSourceManual:
		return true
	default:
		return false
	}
}

// NormalizeAdStatus приводит статус к нижнему регистру,
// значение вне набора заменяется на active.
func NormalizeAdStatus(s string) string {
	status := strings.ToLower(strings.TrimSpace(s))
	if ValidAdStatus(status) {
		return status
	}
	return AdStatusActive
}

// NormalizeAdSource приводит источник к нижнему регистру,
// значение вне набора заменяется на manual.
func NormalizeAdSource(s string) string {
	source := strings.ToLower(strings.TrimSpace(s))
	if ValidAdSource(source) {
		return source
	}
	return AdSourceManual
}

// AdItem — синхронизированное объявление. Ключом служит AdID.
// AdID и AuthorTelegramID после создания записи не меняются.
type AdItem struct {
	ID               int64      // Внутренний идентификатор строки
	AdID             string     // Внешний стабильный ключ объявления
	SourceType       string     // excel или manual
	ExternalID       string     // Идентификатор в источнике импорта
	Title            string     // Заголовок
	Category         string     // Категория техники
	Price            int64      // Цена в рублях
	Year             *int       // Год выпуска, nil если не указан
	Details          string     // Описание
	Location         string     // Местоположение
	Image            string     // Ссылка или file_id изображения
	Status           string     // active, inactive или archived
	AuthorTelegramID int64      // 0 — объявление без владельца (например, импорт из Excel)
	AuthorUsername   string     // Username автора на момент создания
	AuthorFirstName  string     // Имя автора
	AuthorLastName   string     // Фамилия автора
	CreatedAtRemote  *time.Time // Время создания на стороне продюсера
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DummyAdAuthor — автор объявления в JSON-запросе.
// Идентификатор может прийти числом или строкой.
type DummyAdAuthor struct {
	ID        any    `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DummyAd используется для приёма объявления из JSON-запроса.
// Ключ может прийти в поле id или ad_id, числовые поля — числом
// или строкой с лишними символами ("1 200 000 ₽").
type DummyAd struct {
	ID         string         `json:"id,omitempty"`
	AdID       string         `json:"ad_id,omitempty"`
	SourceType string         `json:"source_type,omitempty"`
	ExternalID string         `json:"external_id,omitempty"`
	Title      string         `json:"title,omitempty"`
	Category   string         `json:"category,omitempty"`
	Price      any            `json:"price,omitempty"`
	Year       any            `json:"year,omitempty"`
	Details    string         `json:"details,omitempty"`
	Location   string         `json:"location,omitempty"`
	Image      string         `json:"image,omitempty"`
	Status     string         `json:"status,omitempty"`
	CreatedAt  string         `json:"createdAt,omitempty"`  // Время создания у продюсера
	CreatedAt2 string         `json:"created_at,omitempty"` // То же поле в snake_case
	Author     *DummyAdAuthor `json:"author,omitempty"`
}

// Key возвращает внешний ключ объявления: сначала поле id, затем ad_id.
func (d DummyAd) Key() string {
	if key := strings.TrimSpace(d.ID); key != "" {
		return key
	}
	return strings.TrimSpace(d.AdID)
}

// RemoteTimestamp возвращает момент создания у продюсера:
// сначала ключ createdAt, затем created_at.
func (d DummyAd) RemoteTimestamp() string {
	if d.CreatedAt != "" {
		return d.CreatedAt
	}
	return d.CreatedAt2
}

// DummyAdBulk — пакет объявлений для bulk-upsert. Nil Items означает,
// что в payload не было списка, пустой список валиден.
type DummyAdBulk struct {
	Items []DummyAd `json:"items"`
}

// DummyAdUpdate — запрос на изменение объявления от имени актора.
// Updates содержит только изменяемые поля, присутствие ключа означает
// намерение записать значение, в том числе пустое.
type DummyAdUpdate struct {
	AdID            string         `json:"ad_id,omitempty"`
	ID              string         `json:"id,omitempty"`
	ActorTelegramID int64          `json:"actor_telegram_id" validate:"required,gt=0"` // Кто выполняет изменение
	ActorRole       string         `json:"actor_role" validate:"required"`             // Заявленная роль актора
	Updates         map[string]any `json:"updates"`                                    // Набор изменяемых полей
}

// Key возвращает внешний ключ объявления: сначала поле ad_id, затем id.
func (d DummyAdUpdate) Key() string {
	if key := strings.TrimSpace(d.AdID); key != "" {
		return key
	}
	return strings.TrimSpace(d.ID)
}

// DummyAdDelete — запрос на удаление объявления от имени актора.
type DummyAdDelete struct {
	AdID            string `json:"ad_id,omitempty"`
	ID              string `json:"id,omitempty"`
	ActorTelegramID int64  `json:"actor_telegram_id" validate:"required,gt=0"` // Кто выполняет удаление
	ActorRole       string `json:"actor_role" validate:"required"`             // Заявленная роль актора
}

// Key возвращает внешний ключ объявления: сначала поле ad_id, затем id.
func (d DummyAdDelete) Key() string {
	if key := strings.TrimSpace(d.AdID); key != "" {
		return key
	}
	return strings.TrimSpace(d.ID)
}

// AdBulkItemOutcome — результат обработки одного элемента пакетного upsert.
// Index соответствует позиции элемента во входном списке.
type AdBulkItemOutcome struct {
	Index   int
	AdID    string
	Ad      *AdItem
	Created bool
	Err     error
}
