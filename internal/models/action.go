package models

import (
	"encoding/json"
	"time"
)

// UserAction — запись журнала действий пользователя. Журнал только
// пополняется, существующие записи никогда не изменяются.
type UserAction struct {
	ID         int64           // Внутренний идентификатор записи
	TelegramID int64           // Идентификатор пользователя в Telegram
	Username   string          // Username на момент действия
	FirstName  string          // Имя на момент действия
	LastName   string          // Фамилия на момент действия
	Action     string          // Название действия, например "start" или "create_ad"
	Details    string          // Произвольное текстовое описание
	CreatedAt  time.Time       // Момент события
	RawPayload json.RawMessage // Исходный payload события целиком
}

// DummyAction используется для приёма события журнала из JSON-запроса.
type DummyAction struct {
	TelegramID int64  `json:"telegram_id" validate:"required,gt=0"` // Идентификатор Telegram
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Action     string `json:"action" validate:"required"` // Название действия
	Details    string `json:"details,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"` // Время события у продюсера; при отсутствии берётся время записи
}
