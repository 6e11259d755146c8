package models

import "time"

// TelegramUser представляет синхронизированный профиль пользователя Telegram.
// Ключом служит TelegramID. Роль при обновлении меняется только явной
// передачей нового значения, пустая роль существующую запись не трогает.
type TelegramUser struct {
	ID              int64      // Внутренний идентификатор строки
	TelegramID      int64      // Идентификатор пользователя в Telegram
	Username        string     // Username без @
	FirstName       string     // Имя
	LastName        string     // Фамилия
	LanguageCode    string     // Код языка клиента Telegram
	PhoneNumber     string     // Телефон, полученный при авторизации
	AvatarFileID    string     // file_id аватара в Telegram
	Role            Role       // Роль пользователя
	IsAuthenticated bool       // Прошёл ли пользователь авторизацию в боте
	AuthenticatedAt *time.Time // Момент авторизации, nil если не авторизован
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DummyUser используется для приёма профиля пользователя из JSON-запроса
// до валидации и нормализации роли.
type DummyUser struct {
	TelegramID      int64  `json:"telegram_id" validate:"required,gt=0"` // Идентификатор Telegram
	Username        string `json:"username,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	LanguageCode    string `json:"language_code,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	AvatarFileID    string `json:"avatar_file_id,omitempty"`
	Role            string `json:"role,omitempty"` // Пустая строка при обновлении оставляет сохранённую роль
	IsAuthenticated bool   `json:"is_authenticated,omitempty"`
	AuthenticatedAt string `json:"authenticated_at,omitempty"` // RFC3339
}
