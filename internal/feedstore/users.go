package feedstore

import (
	"strconv"
)

// AuthUser — запись аутентифицированного пользователя в auth_users.json.
// Файл хранит map с ключом telegram_id строкой.
type AuthUser struct {
	TelegramID      int64  `json:"telegram_id"`
	Username        string `json:"username,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	LanguageCode    string `json:"language_code,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	AvatarFileID    string `json:"avatar_file_id,omitempty"`
	Role            string `json:"role"`
	IsAuthenticated bool   `json:"is_authenticated"`
	AuthenticatedAt string `json:"authenticated_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// GetAuthUser возвращает запись пользователя, прошедшего аутентификацию.
// Запись без флага is_authenticated считается отсутствующей.
func (s *Store) GetAuthUser(telegramID int64) (*AuthUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadAuthUsersLocked()
	if err != nil {
		return nil, err
	}
	record, ok := users[strconv.FormatInt(telegramID, 10)]
	if !ok || !record.IsAuthenticated {
		return nil, ErrNotFound
	}
	return &record, nil
}

// SaveAuthUser записывает или заменяет запись пользователя.
func (s *Store) SaveAuthUser(user AuthUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadAuthUsersLocked()
	if err != nil {
		return err
	}
	user.UpdatedAt = nowISO()
	users[strconv.FormatInt(user.TelegramID, 10)] = user
	return s.writeJSON(authUsersFile, users)
}

func (s *Store) loadAuthUsersLocked() (map[string]AuthUser, error) {
	users := make(map[string]AuthUser)
	if _, err := s.readJSON(authUsersFile, &users); err != nil {
		return nil, err
	}
	return users, nil
}
