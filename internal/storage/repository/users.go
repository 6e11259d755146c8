package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lurzyako/classifieds-sync/internal/models"
)

// UpsertTelegramUser вставляет профиль пользователя или обновляет существующий
// по telegram_id. Роль записывается как есть: вызывающая сторона обязана
// заранее разрешить её с учётом сохранённого значения. Возвращает итоговую
// запись и признак того, что строка была создана, а не обновлена.
func (s *Storage) UpsertTelegramUser(ctx context.Context, user models.TelegramUser) (*models.TelegramUser, bool, error) {
	const op = "storage.UpsertTelegramUser"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO telegram_users (telegram_id, username, first_name, last_name,
			      language_code, phone_number, avatar_file_id, role, is_authenticated, authenticated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (telegram_id) DO UPDATE SET
			      username = EXCLUDED.username,
			      first_name = EXCLUDED.first_name,
			      last_name = EXCLUDED.last_name,
			      language_code = EXCLUDED.language_code,
			      phone_number = EXCLUDED.phone_number,
			      avatar_file_id = EXCLUDED.avatar_file_id,
			      role = EXCLUDED.role,
			      is_authenticated = EXCLUDED.is_authenticated,
			      authenticated_at = EXCLUDED.authenticated_at,
			      updated_at = NOW()
			  RETURNING id, telegram_id, username, first_name, last_name, language_code,
			      phone_number, avatar_file_id, role, is_authenticated, authenticated_at,
			      created_at, updated_at, (xmax = 0) AS created`
	row := s.DB.QueryRowContext(ctx, query,
		user.TelegramID, user.Username, user.FirstName, user.LastName,
		user.LanguageCode, user.PhoneNumber, user.AvatarFileID,
		string(user.Role), user.IsAuthenticated, user.AuthenticatedAt)

	var created bool
	result, err := scanTelegramUser(row, &created)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return result, created, nil
}

// GetTelegramUser возвращает профиль пользователя по telegram_id.
// Отсутствие записи — ErrNotFound.
func (s *Storage) GetTelegramUser(ctx context.Context, telegramID int64) (*models.TelegramUser, error) {
	const op = "storage.GetTelegramUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, telegram_id, username, first_name, last_name, language_code,
			      phone_number, avatar_file_id, role, is_authenticated, authenticated_at,
			      created_at, updated_at
			  FROM telegram_users
			  WHERE telegram_id = $1`
	row := s.DB.QueryRowContext(ctx, query, telegramID)

	result, err := scanTelegramUser(row, nil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListTelegramUsers возвращает список пользователей с пагинацией.
func (s *Storage) ListTelegramUsers(ctx context.Context, limit, offset int) ([]*models.TelegramUser, error) {
	const op = "storage.ListTelegramUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, telegram_id, username, first_name, last_name, language_code,
			      phone_number, avatar_file_id, role, is_authenticated, authenticated_at,
			      created_at, updated_at
			  FROM telegram_users
			  ORDER BY id
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.TelegramUser
	for rows.Next() {
		item, err := scanTelegramUser(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// rowScanner объединяет sql.Row и sql.Rows для общих функций сканирования.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTelegramUser читает строку telegram_users. Если created не nil,
// последним столбцом ожидается признак вставки (xmax = 0).
func scanTelegramUser(row rowScanner, created *bool) (*models.TelegramUser, error) {
	u := &models.TelegramUser{}
	var role string
	var authenticatedAt sql.NullTime

	dest := []any{
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.LanguageCode,
		&u.PhoneNumber, &u.AvatarFileID, &role, &u.IsAuthenticated, &authenticatedAt,
		&u.CreatedAt, &u.UpdatedAt,
	}
	if created != nil {
		dest = append(dest, created)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	u.Role = models.Role(role)
	if authenticatedAt.Valid {
		u.AuthenticatedAt = &authenticatedAt.Time
	}
	return u, nil
}
