package repository

import (
	"context"
	"fmt"

	"github.com/lurzyako/classifieds-sync/internal/models"
)

// CreateUserAction добавляет запись в журнал действий и возвращает её ID.
// Журнал только пополняется, записи не обновляются и не удаляются.
func (s *Storage) CreateUserAction(ctx context.Context, action models.UserAction) (int64, error) {
	const op = "storage.CreateUserAction"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rawPayload := string(action.RawPayload)
	if rawPayload == "" {
		rawPayload = "{}"
	}

	query := `INSERT INTO user_actions (telegram_id, username, first_name, last_name,
			      action, details, created_at, raw_payload)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		action.TelegramID, action.Username, action.FirstName, action.LastName,
		action.Action, action.Details, action.CreatedAt, rawPayload).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListUserActions возвращает записи журнала, свежие первыми.
// telegramID = 0 убирает фильтр по пользователю.
func (s *Storage) ListUserActions(ctx context.Context, telegramID int64, limit, offset int) ([]*models.UserAction, error) {
	const op = "storage.ListUserActions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, telegram_id, username, first_name, last_name, action, details,
			      created_at, raw_payload
			  FROM user_actions
			  WHERE ($1 = 0 OR telegram_id = $1)
			  ORDER BY id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, telegramID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.UserAction
	for rows.Next() {
		var item models.UserAction
		if err := rows.Scan(&item.ID, &item.TelegramID, &item.Username, &item.FirstName,
			&item.LastName, &item.Action, &item.Details, &item.CreatedAt, &item.RawPayload); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
