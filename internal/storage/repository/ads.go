package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lurzyako/classifieds-sync/internal/models"
)

// UpsertAdItem вставляет объявление или обновляет существующее по ad_id.
// При обновлении поля автора и сам ad_id остаются нетронутыми: владелец
// объявления фиксируется в момент создания. Возвращает итоговую запись
// и признак того, что строка была создана.
func (s *Storage) UpsertAdItem(ctx context.Context, ad models.AdItem) (*models.AdItem, bool, error) {
	const op = "storage.UpsertAdItem"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO ad_items (ad_id, source_type, external_id, title, category, price,
			      year, details, location, image, status, author_telegram_id,
			      author_username, author_first_name, author_last_name, created_at_remote)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			  ON CONFLICT (ad_id) DO UPDATE SET
			      source_type = EXCLUDED.source_type,
			      external_id = EXCLUDED.external_id,
			      title = EXCLUDED.title,
			      category = EXCLUDED.category,
			      price = EXCLUDED.price,
			      year = EXCLUDED.year,
			      details = EXCLUDED.details,
			      location = EXCLUDED.location,
			      image = EXCLUDED.image,
			      status = EXCLUDED.status,
			      author_username = EXCLUDED.author_username,
			      author_first_name = EXCLUDED.author_first_name,
			      author_last_name = EXCLUDED.author_last_name,
			      created_at_remote = EXCLUDED.created_at_remote,
			      updated_at = NOW()
			  RETURNING id, ad_id, source_type, external_id, title, category, price, year,
			      details, location, image, status, author_telegram_id, author_username,
			      author_first_name, author_last_name, created_at_remote, created_at,
			      updated_at, (xmax = 0) AS created`
	row := s.DB.QueryRowContext(ctx, query,
		ad.AdID, ad.SourceType, ad.ExternalID, ad.Title, ad.Category, ad.Price,
		ad.Year, ad.Details, ad.Location, ad.Image, ad.Status, nullableID(ad.AuthorTelegramID),
		ad.AuthorUsername, ad.AuthorFirstName, ad.AuthorLastName, ad.CreatedAtRemote)

	var created bool
	result, err := scanAdItem(row, &created)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return result, created, nil
}

// GetAdItem возвращает объявление по ad_id. Отсутствие записи — ErrNotFound.
func (s *Storage) GetAdItem(ctx context.Context, adID string) (*models.AdItem, error) {
	const op = "storage.GetAdItem"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, ad_id, source_type, external_id, title, category, price, year,
			      details, location, image, status, author_telegram_id, author_username,
			      author_first_name, author_last_name, created_at_remote, created_at, updated_at
			  FROM ad_items
			  WHERE ad_id = $1`
	row := s.DB.QueryRowContext(ctx, query, adID)

	result, err := scanAdItem(row, nil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateAdItem перезаписывает изменяемые поля объявления по ad_id и возвращает
// количество изменённых строк. Поля автора в запросе отсутствуют намеренно.
func (s *Storage) UpdateAdItem(ctx context.Context, ad models.AdItem) (int, error) {
	const op = "storage.UpdateAdItem"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE ad_items
			  SET source_type = $1, external_id = $2, title = $3, category = $4, price = $5,
			      year = $6, details = $7, location = $8, image = $9, status = $10,
			      created_at_remote = $11, updated_at = NOW()
			  WHERE ad_id = $12`
	result, err := s.DB.ExecContext(ctx, query,
		ad.SourceType, ad.ExternalID, ad.Title, ad.Category, ad.Price,
		ad.Year, ad.Details, ad.Location, ad.Image, ad.Status,
		ad.CreatedAtRemote, ad.AdID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// DeleteAdItem удаляет объявление по ad_id и возвращает количество удалённых
// строк. Удаление окончательное: повторный upsert того же ключа создаёт новую
// запись, а не воскрешает старую.
func (s *Storage) DeleteAdItem(ctx context.Context, adID string) (int, error) {
	const op = "storage.DeleteAdItem"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM ad_items WHERE ad_id = $1`
	result, err := s.DB.ExecContext(ctx, query, adID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListAdItems возвращает объявления с пагинацией.
// Пустой status убирает фильтр по статусу.
func (s *Storage) ListAdItems(ctx context.Context, status string, limit, offset int) ([]*models.AdItem, error) {
	const op = "storage.ListAdItems"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, ad_id, source_type, external_id, title, category, price, year,
			      details, location, image, status, author_telegram_id, author_username,
			      author_first_name, author_last_name, created_at_remote, created_at, updated_at
			  FROM ad_items
			  WHERE ($1 = '' OR status = $1)
			  ORDER BY id
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.AdItem
	for rows.Next() {
		item, err := scanAdItem(rows, nil)
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

// nullableID преобразует идентификатор владельца в NULL, когда он равен 0:
// объявление без владельца хранится с author_telegram_id = NULL.
func nullableID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

// scanAdItem читает строку ad_items. Если created не nil, последним столбцом
// ожидается признак вставки (xmax = 0).
func scanAdItem(row rowScanner, created *bool) (*models.AdItem, error) {
	ad := &models.AdItem{}
	var year sql.NullInt64
	var authorID sql.NullInt64
	var createdAtRemote sql.NullTime

	dest := []any{
		&ad.ID, &ad.AdID, &ad.SourceType, &ad.ExternalID, &ad.Title, &ad.Category,
		&ad.Price, &year, &ad.Details, &ad.Location, &ad.Image, &ad.Status,
		&authorID, &ad.AuthorUsername, &ad.AuthorFirstName, &ad.AuthorLastName,
		&createdAtRemote, &ad.CreatedAt, &ad.UpdatedAt,
	}
	if created != nil {
		dest = append(dest, created)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if year.Valid {
		y := int(year.Int64)
		ad.Year = &y
	}
	if authorID.Valid {
		ad.AuthorTelegramID = authorID.Int64
	}
	if createdAtRemote.Valid {
		ad.CreatedAtRemote = &createdAtRemote.Time
	}
	return ad, nil
}
