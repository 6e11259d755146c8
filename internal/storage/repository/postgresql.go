// Package repository реализует авторитетное хранилище синхронизации на
// PostgreSQL: профили пользователей Telegram, журнал действий и объявления.
// Методы upsert используют INSERT ... ON CONFLICT по внешнему ключу сущности,
// поэтому повторная доставка одного и того же payload безопасна.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNotFound возвращается методами чтения, когда запись с указанным
// ключом отсутствует. Проверяется через errors.Is.
var ErrNotFound = errors.New("not found")

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с синхронизируемыми сущностями.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'telegram_users'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table telegram_users missing or query error: %w", err)
	}
	return nil
}
