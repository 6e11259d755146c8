// Package feedstore хранит локальные данные продюсера в JSON-файлах
// рядом с ботом: фид объявлений, записи аутентифицированных пользователей
// и журнал действий. Файлы — источник правды бота; backend синхронизируется
// с ними, а не наоборот.
package feedstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Имена файлов хранилища внутри каталога данных.
const (
	adsFeedFile   = "ads_feed.json"
	authUsersFile = "auth_users.json"
	usersLogFile  = "users_log.json"
)

// ErrNotFound возвращается методами чтения, когда записи с указанным
// ключом нет в файле.
var ErrNotFound = errors.New("not found")

// ErrInvalidUpdate возвращается UpdateAd, когда набор изменений пуст
// или содержит недопустимое значение.
var ErrInvalidUpdate = errors.New("invalid update")

// Store сериализует доступ к файлам каталога данных. Все операции
// читают файл целиком, меняют документ в памяти и записывают атомарно
// через временный файл.
type Store struct {
	dir string
	mu  sync.Mutex
	log *slog.Logger
}

// New создаёт каталог данных, если его нет, и возвращает Store.
func New(dataDir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("feedstore: create data dir: %w", err)
	}
	return &Store{dir: dataDir, log: log}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readJSON читает файл в v. Отсутствующий файл — не ошибка,
// возвращается found=false.
func (s *Store) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err = json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// writeJSON записывает v атомарно: сначала во временный файл,
// затем rename поверх целевого.
func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp := s.path(name + ".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func nowISO() string {
	return time.Now().Format(time.RFC3339)
}
