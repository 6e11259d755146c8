// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек обоих бинарников:
// шлюза синхронизации и телеграм-бота.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	Sync                    `yaml:"sync"`
	Backend                 `yaml:"backend"`
	Bot                     `yaml:"bot"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	Addr        string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8000"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	Addr        string        `yaml:"addr" env:"REDIS_ADDR"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Sync структура для настройки шлюза синхронизации
type Sync struct {
	APIKey         string        `yaml:"api_key" env:"SYNC_API_KEY"`
	RoleCacheTTL   time.Duration `yaml:"role_cache_ttl" env-default:"5m"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" env-default:"50"`
	RateLimitBurst int           `yaml:"rate_limit_burst" env-default:"100"`
}

// Backend структура для подключения бота к шлюзу синхронизации
type Backend struct {
	URL     string        `yaml:"url" env:"BACKEND_API_URL"`
	APIKey  string        `yaml:"api_key" env:"BACKEND_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
	Enabled bool          `yaml:"enabled" env:"BACKEND_SYNC_ENABLED" env-default:"true"`
}

// Bot структура для настройки телеграм-бота
type Bot struct {
	Token    string  `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	DataDir  string  `yaml:"data_dir" env:"BOT_DATA_DIR" env-default:"./data"`
	AdminIDs []int64 `yaml:"admin_ids" env:"ADMIN_IDS" env-separator:","`
}

// MustLoad загружает конфиг из файла, указанного в CONFIG_PATH,
// и завершает процесс, если файл отсутствует или не читается.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
