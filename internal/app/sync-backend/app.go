// Package syncbackend собирает шлюз синхронизации: PostgreSQL с миграциями,
// Redis-кэш, сервисный слой и HTTP-сервер с graceful shutdown.
package syncbackend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/lurzyako/classifieds-sync/internal/cache"
	"github.com/lurzyako/classifieds-sync/internal/config"
	"github.com/lurzyako/classifieds-sync/internal/migrations"
	services "github.com/lurzyako/classifieds-sync/internal/services/sync"
	"github.com/lurzyako/classifieds-sync/internal/storage/repository"
)

// App держит зависимости приложения и HTTP-сервер.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New подключается к PostgreSQL и Redis, применяет миграции
// и собирает маршруты. Ошибка любого шага фатальна: без хранилища
// шлюз не имеет смысла.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	syncService := services.NewSyncService(db, cacheRedis, cfg.Sync.RoleCacheTTL, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, syncService, cfg)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run запускает HTTP-сервер и ждёт либо его ошибки, либо отмены ctx,
// после которой сервер останавливается gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
