package syncbackend

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	actioncreate "github.com/lurzyako/classifieds-sync/internal/http/handlers/action/create"
	"github.com/lurzyako/classifieds-sync/internal/http/handlers/ad/bulkupsert"
	"github.com/lurzyako/classifieds-sync/internal/http/handlers/ad/remove"
	adupdate "github.com/lurzyako/classifieds-sync/internal/http/handlers/ad/update"
	adupsert "github.com/lurzyako/classifieds-sync/internal/http/handlers/ad/upsert"
	"github.com/lurzyako/classifieds-sync/internal/http/handlers/health"
	"github.com/lurzyako/classifieds-sync/internal/http/handlers/user/role"
	userupsert "github.com/lurzyako/classifieds-sync/internal/http/handlers/user/upsert"
	"github.com/lurzyako/classifieds-sync/internal/http/middlewarectx"

	"github.com/lurzyako/classifieds-sync/internal/config"
	services "github.com/lurzyako/classifieds-sync/internal/services/sync"
)

// RegisterRoutes регистрирует все маршруты шлюза синхронизации.
// Конечные точки /api/* закрыты API-ключом и rate limiter;
// /health, /metrics и /docs остаются открытыми.
func RegisterRoutes(r chi.Router, logger *slog.Logger, syncService *services.SyncService, cfg *config.Config) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	limiter := rate.NewLimiter(rate.Limit(cfg.Sync.RateLimitRPS), cfg.Sync.RateLimitBurst)

	r.Route("/api", func(r chi.Router) {
		r.Use(middlewarectx.APIKeyMiddleware(cfg.Sync.APIKey, logger))
		r.Use(middlewarectx.RateLimitMiddleware(limiter, logger))

		r.Post("/users/upsert/", userupsert.New(logger, syncService).ServeHTTP)
		r.Get("/users/{telegram_id}/role/", role.New(logger, syncService).ServeHTTP)
		r.Post("/actions/", actioncreate.New(logger, syncService).ServeHTTP)
		r.Post("/ads/upsert/", adupsert.New(logger, syncService).ServeHTTP)
		r.Post("/ads/bulk-upsert/", bulkupsert.New(logger, syncService).ServeHTTP)
		r.Post("/ads/update/", adupdate.New(logger, syncService).ServeHTTP)
		r.Post("/ads/delete/", remove.New(logger, syncService).ServeHTTP)
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
