package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/lurzyako/classifieds-sync/internal/http/response"
)

// RateLimitMiddleware ограничивает частоту запросов к шлюзу общим
// лимитером. Превышение — 429 без обращения к обработчику.
func RateLimitMiddleware(limiter *rate.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("too many requests", slog.String("path", r.URL.Path))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("", "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
