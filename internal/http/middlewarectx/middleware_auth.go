// Package middlewarectx содержит HTTP middleware шлюза синхронизации:
// проверку общего API-ключа продюсера и ограничение частоты запросов.
//
// APIKeyMiddleware сравнивает ключ из заголовка X-API-Key с настроенным
// значением за постоянное время. Отсутствие или несовпадение ключа —
// отказ 401 до какого-либо обращения к хранилищу.
package middlewarectx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lurzyako/classifieds-sync/internal/http/response"
)

// HeaderAPIKey — заголовок, в котором продюсер передаёт общий ключ.
const HeaderAPIKey = "X-API-Key"

// APIKeyMiddleware возвращает HTTP middleware, который пропускает запрос
// дальше только при совпадении ключа из заголовка X-API-Key с настроенным.
// Пустой настроенный ключ — ошибка конфигурации: каждый запрос отклоняется
// с 500, а не пропускается без проверки.
func APIKeyMiddleware(apiKey string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.APIKeyMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if apiKey == "" {
				log.Error("sync api key is not configured")
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error(response.CodeAuthenticationFailed,
					"api key is not configured"))
				return
			}

			provided := r.Header.Get(HeaderAPIKey)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				log.Warn("api key mismatch", slog.String("path", r.URL.Path))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.CodeAuthenticationFailed,
					"invalid api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
