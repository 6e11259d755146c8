package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/lurzyako/classifieds-sync/internal/http/response"
)

// Handler отвечает на проверку живости сервиса.
type Handler struct {
	log *slog.Logger
}

// New создает новый Handler с переданным логгером.
func New(log *slog.Logger) *Handler {
	return &Handler{
		log: log,
	}
}

// ServeHTTP отвечает 200 без проверки API-ключа.
// @Summary Проверка живости
// @Tags health
// @Produce json
// @Success 200 {object} response.Response
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status":  "ok",
		"service": "sync-backend",
	}))
}
