// Package bulkupsert реализует HTTP-обработчик пакетной загрузки объявлений.
//
// Каждый элемент пакета обрабатывается независимо: ошибка одного не
// откатывает остальные. Ответ сохраняет порядок входа, чтобы продюсер
// мог сопоставить результаты по позиции. Пакет без единого валидного
// элемента — это штатный ответ 200, а не ошибка; жёсткой ошибкой
// считается только payload без списка items.
package bulkupsert

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lurzyako/classifieds-sync/internal/http/response"
	"github.com/lurzyako/classifieds-sync/internal/lib/sl"
	"github.com/lurzyako/classifieds-sync/internal/models"
)

// Handler управляет HTTP-запросами на пакетный upsert объявлений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики пакетного upsert.
type Service interface {
	BulkUpsertAds(ctx context.Context, reqs []models.DummyAd) []models.AdBulkItemOutcome
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// itemResult — результат обработки одного элемента в ответе.
type itemResult struct {
	Index   int    `json:"index"`
	AdID    string `json:"ad_id,omitempty"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// ServeHTTP godoc
// @Summary Пакетный upsert объявлений
// @Description Обрабатывает список объявлений поэлементно с изоляцией ошибок. Возвращает счётчики и результаты в порядке входа.
// @Tags Ads
// @Accept  json
// @Produce  json
// @Param request body models.DummyAdBulk true "Пакет объявлений"
// @Success 200 {object} response.Response "Результаты по каждому элементу"
// @Failure 400 {object} response.ErrorResponse "items отсутствует или не список"
// @Failure 401 {object} response.ErrorResponse "Неверный API-ключ"
// @Security ApiKeyAuth
// @Router /api/ads/bulk-upsert/ [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ad.bulkupsert"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyAdBulk
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeValidationFailed, "invalid request body"))
		return
	}
	if req.Items == nil {
		log.Error("items is missing or not a list")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeValidationFailed, "items must be a list"))
		return
	}

	outcomes := h.service.BulkUpsertAds(r.Context(), req.Items)

	results := make([]itemResult, 0, len(outcomes))
	var createdCount, updatedCount int
	for _, out := range outcomes {
		res := itemResult{Index: out.Index, AdID: out.AdID}
		switch {
		case out.Err != nil:
			res.Outcome = "failed"
			res.Error = out.Err.Error()
		case out.Created:
			res.Outcome = "created"
			createdCount++
		default:
			res.Outcome = "updated"
			updatedCount++
		}
		results = append(results, res)
	}

	log.Info("bulk upsert handled",
		slog.Int("total", len(results)),
		slog.Int("created", createdCount),
		slog.Int("updated", updatedCount))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"created": createdCount,
		"updated": updatedCount,
		"results": results,
	}))
}
