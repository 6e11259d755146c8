// Package upsert реализует HTTP-обработчик приёма объявления от продюсера.
//
// Payload нестрогий: ключ принимается в поле id или ad_id, цена и год —
// числом или строкой. Доменную проверку и нормализацию выполняет сервис,
// обработчик отвечает 201 на создание и 200 на обновление.
package upsert

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lurzyako/classifieds-sync/internal/http/response"
	"github.com/lurzyako/classifieds-sync/internal/lib/sl"
	"github.com/lurzyako/classifieds-sync/internal/models"
	services "github.com/lurzyako/classifieds-sync/internal/services/sync"
)

// Handler управляет HTTP-запросами на upsert объявления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики upsert объявления.
type Service interface {
	UpsertAd(ctx context.Context, req models.DummyAd) (*models.AdItem, bool, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Создать или обновить объявление
// @Description Идемпотентный upsert по внешнему ключу (id или ad_id). Автор фиксируется при создании и не меняется последующими upsert. Создание отвечает 201, обновление — 200.
// @Tags Ads
// @Accept  json
// @Produce  json
// @Param request body models.DummyAd true "Объявление"
// @Success 200 {object} response.Response "Объявление обновлено"
// @Success 201 {object} response.Response "Объявление создано"
// @Failure 400 {object} response.ErrorResponse "Нет ключа или заголовка"
// @Failure 401 {object} response.ErrorResponse "Неверный API-ключ"
// @Failure 500 {object} response.ErrorResponse "Хранилище недоступно"
// @Security ApiKeyAuth
// @Router /api/ads/upsert/ [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ad.upsert"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyAd
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeValidationFailed, "invalid request body"))
		return
	}

	ad, created, err := h.service.UpsertAd(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			log.Warn("ad payload rejected", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.CodeValidationFailed, err.Error()))
			return
		}
		log.Error("failed to upsert ad", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.CodeStoreUnavailable, "could not upsert ad"))
		return
	}

	log.Info("ad upserted", slog.String("ad_id", ad.AdID), slog.Bool("created", created))
	if created {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"ad_id":   ad.AdID,
		"created": created,
	}))
}
