package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/lurzyako/classifieds-sync/internal/http/response"
	"github.com/lurzyako/classifieds-sync/internal/models"
	services "github.com/lurzyako/classifieds-sync/internal/services/sync"
	"github.com/lurzyako/classifieds-sync/internal/storage/repository"
)

// Handler обрабатывает удаление объявления от имени актора.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает методы сервисного слоя, необходимые handler.
type Service interface {
	DeleteAd(ctx context.Context, req models.DummyAdDelete) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP обрабатывает HTTP-запрос на удаление объявления.
// Удаление уже отсутствующего ключа возвращает not_found, а не успех:
// продюсер должен увидеть расхождение своих данных с backend.
// @Summary Удалить объявление
// @Description Удаляет объявление после проверки прав актора по сохранённому автору
// @Tags ads
// @Accept json
// @Produce json
// @Param request body models.DummyAdDelete true "Ключ объявления и актор"
// @Success 200 {object} response.Response
// @Failure 400,422 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/ads/delete/ [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ad.remove.ServeHTTP"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyAdDelete
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", "error", err.Error())
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeValidationFailed, "failed to decode request"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			log.Error("invalid request", "error", err.Error())
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(validateErrs))
			return
		}
		log.Error("failed to validate request", "error", err.Error())
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeValidationFailed, "invalid request"))
		return
	}

	err := h.service.DeleteAd(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrValidation):
		log.Error("invalid delete request", "error", err.Error())
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeValidationFailed, err.Error()))
		return
	case errors.Is(err, services.ErrPermissionDenied):
		log.Warn("delete forbidden", "error", err.Error())
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Error(response.CodePermissionDenied, err.Error()))
		return
	case errors.Is(err, repository.ErrNotFound):
		log.Info("ad not found", slog.String("ad_id", req.Key()))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error(response.CodeNotFound, "ad not found"))
		return
	case err != nil:
		log.Error("failed to delete ad", "error", err.Error())
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.CodeStoreUnavailable, "could not delete ad"))
		return
	}

	log.Info("ad deleted", slog.String("ad_id", req.Key()))

	render.JSON(w, r, response.OKWithData(map[string]any{
		"ad_id": req.Key(),
	}))
}
