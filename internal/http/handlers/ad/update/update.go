package update

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

// Handler обрабатывает изменение объявления от имени актора.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает методы сервисного слоя, необходимые handler.
type Service interface {
	UpdateAd(ctx context.Context, req models.DummyAdUpdate) (*models.AdItem, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP обрабатывает HTTP-запрос на изменение объявления.
// Право актора проверяется по сохранённому автору объявления,
// а не по данным из запроса.
// @Summary Изменить объявление
// @Description Применяет разрешённые поля updates к объявлению после проверки прав актора
// @Tags ads
// @Accept json
// @Produce json
// @Param request body models.DummyAdUpdate true "Ключ объявления, актор и набор изменений"
// @Success 200 {object} response.Response
// @Failure 400,422 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/ads/update/ [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ad.update.ServeHTTP"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyAdUpdate
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

	ad, err := h.service.UpdateAd(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrValidation):
		log.Error("invalid update request", "error", err.Error())
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeValidationFailed, err.Error()))
		return
	case errors.Is(err, services.ErrPermissionDenied):
		log.Warn("update forbidden", "error", err.Error())
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Error(response.CodePermissionDenied, err.Error()))
		return
	case errors.Is(err, repository.ErrNotFound):
		log.Info("ad not found", slog.String("ad_id", req.Key()))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error(response.CodeNotFound, "ad not found"))
		return
	case err != nil:
		log.Error("failed to update ad", "error", err.Error())
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.CodeStoreUnavailable, "could not update ad"))
		return
	}

	log.Info("ad updated", slog.String("ad_id", ad.AdID))

	render.JSON(w, r, response.OKWithData(map[string]any{
		"ad_id": ad.AdID,
	}))
}
