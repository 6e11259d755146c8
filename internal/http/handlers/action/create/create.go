// Package create реализует HTTP-обработчик добавления записи в журнал
// действий пользователя. Журнал только пополняется: записи никогда не
// изменяются и не удаляются через этот интерфейс.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/lurzyako/classifieds-sync/internal/http/response"
	"github.com/lurzyako/classifieds-sync/internal/lib/sl"
	"github.com/lurzyako/classifieds-sync/internal/models"
)

// Handler управляет HTTP-запросами на запись действия пользователя.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики записи действия.
type Service interface {
	RecordAction(ctx context.Context, req models.DummyAction) (*models.UserAction, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Записать действие пользователя
// @Description Добавляет событие в журнал действий. Метка времени продюсера сохраняется как есть, при её отсутствии берётся момент записи.
// @Tags Actions
// @Accept  json
// @Produce  json
// @Param request body models.DummyAction true "Событие журнала"
// @Success 201 {object} response.Response "Запись добавлена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверный API-ключ"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Хранилище недоступно"
// @Security ApiKeyAuth
// @Router /api/actions/ [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.action.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyAction
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeValidationFailed, "invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	action, err := h.service.RecordAction(r.Context(), req)
	if err != nil {
		log.Error("failed to record action", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.CodeStoreUnavailable, "could not record action"))
		return
	}

	log.Info("action recorded", slog.Int64("id", action.ID), slog.String("action", action.Action))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"id": action.ID,
	}))
}
