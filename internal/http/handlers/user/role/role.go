// Package role реализует HTTP-обработчик чтения текущей роли пользователя.
// Продюсер обращается сюда перед операциями, требующими прав.
package role

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lurzyako/classifieds-sync/internal/http/response"
	"github.com/lurzyako/classifieds-sync/internal/lib/sl"
	"github.com/lurzyako/classifieds-sync/internal/models"
	"github.com/lurzyako/classifieds-sync/internal/storage/repository"
)

// Handler управляет HTTP-запросами на чтение роли пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения роли.
type Service interface {
	GetUserRole(ctx context.Context, telegramID int64) (models.Role, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить роль пользователя
// @Description Возвращает текущую роль пользователя по telegram_id. Неизвестный пользователь — 404.
// @Tags Users
// @Produce  json
// @Param telegram_id path int true "Идентификатор пользователя в Telegram"
// @Success 200 {object} response.Response "Роль пользователя"
// @Failure 400 {object} response.ErrorResponse "Некорректный telegram_id"
// @Failure 401 {object} response.ErrorResponse "Неверный API-ключ"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Хранилище недоступно"
// @Security ApiKeyAuth
// @Router /api/users/{telegram_id}/role/ [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.role"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	telegramID, err := strconv.ParseInt(chi.URLParam(r, "telegram_id"), 10, 64)
	if err != nil {
		log.Error("failed to decode telegram_id from url", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeValidationFailed, "telegram_id must be int"))
		return
	}

	role, err := h.service.GetUserRole(r.Context(), telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("user not found", slog.Int64("telegram_id", telegramID))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error(response.CodeNotFound, "user not found"))
			return
		}
		log.Error("failed to read user role", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.CodeStoreUnavailable, "could not read user role"))
		return
	}

	log.Info("user role resolved", slog.Int64("telegram_id", telegramID), slog.String("role", string(role)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"telegram_id": telegramID,
		"role":        role,
	}))
}
