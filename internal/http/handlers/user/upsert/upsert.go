// Package upsert реализует HTTP-обработчик приёма профиля пользователя
// от продюсера.
//
// Handler принимает JSON с telegram_id и атрибутами профиля, валидирует его,
// вызывает идемпотентный upsert бизнес-уровня и возвращает итоговую роль
// с признаком создания. Создание отвечает статусом 201, обновление — 200.
package upsert

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/lurzyako/classifieds-sync/internal/http/response"
	"github.com/lurzyako/classifieds-sync/internal/lib/sl"
	"github.com/lurzyako/classifieds-sync/internal/models"
	services "github.com/lurzyako/classifieds-sync/internal/services/sync"
)

// Handler управляет HTTP-запросами на upsert профиля пользователя.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики синхронизации
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики upsert пользователя.
type Service interface {
	UpsertUser(ctx context.Context, req models.DummyUser) (*models.TelegramUser, bool, error)
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
// @Summary Создать или обновить профиль пользователя
// @Description Идемпотентный upsert по telegram_id. При создании роль обязательна, при обновлении пустая роль сохраняет записанную. Создание отвечает 201, обновление — 200.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body models.DummyUser true "Профиль пользователя"
// @Success 200 {object} response.Response "Профиль обновлён"
// @Success 201 {object} response.Response "Профиль создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестная роль"
// @Failure 401 {object} response.ErrorResponse "Неверный API-ключ"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Хранилище недоступно"
// @Security ApiKeyAuth
// @Router /api/users/upsert/ [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.upsert"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeValidationFailed, "invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Int64("telegram_id", req.TelegramID))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	user, created, err := h.service.UpsertUser(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			log.Warn("user payload rejected", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.CodeValidationFailed, err.Error()))
			return
		}
		log.Error("failed to upsert user", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.CodeStoreUnavailable, "could not upsert user"))
		return
	}

	log.Info("user upserted", slog.Int64("telegram_id", user.TelegramID), slog.Bool("created", created))
	if created {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"telegram_id": user.TelegramID,
		"role":        user.Role,
		"created":     created,
	}))
}
