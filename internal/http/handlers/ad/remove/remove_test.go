package remove

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/lurzyako/classifieds-sync/internal/models"
	services "github.com/lurzyako/classifieds-sync/internal/services/sync"
	"github.com/lurzyako/classifieds-sync/internal/storage/repository"
)

// MockService реализует интерфейс remove.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) DeleteAd(ctx context.Context, req models.DummyAdDelete) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func TestDeleteAdHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное удаление",
			body: `{"ad_id": "ad-1", "actor_telegram_id": 1, "actor_role": "admin"}`,
			setupMock: func(m *MockService) {
				m.On("DeleteAd", mock.Anything, mock.MatchedBy(func(req models.DummyAdDelete) bool {
					return req.Key() == "ad-1" && req.ActorRole == "admin"
				})).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"ad_id":"ad-1"`,
		},
		{
			name: "удаление чужого объявления запрещено",
			body: `{"ad_id": "ad-1", "actor_telegram_id": 99, "actor_role": "user"}`,
			setupMock: func(m *MockService) {
				m.On("DeleteAd", mock.Anything, mock.Anything).
					Return(services.ErrPermissionDenied)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"code":"permission_denied"`,
		},
		{
			name: "повторное удаление возвращает not_found",
			body: `{"ad_id": "ghost", "actor_telegram_id": 1, "actor_role": "admin"}`,
			setupMock: func(m *MockService) {
				m.On("DeleteAd", mock.Anything, mock.Anything).
					Return(repository.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"code":"not_found"`,
		},
		{
			name:           "пустой ключ объявления",
			body:           `{"actor_telegram_id": 1, "actor_role": "admin"}`,
			setupMock: func(m *MockService) {
				m.On("DeleteAd", mock.Anything, mock.Anything).
					Return(services.ErrValidation)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"validation_failed"`,
		},
		{
			name:           "отсутствует роль актора",
			body:           `{"ad_id": "ad-1", "actor_telegram_id": 1}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field ActorRole is a required field",
		},
		{
			name: "ошибка хранилища",
			body: `{"ad_id": "ad-1", "actor_telegram_id": 1, "actor_role": "admin"}`,
			setupMock: func(m *MockService) {
				m.On("DeleteAd", mock.Anything, mock.Anything).
					Return(assert.AnError)
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"code":"store_unavailable"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/api/ads/delete/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
