// Package backendclient — HTTP-клиент шлюза синхронизации для продюсера.
// Повторяет набор конечных точек шлюза один в один; ответ разбирается
// в унифицированный конверт, машинный код ошибки переводится в
// sentinel-ошибку, различимую через errors.Is.
package backendclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lurzyako/classifieds-sync/internal/http/response"
	"github.com/lurzyako/classifieds-sync/internal/models"
)

// Ошибки шлюза, различимые по коду в ответе. store_unavailable можно
// повторить позже, permission_denied повторять бессмысленно.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrValidationFailed     = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrStoreUnavailable     = errors.New("store unavailable")
)

// Client выполняет запросы к шлюзу синхронизации от имени бота.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт клиент шлюза. Хвостовой слэш базового URL срезается,
// пути конечных точек несут его сами.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// envelope — унифицированный JSON-ответ шлюза.
type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var env envelope
	if err = json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("backend returned %s", resp.Status)
		}
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest || env.Status == response.StatusError {
		return nil, codeError(env, resp.Status)
	}
	return &env, nil
}

// codeError переводит конверт ошибки в sentinel по машинному коду.
func codeError(env envelope, httpStatus string) error {
	var sentinel error
	switch env.Code {
	case response.CodeAuthenticationFailed:
		sentinel = ErrAuthenticationFailed
	case response.CodeValidationFailed:
		sentinel = ErrValidationFailed
	case response.CodeNotFound:
		sentinel = ErrNotFound
	case response.CodePermissionDenied:
		sentinel = ErrPermissionDenied
	case response.CodeStoreUnavailable:
		sentinel = ErrStoreUnavailable
	default:
		return fmt.Errorf("backend returned %s: %s", httpStatus, env.Error)
	}
	if env.Error == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, env.Error)
}

// UpsertUser создаёт или обновляет профиль пользователя на шлюзе.
func (c *Client) UpsertUser(ctx context.Context, user models.DummyUser) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/users/upsert/", user)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// FetchUserRole запрашивает роль пользователя. Неизвестный пользователь
// даёт ErrNotFound.
func (c *Client) FetchUserRole(ctx context.Context, telegramID int64) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d/role/", telegramID), nil)
	if err != nil {
		return "", err
	}
	env, err := c.do(req)
	if err != nil {
		return "", err
	}

	var data struct {
		Role string `json:"role"`
	}
	if err = json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("decode role payload: %w", err)
	}
	return data.Role, nil
}

// RecordAction добавляет событие в журнал действий шлюза.
func (c *Client) RecordAction(ctx context.Context, action models.DummyAction) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/actions/", action)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// UpsertAd создаёт или обновляет одно объявление.
func (c *Client) UpsertAd(ctx context.Context, ad models.DummyAd) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/ads/upsert/", ad)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// BulkUpsertAds отправляет пакет объявлений. Пустой пакет не отправляется.
func (c *Client) BulkUpsertAds(ctx context.Context, items []models.DummyAd) error {
	if len(items) == 0 {
		return nil
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/ads/bulk-upsert/", models.DummyAdBulk{Items: items})
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// UpdateAd передаёт шлюзу набор изменений объявления от имени актора.
func (c *Client) UpdateAd(ctx context.Context, adID string, actorTelegramID int64, actorRole string, updates map[string]any) error {
	payload := models.DummyAdUpdate{
		AdID:            adID,
		ActorTelegramID: actorTelegramID,
		ActorRole:       actorRole,
		Updates:         updates,
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/ads/update/", payload)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// DeleteAd удаляет объявление на шлюзе от имени актора.
func (c *Client) DeleteAd(ctx context.Context, adID string, actorTelegramID int64, actorRole string) error {
	payload := models.DummyAdDelete{
		AdID:            adID,
		ActorTelegramID: actorTelegramID,
		ActorRole:       actorRole,
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/ads/delete/", payload)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}
