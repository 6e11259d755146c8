package feedstore

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	store, err := New(t.TempDir(), logger)
	require.NoError(t, err)
	return store
}

func TestStore_UpsertAd(t *testing.T) {
	store := newTestStore(t)

	first, err := store.UpsertAd(FeedAd{
		ID:         "manual-1",
		SourceType: "manual",
		Title:      "Экскаватор JCB",
		Price:      3500000,
		Status:     "active",
		Author:     &FeedAuthor{ID: 42, Username: "ivan"},
	})
	require.NoError(t, err)
	assert.Equal(t, "manual-1", first.ID)

	// Повторная запись с тем же ключом заменяет, а не дублирует.
	_, err = store.UpsertAd(FeedAd{
		ID:         "manual-1",
		SourceType: "manual",
		Title:      "Экскаватор JCB 3CX",
		Price:      3600000,
		Status:     "active",
		Author:     &FeedAuthor{ID: 42, Username: "ivan"},
	})
	require.NoError(t, err)

	feed, err := store.LoadFeed()
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Экскаватор JCB 3CX", feed.Items[0].Title)
	assert.EqualValues(t, 3600000, feed.Items[0].Price)
	assert.NotEmpty(t, feed.UpdatedAt)
}

func TestStore_ReplaceExcelAds(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpsertAd(FeedAd{ID: "manual-1", SourceType: "manual", Title: "Ручное", Status: "active"})
	require.NoError(t, err)
	_, err = store.UpsertAd(FeedAd{ID: "excel-old", SourceType: "excel", Title: "Старая выгрузка", Status: "active"})
	require.NoError(t, err)

	count, err := store.ReplaceExcelAds([]FeedAd{
		{ID: "excel-101", Title: "Каток BOMAG", Status: "active"},
		{ID: "excel-102", Title: "Кран Liebherr", Status: "active"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	feed, err := store.LoadFeed()
	require.NoError(t, err)
	require.Len(t, feed.Items, 3)

	ids := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		ids = append(ids, item.ID)
		if item.ID != "manual-1" {
			assert.Equal(t, "excel", item.SourceType)
		}
	}
	assert.ElementsMatch(t, []string{"manual-1", "excel-101", "excel-102"}, ids)
}

func TestStore_UpdateAd(t *testing.T) {
	tests := []struct {
		name        string
		updates     map[string]any
		wantErr     error
		checkResult func(*testing.T, *FeedAd)
	}{
		{
			name:    "обновление заголовка и цены",
			updates: map[string]any{"title": "  Новый заголовок ", "price": "4 200 000 ₽"},
			checkResult: func(t *testing.T, ad *FeedAd) {
				assert.Equal(t, "Новый заголовок", ad.Title)
				assert.EqualValues(t, 4200000, ad.Price)
				assert.NotEmpty(t, ad.UpdatedAt)
			},
		},
		{
			name:    "пустой заголовок недопустим",
			updates: map[string]any{"title": "   "},
			wantErr: ErrInvalidUpdate,
		},
		{
			name:    "категория нормализуется к словарю фронтенда",
			updates: map[string]any{"category": "Спецтехника"},
			checkResult: func(t *testing.T, ad *FeedAd) {
				assert.Equal(t, "spec", ad.Category)
			},
		},
		{
			name:    "некорректный статус пропускается и набор пустеет",
			updates: map[string]any{"status": "deleted"},
			wantErr: ErrInvalidUpdate,
		},
		{
			name:    "статус archived принимается",
			updates: map[string]any{"status": "ARCHIVED"},
			checkResult: func(t *testing.T, ad *FeedAd) {
				assert.Equal(t, "archived", ad.Status)
			},
		},
		{
			name:    "images берёт первый элемент списка",
			updates: map[string]any{"images": []any{"https://cdn/1.jpg", "https://cdn/2.jpg"}},
			checkResult: func(t *testing.T, ad *FeedAd) {
				assert.Equal(t, "https://cdn/1.jpg", ad.Image)
			},
		},
		{
			name:    "пустая локация заменяется заглушкой",
			updates: map[string]any{"location": "  "},
			checkResult: func(t *testing.T, ad *FeedAd) {
				assert.Equal(t, "Не указано", ad.Location)
			},
		},
		{
			name:    "ключ и автор не входят в набор изменяемых полей",
			updates: map[string]any{"id": "evil", "author": map[string]any{"id": 99}},
			wantErr: ErrInvalidUpdate,
		},
		{
			name:    "пустой набор изменений",
			updates: map[string]any{},
			wantErr: ErrInvalidUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			_, err := store.UpsertAd(FeedAd{
				ID:         "manual-1",
				SourceType: "manual",
				Title:      "Исходный",
				Price:      100,
				Status:     "active",
				Location:   "Москва",
				Author:     &FeedAuthor{ID: 42},
			})
			require.NoError(t, err)

			updated, err := store.UpdateAd("manual-1", tt.updates)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, updated)
			assert.Equal(t, "manual-1", updated.ID)
			assert.EqualValues(t, 42, updated.AuthorTelegramID())
			tt.checkResult(t, updated)
		})
	}
}

func TestStore_UpdateAd_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.UpdateAd("ghost", map[string]any{"title": "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteAd(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpsertAd(FeedAd{ID: "manual-1", SourceType: "manual", Title: "x", Status: "active"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteAd("manual-1"))

	feed, err := store.LoadFeed()
	require.NoError(t, err)
	assert.Empty(t, feed.Items)

	// Повторное удаление сообщает о расхождении, а не молчит.
	require.ErrorIs(t, store.DeleteAd("manual-1"), ErrNotFound)
}

func TestStore_LoadFeed_LegacyListFormat(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	dir := t.TempDir()
	legacy := `[{"id": "manual-7", "source_type": "manual", "title": "Старый формат", "price": 10, "status": "active"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ads_feed.json"), []byte(legacy), 0o644))

	store, err := New(dir, logger)
	require.NoError(t, err)

	feed, err := store.LoadFeed()
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "manual-7", feed.Items[0].ID)
	assert.NotEmpty(t, feed.UpdatedAt)
}

func TestStore_AuthUsers(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetAuthUser(42)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveAuthUser(AuthUser{
		TelegramID:      42,
		Username:        "ivan",
		PhoneNumber:     "+79990000000",
		Role:            "leasing_company",
		IsAuthenticated: true,
		AuthenticatedAt: "2026-08-20T10:00:00Z",
	}))

	user, err := store.GetAuthUser(42)
	require.NoError(t, err)
	assert.Equal(t, "leasing_company", user.Role)
	assert.NotEmpty(t, user.UpdatedAt)

	// Запись без подтверждённой аутентификации не считается пользователем.
	require.NoError(t, store.SaveAuthUser(AuthUser{TelegramID: 77, IsAuthenticated: false}))
	_, err = store.GetAuthUser(77)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ActionsLogAndStats(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.AppendAction(LogEntry{UserID: 42, Username: "ivan", Action: "start"})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.Timestamp)

	_, err = store.AppendAction(LogEntry{UserID: 42, Action: "create_ad", Details: "manual-1"})
	require.NoError(t, err)
	_, err = store.AppendAction(LogEntry{UserID: 99, Action: "start"})
	require.NoError(t, err)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalActions)
	assert.Equal(t, 2, stats.UniqueUsers)
	assert.Equal(t, 2, stats.ActionsCount["start"])
	assert.Equal(t, 1, stats.ActionsCount["create_ad"])
}

func TestStore_ActionsLogCapped(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < maxLogEntries+5; i++ {
		_, err := store.AppendAction(LogEntry{UserID: 1, Action: fmt.Sprintf("action-%d", i)})
		require.NoError(t, err)
	}

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, maxLogEntries, stats.TotalActions)
	// Самые старые записи вытеснены.
	assert.Zero(t, stats.ActionsCount["action-0"])
	assert.Equal(t, 1, stats.ActionsCount[fmt.Sprintf("action-%d", maxLogEntries+4)])
}
