package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lurzyako/classifieds-sync/internal/models"
	"github.com/lurzyako/classifieds-sync/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) UpsertTelegramUser(ctx context.Context, user models.TelegramUser) (*models.TelegramUser, bool, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.TelegramUser), args.Bool(1), args.Error(2)
}

func (m *RepoMock) GetTelegramUser(ctx context.Context, telegramID int64) (*models.TelegramUser, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TelegramUser), args.Error(1)
}

func (m *RepoMock) CreateUserAction(ctx context.Context, action models.UserAction) (int64, error) {
	args := m.Called(ctx, action)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) UpsertAdItem(ctx context.Context, ad models.AdItem) (*models.AdItem, bool, error) {
	args := m.Called(ctx, ad)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.AdItem), args.Bool(1), args.Error(2)
}

func (m *RepoMock) GetAdItem(ctx context.Context, adID string) (*models.AdItem, error) {
	args := m.Called(ctx, adID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdItem), args.Error(1)
}

func (m *RepoMock) UpdateAdItem(ctx context.Context, ad models.AdItem) (int, error) {
	args := m.Called(ctx, ad)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) DeleteAdItem(ctx context.Context, adID string) (int, error) {
	args := m.Called(ctx, adID)
	return args.Int(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newTestService(repo *RepoMock, cache *CacheMock) *SyncService {
	return NewSyncService(repo, cache, 5*time.Minute, newNoopLogger())
}

func TestSyncService_UpsertUser(t *testing.T) {
	tests := []struct {
		name        string
		setupMocks  func(r *RepoMock, c *CacheMock)
		req         models.DummyUser
		wantCreated bool
		wantRole    models.Role
		wantErrIs   error
	}{
		{
			name: "success create with explicit role",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("UpsertTelegramUser", mock.Anything, mock.MatchedBy(func(u models.TelegramUser) bool {
					return u.TelegramID == 42 && u.Role == models.RoleUser && u.Username == "ivan"
				})).Return(&models.TelegramUser{TelegramID: 42, Username: "ivan", Role: models.RoleUser}, true, nil).Once()
				c.On("Invalidate", mock.Anything, "user_role:42").Return(nil).Once()
			},
			req:         models.DummyUser{TelegramID: 42, Username: "ivan", Role: "user"},
			wantCreated: true,
			wantRole:    models.RoleUser,
		},
		{
			name: "unknown role rejected without store access",
			setupMocks: func(_ *RepoMock, _ *CacheMock) {
			},
			req:       models.DummyUser{TelegramID: 42, Role: "boss"},
			wantErrIs: ErrValidation,
		},
		{
			name: "empty role keeps stored value on update",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("GetTelegramUser", mock.Anything, int64(7)).
					Return(&models.TelegramUser{TelegramID: 7, Role: models.RoleLeasingCompany}, nil).Once()
				r.On("UpsertTelegramUser", mock.Anything, mock.MatchedBy(func(u models.TelegramUser) bool {
					return u.Role == models.RoleLeasingCompany
				})).Return(&models.TelegramUser{TelegramID: 7, Role: models.RoleLeasingCompany}, false, nil).Once()
				c.On("Invalidate", mock.Anything, "user_role:7").Return(nil).Once()
			},
			req:      models.DummyUser{TelegramID: 7, Username: "lease_co"},
			wantRole: models.RoleLeasingCompany,
		},
		{
			name: "explicit role replaces stored value",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("UpsertTelegramUser", mock.Anything, mock.MatchedBy(func(u models.TelegramUser) bool {
					return u.Role == models.RoleAdmin
				})).Return(&models.TelegramUser{TelegramID: 7, Role: models.RoleAdmin}, false, nil).Once()
				c.On("Invalidate", mock.Anything, "user_role:7").Return(nil).Once()
			},
			req:      models.DummyUser{TelegramID: 7, Role: "admin"},
			wantRole: models.RoleAdmin,
		},
		{
			name: "empty role for unknown user is rejected",
			setupMocks: func(r *RepoMock, _ *CacheMock) {
				r.On("GetTelegramUser", mock.Anything, int64(100)).
					Return(nil, repository.ErrNotFound).Once()
			},
			req:       models.DummyUser{TelegramID: 100, Username: "newcomer"},
			wantErrIs: ErrValidation,
		},
		{
			name: "cache invalidate failure does not fail upsert",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("UpsertTelegramUser", mock.Anything, mock.Anything).
					Return(&models.TelegramUser{TelegramID: 42, Role: models.RoleUser}, true, nil).Once()
				c.On("Invalidate", mock.Anything, "user_role:42").Return(errors.New("redis down")).Once()
			},
			req:         models.DummyUser{TelegramID: 42, Role: "user"},
			wantCreated: true,
			wantRole:    models.RoleUser,
		},
		{
			name: "storage error propagates",
			setupMocks: func(r *RepoMock, _ *CacheMock) {
				r.On("UpsertTelegramUser", mock.Anything, mock.Anything).
					Return(nil, false, errors.New("connection refused")).Once()
			},
			req:       models.DummyUser{TelegramID: 42, Role: "user"},
			wantErrIs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			svc := newTestService(repo, cache)
			tt.setupMocks(repo, cache)

			user, created, err := svc.UpsertUser(context.Background(), tt.req)

			if tt.wantErrIs != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErrIs)
				assert.Nil(t, user)
			} else if tt.name == "storage error propagates" {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCreated, created)
				assert.Equal(t, tt.wantRole, user.Role)
			}
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestSyncService_GetUserRole(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, c *CacheMock)
		telegramID int64
		wantRole   models.Role
		wantErrIs  error
	}{
		{
			name: "cache hit skips storage",
			setupMocks: func(_ *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, "user_role:42", mock.Anything).
					Run(func(args mock.Arguments) {
						ptr := args.Get(2).(*string)
						*ptr = string(models.RoleAdmin)
					}).Return(true, nil).Once()
			},
			telegramID: 42,
			wantRole:   models.RoleAdmin,
		},
		{
			name: "cache miss reads storage and fills cache",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, "user_role:7", mock.Anything).Return(false, nil).Once()
				r.On("GetTelegramUser", mock.Anything, int64(7)).
					Return(&models.TelegramUser{TelegramID: 7, Role: models.RoleLeasingCompany}, nil).Once()
				c.On("Set", mock.Anything, "user_role:7", string(models.RoleLeasingCompany), 5*time.Minute).
					Return(nil).Once()
			},
			telegramID: 7,
			wantRole:   models.RoleLeasingCompany,
		},
		{
			name: "unknown user returns not found",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, "user_role:100", mock.Anything).Return(false, nil).Once()
				r.On("GetTelegramUser", mock.Anything, int64(100)).
					Return(nil, repository.ErrNotFound).Once()
			},
			telegramID: 100,
			wantErrIs:  repository.ErrNotFound,
		},
		{
			name: "cache failure falls back to storage",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, "user_role:42", mock.Anything).
					Return(false, errors.New("redis down")).Once()
				r.On("GetTelegramUser", mock.Anything, int64(42)).
					Return(&models.TelegramUser{TelegramID: 42, Role: models.RoleUser}, nil).Once()
				c.On("Set", mock.Anything, "user_role:42", string(models.RoleUser), 5*time.Minute).
					Return(errors.New("redis down")).Once()
			},
			telegramID: 42,
			wantRole:   models.RoleUser,
		},
		{
			name: "garbage in cache is ignored",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, "user_role:42", mock.Anything).
					Run(func(args mock.Arguments) {
						ptr := args.Get(2).(*string)
						*ptr = "boss"
					}).Return(true, nil).Once()
				r.On("GetTelegramUser", mock.Anything, int64(42)).
					Return(&models.TelegramUser{TelegramID: 42, Role: models.RoleUser}, nil).Once()
				c.On("Set", mock.Anything, "user_role:42", string(models.RoleUser), 5*time.Minute).
					Return(nil).Once()
			},
			telegramID: 42,
			wantRole:   models.RoleUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			svc := newTestService(repo, cache)
			tt.setupMocks(repo, cache)

			role, err := svc.GetUserRole(context.Background(), tt.telegramID)

			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRole, role)
			}
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestSyncService_RecordAction(t *testing.T) {
	t.Run("producer timestamp is kept", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newTestService(repo, new(CacheMock))

		want := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
		repo.On("CreateUserAction", mock.Anything, mock.MatchedBy(func(a models.UserAction) bool {
			return a.TelegramID == 42 && a.Action == "start" && a.CreatedAt.Equal(want) &&
				strings.Contains(string(a.RawPayload), `"action":"start"`)
		})).Return(int64(5), nil).Once()

		action, err := svc.RecordAction(context.Background(), models.DummyAction{
			TelegramID: 42,
			Action:     "start",
			Timestamp:  "2026-08-21T10:00:00Z",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), action.ID)
		repo.AssertExpectations(t)
	})

	t.Run("missing timestamp falls back to receive time", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newTestService(repo, new(CacheMock))

		before := time.Now().UTC()
		repo.On("CreateUserAction", mock.Anything, mock.MatchedBy(func(a models.UserAction) bool {
			return !a.CreatedAt.Before(before) && !a.CreatedAt.After(time.Now().UTC())
		})).Return(int64(1), nil).Once()

		_, err := svc.RecordAction(context.Background(), models.DummyAction{
			TelegramID: 42,
			Action:     "create_ad",
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("storage error propagates", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newTestService(repo, new(CacheMock))

		repo.On("CreateUserAction", mock.Anything, mock.Anything).
			Return(int64(0), errors.New("connection refused")).Once()

		_, err := svc.RecordAction(context.Background(), models.DummyAction{
			TelegramID: 42,
			Action:     "start",
		})
		require.Error(t, err)
	})
}

func TestSyncService_UpsertAd(t *testing.T) {
	year := 2019
	tests := []struct {
		name        string
		setupMocks  func(r *RepoMock)
		req         models.DummyAd
		wantCreated bool
		wantErrIs   error
	}{
		{
			name: "create normalizes messy payload",
			setupMocks: func(r *RepoMock) {
				r.On("UpsertAdItem", mock.Anything, mock.MatchedBy(func(ad models.AdItem) bool {
					return ad.AdID == "ad-1" &&
						ad.Title == "Экскаватор JCB" &&
						ad.Price == 1200000 &&
						ad.Year != nil && *ad.Year == 2019 &&
						ad.Status == models.AdStatusActive &&
						ad.SourceType == models.AdSourceManual &&
						ad.AuthorTelegramID == 42
				})).Return(&models.AdItem{AdID: "ad-1", Title: "Экскаватор JCB", Price: 1200000, Year: &year, AuthorTelegramID: 42}, true, nil).Once()
			},
			req: models.DummyAd{
				ID:     "ad-1",
				Title:  "  Экскаватор JCB  ",
				Price:  "1 200 000 ₽",
				Year:   "2019",
				Status: "ACTIVE",
				Author: &models.DummyAdAuthor{ID: "42", Username: "ivan"},
			},
			wantCreated: true,
		},
		{
			name: "ad_id field works as key",
			setupMocks: func(r *RepoMock) {
				r.On("UpsertAdItem", mock.Anything, mock.MatchedBy(func(ad models.AdItem) bool {
					return ad.AdID == "excel-7" && ad.AuthorTelegramID == 0
				})).Return(&models.AdItem{AdID: "excel-7"}, false, nil).Once()
			},
			req: models.DummyAd{AdID: "excel-7", Title: "Кран", SourceType: "excel"},
		},
		{
			name:       "missing key is rejected",
			setupMocks: func(_ *RepoMock) {},
			req:        models.DummyAd{Title: "Без ключа"},
			wantErrIs:  ErrValidation,
		},
		{
			name:       "missing title is rejected",
			setupMocks: func(_ *RepoMock) {},
			req:        models.DummyAd{ID: "ad-1", Title: "   "},
			wantErrIs:  ErrValidation,
		},
		{
			name: "storage error propagates",
			setupMocks: func(r *RepoMock) {
				r.On("UpsertAdItem", mock.Anything, mock.Anything).
					Return(nil, false, errors.New("connection refused")).Once()
			},
			req:       models.DummyAd{ID: "ad-1", Title: "Кран"},
			wantErrIs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			svc := newTestService(repo, new(CacheMock))
			tt.setupMocks(repo)

			ad, created, err := svc.UpsertAd(context.Background(), tt.req)

			switch {
			case tt.wantErrIs != nil:
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErrIs)
				repo.AssertNotCalled(t, "UpsertAdItem")
			case tt.name == "storage error propagates":
				require.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantCreated, created)
				assert.NotNil(t, ad)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestSyncService_BulkUpsertAds(t *testing.T) {
	t.Run("per-item isolation keeps input order", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newTestService(repo, new(CacheMock))

		repo.On("UpsertAdItem", mock.Anything, mock.MatchedBy(func(ad models.AdItem) bool {
			return ad.AdID == "ad-1"
		})).Return(&models.AdItem{AdID: "ad-1"}, true, nil).Once()
		repo.On("UpsertAdItem", mock.Anything, mock.MatchedBy(func(ad models.AdItem) bool {
			return ad.AdID == "ad-3"
		})).Return(&models.AdItem{AdID: "ad-3"}, false, nil).Once()

		outcomes := svc.BulkUpsertAds(context.Background(), []models.DummyAd{
			{ID: "ad-1", Title: "Первый"},
			{ID: "ad-2"}, // без заголовка
			{ID: "ad-3", Title: "Третий"},
		})

		require.Len(t, outcomes, 3)
		assert.Equal(t, 0, outcomes[0].Index)
		assert.True(t, outcomes[0].Created)
		assert.NoError(t, outcomes[0].Err)

		assert.Equal(t, 1, outcomes[1].Index)
		assert.Equal(t, "ad-2", outcomes[1].AdID)
		assert.ErrorIs(t, outcomes[1].Err, ErrValidation)

		assert.Equal(t, 2, outcomes[2].Index)
		assert.False(t, outcomes[2].Created)
		assert.NoError(t, outcomes[2].Err)
		repo.AssertExpectations(t)
	})

	t.Run("storage failure on one item does not stop the rest", func(t *testing.T) {
		repo := new(RepoMock)
		svc := newTestService(repo, new(CacheMock))

		repo.On("UpsertAdItem", mock.Anything, mock.MatchedBy(func(ad models.AdItem) bool {
			return ad.AdID == "ad-1"
		})).Return(nil, false, errors.New("connection refused")).Once()
		repo.On("UpsertAdItem", mock.Anything, mock.MatchedBy(func(ad models.AdItem) bool {
			return ad.AdID == "ad-2"
		})).Return(&models.AdItem{AdID: "ad-2"}, true, nil).Once()

		outcomes := svc.BulkUpsertAds(context.Background(), []models.DummyAd{
			{ID: "ad-1", Title: "Первый"},
			{ID: "ad-2", Title: "Второй"},
		})

		require.Len(t, outcomes, 2)
		assert.Error(t, outcomes[0].Err)
		assert.NoError(t, outcomes[1].Err)
		assert.True(t, outcomes[1].Created)
		repo.AssertExpectations(t)
	})

	t.Run("empty input gives empty result", func(t *testing.T) {
		svc := newTestService(new(RepoMock), new(CacheMock))

		outcomes := svc.BulkUpsertAds(context.Background(), nil)

		assert.NotNil(t, outcomes)
		assert.Empty(t, outcomes)
	})
}

func TestSyncService_UpdateAd(t *testing.T) {
	storedAd := func() *models.AdItem {
		return &models.AdItem{
			AdID:             "ad-1",
			Title:            "Экскаватор JCB",
			Price:            1200000,
			Status:           models.AdStatusActive,
			AuthorTelegramID: 42,
		}
	}

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		req        models.DummyAdUpdate
		wantErrIs  error
	}{
		{
			name: "admin updates foreign ad",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
				r.On("UpdateAdItem", mock.Anything, mock.MatchedBy(func(ad models.AdItem) bool {
					return ad.AdID == "ad-1" && ad.Title == "Новый заголовок" && ad.AuthorTelegramID == 42
				})).Return(1, nil).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ad-1",
				ActorTelegramID: 1,
				ActorRole:       "admin",
				Updates:         map[string]any{"title": "Новый заголовок"},
			},
		},
		{
			name: "leasing company updates own ad",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
				r.On("UpdateAdItem", mock.Anything, mock.MatchedBy(func(ad models.AdItem) bool {
					return ad.Price == 999000 && ad.AuthorTelegramID == 42
				})).Return(1, nil).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ad-1",
				ActorTelegramID: 42,
				ActorRole:       "leasing_company",
				Updates:         map[string]any{"price": "999 000 ₽"},
			},
		},
		{
			name: "leasing company cannot touch foreign ad",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ad-1",
				ActorTelegramID: 99,
				ActorRole:       "leasing_company",
				Updates:         map[string]any{"title": "Чужое"},
			},
			wantErrIs: ErrPermissionDenied,
		},
		{
			name: "plain user is denied even for own ad",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ad-1",
				ActorTelegramID: 42,
				ActorRole:       "user",
				Updates:         map[string]any{"title": "Своё"},
			},
			wantErrIs: ErrPermissionDenied,
		},
		{
			name: "unknown actor role fails closed",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ad-1",
				ActorTelegramID: 1,
				ActorRole:       "boss",
				Updates:         map[string]any{"title": "Взлом"},
			},
			wantErrIs: ErrPermissionDenied,
		},
		{
			name: "author and key fields are silently dropped",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
				r.On("UpdateAdItem", mock.Anything, mock.MatchedBy(func(ad models.AdItem) bool {
					return ad.AdID == "ad-1" && ad.AuthorTelegramID == 42 && ad.Title == "Честное поле"
				})).Return(1, nil).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ad-1",
				ActorTelegramID: 1,
				ActorRole:       "admin",
				Updates: map[string]any{
					"title":              "Честное поле",
					"author_telegram_id": 99,
					"ad_id":              "ad-2",
				},
			},
		},
		{
			name: "invalid status value is skipped, not coerced",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
				r.On("UpdateAdItem", mock.Anything, mock.MatchedBy(func(ad models.AdItem) bool {
					return ad.Status == models.AdStatusActive && ad.Title == "Честное поле"
				})).Return(1, nil).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ad-1",
				ActorTelegramID: 1,
				ActorRole:       "admin",
				Updates:         map[string]any{"status": "BROKEN", "title": "Честное поле"},
			},
		},
		{
			name: "remote created time can be updated",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
				r.On("UpdateAdItem", mock.Anything, mock.MatchedBy(func(ad models.AdItem) bool {
					return ad.CreatedAtRemote != nil &&
						ad.CreatedAtRemote.Equal(time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))
				})).Return(1, nil).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ad-1",
				ActorTelegramID: 1,
				ActorRole:       "admin",
				Updates:         map[string]any{"createdAt": "2026-08-20T10:00:00Z"},
			},
		},
		{
			name: "only unrecognized fields is a validation error",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ad-1",
				ActorTelegramID: 1,
				ActorRole:       "admin",
				Updates:         map[string]any{"author_telegram_id": 99},
			},
			wantErrIs: ErrValidation,
		},
		{
			name: "empty title update is rejected",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ad-1",
				ActorTelegramID: 1,
				ActorRole:       "admin",
				Updates:         map[string]any{"title": "   "},
			},
			wantErrIs: ErrValidation,
		},
		{
			name: "missing ad is not found",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ghost").Return(nil, repository.ErrNotFound).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ghost",
				ActorTelegramID: 1,
				ActorRole:       "admin",
				Updates:         map[string]any{"title": "Призрак"},
			},
			wantErrIs: repository.ErrNotFound,
		},
		{
			name: "ad deleted between read and write is not found",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
				r.On("UpdateAdItem", mock.Anything, mock.Anything).Return(0, nil).Once()
			},
			req: models.DummyAdUpdate{
				AdID:            "ad-1",
				ActorTelegramID: 1,
				ActorRole:       "admin",
				Updates:         map[string]any{"title": "Поздно"},
			},
			wantErrIs: repository.ErrNotFound,
		},
		{
			name:       "missing key is a validation error",
			setupMocks: func(_ *RepoMock) {},
			req: models.DummyAdUpdate{
				ActorTelegramID: 1,
				ActorRole:       "admin",
				Updates:         map[string]any{"title": "Без ключа"},
			},
			wantErrIs: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			svc := newTestService(repo, new(CacheMock))
			tt.setupMocks(repo)

			ad, err := svc.UpdateAd(context.Background(), tt.req)

			if tt.wantErrIs != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErrIs)
				assert.Nil(t, ad)
				if errors.Is(tt.wantErrIs, ErrPermissionDenied) {
					repo.AssertNotCalled(t, "UpdateAdItem")
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, ad)
				assert.Equal(t, int64(42), ad.AuthorTelegramID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestSyncService_DeleteAd(t *testing.T) {
	storedAd := func() *models.AdItem {
		return &models.AdItem{AdID: "ad-1", Title: "Экскаватор JCB", AuthorTelegramID: 42}
	}

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		req        models.DummyAdDelete
		wantErrIs  error
	}{
		{
			name: "admin deletes foreign ad",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
				r.On("DeleteAdItem", mock.Anything, "ad-1").Return(1, nil).Once()
			},
			req: models.DummyAdDelete{AdID: "ad-1", ActorTelegramID: 1, ActorRole: "admin"},
		},
		{
			name: "leasing company deletes own ad",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
				r.On("DeleteAdItem", mock.Anything, "ad-1").Return(1, nil).Once()
			},
			req: models.DummyAdDelete{AdID: "ad-1", ActorTelegramID: 42, ActorRole: "leasing_company"},
		},
		{
			name: "leasing company cannot delete foreign ad",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
			},
			req:       models.DummyAdDelete{AdID: "ad-1", ActorTelegramID: 99, ActorRole: "leasing_company"},
			wantErrIs: ErrPermissionDenied,
		},
		{
			name: "plain user is denied",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
			},
			req:       models.DummyAdDelete{AdID: "ad-1", ActorTelegramID: 42, ActorRole: "user"},
			wantErrIs: ErrPermissionDenied,
		},
		{
			name: "missing ad is not found, not a silent success",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ghost").Return(nil, repository.ErrNotFound).Once()
			},
			req:       models.DummyAdDelete{AdID: "ghost", ActorTelegramID: 1, ActorRole: "admin"},
			wantErrIs: repository.ErrNotFound,
		},
		{
			name: "ad deleted concurrently is not found",
			setupMocks: func(r *RepoMock) {
				r.On("GetAdItem", mock.Anything, "ad-1").Return(storedAd(), nil).Once()
				r.On("DeleteAdItem", mock.Anything, "ad-1").Return(0, nil).Once()
			},
			req:       models.DummyAdDelete{AdID: "ad-1", ActorTelegramID: 1, ActorRole: "admin"},
			wantErrIs: repository.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			svc := newTestService(repo, new(CacheMock))
			tt.setupMocks(repo)

			err := svc.DeleteAd(context.Background(), tt.req)

			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				if errors.Is(tt.wantErrIs, ErrPermissionDenied) {
					repo.AssertNotCalled(t, "DeleteAdItem")
				}
			} else {
				require.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}
