// Package bot — телеграм-бот продюсера. Диалоги бота пишут данные через
// координатор двойной записи: сначала в локальные файлы, затем на шлюз
// синхронизации.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/lurzyako/classifieds-sync/internal/config"
	"github.com/lurzyako/classifieds-sync/internal/dualwrite"
	"github.com/lurzyako/classifieds-sync/internal/feedstore"
	"github.com/lurzyako/classifieds-sync/internal/lib/sl"
	"github.com/lurzyako/classifieds-sync/internal/models"
)

// Состояния диалога пользователя.
const (
	stateIdle       = "idle"
	stateAdTitle    = "awaiting_ad_title"
	stateAdPrice    = "awaiting_ad_price"
	stateAdLocation = "awaiting_ad_location"
	stateEditTitle  = "awaiting_edit_title"
)

// Подписи кнопок меню.
const (
	btnProfileText = "👤 Профиль"
	btnMyAdsText   = "📋 Мои объявления"
	btnNewAdText   = "➕ Новое объявление"
	btnStatsText   = "📊 Статистика"
	btnContactText = "🔐 Поделиться контактом"
)

// Инлайн-кнопки карточки объявления.
var (
	btnEditAd   = tele.Btn{Unique: "ad_edit", Text: "✏️ Название"}
	btnDeleteAd = tele.Btn{Unique: "ad_delete", Text: "🗑 Удалить"}
)

var roleLabels = map[models.Role]string{
	models.RoleUser:           "Пользователь",
	models.RoleLeasingCompany: "Лизинговая компания",
	models.RoleAdmin:          "Администратор",
}

// userSession — состояние диалога одного пользователя.
type userSession struct {
	State       string
	Draft       *feedstore.FeedAd
	PendingAdID string
}

// Bot обслуживает апдейты Telegram длинным опросом.
type Bot struct {
	bot      *tele.Bot
	coord    *dualwrite.Coordinator
	feed     *feedstore.Store
	cfg      config.Bot
	log      *slog.Logger
	sessions map[int64]*userSession
}

// New создаёт бота и регистрирует обработчики.
func New(cfg config.Bot, coord *dualwrite.Coordinator, feed *feedstore.Store, log *slog.Logger) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("bot: create: %w", err)
	}

	bot := &Bot{
		bot:      b,
		coord:    coord,
		feed:     feed,
		cfg:      cfg,
		log:      log.With(sl.Module("bot")),
		sessions: make(map[int64]*userSession),
	}
	bot.registerHandlers()
	return bot, nil
}

// Start сажает предустановленных админов в локальное хранилище и запускает
// длинный опрос. Блокируется до вызова Stop.
func (b *Bot) Start(ctx context.Context) {
	b.seedPresetAdmins(ctx)
	b.log.Info("bot started", slog.Int("preset_admins", len(b.cfg.AdminIDs)))
	b.bot.Start()
}

// Stop останавливает опрос апдейтов.
func (b *Bot) Stop() {
	b.bot.Stop()
}

// seedPresetAdmins создаёт аутентифицированные записи с ролью admin для
// идентификаторов из конфига и отправляет их на шлюз. Уже существующая
// запись получает роль admin, остальные её поля сохраняются.
func (b *Bot) seedPresetAdmins(ctx context.Context) {
	for _, id := range b.cfg.AdminIDs {
		record := feedstore.AuthUser{
			TelegramID:      id,
			Role:            models.RoleAdmin.String(),
			IsAuthenticated: true,
			AuthenticatedAt: time.Now().Format(time.RFC3339),
		}
		if existing, err := b.feed.GetAuthUser(id); err == nil {
			if existing.Role == models.RoleAdmin.String() {
				continue
			}
			record = *existing
			record.Role = models.RoleAdmin.String()
		}
		if err := b.coord.RecordUser(ctx, record); err != nil {
			b.log.Error("failed to seed preset admin", slog.Int64("telegram_id", id), sl.Err(err))
		}
	}
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/login", b.handleLogin)
	b.bot.Handle("/profile", b.handleProfile)
	b.bot.Handle("/stats", b.handleStats)
	b.bot.Handle(tele.OnContact, b.handleContact)

	b.bot.Handle(btnProfileText, b.handleProfile)
	b.bot.Handle(btnMyAdsText, b.handleMyAds)
	b.bot.Handle(btnNewAdText, b.handleNewAd)
	b.bot.Handle(btnStatsText, b.handleStats)

	b.bot.Handle(&btnEditAd, b.handleEditAdCallback)
	b.bot.Handle(&btnDeleteAd, b.handleDeleteAdCallback)
	b.bot.Handle(tele.OnText, b.handleText)
}

// mainMenu строит клавиатуру по роли: управление объявлениями видят
// лизинговые компании и админы, статистику — только админы.
func (b *Bot) mainMenu(role models.Role) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	rows := []tele.Row{menu.Row(menu.Text(btnProfileText))}
	if canManageAds(role) {
		rows = append(rows, menu.Row(menu.Text(btnNewAdText), menu.Text(btnMyAdsText)))
	}
	if role == models.RoleAdmin {
		rows = append(rows, menu.Row(menu.Text(btnStatsText)))
	}
	menu.Reply(rows...)
	return menu
}

func authKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	menu.Reply(menu.Row(menu.Contact(btnContactText)))
	return menu
}

func canManageAds(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleLeasingCompany
}

func roleLabel(role models.Role) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return role.String()
}
