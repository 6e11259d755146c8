package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/lurzyako/classifieds-sync/internal/dualwrite"
	"github.com/lurzyako/classifieds-sync/internal/feedstore"
	"github.com/lurzyako/classifieds-sync/internal/lib/normalize"
	"github.com/lurzyako/classifieds-sync/internal/lib/sl"
	"github.com/lurzyako/classifieds-sync/internal/models"
)

func logEntryFor(sender *tele.User, action, details string) feedstore.LogEntry {
	return feedstore.LogEntry{
		UserID:    sender.ID,
		Username:  sender.Username,
		FirstName: sender.FirstName,
		LastName:  sender.LastName,
		Action:    action,
		Details:   details,
	}
}

func (b *Bot) recordAction(ctx context.Context, sender *tele.User, action, details string) {
	if err := b.coord.RecordAction(ctx, logEntryFor(sender, action, details)); err != nil {
		b.log.Error("failed to record action", sl.Err(err))
	}
}

func (b *Bot) isAuthenticated(telegramID int64) bool {
	_, err := b.feed.GetAuthUser(telegramID)
	return err == nil
}

func (b *Bot) isPresetAdmin(telegramID int64) bool {
	for _, id := range b.cfg.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func (b *Bot) promptAuth(c tele.Context, reason string) error {
	text := "🔒 Для работы с ботом нужно пройти аутентификацию.\n" +
		"Нажмите кнопку ниже и отправьте ваш контакт Telegram."
	if reason != "" {
		text += "\n\nПричина: " + reason
	}
	return c.Send(text, authKeyboard())
}

// ensureAuthenticated пускает дальше только аутентифицированных,
// остальным показывает клавиатуру с кнопкой контакта.
func (b *Bot) ensureAuthenticated(c tele.Context, reason string) bool {
	sender := c.Sender()
	if b.isAuthenticated(sender.ID) {
		return true
	}
	b.recordAction(context.Background(), sender, "auth_required", reason)
	if err := b.promptAuth(c, reason); err != nil {
		b.log.Error("failed to prompt auth", sl.Err(err))
	}
	return false
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	b.sessions[sender.ID] = &userSession{State: stateIdle}

	b.recordAction(ctx, sender, "start", "Пользователь запустил бота")

	if !b.isAuthenticated(sender.ID) {
		return b.promptAuth(c, "Первый запуск /start")
	}

	name := sender.FirstName
	if name == "" {
		name = "Пользователь"
	}
	role := b.coord.UserRole(ctx, sender.ID)
	text := fmt.Sprintf(
		"👋 Здравствуйте, %s!\n\nЯ бот каталога техники. Кнопки ниже открывают профиль и управление объявлениями.",
		name,
	)
	return c.Send(text, b.mainMenu(role))
}

func (b *Bot) handleLogin(c tele.Context) error {
	sender := c.Sender()
	if b.isAuthenticated(sender.ID) {
		role := b.coord.UserRole(context.Background(), sender.ID)
		return c.Send("✅ Вы уже аутентифицированы. Используйте /profile для просмотра профиля.", b.mainMenu(role))
	}
	return b.promptAuth(c, "Команда /login")
}

// handleContact завершает аутентификацию по кнопке «Поделиться контактом».
// Принимается только собственный контакт отправителя.
func (b *Bot) handleContact(c tele.Context) error {
	contact := c.Message().Contact
	if contact == nil {
		return nil
	}
	sender := c.Sender()
	if contact.UserID != sender.ID {
		return c.Send("⛔ Нужно подтвердить именно ваш Telegram-контакт (кнопкой ниже).", authKeyboard())
	}

	ctx := context.Background()
	record := feedstore.AuthUser{
		TelegramID:      sender.ID,
		Username:        sender.Username,
		FirstName:       sender.FirstName,
		LastName:        sender.LastName,
		LanguageCode:    sender.LanguageCode,
		PhoneNumber:     contact.PhoneNumber,
		Role:            models.RoleUser.String(),
		IsAuthenticated: true,
		AuthenticatedAt: time.Now().Format(time.RFC3339),
	}
	if existing, err := b.feed.GetAuthUser(sender.ID); err == nil {
		// Роль и дата первой аутентификации переживают повторный вход.
		if _, err := models.ParseRole(existing.Role); err == nil {
			record.Role = existing.Role
		}
		if existing.AuthenticatedAt != "" {
			record.AuthenticatedAt = existing.AuthenticatedAt
		}
		if record.PhoneNumber == "" {
			record.PhoneNumber = existing.PhoneNumber
		}
		record.AvatarFileID = existing.AvatarFileID
	}
	if b.isPresetAdmin(sender.ID) {
		record.Role = models.RoleAdmin.String()
	}

	if err := b.coord.RecordUser(ctx, record); err != nil {
		b.log.Error("failed to save authenticated user", sl.Err(err))
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}
	b.recordAction(ctx, sender, "auth_success", "Аутентификация по контакту: "+record.PhoneNumber)

	name := sender.FirstName
	if name == "" {
		name = "Пользователь"
	}
	if err := c.Send(fmt.Sprintf("✅ %s, аутентификация прошла успешно!", name), tele.RemoveKeyboard); err != nil {
		return err
	}
	role := b.coord.UserRole(ctx, sender.ID)
	return c.Send("Теперь доступны все функции бота. Ниже главное меню.", b.mainMenu(role))
}

func (b *Bot) handleProfile(c tele.Context) error {
	if !b.ensureAuthenticated(c, "Просмотр профиля") {
		return nil
	}
	sender := c.Sender()
	record, err := b.feed.GetAuthUser(sender.ID)
	if err != nil {
		return b.promptAuth(c, "Просмотр профиля")
	}

	fullName := strings.TrimSpace(record.FirstName + " " + record.LastName)
	if fullName == "" {
		fullName = "Не указано"
	}
	username := "не указан"
	if record.Username != "" {
		username = "@" + record.Username
	}
	phone := record.PhoneNumber
	if phone == "" {
		phone = "не указан"
	}
	role := b.coord.UserRole(context.Background(), sender.ID)

	text := fmt.Sprintf(
		"👤 Профиль пользователя\n\nИмя: %s\nUsername: %s\nТелефон: %s\nTelegram ID: %d\nРоль: %s\nСтатус: ✅ аутентифицирован\nАвторизация: %s",
		fullName, username, phone, sender.ID, roleLabel(role), record.AuthenticatedAt,
	)
	return c.Send(text, b.mainMenu(role))
}

func (b *Bot) handleStats(c tele.Context) error {
	if !b.ensureAuthenticated(c, "Просмотр статистики") {
		return nil
	}
	ctx := context.Background()
	sender := c.Sender()

	role := b.coord.UserRole(ctx, sender.ID)
	if role != models.RoleAdmin {
		b.recordAction(ctx, sender, "stats_denied", "Попытка доступа к статистике без прав")
		return c.Send("⛔ У вас нет доступа к этой команде.")
	}
	b.recordAction(ctx, sender, "stats", "Администратор запросил статистику")

	stats, err := b.feed.Stats()
	if err != nil {
		b.log.Error("failed to load stats", sl.Err(err))
		return c.Send("❌ Ошибка при получении статистики.")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb,
		"📊 Статистика бота\n\n👥 Пользователи:\n• Всего взаимодействий: %d\n• Уникальных пользователей: %d\n\n📈 Активность:",
		stats.TotalActions, stats.UniqueUsers,
	)
	actions := make([]string, 0, len(stats.ActionsCount))
	for action := range stats.ActionsCount {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	for _, action := range actions {
		fmt.Fprintf(&sb, "\n• %s: %d", action, stats.ActionsCount[action])
	}
	return c.Send(sb.String())
}

func (b *Bot) handleNewAd(c tele.Context) error {
	if !b.ensureAuthenticated(c, "Новое объявление") {
		return nil
	}
	ctx := context.Background()
	sender := c.Sender()

	role := b.coord.UserRole(ctx, sender.ID)
	if !canManageAds(role) {
		b.recordAction(ctx, sender, "new_advertisement_denied", "Недостаточно прав на публикацию")
		return c.Send("⛔ Публикация объявлений доступна только ролям «Администратор» и «Лизинговая компания».")
	}

	b.sessions[sender.ID] = &userSession{
		State: stateAdTitle,
		Draft: &feedstore.FeedAd{
			Category: "equipment",
			Author: &feedstore.FeedAuthor{
				ID:        sender.ID,
				Username:  sender.Username,
				FirstName: sender.FirstName,
				LastName:  sender.LastName,
			},
		},
	}
	return c.Send("Введите название объявления:", tele.RemoveKeyboard)
}

// handleMyAds показывает объявления отправителя карточками с кнопками
// редактирования и удаления. Админ видит весь фид.
func (b *Bot) handleMyAds(c tele.Context) error {
	if !b.ensureAuthenticated(c, "Мои объявления") {
		return nil
	}
	ctx := context.Background()
	sender := c.Sender()

	role := b.coord.UserRole(ctx, sender.ID)
	if !canManageAds(role) {
		return c.Send("⛔ Управление объявлениями доступно только ролям «Администратор» и «Лизинговая компания».")
	}

	feed, err := b.feed.LoadFeed()
	if err != nil {
		b.log.Error("failed to load ads feed", sl.Err(err))
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}

	shown := 0
	for _, ad := range feed.Items {
		if role != models.RoleAdmin && ad.AuthorTelegramID() != sender.ID {
			continue
		}
		shown++
		location := ad.Location
		if location == "" {
			location = "Не указано"
		}
		markup := &tele.ReplyMarkup{}
		markup.Inline(markup.Row(
			markup.Data(btnEditAd.Text, btnEditAd.Unique, ad.ID),
			markup.Data(btnDeleteAd.Text, btnDeleteAd.Unique, ad.ID),
		))
		text := fmt.Sprintf("📦 %s\n💰 %s\n📍 %s\nID: %s", ad.Title, formatPrice(ad.Price), location, ad.ID)
		if err := c.Send(text, markup); err != nil {
			return err
		}
	}
	if shown == 0 {
		return c.Send("📭 У вас пока нет объявлений.", b.mainMenu(role))
	}
	return nil
}

func (b *Bot) handleText(c tele.Context) error {
	sender := c.Sender()
	session, ok := b.sessions[sender.ID]
	if !ok || session.State == stateIdle {
		return nil
	}

	switch session.State {
	case stateAdTitle:
		title := strings.TrimSpace(c.Text())
		if title == "" {
			return c.Send("Название не может быть пустым, введите ещё раз:")
		}
		session.Draft.Title = title
		session.State = stateAdPrice
		return c.Send("Укажите цену в рублях:")
	case stateAdPrice:
		session.Draft.Price = normalize.Amount(c.Text())
		session.State = stateAdLocation
		return c.Send("Укажите регион (или «-», чтобы пропустить):")
	case stateAdLocation:
		location := strings.TrimSpace(c.Text())
		if location == "" || location == "-" {
			location = "Не указано"
		}
		session.Draft.Location = location
		return b.finishNewAd(c, session)
	case stateEditTitle:
		return b.finishEditTitle(c, session)
	}
	return nil
}

func (b *Bot) finishNewAd(c tele.Context, session *userSession) error {
	ctx := context.Background()
	sender := c.Sender()
	draft := *session.Draft
	session.State = stateIdle
	session.Draft = nil

	saved, err := b.coord.SaveAd(ctx, draft)
	if err != nil {
		b.log.Error("failed to save manual ad", sl.Err(err))
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}
	b.recordAction(ctx, sender, "new_advertisement", "Новое объявление: "+saved.Title)

	role := b.coord.UserRole(ctx, sender.ID)
	text := fmt.Sprintf(
		"✅ Объявление опубликовано!\n\n📦 Ваше объявление:\n• Название: %s\n• Цена: %s\n• ID в общем списке: %s",
		saved.Title, formatPrice(saved.Price), saved.ID,
	)
	return c.Send(text, b.mainMenu(role))
}

func (b *Bot) finishEditTitle(c tele.Context, session *userSession) error {
	ctx := context.Background()
	sender := c.Sender()
	adID := session.PendingAdID
	session.State = stateIdle
	session.PendingAdID = ""

	role := b.coord.UserRole(ctx, sender.ID)
	_, err := b.coord.UpdateAd(ctx, adID, sender.ID, role, map[string]any{"title": c.Text()})
	if err != nil {
		b.recordAction(ctx, sender, "update_advertisement_denied", fmt.Sprintf("ad_id=%s, reason=%v", adID, err))
		return c.Send("⛔ " + mutationErrorText(err))
	}
	b.recordAction(ctx, sender, "update_advertisement", "ad_id="+adID)
	return c.Send("✅ Объявление обновлено.", b.mainMenu(role))
}

func (b *Bot) handleEditAdCallback(c tele.Context) error {
	sender := c.Sender()
	if !b.isAuthenticated(sender.ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Сначала нужно пройти аутентификацию", ShowAlert: true})
	}
	adID := strings.TrimSpace(c.Data())
	if adID == "" {
		return c.Respond()
	}

	b.sessions[sender.ID] = &userSession{State: stateEditTitle, PendingAdID: adID}
	if err := c.Send("Введите новое название объявления:"); err != nil {
		return err
	}
	return c.Respond()
}

func (b *Bot) handleDeleteAdCallback(c tele.Context) error {
	sender := c.Sender()
	if !b.isAuthenticated(sender.ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Сначала нужно пройти аутентификацию", ShowAlert: true})
	}
	adID := strings.TrimSpace(c.Data())
	if adID == "" {
		return c.Respond()
	}

	ctx := context.Background()
	role := b.coord.UserRole(ctx, sender.ID)
	if err := b.coord.DeleteAd(ctx, adID, sender.ID, role); err != nil {
		b.recordAction(ctx, sender, "delete_advertisement_denied", fmt.Sprintf("ad_id=%s, reason=%v", adID, err))
		return c.Respond(&tele.CallbackResponse{Text: "⛔ " + mutationErrorText(err), ShowAlert: true})
	}
	b.recordAction(ctx, sender, "delete_advertisement", "ad_id="+adID)
	if err := c.Edit("✅ Объявление удалено."); err != nil {
		b.log.Debug("failed to edit deleted ad card", sl.Err(err))
	}
	return c.Respond()
}

// mutationErrorText переводит ошибки мутаций объявлений в текст для чата.
func mutationErrorText(err error) string {
	switch {
	case errors.Is(err, feedstore.ErrNotFound):
		return "Объявление не найдено."
	case errors.Is(err, dualwrite.ErrPermissionDenied):
		return "Недостаточно прав для изменения этого объявления."
	case errors.Is(err, feedstore.ErrInvalidUpdate):
		return "Не удалось применить изменения."
	default:
		return "Произошла ошибка. Пожалуйста, попробуйте позже."
	}
}

// formatPrice отделяет разряды пробелами: 4200000 → "4 200 000 ₽".
func formatPrice(price int64) string {
	s := strconv.FormatInt(price, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, " ")
	if neg {
		out = "-" + out
	}
	return out + " ₽"
}
