package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coworking/internal/auth"
	"coworking/internal/booking"
	"coworking/internal/models"
	"coworking/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const startPrompt = "Введите дату и время начала в формате ГГГГ-ММ-ДД ЧЧ:ММ, например 2025-01-01 10:00"

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	chat := b.chats.Get(ctx, chatID)

	if chat.Step() != service.StepLoginPassword {
		zerolog.Ctx(ctx).Debug().Int64("chat_id", chatID).Str("text", text).Msg("Handling message")
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, chat, msg.Command())
		return
	}

	switch chat.Step() {
	case service.StepLoginEmail:
		b.handleLoginEmail(chat, text)
	case service.StepLoginPassword:
		b.handleLoginPassword(ctx, chat, msg)
	case service.StepDraftStart:
		b.handleDraftField(chat, models.DraftStart, text)
	case service.StepDraftEnd:
		b.handleDraftField(chat, models.DraftEnd, text)
	case service.StepDraftEmail:
		b.handleDraftField(chat, models.DraftEmail, text)
	default:
		b.showMainMenu(chat)
	}
}

func (b *Bot) handleCommand(ctx context.Context, chat *service.Chat, command string) {
	switch command {
	case "start", "menu":
		chat.SetStep(service.StepIdle)
		b.showMainMenu(chat)
	case "seats":
		b.renderPaginatedSpaces(PaginationParams{ChatID: chat.ID, Title: "🪑 <b>Коворкинги</b>", ItemPrefix: "space:", PagePrefix: "spaces_page:", BackCallback: "back_to_main"})
	case "login":
		b.promptLogin(chat, "")
	case "logout":
		b.logout(ctx, chat)
	case "cancel":
		chat.Reset()
		b.sendMessage(chat.ID, "Действие отменено.")
	default:
		b.sendMessage(chat.ID, "Неизвестная команда. Доступны: /seats, /login, /logout, /cancel")
	}
}

func (b *Bot) showMainMenu(chat *service.Chat) {
	_, authenticated := chat.Session.Credential()
	text := "Добро пожаловать! Здесь можно посмотреть свободные места в коворкинге и забронировать место."
	if authenticated && chat.Session.Email() != "" {
		text += fmt.Sprintf("\n\nВы вошли как %s.", escape(chat.Session.Email()))
	}
	b.sendKeyboard(chat.ID, text, mainMenuKeyboard(authenticated))
}

func (b *Bot) promptLogin(chat *service.Chat, reason string) {
	chat.SetStep(service.StepLoginEmail)
	chat.SetLoginEmail("")
	text := "Введите email, указанный при регистрации:"
	if reason != "" {
		text = reason + "\n\n" + text
	}
	b.sendMessage(chat.ID, text)
}

func (b *Bot) handleLoginEmail(chat *service.Chat, text string) {
	if !strings.Contains(text, "@") {
		b.sendMessage(chat.ID, "Похоже, это не email. Введите email еще раз:")
		return
	}
	chat.SetLoginEmail(text)
	chat.SetStep(service.StepLoginPassword)
	b.sendMessage(chat.ID, "Введите пароль. Сообщение с паролем будет удалено.")
}

func (b *Bot) handleLoginPassword(ctx context.Context, chat *service.Chat, msg *tgbotapi.Message) {
	if err := b.tgService.HidePassword(chat.ID, msg.MessageID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("chat_id", chat.ID).Msg("failed to delete password message")
	}

	email := chat.LoginEmail()
	chat.SetStep(service.StepIdle)

	token, err := b.auth.Login(ctx, email, msg.Text)
	if err != nil {
		b.countLogin("failed")
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chat.ID).Msg("login failed")
		}
		b.sendMessage(chat.ID, b.getErrorMessage(err))
		return
	}

	b.countLogin("ok")
	b.sendMessage(chat.ID, fmt.Sprintf("✅ Вы вошли как %s.", escape(email)))

	_, hadDraft := chat.Flow.Draft()

	// Подписчик сессии откроет форму, если место было выбрано до входа.
	chat.Session.SetCredential(ctx, token, email)

	// Форма, прерванная истекшей сессией, показывается снова
	if _, open := chat.Flow.Draft(); hadDraft && open && chat.Step() == service.StepIdle {
		b.showDraft(chat, 0)
	}
}

func (b *Bot) countLogin(result string) {
	if b.metrics != nil {
		b.metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}

func (b *Bot) logout(ctx context.Context, chat *service.Chat) {
	chat.Reset()
	chat.Session.Clear(ctx)
	b.sendMessage(chat.ID, "Вы вышли из аккаунта.")
}

// onIntentResumed continues a booking that was interrupted by the login prompt.
func (b *Bot) onIntentResumed(chat *service.Chat, draft models.BookingDraft) {
	b.sendMessage(chat.ID, fmt.Sprintf("Продолжаем бронирование места №%d.", draft.SeatIndex))
	b.startDraft(chat)
}

func (b *Bot) startDraft(chat *service.Chat) {
	chat.SetStep(service.StepDraftStart)
	b.sendMessage(chat.ID, startPrompt)
}

func (b *Bot) handleDraftField(chat *service.Chat, field models.DraftField, value string) {
	if value == "" {
		b.sendMessage(chat.ID, "Значение не может быть пустым.")
		return
	}
	if err := chat.Flow.UpdateDraft(field, value); err != nil {
		chat.SetStep(service.StepIdle)
		b.sendMessage(chat.ID, b.getErrorMessage(err))
		return
	}

	switch field {
	case models.DraftStart:
		chat.SetStep(service.StepDraftEnd)
		b.sendMessage(chat.ID, "Введите дату и время окончания в том же формате:")
		return
	case models.DraftEnd:
		draft, _ := chat.Flow.Draft()
		if draft.Email == "" {
			chat.SetStep(service.StepDraftEmail)
			b.sendMessage(chat.ID, "Введите email для подтверждения брони:")
			return
		}
	}

	chat.SetStep(service.StepIdle)
	b.showDraft(chat, 0)
}

// showDraft sends the summary, or edits messageID when it is set.
func (b *Bot) showDraft(chat *service.Chat, messageID int) {
	draft, ok := chat.Flow.Draft()
	if !ok {
		b.sendMessage(chat.ID, b.getErrorMessage(booking.ErrNoDraft))
		return
	}

	text := draftText(draft)
	if notice := chat.Flow.Notice(); notice.Kind == booking.NoticeFailure || notice.Kind == booking.NoticeValidation {
		text += "\n\n⚠️ " + notice.Text
	}
	keyboard := draftKeyboard(draft)

	if messageID != 0 {
		if _, err := b.tgService.ReplaceCard(chat.ID, messageID, text, keyboard); err != nil {
			b.logger.Warn().Err(err).Int64("chat_id", chat.ID).Msg("failed to edit draft")
		}
		return
	}
	b.sendKeyboard(chat.ID, text, keyboard)
}
