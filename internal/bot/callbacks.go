package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"coworking/internal/availability"
	"coworking/internal/booking"
	"coworking/internal/models"
	"coworking/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := updateChatID(tgbotapi.Update{CallbackQuery: callback})
	chat := b.chats.Get(ctx, chatID)
	data := callback.Data

	messageID := 0
	if callback.Message != nil {
		messageID = callback.Message.MessageID
	}

	answered := false
	defer func() {
		if answered {
			return
		}
		// Отвечаем на callback, чтобы убрать "часики"
		if err := b.tgService.Acknowledge(callback.ID); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("failed to answer callback")
		}
	}()

	switch {
	case data == "back_to_main":
		chat.SetStep(service.StepIdle)
		b.showMainMenu(chat)

	case strings.HasPrefix(data, "spaces_page:"):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, "spaces_page:"))
		b.renderPaginatedSpaces(PaginationParams{
			ChatID:       chatID,
			MessageID:    messageID,
			Page:         page,
			Title:        "🪑 <b>Коворкинги</b>",
			ItemPrefix:   "space:",
			PagePrefix:   "spaces_page:",
			BackCallback: "back_to_main",
		})

	case strings.HasPrefix(data, "space:"):
		spaceID, _ := strconv.ParseInt(strings.TrimPrefix(data, "space:"), 10, 64)
		b.showSpace(chatID, messageID, spaceID)

	case strings.HasPrefix(data, "seat:"):
		seatID, _ := strconv.ParseInt(strings.TrimPrefix(data, "seat:"), 10, 64)
		answered = b.handleSeatClick(ctx, chat, callback.ID, seatID)

	case data == "draft:agree":
		b.toggleAgreement(chat, messageID)

	case data == "draft:submit":
		b.submitDraft(ctx, chat)

	case data == "draft:cancel":
		chat.Reset()
		b.sendMessage(chatID, "Бронирование отменено.")

	case data == "login":
		b.promptLogin(chat, "")

	case data == "logout":
		b.logout(ctx, chat)
	}
}

func (b *Bot) showSpace(chatID int64, messageID int, spaceID int64) {
	space, ok := findSpace(b.seats.View(), spaceID)
	if !ok {
		b.sendMessage(chatID, "Коворкинг не найден.")
		return
	}

	text := spaceText(space)
	keyboard := seatKeyboard(space)
	if messageID != 0 {
		if _, err := b.tgService.ReplaceCard(chatID, messageID, text, keyboard); err != nil {
			// Telegram отвечает ошибкой, если текст не изменился
			b.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("failed to edit space message")
		}
		return
	}
	b.sendKeyboard(chatID, text, keyboard)
}

// handleSeatClick reports whether it answered the callback itself.
func (b *Bot) handleSeatClick(ctx context.Context, chat *service.Chat, callbackID string, seatID int64) bool {
	res := chat.Selector.OnSeatClicked(seatID)

	switch res.Kind {
	case availability.ClickNeedsAuth:
		seat, _ := chat.Selector.Pending()
		b.promptLogin(chat, fmt.Sprintf("Чтобы забронировать место №%d, войдите в аккаунт.", seat.Index))
		return false

	case availability.ClickOpenDraft:
		chat.OpenDraft(res.Draft)
		b.sendMessage(chat.ID, fmt.Sprintf("Бронирование места №%d.", res.Draft.SeatIndex))
		b.startDraft(chat)
		return false
	}

	seat, ok := b.seats.Seat(seatID)
	if err := b.tgService.AnswerSeatClick(callbackID, seat, ok); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Int64("seat_id", seatID).Msg("failed to answer seat click")
	}
	return true
}

func (b *Bot) toggleAgreement(chat *service.Chat, messageID int) {
	draft, ok := chat.Flow.Draft()
	if !ok {
		b.sendMessage(chat.ID, b.getErrorMessage(booking.ErrNoDraft))
		return
	}
	if err := chat.Flow.UpdateDraft(models.DraftAgreement, strconv.FormatBool(!draft.AgreementAccepted)); err != nil {
		b.sendMessage(chat.ID, b.getErrorMessage(err))
		return
	}
	b.showDraft(chat, messageID)
}

func (b *Bot) submitDraft(ctx context.Context, chat *service.Chat) {
	if _, ok := chat.Flow.Draft(); !ok {
		b.sendMessage(chat.ID, b.getErrorMessage(booking.ErrNoDraft))
		return
	}

	token, ok := chat.Session.Credential()
	if !ok {
		b.promptLogin(chat, "Сессия истекла. Войдите снова, форма бронирования сохранена.")
		return
	}

	err := chat.Flow.Submit(ctx, token)
	if err == nil {
		chat.SetStep(service.StepIdle)
		b.sendMessage(chat.ID, "✅ "+chat.Flow.Notice().Text)
		return
	}

	var validation *booking.ValidationError
	var submitErr *booking.SubmitError
	switch {
	case errors.As(err, &validation):
		b.sendMessage(chat.ID, b.getErrorMessage(err))
	case errors.As(err, &submitErr):
		b.sendMessage(chat.ID, b.getErrorMessage(err))
		b.showDraft(chat, 0)
	default:
		b.sendMessage(chat.ID, b.getErrorMessage(err))
	}
}
