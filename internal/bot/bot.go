package bot

import (
	"context"
	"time"

	"coworking/internal/auth"
	"coworking/internal/availability"
	"coworking/internal/config"
	"coworking/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SeatBoard is the read side of the availability engine.
type SeatBoard interface {
	View() availability.View
	Seat(seatID int64) (availability.SeatView, bool)
}

// Authenticator exchanges email and password for a credential.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// RateLimiter limits how often one chat may talk to the bot.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error)
}

type Bot struct {
	tgService *service.TelegramService
	config    *config.Config
	chats     *service.ChatService
	seats     SeatBoard
	auth      Authenticator
	limiter   RateLimiter
	metrics   *Metrics
	logger    *zerolog.Logger
}

func NewBot(
	tgService *service.TelegramService,
	cfg *config.Config,
	chats *service.ChatService,
	seats SeatBoard,
	authenticator Authenticator,
	limiter RateLimiter,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	b := &Bot{
		tgService: tgService,
		config:    cfg,
		chats:     chats,
		seats:     seats,
		auth:      authenticator,
		limiter:   limiter,
		metrics:   metrics,
		logger:    logger,
	}
	chats.OnResume(b.onIntentResumed)
	return b, nil
}

var _ Authenticator = (*auth.Client)(nil)

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	// Создаем контекст для обработки каждого обновления
	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		chatID := updateChatID(update)
		if chatID == 0 {
			return
		}

		if !b.allow(updateCtx, chatID) {
			if update.Message != nil {
				b.sendMessage(chatID, "⚠️ Вы отправляете сообщения слишком часто. Пожалуйста, подождите немного.")
			}
			return
		}

		if update.CallbackQuery != nil {
			b.countUpdate("callback")
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}

		if update.Message == nil {
			return
		}
		b.countUpdate("message")
		b.handleMessage(updateCtx, update.Message)
	})
}

func updateChatID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.Notify(chatID, text); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (b *Bot) sendKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if _, err := b.tgService.SendCard(chatID, text, keyboard); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}
