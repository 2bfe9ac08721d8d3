package service

import (
	"fmt"

	"coworking/internal/availability"
	"coworking/internal/domain"
	"coworking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramService knows the few kinds of messages the coworking bot sends:
// plain notices, cards with an inline keyboard (space list, seat map, booking
// form) and callback answers. All text is HTML.
type TelegramService struct {
	bot domain.TelegramSender
}

func NewTelegramService(bot domain.TelegramSender) *TelegramService {
	return &TelegramService{bot: bot}
}

// Notify sends a notice without keyboard.
func (s *TelegramService) Notify(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeHTML
	return s.bot.Send(msg)
}

// SendCard sends a new card with its inline keyboard.
func (s *TelegramService) SendCard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeHTML
	msg.ReplyMarkup = keyboard
	return s.bot.Send(msg)
}

// ReplaceCard redraws a card in place, e.g. the seat map after a page switch
// or the form after the agreement toggle.
func (s *TelegramService) ReplaceCard(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	msg.ParseMode = models.ParseModeHTML
	return s.bot.Send(msg)
}

// HidePassword deletes the message the user typed the password in.
func (s *TelegramService) HidePassword(chatID int64, messageID int) error {
	_, err := s.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// Acknowledge stops the loading indicator on the pressed button.
func (s *TelegramService) Acknowledge(callbackID string) error {
	_, err := s.bot.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

// AnswerSeatClick shows the status of a seat that cannot be booked as a
// toast over the seat map.
func (s *TelegramService) AnswerSeatClick(callbackID string, seat availability.SeatView, found bool) error {
	text := "Место не найдено"
	if found {
		text = fmt.Sprintf("Место №%d: %s", seat.Index, seat.Label)
	}
	_, err := s.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (s *TelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.bot.GetUpdatesChan(config)
}

func (s *TelegramService) GetSelf() tgbotapi.User {
	return s.bot.GetSelf()
}

func (s *TelegramService) StopReceivingUpdates() {
	s.bot.StopReceivingUpdates()
}
