package domain

import (
	"context"
	"time"

	"coworking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CredentialGate answers "is there a valid credential right now".
type CredentialGate interface {
	Credential() (string, bool)
}

// SeatSource is the read side of the coworking API.
type SeatSource interface {
	ListCoworkingSpaces(ctx context.Context) ([]models.CoworkingSpace, error)
	ListSeats(ctx context.Context) ([]models.Seat, error)
	ListBookings(ctx context.Context, credential string) ([]models.Booking, error)
}

// BookingCreator is the write side of the coworking API.
type BookingCreator interface {
	CreateBooking(ctx context.Context, credential string, req models.CreateBookingRequest) error
}

// Refresher re-reads volatile seat state.
type Refresher interface {
	RefreshVolatile(ctx context.Context)
}

type SessionRepository interface {
	GetSession(ctx context.Context, chatID int64) (*models.StoredSession, error)
	SaveSession(ctx context.Context, session *models.StoredSession) error
	DeleteSession(ctx context.Context, chatID int64) error
	CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
