package booking

import (
	"context"
	"strings"
	"sync"
	"time"

	"coworking/internal/domain"
	"coworking/internal/events"
	"coworking/internal/metrics"
	"coworking/internal/models"

	"github.com/rs/zerolog"
)

// NoticeKind classifies the outcome shown to the user after the last action.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeSuccess
	NoticeFailure
	NoticeValidation
)

type Notice struct {
	Kind NoticeKind
	Text string
}

// Flow turns one user's booking draft into a booking. It never touches the
// seat caches; after a submission it asks the refresher to re-read them.
type Flow struct {
	chatID    int64
	creator   domain.BookingCreator
	refresher domain.Refresher
	bus       domain.EventPublisher
	logger    *zerolog.Logger
	now       func() time.Time

	mu         sync.Mutex
	draft      *models.BookingDraft
	notice     Notice
	submitting bool
}

func NewFlow(chatID int64, creator domain.BookingCreator, refresher domain.Refresher, bus domain.EventPublisher, logger *zerolog.Logger) *Flow {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Flow{
		chatID:    chatID,
		creator:   creator,
		refresher: refresher,
		bus:       bus,
		logger:    logger,
		now:       time.Now,
	}
}

// Open starts a new form, dropping any draft that was open.
func (f *Flow) Open(draft *models.BookingDraft) {
	if draft == nil {
		return
	}
	d := *draft

	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = &d
	f.notice = Notice{}
}

// Close discards the draft.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = nil
}

// Draft returns a copy of the open draft.
func (f *Flow) Draft() (models.BookingDraft, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draft == nil {
		return models.BookingDraft{}, false
	}
	return *f.draft, true
}

// Notice reports the outcome of the last submit.
func (f *Flow) Notice() Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notice
}

// UpdateDraft sets one field. Values are stored as given; only the agreement
// flag is parsed.
func (f *Flow) UpdateDraft(field models.DraftField, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.draft == nil {
		return ErrNoDraft
	}

	value = strings.TrimSpace(value)
	switch field {
	case models.DraftStart:
		f.draft.Start = value
	case models.DraftEnd:
		f.draft.End = value
	case models.DraftEmail:
		f.draft.Email = value
	case models.DraftAgreement:
		accepted, ok := parseFlag(value)
		if !ok {
			return &ValidationError{Field: field, Err: ErrInvalidValue}
		}
		f.draft.AgreementAccepted = accepted
	default:
		return &ValidationError{Field: field, Err: ErrUnknownField}
	}
	return nil
}

// Submit sends the open draft with credential. Without consent it fails with a
// *ValidationError and sends nothing. A rejected or failed request returns a
// *SubmitError and keeps the draft open. Either way the seats are re-read.
func (f *Flow) Submit(ctx context.Context, credential string) error {
	f.mu.Lock()
	if f.draft == nil {
		f.mu.Unlock()
		return ErrNoDraft
	}
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	if !f.draft.AgreementAccepted {
		f.notice = Notice{Kind: NoticeValidation, Text: models.NoticeConsentRequired}
		f.mu.Unlock()
		metrics.IncSubmission("invalid")
		return &ValidationError{Field: models.DraftAgreement, Err: ErrConsentRequired}
	}
	submitted := f.draft
	draft := *submitted
	f.submitting = true
	f.mu.Unlock()

	err := f.creator.CreateBooking(ctx, credential, draft.Request())

	f.mu.Lock()
	f.submitting = false
	if err != nil {
		f.notice = Notice{Kind: NoticeFailure, Text: models.NoticeBookingFailed}
	} else {
		if f.draft == submitted {
			f.draft = nil
		}
		f.notice = Notice{Kind: NoticeSuccess, Text: models.NoticeBooked}
	}
	f.mu.Unlock()

	if f.refresher != nil {
		f.refresher.RefreshVolatile(ctx)
	}

	if err != nil {
		metrics.IncSubmission("rejected")
		f.logger.Warn().Err(err).Int64("chat_id", f.chatID).Int64("seat_id", draft.SeatID).Msg("booking submission failed")
		return &SubmitError{SeatID: draft.SeatID, Err: err}
	}

	metrics.IncSubmission("ok")
	f.logger.Info().Int64("chat_id", f.chatID).Int64("seat_id", draft.SeatID).Msg("booking created")

	if f.bus != nil {
		payload := events.BookingCreatedPayload{
			ChatID:    f.chatID,
			SeatID:    draft.SeatID,
			SeatIndex: draft.SeatIndex,
			Start:     draft.Start,
			End:       draft.End,
			Email:     draft.Email,
			CreatedAt: f.now(),
		}
		if pubErr := f.bus.PublishJSON(events.EventBookingCreated, payload); pubErr != nil {
			f.logger.Warn().Err(pubErr).Msg("failed to publish booking_created")
		}
	}
	return nil
}

func parseFlag(value string) (bool, bool) {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on", "да":
		return true, true
	case "0", "false", "no", "off", "нет", "":
		return false, true
	default:
		return false, false
	}
}
