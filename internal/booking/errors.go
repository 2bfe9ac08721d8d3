package booking

import (
	"errors"
	"fmt"

	"coworking/internal/models"
)

var (
	ErrNoDraft         = errors.New("no open booking draft")
	ErrConsentRequired = errors.New("consent required")
	ErrUnknownField    = errors.New("unknown draft field")
	ErrInvalidValue    = errors.New("invalid value")
	ErrSubmitInFlight  = errors.New("booking submission already in progress")
)

// ValidationError is a local rejection. No request was sent.
type ValidationError struct {
	Field models.DraftField
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// SubmitError is a booking the API rejected or could not be reached for.
type SubmitError struct {
	SeatID int64
	Err    error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit booking for seat %d: %v", e.SeatID, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }
