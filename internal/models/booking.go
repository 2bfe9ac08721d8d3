package models

import (
	"strings"
	"time"
)

// Booking is a time-bounded reservation of a seat. Start and End are kept exactly
// as the API returns them.
type Booking struct {
	ID     int64  `json:"booking_id"`
	UserID int64  `json:"booking_user_id"`
	SeatID int64  `json:"booking_seat_id"`
	Start  string `json:"booking_start"`
	End    string `json:"booking_end"`
	Email  string `json:"booking_email"`
}

// IsActive reports whether the booking ends after now. A booking whose end
// cannot be parsed is never active.
func (b Booking) IsActive(now time.Time) bool {
	end, ok := ParseWallClock(b.End, now.Location())
	if !ok {
		return false
	}
	return end.After(now)
}

// CreateBookingRequest is the body of POST /bookings/.
type CreateBookingRequest struct {
	SeatID int64  `json:"booking_seat_id"`
	Start  string `json:"booking_start"`
	End    string `json:"booking_end"`
	Email  string `json:"booking_email"`
}

var wallClockLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// ParseWallClock parses the date-time formats the booking form and the API use.
// Values without a zone are read in loc; RFC 3339 values keep their own offset.
func ParseWallClock(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
