package models

import "time"

// SeatStatus is the raw seat status stored by the coworking API, extended with
// the derived Reserved value.
type SeatStatus int

const (
	SeatAvailable   SeatStatus = 0
	SeatOccupied    SeatStatus = 1
	SeatMaintenance SeatStatus = 2
	SeatVIP         SeatStatus = 3

	// SeatReserved is never sent by the API. It marks an available seat that has
	// an active booking.
	SeatReserved SeatStatus = 100
)

func (s SeatStatus) String() string {
	switch s {
	case SeatAvailable:
		return "available"
	case SeatOccupied:
		return "occupied"
	case SeatMaintenance:
		return "maintenance"
	case SeatVIP:
		return "vip"
	case SeatReserved:
		return "reserved"
	default:
		return "unknown"
	}
}

// Label is the text shown next to a seat on the site.
func (s SeatStatus) Label() string {
	switch s {
	case SeatAvailable:
		return LabelAvailable
	case SeatOccupied:
		return LabelOccupied
	case SeatMaintenance:
		return LabelMaintenance
	case SeatVIP:
		return LabelVIP
	case SeatReserved:
		return LabelReserved
	default:
		return LabelUnknown
	}
}

// CoworkingSpace is a room with seats.
type CoworkingSpace struct {
	ID          int64  `json:"coworking_id"`
	Location    string `json:"coworking_location"`
	Description string `json:"coworking_description,omitempty"`
}

// Seat is a bookable place inside a coworking space. Index is the number
// printed on the seat and is only unique within its space.
type Seat struct {
	ID          int64      `json:"seat_id"`
	CoworkingID int64      `json:"seat_coworking_id"`
	Index       int        `json:"seat_index"`
	Status      SeatStatus `json:"seat_status"`
}

// SpaceOverride customises how a coworking space is presented.
type SpaceOverride struct {
	ID    int64    `yaml:"id"`
	Title string   `yaml:"title"`
	Notes []string `yaml:"notes"`
}

// StoredSession is the part of a user's client state that survives restarts.
type StoredSession struct {
	ChatID     int64     `json:"chat_id"`
	Credential string    `json:"credential"`
	Email      string    `json:"email,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
