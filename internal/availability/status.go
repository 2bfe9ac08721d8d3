package availability

import (
	"time"

	"coworking/internal/models"
)

// EffectiveStatus overlays active bookings onto the raw seat status: an
// available seat with a booking that ends after now is reserved, everything
// else keeps its raw status.
func EffectiveStatus(seat models.Seat, bookings []models.Booking, now time.Time) models.SeatStatus {
	if seat.Status != models.SeatAvailable {
		return seat.Status
	}
	for _, b := range bookings {
		if b.SeatID == seat.ID && b.IsActive(now) {
			return models.SeatReserved
		}
	}
	return models.SeatAvailable
}

// SeatView is a seat as the interfaces present it.
type SeatView struct {
	ID          int64             `json:"id"`
	CoworkingID int64             `json:"coworking_id"`
	Index       int               `json:"index"`
	RawStatus   models.SeatStatus `json:"raw_status"`
	Status      models.SeatStatus `json:"-"`
	StatusName  string            `json:"status"`
	Label       string            `json:"label"`
	Available   bool              `json:"available"`
}

// SpaceView is a coworking space with its seats sorted by index.
type SpaceView struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Location    string     `json:"location"`
	Description string     `json:"description,omitempty"`
	Notes       []string   `json:"notes,omitempty"`
	Seats       []SeatView `json:"seats"`
}

// View is a snapshot of every known space.
type View struct {
	Spaces   []SpaceView `json:"spaces"`
	LoadedAt time.Time   `json:"loaded_at"`
}

func newSeatView(seat models.Seat, bookings []models.Booking, now time.Time) SeatView {
	status := EffectiveStatus(seat, bookings, now)
	return SeatView{
		ID:          seat.ID,
		CoworkingID: seat.CoworkingID,
		Index:       seat.Index,
		RawStatus:   seat.Status,
		Status:      status,
		StatusName:  status.String(),
		Label:       status.Label(),
		Available:   status == models.SeatAvailable,
	}
}
