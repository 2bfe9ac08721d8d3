package availability

import (
	"sync"

	"coworking/internal/domain"
	"coworking/internal/models"
)

// ClickKind tells the caller what to do after a seat click.
type ClickKind int

const (
	// ClickIgnored: the seat is not available, nothing changed.
	ClickIgnored ClickKind = iota
	// ClickNeedsAuth: the seat was remembered, the caller should prompt for login.
	ClickNeedsAuth
	// ClickOpenDraft: the caller should show the booking form for Draft.
	ClickOpenDraft
)

func (k ClickKind) String() string {
	switch k {
	case ClickNeedsAuth:
		return "needs_auth"
	case ClickOpenDraft:
		return "open_draft"
	default:
		return "ignored"
	}
}

type ClickResult struct {
	Kind  ClickKind
	Draft *models.BookingDraft
}

// SeatLookup resolves a seat id to its current view.
type SeatLookup interface {
	Seat(seatID int64) (SeatView, bool)
}

// Selector handles seat clicks for one user and holds at most one pending
// seat intent, remembered while the user logs in.
type Selector struct {
	seats SeatLookup
	gate  domain.CredentialGate

	mu      sync.Mutex
	pending *SeatView
}

func NewSelector(seats SeatLookup, gate domain.CredentialGate) *Selector {
	return &Selector{seats: seats, gate: gate}
}

// OnSeatClicked offers booking only for seats that are available right now.
// Without a valid credential the seat replaces any earlier pending intent.
func (s *Selector) OnSeatClicked(seatID int64) ClickResult {
	seat, ok := s.seats.Seat(seatID)
	if !ok || seat.Status != models.SeatAvailable {
		return ClickResult{Kind: ClickIgnored}
	}

	if _, ok := s.gate.Credential(); !ok {
		s.mu.Lock()
		s.pending = &seat
		s.mu.Unlock()
		return ClickResult{Kind: ClickNeedsAuth}
	}

	return ClickResult{Kind: ClickOpenDraft, Draft: draftFor(seat)}
}

// OnAuthenticationSucceeded turns the pending intent into a draft and clears
// it. With nothing pending it returns false.
func (s *Selector) OnAuthenticationSucceeded() (*models.BookingDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return nil, false
	}
	draft := draftFor(*s.pending)
	s.pending = nil
	return draft, true
}

// Pending returns the remembered seat, if any.
func (s *Selector) Pending() (SeatView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return SeatView{}, false
	}
	return *s.pending, true
}

// DiscardPending forgets the remembered seat.
func (s *Selector) DiscardPending() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

func draftFor(seat SeatView) *models.BookingDraft {
	return &models.BookingDraft{SeatID: seat.ID, SeatIndex: seat.Index}
}
