package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"coworking/internal/domain"
	"coworking/internal/events"
	"coworking/internal/metrics"
	"coworking/internal/models"
	"coworking/internal/remote"

	"github.com/rs/zerolog"
)

// Engine keeps a near-real-time picture of seats and bookings. It owns the
// caches; other components only read them or ask for a refresh.
type Engine struct {
	source   domain.SeatSource
	gate     domain.CredentialGate
	bus      domain.EventPublisher
	logger   *zerolog.Logger
	interval time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	spaces    []models.CoworkingSpace
	seats     []models.Seat
	bookings  []models.Booking
	overrides map[int64]models.SpaceOverride
	statuses  map[int64]models.SeatStatus
	loaded    bool
	loadedAt  time.Time

	// refreshMu serialises refreshes. Ticks skip when it is held.
	refreshMu sync.Mutex
}

// NewEngine builds an engine reading from source. gate supplies the credential
// used for the bookings list; bus may be nil.
func NewEngine(source domain.SeatSource, gate domain.CredentialGate, bus domain.EventPublisher, interval time.Duration, logger *zerolog.Logger) *Engine {
	if interval <= 0 {
		interval = models.DefaultPollInterval
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Engine{
		source:   source,
		gate:     gate,
		bus:      bus,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// SetOverrides replaces the per-space display overrides.
func (e *Engine) SetOverrides(overrides []models.SpaceOverride) {
	m := make(map[int64]models.SpaceOverride, len(overrides))
	for _, o := range overrides {
		m[o.ID] = o
	}
	e.mu.Lock()
	e.overrides = m
	e.mu.Unlock()
}

// Run loads everything once and then refreshes seats and bookings every
// interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.LoadAll(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("availability polling stopped")
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if !e.refreshMu.TryLock() {
		metrics.IncPoll("skipped")
		e.logger.Debug().Msg("previous refresh still running, tick skipped")
		return
	}
	defer e.refreshMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			metrics.IncPoll("panic")
			e.logger.Error().Interface("panic", r).Msg("panic during seat refresh")
		}
	}()

	e.refreshVolatile(ctx)
}

// LoadAll fetches spaces, seats and bookings concurrently. A failed source
// leaves its cache as it was (empty on the first load); any bookings failure
// yields an empty booking set.
func (e *Engine) LoadAll(ctx context.Context) {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	var (
		wg                              sync.WaitGroup
		spaces                          []models.CoworkingSpace
		seats                           []models.Seat
		bookings                        []models.Booking
		spacesErr, seatsErr, bookingErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		spaces, spacesErr = e.source.ListCoworkingSpaces(ctx)
	}()
	go func() {
		defer wg.Done()
		seats, seatsErr = e.source.ListSeats(ctx)
	}()
	go func() {
		defer wg.Done()
		bookings, bookingErr = e.source.ListBookings(ctx, e.credential())
	}()
	wg.Wait()

	if spacesErr != nil {
		e.logger.Warn().Err(spacesErr).Msg("failed to load coworking spaces")
	}
	if seatsErr != nil {
		e.logger.Warn().Err(seatsErr).Msg("failed to load seats")
	}
	if bookingErr != nil {
		e.logBookingsFailure(bookingErr)
		bookings = nil
	}

	e.mu.Lock()
	if spacesErr == nil {
		e.spaces = spaces
	}
	if seatsErr == nil {
		e.seats = seats
	}
	e.bookings = bookings
	e.loaded = true
	e.loadedAt = e.now()
	e.mu.Unlock()

	e.recompute(false)

	result := "ok"
	if spacesErr != nil || seatsErr != nil || bookingErr != nil {
		result = "partial"
	}
	metrics.IncPoll(result)
	e.logger.Info().
		Int("spaces", len(spaces)).
		Int("seats", len(seats)).
		Int("bookings", len(bookings)).
		Str("result", result).
		Msg("availability loaded")
}

// RefreshVolatile re-reads seats and bookings. It waits for an in-flight
// refresh instead of skipping.
func (e *Engine) RefreshVolatile(ctx context.Context) {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()
	e.refreshVolatile(ctx)
}

func (e *Engine) refreshVolatile(ctx context.Context) {
	var (
		wg                  sync.WaitGroup
		seats               []models.Seat
		bookings            []models.Booking
		seatsErr, bookingErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		seats, seatsErr = e.source.ListSeats(ctx)
	}()
	go func() {
		defer wg.Done()
		bookings, bookingErr = e.source.ListBookings(ctx, e.credential())
	}()
	wg.Wait()

	// Пространства меняются редко, но если первая загрузка их не получила, пробуем снова
	e.mu.RLock()
	missingSpaces := len(e.spaces) == 0
	e.mu.RUnlock()
	if missingSpaces {
		if spaces, err := e.source.ListCoworkingSpaces(ctx); err != nil {
			e.logger.Warn().Err(err).Msg("coworking spaces still unavailable")
		} else {
			e.mu.Lock()
			e.spaces = spaces
			e.mu.Unlock()
		}
	}

	keepBookings := false
	if seatsErr != nil {
		e.logger.Warn().Err(seatsErr).Msg("seat refresh failed, keeping last known seats")
	}
	if bookingErr != nil {
		e.logBookingsFailure(bookingErr)
		if isTransport(bookingErr) {
			keepBookings = true
		} else {
			bookings = nil
		}
	}

	e.mu.Lock()
	if seatsErr == nil {
		e.seats = seats
	}
	if !keepBookings {
		e.bookings = bookings
	}
	e.loadedAt = e.now()
	e.mu.Unlock()

	e.recompute(true)

	if seatsErr != nil || bookingErr != nil {
		metrics.IncPoll("partial")
		return
	}
	metrics.IncPoll("ok")
}

// recompute refreshes the effective status snapshot, the seat gauges and,
// when publish is set, emits an event per changed seat.
func (e *Engine) recompute(publish bool) {
	now := e.now()

	e.mu.Lock()
	previous := e.statuses
	current := make(map[int64]models.SeatStatus, len(e.seats))
	counts := make(map[string]int)
	var changes []events.SeatStatusChangedPayload

	for _, seat := range e.seats {
		status := EffectiveStatus(seat, e.bookings, now)
		current[seat.ID] = status
		counts[status.String()]++

		if old, ok := previous[seat.ID]; ok && publish && old != status {
			changes = append(changes, events.SeatStatusChangedPayload{
				SeatID:      seat.ID,
				CoworkingID: seat.CoworkingID,
				SeatIndex:   seat.Index,
				From:        old.String(),
				To:          status.String(),
			})
		}
	}
	e.statuses = current
	e.mu.Unlock()

	metrics.SetSeatCounts(counts)

	for _, change := range changes {
		metrics.IncStatusChange(change.To)
		e.logger.Debug().
			Int64("seat_id", change.SeatID).
			Str("from", change.From).
			Str("to", change.To).
			Msg("seat status changed")
		if e.bus != nil {
			if err := e.bus.PublishJSON(events.EventSeatStatusChanged, change); err != nil {
				e.logger.Warn().Err(err).Msg("failed to publish seat status change")
			}
		}
	}
}

func (e *Engine) credential() string {
	if e.gate == nil {
		return ""
	}
	token, ok := e.gate.Credential()
	if !ok {
		return ""
	}
	return token
}

func (e *Engine) logBookingsFailure(err error) {
	if errors.Is(err, remote.ErrMalformedResponse) {
		e.logger.Debug().Err(err).Msg("bookings response is not a list, treating as empty")
		return
	}
	e.logger.Warn().Err(err).Msg("failed to fetch bookings")
}

// isTransport reports whether err means the API was not reached at all, as
// opposed to answering with something unusable.
func isTransport(err error) bool {
	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) {
		return false
	}
	return !errors.Is(err, remote.ErrMalformedResponse)
}

// Loaded reports whether the first load has finished.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded
}

// Status returns the effective status of a seat right now.
func (e *Engine) Status(seatID int64) (models.SeatStatus, bool) {
	view, ok := e.Seat(seatID)
	if !ok {
		return 0, false
	}
	return view.Status, true
}

// Seat returns the current view of one seat.
func (e *Engine) Seat(seatID int64) (SeatView, bool) {
	now := e.now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, seat := range e.seats {
		if seat.ID == seatID {
			return newSeatView(seat, e.bookings, now), true
		}
	}
	return SeatView{}, false
}

// View groups all seats by space, ordered by space id and seat index. Seats of
// spaces that are not in the space list get a placeholder space.
func (e *Engine) View() View {
	now := e.now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	byID := make(map[int64]*SpaceView, len(e.spaces))
	for _, space := range e.spaces {
		byID[space.ID] = &SpaceView{
			ID:          space.ID,
			Location:    space.Location,
			Description: space.Description,
			Seats:       []SeatView{},
		}
	}
	for _, seat := range e.seats {
		sv, ok := byID[seat.CoworkingID]
		if !ok {
			sv = &SpaceView{ID: seat.CoworkingID, Seats: []SeatView{}}
			byID[seat.CoworkingID] = sv
		}
		sv.Seats = append(sv.Seats, newSeatView(seat, e.bookings, now))
	}

	view := View{Spaces: make([]SpaceView, 0, len(byID)), LoadedAt: e.loadedAt}
	for _, sv := range byID {
		sv.Title = e.title(sv)
		if o, ok := e.overrides[sv.ID]; ok {
			sv.Notes = o.Notes
		}
		sort.Slice(sv.Seats, func(i, j int) bool {
			if sv.Seats[i].Index == sv.Seats[j].Index {
				return sv.Seats[i].ID < sv.Seats[j].ID
			}
			return sv.Seats[i].Index < sv.Seats[j].Index
		})
		view.Spaces = append(view.Spaces, *sv)
	}
	sort.Slice(view.Spaces, func(i, j int) bool { return view.Spaces[i].ID < view.Spaces[j].ID })
	return view
}

func (e *Engine) title(sv *SpaceView) string {
	if o, ok := e.overrides[sv.ID]; ok && o.Title != "" {
		return o.Title
	}
	if sv.Location != "" {
		return sv.Location
	}
	return fmt.Sprintf("Коворкинг #%d", sv.ID)
}
