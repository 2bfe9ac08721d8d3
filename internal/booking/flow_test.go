package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"coworking/internal/auth"
	"coworking/internal/availability"
	"coworking/internal/events"
	"coworking/internal/models"
	"coworking/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCreator struct {
	mock.Mock
}

func (m *MockCreator) CreateBooking(ctx context.Context, credential string, req models.CreateBookingRequest) error {
	args := m.Called(ctx, credential, req)
	return args.Error(0)
}

type countingRefresher struct {
	calls int
}

func (r *countingRefresher) RefreshVolatile(ctx context.Context) {
	r.calls++
}

func openDraft(f *Flow, accepted bool) {
	f.Open(&models.BookingDraft{SeatID: 10, SeatIndex: 3})
	_ = f.UpdateDraft(models.DraftStart, "2025-01-01 10:00")
	_ = f.UpdateDraft(models.DraftEnd, "2025-01-01 12:00")
	_ = f.UpdateDraft(models.DraftEmail, "a@b.com")
	if accepted {
		_ = f.UpdateDraft(models.DraftAgreement, "true")
	}
}

func TestSubmitRequiresConsent(t *testing.T) {
	creator := new(MockCreator)
	refresher := &countingRefresher{}
	f := NewFlow(1, creator, refresher, nil, nil)
	openDraft(f, false)

	err := f.Submit(context.Background(), "tok")

	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.ErrorIs(t, err, ErrConsentRequired)
	assert.Equal(t, models.DraftAgreement, validation.Field)
	creator.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, refresher.calls)

	_, open := f.Draft()
	assert.True(t, open)
	assert.Equal(t, Notice{Kind: NoticeValidation, Text: models.NoticeConsentRequired}, f.Notice())
}

func TestSubmitSuccess(t *testing.T) {
	creator := new(MockCreator)
	refresher := &countingRefresher{}
	bus := events.NewEventBus()
	var published []events.BookingCreatedPayload
	bus.Subscribe(events.EventBookingCreated, func(ev *events.Event) error {
		var p events.BookingCreatedPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		published = append(published, p)
		return nil
	})

	f := NewFlow(1, creator, refresher, bus, nil)
	f.now = func() time.Time { return time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC) }
	openDraft(f, true)

	want := models.CreateBookingRequest{SeatID: 10, Start: "2025-01-01 10:00", End: "2025-01-01 12:00", Email: "a@b.com"}
	creator.On("CreateBooking", mock.Anything, "tok", want).Return(nil).Once()

	require.NoError(t, f.Submit(context.Background(), "tok"))
	creator.AssertExpectations(t)

	_, open := f.Draft()
	assert.False(t, open)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, NoticeSuccess, f.Notice().Kind)
	assert.Equal(t, models.NoticeBooked, f.Notice().Text)

	require.Len(t, published, 1)
	assert.Equal(t, int64(1), published[0].ChatID)
	assert.Equal(t, int64(10), published[0].SeatID)
	assert.Equal(t, 3, published[0].SeatIndex)
	assert.Equal(t, "a@b.com", published[0].Email)

	assert.ErrorIs(t, f.Submit(context.Background(), "tok"), ErrNoDraft)
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	creator := new(MockCreator)
	refresher := &countingRefresher{}
	f := NewFlow(1, creator, refresher, nil, nil)
	openDraft(f, true)

	apiErr := &remote.StatusError{Endpoint: remote.PathBookings, StatusCode: http.StatusConflict}
	creator.On("CreateBooking", mock.Anything, "tok", mock.Anything).Return(apiErr).Once()

	err := f.Submit(context.Background(), "tok")

	var submitErr *SubmitError
	require.True(t, errors.As(err, &submitErr))
	assert.Equal(t, int64(10), submitErr.SeatID)
	var statusErr *remote.StatusError
	assert.True(t, errors.As(err, &statusErr))

	draft, open := f.Draft()
	require.True(t, open)
	assert.Equal(t, "a@b.com", draft.Email)
	assert.True(t, draft.AgreementAccepted)
	assert.Equal(t, Notice{Kind: NoticeFailure, Text: models.NoticeBookingFailed}, f.Notice())
	assert.Equal(t, 1, refresher.calls)

	creator.On("CreateBooking", mock.Anything, "tok", mock.Anything).Return(nil).Once()
	require.NoError(t, f.Submit(context.Background(), "tok"))
	_, open = f.Draft()
	assert.False(t, open)
}

func TestUpdateDraft(t *testing.T) {
	f := NewFlow(1, new(MockCreator), nil, nil, nil)

	assert.ErrorIs(t, f.UpdateDraft(models.DraftEmail, "a@b.com"), ErrNoDraft)

	f.Open(&models.BookingDraft{SeatID: 10})
	require.NoError(t, f.UpdateDraft(models.DraftEmail, " a@b.com "))
	require.NoError(t, f.UpdateDraft(models.DraftAgreement, "да"))

	draft, ok := f.Draft()
	require.True(t, ok)
	assert.Equal(t, "a@b.com", draft.Email)
	assert.True(t, draft.AgreementAccepted)

	require.NoError(t, f.UpdateDraft(models.DraftAgreement, "false"))
	draft, _ = f.Draft()
	assert.False(t, draft.AgreementAccepted)

	var validation *ValidationError
	err := f.UpdateDraft("phone", "123")
	require.True(t, errors.As(err, &validation))
	assert.ErrorIs(t, err, ErrUnknownField)

	assert.ErrorIs(t, f.UpdateDraft(models.DraftAgreement, "maybe"), ErrInvalidValue)
}

func TestOpenReplacesDraft(t *testing.T) {
	f := NewFlow(1, new(MockCreator), nil, nil, nil)
	f.Open(&models.BookingDraft{SeatID: 10})
	require.NoError(t, f.UpdateDraft(models.DraftEmail, "a@b.com"))

	f.Open(&models.BookingDraft{SeatID: 11})
	draft, ok := f.Draft()
	require.True(t, ok)
	assert.Equal(t, models.BookingDraft{SeatID: 11}, draft)

	f.Close()
	_, ok = f.Draft()
	assert.False(t, ok)
}

// fakeAPI is an in-memory coworking API.
type fakeAPI struct {
	mu       sync.Mutex
	seats    []models.Seat
	bookings []models.Booking
	nextID   int64
}

func (a *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/coworking/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.CoworkingSpace{{ID: 1, Location: "Москва"}})
	})
	mux.HandleFunc("/seats/", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		_ = json.NewEncoder(w).Encode(a.seats)
	})
	mux.HandleFunc("/bookings/", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(a.bookings)
			return
		}
		if r.Header.Get("Authorization") != "Bearer user-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req models.CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		a.nextID++
		a.bookings = append(a.bookings, models.Booking{
			ID:     a.nextID,
			UserID: 7,
			SeatID: req.SeatID,
			Start:  req.Start,
			End:    req.End,
			Email:  req.Email,
		})
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

func TestBookingScenario(t *testing.T) {
	api := &fakeAPI{
		seats:    []models.Seat{{ID: 10, CoworkingID: 1, Index: 3, Status: models.SeatAvailable}},
		bookings: []models.Booking{},
	}
	ts := httptest.NewServer(api.handler())
	defer ts.Close()

	ctx := context.Background()
	client := remote.NewClient(ts.URL, time.Second)

	engine := availability.NewEngine(client, auth.Static("svc"), nil, time.Second, nil)
	engine.LoadAll(ctx)

	status, ok := engine.Status(10)
	require.True(t, ok)
	assert.Equal(t, models.SeatAvailable, status)

	session := auth.NewSession(1, nil, nil)
	selector := availability.NewSelector(engine, session)
	flow := NewFlow(1, client, engine, nil, nil)

	session.Subscribe(func() {
		if draft, ok := selector.OnAuthenticationSucceeded(); ok {
			flow.Open(draft)
		}
	})

	res := selector.OnSeatClicked(10)
	require.Equal(t, availability.ClickNeedsAuth, res.Kind)
	pending, ok := selector.Pending()
	require.True(t, ok)
	assert.Equal(t, int64(10), pending.ID)

	session.SetCredential(ctx, "user-token", "a@b.com")

	draft, open := flow.Draft()
	require.True(t, open)
	assert.Equal(t, int64(10), draft.SeatID)

	require.NoError(t, flow.UpdateDraft(models.DraftStart, "2025-01-01 10:00"))
	require.NoError(t, flow.UpdateDraft(models.DraftEnd, "2099-01-01 12:00"))
	require.NoError(t, flow.UpdateDraft(models.DraftEmail, "a@b.com"))
	require.NoError(t, flow.UpdateDraft(models.DraftAgreement, "true"))

	token, ok := session.Credential()
	require.True(t, ok)
	require.NoError(t, flow.Submit(ctx, token))

	_, open = flow.Draft()
	assert.False(t, open)

	status, ok = engine.Status(10)
	require.True(t, ok)
	assert.Equal(t, models.SeatReserved, status)

	session.SetCredential(ctx, "user-token", "a@b.com")
	_, open = flow.Draft()
	assert.False(t, open, "a second login without a new click opens nothing")
}
