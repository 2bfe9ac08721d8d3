package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"coworking/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSeats(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathSeats, r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"seat_id":10,"seat_coworking_id":1,"seat_index":1,"seat_status":0},
			{"seat_id":11,"seat_coworking_id":1,"seat_index":2,"seat_status":7}]`)
	}))
	defer ts.Close()

	seats, err := NewClient(ts.URL+"/", time.Second).ListSeats(context.Background())
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, models.SeatAvailable, seats[0].Status)
	assert.Equal(t, models.SeatStatus(7), seats[1].Status)
}

func TestListBookings(t *testing.T) {
	t.Run("BearerCredential", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `[{"booking_id":1,"booking_seat_id":10,"booking_start":"2025-01-01 10:00","booking_end":"2025-01-01 12:00"}]`)
		}))
		defer ts.Close()

		bookings, err := NewClient(ts.URL, time.Second).ListBookings(context.Background(), "tok")
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, int64(10), bookings[0].SeatID)
		assert.Equal(t, "2025-01-01 12:00", bookings[0].End)
	})

	t.Run("ErrorEnvelopeIsMalformed", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"detail":"Unauthorized"}`)
		}))
		defer ts.Close()

		_, err := NewClient(ts.URL, time.Second).ListBookings(context.Background(), "")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("NonSuccessStatus", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Unauthorized"}`)
		}))
		defer ts.Close()

		_, err := NewClient(ts.URL, time.Second).ListBookings(context.Background(), "")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
		assert.Equal(t, PathBookings, statusErr.Endpoint)
		assert.Contains(t, statusErr.Error(), "401")
	})
}

func TestCreateBooking(t *testing.T) {
	var got models.CreateBookingRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathBookings, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	req := models.CreateBookingRequest{SeatID: 10, Start: "2025-01-01 10:00", End: "2025-01-01 12:00", Email: "a@b.com"}
	require.NoError(t, NewClient(ts.URL, time.Second).CreateBooking(context.Background(), "tok", req))
	assert.Equal(t, req, got)
}

func TestCreateBookingRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer ts.Close()

	err := NewClient(ts.URL, time.Second).CreateBooking(context.Background(), "tok", models.CreateBookingRequest{SeatID: 1})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := NewClient(url, time.Second).ListSeats(context.Background())
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
	assert.False(t, errors.Is(err, ErrMalformedResponse))
}

func TestListCoworkingSpacesCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `[{"coworking_id":1,"coworking_location":"Москва, Тверская 1"}]`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, time.Second)
	client.UseRedisCache(rdb, time.Minute)

	for i := 0; i < 3; i++ {
		spaces, err := client.ListCoworkingSpaces(context.Background())
		require.NoError(t, err)
		require.Len(t, spaces, 1)
		assert.Equal(t, "Москва, Тверская 1", spaces[0].Location)
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, s.Exists(cacheKey))

	s.FastForward(2 * time.Minute)
	_, err = client.ListCoworkingSpaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}
