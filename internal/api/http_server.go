package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coworking/internal/availability"
	"coworking/internal/config"

	"github.com/rs/zerolog"
)

// SeatView is the read side of the availability engine.
type SeatView interface {
	View() availability.View
	Seat(seatID int64) (availability.SeatView, bool)
	Loaded() bool
}

// HTTPServer exposes a read-only view of seat availability.
type HTTPServer struct {
	cfg    config.APIConfig
	seats  SeatView
	logger *zerolog.Logger
	server *http.Server
}

func NewHTTPServer(cfg config.APIConfig, seats SeatView, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{cfg: cfg, seats: seats, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/readyz", srv.handleReady)
	mux.HandleFunc("/api/v1/coworking", metricsMiddleware("coworking", srv.handleCoworking))
	mux.HandleFunc("/api/v1/seats/", metricsMiddleware("seat", srv.handleSeat))

	limited := rateLimitMiddleware(newRateLimiter(cfg.RateLimit), mux)
	handler := requestIDMiddleware(loggingMiddleware(logger, limited))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.seats.Loaded() {
		writeError(w, http.StatusServiceUnavailable, "seats not loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleCoworking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.seats.View())
}

func (s *HTTPServer) handleSeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/seats/"
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	seatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seatID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid seat id")
		return
	}

	seat, ok := s.seats.Seat(seatID)
	if !ok {
		writeError(w, http.StatusNotFound, "seat not found")
		return
	}
	writeJSON(w, http.StatusOK, seat)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
