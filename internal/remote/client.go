package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"coworking/internal/metrics"
	"coworking/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	PathCoworking = "/coworking/"
	PathSeats     = "/seats/"
	PathBookings  = "/bookings/"

	maxBodyBytes = 4 << 20
	cacheKey     = "coworking:remote:spaces"
)

// ErrMalformedResponse means a list endpoint answered with something other
// than a JSON array, e.g. an error envelope.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: http %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client talks to the coworking REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = models.DefaultRemoteTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache enables a read-through cache for the coworking space list.
// Seats and bookings are never cached.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// ListCoworkingSpaces returns all coworking spaces.
func (c *Client) ListCoworkingSpaces(ctx context.Context) ([]models.CoworkingSpace, error) {
	var spaces []models.CoworkingSpace
	if c.readCache(ctx, cacheKey, &spaces) {
		return spaces, nil
	}

	if err := c.getList(ctx, PathCoworking, "", &spaces); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, spaces)
	return spaces, nil
}

// ListSeats returns all seats of all spaces.
func (c *Client) ListSeats(ctx context.Context) ([]models.Seat, error) {
	var seats []models.Seat
	if err := c.getList(ctx, PathSeats, "", &seats); err != nil {
		return nil, err
	}
	return seats, nil
}

// ListBookings returns the bookings visible to credential. An empty credential
// makes an anonymous call.
func (c *Client) ListBookings(ctx context.Context, credential string) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := c.getList(ctx, PathBookings, credential, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// CreateBooking posts a reservation on behalf of credential.
func (c *Client) CreateBooking(ctx context.Context, credential string, req models.CreateBookingRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathBookings, bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	setBearer(httpReq, credential)

	_, err = c.do(httpReq, PathBookings)
	return err
}

func (c *Client) getList(ctx context.Context, path, credential string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	setBearer(req, credential)

	body, err := c.do(req, path)
	if err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		metrics.IncRemote(path, "malformed")
		return fmt.Errorf("%s: %w", path, ErrMalformedResponse)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		metrics.IncRemote(path, "malformed")
		return fmt.Errorf("%s: %w: %v", path, ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncRemote(endpoint, "error")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.IncRemote(endpoint, "error")
		return nil, fmt.Errorf("%s: read body: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.IncRemote(endpoint, "status")
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	metrics.IncRemote(endpoint, "ok")
	return body, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func setBearer(req *http.Request, credential string) {
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}
