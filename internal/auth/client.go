package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coworking/internal/config"
	"coworking/internal/metrics"
	"coworking/internal/models"
)

var (
	// ErrInvalidCredentials is returned when the API rejects email and password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoToken means login succeeded but the response carried no token.
	ErrNoToken = errors.New("login response has no token")
)

// Client logs users in against the coworking API.
type Client struct {
	baseURL    string
	loginPath  string
	checkPath  string
	cookieName string
	httpClient *http.Client
}

func NewClient(baseURL string, cfg config.AuthConfig, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = models.DefaultRemoteTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		loginPath:  cfg.LoginPath,
		checkPath:  cfg.CheckPath,
		cookieName: cfg.CookieName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Login exchanges email and password for a token. The token is taken from the
// session cookie, or from an access_token field when the API answers with JSON.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncRemote(c.loginPath, "error")
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusUnprocessableEntity:
		metrics.IncRemote(c.loginPath, "status")
		return "", ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		metrics.IncRemote(c.loginPath, "status")
		return "", fmt.Errorf("login: http %d", resp.StatusCode)
	}
	metrics.IncRemote(c.loginPath, "ok")

	for _, cookie := range resp.Cookies() {
		if cookie.Name == c.cookieName && cookie.Value != "" {
			return cookie.Value, nil
		}
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(raw) > 0 && json.Unmarshal(raw, &body) == nil && body.AccessToken != "" {
		return body.AccessToken, nil
	}
	return "", ErrNoToken
}

// Check asks the API whether token is still accepted.
func (c *Client) Check(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.checkPath, nil)
	if err != nil {
		return false, err
	}
	req.AddCookie(&http.Cookie{Name: c.cookieName, Value: token})
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncRemote(c.checkPath, "error")
		return false, fmt.Errorf("check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		metrics.IncRemote(c.checkPath, "ok")
		return true, nil
	}
	metrics.IncRemote(c.checkPath, "status")
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return false, nil
	}
	return false, fmt.Errorf("check: http %d", resp.StatusCode)
}
