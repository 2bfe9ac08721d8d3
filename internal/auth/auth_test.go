package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coworking/internal/config"
	"coworking/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuthConfig = config.AuthConfig{
	LoginPath:  "/auth/jwt/login",
	CheckPath:  "/htoya/",
	CookieName: "bonds",
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return signed
}

func TestLogin(t *testing.T) {
	t.Run("Cookie", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/jwt/login", r.URL.Path)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "a@b.com", r.PostForm.Get("username"))
			assert.Equal(t, "pw", r.PostForm.Get("password"))
			http.SetCookie(w, &http.Cookie{Name: "bonds", Value: "cookie-token"})
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ts.Close()

		token, err := NewClient(ts.URL, testAuthConfig, time.Second).Login(context.Background(), "a@b.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, "cookie-token", token)
	})

	t.Run("JSONBody", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"access_token":"json-token","token_type":"bearer"}`)
		}))
		defer ts.Close()

		token, err := NewClient(ts.URL, testAuthConfig, time.Second).Login(context.Background(), "a@b.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, "json-token", token)
	})

	t.Run("BadCredentials", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"detail":"LOGIN_BAD_CREDENTIALS"}`)
		}))
		defer ts.Close()

		_, err := NewClient(ts.URL, testAuthConfig, time.Second).Login(context.Background(), "a@b.com", "bad")
		assert.True(t, errors.Is(err, ErrInvalidCredentials))
	})

	t.Run("NoToken", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ts.Close()

		_, err := NewClient(ts.URL, testAuthConfig, time.Second).Login(context.Background(), "a@b.com", "pw")
		assert.ErrorIs(t, err, ErrNoToken)
	})
}

func TestCheck(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("bonds")
		if err != nil || cookie.Value != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer good", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, testAuthConfig, time.Second)

	ok, err := client.Check(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Check(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = client.Check(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	got, ok := ExpiresAt(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = ExpiresAt("opaque-token")
	assert.False(t, ok)
}

func TestStatic(t *testing.T) {
	token, ok := Static("svc").Credential()
	assert.True(t, ok)
	assert.Equal(t, "svc", token)

	_, ok = Static("").Credential()
	assert.False(t, ok)
}

func TestSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("SetCredentialNotifiesAndPersists", func(t *testing.T) {
		repo := repository.NewMemorySessionRepository(time.Hour)
		s := NewSession(1, repo, nil)

		_, ok := s.Credential()
		assert.False(t, ok)

		calls := 0
		s.Subscribe(func() { calls++ })
		s.SetCredential(ctx, "opaque", "a@b.com")

		token, ok := s.Credential()
		assert.True(t, ok)
		assert.Equal(t, "opaque", token)
		assert.Equal(t, "a@b.com", s.Email())
		assert.Equal(t, 1, calls)

		stored, err := repo.GetSession(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "opaque", stored.Credential)
	})

	t.Run("ExpiredJWTIsInvalid", func(t *testing.T) {
		s := NewSession(2, nil, nil)
		s.now = func() time.Time { return now }

		calls := 0
		s.Subscribe(func() { calls++ })
		s.SetCredential(ctx, signedToken(t, now.Add(-time.Minute)), "a@b.com")

		_, ok := s.Credential()
		assert.False(t, ok)
		assert.Equal(t, 0, calls, "an already expired token must not count as becoming valid")

		s.SetCredential(ctx, signedToken(t, now.Add(time.Hour)), "a@b.com")
		_, ok = s.Credential()
		assert.True(t, ok)
		assert.Equal(t, 1, calls)
	})

	t.Run("LoadAndClear", func(t *testing.T) {
		repo := repository.NewMemorySessionRepository(time.Hour)
		NewSession(3, repo, nil).SetCredential(ctx, "persisted", "c@d.com")

		restored := NewSession(3, repo, nil)
		calls := 0
		restored.Subscribe(func() { calls++ })
		require.NoError(t, restored.Load(ctx))

		token, ok := restored.Credential()
		assert.True(t, ok)
		assert.Equal(t, "persisted", token)
		assert.Equal(t, 0, calls)

		restored.Clear(ctx)
		_, ok = restored.Credential()
		assert.False(t, ok)

		stored, err := repo.GetSession(ctx, 3)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}
