package auth

import (
	"context"
	"sync"
	"time"

	"coworking/internal/domain"
	"coworking/internal/models"

	"github.com/rs/zerolog"
)

// Session holds one user's credential and answers whether it is valid right now.
// Subscribers are told every time a credential becomes valid.
type Session struct {
	chatID int64
	repo   domain.SessionRepository
	logger *zerolog.Logger

	mu          sync.RWMutex
	credential  string
	email       string
	subscribers []func()

	now func() time.Time
}

func NewSession(chatID int64, repo domain.SessionRepository, logger *zerolog.Logger) *Session {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Session{
		chatID: chatID,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Load restores a credential saved by a previous process. It does not notify subscribers.
func (s *Session) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	stored, err := s.repo.GetSession(ctx, s.chatID)
	if err != nil {
		return err
	}
	if stored == nil {
		return nil
	}

	s.mu.Lock()
	s.credential = stored.Credential
	s.email = stored.Email
	s.mu.Unlock()
	return nil
}

// Credential returns the stored token if it is present and, for JWTs, not expired.
func (s *Session) Credential() (string, bool) {
	s.mu.RLock()
	token := s.credential
	s.mu.RUnlock()

	if token == "" {
		return "", false
	}
	if exp, ok := ExpiresAt(token); ok && !exp.After(s.now()) {
		return "", false
	}
	return token, true
}

// Email is the address the user logged in with.
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// SetCredential stores a freshly obtained token and notifies subscribers.
// A persistence failure is logged; the in-memory credential is kept.
func (s *Session) SetCredential(ctx context.Context, token, email string) {
	s.mu.Lock()
	s.credential = token
	s.email = email
	subscribers := append([]func(){}, s.subscribers...)
	s.mu.Unlock()

	if s.repo != nil {
		err := s.repo.SaveSession(ctx, &models.StoredSession{
			ChatID:     s.chatID,
			Credential: token,
			Email:      email,
			UpdatedAt:  s.now(),
		})
		if err != nil {
			s.logger.Warn().Err(err).Int64("chat_id", s.chatID).Msg("failed to persist session")
		}
	}

	if _, ok := s.Credential(); !ok {
		return
	}
	for _, fn := range subscribers {
		fn()
	}
}

// Clear forgets the credential here and in the repository.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	s.credential = ""
	s.email = ""
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.DeleteSession(ctx, s.chatID); err != nil {
			s.logger.Warn().Err(err).Int64("chat_id", s.chatID).Msg("failed to delete session")
		}
	}
}

// Subscribe registers fn to run after each successful SetCredential.
func (s *Session) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}
