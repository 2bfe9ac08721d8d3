package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"coworking/internal/domain"
	"coworking/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionRepository writes through the primary store and switches to
// the fallback after the first primary error, probing the primary again once
// per recoveryInterval.
type FailoverSessionRepository struct {
	primary  domain.SessionRepository
	fallback domain.SessionRepository
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
	now       func() time.Time
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = r.now()
	r.mu.Unlock()
}

// shouldProbe reports whether the primary is up or due for a recovery attempt.
func (r *FailoverSessionRepository) shouldProbe() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.now().Sub(r.lastCheck) > recoveryInterval {
		r.lastCheck = r.now()
		return true
	}
	return false
}

func (r *FailoverSessionRepository) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary session repository recovered")
	}
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, chatID int64) (*models.StoredSession, error) {
	if r.shouldProbe() {
		session, err := r.primary.GetSession(ctx, chatID)
		if err == nil {
			r.recovered()
			return session, nil
		}
		r.markDown(err)
	}

	return r.fallback.GetSession(ctx, chatID)
}

func (r *FailoverSessionRepository) SaveSession(ctx context.Context, session *models.StoredSession) error {
	if r.shouldProbe() {
		err := r.primary.SaveSession(ctx, session)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SaveSession(ctx, session)
}

func (r *FailoverSessionRepository) DeleteSession(ctx context.Context, chatID int64) error {
	if r.shouldProbe() {
		err := r.primary.DeleteSession(ctx, chatID)
		if err == nil {
			r.recovered()
			// The fallback may still hold a copy written during an outage.
			_ = r.fallback.DeleteSession(ctx, chatID)
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.DeleteSession(ctx, chatID)
}

func (r *FailoverSessionRepository) CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error) {
	if r.shouldProbe() {
		allowed, err := r.primary.CheckRateLimit(ctx, chatID, limit, window)
		if err == nil {
			r.recovered()
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, chatID, limit, window)
}
