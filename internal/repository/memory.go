package repository

import (
	"context"
	"sync"
	"time"

	"coworking/internal/models"
)

// MemorySessionRepository keeps sessions in process memory. It backs the
// redis store when redis is unavailable and serves tests.
type MemorySessionRepository struct {
	mu         sync.Mutex
	sessions   map[int64]memoryEntry
	rateLimits sync.Map
	ttl        time.Duration
	now        func() time.Time
}

type memoryEntry struct {
	session   models.StoredSession
	expiresAt time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[int64]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *MemorySessionRepository) GetSession(ctx context.Context, chatID int64) (*models.StoredSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[chatID]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		delete(r.sessions, chatID)
		return nil, nil
	}
	session := entry.session
	return &session, nil
}

func (r *MemorySessionRepository) SaveSession(ctx context.Context, session *models.StoredSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := memoryEntry{session: *session}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.sessions[session.ChatID] = entry
	return nil
}

func (r *MemorySessionRepository) DeleteSession(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, chatID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemorySessionRepository) CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, ok := r.rateLimits.Load(chatID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(chatID, entry)
	return entry.count <= limit, nil
}
