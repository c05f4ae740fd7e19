package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/subgate/core/logger"
)

// MemoryOptions configures NewMemoryStore.
type MemoryOptions struct {
	// TTL evicts sessions idle for longer than this; 0 keeps them forever.
	TTL time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions: make(map[int64]*Session),
		ttl:      opts.TTL,
		now:      now,
	}
}

func (m *MemoryStore) expired(s *Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.UpdatedAt) > m.ttl
}

// Get returns a copy of the user's session.
func (m *MemoryStore) Get(ctx context.Context, userID int64) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.expired(s, m.now()) {
		m.mu.Lock()
		// Re-check: a concurrent Put may have replaced it.
		if cur, ok := m.sessions[userID]; ok && cur == s {
			delete(m.sessions, userID)
		}
		m.mu.Unlock()
		logger.Debug(ctx, logger.CompSession, "expired",
			slog.Int64("user_id", userID),
			slog.Int("stage", int(s.Stage)),
		)
		return nil, false
	}
	return s.Clone(), true
}

// Put stores a copy of s, replacing any previous session of the same user.
func (m *MemoryStore) Put(_ context.Context, s *Session) {
	if s == nil {
		return
	}
	c := s.Clone()
	m.mu.Lock()
	m.sessions[s.UserID] = c
	m.mu.Unlock()
}

// Delete removes the user's session if present.
func (m *MemoryStore) Delete(_ context.Context, userID int64) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

// Len returns the number of stored sessions, expired ones included until swept.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// StartJanitor sweeps every interval until ctx is done. It returns
// immediately when the store has no TTL.
func (m *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					logger.Info(ctx, logger.CompSession, "sweep",
						slog.Int("removed", n),
						slog.Int("active", m.Len()),
					)
				}
			}
		}
	}()
}
