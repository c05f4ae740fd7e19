// Package session keeps per-user progress through the two-stage gate.
package session

import (
	"context"
	"maps"
	"time"
)

// Stage is the batch a user is currently working on.
type Stage int

const (
	// StageNone means the user has no active flow.
	StageNone Stage = 0
	// StageOne is the first batch of tasks.
	StageOne Stage = 1
	// StageTwo is the second batch of tasks.
	StageTwo Stage = 2
)

// Valid reports whether s is an active stage.
func (s Stage) Valid() bool {
	return s == StageOne || s == StageTwo
}

// Session is a user's in-flight gate progress.
// Batch is always a subset of Known.
type Session struct {
	UserID    int64
	FlowID    string
	Stage     Stage
	Locale    string
	Known     map[string]struct{}
	Batch     []string
	StartedAt time.Time
	UpdatedAt time.Time
}

// New returns a stage-one session whose batch and known set are sigs.
func New(userID int64, flowID, locale string, sigs []string, now time.Time) *Session {
	s := &Session{
		UserID:    userID,
		FlowID:    flowID,
		Stage:     StageOne,
		Locale:    locale,
		Known:     make(map[string]struct{}, len(sigs)),
		StartedAt: now,
		UpdatedAt: now,
	}
	s.Batch = append([]string(nil), sigs...)
	for _, sig := range sigs {
		s.Known[sig] = struct{}{}
	}
	return s
}

// Advance moves the session to stage two with a fresh batch that must not
// overlap the known set. It returns false and leaves s untouched otherwise.
func (s *Session) Advance(sigs []string, now time.Time) bool {
	if s.Stage != StageOne {
		return false
	}
	for _, sig := range sigs {
		if s.IsKnown(sig) {
			return false
		}
	}
	s.Stage = StageTwo
	s.Batch = append([]string(nil), sigs...)
	for _, sig := range sigs {
		s.Known[sig] = struct{}{}
	}
	s.UpdatedAt = now
	return true
}

// Touch marks the session as active at now.
func (s *Session) Touch(now time.Time) {
	if now.After(s.UpdatedAt) {
		s.UpdatedAt = now
	}
}

// IsKnown reports whether sig was ever shown to the user in this flow.
func (s *Session) IsKnown(sig string) bool {
	_, ok := s.Known[sig]
	return ok
}

// KnownSet returns a copy of the known signatures.
func (s *Session) KnownSet() map[string]struct{} {
	return maps.Clone(s.Known)
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Known = maps.Clone(s.Known)
	if c.Known == nil {
		c.Known = map[string]struct{}{}
	}
	c.Batch = append([]string(nil), s.Batch...)
	return &c
}

// Store holds sessions keyed by user id. Implementations must be safe for
// concurrent use and must not let callers alias stored state.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, bool)
	Put(ctx context.Context, s *Session)
	Delete(ctx context.Context, userID int64)
	Len() int
}
