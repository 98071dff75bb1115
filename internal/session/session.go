// Package session tracks the short-lived per-admin broadcast dialog: an
// admin issues /broadcast, then supplies the content, then confirms. The
// state lives in memory only; after a restart every admin degrades to Idle
// and simply starts the dialog over.
package session

import (
	"sync"
	"time"

	"subtitlebot/internal/broadcast"
)

type State int

const (
	StateIdle State = iota
	StateAwaitingContent
	StateAwaitingConfirmation
)

func (s State) String() string {
	switch s {
	case StateAwaitingContent:
		return "awaiting_content"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return "idle"
	}
}

// Session is one admin's dialog position plus the captured payload.
type Session struct {
	State     State
	Payload   broadcast.Payload
	UpdatedAt time.Time
}

const (
	defaultTTL        = 10 * time.Minute
	defaultMaxEntries = 1000
)

// Store is an in-memory TTL map keyed by admin ID. Expired entries read as
// Idle; a bounded size with opportunistic pruning keeps memory flat.
type Store struct {
	mu  sync.Mutex
	ttl time.Duration
	max int
	now func() time.Time
	m   map[int64]Session
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		ttl: ttl,
		max: defaultMaxEntries,
		now: time.Now,
		m:   map[int64]Session{},
	}
}

// Get returns the admin's live session, or (zero, false) when there is none
// or it has expired. Expired entries are dropped on read.
func (s *Store) Get(adminID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.m[adminID]
	if !ok {
		return Session{}, false
	}
	if s.now().Sub(sess.UpdatedAt) > s.ttl {
		delete(s.m, adminID)
		return Session{}, false
	}
	return sess, true
}

// Set stores the admin's session, stamping UpdatedAt.
func (s *Store) Set(adminID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.UpdatedAt = s.now()
	s.m[adminID] = sess
	if len(s.m) > s.max {
		s.pruneLocked(s.now())
	}
}

// Clear drops the admin's session (dialog finished or cancelled).
func (s *Store) Clear(adminID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, adminID)
}

// Prune sweeps expired sessions and returns how many were dropped.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(s.now())
}

func (s *Store) pruneLocked(now time.Time) int {
	removed := 0
	for id, sess := range s.m {
		if now.Sub(sess.UpdatedAt) > s.ttl {
			delete(s.m, id)
			removed++
		}
	}
	// Over cap even after the TTL sweep: drop oldest entries.
	for len(s.m) > s.max {
		var oldestID int64
		var oldestAt time.Time
		first := true
		for id, sess := range s.m {
			if first || sess.UpdatedAt.Before(oldestAt) {
				oldestID, oldestAt = id, sess.UpdatedAt
				first = false
			}
		}
		delete(s.m, oldestID)
		removed++
	}
	return removed
}
