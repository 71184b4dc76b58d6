// Package session keeps live layout trees for the HTTP server.
//
// A [Session] owns one [tree.Tree] and serializes every operation on it
// with a mutex, so concurrent requests against the same session are applied
// one after another. Sessions expire after a period of inactivity; a
// [Manager] hands them out by id and sweeps expired ones.
//
// # Usage
//
//	m := session.NewManager(session.DefaultTTL)
//	sess := m.Create("dashboard", sceneHash, t)
//
//	err := sess.Do(func(t *tree.Tree) error {
//	    _, err := t.Update()
//	    return err
//	})
//
//	go m.Run(ctx, time.Minute) // periodic Cleanup
package session

import (
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/limn/pkg/tree"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned when a session has exceeded its TTL. The
	// session is removed when this is reported.
	ErrExpired = errors.New("session expired")
)

// DefaultTTL is the default idle lifetime of a session.
const DefaultTTL = 30 * time.Minute

// Session is one live tree.
type Session struct {
	ID        string
	Name      string
	SceneHash string
	CreatedAt time.Time

	mu        sync.Mutex
	tree      *tree.Tree
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// Do runs fn with exclusive access to the session's tree and extends the
// session's lifetime.
func (s *Session) Do(fn func(t *tree.Tree) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = s.now().Add(s.ttl)
	return fn(s.tree)
}

// ExpiresAt returns the current expiry time.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// IsExpired reports whether the session has been idle past its TTL.
func (s *Session) IsExpired() bool {
	return s.now().After(s.ExpiresAt())
}

// Option configures a [Manager].
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns the live sessions. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// NewManager creates a manager whose sessions expire after ttl of
// inactivity. A non-positive ttl uses [DefaultTTL].
func NewManager(ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a new session for t.
func (m *Manager) Create(name, sceneHash string, t *tree.Tree) *Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Name:      name,
		SceneHash: sceneHash,
		CreatedAt: now,
		tree:      t,
		expiresAt: now.Add(m.ttl),
		ttl:       m.ttl,
		now:       m.now,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.logger.Debug("session created", "id", s.ID, "name", name)
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if s.IsExpired() {
		m.Delete(id)
		return nil, ErrExpired
	}
	return s, nil
}

// Delete removes a session and reports whether it existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// List returns the live sessions ordered by creation time.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := slices.Collect(maps.Values(m.sessions))
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Len returns the number of sessions, expired or not.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes expired sessions and returns how many were removed.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.IsExpired() {
			delete(m.sessions, id)
			n++
		}
	}
	if n > 0 {
		m.logger.Debug("expired sessions removed", "count", n)
	}
	return n
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}
