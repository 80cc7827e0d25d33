// Package session keeps one generation controller and form record per
// browser session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fps2me/fpsqr/form"
	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/internal/logger"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrFull     = errors.New("too many sessions")
)

// Session wraps a controller with the form state it generates from
type Session struct {
	ID         string
	Controller *generation.Controller
	CreatedAt  time.Time

	mu       sync.Mutex
	form     form.State
	lastSeen time.Time
}

// Form returns the current form state
func (s *Session) Form() form.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// Apply applies events to the form. If any input changed, the controller
// is told its inputs are stale.
func (s *Session) Apply(events ...form.Event) form.State {
	s.mu.Lock()
	prev := s.form
	s.form = form.ApplyAll(s.form, events...)
	next := s.form
	s.mu.Unlock()

	if form.Changed(prev, next) {
		s.Controller.Invalidate()
	}
	return next
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Factory builds the controller for a new session
type Factory func() *generation.Controller

// Options bound the registry
type Options struct {
	TTL  time.Duration
	Max  int
	Mode form.RewriteMode
}

// Manager is the in-memory session registry. Safe for concurrent use.
type Manager struct {
	sessions   map[string]*Session
	newSession Factory
	opts       Options
	now        func() time.Time
	mu         sync.RWMutex
}

// NewManager creates an empty registry
func NewManager(factory Factory, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.Max <= 0 {
		opts.Max = 10000
	}
	return &Manager{
		sessions:   make(map[string]*Session),
		newSession: factory,
		opts:       opts,
		now:        time.Now,
	}
}

// Create registers a new session. Expired sessions are pruned first when
// the registry is full.
func (m *Manager) Create() (*Session, error) {
	if m.Len() >= m.opts.Max {
		m.Prune()
	}

	now := m.now()
	s := &Session{
		ID:         uuid.NewString(),
		Controller: m.newSession(),
		CreatedAt:  now,
		form:       form.NewState(m.opts.Mode),
		lastSeen:   now,
	}
	// a resolved generation counts as activity, so the idle timer starts
	// from the result rather than from the submit
	s.Controller.OnChange(func(snap generation.Snapshot) {
		if snap.State.Terminal() {
			s.touch(m.now())
		}
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) >= m.opts.Max {
		return nil, ErrFull
	}
	m.sessions[s.ID] = s
	return s, nil
}

// Get returns a live session and refreshes its idle timer
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	now := m.now()
	if m.expired(s, now) {
		m.remove(id)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.touch(now)
	return s, nil
}

// GetOrCreate returns the session for id, or a new one when id is unknown
// or expired. created reports which.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool, err error) {
	if id != "" {
		if s, err := m.Get(id); err == nil {
			return s, false, nil
		}
	}
	s, err = m.Create()
	return s, err == nil, err
}

// Delete removes a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

// List returns the live session ids, sorted
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Prune removes sessions idle longer than the TTL. Sessions with a pending
// generation are kept until it resolves.
func (m *Manager) Prune() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Debug("pruned idle sessions", "removed", removed, "remaining", len(m.sessions))
	}
	return removed
}

// Run prunes every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Prune()
		}
	}
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	if s.Controller.Snapshot().State == generation.StatePending {
		return false
	}
	return now.Sub(s.idleSince()) > m.opts.TTL
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
