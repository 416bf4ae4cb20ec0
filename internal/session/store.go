// Package session maps browser sessions to their view workspaces.
//
// Each browser gets a random session id in a cookie. The id selects the
// Workspace that owns the session's customer and training views. Sessions
// that stay idle longer than the TTL are evicted and their views unmounted.
package session

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/trainerdesk/internal/metrics"
	"github.com/DukeRupert/trainerdesk/internal/view"
)

const (
	// CookieName is the name of the cookie that stores the session id.
	CookieName = "trainerdesk_session"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"
)

// Factory builds the workspace for a new session.
type Factory func() *view.Workspace

// Store holds live sessions in memory.
type Store struct {
	ttl     time.Duration
	factory Factory
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry

	stop     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	workspace *view.Workspace
	lastSeen  time.Time
}

// NewStore creates a store and starts its cleanup goroutine, which runs
// every ttl/2 until Close.
func NewStore(ttl time.Duration, factory Factory, logger *slog.Logger) *Store {
	s := &Store{
		ttl:      ttl,
		factory:  factory,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
		stop:     make(chan struct{}),
	}

	go s.cleanup()

	return s
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Get returns the workspace of a live session and marks it as seen.
func (s *Store) Get(id string) (*view.Workspace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(e.lastSeen) > s.ttl {
		s.evictLocked(id, e)
		return nil, false
	}
	e.lastSeen = now
	return e.workspace, true
}

// Create starts a new session.
func (s *Store) Create() (string, *view.Workspace) {
	id := uuid.NewString()
	ws := s.factory()

	s.mu.Lock()
	s.sessions[id] = &entry{workspace: ws, lastSeen: s.now()}
	s.mu.Unlock()

	metrics.SessionOpened()
	s.logger.Debug("session created", "session", shortID(id))
	return id, ws
}

// Resolve returns the workspace for the request's session cookie, creating
// a session and setting the cookie when there is none or it has expired.
func (s *Store) Resolve(w http.ResponseWriter, r *http.Request, isSecure bool) *view.Workspace {
	if c, err := r.Cookie(CookieName); err == nil {
		if ws, ok := s.Get(c.Value); ok {
			return ws
		}
	}

	id, ws := s.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     CookiePath,
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return ws
}

// Sweep evicts every session idle longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			s.evictLocked(id, e)
			n++
		}
	}
	return n
}

// Close stops the cleanup goroutine and unmounts every session.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.sessions {
		s.evictLocked(id, e)
	}
}

func (s *Store) evictLocked(id string, e *entry) {
	delete(s.sessions, id)
	e.workspace.Close()
	metrics.SessionClosed()
	s.logger.Debug("session closed", "session", shortID(id))
}

// cleanup periodically removes idle sessions.
func (s *Store) cleanup() {
	interval := s.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("evicted idle sessions", "count", n)
			}
		case <-s.stop:
			return
		}
	}
}

// shortID keeps session ids out of logs in full.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
