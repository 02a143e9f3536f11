// Package learner keeps the in-memory module flows of HTTP learners.
package learner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/flow"
)

const guestPrefix = "guest-"

// ErrNoSession is returned when a learner has not opened the module.
var ErrNoSession = errors.New("no session for this module")

// NewGuestID returns a fresh identifier for an anonymous learner.
func NewGuestID() string {
	return guestPrefix + uuid.NewString()
}

// IsGuest reports whether id was issued by NewGuestID.
func IsGuest(id string) bool {
	return len(id) > len(guestPrefix) && id[:len(guestPrefix)] == guestPrefix
}

// DepsFunc returns the collaborators for a learner's flow. Guests get
// memory-only collaborators.
type DepsFunc func(userID string, guest bool) flow.Deps

// Session is one learner's flow through one module. Callers must go
// through Do so concurrent requests for the same learner serialise.
type Session struct {
	mu       sync.Mutex
	flow     *flow.Flow
	lastSeen time.Time
}

// Do runs fn with exclusive access to the flow.
func (s *Session) Do(fn func(f *flow.Flow) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.flow)
}

type key struct {
	userID   string
	moduleID string
}

// Registry maps (learner, module) to live sessions.
type Registry struct {
	catalog  *catalog.Catalog
	deps     DepsFunc
	settings flow.Settings
	now      func() time.Time
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[key]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(cat *catalog.Catalog, deps DepsFunc, settings flow.Settings, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := settings.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		catalog:  cat,
		deps:     deps,
		settings: settings,
		now:      now,
		logger:   logger,
		sessions: make(map[key]*Session),
	}
}

// Get returns the live session of userID for moduleID.
func (r *Registry) Get(userID, moduleID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key{userID, moduleID}]
	if !ok {
		return nil, ErrNoSession
	}
	s.lastSeen = r.now()
	return s, nil
}

// Open returns the live session, creating it when absent. A new session
// restores saved progress. created reports whether a session was made.
func (r *Registry) Open(ctx context.Context, userID, moduleID string) (s *Session, created bool, err error) {
	module, err := r.catalog.Get(moduleID)
	if err != nil {
		return nil, false, err
	}

	k := key{userID, moduleID}
	r.mu.Lock()
	if s, ok := r.sessions[k]; ok {
		s.lastSeen = r.now()
		r.mu.Unlock()
		return s, false, nil
	}
	r.mu.Unlock()

	f := flow.New(module, userID, r.deps(userID, IsGuest(userID)), r.settings)
	if _, err := f.Resume(ctx); err != nil {
		return nil, false, fmt.Errorf("resume %s: %w", moduleID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[k]; ok {
		existing.lastSeen = r.now()
		return existing, false, nil
	}
	s = &Session{flow: f, lastSeen: r.now()}
	r.sessions[k] = s
	r.logger.Debug("session opened", zap.String("user", userID), zap.String("module", moduleID))
	return s, true, nil
}

// Close drops a session.
func (r *Registry) Close(userID, moduleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key{userID, moduleID})
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict removes sessions unused for longer than idle and returns how many
// were removed.
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, k)
			n++
		}
	}
	return n
}

// StartSweeper evicts idle sessions every interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.Evict(idle); n > 0 {
					r.logger.Info("evicted idle sessions", zap.Int("count", n))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
