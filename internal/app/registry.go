package app

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/support-console/backend/internal/metrics"
	"github.com/support-console/backend/pkg/logger"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry holds the live sessions and evicts the idle ones.
type Registry struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	deps        SessionDeps
	idleTimeout time.Duration

	cleanupTicker *time.Ticker
	done          chan struct{}
	stopOnce      sync.Once
}

// NewRegistry starts the janitor when both durations are positive.
func NewRegistry(deps SessionDeps, idleTimeout, cleanupInterval time.Duration) *Registry {
	r := &Registry{
		sessions:    make(map[string]*Session),
		deps:        deps,
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 && cleanupInterval > 0 {
		r.cleanupTicker = time.NewTicker(cleanupInterval)
		go r.cleanup()
	}
	return r
}

func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.deps)

	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	logger.Info("Session created", zap.String("session_id", s.ID))
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.Touch()
	return s, nil
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	metrics.ActiveSessions.Set(float64(n))
	logger.Info("Session deleted", zap.String("session_id", id))
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle closes every session not seen since before now-idleTimeout.
func (r *Registry) EvictIdle(now time.Time) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-r.idleTimeout)

	var evicted []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, s)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range evicted {
		s.Close()
	}
	if len(evicted) > 0 {
		metrics.ActiveSessions.Set(float64(n))
		logger.Info("Evicted idle sessions", zap.Int("count", len(evicted)), zap.Int("remaining", n))
	}
	return len(evicted)
}

func (r *Registry) cleanup() {
	for {
		select {
		case now := <-r.cleanupTicker.C:
			r.EvictIdle(now)
		case <-r.done:
			return
		}
	}
}

// Stop halts the janitor and closes every session.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		if r.cleanupTicker != nil {
			r.cleanupTicker.Stop()
		}
		close(r.done)

		r.mu.Lock()
		sessions := r.sessions
		r.sessions = make(map[string]*Session)
		r.mu.Unlock()

		for _, s := range sessions {
			s.Close()
		}
		metrics.ActiveSessions.Set(0)
	})
}
