package editor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/metrics"
)

// Session is one front-end's drawing state.
type Session struct {
	ID        string
	Selection *Selection
	Notices   *Notices
	CreatedAt time.Time

	animator *Animator
	lastSeen atomic.Int64
}

func newSession(id string, log zerolog.Logger, interval time.Duration, now time.Time) *Session {
	anim := NewAnimator(interval)
	notices := NewNotices(log.With().Str("session_id", id).Logger(), defaultNoticeLimit)
	s := &Session{
		ID:        id,
		Selection: NewSelection(notices, anim.Stop),
		Notices:   notices,
		CreatedAt: now,
		animator:  anim,
	}
	s.lastSeen.Store(now.UnixNano())
	return s
}

// animate replays path into the selection under generation gen.
func (s *Session) animate(gen uint64, path []geo.Coordinate, m *metrics.Metrics) {
	s.animator.Start(path, func(_ int, c geo.Coordinate) bool {
		if !s.Selection.appendAt(gen, c) {
			return false
		}
		m.IncAnimationStep()
		return true
	})
}

// WaitAnimation blocks until the current path animation is done.
func (s *Session) WaitAnimation() {
	s.animator.Wait()
}

func (s *Session) Animating() bool {
	return s.animator.Running()
}

func (s *Session) close() {
	s.animator.Stop()
}

// RegistryOptions tunes session behavior.
type RegistryOptions struct {
	StepInterval time.Duration
	IdleTTL      time.Duration
}

// Registry tracks open sessions by id.
type Registry struct {
	log      zerolog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	idleTTL  time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(log zerolog.Logger, m *metrics.Metrics, opts RegistryOptions) *Registry {
	interval := opts.StepInterval
	if interval <= 0 {
		interval = DefaultStepInterval
	}
	ttl := opts.IdleTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{
		log:      log,
		metrics:  m,
		interval: interval,
		idleTTL:  ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Create() *Session {
	s := newSession(uuid.NewString(), r.log, r.interval, r.now())

	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveSessions(n)
	r.log.Info().Str("session_id", s.ID).Msg("session created")
	return s
}

// Get returns the session and marks it as active.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastSeen.Store(r.now().UnixNano())
	return s, nil
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.close()
	r.metrics.SetActiveSessions(n)
	r.log.Info().Str("session_id", id).Msg("session closed")
	return true
}

// Sweep closes sessions idle for longer than the TTL and returns how many.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.idleTTL).UnixNano()

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Load() < cutoff {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	if len(expired) > 0 {
		r.metrics.SetActiveSessions(n)
		r.log.Info().Int("expired", len(expired)).Msg("idle sessions swept")
	}
	return len(expired)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
