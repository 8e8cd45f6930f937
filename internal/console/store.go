package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/auth"
)

var ErrSessionNotFound = errors.New("console: session not found")

// SessionStore keeps sessions in memory and expires them after an idle TTL.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	deps     Deps
	logger   zerolog.Logger
}

func NewSessionStore(deps Deps, ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		deps:     deps,
		logger:   deps.Logger,
	}
}

// Create opens a new session for user.
func (st *SessionStore) Create(user auth.CurrentUser) *Session {
	s := NewSession(uuid.New().String(), user, st.deps)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	st.deps.Metrics.SessionOpened()
	st.logger.Info().Str("session_id", s.ID).Str("user_id", user.ID).Str("role", user.Role).Msg("console session opened")
	return s
}

// Get returns the session with id owned by userID and marks it used. Expired
// sessions are closed and reported as not found.
func (st *SessionStore) Get(id, userID string) (*Session, error) {
	now := st.deps.now()
	st.mu.Lock()
	s, ok := st.sessions[id]
	if ok && st.expired(s, now) {
		delete(st.sessions, id)
		st.mu.Unlock()
		st.finish(s, "expired")
		return nil, ErrSessionNotFound
	}
	st.mu.Unlock()
	if !ok || s.User.ID != userID {
		return nil, ErrSessionNotFound
	}
	s.touch(now)
	return s, nil
}

// Delete closes the session with id owned by userID.
func (st *SessionStore) Delete(id, userID string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	if !ok || s.User.ID != userID {
		st.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	st.mu.Unlock()
	st.finish(s, "closed")
	return nil
}

// Len returns the number of open sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep closes every expired session and returns how many were closed.
func (st *SessionStore) Sweep() int {
	now := st.deps.now()
	var expired []*Session
	st.mu.Lock()
	for id, s := range st.sessions {
		if st.expired(s, now) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()
	for _, s := range expired {
		st.finish(s, "expired")
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				st.logger.Debug().Int("sessions", n).Msg("expired console sessions swept")
			}
		}
	}
}

func (st *SessionStore) expired(s *Session, now time.Time) bool {
	return st.ttl > 0 && now.Sub(s.idleSince()) > st.ttl
}

func (st *SessionStore) finish(s *Session, reason string) {
	s.close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := st.deps.Center.Forget(ctx, s.ID); err != nil {
		st.logger.Warn().Err(err).Str("session_id", s.ID).Msg("pending toasts not cleared")
	}
	st.deps.Metrics.SessionClosed()
	st.logger.Info().Str("session_id", s.ID).Str("reason", reason).Msg("console session closed")
}
