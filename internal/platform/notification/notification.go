// Package notification provides the console's toast notifications: a
// fire-and-forget Notifier per session, pluggable storage (in-memory or
// Redis), confirmation e-mail senders with template rendering, and an Echo
// handler that drains a session's pending toasts.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Toasts
// ---------------------------------------------------------------------------

// Tone is the visual tone of a toast.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
	ToneWarning Tone = "warning"
	ToneInfo    Tone = "info"
)

// Valid reports whether t is one of the four known tones.
func (t Tone) Valid() bool {
	switch t {
	case ToneSuccess, ToneError, ToneWarning, ToneInfo:
		return true
	}
	return false
}

// Toast is a single user-facing notification.
type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Tone      Tone      `json:"tone"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier shows a toast. Implementations never report failure to the caller.
type Notifier interface {
	Show(message string, tone Tone)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string, tone Tone)

// Show calls f(message, tone).
func (f NotifierFunc) Show(message string, tone Tone) { f(message, tone) }

// Discard is a Notifier that drops every toast.
var Discard Notifier = NotifierFunc(func(string, Tone) {})

// ---------------------------------------------------------------------------
// Storage
// ---------------------------------------------------------------------------

// Store persists pending toasts per session until they are drained.
type Store interface {
	Push(ctx context.Context, sessionID string, t Toast) error
	Drain(ctx context.Context, sessionID string) ([]Toast, error)
	Clear(ctx context.Context, sessionID string) error
}

// maxPending bounds the queue of a session that never drains.
const maxPending = 50

// MemoryStore keeps pending toasts in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	queues map[string][]Toast
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{queues: make(map[string][]Toast)}
}

// Push appends a toast, dropping the oldest once maxPending is exceeded.
func (s *MemoryStore) Push(_ context.Context, sessionID string, t Toast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := append(s.queues[sessionID], t)
	if len(q) > maxPending {
		q = q[len(q)-maxPending:]
	}
	s.queues[sessionID] = q
	return nil
}

// Drain returns and removes all pending toasts in arrival order.
func (s *MemoryStore) Drain(_ context.Context, sessionID string) ([]Toast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[sessionID]
	delete(s.queues, sessionID)
	return q, nil
}

// Clear drops all pending toasts of a session.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.queues, sessionID)
	s.mu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// Center
// ---------------------------------------------------------------------------

// ToneObserver receives a callback for every toast shown. The telemetry
// package implements it with a Prometheus counter.
type ToneObserver interface {
	ObserveToast(tone string)
}

// QueueListener is told when a session has a new pending toast. The live
// stream uses it to push toasts without polling.
type QueueListener interface {
	ToastQueued(sessionID string)
}

// Center hands out per-session notifiers backed by a Store.
type Center struct {
	store    Store
	logger   zerolog.Logger
	observer ToneObserver
	listener QueueListener
	timeout  time.Duration
	now      func() time.Time
}

// NewCenter creates a Center. A nil store falls back to a MemoryStore.
func NewCenter(store Store, logger zerolog.Logger) *Center {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Center{
		store:   store,
		logger:  logger,
		timeout: 2 * time.Second,
		now:     time.Now,
	}
}

// SetObserver attaches an optional ToneObserver.
func (c *Center) SetObserver(o ToneObserver) {
	c.observer = o
}

// SetListener attaches an optional QueueListener.
func (c *Center) SetListener(l QueueListener) {
	c.listener = l
}

// For returns the Notifier of a session.
func (c *Center) For(sessionID string) Notifier {
	return NotifierFunc(func(message string, tone Tone) {
		c.show(sessionID, message, tone)
	})
}

func (c *Center) show(sessionID, message string, tone Tone) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	if !tone.Valid() {
		tone = ToneInfo
	}
	t := Toast{
		ID:        uuid.New().String(),
		Message:   message,
		Tone:      tone,
		CreatedAt: c.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.store.Push(ctx, sessionID, t); err != nil {
		c.logger.Warn().Err(err).
			Str("session_id", sessionID).
			Str("tone", string(tone)).
			Msg("toast dropped")
		return
	}
	if c.observer != nil {
		c.observer.ObserveToast(string(tone))
	}
	if c.listener != nil {
		c.listener.ToastQueued(sessionID)
	}
}

// Drain returns the pending toasts of a session.
func (c *Center) Drain(ctx context.Context, sessionID string) ([]Toast, error) {
	toasts, err := c.store.Drain(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("drain toasts: %w", err)
	}
	if toasts == nil {
		toasts = []Toast{}
	}
	return toasts, nil
}

// Forget drops everything queued for a session.
func (c *Center) Forget(ctx context.Context, sessionID string) error {
	return c.store.Clear(ctx, sessionID)
}

// ---------------------------------------------------------------------------
// Recorder (test double)
// ---------------------------------------------------------------------------

// Recorder is a Notifier that keeps every toast it is shown.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

// Show records the toast.
func (r *Recorder) Show(message string, tone Tone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{Message: message, Tone: tone})
}

// Toasts returns a copy of recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Last returns the most recent toast and whether one exists.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

// Reset forgets all recorded toasts.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.toasts = nil
	r.mu.Unlock()
}
