// Package panel implements an entity panel: an ordered collection of domain
// records displayed together, mutated through a modal add/edit/delete/confirm
// cycle that reports every outcome as a toast.
//
// A panel works on local state by default. When a Backend is attached every
// confirm goes through it first and local state changes only when the backend
// reports success.
package panel

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
	"github.com/ehr/clinicconsole/internal/platform/modal"
	"github.com/ehr/clinicconsole/internal/platform/notification"
)

// Entity is a record with a unique identifier.
type Entity interface {
	EntityID() string
}

// Form is the editable copy of an entity bound to the modal.
type Form[T Entity, F any] interface {
	SetField(key, value string) error
	// Validate returns the first missing or malformed required field.
	Validate() error
	// Build creates a new entity with the given id from the form.
	Build(id string) T
	// Merge returns existing with the form's fields written over it.
	Merge(existing T) T
	Clone() F
}

// Template produces the forms a modal is populated with.
type Template[T Entity, F any] struct {
	Blank      func() F
	FromEntity func(T) F
}

// Backend is the remote collaborator behind a panel.
type Backend[T Entity] interface {
	List(ctx context.Context) (hooks.Result[[]T], error)
	Create(ctx context.Context, item T) (hooks.Result[T], error)
	Update(ctx context.Context, item T) (hooks.Result[T], error)
	Delete(ctx context.Context, id string) (hooks.Result[string], error)
}

// Exclusive describes a boolean attribute that at most one item may carry.
type Exclusive[T Entity] struct {
	Label string
	Get   func(T) bool
	Set   func(T, bool) T
}

// Action is a named transition applied through a confirm-mode modal.
type Action[T Entity] struct {
	Name    string
	Title   string
	Message string
	Allowed func(T) bool
	Apply   func(T) T
}

// MutationObserver is told about every confirm operation.
type MutationObserver interface {
	ObserveMutation(panel, operation, outcome string)
}

var (
	ErrValidation       = errors.New("panel: validation failed")
	ErrRejected         = errors.New("panel: rejected by backend")
	ErrNotFound         = errors.New("panel: item not found")
	ErrWrongMode        = errors.New("panel: operation not valid in current modal mode")
	ErrNoExclusiveFlag  = errors.New("panel: collection has no exclusive flag")
	ErrUnknownAction    = errors.New("panel: unknown action")
	ErrActionNotAllowed = errors.New("panel: action not allowed for item")
	ErrStale            = errors.New("panel: response discarded")
	ErrUnmounted        = errors.New("panel: unmounted")
)

// Config wires a Panel.
type Config[T Entity, F Form[T, F]] struct {
	// Name is the panel key, e.g. "contacts".
	Name string
	// Title is the singular display name used in modal titles and toasts.
	Title     string
	Template  Template[T, F]
	Seed      []T
	Backend   Backend[T]
	Exclusive *Exclusive[T]
	Actions   []Action[T]
	Notifier  notification.Notifier
	Observer  MutationObserver
	Logger    zerolog.Logger
	NewID     func() string
}

// Panel is the state of one entity panel. Methods are safe for concurrent
// use and confirmed operations are applied in the order they complete.
type Panel[T Entity, F Form[T, F]] struct {
	mu  sync.Mutex
	cfg Config[T, F]

	items []T

	modal    *modal.Machine
	selected *T
	form     F
	action   *Action[T]
	pending  bool

	mounted    bool
	loading    bool
	generation uint64
}

// New creates a mounted panel seeded with cfg.Seed.
func New[T Entity, F Form[T, F]](cfg Config[T, F]) *Panel[T, F] {
	if cfg.Notifier == nil {
		cfg.Notifier = notification.Discard
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return uuid.New().String() }
	}
	if cfg.Title == "" {
		cfg.Title = "Item"
	}
	return &Panel[T, F]{
		cfg:     cfg,
		items:   slices.Clone(cfg.Seed),
		modal:   modal.New(),
		mounted: true,
	}
}

// Name returns the panel key.
func (p *Panel[T, F]) Name() string { return p.cfg.Name }

// Items returns a copy of the collection in display order.
func (p *Panel[T, F]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.items)
}

// Len returns the number of items.
func (p *Panel[T, F]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Get returns the item with the given id.
func (p *Panel[T, F]) Get(id string) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.find(id)
}

func (p *Panel[T, F]) find(id string) (T, bool) {
	for _, it := range p.items {
		if it.EntityID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// ModalView is the client-facing state of the panel's modal.
type ModalView struct {
	IsOpen   bool        `json:"is_open"`
	State    modal.State `json:"state"`
	Mode     modal.Mode  `json:"mode,omitempty"`
	Title    string      `json:"title,omitempty"`
	Action   string      `json:"action,omitempty"`
	Selected any         `json:"selected,omitempty"`
	Form     any         `json:"form,omitempty"`
}

// View is the client-facing state of a panel.
type View struct {
	Panel     string    `json:"panel"`
	Title     string    `json:"title"`
	Items     any       `json:"items"`
	Count     int       `json:"count"`
	Loading   bool      `json:"loading"`
	Pending   bool      `json:"pending"`
	Exclusive string    `json:"exclusive_flag,omitempty"`
	Actions   []string  `json:"actions,omitempty"`
	Modal     ModalView `json:"modal"`
}

// View returns a copy of the panel state for rendering.
func (p *Panel[T, F]) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := slices.Clone(p.items)
	if items == nil {
		items = []T{}
	}
	v := View{
		Panel:   p.cfg.Name,
		Title:   p.cfg.Title,
		Items:   items,
		Count:   len(items),
		Loading: p.loading,
		Pending: p.pending,
		Modal: ModalView{
			IsOpen: p.modal.IsOpen(),
			State:  p.modal.State(),
			Mode:   p.modal.Mode(),
			Title:  p.modal.Title(),
		},
	}
	if p.cfg.Exclusive != nil {
		v.Exclusive = p.cfg.Exclusive.Label
	}
	for _, a := range p.cfg.Actions {
		v.Actions = append(v.Actions, a.Name)
	}
	if !p.modal.IsClosed() {
		if p.selected != nil {
			v.Modal.Selected = *p.selected
		}
		if p.action != nil {
			v.Modal.Action = p.action.Name
		}
		switch p.modal.Mode() {
		case modal.ModeAdd, modal.ModeEdit:
			v.Modal.Form = p.form.Clone()
		}
	}
	return v
}

func (p *Panel[T, F]) observe(op, outcome string) {
	if p.cfg.Observer != nil {
		p.cfg.Observer.ObserveMutation(p.cfg.Name, op, outcome)
	}
}
