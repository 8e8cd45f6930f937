// Package stepform drives multi-step data-entry flows: a typed form is filled
// across ordered steps, each step is validated before the flow may advance,
// and the assembled form is submitted exactly once at the end.
package stepform

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
	"github.com/ehr/clinicconsole/internal/platform/notification"
)

// Form is a typed record filled by a workflow. Keys are the JSON names of the
// form's fields.
type Form[F any] interface {
	SetField(key, value string) error
	ToggleMultiSelect(key, value string) error
	// ValidateStep returns the first failing rule of the step, or nil.
	ValidateStep(step int) error
	StepCount() int
	Clone() F
}

// SubmitFunc hands the completed form to the submission collaborator. A
// non-nil error means the call itself failed; an unsuccessful Result means
// the collaborator rejected the data.
type SubmitFunc[F any, R any] func(ctx context.Context, form F) (hooks.Result[R], error)

// SubmissionObserver is told how each submission ended.
type SubmissionObserver interface {
	ObserveSubmission(form, outcome string)
}

var (
	ErrValidation   = errors.New("stepform: validation failed")
	ErrNotFinalStep = errors.New("stepform: submit is only allowed on the final step")
	ErrCompleted    = errors.New("stepform: already submitted")
	ErrSubmitting   = errors.New("stepform: submission in progress")
	ErrRejected     = errors.New("stepform: submission rejected")
	ErrUnmounted    = errors.New("stepform: workflow unmounted")
)

// Config wires a Workflow.
type Config[F Form[F], R any] struct {
	Name           string
	NewForm        func() F
	Submit         SubmitFunc[F, R]
	Notifier       notification.Notifier
	Observer       SubmissionObserver
	Logger         zerolog.Logger
	SuccessMessage string
	FailureMessage string
}

// Workflow holds the state of one stepped form. Methods are safe for
// concurrent use; mutations are applied in call order.
type Workflow[F Form[F], R any] struct {
	mu         sync.Mutex
	cfg        Config[F, R]
	step       int
	form       F
	completed  bool
	submitting bool
	outcome    R
	mounted    bool
	// generation changes on Unmount; a submission started under an older
	// generation is discarded when it returns.
	generation uint64
}

// State is a point-in-time copy of a workflow.
type State[F any, R any] struct {
	Name       string `json:"name"`
	Step       int    `json:"current_step"`
	TotalSteps int    `json:"total_steps"`
	Completed  bool   `json:"completed"`
	Submitting bool   `json:"submitting"`
	Form       F      `json:"fields"`
	Outcome    R      `json:"outcome,omitempty"`
}

// New creates a workflow positioned on step 1 with a blank form.
func New[F Form[F], R any](cfg Config[F, R]) *Workflow[F, R] {
	if cfg.Notifier == nil {
		cfg.Notifier = notification.Discard
	}
	if cfg.SuccessMessage == "" {
		cfg.SuccessMessage = "Submitted successfully"
	}
	if cfg.FailureMessage == "" {
		cfg.FailureMessage = hooks.GenericFailure
	}
	return &Workflow[F, R]{cfg: cfg, step: 1, form: cfg.NewForm(), mounted: true}
}

// Snapshot returns a copy of the current state.
func (w *Workflow[F, R]) Snapshot() State[F, R] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State[F, R]{
		Name:       w.cfg.Name,
		Step:       w.step,
		TotalSteps: w.form.StepCount(),
		Completed:  w.completed,
		Submitting: w.submitting,
		Form:       w.form.Clone(),
		Outcome:    w.outcome,
	}
}

// CurrentStep returns the 1-based active step.
func (w *Workflow[F, R]) CurrentStep() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Completed reports whether the final submission succeeded.
func (w *Workflow[F, R]) Completed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.completed
}

func (w *Workflow[F, R]) editable() error {
	if !w.mounted {
		return ErrUnmounted
	}
	if w.completed {
		return ErrCompleted
	}
	if w.submitting {
		return ErrSubmitting
	}
	return nil
}

// SetField merges one field into the form without validating it.
func (w *Workflow[F, R]) SetField(key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	return w.form.SetField(key, value)
}

// SetFields merges several fields at once. Keys are applied in sorted order
// to a copy of the form, which replaces the form only when every key was
// accepted.
func (w *Workflow[F, R]) SetFields(fields map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	next := w.form.Clone()
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		if err := next.SetField(k, fields[k]); err != nil {
			return err
		}
	}
	w.form = next
	return nil
}

// ToggleMultiSelect adds value to the multi-select field key, or removes it
// when already present.
func (w *Workflow[F, R]) ToggleMultiSelect(key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	return w.form.ToggleMultiSelect(key, value)
}

// ValidateStep evaluates the step's rules. On the first failing rule a
// warning toast is shown and false is returned.
func (w *Workflow[F, R]) ValidateStep(step int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validate(step) == nil
}

func (w *Workflow[F, R]) validate(step int) error {
	if step < 1 || step > w.form.StepCount() {
		return fmt.Errorf("%w: step %d out of range", ErrValidation, step)
	}
	if err := w.form.ValidateStep(step); err != nil {
		w.cfg.Notifier.Show(err.Error(), notification.ToneWarning)
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Advance moves to the next step when the active step validates. On failure
// the step is unchanged and the validation error is returned.
func (w *Workflow[F, R]) Advance() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	if err := w.validate(w.step); err != nil {
		return err
	}
	if w.step < w.form.StepCount() {
		w.step++
	}
	return nil
}

// Retreat moves to the previous step without validating. Field values are
// kept.
func (w *Workflow[F, R]) Retreat() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	if w.step > 1 {
		w.step--
	}
	return nil
}

// Submit validates every step and hands the form to the collaborator. Only
// legal on the final step. When an earlier step no longer validates the
// workflow moves back to it. Collaborator failures leave the form untouched
// so the user can retry. A result arriving after Unmount is dropped without
// a toast.
func (w *Workflow[F, R]) Submit(ctx context.Context) error {
	w.mu.Lock()
	if err := w.editable(); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.step != w.form.StepCount() {
		w.mu.Unlock()
		return ErrNotFinalStep
	}
	for s := 1; s <= w.form.StepCount(); s++ {
		if err := w.validate(s); err != nil {
			w.step = s
			w.mu.Unlock()
			w.observe("invalid")
			return err
		}
	}
	w.submitting = true
	gen := w.generation
	form := w.form.Clone()
	w.mu.Unlock()

	res, err := w.cfg.Submit(ctx, form)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false

	if !w.mounted || gen != w.generation {
		w.cfg.Logger.Debug().Err(err).Str("form", w.cfg.Name).Bool("success", res.Success).
			Msg("discarding submission result for unmounted workflow")
		w.observe("discarded")
		return ErrUnmounted
	}

	if err != nil {
		w.cfg.Logger.Error().Err(err).Str("form", w.cfg.Name).Msg("submission failed")
		w.cfg.Notifier.Show(w.cfg.FailureMessage, notification.ToneError)
		w.observe("error")
		return fmt.Errorf("submit %s: %w", w.cfg.Name, err)
	}
	if !res.Success {
		msg := res.Message(w.cfg.FailureMessage)
		w.cfg.Notifier.Show(msg, notification.ToneError)
		w.observe("rejected")
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	w.completed = true
	w.outcome = res.Data
	w.cfg.Notifier.Show(w.cfg.SuccessMessage, notification.ToneSuccess)
	w.cfg.Logger.Info().Str("form", w.cfg.Name).Msg("form submitted")
	w.observe("ok")
	return nil
}

// Reset discards the form and returns to step 1. It is rejected while a
// submission is in flight.
func (w *Workflow[F, R]) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return ErrUnmounted
	}
	if w.submitting {
		return ErrSubmitting
	}
	var zero R
	w.step = 1
	w.form = w.cfg.NewForm()
	w.completed = false
	w.outcome = zero
	return nil
}

// Unmount detaches the workflow from its view. Further edits fail with
// ErrUnmounted and an in-flight submission is discarded when it returns.
func (w *Workflow[F, R]) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mounted = false
	w.generation++
}

func (w *Workflow[F, R]) observe(outcome string) {
	if w.cfg.Observer != nil {
		w.cfg.Observer.ObserveSubmission(w.cfg.Name, outcome)
	}
}
