package stepform

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
	"github.com/ehr/clinicconsole/internal/platform/notification"
)

// surveyForm is a four-step form: step s requires field "f<s>".
type surveyForm struct {
	Fields map[string]string
	Tags   []string
}

func newSurveyForm() *surveyForm {
	return &surveyForm{Fields: map[string]string{}}
}

func (f *surveyForm) SetField(key, value string) error {
	if key == "" || strings.HasPrefix(key, "zz") {
		return errors.New("unknown field")
	}
	f.Fields[key] = value
	return nil
}

func (f *surveyForm) ToggleMultiSelect(key, value string) error {
	if key != "tags" {
		return errors.New("not a multi-select field")
	}
	if i := slices.Index(f.Tags, value); i >= 0 {
		f.Tags = slices.Delete(f.Tags, i, i+1)
		return nil
	}
	f.Tags = append(f.Tags, value)
	return nil
}

func (f *surveyForm) ValidateStep(step int) error {
	key := fmt.Sprintf("f%d", step)
	if f.Fields[key] == "" {
		return fmt.Errorf("%s is required", key)
	}
	return nil
}

func (f *surveyForm) StepCount() int { return 4 }

func (f *surveyForm) Clone() *surveyForm {
	c := &surveyForm{Fields: make(map[string]string, len(f.Fields)), Tags: slices.Clone(f.Tags)}
	for k, v := range f.Fields {
		c.Fields[k] = v
	}
	return c
}

type submitSpy struct {
	mu    sync.Mutex
	calls []*surveyForm
	res   hooks.Result[string]
	err   error
}

func (s *submitSpy) submit(_ context.Context, f *surveyForm) (hooks.Result[string], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, f)
	return s.res, s.err
}

type outcomeRecorder struct{ outcomes []string }

func (o *outcomeRecorder) ObserveSubmission(_, outcome string) {
	o.outcomes = append(o.outcomes, outcome)
}

func newTestWorkflow(spy *submitSpy) (*Workflow[*surveyForm, string], *notification.Recorder, *outcomeRecorder) {
	rec := &notification.Recorder{}
	obs := &outcomeRecorder{}
	w := New(Config[*surveyForm, string]{
		Name:           "survey",
		NewForm:        newSurveyForm,
		Submit:         spy.submit,
		Notifier:       rec,
		Observer:       obs,
		Logger:         zerolog.Nop(),
		SuccessMessage: "Survey submitted",
		FailureMessage: "Could not submit survey",
	})
	return w, rec, obs
}

func fillThrough(t *testing.T, w *Workflow[*surveyForm, string], last int) {
	t.Helper()
	for s := 1; s <= last; s++ {
		require.NoError(t, w.SetField(fmt.Sprintf("f%d", s), "value"))
	}
}

func TestWorkflow_StartsOnStepOne(t *testing.T) {
	w, _, _ := newTestWorkflow(&submitSpy{})
	st := w.Snapshot()
	assert.Equal(t, 1, st.Step)
	assert.Equal(t, 4, st.TotalSteps)
	assert.False(t, st.Completed)
}

func TestWorkflow_AdvanceIffStepValidates(t *testing.T) {
	for step := 1; step <= 3; step++ {
		t.Run(fmt.Sprintf("step %d", step), func(t *testing.T) {
			w, rec, _ := newTestWorkflow(&submitSpy{})
			fillThrough(t, w, step-1)
			for s := 1; s < step; s++ {
				require.NoError(t, w.Advance())
			}
			require.Equal(t, step, w.CurrentStep())

			valid := w.ValidateStep(step)
			assert.False(t, valid)
			err := w.Advance()
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, step, w.CurrentStep(), "step must not change on failure")

			last, ok := rec.Last()
			require.True(t, ok)
			assert.Equal(t, notification.ToneWarning, last.Tone)
			assert.Equal(t, fmt.Sprintf("f%d is required", step), last.Message)

			require.NoError(t, w.SetField(fmt.Sprintf("f%d", step), "ok"))
			assert.True(t, w.ValidateStep(step))
			require.NoError(t, w.Advance())
			assert.Equal(t, step+1, w.CurrentStep())
		})
	}
}

func TestWorkflow_ValidateReportsOnlyFirstFailure(t *testing.T) {
	w, rec, _ := newTestWorkflow(&submitSpy{})
	assert.False(t, w.ValidateStep(1))
	assert.Len(t, rec.Toasts(), 1)
}

func TestWorkflow_ValidateStepOutOfRange(t *testing.T) {
	w, rec, _ := newTestWorkflow(&submitSpy{})
	assert.False(t, w.ValidateStep(0))
	assert.False(t, w.ValidateStep(5))
	assert.Empty(t, rec.Toasts())
}

func TestWorkflow_RetreatKeepsData(t *testing.T) {
	w, _, _ := newTestWorkflow(&submitSpy{})
	require.NoError(t, w.SetField("f1", "Sunrise"))
	require.NoError(t, w.Advance())
	require.NoError(t, w.SetField("f2", "Main St"))
	before := w.Snapshot().Form

	require.NoError(t, w.Retreat())
	assert.Equal(t, 1, w.CurrentStep())
	assert.Equal(t, "Sunrise", w.Snapshot().Form.Fields["f1"])

	require.NoError(t, w.Advance())
	assert.Equal(t, 2, w.CurrentStep())
	assert.Equal(t, before, w.Snapshot().Form)
}

func TestWorkflow_RetreatIsClampedAndUnvalidated(t *testing.T) {
	w, rec, _ := newTestWorkflow(&submitSpy{})
	require.NoError(t, w.Retreat())
	assert.Equal(t, 1, w.CurrentStep())

	fillThrough(t, w, 1)
	require.NoError(t, w.Advance())
	require.NoError(t, w.SetField("f1", ""))
	require.NoError(t, w.Retreat())
	assert.Equal(t, 1, w.CurrentStep())
	assert.Empty(t, rec.Toasts())
}

func TestWorkflow_ToggleTwiceRestores(t *testing.T) {
	w, _, _ := newTestWorkflow(&submitSpy{})
	require.NoError(t, w.ToggleMultiSelect("tags", "a"))
	require.NoError(t, w.ToggleMultiSelect("tags", "b"))
	require.NoError(t, w.ToggleMultiSelect("tags", "c"))
	original := w.Snapshot().Form.Tags

	require.NoError(t, w.ToggleMultiSelect("tags", "b"))
	assert.Equal(t, []string{"a", "c"}, w.Snapshot().Form.Tags)
	require.NoError(t, w.ToggleMultiSelect("tags", "b"))
	assert.ElementsMatch(t, original, w.Snapshot().Form.Tags)

	require.NoError(t, w.ToggleMultiSelect("tags", "z"))
	require.NoError(t, w.ToggleMultiSelect("tags", "z"))
	assert.Equal(t, original, w.Snapshot().Form.Tags)
}

func TestWorkflow_SubmitOnlyOnFinalStep(t *testing.T) {
	spy := &submitSpy{res: hooks.OK("ref-1")}
	w, _, _ := newTestWorkflow(spy)
	fillThrough(t, w, 4)
	require.NoError(t, w.Advance())

	err := w.Submit(context.Background())
	require.ErrorIs(t, err, ErrNotFinalStep)
	assert.Empty(t, spy.calls)
}

func TestWorkflow_BlockedIntermediateStepNeverSubmits(t *testing.T) {
	spy := &submitSpy{res: hooks.OK("ref-1")}
	w, _, _ := newTestWorkflow(spy)
	fillThrough(t, w, 2)
	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance())
	require.Equal(t, 3, w.CurrentStep())

	require.ErrorIs(t, w.Advance(), ErrValidation)
	require.ErrorIs(t, w.Submit(context.Background()), ErrNotFinalStep)
	assert.Equal(t, 3, w.CurrentStep())
	assert.Empty(t, spy.calls, "submit collaborator must not be called")
}

func TestWorkflow_SubmitRevalidatesEarlierSteps(t *testing.T) {
	spy := &submitSpy{res: hooks.OK("ref-1")}
	w, rec, obs := newTestWorkflow(spy)
	fillThrough(t, w, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Advance())
	}
	require.NoError(t, w.SetField("f2", ""))

	err := w.Submit(context.Background())
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, spy.calls)
	last, _ := rec.Last()
	assert.Equal(t, "f2 is required", last.Message)
	assert.Equal(t, []string{"invalid"}, obs.outcomes)
	assert.Equal(t, 2, w.CurrentStep(), "workflow moves back to the failing step")
}

func TestWorkflow_SubmitSuccess(t *testing.T) {
	spy := &submitSpy{res: hooks.OK("ref-42")}
	w, rec, obs := newTestWorkflow(spy)
	fillThrough(t, w, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Advance())
	}

	require.NoError(t, w.Submit(context.Background()))
	st := w.Snapshot()
	assert.True(t, st.Completed)
	assert.False(t, st.Submitting)
	assert.Equal(t, "ref-42", st.Outcome)
	require.Len(t, spy.calls, 1)
	assert.Equal(t, "value", spy.calls[0].Fields["f4"])

	last, _ := rec.Last()
	assert.Equal(t, notification.Toast{Message: "Survey submitted", Tone: notification.ToneSuccess}, last)
	assert.Equal(t, []string{"ok"}, obs.outcomes)

	require.ErrorIs(t, w.Submit(context.Background()), ErrCompleted)
	require.ErrorIs(t, w.SetField("f1", "x"), ErrCompleted)
	assert.Len(t, spy.calls, 1)
}

func TestWorkflow_SubmitRejectedKeepsState(t *testing.T) {
	spy := &submitSpy{res: hooks.Fail[string]("A clinic with this email is already registered")}
	w, rec, obs := newTestWorkflow(spy)
	fillThrough(t, w, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Advance())
	}
	before := w.Snapshot()

	err := w.Submit(context.Background())
	require.ErrorIs(t, err, ErrRejected)
	after := w.Snapshot()
	assert.Equal(t, before, after)

	last, _ := rec.Last()
	assert.Equal(t, notification.ToneError, last.Tone)
	assert.Equal(t, "A clinic with this email is already registered", last.Message)
	assert.Equal(t, []string{"rejected"}, obs.outcomes)

	spy.res = hooks.OK("ref-2")
	require.NoError(t, w.Submit(context.Background()), "retry must be possible")
	assert.True(t, w.Completed())
}

func TestWorkflow_SubmitRejectedWithoutMessageUsesFallback(t *testing.T) {
	spy := &submitSpy{res: hooks.Result[string]{}}
	w, rec, _ := newTestWorkflow(spy)
	fillThrough(t, w, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Advance())
	}
	require.ErrorIs(t, w.Submit(context.Background()), ErrRejected)
	last, _ := rec.Last()
	assert.Equal(t, "Could not submit survey", last.Message)
}

func TestWorkflow_SubmitUnexpectedError(t *testing.T) {
	boom := errors.New("connection reset")
	spy := &submitSpy{err: boom}
	w, rec, obs := newTestWorkflow(spy)
	fillThrough(t, w, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Advance())
	}

	err := w.Submit(context.Background())
	require.ErrorIs(t, err, boom)
	st := w.Snapshot()
	assert.False(t, st.Submitting, "loading flag must be reset")
	assert.False(t, st.Completed)
	last, _ := rec.Last()
	assert.Equal(t, notification.Toast{Message: "Could not submit survey", Tone: notification.ToneError}, last)
	assert.Equal(t, []string{"error"}, obs.outcomes)
}

func TestWorkflow_EditsRejectedWhileSubmitting(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var w *Workflow[*surveyForm, string]
	w = New(Config[*surveyForm, string]{
		Name:    "survey",
		NewForm: newSurveyForm,
		Submit: func(ctx context.Context, f *surveyForm) (hooks.Result[string], error) {
			close(entered)
			<-release
			return hooks.OK("done"), nil
		},
		Logger: zerolog.Nop(),
	})
	fillThrough(t, w, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Advance())
	}

	done := make(chan error, 1)
	go func() { done <- w.Submit(context.Background()) }()
	<-entered

	assert.True(t, w.Snapshot().Submitting)
	assert.ErrorIs(t, w.SetField("f1", "late"), ErrSubmitting)
	assert.ErrorIs(t, w.Retreat(), ErrSubmitting)
	assert.ErrorIs(t, w.Submit(context.Background()), ErrSubmitting)
	assert.ErrorIs(t, w.Reset(), ErrSubmitting)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, w.Completed())
}

func TestWorkflow_UnmountDiscardsInFlightSubmission(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	rec := &notification.Recorder{}
	obs := &outcomeRecorder{}
	w := New(Config[*surveyForm, string]{
		Name:    "survey",
		NewForm: newSurveyForm,
		Submit: func(ctx context.Context, f *surveyForm) (hooks.Result[string], error) {
			close(entered)
			<-release
			return hooks.OK("late"), nil
		},
		Notifier: rec,
		Observer: obs,
		Logger:   zerolog.Nop(),
	})
	fillThrough(t, w, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Advance())
	}

	done := make(chan error, 1)
	go func() { done <- w.Submit(context.Background()) }()
	<-entered
	w.Unmount()
	close(release)

	require.ErrorIs(t, <-done, ErrUnmounted)
	st := w.Snapshot()
	assert.False(t, st.Completed)
	assert.False(t, st.Submitting)
	assert.Empty(t, st.Outcome)
	assert.Empty(t, rec.Toasts(), "late results must not toast")
	assert.Equal(t, []string{"discarded"}, obs.outcomes)

	assert.ErrorIs(t, w.SetField("f1", "x"), ErrUnmounted)
	assert.ErrorIs(t, w.Advance(), ErrUnmounted)
	assert.ErrorIs(t, w.Submit(context.Background()), ErrUnmounted)
	assert.ErrorIs(t, w.Reset(), ErrUnmounted)
}

func TestWorkflow_SetFieldsAllOrNothing(t *testing.T) {
	w, _, _ := newTestWorkflow(&submitSpy{})

	err := w.SetFields(map[string]string{"f1": "a", "f2": "b", "zz": "c"})
	require.Error(t, err)
	assert.Empty(t, w.Snapshot().Form.Fields, "no field is applied when one is rejected")

	require.NoError(t, w.SetFields(map[string]string{"f1": "a", "f2": "b"}))
	assert.Equal(t, map[string]string{"f1": "a", "f2": "b"}, w.Snapshot().Form.Fields)
}

func TestWorkflow_Reset(t *testing.T) {
	spy := &submitSpy{res: hooks.OK("ref")}
	w, _, _ := newTestWorkflow(spy)
	fillThrough(t, w, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Advance())
	}
	require.NoError(t, w.Submit(context.Background()))
	require.NoError(t, w.Reset())

	st := w.Snapshot()
	assert.Equal(t, 1, st.Step)
	assert.False(t, st.Completed)
	assert.Empty(t, st.Form.Fields)
	assert.Equal(t, "", st.Outcome)
}

func TestWorkflow_SnapshotIsACopy(t *testing.T) {
	w, _, _ := newTestWorkflow(&submitSpy{})
	require.NoError(t, w.SetField("f1", "a"))
	snap := w.Snapshot()
	snap.Form.Fields["f1"] = "mutated"
	assert.Equal(t, "a", w.Snapshot().Form.Fields["f1"])
}
