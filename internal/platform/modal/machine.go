// Package modal implements the open/close lifecycle of a single modal dialog.
//
// A modal moves closed -> opening -> open -> closed. The opening state covers
// the window in which the dialog's form is being populated; a dialog that is
// not closed cannot be opened again.
package modal

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of a modal.
type State string

const (
	StateClosed  State = "closed"
	StateOpening State = "opening"
	StateOpen    State = "open"
)

// Mode selects the template that populates the form and the handler that
// runs on confirm.
type Mode string

const (
	ModeAdd     Mode = "add"
	ModeEdit    Mode = "edit"
	ModeDelete  Mode = "delete"
	ModeConfirm Mode = "confirm"
	ModeView    Mode = "view"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeAdd, ModeEdit, ModeDelete, ModeConfirm, ModeView:
		return true
	}
	return false
}

// Outcome records how the last open cycle ended.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeCancelled Outcome = "cancelled"
)

var (
	// ErrBusy is returned when a modal is opened while another cycle is active.
	ErrBusy = errors.New("modal: already open")
	// ErrNotOpen is returned when a modal is confirmed or cancelled while not open.
	ErrNotOpen = errors.New("modal: not open")
	// ErrInvalidTransition is returned for any other illegal state change.
	ErrInvalidTransition = errors.New("modal: invalid transition")
)

// Machine is the state of one modal instance. It is not safe for concurrent
// use; owners serialise access.
type Machine struct {
	state   State
	mode    Mode
	title   string
	outcome Outcome
}

// New returns a closed modal.
func New() *Machine {
	return &Machine{state: StateClosed}
}

// Begin moves a closed modal into the opening state for the given mode.
func (m *Machine) Begin(mode Mode, title string) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidTransition, mode)
	}
	if m.state != StateClosed {
		return ErrBusy
	}
	m.state = StateOpening
	m.mode = mode
	m.title = title
	m.outcome = OutcomeNone
	return nil
}

// Ready completes population and shows the modal.
func (m *Machine) Ready() error {
	if m.state != StateOpening {
		return fmt.Errorf("%w: ready from %s", ErrInvalidTransition, m.state)
	}
	m.state = StateOpen
	return nil
}

// Abort drops an opening modal back to closed, e.g. when population failed.
func (m *Machine) Abort() {
	if m.state == StateOpening {
		m.reset(OutcomeCancelled)
	}
}

// Confirm closes an open modal with the confirmed outcome.
func (m *Machine) Confirm() error {
	if m.state != StateOpen {
		return ErrNotOpen
	}
	m.reset(OutcomeConfirmed)
	return nil
}

// Cancel closes an open modal with the cancelled outcome.
func (m *Machine) Cancel() error {
	if m.state != StateOpen {
		return ErrNotOpen
	}
	m.reset(OutcomeCancelled)
	return nil
}

func (m *Machine) reset(o Outcome) {
	m.state = StateClosed
	m.mode = ""
	m.title = ""
	m.outcome = o
}

func (m *Machine) State() State     { return m.state }
func (m *Machine) Mode() Mode       { return m.mode }
func (m *Machine) Title() string    { return m.title }
func (m *Machine) Outcome() Outcome { return m.outcome }
func (m *Machine) IsOpen() bool     { return m.state == StateOpen }
func (m *Machine) IsClosed() bool   { return m.state == StateClosed }
