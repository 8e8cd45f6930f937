package panel

import (
	"context"
	"fmt"

	"github.com/ehr/clinicconsole/internal/platform/modal"
)

// Controller is the type-erased surface of a Panel, used by transports that
// address panels by name and items by id.
type Controller interface {
	Name() string
	Len() int
	View() View
	OpenAdd() error
	OpenEditByID(id string) error
	OpenDeleteByID(id string) error
	OpenViewByID(id string) error
	OpenConfirmByID(id, action string) error
	SetField(key, value string) error
	SetFields(fields map[string]string) error
	Confirm(ctx context.Context) error
	ConfirmSave(ctx context.Context) error
	ConfirmDelete(ctx context.Context) error
	Cancel() error
	SetExclusiveFlag(id string) error
	Refresh(ctx context.Context) error
	Unmount()
}

// Confirm runs the confirm handler for the open modal's mode.
func (p *Panel[T, F]) Confirm(ctx context.Context) error {
	p.mu.Lock()
	mode := p.modal.Mode()
	open := p.modal.IsOpen()
	p.mu.Unlock()
	if !open {
		return modal.ErrNotOpen
	}
	switch mode {
	case modal.ModeAdd, modal.ModeEdit:
		return p.ConfirmSave(ctx)
	case modal.ModeDelete:
		return p.ConfirmDelete(ctx)
	case modal.ModeConfirm:
		return p.ConfirmAction(ctx)
	case modal.ModeView:
		return p.ConfirmView()
	}
	return fmt.Errorf("%w: %s", ErrWrongMode, mode)
}
