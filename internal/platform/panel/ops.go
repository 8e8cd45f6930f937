package panel

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
	"github.com/ehr/clinicconsole/internal/platform/modal"
	"github.com/ehr/clinicconsole/internal/platform/notification"
)

// -- Opening --

// begin starts a modal cycle. Callers hold p.mu.
func (p *Panel[T, F]) begin(mode modal.Mode, title string, selected *T, form F, action *Action[T]) error {
	if !p.mounted {
		return ErrUnmounted
	}
	if p.pending {
		return modal.ErrBusy
	}
	if err := p.modal.Begin(mode, title); err != nil {
		return err
	}
	p.selected = selected
	p.form = form
	p.action = action
	return p.modal.Ready()
}

// OpenAdd opens the modal with a blank form.
func (p *Panel[T, F]) OpenAdd() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.begin(modal.ModeAdd, "Add "+p.cfg.Title, nil, p.cfg.Template.Blank(), nil)
}

// OpenEdit opens the modal with the entity's current fields.
func (p *Panel[T, F]) OpenEdit(entity T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.begin(modal.ModeEdit, "Edit "+p.cfg.Title, &entity, p.cfg.Template.FromEntity(entity), nil)
}

// OpenDelete opens the delete confirmation for the entity.
func (p *Panel[T, F]) OpenDelete(entity T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var blank F
	return p.begin(modal.ModeDelete, "Delete "+p.cfg.Title, &entity, blank, nil)
}

// OpenView opens a read-only view of the entity.
func (p *Panel[T, F]) OpenView(entity T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var blank F
	return p.begin(modal.ModeView, p.cfg.Title+" Details", &entity, blank, nil)
}

// OpenConfirm opens a confirm-mode modal for the named action.
func (p *Panel[T, F]) OpenConfirm(entity T, action string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, err := p.lookupAction(action)
	if err != nil {
		return err
	}
	if a.Allowed != nil && !a.Allowed(entity) {
		return fmt.Errorf("%w: %s", ErrActionNotAllowed, action)
	}
	var blank F
	return p.begin(modal.ModeConfirm, a.Title, &entity, blank, a)
}

func (p *Panel[T, F]) lookupAction(name string) (*Action[T], error) {
	for i := range p.cfg.Actions {
		if p.cfg.Actions[i].Name == name {
			return &p.cfg.Actions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// OpenEditByID, OpenDeleteByID, OpenViewByID and OpenConfirmByID resolve the
// entity from the collection first.

func (p *Panel[T, F]) OpenEditByID(id string) error {
	it, err := p.lookup(id)
	if err != nil {
		return err
	}
	return p.OpenEdit(it)
}

func (p *Panel[T, F]) OpenDeleteByID(id string) error {
	it, err := p.lookup(id)
	if err != nil {
		return err
	}
	return p.OpenDelete(it)
}

func (p *Panel[T, F]) OpenViewByID(id string) error {
	it, err := p.lookup(id)
	if err != nil {
		return err
	}
	return p.OpenView(it)
}

func (p *Panel[T, F]) OpenConfirmByID(id, action string) error {
	it, err := p.lookup(id)
	if err != nil {
		return err
	}
	return p.OpenConfirm(it, action)
}

func (p *Panel[T, F]) lookup(id string) (T, error) {
	it, ok := p.Get(id)
	if !ok {
		return it, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return it, nil
}

// -- Editing --

// SetField edits the bound form. Only valid in add and edit mode.
func (p *Panel[T, F]) SetField(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireMode(modal.ModeAdd, modal.ModeEdit); err != nil {
		return err
	}
	if p.pending {
		return modal.ErrBusy
	}
	return p.form.SetField(key, value)
}

// SetFields edits several fields of the bound form at once. Keys are applied
// in sorted order to a copy, which replaces the form only when every key was
// accepted.
func (p *Panel[T, F]) SetFields(fields map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireMode(modal.ModeAdd, modal.ModeEdit); err != nil {
		return err
	}
	if p.pending {
		return modal.ErrBusy
	}
	next := p.form.Clone()
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		if err := next.SetField(k, fields[k]); err != nil {
			return err
		}
	}
	p.form = next
	return nil
}

// Cancel closes the modal without changing the collection.
func (p *Panel[T, F]) Cancel() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending {
		return modal.ErrBusy
	}
	if err := p.modal.Cancel(); err != nil {
		return err
	}
	p.clearContext()
	return nil
}

func (p *Panel[T, F]) requireMode(modes ...modal.Mode) error {
	if !p.modal.IsOpen() {
		return modal.ErrNotOpen
	}
	for _, m := range modes {
		if p.modal.Mode() == m {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWrongMode, p.modal.Mode())
}

func (p *Panel[T, F]) clearContext() {
	var blank F
	p.selected = nil
	p.form = blank
	p.action = nil
}

// -- Confirming --

// ConfirmSave applies the bound form. In add mode a new item with a fresh id
// is appended; in edit mode the selected item is replaced by a merged copy.
// A missing required field shows a warning and leaves everything unchanged.
func (p *Panel[T, F]) ConfirmSave(ctx context.Context) error {
	p.mu.Lock()
	if err := p.requireMode(modal.ModeAdd, modal.ModeEdit); err != nil {
		p.mu.Unlock()
		return err
	}
	if p.pending {
		p.mu.Unlock()
		return modal.ErrBusy
	}
	op := "save"
	if err := p.form.Validate(); err != nil {
		p.cfg.Notifier.Show(err.Error(), notification.ToneWarning)
		p.mu.Unlock()
		p.observe(op, "invalid")
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	adding := p.modal.Mode() == modal.ModeAdd
	var item T
	if adding {
		item = p.form.Build(p.freshID())
	} else {
		item = p.form.Merge(*p.selected)
	}

	if p.cfg.Backend == nil {
		defer p.mu.Unlock()
		p.commitSave(item, adding)
		p.observe(op, "ok")
		return nil
	}

	p.pending = true
	p.mu.Unlock()

	var (
		res hooks.Result[T]
		err error
	)
	if adding {
		res, err = p.cfg.Backend.Create(ctx, item)
	} else {
		res, err = p.cfg.Backend.Update(ctx, item)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = false
	if !p.mounted {
		return ErrStale
	}
	if err := p.backendFailure(op, res.Success, res.Error, err); err != nil {
		return err
	}
	p.commitSave(res.Data, adding)
	p.observe(op, "ok")
	return nil
}

func (p *Panel[T, F]) commitSave(item T, adding bool) {
	if adding {
		p.items = append(p.items, item)
		p.notifySuccess(p.cfg.Title + " added successfully")
	} else {
		for i := range p.items {
			if p.items[i].EntityID() == item.EntityID() {
				p.items[i] = item
				break
			}
		}
		p.notifySuccess(p.cfg.Title + " updated successfully")
	}
	if ex := p.cfg.Exclusive; ex != nil && ex.Get(item) {
		p.applyExclusive(item.EntityID())
	}
	_ = p.modal.Confirm()
	p.clearContext()
}

// ConfirmDelete removes the selected item. An id that is no longer present
// leaves the collection unchanged.
func (p *Panel[T, F]) ConfirmDelete(ctx context.Context) error {
	p.mu.Lock()
	if err := p.requireMode(modal.ModeDelete); err != nil {
		p.mu.Unlock()
		return err
	}
	if p.pending {
		p.mu.Unlock()
		return modal.ErrBusy
	}
	id := (*p.selected).EntityID()
	op := "delete"

	if p.cfg.Backend == nil {
		defer p.mu.Unlock()
		p.commitDelete(id)
		p.observe(op, "ok")
		return nil
	}

	p.pending = true
	p.mu.Unlock()

	res, err := p.cfg.Backend.Delete(ctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = false
	if !p.mounted {
		return ErrStale
	}
	if err := p.backendFailure(op, res.Success, res.Error, err); err != nil {
		return err
	}
	p.commitDelete(id)
	p.observe(op, "ok")
	return nil
}

func (p *Panel[T, F]) commitDelete(id string) {
	kept := p.items[:0:0]
	for _, it := range p.items {
		if it.EntityID() != id {
			kept = append(kept, it)
		}
	}
	p.items = kept
	p.cfg.Notifier.Show(p.cfg.Title+" removed", notification.ToneWarning)
	_ = p.modal.Confirm()
	p.clearContext()
}

// ConfirmAction applies the selected action to the selected item.
func (p *Panel[T, F]) ConfirmAction(ctx context.Context) error {
	p.mu.Lock()
	if err := p.requireMode(modal.ModeConfirm); err != nil {
		p.mu.Unlock()
		return err
	}
	if p.pending {
		p.mu.Unlock()
		return modal.ErrBusy
	}
	action := p.action
	op := "action:" + action.Name
	item := action.Apply(*p.selected)

	if p.cfg.Backend == nil {
		defer p.mu.Unlock()
		p.commitAction(item, action)
		p.observe(op, "ok")
		return nil
	}

	p.pending = true
	p.mu.Unlock()

	res, err := p.cfg.Backend.Update(ctx, item)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = false
	if !p.mounted {
		return ErrStale
	}
	if err := p.backendFailure(op, res.Success, res.Error, err); err != nil {
		return err
	}
	p.commitAction(res.Data, action)
	p.observe(op, "ok")
	return nil
}

func (p *Panel[T, F]) commitAction(item T, action *Action[T]) {
	for i := range p.items {
		if p.items[i].EntityID() == item.EntityID() {
			p.items[i] = item
			break
		}
	}
	p.notifySuccess(action.Message)
	_ = p.modal.Confirm()
	p.clearContext()
}

// ConfirmView closes a read-only modal.
func (p *Panel[T, F]) ConfirmView() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireMode(modal.ModeView); err != nil {
		return err
	}
	_ = p.modal.Confirm()
	p.clearContext()
	return nil
}

// backendFailure turns a failed backend call into a toast and an error. The
// modal stays open so the user can retry or cancel.
func (p *Panel[T, F]) backendFailure(op string, success bool, message string, err error) error {
	if err != nil {
		p.cfg.Logger.Error().Err(err).Str("panel", p.cfg.Name).Str("operation", op).Msg("backend call failed")
		p.cfg.Notifier.Show(hooks.GenericFailure, notification.ToneError)
		p.observe(op, "error")
		return fmt.Errorf("%s %s: %w", p.cfg.Name, op, err)
	}
	if !success {
		msg := hooks.Result[struct{}]{Error: message}.Message("")
		p.cfg.Notifier.Show(msg, notification.ToneError)
		p.observe(op, "rejected")
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return nil
}

func (p *Panel[T, F]) notifySuccess(msg string) {
	if msg != "" {
		p.cfg.Notifier.Show(msg, notification.ToneSuccess)
	}
}

// freshID draws ids until one does not collide with an existing item.
func (p *Panel[T, F]) freshID() string {
	for {
		id := p.cfg.NewID()
		if _, taken := p.find(id); !taken && id != "" {
			return id
		}
	}
}

// -- Exclusive flag --

// SetExclusiveFlag sets the exclusive flag on the item with id and clears it
// on every other item in a single pass. Unknown ids change nothing.
func (p *Panel[T, F]) SetExclusiveFlag(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg.Exclusive == nil {
		return ErrNoExclusiveFlag
	}
	if !p.modal.IsClosed() || p.pending {
		return modal.ErrBusy
	}
	if !p.applyExclusive(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.notifySuccess(fmt.Sprintf("%s set as %s", p.cfg.Title, p.cfg.Exclusive.Label))
	p.observe("exclusive", "ok")
	return nil
}

func (p *Panel[T, F]) applyExclusive(id string) bool {
	ex := p.cfg.Exclusive
	next := make([]T, len(p.items))
	found := false
	for i, it := range p.items {
		on := it.EntityID() == id
		found = found || on
		next[i] = ex.Set(it, on)
	}
	if found {
		p.items = next
	}
	return found
}
