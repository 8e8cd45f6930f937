package panel

import (
	"context"
	"fmt"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
	"github.com/ehr/clinicconsole/internal/platform/notification"
)

// Refresh replaces the collection with the backend's list. A result that
// arrives after a newer refresh started, or after the panel was unmounted, is
// discarded and ErrStale is returned. Panels without a backend keep their
// local items.
func (p *Panel[T, F]) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if !p.mounted {
		p.mu.Unlock()
		return ErrUnmounted
	}
	if p.cfg.Backend == nil {
		p.mu.Unlock()
		return nil
	}
	p.generation++
	gen := p.generation
	p.loading = true
	p.mu.Unlock()

	res, err := p.cfg.Backend.List(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted || gen != p.generation {
		p.cfg.Logger.Debug().Str("panel", p.cfg.Name).Uint64("generation", gen).Msg("discarding stale list")
		return ErrStale
	}
	p.loading = false

	if err != nil {
		p.cfg.Logger.Error().Err(err).Str("panel", p.cfg.Name).Msg("list failed")
		p.cfg.Notifier.Show(hooks.GenericFailure, notification.ToneError)
		p.observe("list", "error")
		return fmt.Errorf("%s list: %w", p.cfg.Name, err)
	}
	if !res.Success {
		msg := res.Message("Failed to load " + p.cfg.Title)
		p.cfg.Notifier.Show(msg, notification.ToneError)
		p.observe("list", "rejected")
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	p.items = append([]T(nil), res.Data...)
	p.observe("list", "ok")
	return nil
}

// Unmount detaches the panel. In-flight results are dropped when they return
// and later operations fail with ErrUnmounted.
func (p *Panel[T, F]) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = false
	p.loading = false
	p.generation++
	if p.modal.IsOpen() {
		_ = p.modal.Cancel()
	}
	p.modal.Abort()
	p.clearContext()
}

// Mounted reports whether the panel still accepts operations.
func (p *Panel[T, F]) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mounted
}
