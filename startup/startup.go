// Package startup sequences bring-up: configure the hardware, unmask
// interrupts, then hand control to the application.
package startup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

var ErrHalted = errors.New("bring-up halted")

// Configurer performs the one-shot hardware configuration.
type Configurer interface {
	Configure(ctx context.Context) error
}

// Interrupts is the global interrupt mask.
type Interrupts interface {
	Enable()
}

// App is the application entry point.
type App func(ctx context.Context) error

// Harness owns the startup sequence.
type Harness struct {
	Config     Configurer
	Interrupts Interrupts
	Logger     *slog.Logger
}

// Boot configures, unmasks interrupts and runs app. If configuration fails
// interrupts stay masked, app never runs and the error wraps ErrHalted.
func (h Harness) Boot(ctx context.Context, app App) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := h.Config.Configure(ctx); err != nil {
		logger.Error("bring-up failed", slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrHalted, err)
	}
	h.Interrupts.Enable()
	logger.Debug("interrupts enabled")
	if app == nil {
		return nil
	}
	return app(ctx)
}

// Gate is an interrupt mask for simulation. It starts masked.
type Gate struct {
	enabled atomic.Bool
}

func (g *Gate) Enable()  { g.enabled.Store(true) }
func (g *Gate) Disable() { g.enabled.Store(false) }

// Enabled reports whether interrupts are unmasked.
func (g *Gate) Enabled() bool { return g.enabled.Load() }
