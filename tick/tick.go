// Package tick holds the state shared between the SysTick handler and
// foreground code, and the declarations that start SysTick.
//
// A Counter is zero when declared. Exactly one interrupt handler calls Inc;
// any goroutine may call Load. No handler writes a register owned by
// bring-up, so relaxed atomics are enough.
package tick

import (
	"errors"
	"fmt"
	"sync/atomic"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/resource"
)

// Counter is a wrapping 32-bit tick count.
type Counter struct {
	n atomic.Uint32
}

// Inc advances the counter. Call it from the owning handler only.
func (c *Counter) Inc() uint32 { return c.n.Add(1) }

// Load returns the current count.
func (c *Counter) Load() uint32 { return c.n.Load() }

// Since returns the ticks elapsed after start, across wraparound.
func (c *Counter) Since(start uint32) uint32 { return c.Load() - start }

var ErrRate = errors.New("unreachable tick rate")

// SysTickIRQ is the interrupt number of SysTick in the core exception range.
const SysTickIRQ = -1

// ARMv7-M system timer and priority registers.
var (
	CSR   = bitfield.Register{Name: "SYST_CSR", Address: 0xE000E010, Width: 32}
	RVR   = bitfield.Register{Name: "SYST_RVR", Address: 0xE000E014, Width: 32}
	SHPR3 = bitfield.Register{Name: "SHPR3", Address: 0xE000ED20, Width: 32}
)

// Config describes the tick source.
type Config struct {
	CoreClock uint32 // Hz
	Rate      uint32 // ticks per second
	Priority  uint8
	Handler   resource.Handler
}

// Reload returns the RVR value for cfg.
func (cfg Config) Reload() (uint64, error) {
	if cfg.Rate == 0 || cfg.CoreClock < cfg.Rate {
		return 0, fmt.Errorf("%w: %d Hz from %d Hz core clock", ErrRate, cfg.Rate, cfg.CoreClock)
	}
	return uint64(cfg.CoreClock/cfg.Rate - 1), nil
}

// Resources declares the SysTick reload value, priority and handler binding.
// The counter is started by Start, which belongs in a later phase.
func Resources(cfg Config) (resource.Set, error) {
	reload, err := cfg.Reload()
	if err != nil {
		return resource.Set{}, err
	}
	rvr, err := bitfield.Define(RVR, 0, 24)
	if err != nil {
		return resource.Set{}, err
	}
	reloadMask, err := rvr.WithValue(reload)
	if err != nil {
		return resource.Set{}, fmt.Errorf("systick reload: %w", err)
	}
	pri, err := bitfield.Define(SHPR3, 24, 8)
	if err != nil {
		return resource.Set{}, err
	}
	priMask, err := pri.WithValue(uint64(cfg.Priority))
	if err != nil {
		return resource.Set{}, err
	}

	return resource.NewSet("systick",
		resource.Unique{Tag: "systick"},
		resource.Write(reloadMask),
		resource.Write(priMask),
		resource.Bind(SysTickIRQ, cfg.Handler),
	), nil
}

// Start declares ENABLE, TICKINT and CLKSOURCE (processor clock).
func Start() resource.Set {
	return resource.NewSet("systick-start", resource.Write(bitfield.Mask{Reg: CSR, Set: 0x7, Clear: 0x7}))
}
