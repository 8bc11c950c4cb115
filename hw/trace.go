package hw

import (
	"context"
	"fmt"
	"log/slog"
)

// Access is one recorded backend call.
type Access struct {
	Store bool
	Addr  uint32
	Value uint64
}

// Trace forwards to a backend, recording and logging every access.
type Trace struct {
	Backend  Backend
	Logger   *slog.Logger
	Accesses []Access
}

// NewTrace wraps b. A nil logger uses slog.Default.
func NewTrace(b Backend, logger *slog.Logger) *Trace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trace{Backend: b, Logger: logger}
}

func (t *Trace) Load(addr uint32) (uint64, error) {
	v, err := t.Backend.Load(addr)
	if err != nil {
		return 0, err
	}
	t.record(Access{Addr: addr, Value: v})
	return v, nil
}

func (t *Trace) Store(addr uint32, value uint64) error {
	if err := t.Backend.Store(addr, value); err != nil {
		return err
	}
	t.record(Access{Store: true, Addr: addr, Value: value})
	return nil
}

// Stores returns the recorded stores in order.
func (t *Trace) Stores() []Access {
	var out []Access
	for _, a := range t.Accesses {
		if a.Store {
			out = append(out, a)
		}
	}
	return out
}

func (t *Trace) record(a Access) {
	t.Accesses = append(t.Accesses, a)
	op := "load"
	if a.Store {
		op = "store"
	}
	t.Logger.LogAttrs(context.Background(), slog.LevelDebug, "register",
		slog.String("op", op),
		slog.String("addr", fmt.Sprintf("%#08x", a.Addr)),
		slog.String("value", fmt.Sprintf("%#x", a.Value)),
	)
}

var _ Backend = (*Trace)(nil)
var _ Backend = (*Memory)(nil)
