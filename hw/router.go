package hw

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Router dispatches accesses by address. Accesses inside a window added with
// Map go to that window's backend with the window start subtracted; the rest
// go to the fallback backend.
type Router struct {
	fallback Backend
	windows  []window
}

type window struct {
	start, end uint32 // inclusive
	b          Backend
}

// NewRouter returns a router sending unmapped accesses to fallback, which
// may be nil.
func NewRouter(fallback Backend) *Router {
	return &Router{fallback: fallback}
}

// Map routes [start, start+size) to b.
func (r *Router) Map(start, size uint32, b Backend) error {
	if size == 0 || start+size-1 < start {
		return fmt.Errorf("window %#08x+%#x: %w", start, size, ErrWindow)
	}
	w := window{start: start, end: start + size - 1, b: b}
	for _, o := range r.windows {
		if w.start <= o.end && o.start <= w.end {
			return fmt.Errorf("window %#08x-%#08x overlaps %#08x-%#08x: %w", w.start, w.end, o.start, o.end, ErrWindow)
		}
	}
	r.windows = append(r.windows, w)
	slices.SortFunc(r.windows, func(a, b window) bool { return a.start < b.start })
	return nil
}

func (r *Router) route(addr uint32) (Backend, uint32, error) {
	i, found := slices.BinarySearchFunc(r.windows, addr, func(w window, addr uint32) int {
		switch {
		case w.end < addr:
			return -1
		case w.start > addr:
			return 1
		}
		return 0
	})
	if found {
		return r.windows[i].b, addr - r.windows[i].start, nil
	}
	if r.fallback == nil {
		return nil, 0, fmt.Errorf("%#08x: %w", addr, ErrUnmapped)
	}
	return r.fallback, addr, nil
}

func (r *Router) Load(addr uint32) (uint64, error) {
	b, off, err := r.route(addr)
	if err != nil {
		return 0, err
	}
	return b.Load(off)
}

func (r *Router) Store(addr uint32, value uint64) error {
	b, off, err := r.route(addr)
	if err != nil {
		return err
	}
	return b.Store(off, value)
}

var _ Backend = (*Router)(nil)
