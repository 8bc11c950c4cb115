package resource

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Set is a named, ordered collection of claims and nested sets. A peripheral
// module exposes its requirements as a Set.
type Set struct {
	Name  string
	Items []Item
}

func (Set) isItem() {}

// NewSet returns a set holding items in order.
func NewSet(name string, items ...Item) Set {
	return Set{Name: name, Items: items}
}

// Add appends items and returns the set.
func (s Set) Add(items ...Item) Set {
	s.Items = append(slices.Clip(s.Items), items...)
	return s
}

// Declared is a flattened claim together with the path of the sets that
// declared it.
type Declared struct {
	Claim  Claim
	Origin string
}

// Flatten expands s depth-first in declaration order.
func Flatten(s Set) []Declared {
	var out []Declared
	flatten(s, "", &out)
	return out
}

func flatten(s Set, prefix string, out *[]Declared) {
	path := s.Name
	if prefix != "" {
		if path == "" {
			path = prefix
		} else {
			path = prefix + "/" + path
		}
	}
	for _, item := range s.Items {
		switch it := item.(type) {
		case Set:
			flatten(it, path, out)
		case *Set:
			if it != nil {
				flatten(*it, path, out)
			}
		case Claim:
			*out = append(*out, Declared{Claim: it, Origin: path})
		}
	}
}

// Groups maps each target to the claims declared on it, preserving
// declaration order inside a group.
type Groups struct {
	byTarget map[Target][]Declared
}

// GroupByTarget groups flattened claims by target.
func GroupByTarget(decls []Declared) *Groups {
	g := &Groups{byTarget: make(map[Target][]Declared)}
	for _, d := range decls {
		t := d.Claim.Target()
		g.byTarget[t] = append(g.byTarget[t], d)
	}
	return g
}

// Len returns the number of distinct targets.
func (g *Groups) Len() int { return len(g.byTarget) }

// Get returns the claims declared on t.
func (g *Groups) Get(t Target) []Declared { return g.byTarget[t] }

// Targets returns every target, ordered by kind, then address, irq number
// and tag.
func (g *Groups) Targets() []Target {
	keys := maps.Keys(g.byTarget)
	slices.SortFunc(keys, targetLess)
	return keys
}

// OfKind returns the targets of one kind in Targets order.
func (g *Groups) OfKind(k Kind) []Target {
	var out []Target
	for _, t := range g.Targets() {
		if t.Kind == k {
			out = append(out, t)
		}
	}
	return out
}

// Origins returns the origins of decls in order.
func Origins(decls []Declared) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = d.Origin
	}
	return out
}

func targetLess(a, b Target) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Addr != b.Addr {
		return a.Addr < b.Addr
	}
	if a.IRQ != b.IRQ {
		return a.IRQ < b.IRQ
	}
	return a.Tag < b.Tag
}
