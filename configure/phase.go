package configure

import (
	"fmt"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"omibyte.io/bringup/resource"
)

// Phase is a group of declarations whose writes are issued together. After
// names the phases whose writes must land first, such as clock enables
// before peripheral setup.
type Phase struct {
	Name      string
	After     []string
	Resources resource.Set
}

func (ph Phase) set() resource.Set {
	if ph.Name == "" {
		return ph.Resources
	}
	return resource.NewSet(ph.Name, ph.Resources)
}

// Order sorts phases so every phase follows the phases it names in After.
// Independent phases keep their declaration order.
func Order(phases []Phase) ([]Phase, error) {
	index := make(map[string]int64, len(phases))
	g := simple.NewDirectedGraph()
	for i, ph := range phases {
		if _, ok := index[ph.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePhase, ph.Name)
		}
		index[ph.Name] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for i, ph := range phases {
		for _, dep := range ph.After {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("phase %q after %q: %w", ph.Name, dep, ErrUnknownPhase)
			}
			if j == int64(i) {
				return nil, fmt.Errorf("phase %q after itself: %w", ph.Name, ErrPhaseCycle)
			}
			g.SetEdge(g.NewEdge(simple.Node(j), simple.Node(i)))
		}
	}

	sorted, err := topo.SortStabilized(g, byID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhaseCycle, err)
	}
	out := make([]Phase, len(sorted))
	for i, n := range sorted {
		out[i] = phases[n.ID()]
	}
	return out, nil
}

func byID(nodes []graph.Node) {
	slices.SortFunc(nodes, func(a, b graph.Node) bool { return a.ID() < b.ID() })
}
