package causax

import (
	"errors"
	"fmt"
)

// GraphBuilder provides a fluent API for constructing causal graphs using
// string names instead of manual index bookkeeping. Unit IDs and node
// indices are assigned sequentially in declaration order, so identical
// builder programs always produce identical graphs.
type GraphBuilder struct {
	g         *Graph
	nextID    CausaloidID
	nameToIdx map[string]NodeIndex
	idxToName map[NodeIndex]string
	edges     []builderEdge // resolved at Build so forward references work
	errs      []error
}

type builderEdge struct {
	from, to string
}

// NewGraphBuilder creates a builder whose root is an aggregate node
// combining its children with the given relation. threshold is only
// consulted for AggregateThreshold.
func NewGraphBuilder(rootName string, agg Aggregation, threshold int) *GraphBuilder {
	b := &GraphBuilder{
		g:         NewGraph(),
		nextID:    1,
		nameToIdx: make(map[string]NodeIndex),
		idxToName: make(map[NodeIndex]string),
	}
	idx, err := b.g.AddAggregate(rootName, agg, threshold)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("root %q: %w", rootName, err))
		return b
	}
	b.register(rootName, idx)
	return b
}

// Causaloid declares an atomic unit node. The name doubles as the unit's
// description and must be unique within the builder.
func (b *GraphBuilder) Causaloid(name string, fn CausalFn) *GraphBuilder {
	return b.Add(name, NewCausaloid(b.assignID(), name, fn))
}

// Contextual declares a contextual unit node bound to ctx (nil to take the
// context from the incoming effect).
func (b *GraphBuilder) Contextual(name string, fn ContextualFn, ctx *Context) *GraphBuilder {
	return b.Add(name, NewContextualCausaloid(b.assignID(), name, fn, ctx))
}

// Add attaches a prebuilt causaloid under the given name. Used for
// embedding graph- or collection-payload units.
func (b *GraphBuilder) Add(name string, unit *Causaloid) *GraphBuilder {
	if _, exists := b.nameToIdx[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("duplicate node name %q", name))
		return b
	}
	idx, err := b.g.AddNode(unit)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("node %q: %w", name, err))
		return b
	}
	b.register(name, idx)
	return b
}

// Aggregate declares a named composite node.
func (b *GraphBuilder) Aggregate(name string, agg Aggregation, threshold int) *GraphBuilder {
	if _, exists := b.nameToIdx[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("duplicate node name %q", name))
		return b
	}
	idx, err := b.g.AddAggregate(name, agg, threshold)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("aggregate %q: %w", name, err))
		return b
	}
	b.register(name, idx)
	return b
}

// Children records edges from a composite node to each named child, in
// order. Names may reference nodes declared later; resolution happens at
// Build.
func (b *GraphBuilder) Children(from string, tos ...string) *GraphBuilder {
	for _, to := range tos {
		b.edges = append(b.edges, builderEdge{from: from, to: to})
	}
	return b
}

// Build resolves edges, validates the structure, and freezes the graph.
// All accumulated declaration errors are reported together.
func (b *GraphBuilder) Build() (*Graph, error) {
	errs := b.errs
	for _, e := range b.edges {
		from, ok := b.nameToIdx[e.from]
		if !ok {
			errs = append(errs, fmt.Errorf("edge from unknown node %q", e.from))
			continue
		}
		to, ok := b.nameToIdx[e.to]
		if !ok {
			errs = append(errs, fmt.Errorf("edge to unknown node %q", e.to))
			continue
		}
		if err := b.g.AddEdge(from, to); err != nil {
			errs = append(errs, fmt.Errorf("edge %q -> %q: %w", e.from, e.to, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := b.g.Freeze(); err != nil {
		return nil, err
	}
	return b.g, nil
}

// Index returns the node index assigned to a name, or -1 if unknown.
func (b *GraphBuilder) Index(name string) NodeIndex {
	if idx, ok := b.nameToIdx[name]; ok {
		return idx
	}
	return -1
}

// Name returns the name registered for an index, or "" if unknown.
func (b *GraphBuilder) Name(idx NodeIndex) string {
	return b.idxToName[idx]
}

func (b *GraphBuilder) register(name string, idx NodeIndex) {
	b.nameToIdx[name] = idx
	b.idxToName[idx] = name
}

// assignID hands out sequential causaloid IDs in declaration order.
func (b *GraphBuilder) assignID() CausaloidID {
	id := b.nextID
	b.nextID++
	return id
}
