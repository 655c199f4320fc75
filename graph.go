package causax

import (
	"fmt"
	"slices"
)

// NodeIndex is a stable index into a graph's node arena. Edges reference
// nodes by index, never by pointer, so a graph can be cloned in O(edges).
type NodeIndex int

// Aggregation is the relation combining child effects at a composite node.
type Aggregation int

const (
	AggregateAll       Aggregation = iota // AND, short-circuits on first false or error
	AggregateAny                          // OR, short-circuits on first true
	AggregateThreshold                    // count of true children compared against a bound
)

func (a Aggregation) String() string {
	switch a {
	case AggregateAll:
		return "all"
	case AggregateAny:
		return "any"
	case AggregateThreshold:
		return "threshold"
	default:
		return "unknown"
	}
}

type nodeKind int

const (
	nodeUnit nodeKind = iota
	nodeAggregate
)

type node struct {
	kind      nodeKind
	unit      *Causaloid // nodeUnit only
	label     string     // nodeAggregate only
	agg       Aggregation
	threshold int
	children  []NodeIndex // edge-insertion order
}

type graphPhase int

const (
	phaseBuilding graphPhase = iota
	phaseFrozen
)

// rootIndex is the evaluation entry point: the first node added.
const rootIndex NodeIndex = 0

// Graph is a directed graph of causaloids combined via aggregation-typed
// relations. It has two phases: Building, during which nodes and edges may
// be added, and Frozen, after which the structure is validated, immutable,
// and evaluable. Freeze is one-way.
type Graph struct {
	phase graphPhase
	nodes []*node
	order []NodeIndex // topological order fixed at Freeze
}

// NewGraph creates an empty graph in the Building phase.
func NewGraph() *Graph {
	return &Graph{}
}

// Frozen reports whether the graph has been frozen.
func (g *Graph) Frozen() bool { return g.phase == phaseFrozen }

// Len returns the number of nodes in the arena.
func (g *Graph) Len() int { return len(g.nodes) }

// AddNode adds a unit node wrapping the given causaloid and returns its
// index. The first node added becomes the evaluation root.
func (g *Graph) AddNode(unit *Causaloid) (NodeIndex, error) {
	if g.phase == phaseFrozen {
		return 0, ErrGraphFrozen
	}
	if unit == nil {
		return 0, ErrNilUnit
	}
	g.nodes = append(g.nodes, &node{kind: nodeUnit, unit: unit})
	return NodeIndex(len(g.nodes) - 1), nil
}

// AddAggregate adds a composite node that combines its children with the
// given relation. threshold is only consulted for AggregateThreshold, where
// it must be positive.
func (g *Graph) AddAggregate(label string, agg Aggregation, threshold int) (NodeIndex, error) {
	if g.phase == phaseFrozen {
		return 0, ErrGraphFrozen
	}
	if agg == AggregateThreshold && threshold < 1 {
		return 0, ErrInvalidThreshold
	}
	g.nodes = append(g.nodes, &node{kind: nodeAggregate, label: label, agg: agg, threshold: threshold})
	return NodeIndex(len(g.nodes) - 1), nil
}

// AddEdge connects an aggregate node to a child. Children are evaluated in
// the order their edges were inserted.
func (g *Graph) AddEdge(from, to NodeIndex) error {
	if g.phase == phaseFrozen {
		return ErrGraphFrozen
	}
	if !g.contains(from) {
		return fmt.Errorf("%w: from index %d", ErrNodeNotFound, from)
	}
	if !g.contains(to) {
		return fmt.Errorf("%w: to index %d", ErrNodeNotFound, to)
	}
	if g.nodes[from].kind == nodeUnit {
		return fmt.Errorf("%w: index %d", ErrLeafHasChildren, from)
	}
	g.nodes[from].children = append(g.nodes[from].children, to)
	return nil
}

func (g *Graph) contains(idx NodeIndex) bool {
	return idx >= 0 && int(idx) < len(g.nodes)
}

// Freeze validates the structure and transitions the graph to the Frozen
// phase: every edge must reference an existing node, every aggregate must
// have at least one child, and the graph reachable from the root must be
// acyclic. The traversal order is fixed here so evaluation is deterministic.
// There is no transition back to Building.
func (g *Graph) Freeze() error {
	if g.phase == phaseFrozen {
		return nil
	}
	if len(g.nodes) == 0 {
		return ErrEmptyGraph
	}
	for idx, n := range g.nodes {
		for _, child := range n.children {
			if !g.contains(child) {
				return fmt.Errorf("%w: edge %d -> %d", ErrNodeNotFound, idx, child)
			}
		}
		if n.kind == nodeAggregate && len(n.children) == 0 {
			return fmt.Errorf("%w: index %d (%s)", ErrEmptyAggregate, idx, n.label)
		}
	}

	order, err := g.topologicalOrder()
	if err != nil {
		return err
	}
	g.order = order
	g.phase = phaseFrozen
	return nil
}

const (
	colorWhite = iota
	colorGray
	colorBlack
)

// topologicalOrder runs a coloring DFS over every node, rejecting cycles.
func (g *Graph) topologicalOrder() ([]NodeIndex, error) {
	colors := make([]int, len(g.nodes))
	order := make([]NodeIndex, 0, len(g.nodes))

	var visit func(idx NodeIndex) error
	visit = func(idx NodeIndex) error {
		switch colors[idx] {
		case colorBlack:
			return nil
		case colorGray:
			return fmt.Errorf("%w: at node %d", ErrCycleDetected, idx)
		}
		colors[idx] = colorGray
		for _, child := range g.nodes[idx].children {
			if err := visit(child); err != nil {
				return err
			}
		}
		colors[idx] = colorBlack
		order = append(order, idx)
		return nil
	}

	for idx := range g.nodes {
		if err := visit(NodeIndex(idx)); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Clone returns an independent copy of the graph sharing causaloid payloads
// by pointer. Cloning is O(nodes + edges) and never deep-copies units, so
// branching a frozen graph for a counterfactual pass is cheap. The clone
// keeps the original's phase.
func (g *Graph) Clone() *Graph {
	nodes := make([]*node, len(g.nodes))
	for i, n := range g.nodes {
		copied := *n
		copied.children = slices.Clone(n.children)
		nodes[i] = &copied
	}
	return &Graph{phase: g.phase, nodes: nodes, order: slices.Clone(g.order)}
}

// NodeInfo describes one node for inspection and export tooling.
type NodeInfo struct {
	Index       NodeIndex
	Label       string
	Aggregate   bool
	Aggregation Aggregation
	Threshold   int
	Unit        CausaloidID
	Children    []NodeIndex
}

// Describe returns structural information about the node at idx.
func (g *Graph) Describe(idx NodeIndex) (NodeInfo, error) {
	if !g.contains(idx) {
		return NodeInfo{}, fmt.Errorf("%w: index %d", ErrNodeNotFound, idx)
	}
	n := g.nodes[idx]
	info := NodeInfo{
		Index:       idx,
		Aggregate:   n.kind == nodeAggregate,
		Aggregation: n.agg,
		Threshold:   n.threshold,
		Children:    slices.Clone(n.children),
	}
	if n.kind == nodeUnit {
		info.Label = n.unit.Description()
		info.Unit = n.unit.ID()
	} else {
		info.Label = n.label
	}
	return info, nil
}
