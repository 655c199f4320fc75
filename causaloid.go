package causax

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
)

type CausaloidID uint64

// CausalFn is an atomic causal function: observation in, boolean effect out.
// Failures are returned via FromError, never panicked.
type CausalFn func(in Effect[float64]) Effect[bool]

// ContextualFn additionally receives the accumulated process state and a
// read-only context reference.
type ContextualFn func(in Effect[float64], state ProcessState, ctx *Context) Effect[bool]

type payloadKind int

const (
	payloadFunc payloadKind = iota
	payloadContextual
	payloadGraph
	payloadCollection
)

// Causaloid is the atomic or composite causal reasoning unit. Its payload is
// exactly one of: an atomic function, a contextual function, an embedded
// graph, or a collection of units. The payload kind is fixed at construction;
// a causaloid is immutable afterwards and may be shared across graphs and
// alternate contexts by pointer.
type Causaloid struct {
	id          CausaloidID
	description string
	kind        payloadKind

	fn    CausalFn
	ctxFn ContextualFn
	ctx   *Context // optional bound context for contextual units

	graph *Graph

	members   []*Causaloid
	memberAgg Aggregation
	threshold int

	mu      sync.Mutex
	lastLog []AuditEntry
}

// NewCausaloid creates an atomic unit wrapping fn.
func NewCausaloid(id CausaloidID, description string, fn CausalFn) *Causaloid {
	return &Causaloid{id: id, description: description, kind: payloadFunc, fn: fn}
}

// NewContextualCausaloid creates a unit whose function queries a context.
// ctx may be nil, in which case the context attached to the incoming Effect
// is used; if neither is present, evaluation yields ErrContextMissing.
func NewContextualCausaloid(id CausaloidID, description string, fn ContextualFn, ctx *Context) *Causaloid {
	return &Causaloid{id: id, description: description, kind: payloadContextual, ctxFn: fn, ctx: ctx}
}

// FromGraph creates a composite unit that delegates to an embedded graph.
// The graph must already be frozen.
func FromGraph(id CausaloidID, description string, g *Graph) (*Causaloid, error) {
	if g == nil {
		return nil, ErrNilUnit
	}
	if !g.Frozen() {
		return nil, ErrGraphNotFrozen
	}
	return &Causaloid{id: id, description: description, kind: payloadGraph, graph: g}, nil
}

// FromCollection creates a composite unit that aggregates member results
// with the given relation. threshold is only consulted for
// AggregateThreshold.
func FromCollection(id CausaloidID, description string, agg Aggregation, threshold int, members ...*Causaloid) (*Causaloid, error) {
	if len(members) == 0 {
		return nil, ErrEmptyAggregate
	}
	if slices.Contains(members, (*Causaloid)(nil)) {
		return nil, ErrNilUnit
	}
	if agg == AggregateThreshold && threshold < 1 {
		return nil, ErrInvalidThreshold
	}
	return &Causaloid{
		id: id, description: description, kind: payloadCollection,
		members: slices.Clone(members), memberAgg: agg, threshold: threshold,
	}, nil
}

// ID returns the unit's stable numeric identity.
func (c *Causaloid) ID() CausaloidID { return c.id }

// Description returns the unit's human-readable explanation string.
func (c *Causaloid) Description() string { return c.description }

// IsComposite reports whether the payload is a graph or a collection.
func (c *Causaloid) IsComposite() bool {
	return c.kind == payloadGraph || c.kind == payloadCollection
}

// Evaluate runs the unit against the incoming effect and returns the boolean
// outcome. Non-finite observations and panics inside the wrapped function are
// converted to Error effects at this boundary; evaluation never panics.
// Failures are attributed to this unit in both the error and the audit log.
func (c *Causaloid) Evaluate(in Effect[float64]) Effect[bool] {
	out := c.evaluate(in)
	if out.IsErr() {
		var uerr *UnitError
		if !errors.As(out.err, &uerr) || uerr.Unit != c.id {
			out.err = &UnitError{Unit: c.id, Description: c.description, Err: out.err}
		}
		out.log = append(out.log, AuditEntry{Kind: AuditError, Unit: c.id, Detail: out.err.Error()})
	} else {
		out.log = append(out.log, AuditEntry{Kind: AuditEvaluate, Unit: c.id, Detail: c.outcome(out)})
	}
	c.mu.Lock()
	c.lastLog = slices.Clone(out.log)
	c.mu.Unlock()
	return out
}

func (c *Causaloid) evaluate(in Effect[float64]) (out Effect[bool]) {
	if !in.IsErr() && !isFinite(in.Value()) {
		return c.fail(in, fmt.Errorf("%w: observation %v", ErrNumericalInstability, in.Value()))
	}

	defer func() {
		if r := recover(); r != nil {
			out = c.fail(in, fmt.Errorf("%w: panic in causal function: %v", ErrNumericalInstability, r))
		}
	}()

	switch c.kind {
	case payloadFunc:
		return c.fn(in)
	case payloadContextual:
		ctx := c.ctx
		if ctx == nil {
			ctx = in.Context()
		}
		if ctx == nil {
			return c.fail(in, ErrContextMissing)
		}
		return c.ctxFn(in, in.state, ctx)
	case payloadGraph:
		return c.graph.Evaluate(in)
	case payloadCollection:
		evals := make([]childEval, len(c.members))
		for i, m := range c.members {
			evals[i] = childEval{unit: m.id, eval: m.Evaluate}
		}
		return aggregate(in, c.memberAgg, c.threshold, evals)
	default:
		return c.fail(in, fmt.Errorf("causax: unknown payload kind %d", c.kind))
	}
}

// fail builds an error effect preserving the incoming log and state so the
// caller can reconstruct why evaluation stopped here. Evaluate attributes
// the error to this unit.
func (c *Causaloid) fail(in Effect[float64], err error) Effect[bool] {
	return Effect[bool]{
		err:   err,
		state: in.state,
		ctx:   in.ctx,
		log:   slices.Clone(in.log),
	}
}

func (c *Causaloid) outcome(out Effect[bool]) string {
	if out.IsErr() {
		return fmt.Sprintf("%s: error: %v", c.description, out.Err())
	}
	return fmt.Sprintf("%s: %t", c.description, out.Value())
}

// Explain renders the audit log of the last evaluation as a human-readable
// trace, one step per line. Before the first evaluation it says so.
func (c *Causaloid) Explain() string {
	c.mu.Lock()
	log := c.lastLog
	c.mu.Unlock()
	if len(log) == 0 {
		return fmt.Sprintf("unit %d (%s): not yet evaluated", c.id, c.description)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "unit %d (%s):\n", c.id, c.description)
	for _, entry := range log {
		b.WriteString("  ")
		b.WriteString(entry.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
