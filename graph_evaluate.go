package causax

import (
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Evaluate runs the frozen graph against the incoming effect, depth-first
// from the root. Composite nodes combine child results per their aggregation
// relation; children are visited in edge-insertion order. Calling Evaluate
// on a building-phase graph yields ErrGraphNotFrozen inside the Effect.
func (g *Graph) Evaluate(in Effect[float64]) Effect[bool] {
	if g.phase != phaseFrozen {
		return FromError[bool](ErrGraphNotFrozen)
	}
	return g.evaluateNode(rootIndex, in)
}

func (g *Graph) evaluateNode(idx NodeIndex, in Effect[float64]) Effect[bool] {
	n := g.nodes[idx]
	if n.kind == nodeUnit {
		return n.unit.Evaluate(in)
	}
	evals := make([]childEval, len(n.children))
	for i, child := range n.children {
		child := child
		evals[i] = childEval{
			unit: g.unitIDAt(child),
			eval: func(e Effect[float64]) Effect[bool] { return g.evaluateNode(child, e) },
		}
	}
	return aggregate(in, n.agg, n.threshold, evals)
}

// EvaluateParallel evaluates the root's child subtrees on worker goroutines
// and combines the collected results in edge-insertion order, so the
// aggregation outcome and audit log are identical to sequential Evaluate.
// Workers hold only read access to shared context. limit bounds concurrent
// subtrees; limit <= 0 means one worker per subtree.
func (g *Graph) EvaluateParallel(in Effect[float64], limit int) Effect[bool] {
	if g.phase != phaseFrozen {
		return FromError[bool](ErrGraphNotFrozen)
	}
	root := g.nodes[rootIndex]
	if root.kind == nodeUnit || in.IsErr() {
		return g.evaluateNode(rootIndex, in)
	}

	base := in.bare()
	results := make([]Effect[bool], len(root.children))
	var eg errgroup.Group
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, child := range root.children {
		i, child := i, child
		eg.Go(func() error {
			results[i] = g.evaluateNode(child, base)
			return nil
		})
	}
	// Workers never return errors; failures travel inside the Effects.
	_ = eg.Wait()

	evals := make([]childEval, len(root.children))
	for i, child := range root.children {
		r := results[i]
		evals[i] = childEval{
			unit: g.unitIDAt(child),
			eval: func(Effect[float64]) Effect[bool] { return r },
		}
	}
	return aggregate(in, root.agg, root.threshold, evals)
}

func (g *Graph) unitIDAt(idx NodeIndex) CausaloidID {
	if n := g.nodes[idx]; n.kind == nodeUnit {
		return n.unit.ID()
	}
	return 0
}

// childEval pairs a child's identity with its evaluator. The parallel path
// substitutes evaluators that return precomputed results, which keeps the
// combination order, and therefore short-circuit semantics, identical.
type childEval struct {
	unit CausaloidID
	eval func(Effect[float64]) Effect[bool]
}

// aggregate reduces child effects per the aggregation relation. Children
// receive the input effect with an empty log; their log deltas are
// concatenated onto the parent's in evaluation order.
//
// Error policy: under All an erroring child halts aggregation and the node
// errors. Under Any an error is not a vote: siblings still run, and the node
// only reports false if every child said false and none errored. Under
// Threshold every child always runs, an error counts as not-true, and the
// error's audit entry is retained for explanation.
func aggregate(in Effect[float64], agg Aggregation, threshold int, children []childEval) Effect[bool] {
	if in.IsErr() {
		return Effect[bool]{err: in.err, state: in.state, ctx: in.ctx, log: in.log}
	}

	base := in.bare()
	log := slices.Clone(in.log)
	state := in.state

	note := func(detail string) {
		log = append(log, AuditEntry{Kind: AuditAggregate, Detail: detail})
	}
	result := func(v bool) Effect[bool] {
		return Effect[bool]{value: v, state: state, ctx: in.ctx, log: log}
	}

	switch agg {
	case AggregateAll:
		for i, ch := range children {
			out := ch.eval(base)
			log = append(log, out.log...)
			state = mergeState(state, out.state)
			if out.IsErr() {
				note(fmt.Sprintf("all: halted by error at child %d of %d", i+1, len(children)))
				return Effect[bool]{err: out.err, state: state, ctx: in.ctx, log: log}
			}
			if !out.Value() {
				note(fmt.Sprintf("all: short-circuit false at child %d of %d", i+1, len(children)))
				return result(false)
			}
		}
		note(fmt.Sprintf("all: %d children true", len(children)))
		return result(true)

	case AggregateAny:
		var firstErr error
		for i, ch := range children {
			out := ch.eval(base)
			log = append(log, out.log...)
			state = mergeState(state, out.state)
			if out.IsErr() {
				if firstErr == nil {
					firstErr = out.err
				}
				continue
			}
			if out.Value() {
				note(fmt.Sprintf("any: short-circuit true at child %d of %d", i+1, len(children)))
				return result(true)
			}
		}
		if firstErr != nil {
			note("any: no child true and at least one errored")
			return Effect[bool]{err: firstErr, state: state, ctx: in.ctx, log: log}
		}
		note(fmt.Sprintf("any: all %d children false", len(children)))
		return result(false)

	case AggregateThreshold:
		// No short-circuit: every child runs so the count is stable.
		count := 0
		for _, ch := range children {
			out := ch.eval(base)
			log = append(log, out.log...)
			state = mergeState(state, out.state)
			if !out.IsErr() && out.Value() {
				count++
			}
		}
		note(fmt.Sprintf("threshold: %d of %d true, bound %d", count, len(children), threshold))
		return result(count >= threshold)

	default:
		return Effect[bool]{
			err:   fmt.Errorf("causax: unknown aggregation %d", agg),
			state: state, ctx: in.ctx, log: log,
		}
	}
}
