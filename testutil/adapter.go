// Package testutil provides a common evaluator interface so the same
// aggregation test suite can run against both the sequential and the
// parallel graph evaluators.
package testutil

import "github.com/causalgo/causax"

// Evaluator abstracts over the two evaluation modes of a frozen graph.
type Evaluator interface {
	Name() string
	Evaluate(in causax.Effect[float64]) causax.Effect[bool]
}

// Sequential wraps Graph.Evaluate.
type Sequential struct {
	Graph *causax.Graph
}

func (s Sequential) Name() string { return "sequential" }

func (s Sequential) Evaluate(in causax.Effect[float64]) causax.Effect[bool] {
	return s.Graph.Evaluate(in)
}

// Parallel wraps Graph.EvaluateParallel.
type Parallel struct {
	Graph   *causax.Graph
	Workers int
}

func (p Parallel) Name() string { return "parallel" }

func (p Parallel) Evaluate(in causax.Effect[float64]) causax.Effect[bool] {
	return p.Graph.EvaluateParallel(in, p.Workers)
}

// Evaluators returns both modes for the given graph.
func Evaluators(g *causax.Graph) []Evaluator {
	return []Evaluator{Sequential{Graph: g}, Parallel{Graph: g, Workers: 4}}
}
