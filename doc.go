// Package causax is a deterministic, explainable causal-reasoning engine.
//
// Causal relationships are modeled as Causaloids: atomic functions,
// contextual functions querying a shared Context of world-state entities,
// or composites delegating to an embedded Graph or collection. A Graph
// composes causaloids through aggregation relations (all, any, threshold)
// and follows a build-then-freeze lifecycle: structure is validated acyclic
// and made immutable before the first evaluation.
//
// Every evaluation threads an Effect: a Value-or-Error container carrying
// process state, an optional context reference, and an audit log of each
// operation applied, including interventions (the do-operator). Repeated
// evaluation of a frozen graph against the same input and context is
// bit-identical, and Causaloid.Explain renders the last evaluation's trace.
//
// Counterfactuals reuse structure cheaply: Graph.Clone shares causaloid
// payloads by pointer and Context.Clone copies on write at the entity
// level, so "what would have happened" is the same frozen graph evaluated
// against an altered world.
//
// The reactive layer lives in the csm subpackage; the deontic subpackage
// provides a norm engine that can veto CSM actions before they fire.
package causax
