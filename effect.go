package causax

import (
	"fmt"
	"maps"
	"slices"
)

// ProcessState is the accumulated state threaded through an evaluation pass.
// It travels inside the Effect rather than in shared mutable storage so that
// composition stays referentially transparent.
type ProcessState map[string]any

// AuditKind tags how a value entered or moved through an Effect.
type AuditKind int

const (
	AuditPure AuditKind = iota
	AuditBind
	AuditMap
	AuditIntervention
	AuditError
	AuditEvaluate
	AuditAggregate
)

func (k AuditKind) String() string {
	switch k {
	case AuditPure:
		return "pure"
	case AuditBind:
		return "bind"
	case AuditMap:
		return "map"
	case AuditIntervention:
		return "intervention"
	case AuditError:
		return "error"
	case AuditEvaluate:
		return "evaluate"
	case AuditAggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// AuditEntry records one composition or evaluation step. Unit is zero for
// steps not attributable to a specific causaloid.
type AuditEntry struct {
	Kind   AuditKind
	Unit   CausaloidID
	Detail string
}

func (a AuditEntry) String() string {
	if a.Unit != 0 {
		return fmt.Sprintf("[%s] unit %d: %s", a.Kind, a.Unit, a.Detail)
	}
	return fmt.Sprintf("[%s] %s", a.Kind, a.Detail)
}

// Effect is the result of a causal computation: exactly one of a value or an
// error, plus the process state accumulated so far, an optional reference to
// shared context, and the audit log of every operation applied.
//
// Causal functions return Effects instead of raising errors; Bind and Map
// short-circuit on the Error variant, and Intervene is the single operation
// allowed to replace a carried value independent of upstream computation.
type Effect[T any] struct {
	value T
	err   error
	state ProcessState
	ctx   *Context
	log   []AuditEntry
}

// Pure lifts a value into an Effect with empty state and log.
func Pure[T any](v T) Effect[T] {
	return Effect[T]{
		value: v,
		log:   []AuditEntry{{Kind: AuditPure, Detail: fmt.Sprintf("value %v", v)}},
	}
}

// FromError constructs an Effect in the Error variant. Causal functions use
// this to signal failure; they never panic across the unit boundary.
func FromError[T any](err error) Effect[T] {
	return Effect[T]{
		err: err,
		log: []AuditEntry{{Kind: AuditError, Detail: err.Error()}},
	}
}

// Value returns the carried value. Meaningless when IsErr reports true.
func (e Effect[T]) Value() T { return e.value }

// Err returns the carried error, or nil for the Value variant.
func (e Effect[T]) Err() error { return e.err }

// IsErr reports whether the Effect is in the Error variant.
func (e Effect[T]) IsErr() bool { return e.err != nil }

// State returns the accumulated process state. The returned map is a copy.
func (e Effect[T]) State() ProcessState {
	if e.state == nil {
		return nil
	}
	return maps.Clone(e.state)
}

// Context returns the shared context reference, or nil if none is attached.
func (e Effect[T]) Context() *Context { return e.ctx }

// Log returns a copy of the audit log accumulated so far.
func (e Effect[T]) Log() []AuditEntry { return slices.Clone(e.log) }

// WithContext returns a copy of the Effect referencing ctx. Used to point an
// evaluation pass at an alternate (e.g. counterfactual) context.
func (e Effect[T]) WithContext(ctx *Context) Effect[T] {
	e.ctx = ctx
	return e
}

// WithState returns a copy of the Effect with key set in its process state.
// The original Effect's state is not modified.
func (e Effect[T]) WithState(key string, v any) Effect[T] {
	st := maps.Clone(e.state)
	if st == nil {
		st = make(ProcessState, 1)
	}
	st[key] = v
	e.state = st
	return e
}

// Intervene unconditionally replaces the carried value, clearing any error.
// This models the do-operator: it is the only place a value may be set
// independent of upstream computation, and the audit log records it as such.
func (e Effect[T]) Intervene(forced T) Effect[T] {
	e.log = append(slices.Clone(e.log), AuditEntry{
		Kind:   AuditIntervention,
		Detail: fmt.Sprintf("forced value %v", forced),
	})
	e.value = forced
	e.err = nil
	return e
}

// bare returns the Effect with an empty log, preserving value, error, state
// and context. Aggregation uses it so child logs do not duplicate the
// parent's prefix.
func (e Effect[T]) bare() Effect[T] {
	e.log = nil
	return e
}

// Bind sequences two effectful computations. If e is an Error it is returned
// unchanged and f is never invoked. Otherwise f is applied to the value and
// the audit logs are concatenated; the child's state and context, where
// present, supersede the parent's.
func Bind[A, B any](e Effect[A], f func(A) Effect[B]) Effect[B] {
	if e.err != nil {
		return Effect[B]{err: e.err, state: e.state, ctx: e.ctx, log: e.log}
	}
	out := f(e.value)
	log := append(slices.Clone(e.log), AuditEntry{Kind: AuditBind, Detail: "sequenced"})
	out.log = append(log, out.log...)
	out.state = mergeState(e.state, out.state)
	if out.ctx == nil {
		out.ctx = e.ctx
	}
	return out
}

// Map transforms the contained value with a pure function, preserving the
// Error variant, state, context, and log.
func Map[A, B any](e Effect[A], f func(A) B) Effect[B] {
	if e.err != nil {
		return Effect[B]{err: e.err, state: e.state, ctx: e.ctx, log: e.log}
	}
	v := f(e.value)
	return Effect[B]{
		value: v,
		state: e.state,
		ctx:   e.ctx,
		log:   append(slices.Clone(e.log), AuditEntry{Kind: AuditMap, Detail: fmt.Sprintf("mapped to %v", v)}),
	}
}

// mergeState overlays child onto parent without mutating either.
func mergeState(parent, child ProcessState) ProcessState {
	if parent == nil {
		return child
	}
	if child == nil {
		return parent
	}
	merged := maps.Clone(parent)
	maps.Copy(merged, child)
	return merged
}
