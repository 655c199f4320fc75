package causax

import (
	"errors"
	"fmt"
)

// Structural errors: model-construction bugs. Fatal to the operation that
// triggered them and reported immediately, never deferred to evaluation.
var (
	ErrGraphFrozen      = errors.New("causax: graph is frozen")
	ErrGraphNotFrozen   = errors.New("causax: graph must be frozen before evaluation")
	ErrCycleDetected    = errors.New("causax: cycle detected")
	ErrNodeNotFound     = errors.New("causax: node not found")
	ErrEmptyGraph       = errors.New("causax: graph has no nodes")
	ErrLeafHasChildren  = errors.New("causax: unit node cannot have outgoing edges")
	ErrEmptyAggregate   = errors.New("causax: aggregate node has no children")
	ErrInvalidThreshold = errors.New("causax: threshold must be positive")
	ErrNilUnit          = errors.New("causax: nil causaloid")
)

// Contextual errors: recoverable by the caller, surfaced inside Effects.
var (
	ErrContextMissing = errors.New("causax: required context missing")
	ErrEntityNotFound = errors.New("causax: contextoid not found")
)

// ErrNumericalInstability marks non-finite results, division by zero, and
// out-of-domain arguments caught at the causal-function boundary.
var ErrNumericalInstability = errors.New("causax: numerical instability")

// UnitError attributes an evaluation failure to a specific causaloid so the
// audit trail can name the unit that stopped propagation.
type UnitError struct {
	Unit        CausaloidID
	Description string
	Err         error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %d (%s): %v", e.Unit, e.Description, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }
