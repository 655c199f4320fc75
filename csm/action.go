package csm

import "github.com/google/uuid"

// ProposedAction is what the CSM submits to a deontic gate before firing:
// the action's identity plus the tag norms are matched against.
type ProposedAction struct {
	ID          uuid.UUID
	State       StateID
	Tag         string
	Description string
}

// Verdict is a gate's judgment on a proposed action.
type Verdict int

const (
	VerdictPermissible Verdict = iota
	VerdictObligatory
	VerdictImpermissible
)

func (v Verdict) String() string {
	switch v {
	case VerdictPermissible:
		return "permissible"
	case VerdictObligatory:
		return "obligatory"
	case VerdictImpermissible:
		return "impermissible"
	default:
		return "unknown"
	}
}

// Decision carries a verdict together with the dominating norm's identity
// and a human-readable rationale.
type Decision struct {
	Verdict   Verdict
	Norm      string
	Rationale string
}

// Gate is the deontic-reasoning collaborator. Whether a norm engine is
// present is a runtime configuration choice; the CSM depends only on this
// interface.
type Gate interface {
	EvaluateAction(a ProposedAction) (Decision, error)
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(a ProposedAction) (Decision, error)

func (f GateFunc) EvaluateAction(a ProposedAction) (Decision, error) { return f(a) }
