package deontic

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/causalgo/causax/csm"
)

var (
	ErrNoNorms       = errors.New("deontic: ethos defines no norms")
	ErrDuplicateNorm = errors.New("deontic: duplicate norm id")
	ErrUnknownNorm   = errors.New("deontic: unknown norm id")
)

// Ethos is a loaded, validated set of norms. It implements csm.Gate.
// Norm activation may be toggled at runtime; everything else is immutable
// after load.
type Ethos struct {
	mu     sync.RWMutex
	norms  []Norm // sorted by priority, highest first
	active map[string]bool
}

// Load parses an ethos from YAML, validates it, and sorts norms from highest
// to lowest priority. A norm marked disabled starts inactive.
func Load(data []byte) (*Ethos, error) {
	var file ethosFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("deontic: failed to unmarshal ethos: %w", err)
	}
	return New(file.Norms)
}

// New builds an ethos from already-constructed norms.
func New(norms []Norm) (*Ethos, error) {
	if len(norms) == 0 {
		return nil, ErrNoNorms
	}
	active := make(map[string]bool, len(norms))
	for _, n := range norms {
		if n.ID == "" {
			return nil, errors.New("deontic: norm with empty id")
		}
		if _, exists := active[n.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNorm, n.ID)
		}
		switch n.Modality {
		case Permissible, Obligatory, Impermissible:
		default:
			return nil, fmt.Errorf("deontic: norm %q has invalid modality %q", n.ID, n.Modality)
		}
		active[n.ID] = !n.Disabled
	}

	sorted := slices.Clone(norms)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &Ethos{norms: sorted, active: active}, nil
}

// Len returns the number of norms in the ethos.
func (e *Ethos) Len() int { return len(e.norms) }

// Activate enables a norm at runtime.
func (e *Ethos) Activate(id string) error { return e.setActive(id, true) }

// Deactivate disables a norm at runtime.
func (e *Ethos) Deactivate(id string) error { return e.setActive(id, false) }

func (e *Ethos) setActive(id string, v bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.active[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNorm, id)
	}
	e.active[id] = v
	return nil
}

// EvaluateAction implements csm.Gate.
//
// Precedence: among active norms governing the action's tag, a norm is
// defeated if a strictly higher-priority active governing norm lists it in
// Defeats. Any undefeated impermissible norm dominates and yields an
// impermissible verdict; otherwise an obligatory norm outranks permissible
// ones. With no governing norm the action is permissible by default.
func (e *Ethos) EvaluateAction(a csm.ProposedAction) (csm.Decision, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var governing []Norm // retains the priority-sorted order
	for _, n := range e.norms {
		if e.active[n.ID] && governs(n, a.Tag) {
			governing = append(governing, n)
		}
	}
	if len(governing) == 0 {
		return csm.Decision{
			Verdict:   csm.VerdictPermissible,
			Rationale: fmt.Sprintf("no active norm governs action %q", a.Tag),
		}, nil
	}

	defeated := func(n Norm) bool {
		for _, m := range governing {
			if m.Priority > n.Priority && slices.Contains(m.Defeats, n.ID) {
				return true
			}
		}
		return false
	}

	pick := func(mod Modality) (Norm, bool) {
		for _, n := range governing {
			if n.Modality == mod && !defeated(n) {
				return n, true
			}
		}
		return Norm{}, false
	}

	if n, ok := pick(Impermissible); ok {
		return csm.Decision{
			Verdict: csm.VerdictImpermissible,
			Norm:    n.ID,
			Rationale: fmt.Sprintf("impermissible norm %q (priority %d) dominates: %s",
				n.ID, n.Priority, n.Description),
		}, nil
	}
	if n, ok := pick(Obligatory); ok {
		return csm.Decision{
			Verdict:   csm.VerdictObligatory,
			Norm:      n.ID,
			Rationale: fmt.Sprintf("obligatory norm %q (priority %d): %s", n.ID, n.Priority, n.Description),
		}, nil
	}
	if n, ok := pick(Permissible); ok {
		return csm.Decision{
			Verdict:   csm.VerdictPermissible,
			Norm:      n.ID,
			Rationale: fmt.Sprintf("permissible norm %q (priority %d): %s", n.ID, n.Priority, n.Description),
		}, nil
	}
	// Every governing norm was defeated; nothing forbids the action.
	return csm.Decision{
		Verdict:   csm.VerdictPermissible,
		Rationale: fmt.Sprintf("all norms governing action %q are defeated", a.Tag),
	}, nil
}

// governs reports whether a norm applies to an action tag.
func governs(n Norm, tag string) bool {
	return len(n.Tags) == 0 || slices.Contains(n.Tags, tag)
}
