// Package csm implements the causal state machine: the reactive layer that
// maps evaluated boolean causal states to gated actions. A CSM registers
// (CausalState, CausalAction) pairs under stable IDs; Update evaluates each
// state's causaloid against live data and fires the paired action on the
// transition from inactive to active. An optional deontic Gate may veto a
// proposed action before it fires; the causal trigger and the normative veto
// stay separable so the reactive layer is fully testable with no gate
// configured.
package csm

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/causalgo/causax"
)

type StateID int

// CausalState pairs a boolean-producing causaloid with the live data it is
// evaluated against. Data holds the most recent observation.
type CausalState struct {
	ID   StateID
	Unit *causax.Causaloid
	Data float64
}

// CausalAction is the effectful callback fired when its state activates.
// Tag is matched against norm tags by the deontic gate.
type CausalAction struct {
	Fire        func() error
	Tag         string
	Description string
}

var (
	ErrStateNotFound  = errors.New("csm: state not found")
	ErrDuplicateState = errors.New("csm: state already registered")
	ErrNilAction      = errors.New("csm: action has no Fire func")
)

// ForbiddenError reports that a gate vetoed a proposed action. It names the
// dominating norm and the rationale so callers can distinguish "blocked by
// policy" from "computation failed".
type ForbiddenError struct {
	Action    ProposedAction
	Norm      string
	Rationale string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("csm: action %q forbidden by norm %q: %s", e.Action.Tag, e.Norm, e.Rationale)
}

type entry struct {
	state  CausalState
	action CausalAction
	active bool
}

// CSM is the causal state machine. All methods are safe for concurrent use.
type CSM struct {
	mu      sync.Mutex
	entries map[StateID]*entry
	order   []StateID // registration order, fixes UpdateAll iteration
	gate    Gate
	obs     Observer
}

// New creates a CSM. gate may be nil, in which case activated actions fire
// without a deontic check.
func New(gate Gate) *CSM {
	return &CSM{
		entries: make(map[StateID]*entry),
		gate:    gate,
		obs:     NopObserver{},
	}
}

// SetObserver installs an observer for update, fire, and veto events.
// Passing nil restores the no-op observer.
func (c *CSM) SetObserver(obs Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if obs == nil {
		obs = NopObserver{}
	}
	c.obs = obs
}

// Add registers a state/action pair under the state's ID.
func (c *CSM) Add(state CausalState, action CausalAction) error {
	if state.Unit == nil {
		return causax.ErrNilUnit
	}
	if action.Fire == nil {
		return ErrNilAction
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[state.ID]; exists {
		return fmt.Errorf("%w: id %d", ErrDuplicateState, state.ID)
	}
	c.entries[state.ID] = &entry{state: state, action: action}
	c.order = append(c.order, state.ID)
	return nil
}

// Remove deregisters a state.
func (c *CSM) Remove(id StateID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[id]; !exists {
		return fmt.Errorf("%w: id %d", ErrStateNotFound, id)
	}
	delete(c.entries, id)
	c.order = slices.DeleteFunc(c.order, func(s StateID) bool { return s == id })
	return nil
}

// Len returns the number of registered states.
func (c *CSM) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// IsActive reports the last evaluated activation of a state.
func (c *CSM) IsActive(id StateID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return ok && e.active
}

// Update evaluates the state's causaloid against data. The paired action
// fires at most once per activation: only on the transition from inactive to
// active, and only if a configured gate permits it. A veto leaves the state
// active but returns a *ForbiddenError without firing.
func (c *CSM) Update(id StateID, data float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrStateNotFound, id)
	}
	return c.update(e, data)
}

// UpdateAll evaluates every registered state in registration order, taking
// each state's data from the map or falling back to its stored observation.
// Errors are joined; evaluation of remaining states continues past failures.
func (c *CSM) UpdateAll(data map[StateID]float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, id := range c.order {
		e := c.entries[id]
		d, ok := data[id]
		if !ok {
			d = e.state.Data
		}
		if err := c.update(e, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// update holds c.mu.
func (c *CSM) update(e *entry, data float64) error {
	e.state.Data = data
	eff := e.state.Unit.Evaluate(causax.Pure(data))
	if eff.IsErr() {
		c.obs.OnEvent(Event{Type: EventEvaluationFailed, State: e.state.ID, Detail: eff.Err().Error()})
		return fmt.Errorf("csm: state %d: %w", e.state.ID, eff.Err())
	}

	wasActive := e.active
	e.active = eff.Value()
	c.obs.OnEvent(Event{Type: EventStateUpdated, State: e.state.ID, Active: e.active})
	if !e.active || wasActive {
		return nil
	}

	proposed := ProposedAction{
		ID:          uuid.New(),
		State:       e.state.ID,
		Tag:         e.action.Tag,
		Description: e.action.Description,
	}
	if c.gate != nil {
		decision, err := c.gate.EvaluateAction(proposed)
		if err != nil {
			return fmt.Errorf("csm: gate failed for state %d: %w", e.state.ID, err)
		}
		if decision.Verdict == VerdictImpermissible {
			c.obs.OnEvent(Event{Type: EventActionForbidden, State: e.state.ID, Detail: decision.Rationale})
			return &ForbiddenError{Action: proposed, Norm: decision.Norm, Rationale: decision.Rationale}
		}
	}
	if err := e.action.Fire(); err != nil {
		return fmt.Errorf("csm: action for state %d: %w", e.state.ID, err)
	}
	c.obs.OnEvent(Event{Type: EventActionFired, State: e.state.ID, Detail: e.action.Description})
	return nil
}
