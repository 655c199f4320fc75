package csm_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causalgo/causax"
	"github.com/causalgo/causax/csm"
)

func thresholdUnit(id causax.CausaloidID, bound float64) *causax.Causaloid {
	return causax.NewCausaloid(id, "observation above bound", func(in causax.Effect[float64]) causax.Effect[bool] {
		return causax.Map(in, func(v float64) bool { return v > bound })
	})
}

func countedAction(tag string, counter *int) csm.CausalAction {
	return csm.CausalAction{
		Fire:        func() error { *counter++; return nil },
		Tag:         tag,
		Description: "increment counter",
	}
}

func TestActionFiresOnceOnActivation(t *testing.T) {
	var fired int
	m := csm.New(nil)
	require.NoError(t, m.Add(
		csm.CausalState{ID: 1, Unit: thresholdUnit(1, 10)},
		countedAction("alert", &fired),
	))

	// Inactive to active: fires.
	require.NoError(t, m.Update(1, 12))
	assert.Equal(t, 1, fired)
	assert.True(t, m.IsActive(1))

	// Still active: edge-triggered, does not fire again.
	require.NoError(t, m.Update(1, 15))
	assert.Equal(t, 1, fired)

	// Deactivate, then re-activate: fires exactly once more.
	require.NoError(t, m.Update(1, 5))
	assert.False(t, m.IsActive(1))
	require.NoError(t, m.Update(1, 20))
	assert.Equal(t, 2, fired)
}

func TestGateVetoBlocksAction(t *testing.T) {
	var fired int
	forbidAll := csm.GateFunc(func(a csm.ProposedAction) (csm.Decision, error) {
		return csm.Decision{
			Verdict:   csm.VerdictImpermissible,
			Norm:      "no-alerts",
			Rationale: "impermissible norm \"no-alerts\" dominates",
		}, nil
	})

	m := csm.New(forbidAll)
	require.NoError(t, m.Add(
		csm.CausalState{ID: 1, Unit: thresholdUnit(1, 10)},
		countedAction("alert", &fired),
	))

	err := m.Update(1, 12)
	require.Error(t, err)

	var forbidden *csm.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, "no-alerts", forbidden.Norm)
	assert.Contains(t, forbidden.Rationale, "dominates")
	assert.Zero(t, fired, "a vetoed action must observably never execute")
}

func TestSameSetupWithoutGateFires(t *testing.T) {
	var fired int
	m := csm.New(nil)
	require.NoError(t, m.Add(
		csm.CausalState{ID: 1, Unit: thresholdUnit(1, 10)},
		countedAction("alert", &fired),
	))

	require.NoError(t, m.Update(1, 12))
	assert.Equal(t, 1, fired)
}

func TestPermissibleAndObligatoryFire(t *testing.T) {
	for _, verdict := range []csm.Verdict{csm.VerdictPermissible, csm.VerdictObligatory} {
		var fired int
		gate := csm.GateFunc(func(a csm.ProposedAction) (csm.Decision, error) {
			return csm.Decision{Verdict: verdict, Norm: "n"}, nil
		})
		m := csm.New(gate)
		require.NoError(t, m.Add(
			csm.CausalState{ID: 1, Unit: thresholdUnit(1, 10)},
			countedAction("alert", &fired),
		))
		require.NoError(t, m.Update(1, 12), verdict.String())
		assert.Equal(t, 1, fired, verdict.String())
	}
}

func TestRegistrationErrors(t *testing.T) {
	m := csm.New(nil)
	var n int

	err := m.Add(csm.CausalState{ID: 1}, countedAction("x", &n))
	assert.ErrorIs(t, err, causax.ErrNilUnit)

	err = m.Add(csm.CausalState{ID: 1, Unit: thresholdUnit(1, 0)}, csm.CausalAction{})
	assert.ErrorIs(t, err, csm.ErrNilAction)

	require.NoError(t, m.Add(csm.CausalState{ID: 1, Unit: thresholdUnit(1, 0)}, countedAction("x", &n)))
	err = m.Add(csm.CausalState{ID: 1, Unit: thresholdUnit(2, 0)}, countedAction("x", &n))
	assert.ErrorIs(t, err, csm.ErrDuplicateState)

	assert.ErrorIs(t, m.Update(99, 1), csm.ErrStateNotFound)
	assert.ErrorIs(t, m.Remove(99), csm.ErrStateNotFound)

	require.NoError(t, m.Remove(1))
	assert.Zero(t, m.Len())
}

func TestEvaluationFailureSurfaces(t *testing.T) {
	boom := errors.New("sensor offline")
	unit := causax.NewCausaloid(1, "failing sensor", func(in causax.Effect[float64]) causax.Effect[bool] {
		return causax.FromError[bool](boom)
	})

	var fired int
	m := csm.New(nil)
	require.NoError(t, m.Add(csm.CausalState{ID: 1, Unit: unit}, countedAction("x", &fired)))

	err := m.Update(1, 1)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, fired)
	assert.False(t, m.IsActive(1))
}

func TestUpdateAllUsesStoredDataAndOverrides(t *testing.T) {
	var a, b int
	m := csm.New(nil)
	require.NoError(t, m.Add(csm.CausalState{ID: 1, Unit: thresholdUnit(1, 10), Data: 20}, countedAction("a", &a)))
	require.NoError(t, m.Add(csm.CausalState{ID: 2, Unit: thresholdUnit(2, 10), Data: 0}, countedAction("b", &b)))

	// State 1 activates from its stored observation; state 2 from the override.
	require.NoError(t, m.UpdateAll(map[csm.StateID]float64{2: 30}))
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestUpdateAllJoinsErrors(t *testing.T) {
	var fired int
	forbid := csm.GateFunc(func(a csm.ProposedAction) (csm.Decision, error) {
		return csm.Decision{Verdict: csm.VerdictImpermissible, Norm: "n", Rationale: "r"}, nil
	})
	m := csm.New(forbid)
	require.NoError(t, m.Add(csm.CausalState{ID: 1, Unit: thresholdUnit(1, 10)}, countedAction("x", &fired)))
	require.NoError(t, m.Add(csm.CausalState{ID: 2, Unit: thresholdUnit(2, 10)}, countedAction("y", &fired)))

	err := m.UpdateAll(map[csm.StateID]float64{1: 20, 2: 20})
	require.Error(t, err)

	var forbidden *csm.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
	assert.Zero(t, fired)
	// Both states were still evaluated despite the first veto.
	assert.True(t, m.IsActive(1))
	assert.True(t, m.IsActive(2))
}

type recordingObserver struct {
	events []csm.Event
}

func (r *recordingObserver) OnEvent(e csm.Event) { r.events = append(r.events, e) }

func TestObserverReceivesEvents(t *testing.T) {
	rec := &recordingObserver{}
	var fired int
	m := csm.New(nil)
	m.SetObserver(rec)
	require.NoError(t, m.Add(csm.CausalState{ID: 1, Unit: thresholdUnit(1, 10)}, countedAction("x", &fired)))

	require.NoError(t, m.Update(1, 12))

	types := make([]csm.EventType, len(rec.events))
	for i, e := range rec.events {
		types[i] = e.Type
	}
	assert.Equal(t, []csm.EventType{csm.EventStateUpdated, csm.EventActionFired}, types)
}

func TestObserverSeesVeto(t *testing.T) {
	rec := &recordingObserver{}
	forbid := csm.GateFunc(func(a csm.ProposedAction) (csm.Decision, error) {
		return csm.Decision{Verdict: csm.VerdictImpermissible, Norm: "n", Rationale: "blocked"}, nil
	})
	var fired int
	m := csm.New(forbid)
	m.SetObserver(rec)
	require.NoError(t, m.Add(csm.CausalState{ID: 1, Unit: thresholdUnit(1, 10)}, countedAction("x", &fired)))

	err := m.Update(1, 12)
	require.Error(t, err)

	var sawVeto bool
	for _, e := range rec.events {
		if e.Type == csm.EventActionForbidden {
			sawVeto = true
			assert.Contains(t, e.Detail, "blocked")
		}
	}
	assert.True(t, sawVeto)
}
