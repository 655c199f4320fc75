package causax_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causalgo/causax"
)

func above(bound float64) causax.CausalFn {
	return func(in causax.Effect[float64]) causax.Effect[bool] {
		return causax.Map(in, func(v float64) bool { return v > bound })
	}
}

func TestAtomicCausaloidEvaluates(t *testing.T) {
	c := causax.NewCausaloid(1, "observation above 10", above(10))

	out := c.Evaluate(causax.Pure(12.0))
	require.False(t, out.IsErr())
	assert.True(t, out.Value())

	out = c.Evaluate(causax.Pure(3.0))
	require.False(t, out.IsErr())
	assert.False(t, out.Value())
}

func TestContextualCausaloidMissingContext(t *testing.T) {
	fn := func(in causax.Effect[float64], _ causax.ProcessState, ctx *causax.Context) causax.Effect[bool] {
		return causax.Pure(true)
	}
	c := causax.NewContextualCausaloid(2, "needs context", fn, nil)

	out := c.Evaluate(causax.Pure(1.0))

	require.True(t, out.IsErr())
	assert.ErrorIs(t, out.Err(), causax.ErrContextMissing)

	var uerr *causax.UnitError
	require.ErrorAs(t, out.Err(), &uerr)
	assert.Equal(t, causax.CausaloidID(2), uerr.Unit)
}

func TestContextualCausaloidQueriesContext(t *testing.T) {
	const tempID causax.ContextoidID = 7
	ctx := causax.NewContext("observed")
	ctx.Add(causax.Contextoid{ID: tempID, Kind: causax.Datoid, Value: 21.5})

	fn := func(in causax.Effect[float64], _ causax.ProcessState, c *causax.Context) causax.Effect[bool] {
		temp, err := c.Value(tempID)
		if err != nil {
			return causax.FromError[bool](err)
		}
		return causax.Map(in, func(v float64) bool { return v > temp })
	}
	c := causax.NewContextualCausaloid(3, "above ambient temperature", fn, ctx)

	out := c.Evaluate(causax.Pure(25.0))
	require.False(t, out.IsErr())
	assert.True(t, out.Value())
}

func TestContextualCausaloidTakesContextFromEffect(t *testing.T) {
	const id causax.ContextoidID = 1
	ctx := causax.NewContext("observed")
	ctx.Add(causax.Contextoid{ID: id, Value: 5})

	fn := func(in causax.Effect[float64], _ causax.ProcessState, c *causax.Context) causax.Effect[bool] {
		v, err := c.Value(id)
		if err != nil {
			return causax.FromError[bool](err)
		}
		return causax.Pure(v > 0)
	}
	c := causax.NewContextualCausaloid(4, "effect-bound context", fn, nil)

	out := c.Evaluate(causax.Pure(0.0).WithContext(ctx))
	require.False(t, out.IsErr())
	assert.True(t, out.Value())
}

func TestNonFiniteObservationIsNumericalError(t *testing.T) {
	c := causax.NewCausaloid(5, "finite only", above(0))

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		out := c.Evaluate(causax.Pure(v))
		require.True(t, out.IsErr())
		assert.ErrorIs(t, out.Err(), causax.ErrNumericalInstability)
	}
}

func TestPanicInCausalFunctionBecomesError(t *testing.T) {
	c := causax.NewCausaloid(6, "divides by input", func(in causax.Effect[float64]) causax.Effect[bool] {
		var xs []float64
		return causax.Pure(xs[3] > 0) // out of range
	})

	out := c.Evaluate(causax.Pure(1.0))
	require.True(t, out.IsErr())
	assert.ErrorIs(t, out.Err(), causax.ErrNumericalInstability)
}

func TestExplainRendersLastEvaluation(t *testing.T) {
	c := causax.NewCausaloid(7, "observation above 10", above(10))

	assert.Contains(t, c.Explain(), "not yet evaluated")

	c.Evaluate(causax.Pure(12.0))
	trace := c.Explain()
	assert.Contains(t, trace, "unit 7")
	assert.Contains(t, trace, "observation above 10: true")
	assert.Contains(t, trace, "[evaluate]")
}

func TestCollectionAggregatesAll(t *testing.T) {
	var calls [3]int
	counted := func(i int, result bool) *causax.Causaloid {
		return causax.NewCausaloid(causax.CausaloidID(10+i), "member", func(in causax.Effect[float64]) causax.Effect[bool] {
			calls[i]++
			return causax.Pure(result)
		})
	}

	coll, err := causax.FromCollection(20, "all members", causax.AggregateAll, 0,
		counted(0, false), counted(1, true), counted(2, true))
	require.NoError(t, err)

	out := coll.Evaluate(causax.Pure(1.0))
	require.False(t, out.IsErr())
	assert.False(t, out.Value())
	assert.Equal(t, [3]int{1, 0, 0}, calls, "all must short-circuit after the first false")
}

func TestCollectionThreshold(t *testing.T) {
	member := func(id causax.CausaloidID, result bool) *causax.Causaloid {
		return causax.NewCausaloid(id, "member", func(in causax.Effect[float64]) causax.Effect[bool] {
			return causax.Pure(result)
		})
	}

	coll, err := causax.FromCollection(30, "two of three", causax.AggregateThreshold, 2,
		member(31, true), member(32, false), member(33, true))
	require.NoError(t, err)

	out := coll.Evaluate(causax.Pure(1.0))
	require.False(t, out.IsErr())
	assert.True(t, out.Value())
}

func TestFromCollectionValidation(t *testing.T) {
	_, err := causax.FromCollection(1, "empty", causax.AggregateAll, 0)
	assert.ErrorIs(t, err, causax.ErrEmptyAggregate)

	m := causax.NewCausaloid(2, "m", above(0))
	_, err = causax.FromCollection(1, "bad threshold", causax.AggregateThreshold, 0, m)
	assert.ErrorIs(t, err, causax.ErrInvalidThreshold)

	_, err = causax.FromCollection(1, "nil member", causax.AggregateAll, 0, m, nil)
	assert.ErrorIs(t, err, causax.ErrNilUnit)
}

func TestFromGraphRequiresFrozen(t *testing.T) {
	g := causax.NewGraph()
	_, err := g.AddNode(causax.NewCausaloid(1, "leaf", above(0)))
	require.NoError(t, err)

	_, err = causax.FromGraph(40, "embedded", g)
	assert.ErrorIs(t, err, causax.ErrGraphNotFrozen)

	require.NoError(t, g.Freeze())
	c, err := causax.FromGraph(40, "embedded", g)
	require.NoError(t, err)
	assert.True(t, c.IsComposite())

	out := c.Evaluate(causax.Pure(1.0))
	require.False(t, out.IsErr())
	assert.True(t, out.Value())
}
