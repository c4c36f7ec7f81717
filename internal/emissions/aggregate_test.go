package emissions

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSimpleSum(t *testing.T) {
	total, err := Aggregate([]any{
		map[string]any{"source": "enteric", "co2eq_kg": 1000.0},
		map[string]any{"source": "manure", "co2eq_kg": 500.0},
	})
	require.NoError(t, err)

	assert.Equal(t, 1500.0, total.TotalCO2eq)
	assert.Equal(t, 2, total.NSources)
	assert.Equal(t, map[SourceTag]float64{SourceEnteric: 1000, SourceManure: 500}, total.Breakdown)
	require.Len(t, total.BySource, 2)
	assert.Equal(t, SourceTotal{Source: SourceEnteric, CO2eqKg: 1000, Unit: "kg CO2e"}, total.BySource[0])
}

func TestAggregateIsLinearInEachSource(t *testing.T) {
	build := func(manure float64) []any {
		return []any{
			map[string]any{"source": "enteric", "co2eq_kg": 1000.0},
			map[string]any{"source": "manure", "co2eq_kg": manure},
			map[string]any{"source": "energy", "total_co2eq": 250.0},
		}
	}

	base, err := Aggregate(build(500))
	require.NoError(t, err)
	for _, delta := range []float64{0.5, 1, 123.25, 10000} {
		bumped, err := Aggregate(build(500 + delta))
		require.NoError(t, err)
		assert.InDelta(t, delta, bumped.TotalCO2eq-base.TotalCO2eq, 1e-9)
	}
}

func TestAggregateKeyResolutionOrder(t *testing.T) {
	total, err := Aggregate([]any{
		map[string]any{"source": "soil", "co2eq_kg": 10.0, "total_co2eq_kg": 999.0},
		map[string]any{"source": "energy", "total_co2eq_kg": 20, "total_co2eq": 999.0},
		map[string]any{"source": "inputs", "total_co2eq": json.Number("30.5")},
	})
	require.NoError(t, err)

	assert.Equal(t, 60.5, total.TotalCO2eq)
	assert.Equal(t, 20.0, total.Breakdown[SourceEnergy])
}

func TestAggregateNullCountsAsSuppliedZero(t *testing.T) {
	e := newTestEngine()
	excluded, err := e.Enteric(EntericInput{Herd: Herd{CowsMilking: 10}}, mustBoundary(t, ScopePartial, SourceEnergy))
	require.NoError(t, err)
	energy, err := e.Energy(EnergyInput{DieselL: 100}, nil)
	require.NoError(t, err)

	total, err := Aggregate([]any{
		excluded,
		*energy,
		map[string]any{"source": "manure", "co2eq_kg": nil, "breakdown": map[string]any{"ch4_kg": 42.0}},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, total.NSources)
	assert.Equal(t, 0.0, total.Breakdown[SourceEnteric])
	assert.Equal(t, 0.0, total.Breakdown[SourceManure])
	assert.InDelta(t, 268.0, total.TotalCO2eq, 1e-9)
}

func TestAggregateTotalEqualsBreakdownSum(t *testing.T) {
	total, err := Aggregate([]any{
		map[string]any{"source": "inputs", "co2eq_kg": 100.0},
		map[string]any{"source": "inputs", "co2eq_kg": 50.0},
		map[string]any{"co2eq_kg": 7},
	})
	require.NoError(t, err)

	var sum float64
	for _, v := range total.Breakdown {
		sum += v
	}
	assert.Equal(t, sum, total.TotalCO2eq)
	assert.Equal(t, 150.0, total.Breakdown[SourceInputs])
	assert.Equal(t, 7.0, total.Breakdown["source_3"])
	assert.Len(t, total.BySource, 3)
}

func TestAggregateErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := Aggregate(nil)
		var ae *AggregationError
		require.True(t, errors.As(err, &ae))
		assert.Contains(t, ae.Error(), "no sources supplied")
	})

	t.Run("missing total", func(t *testing.T) {
		_, err := Aggregate([]any{
			map[string]any{"source": "enteric", "co2eq_kg": 1.0},
			map[string]any{"source": "manure", "ch4_kg": 5.0},
		})
		var ae *AggregationError
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, "manure", ae.Source)
	})

	t.Run("non numeric total", func(t *testing.T) {
		_, err := Aggregate([]any{map[string]any{"source": "soil", "co2eq_kg": "lots"}})
		var ae *AggregationError
		assert.True(t, errors.As(err, &ae))
	})

	t.Run("negative total", func(t *testing.T) {
		_, err := Aggregate([]any{map[string]any{"source": "soil", "co2eq_kg": -3.0}})
		var ae *AggregationError
		assert.True(t, errors.As(err, &ae))
	})

	t.Run("unstructured value", func(t *testing.T) {
		_, err := Aggregate([]any{map[string]any{"co2eq_kg": 1.0}, 42.0})
		var te *TypeError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, 1, te.Index)
		assert.Equal(t, "float64", te.Got)
		assert.True(t, IsInputError(err))
	})

	t.Run("nil result pointer", func(t *testing.T) {
		var r *SourceResult
		_, err := AggregateSources(r)
		var te *TypeError
		assert.True(t, errors.As(err, &te))
	})
}

func TestAggregateSourcesFromCalculators(t *testing.T) {
	e := newTestEngine()
	enteric, err := e.Enteric(EntericInput{Herd: Herd{CowsMilking: 100}}, nil)
	require.NoError(t, err)
	soil, err := e.Soil(SoilInput{SyntheticNKg: 2000}, nil)
	require.NoError(t, err)

	total, err := AggregateSources(enteric, soil)
	require.NoError(t, err)
	assert.InDelta(t, enteric.Value()+soil.Value(), total.TotalCO2eq, 1e-9)
	assert.Equal(t, []SourceTag{SourceEnteric, SourceSoil}, []SourceTag{total.BySource[0].Source, total.BySource[1].Source})
}
