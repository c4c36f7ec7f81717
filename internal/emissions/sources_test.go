package emissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntericTier1(t *testing.T) {
	e := newTestEngine()

	res, err := e.Enteric(EntericInput{Herd: Herd{CowsMilking: 100, Heifers: 20}, Tier: Tier1}, nil)
	require.NoError(t, err)
	assertFiniteNonNegative(t, res)

	assert.InDelta(t, 11700.0, res.Breakdown["ch4_dairy_cow_kg"], 1e-9)
	assert.InDelta(t, 1140.0, res.Breakdown["ch4_heifer_kg"], 1e-9)
	assert.InDelta(t, 12840.0, res.Breakdown["ch4_total_kg"], 1e-9)
	assert.InDelta(t, 12840.0*27.0, res.Value(), 1e-6)
	assert.Equal(t, 117.0, res.EmissionFactorsUsed["ef_dairy_cow"])
	assert.Equal(t, SourceEnteric, res.Source)
	assert.NotEmpty(t, res.Steps)
}

func TestEntericTier2WithDetail(t *testing.T) {
	e := newTestEngine()

	in := EntericInput{
		Herd: Herd{CowsMilking: 10},
		Tier: Tier2,
		Detail: map[AnimalCategory]AnimalDetail{
			CategoryDairyCow: {DMIKgDay: ptr(20), YmPct: ptr(6.0)},
		},
	}
	res, err := e.Enteric(in, nil)
	require.NoError(t, err)

	ef := 20 * 18.45 * 0.06 * 365 / 55.65
	assert.InDelta(t, ef, res.EmissionFactorsUsed["ef_dairy_cow"], 1e-9)
	assert.InDelta(t, 10*ef*27.0, res.Value(), 1e-6)
}

func TestEntericTier2DigestibilitySetsYm(t *testing.T) {
	e := newTestEngine()
	run := func(de float64) float64 {
		res, err := e.Enteric(EntericInput{
			Herd:   Herd{CowsMilking: 1},
			Tier:   Tier2,
			Detail: map[AnimalCategory]AnimalDetail{CategoryDairyCow: {DigestibilityPct: ptr(de)}},
		}, nil)
		require.NoError(t, err)
		return res.Value()
	}

	// higher digestibility, lower Ym
	assert.Less(t, run(75), run(65))
	assert.Less(t, run(65), run(55))
}

func TestTier2WithoutDetailMatchesTier1(t *testing.T) {
	e := newTestEngine()
	herd := Herd{CowsMilking: 120, CowsDry: 20, Heifers: 40, Calves: 30, Bulls: 2}

	t.Run("enteric", func(t *testing.T) {
		t1, err := e.Enteric(EntericInput{Herd: herd, Region: "western_europe", Tier: Tier1}, nil)
		require.NoError(t, err)
		t2, err := e.Enteric(EntericInput{Herd: herd, Region: "western_europe", Tier: Tier2}, nil)
		require.NoError(t, err)
		assert.Equal(t, t1.Value(), t2.Value())
		assert.Equal(t, t1.Breakdown, t2.Breakdown)
	})

	t.Run("manure", func(t *testing.T) {
		in := ManureInput{Herd: herd, Region: "western_europe", System: SystemLiquidSlurry, Climate: ClimateCool, PastureFraction: 0.3}
		t1, err := e.Manure(in, nil)
		require.NoError(t, err)
		in.Tier = Tier2
		t2, err := e.Manure(in, nil)
		require.NoError(t, err)
		assert.Equal(t, t1.Value(), t2.Value())
	})

	t.Run("soil", func(t *testing.T) {
		in := SoilInput{SyntheticNKg: 4000, ManureNAppliedKg: 2000, GrazingNKg: 1500}
		t1, err := e.Soil(in, nil)
		require.NoError(t, err)
		in.Tier = Tier2
		t2, err := e.Soil(in, nil)
		require.NoError(t, err)
		assert.Equal(t, t1.Value(), t2.Value())
	})
}

func TestCrudeProteinOnlyRefinesNitrogenExcretion(t *testing.T) {
	e := newTestEngine()
	herd := Herd{CowsMilking: 100}
	detail := map[AnimalCategory]AnimalDetail{CategoryDairyCow: {CrudeProteinPct: ptr(16.5)}}

	t1, err := e.Enteric(EntericInput{Herd: herd, Tier: Tier1}, nil)
	require.NoError(t, err)
	t2, err := e.Enteric(EntericInput{Herd: herd, Tier: Tier2, Detail: detail}, nil)
	require.NoError(t, err)
	assert.Equal(t, t1.Value(), t2.Value())

	in := ManureInput{Herd: herd, System: SystemLiquidSlurry, Climate: ClimateCool}
	m1, err := e.Manure(in, nil)
	require.NoError(t, err)
	in.Tier = Tier2
	in.Detail = detail
	m2, err := e.Manure(in, nil)
	require.NoError(t, err)
	assert.Equal(t, m1.Breakdown["vs_kg"], m2.Breakdown["vs_kg"])
	assert.NotEqual(t, m1.Breakdown["n_excreted_kg"], m2.Breakdown["n_excreted_kg"])
}

func TestEntericExcludedIsNil(t *testing.T) {
	e := newTestEngine()
	b := mustBoundary(t, ScopePartial, SourceManure)

	res, err := e.Enteric(EntericInput{Herd: Herd{CowsMilking: 100}}, b)
	require.NoError(t, err)
	assert.Nil(t, res.CO2eqKg)
	assert.True(t, res.Excluded)
	assert.Equal(t, SourceEnteric, res.Source)
	assert.Equal(t, 0.0, res.Breakdown["ch4_total_kg"])
	assert.Empty(t, res.Steps)
	assert.NotEmpty(t, res.Methodology)
}

func TestExcludedSourcesReportZero(t *testing.T) {
	e := newTestEngine()
	b := mustBoundary(t, ScopePartial, SourceEnteric, SourceManure)

	energy, err := e.Energy(EnergyInput{DieselL: 1000}, b)
	require.NoError(t, err)
	require.NotNil(t, energy.CO2eqKg)
	assert.Equal(t, 0.0, *energy.CO2eqKg)
	assert.Equal(t, 0.0, energy.Breakdown["co2_diesel_kg"])
	assert.True(t, energy.Excluded)

	soil, err := e.Soil(SoilInput{SyntheticNKg: 1000}, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, *soil.CO2eqKg)

	inputs, err := e.Inputs(PurchasedInputs{ConcentrateKg: 1000}, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, *inputs.CO2eqKg)
	assert.Len(t, inputs.Breakdown, len(inputsKeys()))

	manure, err := e.Manure(ManureInput{Herd: Herd{CowsMilking: 10}}, b)
	require.NoError(t, err)
	assert.False(t, manure.Excluded)
	assert.Greater(t, manure.Value(), 0.0)
}

func TestExcludedStillValidates(t *testing.T) {
	e := newTestEngine()
	b := mustBoundary(t, ScopePartial, SourceEnteric)

	_, err := e.Energy(EnergyInput{DieselL: -5}, b)
	assertValidationError(t, err, "diesel_l")
}

func TestManureTier1(t *testing.T) {
	e := newTestEngine()

	res, err := e.Manure(ManureInput{Herd: Herd{CowsMilking: 100}, System: SystemLiquidSlurry}, nil)
	require.NoError(t, err)
	assertFiniteNonNegative(t, res)

	vs := 100 * 4.0 * 365
	ch4 := vs * 0.24 * 0.67 * 0.26
	direct := 100 * 90.0 * 0.005 * 44 / 28
	indirect := 100 * 90.0 * 0.40 * 0.010 * 44 / 28

	assert.InDelta(t, vs, res.Breakdown["vs_kg"], 1e-6)
	assert.InDelta(t, ch4, res.Breakdown["ch4_kg"], 1e-6)
	assert.InDelta(t, direct, res.Breakdown["n2o_direct_kg"], 1e-6)
	assert.InDelta(t, indirect, res.Breakdown["n2o_indirect_kg"], 1e-6)
	assert.InDelta(t, ch4*27+(direct+indirect)*273, res.Value(), 1e-6)
}

func TestManureDefaultsAndIndirectSwitch(t *testing.T) {
	e := newTestEngine()
	herd := Herd{CowsMilking: 50}

	withDefaults, err := e.Manure(ManureInput{Herd: herd}, nil)
	require.NoError(t, err)
	explicit, err := e.Manure(ManureInput{Herd: herd, System: DefaultManureSystem, Climate: ClimateTemperate}, nil)
	require.NoError(t, err)
	assert.Equal(t, explicit.Value(), withDefaults.Value())

	direct, err := e.Manure(ManureInput{Herd: herd, ExcludeIndirect: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, direct.Breakdown["n2o_indirect_kg"])
	assert.Less(t, direct.Value(), withDefaults.Value())
}

func TestManureTier2Refinements(t *testing.T) {
	e := newTestEngine()
	herd := Herd{CowsMilking: 100}

	warm, err := e.Manure(ManureInput{Herd: herd, Tier: Tier2, AvgTempC: ptr(28)}, nil)
	require.NoError(t, err)
	cool, err := e.Manure(ManureInput{Herd: herd, Tier: Tier2, AvgTempC: ptr(8)}, nil)
	require.NoError(t, err)
	assert.Greater(t, warm.Breakdown["ch4_kg"], cool.Breakdown["ch4_kg"])

	short, err := e.Manure(ManureInput{Herd: herd, Tier: Tier2, StorageMonths: ptr(1)}, nil)
	require.NoError(t, err)
	long, err := e.Manure(ManureInput{Herd: herd, Tier: Tier2, StorageMonths: ptr(12)}, nil)
	require.NoError(t, err)
	assert.InDelta(t, long.Breakdown["ch4_kg"]*0.25, short.Breakdown["ch4_kg"], 1e-6)

	cp, err := e.Manure(ManureInput{
		Herd:   herd,
		Tier:   Tier2,
		Detail: map[AnimalCategory]AnimalDetail{CategoryDairyCow: {DMIKgDay: ptr(22), CrudeProteinPct: ptr(17)}},
	}, nil)
	require.NoError(t, err)
	nex := 22 * 0.17 / 6.25 * (1 - 0.20) * 365
	assert.InDelta(t, 100*nex, cp.Breakdown["n_excreted_kg"], 1e-6)
}

func TestManurePastureFraction(t *testing.T) {
	e := newTestEngine()
	herd := Herd{CowsMilking: 100}

	housed, err := e.Manure(ManureInput{Herd: herd, System: SystemLiquidSlurry}, nil)
	require.NoError(t, err)
	grazing, err := e.Manure(ManureInput{Herd: herd, System: SystemLiquidSlurry, PastureFraction: 0.6}, nil)
	require.NoError(t, err)
	assert.Less(t, grazing.Breakdown["ch4_kg"], housed.Breakdown["ch4_kg"])

	_, err = e.Manure(ManureInput{Herd: herd, PastureFraction: 1.2}, nil)
	assertValidationError(t, err, "pasture_fraction")
}

func TestSoilTier1(t *testing.T) {
	e := newTestEngine()

	res, err := e.Soil(SoilInput{SyntheticNKg: 1000}, nil)
	require.NoError(t, err)
	assertFiniteNonNegative(t, res)

	direct := 1000 * 0.01 * 44.0 / 28
	volat := 1000 * 0.11 * 0.010 * 44.0 / 28
	leach := 1000 * 0.24 * 0.011 * 44.0 / 28
	assert.InDelta(t, direct, res.Breakdown["n2o_direct_kg"], 1e-9)
	assert.InDelta(t, volat, res.Breakdown["n2o_volatilisation_kg"], 1e-9)
	assert.InDelta(t, leach, res.Breakdown["n2o_leaching_kg"], 1e-9)
	assert.InDelta(t, (direct+volat+leach)*273, res.Value(), 1e-6)

	directOnly, err := e.Soil(SoilInput{SyntheticNKg: 1000, ExcludeIndirect: true}, nil)
	require.NoError(t, err)
	assert.InDelta(t, direct*273, directOnly.Value(), 1e-6)
}

func TestSoilTier2Moisture(t *testing.T) {
	e := newTestEngine()

	dry, err := e.Soil(SoilInput{SyntheticNKg: 1000, Tier: Tier2, ClimateMoisture: MoistureDry}, nil)
	require.NoError(t, err)
	wet, err := e.Soil(SoilInput{SyntheticNKg: 1000, Tier: Tier2, ClimateMoisture: MoistureWet}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, dry.Breakdown["n2o_leaching_kg"])
	assert.Greater(t, wet.Value(), dry.Value())
	assert.Equal(t, 0.016, wet.EmissionFactorsUsed["ef1_synthetic_wet"])

	urea, err := e.Soil(SoilInput{SyntheticNKg: 1000, Tier: Tier2, FertilizerType: FertilizerUrea}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.15, urea.EmissionFactorsUsed["frac_gasf_urea"])
}

func TestSoilValidation(t *testing.T) {
	e := newTestEngine()

	_, err := e.Soil(SoilInput{GrazingNKg: -1}, nil)
	assertValidationError(t, err, "grazing_n_kg")

	_, err = e.Soil(SoilInput{ClimateMoisture: "humid"}, nil)
	assertValidationError(t, err, "climate_moisture")

	_, err = e.Soil(SoilInput{Tier: 5}, nil)
	assertValidationError(t, err, "tier")
}

func TestEnergy(t *testing.T) {
	e := newTestEngine()

	res, err := e.Energy(EnergyInput{DieselL: 1000, ElectricityKWh: 10000, RenewableFraction: 0.5, Country: "FR"}, nil)
	require.NoError(t, err)
	assertFiniteNonNegative(t, res)

	assert.InDelta(t, 2680.0, res.Breakdown["co2_diesel_kg"], 1e-9)
	assert.InDelta(t, 300.0, res.Breakdown["co2_electricity_kg"], 1e-9)
	assert.InDelta(t, 2980.0, res.Value(), 1e-9)
	assert.Equal(t, 0.06, res.EmissionFactorsUsed["grid_electricity"])

	_, err = e.Energy(EnergyInput{RenewableFraction: 1.5}, nil)
	assertValidationError(t, err, "renewable_fraction")
}

func TestInputsFeedGatedByBoundary(t *testing.T) {
	e := newTestEngine()
	in := PurchasedInputs{
		ConcentrateKg:       10000,
		FertilizerNKg:       1000,
		FertilizerType:      FertilizerUrea,
		PlasticKg:           100,
		Feeds:               map[FeedCategory]float64{FeedSoybeanMeal: 5000, FeedHay: 2000},
		TransportDistanceKm: 100,
	}
	base := 10000*0.55 + 1000*3.3 + 100*2.5

	farmGate, err := e.Inputs(in, mustBoundary(t, ScopeFarmGate))
	require.NoError(t, err)
	assert.InDelta(t, base, farmGate.Value(), 1e-6)
	assert.Contains(t, farmGate.Notes, "purchased feed outside boundary")

	cradle, err := e.Inputs(in, mustBoundary(t, ScopeCradleToFarmGate))
	require.NoError(t, err)
	feed := 5000*0.70 + 2000*0.18
	transport := 7.0 * 100 * 0.062
	assert.InDelta(t, feed, cradle.Breakdown["co2eq_feed_kg"], 1e-6)
	assert.InDelta(t, transport, cradle.Breakdown["co2eq_transport_kg"], 1e-6)
	assert.InDelta(t, base+feed+transport, cradle.Value(), 1e-6)
}

func TestInputsValidation(t *testing.T) {
	e := newTestEngine()

	_, err := e.Inputs(PurchasedInputs{Feeds: map[FeedCategory]float64{"moon_cheese": 1}}, nil)
	assertValidationError(t, err, "feed")

	_, err = e.Inputs(PurchasedInputs{FertilizerType: "guano"}, nil)
	assertValidationError(t, err, "fertilizer_type")

	_, err = e.Inputs(PurchasedInputs{PlasticKg: 1, Uncertainty: &UncertaintyOptions{Samples: 10}}, nil)
	assertValidationError(t, err, "uncertainty.samples")
}

func TestCalculatorsAreMonotonic(t *testing.T) {
	e := newTestEngine()
	steps := []float64{0, 1, 10, 100, 1000}

	checks := map[string]func(q float64) (*SourceResult, error){
		"enteric cows": func(q float64) (*SourceResult, error) {
			return e.Enteric(EntericInput{Herd: Herd{CowsMilking: q, Heifers: 10}}, nil)
		},
		"manure cows": func(q float64) (*SourceResult, error) {
			return e.Manure(ManureInput{Herd: Herd{CowsMilking: q}, PastureFraction: 0.4}, nil)
		},
		"soil synthetic n": func(q float64) (*SourceResult, error) {
			return e.Soil(SoilInput{SyntheticNKg: q, OrganicNKg: 50}, nil)
		},
		"energy diesel": func(q float64) (*SourceResult, error) {
			return e.Energy(EnergyInput{DieselL: q, ElectricityKWh: 500}, nil)
		},
		"energy electricity": func(q float64) (*SourceResult, error) {
			return e.Energy(EnergyInput{ElectricityKWh: q, RenewableFraction: 0.2}, nil)
		},
		"inputs fertilizer n": func(q float64) (*SourceResult, error) {
			return e.Inputs(PurchasedInputs{FertilizerNKg: q, PlasticKg: 10}, nil)
		},
		"inputs feed": func(q float64) (*SourceResult, error) {
			return e.Inputs(PurchasedInputs{Feeds: map[FeedCategory]float64{FeedBarley: q}, TransportDistanceKm: 50}, nil)
		},
	}

	for name, calc := range checks {
		t.Run(name, func(t *testing.T) {
			prev := -1.0
			for _, q := range steps {
				res, err := calc(q)
				require.NoError(t, err)
				assertFiniteNonNegative(t, res)
				assert.GreaterOrEqual(t, res.Value(), prev)
				prev = res.Value()
			}
		})
	}
}

func TestInputsUncertainty(t *testing.T) {
	e := newTestEngine()
	in := PurchasedInputs{ConcentrateKg: 20000, Uncertainty: &UncertaintyOptions{Samples: 5000, CV: ptr(0.2), Seed: 42}}

	first, err := e.Inputs(in, nil)
	require.NoError(t, err)
	require.NotNil(t, first.Uncertainty)
	u := first.Uncertainty

	point := first.Value()
	assert.Equal(t, 20000*0.55, point)
	assert.InEpsilon(t, point, u.Mean, 0.02)
	assert.InEpsilon(t, point*0.2, u.StdDev, 0.1)
	assert.Less(t, u.CI95Low, u.P5)
	assert.Less(t, u.P5, u.P25)
	assert.Less(t, u.P25, u.Median)
	assert.Less(t, u.Median, u.P75)
	assert.Less(t, u.P75, u.P95)
	assert.Less(t, u.P95, u.CI95High)
	assert.Equal(t, 5000, u.Samples)

	second, err := e.Inputs(in, nil)
	require.NoError(t, err)
	assert.Equal(t, *first.Uncertainty, *second.Uncertainty)

	defaults, err := e.Inputs(PurchasedInputs{ConcentrateKg: 1, Uncertainty: &UncertaintyOptions{}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1000, defaults.Uncertainty.Samples)
	assert.Equal(t, 0.2, defaults.Uncertainty.CV)

	flat, err := e.Inputs(PurchasedInputs{ConcentrateKg: 1000, Uncertainty: &UncertaintyOptions{CV: ptr(0)}}, nil)
	require.NoError(t, err)
	require.NotNil(t, flat.Uncertainty)
	assert.Equal(t, 0.0, flat.Uncertainty.CV)
	assert.InDelta(t, flat.Value(), flat.Uncertainty.Mean, 1e-9)
	assert.Equal(t, 0.0, flat.Uncertainty.StdDev)
	assert.Equal(t, flat.Value(), flat.Uncertainty.CI95Low)
	assert.Equal(t, flat.Value(), flat.Uncertainty.CI95High)
}
