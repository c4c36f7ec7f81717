package batch

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/dairy-footprint/internal/benchmarks"
	"carbon-scribe/dairy-footprint/internal/emissions"
	"carbon-scribe/dairy-footprint/internal/factors"
)

func ptr(v float64) *float64 { return &v }

func sampleFarm(id string, milk, cows float64) FarmRecord {
	return FarmRecord{
		FarmID:         id,
		MilkLitres:     milk,
		CowsMilking:    cows,
		Heifers:        ptr(30),
		Region:         "western_europe",
		Country:        "IE",
		SyntheticNKg:   ptr(8000),
		GrazingNKg:     ptr(3000),
		DieselL:        ptr(10000),
		ElectricityKWh: ptr(40000),
		ConcentrateKg:  ptr(120000),
		PlasticKg:      ptr(300),
		SoybeanMealKg:  ptr(15000),
	}
}

// panickySource blows up for one region to simulate a broken factor table
type panickySource struct {
	inner *factors.Registry
}

func (p panickySource) Get(substance, region string, tier int) (factors.Factor, error) {
	if region == "boom" {
		panic("factor table corrupted")
	}
	return p.inner.Get(substance, region, tier)
}

type failingRepository struct{}

func (failingRepository) GetBenchmarks(context.Context, string) ([]*benchmarks.Benchmark, error) {
	return nil, errors.New("benchmark store offline")
}

func TestRunRejectsInvalidParameters(t *testing.T) {
	r := NewRunner(nil, nil, nil, Options{})
	ctx := context.Background()

	_, err := r.Run(ctx, nil, emissions.Tier1, nil, "")
	var ve *emissions.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "table", ve.Field)

	for _, tier := range []emissions.Tier{0, 3, -1} {
		_, err = r.Run(ctx, []FarmRecord{sampleFarm("A", 1000, 10)}, tier, nil, "")
		require.True(t, errors.As(err, &ve), "tier %d", tier)
		assert.Equal(t, "tier", ve.Field)
	}
}

func TestRunPartialFailureIsolation(t *testing.T) {
	r := NewRunner(nil, nil, nil, Options{})
	table := []FarmRecord{
		sampleFarm("F1", 750000, 120),
		sampleFarm("F2", -5, 80),
	}

	run, err := r.Run(context.Background(), table, emissions.Tier1, nil, "")
	require.NoError(t, err)
	require.Len(t, run.FarmResults, 2)

	assert.Equal(t, 2, run.Summary.NFarmsProcessed)
	assert.Equal(t, 1, run.Summary.NFarmsSuccessful)
	assert.Equal(t, 1, run.Summary.NFarmsWithErrors)

	ok := run.FarmResults[0]
	assert.Equal(t, StatusSuccess, ok.Status)
	require.NotNil(t, ok.Success)
	assert.Nil(t, ok.Failure)
	assert.Len(t, ok.Success.Sources, 5)
	assert.Greater(t, ok.Success.Total.TotalCO2eq, 0.0)
	assert.Greater(t, ok.Success.Intensity.IntensityCO2eqPerKgFPCM, 0.0)

	bad := run.FarmResults[1]
	assert.Equal(t, "F2", bad.FarmID)
	assert.Equal(t, 2, bad.Row)
	assert.Equal(t, StatusFailed, bad.Status)
	assert.Nil(t, bad.Success)
	require.NotNil(t, bad.Failure)
	assert.Equal(t, "validation", bad.Failure.Kind)
	assert.Equal(t, "milk_litres", bad.Failure.Field)

	assert.InDelta(t, ok.Success.Total.TotalCO2eq, run.Summary.TotalEmissionsCO2eq, 1e-9)
	assert.InDelta(t, ok.Success.Intensity.IntensityCO2eqPerKgFPCM, run.Summary.MeanIntensity, 1e-12)
}

func TestRunIsIdempotent(t *testing.T) {
	r := NewRunner(nil, nil, nil, Options{Workers: 3})
	table := []FarmRecord{
		sampleFarm("F1", 750000, 120),
		sampleFarm("F2", 420000, 65),
		sampleFarm("F3", 0, 40),
	}
	boundary, err := emissions.NewBoundary(emissions.ScopeCradleToFarmGate)
	require.NoError(t, err)

	first, err := r.Run(context.Background(), table, emissions.Tier2, boundary, "")
	require.NoError(t, err)
	second, err := r.Run(context.Background(), table, emissions.Tier2, boundary, "")
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.FarmResults, second.FarmResults)
	assert.Equal(t, first.Summary.TotalEmissionsCO2eq, second.Summary.TotalEmissionsCO2eq)
	assert.Equal(t, 1, first.Summary.NFarmsWithErrors)
}

func TestRunKeepsRowOrderWithWorkers(t *testing.T) {
	table := make([]FarmRecord, 25)
	for i := range table {
		table[i] = sampleFarm(fmt.Sprintf("F%02d", i), 100000+float64(i)*1000, 10+float64(i))
	}
	table[7].FarmID = ""

	run, err := NewRunner(nil, nil, nil, Options{Workers: 4}).Run(context.Background(), table, emissions.Tier1, nil, "")
	require.NoError(t, err)

	for i, fr := range run.FarmResults {
		assert.Equal(t, i+1, fr.Row)
		assert.Equal(t, StatusSuccess, fr.Status)
		if i == 7 {
			assert.Equal(t, "row_8", fr.FarmID)
			continue
		}
		assert.Equal(t, fmt.Sprintf("F%02d", i), fr.FarmID)
	}
	// more cows means more enteric methane
	assert.Less(t, run.FarmResults[0].Success.Sources[0].Value(), run.FarmResults[24].Success.Sources[0].Value())
}

func TestRunRecoversFromPanics(t *testing.T) {
	engine := emissions.NewEngine(panickySource{inner: factors.NewRegistry()}, emissions.DefaultDefaults())
	r := NewRunner(engine, nil, nil, Options{})

	broken := sampleFarm("BROKEN", 500000, 90)
	broken.Region = "boom"
	table := []FarmRecord{sampleFarm("F1", 750000, 120), broken, sampleFarm("F3", 300000, 50)}

	run, err := r.Run(context.Background(), table, emissions.Tier1, nil, "")
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, run.FarmResults[0].Status)
	assert.Equal(t, StatusFailed, run.FarmResults[1].Status)
	assert.Equal(t, "internal", run.FarmResults[1].Failure.Kind)
	assert.Contains(t, run.FarmResults[1].Failure.Reason, "factor table corrupted")
	assert.Equal(t, StatusSuccess, run.FarmResults[2].Status)
}

func TestRunReportsDecodeErrors(t *testing.T) {
	rec := ParseRow(map[string]string{"farm_id": "X1", "milk_litres": "lots", "cows_milking": "10"})
	require.Error(t, rec.DecodeErr)

	run, err := NewRunner(nil, nil, nil, Options{}).Run(context.Background(), []FarmRecord{rec}, emissions.Tier1, nil, "")
	require.NoError(t, err)

	fr := run.FarmResults[0]
	assert.Equal(t, "X1", fr.FarmID)
	assert.Equal(t, StatusFailed, fr.Status)
	assert.Contains(t, fr.Failure.Reason, "milk_litres")
	assert.Equal(t, "validation", fr.Failure.Kind)
	assert.Equal(t, "milk_litres", fr.Failure.Field)
}

func TestRunBoundaryExcludesSources(t *testing.T) {
	boundary, err := emissions.NewBoundary(emissions.ScopePartial, emissions.SourceEnteric, emissions.SourceManure)
	require.NoError(t, err)

	run, err := NewRunner(nil, nil, nil, Options{}).Run(context.Background(), []FarmRecord{sampleFarm("F1", 750000, 120)}, emissions.Tier1, boundary, "")
	require.NoError(t, err)

	success := run.FarmResults[0].Success
	require.NotNil(t, success)
	total := success.Total
	assert.Equal(t, 0.0, total.Breakdown[emissions.SourceSoil])
	assert.Equal(t, 0.0, total.Breakdown[emissions.SourceEnergy])
	assert.Equal(t, 0.0, total.Breakdown[emissions.SourceInputs])
	assert.InDelta(t, total.Breakdown[emissions.SourceEnteric]+total.Breakdown[emissions.SourceManure], total.TotalCO2eq, 1e-6)
	assert.Equal(t, []string{"enteric", "manure"}, run.Summary.BoundariesUsed)
	assert.Equal(t, "partial", run.Summary.Scope)
}

func TestRunTier2UsesDetailColumns(t *testing.T) {
	plain := sampleFarm("PLAIN", 750000, 120)
	detailed := sampleFarm("DETAIL", 750000, 120)
	detailed.DMICowsKgDay = ptr(24)
	detailed.YmCowsPct = ptr(5.5)

	run, err := NewRunner(nil, nil, nil, Options{}).Run(context.Background(), []FarmRecord{plain, detailed}, emissions.Tier2, nil, "")
	require.NoError(t, err)

	tier1, err := NewRunner(nil, nil, nil, Options{}).Run(context.Background(), []FarmRecord{plain}, emissions.Tier1, nil, "")
	require.NoError(t, err)

	// no detail columns means Tier 2 falls back to Tier 1 factors
	assert.InDelta(t, tier1.FarmResults[0].Success.Total.TotalCO2eq, run.FarmResults[0].Success.Total.TotalCO2eq, 1e-6)
	assert.NotEqual(t, run.FarmResults[0].Success.Sources[0].Value(), run.FarmResults[1].Success.Sources[0].Value())
}

func TestRunAreaIntensity(t *testing.T) {
	rec := sampleFarm("F1", 750000, 120)
	rec.AreaTotalHa = ptr(150)
	rec.AreaProductiveHa = ptr(135)
	rec.AreaPastureHa = ptr(100)
	rec.AreaCropsHa = ptr(30)

	run, err := NewRunner(nil, nil, nil, Options{}).Run(context.Background(), []FarmRecord{rec, sampleFarm("F2", 750000, 120)}, emissions.Tier1, nil, "")
	require.NoError(t, err)

	area := run.FarmResults[0].Success.AreaIntensity
	require.NotNil(t, area)
	assert.InDelta(t, 0.9, area.LandUseEfficiency, 1e-9)
	assert.NotEmpty(t, area.Warnings, "breakdown covers 130 of 150 ha")
	assert.Nil(t, run.FarmResults[1].Success.AreaIntensity)
}

func TestRunBenchmarks(t *testing.T) {
	table := []FarmRecord{sampleFarm("F1", 750000, 120)}

	cmp := benchmarks.NewComparator(benchmarks.NewStaticRepository(), nil)
	run, err := NewRunner(nil, cmp, nil, Options{}).Run(context.Background(), table, emissions.Tier1, nil, "western_europe")
	require.NoError(t, err)
	bench := run.FarmResults[0].Success.Benchmark
	require.NotNil(t, bench)
	assert.InDelta(t, 1.3, bench.Reference, 1e-9)
	assert.Equal(t, "western_europe", run.Summary.BenchmarkRegion)

	noBench, err := NewRunner(nil, cmp, nil, Options{}).Run(context.Background(), table, emissions.Tier1, nil, "")
	require.NoError(t, err)
	assert.Nil(t, noBench.FarmResults[0].Success.Benchmark)

	failing := benchmarks.NewComparator(failingRepository{}, nil)
	degraded, err := NewRunner(nil, failing, nil, Options{}).Run(context.Background(), table, emissions.Tier1, nil, "western_europe")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, degraded.FarmResults[0].Status)
	assert.Nil(t, degraded.FarmResults[0].Success.Benchmark)
	// annotation never changes the numbers
	assert.Equal(t, run.FarmResults[0].Success.Total.TotalCO2eq, degraded.FarmResults[0].Success.Total.TotalCO2eq)
}

func TestRunUncertaintyOption(t *testing.T) {
	opts := Options{Uncertainty: &emissions.UncertaintyOptions{Samples: 500, Seed: 7}}
	run, err := NewRunner(nil, nil, nil, opts).Run(context.Background(), []FarmRecord{sampleFarm("F1", 750000, 120)}, emissions.Tier1, nil, "")
	require.NoError(t, err)

	inputs := run.FarmResults[0].Success.Sources[4]
	assert.Equal(t, emissions.SourceInputs, inputs.Source)
	require.NotNil(t, inputs.Uncertainty)
	assert.Equal(t, 500, inputs.Uncertainty.Samples)
}
