package views

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/dairy-footprint/internal/batch"
	"carbon-scribe/dairy-footprint/internal/emissions"
	"carbon-scribe/dairy-footprint/internal/factors"
	"carbon-scribe/dairy-footprint/internal/store/sqlite"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

func sampleTotal(t *testing.T) *emissions.TotalResult {
	t.Helper()
	total, err := emissions.Aggregate([]any{
		map[string]any{"source": "enteric", "co2eq_kg": 1000.0},
		map[string]any{"source": "energy", "total_co2eq_kg": 500.0},
	})
	require.NoError(t, err)
	return total
}

func TestPrintTotal(t *testing.T) {
	total := sampleTotal(t)
	var buf bytes.Buffer

	assert.Same(t, total, PrintTotal(&buf, total))
	out := buf.String()
	assert.Contains(t, out, "enteric")
	assert.Contains(t, out, "1500.0")
	assert.Contains(t, out, "66.7")

	buf.Reset()
	assert.Nil(t, PrintTotal(&buf, nil))
	assert.Contains(t, buf.String(), "no total")
}

func TestPrintIntensity(t *testing.T) {
	in, err := emissions.MilkIntensity(85000, emissions.MilkProduction{Litres: 750000})
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Same(t, in, PrintIntensity(&buf, in))
	assert.Contains(t, buf.String(), "kg CO2e / kg FPCM")
	assert.Contains(t, buf.String(), "772407")
}

func TestPrintAreaIntensity(t *testing.T) {
	productive := 135.0
	a, err := emissions.AreaIntensity(95000, emissions.AreaInput{
		TotalHa:         150,
		ProductiveHa:    &productive,
		Breakdown:       map[string]float64{"pasture": 100, "crops": 30},
		ValidateAreaSum: true,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Same(t, a, PrintAreaIntensity(&buf, a))
	out := buf.String()
	assert.Contains(t, out, "633.33")
	assert.Contains(t, out, "pasture")
	assert.Contains(t, out, "warning: area breakdown sums to 130.00 ha")
}

func TestPrintSourceAndRun(t *testing.T) {
	engine := emissions.NewEngine(nil, emissions.DefaultDefaults())
	res, err := engine.Energy(emissions.EnergyInput{DieselL: 1000, ElectricityKWh: 5000, Country: "FR"}, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Same(t, res, PrintSource(&buf, res))
	assert.Contains(t, buf.String(), "factor diesel")
	assert.Contains(t, buf.String(), "2980.0")

	table := []batch.FarmRecord{
		{FarmID: "GOOD", MilkLitres: 500000, CowsMilking: 90},
		{FarmID: "BAD", MilkLitres: 0, CowsMilking: 90},
	}
	run, err := batch.NewRunner(nil, nil, nil, batch.Options{}).Run(context.Background(), table, emissions.Tier1, nil, "")
	require.NoError(t, err)

	buf.Reset()
	assert.Same(t, run, PrintRun(&buf, run))
	out := buf.String()
	assert.Contains(t, out, run.RunID)
	assert.Contains(t, out, "GOOD")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "milk_litres")
}

func TestPrintHistoryAndFactor(t *testing.T) {
	var buf bytes.Buffer
	PrintHistory(&buf, nil)
	assert.Contains(t, buf.String(), "no stored runs")

	buf.Reset()
	runs := []sqlite.RunSummary{{RunID: "abc123", Summary: batch.Summary{Tier: 2, Scope: "farm_gate", NFarmsProcessed: 4, TotalEmissionsCO2eq: 1234.5}}}
	assert.Len(t, PrintHistory(&buf, runs), 1)
	assert.Contains(t, buf.String(), "abc123")
	assert.Contains(t, buf.String(), "1234.5")

	f, err := factors.NewRegistry().Get("fuel.diesel", "FR", 1)
	require.NoError(t, err)
	buf.Reset()
	PrintFactor(&buf, f)
	assert.Contains(t, buf.String(), "2.68 kg CO2/l")
	assert.Contains(t, buf.String(), "(fallback)")
}
