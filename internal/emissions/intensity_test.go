package emissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilkIntensityFPCM(t *testing.T) {
	res, err := MilkIntensity(85000, MilkProduction{
		Litres:         750000,
		FatPercent:     ptr(4),
		ProteinPercent: ptr(3.3),
		DensityKgPerL:  ptr(1.03),
	})
	require.NoError(t, err)

	assert.InDelta(t, 772500.0, res.MilkProductionKg, 1e-6)
	assert.InDelta(t, 772407.0, res.FPCMProductionKg, 1)
	assert.InDelta(t, 0.11, res.IntensityCO2eqPerKgFPCM, 0.005)
	assert.InDelta(t, 85000.0/772407.3, res.IntensityCO2eqPerKgFPCM, 1e-6)
	assert.InDelta(t, 85000.0/750000, res.IntensityCO2eqPerLitre, 1e-12)
}

func TestMilkIntensityDefaults(t *testing.T) {
	res, err := MilkIntensity(85000, MilkProduction{Litres: 750000})
	require.NoError(t, err)

	assert.Equal(t, DefaultFatPercent, res.FatPercent)
	assert.Equal(t, DefaultProteinPercent, res.ProteinPercent)
	assert.Equal(t, DefaultMilkDensity, res.MilkDensityKgPerL)
	assert.InDelta(t, 772407.0, res.FPCMProductionKg, 1)
}

func TestMilkIntensityValidation(t *testing.T) {
	_, err := MilkIntensity(100, MilkProduction{Litres: 0})
	assertValidationError(t, err, "milk_litres")

	_, err = MilkIntensity(100, MilkProduction{Litres: -10})
	assertValidationError(t, err, "milk_litres")

	_, err = MilkIntensity(-1, MilkProduction{Litres: 10})
	assertValidationError(t, err, "total_emissions")

	_, err = MilkIntensity(1, MilkProduction{Litres: 10, FatPercent: ptr(120)})
	assertValidationError(t, err, "fat_percent")

	_, err = MilkIntensity(1, MilkProduction{Litres: 10, DensityKgPerL: ptr(0)})
	assertValidationError(t, err, "milk_density")
}

func TestAreaIntensity(t *testing.T) {
	res, err := AreaIntensity(95000, AreaInput{TotalHa: 150, ProductiveHa: ptr(135)})
	require.NoError(t, err)

	assert.InDelta(t, 633.33, res.IntensityPerTotalHa, 0.01)
	assert.InDelta(t, 703.70, res.IntensityPerProductiveHa, 0.01)
	assert.InDelta(t, 0.9, res.LandUseEfficiency, 1e-12)
	assert.Empty(t, res.Allocations)
}

func TestAreaIntensityProductiveDefaultsToTotal(t *testing.T) {
	res, err := AreaIntensity(1000, AreaInput{TotalHa: 50})
	require.NoError(t, err)

	assert.Equal(t, 50.0, res.AreaProductiveHa)
	assert.Equal(t, res.IntensityPerTotalHa, res.IntensityPerProductiveHa)
	assert.Equal(t, 1.0, res.LandUseEfficiency)
}

func TestAreaIntensityBreakdown(t *testing.T) {
	res, err := AreaIntensity(10000, AreaInput{
		TotalHa:         100,
		Breakdown:       map[string]float64{"pasture": 60, "crops": 30, "forest": 10},
		ValidateAreaSum: true,
	})
	require.NoError(t, err)

	assert.Empty(t, res.Warnings)
	assert.InDelta(t, 60.0, res.AreaBreakdown["pasture"], 1e-9)
	require.Len(t, res.Allocations, 3)
	assert.Equal(t, "crops", res.Allocations[0].LandUse)
	assert.InDelta(t, 3000.0, res.Allocations[0].CO2eqKg, 1e-9)

	var allocated float64
	for _, a := range res.Allocations {
		allocated += a.CO2eqKg
	}
	assert.InDelta(t, 10000.0, allocated, 1e-9)
}

func TestAreaIntensitySumMismatchIsWarning(t *testing.T) {
	area := AreaInput{
		TotalHa:         100,
		Breakdown:       map[string]float64{"pasture": 70, "crops": 20},
		ValidateAreaSum: true,
	}
	res, err := AreaIntensity(9000, area)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "90.00 ha")

	area.Breakdown = map[string]float64{"pasture": 70, "crops": 29.5}
	res, err = AreaIntensity(9000, area)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	area.ValidateAreaSum = false
	area.Breakdown = map[string]float64{"pasture": 10}
	res, err = AreaIntensity(9000, area)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}

func TestAreaIntensityProductiveAboveTotalIsWarning(t *testing.T) {
	res, err := AreaIntensity(1200, AreaInput{TotalHa: 10, ProductiveHa: ptr(12)})
	require.NoError(t, err)
	assert.InDelta(t, 120.0, res.IntensityPerTotalHa, 1e-9)
	assert.InDelta(t, 100.0, res.IntensityPerProductiveHa, 1e-9)
	assert.InDelta(t, 1.2, res.LandUseEfficiency, 1e-9)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "exceeds area_total_ha")
}

func TestAreaIntensityValidation(t *testing.T) {
	_, err := AreaIntensity(100, AreaInput{TotalHa: 0})
	assertValidationError(t, err, "area_total_ha")

	_, err = AreaIntensity(100, AreaInput{TotalHa: 10, ProductiveHa: ptr(0)})
	assertValidationError(t, err, "area_productive_ha")

	_, err = AreaIntensity(-5, AreaInput{TotalHa: 10})
	assertValidationError(t, err, "total_emissions")

	_, err = AreaIntensity(100, AreaInput{TotalHa: 10, Breakdown: map[string]float64{"pasture": -1}})
	assertValidationError(t, err, "area_breakdown.pasture")
}
