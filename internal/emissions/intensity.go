package emissions

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Milk composition defaults used when a farm does not report its own
const (
	DefaultFatPercent     = 4.0
	DefaultProteinPercent = 3.3
	DefaultMilkDensity    = 1.03 // kg/l
)

// areaSumTolerance is the accepted relative gap between a land-use breakdown and the total area
const areaSumTolerance = 0.01

// MilkProduction is annual milk output and composition
type MilkProduction struct {
	Litres         float64  `json:"milk_litres"`
	FatPercent     *float64 `json:"fat_percent,omitempty"`
	ProteinPercent *float64 `json:"protein_percent,omitempty"`
	DensityKgPerL  *float64 `json:"milk_density,omitempty"`
}

// IntensityResult expresses a total per unit of fat- and protein-corrected milk
type IntensityResult struct {
	IntensityCO2eqPerKgFPCM float64   `json:"intensity_co2eq_per_kg_fpcm"`
	IntensityCO2eqPerLitre  float64   `json:"intensity_co2eq_per_litre"`
	FPCMProductionKg        float64   `json:"fpcm_production_kg"`
	MilkProductionKg        float64   `json:"milk_production_kg"`
	MilkProductionLitres    float64   `json:"milk_production_litres"`
	FatPercent              float64   `json:"fat_percent"`
	ProteinPercent          float64   `json:"protein_percent"`
	MilkDensityKgPerL       float64   `json:"milk_density_kg_per_l"`
	TotalEmissionsCO2eq     float64   `json:"total_emissions_co2eq"`
	Date                    time.Time `json:"date"`
}

// FPCM converts milk mass to fat- and protein-corrected milk (IDF 2015)
func FPCM(milkKg, fatPct, proteinPct float64) float64 {
	return milkKg * (0.1226*fatPct + 0.0776*proteinPct + 0.2534)
}

// MilkIntensity divides a farm total by its FPCM production
func MilkIntensity(totalCO2eq float64, milk MilkProduction) (*IntensityResult, error) {
	if math.IsNaN(totalCO2eq) || math.IsInf(totalCO2eq, 0) || totalCO2eq < 0 {
		return nil, invalid("total_emissions", totalCO2eq, ">= 0")
	}
	if math.IsNaN(milk.Litres) || math.IsInf(milk.Litres, 0) || milk.Litres <= 0 {
		return nil, invalid("milk_litres", milk.Litres, "> 0")
	}
	if err := checkPercent("fat_percent", milk.FatPercent); err != nil {
		return nil, err
	}
	if err := checkPercent("protein_percent", milk.ProteinPercent); err != nil {
		return nil, err
	}
	density := valueOr(milk.DensityKgPerL, DefaultMilkDensity)
	if math.IsNaN(density) || density <= 0 {
		return nil, invalid("milk_density", density, "> 0")
	}

	fat := valueOr(milk.FatPercent, DefaultFatPercent)
	protein := valueOr(milk.ProteinPercent, DefaultProteinPercent)
	milkKg := milk.Litres * density
	fpcm := FPCM(milkKg, fat, protein)
	if fpcm <= 0 {
		return nil, invalid("fpcm_production_kg", fpcm, "> 0")
	}

	return &IntensityResult{
		IntensityCO2eqPerKgFPCM: totalCO2eq / fpcm,
		IntensityCO2eqPerLitre:  totalCO2eq / milk.Litres,
		FPCMProductionKg:        fpcm,
		MilkProductionKg:        milkKg,
		MilkProductionLitres:    milk.Litres,
		FatPercent:              fat,
		ProteinPercent:          protein,
		MilkDensityKgPerL:       density,
		TotalEmissionsCO2eq:     totalCO2eq,
		Date:                    time.Now().UTC().Truncate(24 * time.Hour),
	}, nil
}

// AreaInput is the farm land base in hectares
type AreaInput struct {
	TotalHa float64 `json:"area_total_ha"`
	// ProductiveHa defaults to TotalHa
	ProductiveHa *float64 `json:"area_productive_ha,omitempty"`
	// Breakdown maps land use (pasture, crops, forest, ...) to hectares
	Breakdown       map[string]float64 `json:"area_breakdown,omitempty"`
	ValidateAreaSum bool               `json:"validate_area_sum,omitempty"`
}

// LandUseAllocation is the share of emissions attributed to one land use
type LandUseAllocation struct {
	LandUse  string  `json:"land_use"`
	Hectares float64 `json:"hectares"`
	Percent  float64 `json:"percent"`
	CO2eqKg  float64 `json:"co2eq_kg"`
}

// AreaIntensityResult expresses a total per hectare
type AreaIntensityResult struct {
	IntensityPerTotalHa      float64             `json:"intensity_per_total_ha"`
	IntensityPerProductiveHa float64             `json:"intensity_per_productive_ha"`
	LandUseEfficiency        float64             `json:"land_use_efficiency"`
	AreaTotalHa              float64             `json:"area_total_ha"`
	AreaProductiveHa         float64             `json:"area_productive_ha"`
	TotalEmissionsCO2eq      float64             `json:"total_emissions_co2eq"`
	AreaBreakdown            map[string]float64  `json:"area_breakdown,omitempty"`
	Allocations              []LandUseAllocation `json:"allocations,omitempty"`
	Warnings                 []string            `json:"warnings,omitempty"`
	Date                     time.Time           `json:"date"`
}

// AreaIntensity divides a farm total by its land base
func AreaIntensity(totalCO2eq float64, area AreaInput) (*AreaIntensityResult, error) {
	if math.IsNaN(totalCO2eq) || math.IsInf(totalCO2eq, 0) || totalCO2eq < 0 {
		return nil, invalid("total_emissions", totalCO2eq, ">= 0")
	}
	if math.IsNaN(area.TotalHa) || math.IsInf(area.TotalHa, 0) || area.TotalHa <= 0 {
		return nil, invalid("area_total_ha", area.TotalHa, "> 0")
	}
	productive := valueOr(area.ProductiveHa, area.TotalHa)
	if math.IsNaN(productive) || math.IsInf(productive, 0) || productive <= 0 {
		return nil, invalid("area_productive_ha", productive, "> 0")
	}

	res := &AreaIntensityResult{
		IntensityPerTotalHa:      totalCO2eq / area.TotalHa,
		IntensityPerProductiveHa: totalCO2eq / productive,
		LandUseEfficiency:        productive / area.TotalHa,
		AreaTotalHa:              area.TotalHa,
		AreaProductiveHa:         productive,
		TotalEmissionsCO2eq:      totalCO2eq,
		Date:                     time.Now().UTC().Truncate(24 * time.Hour),
	}
	if productive > area.TotalHa {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("area_productive_ha %.2f exceeds area_total_ha %.2f", productive, area.TotalHa))
	}
	if len(area.Breakdown) == 0 {
		return res, nil
	}

	uses := make([]string, 0, len(area.Breakdown))
	var sum float64
	for use, ha := range area.Breakdown {
		if err := checkQuantity("area_breakdown."+use, ha); err != nil {
			return nil, err
		}
		uses = append(uses, use)
		sum += ha
	}
	sort.Strings(uses)

	if area.ValidateAreaSum && math.Abs(sum-area.TotalHa) > areaSumTolerance*area.TotalHa {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("area breakdown sums to %.2f ha but area_total_ha is %.2f ha", sum, area.TotalHa))
	}
	if sum == 0 {
		res.Warnings = append(res.Warnings, "area breakdown is all zero, no allocation made")
		return res, nil
	}

	res.AreaBreakdown = make(map[string]float64, len(uses))
	for _, use := range uses {
		ha := area.Breakdown[use]
		share := ha / sum
		res.AreaBreakdown[use] = share * 100
		res.Allocations = append(res.Allocations, LandUseAllocation{
			LandUse:  use,
			Hectares: ha,
			Percent:  share * 100,
			CO2eqKg:  totalCO2eq * share,
		})
	}
	return res, nil
}
