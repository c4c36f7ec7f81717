package export

import (
	"strings"

	"carbon-scribe/dairy-footprint/internal/batch"
	"carbon-scribe/dairy-footprint/internal/emissions"
)

// FarmColumns is the flat per-farm layout shared by the workbook and CSV exports
var FarmColumns = []string{
	"row", "farm_id", "status",
	"total_co2eq_kg",
	"enteric_co2eq_kg", "manure_co2eq_kg", "soil_co2eq_kg", "energy_co2eq_kg", "inputs_co2eq_kg",
	"fpcm_kg", "intensity_kg_co2eq_per_kg_fpcm", "intensity_kg_co2eq_per_litre",
	"intensity_kg_co2eq_per_ha", "intensity_kg_co2eq_per_productive_ha",
	"benchmark_reference", "benchmark_percentile", "benchmark_label",
	"error_field", "error",
}

// SourceColumns is the per-source detail layout
var SourceColumns = []string{
	"farm_id", "source", "co2eq_kg", "tier", "methodology", "excluded", "notes",
	"ci95_low_kg", "ci95_high_kg",
}

var summaryColumns = []string{"metric", "value"}

func summaryRows(run *batch.RunResult) []map[string]any {
	s := run.Summary
	pairs := []struct {
		metric string
		value  any
	}{
		{"run_id", run.RunID},
		{"processing_date", s.ProcessingDate},
		{"tier", s.Tier},
		{"scope", s.Scope},
		{"boundaries_used", strings.Join(s.BoundariesUsed, ", ")},
		{"benchmark_region", s.BenchmarkRegion},
		{"n_farms_processed", s.NFarmsProcessed},
		{"n_farms_successful", s.NFarmsSuccessful},
		{"n_farms_with_errors", s.NFarmsWithErrors},
		{"total_emissions_co2eq_kg", s.TotalEmissionsCO2eq},
		{"mean_intensity_kg_co2eq_per_kg_fpcm", s.MeanIntensity},
	}
	rows := make([]map[string]any, len(pairs))
	for i, p := range pairs {
		rows[i] = map[string]any{"metric": p.metric, "value": p.value}
	}
	return rows
}

func farmRows(run *batch.RunResult) []map[string]any {
	rows := make([]map[string]any, 0, len(run.FarmResults))
	for _, fr := range run.FarmResults {
		row := map[string]any{
			"row":     fr.Row,
			"farm_id": fr.FarmID,
			"status":  string(fr.Status),
		}
		if fr.Failure != nil {
			row["error_field"] = fr.Failure.Field
			row["error"] = fr.Failure.Reason
		}
		if s := fr.Success; s != nil {
			row["total_co2eq_kg"] = s.Total.TotalCO2eq
			for _, tag := range []emissions.SourceTag{
				emissions.SourceEnteric, emissions.SourceManure, emissions.SourceSoil,
				emissions.SourceEnergy, emissions.SourceInputs,
			} {
				row[string(tag)+"_co2eq_kg"] = s.Total.Breakdown[tag]
			}
			row["fpcm_kg"] = s.Intensity.FPCMProductionKg
			row["intensity_kg_co2eq_per_kg_fpcm"] = s.Intensity.IntensityCO2eqPerKgFPCM
			row["intensity_kg_co2eq_per_litre"] = s.Intensity.IntensityCO2eqPerLitre
			if a := s.AreaIntensity; a != nil {
				row["intensity_kg_co2eq_per_ha"] = a.IntensityPerTotalHa
				row["intensity_kg_co2eq_per_productive_ha"] = a.IntensityPerProductiveHa
			}
			if b := s.Benchmark; b != nil {
				row["benchmark_reference"] = b.Reference
				row["benchmark_percentile"] = b.Percentile
				row["benchmark_label"] = b.Label
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func sourceRows(run *batch.RunResult) []map[string]any {
	var rows []map[string]any
	for _, fr := range run.FarmResults {
		if fr.Success == nil {
			continue
		}
		for _, src := range fr.Success.Sources {
			row := map[string]any{
				"farm_id":     fr.FarmID,
				"source":      string(src.Source),
				"co2eq_kg":    src.CO2eqKg,
				"tier":        src.Tier,
				"methodology": src.Methodology,
				"excluded":    src.Excluded,
				"notes":       strings.Join(src.Notes, "; "),
			}
			if u := src.Uncertainty; u != nil {
				row["ci95_low_kg"] = u.CI95Low
				row["ci95_high_kg"] = u.CI95High
			}
			rows = append(rows, row)
		}
	}
	return rows
}
