// Package views renders calculation results as terminal tables. Every
// Print function writes to w and returns its argument unchanged so calls
// can be chained inside pipelines.
package views

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"carbon-scribe/dairy-footprint/internal/batch"
	"carbon-scribe/dairy-footprint/internal/emissions"
	"carbon-scribe/dairy-footprint/internal/factors"
	"carbon-scribe/dairy-footprint/internal/store/sqlite"
)

func render(w io.Writer, title string, data pterm.TableData) {
	fmt.Fprintln(w, pterm.DefaultSection.Sprint(title))
	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		fmt.Fprintf(w, "render failed: %v\n", err)
		return
	}
	fmt.Fprintln(w, out)
}

func num(v float64, decimals int) string {
	return fmt.Sprintf("%.*f", decimals, v)
}

// PrintTotal shows the per-source breakdown of a farm total
func PrintTotal(w io.Writer, total *emissions.TotalResult) *emissions.TotalResult {
	if total == nil {
		fmt.Fprintln(w, "no total")
		return nil
	}
	data := pterm.TableData{{"Source", "kg CO2e", "Share %"}}
	for _, s := range total.BySource {
		share := 0.0
		if total.TotalCO2eq > 0 {
			share = s.CO2eqKg / total.TotalCO2eq * 100
		}
		data = append(data, []string{string(s.Source), num(s.CO2eqKg, 1), num(share, 1)})
	}
	data = append(data, []string{"total", num(total.TotalCO2eq, 1), "100.0"})
	render(w, fmt.Sprintf("Farm total (%d sources)", total.NSources), data)
	return total
}

// PrintSource shows one calculator result with the factors it used
func PrintSource(w io.Writer, res *emissions.SourceResult) *emissions.SourceResult {
	if res == nil {
		fmt.Fprintln(w, "no result")
		return nil
	}
	total := "excluded"
	if res.CO2eqKg != nil {
		total = num(*res.CO2eqKg, 1)
	}

	data := pterm.TableData{{"Item", "Value"}}
	data = append(data, []string{"co2eq_kg", total})
	for _, k := range sortedKeys(res.Breakdown) {
		data = append(data, []string{k, num(res.Breakdown[k], 3)})
	}
	for _, k := range sortedKeys(res.EmissionFactorsUsed) {
		data = append(data, []string{"factor " + k, num(res.EmissionFactorsUsed[k], 4)})
	}
	render(w, fmt.Sprintf("%s (tier %d, %s)", res.Source, res.Tier, res.Methodology), data)
	for _, n := range res.Notes {
		fmt.Fprintln(w, "note: "+n)
	}
	return res
}

// PrintIntensity shows milk production and the per-kg FPCM intensity
func PrintIntensity(w io.Writer, in *emissions.IntensityResult) *emissions.IntensityResult {
	if in == nil {
		fmt.Fprintln(w, "no intensity")
		return nil
	}
	render(w, "Milk intensity", pterm.TableData{
		{"Metric", "Value"},
		{"Milk (litres)", num(in.MilkProductionLitres, 0)},
		{"Milk (kg)", num(in.MilkProductionKg, 0)},
		{"Fat / protein %", num(in.FatPercent, 2) + " / " + num(in.ProteinPercent, 2)},
		{"FPCM (kg)", num(in.FPCMProductionKg, 0)},
		{"Total kg CO2e", num(in.TotalEmissionsCO2eq, 1)},
		{"kg CO2e / kg FPCM", num(in.IntensityCO2eqPerKgFPCM, 3)},
		{"kg CO2e / litre", num(in.IntensityCO2eqPerLitre, 3)},
	})
	return in
}

// PrintAreaIntensity shows per-hectare intensities and any land-use allocation
func PrintAreaIntensity(w io.Writer, a *emissions.AreaIntensityResult) *emissions.AreaIntensityResult {
	if a == nil {
		fmt.Fprintln(w, "no area intensity")
		return nil
	}
	data := pterm.TableData{
		{"Metric", "Value"},
		{"Total area (ha)", num(a.AreaTotalHa, 2)},
		{"Productive area (ha)", num(a.AreaProductiveHa, 2)},
		{"kg CO2e / ha", num(a.IntensityPerTotalHa, 2)},
		{"kg CO2e / productive ha", num(a.IntensityPerProductiveHa, 2)},
		{"Land use efficiency", num(a.LandUseEfficiency, 3)},
	}
	for _, al := range a.Allocations {
		data = append(data, []string{
			fmt.Sprintf("%s (%s ha, %s %%)", al.LandUse, num(al.Hectares, 1), num(al.Percent, 1)),
			num(al.CO2eqKg, 1) + " kg CO2e",
		})
	}
	render(w, "Area intensity", data)
	for _, warn := range a.Warnings {
		fmt.Fprintln(w, "warning: "+warn)
	}
	return a
}

// PrintRun shows the run summary and one line per farm
func PrintRun(w io.Writer, run *batch.RunResult) *batch.RunResult {
	if run == nil {
		fmt.Fprintln(w, "no run")
		return nil
	}
	s := run.Summary
	render(w, "Batch run "+run.RunID, pterm.TableData{
		{"Metric", "Value"},
		{"Tier", fmt.Sprint(s.Tier)},
		{"Boundary", s.Scope + ": " + strings.Join(s.BoundariesUsed, ", ")},
		{"Farms processed", fmt.Sprint(s.NFarmsProcessed)},
		{"Successful", fmt.Sprint(s.NFarmsSuccessful)},
		{"With errors", fmt.Sprint(s.NFarmsWithErrors)},
		{"Total kg CO2e", num(s.TotalEmissionsCO2eq, 1)},
		{"Mean kg CO2e / kg FPCM", num(s.MeanIntensity, 3)},
	})

	farms := pterm.TableData{{"Row", "Farm", "Status", "kg CO2e", "kg CO2e/kg FPCM", "Benchmark", "Error"}}
	for _, fr := range run.FarmResults {
		line := []string{fmt.Sprint(fr.Row), fr.FarmID, string(fr.Status), "", "", "", ""}
		if fr.Success != nil {
			line[3] = num(fr.Success.Total.TotalCO2eq, 1)
			line[4] = num(fr.Success.Intensity.IntensityCO2eqPerKgFPCM, 3)
			if b := fr.Success.Benchmark; b != nil {
				line[5] = b.Label
			}
		}
		if fr.Failure != nil {
			line[6] = fr.Failure.Reason
		}
		farms = append(farms, line)
	}
	render(w, "Farms", farms)
	return run
}

// PrintHistory lists stored runs, newest first
func PrintHistory(w io.Writer, runs []sqlite.RunSummary) []sqlite.RunSummary {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no stored runs")
		return runs
	}
	data := pterm.TableData{{"Run", "Date", "Tier", "Scope", "Farms", "Failed", "kg CO2e", "Mean kg CO2e/kg FPCM"}}
	for _, r := range runs {
		s := r.Summary
		data = append(data, []string{
			r.RunID,
			s.ProcessingDate.Format("2006-01-02 15:04"),
			fmt.Sprint(s.Tier),
			s.Scope,
			fmt.Sprint(s.NFarmsProcessed),
			fmt.Sprint(s.NFarmsWithErrors),
			num(s.TotalEmissionsCO2eq, 1),
			num(s.MeanIntensity, 3),
		})
	}
	render(w, fmt.Sprintf("Run history (%d)", len(runs)), data)
	return runs
}

// PrintFactor shows one resolved emission factor
func PrintFactor(w io.Writer, f factors.Factor) factors.Factor {
	region := f.Region
	if f.Fallback {
		region += " (fallback)"
	}
	render(w, f.Substance, pterm.TableData{
		{"Field", "Value"},
		{"Value", fmt.Sprintf("%g %s", f.Value, f.Unit)},
		{"Region", region},
		{"Tier", fmt.Sprint(f.Tier)},
		{"Source", f.Source},
	})
	return f
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
