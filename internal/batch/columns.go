package batch

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"carbon-scribe/dairy-footprint/internal/emissions"
)

// Column describes one recognized input column
type Column struct {
	Name        string
	Required    bool
	Unit        string
	Description string
	Example     string
	set         func(r *FarmRecord, v string) error
}

func text(name, desc, example string, field func(r *FarmRecord) *string) Column {
	return Column{
		Name:        name,
		Description: desc,
		Example:     example,
		set: func(r *FarmRecord, v string) error {
			*field(r) = v
			return nil
		},
	}
}

func number(name, unit, desc, example string, field func(r *FarmRecord) **float64) Column {
	return Column{
		Name:        name,
		Unit:        unit,
		Description: desc,
		Example:     example,
		set: func(r *FarmRecord, v string) error {
			f, err := parseNumber(name, v)
			if err != nil {
				return err
			}
			*field(r) = &f
			return nil
		},
	}
}

func required(name, unit, desc, example string, field func(r *FarmRecord) *float64) Column {
	return Column{
		Name:        name,
		Required:    true,
		Unit:        unit,
		Description: desc,
		Example:     example,
		set: func(r *FarmRecord, v string) error {
			f, err := parseNumber(name, v)
			if err != nil {
				return err
			}
			*field(r) = f
			return nil
		},
	}
}

func parseNumber(name, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return 0, errors.WithStack(&emissions.ValidationError{Field: name, Value: v, Allowed: "a number"})
	}
	return f, nil
}

// Columns is the authoritative input contract, in template order
var Columns = []Column{
	{Name: "farm_id", Required: true, Description: "Unique farm identifier", Example: "FARM-001",
		set: func(r *FarmRecord, v string) error { r.FarmID = v; return nil }},
	required("milk_litres", "l/yr", "Annual milk delivered", "750000", func(r *FarmRecord) *float64 { return &r.MilkLitres }),
	required("cows_milking", "head", "Average lactating cows", "120", func(r *FarmRecord) *float64 { return &r.CowsMilking }),
	number("cows_dry", "head", "Average dry cows", "20", func(r *FarmRecord) **float64 { return &r.CowsDry }),
	number("heifers", "head", "Replacement heifers", "35", func(r *FarmRecord) **float64 { return &r.Heifers }),
	number("calves", "head", "Calves under one year", "30", func(r *FarmRecord) **float64 { return &r.Calves }),
	number("bulls", "head", "Breeding bulls", "1", func(r *FarmRecord) **float64 { return &r.Bulls }),
	text("region", "Factor region (e.g. western_europe)", "western_europe", func(r *FarmRecord) *string { return &r.Region }),
	text("country", "ISO 3166 alpha-2 country code", "IE", func(r *FarmRecord) *string { return &r.Country }),
	number("fat_percent", "%", "Milk fat content", "4.0", func(r *FarmRecord) **float64 { return &r.FatPercent }),
	number("protein_percent", "%", "Milk true protein content", "3.3", func(r *FarmRecord) **float64 { return &r.ProteinPercent }),
	number("milk_density", "kg/l", "Milk density", "1.03", func(r *FarmRecord) **float64 { return &r.MilkDensity }),
	number("body_weight_cows_kg", "kg", "Average cow live weight", "600", func(r *FarmRecord) **float64 { return &r.BodyWeightCowsKg }),
	number("dmi_cows_kg_day", "kg DM/day", "Cow dry matter intake", "21", func(r *FarmRecord) **float64 { return &r.DMICowsKgDay }),
	number("digestibility_cows_pct", "%", "Ration digestibility (DE)", "72", func(r *FarmRecord) **float64 { return &r.DigestibilityCowsPct }),
	number("ym_cows_pct", "%", "Methane conversion factor", "6.0", func(r *FarmRecord) **float64 { return &r.YmCowsPct }),
	number("crude_protein_cows_pct", "%", "Ration crude protein", "16.5", func(r *FarmRecord) **float64 { return &r.CrudeProteinCowsPct }),
	number("body_weight_heifers_kg", "kg", "Average heifer live weight", "380", func(r *FarmRecord) **float64 { return &r.BodyWeightHeifersKg }),
	number("dmi_heifers_kg_day", "kg DM/day", "Heifer dry matter intake", "8.5", func(r *FarmRecord) **float64 { return &r.DMIHeifersKgDay }),
	text("manure_system", "pasture, daily_spread, solid_storage, dry_lot, liquid_slurry, anaerobic_lagoon, deep_bedding, anaerobic_digester", "liquid_slurry", func(r *FarmRecord) *string { return &r.ManureSystem }),
	text("climate", "cool, temperate or warm", "temperate", func(r *FarmRecord) *string { return &r.Climate }),
	number("avg_temp_c", "°C", "Mean annual temperature", "10.5", func(r *FarmRecord) **float64 { return &r.AvgTempC }),
	number("storage_months", "months", "Manure storage time", "5", func(r *FarmRecord) **float64 { return &r.StorageMonths }),
	number("pasture_fraction", "0-1", "Share of excreta deposited on pasture", "0.4", func(r *FarmRecord) **float64 { return &r.PastureFraction }),
	number("synthetic_n_kg", "kg N", "Synthetic fertilizer N applied", "9000", func(r *FarmRecord) **float64 { return &r.SyntheticNKg }),
	text("fertilizer_type", "urea, ammonium_nitrate, calcium_ammonium_nitrate, ammonium_sulphate, npk, other", "calcium_ammonium_nitrate", func(r *FarmRecord) *string { return &r.FertilizerType }),
	number("manure_n_applied_kg", "kg N", "Manure N spread on land", "6000", func(r *FarmRecord) **float64 { return &r.ManureNAppliedKg }),
	number("crop_residue_n_kg", "kg N", "N in crop residues", "800", func(r *FarmRecord) **float64 { return &r.CropResidueNKg }),
	number("grazing_n_kg", "kg N", "N deposited by grazing animals", "4000", func(r *FarmRecord) **float64 { return &r.GrazingNKg }),
	number("organic_n_kg", "kg N", "Other organic amendments", "0", func(r *FarmRecord) **float64 { return &r.OrganicNKg }),
	text("climate_moisture", "wet or dry", "wet", func(r *FarmRecord) *string { return &r.ClimateMoisture }),
	number("diesel_l", "l", "Diesel used", "12000", func(r *FarmRecord) **float64 { return &r.DieselL }),
	number("petrol_l", "l", "Petrol used", "300", func(r *FarmRecord) **float64 { return &r.PetrolL }),
	number("lpg_kg", "kg", "LPG used", "0", func(r *FarmRecord) **float64 { return &r.LPGKg }),
	number("natural_gas_m3", "m3", "Natural gas used", "0", func(r *FarmRecord) **float64 { return &r.NaturalGasM3 }),
	number("electricity_kwh", "kWh", "Grid electricity used", "45000", func(r *FarmRecord) **float64 { return &r.ElectricityKWh }),
	number("renewable_fraction", "0-1", "Share of electricity from renewables", "0.1", func(r *FarmRecord) **float64 { return &r.RenewableFraction }),
	number("concentrate_kg", "kg", "Purchased compound concentrate", "150000", func(r *FarmRecord) **float64 { return &r.ConcentrateKg }),
	number("fertilizer_n_kg", "kg N", "Purchased fertilizer N (defaults to synthetic_n_kg)", "9000", func(r *FarmRecord) **float64 { return &r.FertilizerNKg }),
	number("plastic_kg", "kg", "Silage wrap and other plastics", "400", func(r *FarmRecord) **float64 { return &r.PlasticKg }),
	number("soybean_meal_kg", "kg", "Purchased soybean meal", "20000", func(r *FarmRecord) **float64 { return &r.SoybeanMealKg }),
	number("rapeseed_meal_kg", "kg", "Purchased rapeseed meal", "10000", func(r *FarmRecord) **float64 { return &r.RapeseedMealKg }),
	number("corn_grain_kg", "kg", "Purchased maize grain", "0", func(r *FarmRecord) **float64 { return &r.CornGrainKg }),
	number("barley_kg", "kg", "Purchased barley", "15000", func(r *FarmRecord) **float64 { return &r.BarleyKg }),
	number("wheat_bran_kg", "kg", "Purchased wheat bran", "0", func(r *FarmRecord) **float64 { return &r.WheatBranKg }),
	number("corn_silage_kg", "kg", "Purchased maize silage", "0", func(r *FarmRecord) **float64 { return &r.CornSilageKg }),
	number("grass_silage_kg", "kg", "Purchased grass silage", "50000", func(r *FarmRecord) **float64 { return &r.GrassSilageKg }),
	number("hay_kg", "kg", "Purchased hay", "8000", func(r *FarmRecord) **float64 { return &r.HayKg }),
	number("transport_distance_km", "km", "Average feed haulage distance", "80", func(r *FarmRecord) **float64 { return &r.TransportDistanceKm }),
	number("area_total_ha", "ha", "Total farm area", "150", func(r *FarmRecord) **float64 { return &r.AreaTotalHa }),
	number("area_productive_ha", "ha", "Area used for production", "135", func(r *FarmRecord) **float64 { return &r.AreaProductiveHa }),
	number("area_pasture_ha", "ha", "Grassland", "100", func(r *FarmRecord) **float64 { return &r.AreaPastureHa }),
	number("area_crops_ha", "ha", "Arable crops", "35", func(r *FarmRecord) **float64 { return &r.AreaCropsHa }),
	number("area_forest_ha", "ha", "Woodland and hedgerows", "10", func(r *FarmRecord) **float64 { return &r.AreaForestHa }),
	number("area_other_ha", "ha", "Yards, buildings and tracks", "5", func(r *FarmRecord) **float64 { return &r.AreaOtherHa }),
}

// ColumnNames returns the header row in template order
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

var columnIndex = func() map[string]Column {
	m := make(map[string]Column, len(Columns))
	for _, c := range Columns {
		m[c.Name] = c
	}
	return m
}()

// IsColumn reports whether a header names a recognized column
func IsColumn(name string) bool {
	_, ok := columnIndex[normalizeHeader(name)]
	return ok
}

// ParseRow decodes one raw row keyed by header. Unknown headers are ignored
// and empty cells are treated as absent. Decoding problems are kept on the
// record so a single bad row cannot stop a run.
func ParseRow(values map[string]string) FarmRecord {
	var rec FarmRecord
	var problems []error
	for header, raw := range values {
		col, ok := columnIndex[normalizeHeader(header)]
		if !ok {
			continue
		}
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		if err := col.set(&rec, v); err != nil {
			problems = append(problems, err)
		}
	}
	for _, col := range Columns {
		if col.Required && strings.TrimSpace(lookup(values, col.Name)) == "" && col.Name != "farm_id" {
			problems = append(problems, &missingColumnError{emissions.ValidationError{Field: col.Name, Allowed: "present"}})
		}
	}
	if len(problems) > 0 {
		sort.Slice(problems, func(i, j int) bool { return problems[i].Error() < problems[j].Error() })
		rec.DecodeErr = errors.WithStack(&decodeError{problems: problems})
	}
	return rec
}

// decodeError lists every problem in a row and unwraps to the first one, so
// callers still see the offending field.
type decodeError struct {
	problems []error
}

func (e *decodeError) Error() string {
	msgs := make([]string, len(e.problems))
	for i, p := range e.problems {
		msgs[i] = p.Error()
	}
	return "row could not be decoded: " + strings.Join(msgs, "; ")
}

func (e *decodeError) Unwrap() error { return e.problems[0] }

type missingColumnError struct {
	emissions.ValidationError
}

func (e *missingColumnError) Error() string { return "missing required column " + e.Field }

func (e *missingColumnError) Unwrap() error { return &e.ValidationError }

func lookup(values map[string]string, name string) string {
	for header, v := range values {
		if normalizeHeader(header) == name {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}
