package batch

import (
	"carbon-scribe/dairy-footprint/internal/emissions"
)

// FarmRecord is one row of a batch input table. Only FarmID, MilkLitres and
// CowsMilking are required; every other field falls back to calculator
// defaults when nil or empty. Records are never mutated by the runner.
type FarmRecord struct {
	FarmID      string  `json:"farm_id"`
	MilkLitres  float64 `json:"milk_litres"`
	CowsMilking float64 `json:"cows_milking"`

	CowsDry *float64 `json:"cows_dry,omitempty"`
	Heifers *float64 `json:"heifers,omitempty"`
	Calves  *float64 `json:"calves,omitempty"`
	Bulls   *float64 `json:"bulls,omitempty"`

	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`

	FatPercent     *float64 `json:"fat_percent,omitempty"`
	ProteinPercent *float64 `json:"protein_percent,omitempty"`
	MilkDensity    *float64 `json:"milk_density,omitempty"`

	BodyWeightCowsKg     *float64 `json:"body_weight_cows_kg,omitempty"`
	DMICowsKgDay         *float64 `json:"dmi_cows_kg_day,omitempty"`
	DigestibilityCowsPct *float64 `json:"digestibility_cows_pct,omitempty"`
	YmCowsPct            *float64 `json:"ym_cows_pct,omitempty"`
	CrudeProteinCowsPct  *float64 `json:"crude_protein_cows_pct,omitempty"`
	BodyWeightHeifersKg  *float64 `json:"body_weight_heifers_kg,omitempty"`
	DMIHeifersKgDay      *float64 `json:"dmi_heifers_kg_day,omitempty"`

	ManureSystem    string   `json:"manure_system,omitempty"`
	Climate         string   `json:"climate,omitempty"`
	AvgTempC        *float64 `json:"avg_temp_c,omitempty"`
	StorageMonths   *float64 `json:"storage_months,omitempty"`
	PastureFraction *float64 `json:"pasture_fraction,omitempty"`

	SyntheticNKg     *float64 `json:"synthetic_n_kg,omitempty"`
	FertilizerType   string   `json:"fertilizer_type,omitempty"`
	ManureNAppliedKg *float64 `json:"manure_n_applied_kg,omitempty"`
	CropResidueNKg   *float64 `json:"crop_residue_n_kg,omitempty"`
	GrazingNKg       *float64 `json:"grazing_n_kg,omitempty"`
	OrganicNKg       *float64 `json:"organic_n_kg,omitempty"`
	ClimateMoisture  string   `json:"climate_moisture,omitempty"`

	DieselL           *float64 `json:"diesel_l,omitempty"`
	PetrolL           *float64 `json:"petrol_l,omitempty"`
	LPGKg             *float64 `json:"lpg_kg,omitempty"`
	NaturalGasM3      *float64 `json:"natural_gas_m3,omitempty"`
	ElectricityKWh    *float64 `json:"electricity_kwh,omitempty"`
	RenewableFraction *float64 `json:"renewable_fraction,omitempty"`

	ConcentrateKg       *float64 `json:"concentrate_kg,omitempty"`
	FertilizerNKg       *float64 `json:"fertilizer_n_kg,omitempty"`
	PlasticKg           *float64 `json:"plastic_kg,omitempty"`
	SoybeanMealKg       *float64 `json:"soybean_meal_kg,omitempty"`
	RapeseedMealKg      *float64 `json:"rapeseed_meal_kg,omitempty"`
	CornGrainKg         *float64 `json:"corn_grain_kg,omitempty"`
	BarleyKg            *float64 `json:"barley_kg,omitempty"`
	WheatBranKg         *float64 `json:"wheat_bran_kg,omitempty"`
	CornSilageKg        *float64 `json:"corn_silage_kg,omitempty"`
	GrassSilageKg       *float64 `json:"grass_silage_kg,omitempty"`
	HayKg               *float64 `json:"hay_kg,omitempty"`
	TransportDistanceKm *float64 `json:"transport_distance_km,omitempty"`

	AreaTotalHa      *float64 `json:"area_total_ha,omitempty"`
	AreaProductiveHa *float64 `json:"area_productive_ha,omitempty"`
	AreaPastureHa    *float64 `json:"area_pasture_ha,omitempty"`
	AreaCropsHa      *float64 `json:"area_crops_ha,omitempty"`
	AreaForestHa     *float64 `json:"area_forest_ha,omitempty"`
	AreaOtherHa      *float64 `json:"area_other_ha,omitempty"`

	// DecodeErr is set by table readers when a cell could not be parsed.
	// The runner reports it as that farm's failure.
	DecodeErr error `json:"-"`
}

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func (r FarmRecord) herd() emissions.Herd {
	return emissions.Herd{
		CowsMilking: r.CowsMilking,
		CowsDry:     val(r.CowsDry),
		Heifers:     val(r.Heifers),
		Calves:      val(r.Calves),
		Bulls:       val(r.Bulls),
	}
}

// details maps the cow and heifer Tier 2 columns onto animal categories.
// Categories without any column set are left out so they keep Tier 1 factors.
func (r FarmRecord) details() map[emissions.AnimalCategory]emissions.AnimalDetail {
	out := make(map[emissions.AnimalCategory]emissions.AnimalDetail, 2)
	cows := emissions.AnimalDetail{
		BodyWeightKg:     r.BodyWeightCowsKg,
		DMIKgDay:         r.DMICowsKgDay,
		DigestibilityPct: r.DigestibilityCowsPct,
		YmPct:            r.YmCowsPct,
		CrudeProteinPct:  r.CrudeProteinCowsPct,
	}
	if cows != (emissions.AnimalDetail{}) {
		out[emissions.CategoryDairyCow] = cows
	}
	heifers := emissions.AnimalDetail{
		BodyWeightKg: r.BodyWeightHeifersKg,
		DMIKgDay:     r.DMIHeifersKgDay,
	}
	if heifers != (emissions.AnimalDetail{}) {
		out[emissions.CategoryHeifer] = heifers
	}
	return out
}

func (r FarmRecord) feeds() map[emissions.FeedCategory]float64 {
	out := make(map[emissions.FeedCategory]float64)
	for cat, p := range map[emissions.FeedCategory]*float64{
		emissions.FeedSoybeanMeal:  r.SoybeanMealKg,
		emissions.FeedRapeseedMeal: r.RapeseedMealKg,
		emissions.FeedCornGrain:    r.CornGrainKg,
		emissions.FeedBarley:       r.BarleyKg,
		emissions.FeedWheatBran:    r.WheatBranKg,
		emissions.FeedCornSilage:   r.CornSilageKg,
		emissions.FeedGrassSilage:  r.GrassSilageKg,
		emissions.FeedHay:          r.HayKg,
	} {
		if p != nil {
			out[cat] = *p
		}
	}
	return out
}

func (r FarmRecord) areaBreakdown() map[string]float64 {
	out := make(map[string]float64)
	for use, p := range map[string]*float64{
		"pasture": r.AreaPastureHa,
		"crops":   r.AreaCropsHa,
		"forest":  r.AreaForestHa,
		"other":   r.AreaOtherHa,
	} {
		if p != nil {
			out[use] = *p
		}
	}
	return out
}

// factorRegion is the region used for livestock and feed factors
func (r FarmRecord) factorRegion(fallback string) string {
	switch {
	case r.Region != "":
		return r.Region
	case r.Country != "":
		return r.Country
	}
	return fallback
}

// gridCountry prefers the country since grid factors are national
func (r FarmRecord) gridCountry(fallback string) string {
	switch {
	case r.Country != "":
		return r.Country
	case r.Region != "":
		return r.Region
	}
	return fallback
}
