package factors

import "strings"

// Substance names. Category-specific factors are addressed as
// "<substance>.<category>" (see Key).
const (
	EntericCH4     = "enteric_ch4"      // kg CH4/head/yr
	ManureVS       = "manure_vs"        // kg VS/head/day
	ManureB0       = "manure_b0"        // m3 CH4/kg VS
	ManureNex      = "manure_nex"       // kg N/head/yr
	ManureMCF      = "manure_mcf"       // fraction, keyed by system and climate
	ManureEF3      = "manure_ef3"       // kg N2O-N/kg N, keyed by system
	ManureFracGas  = "manure_frac_gas"  // fraction of N volatilised, keyed by system
	SoilEF1        = "soil_ef1"         // kg N2O-N/kg N
	SoilEF4        = "soil_ef4"         // kg N2O-N/kg NH3-N+NOx-N volatilised
	SoilEF5        = "soil_ef5"         // kg N2O-N/kg N leached
	SoilFracGasF   = "soil_frac_gasf"   // synthetic fertilizer N volatilised
	SoilFracGasM   = "soil_frac_gasm"   // organic N volatilised
	SoilFracLeach  = "soil_frac_leach"  // N lost to leaching/runoff
	Fuel           = "fuel"             // kg CO2 per unit fuel
	GridElectric   = "grid_electricity" // kg CO2/kWh
	FertilizerMfg  = "fertilizer_mfg"   // kg CO2e/kg N
	Concentrate    = "concentrate"      // kg CO2e/kg
	Plastic        = "plastic"          // kg CO2e/kg
	Feed           = "feed"             // kg CO2e/kg
	TransportRoad  = "transport_road"   // kg CO2e/t-km
)

// Key joins a substance with its qualifiers
func Key(substance string, qualifiers ...string) string {
	if len(qualifiers) == 0 {
		return substance
	}
	return substance + "." + strings.Join(qualifiers, ".")
}

var regions = map[string]struct{}{
	DefaultRegion:         {},
	"north_america":       {},
	"western_europe":      {},
	"eastern_europe":      {},
	"oceania":             {},
	"latin_america":       {},
	"asia":                {},
	"africa":              {},
	"middle_east":         {},
	"indian_subcontinent": {},
}

var countryRegion = map[string]string{
	"US": "north_america", "CA": "north_america",
	"GB": "western_europe", "IE": "western_europe", "FR": "western_europe", "DE": "western_europe",
	"NL": "western_europe", "BE": "western_europe", "DK": "western_europe", "SE": "western_europe",
	"NO": "western_europe", "FI": "western_europe", "AT": "western_europe", "CH": "western_europe",
	"ES": "western_europe", "IT": "western_europe", "PT": "western_europe", "LU": "western_europe",
	"PL": "eastern_europe", "CZ": "eastern_europe", "HU": "eastern_europe", "RO": "eastern_europe",
	"BG": "eastern_europe", "SK": "eastern_europe", "LT": "eastern_europe", "LV": "eastern_europe",
	"EE": "eastern_europe", "UA": "eastern_europe",
	"AU": "oceania", "NZ": "oceania",
	"BR": "latin_america", "AR": "latin_america", "UY": "latin_america", "CL": "latin_america",
	"MX": "latin_america", "CO": "latin_america", "PE": "latin_america",
	"CN": "asia", "JP": "asia", "KR": "asia", "VN": "asia", "TH": "asia", "ID": "asia", "PH": "asia",
	"IN": "indian_subcontinent", "PK": "indian_subcontinent", "BD": "indian_subcontinent",
	"NP": "indian_subcontinent", "LK": "indian_subcontinent",
	"KE": "africa", "ET": "africa", "ZA": "africa", "NG": "africa", "TZ": "africa", "UG": "africa",
	"SA": "middle_east", "IR": "middle_east", "IL": "middle_east", "TR": "middle_east", "EG": "middle_east",
}

const (
	srcIPCC2006 = "IPCC 2006 Vol.4 Ch.10/11"
	srcIPCC2019 = "IPCC 2019 Refinement Vol.4"
	srcDEFRA    = "DEFRA/DESNZ conversion factors"
	srcGrid     = "IEA grid emission factors (location-based)"
	srcFE       = "Fertilizers Europe carbon footprint reference values"
	srcFeed     = "GFLI / FAO GLEAM feed footprints"
)

var builtin = buildTables()

func buildTables() []Factor {
	var out []Factor
	add := func(substance, region string, value float64, unit, source string) {
		out = append(out, Factor{Substance: substance, Region: region, Value: value, Unit: unit, Source: source})
	}
	addTier := func(substance string, tier int, value float64, unit, source string) {
		out = append(out, Factor{Substance: substance, Region: DefaultRegion, Tier: tier, Value: value, Unit: unit, Source: source})
	}
	byRegion := func(substance string, values map[string]float64, unit, source string) {
		for region, v := range values {
			add(substance, region, v, unit, source)
		}
	}

	// Enteric fermentation, Tier 1 emission factors
	byRegion(Key(EntericCH4, "dairy_cow"), map[string]float64{
		DefaultRegion: 117, "north_america": 128, "western_europe": 117, "eastern_europe": 99,
		"oceania": 90, "latin_america": 72, "asia": 68, "africa": 46, "middle_east": 46,
		"indian_subcontinent": 58,
	}, "kg CH4/head/yr", srcIPCC2006)
	byRegion(Key(EntericCH4, "heifer"), map[string]float64{
		DefaultRegion: 57, "north_america": 53, "western_europe": 57, "eastern_europe": 58,
		"oceania": 60, "latin_america": 56, "asia": 47, "africa": 31, "middle_east": 31,
		"indian_subcontinent": 27,
	}, "kg CH4/head/yr", srcIPCC2006)
	add(Key(EntericCH4, "dry_cow"), DefaultRegion, 72, "kg CH4/head/yr", srcIPCC2019)
	add(Key(EntericCH4, "calf"), DefaultRegion, 26, "kg CH4/head/yr", srcIPCC2019)
	add(Key(EntericCH4, "bull"), DefaultRegion, 66, "kg CH4/head/yr", srcIPCC2019)

	// Manure management
	byRegion(Key(ManureVS, "dairy_cow"), map[string]float64{
		DefaultRegion: 4.0, "north_america": 5.4, "western_europe": 5.1, "eastern_europe": 4.5,
		"oceania": 3.5, "latin_america": 2.9, "asia": 2.8, "africa": 1.9, "middle_east": 1.9,
		"indian_subcontinent": 2.6,
	}, "kg VS/head/day", srcIPCC2006)
	add(Key(ManureVS, "dry_cow"), DefaultRegion, 3.5, "kg VS/head/day", srcIPCC2019)
	add(Key(ManureVS, "heifer"), DefaultRegion, 2.7, "kg VS/head/day", srcIPCC2006)
	add(Key(ManureVS, "calf"), DefaultRegion, 1.0, "kg VS/head/day", srcIPCC2019)
	add(Key(ManureVS, "bull"), DefaultRegion, 3.0, "kg VS/head/day", srcIPCC2019)

	byRegion(ManureB0, map[string]float64{
		DefaultRegion: 0.24, "latin_america": 0.13, "asia": 0.13, "africa": 0.13,
		"middle_east": 0.13, "indian_subcontinent": 0.13,
	}, "m3 CH4/kg VS", srcIPCC2006)

	byRegion(Key(ManureNex, "dairy_cow"), map[string]float64{
		DefaultRegion: 90, "north_america": 110, "western_europe": 105, "eastern_europe": 70,
		"oceania": 100, "latin_america": 70, "asia": 60, "africa": 40, "middle_east": 50,
		"indian_subcontinent": 45,
	}, "kg N/head/yr", srcIPCC2006)
	add(Key(ManureNex, "dry_cow"), DefaultRegion, 60, "kg N/head/yr", srcIPCC2019)
	add(Key(ManureNex, "heifer"), DefaultRegion, 50, "kg N/head/yr", srcIPCC2019)
	add(Key(ManureNex, "calf"), DefaultRegion, 18, "kg N/head/yr", srcIPCC2019)
	add(Key(ManureNex, "bull"), DefaultRegion, 60, "kg N/head/yr", srcIPCC2019)

	mcf := map[string][3]float64{ // cool, temperate, warm
		"pasture":            {0.0047, 0.0047, 0.0047},
		"daily_spread":       {0.001, 0.005, 0.01},
		"solid_storage":      {0.02, 0.04, 0.05},
		"dry_lot":            {0.01, 0.015, 0.02},
		"liquid_slurry":      {0.10, 0.26, 0.50},
		"anaerobic_lagoon":   {0.66, 0.77, 0.80},
		"deep_bedding":       {0.03, 0.17, 0.44},
		"anaerobic_digester": {0.05, 0.05, 0.05},
	}
	for system, v := range mcf {
		for i, climate := range []string{"cool", "temperate", "warm"} {
			add(Key(ManureMCF, system, climate), DefaultRegion, v[i], "fraction", srcIPCC2019)
		}
	}

	ef3 := map[string]float64{
		"pasture": 0.004, "daily_spread": 0, "solid_storage": 0.010, "dry_lot": 0.020,
		"liquid_slurry": 0.005, "anaerobic_lagoon": 0, "deep_bedding": 0.010, "anaerobic_digester": 0.0006,
	}
	for system, v := range ef3 {
		add(Key(ManureEF3, system), DefaultRegion, v, "kg N2O-N/kg N", srcIPCC2019)
	}

	fracGas := map[string]float64{
		"pasture": 0.21, "daily_spread": 0.07, "solid_storage": 0.30, "dry_lot": 0.20,
		"liquid_slurry": 0.40, "anaerobic_lagoon": 0.35, "deep_bedding": 0.25, "anaerobic_digester": 0.05,
	}
	for system, v := range fracGas {
		add(Key(ManureFracGas, system), DefaultRegion, v, "fraction", srcIPCC2019)
	}

	// Managed soils. Tier 2 entries are moisture- or fertilizer-specific.
	add(SoilEF1, DefaultRegion, 0.01, "kg N2O-N/kg N", srcIPCC2019)
	add(SoilEF4, DefaultRegion, 0.010, "kg N2O-N/kg N", srcIPCC2019)
	add(SoilEF5, DefaultRegion, 0.011, "kg N2O-N/kg N", srcIPCC2019)
	add(SoilFracGasF, DefaultRegion, 0.11, "fraction", srcIPCC2019)
	add(SoilFracGasM, DefaultRegion, 0.21, "fraction", srcIPCC2019)
	add(SoilFracLeach, DefaultRegion, 0.24, "fraction", srcIPCC2019)
	addTier(Key(SoilEF1, "synthetic", "wet"), 2, 0.016, "kg N2O-N/kg N", srcIPCC2019)
	addTier(Key(SoilEF1, "synthetic", "dry"), 2, 0.005, "kg N2O-N/kg N", srcIPCC2019)
	addTier(Key(SoilEF1, "other", "wet"), 2, 0.006, "kg N2O-N/kg N", srcIPCC2019)
	addTier(Key(SoilEF1, "other", "dry"), 2, 0.005, "kg N2O-N/kg N", srcIPCC2019)
	addTier(Key(SoilEF4, "wet"), 2, 0.014, "kg N2O-N/kg N", srcIPCC2019)
	addTier(Key(SoilEF4, "dry"), 2, 0.005, "kg N2O-N/kg N", srcIPCC2019)
	addTier(Key(SoilFracLeach, "wet"), 2, 0.24, "fraction", srcIPCC2019)
	addTier(Key(SoilFracLeach, "dry"), 2, 0, "fraction", srcIPCC2019)
	for fert, v := range map[string]float64{
		"urea": 0.15, "ammonium_nitrate": 0.05, "calcium_ammonium_nitrate": 0.05,
		"ammonium_sulphate": 0.08, "npk": 0.05, "other": 0.11,
	} {
		addTier(Key(SoilFracGasF, fert), 2, v, "fraction", srcIPCC2019)
	}

	// Energy
	add(Key(Fuel, "diesel"), DefaultRegion, 2.68, "kg CO2/l", srcDEFRA)
	add(Key(Fuel, "petrol"), DefaultRegion, 2.31, "kg CO2/l", srcDEFRA)
	add(Key(Fuel, "lpg"), DefaultRegion, 2.94, "kg CO2/kg", srcDEFRA)
	add(Key(Fuel, "natural_gas"), DefaultRegion, 2.02, "kg CO2/m3", srcDEFRA)
	byRegion(GridElectric, map[string]float64{
		DefaultRegion: 0.48, "north_america": 0.35, "western_europe": 0.25, "eastern_europe": 0.55,
		"oceania": 0.55, "latin_america": 0.20, "asia": 0.60, "africa": 0.55, "middle_east": 0.60,
		"indian_subcontinent": 0.70,
		"US": 0.37, "CA": 0.12, "GB": 0.21, "IE": 0.30, "FR": 0.06, "DE": 0.38, "NL": 0.33,
		"DK": 0.14, "NZ": 0.10, "AU": 0.66, "BR": 0.09, "AR": 0.31, "IN": 0.71, "CN": 0.58, "KE": 0.10,
	}, "kg CO2/kWh", srcGrid)

	// Purchased inputs
	for fert, v := range map[string]float64{
		"urea": 3.3, "ammonium_nitrate": 3.5, "calcium_ammonium_nitrate": 3.6,
		"ammonium_sulphate": 2.7, "npk": 4.5, "other": 4.0,
	} {
		add(Key(FertilizerMfg, fert), DefaultRegion, v, "kg CO2e/kg N", srcFE)
	}
	add(Key(FertilizerMfg, "urea"), "asia", 5.5, "kg CO2e/kg N", srcFE)
	add(Key(FertilizerMfg, "ammonium_nitrate"), "asia", 7.1, "kg CO2e/kg N", srcFE)
	add(Key(FertilizerMfg, "ammonium_nitrate"), "eastern_europe", 5.9, "kg CO2e/kg N", srcFE)

	byRegion(Concentrate, map[string]float64{
		DefaultRegion: 0.55, "western_europe": 0.50, "north_america": 0.45, "latin_america": 0.70,
		"oceania": 0.45,
	}, "kg CO2e/kg", srcFeed)
	add(Plastic, DefaultRegion, 2.5, "kg CO2e/kg", srcDEFRA)

	feeds := map[string]map[string]float64{
		"soybean_meal":  {DefaultRegion: 0.70, "latin_america": 1.80, "north_america": 0.45, "western_europe": 0.90},
		"rapeseed_meal": {DefaultRegion: 0.55, "western_europe": 0.50},
		"corn_grain":    {DefaultRegion: 0.45, "north_america": 0.35},
		"barley":        {DefaultRegion: 0.45, "western_europe": 0.40},
		"wheat_bran":    {DefaultRegion: 0.25},
		"corn_silage":   {DefaultRegion: 0.15},
		"grass_silage":  {DefaultRegion: 0.20},
		"hay":           {DefaultRegion: 0.18},
	}
	for feed, values := range feeds {
		byRegion(Key(Feed, feed), values, "kg CO2e/kg", srcFeed)
	}
	add(TransportRoad, DefaultRegion, 0.062, "kg CO2e/t-km", srcDEFRA)

	return out
}
