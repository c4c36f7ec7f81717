package emissions

import (
	"carbon-scribe/dairy-footprint/internal/factors"
)

const soilMethodology = "IPCC 2019 Vol.4 Ch.11 N2O from managed soils"

// FertilizerType identifies a synthetic nitrogen product
type FertilizerType string

const (
	FertilizerUrea                   FertilizerType = "urea"
	FertilizerAmmoniumNitrate        FertilizerType = "ammonium_nitrate"
	FertilizerCalciumAmmoniumNitrate FertilizerType = "calcium_ammonium_nitrate"
	FertilizerAmmoniumSulphate       FertilizerType = "ammonium_sulphate"
	FertilizerNPK                    FertilizerType = "npk"
	FertilizerOther                  FertilizerType = "other"
)

// FertilizerTypes lists the accepted fertilizer types
var FertilizerTypes = []FertilizerType{
	FertilizerUrea, FertilizerAmmoniumNitrate, FertilizerCalciumAmmoniumNitrate,
	FertilizerAmmoniumSulphate, FertilizerNPK, FertilizerOther,
}

// Moisture is the climate moisture regime for disaggregated soil factors
type Moisture string

const (
	MoistureWet Moisture = "wet"
	MoistureDry Moisture = "dry"
)

// Moistures lists the accepted moisture regimes
var Moistures = []Moisture{MoistureWet, MoistureDry}

// SoilInput is the annual nitrogen applied to or deposited on managed soils, kg N
type SoilInput struct {
	SyntheticNKg     float64 `json:"synthetic_n_kg"`
	ManureNAppliedKg float64 `json:"manure_n_applied_kg"`
	CropResidueNKg   float64 `json:"crop_residue_n_kg"`
	GrazingNKg       float64 `json:"grazing_n_kg"`
	OrganicNKg       float64 `json:"organic_n_kg"`

	FertilizerType  FertilizerType `json:"fertilizer_type,omitempty"`
	ClimateMoisture Moisture       `json:"climate_moisture,omitempty"`
	Region          string         `json:"region,omitempty"`
	Tier            Tier           `json:"tier,omitempty"`
	ExcludeIndirect bool           `json:"exclude_indirect,omitempty"`
}

var soilKeys = []string{
	"n_total_kg", "n2o_direct_kg", "n2o_volatilisation_kg", "n2o_leaching_kg", "n2o_total_kg",
}

func (in SoilInput) validate() error {
	if err := ValidateTier(in.Tier); err != nil {
		return err
	}
	for _, q := range []struct {
		field string
		value float64
	}{
		{"synthetic_n_kg", in.SyntheticNKg},
		{"manure_n_applied_kg", in.ManureNAppliedKg},
		{"crop_residue_n_kg", in.CropResidueNKg},
		{"grazing_n_kg", in.GrazingNKg},
		{"organic_n_kg", in.OrganicNKg},
	} {
		if err := checkQuantity(q.field, q.value); err != nil {
			return err
		}
	}
	if in.FertilizerType != "" {
		if err := checkEnum("fertilizer_type", in.FertilizerType, FertilizerTypes); err != nil {
			return err
		}
	}
	if in.ClimateMoisture != "" {
		return checkEnum("climate_moisture", in.ClimateMoisture, Moistures)
	}
	return nil
}

// soilFactors is the set of factors one Soil call resolved
type soilFactors struct {
	ef1Synthetic, ef1Other, ef4, ef5 float64
	fracGasF, fracGasM, fracLeach    float64
}

// Soil calculates direct and indirect N2O from managed soils
func (e *Engine) Soil(in SoilInput, boundary *Boundary) (*SourceResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	tier := in.Tier.normalize()

	if !boundary.Includes(SourceSoil) {
		return e.excluded(SourceSoil, soilMethodology, tier, soilKeys, false), nil
	}

	res := e.newResult(SourceSoil, soilMethodology, tier)
	f, err := e.soilFactors(res, in, tier)
	if err != nil {
		return nil, err
	}

	organicN := in.ManureNAppliedKg + in.GrazingNKg + in.OrganicNKg
	otherN := organicN + in.CropResidueNKg
	totalN := in.SyntheticNKg + otherN

	directN := in.SyntheticNKg*f.ef1Synthetic + otherN*f.ef1Other
	direct := directN * N2ON2Ratio
	res.addStep("soil_n2o_direct", "N2O = sum(N x EF1) x 44/28",
		map[string]float64{"synthetic_n_kg": in.SyntheticNKg, "other_n_kg": otherN, "ef1": f.ef1Synthetic},
		map[string]float64{"n2o_direct_kg": direct})

	var volat, leach float64
	if !in.ExcludeIndirect {
		volatilisedN := in.SyntheticNKg*f.fracGasF + organicN*f.fracGasM
		volat = volatilisedN * f.ef4 * N2ON2Ratio
		leach = totalN * f.fracLeach * f.ef5 * N2ON2Ratio
		res.addStep("soil_n2o_indirect", "N2O = (N_volatilised x EF4 + N x FracLEACH x EF5) x 44/28",
			map[string]float64{"n_volatilised_kg": volatilisedN, "frac_leach": f.fracLeach, "ef4": f.ef4, "ef5": f.ef5},
			map[string]float64{"n2o_volatilisation_kg": volat, "n2o_leaching_kg": leach})
	}

	n2o := direct + volat + leach
	res.Breakdown["n_total_kg"] = totalN
	res.Breakdown["n2o_direct_kg"] = direct
	res.Breakdown["n2o_volatilisation_kg"] = volat
	res.Breakdown["n2o_leaching_kg"] = leach
	res.Breakdown["n2o_total_kg"] = n2o

	return finish(res, n2o*e.defaults.GWP.N2O)
}

type factorLookup struct {
	label     string
	substance string
	dst       *float64
}

// soilFactors resolves Tier 1 aggregate factors, replaced per factor by the
// moisture- or fertilizer-specific Tier 2 entries when those inputs are given
func (e *Engine) soilFactors(res *SourceResult, in SoilInput, tier Tier) (soilFactors, error) {
	var f soilFactors
	base := []factorLookup{
		{"ef1", factors.SoilEF1, &f.ef1Synthetic},
		{"ef4", factors.SoilEF4, &f.ef4},
		{"ef5", factors.SoilEF5, &f.ef5},
		{"frac_gasf", factors.SoilFracGasF, &f.fracGasF},
		{"frac_gasm", factors.SoilFracGasM, &f.fracGasM},
		{"frac_leach", factors.SoilFracLeach, &f.fracLeach},
	}
	if err := e.resolve(res, in.Region, Tier1, base); err != nil {
		return f, err
	}
	f.ef1Other = f.ef1Synthetic

	if tier != Tier2 {
		return f, nil
	}

	var refined []factorLookup
	if m := string(in.ClimateMoisture); m != "" {
		refined = append(refined,
			factorLookup{"ef1_synthetic_" + m, factors.Key(factors.SoilEF1, "synthetic", m), &f.ef1Synthetic},
			factorLookup{"ef1_other_" + m, factors.Key(factors.SoilEF1, "other", m), &f.ef1Other},
			factorLookup{"ef4_" + m, factors.Key(factors.SoilEF4, m), &f.ef4},
			factorLookup{"frac_leach_" + m, factors.Key(factors.SoilFracLeach, m), &f.fracLeach},
		)
	}
	if ft := string(in.FertilizerType); ft != "" {
		refined = append(refined, factorLookup{"frac_gasf_" + ft, factors.Key(factors.SoilFracGasF, ft), &f.fracGasF})
	}
	if err := e.resolve(res, in.Region, Tier2, refined); err != nil {
		return f, err
	}
	return f, nil
}

func (e *Engine) resolve(res *SourceResult, region string, tier Tier, lookups []factorLookup) error {
	for _, l := range lookups {
		v, err := e.factor(res, l.label, l.substance, region, int(tier))
		if err != nil {
			return err
		}
		*l.dst = v
	}
	return nil
}
