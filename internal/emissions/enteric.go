package emissions

import (
	"carbon-scribe/dairy-footprint/internal/factors"
)

const entericMethodology = "IPCC 2019 Vol.4 Ch.10 enteric fermentation"

// EntericInput is the activity data for enteric fermentation
type EntericInput struct {
	Herd   Herd   `json:"herd"`
	Region string `json:"region,omitempty"`
	Tier   Tier   `json:"tier,omitempty"`
	// Detail refines the Tier 2 emission factor per category
	Detail map[AnimalCategory]AnimalDetail `json:"detail,omitempty"`
}

func entericKeys() []string {
	keys := make([]string, 0, len(AnimalCategories)+1)
	for _, cat := range AnimalCategories {
		keys = append(keys, "ch4_"+string(cat)+"_kg")
	}
	return append(keys, "ch4_total_kg")
}

// Enteric calculates CH4 from enteric fermentation. When the boundary
// excludes enteric the result carries a nil total, not zero.
func (e *Engine) Enteric(in EntericInput, boundary *Boundary) (*SourceResult, error) {
	if err := ValidateTier(in.Tier); err != nil {
		return nil, err
	}
	if err := in.Herd.validate(); err != nil {
		return nil, err
	}
	if err := validateDetails(in.Detail); err != nil {
		return nil, err
	}
	tier := in.Tier.normalize()

	if !boundary.Includes(SourceEnteric) {
		return e.excluded(SourceEnteric, entericMethodology, tier, entericKeys(), true), nil
	}

	res := e.newResult(SourceEnteric, entericMethodology, tier)
	var totalCH4 float64
	for _, cat := range AnimalCategories {
		count := in.Herd.Count(cat)
		if count == 0 {
			res.Breakdown["ch4_"+string(cat)+"_kg"] = 0
			continue
		}

		ef, err := e.entericFactor(res, cat, in.Region, tier, in.Detail[cat])
		if err != nil {
			return nil, err
		}
		ch4 := count * ef
		res.Breakdown["ch4_"+string(cat)+"_kg"] = ch4
		totalCH4 += ch4
	}
	res.Breakdown["ch4_total_kg"] = totalCH4

	co2eq := totalCH4 * e.defaults.GWP.CH4
	res.addStep("ch4_to_co2eq", "CO2e = CH4 x GWP_CH4",
		map[string]float64{"ch4_kg": totalCH4, "gwp_ch4": e.defaults.GWP.CH4},
		map[string]float64{"co2eq_kg": co2eq})

	return finish(res, co2eq)
}

// entericFactor returns kg CH4/head/yr for a category. Tier 2 only departs
// from the Tier 1 table when detail for that category was supplied.
func (e *Engine) entericFactor(res *SourceResult, cat AnimalCategory, region string, tier Tier, detail AnimalDetail) (float64, error) {
	label := "ef_" + string(cat)
	if tier == Tier1 || !detail.hasEntericDetail() {
		ef, err := e.factor(res, label, factors.Key(factors.EntericCH4, string(cat)), region, int(Tier1))
		if err != nil {
			return 0, err
		}
		res.addStep("ef_"+string(cat), "EF = Tier 1 default",
			nil, map[string]float64{"ef_kg_ch4_head_yr": ef})
		return ef, nil
	}

	bw := valueOr(detail.BodyWeightKg, e.defaults.BodyWeightKg[cat])
	dmi := valueOr(detail.DMIKgDay, bw*e.defaults.IntakeFraction[cat])
	ym := e.methaneConversion(detail)
	ge := dmi * e.defaults.GrossEnergyMJPerKgDM
	ef := ge * (ym / 100) * 365 / e.defaults.CH4EnergyMJPerKg

	res.EmissionFactorsUsed[label] = ef
	res.addStep("ef_"+string(cat), "EF = GE x (Ym/100) x 365 / 55.65",
		map[string]float64{"body_weight_kg": bw, "dmi_kg_day": dmi, "ge_mj_day": ge, "ym_pct": ym},
		map[string]float64{"ef_kg_ch4_head_yr": ef})
	return ef, nil
}

// methaneConversion picks Ym: explicit value, else derived from digestibility, else default
func (e *Engine) methaneConversion(detail AnimalDetail) float64 {
	if detail.YmPct != nil {
		return *detail.YmPct
	}
	if detail.DigestibilityPct != nil {
		switch de := *detail.DigestibilityPct; {
		case de >= 70:
			return 5.7
		case de >= 63:
			return 6.0
		default:
			return 6.3
		}
	}
	return e.defaults.YmPercent
}
