package emissions

import (
	"math"

	"carbon-scribe/dairy-footprint/internal/factors"
)

const manureMethodology = "IPCC 2019 Vol.4 Ch.10 manure management"

// ManureSystem is the dominant manure management system
type ManureSystem string

const (
	SystemPasture           ManureSystem = "pasture"
	SystemDailySpread       ManureSystem = "daily_spread"
	SystemSolidStorage      ManureSystem = "solid_storage"
	SystemDryLot            ManureSystem = "dry_lot"
	SystemLiquidSlurry      ManureSystem = "liquid_slurry"
	SystemAnaerobicLagoon   ManureSystem = "anaerobic_lagoon"
	SystemDeepBedding       ManureSystem = "deep_bedding"
	SystemAnaerobicDigester ManureSystem = "anaerobic_digester"
)

// ManureSystems lists the accepted systems
var ManureSystems = []ManureSystem{
	SystemPasture, SystemDailySpread, SystemSolidStorage, SystemDryLot,
	SystemLiquidSlurry, SystemAnaerobicLagoon, SystemDeepBedding, SystemAnaerobicDigester,
}

// DefaultManureSystem applies when no system is given
const DefaultManureSystem = SystemLiquidSlurry

// Climate is the IPCC climate zone used for MCF selection
type Climate string

const (
	ClimateCool      Climate = "cool"
	ClimateTemperate Climate = "temperate"
	ClimateWarm      Climate = "warm"
)

// Climates lists the accepted climate zones
var Climates = []Climate{ClimateCool, ClimateTemperate, ClimateWarm}

// ManureInput is the activity data for manure management
type ManureInput struct {
	Herd    Herd         `json:"herd"`
	Region  string       `json:"region,omitempty"`
	Tier    Tier         `json:"tier,omitempty"`
	System  ManureSystem `json:"system,omitempty"`
	Climate Climate      `json:"climate,omitempty"`
	// PastureFraction is the share of excreta deposited on pasture
	PastureFraction float64 `json:"pasture_fraction,omitempty"`

	// Tier 2 refinements
	AvgTempC      *float64                        `json:"avg_temp_c,omitempty"`
	StorageMonths *float64                        `json:"storage_months,omitempty"`
	Detail        map[AnimalCategory]AnimalDetail `json:"detail,omitempty"`

	ExcludeIndirect bool `json:"exclude_indirect,omitempty"`
}

var manureKeys = []string{
	"vs_kg", "n_excreted_kg", "ch4_kg", "n2o_direct_kg", "n2o_indirect_kg",
	"co2eq_ch4_kg", "co2eq_n2o_kg",
}

func (in ManureInput) validate() error {
	if err := ValidateTier(in.Tier); err != nil {
		return err
	}
	if err := in.Herd.validate(); err != nil {
		return err
	}
	if in.System != "" {
		if err := checkEnum("system", in.System, ManureSystems); err != nil {
			return err
		}
	}
	if in.Climate != "" {
		if err := checkEnum("climate", in.Climate, Climates); err != nil {
			return err
		}
	}
	if err := checkFraction("pasture_fraction", in.PastureFraction); err != nil {
		return err
	}
	if in.AvgTempC != nil && (math.IsNaN(*in.AvgTempC) || math.IsInf(*in.AvgTempC, 0)) {
		return invalid("avg_temp_c", *in.AvgTempC, "a finite temperature")
	}
	if err := checkOptionalQuantity("storage_months", in.StorageMonths); err != nil {
		return err
	}
	return validateDetails(in.Detail)
}

// Manure calculates CH4 and N2O from manure management
func (e *Engine) Manure(in ManureInput, boundary *Boundary) (*SourceResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	tier := in.Tier.normalize()

	if !boundary.Includes(SourceManure) {
		return e.excluded(SourceManure, manureMethodology, tier, manureKeys, false), nil
	}

	res := e.newResult(SourceManure, manureMethodology, tier)
	system := in.System
	if system == "" {
		system = DefaultManureSystem
	}
	climate := e.manureClimate(res, in, tier)

	mcf, err := e.mixedMCF(res, in, tier, system, climate)
	if err != nil {
		return nil, err
	}
	b0, err := e.factor(res, "b0", factors.ManureB0, in.Region, int(Tier1))
	if err != nil {
		return nil, err
	}

	var vsTotal, nTotal float64
	for _, cat := range AnimalCategories {
		count := in.Herd.Count(cat)
		if count == 0 {
			continue
		}
		vs, err := e.volatileSolids(res, cat, in.Region, tier, in.Detail[cat])
		if err != nil {
			return nil, err
		}
		nex, err := e.nitrogenExcretion(res, cat, in.Region, tier, in.Detail[cat])
		if err != nil {
			return nil, err
		}
		vsTotal += count * vs * 365
		nTotal += count * nex
	}

	ch4 := vsTotal * b0 * e.defaults.CH4DensityKgPerM3 * mcf
	res.addStep("manure_ch4", "CH4 = VS x B0 x 0.67 x MCF",
		map[string]float64{"vs_kg": vsTotal, "b0": b0, "mcf": mcf},
		map[string]float64{"ch4_kg": ch4})

	direct, indirect, err := e.manureN2O(res, in, system, nTotal)
	if err != nil {
		return nil, err
	}

	co2CH4 := ch4 * e.defaults.GWP.CH4
	co2N2O := (direct + indirect) * e.defaults.GWP.N2O
	res.Breakdown["vs_kg"] = vsTotal
	res.Breakdown["n_excreted_kg"] = nTotal
	res.Breakdown["ch4_kg"] = ch4
	res.Breakdown["n2o_direct_kg"] = direct
	res.Breakdown["n2o_indirect_kg"] = indirect
	res.Breakdown["co2eq_ch4_kg"] = co2CH4
	res.Breakdown["co2eq_n2o_kg"] = co2N2O

	return finish(res, co2CH4+co2N2O)
}

// manureClimate resolves the climate zone. Tier 2 prefers the farm temperature.
func (e *Engine) manureClimate(res *SourceResult, in ManureInput, tier Tier) Climate {
	if tier == Tier2 && in.AvgTempC != nil {
		switch t := *in.AvgTempC; {
		case t < 15:
			return ClimateCool
		case t <= 25:
			return ClimateTemperate
		default:
			return ClimateWarm
		}
	}
	if in.Climate == "" {
		return ClimateTemperate
	}
	if tier == Tier1 && (in.AvgTempC != nil || in.StorageMonths != nil) {
		res.addNote("tier 1 ignores temperature and storage time")
	}
	return in.Climate
}

// mixedMCF weights the housed system MCF against the pasture MCF
func (e *Engine) mixedMCF(res *SourceResult, in ManureInput, tier Tier, system ManureSystem, climate Climate) (float64, error) {
	sysMCF, err := e.factor(res, "mcf_"+string(system), factors.Key(factors.ManureMCF, string(system), string(climate)), in.Region, int(Tier1))
	if err != nil {
		return 0, err
	}
	scale := 1.0
	if tier == Tier2 && in.StorageMonths != nil && retentionSensitive(system) {
		scale = storageScale(*in.StorageMonths)
		sysMCF *= scale
	}

	pf := in.PastureFraction
	mcf := sysMCF
	if pf > 0 {
		pastureMCF, err := e.factor(res, "mcf_pasture", factors.Key(factors.ManureMCF, string(SystemPasture), string(climate)), in.Region, int(Tier1))
		if err != nil {
			return 0, err
		}
		mcf = pf*pastureMCF + (1-pf)*sysMCF
	}

	res.addStep("mcf", "MCF = pf x MCF_pasture + (1 - pf) x MCF_system x storage_scale",
		map[string]float64{"pasture_fraction": pf, "storage_scale": scale},
		map[string]float64{"mcf": mcf})
	return mcf, nil
}

func retentionSensitive(system ManureSystem) bool {
	switch system {
	case SystemLiquidSlurry, SystemAnaerobicLagoon, SystemDeepBedding:
		return true
	}
	return false
}

// storageScale reduces MCF for short retention. Table factors assume >6 months.
func storageScale(months float64) float64 {
	switch {
	case months <= 1:
		return 0.25
	case months <= 3:
		return 0.5
	case months <= 6:
		return 0.75
	default:
		return 1.0
	}
}

// volatileSolids returns kg VS/head/day
func (e *Engine) volatileSolids(res *SourceResult, cat AnimalCategory, region string, tier Tier, detail AnimalDetail) (float64, error) {
	if tier == Tier1 || !detail.hasIntakeDetail() {
		return e.factor(res, "vs_"+string(cat), factors.Key(factors.ManureVS, string(cat)), region, int(Tier1))
	}

	d := e.defaults
	bw := valueOr(detail.BodyWeightKg, d.BodyWeightKg[cat])
	dmi := valueOr(detail.DMIKgDay, bw*d.IntakeFraction[cat])
	de := valueOr(detail.DigestibilityPct, d.DigestibilityPercent)
	ge := dmi * d.GrossEnergyMJPerKgDM
	vs := (ge*(1-de/100) + d.UrinaryEnergyFraction*ge) * (1 - d.AshFraction) / d.GrossEnergyMJPerKgDM

	res.EmissionFactorsUsed["vs_"+string(cat)] = vs
	res.addStep("vs_"+string(cat), "VS = (GE x (1 - DE/100) + UE x GE) x (1 - ASH) / 18.45",
		map[string]float64{"ge_mj_day": ge, "de_pct": de},
		map[string]float64{"vs_kg_day": vs})
	return vs, nil
}

// nitrogenExcretion returns kg N/head/yr. Tier 2 derives it from crude protein intake.
func (e *Engine) nitrogenExcretion(res *SourceResult, cat AnimalCategory, region string, tier Tier, detail AnimalDetail) (float64, error) {
	if tier == Tier1 || detail.CrudeProteinPct == nil {
		return e.factor(res, "nex_"+string(cat), factors.Key(factors.ManureNex, string(cat)), region, int(Tier1))
	}

	d := e.defaults
	bw := valueOr(detail.BodyWeightKg, d.BodyWeightKg[cat])
	dmi := valueOr(detail.DMIKgDay, bw*d.IntakeFraction[cat])
	nIntake := dmi * (*detail.CrudeProteinPct / 100) / 6.25
	nex := nIntake * (1 - d.NRetention[cat]) * 365

	res.EmissionFactorsUsed["nex_"+string(cat)] = nex
	res.addStep("nex_"+string(cat), "Nex = DMI x CP/100 / 6.25 x (1 - N_retention) x 365",
		map[string]float64{"dmi_kg_day": dmi, "crude_protein_pct": *detail.CrudeProteinPct},
		map[string]float64{"nex_kg_yr": nex})
	return nex, nil
}

// manureN2O returns direct and indirect N2O in kg
func (e *Engine) manureN2O(res *SourceResult, in ManureInput, system ManureSystem, nTotal float64) (float64, float64, error) {
	pf := in.PastureFraction
	nHoused := nTotal * (1 - pf)
	nPasture := nTotal * pf

	ef3, err := e.factor(res, "ef3_"+string(system), factors.Key(factors.ManureEF3, string(system)), in.Region, int(Tier1))
	if err != nil {
		return 0, 0, err
	}
	directN := nHoused * ef3
	var ef3Pasture float64
	if nPasture > 0 {
		ef3Pasture, err = e.factor(res, "ef3_pasture", factors.Key(factors.ManureEF3, string(SystemPasture)), in.Region, int(Tier1))
		if err != nil {
			return 0, 0, err
		}
		directN += nPasture * ef3Pasture
	}
	direct := directN * N2ON2Ratio
	res.addStep("manure_n2o_direct", "N2O = (N_housed x EF3 + N_pasture x EF3_pasture) x 44/28",
		map[string]float64{"n_housed_kg": nHoused, "n_pasture_kg": nPasture, "ef3": ef3},
		map[string]float64{"n2o_direct_kg": direct})

	if in.ExcludeIndirect {
		return direct, 0, nil
	}

	fracGas, err := e.factor(res, "frac_gas_"+string(system), factors.Key(factors.ManureFracGas, string(system)), in.Region, int(Tier1))
	if err != nil {
		return 0, 0, err
	}
	volatilised := nHoused * fracGas
	if nPasture > 0 {
		fracPasture, err := e.factor(res, "frac_gas_pasture", factors.Key(factors.ManureFracGas, string(SystemPasture)), in.Region, int(Tier1))
		if err != nil {
			return 0, 0, err
		}
		volatilised += nPasture * fracPasture
	}
	ef4, err := e.factor(res, "ef4", factors.SoilEF4, in.Region, int(Tier1))
	if err != nil {
		return 0, 0, err
	}
	indirect := volatilised * ef4 * N2ON2Ratio
	res.addStep("manure_n2o_indirect", "N2O = N_volatilised x EF4 x 44/28",
		map[string]float64{"n_volatilised_kg": volatilised, "ef4": ef4},
		map[string]float64{"n2o_indirect_kg": indirect})
	return direct, indirect, nil
}
