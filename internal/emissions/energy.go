package emissions

import (
	"carbon-scribe/dairy-footprint/internal/factors"
)

const energyMethodology = "Direct combustion and location-based grid electricity"

// EnergyInput is annual on-farm energy use
type EnergyInput struct {
	DieselL        float64 `json:"diesel_l"`
	PetrolL        float64 `json:"petrol_l"`
	LPGKg          float64 `json:"lpg_kg"`
	NaturalGasM3   float64 `json:"natural_gas_m3"`
	ElectricityKWh float64 `json:"electricity_kwh"`
	// RenewableFraction is the share of electricity from on-site or contracted renewables
	RenewableFraction float64 `json:"renewable_fraction,omitempty"`
	// Country selects the grid factor; a region name also works
	Country string `json:"country,omitempty"`
}

var energyKeys = []string{
	"co2_diesel_kg", "co2_petrol_kg", "co2_lpg_kg", "co2_natural_gas_kg", "co2_electricity_kg",
	"co2_fuel_kg",
}

// Energy calculates CO2 from fuel combustion and purchased electricity.
// Factors are already per kg CO2 so no GWP is applied.
func (e *Engine) Energy(in EnergyInput, boundary *Boundary) (*SourceResult, error) {
	fuels := []struct {
		field string
		fuel  string
		value float64
	}{
		{"diesel_l", "diesel", in.DieselL},
		{"petrol_l", "petrol", in.PetrolL},
		{"lpg_kg", "lpg", in.LPGKg},
		{"natural_gas_m3", "natural_gas", in.NaturalGasM3},
	}
	for _, f := range fuels {
		if err := checkQuantity(f.field, f.value); err != nil {
			return nil, err
		}
	}
	if err := checkQuantity("electricity_kwh", in.ElectricityKWh); err != nil {
		return nil, err
	}
	if err := checkFraction("renewable_fraction", in.RenewableFraction); err != nil {
		return nil, err
	}

	if !boundary.Includes(SourceEnergy) {
		return e.excluded(SourceEnergy, energyMethodology, 0, energyKeys, false), nil
	}

	res := e.newResult(SourceEnergy, energyMethodology, 0)
	var fuelCO2 float64
	for _, f := range fuels {
		key := "co2_" + f.fuel + "_kg"
		if f.value == 0 {
			res.Breakdown[key] = 0
			continue
		}
		ef, err := e.factor(res, f.fuel, factors.Key(factors.Fuel, f.fuel), in.Country, int(Tier1))
		if err != nil {
			return nil, err
		}
		co2 := f.value * ef
		res.Breakdown[key] = co2
		fuelCO2 += co2
	}
	res.Breakdown["co2_fuel_kg"] = fuelCO2

	var elecCO2 float64
	if in.ElectricityKWh > 0 {
		grid, err := e.factor(res, "grid_electricity", factors.GridElectric, in.Country, int(Tier1))
		if err != nil {
			return nil, err
		}
		elecCO2 = in.ElectricityKWh * (1 - in.RenewableFraction) * grid
		res.addStep("electricity", "CO2 = kWh x (1 - renewable_fraction) x EF_grid",
			map[string]float64{"electricity_kwh": in.ElectricityKWh, "renewable_fraction": in.RenewableFraction, "ef_grid": grid},
			map[string]float64{"co2_electricity_kg": elecCO2})
	}
	res.Breakdown["co2_electricity_kg"] = elecCO2

	res.addStep("energy_total", "CO2 = sum(fuel x EF_fuel) + CO2_electricity",
		map[string]float64{"co2_fuel_kg": fuelCO2, "co2_electricity_kg": elecCO2},
		map[string]float64{"co2eq_kg": fuelCO2 + elecCO2})

	return finish(res, fuelCO2+elecCO2)
}
