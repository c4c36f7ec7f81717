package emissions

import "time"

// SourceResult is the output of one source calculator
type SourceResult struct {
	Source SourceTag `json:"source"`
	// CO2eqKg is nil only when Enteric is excluded by the boundary
	CO2eqKg             *float64           `json:"co2eq_kg"`
	Breakdown           map[string]float64 `json:"breakdown"`
	Methodology         string             `json:"methodology"`
	Tier                int                `json:"tier,omitempty"`
	EmissionFactorsUsed map[string]float64 `json:"emission_factors_used"`
	Steps               []CalculationStep  `json:"calculation_steps,omitempty"`
	Excluded            bool               `json:"excluded"`
	Notes               []string           `json:"notes,omitempty"`
	Uncertainty         *UncertaintyResult `json:"uncertainty,omitempty"`
	Date                time.Time          `json:"date"`
}

// CalculationStep records one step of a methodology for audit
type CalculationStep struct {
	StepNumber  int                `json:"step_number"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Formula     string             `json:"formula"`
	Inputs      map[string]float64 `json:"inputs,omitempty"`
	Outputs     map[string]float64 `json:"outputs"`
}

// Value returns the numeric total, treating nil as zero
func (r *SourceResult) Value() float64 {
	if r == nil || r.CO2eqKg == nil {
		return 0
	}
	return *r.CO2eqKg
}

func (r *SourceResult) addStep(name, formula string, inputs, outputs map[string]float64) {
	r.Steps = append(r.Steps, CalculationStep{
		StepNumber: len(r.Steps) + 1,
		Name:       name,
		Formula:    formula,
		Inputs:     inputs,
		Outputs:    outputs,
	})
}

func floatPtr(v float64) *float64 {
	return &v
}
