package emissions

import "github.com/cockroachdb/errors"

// GWPSet is a pair of 100-year global warming potentials
type GWPSet struct {
	Name string  `json:"name"`
	CH4  float64 `json:"ch4"`
	N2O  float64 `json:"n2o"`
}

// Supported GWP sets. AR6 uses the non-fossil CH4 value since dairy methane is biogenic.
var (
	GWPAR4 = GWPSet{Name: "AR4", CH4: 25, N2O: 298}
	GWPAR5 = GWPSet{Name: "AR5", CH4: 28, N2O: 265}
	GWPAR6 = GWPSet{Name: "AR6", CH4: 27.0, N2O: 273}
)

// GWPByName resolves a GWP set name
func GWPByName(name string) (GWPSet, error) {
	switch name {
	case "", "AR6", "ar6":
		return GWPAR6, nil
	case "AR5", "ar5":
		return GWPAR5, nil
	case "AR4", "ar4":
		return GWPAR4, nil
	}
	return GWPSet{}, errors.WithStack(&ValidationError{Field: "gwp_set", Value: name, Allowed: "one of AR4, AR5, AR6"})
}

// N2ON2Ratio converts N2O-N mass to N2O mass
const N2ON2Ratio = 44.0 / 28.0

// Defaults holds the methodology constants every calculator reads. It is a
// value type: callers copy and adjust it rather than mutating shared state.
type Defaults struct {
	GWP GWPSet

	// Enteric Tier 2
	GrossEnergyMJPerKgDM float64 // MJ per kg dry matter
	CH4EnergyMJPerKg     float64 // MJ per kg CH4
	YmPercent            float64 // methane conversion factor, % of GE

	// Manure Tier 2
	UrinaryEnergyFraction float64
	AshFraction           float64
	DigestibilityPercent  float64
	CH4DensityKgPerM3     float64

	BodyWeightKg   map[AnimalCategory]float64
	IntakeFraction map[AnimalCategory]float64 // kg DMI per kg body weight per day
	NRetention     map[AnimalCategory]float64 // fraction of N intake retained

	// Monte-Carlo bounds
	MinSamples     int
	MaxSamples     int
	DefaultSamples int
	DefaultCV      float64
}

// DefaultDefaults returns the built-in methodology constants
func DefaultDefaults() Defaults {
	return Defaults{
		GWP:                   GWPAR6,
		GrossEnergyMJPerKgDM:  18.45,
		CH4EnergyMJPerKg:      55.65,
		YmPercent:             6.5,
		UrinaryEnergyFraction: 0.04,
		AshFraction:           0.08,
		DigestibilityPercent:  70,
		CH4DensityKgPerM3:     0.67,
		BodyWeightKg: map[AnimalCategory]float64{
			CategoryDairyCow: 600, CategoryDryCow: 600, CategoryHeifer: 400,
			CategoryCalf: 150, CategoryBull: 750,
		},
		IntakeFraction: map[AnimalCategory]float64{
			CategoryDairyCow: 0.035, CategoryDryCow: 0.02, CategoryHeifer: 0.022,
			CategoryCalf: 0.025, CategoryBull: 0.018,
		},
		NRetention: map[AnimalCategory]float64{
			CategoryDairyCow: 0.20, CategoryDryCow: 0.05, CategoryHeifer: 0.07,
			CategoryCalf: 0.20, CategoryBull: 0.07,
		},
		MinSamples:     100,
		MaxSamples:     100000,
		DefaultSamples: 1000,
		DefaultCV:      0.2,
	}
}

// WithGWP returns a copy using another GWP set
func (d Defaults) WithGWP(g GWPSet) Defaults {
	d.GWP = g
	return d
}

// WithBodyWeight returns a copy with one category body weight replaced.
// The maps are cloned so the receiver is never modified.
func (d Defaults) WithBodyWeight(cat AnimalCategory, kg float64) Defaults {
	d.BodyWeightKg = cloneCategoryMap(d.BodyWeightKg)
	d.BodyWeightKg[cat] = kg
	return d
}

func cloneCategoryMap(m map[AnimalCategory]float64) map[AnimalCategory]float64 {
	out := make(map[AnimalCategory]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
