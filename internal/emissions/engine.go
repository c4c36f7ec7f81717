package emissions

import (
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"carbon-scribe/dairy-footprint/internal/factors"
)

// FactorSource is the read-only emission factor lookup the calculators consume
type FactorSource interface {
	Get(substance, regionOrCountry string, tier int) (factors.Factor, error)
}

// Tier selects IPCC methodology depth. The zero value means Tier 1.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
)

func (t Tier) normalize() Tier {
	if t == 0 {
		return Tier1
	}
	return t
}

// ValidateTier fails unless the tier is 1 or 2 (0 is read as 1)
func ValidateTier(t Tier) error {
	switch t.normalize() {
	case Tier1, Tier2:
		return nil
	}
	return invalid("tier", int(t), "1 or 2")
}

// AnimalCategory is a herd sub-population with its own default factors
type AnimalCategory string

const (
	CategoryDairyCow AnimalCategory = "dairy_cow"
	CategoryDryCow   AnimalCategory = "dry_cow"
	CategoryHeifer   AnimalCategory = "heifer"
	CategoryCalf     AnimalCategory = "calf"
	CategoryBull     AnimalCategory = "bull"
)

// AnimalCategories lists categories in reporting order
var AnimalCategories = []AnimalCategory{CategoryDairyCow, CategoryDryCow, CategoryHeifer, CategoryCalf, CategoryBull}

// Herd holds average annual head counts per category
type Herd struct {
	CowsMilking float64 `json:"cows_milking"`
	CowsDry     float64 `json:"cows_dry"`
	Heifers     float64 `json:"heifers"`
	Calves      float64 `json:"calves"`
	Bulls       float64 `json:"bulls"`
}

// Count returns the head count of a category
func (h Herd) Count(cat AnimalCategory) float64 {
	switch cat {
	case CategoryDairyCow:
		return h.CowsMilking
	case CategoryDryCow:
		return h.CowsDry
	case CategoryHeifer:
		return h.Heifers
	case CategoryCalf:
		return h.Calves
	case CategoryBull:
		return h.Bulls
	}
	return 0
}

func (h Herd) validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"cows_milking", h.CowsMilking},
		{"cows_dry", h.CowsDry},
		{"heifers", h.Heifers},
		{"calves", h.Calves},
		{"bulls", h.Bulls},
	}
	for _, f := range fields {
		if err := checkQuantity(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

// AnimalDetail carries optional Tier 2 physiology for one category. Any nil
// field falls back to its Tier 1 default.
type AnimalDetail struct {
	BodyWeightKg     *float64 `json:"body_weight_kg,omitempty"`
	DMIKgDay         *float64 `json:"dmi_kg_day,omitempty"`
	DigestibilityPct *float64 `json:"digestibility_pct,omitempty"`
	YmPct            *float64 `json:"ym_pct,omitempty"`
	CrudeProteinPct  *float64 `json:"crude_protein_pct,omitempty"`
}

// hasIntakeDetail reports whether any input to the gross-energy intake
// estimate was supplied. Crude protein only refines nitrogen excretion.
func (d AnimalDetail) hasIntakeDetail() bool {
	return d.BodyWeightKg != nil || d.DMIKgDay != nil || d.DigestibilityPct != nil
}

func (d AnimalDetail) hasEntericDetail() bool {
	return d.hasIntakeDetail() || d.YmPct != nil
}

func (d AnimalDetail) validate(prefix string) error {
	if err := checkOptionalQuantity(prefix+".body_weight_kg", d.BodyWeightKg); err != nil {
		return err
	}
	if err := checkOptionalQuantity(prefix+".dmi_kg_day", d.DMIKgDay); err != nil {
		return err
	}
	if err := checkPercent(prefix+".digestibility_pct", d.DigestibilityPct); err != nil {
		return err
	}
	if err := checkPercent(prefix+".ym_pct", d.YmPct); err != nil {
		return err
	}
	return checkPercent(prefix+".crude_protein_pct", d.CrudeProteinPct)
}

func validateDetails(details map[AnimalCategory]AnimalDetail) error {
	for cat, d := range details {
		if !isCategory(cat) {
			return invalid("detail", string(cat), "one of dairy_cow, dry_cow, heifer, calf, bull")
		}
		if err := d.validate("detail." + string(cat)); err != nil {
			return err
		}
	}
	return nil
}

func isCategory(cat AnimalCategory) bool {
	for _, c := range AnimalCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// Engine runs the per-source calculators against one set of methodology
// defaults and one factor source. It holds no per-call state.
type Engine struct {
	factors  FactorSource
	defaults Defaults
	now      func() time.Time
}

// NewEngine creates a calculation engine
func NewEngine(f FactorSource, d Defaults) *Engine {
	if f == nil {
		f = factors.NewRegistry()
	}
	return &Engine{
		factors:  f,
		defaults: d,
		now:      time.Now,
	}
}

// Defaults returns a copy of the engine defaults
func (e *Engine) Defaults() Defaults {
	return e.defaults
}

func (e *Engine) today() time.Time {
	return e.now().UTC().Truncate(24 * time.Hour)
}

func (e *Engine) newResult(source SourceTag, methodology string, tier Tier) *SourceResult {
	return &SourceResult{
		Source:              source,
		Breakdown:           make(map[string]float64),
		Methodology:         methodology,
		Tier:                int(tier),
		EmissionFactorsUsed: make(map[string]float64),
		Date:                e.today(),
	}
}

// excluded builds the boundary-excluded result: zeroed breakdown, metadata kept
func (e *Engine) excluded(source SourceTag, methodology string, tier Tier, keys []string, nullTotal bool) *SourceResult {
	res := e.newResult(source, methodology, tier)
	for _, k := range keys {
		res.Breakdown[k] = 0
	}
	res.Excluded = true
	res.Notes = append(res.Notes, "excluded by boundary")
	if !nullTotal {
		res.CO2eqKg = floatPtr(0)
	}
	return res
}

// factor looks up a factor and records it under label in the result
func (e *Engine) factor(res *SourceResult, label, substance, region string, tier int) (float64, error) {
	f, err := e.factors.Get(substance, region, tier)
	if err != nil {
		return 0, errors.Wrapf(err, "factor %s", label)
	}
	res.EmissionFactorsUsed[label] = f.Value
	if f.Fallback && region != "" && !factors.IsKnownRegion(region) {
		res.addNote("unknown region " + region + ", used " + f.Region + " factors")
	}
	return f.Value, nil
}

func (r *SourceResult) addNote(note string) {
	for _, n := range r.Notes {
		if n == note {
			return
		}
	}
	r.Notes = append(r.Notes, note)
}

// finish enforces the output contract: finite, non-negative CO2e
func finish(res *SourceResult, co2eq float64) (*SourceResult, error) {
	if math.IsNaN(co2eq) || math.IsInf(co2eq, 0) {
		return nil, errors.Newf("%s produced a non-finite result", res.Source)
	}
	if co2eq < 0 {
		return nil, errors.Newf("%s produced a negative result (%v)", res.Source, co2eq)
	}
	res.CO2eqKg = floatPtr(co2eq)
	return res, nil
}

func checkQuantity(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalid(field, v, ">= 0")
	}
	return nil
}

func checkOptionalQuantity(field string, v *float64) error {
	if v == nil {
		return nil
	}
	return checkQuantity(field, *v)
}

func checkFraction(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return invalid(field, v, "between 0 and 1")
	}
	return nil
}

func checkPercent(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || *v < 0 || *v > 100 {
		return invalid(field, *v, "between 0 and 100")
	}
	return nil
}

func checkEnum[T ~string](field string, v T, allowed []T) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return invalid(field, string(v), "one of "+strings.Join(names, ", "))
}

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
