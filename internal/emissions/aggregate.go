package emissions

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

// totalKeys is the resolution order for a source's numeric total
var totalKeys = []string{"co2eq_kg", "total_co2eq_kg", "total_co2eq"}

// SourceTotal is one supplied source as it entered the total
type SourceTotal struct {
	Source  SourceTag `json:"source"`
	CO2eqKg float64   `json:"co2eq_kg"`
	Unit    string    `json:"unit"`
}

// TotalResult is the farm-level footprint across sources
type TotalResult struct {
	TotalCO2eq float64               `json:"total_co2eq"`
	Breakdown  map[SourceTag]float64 `json:"breakdown"`
	BySource   []SourceTotal         `json:"by_source"`
	NSources   int                   `json:"n_sources"`
	Date       time.Time             `json:"date"`
}

// AggregateSources is the typed form of Aggregate
func AggregateSources(results ...*SourceResult) (*TotalResult, error) {
	in := make([]any, len(results))
	for i, r := range results {
		in[i] = r
	}
	return Aggregate(in)
}

// Aggregate sums heterogeneous source results. Each element may be a
// *SourceResult, a SourceResult or a decoded JSON object. A nil total counts
// as a supplied source contributing zero; a missing total is an error.
func Aggregate(results []any) (*TotalResult, error) {
	if len(results) == 0 {
		return nil, errors.WithStack(&AggregationError{Message: "no sources supplied"})
	}

	total := &TotalResult{
		Breakdown: make(map[SourceTag]float64, len(results)),
		BySource:  make([]SourceTotal, 0, len(results)),
		Date:      time.Now().UTC().Truncate(24 * time.Hour),
	}
	for i, r := range results {
		source, value, err := resolveTotal(i, r)
		if err != nil {
			return nil, err
		}
		total.Breakdown[source] += value
		total.BySource = append(total.BySource, SourceTotal{Source: source, CO2eqKg: value, Unit: "kg CO2e"})
		total.NSources++
	}

	for _, s := range total.BySource {
		total.TotalCO2eq += s.CO2eqKg
	}
	return total, nil
}

func resolveTotal(i int, r any) (SourceTag, float64, error) {
	switch v := r.(type) {
	case *SourceResult:
		if v == nil {
			return "", 0, errors.WithStack(&TypeError{Index: i, Got: "nil *SourceResult"})
		}
		return v.Source, v.Value(), nil
	case SourceResult:
		return v.Source, v.Value(), nil
	case map[string]any:
		return resolveMap(i, v)
	default:
		return "", 0, errors.WithStack(&TypeError{Index: i, Got: fmt.Sprintf("%T", r)})
	}
}

func resolveMap(i int, m map[string]any) (SourceTag, float64, error) {
	source := SourceTag(fmt.Sprintf("source_%d", i+1))
	if s, ok := m["source"].(string); ok && s != "" {
		source = SourceTag(s)
	}

	for _, key := range totalKeys {
		raw, ok := m[key]
		if !ok {
			continue
		}
		if raw == nil {
			return source, 0, nil
		}
		value, err := toFloat(raw)
		if err != nil {
			return "", 0, errors.WithStack(&AggregationError{Source: string(source), Message: fmt.Sprintf("%s is not numeric: %v", key, err)})
		}
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return "", 0, errors.WithStack(&AggregationError{Source: string(source), Message: fmt.Sprintf("%s must be finite and non-negative, got %v", key, value)})
		}
		return source, value, nil
	}
	return "", 0, errors.WithStack(&AggregationError{Source: string(source), Message: "no co2eq_kg, total_co2eq_kg or total_co2eq field"})
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case *float64:
		if n == nil {
			return 0, nil
		}
		return *n, nil
	}
	return 0, errors.Newf("unsupported type %T", v)
}
