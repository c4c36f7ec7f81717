package benchmarks

import (
	"context"
	"sort"
	"sync"

	"carbon-scribe/dairy-footprint/internal/factors"
)

const intensityUnit = "kg CO2e/kg FPCM"

// regional median intensities, cradle to farm gate
var regionalMedians = map[string]float64{
	factors.DefaultRegion: 2.5,
	"north_america":       1.3,
	"western_europe":      1.3,
	"eastern_europe":      1.6,
	"oceania":             1.0,
	"latin_america":       2.5,
	"asia":                2.5,
	"africa":              6.5,
	"middle_east":         2.8,
	"indian_subcontinent": 4.0,
}

// spread of a typical regional farm population relative to its median
var distributionShape = []float64{0.70, 0.78, 0.85, 0.90, 0.95, 1.0, 1.05, 1.12, 1.20, 1.32, 1.50}

// StaticRepository serves the built-in regional reference datasets.
// Country codes resolve to their region.
type StaticRepository struct {
	once       sync.Once
	benchmarks map[string]*Benchmark
}

// NewStaticRepository creates the built-in benchmark repository
func NewStaticRepository() *StaticRepository {
	return &StaticRepository{}
}

func (r *StaticRepository) load() {
	r.benchmarks = make(map[string]*Benchmark, len(regionalMedians))
	for region, median := range regionalMedians {
		values := make([]float64, len(distributionShape))
		for i, s := range distributionShape {
			values[i] = median * s
		}
		r.benchmarks[region] = &Benchmark{
			ID:              "gleam-" + region,
			Name:            "Dairy intensity reference (" + region + ")",
			Region:          region,
			Year:            2022,
			Data:            BenchmarkData{Values: values, Unit: intensityUnit},
			Statistics:      CalculateStatistics(values),
			Source:          "FAO GLEAM 3.0 regional dairy results",
			ConfidenceScore: 0.7,
			SampleSize:      len(values),
		}
	}
}

// GetBenchmarks returns the regional dataset and the global one
func (r *StaticRepository) GetBenchmarks(_ context.Context, region string) ([]*Benchmark, error) {
	r.once.Do(r.load)

	resolved := factors.RegionOf(region)
	out := []*Benchmark{}
	if b, ok := r.benchmarks[resolved]; ok && resolved != factors.DefaultRegion {
		out = append(out, b)
	}
	return append(out, r.benchmarks[factors.DefaultRegion]), nil
}

// Regions lists the regions with a dedicated dataset
func (r *StaticRepository) Regions() []string {
	r.once.Do(r.load)
	out := make([]string, 0, len(r.benchmarks))
	for region := range r.benchmarks {
		out = append(out, region)
	}
	sort.Strings(out)
	return out
}
