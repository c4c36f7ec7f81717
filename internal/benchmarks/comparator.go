package benchmarks

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"carbon-scribe/dairy-footprint/internal/factors"
)

// Performance labels, best first. Lower intensity is better.
const (
	LabelExcellent        = "excellent"
	LabelGood             = "good"
	LabelAverage          = "average"
	LabelNeedsImprovement = "needs_improvement"
)

// ErrNoBenchmark is returned when no dataset matches the requested region
var ErrNoBenchmark = errors.New("no benchmark available")

// Comparator compares farm intensities against regional reference datasets
type Comparator struct {
	repository BenchmarkRepository
	logger     *zap.Logger
}

// BenchmarkRepository interface for benchmark data access
type BenchmarkRepository interface {
	GetBenchmarks(ctx context.Context, region string) ([]*Benchmark, error)
}

// Benchmark represents a reference intensity dataset
type Benchmark struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Region          string         `json:"region"`
	Year            int            `json:"year"`
	Data            BenchmarkData  `json:"data"`
	Statistics      BenchmarkStats `json:"statistics"`
	Source          string         `json:"source,omitempty"`
	ConfidenceScore float64        `json:"confidence_score"`
	SampleSize      int            `json:"sample_size"`
}

// BenchmarkData represents the raw benchmark data
type BenchmarkData struct {
	Values []float64 `json:"values"`
	Unit   string    `json:"unit"`
}

// BenchmarkStats represents pre-calculated statistics
type BenchmarkStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
}

// Comparison is the annotation attached to one farm intensity
type Comparison struct {
	Region         string          `json:"region"`
	Intensity      float64         `json:"intensity"`
	Reference      float64         `json:"reference"`
	Gap            float64         `json:"gap"`
	GapPercentage  float64         `json:"gap_percentage"`
	Percentile     float64         `json:"percentile"`
	Label          string          `json:"label"`
	Priority       string          `json:"priority"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Benchmark      BenchmarkInfo   `json:"benchmark"`
}

// Recommendation represents an improvement recommendation
type Recommendation struct {
	Priority     string   `json:"priority"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ActionItems  []string `json:"action_items,omitempty"`
	ExpectedGain float64  `json:"expected_gain,omitempty"`
}

// BenchmarkInfo contains information about the benchmark used
type BenchmarkInfo struct {
	Name            string  `json:"name"`
	Year            int     `json:"year"`
	Source          string  `json:"source,omitempty"`
	ConfidenceScore float64 `json:"confidence_score"`
	SampleSize      int     `json:"sample_size"`
	Unit            string  `json:"unit"`
}

// NewComparator creates a new comparator
func NewComparator(repository BenchmarkRepository, logger *zap.Logger) *Comparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparator{
		repository: repository,
		logger:     logger,
	}
}

// Compare ranks an intensity (kg CO2e/kg FPCM) against the region's reference
func (c *Comparator) Compare(ctx context.Context, region string, intensity float64) (*Comparison, error) {
	if math.IsNaN(intensity) || intensity < 0 {
		return nil, errors.Newf("intensity must be a non-negative number, got %v", intensity)
	}

	benchmarks, err := c.repository.GetBenchmarks(ctx, region)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get benchmarks")
	}
	if len(benchmarks) == 0 {
		return nil, errors.Wrapf(ErrNoBenchmark, "region %q", region)
	}

	benchmark := c.selectBestBenchmark(benchmarks, region)
	c.logger.Debug("benchmark selected",
		zap.String("region", region),
		zap.String("benchmark", benchmark.Name),
	)

	target := benchmark.Statistics.Median
	gap := intensity - target
	gapPercentage := 0.0
	if target != 0 {
		gapPercentage = (gap / target) * 100
	}

	cmp := &Comparison{
		Region:        region,
		Intensity:     intensity,
		Reference:     target,
		Gap:           gap,
		GapPercentage: math.Round(gapPercentage*100) / 100,
		Percentile:    percentileRank(benchmark.Data.Values, intensity),
		Label:         label(intensity, benchmark.Statistics),
		Priority:      determinePriority(gapPercentage),
		Benchmark:     buildBenchmarkInfo(benchmark),
	}
	cmp.Recommendation = recommend(cmp)
	return cmp, nil
}

// selectBestBenchmark prefers an exact region match, then recency, then confidence
func (c *Comparator) selectBestBenchmark(benchmarks []*Benchmark, region string) *Benchmark {
	sorted := make([]*Benchmark, len(benchmarks))
	copy(sorted, benchmarks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scoreBenchmark(sorted[i], region) > scoreBenchmark(sorted[j], region)
	})
	return sorted[0]
}

func scoreBenchmark(b *Benchmark, region string) float64 {
	score := 0.0
	if b.Region == region || b.Region == factors.RegionOf(region) {
		score += 20
	}
	// recency within a decade
	score += math.Max(0, 10-math.Abs(float64(2024-b.Year)))
	score += b.ConfidenceScore * 10
	score += math.Min(float64(b.SampleSize)/100, 10)
	return score
}

func label(intensity float64, s BenchmarkStats) string {
	switch {
	case intensity <= s.P25:
		return LabelExcellent
	case intensity <= s.Median:
		return LabelGood
	case intensity <= s.P75:
		return LabelAverage
	default:
		return LabelNeedsImprovement
	}
}

// percentileRank is the share of reference farms with a lower intensity
func percentileRank(values []float64, value float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	position := sort.SearchFloat64s(sorted, value)
	percentile := float64(position) / float64(len(sorted)) * 100
	return math.Round(percentile*100) / 100
}

// determinePriority determines the priority based on gap percentage
func determinePriority(gapPercentage float64) string {
	absGap := math.Abs(gapPercentage)
	if absGap > 25 {
		return "high"
	} else if absGap > 10 {
		return "medium"
	}
	return "low"
}

// recommend only suggests action when the farm is above the reference
func recommend(cmp *Comparison) *Recommendation {
	if cmp.Gap <= 0 {
		if cmp.Priority == "low" {
			return nil
		}
		return &Recommendation{
			Priority: "info",
			Title:    "Intensity below regional reference",
			Description: fmt.Sprintf(
				"Current intensity (%.3f) is %.1f%% below the %s reference (%.3f).",
				cmp.Intensity, math.Abs(cmp.GapPercentage), cmp.Region, cmp.Reference,
			),
		}
	}

	rec := &Recommendation{Priority: cmp.Priority}
	switch cmp.Priority {
	case "high":
		rec.Title = "Critical intensity reduction needed"
		rec.Description = fmt.Sprintf(
			"Current intensity (%.3f) is %.1f%% above the regional reference (%.3f).",
			cmp.Intensity, cmp.GapPercentage, cmp.Reference,
		)
		rec.ActionItems = []string{
			"Review feed efficiency and ration digestibility",
			"Assess manure storage and consider covered or digested slurry",
			"Audit nitrogen fertilizer rates against crop demand",
		}
		rec.ExpectedGain = cmp.Gap
	case "medium":
		rec.Title = "Moderate intensity reduction possible"
		rec.Description = fmt.Sprintf(
			"Current intensity (%.3f) is %.1f%% above the regional reference (%.3f).",
			cmp.Intensity, cmp.GapPercentage, cmp.Reference,
		)
		rec.ActionItems = []string{
			"Identify the largest emission source in the breakdown",
			"Improve milk yield per cow and herd replacement rate",
		}
		rec.ExpectedGain = cmp.Gap * 0.5
	default:
		rec.Title = "Close to regional reference"
		rec.Description = fmt.Sprintf(
			"Intensity (%.3f) is close to the reference (%.3f).",
			cmp.Intensity, cmp.Reference,
		)
	}
	return rec
}

func buildBenchmarkInfo(b *Benchmark) BenchmarkInfo {
	return BenchmarkInfo{
		Name:            b.Name,
		Year:            b.Year,
		Source:          b.Source,
		ConfidenceScore: b.ConfidenceScore,
		SampleSize:      b.SampleSize,
		Unit:            b.Data.Unit,
	}
}

// CalculateStatistics calculates statistics from raw values
func CalculateStatistics(values []float64) BenchmarkStats {
	if len(values) == 0 {
		return BenchmarkStats{}
	}
	data := stats.Float64Data(values)

	// errors are only returned for empty input, handled above
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	stdDev, _ := stats.StandardDeviationPopulation(data)
	minV, _ := stats.Min(data)
	maxV, _ := stats.Max(data)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return BenchmarkStats{
		Mean:   mean,
		Median: median,
		StdDev: stdDev,
		Min:    minV,
		Max:    maxV,
		P25:    percentile(sorted, 25),
		P75:    percentile(sorted, 75),
		P90:    percentile(sorted, 90),
	}
}

// percentile calculates the p-th percentile of a sorted slice with linear interpolation
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	index := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
