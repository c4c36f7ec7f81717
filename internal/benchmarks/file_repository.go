package benchmarks

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"carbon-scribe/dairy-footprint/internal/factors"
)

// FileRepository reads reference datasets from a YAML file on every call,
// so edits are picked up without a restart. Wrap it in a CachedRepository
// to bound the reads.
//
//	benchmarks:
//	  - region: IE
//	    name: Irish dairy monitor
//	    year: 2023
//	    source: Teagasc
//	    confidence_score: 0.8
//	    values: [0.82, 0.9, 0.95, 1.02, 1.1]
type FileRepository struct {
	path string
}

type benchmarkFile struct {
	Benchmarks []fileBenchmark `yaml:"benchmarks"`
}

type fileBenchmark struct {
	ID              string    `yaml:"id"`
	Name            string    `yaml:"name"`
	Region          string    `yaml:"region"`
	Year            int       `yaml:"year"`
	Source          string    `yaml:"source"`
	ConfidenceScore float64   `yaml:"confidence_score"`
	Values          []float64 `yaml:"values"`
}

// NewFileRepository creates a repository backed by path
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// GetBenchmarks returns datasets for the region (or the country's region)
// followed by global ones
func (r *FileRepository) GetBenchmarks(_ context.Context, region string) ([]*Benchmark, error) {
	all, err := r.load()
	if err != nil {
		return nil, err
	}

	resolved := factors.RegionOf(region)
	var regional, global []*Benchmark
	for _, b := range all {
		switch {
		case b.Region == factors.DefaultRegion:
			global = append(global, b)
		case strings.EqualFold(b.Region, strings.TrimSpace(region)) || b.Region == resolved:
			regional = append(regional, b)
		}
	}
	return append(regional, global...), nil
}

func (r *FileRepository) load() ([]*Benchmark, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read benchmarks %s", r.path)
	}

	var file benchmarkFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "failed to parse benchmarks %s", r.path)
	}

	out := make([]*Benchmark, 0, len(file.Benchmarks))
	for i, fb := range file.Benchmarks {
		if len(fb.Values) == 0 {
			return nil, errors.Newf("benchmark #%d (%s) has no values", i+1, fb.Name)
		}
		region := strings.TrimSpace(fb.Region)
		if region == "" {
			region = factors.DefaultRegion
		}
		id := fb.ID
		if id == "" {
			id = "file-" + region
		}
		out = append(out, &Benchmark{
			ID:              id,
			Name:            fb.Name,
			Region:          region,
			Year:            fb.Year,
			Data:            BenchmarkData{Values: fb.Values, Unit: intensityUnit},
			Statistics:      CalculateStatistics(fb.Values),
			Source:          fb.Source,
			ConfidenceScore: fb.ConfidenceScore,
			SampleSize:      len(fb.Values),
		})
	}
	return out, nil
}
