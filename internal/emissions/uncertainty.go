package emissions

import (
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/montanaflynn/stats"
)

// UncertaintyOptions enables Monte-Carlo sampling around a point estimate.
// A nil CV uses the default; an explicit 0 samples without spread.
type UncertaintyOptions struct {
	Samples int      `json:"samples,omitempty"`
	CV      *float64 `json:"cv,omitempty"`
	Seed    uint64   `json:"seed,omitempty"`
}

// UncertaintyResult summarises the sampled distribution, kg CO2e
type UncertaintyResult struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	P5       float64 `json:"p5"`
	P25      float64 `json:"p25"`
	P75      float64 `json:"p75"`
	P95      float64 `json:"p95"`
	CI95Low  float64 `json:"ci95_low"`
	CI95High float64 `json:"ci95_high"`
	Samples  int     `json:"samples"`
	CV       float64 `json:"cv"`
}

func (o UncertaintyOptions) withDefaults(d Defaults) UncertaintyOptions {
	if o.Samples == 0 {
		o.Samples = d.DefaultSamples
	}
	if o.CV == nil {
		cv := d.DefaultCV
		o.CV = &cv
	}
	return o
}

func (o UncertaintyOptions) validate(d Defaults) error {
	if o.Samples < d.MinSamples || o.Samples > d.MaxSamples {
		return invalid("uncertainty.samples", o.Samples, "between "+strconv.Itoa(d.MinSamples)+" and "+strconv.Itoa(d.MaxSamples))
	}
	if o.CV == nil || math.IsNaN(*o.CV) || *o.CV < 0 || *o.CV > 1 {
		return invalid("uncertainty.cv", valueOr(o.CV, math.NaN()), "between 0 and 1")
	}
	return nil
}

// sampleAround draws normally distributed values around point, truncated at
// zero. The point estimate itself is never recomputed.
func sampleAround(point float64, o UncertaintyOptions) (*UncertaintyResult, error) {
	cv := valueOr(o.CV, 0)
	rng := rand.New(rand.NewPCG(o.Seed, o.Seed^0x9e3779b97f4a7c15))
	data := make([]float64, o.Samples)
	for i := range data {
		data[i] = math.Max(0, point*(1+cv*rng.NormFloat64()))
	}

	out := &UncertaintyResult{Samples: o.Samples, CV: cv}
	var err error
	if out.Mean, err = stats.Mean(data); err != nil {
		return nil, errors.Wrap(err, "uncertainty mean")
	}
	if out.Median, err = stats.Median(data); err != nil {
		return nil, errors.Wrap(err, "uncertainty median")
	}
	if out.StdDev, err = stats.StandardDeviationSample(data); err != nil {
		return nil, errors.Wrap(err, "uncertainty standard deviation")
	}

	percentiles := []struct {
		p   float64
		dst *float64
	}{
		{2.5, &out.CI95Low}, {5, &out.P5}, {25, &out.P25},
		{75, &out.P75}, {95, &out.P95}, {97.5, &out.CI95High},
	}
	for _, pc := range percentiles {
		v, err := stats.Percentile(data, pc.p)
		if err != nil {
			return nil, errors.Wrapf(err, "uncertainty percentile %v", pc.p)
		}
		*pc.dst = v
	}
	return out, nil
}
