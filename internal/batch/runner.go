package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"carbon-scribe/dairy-footprint/internal/benchmarks"
	"carbon-scribe/dairy-footprint/internal/emissions"
)

// FarmStatus is the lifecycle state of one farm within a run
type FarmStatus string

const (
	StatusPending   FarmStatus = "pending"
	StatusComputing FarmStatus = "computing"
	StatusSuccess   FarmStatus = "success"
	StatusFailed    FarmStatus = "failed"
)

// FarmSuccess carries everything computed for one farm
type FarmSuccess struct {
	Sources       []*emissions.SourceResult      `json:"sources"`
	Total         *emissions.TotalResult         `json:"total"`
	Intensity     *emissions.IntensityResult     `json:"intensity"`
	AreaIntensity *emissions.AreaIntensityResult `json:"area_intensity,omitempty"`
	Benchmark     *benchmarks.Comparison         `json:"benchmark,omitempty"`
}

// FarmFailure describes why a farm could not be computed
type FarmFailure struct {
	Reason string `json:"reason"`
	// Field is set for validation failures
	Field string `json:"field,omitempty"`
	Kind  string `json:"kind"`
}

// FarmResult is the outcome for one input row. Exactly one of Success and
// Failure is set once the run has finished.
type FarmResult struct {
	Row     int          `json:"row"`
	FarmID  string       `json:"farm_id"`
	Status  FarmStatus   `json:"status"`
	Success *FarmSuccess `json:"success,omitempty"`
	Failure *FarmFailure `json:"failure,omitempty"`
}

// Summary is the run-level overview
type Summary struct {
	NFarmsProcessed     int       `json:"n_farms_processed"`
	NFarmsSuccessful    int       `json:"n_farms_successful"`
	NFarmsWithErrors    int       `json:"n_farms_with_errors"`
	BoundariesUsed      []string  `json:"boundaries_used"`
	Scope               string    `json:"scope"`
	BenchmarkRegion     string    `json:"benchmark_region,omitempty"`
	ProcessingDate      time.Time `json:"processing_date"`
	Tier                int       `json:"tier"`
	TotalEmissionsCO2eq float64   `json:"total_emissions_co2eq"`
	// MeanIntensity is the mean kg CO2e per kg FPCM over successful farms
	MeanIntensity float64 `json:"mean_intensity"`
}

// RunResult is the output of one batch run
type RunResult struct {
	RunID       string       `json:"run_id"`
	Summary     Summary      `json:"summary"`
	FarmResults []FarmResult `json:"farm_results"`
}

// Options tunes a Runner
type Options struct {
	// Workers bounds parallel farm processing; values below 2 run sequentially
	Workers int
	// DefaultRegion is used for farms with neither region nor country
	DefaultRegion string
	// Uncertainty, when set, adds Monte-Carlo sampling to purchased inputs
	Uncertainty *emissions.UncertaintyOptions
}

// Runner applies the calculator pipeline to every farm in a table
type Runner struct {
	engine     *emissions.Engine
	comparator *benchmarks.Comparator
	logger     *zap.Logger
	opts       Options
	now        func() time.Time
}

// NewRunner creates a batch runner. comparator may be nil to disable benchmarking.
func NewRunner(engine *emissions.Engine, comparator *benchmarks.Comparator, logger *zap.Logger, opts Options) *Runner {
	if engine == nil {
		engine = emissions.NewEngine(nil, emissions.DefaultDefaults())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		engine:     engine,
		comparator: comparator,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Run computes every farm in table. Invalid run parameters fail before any
// farm is attempted; afterwards each farm succeeds or fails on its own and
// results keep the input row order. A nil boundary means farm_gate.
func (r *Runner) Run(ctx context.Context, table []FarmRecord, tier emissions.Tier, boundary *emissions.Boundary, benchmarkRegion string) (*RunResult, error) {
	if len(table) == 0 {
		return nil, errors.WithStack(&emissions.ValidationError{Field: "table", Value: 0, Allowed: "at least one farm"})
	}
	if tier != emissions.Tier1 && tier != emissions.Tier2 {
		return nil, errors.WithStack(&emissions.ValidationError{Field: "tier", Value: int(tier), Allowed: "one of 1, 2"})
	}
	if boundary == nil {
		b, err := emissions.NewBoundary(emissions.ScopeFarmGate)
		if err != nil {
			return nil, err
		}
		boundary = b
	}

	run := &RunResult{
		RunID:       uuid.NewString(),
		FarmResults: make([]FarmResult, len(table)),
	}
	for i, rec := range table {
		run.FarmResults[i] = FarmResult{Row: i + 1, FarmID: farmID(rec, i+1), Status: StatusPending}
	}

	r.logger.Info("Starting batch run",
		zap.String("run_id", run.RunID),
		zap.Int("farms", len(table)),
		zap.Int("tier", int(tier)),
		zap.Strings("boundary", boundary.Strings()),
		zap.Int("workers", r.opts.Workers))
	start := time.Now()

	var g errgroup.Group
	if r.opts.Workers > 1 {
		g.SetLimit(r.opts.Workers)
	} else {
		g.SetLimit(1)
	}
	for i := range table {
		g.Go(func() error {
			run.FarmResults[i] = r.processFarm(ctx, run.FarmResults[i], table[i], tier, boundary, benchmarkRegion)
			return nil
		})
	}
	// farm errors are recorded per slot, never returned
	_ = g.Wait()

	run.Summary = r.summarize(run.FarmResults, tier, boundary, benchmarkRegion)

	r.logger.Info("Batch run completed",
		zap.String("run_id", run.RunID),
		zap.Int("successful", run.Summary.NFarmsSuccessful),
		zap.Int("failed", run.Summary.NFarmsWithErrors),
		zap.Duration("duration", time.Since(start)))

	return run, nil
}

func farmID(rec FarmRecord, row int) string {
	if id := strings.TrimSpace(rec.FarmID); id != "" {
		return id
	}
	return fmt.Sprintf("row_%d", row)
}

// processFarm never panics; any failure, including a recovered panic,
// becomes the farm's Failure.
func (r *Runner) processFarm(ctx context.Context, res FarmResult, rec FarmRecord, tier emissions.Tier, boundary *emissions.Boundary, benchmarkRegion string) (out FarmResult) {
	res.Status = StatusComputing
	defer func() {
		if p := recover(); p != nil {
			out = r.fail(res, errors.Newf("panic while computing farm: %v", p))
		}
	}()

	if rec.DecodeErr != nil {
		return r.fail(res, rec.DecodeErr)
	}

	success, err := r.computeFarm(ctx, rec, tier, boundary, benchmarkRegion)
	if err != nil {
		return r.fail(res, err)
	}
	res.Status = StatusSuccess
	res.Success = success
	return res
}

func (r *Runner) fail(res FarmResult, err error) FarmResult {
	r.logger.Warn("Farm calculation failed",
		zap.String("farm_id", res.FarmID),
		zap.Int("row", res.Row),
		zap.Error(err))

	failure := &FarmFailure{Reason: err.Error(), Kind: "internal"}
	var ve *emissions.ValidationError
	switch {
	case errors.As(err, &ve):
		failure.Field = ve.Field
		failure.Kind = "validation"
	case emissions.IsInputError(err):
		failure.Kind = "input"
	}
	res.Status = StatusFailed
	res.Success = nil
	res.Failure = failure
	return res
}

func (r *Runner) computeFarm(ctx context.Context, rec FarmRecord, tier emissions.Tier, boundary *emissions.Boundary, benchmarkRegion string) (*FarmSuccess, error) {
	region := rec.factorRegion(r.opts.DefaultRegion)
	details := rec.details()

	enteric, err := r.engine.Enteric(emissions.EntericInput{
		Herd:   rec.herd(),
		Region: region,
		Tier:   tier,
		Detail: details,
	}, boundary)
	if err != nil {
		return nil, errors.Wrap(err, "enteric")
	}

	manure, err := r.engine.Manure(emissions.ManureInput{
		Herd:            rec.herd(),
		Region:          region,
		Tier:            tier,
		System:          emissions.ManureSystem(rec.ManureSystem),
		Climate:         emissions.Climate(rec.Climate),
		PastureFraction: val(rec.PastureFraction),
		AvgTempC:        rec.AvgTempC,
		StorageMonths:   rec.StorageMonths,
		Detail:          details,
	}, boundary)
	if err != nil {
		return nil, errors.Wrap(err, "manure")
	}

	soil, err := r.engine.Soil(emissions.SoilInput{
		SyntheticNKg:     val(rec.SyntheticNKg),
		ManureNAppliedKg: val(rec.ManureNAppliedKg),
		CropResidueNKg:   val(rec.CropResidueNKg),
		GrazingNKg:       val(rec.GrazingNKg),
		OrganicNKg:       val(rec.OrganicNKg),
		FertilizerType:   emissions.FertilizerType(rec.FertilizerType),
		ClimateMoisture:  emissions.Moisture(rec.ClimateMoisture),
		Region:           region,
		Tier:             tier,
	}, boundary)
	if err != nil {
		return nil, errors.Wrap(err, "soil")
	}

	energy, err := r.engine.Energy(emissions.EnergyInput{
		DieselL:           val(rec.DieselL),
		PetrolL:           val(rec.PetrolL),
		LPGKg:             val(rec.LPGKg),
		NaturalGasM3:      val(rec.NaturalGasM3),
		ElectricityKWh:    val(rec.ElectricityKWh),
		RenewableFraction: val(rec.RenewableFraction),
		Country:           rec.gridCountry(r.opts.DefaultRegion),
	}, boundary)
	if err != nil {
		return nil, errors.Wrap(err, "energy")
	}

	fertilizerN := rec.FertilizerNKg
	if fertilizerN == nil {
		fertilizerN = rec.SyntheticNKg
	}
	inputs, err := r.engine.Inputs(emissions.PurchasedInputs{
		ConcentrateKg:       val(rec.ConcentrateKg),
		FertilizerNKg:       val(fertilizerN),
		FertilizerType:      emissions.FertilizerType(rec.FertilizerType),
		PlasticKg:           val(rec.PlasticKg),
		Feeds:               rec.feeds(),
		TransportDistanceKm: val(rec.TransportDistanceKm),
		Region:              region,
		Uncertainty:         r.opts.Uncertainty,
	}, boundary)
	if err != nil {
		return nil, errors.Wrap(err, "inputs")
	}

	sources := []*emissions.SourceResult{enteric, manure, soil, energy, inputs}
	total, err := emissions.AggregateSources(sources...)
	if err != nil {
		return nil, err
	}

	intensity, err := emissions.MilkIntensity(total.TotalCO2eq, emissions.MilkProduction{
		Litres:         rec.MilkLitres,
		FatPercent:     rec.FatPercent,
		ProteinPercent: rec.ProteinPercent,
		DensityKgPerL:  rec.MilkDensity,
	})
	if err != nil {
		return nil, err
	}

	success := &FarmSuccess{Sources: sources, Total: total, Intensity: intensity}

	if rec.AreaTotalHa != nil {
		area, err := emissions.AreaIntensity(total.TotalCO2eq, emissions.AreaInput{
			TotalHa:         *rec.AreaTotalHa,
			ProductiveHa:    rec.AreaProductiveHa,
			Breakdown:       rec.areaBreakdown(),
			ValidateAreaSum: true,
		})
		if err != nil {
			return nil, err
		}
		success.AreaIntensity = area
	}

	if benchmarkRegion != "" && r.comparator != nil {
		cmp, err := r.comparator.Compare(ctx, benchmarkRegion, intensity.IntensityCO2eqPerKgFPCM)
		if err != nil {
			// benchmarking is an annotation, the farm still succeeds
			r.logger.Warn("Benchmark comparison failed",
				zap.String("farm_id", rec.FarmID),
				zap.String("region", benchmarkRegion),
				zap.Error(err))
		} else {
			success.Benchmark = cmp
		}
	}

	return success, nil
}

func (r *Runner) summarize(results []FarmResult, tier emissions.Tier, boundary *emissions.Boundary, benchmarkRegion string) Summary {
	s := Summary{
		NFarmsProcessed: len(results),
		BoundariesUsed:  boundary.Strings(),
		Scope:           string(boundary.Scope()),
		BenchmarkRegion: benchmarkRegion,
		ProcessingDate:  r.now().UTC(),
		Tier:            int(tier),
	}
	var intensitySum float64
	for _, fr := range results {
		if fr.Status != StatusSuccess {
			s.NFarmsWithErrors++
			continue
		}
		s.NFarmsSuccessful++
		s.TotalEmissionsCO2eq += fr.Success.Total.TotalCO2eq
		intensitySum += fr.Success.Intensity.IntensityCO2eqPerKgFPCM
	}
	if s.NFarmsSuccessful > 0 {
		s.MeanIntensity = intensitySum / float64(s.NFarmsSuccessful)
	}
	return s
}
