package scheduler

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"carbon-scribe/dairy-footprint/internal/batch"
	"carbon-scribe/dairy-footprint/internal/emissions"
	"carbon-scribe/dairy-footprint/internal/reports/export"
)

// RunSaver stores finished runs
type RunSaver interface {
	SaveRun(ctx context.Context, run *batch.RunResult) error
}

// TableReader loads the farm table a job runs over
type TableReader func(path string) ([]batch.FarmRecord, error)

// Executor runs one job: read the table, compute every farm, write the
// report and record the run.
type Executor struct {
	runner *batch.Runner
	store  RunSaver
	read   TableReader
	logger *zap.Logger
}

// ExecutionResult represents the result of one job execution
type ExecutionResult struct {
	RunID           string    `json:"run_id"`
	JobID           string    `json:"job_id"`
	Status          string    `json:"status"`
	FarmsProcessed  int       `json:"farms_processed"`
	FarmsWithErrors int       `json:"farms_with_errors"`
	OutputPath      string    `json:"output_path,omitempty"`
	Stored          bool      `json:"stored"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationMs      int64     `json:"duration_ms"`
	Error           string    `json:"error,omitempty"`
}

// NewExecutor creates an executor. store may be nil; read defaults to export.ReadFarmTable.
func NewExecutor(runner *batch.Runner, store RunSaver, read TableReader, logger *zap.Logger) *Executor {
	if runner == nil {
		runner = batch.NewRunner(nil, nil, logger, batch.Options{})
	}
	if read == nil {
		read = export.ReadFarmTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{runner: runner, store: store, read: read, logger: logger}
}

// Execute runs the job once. A failed report write or store is returned as
// an error, but the result still carries the run id.
func (e *Executor) Execute(ctx context.Context, job *Job) (*ExecutionResult, error) {
	result := &ExecutionResult{JobID: job.ID, Status: "running", StartedAt: time.Now()}
	finish := func(err error) (*ExecutionResult, error) {
		result.CompletedAt = time.Now()
		result.DurationMs = result.CompletedAt.Sub(result.StartedAt).Milliseconds()
		if err != nil {
			result.Status = "failed"
			result.Error = err.Error()
			return result, err
		}
		result.Status = "completed"
		return result, nil
	}

	table, err := e.read(job.Input)
	if err != nil {
		return finish(errors.Wrapf(err, "job %s: read farm table", job.ID))
	}

	tier := job.Tier
	if tier == 0 {
		tier = emissions.Tier1
	}
	run, err := e.runner.Run(ctx, table, tier, job.Boundary, job.BenchmarkRegion)
	if err != nil {
		return finish(errors.Wrapf(err, "job %s: run", job.ID))
	}
	result.RunID = run.RunID
	result.FarmsProcessed = run.Summary.NFarmsProcessed
	result.FarmsWithErrors = run.Summary.NFarmsWithErrors

	if job.OutputDir != "" {
		path, err := export.WriteRun(run, job.Format, job.OutputDir, job.IncludeDetails)
		if err != nil {
			return finish(errors.Wrapf(err, "job %s: write report", job.ID))
		}
		result.OutputPath = path
	}

	if e.store != nil {
		if err := e.store.SaveRun(ctx, run); err != nil {
			return finish(errors.Wrapf(err, "job %s: store run", job.ID))
		}
		result.Stored = true
	}

	e.logger.Info("Job executed",
		zap.String("job_id", job.ID),
		zap.String("run_id", run.RunID),
		zap.Int("farms", result.FarmsProcessed),
		zap.Int("farms_with_errors", result.FarmsWithErrors),
		zap.String("output", result.OutputPath))

	return finish(nil)
}
