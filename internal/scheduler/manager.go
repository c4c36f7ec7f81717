package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"carbon-scribe/dairy-footprint/internal/emissions"
)

// Manager runs batch jobs on cron schedules
type Manager struct {
	cron     *cron.Cron
	jobs     map[string]cron.EntryID
	executor *Executor
	timeout  time.Duration
	logger   *zap.Logger
	mu       sync.RWMutex
	running  bool

	// last holds the most recent execution per job
	last map[string]*ExecutionResult
}

// Job is a recurring batch run over one farm table
type Job struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CronExpression string `json:"cron_expression"`
	Timezone       string `json:"timezone,omitempty"`

	Input          string `json:"input"`
	OutputDir      string `json:"output_dir,omitempty"`
	Format         string `json:"format,omitempty"`
	IncludeDetails bool   `json:"include_details"`

	Tier            emissions.Tier      `json:"tier"`
	Boundary        *emissions.Boundary `json:"-"`
	BenchmarkRegion string              `json:"benchmark_region,omitempty"`
}

// JobStatus represents the status of a scheduled job
type JobStatus struct {
	JobID   string           `json:"job_id"`
	NextRun time.Time        `json:"next_run"`
	PrevRun time.Time        `json:"prev_run"`
	Last    *ExecutionResult `json:"last,omitempty"`
}

// NewManager creates a schedule manager. Each execution is bounded by timeout
// (30 minutes when zero).
func NewManager(executor *Executor, logger *zap.Logger, timeout time.Duration) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Manager{
		cron:     cron.New(),
		jobs:     make(map[string]cron.EntryID),
		executor: executor,
		timeout:  timeout,
		logger:   logger,
		last:     make(map[string]*ExecutionResult),
	}
}

// Start starts the cron scheduler
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("schedule manager already running")
	}
	m.running = true

	m.logger.Info("Starting schedule manager", zap.Int("jobs", len(m.jobs)))
	m.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	m.logger.Info("Stopping schedule manager")
	<-m.cron.Stop().Done()
}

// AddJob registers a job, replacing any job with the same id
func (m *Manager) AddJob(job *Job) error {
	if job == nil || job.ID == "" {
		return errors.New("job id is required")
	}
	if job.Input == "" {
		return errors.Newf("job %s: input table is required", job.ID)
	}

	spec := job.CronExpression
	if job.Timezone != "" {
		if _, err := time.LoadLocation(job.Timezone); err != nil {
			return errors.Wrapf(err, "job %s: invalid timezone", job.ID)
		}
		spec = "CRON_TZ=" + job.Timezone + " " + spec
	}
	if err := ValidateCronExpression(job.CronExpression); err != nil {
		return errors.Wrapf(err, "job %s: invalid cron expression", job.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entryID, ok := m.jobs[job.ID]; ok {
		m.cron.Remove(entryID)
	}

	entryID, err := m.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		_, _ = m.RunNow(ctx, job)
	})
	if err != nil {
		return errors.Wrapf(err, "job %s: failed to add cron job", job.ID)
	}
	m.jobs[job.ID] = entryID

	m.logger.Info("Added schedule",
		zap.String("job_id", job.ID),
		zap.String("cron", job.CronExpression),
		zap.String("description", DescribeCronExpression(job.CronExpression)))

	return nil
}

// RemoveJob removes a job from the manager
func (m *Manager) RemoveJob(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entryID, ok := m.jobs[jobID]; ok {
		m.cron.Remove(entryID)
		delete(m.jobs, jobID)
		m.logger.Info("Removed schedule", zap.String("job_id", jobID))
	}
}

// RunNow executes a job immediately, outside its schedule
func (m *Manager) RunNow(ctx context.Context, job *Job) (*ExecutionResult, error) {
	m.logger.Info("Executing scheduled run", zap.String("job_id", job.ID), zap.String("input", job.Input))

	result, err := m.executor.Execute(ctx, job)
	if err != nil {
		m.logger.Error("Failed to execute scheduled run", zap.String("job_id", job.ID), zap.Error(err))
	}

	m.mu.Lock()
	m.last[job.ID] = result
	m.mu.Unlock()

	return result, err
}

// GetActiveJobs returns the number of registered jobs
func (m *Manager) GetActiveJobs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

// GetJobStatus returns the next and previous run times of a job
func (m *Manager) GetJobStatus(jobID string) (*JobStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entryID, ok := m.jobs[jobID]
	if !ok {
		return nil, errors.Newf("job %s not found", jobID)
	}

	entry := m.cron.Entry(entryID)
	status := &JobStatus{
		JobID:   jobID,
		NextRun: entry.Next,
		PrevRun: entry.Prev,
		Last:    m.last[jobID],
	}
	if status.NextRun.IsZero() && entry.Schedule != nil {
		status.NextRun = entry.Schedule.Next(time.Now())
	}
	return status, nil
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCronExpression validates a five-field cron expression or descriptor
func ValidateCronExpression(expr string) error {
	_, err := cronParser.Parse(expr)
	return err
}

// DescribeCronExpression returns a human-readable description of a cron expression
func DescribeCronExpression(expr string) string {
	switch expr {
	case "0 * * * *", "@hourly":
		return "Every hour"
	case "0 0 * * *", "@daily", "@midnight":
		return "Every day at midnight"
	case "0 2 * * *":
		return "Every day at 02:00"
	case "0 0 * * 0", "@weekly":
		return "Every Sunday at midnight"
	case "0 0 1 * *", "@monthly":
		return "First day of every month at midnight"
	default:
		return expr
	}
}
