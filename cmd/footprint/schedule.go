package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carbon-scribe/dairy-footprint/internal/scheduler"
	"carbon-scribe/dairy-footprint/pkg/logger"
)

var scheduleNow bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Re-run the configured farm table on a cron schedule",
	Long: `Runs schedule.input on the schedule.cron expression, writes each report
into schedule.output_dir and stores the run when store.path is set.
Stops on SIGINT or SIGTERM after the current run completes.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "Also run once immediately")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if cfg.Schedule.Input == "" {
		return errors.New("schedule.input is not set")
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}

	var saver scheduler.RunSaver
	if cfg.Store.Path != "" {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		saver = store
	}

	executor := scheduler.NewExecutor(p.runner, saver, nil, logger.Named(log, "executor"))
	manager := scheduler.NewManager(executor, logger.Named(log, "scheduler"), 0)

	job := &scheduler.Job{
		ID:              "default",
		Name:            "configured farm table",
		CronExpression:  cfg.Schedule.Cron,
		Input:           cfg.Schedule.Input,
		OutputDir:       cfg.Schedule.OutputDir,
		IncludeDetails:  cfg.Schedule.IncludeDetails,
		Tier:            cfg.Calculation.TierValue(),
		Boundary:        p.boundary,
		BenchmarkRegion: cfg.Calculation.BenchmarkRegion,
	}
	if err := manager.AddJob(job); err != nil {
		return err
	}

	if scheduleNow {
		if _, err := manager.RunNow(context.Background(), job); err != nil {
			return err
		}
	}

	if err := manager.Start(); err != nil {
		return err
	}
	defer manager.Stop()

	if status, err := manager.GetJobStatus(job.ID); err == nil {
		log.Info("Waiting for next run", zap.Time("next_run", status.NextRun))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	return nil
}
