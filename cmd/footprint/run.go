package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carbon-scribe/dairy-footprint/internal/reports/export"
	"carbon-scribe/dairy-footprint/internal/reports/views"
)

var runCmd = &cobra.Command{
	Use:   "run <farm-table>",
	Short: "Compute the footprint of every farm in an .xlsx or .csv table",
	Long: `Reads a farm table, runs every farm through the calculators, prints the
run summary and optionally writes a report and stores the run.

Farms that fail validation are reported per row and never stop the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var (
	runTier            int
	runBoundary        string
	runInclude         []string
	runRegion          string
	runBenchmarkRegion string
	runWorkers         int
	runOutput          string
	runFormat          string
	runDetails         bool
	runSave            bool
	runQuiet           bool
	runUncertainty     bool
)

func init() {
	f := runCmd.Flags()
	f.IntVarP(&runTier, "tier", "t", 1, "Methodology tier (1 or 2)")
	f.StringVarP(&runBoundary, "boundary", "b", "farm_gate", "Boundary scope: farm_gate, cradle_to_farm_gate or partial")
	f.StringSliceVar(&runInclude, "include", nil, "Sources to include (required for partial), e.g. enteric,manure")
	f.StringVar(&runRegion, "region", "", "Default factor region for farms without region or country")
	f.StringVar(&runBenchmarkRegion, "benchmark-region", "", "Compare intensities against this region's benchmark")
	f.IntVarP(&runWorkers, "workers", "w", 0, "Farms computed in parallel")
	f.StringVarP(&runOutput, "output", "o", "", "Report file or directory")
	f.StringVarP(&runFormat, "format", "f", export.FormatXLSX, "Report format: xlsx, csv or pdf")
	f.BoolVar(&runDetails, "details", false, "Add the per-source sheet to xlsx reports")
	f.BoolVar(&runSave, "save", false, "Store the run in the run history")
	f.BoolVarP(&runQuiet, "quiet", "q", false, "Do not print the run tables")
	f.BoolVar(&runUncertainty, "uncertainty", false, "Add Monte-Carlo ranges to purchased inputs")
}

func runBatch(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	calc := &cfg.Calculation
	if flags.Changed("tier") {
		calc.Tier = runTier
	}
	if flags.Changed("boundary") {
		calc.Boundary = runBoundary
	}
	if flags.Changed("include") {
		calc.Include = runInclude
	}
	if flags.Changed("region") {
		calc.Region = runRegion
	}
	if flags.Changed("benchmark-region") {
		calc.BenchmarkRegion = runBenchmarkRegion
	}
	if flags.Changed("workers") {
		calc.Workers = runWorkers
	}
	if flags.Changed("uncertainty") {
		calc.Uncertainty.Enabled = runUncertainty
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}

	table, err := export.ReadFarmTable(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	run, err := p.runner.Run(ctx, table, calc.TierValue(), p.boundary, calc.BenchmarkRegion)
	if err != nil {
		return err
	}

	if !runQuiet {
		views.PrintRun(os.Stdout, run)
	}

	if runOutput != "" {
		path, err := export.WriteRun(run, runFormat, runOutput, runDetails)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "report written to", path)
	}

	if runSave {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveRun(ctx, run); err != nil {
			return err
		}
		log.Info("Run stored", zap.String("run_id", run.RunID), zap.String("store", cfg.Store.Path))
	}

	return nil
}
