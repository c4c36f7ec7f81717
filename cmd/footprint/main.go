package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carbon-scribe/dairy-footprint/internal/batch"
	"carbon-scribe/dairy-footprint/internal/benchmarks"
	"carbon-scribe/dairy-footprint/internal/config"
	"carbon-scribe/dairy-footprint/internal/emissions"
	"carbon-scribe/dairy-footprint/internal/factors"
	"carbon-scribe/dairy-footprint/internal/store/sqlite"
	"carbon-scribe/dairy-footprint/pkg/logger"
)

var (
	configPath string
	envFile    string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "footprint",
	Short: "Dairy farm greenhouse-gas footprint calculator",
	Long: `footprint estimates annual GHG emissions for dairy farms from activity data
and reports farm totals and intensities per kg FPCM and per hectare.

Examples:
  footprint template farms.xlsx              # Write an input template
  footprint run farms.xlsx -o report.xlsx    # Compute every farm in a table
  footprint run farms.csv --tier 2 --save    # Tier 2 run stored in the run history
  footprint serve                            # Start the HTTP API
  footprint schedule --now                   # Run the configured table on its cron schedule
  footprint history                          # List stored runs
  footprint factors fuel.diesel IE           # Look up an emission factor`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, envFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}

		l, err := logger.New(loaded.Logging.Level, loaded.Logging.Development)
		if err != nil {
			return err
		}
		cfg, log = loaded, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Environment file loaded before the config (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd, templateCmd, serveCmd, scheduleCmd, historyCmd, factorsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// pipeline is everything a calculation needs, built from the loaded config
type pipeline struct {
	registry *factors.Registry
	engine   *emissions.Engine
	runner   *batch.Runner
	boundary *emissions.Boundary
}

func newPipeline() (*pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	registry, err := cfg.Factors.Registry()
	if err != nil {
		return nil, err
	}
	defaults, err := cfg.Calculation.Defaults()
	if err != nil {
		return nil, err
	}
	boundary, err := cfg.Calculation.BoundaryValue()
	if err != nil {
		return nil, err
	}

	engine := emissions.NewEngine(registry, defaults)
	comparator := benchmarks.NewComparator(cfg.Benchmarks.Repository(), logger.Named(log, "benchmarks"))
	runner := batch.NewRunner(engine, comparator, logger.Named(log, "batch"), cfg.Calculation.BatchOptions())

	return &pipeline{registry: registry, engine: engine, runner: runner, boundary: boundary}, nil
}

func openStore() (*sqlite.Store, error) {
	if cfg.Store.Path == "" {
		return nil, errors.New("run history is disabled: set store.path or FOOTPRINT_STORE_PATH")
	}
	return sqlite.New(cfg.Store.Path)
}
