package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"carbon-scribe/dairy-footprint/internal/batch"
	"carbon-scribe/dairy-footprint/internal/benchmarks"
	"carbon-scribe/dairy-footprint/internal/emissions"
	"carbon-scribe/dairy-footprint/internal/factors"
)

// EnvPrefix is prepended to every environment override, e.g.
// FOOTPRINT_CALCULATION_TIER or FOOTPRINT_SERVER_PORT.
const EnvPrefix = "FOOTPRINT"

// Config represents the application configuration
type Config struct {
	Calculation CalculationConfig `mapstructure:"calculation"`
	Factors     FactorsConfig     `mapstructure:"factors"`
	Benchmarks  BenchmarksConfig  `mapstructure:"benchmarks"`
	Server      ServerConfig      `mapstructure:"server"`
	Store       StoreConfig       `mapstructure:"store"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// CalculationConfig holds the defaults applied to every batch run
type CalculationConfig struct {
	Tier            int               `mapstructure:"tier"`
	Boundary        string            `mapstructure:"boundary"`
	Include         []string          `mapstructure:"include"`
	Region          string            `mapstructure:"region"`
	BenchmarkRegion string            `mapstructure:"benchmark_region"`
	GWPSet          string            `mapstructure:"gwp_set"`
	Workers         int               `mapstructure:"workers"`
	Uncertainty     UncertaintyConfig `mapstructure:"uncertainty"`
}

// UncertaintyConfig toggles Monte-Carlo sampling on purchased inputs
type UncertaintyConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Samples int     `mapstructure:"samples"`
	Seed    uint64  `mapstructure:"seed"`
	CV      float64 `mapstructure:"cv"`
}

// FactorsConfig points at an optional YAML file of factor overrides
type FactorsConfig struct {
	OverridesPath string `mapstructure:"overrides_path"`
}

// BenchmarksConfig selects the reference datasets. An empty path uses the
// built-in regional medians.
type BenchmarksConfig struct {
	Path     string        `mapstructure:"path"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StoreConfig locates the run history database. An empty path disables it.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ScheduleConfig describes the recurring batch run
type ScheduleConfig struct {
	Cron           string `mapstructure:"cron"`
	Input          string `mapstructure:"input"`
	OutputDir      string `mapstructure:"output_dir"`
	IncludeDetails bool   `mapstructure:"include_details"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// SetDefaults registers every key so environment overrides resolve on Unmarshal
func SetDefaults(v *viper.Viper) {
	v.SetDefault("calculation.tier", 1)
	v.SetDefault("calculation.boundary", string(emissions.ScopeFarmGate))
	v.SetDefault("calculation.include", []string{})
	v.SetDefault("calculation.region", factors.DefaultRegion)
	v.SetDefault("calculation.benchmark_region", "")
	v.SetDefault("calculation.gwp_set", emissions.GWPAR6.Name)
	v.SetDefault("calculation.workers", 4)
	v.SetDefault("benchmarks.path", "")
	v.SetDefault("benchmarks.cache_ttl", 10*time.Minute)
	v.SetDefault("calculation.uncertainty.enabled", false)
	v.SetDefault("calculation.uncertainty.samples", 1000)
	v.SetDefault("calculation.uncertainty.seed", 0)
	v.SetDefault("calculation.uncertainty.cv", 0.2)

	v.SetDefault("factors.overrides_path", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("store.path", "")

	v.SetDefault("schedule.cron", "0 2 * * *")
	v.SetDefault("schedule.input", "")
	v.SetDefault("schedule.output_dir", "reports")
	v.SetDefault("schedule.include_details", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// Load reads an optional .env file, an optional config file (yaml, json or
// toml by extension) and FOOTPRINT_* environment variables, in increasing
// order of precedence.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "failed loading env file %s", envFile)
		}
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	cfg.Calculation.Include = splitList(cfg.Calculation.Include)

	return &cfg, nil
}

// splitList accepts both YAML lists and a single comma separated env value
func splitList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate checks the settings a run cannot start without
func (c *Config) Validate() error {
	calc := c.Calculation
	if calc.Tier != int(emissions.Tier1) && calc.Tier != int(emissions.Tier2) {
		return errors.Newf("calculation.tier must be 1 or 2, got %d", calc.Tier)
	}
	if _, err := calc.BoundaryValue(); err != nil {
		return errors.Wrap(err, "calculation.boundary")
	}
	if _, err := emissions.GWPByName(calc.GWPSet); err != nil {
		return errors.Wrap(err, "calculation.gwp_set")
	}
	if calc.Workers < 1 {
		return errors.Newf("calculation.workers must be at least 1, got %d", calc.Workers)
	}
	if u := calc.Uncertainty; u.Enabled {
		d := emissions.DefaultDefaults()
		if u.Samples < d.MinSamples || u.Samples > d.MaxSamples {
			return errors.Newf("calculation.uncertainty.samples must be between %d and %d", d.MinSamples, d.MaxSamples)
		}
		if u.CV < 0 || u.CV > 1 {
			return errors.Newf("calculation.uncertainty.cv must be between 0 and 1, got %g", u.CV)
		}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.Newf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// BoundaryValue builds the configured system boundary
// An empty include list means unset, so the scope default applies.
func (c CalculationConfig) BoundaryValue() (*emissions.Boundary, error) {
	if len(c.Include) == 0 {
		return emissions.ParseBoundary(c.Boundary, nil)
	}
	return emissions.ParseBoundary(c.Boundary, c.Include)
}

// TierValue returns the configured tier
func (c CalculationConfig) TierValue() emissions.Tier {
	return emissions.Tier(c.Tier)
}

// Defaults returns the methodology constants with the configured GWP set
func (c CalculationConfig) Defaults() (emissions.Defaults, error) {
	gwp, err := emissions.GWPByName(c.GWPSet)
	if err != nil {
		return emissions.Defaults{}, err
	}
	return emissions.DefaultDefaults().WithGWP(gwp), nil
}

// BatchOptions maps the calculation section onto runner options
func (c CalculationConfig) BatchOptions() batch.Options {
	opts := batch.Options{Workers: c.Workers, DefaultRegion: c.Region}
	if c.Uncertainty.Enabled {
		cv := c.Uncertainty.CV
		opts.Uncertainty = &emissions.UncertaintyOptions{
			Samples: c.Uncertainty.Samples,
			CV:      &cv,
			Seed:    c.Uncertainty.Seed,
		}
	}
	return opts
}

// Registry returns the built-in factor registry with any overrides applied
func (c FactorsConfig) Registry() (*factors.Registry, error) {
	reg := factors.NewRegistry()
	if c.OverridesPath == "" {
		return reg, nil
	}
	if _, err := reg.LoadOverrides(c.OverridesPath); err != nil {
		return nil, err
	}
	return reg, nil
}

// Repository returns the benchmark source, cached when a file is configured
func (c BenchmarksConfig) Repository() benchmarks.BenchmarkRepository {
	if c.Path == "" {
		return benchmarks.NewStaticRepository()
	}
	return benchmarks.NewCachedRepository(benchmarks.NewFileRepository(c.Path), c.CacheTTL)
}

// Engine wires the registry and defaults into a calculation engine
func (c *Config) Engine() (*emissions.Engine, error) {
	reg, err := c.Factors.Registry()
	if err != nil {
		return nil, err
	}
	defaults, err := c.Calculation.Defaults()
	if err != nil {
		return nil, err
	}
	return emissions.NewEngine(reg, defaults), nil
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
