package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete cadence configuration
type Config struct {
	Forecast   ForecastConfig   `mapstructure:"forecast" yaml:"forecast"`
	Bottleneck BottleneckConfig `mapstructure:"bottleneck" yaml:"bottleneck"`
	Optimizer  OptimizerConfig  `mapstructure:"optimizer" yaml:"optimizer"`
	Workers    WorkersConfig    `mapstructure:"workers" yaml:"workers"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
}

// ForecastConfig controls timeline forecasting
type ForecastConfig struct {
	// DefaultConfidence is used when a request does not name one (0.90, 0.95 or 0.99)
	DefaultConfidence float64 `mapstructure:"default_confidence" yaml:"default_confidence"`
	// DefaultUnit is the sampling unit: hours, days or weeks
	DefaultUnit string `mapstructure:"default_unit" yaml:"default_unit"`
	// UncertaintyPercent is the uncertainty at completion, in progress points
	UncertaintyPercent float64 `mapstructure:"uncertainty_percent" yaml:"uncertainty_percent"`
	// BestCaseMarginHours is subtracted from the expected date when no
	// sample's lower bound reaches 100% (0 = one sampling unit)
	BestCaseMarginHours float64 `mapstructure:"best_case_margin_hours" yaml:"best_case_margin_hours"`
}

// BestCaseMargin returns the margin as a time.Duration
func (c *ForecastConfig) BestCaseMargin() time.Duration {
	return time.Duration(c.BestCaseMarginHours * float64(time.Hour))
}

// BottleneckConfig controls bottleneck thresholds
type BottleneckConfig struct {
	// FanThreshold flags tasks with more than this many predecessors or successors
	FanThreshold int `mapstructure:"fan_threshold" yaml:"fan_threshold"`
	// ChainLength flags paths with more than this many tasks
	ChainLength int `mapstructure:"chain_length" yaml:"chain_length"`
	// MaxPaths caps how many source-to-sink paths are enumerated
	MaxPaths int `mapstructure:"max_paths" yaml:"max_paths"`
}

// OptimizerConfig controls the resource optimizer
type OptimizerConfig struct {
	// Timeout bounds one optimization run (0 = no limit beyond the caller's)
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// DefaultTarget is used when none is given: duration, cost or utilization
	DefaultTarget string `mapstructure:"default_target" yaml:"default_target"`
	// HardConstraints fails the run when some task has no eligible resource
	HardConstraints bool `mapstructure:"hard_constraints" yaml:"hard_constraints"`
}

// WorkersConfig controls multi-plan analysis
type WorkersConfig struct {
	// MaxParallelPlans bounds how many plans are analyzed at once
	MaxParallelPlans int `mapstructure:"max_parallel_plans" yaml:"max_parallel_plans"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn or error
	Level string `mapstructure:"level" yaml:"level"`
	// Dir receives cadence.log; empty logs to stderr
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the size at which the log file rotates (0 disables rotation)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files kept
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated files
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	// Format is text or json
	Format string `mapstructure:"format" yaml:"format"`
	// Color enables ANSI styling of text reports
	Color bool `mapstructure:"color" yaml:"color"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Forecast: ForecastConfig{
			DefaultConfidence:  0.95,
			DefaultUnit:        "days",
			UncertaintyPercent: 20,
		},
		Bottleneck: BottleneckConfig{
			FanThreshold: 3,
			ChainLength:  4,
			MaxPaths:     10000,
		},
		Optimizer: OptimizerConfig{
			Timeout:         30 * time.Second,
			DefaultTarget:   "duration",
			HardConstraints: true,
		},
		Workers: WorkersConfig{
			MaxParallelPlans: 4,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("forecast.default_confidence", defaults.Forecast.DefaultConfidence)
	viper.SetDefault("forecast.default_unit", defaults.Forecast.DefaultUnit)
	viper.SetDefault("forecast.uncertainty_percent", defaults.Forecast.UncertaintyPercent)
	viper.SetDefault("forecast.best_case_margin_hours", defaults.Forecast.BestCaseMarginHours)

	viper.SetDefault("bottleneck.fan_threshold", defaults.Bottleneck.FanThreshold)
	viper.SetDefault("bottleneck.chain_length", defaults.Bottleneck.ChainLength)
	viper.SetDefault("bottleneck.max_paths", defaults.Bottleneck.MaxPaths)

	viper.SetDefault("optimizer.timeout", defaults.Optimizer.Timeout)
	viper.SetDefault("optimizer.default_target", defaults.Optimizer.DefaultTarget)
	viper.SetDefault("optimizer.hard_constraints", defaults.Optimizer.HardConstraints)

	viper.SetDefault("workers.max_parallel_plans", defaults.Workers.MaxParallelPlans)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	viper.SetDefault("output.format", defaults.Output.Format)
	viper.SetDefault("output.color", defaults.Output.Color)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cadence")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cadence"
	}
	return filepath.Join(home, ".config", "cadence")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
