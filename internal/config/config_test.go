package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Forecast.DefaultConfidence != 0.95 {
		t.Errorf("Forecast.DefaultConfidence = %v, want 0.95", cfg.Forecast.DefaultConfidence)
	}
	if cfg.Forecast.DefaultUnit != "days" {
		t.Errorf("Forecast.DefaultUnit = %q, want days", cfg.Forecast.DefaultUnit)
	}
	if cfg.Forecast.UncertaintyPercent != 20 {
		t.Errorf("Forecast.UncertaintyPercent = %v, want 20", cfg.Forecast.UncertaintyPercent)
	}
	if cfg.Bottleneck.FanThreshold != 3 || cfg.Bottleneck.ChainLength != 4 {
		t.Errorf("Bottleneck = %+v", cfg.Bottleneck)
	}
	if cfg.Optimizer.Timeout != 30*time.Second || !cfg.Optimizer.HardConstraints {
		t.Errorf("Optimizer = %+v", cfg.Optimizer)
	}
	if cfg.Workers.MaxParallelPlans != 4 {
		t.Errorf("Workers.MaxParallelPlans = %d, want 4", cfg.Workers.MaxParallelPlans)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %q, want text", cfg.Output.Format)
	}

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config should validate, got %v", ValidationErrors(errs))
	}
}

func TestForecastConfig_BestCaseMargin(t *testing.T) {
	c := ForecastConfig{BestCaseMarginHours: 1.5}
	if got := c.BestCaseMargin(); got != 90*time.Minute {
		t.Errorf("BestCaseMargin() = %v, want 1h30m", got)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got := ConfigDir(); got != "/custom/config/cadence" {
			t.Errorf("ConfigDir() = %q, want %q", got, "/custom/config/cadence")
		}
		if got := ConfigFile(); got != "/custom/config/cadence/config.yaml" {
			t.Errorf("ConfigFile() = %q", got)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, _ := os.UserHomeDir()
		want := filepath.Join(home, ".config", "cadence")
		if got := ConfigDir(); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("defaults", func(t *testing.T) {
		viper.Reset()
		SetDefaults()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Optimizer.DefaultTarget != "duration" {
			t.Errorf("Optimizer.DefaultTarget = %q", cfg.Optimizer.DefaultTarget)
		}
	})

	t.Run("file values and duration strings", func(t *testing.T) {
		viper.Reset()
		SetDefaults()
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "optimizer:\n  timeout: 5s\n  default_target: cost\nworkers:\n  max_parallel_plans: 8\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			t.Fatalf("ReadInConfig: %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Optimizer.Timeout != 5*time.Second {
			t.Errorf("Optimizer.Timeout = %v, want 5s", cfg.Optimizer.Timeout)
		}
		if cfg.Optimizer.DefaultTarget != "cost" {
			t.Errorf("Optimizer.DefaultTarget = %q, want cost", cfg.Optimizer.DefaultTarget)
		}
		if cfg.Workers.MaxParallelPlans != 8 {
			t.Errorf("Workers.MaxParallelPlans = %d, want 8", cfg.Workers.MaxParallelPlans)
		}
		// untouched sections keep defaults
		if cfg.Bottleneck.MaxPaths != 10000 {
			t.Errorf("Bottleneck.MaxPaths = %d, want 10000", cfg.Bottleneck.MaxPaths)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		viper.Reset()
		SetDefaults()
		viper.Set("forecast.default_unit", "fortnights")
		viper.Set("workers.max_parallel_plans", 0)

		_, err := Load()
		verrs, ok := err.(ValidationErrors)
		if !ok {
			t.Fatalf("Load() error = %T %v, want ValidationErrors", err, err)
		}
		if len(verrs) != 2 {
			t.Errorf("got %d validation errors, want 2: %v", len(verrs), verrs)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"confidence zero", func(c *Config) { c.Forecast.DefaultConfidence = 0 }, "forecast.default_confidence"},
		{"confidence one", func(c *Config) { c.Forecast.DefaultConfidence = 1 }, "forecast.default_confidence"},
		{"unit", func(c *Config) { c.Forecast.DefaultUnit = "months" }, "forecast.default_unit"},
		{"uncertainty", func(c *Config) { c.Forecast.UncertaintyPercent = 101 }, "forecast.uncertainty_percent"},
		{"margin", func(c *Config) { c.Forecast.BestCaseMarginHours = -1 }, "forecast.best_case_margin_hours"},
		{"fan", func(c *Config) { c.Bottleneck.FanThreshold = 0 }, "bottleneck.fan_threshold"},
		{"chain", func(c *Config) { c.Bottleneck.ChainLength = 1 }, "bottleneck.chain_length"},
		{"paths", func(c *Config) { c.Bottleneck.MaxPaths = 0 }, "bottleneck.max_paths"},
		{"timeout", func(c *Config) { c.Optimizer.Timeout = -time.Second }, "optimizer.timeout"},
		{"target", func(c *Config) { c.Optimizer.DefaultTarget = "speed" }, "optimizer.default_target"},
		{"workers low", func(c *Config) { c.Workers.MaxParallelPlans = 0 }, "workers.max_parallel_plans"},
		{"workers high", func(c *Config) { c.Workers.MaxParallelPlans = 65 }, "workers.max_parallel_plans"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "logging.max_size_mb"},
		{"log backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
		{"format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), ValidationErrors(errs))
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	if got := (ValidationErrors{}).Error(); got != "" {
		t.Errorf("empty Error() = %q", got)
	}
	one := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	if got := one.Error(); got != "a: bad (got: 1)" {
		t.Errorf("single Error() = %q", got)
	}
	two := append(one, ValidationError{Field: "b", Value: 2, Message: "worse"})
	want := "2 validation errors:\n  1. a: bad (got: 1)\n  2. b: worse (got: 2)\n"
	if got := two.Error(); got != want {
		t.Errorf("multi Error() = %q, want %q", got, want)
	}
}
