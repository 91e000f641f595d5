package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "forecast.default_unit")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidOutputFormats returns the list of valid report formats
func ValidOutputFormats() []string {
	return []string{"text", "json"}
}

// ValidUnits returns the list of valid forecast units
func ValidUnits() []string {
	return []string{"hours", "days", "weeks"}
}

// ValidTargets returns the list of valid optimization targets
func ValidTargets() []string {
	return []string{"duration", "cost", "utilization"}
}

// ValidConfidences returns the confidence levels with a tabulated z-score.
// Other values fall back to the 0.95 z-score.
func ValidConfidences() []float64 {
	return []float64{0.90, 0.95, 0.99}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	errors = append(errors, c.validateForecast()...)
	errors = append(errors, c.validateBottleneck()...)
	errors = append(errors, c.validateOptimizer()...)
	errors = append(errors, c.validateWorkers()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)
	return errors
}

func (c *Config) validateForecast() []ValidationError {
	var errors []ValidationError

	if c.Forecast.DefaultConfidence <= 0 || c.Forecast.DefaultConfidence >= 1 {
		errors = append(errors, ValidationError{
			Field:   "forecast.default_confidence",
			Value:   c.Forecast.DefaultConfidence,
			Message: "must be between 0 and 1 (exclusive)",
		})
	}
	if !slices.Contains(ValidUnits(), strings.ToLower(c.Forecast.DefaultUnit)) {
		errors = append(errors, ValidationError{
			Field:   "forecast.default_unit",
			Value:   c.Forecast.DefaultUnit,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidUnits(), ", ")),
		})
	}
	if c.Forecast.UncertaintyPercent < 0 || c.Forecast.UncertaintyPercent > 100 {
		errors = append(errors, ValidationError{
			Field:   "forecast.uncertainty_percent",
			Value:   c.Forecast.UncertaintyPercent,
			Message: "must be between 0 and 100",
		})
	}
	if c.Forecast.BestCaseMarginHours < 0 {
		errors = append(errors, ValidationError{
			Field:   "forecast.best_case_margin_hours",
			Value:   c.Forecast.BestCaseMarginHours,
			Message: "must be non-negative",
		})
	}
	return errors
}

func (c *Config) validateBottleneck() []ValidationError {
	var errors []ValidationError

	if c.Bottleneck.FanThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "bottleneck.fan_threshold",
			Value:   c.Bottleneck.FanThreshold,
			Message: "must be at least 1",
		})
	}
	if c.Bottleneck.ChainLength < 2 {
		errors = append(errors, ValidationError{
			Field:   "bottleneck.chain_length",
			Value:   c.Bottleneck.ChainLength,
			Message: "must be at least 2",
		})
	}
	if c.Bottleneck.MaxPaths < 1 {
		errors = append(errors, ValidationError{
			Field:   "bottleneck.max_paths",
			Value:   c.Bottleneck.MaxPaths,
			Message: "must be at least 1",
		})
	}
	return errors
}

func (c *Config) validateOptimizer() []ValidationError {
	var errors []ValidationError

	if c.Optimizer.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "optimizer.timeout",
			Value:   c.Optimizer.Timeout,
			Message: "must be non-negative (0 disables the limit)",
		})
	}
	if !slices.Contains(ValidTargets(), strings.ToLower(c.Optimizer.DefaultTarget)) {
		errors = append(errors, ValidationError{
			Field:   "optimizer.default_target",
			Value:   c.Optimizer.DefaultTarget,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidTargets(), ", ")),
		})
	}
	return errors
}

func (c *Config) validateWorkers() []ValidationError {
	var errors []ValidationError

	if c.Workers.MaxParallelPlans < 1 {
		errors = append(errors, ValidationError{
			Field:   "workers.max_parallel_plans",
			Value:   c.Workers.MaxParallelPlans,
			Message: "must be at least 1",
		})
	} else if c.Workers.MaxParallelPlans > 64 {
		errors = append(errors, ValidationError{
			Field:   "workers.max_parallel_plans",
			Value:   c.Workers.MaxParallelPlans,
			Message: "must be at most 64",
		})
	}
	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}
	return errors
}

func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidOutputFormats(), strings.ToLower(c.Output.Format)) {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Value:   c.Output.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
		})
	}
	return errors
}
