// Package planning is the facade a caller uses to analyze plan snapshots.
//
// One Analyze call runs the whole pipeline over a snapshot: the task graph is
// built and checked, the critical path is calculated, then the forecast and
// the bottleneck analysis run side by side, and finally the optimizer
// proposes reassignments. AnalyzeAll does the same for many plans with a
// bounded worker pool. Every phase is logged with its duration.
package planning

import (
	"time"

	"github.com/Iron-Ham/cadence/internal/bottleneck"
	"github.com/Iron-Ham/cadence/internal/config"
	"github.com/Iron-Ham/cadence/internal/event"
	"github.com/Iron-Ham/cadence/internal/forecast"
	"github.com/Iron-Ham/cadence/internal/logging"
	"github.com/Iron-Ham/cadence/internal/optimizer"
)

// Phase names used in logs, events and errors.
const (
	PhaseValidate   = "validate"
	PhaseGraph      = "graph"
	PhaseCPM        = "cpm"
	PhaseForecast   = "forecast"
	PhaseBottleneck = "bottleneck"
	PhaseOptimize   = "optimize"
)

const defaultMaxParallel = 4

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithBus publishes analysis events to bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithForecaster replaces the forecaster.
func WithForecaster(f *forecast.Forecaster) Option {
	return func(s *Service) { s.forecaster = f }
}

// WithAnalyzer replaces the bottleneck analyzer.
func WithAnalyzer(a *bottleneck.Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithOptimizer replaces the optimizer.
func WithOptimizer(o *optimizer.Optimizer) Option {
	return func(s *Service) { s.optimizer = o }
}

// WithTarget sets the optimization target used by Analyze.
func WithTarget(t optimizer.Target) Option {
	return func(s *Service) { s.target = t }
}

// WithMaxParallel bounds how many plans AnalyzeAll runs at once.
func WithMaxParallel(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxParallel = n
		}
	}
}

// WithClock overrides the time source for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs analyses. It holds configuration only and is safe for
// concurrent use.
type Service struct {
	forecaster  *forecast.Forecaster
	analyzer    *bottleneck.Analyzer
	optimizer   *optimizer.Optimizer
	target      optimizer.Target
	maxParallel int
	logger      *logging.Logger
	bus         *event.Bus
	now         func() time.Time
}

// New creates a Service with default components.
func New(opts ...Option) *Service {
	s := &Service{
		forecaster:  forecast.New(),
		analyzer:    bottleneck.New(),
		optimizer:   optimizer.New(),
		target:      optimizer.TargetDuration,
		maxParallel: defaultMaxParallel,
		logger:      logging.NopLogger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig builds the components from configuration. Later options
// override what the configuration sets.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Service, error) {
	unit, err := forecast.ParseUnit(cfg.Forecast.DefaultUnit)
	if err != nil {
		return nil, err
	}
	target, err := optimizer.ParseTarget(cfg.Optimizer.DefaultTarget)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithForecaster(forecast.New(
			forecast.WithDefaultConfidence(cfg.Forecast.DefaultConfidence),
			forecast.WithDefaultUnit(unit),
			forecast.WithUncertaintyPercent(cfg.Forecast.UncertaintyPercent),
			forecast.WithBestCaseMargin(cfg.Forecast.BestCaseMargin()),
		)),
		WithAnalyzer(bottleneck.New(
			bottleneck.WithFanThreshold(cfg.Bottleneck.FanThreshold),
			bottleneck.WithChainLength(cfg.Bottleneck.ChainLength),
			bottleneck.WithMaxPaths(cfg.Bottleneck.MaxPaths),
		)),
		WithOptimizer(optimizer.New(
			optimizer.WithTimeout(cfg.Optimizer.Timeout),
			optimizer.WithHardConstraints(cfg.Optimizer.HardConstraints),
		)),
		WithTarget(target),
		WithMaxParallel(cfg.Workers.MaxParallelPlans),
	}
	return New(append(base, opts...)...), nil
}
