package planning

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/cadence/internal/bottleneck"
	"github.com/Iron-Ham/cadence/internal/cpm"
	"github.com/Iron-Ham/cadence/internal/deprule"
	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/errors"
	"github.com/Iron-Ham/cadence/internal/event"
	"github.com/Iron-Ham/cadence/internal/forecast"
	"github.com/Iron-Ham/cadence/internal/graph"
	"github.com/Iron-Ham/cadence/internal/logging"
	"github.com/Iron-Ham/cadence/internal/optimizer"
)

// Schedule builds the task graph and runs the critical path calculation.
func (s *Service) Schedule(ctx context.Context, snap *domain.Snapshot) (*graph.TaskGraph, *cpm.Result, error) {
	return s.schedule(ctx, s.logger.WithPlan(snap.PlanID), snap)
}

// Forecast projects completion from the plan's critical path.
func (s *Service) Forecast(ctx context.Context, snap *domain.Snapshot, confidence float64, unit forecast.Unit) (*forecast.Forecast, error) {
	log := s.logger.WithPlan(snap.PlanID)
	g, res, err := s.schedule(ctx, log, snap)
	if err != nil {
		return nil, err
	}
	return s.forecast(ctx, log, snap, g, res, Request{Confidence: confidence, Unit: unit})
}

// Bottlenecks runs the bottleneck analysis.
func (s *Service) Bottlenecks(ctx context.Context, snap *domain.Snapshot) (*bottleneck.Analysis, error) {
	log := s.logger.WithPlan(snap.PlanID)
	g, err := s.build(log, snap)
	if err != nil {
		return nil, err
	}
	return s.bottlenecks(ctx, log, snap, g)
}

// Optimize proposes reassignments toward target; an empty target uses the
// service default. An infeasible run returns both the result and the error.
func (s *Service) Optimize(ctx context.Context, snap *domain.Snapshot, target optimizer.Target) (*optimizer.Result, error) {
	log := s.logger.WithPlan(snap.PlanID)
	g, err := s.build(log, snap)
	if err != nil {
		return nil, err
	}
	return s.optimize(ctx, log, snap, g, target)
}

// Validate checks records, graph rules and BLOCKS states without running
// any analysis.
func (s *Service) Validate(snap *domain.Snapshot) *Validation {
	v := &Validation{PlanID: snap.PlanID}
	if err := snap.Validate(); err != nil {
		v.Errors = append(v.Errors, err.Error())
	}
	if _, err := graph.Build(snap.Tasks, snap.Dependencies); err != nil {
		v.Errors = append(v.Errors, err.Error())
	}
	v.BlockedStates = deprule.ValidateBlockedStates(snap.Tasks, snap.Dependencies)
	return v
}

// Analyze runs the full pipeline over one snapshot.
func (s *Service) Analyze(ctx context.Context, snap *domain.Snapshot, req Request) (*Report, error) {
	return s.analyze(ctx, uuid.New().String(), snap, req)
}

// AnalyzeAll analyzes plans in parallel, at most maxParallel at a time. A
// failing plan does not stop the others; its error is recorded in its
// result. The returned error joins every plan's error.
func (s *Service) AnalyzeAll(ctx context.Context, snaps []*domain.Snapshot, req Request) (*Batch, error) {
	runID := uuid.New().String()
	batch := &Batch{RunID: runID, Results: make([]PlanResult, len(snaps))}

	s.logger.WithRun(runID).Info("analysis started", "plans", len(snaps), "max_parallel", s.maxParallel)
	started := time.Now()

	p := pool.New().WithMaxGoroutines(s.maxParallel).WithContext(ctx)
	for i, snap := range snaps {
		i, snap := i, snap
		p.Go(func(ctx context.Context) error {
			report, err := s.analyze(ctx, runID, snap, req)
			batch.Results[i] = PlanResult{PlanID: snap.PlanID, Report: report, Err: err}
			if err != nil {
				batch.Results[i].Error = err.Error()
			}
			return err
		})
	}
	err := p.Wait()

	s.logger.WithRun(runID).Timed("analysis finished", started,
		"plans", len(snaps), "failed", len(batch.Failed()))
	return batch, err
}

func (s *Service) analyze(ctx context.Context, runID string, snap *domain.Snapshot, req Request) (*Report, error) {
	log := s.logger.WithRun(runID).WithPlan(snap.PlanID)
	started := time.Now()

	report, phase, err := s.pipeline(ctx, log, snap, req)
	if err != nil {
		perr := &PhaseError{PlanID: snap.PlanID, Phase: phase, Err: err}
		log.WithPhase(phase).Error("analysis failed", "error", err.Error())
		s.bus.Publish(event.NewPlanFailedEvent(runID, snap.PlanID, phase, err))
		return nil, perr
	}

	report.RunID = runID
	log.Timed("analysis complete", started,
		"duration_hours", report.Schedule.ProjectDuration,
		"findings", len(report.Bottlenecks.Findings))
	s.bus.Publish(event.NewPlanAnalyzedEvent(runID, snap.PlanID, report.Schedule.ProjectDuration,
		len(report.Schedule.CriticalPath), len(report.Bottlenecks.Findings), time.Since(started)))
	return report, nil
}

// pipeline returns the report, or the failing phase and its error.
func (s *Service) pipeline(ctx context.Context, log *logging.Logger, snap *domain.Snapshot, req Request) (*Report, string, error) {
	if err := snap.Validate(); err != nil {
		return nil, PhaseValidate, err
	}
	if err := ctx.Err(); err != nil {
		return nil, PhaseGraph, errors.Join(errors.ErrCanceled, err)
	}
	g, err := s.build(log, snap)
	if err != nil {
		return nil, PhaseGraph, err
	}
	res, err := s.calculate(log, g)
	if err != nil {
		return nil, PhaseCPM, err
	}

	report := &Report{
		PlanID:      snap.PlanID,
		Name:        snap.Name,
		GeneratedAt: s.now(),
		Schedule:    res,
	}

	// Forecast and bottleneck analysis only read the graph.
	var fc *forecast.Forecast
	var an *bottleneck.Analysis
	var fcErr, anErr error
	var wg conc.WaitGroup
	wg.Go(func() { fc, fcErr = s.forecast(ctx, log, snap, g, res, req) })
	wg.Go(func() { an, anErr = s.bottlenecks(ctx, log, snap, g) })
	wg.Wait()

	switch {
	case errors.Is(fcErr, errors.ErrInsufficientData):
		report.Warnings = append(report.Warnings, fcErr.Error())
	case fcErr != nil:
		return nil, PhaseForecast, fcErr
	default:
		report.Forecast = fc
	}
	if anErr != nil {
		return nil, PhaseBottleneck, anErr
	}
	report.Bottlenecks = an

	opt, err := s.optimize(ctx, log, snap, g, req.Target)
	switch {
	case errors.Is(err, errors.ErrInfeasibleAllocation):
		report.Warnings = append(report.Warnings, err.Error())
		report.Optimization = opt
	case err != nil:
		return nil, PhaseOptimize, err
	default:
		report.Optimization = opt
	}
	return report, "", nil
}

func (s *Service) build(log *logging.Logger, snap *domain.Snapshot) (*graph.TaskGraph, error) {
	started := time.Now()
	g, err := graph.Build(snap.Tasks, snap.Dependencies)
	if err != nil {
		var cyc *errors.CyclicDependencyError
		if errors.As(err, &cyc) {
			err = cyc.WithPlanID(snap.PlanID)
		}
		return nil, err
	}
	log.WithPhase(PhaseGraph).Timed("task graph built", started,
		"tasks", g.Len(), "edges", len(g.AllEdges()))
	return g, nil
}

func (s *Service) schedule(ctx context.Context, log *logging.Logger, snap *domain.Snapshot) (*graph.TaskGraph, *cpm.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Join(errors.ErrCanceled, err)
	}
	g, err := s.build(log, snap)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.calculate(log, g)
	if err != nil {
		return nil, nil, err
	}
	return g, res, nil
}

func (s *Service) calculate(log *logging.Logger, g *graph.TaskGraph) (*cpm.Result, error) {
	started := time.Now()
	res, err := cpm.Calculate(g)
	if err != nil {
		return nil, err
	}
	log.WithPhase(PhaseCPM).Timed("critical path calculated", started,
		"project_duration", res.ProjectDuration,
		"critical_tasks", len(res.CriticalPath),
		"waves", len(res.Waves))
	return res, nil
}

func (s *Service) forecast(ctx context.Context, log *logging.Logger, snap *domain.Snapshot, g *graph.TaskGraph, res *cpm.Result, req Request) (*forecast.Forecast, error) {
	started := time.Now()
	path := make([]domain.Task, 0, len(res.CriticalPath))
	for _, id := range res.CriticalPath {
		if t, ok := g.Task(id); ok {
			path = append(path, t)
		}
	}
	fc, err := s.forecaster.Forecast(ctx, forecast.Request{
		PlanID:       snap.PlanID,
		CriticalPath: path,
		Confidence:   req.Confidence,
		Unit:         req.Unit,
		Start:        snap.Start,
	})
	if err != nil {
		log.WithPhase(PhaseForecast).Warn("forecast unavailable", "error", err.Error())
		return nil, err
	}
	log.WithPhase(PhaseForecast).Timed("forecast computed", started,
		"points", len(fc.Timeline),
		"expected", fc.ExpectedCompletion.Format(time.RFC3339))
	return fc, nil
}

func (s *Service) bottlenecks(ctx context.Context, log *logging.Logger, snap *domain.Snapshot, g *graph.TaskGraph) (*bottleneck.Analysis, error) {
	started := time.Now()
	an, err := s.analyzer.Analyze(ctx, bottleneck.Input{
		PlanID:      snap.PlanID,
		Graph:       g,
		Resources:   snap.Resources,
		Allocations: snap.Allocations,
	})
	if err != nil {
		return nil, err
	}
	log.WithPhase(PhaseBottleneck).Timed("bottlenecks analyzed", started,
		"findings", len(an.Findings),
		"risk_score", an.Impact.RiskScore,
		"paths_truncated", an.PathsTruncated)
	return an, nil
}

func (s *Service) optimize(ctx context.Context, log *logging.Logger, snap *domain.Snapshot, g *graph.TaskGraph, target optimizer.Target) (*optimizer.Result, error) {
	if target == "" {
		target = s.target
	}
	started := time.Now()
	res, err := s.optimizer.Optimize(ctx, optimizer.Input{
		PlanID:      snap.PlanID,
		Graph:       g,
		Resources:   snap.Resources,
		Allocations: snap.Allocations,
	}, target)
	l := log.WithPhase(PhaseOptimize)
	if err != nil {
		l.Warn("optimization incomplete", "target", string(target), "error", err.Error())
		return res, err
	}
	l.Timed("optimization proposed", started,
		"target", string(target),
		"status", string(res.Status),
		"assignments", len(res.Assignments))
	return res, nil
}
