// Package optimizer proposes resource reassignments toward a target of
// shorter duration, lower cost or balanced utilization.
//
// The optimizer is a greedy heuristic: unfinished tasks are visited once, by
// priority then creation order, and each is given the resource the target's
// strategy prefers among those holding every required skill at the required
// level. The proposal is hypothetical; projected metrics are recomputed from
// the adjusted durations and compared with the current allocation.
package optimizer

import (
	"context"
	"sort"
	"time"

	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/errors"
)

const defaultTimeout = 30 * time.Second

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithTimeout sets the deadline for one optimization run. Zero disables it;
// the caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(o *Optimizer) { o.timeout = d }
}

// WithHardConstraints makes a task without any eligible resource fail the run
// as infeasible instead of being skipped.
func WithHardConstraints(hard bool) Option {
	return func(o *Optimizer) { o.hard = hard }
}

// Optimizer runs greedy reassignment. It holds only configuration and is safe
// for concurrent use.
type Optimizer struct {
	timeout time.Duration
	hard    bool
}

// New creates an Optimizer with the given options. Hard constraints are on by
// default.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{timeout: defaultTimeout, hard: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize proposes assignments for every unfinished task.
//
// Under hard constraints, a task with no eligible resource yields a result
// with status infeasible together with an InfeasibleAllocationError for the
// first such task. Otherwise such tasks are listed in Unassigned and the
// status is suboptimal. Exceeding the deadline returns an
// OptimizationTimeoutError and no result.
func (o *Optimizer) Optimize(ctx context.Context, in Input, target Target) (*Result, error) {
	if in.Graph == nil {
		return nil, errors.NewValidationError("optimization requires a task graph").WithField("graph")
	}
	if _, err := ParseTarget(string(target)); err != nil {
		return nil, errors.NewValidationError(err.Error()).WithField("target").WithValue(string(target))
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	result := &Result{PlanID: in.PlanID, Target: target, Status: StatusOptimal}

	before, err := measure(in.Graph, in.Resources, in.Allocations)
	if err != nil {
		return nil, err
	}
	result.Before = before

	resources := make([]domain.Resource, len(in.Resources))
	copy(resources, in.Resources)
	strat := newStrategy(target, resources)

	durations := make(map[string]float64)
	reassigned := make(map[string]bool)
	var firstInfeasible *errors.InfeasibleAllocationError

	for _, t := range workOrder(in.Graph.Tasks()) {
		if err := ctx.Err(); err != nil {
			return nil, o.timeoutError(target, err)
		}

		eligible := eligibleFor(&t, resources)
		if len(eligible) == 0 {
			result.Unassigned = append(result.Unassigned, t.ID)
			if o.hard && firstInfeasible == nil {
				firstInfeasible = errors.NewInfeasibleAllocationError(t.ID, t.SkillNames())
			}
			continue
		}

		c := strat.choose(&t, eligible)
		reassigned[t.ID] = true
		result.Assignments = append(result.Assignments, Assignment{
			TaskID:     t.ID,
			ResourceID: c.resource.ID,
			Hours:      c.effort,
			Cost:       c.effort * c.resource.CostPerHour,
		})
		if c.duration != t.EstimatedDuration || c.effort != t.EstimatedEffort {
			durations[t.ID] = c.duration
			result.Adjustments = append(result.Adjustments, TaskAdjustment{
				TaskID:           t.ID,
				OriginalDuration: t.EstimatedDuration,
				AdjustedDuration: c.duration,
				OriginalEffort:   t.EstimatedEffort,
				AdjustedEffort:   c.effort,
				Reason:           c.reason,
			})
		}
	}

	// Tasks not reassigned keep their current allocations.
	projected := make([]domain.Allocation, 0, len(result.Assignments)+len(in.Allocations))
	for _, a := range in.Allocations {
		if !reassigned[a.TaskID] {
			projected = append(projected, a)
		}
	}
	for _, a := range result.Assignments {
		projected = append(projected, domain.Allocation{TaskID: a.TaskID, ResourceID: a.ResourceID, AssignedHours: a.Hours})
	}

	after, err := measure(in.Graph.WithDurations(durations), in.Resources, projected)
	if err != nil {
		return nil, err
	}
	result.After = after
	result.Improvements = compare(before, after)

	if len(result.Unassigned) > 0 {
		if firstInfeasible != nil {
			result.Status = StatusInfeasible
			return result, firstInfeasible
		}
		result.Status = StatusSuboptimal
	}
	return result, nil
}

func (o *Optimizer) timeoutError(target Target, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.NewOptimizationTimeoutError(string(target), o.timeout).WithCause(err)
	}
	return errors.Join(errors.ErrCanceled, err)
}

// workOrder returns unfinished tasks, most urgent first, then by creation.
func workOrder(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Status.IsTerminal() {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() > out[j].Priority.Rank()
	})
	return out
}

// eligibleFor returns the resources able to perform t, in input order.
func eligibleFor(t *domain.Task, resources []domain.Resource) []*domain.Resource {
	var out []*domain.Resource
	for i := range resources {
		if resources[i].CanPerform(t) {
			out = append(out, &resources[i])
		}
	}
	return out
}
