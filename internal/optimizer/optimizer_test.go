package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/errors"
	"github.com/Iron-Ham/cadence/internal/graph"
)

var monday = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func task(id string, duration, effort float64, p domain.Priority, skills map[string]float64) domain.Task {
	return domain.Task{ID: id, EstimatedDuration: duration, EstimatedEffort: effort, Priority: p, RequiredSkills: skills}
}

func input(t *testing.T, tasks []domain.Task, deps []domain.Dependency, resources []domain.Resource, allocs []domain.Allocation) Input {
	t.Helper()
	g, err := graph.Build(tasks, deps)
	require.NoError(t, err)
	return Input{PlanID: "plan", Graph: g, Resources: resources, Allocations: allocs}
}

func assignedTo(r *Result) map[string]string {
	out := make(map[string]string, len(r.Assignments))
	for _, a := range r.Assignments {
		out[a.TaskID] = a.ResourceID
	}
	return out
}

var pool = []domain.Resource{
	{ID: "junior", CapacityHours: 40, CostPerHour: 40, PerformanceRating: 0.6, Skills: map[string]float64{"go": 0.6}},
	{ID: "senior", CapacityHours: 40, CostPerHour: 120, PerformanceRating: 0.95, Skills: map[string]float64{"go": 0.9, "k8s": 0.8}},
	{ID: "mid", CapacityHours: 40, CostPerHour: 80, PerformanceRating: 0.8, Skills: map[string]float64{"go": 0.7}},
}

func TestOptimize_Duration(t *testing.T) {
	in := input(t,
		[]domain.Task{
			task("a", 10, 10, domain.PriorityMedium, map[string]float64{"go": 0.5}),
			task("b", 5, 5, domain.PriorityCritical, nil),
		},
		[]domain.Dependency{{FromTaskID: "a", ToTaskID: "b", Type: domain.FinishToStart}},
		pool, nil,
	)

	res, err := New().Optimize(context.Background(), in, TargetDuration)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, res.Status)

	// critical task is visited first
	require.Len(t, res.Assignments, 2)
	assert.Equal(t, "b", res.Assignments[0].TaskID)
	assert.Equal(t, map[string]string{"a": "senior", "b": "senior"}, assignedTo(res))

	require.Len(t, res.Adjustments, 2)
	for _, adj := range res.Adjustments {
		assert.InDelta(t, adj.OriginalDuration*0.8, adj.AdjustedDuration, 1e-9)
	}
	assert.Equal(t, 15.0, res.Before.Duration)
	assert.Equal(t, 12.0, res.After.Duration)
	assert.Equal(t, 3.0, res.Improvements.DurationReduction)
	assert.Equal(t, 20.0, res.Improvements.DurationReductionPct)
}

func TestOptimize_Cost(t *testing.T) {
	in := input(t,
		[]domain.Task{
			task("low", 10, 20, domain.PriorityLow, nil),
			task("tight", 10, 10, domain.PriorityMedium, nil),
			task("urgent", 10, 10, domain.PriorityHigh, map[string]float64{"go": 0.65}),
		},
		nil, pool, nil,
	)

	res, err := New().Optimize(context.Background(), in, TargetCost)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"low": "junior", "tight": "junior", "urgent": "mid"}, assignedTo(res))

	adj := map[string]TaskAdjustment{}
	for _, a := range res.Adjustments {
		adj[a.TaskID] = a
	}
	require.Contains(t, adj, "low")
	assert.InDelta(t, 12.0, adj["low"].AdjustedDuration, 1e-9)
	assert.InDelta(t, 18.0, adj["low"].AdjustedEffort, 1e-9)
	// effort may not fall below the relaxed duration
	assert.InDelta(t, 12.0, adj["tight"].AdjustedEffort, 1e-9)
	assert.NotContains(t, adj, "urgent")
}

func TestOptimize_CostNeverPricierThanDuration(t *testing.T) {
	tasks := []domain.Task{
		task("a", 8, 8, domain.PriorityHigh, map[string]float64{"go": 0.5}),
		task("b", 4, 4, domain.PriorityLow, map[string]float64{"go": 0.7}),
		task("c", 2, 2, domain.PriorityMedium, nil),
	}
	in := input(t, tasks, nil, pool, nil)

	byCost, err := New().Optimize(context.Background(), in, TargetCost)
	require.NoError(t, err)
	byDuration, err := New().Optimize(context.Background(), in, TargetDuration)
	require.NoError(t, err)

	rate := map[string]float64{}
	for _, r := range pool {
		rate[r.ID] = r.CostPerHour
	}
	costPick, durPick := assignedTo(byCost), assignedTo(byDuration)
	for _, tk := range tasks {
		assert.LessOrEqual(t, rate[costPick[tk.ID]], rate[durPick[tk.ID]], tk.ID)
	}
}

func TestOptimize_Utilization(t *testing.T) {
	resources := []domain.Resource{
		{ID: "r1", CapacityHours: 40, CostPerHour: 50, Skills: map[string]float64{"go": 1}},
		{ID: "r2", CapacityHours: 40, CostPerHour: 50, Skills: map[string]float64{"go": 1, "sql": 1}},
	}
	in := input(t,
		[]domain.Task{
			task("a", 8, 8, domain.PriorityMedium, nil),
			task("b", 5, 5, domain.PriorityMedium, nil),
			task("c", 3, 3, domain.PriorityMedium, nil),
			task("d", 1, 1, domain.PriorityMedium, nil),
			task("e", 2, 2, domain.PriorityMedium, map[string]float64{"sql": 0.5}),
		},
		nil, resources, nil,
	)

	res, err := New().Optimize(context.Background(), in, TargetUtilization)
	require.NoError(t, err)
	// a->r1(8) b->r2(5) c->r2(8) d->r1 on tie(9) e needs sql->r2(10)
	assert.Equal(t, map[string]string{"a": "r1", "b": "r2", "c": "r2", "d": "r1", "e": "r2"}, assignedTo(res))
	assert.Empty(t, res.Adjustments)
}

func (s *loadStrategy) loadOf(id string) float64 {
	if it, ok := s.items[id]; ok {
		return it.load
	}
	return 0
}

func TestLoadStrategy_Heap(t *testing.T) {
	resources := []domain.Resource{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	s := newLoadStrategy(resources)
	all := []*domain.Resource{&resources[0], &resources[1], &resources[2]}

	picks := []string{}
	for _, effort := range []float64{5, 3, 1, 2, 1} {
		c := s.choose(&domain.Task{EstimatedEffort: effort}, all)
		picks = append(picks, c.resource.ID)
	}
	assert.Equal(t, []string{"x", "y", "z", "z", "y"}, picks)
	assert.Equal(t, 5.0, s.loadOf("x"))
	assert.Equal(t, 4.0, s.loadOf("y"))
	assert.Equal(t, 3.0, s.loadOf("z"))
	assert.Equal(t, 3, s.h.Len())
}

func TestOptimize_Infeasible(t *testing.T) {
	tasks := []domain.Task{
		task("ok", 4, 4, domain.PriorityMedium, nil),
		task("ml", 4, 4, domain.PriorityMedium, map[string]float64{"pytorch": 0.5}),
	}
	in := input(t, tasks, nil, pool, nil)

	res, err := New().Optimize(context.Background(), in, TargetCost)
	require.Error(t, err)
	var infeasible *errors.InfeasibleAllocationError
	require.True(t, errors.As(err, &infeasible))
	assert.Equal(t, "ml", infeasible.TaskID)
	assert.Equal(t, []string{"pytorch"}, infeasible.Skills)
	require.NotNil(t, res)
	assert.Equal(t, StatusInfeasible, res.Status)

	res, err = New(WithHardConstraints(false)).Optimize(context.Background(), in, TargetCost)
	require.NoError(t, err)
	assert.Equal(t, StatusSuboptimal, res.Status)
	assert.Equal(t, []string{"ml"}, res.Unassigned)
}

func TestOptimize_Metrics(t *testing.T) {
	resources := []domain.Resource{
		{ID: "busy", CapacityHours: 10, CostPerHour: 100},
		{ID: "idle", CapacityHours: 10, CostPerHour: 10},
	}
	tasks := []domain.Task{
		task("a", 6, 6, domain.PriorityHigh, nil),
		task("b", 6, 6, domain.PriorityHigh, nil),
		{ID: "done", EstimatedDuration: 2, EstimatedEffort: 2, Status: domain.StatusDone},
	}
	allocs := []domain.Allocation{
		{TaskID: "a", ResourceID: "busy", AssignedHours: 6, Start: monday, End: monday.Add(6 * time.Hour)},
		{TaskID: "b", ResourceID: "busy", AssignedHours: 6, Start: monday, End: monday.Add(6 * time.Hour)},
		{TaskID: "done", ResourceID: "busy", AssignedHours: 2, Start: monday, End: monday.Add(2 * time.Hour)},
	}

	res, err := New().Optimize(context.Background(), input(t, tasks, nil, resources, allocs), TargetUtilization)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Before.Overallocated)
	assert.Equal(t, 1400.0, res.Before.Cost)
	assert.Equal(t, 70.0, res.Before.Utilization)

	// a->busy(6) b->idle(6); the done task keeps its allocation on busy
	assert.Equal(t, 0, res.After.Overallocated)
	assert.Equal(t, 860.0, res.After.Cost)
	assert.Equal(t, 1, res.Improvements.OverallocationReduction)
	assert.Equal(t, 540.0, res.Improvements.CostReduction)
	assert.Equal(t, 2, res.After.ResourcesInUse)
}

func TestOptimize_Deadline(t *testing.T) {
	in := input(t, []domain.Task{task("a", 1, 1, domain.PriorityLow, nil)}, nil, pool, nil)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := New(WithTimeout(time.Minute)).Optimize(ctx, in, TargetDuration)
	require.Error(t, err)

	var timeout *errors.OptimizationTimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, "duration", timeout.Target)
	assert.True(t, errors.Is(err, errors.ErrOptimizationTimeout))
	assert.True(t, errors.Is(err, errors.ErrTimeout))
	assert.True(t, errors.IsRetryable(err))
}

func TestOptimize_BadInput(t *testing.T) {
	_, err := New().Optimize(context.Background(), Input{}, TargetCost)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	in := input(t, nil, nil, pool, nil)
	_, err = New().Optimize(context.Background(), in, Target("speed"))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestParseTarget(t *testing.T) {
	got, err := ParseTarget(" Cost ")
	require.NoError(t, err)
	assert.Equal(t, TargetCost, got)
	_, err = ParseTarget("speed")
	assert.Error(t, err)
}
