package optimizer

import (
	"math"

	"github.com/Iron-Ham/cadence/internal/cpm"
	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/graph"
)

// measure computes plan metrics for a graph and a set of allocations.
// Duration is the CPM project length; utilization is the mean load across
// resources with capacity.
func measure(g *graph.TaskGraph, resources []domain.Resource, allocations []domain.Allocation) (Metrics, error) {
	schedule, err := cpm.Calculate(g)
	if err != nil {
		return Metrics{}, err
	}

	byID := make(map[string]*domain.Resource, len(resources))
	for i := range resources {
		byID[resources[i].ID] = &resources[i]
	}

	m := Metrics{Duration: schedule.ProjectDuration}
	load := make(map[string]float64, len(resources))
	tasks := make(map[string]bool)
	for _, a := range allocations {
		r, ok := byID[a.ResourceID]
		if !ok {
			continue
		}
		load[r.ID] += a.AssignedHours
		m.Cost += a.AssignedHours * r.CostPerHour
		tasks[a.TaskID] = true
	}
	m.AssignedTasks = len(tasks)

	total, counted := 0.0, 0
	for _, r := range resources {
		if load[r.ID] > 0 {
			m.ResourcesInUse++
		}
		if load[r.ID] > r.CapacityHours {
			m.Overallocated++
		}
		if r.CapacityHours > 0 {
			total += load[r.ID] / r.CapacityHours * 100
			counted++
		}
	}
	if counted > 0 {
		m.Utilization = round2(total / float64(counted))
	}
	m.Cost = round2(m.Cost)
	m.Duration = round2(m.Duration)
	return m, nil
}

func compare(before, after Metrics) Improvements {
	imp := Improvements{
		DurationReduction:       round2(before.Duration - after.Duration),
		CostReduction:           round2(before.Cost - after.Cost),
		UtilizationChange:       round2(after.Utilization - before.Utilization),
		OverallocationReduction: before.Overallocated - after.Overallocated,
	}
	if before.Duration > 0 {
		imp.DurationReductionPct = round2(imp.DurationReduction / before.Duration * 100)
	}
	if before.Cost > 0 {
		imp.CostReductionPct = round2(imp.CostReduction / before.Cost * 100)
	}
	return imp
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
