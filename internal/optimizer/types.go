package optimizer

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/graph"
)

// Target is the quantity the optimizer improves.
type Target string

const (
	TargetDuration    Target = "duration"
	TargetCost        Target = "cost"
	TargetUtilization Target = "utilization"
)

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetDuration, TargetCost, TargetUtilization:
		return t, nil
	}
	return "", fmt.Errorf("unknown optimization target %q (want duration, cost or utilization)", s)
}

// Status is the outcome of an optimization run.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusSuboptimal Status = "suboptimal"
	StatusInfeasible Status = "infeasible"
)

// TaskAdjustment records a modeled change to a task's estimates.
type TaskAdjustment struct {
	TaskID           string  `json:"task_id"`
	OriginalDuration float64 `json:"original_duration"`
	AdjustedDuration float64 `json:"adjusted_duration"`
	OriginalEffort   float64 `json:"original_effort"`
	AdjustedEffort   float64 `json:"adjusted_effort"`
	Reason           string  `json:"reason"`
}

// Assignment is a proposed resource for a task.
type Assignment struct {
	TaskID     string  `json:"task_id"`
	ResourceID string  `json:"resource_id"`
	Hours      float64 `json:"hours"`
	Cost       float64 `json:"cost"`
}

// Metrics are plan-level figures computed before and after reassignment.
type Metrics struct {
	Duration       float64 `json:"duration"`
	Cost           float64 `json:"cost"`
	Utilization    float64 `json:"utilization"`
	Overallocated  int     `json:"overallocated"`
	AssignedTasks  int     `json:"assigned_tasks"`
	ResourcesInUse int     `json:"resources_in_use"`
}

// Improvements compares the two metric sets. Positive reductions are better.
type Improvements struct {
	DurationReduction       float64 `json:"duration_reduction"`
	DurationReductionPct    float64 `json:"duration_reduction_pct"`
	CostReduction           float64 `json:"cost_reduction"`
	CostReductionPct        float64 `json:"cost_reduction_pct"`
	UtilizationChange       float64 `json:"utilization_change"`
	OverallocationReduction int     `json:"overallocation_reduction"`
}

// Input is the snapshot to optimize.
type Input struct {
	PlanID      string
	Graph       *graph.TaskGraph
	Resources   []domain.Resource
	Allocations []domain.Allocation
}

// Result is the proposed reassignment and its projected effect.
type Result struct {
	PlanID       string           `json:"plan_id,omitempty"`
	Target       Target           `json:"target"`
	Status       Status           `json:"status"`
	Adjustments  []TaskAdjustment `json:"task_adjustments"`
	Assignments  []Assignment     `json:"resource_assignments"`
	Unassigned   []string         `json:"unassigned,omitempty"`
	Before       Metrics          `json:"before"`
	After        Metrics          `json:"after"`
	Improvements Improvements     `json:"improvements"`
}
