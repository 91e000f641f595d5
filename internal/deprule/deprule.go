// Package deprule implements the per-type date arithmetic and validation rules
// for task dependencies.
//
// Each dependency type maps to a TypeRule. Scheduling types (FS, SS, FF, SF)
// produce an (earliest start, earliest finish) pair for the successor given
// the predecessor's schedule and the lag; BLOCKS and RELATES_TO impose no date
// constraint. BLOCKS additionally forbids both linked tasks from being active
// at the same time, which is checked by ValidateBlockedStates.
package deprule

import (
	"fmt"
	"sort"

	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/errors"
)

// Stable rule names reported in violations.
const (
	RuleUnknownType          = "unknown_type"
	RuleSelfDependency       = "self_dependency"
	RuleNegativeLagForbidden = "negative_lag_forbidden"
	RuleDanglingReference    = "dangling_reference"
	RuleDuplicateEdge        = "duplicate_edge"
	RuleConcurrentBlocked    = "blocks_concurrent_active"
)

// TypeRule describes how one dependency type behaves.
type TypeRule struct {
	Type              domain.DependencyType
	Scheduling        bool
	AllowsNegativeLag bool
	Description       string
}

// Rule returns the rule metadata for a dependency type.
func Rule(t domain.DependencyType) (TypeRule, error) {
	rule := TypeRule{Type: t, Scheduling: t.IsScheduling(), AllowsNegativeLag: t.AllowsNegativeLag()}
	switch t {
	case domain.FinishToStart:
		rule.Description = "successor starts after predecessor finishes plus lag"
	case domain.StartToStart:
		rule.Description = "successor starts after predecessor starts plus lag"
	case domain.FinishToFinish:
		rule.Description = "successor finishes after predecessor finishes plus lag"
	case domain.StartToFinish:
		rule.Description = "successor finishes after predecessor starts plus lag"
	case domain.Blocks:
		rule.Description = "linked tasks may not be active at the same time"
	case domain.RelatesTo:
		rule.Description = "informational link, no constraint"
	default:
		return TypeRule{}, fmt.Errorf("unknown dependency type %q", t)
	}
	return rule, nil
}

// RuleViolation is one broken rule, with the tasks involved.
type RuleViolation struct {
	Rule    string   `json:"rule"`
	TaskIDs []string `json:"task_ids"`
	Message string   `json:"message"`
}

// ValidateDependencyType checks a proposed dependency against the type rules
// that can be evaluated without the task set: known type, no self-loop, lag
// sign. It returns every violation found, or nil.
func ValidateDependencyType(t domain.DependencyType, from, to string, lag float64) []RuleViolation {
	var violations []RuleViolation
	if !t.IsValid() {
		violations = append(violations, RuleViolation{
			Rule:    RuleUnknownType,
			TaskIDs: []string{from, to},
			Message: fmt.Sprintf("unknown dependency type %q", t),
		})
	}
	if from == to {
		violations = append(violations, RuleViolation{
			Rule:    RuleSelfDependency,
			TaskIDs: []string{from},
			Message: "task cannot depend on itself",
		})
	}
	if t.IsValid() && lag < 0 && !t.AllowsNegativeLag() {
		violations = append(violations, RuleViolation{
			Rule:    RuleNegativeLagForbidden,
			TaskIDs: []string{from, to},
			Message: fmt.Sprintf("%s dependencies do not allow negative lag (got %g)", t, lag),
		})
	}
	return violations
}

// ValidateDependency wraps ValidateDependencyType into an
// InvalidDependencyError listing every violated rule.
func ValidateDependency(dep domain.Dependency) error {
	violations := ValidateDependencyType(dep.Type, dep.FromTaskID, dep.ToTaskID, dep.Lag)
	if len(violations) == 0 {
		return nil
	}
	return ToError(dep, violations)
}

// ToError converts violations for a dependency into an InvalidDependencyError.
func ToError(dep domain.Dependency, violations []RuleViolation) *errors.InvalidDependencyError {
	err := errors.NewInvalidDependencyError(dep.FromTaskID, dep.ToTaskID, string(dep.Type))
	for _, v := range violations {
		err = err.WithViolation(v.Rule)
		if v.Rule == RuleDanglingReference {
			err = err.WithCause(errors.ErrDanglingReference)
		}
	}
	return err
}

// CalculateTaskDates returns the successor's earliest start and finish implied
// by one dependency, given the predecessor's schedule, the successor's
// duration and the lag. For BLOCKS and RELATES_TO it returns (0, duration):
// they impose no constraint.
func CalculateTaskDates(t domain.DependencyType, pred domain.ScheduleData, duration, lag float64) (float64, float64, error) {
	switch t {
	case domain.FinishToStart:
		es := pred.EarliestFinish + lag
		return es, es + duration, nil
	case domain.StartToStart:
		es := pred.EarliestStart + lag
		return es, es + duration, nil
	case domain.FinishToFinish:
		ef := pred.EarliestFinish + lag
		return ef - duration, ef, nil
	case domain.StartToFinish:
		ef := pred.EarliestStart + lag
		return ef - duration, ef, nil
	case domain.Blocks, domain.RelatesTo:
		return 0, duration, nil
	default:
		return 0, 0, fmt.Errorf("unknown dependency type %q", t)
	}
}

// LatestFinishFor is the inverse of CalculateTaskDates used by the backward
// pass: given the successor's latest schedule, it returns the latest finish
// the predecessor may have without delaying the successor.
func LatestFinishFor(t domain.DependencyType, succ domain.ScheduleData, predDuration, lag float64) (float64, error) {
	switch t {
	case domain.FinishToStart:
		return succ.LatestStart - lag, nil
	case domain.StartToStart:
		return succ.LatestStart - lag + predDuration, nil
	case domain.FinishToFinish:
		return succ.LatestFinish - lag, nil
	case domain.StartToFinish:
		return succ.LatestFinish - lag + predDuration, nil
	case domain.Blocks, domain.RelatesTo:
		return 0, fmt.Errorf("%s imposes no scheduling constraint", t)
	default:
		return 0, fmt.Errorf("unknown dependency type %q", t)
	}
}

// ValidateBlockedStates reports every BLOCKS-linked pair whose tasks are both
// in an active state. Tasks missing from the set are ignored here; dangling
// references are rejected when the graph is built.
func ValidateBlockedStates(tasks []domain.Task, deps []domain.Dependency) []RuleViolation {
	status := make(map[string]domain.TaskStatus, len(tasks))
	for _, t := range tasks {
		status[t.ID] = t.Status
	}

	var violations []RuleViolation
	for _, d := range deps {
		if d.Type != domain.Blocks {
			continue
		}
		from, okFrom := status[d.FromTaskID]
		to, okTo := status[d.ToTaskID]
		if !okFrom || !okTo {
			continue
		}
		if from.IsActive() && to.IsActive() {
			violations = append(violations, RuleViolation{
				Rule:    RuleConcurrentBlocked,
				TaskIDs: []string{d.FromTaskID, d.ToTaskID},
				Message: fmt.Sprintf("%s blocks %s but both are active (%s, %s)", d.FromTaskID, d.ToTaskID, from, to),
			})
		}
	}
	sort.SliceStable(violations, func(i, j int) bool {
		a, b := violations[i].TaskIDs, violations[j].TaskIDs
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	return violations
}

// ValidateStatusChange is the runtime gate for moving a task into a new
// status. It rejects activating a task while a finish-to-start predecessor is
// unfinished or while any BLOCKS partner is active.
func ValidateStatusChange(taskID string, next domain.TaskStatus, tasks []domain.Task, deps []domain.Dependency) error {
	if !next.IsActive() {
		return nil
	}
	updated := make([]domain.Task, len(tasks))
	copy(updated, tasks)
	status := make(map[string]domain.TaskStatus, len(tasks))
	found := false
	for i := range updated {
		status[updated[i].ID] = updated[i].Status
		if updated[i].ID == taskID {
			updated[i].Status = next
			found = true
		}
	}
	if !found {
		return errors.NewNotFoundError("task", taskID).WithCause(errors.ErrTaskNotFound)
	}

	for _, d := range deps {
		if d.Type != domain.FinishToStart || d.ToTaskID != taskID {
			continue
		}
		if pred, ok := status[d.FromTaskID]; ok && !pred.IsTerminal() {
			return errors.NewValidationError(
				fmt.Sprintf("%s cannot start before %s finishes (%s is %s)", taskID, d.FromTaskID, d.FromTaskID, pred),
			).WithField("status").WithValue(string(next))
		}
	}

	for _, v := range ValidateBlockedStates(updated, deps) {
		if v.TaskIDs[0] == taskID || v.TaskIDs[1] == taskID {
			return errors.NewValidationError(v.Message).WithField("status").WithValue(string(next))
		}
	}
	return nil
}
