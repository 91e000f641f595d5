// Package domain holds the plan snapshot types consumed by the scheduling core.
// Values are owned by the repository collaborator; the core never mutates them.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Iron-Ham/cadence/internal/errors"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusBlocked    TaskStatus = "blocked"
	StatusDone       TaskStatus = "done"
	StatusCancelled  TaskStatus = "cancelled"
)

// IsActive returns true for states in which work is underway.
func (s TaskStatus) IsActive() bool {
	return s == StatusInProgress || s == StatusReview
}

// IsTerminal returns true if this status represents a final state.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// ParseTaskStatus accepts a status name case-insensitively, with either
// dashes or underscores ("in-progress", "IN_PROGRESS").
func ParseTaskStatus(s string) (TaskStatus, error) {
	norm := TaskStatus(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch norm {
	case StatusTodo, StatusInProgress, StatusReview, StatusBlocked, StatusDone, StatusCancelled:
		return norm, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities; higher is more urgent. Unknown values rank as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return 1
	}
}

// IsUrgent returns true for high and critical priorities.
func (p Priority) IsUrgent() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// Task is a unit of planned work.
type Task struct {
	ID                string             `json:"id" yaml:"id"`
	Title             string             `json:"title,omitempty" yaml:"title,omitempty"`
	EstimatedDuration float64            `json:"estimated_duration" yaml:"duration"`
	EstimatedEffort   float64            `json:"estimated_effort" yaml:"effort"`
	Priority          Priority           `json:"priority,omitempty" yaml:"priority,omitempty"`
	Status            TaskStatus         `json:"status,omitempty" yaml:"status,omitempty"`
	RequiredSkills    map[string]float64 `json:"required_skills,omitempty" yaml:"required_skills,omitempty"`
	PhaseID           string             `json:"phase_id,omitempty" yaml:"phase,omitempty"`
	MilestoneID       string             `json:"milestone_id,omitempty" yaml:"milestone,omitempty"`
	CreatedAt         time.Time          `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// Validate checks the per-task invariants: non-empty ID, non-negative
// duration, effort at least the duration, and proficiencies within [0,1].
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.NewValidationError("task id is required").WithField("id")
	}
	if t.EstimatedDuration < 0 {
		return errors.NewValidationError("duration must be non-negative").
			WithField("estimated_duration").WithValue(t.EstimatedDuration)
	}
	if t.EstimatedEffort < t.EstimatedDuration {
		return errors.NewValidationError("effort must be at least the duration for task " + t.ID).
			WithField("estimated_effort").WithValue(t.EstimatedEffort)
	}
	for skill, level := range t.RequiredSkills {
		if level < 0 || level > 1 {
			return errors.NewValidationError("proficiency must be within [0,1] for skill " + skill).
				WithField("required_skills").WithValue(level)
		}
	}
	return nil
}

// SkillNames returns the required skill names in sorted order.
func (t *Task) SkillNames() []string {
	names := make([]string, 0, len(t.RequiredSkills))
	for name := range t.RequiredSkills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScheduleData is the CPM output for one task. Times are hours from project start.
type ScheduleData struct {
	TaskID         string  `json:"task_id" yaml:"task_id"`
	EarliestStart  float64 `json:"earliest_start" yaml:"earliest_start"`
	EarliestFinish float64 `json:"earliest_finish" yaml:"earliest_finish"`
	LatestStart    float64 `json:"latest_start" yaml:"latest_start"`
	LatestFinish   float64 `json:"latest_finish" yaml:"latest_finish"`
	Slack          float64 `json:"slack" yaml:"slack"`
	IsCritical     bool    `json:"is_critical" yaml:"is_critical"`
	Wave           int     `json:"wave" yaml:"wave"`
}
