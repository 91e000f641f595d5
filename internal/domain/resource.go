package domain

import (
	"sort"
	"time"

	"github.com/Iron-Ham/cadence/internal/errors"
)

// Resource is a person or team that can be allocated to tasks.
type Resource struct {
	ID                string             `json:"id" yaml:"id"`
	Name              string             `json:"name,omitempty" yaml:"name,omitempty"`
	CapacityHours     float64            `json:"capacity_hours" yaml:"capacity_hours"`
	Skills            map[string]float64 `json:"skills,omitempty" yaml:"skills,omitempty"`
	CostPerHour       float64            `json:"cost_per_hour" yaml:"cost_per_hour"`
	PerformanceRating float64            `json:"performance_rating,omitempty" yaml:"performance_rating,omitempty"`
}

// CanPerform reports whether the resource holds every required skill at or
// above the required proficiency. Tasks without required skills accept any
// resource.
func (r *Resource) CanPerform(t *Task) bool {
	for skill, required := range t.RequiredSkills {
		have, ok := r.Skills[skill]
		if !ok || have < required {
			return false
		}
	}
	return true
}

// MissingSkills returns the skills (sorted) the resource lacks for a task.
func (r *Resource) MissingSkills(t *Task) []string {
	var missing []string
	for skill, required := range t.RequiredSkills {
		if have, ok := r.Skills[skill]; !ok || have < required {
			missing = append(missing, skill)
		}
	}
	sort.Strings(missing)
	return missing
}

// Validate checks that capacity and cost are non-negative.
func (r *Resource) Validate() error {
	if r.ID == "" {
		return errors.NewValidationError("resource id is required").WithField("id")
	}
	if r.CapacityHours < 0 {
		return errors.NewValidationError("capacity must be non-negative").
			WithField("capacity_hours").WithValue(r.CapacityHours)
	}
	if r.CostPerHour < 0 {
		return errors.NewValidationError("cost must be non-negative").
			WithField("cost_per_hour").WithValue(r.CostPerHour)
	}
	return nil
}

// Allocation assigns part of a resource's time to a task.
type Allocation struct {
	TaskID        string    `json:"task_id" yaml:"task"`
	ResourceID    string    `json:"resource_id" yaml:"resource"`
	AssignedHours float64   `json:"assigned_hours" yaml:"hours"`
	Percentage    float64   `json:"percentage,omitempty" yaml:"percentage,omitempty"`
	Start         time.Time `json:"start" yaml:"start"`
	End           time.Time `json:"end" yaml:"end"`
}

// Validate enforces End > Start and non-negative hours.
func (a *Allocation) Validate() error {
	if a.AssignedHours < 0 {
		return errors.NewValidationError("assigned hours must be non-negative").
			WithField("assigned_hours").WithValue(a.AssignedHours)
	}
	if !a.End.After(a.Start) {
		return errors.NewValidationError("allocation end must be after start for task " + a.TaskID).
			WithField("end").WithValue(a.End)
	}
	return nil
}
