package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/cadence/internal/errors"
)

// Snapshot is the complete input for one plan as supplied by the repository
// collaborator. Start anchors forecast dates; CPM works in hours from zero.
type Snapshot struct {
	PlanID       string       `json:"plan_id" yaml:"plan_id"`
	Name         string       `json:"name,omitempty" yaml:"name,omitempty"`
	Start        time.Time    `json:"start,omitempty" yaml:"start,omitempty"`
	Tasks        []Task       `json:"tasks" yaml:"tasks"`
	Dependencies []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Resources    []Resource   `json:"resources,omitempty" yaml:"resources,omitempty"`
	Allocations  []Allocation `json:"allocations,omitempty" yaml:"allocations,omitempty"`
}

// EnsureID assigns a random plan ID when none was supplied.
func (s *Snapshot) EnsureID() {
	if s.PlanID == "" {
		s.PlanID = uuid.New().String()
	}
}

// Validate checks the per-record invariants of tasks, resources and
// allocations. Graph-level rules (dangling references, cycles) are checked
// when the task graph is built.
func (s *Snapshot) Validate() error {
	var errs []error
	taskIDs := make(map[string]bool, len(s.Tasks))
	for i := range s.Tasks {
		if err := s.Tasks[i].Validate(); err != nil {
			errs = append(errs, err)
		}
		if taskIDs[s.Tasks[i].ID] {
			errs = append(errs, errors.NewAlreadyExistsError("task", s.Tasks[i].ID))
		}
		taskIDs[s.Tasks[i].ID] = true
	}
	resourceIDs := make(map[string]bool, len(s.Resources))
	for i := range s.Resources {
		if err := s.Resources[i].Validate(); err != nil {
			errs = append(errs, err)
		}
		resourceIDs[s.Resources[i].ID] = true
	}
	for i := range s.Allocations {
		a := &s.Allocations[i]
		if err := a.Validate(); err != nil {
			errs = append(errs, err)
		}
		if !resourceIDs[a.ResourceID] {
			errs = append(errs, errors.NewNotFoundError("resource", a.ResourceID))
		}
		if !taskIDs[a.TaskID] {
			errs = append(errs, errors.NewNotFoundError("task", a.TaskID).WithCause(errors.ErrTaskNotFound))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy so callers can mutate without affecting the source.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		t.RequiredSkills = cloneSkills(t.RequiredSkills)
		out.Tasks[i] = t
	}
	out.Dependencies = append([]Dependency(nil), s.Dependencies...)
	out.Resources = make([]Resource, len(s.Resources))
	for i, r := range s.Resources {
		r.Skills = cloneSkills(r.Skills)
		out.Resources[i] = r
	}
	out.Allocations = append([]Allocation(nil), s.Allocations...)
	return &out
}

func cloneSkills(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
