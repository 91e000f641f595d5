package cpm

import "github.com/Iron-Ham/cadence/internal/domain"

// Result holds the complete critical path analysis for one graph.
// CriticalPath is the ordered list of critical tasks; CriticalPaths lists each
// zero-slack chain separately.
type Result struct {
	Schedules       map[string]domain.ScheduleData `json:"schedules"`
	TopoOrder       []string                       `json:"topo_order"`
	CriticalPath    []string                       `json:"critical_path"`
	CriticalPaths   [][]string                     `json:"critical_paths,omitempty"`
	Waves           []Wave                         `json:"waves"`
	ProjectDuration float64                        `json:"project_duration"`
}

// Wave is a group of tasks sharing an earliest start; they can run in parallel.
type Wave struct {
	Index      int      `json:"index"`
	Start      float64  `json:"start"`
	TaskIDs    []string `json:"task_ids"`
	IsCritical bool     `json:"is_critical"`
}

// Schedule returns the schedule for a task and whether it exists.
func (r *Result) Schedule(id string) (domain.ScheduleData, bool) {
	s, ok := r.Schedules[id]
	return s, ok
}

// CriticalTasks returns the set of critical task IDs.
func (r *Result) CriticalTasks() map[string]bool {
	out := make(map[string]bool, len(r.CriticalPath))
	for _, id := range r.CriticalPath {
		out[id] = true
	}
	return out
}
