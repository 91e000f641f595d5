// Package graph builds the dependency graph for one plan snapshot and answers
// reachability questions over it.
//
// Adjacency holds scheduling edges (FS, SS, FF, SF) only; BLOCKS and
// RELATES_TO edges are kept for informational queries but never participate
// in ordering, cycle detection or CPM. A TaskGraph is immutable once built,
// so every query method is safe for concurrent use.
package graph

import (
	"container/heap"
	"sort"

	"github.com/Iron-Ham/cadence/internal/deprule"
	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/errors"
)

// TaskGraph is an immutable adjacency structure over a plan's tasks.
// Tasks are held in creation order; rank maps an ID to its position there.
type TaskGraph struct {
	tasks []domain.Task
	rank  map[string]int
	succ  map[string][]domain.Dependency
	pred  map[string][]domain.Dependency
	all   []domain.Dependency
	keys  map[string]bool
}

// Build indexes tasks and dependencies. It rejects duplicate task IDs,
// dependencies that break a type rule, dangling references, duplicate edges,
// and a cyclic scheduling subgraph. The returned graph does not alias the
// input slices.
func Build(tasks []domain.Task, deps []domain.Dependency) (*TaskGraph, error) {
	g := &TaskGraph{
		rank: make(map[string]int, len(tasks)),
		succ: make(map[string][]domain.Dependency),
		pred: make(map[string][]domain.Dependency),
		keys: make(map[string]bool, len(deps)),
	}

	g.tasks = orderTasks(tasks)
	for i, t := range g.tasks {
		if _, dup := g.rank[t.ID]; dup {
			return nil, errors.NewAlreadyExistsError("task", t.ID)
		}
		g.rank[t.ID] = i
	}

	for _, d := range deps {
		if err := g.admit(d); err != nil {
			return nil, err
		}
		g.insert(d)
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, errors.NewCyclicDependencyError(cycle)
	}
	return g, nil
}

// orderTasks returns a copy of tasks sorted by creation time, then by ID, so
// the order never depends on how tasks were supplied.
func orderTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// admit runs every write-time rule except the cycle check.
func (g *TaskGraph) admit(d domain.Dependency) error {
	violations := deprule.ValidateDependencyType(d.Type, d.FromTaskID, d.ToTaskID, d.Lag)

	var missing []string
	if _, ok := g.rank[d.FromTaskID]; !ok {
		missing = append(missing, d.FromTaskID)
	}
	if _, ok := g.rank[d.ToTaskID]; !ok && d.ToTaskID != d.FromTaskID {
		missing = append(missing, d.ToTaskID)
	}
	if len(missing) > 0 {
		violations = append(violations, deprule.RuleViolation{
			Rule:    deprule.RuleDanglingReference,
			TaskIDs: missing,
			Message: "dependency references a task absent from the plan",
		})
	}
	if g.keys[d.Key()] {
		violations = append(violations, deprule.RuleViolation{
			Rule:    deprule.RuleDuplicateEdge,
			TaskIDs: []string{d.FromTaskID, d.ToTaskID},
			Message: "dependency already exists",
		})
	}

	if len(violations) == 0 {
		return nil
	}
	return deprule.ToError(d, violations)
}

func (g *TaskGraph) insert(d domain.Dependency) {
	g.keys[d.Key()] = true
	g.all = append(g.all, d)
	if d.Type.IsScheduling() {
		g.succ[d.FromTaskID] = append(g.succ[d.FromTaskID], d)
		g.pred[d.ToTaskID] = append(g.pred[d.ToTaskID], d)
	}
}

// findCycle runs Kahn's algorithm and, if some tasks are never released,
// walks predecessor links among them until one repeats. Every unreleased task
// has an unreleased predecessor, so the walk always closes. The result is in
// edge direction with the first ID repeated at the end.
func (g *TaskGraph) findCycle() []string {
	indeg := make(map[string]int, len(g.tasks))
	for _, t := range g.tasks {
		indeg[t.ID] = len(g.pred[t.ID])
	}
	queue := make([]string, 0, len(g.tasks))
	for _, t := range g.tasks {
		if indeg[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}
	released := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		released++
		for _, e := range g.succ[id] {
			indeg[e.ToTaskID]--
			if indeg[e.ToTaskID] == 0 {
				queue = append(queue, e.ToTaskID)
			}
		}
	}
	if released == len(g.tasks) {
		return nil
	}

	var start string
	for _, t := range g.tasks {
		if indeg[t.ID] > 0 {
			start = t.ID
			break
		}
	}

	seen := map[string]int{}
	var walk []string
	cur := start
	for {
		if at, ok := seen[cur]; ok {
			loop := append(walk[at:], cur)
			// walk followed predecessor links; reverse into edge direction
			for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
				loop[i], loop[j] = loop[j], loop[i]
			}
			return loop
		}
		seen[cur] = len(walk)
		walk = append(walk, cur)
		for _, e := range g.pred[cur] {
			if indeg[e.FromTaskID] > 0 {
				cur = e.FromTaskID
				break
			}
		}
	}
}

// WouldCreateCycle reports whether adding a scheduling edge from -> to would
// close a cycle, i.e. whether to already reaches from. A self-loop is a cycle
// without traversal.
func (g *TaskGraph) WouldCreateCycle(from, to string) bool {
	if from == to {
		return true
	}
	return g.pathBetween(to, from) != nil
}

// pathBetween returns a shortest scheduling path src..dst, or nil. The
// visited set and queue are local to the call.
func (g *TaskGraph) pathBetween(src, dst string) []string {
	if _, ok := g.rank[src]; !ok {
		return nil
	}
	parent := map[string]string{src: ""}
	queue := []string{src}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == dst {
			var path []string
			for cur := dst; cur != ""; cur = parent[cur] {
				path = append(path, cur)
				if cur == src {
					break
				}
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}
		for _, e := range g.succ[id] {
			if _, seen := parent[e.ToTaskID]; !seen {
				parent[e.ToTaskID] = id
				queue = append(queue, e.ToTaskID)
			}
		}
	}
	return nil
}

// CheckNewDependency is the write gate for a proposed dependency. It applies
// the type rules, dangling and duplicate checks, and for scheduling types the
// cycle check. A cycle is reported as from -> to -> ... -> from.
//
// The check and the subsequent write must be serialized by the caller; the
// graph itself is a snapshot and does not see concurrent inserts.
func (g *TaskGraph) CheckNewDependency(d domain.Dependency) error {
	if err := g.admit(d); err != nil {
		return err
	}
	if !d.Type.IsScheduling() {
		return nil
	}
	path := g.pathBetween(d.ToTaskID, d.FromTaskID)
	if path == nil {
		return nil
	}
	return errors.NewCyclicDependencyError(append([]string{d.FromTaskID}, path...))
}

// Len returns the number of tasks.
func (g *TaskGraph) Len() int { return len(g.tasks) }

// Tasks returns the tasks in creation order.
func (g *TaskGraph) Tasks() []domain.Task {
	out := make([]domain.Task, len(g.tasks))
	copy(out, g.tasks)
	return out
}

// Task looks up a task by ID.
func (g *TaskGraph) Task(id string) (domain.Task, bool) {
	i, ok := g.rank[id]
	if !ok {
		return domain.Task{}, false
	}
	return g.tasks[i], true
}

// Rank returns the creation-order position of a task, or -1.
func (g *TaskGraph) Rank(id string) int {
	if i, ok := g.rank[id]; ok {
		return i
	}
	return -1
}

// Succ returns the outgoing scheduling edges of a task.
func (g *TaskGraph) Succ(id string) []domain.Dependency { return g.succ[id] }

// Pred returns the incoming scheduling edges of a task.
func (g *TaskGraph) Pred(id string) []domain.Dependency { return g.pred[id] }

// FanIn returns the number of incoming scheduling edges.
func (g *TaskGraph) FanIn(id string) int { return len(g.pred[id]) }

// FanOut returns the number of outgoing scheduling edges.
func (g *TaskGraph) FanOut(id string) int { return len(g.succ[id]) }

// AllEdges returns every dependency, including non-scheduling ones, in the
// order supplied to Build.
func (g *TaskGraph) AllEdges() []domain.Dependency {
	out := make([]domain.Dependency, len(g.all))
	copy(out, g.all)
	return out
}

// Sources returns tasks without scheduling predecessors, in creation order.
func (g *TaskGraph) Sources() []string {
	var out []string
	for _, t := range g.tasks {
		if len(g.pred[t.ID]) == 0 {
			out = append(out, t.ID)
		}
	}
	return out
}

// Sinks returns tasks without scheduling successors, in creation order.
func (g *TaskGraph) Sinks() []string {
	var out []string
	for _, t := range g.tasks {
		if len(g.succ[t.ID]) == 0 {
			out = append(out, t.ID)
		}
	}
	return out
}

// TopologicalOrder returns all task IDs in a dependency-respecting order.
// Among ready tasks the earliest created goes first.
func (g *TaskGraph) TopologicalOrder() []string {
	return g.TopologicalOrderOf(nil)
}

// TopologicalOrderOf orders the subgraph induced by keep (all tasks if nil).
// Edges to or from tasks outside keep are ignored.
func (g *TaskGraph) TopologicalOrderOf(keep func(id string) bool) []string {
	in := func(id string) bool { return keep == nil || keep(id) }

	indeg := make(map[string]int, len(g.tasks))
	ready := &rankHeap{}
	for _, t := range g.tasks {
		if !in(t.ID) {
			continue
		}
		for _, e := range g.pred[t.ID] {
			if in(e.FromTaskID) {
				indeg[t.ID]++
			}
		}
		if indeg[t.ID] == 0 {
			heap.Push(ready, g.rank[t.ID])
		}
	}

	order := make([]string, 0, len(g.tasks))
	for ready.Len() > 0 {
		id := g.tasks[heap.Pop(ready).(int)].ID
		order = append(order, id)
		for _, e := range g.succ[id] {
			if !in(e.ToTaskID) {
				continue
			}
			indeg[e.ToTaskID]--
			if indeg[e.ToTaskID] == 0 {
				heap.Push(ready, g.rank[e.ToTaskID])
			}
		}
	}
	return order
}

// WithDurations returns a graph sharing this graph's edges but with the given
// task durations overridden. Unknown IDs are ignored.
func (g *TaskGraph) WithDurations(durations map[string]float64) *TaskGraph {
	out := *g
	out.tasks = make([]domain.Task, len(g.tasks))
	copy(out.tasks, g.tasks)
	for i := range out.tasks {
		if d, ok := durations[out.tasks[i].ID]; ok {
			out.tasks[i].EstimatedDuration = d
		}
	}
	return &out
}

// rankHeap is a min-heap of creation ranks.
type rankHeap []int

func (h rankHeap) Len() int           { return len(h) }
func (h rankHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h rankHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *rankHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *rankHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
