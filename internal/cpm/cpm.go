// Package cpm performs the critical path method forward and backward passes
// over a task graph.
//
// Times are hours from project start, which is the earliest start of any
// task. Scheduling edges are evaluated through
// the dependency rule engine, so FS, SS, FF and SF each contribute their own
// constraint; BLOCKS and RELATES_TO never appear in the graph's adjacency.
package cpm

import (
	"fmt"
	"math"
	"sort"

	"github.com/Iron-Ham/cadence/internal/deprule"
	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/graph"
)

// Epsilon is the tolerance under which slack counts as zero.
const Epsilon = 1e-9

// maxEnumeratedPaths bounds CriticalPaths on graphs with many tied chains.
const maxEnumeratedPaths = 64

// Calculate runs the forward and backward passes over g.
func Calculate(g *graph.TaskGraph) (*Result, error) {
	order := g.TopologicalOrder()
	if len(order) != g.Len() {
		// Build rejects cycles, so this only guards hand-constructed graphs.
		return nil, fmt.Errorf("topological sort failed: %d of %d tasks ordered", len(order), g.Len())
	}

	result := &Result{
		Schedules: make(map[string]domain.ScheduleData, len(order)),
		TopoOrder: order,
	}

	duration := func(id string) float64 {
		t, _ := g.Task(id)
		return t.EstimatedDuration
	}

	// Forward pass. Sources start at zero; every other task starts at the
	// latest date its predecessors imply, which may be negative under SS, FF
	// or SF edges.
	minStart := 0.0
	for _, id := range order {
		dur := duration(id)
		es := 0.0
		if preds := g.Pred(id); len(preds) > 0 {
			es = math.Inf(-1)
			for _, e := range preds {
				start, _, err := deprule.CalculateTaskDates(e.Type, result.Schedules[e.FromTaskID], dur, e.Lag)
				if err != nil {
					return nil, fmt.Errorf("forward pass %s: %w", e, err)
				}
				es = math.Max(es, start)
			}
		}
		minStart = math.Min(minStart, es)
		result.Schedules[id] = domain.ScheduleData{
			TaskID:         id,
			EarliestStart:  es,
			EarliestFinish: es + dur,
		}
	}

	// Shift so the earliest task starts at project start.
	for id, s := range result.Schedules {
		s.EarliestStart -= minStart
		s.EarliestFinish -= minStart
		result.Schedules[id] = s
		result.ProjectDuration = math.Max(result.ProjectDuration, s.EarliestFinish)
	}

	// Backward pass
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		dur := duration(id)
		lf := result.ProjectDuration
		for _, e := range g.Succ(id) {
			bound, err := deprule.LatestFinishFor(e.Type, result.Schedules[e.ToTaskID], dur, e.Lag)
			if err != nil {
				return nil, fmt.Errorf("backward pass %s: %w", e, err)
			}
			lf = math.Min(lf, bound)
		}

		s := result.Schedules[id]
		s.LatestFinish = lf
		s.LatestStart = lf - dur
		s.Slack = s.LatestStart - s.EarliestStart
		if math.Abs(s.Slack) < Epsilon {
			s.Slack = 0
			s.IsCritical = true
		}
		result.Schedules[id] = s
	}

	critical := func(id string) bool { return result.Schedules[id].IsCritical }
	result.CriticalPath = g.TopologicalOrderOf(critical)
	result.CriticalPaths = enumerateCriticalPaths(g, result.CriticalPath, critical)
	result.Waves = computeWaves(g, result)

	return result, nil
}

// enumerateCriticalPaths lists each chain of critical tasks joined by
// scheduling edges, from a task with no critical predecessor to one with no
// critical successor.
func enumerateCriticalPaths(g *graph.TaskGraph, ordered []string, critical func(string) bool) [][]string {
	hasCriticalPred := func(id string) bool {
		for _, e := range g.Pred(id) {
			if critical(e.FromTaskID) {
				return true
			}
		}
		return false
	}

	var paths [][]string
	type frame struct {
		id   string
		path []string
	}
	for _, root := range ordered {
		if hasCriticalPred(root) {
			continue
		}
		stack := []frame{{id: root, path: []string{root}}}
		for len(stack) > 0 && len(paths) < maxEnumeratedPaths {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			var next []string
			for _, e := range g.Succ(f.id) {
				if critical(e.ToTaskID) {
					next = append(next, e.ToTaskID)
				}
			}
			if len(next) == 0 {
				paths = append(paths, f.path)
				continue
			}
			sort.SliceStable(next, func(i, j int) bool { return g.Rank(next[i]) < g.Rank(next[j]) })
			// push in reverse so the earliest-created successor is explored first
			for i := len(next) - 1; i >= 0; i-- {
				p := make([]string, len(f.path), len(f.path)+1)
				copy(p, f.path)
				stack = append(stack, frame{id: next[i], path: append(p, next[i])})
			}
		}
	}
	return paths
}

// computeWaves groups tasks by earliest start and records the wave index on
// each schedule.
func computeWaves(g *graph.TaskGraph, result *Result) []Wave {
	ids := append([]string(nil), result.TopoOrder...)
	sort.SliceStable(ids, func(i, j int) bool {
		return result.Schedules[ids[i]].EarliestStart < result.Schedules[ids[j]].EarliestStart
	})

	var waves []Wave
	for _, id := range ids {
		s := result.Schedules[id]
		if len(waves) == 0 || s.EarliestStart-waves[len(waves)-1].Start > Epsilon {
			waves = append(waves, Wave{Index: len(waves), Start: s.EarliestStart})
		}
		w := &waves[len(waves)-1]
		w.TaskIDs = append(w.TaskIDs, id)
		w.IsCritical = w.IsCritical || s.IsCritical
		s.Wave = w.Index
		result.Schedules[id] = s
	}

	for i := range waves {
		taskIDs := waves[i].TaskIDs
		sort.SliceStable(taskIDs, func(a, b int) bool {
			ca, cb := result.Schedules[taskIDs[a]].IsCritical, result.Schedules[taskIDs[b]].IsCritical
			if ca != cb {
				return ca
			}
			return g.Rank(taskIDs[a]) < g.Rank(taskIDs[b])
		})
	}
	return waves
}
