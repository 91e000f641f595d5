package bottleneck

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/graph"
)

// resourceFindings computes per-resource utilization and flags every resource
// whose assigned hours exceed its capacity. Allocations for unknown resources
// are ignored.
func (a *Analyzer) resourceFindings(in Input) ([]Utilization, []Finding) {
	assigned := make(map[string]float64, len(in.Resources))
	tasksOn := make(map[string][]string, len(in.Resources))
	for _, al := range in.Allocations {
		assigned[al.ResourceID] += al.AssignedHours
		tasksOn[al.ResourceID] = append(tasksOn[al.ResourceID], al.TaskID)
	}

	util := make([]Utilization, 0, len(in.Resources))
	var findings []Finding
	for _, r := range in.Resources {
		hours := assigned[r.ID]
		u := Utilization{ResourceID: r.ID, AssignedHours: hours, CapacityHours: r.CapacityHours}
		if r.CapacityHours > 0 {
			u.Percent = round2(hours / r.CapacityHours * 100)
		}
		u.Overallocated = hours > r.CapacityHours
		util = append(util, u)

		if !u.Overallocated {
			continue
		}
		severity := 10.0
		if r.CapacityHours > 0 {
			excess := (hours - r.CapacityHours) / r.CapacityHours
			severity = math.Min(10, 5+10*excess)
		}
		findings = append(findings, Finding{
			Type:        FindingOverallocation,
			Severity:    round2(severity),
			TaskIDs:     uniqueSorted(tasksOn[r.ID]),
			ResourceIDs: []string{r.ID},
			Description: fmt.Sprintf("resource %s is allocated %.1fh against %.1fh capacity", r.ID, hours, r.CapacityHours),
			Risk:        "overloaded resource will slip every task assigned to it",
		})
	}
	return util, findings
}

// fanFindings flags tasks whose scheduling fan-in or fan-out exceeds the
// threshold.
func (a *Analyzer) fanFindings(g *graph.TaskGraph) []Finding {
	var findings []Finding
	for _, t := range g.Tasks() {
		if n := g.FanIn(t.ID); n > a.fanThreshold {
			findings = append(findings, Finding{
				Type:        FindingFanIn,
				Severity:    math.Min(10, float64(2+n)),
				TaskIDs:     append([]string{t.ID}, endpoints(g.Pred(t.ID), false)...),
				Description: fmt.Sprintf("task %s waits on %d predecessors", t.ID, n),
				Risk:        "any late predecessor delays this task",
			})
		}
		if n := g.FanOut(t.ID); n > a.fanThreshold {
			findings = append(findings, Finding{
				Type:        FindingFanOut,
				Severity:    math.Min(10, float64(2+n)),
				TaskIDs:     append([]string{t.ID}, endpoints(g.Succ(t.ID), true)...),
				Description: fmt.Sprintf("task %s gates %d successors", t.ID, n),
				Risk:        "a delay here cascades to every dependent task",
			})
		}
	}
	return findings
}

func endpoints(edges []domain.Dependency, to bool) []string {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		if to {
			ids = append(ids, e.ToTaskID)
		} else {
			ids = append(ids, e.FromTaskID)
		}
	}
	return ids
}

// chainFindings enumerates source-to-sink paths depth first and reports the
// longest chains exceeding the configured length. Enumeration stops after
// maxPaths paths; ctx is checked once per path.
func (a *Analyzer) chainFindings(ctx context.Context, g *graph.TaskGraph) ([]Finding, int, bool, error) {
	var long [][]string
	explored := 0
	truncated := false

	type frame struct {
		id   string
		path []string
	}

	for _, src := range g.Sources() {
		stack := []frame{{id: src, path: []string{src}}}
		for len(stack) > 0 {
			if explored >= a.maxPaths {
				truncated = true
				break
			}
			if err := ctx.Err(); err != nil {
				return nil, explored, truncated, err
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			succ := g.Succ(f.id)
			if len(succ) == 0 {
				explored++
				if len(f.path) > a.chainLength {
					long = append(long, f.path)
				}
				continue
			}
			for i := len(succ) - 1; i >= 0; i-- {
				next := succ[i].ToTaskID
				p := make([]string, len(f.path), len(f.path)+1)
				copy(p, f.path)
				stack = append(stack, frame{id: next, path: append(p, next)})
			}
		}
		if truncated {
			break
		}
	}

	sort.SliceStable(long, func(i, j int) bool {
		if len(long[i]) != len(long[j]) {
			return len(long[i]) > len(long[j])
		}
		return strings.Join(long[i], ",") < strings.Join(long[j], ",")
	})
	if len(long) > a.maxChainFindings {
		long = long[:a.maxChainFindings]
	}

	findings := make([]Finding, 0, len(long))
	for _, p := range long {
		findings = append(findings, Finding{
			Type:        FindingChain,
			Severity:    math.Min(10, float64(len(p))),
			TaskIDs:     p,
			Description: fmt.Sprintf("dependency chain of %d tasks: %s", len(p), strings.Join(p, " -> ")),
			Risk:        "long serial chains leave no room to absorb slippage",
		})
	}
	return findings, explored, truncated, nil
}

// skillFindings checks every skill required by an unfinished task against the
// resource pool: nobody holds it (missing), one person holds it (limited), or
// the best holder is below the highest required level (insufficient).
func (a *Analyzer) skillFindings(in Input) []Finding {
	required := map[string]float64{}
	needers := map[string][]string{}
	for _, t := range in.Graph.Tasks() {
		if t.Status.IsTerminal() {
			continue
		}
		for skill, level := range t.RequiredSkills {
			required[skill] = math.Max(required[skill], level)
			needers[skill] = append(needers[skill], t.ID)
		}
	}

	skills := make([]string, 0, len(required))
	for s := range required {
		skills = append(skills, s)
	}
	sort.Strings(skills)

	var findings []Finding
	for _, skill := range skills {
		var holders []string
		best := 0.0
		for _, r := range in.Resources {
			if level, ok := r.Skills[skill]; ok {
				holders = append(holders, r.ID)
				best = math.Max(best, level)
			}
		}
		tasks := uniqueSorted(needers[skill])

		switch len(holders) {
		case 0:
			findings = append(findings, Finding{
				Type:        FindingSkillMissing,
				Severity:    10,
				TaskIDs:     tasks,
				Skill:       skill,
				Description: fmt.Sprintf("no resource has skill %s", skill),
				Risk:        "tasks requiring this skill cannot be staffed",
			})
			continue
		case 1:
			findings = append(findings, Finding{
				Type:        FindingSkillLimited,
				Severity:    7,
				TaskIDs:     tasks,
				ResourceIDs: holders,
				Skill:       skill,
				Description: fmt.Sprintf("only %s has skill %s", holders[0], skill),
				Risk:        "single point of failure for this skill",
			})
		}
		if best < required[skill] {
			findings = append(findings, Finding{
				Type:        FindingSkillInsufficient,
				Severity:    8,
				TaskIDs:     tasks,
				ResourceIDs: holders,
				Skill:       skill,
				Description: fmt.Sprintf("best %s proficiency %.2f is below required %.2f", skill, best, required[skill]),
				Risk:        "work needing this skill will be slow or rejected",
			})
		}
	}
	return findings
}

func uniqueSorted(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
