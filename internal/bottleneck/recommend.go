package bottleneck

import (
	"fmt"
	"sort"
	"strings"
)

// recommend derives remedies from findings. Input must already be sorted by
// severity so that, when two findings yield the same recommendation, the
// more severe one sets its priority.
func recommend(findings []Finding) []Recommendation {
	var recs []Recommendation
	seen := map[string]bool{}
	add := func(r Recommendation) {
		if seen[r.key()] {
			return
		}
		seen[r.key()] = true
		recs = append(recs, r)
	}

	for _, f := range findings {
		p := priorityFor(f.Severity)
		switch f.Type {
		case FindingOverallocation:
			add(Recommendation{
				Type:        RecommendReallocate,
				Priority:    p,
				Description: fmt.Sprintf("move work off %s to resources with spare capacity", strings.Join(f.ResourceIDs, ", ")),
				TaskIDs:     f.TaskIDs,
				ResourceIDs: f.ResourceIDs,
			})
		case FindingFanIn:
			add(Recommendation{
				Type:        RecommendRestructure,
				Priority:    p,
				Description: fmt.Sprintf("reduce the predecessors of %s or start it on partial inputs", f.TaskIDs[0]),
				TaskIDs:     f.TaskIDs[:1],
			})
		case FindingFanOut:
			add(Recommendation{
				Type:        RecommendSplitTask,
				Priority:    p,
				Description: fmt.Sprintf("split %s so dependents can start on early deliverables", f.TaskIDs[0]),
				TaskIDs:     f.TaskIDs[:1],
			})
		case FindingChain:
			add(Recommendation{
				Type:        RecommendParallelize,
				Priority:    p,
				Description: fmt.Sprintf("run parts of the chain %s in parallel", strings.Join(f.TaskIDs, " -> ")),
				TaskIDs:     f.TaskIDs,
			})
			add(Recommendation{
				Type:        RecommendRestructure,
				Priority:    p,
				Description: fmt.Sprintf("relax finish-to-start links along the chain starting at %s", f.TaskIDs[0]),
				TaskIDs:     f.TaskIDs,
			})
		case FindingSkillMissing:
			add(Recommendation{
				Type:        RecommendAcquireSkill,
				Priority:    p,
				Description: skillDescription("hire or contract for", f),
				TaskIDs:     f.TaskIDs,
			})
		case FindingSkillLimited:
			add(Recommendation{
				Type:        RecommendCrossTrain,
				Priority:    p,
				Description: skillDescription("cross-train a second resource in", f),
				TaskIDs:     f.TaskIDs,
				ResourceIDs: f.ResourceIDs,
			})
		case FindingSkillInsufficient:
			add(Recommendation{
				Type:        RecommendCrossTrain,
				Priority:    p,
				Description: skillDescription("raise proficiency in", f),
				TaskIDs:     f.TaskIDs,
				ResourceIDs: f.ResourceIDs,
			})
			add(Recommendation{
				Type:        RecommendAcquireSkill,
				Priority:    p,
				Description: skillDescription("bring in senior expertise for", f),
				TaskIDs:     f.TaskIDs,
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority.rank() > recs[j].Priority.rank()
		}
		if recs[i].Type != recs[j].Type {
			return recs[i].Type < recs[j].Type
		}
		return recs[i].Description < recs[j].Description
	})
	return recs
}

func skillDescription(action string, f Finding) string {
	return fmt.Sprintf("%s %s", action, f.Skill)
}
