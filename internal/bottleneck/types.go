package bottleneck

import (
	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/graph"
)

// FindingType classifies a bottleneck.
type FindingType string

const (
	FindingOverallocation    FindingType = "resource_overallocation"
	FindingFanIn             FindingType = "dependency_fan_in"
	FindingFanOut            FindingType = "dependency_fan_out"
	FindingChain             FindingType = "dependency_chain"
	FindingSkillMissing      FindingType = "skill_missing"
	FindingSkillLimited      FindingType = "skill_limited"
	FindingSkillInsufficient FindingType = "skill_insufficient"
)

// delayMultiplier weights a finding's severity into estimated delay days.
func (t FindingType) delayMultiplier() float64 {
	switch t {
	case FindingOverallocation:
		return 0.5
	case FindingFanIn, FindingFanOut:
		return 0.3
	case FindingChain:
		return 0.4
	case FindingSkillMissing:
		return 1.0
	case FindingSkillLimited:
		return 0.5
	case FindingSkillInsufficient:
		return 0.7
	default:
		return 0
	}
}

// RecommendationType is the kind of remedy proposed for a finding.
type RecommendationType string

const (
	RecommendReallocate   RecommendationType = "reallocate"
	RecommendCrossTrain   RecommendationType = "cross_train"
	RecommendRestructure  RecommendationType = "restructure_dependencies"
	RecommendSplitTask    RecommendationType = "split_task"
	RecommendParallelize  RecommendationType = "parallelize"
	RecommendAcquireSkill RecommendationType = "acquire_skill"
)

// Priority orders recommendations.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// priorityFor derives a recommendation priority from finding severity.
func priorityFor(severity float64) Priority {
	switch {
	case severity >= 8:
		return PriorityHigh
	case severity >= 5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Finding is one detected bottleneck. Severity is 0..10.
type Finding struct {
	Type        FindingType `json:"type"`
	Severity    float64     `json:"severity"`
	TaskIDs     []string    `json:"task_ids,omitempty"`
	ResourceIDs []string    `json:"resource_ids,omitempty"`
	Skill       string      `json:"skill,omitempty"`
	Description string      `json:"description"`
	Risk        string      `json:"risk"`
}

func (f Finding) key() string { return string(f.Type) + "\x00" + f.Description }

// Recommendation is a proposed remedy derived from one or more findings.
type Recommendation struct {
	Type        RecommendationType `json:"type"`
	Priority    Priority           `json:"priority"`
	Description string             `json:"description"`
	TaskIDs     []string           `json:"task_ids,omitempty"`
	ResourceIDs []string           `json:"resource_ids,omitempty"`
}

func (r Recommendation) key() string { return string(r.Type) + "\x00" + r.Description }

// Impact aggregates findings into band counts, a delay estimate and a risk score.
type Impact struct {
	Critical           int     `json:"critical"`
	High               int     `json:"high"`
	Medium             int     `json:"medium"`
	Low                int     `json:"low"`
	EstimatedDelayDays float64 `json:"estimated_delay_days"`
	RiskScore          float64 `json:"risk_score"`
}

// Utilization is the load of one resource.
type Utilization struct {
	ResourceID    string  `json:"resource_id"`
	AssignedHours float64 `json:"assigned_hours"`
	CapacityHours float64 `json:"capacity_hours"`
	Percent       float64 `json:"percent"`
	Overallocated bool    `json:"overallocated"`
}

// Input is the snapshot to analyze.
type Input struct {
	PlanID      string
	Graph       *graph.TaskGraph
	Resources   []domain.Resource
	Allocations []domain.Allocation
}

// Analysis is the full bottleneck report for a plan.
type Analysis struct {
	PlanID          string           `json:"plan_id,omitempty"`
	Findings        []Finding        `json:"findings"`
	Recommendations []Recommendation `json:"recommendations"`
	Impact          Impact           `json:"impact"`
	Utilization     []Utilization    `json:"utilization"`
	PathsExplored   int              `json:"paths_explored"`
	PathsTruncated  bool             `json:"paths_truncated,omitempty"`
}
