package planning

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/cadence/internal/bottleneck"
	"github.com/Iron-Ham/cadence/internal/cpm"
	"github.com/Iron-Ham/cadence/internal/deprule"
	"github.com/Iron-Ham/cadence/internal/forecast"
	"github.com/Iron-Ham/cadence/internal/optimizer"
)

// Request tunes one analysis. Zero fields use the service defaults.
type Request struct {
	Confidence float64
	Unit       forecast.Unit
	Target     optimizer.Target
}

// Report bundles every analysis output for one plan.
type Report struct {
	RunID        string               `json:"run_id"`
	PlanID       string               `json:"plan_id"`
	Name         string               `json:"name,omitempty"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Schedule     *cpm.Result          `json:"schedule"`
	Forecast     *forecast.Forecast   `json:"forecast,omitempty"`
	Bottlenecks  *bottleneck.Analysis `json:"bottlenecks"`
	Optimization *optimizer.Result    `json:"optimization,omitempty"`
	// Warnings records recoverable problems: a forecast without data or an
	// optimization that left tasks unassigned.
	Warnings []string `json:"warnings,omitempty"`
}

// PlanResult is one plan's outcome within a batch.
type PlanResult struct {
	PlanID string  `json:"plan_id"`
	Report *Report `json:"report,omitempty"`
	Err    error   `json:"-"`
	Error  string  `json:"error,omitempty"`
}

// Batch is the outcome of AnalyzeAll, in input order.
type Batch struct {
	RunID   string       `json:"run_id"`
	Results []PlanResult `json:"results"`
}

// Failed returns the results that carry an error.
func (b *Batch) Failed() []PlanResult {
	var out []PlanResult
	for _, r := range b.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Validation is the outcome of checking a snapshot without analyzing it.
type Validation struct {
	PlanID string `json:"plan_id"`
	// Errors are record and graph problems that stop analysis.
	Errors []string `json:"errors,omitempty"`
	// BlockedStates are BLOCKS-linked pairs that are both active.
	BlockedStates []deprule.RuleViolation `json:"blocked_states,omitempty"`
}

// OK reports whether the snapshot passed every check.
func (v *Validation) OK() bool {
	return len(v.Errors) == 0 && len(v.BlockedStates) == 0
}

// PhaseError reports the analysis phase at which a plan failed.
type PhaseError struct {
	PlanID string
	Phase  string
	Err    error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("plan %s: %s: %v", e.PlanID, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
