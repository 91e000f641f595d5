package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Iron-Ham/cadence/internal/deprule"
	cerrors "github.com/Iron-Ham/cadence/internal/errors"
)

// Run executes the root command, reports any error on stderr and returns the
// process exit code.
func Run(ctx context.Context) int {
	err := ExecuteContext(ctx)
	asJSON, _ := rootCmd.PersistentFlags().GetBool("json")
	return ReportError(rootCmd.ErrOrStderr(), err, asJSON)
}

// errorReport is the --json form of a failed command.
type errorReport struct {
	Error      string   `json:"error"`
	Kind       string   `json:"kind"`
	Severity   string   `json:"severity"`
	Retryable  bool     `json:"retryable"`
	Violations []string `json:"violations,omitempty"`
}

// ReportError writes err to w and returns the exit code: 0 for nil, 1
// otherwise. Text output adds hints for known plan problems; JSON output
// classifies the error as a plan problem, invalid input or other.
func ReportError(w io.Writer, err error, asJSON bool) int {
	if err == nil {
		return 0
	}

	rep := errorReport{
		Error:     err.Error(),
		Kind:      errorKind(err),
		Severity:  cerrors.GetSeverity(err).String(),
		Retryable: cerrors.IsRetryable(err),
	}
	var invalid *cerrors.InvalidDependencyError
	if cerrors.As(err, &invalid) {
		rep.Violations = invalid.Violations
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rep)
		return 1
	}

	fmt.Fprintf(w, "Error: %s\n", rep.Error)
	for _, hint := range hints(err, invalid) {
		fmt.Fprintf(w, "  hint: %s\n", hint)
	}
	return 1
}

func errorKind(err error) string {
	switch {
	case cerrors.IsDomainError(err):
		return "plan"
	case cerrors.IsUserFacing(err):
		return "input"
	case cerrors.Is(err, errValidationFailed):
		return "plan"
	default:
		return "other"
	}
}

func hints(err error, invalid *cerrors.InvalidDependencyError) []string {
	var out []string
	if cerrors.Is(err, cerrors.ErrDependencyCycle) {
		out = append(out, "remove or reverse one dependency on the cycle")
	}
	if invalid != nil && invalid.HasViolation(deprule.RuleNegativeLagForbidden) {
		out = append(out, "FS and BLOCKS take no lead; use SS, FF or SF for a negative lag")
	}
	if invalid != nil && invalid.HasViolation(deprule.RuleDanglingReference) {
		out = append(out, "both tasks must exist in the plan before they can be linked")
	}
	if cerrors.IsRetryable(err) {
		out = append(out, "the operation ran out of time; run it again or raise optimizer.timeout")
	}
	return out
}
