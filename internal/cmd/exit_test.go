package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/cadence/internal/deprule"
	cerrors "github.com/Iron-Ham/cadence/internal/errors"
)

func TestReportError_Text(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		want  []string
		avoid []string
	}{
		{
			name: "cycle",
			err:  fmt.Errorf("plan abc: %w", cerrors.NewCyclicDependencyError([]string{"C", "A", "C"})),
			want: []string{"Error: plan abc:", "hint: remove or reverse one dependency"},
		},
		{
			name: "negative lag",
			err:  cerrors.NewInvalidDependencyError("A", "B", "FS").WithViolation(deprule.RuleNegativeLagForbidden),
			want: []string{"Error: ", "use SS, FF or SF"},
		},
		{
			name: "dangling",
			err:  cerrors.NewInvalidDependencyError("A", "Z", "FS").WithViolation(deprule.RuleDanglingReference),
			want: []string{"both tasks must exist"},
		},
		{
			name: "timeout",
			err:  cerrors.NewOptimizationTimeoutError("cost", time.Second),
			want: []string{"run it again or raise optimizer.timeout"},
		},
		{
			name:  "plain",
			err:   errors.New("open plan.yaml: no such file"),
			want:  []string{"Error: open plan.yaml: no such file\n"},
			avoid: []string{"hint:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Equal(t, 1, ReportError(&buf, tt.err, false))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
			for _, a := range tt.avoid {
				assert.NotContains(t, buf.String(), a)
			}
		})
	}
}

func TestReportError_JSON(t *testing.T) {
	decode := func(t *testing.T, err error) errorReport {
		t.Helper()
		var buf bytes.Buffer
		require.Equal(t, 1, ReportError(&buf, err, true))
		var rep errorReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
		return rep
	}

	rep := decode(t, cerrors.NewInvalidDependencyError("A", "B", "FS").
		WithViolation(deprule.RuleSelfDependency).
		WithViolation(deprule.RuleNegativeLagForbidden))
	assert.Equal(t, "plan", rep.Kind)
	assert.False(t, rep.Retryable)
	assert.Equal(t, []string{deprule.RuleSelfDependency, deprule.RuleNegativeLagForbidden}, rep.Violations)

	rep = decode(t, cerrors.NewOptimizationTimeoutError("duration", time.Second))
	assert.Equal(t, "plan", rep.Kind)
	assert.True(t, rep.Retryable)

	rep = decode(t, cerrors.NewValidationError("bad confidence").WithField("confidence"))
	assert.Equal(t, "input", rep.Kind)

	rep = decode(t, errors.New("disk full"))
	assert.Equal(t, "other", rep.Kind)
	assert.Equal(t, "error", rep.Severity)
	assert.Empty(t, rep.Violations)
}

func TestReportError_Nil(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, 0, ReportError(&buf, nil, false))
	assert.Empty(t, buf.String())
}
