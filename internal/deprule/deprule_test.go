package deprule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/errors"
)

func TestCalculateTaskDates(t *testing.T) {
	pred := domain.ScheduleData{TaskID: "p", EarliestStart: 2, EarliestFinish: 10}

	tests := []struct {
		name     string
		typ      domain.DependencyType
		duration float64
		lag      float64
		wantES   float64
		wantEF   float64
	}{
		{"FS no lag", domain.FinishToStart, 4, 0, 10, 14},
		{"FS with lag", domain.FinishToStart, 4, 3, 13, 17},
		{"SS no lag", domain.StartToStart, 4, 0, 2, 6},
		{"SS negative lag", domain.StartToStart, 4, -1, 1, 5},
		{"FF no lag", domain.FinishToFinish, 4, 0, 6, 10},
		{"FF with lag", domain.FinishToFinish, 4, 2, 8, 12},
		{"SF no lag", domain.StartToFinish, 1, 0, 1, 2},
		{"SF with lag", domain.StartToFinish, 4, 5, 3, 7},
		{"BLOCKS", domain.Blocks, 4, 0, 0, 4},
		{"RELATES_TO", domain.RelatesTo, 4, 0, 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			es, ef, err := CalculateTaskDates(tt.typ, pred, tt.duration, tt.lag)
			require.NoError(t, err)
			assert.Equal(t, tt.wantES, es, "earliest start")
			assert.Equal(t, tt.wantEF, ef, "earliest finish")
		})
	}

	_, _, err := CalculateTaskDates("NOPE", pred, 1, 0)
	assert.Error(t, err)
}

func TestCalculateTaskDates_Identities(t *testing.T) {
	pred := domain.ScheduleData{EarliestStart: 3.5, EarliestFinish: 11.25}
	for _, d := range []float64{0, 1, 7.5} {
		es, _, _ := CalculateTaskDates(domain.FinishToStart, pred, d, 0)
		assert.Equal(t, pred.EarliestFinish, es)

		es, _, _ = CalculateTaskDates(domain.StartToStart, pred, d, 0)
		assert.Equal(t, pred.EarliestStart, es)

		_, ef, _ := CalculateTaskDates(domain.FinishToFinish, pred, d, 0)
		assert.Equal(t, pred.EarliestFinish, ef)
	}
}

func TestLatestFinishFor_InvertsForward(t *testing.T) {
	// For each scheduling type, feeding the forward result back through the
	// inverse must give back the predecessor's finish.
	pred := domain.ScheduleData{EarliestStart: 4, EarliestFinish: 10}
	predDuration := 6.0
	for _, typ := range []domain.DependencyType{domain.FinishToStart, domain.StartToStart, domain.FinishToFinish, domain.StartToFinish} {
		t.Run(string(typ), func(t *testing.T) {
			es, ef, err := CalculateTaskDates(typ, pred, 3, 2)
			require.NoError(t, err)
			lf, err := LatestFinishFor(typ, domain.ScheduleData{LatestStart: es, LatestFinish: ef}, predDuration, 2)
			require.NoError(t, err)
			assert.Equal(t, pred.EarliestFinish, lf)
		})
	}

	_, err := LatestFinishFor(domain.Blocks, domain.ScheduleData{}, 1, 0)
	assert.Error(t, err)
}

func TestValidateDependencyType(t *testing.T) {
	tests := []struct {
		name  string
		typ   domain.DependencyType
		from  string
		to    string
		lag   float64
		rules []string
	}{
		{"valid FS", domain.FinishToStart, "a", "b", 0, nil},
		{"FS negative lag", domain.FinishToStart, "a", "b", -1, []string{RuleNegativeLagForbidden}},
		{"BLOCKS negative lag", domain.Blocks, "a", "b", -2, []string{RuleNegativeLagForbidden}},
		{"SS negative lag allowed", domain.StartToStart, "a", "b", -4, nil},
		{"FF negative lag allowed", domain.FinishToFinish, "a", "b", -4, nil},
		{"SF negative lag allowed", domain.StartToFinish, "a", "b", -4, nil},
		{"RELATES_TO negative lag allowed", domain.RelatesTo, "a", "b", -4, nil},
		{"self loop", domain.StartToStart, "a", "a", 0, []string{RuleSelfDependency}},
		{"unknown type", domain.DependencyType("XX"), "a", "b", -1, []string{RuleUnknownType}},
		{"self loop and negative FS", domain.FinishToStart, "a", "a", -1, []string{RuleSelfDependency, RuleNegativeLagForbidden}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := ValidateDependencyType(tt.typ, tt.from, tt.to, tt.lag)
			var rules []string
			for _, v := range violations {
				rules = append(rules, v.Rule)
			}
			assert.Equal(t, tt.rules, rules)
		})
	}
}

func TestValidateDependency_StructuredError(t *testing.T) {
	err := ValidateDependency(domain.Dependency{FromTaskID: "a", ToTaskID: "a", Type: domain.FinishToStart, Lag: -2})
	require.Error(t, err)

	var invalid *errors.InvalidDependencyError
	require.True(t, errors.As(err, &invalid))
	assert.True(t, invalid.HasViolation(RuleSelfDependency))
	assert.True(t, invalid.HasViolation(RuleNegativeLagForbidden))
	assert.True(t, errors.Is(err, errors.ErrInvalidDependency))

	assert.NoError(t, ValidateDependency(domain.Dependency{FromTaskID: "a", ToTaskID: "b", Type: domain.StartToFinish, Lag: -2}))
}

func TestRule(t *testing.T) {
	for _, typ := range domain.AllDependencyTypes() {
		rule, err := Rule(typ)
		require.NoError(t, err)
		assert.NotEmpty(t, rule.Description)
		assert.Equal(t, typ.IsScheduling(), rule.Scheduling)
	}
	_, err := Rule("XX")
	assert.Error(t, err)
}

func TestValidateBlockedStates(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", Status: domain.StatusInProgress},
		{ID: "b", Status: domain.StatusReview},
		{ID: "c", Status: domain.StatusTodo},
		{ID: "d", Status: domain.StatusInProgress},
	}
	deps := []domain.Dependency{
		{FromTaskID: "a", ToTaskID: "b", Type: domain.Blocks},
		{FromTaskID: "a", ToTaskID: "c", Type: domain.Blocks},
		{FromTaskID: "a", ToTaskID: "d", Type: domain.RelatesTo},
		{FromTaskID: "d", ToTaskID: "ghost", Type: domain.Blocks},
	}

	violations := ValidateBlockedStates(tasks, deps)
	require.Len(t, violations, 1)
	assert.Equal(t, RuleConcurrentBlocked, violations[0].Rule)
	assert.Equal(t, []string{"a", "b"}, violations[0].TaskIDs)
}

func TestValidateStatusChange(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", Status: domain.StatusInProgress},
		{ID: "b", Status: domain.StatusTodo},
		{ID: "c", Status: domain.StatusTodo},
	}
	deps := []domain.Dependency{{FromTaskID: "a", ToTaskID: "b", Type: domain.Blocks}}

	err := ValidateStatusChange("b", domain.StatusInProgress, tasks, deps)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	assert.NoError(t, ValidateStatusChange("c", domain.StatusInProgress, tasks, deps))
	assert.NoError(t, ValidateStatusChange("b", domain.StatusDone, tasks, deps))

	err = ValidateStatusChange("zzz", domain.StatusInProgress, tasks, deps)
	assert.True(t, errors.Is(err, errors.ErrTaskNotFound))
	assert.Equal(t, domain.StatusTodo, tasks[1].Status, "input must not be mutated")
}

func TestValidateStatusChange_FinishToStart(t *testing.T) {
	deps := []domain.Dependency{{FromTaskID: "a", ToTaskID: "b", Type: domain.FinishToStart}}

	tests := []struct {
		name    string
		pred    domain.TaskStatus
		next    domain.TaskStatus
		wantErr bool
	}{
		{"predecessor todo blocks start", domain.StatusTodo, domain.StatusInProgress, true},
		{"predecessor in review blocks review", domain.StatusReview, domain.StatusReview, true},
		{"predecessor done allows start", domain.StatusDone, domain.StatusInProgress, false},
		{"predecessor cancelled allows start", domain.StatusCancelled, domain.StatusInProgress, false},
		{"inactive status is not gated", domain.StatusTodo, domain.StatusBlocked, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := []domain.Task{{ID: "a", Status: tt.pred}, {ID: "b", Status: domain.StatusTodo}}
			err := ValidateStatusChange("b", tt.next, tasks, deps)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidInput))
			assert.Contains(t, err.Error(), "b cannot start before a finishes")
		})
	}

	// SS leaves the successor free to start
	ss := []domain.Dependency{{FromTaskID: "a", ToTaskID: "b", Type: domain.StartToStart}}
	tasks := []domain.Task{{ID: "a", Status: domain.StatusTodo}, {ID: "b", Status: domain.StatusTodo}}
	assert.NoError(t, ValidateStatusChange("b", domain.StatusInProgress, tasks, ss))
}
