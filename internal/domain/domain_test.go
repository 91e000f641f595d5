package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/cadence/internal/errors"
)

func TestDependencyType_Classification(t *testing.T) {
	tests := []struct {
		typ          DependencyType
		scheduling   bool
		negativeLags bool
	}{
		{FinishToStart, true, false},
		{StartToStart, true, true},
		{FinishToFinish, true, true},
		{StartToFinish, true, true},
		{Blocks, false, false},
		{RelatesTo, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.True(t, tt.typ.IsValid())
			assert.Equal(t, tt.scheduling, tt.typ.IsScheduling())
			assert.Equal(t, tt.negativeLags, tt.typ.AllowsNegativeLag())
		})
	}

	unknown := DependencyType("XX")
	assert.False(t, unknown.IsValid())
	assert.False(t, unknown.IsScheduling())
	assert.False(t, unknown.AllowsNegativeLag())
}

func TestParseDependencyType(t *testing.T) {
	cases := map[string]DependencyType{
		"fs":               FinishToStart,
		"Finish-To-Start":  FinishToStart,
		"start_to_start":   StartToStart,
		"FF":               FinishToFinish,
		"start to finish":  StartToFinish,
		"blocks":           Blocks,
		"relates-to":       RelatesTo,
		"  RELATES_TO   ":  RelatesTo,
	}
	for in, want := range cases {
		got, err := ParseDependencyType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDependencyType("depends")
	assert.Error(t, err)
}

func TestParseTaskStatus(t *testing.T) {
	for in, want := range map[string]TaskStatus{
		"todo":        StatusTodo,
		"In-Progress": StatusInProgress,
		" REVIEW ":    StatusReview,
		"cancelled":   StatusCancelled,
	} {
		got, err := ParseTaskStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTaskStatus("started")
	assert.Error(t, err)
}

func TestTask_Validate(t *testing.T) {
	ok := Task{ID: "a", EstimatedDuration: 8, EstimatedEffort: 16, RequiredSkills: map[string]float64{"go": 0.5}}
	assert.NoError(t, ok.Validate())

	lowEffort := Task{ID: "b", EstimatedDuration: 8, EstimatedEffort: 4}
	err := lowEffort.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	badSkill := Task{ID: "c", EstimatedDuration: 1, EstimatedEffort: 1, RequiredSkills: map[string]float64{"go": 1.5}}
	assert.Error(t, badSkill.Validate())

	assert.Error(t, (&Task{}).Validate())
}

func TestResource_CanPerform(t *testing.T) {
	r := Resource{ID: "r1", Skills: map[string]float64{"go": 0.9, "sql": 0.4}}

	assert.True(t, r.CanPerform(&Task{ID: "any"}))
	assert.True(t, r.CanPerform(&Task{ID: "go", RequiredSkills: map[string]float64{"go": 0.9}}))
	assert.False(t, r.CanPerform(&Task{ID: "sql", RequiredSkills: map[string]float64{"sql": 0.5}}))
	assert.False(t, r.CanPerform(&Task{ID: "k8s", RequiredSkills: map[string]float64{"k8s": 0.1}}))

	missing := r.MissingSkills(&Task{RequiredSkills: map[string]float64{"sql": 0.5, "k8s": 0.1, "go": 0.1}})
	assert.Equal(t, []string{"k8s", "sql"}, missing)
}

func TestAllocation_Validate(t *testing.T) {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	good := Allocation{TaskID: "a", ResourceID: "r", AssignedHours: 8, Start: start, End: start.Add(8 * time.Hour)}
	assert.NoError(t, good.Validate())

	same := good
	same.End = start
	assert.Error(t, same.Validate())
}

func TestSnapshot_ValidateAndClone(t *testing.T) {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	s := &Snapshot{
		Tasks: []Task{
			{ID: "a", EstimatedDuration: 1, EstimatedEffort: 1, RequiredSkills: map[string]float64{"go": 0.5}},
			{ID: "a", EstimatedDuration: 1, EstimatedEffort: 1},
		},
		Resources: []Resource{{ID: "r", CapacityHours: 40, Skills: map[string]float64{"go": 1}}},
		Allocations: []Allocation{
			{TaskID: "missing", ResourceID: "r", AssignedHours: 1, Start: start, End: start.Add(time.Hour)},
		},
	}

	err := s.Validate()
	require.Error(t, err)
	var exists *errors.AlreadyExistsError
	assert.True(t, errors.As(err, &exists))
	assert.True(t, errors.Is(err, errors.ErrTaskNotFound))

	s.EnsureID()
	assert.NotEmpty(t, s.PlanID)

	c := s.Clone()
	c.Tasks[0].RequiredSkills["go"] = 0.1
	c.Resources[0].Skills["go"] = 0
	assert.Equal(t, 0.5, s.Tasks[0].RequiredSkills["go"])
	assert.Equal(t, 1.0, s.Resources[0].Skills["go"])
}
