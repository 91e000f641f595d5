package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/errors"
	"github.com/Iron-Ham/cadence/internal/event"
)

func abcSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		PlanID: "abc",
		Tasks: []domain.Task{
			{ID: "A", EstimatedDuration: 8, EstimatedEffort: 8},
			{ID: "B", EstimatedDuration: 4, EstimatedEffort: 4},
			{ID: "C", EstimatedDuration: 4, EstimatedEffort: 4},
		},
		Dependencies: []domain.Dependency{
			{FromTaskID: "A", ToTaskID: "B", Type: domain.FinishToStart},
			{FromTaskID: "A", ToTaskID: "C", Type: domain.FinishToStart},
		},
	}
}

func TestMemoryStore_SnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	id, err := store.Put(abcSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	s, err := store.Snapshot(ctx, "abc")
	require.NoError(t, err)
	s.Tasks[0].EstimatedDuration = 100

	again, err := store.Snapshot(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 8.0, again.Tasks[0].EstimatedDuration)

	_, err = store.Snapshot(ctx, "nope")
	assert.True(t, errors.Is(err, errors.ErrPlanNotFound))
}

func TestMemoryStore_PutAssignsID(t *testing.T) {
	store := NewMemoryStore(nil)
	s := abcSnapshot()
	s.PlanID = ""

	id, err := store.Put(s)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	ids, err := store.PlanIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}

func TestMemoryStore_PutRejectsInvalid(t *testing.T) {
	store := NewMemoryStore(nil)
	s := abcSnapshot()
	s.Tasks[1].EstimatedEffort = 1

	_, err := store.Put(s)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestMemoryStore_AddDependency(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	var added []event.DependencyAddedEvent
	bus.Subscribe(event.TypeDependencyAdded, func(e event.Event) {
		added = append(added, e.(event.DependencyAddedEvent))
	})

	store := NewMemoryStore(bus)
	_, err := store.Put(abcSnapshot())
	require.NoError(t, err)

	require.NoError(t, store.AddDependency(ctx, "abc", domain.Dependency{FromTaskID: "B", ToTaskID: "C", Type: domain.StartToStart, Lag: -1}))

	err = store.AddDependency(ctx, "abc", domain.Dependency{FromTaskID: "C", ToTaskID: "A", Type: domain.FinishToStart})
	require.Error(t, err)
	var cyc *errors.CyclicDependencyError
	require.True(t, errors.As(err, &cyc))
	assert.Equal(t, "abc", cyc.PlanID)
	assert.Equal(t, []string{"C", "A", "C"}, cyc.Cycle)

	err = store.AddDependency(ctx, "abc", domain.Dependency{FromTaskID: "A", ToTaskID: "Z", Type: domain.FinishToStart})
	assert.True(t, errors.Is(err, errors.ErrDanglingReference))

	s, err := store.Snapshot(ctx, "abc")
	require.NoError(t, err)
	assert.Len(t, s.Dependencies, 3)
	require.Len(t, added, 1)
	assert.Equal(t, "B", added[0].FromID)
	assert.Equal(t, -1.0, added[0].Lag)
}

// Two writers each adding one half of a cycle: the plan lock guarantees
// exactly one wins.
func TestMemoryStore_ConcurrentCheckThenCreate(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		store := NewMemoryStore(nil)
		_, err := store.Put(&domain.Snapshot{
			PlanID: "p",
			Tasks: []domain.Task{
				{ID: "x", EstimatedDuration: 1, EstimatedEffort: 1},
				{ID: "y", EstimatedDuration: 1, EstimatedEffort: 1},
			},
		})
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, dep := range []domain.Dependency{
			{FromTaskID: "x", ToTaskID: "y", Type: domain.FinishToStart},
			{FromTaskID: "y", ToTaskID: "x", Type: domain.FinishToFinish},
		} {
			wg.Add(1)
			go func(j int, dep domain.Dependency) {
				defer wg.Done()
				errs[j] = store.AddDependency(ctx, "p", dep)
			}(j, dep)
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				assert.True(t, errors.Is(err, errors.ErrDependencyCycle))
				failures++
			}
		}
		assert.Equal(t, 1, failures)

		s, err := store.Snapshot(ctx, "p")
		require.NoError(t, err)
		assert.Len(t, s.Dependencies, 1)
	}
}

func TestMemoryStore_SetTaskStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	_, err := store.Put(&domain.Snapshot{
		PlanID: "p",
		Tasks: []domain.Task{
			{ID: "x", EstimatedDuration: 1, EstimatedEffort: 1, Status: domain.StatusInProgress},
			{ID: "y", EstimatedDuration: 1, EstimatedEffort: 1, Status: domain.StatusTodo},
		},
		Dependencies: []domain.Dependency{{FromTaskID: "x", ToTaskID: "y", Type: domain.Blocks}},
	})
	require.NoError(t, err)

	err = store.SetTaskStatus(ctx, "p", "y", domain.StatusInProgress)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	require.NoError(t, store.SetTaskStatus(ctx, "p", "x", domain.StatusDone))
	require.NoError(t, store.SetTaskStatus(ctx, "p", "y", domain.StatusInProgress))

	err = store.SetTaskStatus(ctx, "p", "nope", domain.StatusDone)
	assert.True(t, errors.Is(err, errors.ErrTaskNotFound))
}

func TestMemoryStore_SetTaskStatusWaitsForPredecessor(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	_, err := store.Put(&domain.Snapshot{
		PlanID: "p",
		Tasks: []domain.Task{
			{ID: "A", EstimatedDuration: 1, EstimatedEffort: 1},
			{ID: "B", EstimatedDuration: 1, EstimatedEffort: 1},
		},
		Dependencies: []domain.Dependency{{FromTaskID: "A", ToTaskID: "B", Type: domain.FinishToStart}},
	})
	require.NoError(t, err)

	err = store.SetTaskStatus(ctx, "p", "B", domain.StatusInProgress)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	snap, err := store.Snapshot(ctx, "p")
	require.NoError(t, err)
	assert.False(t, snap.Tasks[1].Status.IsActive(), "rejected change must not be applied")

	require.NoError(t, store.SetTaskStatus(ctx, "p", "A", domain.StatusDone))
	require.NoError(t, store.SetTaskStatus(ctx, "p", "B", domain.StatusInProgress))
}

const planYAML = `plan_id: demo
name: Demo
tasks:
  - id: A
    duration: 8
    effort: 8
  - id: B
    duration: 4
    effort: 6
    required_skills:
      go: 0.5
dependencies:
  - from: A
    to: B
    type: FS
resources:
  - id: dev
    capacity_hours: 40
    cost_per_hour: 50
    skills:
      go: 0.8
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileStore_YAMLRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "plan.yaml", planYAML)

	store, err := NewFileStore(path, nil)
	require.NoError(t, err)

	s, err := store.Snapshot(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "Demo", s.Name)
	require.Len(t, s.Tasks, 2)
	assert.Equal(t, 6.0, s.Tasks[1].EstimatedEffort)
	assert.Equal(t, 0.5, s.Tasks[1].RequiredSkills["go"])
	require.Len(t, s.Dependencies, 1)
	assert.Equal(t, domain.FinishToStart, s.Dependencies[0].Type)

	require.NoError(t, store.AddDependency(ctx, "demo", domain.Dependency{FromTaskID: "A", ToTaskID: "B", Type: domain.StartToStart, Lag: 2}))

	reopened, err := NewFileStore(path, nil)
	require.NoError(t, err)
	s, err = reopened.Snapshot(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, s.Dependencies, 2)
	assert.Equal(t, domain.StartToStart, s.Dependencies[1].Type)
	assert.Equal(t, 2.0, s.Dependencies[1].Lag)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestFileStore_RejectedWriteLeavesFileUntouched(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "plan.yaml", planYAML)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	store, err := NewFileStore(path, nil)
	require.NoError(t, err)
	err = store.AddDependency(ctx, "demo", domain.Dependency{FromTaskID: "B", ToTaskID: "A", Type: domain.FinishToStart})
	require.True(t, errors.Is(err, errors.ErrDependencyCycle))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestFileStore_MultiPlanJSON(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "team.json", `{
  "plans": [
    {"plan_id": "one", "tasks": [{"id": "a", "estimated_duration": 2, "estimated_effort": 2}]},
    {"tasks": [{"id": "b", "estimated_duration": 3, "estimated_effort": 3}]}
  ]
}`)

	store, err := NewFileStore(path, nil)
	require.NoError(t, err)

	ids, err := store.PlanIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "team-2"}, ids)

	s, err := store.Snapshot(ctx, "team-2")
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.Tasks[0].EstimatedDuration)
}

func TestFileStore_SinglePlanIDFromFileName(t *testing.T) {
	path := writeFile(t, "roadmap.yml", "tasks:\n  - id: a\n    duration: 1\n    effort: 1\n")
	plans, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "roadmap", plans[0].PlanID)
}

func TestFileStore_Errors(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "plan.txt"), nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = NewFileStore(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	var nf *errors.NotFoundError
	assert.True(t, errors.As(err, &nf))

	bad := writeFile(t, "bad.json", `{"tasks": [`)
	_, err = NewFileStore(bad, nil)
	assert.True(t, errors.Is(err, errors.ErrSnapshotCorrupted))
}

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	first := newFileLock(path)
	require.NoError(t, first.Lock())

	second := newFileLock(path)
	ok, err := second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok, "lock is held")

	require.NoError(t, first.Unlock())
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock())
	require.NoError(t, second.Unlock(), "unlocking twice is a no-op")
}
