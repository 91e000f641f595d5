package storage

import (
	"context"
	"sync"

	"github.com/Iron-Ham/cadence/internal/deprule"
	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/errors"
	"github.com/Iron-Ham/cadence/internal/event"
	"github.com/Iron-Ham/cadence/internal/graph"
)

// Repository supplies plan snapshots to the core and accepts gated writes.
type Repository interface {
	// Snapshot returns a deep copy of the plan. Unknown plans yield a
	// NotFoundError matching errors.ErrPlanNotFound.
	Snapshot(ctx context.Context, planID string) (*domain.Snapshot, error)

	// PlanIDs lists the stored plans in stable order.
	PlanIDs(ctx context.Context) ([]string, error)

	// AddDependency stores dep after it passes the graph write gate.
	AddDependency(ctx context.Context, planID string, dep domain.Dependency) error

	// SetTaskStatus moves a task to a new status unless an unfinished
	// finish-to-start predecessor or an active BLOCKS partner forbids it.
	SetTaskStatus(ctx context.Context, planID, taskID string, status domain.TaskStatus) error
}

// planLocks hands out one mutex per plan ID.
type planLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (p *planLocks) lock(planID string) func() {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*sync.Mutex)
	}
	l, ok := p.locks[planID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[planID] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// appendDependency is the check-then-create step shared by the stores. The
// caller holds the plan lock.
func appendDependency(s *domain.Snapshot, dep domain.Dependency) error {
	g, err := graph.Build(s.Tasks, s.Dependencies)
	if err != nil {
		return errors.Wrapf(err, "plan %s is inconsistent", s.PlanID)
	}
	if err := g.CheckNewDependency(dep); err != nil {
		var cyc *errors.CyclicDependencyError
		if errors.As(err, &cyc) {
			return cyc.WithPlanID(s.PlanID)
		}
		return err
	}
	s.Dependencies = append(s.Dependencies, dep)
	return nil
}

// setStatus applies a gated status change and returns the previous status.
func setStatus(s *domain.Snapshot, taskID string, status domain.TaskStatus) (domain.TaskStatus, error) {
	if err := deprule.ValidateStatusChange(taskID, status, s.Tasks, s.Dependencies); err != nil {
		return "", err
	}
	for i := range s.Tasks {
		if s.Tasks[i].ID == taskID {
			old := s.Tasks[i].Status
			s.Tasks[i].Status = status
			return old, nil
		}
	}
	return "", errors.NewNotFoundError("task", taskID).WithCause(errors.ErrTaskNotFound)
}

func planNotFound(planID string) error {
	return errors.NewNotFoundError("plan", planID).WithCause(errors.ErrPlanNotFound)
}

func publishDependency(bus *event.Bus, planID string, dep domain.Dependency) {
	bus.Publish(event.NewDependencyAddedEvent(planID, dep.FromTaskID, dep.ToTaskID, string(dep.Type), dep.Lag))
}

func publishStatus(bus *event.Bus, planID, taskID string, old, next domain.TaskStatus) {
	bus.Publish(event.NewTaskStatusChangedEvent(planID, taskID, string(old), string(next)))
}
