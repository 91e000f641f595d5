package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "plan.analyzed", "dependency.added")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypePlanAnalyzed      = "plan.analyzed"
	TypePlanFailed        = "plan.failed"
	TypeDependencyAdded   = "dependency.added"
	TypeTaskStatusChanged = "task.status_changed"
	TypeSnapshotChanged   = "snapshot.changed"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Analysis Events
// -----------------------------------------------------------------------------

// PlanAnalyzedEvent is emitted when a full analysis of one plan completes.
type PlanAnalyzedEvent struct {
	baseEvent
	RunID           string
	PlanID          string
	ProjectDuration float64 // hours
	CriticalTasks   int
	Findings        int
	Elapsed         time.Duration
}

// NewPlanAnalyzedEvent creates a PlanAnalyzedEvent.
func NewPlanAnalyzedEvent(runID, planID string, duration float64, critical, findings int, elapsed time.Duration) PlanAnalyzedEvent {
	return PlanAnalyzedEvent{
		baseEvent:       newBaseEvent(TypePlanAnalyzed),
		RunID:           runID,
		PlanID:          planID,
		ProjectDuration: duration,
		CriticalTasks:   critical,
		Findings:        findings,
		Elapsed:         elapsed,
	}
}

// PlanFailedEvent is emitted when analysis of a plan stops at some phase.
type PlanFailedEvent struct {
	baseEvent
	RunID  string
	PlanID string
	Phase  string // graph, cpm, forecast, bottleneck or optimize
	Err    error
}

// NewPlanFailedEvent creates a PlanFailedEvent.
func NewPlanFailedEvent(runID, planID, phase string, err error) PlanFailedEvent {
	return PlanFailedEvent{
		baseEvent: newBaseEvent(TypePlanFailed),
		RunID:     runID,
		PlanID:    planID,
		Phase:     phase,
		Err:       err,
	}
}

// -----------------------------------------------------------------------------
// Repository Events
// -----------------------------------------------------------------------------

// DependencyAddedEvent is emitted after a dependency passed the write gate
// and was stored.
type DependencyAddedEvent struct {
	baseEvent
	PlanID string
	FromID string
	ToID   string
	Type   string
	Lag    float64
}

// NewDependencyAddedEvent creates a DependencyAddedEvent.
func NewDependencyAddedEvent(planID, fromID, toID, depType string, lag float64) DependencyAddedEvent {
	return DependencyAddedEvent{
		baseEvent: newBaseEvent(TypeDependencyAdded),
		PlanID:    planID,
		FromID:    fromID,
		ToID:      toID,
		Type:      depType,
		Lag:       lag,
	}
}

// TaskStatusChangedEvent is emitted after a task moved to a new status.
type TaskStatusChangedEvent struct {
	baseEvent
	PlanID    string
	TaskID    string
	OldStatus string
	NewStatus string
}

// NewTaskStatusChangedEvent creates a TaskStatusChangedEvent.
func NewTaskStatusChangedEvent(planID, taskID, oldStatus, newStatus string) TaskStatusChangedEvent {
	return TaskStatusChangedEvent{
		baseEvent: newBaseEvent(TypeTaskStatusChanged),
		PlanID:    planID,
		TaskID:    taskID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
}

// SnapshotChangedEvent is emitted by the file watcher when a snapshot file
// was written.
type SnapshotChangedEvent struct {
	baseEvent
	Path string
}

// NewSnapshotChangedEvent creates a SnapshotChangedEvent.
func NewSnapshotChangedEvent(path string) SnapshotChangedEvent {
	return SnapshotChangedEvent{
		baseEvent: newBaseEvent(TypeSnapshotChanged),
		Path:      path,
	}
}
