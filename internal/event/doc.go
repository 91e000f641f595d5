// Package event provides a pub-sub event bus for decoupled inter-component
// communication in cadence.
//
// The repository, planning service and file watcher publish events; the CLI
// subscribes to them for logging and for re-running analysis in watch mode.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Analysis:
//   - [PlanAnalyzedEvent]: a plan's full report was produced
//   - [PlanFailedEvent]: a plan's analysis stopped at a phase
//
// Repository:
//   - [DependencyAddedEvent]: a dependency passed the write gate and was stored
//   - [TaskStatusChangedEvent]: a task moved to a new status
//   - [SnapshotChangedEvent]: a watched snapshot file was written
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called synchronously
// on the publishing goroutine and protected against panics. Plans analyzed in
// parallel therefore publish from several goroutines at once; handlers that
// share state must synchronize.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypePlanAnalyzed, func(e event.Event) {
//	    done := e.(event.PlanAnalyzedEvent)
//	    fmt.Println(done.PlanID, done.ProjectDuration)
//	})
//	bus.Publish(event.NewSnapshotChangedEvent("plan.yaml"))
package event
