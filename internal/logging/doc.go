// Package logging provides structured logging for cadence.
//
// It wraps log/slog to emit one JSON object per line. Child loggers carry
// persistent attributes (run_id, plan_id, phase) so that the entries of one
// plan can be picked out of a run that analyzed many plans in parallel.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Levels DEBUG, INFO, WARN and ERROR
//   - Size-based rotation with optional gzip compression of backups
//   - Reading and filtering a log directory after the fact ([ReadEntries], [Filter])
//
// # Thread Safety
//
// [Logger] and [RotatingWriter] are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer.
//
// # Basic Usage
//
//	logger, err := logging.NewFileLogger("/var/log/cadence", "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	planLog := logger.WithRun(runID).WithPlan("roadmap")
//	start := time.Now()
//	// ...
//	planLog.WithPhase("cpm").Timed("critical path calculated", start, "tasks", 42)
package logging
