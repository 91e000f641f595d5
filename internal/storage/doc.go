// Package storage is the plan repository the scheduling core reads from.
//
// The core never mutates plans. Writes go through this package, which
// serializes "check, then create" per plan: AddDependency holds the plan's
// lock while it rebuilds the task graph, runs the write gate and appends the
// dependency, so two concurrent writers cannot together close a cycle that
// neither would create alone.
//
// Two implementations are provided. MemoryStore keeps snapshots in process.
// FileStore reads and writes a single snapshot file (YAML or JSON by
// extension) and additionally takes a cross-process flock around every
// read-modify-write cycle.
package storage
