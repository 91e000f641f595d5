package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/event"
	"github.com/Iron-Ham/cadence/internal/logging"
	"github.com/Iron-Ham/cadence/internal/storage"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Edit task dependencies in a snapshot file",
}

var depsAddCmd = &cobra.Command{
	Use:   "add <snapshot> <from-task> <to-task>",
	Short: "Add a dependency, rejecting cycles",
	Long: `Add a dependency from a predecessor to a successor task and write the
snapshot back to disk.

The edge is checked against the current graph while the file is locked,
so two concurrent additions can never close a cycle between them. A
dependency that would create a cycle, that references a missing task or
that breaks a type rule is rejected and the file is left untouched.

Dependency types: FS (finish-to-start), SS, FF, SF, BLOCKS, RELATES_TO.
Lag is in hours; SS, FF, SF and RELATES_TO accept a negative lag.`,
	Args: cobra.ExactArgs(3),
	RunE: runDepsAdd,
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Edit tasks in a snapshot file",
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <snapshot> <task> <status>",
	Short: "Change a task's status, enforcing dependency rules",
	Long: `Change a task's status and write the snapshot back to disk.

A task cannot start while a finish-to-start predecessor is unfinished, and
two tasks linked by BLOCKS cannot be active at the same time.

Statuses: todo, in_progress, review, blocked, done, cancelled.`,
	Args: cobra.ExactArgs(3),
	RunE: runTaskStatus,
}

var (
	depType string  // Dependency type for deps add
	depLag  float64 // Dependency lag in hours
)

func init() {
	depsAddCmd.Flags().StringVarP(&depType, "type", "t", string(domain.FinishToStart), "dependency type")
	depsAddCmd.Flags().Float64Var(&depLag, "lag", 0, "lag in hours")
	depsAddCmd.Flags().StringVarP(&planID, "plan", "p", "", "plan ID to edit when the file holds several")
	depsCmd.AddCommand(depsAddCmd)

	taskStatusCmd.Flags().StringVarP(&planID, "plan", "p", "", "plan ID to edit when the file holds several")
	taskCmd.AddCommand(taskStatusCmd)

	rootCmd.AddCommand(depsCmd, taskCmd)
}

// openStore opens a snapshot file for editing and resolves which plan to
// edit. Store events are logged.
func openStore(ctx context.Context, path, id string, logger *logging.Logger) (*storage.FileStore, string, error) {
	bus := event.NewBus()
	bus.SubscribeAll(func(e event.Event) {
		logger.Info("snapshot updated", "event", e.EventType(), "path", path)
	})

	store, err := storage.NewFileStore(path, bus)
	if err != nil {
		return nil, "", err
	}
	if id != "" {
		return store, id, nil
	}
	ids, err := store.PlanIDs(ctx)
	if err != nil {
		return nil, "", err
	}
	if len(ids) != 1 {
		return nil, "", fmt.Errorf("%s holds %d plans %v; choose one with --plan", path, len(ids), ids)
	}
	return store, ids[0], nil
}

func runDepsAdd(cmd *cobra.Command, args []string) error {
	typ, err := domain.ParseDependencyType(depType)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	store, id, err := openStore(cmd.Context(), args[0], planID, rt.logger)
	if err != nil {
		return err
	}

	dep := domain.Dependency{FromTaskID: args[1], ToTaskID: args[2], Type: typ, Lag: depLag}
	if err := store.AddDependency(cmd.Context(), id, dep); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s dependency %s → %s to plan %s\n", typ, dep.FromTaskID, dep.ToTaskID, id)
	return nil
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	status, err := domain.ParseTaskStatus(args[2])
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	store, id, err := openStore(cmd.Context(), args[0], planID, rt.logger)
	if err != nil {
		return err
	}
	if err := store.SetTaskStatus(cmd.Context(), id, args[1], status); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s in plan %s\n", args[1], status, id)
	return nil
}
