package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/cadence/internal/planning"
	"github.com/Iron-Ham/cadence/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <snapshot>...",
	Short: "Re-run the analysis whenever a snapshot file changes",
	Long: `Analyze the given snapshot files, then watch them and analyze a file's
plans again each time it is saved. Press Ctrl+C to stop.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&planID, "plan", "p", "", "only analyze plans whose ID matches this glob")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	req, err := analysisRequest()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx := cmd.Context()
	for _, path := range args {
		analyzeFile(ctx, cmd, rt, path, req)
	}

	w, err := watch.New(watch.WithBus(rt.bus), watch.WithLogger(rt.logger))
	if err != nil {
		return err
	}
	for _, path := range args {
		if err := w.Add(path); err != nil {
			w.Stop()
			return err
		}
	}
	w.SetChangeCallback(func(path string) {
		analyzeFile(ctx, cmd, rt, path, req)
	})

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d file(s)... (Ctrl+C to stop)\n", len(args))
	return w.Run(ctx)
}

// analyzeFile renders a fresh analysis of every plan in path. Errors are
// reported and watching continues; a half-saved file is common.
func analyzeFile(ctx context.Context, cmd *cobra.Command, rt *runtime, path string, req planning.Request) {
	report := func(err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
	}

	snaps, err := loadPlans([]string{path})
	if err != nil {
		report(err)
		return
	}
	if snaps, err = filterPlans(snaps, planID); err != nil {
		report(err)
		return
	}
	batch, err := rt.service.AnalyzeAll(ctx, snaps, req)
	if rerr := rt.renderer.Batch(batch); rerr != nil {
		report(rerr)
	}
	if err != nil {
		report(err)
	}
}
