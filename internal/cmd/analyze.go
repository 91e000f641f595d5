package cmd

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	appconfig "github.com/Iron-Ham/cadence/internal/config"
	"github.com/Iron-Ham/cadence/internal/forecast"
	"github.com/Iron-Ham/cadence/internal/optimizer"
	"github.com/Iron-Ham/cadence/internal/planning"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <snapshot>",
	Short: "Compute the critical path schedule",
	Long: `Compute earliest and latest start and finish, slack and parallel waves
for every task, and print the critical path and project duration.`,
	Args: cobra.ExactArgs(1),
	RunE: runSchedule,
}

var forecastCmd = &cobra.Command{
	Use:   "forecast <snapshot>",
	Short: "Forecast the completion date",
	Long: `Forecast completion along the critical path as an S-curve with
confidence bounds, plus best-case and worst-case dates.

The forecast starts at the plan's start date, or now when it has none.`,
	Args: cobra.ExactArgs(1),
	RunE: runForecast,
}

var bottlenecksCmd = &cobra.Command{
	Use:   "bottlenecks <snapshot>",
	Short: "Find resource, dependency and skill bottlenecks",
	Args:  cobra.ExactArgs(1),
	RunE:  runBottlenecks,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize <snapshot>",
	Short: "Propose resource reassignments",
	Long: `Propose a resource for every unfinished task, toward the chosen target:

  duration     prefer the highest-rated resource
  cost         prefer the cheapest resource
  utilization  balance load across resources

The proposal is not written back to the snapshot.`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <snapshot>...",
	Short: "Run every analysis over one or more plans",
	Long: `Run the schedule, forecast, bottleneck and optimization analyses for
every plan in the given snapshot files. Plans are analyzed in parallel;
one failing plan does not stop the others.

Examples:
  # Analyze every plan in two files
  cadence analyze roadmap.yaml platform.json

  # Only plans whose ID starts with "q3-"
  cadence analyze plans.yaml --plan 'q3-*'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

var validateCmd = &cobra.Command{
	Use:   "validate <snapshot>",
	Short: "Check a snapshot for invalid records, cycles and blocked states",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var (
	planID         string  // Plan to select in a multi-plan file, or glob for analyze
	confidenceFlag float64 // Forecast confidence level
	unitFlag       string  // Forecast sampling unit
	targetFlag     string  // Optimization target
)

// errValidationFailed is returned after a validation report with problems
// has been written.
var errValidationFailed = errors.New("validation failed")

func init() {
	for _, c := range []*cobra.Command{scheduleCmd, forecastCmd, bottlenecksCmd, optimizeCmd, validateCmd} {
		c.Flags().StringVarP(&planID, "plan", "p", "", "plan ID to select when the file holds several")
	}
	analyzeCmd.Flags().StringVarP(&planID, "plan", "p", "", "only analyze plans whose ID matches this glob")

	for _, c := range []*cobra.Command{forecastCmd, analyzeCmd} {
		c.Flags().Float64Var(&confidenceFlag, "confidence", 0, "confidence level: 0.90, 0.95 or 0.99 (default from config)")
		c.Flags().StringVar(&unitFlag, "unit", "", "sampling unit: hours, days or weeks (default from config)")
	}
	for _, c := range []*cobra.Command{optimizeCmd, analyzeCmd} {
		c.Flags().StringVar(&targetFlag, "target", "", "optimization target: duration, cost or utilization (default from config)")
	}

	rootCmd.AddCommand(scheduleCmd, forecastCmd, bottlenecksCmd, optimizeCmd, analyzeCmd, validateCmd)
}

// analysisRequest turns the forecast and optimizer flags into a request.
func analysisRequest() (planning.Request, error) {
	var req planning.Request
	if confidenceFlag != 0 {
		if !slices.Contains(appconfig.ValidConfidences(), confidenceFlag) {
			return req, fmt.Errorf("invalid --confidence %v (want one of %v)", confidenceFlag, appconfig.ValidConfidences())
		}
		req.Confidence = confidenceFlag
	}
	if unitFlag != "" {
		unit, err := forecast.ParseUnit(unitFlag)
		if err != nil {
			return req, err
		}
		req.Unit = unit
	}
	if targetFlag != "" {
		target, err := optimizer.ParseTarget(targetFlag)
		if err != nil {
			return req, err
		}
		req.Target = target
	}
	return req, nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	snap, err := loadPlan(args[0], planID)
	if err != nil {
		return err
	}
	_, res, err := rt.service.Schedule(cmd.Context(), snap)
	if err != nil {
		return err
	}
	return rt.renderer.Schedule(snap.PlanID, res)
}

func runForecast(cmd *cobra.Command, args []string) error {
	req, err := analysisRequest()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	snap, err := loadPlan(args[0], planID)
	if err != nil {
		return err
	}
	fc, err := rt.service.Forecast(cmd.Context(), snap, req.Confidence, req.Unit)
	if err != nil {
		return err
	}
	return rt.renderer.Forecast(fc)
}

func runBottlenecks(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	snap, err := loadPlan(args[0], planID)
	if err != nil {
		return err
	}
	an, err := rt.service.Bottlenecks(cmd.Context(), snap)
	if err != nil {
		return err
	}
	return rt.renderer.Bottlenecks(an)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	req, err := analysisRequest()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	snap, err := loadPlan(args[0], planID)
	if err != nil {
		return err
	}
	res, err := rt.service.Optimize(cmd.Context(), snap, req.Target)
	if res != nil {
		// An infeasible proposal is still worth showing.
		if rerr := rt.renderer.Optimization(res); rerr != nil {
			return rerr
		}
	}
	return err
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	req, err := analysisRequest()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	snaps, err := loadPlans(args)
	if err != nil {
		return err
	}
	snaps, err = filterPlans(snaps, planID)
	if err != nil {
		return err
	}

	if len(snaps) == 1 {
		rep, err := rt.service.Analyze(cmd.Context(), snaps[0], req)
		if err != nil {
			return err
		}
		return rt.renderer.Report(rep)
	}

	batch, err := rt.service.AnalyzeAll(cmd.Context(), snaps, req)
	if rerr := rt.renderer.Batch(batch); rerr != nil {
		return rerr
	}
	if err != nil {
		return fmt.Errorf("%d of %d plans failed", len(batch.Failed()), len(batch.Results))
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	snap, err := loadPlan(args[0], planID)
	if err != nil {
		return err
	}
	v := rt.service.Validate(snap)
	if err := rt.renderer.Validation(v); err != nil {
		return err
	}
	if !v.OK() {
		return errValidationFailed
	}
	return nil
}
