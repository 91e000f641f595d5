package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/x/term"
	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	appconfig "github.com/Iron-Ham/cadence/internal/config"
	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/event"
	"github.com/Iron-Ham/cadence/internal/logging"
	"github.com/Iron-Ham/cadence/internal/planning"
	"github.com/Iron-Ham/cadence/internal/report"
	"github.com/Iron-Ham/cadence/internal/storage"
)

// runtime is what every analysis command needs, built from configuration
// and global flags.
type runtime struct {
	cfg      *appconfig.Config
	logger   *logging.Logger
	bus      *event.Bus
	service  *planning.Service
	renderer *report.Renderer
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	var logger *logging.Logger
	if cfg.Logging.Dir != "" {
		logger, err = logging.NewFileLogger(cfg.Logging.Dir, level, logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   cfg.Logging.Compress,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open log: %w", err)
		}
	} else {
		logger = logging.NewLogger(cmd.ErrOrStderr(), level)
	}
	logger = logger.With("command", cmd.Name())

	bus := event.NewBus()
	svc, err := planning.NewFromConfig(cfg, planning.WithLogger(logger), planning.WithBus(bus))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		format = report.FormatJSON
	}
	color := cfg.Output.Color
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor || !isTerminal(cmd.OutOrStdout()) {
		color = false
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		service:  svc,
		renderer: report.New(cmd.OutOrStdout(), report.WithFormat(format), report.WithColor(color)),
	}, nil
}

// isTerminal reports whether w is a terminal. Writers that are not files,
// such as test buffers, count as terminals so explicit settings apply.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	return term.IsTerminal(f.Fd())
}

func (rt *runtime) Close() error {
	return rt.logger.Close()
}

// loadPlans reads every snapshot file in order. Plan IDs must be unique
// across files.
func loadPlans(paths []string) ([]*domain.Snapshot, error) {
	var out []*domain.Snapshot
	seen := make(map[string]string)
	for _, path := range paths {
		snaps, err := storage.LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, s := range snaps {
			if prev, ok := seen[s.PlanID]; ok {
				return nil, fmt.Errorf("plan %q is defined in both %s and %s", s.PlanID, prev, path)
			}
			seen[s.PlanID] = path
			out = append(out, s)
		}
	}
	return out, nil
}

// loadPlan reads a snapshot file that must hold exactly one plan, unless
// planID selects one of several.
func loadPlan(path, planID string) (*domain.Snapshot, error) {
	snaps, err := storage.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if planID != "" {
		for _, s := range snaps {
			if s.PlanID == planID {
				return s, nil
			}
		}
		return nil, fmt.Errorf("plan %q not found in %s", planID, path)
	}
	if len(snaps) != 1 {
		ids := make([]string, 0, len(snaps))
		for _, s := range snaps {
			ids = append(ids, s.PlanID)
		}
		sort.Strings(ids)
		return nil, fmt.Errorf("%s holds %d plans %v; choose one with --plan", path, len(snaps), ids)
	}
	return snaps[0], nil
}

// filterPlans keeps the plans whose ID matches the glob pattern.
func filterPlans(snaps []*domain.Snapshot, pattern string) ([]*domain.Snapshot, error) {
	if pattern == "" {
		return snaps, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid --plan pattern %q: %w", pattern, err)
	}
	var out []*domain.Snapshot
	for _, s := range snaps {
		if g.Match(s.PlanID) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no plan matches %q", pattern)
	}
	return out, nil
}
