package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	appconfig "github.com/Iron-Ham/cadence/internal/config"
	"github.com/Iron-Ham/cadence/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View analysis logs",
	Long: `View and filter the structured log written when logging.dir (or
--log-dir) is set.

Examples:
  # Last 50 entries
  cadence logs --log-dir ~/.cache/cadence

  # Every phase of one plan at debug level
  cadence logs --plan-id roadmap --level debug -n 0

  # Warnings from the last hour of one run
  cadence logs --run 3f2a... --level warn --since 1h`,
	RunE: runLogs,
}

var (
	logsTail  int
	logsLevel string
	logsSince string
	logsRun   string
	logsPlan  string
	logsPhase string
	logsGrep  string
)

func init() {
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsRun, "run", "", "Only entries of this analysis run")
	logsCmd.Flags().StringVar(&logsPlan, "plan-id", "", "Only entries of this plan")
	logsCmd.Flags().StringVar(&logsPhase, "phase", "", "Only entries of this phase (graph, cpm, forecast, bottleneck, optimize)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries matching pattern (regex)")
	rootCmd.AddCommand(logsCmd)
}

var (
	logTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	logFieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
	logLevelStyle = map[string]lipgloss.Style{
		logging.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		logging.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		logging.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		logging.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")),
	}
)

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Logging.Dir == "" {
		return fmt.Errorf("no log directory configured; set logging.dir or pass --log-dir")
	}

	filter := logging.Filter{
		MinLevel: logsLevel,
		RunID:    logsRun,
		PlanID:   logsPlan,
		Phase:    logsPhase,
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.Since = time.Now().Add(-d)
	}

	var grep *regexp.Regexp
	if logsGrep != "" {
		if grep, err = regexp.Compile(logsGrep); err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	entries, err := logging.ReadEntries(cfg.Logging.Dir)
	if err != nil {
		return err
	}
	entries = filter.Apply(entries)
	if grep != nil {
		matched := entries[:0]
		for _, e := range entries {
			if grep.MatchString(e.Message) || grep.MatchString(fmt.Sprint(e.Attrs)) {
				matched = append(matched, e)
			}
		}
		entries = matched
	}
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	return printEntries(cmd.OutOrStdout(), entries, asJSON, cfg.Output.Color && !noColor)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEntries(w io.Writer, entries []logging.Entry, asJSON, color bool) error {
	if asJSON {
		return writeJSON(w, entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No matching log entries found.")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, formatEntry(e, color)); err != nil {
			return err
		}
	}
	return nil
}

// formatEntry renders one entry as "[time] [LEVEL] msg key=value ...".
func formatEntry(e logging.Entry, color bool) string {
	paint := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	var sb strings.Builder
	sb.WriteString(paint(logTimeStyle, "["+e.Time.Format("15:04:05.000")+"]"))
	level := strings.ToUpper(e.Level)
	sb.WriteString(" " + paint(logLevelStyle[level], "["+level+"]"))
	sb.WriteString(" " + e.Message)

	field := func(k string, v any) {
		sb.WriteString(" " + paint(logFieldStyle, k+"=") + fmt.Sprint(v))
	}
	if e.PlanID != "" {
		field("plan_id", e.PlanID)
	}
	if e.Phase != "" {
		field("phase", e.Phase)
	}
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		field(k, e.Attrs[k])
	}
	return sb.String()
}
