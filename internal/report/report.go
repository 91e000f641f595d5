// Package report renders analysis results for the terminal, as lipgloss
// styled text, or as indented JSON for scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/Iron-Ham/cadence/internal/bottleneck"
	"github.com/Iron-Ham/cadence/internal/cpm"
	"github.com/Iron-Ham/cadence/internal/forecast"
	"github.com/Iron-Ham/cadence/internal/optimizer"
	"github.com/Iron-Ham/cadence/internal/planning"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// timelineRows caps how many forecast points the text table shows.
const timelineRows = 10

const ruleWidth = 50

// descriptionWidth bounds free-text table cells.
const descriptionWidth = 72

// Option configures a Renderer.
type Option func(*Renderer)

// WithFormat selects text or JSON output.
func WithFormat(f Format) Option {
	return func(r *Renderer) { r.format = f }
}

// WithColor enables terminal colors in text output.
func WithColor(on bool) Option {
	return func(r *Renderer) { r.st = newStyles(on) }
}

// Renderer writes results to an io.Writer.
type Renderer struct {
	w      io.Writer
	format Format
	st     styles
}

// New creates a Renderer writing plain text to w.
func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{w: w, format: FormatText, st: newStyles(false)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSON writes v as indented JSON regardless of the configured format.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Schedule renders the critical path calculation for one plan.
func (r *Renderer) Schedule(planID string, res *cpm.Result) error {
	if r.format == FormatJSON {
		return r.JSON(struct {
			PlanID string `json:"plan_id"`
			*cpm.Result
		}{planID, res})
	}
	var b strings.Builder
	r.title(&b, "PLAN "+planID)
	r.schedule(&b, res)
	return r.flush(&b)
}

// Forecast renders a completion forecast.
func (r *Renderer) Forecast(fc *forecast.Forecast) error {
	if r.format == FormatJSON {
		return r.JSON(fc)
	}
	var b strings.Builder
	r.forecast(&b, fc)
	return r.flush(&b)
}

// Bottlenecks renders a bottleneck analysis.
func (r *Renderer) Bottlenecks(an *bottleneck.Analysis) error {
	if r.format == FormatJSON {
		return r.JSON(an)
	}
	var b strings.Builder
	r.bottlenecks(&b, an)
	return r.flush(&b)
}

// Optimization renders an optimizer proposal.
func (r *Renderer) Optimization(res *optimizer.Result) error {
	if r.format == FormatJSON {
		return r.JSON(res)
	}
	var b strings.Builder
	r.optimization(&b, res)
	return r.flush(&b)
}

// Validation renders the outcome of a snapshot check.
func (r *Renderer) Validation(v *planning.Validation) error {
	if r.format == FormatJSON {
		return r.JSON(v)
	}
	var b strings.Builder
	r.section(&b, "VALIDATION "+v.PlanID)
	if v.OK() {
		fmt.Fprintln(&b, r.st.success.Render("✓ no problems found"))
		return r.flush(&b)
	}
	for _, e := range v.Errors {
		fmt.Fprintf(&b, "%s %s\n", r.st.failure.Render("✗"), e)
	}
	for _, bs := range v.BlockedStates {
		fmt.Fprintf(&b, "%s %s\n", r.st.warning.Render("!"), bs.Message)
	}
	return r.flush(&b)
}

// Report renders every section of a full analysis.
func (r *Renderer) Report(rep *planning.Report) error {
	if r.format == FormatJSON {
		return r.JSON(rep)
	}
	var b strings.Builder
	r.report(&b, rep)
	return r.flush(&b)
}

// Batch renders a multi-plan run: every successful report, then the
// failures.
func (r *Renderer) Batch(batch *planning.Batch) error {
	if r.format == FormatJSON {
		return r.JSON(batch)
	}
	var b strings.Builder
	for _, res := range batch.Results {
		if res.Report != nil {
			r.report(&b, res.Report)
		}
	}
	failed := batch.Failed()
	if len(failed) > 0 {
		r.section(&b, "FAILED PLANS")
		for _, res := range failed {
			fmt.Fprintf(&b, "%s %s: %s\n", r.st.failure.Render("✗"), res.PlanID, res.Error)
		}
		fmt.Fprintln(&b)
	}
	fmt.Fprintf(&b, "%s\n", r.st.muted.Render(fmt.Sprintf("%d plans analyzed, %d failed (run %s)",
		len(batch.Results), len(failed), batch.RunID)))
	return r.flush(&b)
}

func (r *Renderer) report(b *strings.Builder, rep *planning.Report) {
	name := rep.PlanID
	if rep.Name != "" {
		name = fmt.Sprintf("%s (%s)", rep.PlanID, rep.Name)
	}
	r.title(b, "PLAN "+name)
	fmt.Fprintln(b, r.st.muted.Render(fmt.Sprintf("run %s, generated %s",
		rep.RunID, rep.GeneratedAt.Format("2006-01-02 15:04:05"))))
	fmt.Fprintln(b)

	if rep.Schedule != nil {
		r.schedule(b, rep.Schedule)
	}
	if rep.Forecast != nil {
		r.forecast(b, rep.Forecast)
	}
	if rep.Bottlenecks != nil {
		r.bottlenecks(b, rep.Bottlenecks)
	}
	if rep.Optimization != nil {
		r.optimization(b, rep.Optimization)
	}
	if len(rep.Warnings) > 0 {
		r.section(b, "WARNINGS")
		for _, w := range rep.Warnings {
			fmt.Fprintf(b, "%s %s\n", r.st.warning.Render("!"), w)
		}
		fmt.Fprintln(b)
	}
}

func (r *Renderer) schedule(b *strings.Builder, res *cpm.Result) {
	r.section(b, "SCHEDULE")
	t := r.table("TASK", "ES", "EF", "LS", "LF", "SLACK", "WAVE", "")
	for _, id := range res.TopoOrder {
		s := res.Schedules[id]
		mark := ""
		if s.IsCritical {
			mark = "critical"
		}
		t.Row(id, hours(s.EarliestStart), hours(s.EarliestFinish), hours(s.LatestStart),
			hours(s.LatestFinish), hours(s.Slack), fmt.Sprint(s.Wave), mark)
	}
	fmt.Fprintln(b, t.String())
	r.criticalPaths(b, res)
	fmt.Fprintf(b, "Project duration: %sh\n", hours(res.ProjectDuration))
	fmt.Fprintf(b, "Parallel waves: %d\n\n", len(res.Waves))
}

// criticalPaths prints each zero-slack chain on its own line. Parallel
// critical branches share a prefix, so they are never joined into one arrow.
func (r *Renderer) criticalPaths(b *strings.Builder, res *cpm.Result) {
	paths := res.CriticalPaths
	if len(paths) == 0 && len(res.CriticalPath) > 0 {
		paths = [][]string{res.CriticalPath}
	}
	if len(paths) <= 1 {
		chain := ""
		if len(paths) == 1 {
			chain = strings.Join(paths[0], " → ")
		}
		fmt.Fprintf(b, "Critical path: %s\n", r.st.critical.Render(chain))
		return
	}
	fmt.Fprintf(b, "Critical paths: %d\n", len(paths))
	for _, p := range paths {
		fmt.Fprintf(b, "  %s\n", r.st.critical.Render(strings.Join(p, " → ")))
	}
}

func (r *Renderer) forecast(b *strings.Builder, fc *forecast.Forecast) {
	r.section(b, "FORECAST")
	fmt.Fprintf(b, "Confidence: %.0f%% (z=%.3g), sampled in %s over %sh of critical work\n",
		fc.Confidence*100, fc.ZScore, fc.Unit, hours(fc.TotalHours))
	fmt.Fprintf(b, "Expected:   %s\n", r.st.success.Render(date(fc.ExpectedCompletion)))
	fmt.Fprintf(b, "Best case:  %s\n", date(fc.BestCase))
	fmt.Fprintf(b, "Worst case: %s\n", r.st.warning.Render(date(fc.WorstCase)))

	t := r.table("DATE", "PROGRESS", "LOWER", "UPPER")
	for _, p := range sample(fc.Timeline, timelineRows) {
		t.Row(date(p.Date), pct(p.Value), pct(p.LowerBound), pct(p.UpperBound))
	}
	fmt.Fprintln(b, t.String())
	fmt.Fprintln(b)
}

func (r *Renderer) bottlenecks(b *strings.Builder, an *bottleneck.Analysis) {
	r.section(b, "BOTTLENECKS")
	imp := an.Impact
	fmt.Fprintf(b, "Risk score: %s  (%d critical, %d high, %d medium, %d low; ~%.1f days of delay)\n",
		r.st.severity(imp.RiskScore).Render(fmt.Sprintf("%.1f", imp.RiskScore)),
		imp.Critical, imp.High, imp.Medium, imp.Low, imp.EstimatedDelayDays)
	if an.PathsTruncated {
		fmt.Fprintln(b, r.st.muted.Render(fmt.Sprintf("chain search stopped after %d paths", an.PathsExplored)))
	}
	if len(an.Findings) == 0 {
		fmt.Fprintln(b, r.st.success.Render("✓ no bottlenecks found"))
		fmt.Fprintln(b)
		return
	}

	t := r.table("SEVERITY", "TYPE", "FINDING")
	for _, f := range an.Findings {
		t.Row(r.st.severity(f.Severity).Render(fmt.Sprintf("%.1f", f.Severity)), string(f.Type), truncate(f.Description, descriptionWidth))
	}
	fmt.Fprintln(b, t.String())

	if len(an.Recommendations) > 0 {
		fmt.Fprintln(b, "Recommendations:")
		for _, rec := range an.Recommendations {
			fmt.Fprintf(b, "  - [%s] %s\n", rec.Priority, rec.Description)
		}
	}
	fmt.Fprintln(b)
}

func (r *Renderer) optimization(b *strings.Builder, res *optimizer.Result) {
	r.section(b, "OPTIMIZATION")
	status := r.st.success
	if res.Status != optimizer.StatusOptimal {
		status = r.st.warning
	}
	fmt.Fprintf(b, "Target: %s, status: %s\n", res.Target, status.Render(string(res.Status)))

	if len(res.Assignments) > 0 {
		t := r.table("TASK", "RESOURCE", "HOURS", "COST")
		for _, a := range res.Assignments {
			t.Row(a.TaskID, a.ResourceID, hours(a.Hours), fmt.Sprintf("%.2f", a.Cost))
		}
		fmt.Fprintln(b, t.String())
	}
	for _, adj := range res.Adjustments {
		fmt.Fprintf(b, "  %s: %sh → %sh (%s)\n", adj.TaskID,
			hours(adj.OriginalDuration), hours(adj.AdjustedDuration), adj.Reason)
	}
	if len(res.Unassigned) > 0 {
		fmt.Fprintf(b, "%s %s\n", r.st.warning.Render("Unassigned:"), strings.Join(res.Unassigned, ", "))
	}

	t := r.table("METRIC", "BEFORE", "AFTER")
	t.Row("duration (h)", hours(res.Before.Duration), hours(res.After.Duration))
	t.Row("cost", fmt.Sprintf("%.2f", res.Before.Cost), fmt.Sprintf("%.2f", res.After.Cost))
	t.Row("utilization", pct(res.Before.Utilization), pct(res.After.Utilization))
	t.Row("overallocated", fmt.Sprint(res.Before.Overallocated), fmt.Sprint(res.After.Overallocated))
	fmt.Fprintln(b, t.String())
	fmt.Fprintln(b)
}

func (r *Renderer) title(b *strings.Builder, s string) {
	fmt.Fprintln(b, r.st.title.Render(s))
}

func (r *Renderer) section(b *strings.Builder, s string) {
	fmt.Fprintln(b, r.st.section.Render(s))
	fmt.Fprintln(b, r.st.border.Render(strings.Repeat("─", ruleWidth)))
}

func (r *Renderer) table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.st.border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.st.header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

func (r *Renderer) flush(b *strings.Builder) error {
	_, err := io.WriteString(r.w, b.String())
	return err
}

// truncate shortens s to width visible columns, ending in "...". Escape
// sequences and wide characters are measured by what they display.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "...")
}

// sample keeps at most n points, always including the first and last.
func sample(points []forecast.Point, n int) []forecast.Point {
	if len(points) <= n {
		return points
	}
	out := make([]forecast.Point, 0, n)
	step := float64(len(points)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, points[int(float64(i)*step+0.5)])
	}
	return out
}

func hours(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func date(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
