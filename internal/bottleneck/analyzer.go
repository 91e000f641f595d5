// Package bottleneck detects resource, dependency and skill bottlenecks in a
// plan and turns them into scored findings and recommendations.
//
// Findings from every detector are pooled, deduplicated by (type,
// description) and sorted by severity. Recommendations are derived per
// finding, deduplicated the same way and sorted high > medium > low.
package bottleneck

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/Iron-Ham/cadence/internal/errors"
)

// Default analyzer values.
const (
	defaultFanThreshold     = 3
	defaultChainLength      = 4
	defaultMaxPaths         = 10000
	defaultMaxChainFindings = 3

	maxDelayDays = 60.0
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithFanThreshold sets the edge count above which fan-in or fan-out is a
// bottleneck.
func WithFanThreshold(n int) Option {
	return func(a *Analyzer) { a.fanThreshold = n }
}

// WithChainLength sets the task count above which a chain is a bottleneck.
func WithChainLength(n int) Option {
	return func(a *Analyzer) { a.chainLength = n }
}

// WithMaxPaths bounds the number of source-to-sink paths enumerated.
func WithMaxPaths(n int) Option {
	return func(a *Analyzer) { a.maxPaths = n }
}

// WithMaxChainFindings limits how many long chains are reported; the
// longest are kept.
func WithMaxChainFindings(n int) Option {
	return func(a *Analyzer) { a.maxChainFindings = n }
}

// Analyzer runs the bottleneck detectors. It holds only configuration and is
// safe for concurrent use.
type Analyzer struct {
	fanThreshold     int
	chainLength      int
	maxPaths         int
	maxChainFindings int
}

// New creates an Analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		fanThreshold:     defaultFanThreshold,
		chainLength:      defaultChainLength,
		maxPaths:         defaultMaxPaths,
		maxChainFindings: defaultMaxChainFindings,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs every detector over the input.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Analysis, error) {
	if in.Graph == nil {
		return nil, errors.NewValidationError("bottleneck analysis requires a task graph").WithField("graph")
	}
	started := time.Now()

	out := &Analysis{PlanID: in.PlanID}

	var findings []Finding
	util, resourceFindings := a.resourceFindings(in)
	out.Utilization = util
	findings = append(findings, resourceFindings...)
	findings = append(findings, a.fanFindings(in.Graph)...)

	chains, explored, truncated, err := a.chainFindings(ctx, in.Graph)
	if err != nil {
		return nil, contextError(err, time.Since(started))
	}
	out.PathsExplored = explored
	out.PathsTruncated = truncated
	findings = append(findings, chains...)
	findings = append(findings, a.skillFindings(in)...)

	out.Findings = dedupFindings(findings)
	sortFindings(out.Findings)

	out.Recommendations = recommend(out.Findings)
	out.Impact = summarize(out.Findings)
	return out, nil
}

func dedupFindings(in []Finding) []Finding {
	seen := make(map[string]bool, len(in))
	out := make([]Finding, 0, len(in))
	for _, f := range in {
		if seen[f.key()] {
			continue
		}
		seen[f.key()] = true
		out = append(out, f)
	}
	return out
}

func sortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].Severity != fs[j].Severity {
			return fs[i].Severity > fs[j].Severity
		}
		if fs[i].Type != fs[j].Type {
			return fs[i].Type < fs[j].Type
		}
		return fs[i].Description < fs[j].Description
	})
}

// summarize counts findings per severity band, estimates delay as a weighted
// sum of severities capped at maxDelayDays, and derives a 0..10 risk score.
func summarize(fs []Finding) Impact {
	var imp Impact
	delay := 0.0
	for _, f := range fs {
		switch {
		case f.Severity >= 8:
			imp.Critical++
		case f.Severity >= 6:
			imp.High++
		case f.Severity >= 4:
			imp.Medium++
		default:
			imp.Low++
		}
		delay += f.Type.delayMultiplier() * f.Severity
	}
	imp.EstimatedDelayDays = round2(math.Min(delay, maxDelayDays))

	risk := float64(imp.Critical)*2.5 + float64(imp.High)*1.5 + float64(imp.Medium)*0.75 + float64(imp.Low)*0.25
	imp.RiskScore = round2(math.Min(risk, 10))
	return imp
}

func contextError(err error, elapsed time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError("bottleneck path enumeration", elapsed).WithCause(err)
	}
	return errors.Join(errors.ErrCanceled, err)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
