// Package forecast projects a progress curve over the critical path and
// derives best, expected and worst completion dates from it.
//
// Progress follows a logistic S-curve sampled at N evenly spaced points, where
// N is the critical-path length in the requested unit clamped to [10,100].
// Uncertainty grows linearly with elapsed fraction; bounds are the curve value
// plus or minus z times that uncertainty, clamped to [0,100].
package forecast

import (
	"context"
	"math"
	"time"

	"github.com/Iron-Ham/cadence/internal/errors"
)

// Default forecaster values.
const (
	defaultUncertaintyPercent = 20.0
	defaultConfidence         = 0.95
	defaultUnit               = UnitDays

	minSamples = 10
	maxSamples = 100

	// steepness of the logistic progress curve
	curveSteepness = 10.0
)

// Option configures a Forecaster.
type Option func(*Forecaster)

// WithUncertaintyPercent sets the uncertainty at completion, in progress points.
func WithUncertaintyPercent(pct float64) Option {
	return func(f *Forecaster) { f.uncertaintyPct = pct }
}

// WithBestCaseMargin sets how far before the expected date the best case
// falls when no lower bound reaches 100. Zero means one time unit.
func WithBestCaseMargin(d time.Duration) Option {
	return func(f *Forecaster) { f.bestCaseMargin = d }
}

// WithDefaultUnit sets the unit used when a request leaves it empty.
func WithDefaultUnit(u Unit) Option {
	return func(f *Forecaster) { f.defaultUnit = u }
}

// WithDefaultConfidence sets the confidence used when a request leaves it zero.
func WithDefaultConfidence(c float64) Option {
	return func(f *Forecaster) { f.defaultConfidence = c }
}

// WithClock overrides the time source used when a request has no start date.
func WithClock(now func() time.Time) Option {
	return func(f *Forecaster) { f.now = now }
}

// Forecaster produces timeline forecasts. It holds only configuration and is
// safe for concurrent use.
type Forecaster struct {
	uncertaintyPct    float64
	bestCaseMargin    time.Duration
	defaultUnit       Unit
	defaultConfidence float64
	now               func() time.Time
}

// New creates a Forecaster with the given options.
func New(opts ...Option) *Forecaster {
	f := &Forecaster{
		uncertaintyPct:    defaultUncertaintyPercent,
		defaultUnit:       defaultUnit,
		defaultConfidence: defaultConfidence,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ZScore maps a confidence level to its two-sided z-score. Unsupported
// levels use the 95% value.
func ZScore(confidence float64) float64 {
	switch confidence {
	case 0.90:
		return 1.645
	case 0.95:
		return 1.96
	case 0.99:
		return 2.576
	default:
		return 1.96
	}
}

// Progress is the logistic S-curve at normalized time x, clamped to [0,100].
func Progress(x float64) float64 {
	return clamp(100/(1+math.Exp(-curveSteepness*(x-0.5))), 0, 100)
}

// SampleCount returns the number of timeline points for a total duration.
func SampleCount(totalHours float64, unit Unit) int {
	n := int(math.Ceil(totalHours / unit.Hours()))
	if n < minSamples {
		return minSamples
	}
	if n > maxSamples {
		return maxSamples
	}
	return n
}

// Forecast builds the progress curve for the request. It returns an
// InsufficientDataError for an empty or zero-length critical path and a
// TimeoutError when ctx expires during sampling.
func (f *Forecaster) Forecast(ctx context.Context, req Request) (*Forecast, error) {
	started := f.now()

	if len(req.CriticalPath) == 0 {
		return nil, errors.NewInsufficientDataError("no critical-path tasks to forecast").WithPlanID(req.PlanID)
	}
	total := 0.0
	for _, t := range req.CriticalPath {
		total += t.EstimatedDuration
	}
	if total <= 0 {
		return nil, errors.NewInsufficientDataError("critical path has zero total duration").WithPlanID(req.PlanID)
	}

	confidence := req.Confidence
	if confidence == 0 {
		confidence = f.defaultConfidence
	}
	unit := req.Unit
	if unit == "" {
		unit = f.defaultUnit
	}
	start := req.Start
	if start.IsZero() {
		start = started
	}

	z := ZScore(confidence)
	n := SampleCount(total, unit)
	totalDur := hours(total)

	out := &Forecast{
		PlanID:     req.PlanID,
		Timeline:   make([]Point, 0, n),
		Confidence: confidence,
		ZScore:     z,
		Unit:       unit,
		TotalHours: total,
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, contextError(err, f.now().Sub(started))
		}
		x := float64(i) / float64(n-1)
		value := Progress(x)
		u := f.uncertaintyPct * x
		out.Timeline = append(out.Timeline, Point{
			Date:       start.Add(time.Duration(x * float64(totalDur))),
			Value:      value,
			LowerBound: clamp(value-z*u, 0, 100),
			UpperBound: clamp(value+z*u, 0, 100),
		})
	}

	last := out.Timeline[len(out.Timeline)-1]
	out.ExpectedCompletion = last.Date
	out.BestCase = f.bestCase(out.Timeline, unit)
	out.WorstCase = f.worstCase(out.Timeline, total)

	// bounds are computed independently; keep best <= expected <= worst
	if out.BestCase.After(out.ExpectedCompletion) {
		out.BestCase = out.ExpectedCompletion
	}
	if out.WorstCase.Before(out.ExpectedCompletion) {
		out.WorstCase = out.ExpectedCompletion
	}
	return out, nil
}

func (f *Forecaster) bestCase(points []Point, unit Unit) time.Time {
	for _, p := range points {
		if p.LowerBound >= 100 {
			return p.Date
		}
	}
	margin := f.bestCaseMargin
	if margin == 0 {
		margin = unit.Duration()
	}
	return points[len(points)-1].Date.Add(-margin)
}

// worstCase returns the first date the upper bound reaches 100, extrapolating
// the final upper-bound slope when it never does.
func (f *Forecaster) worstCase(points []Point, totalHours float64) time.Time {
	for _, p := range points {
		if p.UpperBound >= 100 {
			return p.Date
		}
	}

	last := points[len(points)-1]
	prev := points[len(points)-2]
	span := last.Date.Sub(prev.Date).Hours()
	slope := 0.0
	if span > 0 {
		slope = (last.UpperBound - prev.UpperBound) / span
	}
	if slope <= 0 {
		return last.Date.Add(hours(totalHours * f.uncertaintyPct / 100))
	}
	return last.Date.Add(hours((100 - last.UpperBound) / slope))
}

func contextError(err error, elapsed time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError("forecast sampling", elapsed).WithCause(err)
	}
	return errors.Join(errors.ErrCanceled, err)
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
