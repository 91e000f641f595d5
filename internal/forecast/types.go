package forecast

import (
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/cadence/internal/domain"
)

// Unit is the time unit a forecast is sampled in.
type Unit string

const (
	UnitHours Unit = "hours"
	UnitDays  Unit = "days"
	UnitWeeks Unit = "weeks"
)

// Hours returns the length of one unit in hours. Unknown units count as days.
func (u Unit) Hours() float64 {
	switch u {
	case UnitHours:
		return 1
	case UnitWeeks:
		return 168
	default:
		return 24
	}
}

// Duration returns the length of one unit.
func (u Unit) Duration() time.Duration {
	return time.Duration(u.Hours() * float64(time.Hour))
}

// ParseUnit accepts singular or plural unit names in any case.
func ParseUnit(s string) (Unit, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case "hour", "h":
		return UnitHours, nil
	case "day", "d", "":
		return UnitDays, nil
	case "week", "w":
		return UnitWeeks, nil
	}
	return "", fmt.Errorf("unknown time unit %q (want hours, days or weeks)", s)
}

// Request is the input to one forecast.
type Request struct {
	PlanID string
	// CriticalPath holds the critical-path tasks; only their durations are used.
	CriticalPath []domain.Task
	// Confidence is the two-sided interval, e.g. 0.95. Zero means 0.95.
	Confidence float64
	Unit       Unit
	// Start anchors point dates. Zero means now.
	Start time.Time
}

// Point is one sample of the progress curve. Values are percent complete.
type Point struct {
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
}

// Forecast is the projected progress curve and completion dates.
type Forecast struct {
	PlanID             string    `json:"plan_id,omitempty"`
	Timeline           []Point   `json:"timeline"`
	ExpectedCompletion time.Time `json:"expected_completion"`
	BestCase           time.Time `json:"best_case"`
	WorstCase          time.Time `json:"worst_case"`
	Confidence         float64   `json:"confidence"`
	ZScore             float64   `json:"z_score"`
	Unit               Unit      `json:"unit"`
	TotalHours         float64   `json:"total_hours"`
}
