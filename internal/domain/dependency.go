package domain

import (
	"fmt"
	"strings"
)

// DependencyType is the closed set of relationships between two tasks.
// Only the scheduling types (FS, SS, FF, SF) constrain dates; BLOCKS and
// RELATES_TO are informational and excluded from critical-path computation.
type DependencyType string

const (
	// FinishToStart: the successor starts after the predecessor finishes.
	FinishToStart DependencyType = "FS"
	// StartToStart: the successor starts after the predecessor starts.
	StartToStart DependencyType = "SS"
	// FinishToFinish: the successor finishes after the predecessor finishes.
	FinishToFinish DependencyType = "FF"
	// StartToFinish: the successor finishes after the predecessor starts.
	StartToFinish DependencyType = "SF"
	// Blocks: the two tasks may not be active at the same time.
	Blocks DependencyType = "BLOCKS"
	// RelatesTo: purely informational link.
	RelatesTo DependencyType = "RELATES_TO"
)

// AllDependencyTypes returns every dependency type in declaration order.
func AllDependencyTypes() []DependencyType {
	return []DependencyType{FinishToStart, StartToStart, FinishToFinish, StartToFinish, Blocks, RelatesTo}
}

// String returns the string representation of the dependency type.
func (t DependencyType) String() string {
	return string(t)
}

// IsValid returns true if the type is one of the known constants.
func (t DependencyType) IsValid() bool {
	switch t {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish, Blocks, RelatesTo:
		return true
	default:
		return false
	}
}

// IsScheduling returns true for the types that participate in CPM.
func (t DependencyType) IsScheduling() bool {
	switch t {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	case Blocks, RelatesTo:
		return false
	default:
		return false
	}
}

// AllowsNegativeLag reports whether a negative lag (lead) is permitted.
// FS and BLOCKS forbid it.
func (t DependencyType) AllowsNegativeLag() bool {
	switch t {
	case FinishToStart, Blocks:
		return false
	case StartToStart, FinishToFinish, StartToFinish, RelatesTo:
		return true
	default:
		return false
	}
}

// ParseDependencyType accepts the short codes as well as the long names
// ("finish_to_start", "relates-to", ...), case-insensitively.
func ParseDependencyType(s string) (DependencyType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "FS", "FINISH_TO_START":
		return FinishToStart, nil
	case "SS", "START_TO_START":
		return StartToStart, nil
	case "FF", "FINISH_TO_FINISH":
		return FinishToFinish, nil
	case "SF", "START_TO_FINISH":
		return StartToFinish, nil
	case "BLOCKS":
		return Blocks, nil
	case "RELATES_TO", "RELATED":
		return RelatesTo, nil
	}
	return "", fmt.Errorf("unknown dependency type %q", s)
}

// Dependency links FromTaskID (predecessor) to ToTaskID (successor).
// Lag is expressed in hours and may be negative where the type allows it.
type Dependency struct {
	FromTaskID string         `json:"from_task_id" yaml:"from"`
	ToTaskID   string         `json:"to_task_id" yaml:"to"`
	Type       DependencyType `json:"type" yaml:"type"`
	Lag        float64        `json:"lag,omitempty" yaml:"lag,omitempty"`
}

// Key identifies an edge for duplicate detection.
func (d Dependency) Key() string {
	return d.FromTaskID + "\x00" + d.ToTaskID + "\x00" + string(d.Type)
}

// String returns a compact human-readable form, e.g. "a -FS+2-> b".
func (d Dependency) String() string {
	if d.Lag == 0 {
		return fmt.Sprintf("%s -%s-> %s", d.FromTaskID, d.Type, d.ToTaskID)
	}
	return fmt.Sprintf("%s -%s%+g-> %s", d.FromTaskID, d.Type, d.Lag, d.ToTaskID)
}
