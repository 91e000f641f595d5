package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/errors"
)

// Format is a snapshot file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.NewValidationError("snapshot file must end in .yaml, .yml or .json").
			WithField("path").WithValue(path)
	}
}

// document is the on-disk shape. A file holds either one plan at the top
// level or a list under "plans".
type document struct {
	domain.Snapshot `yaml:",inline"`
	Plans           []domain.Snapshot `json:"plans,omitempty" yaml:"plans,omitempty"`
}

func (d *document) multi() bool { return len(d.Plans) > 0 }

// snapshots returns pointers into the document so edits are written back.
func (d *document) snapshots() []*domain.Snapshot {
	if !d.multi() {
		return []*domain.Snapshot{&d.Snapshot}
	}
	out := make([]*domain.Snapshot, len(d.Plans))
	for i := range d.Plans {
		out[i] = &d.Plans[i]
	}
	return out
}

// assignIDs names plans that carry no ID after the file they came from, so
// IDs stay stable across reads.
func (d *document) assignIDs(path string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	plans := d.snapshots()
	for i, s := range plans {
		if s.PlanID != "" {
			continue
		}
		if len(plans) == 1 {
			s.PlanID = base
		} else {
			s.PlanID = fmt.Sprintf("%s-%d", base, i+1)
		}
	}
}

func decode(data []byte, format Format) (*document, error) {
	var doc document
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	default:
		return nil, errors.NewValidationError("unknown snapshot format").WithValue(string(format))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrSnapshotCorrupted, err)
	}
	return &doc, nil
}

func encode(doc *document, format Format) ([]byte, error) {
	var v any = &doc.Snapshot
	if doc.multi() {
		v = struct {
			Plans []domain.Snapshot `json:"plans" yaml:"plans"`
		}{doc.Plans}
	}

	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, errors.NewValidationError("unknown snapshot format").WithValue(string(format))
	}
}
