package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/errors"
	"github.com/Iron-Ham/cadence/internal/event"
)

// FileStore is a Repository backed by one snapshot file. Every operation
// re-reads the file, so edits made by other processes are always seen.
type FileStore struct {
	path   string
	format Format
	locks  planLocks
	bus    *event.Bus
}

// NewFileStore opens the snapshot file at path. The file must exist and be
// decodable. bus may be nil.
func NewFileStore(path string, bus *event.Bus) (*FileStore, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot path: %w", err)
	}
	fs := &FileStore{path: abs, format: format, bus: bus}
	if _, err := fs.read(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Path returns the absolute snapshot file path.
func (f *FileStore) Path() string { return f.path }

// LoadFile decodes every plan in a snapshot file without holding it open.
func LoadFile(path string) ([]*domain.Snapshot, error) {
	fs, err := NewFileStore(path, nil)
	if err != nil {
		return nil, err
	}
	return fs.Snapshots(context.Background())
}

// Snapshots returns copies of all plans in file order.
func (f *FileStore) Snapshots(ctx context.Context) ([]*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	plans := doc.snapshots()
	out := make([]*domain.Snapshot, len(plans))
	for i, s := range plans {
		out[i] = s.Clone()
	}
	return out, nil
}

// Snapshot implements Repository.
func (f *FileStore) Snapshot(ctx context.Context, planID string) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	s := find(doc, planID)
	if s == nil {
		return nil, planNotFound(planID)
	}
	return s.Clone(), nil
}

// PlanIDs implements Repository.
func (f *FileStore) PlanIDs(ctx context.Context) ([]string, error) {
	plans, err := f.Snapshots(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(plans))
	for i, s := range plans {
		ids[i] = s.PlanID
	}
	sort.Strings(ids)
	return ids, nil
}

// AddDependency implements Repository. The file is rewritten atomically.
func (f *FileStore) AddDependency(ctx context.Context, planID string, dep domain.Dependency) error {
	err := f.update(ctx, planID, func(s *domain.Snapshot) error {
		return appendDependency(s, dep)
	})
	if err != nil {
		return err
	}
	publishDependency(f.bus, planID, dep)
	return nil
}

// SetTaskStatus implements Repository.
func (f *FileStore) SetTaskStatus(ctx context.Context, planID, taskID string, status domain.TaskStatus) error {
	var old domain.TaskStatus
	err := f.update(ctx, planID, func(s *domain.Snapshot) error {
		var err error
		old, err = setStatus(s, taskID, status)
		return err
	})
	if err != nil {
		return err
	}
	publishStatus(f.bus, planID, taskID, old, status)
	return nil
}

// update runs fn on one plan under the plan lock and the file lock, then
// writes the file back if fn succeeded.
func (f *FileStore) update(ctx context.Context, planID string, fn func(*domain.Snapshot) error) error {
	unlock := f.locks.lock(planID)
	defer unlock()

	fl := newFileLock(f.path)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := f.read()
	if err != nil {
		return err
	}
	s := find(doc, planID)
	if s == nil {
		return planNotFound(planID)
	}
	if err := fn(s); err != nil {
		return err
	}
	return f.write(doc)
}

func (f *FileStore) read() (*document, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("snapshot file", f.path).WithCause(err)
		}
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	doc, err := decode(data, f.format)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", f.path)
	}
	doc.assignIDs(f.path)
	return doc, nil
}

// write replaces the snapshot file atomically: temp file, then rename.
func (f *FileStore) write(doc *document) error {
	data, err := encode(doc, f.format)
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func find(doc *document, planID string) *domain.Snapshot {
	for _, s := range doc.snapshots() {
		if s.PlanID == planID {
			return s
		}
	}
	return nil
}
