package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/cadence/internal/errors"
	"github.com/Iron-Ham/cadence/internal/event"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// recorder collects change notifications.
type recorder struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.ch <- path
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

func (r *recorder) wait(t *testing.T) string {
	t.Helper()
	select {
	case p := <-r.ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
		return ""
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.Start()
	w.Stop()
	w.Stop()
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.Stop()
}

func TestWatcher_AddRejectsMissingAndDirectories(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	dir := t.TempDir()
	var notFound *errors.NotFoundError
	if err := w.Add(filepath.Join(dir, "missing.yaml")); !errors.As(err, &notFound) {
		t.Errorf("Add(missing) error = %v, want not found", err)
	}
	if err := w.Add(dir); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Add(dir) error = %v, want invalid input", err)
	}
}

func TestWatcher_AddRemove(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, a, "tasks: []\n")
	writeFile(t, b, "tasks: []\n")

	for _, p := range []string{a, b, a} {
		if err := w.Add(p); err != nil {
			t.Fatalf("Add(%s) error = %v", p, err)
		}
	}
	if got := len(w.Files()); got != 2 {
		t.Fatalf("Files() = %d entries, want 2", got)
	}
	if w.dirs[dir] != 2 {
		t.Errorf("directory refcount = %d, want 2", w.dirs[dir])
	}

	w.Remove(a)
	w.Remove(a)
	if w.dirs[dir] != 1 {
		t.Errorf("directory refcount after remove = %d, want 1", w.dirs[dir])
	}
	w.Remove(b)
	if _, ok := w.dirs[dir]; ok {
		t.Error("directory still tracked after its last file was removed")
	}
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	bus := event.NewBus()
	var mu sync.Mutex
	var published []string
	bus.Subscribe(event.TypeSnapshotChanged, func(e event.Event) {
		mu.Lock()
		published = append(published, e.(event.SnapshotChangedEvent).Path)
		mu.Unlock()
	})

	w, err := New(WithBus(bus), WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	path := filepath.Join(t.TempDir(), "plan.yaml")
	writeFile(t, path, "tasks: []\n")
	if err := w.Add(path); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	rec := newRecorder()
	w.SetChangeCallback(rec.record)
	w.Start()

	// Several writes inside one debounce window produce one notification.
	for i := 0; i < 5; i++ {
		writeFile(t, path, "tasks: []\n# edit\n")
		time.Sleep(5 * time.Millisecond)
	}

	if got := rec.wait(t); got != path {
		t.Errorf("notified path = %q, want %q", got, path)
	}
	time.Sleep(300 * time.Millisecond)
	if rec.count() != 1 {
		t.Errorf("notifications = %d, want 1", rec.count())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(published) != 1 || published[0] != path {
		t.Errorf("published = %v, want [%s]", published, path)
	}
}

func TestWatcher_AtomicReplace(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	writeFile(t, path, "tasks: []\n")
	if err := w.Add(path); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	rec := newRecorder()
	w.SetChangeCallback(rec.record)
	w.Start()

	tmp := path + ".tmp"
	writeFile(t, tmp, "tasks: []\n# replaced\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if got := rec.wait(t); got != path {
		t.Errorf("notified path = %q, want %q", got, path)
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	w, err := New(WithDebounce(20 * time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	writeFile(t, path, "tasks: []\n")
	if err := w.Add(path); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	rec := newRecorder()
	w.SetChangeCallback(rec.record)
	w.Start()

	writeFile(t, filepath.Join(dir, "other.yaml"), "tasks: []\n")
	writeFile(t, path+".lock", "")
	time.Sleep(200 * time.Millisecond)
	if rec.count() != 0 {
		t.Errorf("notifications = %d for unwatched files, want 0", rec.count())
	}
}
