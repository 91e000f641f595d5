// Package watch notifies when snapshot files change on disk.
//
// Snapshot files are replaced by atomic rename, both by the file store and by
// most editors, so the watcher observes each file's parent directory and
// filters events by name. Bursts of events for one save are debounced into a
// single notification.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/cadence/internal/errors"
	"github.com/Iron-Ham/cadence/internal/event"
	"github.com/Iron-Ham/cadence/internal/logging"
)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle before notifying.
const DefaultDebounce = 50 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the settle interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithBus publishes a SnapshotChangedEvent for every change.
func WithBus(bus *event.Bus) Option {
	return func(w *Watcher) { w.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher watches a set of snapshot files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	bus      *event.Bus
	logger   *logging.Logger

	// absolute file path -> watched
	files map[string]bool
	// directory -> number of watched files in it
	dirs map[string]int

	onChange func(path string)

	mu       sync.RWMutex
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	stopOnce sync.Once
}

// New creates a Watcher. Call Start to begin delivering notifications.
func New(opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}
	w := &Watcher{
		watcher:  fw,
		debounce: DefaultDebounce,
		logger:   logging.NopLogger(),
		files:    make(map[string]bool),
		dirs:     make(map[string]int),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// SetChangeCallback sets the function called after a watched file settles.
// It runs on the watcher goroutine, one change at a time.
func (w *Watcher) SetChangeCallback(cb func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = cb
}

// Add starts watching a snapshot file. The file must exist.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return errors.NewNotFoundError("snapshot file", path).WithCause(err)
	}
	if info.IsDir() {
		return errors.NewValidationError(fmt.Sprintf("%s is a directory", path)).WithField("path")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[abs] {
		return nil
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "watch %s", dir)
		}
	}
	w.dirs[dir]++
	w.files[abs] = true
	w.logger.Debug("watching snapshot", "path", abs)
	return nil
}

// Remove stops watching a file.
func (w *Watcher) Remove(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[abs] {
		return
	}
	delete(w.files, abs)

	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		_ = w.watcher.Remove(dir)
	}
}

// Files returns the watched paths.
func (w *Watcher) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	return out
}

// Start begins processing events in a background goroutine.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go w.loop()
}

// Stop stops the watcher and waits for the event loop to exit. It is safe
// to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()

		w.mu.RLock()
		started := w.started
		w.mu.RUnlock()
		if started {
			<-w.doneCh
		}
	})
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	w.Start()
	defer w.Stop()
	<-ctx.Done()
	return nil
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	timer := time.NewTimer(0)
	<-timer.C

	pending := make(map[string]struct{})

	for {
		select {
		case <-w.stopCh:
			timer.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.watching(ev.Name) {
				continue
			}
			pending[filepath.Clean(ev.Name)] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			changed := pending
			pending = make(map[string]struct{})
			for path := range changed {
				w.notify(path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) watching(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files[filepath.Clean(path)]
}

func (w *Watcher) notify(path string) {
	// A rename away leaves nothing to reload; the replacement arrives as its
	// own create event.
	if _, err := os.Stat(path); err != nil {
		return
	}

	w.mu.RLock()
	cb := w.onChange
	w.mu.RUnlock()

	w.logger.Info("snapshot changed", "path", path)
	w.bus.Publish(event.NewSnapshotChangedEvent(path))
	if cb != nil {
		cb(path)
	}
}
