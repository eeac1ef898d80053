// Package watch reports debounced changes to a fixed set of input files.
package watch

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay is the default delay for coalescing rapid writes.
const DefaultDebounceDelay = 200 * time.Millisecond

// Change is one coalesced burst of file events.
type Change struct {
	Paths     []string  // Absolute paths that changed, sorted
	Timestamp time.Time // When the burst settled
}

// Watcher watches individual files. Their parent directories are watched so
// that editors which save by rename are picked up too.
type Watcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	changes chan Change
	errors  chan error
	done    chan struct{}

	mu      sync.Mutex
	delay   time.Duration
	pending map[string]bool
	timer   *time.Timer
	closed  bool
}

// New starts watching paths. Changes are reported delay after the last event
// of a burst; delay <= 0 uses DefaultDebounceDelay.
func New(paths []string, delay time.Duration) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher: watcher,
		files:   make(map[string]bool),
		changes: make(chan Change, 16),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
		delay:   delay,
		pending: make(map[string]bool),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	go w.processEvents()
	return w, nil
}

// Changes returns the channel of coalesced changes.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Files returns the watched file paths, sorted.
func (w *Watcher) Files() []string {
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.files[filepath.Clean(event.Name)] {
		return
	}
	// Chmod alone does not change content.
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	w.debounce(filepath.Clean(event.Name))
}

// debounce restarts the burst timer and records path as pending.
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.timer = nil
	w.mu.Unlock()

	sort.Strings(paths)
	select {
	case w.changes <- Change{Paths: paths, Timestamp: time.Now()}:
	case <-w.done:
	default:
		// Channel full; the pending re-evaluation will see the latest files anyway.
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
