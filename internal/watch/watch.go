// Package watch polls a controllers directory and reports when the set of
// controller files, or any of their contents, changes.
//
// Files are selected with the same autoroute.Scanner used for discovery, so
// ignored files (including the generated registration file) never trigger
// a change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/vango-dev/autoroute/pkg/autoroute"
)

// DefaultInterval is the polling interval when Config.Interval is zero.
const DefaultInterval = 250 * time.Millisecond

// Op is the kind of change to a file.
type Op int

const (
	Created Op = iota
	Modified
	Removed
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Change is a change to one controller file.
type Change struct {
	Path string
	Op   Op
}

// Config configures a Watcher.
type Config struct {
	// Dir is the controllers directory.
	Dir string

	// Scanner selects the files to watch.
	Scanner autoroute.Scanner

	// Interval is the polling interval.
	Interval time.Duration

	Logger *slog.Logger
}

// Watcher polls Config.Dir and calls the OnChange callback once per poll
// that saw changes, with every change from that poll.
type Watcher struct {
	config   Config
	logger   *slog.Logger
	mu       sync.Mutex
	onChange func([]Change)
	running  bool
	stopCh   chan struct{}
	modTimes map[string]time.Time
}

// New creates a watcher. It does not poll until Start is called.
func New(config Config) *Watcher {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		config:   config,
		logger:   logger,
		modTimes: make(map[string]time.Time),
	}
}

// OnChange sets the callback for changes.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start records the current files and polls until ctx is done or Stop is
// called. It returns an error only if the initial scan fails.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	snapshot, err := w.snapshot()
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.modTimes = snapshot
	w.mu.Unlock()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			w.poll()
		}
	}
}

// Stop stops a running watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning reports whether the watcher is polling.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) poll() {
	current, err := w.snapshot()
	if err != nil {
		w.logger.Warn("watch: scan failed", "dir", w.config.Dir, "error", err)
		return
	}

	w.mu.Lock()
	changes := diff(w.modTimes, current)
	w.modTimes = current
	callback := w.onChange
	w.mu.Unlock()

	if len(changes) > 0 && callback != nil {
		callback(changes)
	}
}

func (w *Watcher) snapshot() (map[string]time.Time, error) {
	files, err := w.config.Scanner.Find(w.config.Dir)
	if err != nil {
		return nil, err
	}
	modTimes := make(map[string]time.Time, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			// Removed between the walk and the stat.
			continue
		}
		modTimes[f] = info.ModTime()
	}
	return modTimes, nil
}

// diff returns the changes from prev to next, sorted by path.
func diff(prev, next map[string]time.Time) []Change {
	var changes []Change
	for path, mod := range next {
		old, ok := prev[path]
		switch {
		case !ok:
			changes = append(changes, Change{Path: path, Op: Created})
		case !mod.Equal(old):
			changes = append(changes, Change{Path: path, Op: Modified})
		}
	}
	for path := range prev {
		if _, ok := next[path]; !ok {
			changes = append(changes, Change{Path: path, Op: Removed})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}
