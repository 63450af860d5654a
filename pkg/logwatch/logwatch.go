// Package logwatch waits for the execution log written by an external query
// runner to stop changing.
package logwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dd0wney/cluso-pathbench/pkg/logging"
)

// DefaultQuiet is how long the log must be left untouched before it is
// considered complete.
const DefaultQuiet = 2 * time.Second

// ErrWatcherClosed is returned when fsnotify stops delivering events.
var ErrWatcherClosed = errors.New("log watcher closed")

// Result describes the log once it became stable.
type Result struct {
	Path   string
	Size   int64
	Events int
	Waited time.Duration
}

// Watcher waits for a single file to become stable.
type Watcher struct {
	quiet  time.Duration
	logger logging.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithQuiet sets the quiet period. Values <= 0 use DefaultQuiet.
func WithQuiet(d time.Duration) Option {
	return func(w *Watcher) { w.quiet = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a Watcher.
func New(opts ...Option) *Watcher {
	w := &Watcher{}
	for _, opt := range opts {
		opt(w)
	}
	if w.quiet <= 0 {
		w.quiet = DefaultQuiet
	}
	w.logger = logging.OrDefault(w.logger).With(logging.Component("logwatch"))
	return w
}

// WaitStable returns once path exists and has seen no write, create, rename
// or removal for the quiet period, or when ctx is done.
func WaitStable(ctx context.Context, path string, quiet time.Duration) (Result, error) {
	return New(WithQuiet(quiet)).Wait(ctx, path)
}

// Wait blocks until path is stable. The parent directory is watched so the
// file may be created after Wait starts.
func (w *Watcher) Wait(ctx context.Context, path string) (Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return Result{}, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	start := time.Now()
	res := Result{Path: abs}
	timer := time.NewTimer(w.quiet)
	defer timer.Stop()

	w.logger.Debug("waiting for log to settle", logging.Path(abs), logging.Duration("quiet", w.quiet))

	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return res, ErrWatcherClosed
			}
			if filepath.Clean(ev.Name) != abs || ev.Op == fsnotify.Chmod {
				continue
			}
			res.Events++
			timer.Reset(w.quiet)

		case err, ok := <-fw.Errors:
			if !ok {
				return res, ErrWatcherClosed
			}
			w.logger.Warn("watch error", logging.Path(abs), logging.Error(err))

		case <-timer.C:
			info, err := os.Stat(abs)
			if err != nil {
				// not written yet; keep waiting for a create event
				timer.Reset(w.quiet)
				continue
			}
			res.Size = info.Size()
			res.Waited = time.Since(start)
			w.logger.Info("log settled", logging.Path(abs),
				logging.Int("events", res.Events), logging.Latency(res.Waited))
			return res, nil
		}
	}
}
