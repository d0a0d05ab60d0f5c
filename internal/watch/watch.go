// Package watch re-runs a callback whenever a directory tree changes.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/assetcook/internal/logfields"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Options tune Watch.
type Options struct {
	// Debounce is the quiet period after the last event before Run fires.
	Debounce time.Duration
	// Ignore reports events that must not trigger a run, such as writes to
	// a ledger file stored inside the watched tree.
	Ignore func(absPath string) bool
}

// RunFunc is invoked after a burst of changes. Calls never overlap.
type RunFunc func(ctx context.Context)

// Watch starts an fsnotify watcher on root and calls run once per debounced
// burst of events until ctx is cancelled. New directories created at runtime
// are added to the watch list.
//
// run is called from the watch loop, so events arriving while it executes
// are queued and coalesced into the next burst.
func Watch(ctx context.Context, root string, opts Options, logger *slog.Logger, run RunFunc) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started",
		logfields.Path(root),
		slog.Duration("debounce", opts.Debounce))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(opts.Debounce)
			fire = timer.C
			return
		}
		timer.Reset(opts.Debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			timer, fire = nil, nil
			logger.Debug("watcher: change settled, re-running")
			run(ctx)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if opts.Ignore != nil && opts.Ignore(ev.Name) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							logfields.Path(ev.Name),
							logfields.Error(addErr))
					} else {
						logger.Debug("watcher: watching new dir", logfields.Path(ev.Name))
					}
				}
			}

			logger.Log(ctx, logfields.LevelTrace, "watcher: event",
				logfields.Path(ev.Name),
				slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", logfields.Error(watchErr))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
