// Package watch monitors a project directory and triggers rebuilds on source
// changes, with debouncing so editor save bursts cause one rebuild.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/cachebuild/internal/logfields"
	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a project tree and invokes a callback after changes
// settle.
type Watcher struct {
	root     string
	debounce time.Duration
	exclude  map[string]struct{}
	onChange func(ctx context.Context)
}

// New creates a watcher over root. Directories named in exclude (VCS
// metadata, output dirs) are not watched.
func New(root string, debounce time.Duration, exclude []string, onChange func(ctx context.Context)) *Watcher {
	ex := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		ex[name] = struct{}{}
	}
	return &Watcher{root: root, debounce: debounce, exclude: ex, onChange: onChange}
}

// Run watches until the context is canceled. The callback runs on the watch
// goroutine; a change arriving while the callback runs schedules another run.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := w.addRecursive(fsw, w.root); err != nil {
		return err
	}

	slog.Info("Watching for source changes", logfields.Path(w.root))

	var timer *time.Timer
	var timerCh <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.excluded(event.Name) {
				continue
			}
			// New directories need to be watched too.
			if event.Op.Has(fsnotify.Create) {
				_ = w.addRecursive(fsw, event.Name)
			}
			slog.Debug("Source change detected", logfields.Path(event.Name))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", logfields.Error(err))

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.onChange(ctx)
		}
	}
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil //nolint:nilerr // unreadable paths are simply not watched
		}
		if w.excluded(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			slog.Warn("Failed to watch directory", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (w *Watcher) excluded(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if _, skip := w.exclude[part]; skip {
			return true
		}
	}
	return false
}
