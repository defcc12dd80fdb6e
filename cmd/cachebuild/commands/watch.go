package commands

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/cachebuild/internal/logfields"
	"git.home.luguber.info/inful/cachebuild/internal/watch"
)

// WatchCmd rebuilds the package whenever the source tree changes.
type WatchCmd struct {
	Output   string `short:"o" help:"Output directory for built artifacts"`
	CacheDir string `name:"cache-dir" help:"Dependency cache directory"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rebuild := func(ctx context.Context) {
		// Reload the project each round so manifest edits (new dependency
		// locks) take effect on the next build.
		p, err := loadProject(root)
		if err != nil {
			slog.Error("Build skipped", logfields.Error(err))
			return
		}
		defer p.close()

		if _, err := runBuild(ctx, root, p, w.CacheDir, w.Output); err != nil {
			slog.Error("Build failed", logfields.Error(err))
		}
	}

	// One build up front, then rebuild on change.
	rebuild(ctx)

	p, err := loadProject(root)
	if err != nil {
		return err
	}
	exclude := []string{".git", ".hg", ".svn", "target", "out", p.cfg.OutputDir}
	debounce := p.cfg.Watch.Debounce
	p.close()

	watcher := watch.New(root.Project, debounce, exclude, rebuild)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
