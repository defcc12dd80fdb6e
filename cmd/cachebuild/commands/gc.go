package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/cachebuild/internal/config"
	"git.home.luguber.info/inful/cachebuild/internal/depcache"
	"git.home.luguber.info/inful/cachebuild/internal/logfields"
	"git.home.luguber.info/inful/cachebuild/internal/metrics"
	"github.com/go-co-op/gocron/v2"
)

// GcCmd prunes dependency cache entries that have not been used within the
// retention window.
type GcCmd struct {
	CacheDir  string        `name:"cache-dir" help:"Dependency cache directory"`
	Retention time.Duration `help:"Remove entries unused for longer than this (default from config)"`
	Every     time.Duration `help:"Keep running and prune on this interval"`
}

func (g *GcCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	retention := cfg.GC.Retention
	if g.Retention > 0 {
		retention = g.Retention
	}

	cache, err := depcache.Open(config.ResolveCacheDir(g.CacheDir, cfg), metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer func() {
		_ = cache.Close()
	}()

	if g.Every <= 0 {
		return prune(context.Background(), cache, retention)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(g.Every),
		gocron.NewTask(func() {
			if err := prune(ctx, cache, retention); err != nil {
				slog.Error("Cache prune failed", logfields.Error(err))
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return err
	}

	scheduler.Start()
	slog.Info("Pruning on interval", slog.Duration("every", g.Every))
	<-ctx.Done()
	return scheduler.Shutdown()
}

func prune(ctx context.Context, cache depcache.Cache, retention time.Duration) error {
	removed, err := cache.Prune(ctx, retention)
	if err != nil {
		return err
	}
	slog.Info("Cache pruned", slog.Int("removed", removed), slog.Duration("retention", retention))
	return nil
}
