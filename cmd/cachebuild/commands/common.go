package commands

import (
	"context"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/cachebuild/internal/config"
	"git.home.luguber.info/inful/cachebuild/internal/depcache"
	"git.home.luguber.info/inful/cachebuild/internal/events"
	"git.home.luguber.info/inful/cachebuild/internal/logfields"
	"git.home.luguber.info/inful/cachebuild/internal/manifest"
	"git.home.luguber.info/inful/cachebuild/internal/metrics"
	"git.home.luguber.info/inful/cachebuild/internal/sourcetree"
	"git.home.luguber.info/inful/cachebuild/internal/toolchain"
	"git.home.luguber.info/inful/cachebuild/internal/workspace"
	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config   string           `short:"c" help:"Configuration file path" default:"cachebuild.yaml"`
	Project  string           `short:"C" help:"Project directory" default:"."`
	Platform string           `help:"Target platform (os/arch), defaults to the host"`
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the package against the dependency cache"`
	Check   CheckCmd   `cmd:"" help:"Run all verification checks"`
	Run     RunCmd     `cmd:"" help:"Build (if needed) and execute the wrapped artifact"`
	Develop DevelopCmd `cmd:"" help:"Enter the interactive development shell"`
	Info    InfoCmd    `cmd:"" help:"Show derived identity, fingerprint and cache status"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild automatically on source changes"`
	Gc      GcCmd      `cmd:"" help:"Prune stale dependency cache entries"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// platform resolves the target platform for this invocation.
func (c *CLI) platform() string {
	if c.Platform != "" {
		return c.Platform
	}
	return manifest.HostPlatform()
}

// project bundles everything derived once at the start of an invocation. The
// manifest is parsed a single time; the identity and fingerprint derived here
// are the ones every downstream component sees.
type project struct {
	cfg         *config.Config
	man         *manifest.Manifest
	fingerprint string
	platform    string
	rec         metrics.Recorder
	pub         events.Publisher
}

func loadProject(root *CLI) (*project, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}

	man, err := manifest.Load(root.Project)
	if err != nil {
		return nil, err
	}

	fp, err := man.Fingerprint()
	if err != nil {
		return nil, err
	}

	p := &project{
		cfg:         cfg,
		man:         man,
		fingerprint: fp,
		platform:    root.platform(),
		rec:         metrics.NoopRecorder{},
		pub:         events.NoopPublisher{},
	}
	if cfg.Metrics.Enabled {
		p.rec = metrics.NewPrometheusRecorder(prom.NewRegistry())
	}
	if cfg.Events.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.Events)
		if err != nil {
			slog.Warn("Event publishing disabled", logfields.Error(err))
		} else {
			p.pub = pub
		}
	}
	return p, nil
}

func (p *project) close() {
	p.pub.Close()
}

func (p *project) event(eventType, buildID string, detail map[string]string) {
	p.pub.Publish(events.Event{
		Type:        eventType,
		BuildID:     buildID,
		Package:     p.man.Package.Name,
		Version:     p.man.Package.Version,
		Fingerprint: p.fingerprint,
		Platform:    p.platform,
		Detail:      detail,
	})
}

// snapshot extracts the filtered source tree into an ephemeral workspace.
// The returned cleanup removes the workspace.
func (p *project) snapshot(root *CLI) (*sourcetree.Snapshot, func(), error) {
	ws := workspace.NewManager(p.cfg.WorkspaceDir)
	if err := ws.Create(); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to cleanup workspace", logfields.Error(err))
		}
	}

	snap, err := sourcetree.NewExtractor(p.cfg.OutputDir).Extract(root.Project, ws.Path())
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return snap, cleanup, nil
}

// openCache opens the persistent dependency cache.
func (p *project) openCache(cacheDirFlag string) (*depcache.DirCache, error) {
	return depcache.Open(config.ResolveCacheDir(cacheDirFlag, p.cfg), p.rec)
}

// ensureDeps returns the dependency cache entry for the current fingerprint,
// compiling the locked graph on first need. The compilation never sees
// project source.
func (p *project) ensureDeps(ctx context.Context, cache depcache.Cache, tc toolchain.Toolchain) (*depcache.Entry, error) {
	if _, err := cache.Lookup(ctx, p.fingerprint, p.platform); err == nil {
		p.event(events.TypeCacheHit, "", nil)
	} else {
		p.event(events.TypeCacheMiss, "", nil)
	}

	return cache.GetOrBuild(ctx, p.fingerprint, p.platform, func(ctx context.Context, destDir string) error {
		return tc.CompileDeps(ctx, p.man.Dependencies, destDir)
	})
}
