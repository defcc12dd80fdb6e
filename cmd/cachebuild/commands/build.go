package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/cachebuild/internal/builder"
	"git.home.luguber.info/inful/cachebuild/internal/config"
	"git.home.luguber.info/inful/cachebuild/internal/depcache"
	"git.home.luguber.info/inful/cachebuild/internal/events"
	"git.home.luguber.info/inful/cachebuild/internal/sourcetree"
	"git.home.luguber.info/inful/cachebuild/internal/toolchain"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output   string `short:"o" help:"Output directory for built artifacts"`
	CacheDir string `name:"cache-dir" help:"Dependency cache directory"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	defer p.close()

	art, err := runBuild(context.Background(), root, p, b.CacheDir, b.Output)
	if err != nil {
		return err
	}
	fmt.Printf("Built %s (%s) -> %s\n", p.man.Package.Name, p.man.Package.Version, art.Path)
	return nil
}

// runBuild is the shared build pipeline: snapshot, dependency cache entry,
// package compilation. Used by build, run and watch.
func runBuild(ctx context.Context, root *CLI, p *project, cacheDirFlag, outputFlag string) (*builder.Artifact, error) {
	snap, cleanup, err := p.snapshot(root)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	cache, err := p.openCache(cacheDirFlag)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cache.Close()
	}()

	return buildAgainstCache(ctx, p, snap, cache, outputFlag)
}

// buildAgainstCache finishes a build given an extracted snapshot and an open
// cache.
func buildAgainstCache(ctx context.Context, p *project, snap *sourcetree.Snapshot, cache depcache.Cache, outputFlag string) (*builder.Artifact, error) {
	tc := toolchain.NewExec(p.man.Toolchain)

	p.event(events.TypeBuildStarted, "", nil)
	entry, err := p.ensureDeps(ctx, cache, tc)
	if err != nil {
		p.event(events.TypeBuildFailed, "", map[string]string{"stage": "dependencies"})
		return nil, err
	}

	outDir := config.ResolveOutputDir(outputFlag, p.cfg)
	art, err := builder.New(tc, outDir, p.rec).Build(ctx, snap, p.man, entry, p.platform)
	if err != nil {
		p.event(events.TypeBuildFailed, "", map[string]string{"stage": "package"})
		return nil, err
	}
	p.event(events.TypeBuildSucceeded, art.Info.BuildID, nil)
	return art, nil
}
