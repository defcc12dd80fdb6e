package commands

import (
	"context"
	"os"

	"git.home.luguber.info/inful/cachebuild/internal/envwrap"
)

// RunCmd implements the 'run' command: build if needed, then execute the
// wrapped artifact, forwarding its exit code.
type RunCmd struct {
	Output   string   `short:"o" help:"Output directory for built artifacts"`
	CacheDir string   `name:"cache-dir" help:"Dependency cache directory"`
	Args     []string `arg:"" optional:"" passthrough:"" help:"Arguments passed to the artifact"`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	defer p.close()

	ctx := context.Background()
	art, err := runBuild(ctx, root, p, r.CacheDir, r.Output)
	if err != nil {
		return err
	}

	vars := envwrap.Compute(p.man.Runtime)
	code, err := envwrap.Launch(ctx, art.Path, r.Args, vars, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	if code != 0 {
		// Forward the artifact's exit code unchanged.
		p.close()
		os.Exit(code)
	}
	return nil
}
