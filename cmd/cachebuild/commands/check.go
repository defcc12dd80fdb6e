package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/cachebuild/internal/checks"
	"git.home.luguber.info/inful/cachebuild/internal/events"
	"git.home.luguber.info/inful/cachebuild/internal/toolchain"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	CacheDir string `name:"cache-dir" help:"Dependency cache directory"`
}

func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	defer p.close()

	ctx := context.Background()

	snap, cleanup, err := p.snapshot(root)
	if err != nil {
		return err
	}
	defer cleanup()

	cache, err := p.openCache(c.CacheDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = cache.Close()
	}()

	tc := toolchain.NewExec(p.man.Toolchain)
	entry, err := p.ensureDeps(ctx, cache, tc)
	if err != nil {
		return err
	}

	suite := []checks.Check{&checks.BuildCheck{TC: tc}}
	if p.man.Toolchain.Linter != "" {
		suite = append(suite, &checks.LintCheck{TC: tc})
	}

	runner := checks.NewRunner(p.rec, suite...)
	results, err := runner.Run(ctx, &checks.Input{
		Snapshot: snap,
		Manifest: p.man,
		Entry:    entry,
		Platform: p.platform,
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		status := "ok"
		if !res.Passed {
			status = "FAIL"
			failed++
		}
		fmt.Printf("%-8s %s (%dms)\n", status, res.Check, res.Duration.Milliseconds())
		if !res.Passed && res.Detail != "" {
			fmt.Printf("         %s\n", res.Detail)
		}
		p.event(events.TypeCheckCompleted, "", map[string]string{
			"check":  res.Check,
			"passed": fmt.Sprintf("%t", res.Passed),
		})
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	fmt.Printf("All %d checks passed\n", len(results))
	return nil
}
