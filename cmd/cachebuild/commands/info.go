package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/cachebuild/internal/envwrap"
)

// InfoCmd prints the derived build identity and cache status for the current
// project.
type InfoCmd struct {
	CacheDir string `name:"cache-dir" help:"Dependency cache directory"`
}

func (i *InfoCmd) Run(_ *Global, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	defer p.close()

	fmt.Printf("package:      %s\n", p.man.Package.Name)
	fmt.Printf("version:      %s\n", p.man.Package.Version)
	fmt.Printf("platform:     %s\n", p.platform)
	fmt.Printf("dependencies: %d\n", len(p.man.Dependencies))
	fmt.Printf("fingerprint:  %s\n", p.fingerprint)

	cache, err := p.openCache(i.CacheDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = cache.Close()
	}()

	if entry, err := cache.Lookup(context.Background(), p.fingerprint, p.platform); err == nil {
		fmt.Printf("cache:        hit (%s, created %s)\n", entry.Dir, entry.CreatedAt.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Printf("cache:        miss\n")
	}

	if vars := envwrap.Compute(p.man.Runtime); len(vars) > 0 {
		fmt.Println("environment:")
		for _, v := range vars {
			fmt.Printf("  %s=%s\n", v.Name, v.Value)
		}
	}
	return nil
}
