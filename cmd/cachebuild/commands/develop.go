package commands

import (
	"context"
	"os"

	"git.home.luguber.info/inful/cachebuild/internal/devshell"
)

// DevelopCmd implements the 'develop' command: an interactive shell with the
// same environment a build uses, no artifact required.
type DevelopCmd struct{}

func (d *DevelopCmd) Run(_ *Global, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	defer p.close()

	code, err := devshell.New().Enter(context.Background(), p.man)
	if err != nil {
		return err
	}
	if code != 0 {
		// Exit code is that of the shell session.
		p.close()
		os.Exit(code)
	}
	return nil
}
