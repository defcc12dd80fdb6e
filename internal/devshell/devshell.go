// Package devshell provisions the interactive development environment: the
// same tools and environment variables a build uses, without requiring or
// producing an artifact.
package devshell

import (
	"context"
	"fmt"
	"os"
	"strings"

	"git.home.luguber.info/inful/cachebuild/internal/envwrap"
	"git.home.luguber.info/inful/cachebuild/internal/manifest"
)

// MarkerVar is set inside the dev shell so prompts and scripts can detect it.
const MarkerVar = "CACHEBUILD_DEV"

// Provisioner assembles and enters the interactive environment.
type Provisioner struct {
	shell string
}

// New creates a provisioner using $SHELL, falling back to /bin/sh.
func New() *Provisioner {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Provisioner{shell: shell}
}

// Env derives the shell's variable set. It delegates to the exact derivation
// the launch wrapper uses; aside from the marker variable the two sets are
// identical by construction.
func (p *Provisioner) Env(m *manifest.Manifest) []envwrap.EnvVar {
	vars := envwrap.Compute(m.Runtime)
	return append(vars, envwrap.EnvVar{Name: MarkerVar, Value: "1"})
}

// Enter launches the interactive shell with the derived environment and
// returns the shell session's exit code.
func (p *Provisioner) Enter(ctx context.Context, m *manifest.Manifest) (int, error) {
	fmt.Printf("Entering %s development shell\n", m.Package.Name)
	if len(m.Tools) > 0 {
		fmt.Printf("Available tools: %s\n", strings.Join(m.Tools, ", "))
	}
	return envwrap.Launch(ctx, p.shell, nil, p.Env(m), os.Stdin, os.Stdout, os.Stderr)
}
