// Package checks runs the verification suite: named, independent pass/fail
// checks over one source snapshot and its dependency cache entry. Checks
// never mutate the snapshot or the cache entry.
package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/cachebuild/internal/depcache"
	"git.home.luguber.info/inful/cachebuild/internal/manifest"
	"git.home.luguber.info/inful/cachebuild/internal/sourcetree"
	"git.home.luguber.info/inful/cachebuild/internal/toolchain"
)

// Input is the read-only triple every check runs against.
type Input struct {
	Snapshot *sourcetree.Snapshot
	Manifest *manifest.Manifest
	Entry    *depcache.Entry
	Platform string
}

// Result is the outcome of one check.
type Result struct {
	Check    string        `json:"check"`
	Passed   bool          `json:"passed"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Check is a single named verification. A returned error means the check
// failed; it does not abort the other checks.
type Check interface {
	Name() string
	Run(ctx context.Context, in *Input) error
}

// BuildCheck verifies the package compiles. The artifact goes to a throwaway
// directory; a passing build check writes nothing permanent.
type BuildCheck struct {
	TC toolchain.Toolchain
}

func (c *BuildCheck) Name() string { return "build" }

func (c *BuildCheck) Run(ctx context.Context, in *Input) error {
	tmp, err := os.MkdirTemp("", "cachebuild-check-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(tmp)
	}()

	out := filepath.Join(tmp, in.Manifest.Package.Name)
	return c.TC.CompilePackage(ctx, in.Snapshot.Dir, in.Entry.Dir, out)
}

// LintCheck compiles with lint diagnostics promoted to failures.
type LintCheck struct {
	TC toolchain.Toolchain
}

func (c *LintCheck) Name() string { return "lint" }

func (c *LintCheck) Run(ctx context.Context, in *Input) error {
	return c.TC.Lint(ctx, in.Snapshot.Dir, in.Entry.Dir)
}
