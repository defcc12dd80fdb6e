// Package toolchain invokes the external compiler and linter declared in the
// project manifest. Both are opaque collaborators: cachebuild hands them
// directories and an output path through a small env-var contract and
// interprets nothing but their exit codes.
package toolchain

import (
	"context"

	"git.home.luguber.info/inful/cachebuild/internal/manifest"
)

// Environment variables of the toolchain contract. Every invocation receives
// the subset that applies to it.
const (
	// EnvSrcDir names the source snapshot directory.
	EnvSrcDir = "CACHEBUILD_SRC_DIR"
	// EnvDepDir names the dependency cache directory (read-only for the
	// package build, the destination for the deps-only build).
	EnvDepDir = "CACHEBUILD_DEP_DIR"
	// EnvOut names the artifact output path.
	EnvOut = "CACHEBUILD_OUT"
	// EnvDeps carries the locked dependency list as comma-separated
	// name@version pairs.
	EnvDeps = "CACHEBUILD_DEPS"
)

// Toolchain abstracts the compiler/linter pair so tests can substitute an
// in-process fake.
type Toolchain interface {
	// CompileDeps builds only the locked dependency graph into destDir. It
	// must not receive or read project source.
	CompileDeps(ctx context.Context, deps []manifest.Dependency, destDir string) error

	// CompilePackage builds the project source in srcDir against the
	// materialized dependency directory and writes the executable to outPath.
	CompilePackage(ctx context.Context, srcDir, depDir, outPath string) error

	// Lint compiles with lint diagnostics promoted to failures. A nonzero
	// linter exit reports as an error here and as a failed check upstream.
	Lint(ctx context.Context, srcDir, depDir string) error
}
