package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"git.home.luguber.info/inful/cachebuild/internal/manifest"
)

// Fake is an in-process Toolchain for tests. It writes marker files instead
// of compiling and tracks invocation counts for cache-behavior assertions.
type Fake struct {
	FailDeps    bool
	FailPackage bool
	FailLint    bool

	depsCalls    atomic.Int32
	packageCalls atomic.Int32
	lintCalls    atomic.Int32
}

// NewFake creates a fake toolchain that succeeds on every operation.
func NewFake() *Fake { return &Fake{} }

func (f *Fake) CompileDeps(_ context.Context, deps []manifest.Dependency, destDir string) error {
	f.depsCalls.Add(1)
	if f.FailDeps {
		return fmt.Errorf("fake dependency compilation failure")
	}
	for _, d := range deps {
		name := d.Name + "-" + d.Version + ".o"
		if err := os.WriteFile(filepath.Join(destDir, name), []byte(d.String()+"\n"), 0o600); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) CompilePackage(_ context.Context, srcDir, depDir, outPath string) error {
	f.packageCalls.Add(1)
	if f.FailPackage {
		return fmt.Errorf("fake source compilation failure")
	}
	content := fmt.Sprintf("binary built from %s against %s\n", srcDir, depDir)
	return os.WriteFile(outPath, []byte(content), 0o700)
}

func (f *Fake) Lint(_ context.Context, _, _ string) error {
	f.lintCalls.Add(1)
	if f.FailLint {
		return fmt.Errorf("fake lint violation")
	}
	return nil
}

// DepsCalls returns how many times CompileDeps ran.
func (f *Fake) DepsCalls() int { return int(f.depsCalls.Load()) }

// PackageCalls returns how many times CompilePackage ran.
func (f *Fake) PackageCalls() int { return int(f.packageCalls.Load()) }

// LintCalls returns how many times Lint ran.
func (f *Fake) LintCalls() int { return int(f.lintCalls.Load()) }

var _ Toolchain = (*Fake)(nil)
