package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/cachebuild/internal/manifest"
)

// outputTailLimit bounds how much toolchain output is carried in errors.
const outputTailLimit = 4096

// ExecToolchain runs the manifest's compiler and linter as subprocesses.
type ExecToolchain struct {
	compiler string
	linter   string
}

// NewExec creates a toolchain from the manifest's declared commands.
func NewExec(tc manifest.Toolchain) *ExecToolchain {
	return &ExecToolchain{compiler: tc.Compiler, linter: tc.Linter}
}

func (t *ExecToolchain) CompileDeps(ctx context.Context, deps []manifest.Dependency, destDir string) error {
	pairs := make([]string, len(deps))
	for i, d := range deps {
		pairs[i] = d.String()
	}
	env := []string{
		EnvDepDir + "=" + destDir,
		EnvDeps + "=" + strings.Join(pairs, ","),
	}
	return t.run(ctx, t.compiler, []string{"build-deps"}, env)
}

func (t *ExecToolchain) CompilePackage(ctx context.Context, srcDir, depDir, outPath string) error {
	env := []string{
		EnvSrcDir + "=" + srcDir,
		EnvDepDir + "=" + depDir,
		EnvOut + "=" + outPath,
	}
	return t.run(ctx, t.compiler, []string{"build"}, env)
}

func (t *ExecToolchain) Lint(ctx context.Context, srcDir, depDir string) error {
	if t.linter == "" {
		return fmt.Errorf("no linter declared in manifest")
	}
	env := []string{
		EnvSrcDir + "=" + srcDir,
		EnvDepDir + "=" + depDir,
	}
	return t.run(ctx, t.linter, nil, env)
}

func (t *ExecToolchain) run(ctx context.Context, command string, args, extraEnv []string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = append(os.Environ(), extraEnv...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	slog.Debug("Invoking toolchain", slog.String("command", command), slog.Any("args", args))
	if err := cmd.Run(); err != nil {
		return &InvocationError{
			Command: command,
			Args:    args,
			Output:  tail(output.Bytes()),
			Err:     err,
		}
	}
	return nil
}

func tail(out []byte) string {
	if len(out) > outputTailLimit {
		out = out[len(out)-outputTailLimit:]
	}
	return strings.TrimSpace(string(out))
}

// InvocationError carries the failing command and the tail of its combined
// output so callers can surface a useful message.
type InvocationError struct {
	Command string
	Args    []string
	Output  string
	Err     error
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("%s %s failed: %v", e.Command, strings.Join(e.Args, " "), e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *InvocationError) Unwrap() error { return e.Err }

var _ Toolchain = (*ExecToolchain)(nil)
