package envwrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Launch runs the artifact with the variable set injected into its
// environment, forwarding the given standard streams, and returns the child's
// exit code. No logic beyond variable injection: the wrapper is behaviorally
// transparent.
func Launch(ctx context.Context, bin string, args []string, vars []EnvVar, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = Apply(vars, os.Environ())
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("launch %s: %w", bin, err)
	}
	return 0, nil
}
