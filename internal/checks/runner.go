package checks

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/cachebuild/internal/builder"
	"git.home.luguber.info/inful/cachebuild/internal/logfields"
	"git.home.luguber.info/inful/cachebuild/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Runner executes all declared checks and collects their results.
type Runner struct {
	checks []Check
	rec    metrics.Recorder
}

// NewRunner creates a runner over the given checks.
func NewRunner(rec metrics.Recorder, checks ...Check) *Runner {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Runner{checks: checks, rec: rec}
}

// Run executes every check against the input. Checks run concurrently; a
// failing check is a recorded result, not an abort. The only error returned
// is a cache entry that does not match the manifest, which is rejected before
// any check runs.
func (r *Runner) Run(ctx context.Context, in *Input) ([]Result, error) {
	fp, err := in.Manifest.Fingerprint()
	if err != nil {
		return nil, err
	}
	if in.Entry.Fingerprint != fp {
		return nil, &builder.MismatchError{Want: fp, Got: in.Entry.Fingerprint}
	}

	results := make([]Result, len(r.checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range r.checks {
		g.Go(func() error {
			start := time.Now()
			runErr := check.Run(gctx, in)
			res := Result{
				Check:    check.Name(),
				Passed:   runErr == nil,
				Duration: time.Since(start),
			}
			if runErr != nil {
				res.Detail = runErr.Error()
			}
			results[i] = res
			r.rec.IncCheckResult(res.Check, res.Passed)
			if res.Passed {
				slog.Info("Check passed", logfields.Check(res.Check),
					logfields.DurationMS(float64(res.Duration.Milliseconds())))
			} else {
				slog.Warn("Check failed", logfields.Check(res.Check),
					slog.String("detail", res.Detail))
			}
			return nil
		})
	}
	// Check failures are results, never group errors.
	_ = g.Wait()
	return results, nil
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
