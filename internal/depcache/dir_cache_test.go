package depcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"git.home.luguber.info/inful/cachebuild/internal/metrics"
)

const (
	fpA = "aaaa111122223333aaaa111122223333aaaa111122223333aaaa111122223333"
	fpB = "bbbb111122223333bbbb111122223333bbbb111122223333bbbb111122223333"

	testPlatform = "linux/amd64"
)

func openTestCache(t *testing.T) *DirCache {
	t.Helper()
	c, err := Open(t.TempDir(), metrics.NoopRecorder{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func markerBuild(builds *atomic.Int32) BuildFunc {
	return func(_ context.Context, destDir string) error {
		builds.Add(1)
		return os.WriteFile(filepath.Join(destDir, "libs.o"), []byte("compiled\n"), 0o600)
	}
}

func TestGetOrBuildReusesEntry(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	var builds atomic.Int32

	first, err := c.GetOrBuild(ctx, fpA, testPlatform, markerBuild(&builds))
	if err != nil {
		t.Fatalf("first GetOrBuild failed: %v", err)
	}
	second, err := c.GetOrBuild(ctx, fpA, testPlatform, markerBuild(&builds))
	if err != nil {
		t.Fatalf("second GetOrBuild failed: %v", err)
	}

	if builds.Load() != 1 {
		t.Errorf("expected exactly one dependency compilation, got %d", builds.Load())
	}
	if first.Dir != second.Dir {
		t.Errorf("cache hit returned a different entry dir: %s vs %s", first.Dir, second.Dir)
	}
	if _, err := os.Stat(filepath.Join(second.Dir, "libs.o")); err != nil {
		t.Errorf("entry content missing: %v", err)
	}
}

func TestEntriesAreIsolatedByFingerprint(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	var builds atomic.Int32

	a, err := c.GetOrBuild(ctx, fpA, testPlatform, markerBuild(&builds))
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.GetOrBuild(ctx, fpB, testPlatform, markerBuild(&builds))
	if err != nil {
		t.Fatal(err)
	}

	if builds.Load() != 2 {
		t.Errorf("expected two compilations for two fingerprints, got %d", builds.Load())
	}
	if a.Dir == b.Dir {
		t.Error("different fingerprints must never share an entry")
	}
}

func TestEntriesAreIsolatedByPlatform(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	var builds atomic.Int32

	a, err := c.GetOrBuild(ctx, fpA, "linux/amd64", markerBuild(&builds))
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.GetOrBuild(ctx, fpA, "linux/arm64", markerBuild(&builds))
	if err != nil {
		t.Fatal(err)
	}

	if builds.Load() != 2 {
		t.Errorf("expected per-platform compilations, got %d", builds.Load())
	}
	if a.Dir == b.Dir {
		t.Error("platforms must not share cache entries")
	}
}

func TestFailedBuildPersistsNothing(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	boom := errors.New("compiler exploded")
	_, err := c.GetOrBuild(ctx, fpA, testPlatform, func(context.Context, string) error { return boom })

	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("expected BuildError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("BuildError should wrap the underlying cause")
	}

	if _, err := c.Lookup(ctx, fpA, testPlatform); !isNotFound(err) {
		t.Errorf("failed build must not persist an entry, Lookup returned %v", err)
	}

	// Nothing half-built left on disk either.
	platformDir := filepath.Join(c.root, "linux-amd64")
	entries, _ := os.ReadDir(platformDir)
	for _, e := range entries {
		t.Errorf("unexpected leftover in cache dir: %s", e.Name())
	}

	// A later build with the same fingerprint succeeds from scratch.
	var builds atomic.Int32
	if _, err := c.GetOrBuild(ctx, fpA, testPlatform, markerBuild(&builds)); err != nil {
		t.Fatalf("rebuild after failure failed: %v", err)
	}
	if builds.Load() != 1 {
		t.Errorf("expected one compilation on retry, got %d", builds.Load())
	}
}

func TestConcurrentRequestsShareOneCompilation(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	var builds atomic.Int32
	slowBuild := func(_ context.Context, destDir string) error {
		builds.Add(1)
		time.Sleep(50 * time.Millisecond)
		return os.WriteFile(filepath.Join(destDir, "libs.o"), []byte("compiled\n"), 0o600)
	}

	const workers = 8
	var wg sync.WaitGroup
	dirs := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			e, err := c.GetOrBuild(ctx, fpA, testPlatform, slowBuild)
			errs[n] = err
			if e != nil {
				dirs[n] = e.Dir
			}
		}(i)
	}
	wg.Wait()

	for n, err := range errs {
		if err != nil {
			t.Fatalf("worker %d failed: %v", n, err)
		}
	}
	if builds.Load() != 1 {
		t.Errorf("expected one compilation across %d concurrent requests, got %d", workers, builds.Load())
	}
	for n := 1; n < workers; n++ {
		if dirs[n] != dirs[0] {
			t.Errorf("worker %d got a different entry dir", n)
		}
	}
}

func TestFailurePropagatesToAllWaiters(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	failing := func(context.Context, string) error {
		time.Sleep(20 * time.Millisecond)
		return fmt.Errorf("no such dependency")
	}

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = c.GetOrBuild(ctx, fpA, testPlatform, failing)
		}(i)
	}
	wg.Wait()

	for n, err := range errs {
		var be *BuildError
		if !errors.As(err, &be) {
			t.Errorf("worker %d: expected BuildError, got %v", n, err)
		}
	}
}

func TestAbortedEntryDirIsRebuilt(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	// Simulate a crash after rename but before the index insert: a directory
	// exists with no index row.
	orphan := c.entryDir(fpA, testPlatform)
	if err := os.MkdirAll(orphan, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(orphan, "partial.o"), []byte("partial"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Lookup(ctx, fpA, testPlatform); !isNotFound(err) {
		t.Fatalf("orphaned dir must not be visible, Lookup returned %v", err)
	}

	var builds atomic.Int32
	e, err := c.GetOrBuild(ctx, fpA, testPlatform, markerBuild(&builds))
	if err != nil {
		t.Fatalf("GetOrBuild over orphan failed: %v", err)
	}
	if builds.Load() != 1 {
		t.Errorf("expected a rebuild, got %d compilations", builds.Load())
	}
	if _, err := os.Stat(filepath.Join(e.Dir, "partial.o")); !os.IsNotExist(err) {
		t.Error("stale partial content survived the rebuild")
	}
}

func TestLookupDropsRowWithoutDirectory(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	var builds atomic.Int32
	e, err := c.GetOrBuild(ctx, fpA, testPlatform, markerBuild(&builds))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(e.Dir); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Lookup(ctx, fpA, testPlatform); !isNotFound(err) {
		t.Errorf("entry with missing directory should be reported absent, got %v", err)
	}
}

func TestPruneRemovesStaleEntries(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	var builds atomic.Int32
	e, err := c.GetOrBuild(ctx, fpA, testPlatform, markerBuild(&builds))
	if err != nil {
		t.Fatal(err)
	}

	// Backdate the entry so the retention window has passed.
	if err := c.idx.touch(ctx, fpA, testPlatform, time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatal(err)
	}

	removed, err := c.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned entry, got %d", removed)
	}
	if _, err := os.Stat(e.Dir); !os.IsNotExist(err) {
		t.Error("pruned entry directory still exists")
	}
	if _, err := c.Lookup(ctx, fpA, testPlatform); !isNotFound(err) {
		t.Errorf("pruned entry still in index: %v", err)
	}
}

func TestPruneKeepsRecentEntries(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	var builds atomic.Int32
	if _, err := c.GetOrBuild(ctx, fpA, testPlatform, markerBuild(&builds)); err != nil {
		t.Fatal(err)
	}

	removed, err := c.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("fresh entry was pruned")
	}
	if _, err := c.Lookup(ctx, fpA, testPlatform); err != nil {
		t.Errorf("fresh entry missing after prune: %v", err)
	}
}

func isNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
