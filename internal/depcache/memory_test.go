package depcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestMemoryGetOrBuild(t *testing.T) {
	m := NewMemory(t.TempDir())
	ctx := context.Background()

	var builds atomic.Int32
	first, err := m.GetOrBuild(ctx, fpA, testPlatform, markerBuild(&builds))
	if err != nil {
		t.Fatalf("GetOrBuild failed: %v", err)
	}
	second, err := m.GetOrBuild(ctx, fpA, testPlatform, markerBuild(&builds))
	if err != nil {
		t.Fatal(err)
	}

	if m.Builds() != 1 {
		t.Errorf("expected one build, got %d", m.Builds())
	}
	if first.Dir != second.Dir {
		t.Error("memory cache did not reuse the entry")
	}
	if _, err := os.Stat(filepath.Join(first.Dir, "libs.o")); err != nil {
		t.Errorf("entry content missing: %v", err)
	}
}

func TestMemoryFailedBuildNotStored(t *testing.T) {
	m := NewMemory(t.TempDir())
	ctx := context.Background()

	_, err := m.GetOrBuild(ctx, fpA, testPlatform, func(context.Context, string) error {
		return errors.New("boom")
	})
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("expected BuildError, got %v", err)
	}

	if _, err := m.Lookup(ctx, fpA, testPlatform); !isNotFound(err) {
		t.Errorf("failed build should not be cached, got %v", err)
	}
}
