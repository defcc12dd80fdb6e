// Package depcache implements the dependency cache: compiled forms of a
// locked dependency graph, keyed by the graph's fingerprint and namespaced by
// platform. Entries are immutable once created; a fingerprint is valid for
// reuse by any build or check whose manifest produces the same fingerprint,
// and never across different graphs.
package depcache

import (
	"context"
	"fmt"
	"time"
)

// Entry is one materialized dependency cache entry.
type Entry struct {
	Fingerprint string
	Platform    string
	// Dir is the directory holding the compiled dependencies. Read-only for
	// all consumers.
	Dir       string
	CreatedAt time.Time
	LastUsed  time.Time
}

// BuildFunc compiles the dependency graph into destDir. It runs only on a
// cache miss, has no access to project source, and must leave destDir in a
// complete state on nil return.
type BuildFunc func(ctx context.Context, destDir string) error

// Cache is the injectable get-or-build service over dependency cache entries.
type Cache interface {
	// GetOrBuild returns the entry for (fingerprint, platform), compiling it
	// via build on first need. Concurrent calls for the same key share one
	// compilation; a failed compilation persists nothing and the failure is
	// propagated to every waiter.
	GetOrBuild(ctx context.Context, fingerprint, platform string, build BuildFunc) (*Entry, error)

	// Lookup returns the existing entry or a NotFoundError. It never builds.
	Lookup(ctx context.Context, fingerprint, platform string) (*Entry, error)

	// Prune removes entries not used within the retention window and returns
	// how many were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int, error)

	Close() error
}

// NotFoundError reports a missing cache entry.
type NotFoundError struct {
	Fingerprint string
	Platform    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no cache entry for fingerprint %s on %s", e.Fingerprint, e.Platform)
}

// BuildError reports a failed dependency compilation. No entry was persisted.
type BuildError struct {
	Fingerprint string
	Platform    string
	Err         error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("dependency build failed for %s on %s: %v", e.Fingerprint, e.Platform, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
