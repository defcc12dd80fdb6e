package depcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/cachebuild/internal/logfields"
	"git.home.luguber.info/inful/cachebuild/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DirCache is the persistent on-disk cache: one directory per entry under
// <root>/<platform>/<fingerprint>, with a SQLite index at <root>/index.db.
//
// Compilations build into a staging directory and are committed by a rename
// followed by an index insert; the index row is the commit point, so an
// interrupted build is never observable as a valid entry.
type DirCache struct {
	root  string
	idx   *index
	group singleflight.Group
	rec   metrics.Recorder
}

// Open opens (creating if needed) the cache rooted at dir.
func Open(dir string, rec metrics.Recorder) (*DirCache, error) {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	idx, err := openIndex(filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, err
	}
	return &DirCache{root: dir, idx: idx, rec: rec}, nil
}

func (c *DirCache) GetOrBuild(ctx context.Context, fingerprint, platform string, build BuildFunc) (*Entry, error) {
	key := platform + "@" + fingerprint
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.getOrBuildLocked(ctx, fingerprint, platform, build)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// getOrBuildLocked runs under the singleflight slot for its key, so at most
// one compilation per (platform, fingerprint) is in flight.
func (c *DirCache) getOrBuildLocked(ctx context.Context, fingerprint, platform string, build BuildFunc) (*Entry, error) {
	entry, err := c.Lookup(ctx, fingerprint, platform)
	if err == nil {
		c.rec.IncCacheResult(metrics.CacheHit)
		now := time.Now()
		if terr := c.idx.touch(ctx, fingerprint, platform, now); terr != nil {
			slog.Warn("Failed to update cache entry usage time", logfields.Error(terr))
		}
		entry.LastUsed = now
		slog.Debug("Dependency cache hit",
			logfields.Fingerprint(fingerprint),
			logfields.Platform(platform))
		return entry, nil
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return nil, err
	}

	c.rec.IncCacheResult(metrics.CacheMiss)
	slog.Info("Dependency cache miss, compiling dependencies",
		logfields.Fingerprint(fingerprint),
		logfields.Platform(platform))

	final := c.entryDir(fingerprint, platform)
	// A directory without an index row is a leftover from an aborted build.
	if _, serr := os.Stat(final); serr == nil {
		if rerr := os.RemoveAll(final); rerr != nil {
			return nil, fmt.Errorf("remove aborted cache entry: %w", rerr)
		}
	}

	staging := filepath.Join(filepath.Dir(final), ".staging-"+shortFingerprint(fingerprint)+"-"+uuid.NewString()[:8])
	if err := os.MkdirAll(staging, 0o750); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	start := time.Now()
	if err := build(ctx, staging); err != nil {
		_ = os.RemoveAll(staging)
		return nil, &BuildError{Fingerprint: fingerprint, Platform: platform, Err: err}
	}

	if err := os.Rename(staging, final); err != nil {
		_ = os.RemoveAll(staging)
		return nil, fmt.Errorf("commit cache entry: %w", err)
	}

	now := time.Now()
	entry = &Entry{
		Fingerprint: fingerprint,
		Platform:    platform,
		Dir:         final,
		CreatedAt:   now,
		LastUsed:    now,
	}
	if err := c.idx.put(ctx, entry); err != nil {
		// Without the row the directory is invisible; remove it so the next
		// build starts clean.
		_ = os.RemoveAll(final)
		return nil, err
	}

	c.rec.ObserveDepBuildDuration(time.Since(start))
	slog.Info("Dependency cache entry created",
		logfields.Fingerprint(fingerprint),
		logfields.Platform(platform),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return entry, nil
}

func (c *DirCache) Lookup(ctx context.Context, fingerprint, platform string) (*Entry, error) {
	entry, err := c.idx.get(ctx, fingerprint, platform)
	if err != nil {
		return nil, err
	}
	if _, serr := os.Stat(entry.Dir); serr != nil {
		// Row without a directory: the entry was removed out of band.
		if rerr := c.idx.remove(ctx, fingerprint, platform); rerr != nil {
			slog.Warn("Failed to drop orphaned cache index row", logfields.Error(rerr))
		}
		return nil, &NotFoundError{Fingerprint: fingerprint, Platform: platform}
	}
	return entry, nil
}

func (c *DirCache) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := c.idx.listOlderThan(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range stale {
		if err := os.RemoveAll(e.Dir); err != nil {
			slog.Warn("Failed to remove stale cache entry",
				logfields.Fingerprint(e.Fingerprint),
				logfields.Error(err))
			continue
		}
		if err := c.idx.remove(ctx, e.Fingerprint, e.Platform); err != nil {
			return removed, err
		}
		removed++
		slog.Info("Pruned cache entry",
			logfields.Fingerprint(e.Fingerprint),
			logfields.Platform(e.Platform))
	}
	return removed, nil
}

func (c *DirCache) Close() error {
	return c.idx.close()
}

func (c *DirCache) entryDir(fingerprint, platform string) string {
	return filepath.Join(c.root, strings.ReplaceAll(platform, "/", "-"), fingerprint)
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

var _ Cache = (*DirCache)(nil)
