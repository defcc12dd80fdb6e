package depcache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Memory is an in-memory Cache for tests. Entry directories live under a
// caller-provided base dir; the index is a map. It tracks build invocations
// for cache-behavior assertions.
type Memory struct {
	baseDir string
	mu      sync.Mutex
	entries map[string]*Entry
	builds  int
	group   singleflight.Group
}

// NewMemory creates an empty in-memory cache rooted at baseDir.
func NewMemory(baseDir string) *Memory {
	return &Memory{
		baseDir: baseDir,
		entries: make(map[string]*Entry),
	}
}

func (m *Memory) GetOrBuild(ctx context.Context, fingerprint, platform string, build BuildFunc) (*Entry, error) {
	key := platform + "@" + fingerprint
	v, err, _ := m.group.Do(key, func() (any, error) {
		m.mu.Lock()
		if e, ok := m.entries[key]; ok {
			e.LastUsed = time.Now()
			m.mu.Unlock()
			return e, nil
		}
		m.mu.Unlock()

		dir := filepath.Join(m.baseDir, strings.ReplaceAll(platform, "/", "-"), fingerprint)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.builds++
		m.mu.Unlock()

		if err := build(ctx, dir); err != nil {
			_ = os.RemoveAll(dir)
			return nil, &BuildError{Fingerprint: fingerprint, Platform: platform, Err: err}
		}

		now := time.Now()
		e := &Entry{Fingerprint: fingerprint, Platform: platform, Dir: dir, CreatedAt: now, LastUsed: now}
		m.mu.Lock()
		m.entries[key] = e
		m.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

func (m *Memory) Lookup(_ context.Context, fingerprint, platform string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[platform+"@"+fingerprint]; ok {
		return e, nil
	}
	return nil, &NotFoundError{Fingerprint: fingerprint, Platform: platform}
}

func (m *Memory) Prune(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for key, e := range m.entries {
		if e.LastUsed.Before(cutoff) {
			_ = os.RemoveAll(e.Dir)
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Close() error { return nil }

// Builds returns how many dependency compilations ran.
func (m *Memory) Builds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.builds
}

var _ Cache = (*Memory)(nil)
