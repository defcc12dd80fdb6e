// Package metrics defines observability hooks for builds, cache access and
// checks. The default recorder is a no-op; Prometheus is wired in only when
// configured.
package metrics

import "time"

// CacheResult enumerates dependency cache access outcomes.
type CacheResult string

const (
	CacheHit  CacheResult = "hit"
	CacheMiss CacheResult = "miss"
)

// Recorder defines the hooks. All methods must be safe on a NoopRecorder so
// injection stays optional.
type Recorder interface {
	IncCacheResult(result CacheResult)
	ObserveDepBuildDuration(d time.Duration)
	ObservePackageBuildDuration(d time.Duration)
	IncCheckResult(check string, passed bool)
	IncBuildOutcome(outcome string) // outcome: success|failed
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncCacheResult(CacheResult)              {}
func (NoopRecorder) ObserveDepBuildDuration(time.Duration)   {}
func (NoopRecorder) ObservePackageBuildDuration(time.Duration) {}
func (NoopRecorder) IncCheckResult(string, bool)             {}
func (NoopRecorder) IncBuildOutcome(string)                  {}
