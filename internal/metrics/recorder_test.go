package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestNoopRecorderSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncCacheResult(CacheHit)
	r.ObserveDepBuildDuration(time.Second)
	r.ObservePackageBuildDuration(time.Second)
	r.IncCheckResult("lint", false)
	r.IncBuildOutcome("success")
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncCacheResult(CacheMiss)
	pr.IncCacheResult(CacheHit)
	pr.ObserveDepBuildDuration(250 * time.Millisecond)
	pr.ObservePackageBuildDuration(500 * time.Millisecond)
	pr.IncCheckResult("build", true)
	pr.IncCheckResult("lint", false)
	pr.IncBuildOutcome("success")

	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected metrics, got none")
	}
}

func TestPrometheusRecorderNilReceiver(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncCacheResult(CacheHit)
	pr.ObserveDepBuildDuration(time.Second)
	pr.IncCheckResult("build", true)
	pr.IncBuildOutcome("failed")
}
