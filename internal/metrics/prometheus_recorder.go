package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	cacheResults  *prom.CounterVec
	depDuration   prom.Histogram
	buildDuration prom.Histogram
	checkResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		cacheResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "cachebuild",
			Name:      "dep_cache_results_total",
			Help:      "Dependency cache accesses by hit/miss",
		}, []string{"result"}),
		depDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "cachebuild",
			Name:      "dep_build_duration_seconds",
			Help:      "Duration of dependencies-only compilations",
			Buckets:   prom.DefBuckets,
		}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "cachebuild",
			Name:      "package_build_duration_seconds",
			Help:      "Duration of package compilations",
			Buckets:   prom.DefBuckets,
		}),
		checkResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "cachebuild",
			Name:      "check_results_total",
			Help:      "Verification check outcomes",
		}, []string{"check", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "cachebuild",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.cacheResults, pr.depDuration, pr.buildDuration, pr.checkResults, pr.buildOutcome)
	return pr
}

func (p *PrometheusRecorder) IncCacheResult(result CacheResult) {
	if p == nil {
		return
	}
	p.cacheResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveDepBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.depDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePackageBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCheckResult(check string, passed bool) {
	if p == nil {
		return
	}
	result := "fail"
	if passed {
		result = "pass"
	}
	p.checkResults.WithLabelValues(check, result).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

var _ Recorder = (*PrometheusRecorder)(nil)
