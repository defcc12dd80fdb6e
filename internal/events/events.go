// Package events publishes build lifecycle events to NATS when configured.
// Publishing is best-effort observability: a failed publish never fails a
// build.
package events

import (
	"time"
)

// Event types emitted over the stream.
const (
	TypeBuildStarted   = "build.started"
	TypeBuildSucceeded = "build.succeeded"
	TypeBuildFailed    = "build.failed"
	TypeCacheHit       = "cache.hit"
	TypeCacheMiss      = "cache.miss"
	TypeCheckCompleted = "check.completed"
)

// Event is one build lifecycle event.
type Event struct {
	Type        string            `json:"type"`
	BuildID     string            `json:"build_id,omitempty"`
	Package     string            `json:"package"`
	Version     string            `json:"version"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Platform    string            `json:"platform,omitempty"`
	At          time.Time         `json:"at"`
	Detail      map[string]string `json:"detail,omitempty"`
}

// Publisher emits events. Implementations must tolerate being called from
// concurrent goroutines.
type Publisher interface {
	Publish(event Event)
	Close()
}

// NoopPublisher is the default when no event stream is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) {}
func (NoopPublisher) Close()        {}
