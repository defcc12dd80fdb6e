package events

import (
	"encoding/json"
	"testing"
	"time"

	"git.home.luguber.info/inful/cachebuild/internal/config"
)

func TestEventEncoding(t *testing.T) {
	e := Event{
		Type:        TypeBuildSucceeded,
		BuildID:     "b1",
		Package:     "demo",
		Version:     "1.0.0",
		Fingerprint: "abcd",
		Platform:    "linux/amd64",
		At:          time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != TypeBuildSucceeded || decoded.Package != "demo" {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	p.Publish(Event{Type: TypeCacheHit})
	p.Close()
}

func TestNATSPublisherRequiresURL(t *testing.T) {
	if _, err := NewNATSPublisher(config.EventsConfig{}); err == nil {
		t.Error("expected error without NATS URL")
	}
}
