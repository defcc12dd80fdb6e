package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/cachebuild/internal/config"
	"git.home.luguber.info/inful/cachebuild/internal/logfields"
	"git.home.luguber.info/inful/cachebuild/internal/retry"
	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes events to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg config.EventsConfig) (*NATSPublisher, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("events: no NATS URL configured")
	}

	// The server may still be starting; retry the initial connect briefly
	// before giving up.
	policy := retry.NewPolicy(retry.BackoffLinear, time.Second, 5*time.Second, 2)
	var conn *nats.Conn
	err := retry.Do(context.Background(), policy, func() error {
		var cerr error
		conn, cerr = nats.Connect(cfg.NATSURL,
			nats.Name("cachebuild"),
			nats.Timeout(5*time.Second),
		)
		return cerr
	})
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn, subject: cfg.Subject}, nil
}

func (p *NATSPublisher) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("Failed to encode build event", logfields.Error(err))
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		slog.Warn("Failed to publish build event",
			slog.String("type", event.Type),
			logfields.Error(err))
	}
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

var _ Publisher = (*NATSPublisher)(nil)
