package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/suuupra/livetrack/internal/core/domain"
)

// Subscriber consumes device position reports published on
// track.report.<entity_id>. The ingestor binds it to the ingestion
// pipeline with a durable consumer so reports survive restarts.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS and ensures the report stream exists.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "DEVICE_REPORTS",
		Subjects:  []string{"track.report.>"},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeReports delivers decoded position reports to handler. A
// handler error naks the message for redelivery; validation errors are
// terminal, so the handler should ack those by returning nil. Call it
// once per worker: members share the "ingest-workers" queue group, so
// each report is handled by exactly one of them.
func (s *Subscriber) SubscribeReports(ctx context.Context, handler func(ctx context.Context, sample *domain.PositionSample) error) error {
	sub, err := s.js.QueueSubscribe("track.report.>", "ingest-workers", func(msg *nats.Msg) {
		var sample domain.PositionSample
		if err := json.Unmarshal(msg.Data, &sample); err != nil {
			_ = msg.Term() // malformed payloads never become deliverable
			return
		}
		if err := handler(ctx, &sample); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("ingest-workers"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Connected reports whether the underlying connection is up.
func (s *Subscriber) Connected() bool {
	return s.conn.IsConnected()
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
