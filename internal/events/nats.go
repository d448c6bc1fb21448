package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsPublisher hands committed events to JetStream so the archival
// worker can consume them with at-least-once delivery.
type NatsPublisher struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

func NewNatsPublisher(ctx context.Context, url string) (*NatsPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("events: nats connect: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: jetstream context: %w", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:        "AUCTION_EVENTS",
		Description: "Stream for auction event archival",
		Subjects:    []string{"auction.events.*"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: create stream: %w", err)
	}

	return &NatsPublisher{conn: conn, js: js}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(envelope{Event: event.Name(), Data: event})
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", event.Name(), err)
	}

	subject := "auction.events." + event.Item().String()
	// Publish waits for the server ack so the event is persisted before
	// the next one for this item goes out.
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("events: jetstream publish: %w", err)
	}
	return nil
}

func (p *NatsPublisher) Close() error {
	p.conn.Close()
	return nil
}
