// Package redpanda publishes interview analytics events to Redpanda/Kafka.
package redpanda

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/codesage-ai/interview-server/internal/domain"
)

// TopicCompleted carries one event per finished interview session.
const TopicCompleted = "interview-completed"

// Producer implements domain.EventPublisher on a Kafka client. Events are
// analytics-grade: delivery is at-least-once and consumers dedupe on
// event_id.
type Producer struct {
	client *kgo.Client
}

// NewProducer connects to the given brokers.
func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}
	slog.Info("redpanda producer created", slog.Any("brokers", brokers))
	return &Producer{client: client}, nil
}

// PublishCompleted sends one completion event, keyed by session id so a
// session's events land in order on one partition.
func (p *Producer) PublishCompleted(ctx domain.Context, ev domain.CompletedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("op=publish_completed: %w", err)
	}
	record := &kgo.Record{
		Topic: TopicCompleted,
		Key:   []byte(ev.SessionID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("op=publish_completed session_id=%s: %w", ev.SessionID, err)
	}
	slog.Debug("completed event published",
		slog.String("event_id", ev.EventID),
		slog.String("session_id", ev.SessionID))
	return nil
}

// Close flushes and releases the underlying client.
func (p *Producer) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
