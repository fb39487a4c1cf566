package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"consenthub/config"
	"consenthub/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher implements ports.EventPublisher on a Kafka topic. Events are
// keyed by aggregate id so all events of one aggregate land on the same
// partition in order.
type Publisher struct {
	client *kgo.Client
	topic  string
	log    zerolog.Logger
}

// NewPublisher creates a Kafka producer and verifies broker connectivity.
func NewPublisher(ctx context.Context, cfg config.KafkaConfig, log zerolog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging kafka: %w", err)
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka producer ready")

	return &Publisher{client: client, topic: cfg.Topic, log: log}, nil
}

// Publish delivers one event envelope synchronously. The outbox dispatcher
// needs the acknowledgement before it marks the entry published.
func (p *Publisher) Publish(ctx context.Context, envelope domain.EventEnvelope) error {
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(envelope.AggregateID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(envelope.EventType)},
		},
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event %s: %w", envelope.EventID, err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
