// Package kafka publishes patient change events to the stream other services
// tail. Events are JSON-encoded and keyed by patient ID so consumers see
// per-patient ordering.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/pm-health/patient-service/internal/core/domain"
)

const publishTimeout = 5 * time.Second

// Config captures the settings for the event stream connection.
type Config struct {
	Brokers []string
	Topic   string
}

// Publisher implements ports.EventPublisher on a Kafka topic.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger zerolog.Logger
}

// NewPublisher connects to the brokers and verifies reachability. The
// returned Publisher is safe for concurrent use.
func NewPublisher(ctx context.Context, cfg Config, logger zerolog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping: %w", err)
	}

	return &Publisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

// Publish appends one change event to the stream and waits for the broker
// ack. The produce is synchronous: the caller already treats publish failure
// as observability-only, so there is no benefit in detaching it further.
func (p *Publisher) Publish(ctx context.Context, event domain.PatientEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.PatientID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", event.Type, err)
	}

	p.logger.Debug().
		Str("patient_id", event.PatientID).
		Str("type", string(event.Type)).
		Msg("event published")
	return nil
}

// Ping verifies broker reachability, used by the readiness probe.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() {
	_ = p.client.Flush(context.Background())
	p.client.Close()
}
