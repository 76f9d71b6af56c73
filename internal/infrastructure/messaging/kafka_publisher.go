package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/garyjia/personal-ledger/internal/application/dispatcher"
	"github.com/garyjia/personal-ledger/internal/domain/event"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer used by the publisher
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig holds broker settings
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher forwards domain events to a Kafka topic. Messages are keyed
// by request id so the events of one request stay ordered within a partition.
type KafkaPublisher struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewKafkaWriter builds the writer for cfg
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaPublisher creates a publisher on top of writer
func NewKafkaPublisher(writer MessageWriter, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish writes one event
func (p *KafkaPublisher) Publish(ctx context.Context, evt *event.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(evt.RequestID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
			{Key: "correlation_id", Value: []byte(evt.CorrelationID)},
		},
		Time: evt.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("event_id", evt.ID),
			zap.String("type", string(evt.Type)),
			zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe registers the publisher for every event type
func (p *KafkaPublisher) Subscribe(d dispatcher.Dispatcher) {
	d.SubscribeAll("kafka-publisher", p.Publish)
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Start is a no-op; the writer connects lazily on the first message
func (p *KafkaPublisher) Start(_ context.Context) error {
	return nil
}

// Stop closes the writer
func (p *KafkaPublisher) Stop() {
	if err := p.Close(); err != nil {
		p.logger.Error("Failed to close kafka writer", zap.Error(err))
	}
}

// Name identifies the publisher in worker logs
func (p *KafkaPublisher) Name() string {
	return "kafka-publisher"
}
