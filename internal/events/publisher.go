package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"example.com/trackersync/internal/domain"
)

// Publisher writes JSON events to Kafka, lazily managing one writer per topic.
// Messages are keyed by user id so per-user ordering survives partitioning.
type Publisher struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewPublisher creates a Publisher.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// PublishBatch marshals and writes one message per record to the topic. The
// whole batch is written in a single WriteMessages call; a failure means no
// snapshot for any record in the batch may be persisted.
func (p *Publisher) PublishBatch(ctx context.Context, topic, eventType, userID string, records []any) error {
	if len(records) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	now := time.Now().UTC()
	for _, record := range records {
		body, err := json.Marshal(record)
		if err != nil {
			return domain.WrapError(domain.KindPublish, err, "marshal event payload")
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(userID),
			Value: body,
			Time:  now,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(uuid.NewString())},
				{Key: "event_type", Value: []byte(eventType)},
				{Key: "user_id", Value: []byte(userID)},
			},
		})
	}

	if err := p.writerForTopic(topic).WriteMessages(ctx, msgs...); err != nil {
		recordPublishError(topic)
		return domain.WrapError(domain.KindPublish, err, "write to "+topic)
	}
	recordPublished(topic, len(msgs))
	return nil
}

// Publish writes a single event.
func (p *Publisher) Publish(ctx context.Context, topic, eventType, userID string, record any) error {
	return p.PublishBatch(ctx, topic, eventType, userID, []any{record})
}

func (p *Publisher) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
