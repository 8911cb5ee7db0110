// Package kafka publishes lifecycle events to a single Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers []string
	Topic   string
}

// Producer wraps a kafka-go writer. Events of one order or claim share a key
// and therefore a partition.
type Producer struct {
	writer *kafkago.Writer
}

func NewProducer(cfg Config) *Producer {
	return &Producer{writer: &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

func (p *Producer) Publish(ctx context.Context, eventType, key string, body any) error {
	msg, err := buildMessage(eventType, key, body)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.writer.Topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func buildMessage(eventType, key string, body any) (kafkago.Message, error) {
	value, err := json.Marshal(body)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("kafka marshal %s: %w", eventType, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "content_type", Value: []byte("application/json")},
		},
	}, nil
}
