package kafka

import (
	"context"
	"fmt"
	"time"

	"ticketnepal/internal/logger"

	"github.com/segmentio/kafka-go"
)

// Producer writes keyed messages to any topic through one shared writer.
type Producer struct {
	Writer *kafka.Writer
	Logger *logger.Logger
}

func NewProducer(brokers []string, log *logger.Logger) *Producer {
	return &Producer{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           10 * time.Second,
		},
		Logger: log,
	}
}

// Publish sends value to topic. Messages with the same key land on the same partition.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	err := p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.Logger.LogKafka("PUBLISH", topic, key)
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// LogPublisher stands in for Kafka when it is disabled and only logs what would be sent.
type LogPublisher struct {
	Logger *logger.Logger
}

func (p LogPublisher) Publish(_ context.Context, topic, key string, value []byte) error {
	p.Logger.LogKafka("SKIPPED", topic, fmt.Sprintf("%s (%d bytes, kafka disabled)", key, len(value)))
	return nil
}
