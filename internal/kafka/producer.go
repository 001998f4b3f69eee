// Package kafka publishes normalized shipment status events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/velostore/cdek-bridge/pkg/shipper"
)

// Producer writes status events to one topic, keyed by provider order
// identifier so consumers see per-shipment ordering.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a status event producer.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// PublishStatus sends one status event.
func (p *Producer) PublishStatus(ctx context.Context, event *shipper.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode status event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ProviderID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish status event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
