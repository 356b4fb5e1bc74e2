package events

import (
	"context"

	"scribe/internal/adapters/kafka"
)

// KafkaSink publishes operation events to a Kafka topic, keyed by
// provider so per-provider ordering is preserved.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		producer: kafka.NewProducer(kafka.ProducerConfig{Brokers: brokers}),
		topic:    topic,
	}
}

func (s *KafkaSink) Publish(ctx context.Context, evt Event) error {
	return s.producer.Publish(ctx, s.topic, evt.Provider, evt)
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
