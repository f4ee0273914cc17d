package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"credon/internal/platform/kafka/producer"
	"credon/pkg/domain"
)

// Topic carrying lifecycle audit events.
const Topic = "credon.audit.lifecycle"

// KafkaSink forwards audit events to Kafka, keyed by holder label so one
// holder's history stays ordered within a partition. It is write-only;
// queries go to the primary store.
type KafkaSink struct {
	producer *producer.Producer
}

// NewKafkaSink constructs a Kafka-backed audit sink.
func NewKafkaSink(p *producer.Producer) *KafkaSink {
	return &KafkaSink{producer: p}
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: Topic,
		Key:   []byte(event.Label.String()),
		Value: value,
		Headers: map[string]string{
			"action": string(event.Action),
		},
	})
}

func (s *KafkaSink) ListByLabel(context.Context, domain.Label) ([]Event, error) {
	return nil, fmt.Errorf("kafka sink is write-only")
}
