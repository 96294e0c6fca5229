package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// KafkaPublisher writes order outcomes to a Kafka topic keyed by order id.
// The trace context travels in the message headers.
type KafkaPublisher struct {
	writer *kafka.Writer
}

var _ interfaces.INotificationPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, n entities.OrderNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := make([]kafka.Header, 0, len(carrier)+1)
	headers = append(headers, kafka.Header{Key: "outcome", Value: []byte(n.Outcome)})
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(n.OrderID),
		Value:   body,
		Headers: headers,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
