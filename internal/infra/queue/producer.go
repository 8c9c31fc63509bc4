package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
)

// Publisher is the part of *amqp.Channel the producer needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch Publisher
}

var _ entity.EventPublisher = (*RabbitMQProducer)(nil)

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

// Publish sends e to the topic exchange using its type as routing key.
func (p *RabbitMQProducer) Publish(ctx context.Context, e entity.Event) (err error) {
	defer func() { metrics.RecordEventPublished(string(e.Type), err) }()

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		string(e.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    e.ID,
			Timestamp:    e.OccurredAt,
			Type:         string(e.Type),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to rabbitmq: %w", err)
	}
	return nil
}
