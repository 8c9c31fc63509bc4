package queue

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
)

// Consumer is the part of *amqp.Channel the worker needs.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker consumes domain events and hands them to a handler.
type Worker struct {
	Channel Consumer
	Handler entity.EventHandler
	Log     *zap.Logger
}

func NewWorker(ch Consumer, handler entity.EventHandler, log *zap.Logger) *Worker {
	return &Worker{Channel: ch, Handler: handler, Log: log}
}

// Start consumes queueName until ctx is done or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	w.Log.Info("event consumer started", zap.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			w.Log.Info("event consumer stopped")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d.Body, d.Acknowledger, d.DeliveryTag)
		}
	}
}

// handle decodes and dispatches one message. Malformed messages and
// handler failures are dead-lettered without requeue.
func (w *Worker) handle(ctx context.Context, body []byte, ack amqp.Acknowledger, tag uint64) {
	var e entity.Event
	if err := json.Unmarshal(body, &e); err != nil || e.Type == "" {
		w.Log.Warn("dropping malformed event", zap.Error(err), zap.ByteString("body", truncate(body, 256)))
		metrics.RecordEventConsumed("malformed", errors.New("malformed"))
		w.settle(ack.Nack(tag, false, false), "nack", tag)
		return
	}

	err := w.Handler.Handle(ctx, e)
	metrics.RecordEventConsumed(string(e.Type), err)
	if err != nil {
		w.Log.Error("event handler failed",
			zap.String("event_id", e.ID),
			zap.String("type", string(e.Type)),
			zap.Error(err),
		)
		w.settle(ack.Nack(tag, false, false), "nack", tag)
		return
	}
	w.settle(ack.Ack(tag, false), "ack", tag)
}

// settle logs a failed acknowledgement. The broker redelivers unsettled
// messages once the channel closes.
func (w *Worker) settle(err error, op string, tag uint64) {
	if err != nil {
		w.Log.Error("failed to settle delivery",
			zap.String("op", op),
			zap.Uint64("delivery_tag", tag),
			zap.Error(err),
		)
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
