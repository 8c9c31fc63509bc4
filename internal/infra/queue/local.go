package queue

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
)

// LocalBus dispatches events synchronously to in-process handlers. It is
// used when no broker is configured and in tests.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []entity.EventHandler
	log      *zap.Logger
}

var _ entity.EventPublisher = (*LocalBus)(nil)

func NewLocalBus(log *zap.Logger) *LocalBus {
	return &LocalBus{log: log}
}

func (b *LocalBus) Subscribe(h entity.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish runs every handler. Handler errors are logged, not returned, so
// a failing subscriber behaves like a dead-lettered message.
func (b *LocalBus) Publish(ctx context.Context, e entity.Event) error {
	b.mu.RLock()
	handlers := append([]entity.EventHandler(nil), b.handlers...)
	b.mu.RUnlock()

	metrics.RecordEventPublished(string(e.Type), nil)
	for _, h := range handlers {
		err := h.Handle(ctx, e)
		metrics.RecordEventConsumed(string(e.Type), err)
		if err != nil {
			b.log.Error("event handler failed",
				zap.String("event_id", e.ID),
				zap.String("type", string(e.Type)),
				zap.Error(err),
			)
		}
	}
	return nil
}
