package worker

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// TickerWorker runs a Job at start-up and then on every tick until its
// context is cancelled.
type TickerWorker struct {
	name         string
	job          Job
	tickInterval time.Duration
	clock        clock.Clock
	log          *zap.Logger
}

func NewTickerWorker(name string, interval time.Duration, job Job, clk clock.Clock, log *zap.Logger) *TickerWorker {
	return &TickerWorker{
		name:         name,
		job:          job,
		tickInterval: interval,
		clock:        clk,
		log:          log.With(zap.String("worker", name)),
	}
}

func (w *TickerWorker) Start(ctx context.Context) {
	w.log.Info("worker started", zap.Duration("interval", w.tickInterval))

	ticker := w.clock.Ticker(w.tickInterval)
	defer ticker.Stop()

	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *TickerWorker) run(ctx context.Context) {
	start := w.clock.Now()
	if err := w.job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Error("tick failed", zap.Error(err), zap.Duration("took", w.clock.Since(start)))
		return
	}
	w.log.Debug("tick done", zap.Duration("took", w.clock.Since(start)))
}
