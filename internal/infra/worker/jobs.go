package worker

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

// NewCampaignWorker executes due campaign steps every interval.
func NewCampaignWorker(runner *usecase.CampaignRunner, interval time.Duration, clk clock.Clock, log *zap.Logger) *TickerWorker {
	return NewTickerWorker("campaign-runner", interval, func(ctx context.Context) error {
		report, err := runner.RunDue(ctx)
		if report.Executed+report.Completed+report.Stopped+report.Failed+report.Campaigns > 0 {
			log.Info("campaign steps processed",
				zap.Int("executed", report.Executed),
				zap.Int("completed", report.Completed),
				zap.Int("stopped", report.Stopped),
				zap.Int("failed", report.Failed),
				zap.Int("campaigns_completed", report.Campaigns),
			)
		}
		return err
	}, clk, log)
}

// NewReminderWorker sends task reminders every interval.
func NewReminderWorker(reminder *usecase.TaskReminder, interval time.Duration, clk clock.Clock, log *zap.Logger) *TickerWorker {
	return NewTickerWorker("task-reminders", interval, func(ctx context.Context) error {
		sent, err := reminder.SendReminders(ctx)
		if sent > 0 {
			log.Info("task reminders sent", zap.Int("count", sent))
		}
		return err
	}, clk, log)
}
