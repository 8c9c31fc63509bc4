package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const defaultReminderBatch = 500

// TaskReminder raises TASK_DUE notifications for tasks coming due.
type TaskReminder struct {
	Tasks         entity.TaskRepositoryInterface
	Notifications *NotificationUseCase
	Events        entity.EventPublisher
	Clock         clock.Clock
	Log           *zap.Logger
	Window        time.Duration
	BatchSize     int
}

// SendReminders notifies every task due within the window, including
// overdue ones, exactly once. It returns the number of reminders sent.
func (r *TaskReminder) SendReminders(ctx context.Context) (int, error) {
	now := entity.Timestamp(r.Clock.Now())
	batch := r.BatchSize
	if batch <= 0 {
		batch = defaultReminderBatch
	}

	tasks, err := r.Tasks.DueForReminder(ctx, now.Add(r.Window), batch)
	if err != nil {
		return 0, fmt.Errorf("load tasks due for reminder: %w", err)
	}

	sent := 0
	var errs error
	for _, t := range tasks {
		title, message := reminderText(t, now)
		if _, err := r.Notifications.Create(ctx, t.UserID, entity.NotificationTaskDue, title, message, "/tasks/"+t.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("task %s: %w", t.ID, err))
			continue
		}
		if err := r.Tasks.MarkReminded(ctx, t.ID, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("task %s: mark reminded: %w", t.ID, err))
			continue
		}
		sent++
		publish(ctx, r.Events, r.Log, entity.NewEvent(entity.EventTaskUpdated, t.UserID, t.ID, now, map[string]string{"reminded": "true"}))
	}
	return sent, errs
}

func reminderText(t *entity.Task, now time.Time) (string, string) {
	if t.DueDate.Before(now) {
		return "Task overdue", fmt.Sprintf("%q was due %s.", t.Title, humanize.RelTime(*t.DueDate, now, "ago", "from now"))
	}
	return "Task due soon", fmt.Sprintf("%q is due %s.", t.Title, humanize.RelTime(*t.DueDate, now, "ago", "from now"))
}
