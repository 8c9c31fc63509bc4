package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type DashboardLogger struct {
	logger  *zap.Logger
	service DashboardService
}

// NewDashboardLogger returns a logging middleware for the dashboard service.
func NewDashboardLogger(log *zap.Logger, s DashboardService) *DashboardLogger {
	return &DashboardLogger{logger: log, service: s}
}

var _ DashboardService = (*DashboardLogger)(nil)

func (l *DashboardLogger) Metrics(ctx context.Context, userID string) (m *DashboardMetrics, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to aggregate dashboard metrics", zap.String("user_id", userID), zap.Error(err), dur)
			return
		}
		l.logger.Debug("dashboard metrics", dur)
	}(time.Now())
	return l.service.Metrics(ctx, userID)
}

func (l *DashboardLogger) Timeline(ctx context.Context, userID string, period Period, points int) (t *Timeline, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			msg := fmt.Sprintf("failed to build %s timeline", period)
			l.logger.Debug(msg, zap.String("user_id", userID), zap.Error(err), dur)
			return
		}
		l.logger.Debug("dashboard timeline", zap.String("period", string(period)), dur)
	}(time.Now())
	return l.service.Timeline(ctx, userID, period, points)
}

func (l *DashboardLogger) Historical(ctx context.Context, userID string, metric Metric, period Period, points int) (s *HistoricalSeries, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			msg := fmt.Sprintf("failed to build %s history", metric)
			l.logger.Debug(msg, zap.String("user_id", userID), zap.Error(err), dur)
			return
		}
		l.logger.Debug("dashboard history", zap.String("metric", string(metric)), dur)
	}(time.Now())
	return l.service.Historical(ctx, userID, metric, period, points)
}

func (l *DashboardLogger) Recommendations(ctx context.Context, userID string, limit int) (out []*entity.Suggestion, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to compute recommendations", zap.String("user_id", userID), zap.Error(err), dur)
			return
		}
		l.logger.Debug("dashboard recommendations", zap.Int("count", len(out)), dur)
	}(time.Now())
	return l.service.Recommendations(ctx, userID, limit)
}

func (l *DashboardLogger) ResolveSuggestion(ctx context.Context, userID, id string, status entity.SuggestionStatus) (s *entity.Suggestion, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			msg := fmt.Sprintf("failed to resolve suggestion %s", id)
			l.logger.Debug(msg, zap.Error(err), dur)
			return
		}
		l.logger.Debug("suggestion resolved", zap.String("status", string(status)), dur)
	}(time.Now())
	return l.service.ResolveSuggestion(ctx, userID, id, status)
}

func (l *DashboardLogger) PriorityTasks(ctx context.Context, userID string, limit int) (out []*entity.Task, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to find priority tasks", zap.String("user_id", userID), zap.Error(err), dur)
			return
		}
		l.logger.Debug("dashboard priority tasks", zap.Int("count", len(out)), dur)
	}(time.Now())
	return l.service.PriorityTasks(ctx, userID, limit)
}

func (l *DashboardLogger) Invalidate(ctx context.Context, userID string) (err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to invalidate dashboard cache", zap.String("user_id", userID), zap.Error(err), dur)
			return
		}
		l.logger.Debug("dashboard cache invalidated", dur)
	}(time.Now())
	return l.service.Invalidate(ctx, userID)
}
