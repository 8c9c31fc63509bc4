package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// EventHandler reacts to domain events: it drops the user's cached
// dashboard and raises notifications for conversions.
type EventHandler struct {
	Dashboard     DashboardService
	Notifications *NotificationUseCase
	Log           *zap.Logger
}

var _ entity.EventHandler = (*EventHandler)(nil)

func NewEventHandler(dashboard DashboardService, notifications *NotificationUseCase, log *zap.Logger) *EventHandler {
	return &EventHandler{Dashboard: dashboard, Notifications: notifications, Log: log}
}

func (h *EventHandler) Handle(ctx context.Context, e entity.Event) error {
	if e.UserID == "" {
		return fmt.Errorf("event %s (%s) has no user", e.ID, e.Type)
	}
	if err := h.Dashboard.Invalidate(ctx, e.UserID); err != nil {
		// the TTL still bounds staleness
		h.Log.Warn("failed to invalidate dashboard cache",
			zap.String("user_id", e.UserID),
			zap.String("event", string(e.Type)),
			zap.Error(err),
		)
	}

	if e.Type == entity.EventLeadStageChanged && e.Data["to"] == string(entity.StageConverted) {
		name := e.Data["name"]
		if name == "" {
			name = "A lead"
		}
		_, err := h.Notifications.Create(ctx, e.UserID, entity.NotificationLeadConverted,
			"Lead converted",
			fmt.Sprintf("%s moved to CONVERTED.", name),
			"/leads/"+e.EntityID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
