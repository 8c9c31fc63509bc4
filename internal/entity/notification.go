package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTaskDue       NotificationType = "TASK_DUE"
	NotificationLeadConverted NotificationType = "LEAD_CONVERTED"
	NotificationLeadAssigned  NotificationType = "LEAD_ASSIGNED"
	NotificationCampaign      NotificationType = "CAMPAIGN"
	NotificationSystem        NotificationType = "SYSTEM"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTaskDue, NotificationLeadConverted, NotificationLeadAssigned,
		NotificationCampaign, NotificationSystem:
		return true
	}
	return false
}

type Notification struct {
	ID         string           `json:"id" db:"id"`
	UserID     string           `json:"userId" db:"user_id"`
	Type       NotificationType `json:"type" db:"type"`
	Title      string           `json:"title" db:"title"`
	Message    string           `json:"message" db:"message"`
	Link       string           `json:"link" db:"link"`
	IsRead     bool             `json:"isRead" db:"is_read"`
	ReadAt     *time.Time       `json:"readAt,omitempty" db:"read_at"`
	IsArchived bool             `json:"isArchived" db:"is_archived"`
	CreatedAt  time.Time        `json:"createdAt" db:"created_at"`
}

func NewNotification(userID string, typ NotificationType, title, message, link string, now time.Time) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Link:      link,
		CreatedAt: now,
	}
}

type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Types      []NotificationType
	Archived   bool
	Page       Page
}

type NotificationRepositoryInterface interface {
	Create(ctx context.Context, n *Notification) error
	FindByID(ctx context.Context, userID, id string) (*Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]*Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	SetRead(ctx context.Context, userID string, ids []string, read bool, at time.Time) (int, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	Archive(ctx context.Context, userID, id string) error
	Delete(ctx context.Context, userID, id string) error
}
