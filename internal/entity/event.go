package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventLeadCreated        EventType = "lead.created"
	EventLeadUpdated        EventType = "lead.updated"
	EventLeadStageChanged   EventType = "lead.stage_changed"
	EventLeadArchived       EventType = "lead.archived"
	EventConversationLogged EventType = "conversation.logged"
	EventTaskCreated        EventType = "task.created"
	EventTaskUpdated        EventType = "task.updated"
	EventTaskCompleted      EventType = "task.completed"
	EventCampaignUpdated    EventType = "campaign.updated"
)

// Event is a domain fact published after a successful write. Data holds
// small string attributes, e.g. "from"/"to" for stage changes.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	UserID     string            `json:"userId"`
	EntityID   string            `json:"entityId"`
	OccurredAt time.Time         `json:"occurredAt"`
	Data       map[string]string `json:"data,omitempty"`
}

func NewEvent(typ EventType, userID, entityID string, now time.Time, data map[string]string) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       typ,
		UserID:     userID,
		EntityID:   entityID,
		OccurredAt: now,
		Data:       data,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

type EventHandler interface {
	Handle(ctx context.Context, e Event) error
}
