package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelCall     Channel = "CALL"
	ChannelMeeting  Channel = "MEETING"
	ChannelNote     Channel = "NOTE"
	ChannelLinkedIn Channel = "LINKEDIN"
	ChannelSMS      Channel = "SMS"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelCall, ChannelMeeting, ChannelNote, ChannelLinkedIn, ChannelSMS:
		return true
	}
	return false
}

type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

func (d Direction) Valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

type Conversation struct {
	ID         string    `json:"id" db:"id"`
	LeadID     string    `json:"leadId" db:"lead_id"`
	UserID     string    `json:"userId" db:"user_id"`
	Channel    Channel   `json:"channel" db:"channel"`
	Direction  Direction `json:"direction" db:"direction"`
	Subject    string    `json:"subject" db:"subject"`
	Content    string    `json:"content" db:"content"`
	Outcome    string    `json:"outcome" db:"outcome"`
	OccurredAt time.Time `json:"occurredAt" db:"occurred_at"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

func NewConversation(userID, leadID string, channel Channel, direction Direction, occurredAt, now time.Time) *Conversation {
	return &Conversation{
		ID:         uuid.New().String(),
		LeadID:     leadID,
		UserID:     userID,
		Channel:    channel,
		Direction:  direction,
		OccurredAt: occurredAt,
		CreatedAt:  now,
	}
}

type ConversationRepositoryInterface interface {
	Create(ctx context.Context, c *Conversation) error
	FindByID(ctx context.Context, userID, id string) (*Conversation, error)
	ListByLead(ctx context.Context, userID, leadID string, page Page) ([]*Conversation, int, error)
	// ListByUser returns up to limit conversations occurring at or after
	// since, oldest first. A limit of zero means no limit.
	ListByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*Conversation, error)
	Delete(ctx context.Context, id string) error
}
