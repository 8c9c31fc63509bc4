package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SuggestionType string

const (
	SuggestFollowUp    SuggestionType = "FOLLOW_UP"
	SuggestStageChange SuggestionType = "STAGE_CHANGE"
	SuggestCreateTask  SuggestionType = "CREATE_TASK"
	SuggestReEngage    SuggestionType = "RE_ENGAGE"
)

type SuggestionStatus string

const (
	SuggestionPending   SuggestionStatus = "PENDING"
	SuggestionAccepted  SuggestionStatus = "ACCEPTED"
	SuggestionDismissed SuggestionStatus = "DISMISSED"
	// SuggestionExpired marks a pending suggestion whose rule stopped holding.
	SuggestionExpired SuggestionStatus = "EXPIRED"
)

type Suggestion struct {
	ID         string           `json:"id" db:"id"`
	UserID     string           `json:"userId" db:"user_id"`
	LeadID     *string          `json:"leadId,omitempty" db:"lead_id"`
	Type       SuggestionType   `json:"type" db:"type"`
	Title      string           `json:"title" db:"title"`
	Reason     string           `json:"reason" db:"reason"`
	Confidence int              `json:"confidence" db:"confidence"`
	Status     SuggestionStatus `json:"status" db:"status"`
	CreatedAt  time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time        `json:"updatedAt" db:"updated_at"`
}

func NewSuggestion(userID, leadID string, typ SuggestionType, title, reason string, confidence int, now time.Time) *Suggestion {
	s := &Suggestion{
		ID:         uuid.New().String(),
		UserID:     userID,
		Type:       typ,
		Title:      title,
		Reason:     reason,
		Confidence: ClampConfidence(confidence),
		Status:     SuggestionPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if leadID != "" {
		s.LeadID = &leadID
	}
	return s
}

func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// Key identifies a suggestion for de-duplication while pending.
func (s *Suggestion) Key() string {
	lead := ""
	if s.LeadID != nil {
		lead = *s.LeadID
	}
	return lead + "|" + string(s.Type)
}

type SuggestionRepositoryInterface interface {
	// Upsert inserts s unless a PENDING suggestion with the same lead and
	// type exists, in which case that one is refreshed and returned.
	Upsert(ctx context.Context, s *Suggestion) (*Suggestion, error)
	Pending(ctx context.Context, userID string, limit int) ([]*Suggestion, error)
	FindByID(ctx context.Context, userID, id string) (*Suggestion, error)
	SetStatus(ctx context.Context, userID, id string, status SuggestionStatus, at time.Time) error
	ExpireExcept(ctx context.Context, userID string, keep map[string]bool, at time.Time) (int, error)
	ResolvedKeys(ctx context.Context, userID string, since time.Time) (map[string]bool, error)
}
