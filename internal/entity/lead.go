package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type LeadStage string

const (
	StageNew         LeadStage = "NEW"
	StageContacted   LeadStage = "CONTACTED"
	StageQualified   LeadStage = "QUALIFIED"
	StageProposal    LeadStage = "PROPOSAL"
	StageNegotiation LeadStage = "NEGOTIATION"
	StageConverted   LeadStage = "CONVERTED"
	StageLost        LeadStage = "LOST"
)

// LeadStages lists every stage in pipeline order.
var LeadStages = []LeadStage{
	StageNew, StageContacted, StageQualified, StageProposal,
	StageNegotiation, StageConverted, StageLost,
}

// OpenStages are the stages still counted in the active pipeline.
var OpenStages = []LeadStage{
	StageNew, StageContacted, StageQualified, StageProposal, StageNegotiation,
}

func (s LeadStage) Valid() bool {
	for _, v := range LeadStages {
		if v == s {
			return true
		}
	}
	return false
}

func (s LeadStage) Open() bool {
	for _, v := range OpenStages {
		if v == s {
			return true
		}
	}
	return false
}

type LeadSource string

const (
	SourceWebsite      LeadSource = "WEBSITE"
	SourceReferral     LeadSource = "REFERRAL"
	SourceLinkedIn     LeadSource = "LINKEDIN"
	SourceColdOutreach LeadSource = "COLD_OUTREACH"
	SourceEvent        LeadSource = "EVENT"
	SourceAdvertising  LeadSource = "ADVERTISING"
	SourceOther        LeadSource = "OTHER"
)

var LeadSources = []LeadSource{
	SourceWebsite, SourceReferral, SourceLinkedIn, SourceColdOutreach,
	SourceEvent, SourceAdvertising, SourceOther,
}

func (s LeadSource) Valid() bool {
	for _, v := range LeadSources {
		if v == s {
			return true
		}
	}
	return false
}

type Lead struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"userId" db:"user_id"`
	FirstName       string     `json:"firstName" db:"first_name"`
	LastName        string     `json:"lastName" db:"last_name"`
	Email           string     `json:"email" db:"email"`
	Phone           string     `json:"phone" db:"phone"`
	Company         string     `json:"company" db:"company"`
	Title           string     `json:"title" db:"title"`
	Source          LeadSource `json:"source" db:"source"`
	Stage           LeadStage  `json:"stage" db:"stage"`
	Score           int        `json:"score" db:"score"`
	Priority        int        `json:"priority" db:"priority"`
	Value           int64      `json:"value" db:"value"` // cents
	Tags            Tags       `json:"tags" db:"tags"`
	Notes           string     `json:"notes" db:"notes"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty" db:"last_contacted_at"`
	ConvertedAt     *time.Time `json:"convertedAt,omitempty" db:"converted_at"`
	IsArchived      bool       `json:"isArchived" db:"is_archived"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

func NewLead(userID string, now time.Time) *Lead {
	return &Lead{
		ID:        uuid.New().String(),
		UserID:    userID,
		Source:    SourceOther,
		Stage:     StageNew,
		Priority:  3,
		Tags:      Tags{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (l *Lead) FullName() string {
	switch {
	case l.FirstName != "" && l.LastName != "":
		return l.FirstName + " " + l.LastName
	case l.FirstName != "":
		return l.FirstName
	case l.LastName != "":
		return l.LastName
	default:
		return l.Company
	}
}

// ChangeStage moves the lead to stage and keeps ConvertedAt consistent.
// It reports whether the stage actually changed.
func (l *Lead) ChangeStage(stage LeadStage, now time.Time) (bool, error) {
	if l.IsArchived {
		return false, ErrArchived
	}
	if !stage.Valid() {
		return false, ErrInvalidTransition
	}
	if l.Stage == stage {
		return false, nil
	}
	switch {
	case stage == StageConverted && l.ConvertedAt == nil:
		t := now
		l.ConvertedAt = &t
	case stage != StageConverted:
		l.ConvertedAt = nil
	}
	l.Stage = stage
	l.UpdatedAt = now
	return true, nil
}

// MarkContacted records an interaction and advances a NEW lead.
func (l *Lead) MarkContacted(at, now time.Time) bool {
	if l.LastContactedAt == nil || at.After(*l.LastContactedAt) {
		t := at
		l.LastContactedAt = &t
	}
	advanced := false
	if l.Stage == StageNew && !l.IsArchived {
		l.Stage = StageContacted
		advanced = true
	}
	l.UpdatedAt = now
	return advanced
}

type LeadFilter struct {
	UserID       string
	Stages       []LeadStage
	Sources      []LeadSource
	Search       string
	MinScore     *int
	Tag          string
	Archived     *bool // nil means all
	IDs          []string
	// CreatedSince keeps leads created at or after the instant.
	CreatedSince *time.Time
	Sort         string
	Desc         bool
	Page         Page
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	Update(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, userID, id string) (*Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]*Lead, int, error)
	EmailTaken(ctx context.Context, userID, email, exceptID string) (bool, error)
}
