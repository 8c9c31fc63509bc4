package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "DRAFT"
	CampaignActive    CampaignStatus = "ACTIVE"
	CampaignPaused    CampaignStatus = "PAUSED"
	CampaignCompleted CampaignStatus = "COMPLETED"
	CampaignArchived  CampaignStatus = "ARCHIVED"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignActive, CampaignArchived},
	CampaignActive:    {CampaignPaused, CampaignCompleted, CampaignArchived},
	CampaignPaused:    {CampaignActive, CampaignArchived},
	CampaignCompleted: {CampaignArchived},
}

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignActive, CampaignPaused, CampaignCompleted, CampaignArchived:
		return true
	}
	return false
}

func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	for _, v := range campaignTransitions[s] {
		if v == to {
			return true
		}
	}
	return false
}

// Editable reports whether steps may be replaced in this status.
func (s CampaignStatus) Editable() bool {
	return s == CampaignDraft || s == CampaignPaused
}

type StepType string

const (
	StepEmail StepType = "EMAIL"
	StepCall  StepType = "CALL"
	StepWait  StepType = "WAIT"
	StepTask  StepType = "TASK"
)

func (t StepType) Valid() bool {
	switch t {
	case StepEmail, StepCall, StepWait, StepTask:
		return true
	}
	return false
}

type Campaign struct {
	ID          string         `json:"id" db:"id"`
	UserID      string         `json:"userId" db:"user_id"`
	Name        string         `json:"name" db:"name"`
	Description string         `json:"description" db:"description"`
	Status      CampaignStatus `json:"status" db:"status"`
	StartDate   *time.Time     `json:"startDate,omitempty" db:"start_date"`
	EndDate     *time.Time     `json:"endDate,omitempty" db:"end_date"`
	IsArchived  bool           `json:"isArchived" db:"is_archived"`
	LeadCount   int            `json:"leadCount" db:"lead_count"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`

	Steps []*CampaignStep `json:"steps" db:"-"`
}

func NewCampaign(userID, name string, now time.Time) *Campaign {
	return &Campaign{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Status:    CampaignDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChangeStatus applies a status transition. Archiving also flags the row.
func (c *Campaign) ChangeStatus(to CampaignStatus, now time.Time) error {
	if c.Status == to {
		return nil
	}
	if !c.Status.CanTransition(to) {
		return ErrInvalidTransition
	}
	c.Status = to
	if to == CampaignArchived {
		c.IsArchived = true
	}
	c.UpdatedAt = now
	return nil
}

type CampaignStep struct {
	ID         string   `json:"id" db:"id"`
	CampaignID string   `json:"campaignId" db:"campaign_id"`
	Position   int      `json:"position" db:"position"`
	Type       StepType `json:"type" db:"type"`
	Subject    string   `json:"subject" db:"subject"`
	Content    string   `json:"content" db:"content"`
	DelayDays  int      `json:"delayDays" db:"delay_days"`
}

func NewCampaignStep(campaignID string, position int, typ StepType, subject, content string, delayDays int) *CampaignStep {
	return &CampaignStep{
		ID:         uuid.New().String(),
		CampaignID: campaignID,
		Position:   position,
		Type:       typ,
		Subject:    subject,
		Content:    content,
		DelayDays:  delayDays,
	}
}

func (s *CampaignStep) Delay() time.Duration {
	return time.Duration(s.DelayDays) * 24 * time.Hour
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStopped   EnrollmentStatus = "STOPPED"
	EnrollmentFailed    EnrollmentStatus = "FAILED"
)

type Enrollment struct {
	CampaignID  string           `json:"campaignId" db:"campaign_id"`
	LeadID      string           `json:"leadId" db:"lead_id"`
	CurrentStep int              `json:"currentStep" db:"current_step"`
	Status      EnrollmentStatus `json:"status" db:"status"`
	NextRunAt   *time.Time       `json:"nextRunAt,omitempty" db:"next_run_at"`
	LastError   string           `json:"lastError,omitempty" db:"last_error"`
	EnrolledAt  time.Time        `json:"enrolledAt" db:"enrolled_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// DueEnrollment is an enrollment joined with what the runner needs.
type DueEnrollment struct {
	Enrollment
	UserID string `db:"user_id"`
}

type CampaignFilter struct {
	UserID   string
	Statuses []CampaignStatus
	Search   string
	Archived *bool
	Page     Page
}

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *Campaign) error
	Update(ctx context.Context, c *Campaign) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, userID, id string) (*Campaign, error)
	List(ctx context.Context, filter CampaignFilter) ([]*Campaign, int, error)
	ReplaceSteps(ctx context.Context, campaignID string, steps []*CampaignStep) error
	Steps(ctx context.Context, campaignID string) ([]*CampaignStep, error)

	Enroll(ctx context.Context, e *Enrollment) (bool, error)
	FindEnrollment(ctx context.Context, campaignID, leadID string) (*Enrollment, error)
	UpdateEnrollment(ctx context.Context, e *Enrollment) error
	ScheduleActive(ctx context.Context, campaignID string, at time.Time) error
	DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*DueEnrollment, error)
	EnrollmentStats(ctx context.Context, campaignID string) (map[EnrollmentStatus]int, error)
	CompleteFinished(ctx context.Context, now time.Time) ([]*Campaign, error)
}
