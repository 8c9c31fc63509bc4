package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// Open reports whether the task still needs work.
func (s TaskStatus) Open() bool {
	return s == TaskPending || s == TaskInProgress
}

type TaskType string

const (
	TaskCall     TaskType = "CALL"
	TaskEmail    TaskType = "EMAIL"
	TaskMeeting  TaskType = "MEETING"
	TaskFollowUp TaskType = "FOLLOW_UP"
	TaskOther    TaskType = "OTHER"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskCall, TaskEmail, TaskMeeting, TaskFollowUp, TaskOther:
		return true
	}
	return false
}

type Task struct {
	ID             string     `json:"id" db:"id"`
	UserID         string     `json:"userId" db:"user_id"`
	LeadID         *string    `json:"leadId,omitempty" db:"lead_id"`
	CampaignID     *string    `json:"campaignId,omitempty" db:"campaign_id"`
	Title          string     `json:"title" db:"title"`
	Description    string     `json:"description" db:"description"`
	Type           TaskType   `json:"type" db:"type"`
	Priority       int        `json:"priority" db:"priority"`
	Status         TaskStatus `json:"status" db:"status"`
	DueDate        *time.Time `json:"dueDate,omitempty" db:"due_date"`
	CompletedAt    *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	ReminderSentAt *time.Time `json:"reminderSentAt,omitempty" db:"reminder_sent_at"`
	IsDeleted      bool       `json:"-" db:"is_deleted"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

func NewTask(userID, title string, now time.Time) *Task {
	return &Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Type:      TaskOther,
		Priority:  3,
		Status:    TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus keeps CompletedAt in sync with the status.
func (t *Task) SetStatus(status TaskStatus, now time.Time) bool {
	if t.Status == status {
		return false
	}
	t.Status = status
	if status == TaskCompleted {
		c := now
		t.CompletedAt = &c
	} else {
		t.CompletedAt = nil
	}
	t.UpdatedAt = now
	return true
}

func (t *Task) Overdue(now time.Time) bool {
	return t.Status.Open() && t.DueDate != nil && t.DueDate.Before(now)
}

// DueWindow filters tasks by due date relative to now.
type DueWindow string

const (
	DueAll     DueWindow = "all"
	DueOverdue DueWindow = "overdue"
	DueToday   DueWindow = "today"
	DueWeek    DueWindow = "week"
)

type TaskFilter struct {
	UserID       string
	Statuses     []TaskStatus
	Priority     *int
	LeadID       string
	CampaignID   string
	Due          DueWindow
	Now          time.Time
	CreatedSince *time.Time
	Sort         string
	Desc         bool
	Page         Page
}

type TaskRepositoryInterface interface {
	Create(ctx context.Context, t *Task) error
	Update(ctx context.Context, t *Task) error
	FindByID(ctx context.Context, userID, id string) (*Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*Task, int, error)
	Priority(ctx context.Context, userID string, now time.Time, limit int) ([]*Task, error)
	DueForReminder(ctx context.Context, until time.Time, limit int) ([]*Task, error)
	MarkReminded(ctx context.Context, id string, at time.Time) error
	OpenLeadIDs(ctx context.Context, userID string) (map[string]bool, error)
}
