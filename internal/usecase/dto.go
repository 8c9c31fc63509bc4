package usecase

import (
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// LeadInput is the full representation used by POST and PUT.
type LeadInput struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Company   string   `json:"company"`
	Title     string   `json:"title"`
	Source    string   `json:"source"`
	Stage     string   `json:"stage"`
	Score     *int     `json:"score"`
	Priority  *int     `json:"priority"`
	Value     *int64   `json:"value"`
	Tags      []string `json:"tags"`
	Notes     string   `json:"notes"`
}

// AsPatch turns a full replacement into a patch that sets every field.
func (in LeadInput) AsPatch() LeadPatch {
	p := LeadPatch{
		FirstName: &in.FirstName,
		LastName:  &in.LastName,
		Email:     &in.Email,
		Phone:     &in.Phone,
		Company:   &in.Company,
		Title:     &in.Title,
		Notes:     &in.Notes,
		Score:     in.Score,
		Priority:  in.Priority,
		Value:     in.Value,
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	p.Tags = &tags
	if in.Source != "" {
		p.Source = &in.Source
	}
	if in.Stage != "" {
		p.Stage = &in.Stage
	}
	return p
}

// LeadPatch carries a partial update; nil fields are left untouched.
type LeadPatch struct {
	FirstName *string   `json:"firstName"`
	LastName  *string   `json:"lastName"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	Company   *string   `json:"company"`
	Title     *string   `json:"title"`
	Source    *string   `json:"source"`
	Stage     *string   `json:"stage"`
	Score     *int      `json:"score"`
	Priority  *int      `json:"priority"`
	Value     *int64    `json:"value"`
	Tags      *[]string `json:"tags"`
	Notes     *string   `json:"notes"`
}

type LeadListInput struct {
	Stages       []string
	Sources      []string
	Search       string
	MinScore     *int
	Tag          string
	Archived     string // "false" (default), "true" or "all"
	CreatedSince *time.Time
	Sort         string
	Order        string
	Limit        int
	Offset       int
}

type BulkStageInput struct {
	IDs   []string `json:"ids"`
	Stage string   `json:"stage"`
}

type BulkStageOutput struct {
	Updated  []string `json:"updated"`
	NotFound []string `json:"notFound"`
}

type ConversationInput struct {
	Channel    string     `json:"channel"`
	Direction  string     `json:"direction"`
	Subject    string     `json:"subject"`
	Content    string     `json:"content"`
	Outcome    string     `json:"outcome"`
	OccurredAt *time.Time `json:"occurredAt"`
}

type CampaignStepInput struct {
	Type      string `json:"type"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	DelayDays int    `json:"delayDays"`
}

type CampaignInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	StartDate   *time.Time          `json:"startDate"`
	EndDate     *time.Time          `json:"endDate"`
	Steps       []CampaignStepInput `json:"steps"`
	LeadIDs     []string            `json:"leadIds"`
}

type CampaignPatch struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

type CampaignListInput struct {
	Statuses []string
	Search   string
	Archived string
	Limit    int
	Offset   int
}

type EnrollOutput struct {
	Enrolled []string `json:"enrolled"`
	Skipped  []string `json:"skipped"`
}

type CampaignStats struct {
	CampaignID  string         `json:"campaignId"`
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"byStatus"`
	StepCount   int            `json:"stepCount"`
	CompletedPc float64        `json:"completedPercent"`
}

type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Priority    *int       `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	LeadID      *string    `json:"leadId"`
	CampaignID  *string    `json:"campaignId"`
}

func (in TaskInput) AsPatch() TaskPatch {
	p := TaskPatch{
		Title:       &in.Title,
		Description: &in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		ClearDue:    in.DueDate == nil,
		LeadID:      in.LeadID,
		CampaignID:  in.CampaignID,
	}
	if in.Type != "" {
		p.Type = &in.Type
	}
	if in.Status != "" {
		p.Status = &in.Status
	}
	return p
}

type TaskPatch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Type        *string    `json:"type"`
	Priority    *int       `json:"priority"`
	Status      *string    `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	ClearDue    bool       `json:"clearDueDate"`
	LeadID      *string    `json:"leadId"`
	CampaignID  *string    `json:"campaignId"`
}

type TaskListInput struct {
	Statuses     []string
	Priority     *int
	LeadID       string
	CampaignID   string
	Due          string
	CreatedSince *time.Time
	Sort         string
	Order        string
	Limit        int
	Offset       int
}

type NotificationListInput struct {
	UnreadOnly bool
	Types      []string
	Archived   bool
	Limit      int
	Offset     int
}

type MarkReadInput struct {
	IDs []string `json:"ids"`
	All bool     `json:"all"`
}

type ProfilePatch struct {
	Name      *string `json:"name"`
	Company   *string `json:"company"`
	JobTitle  *string `json:"jobTitle"`
	Timezone  *string `json:"timezone"`
	AvatarURL *string `json:"avatarUrl"`
}

type PreferencesPatch struct {
	EmailNotifications *bool   `json:"emailNotifications"`
	TaskReminders      *bool   `json:"taskReminders"`
	WeeklyDigest       *bool   `json:"weeklyDigest"`
	Theme              *string `json:"theme"`
	DefaultPageSize    *int    `json:"defaultPageSize"`
	DashboardRange     *string `json:"dashboardRange"`
}

// PageResult is the paginated list envelope.
type PageResult[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NotificationPage adds the unread badge count to a notification page.
type NotificationPage struct {
	PageResult[*entity.Notification]
	UnreadCount int `json:"unreadCount"`
}
