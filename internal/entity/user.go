package entity

import (
	"context"
	"time"
)

type UserProfile struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Company   string    `json:"company" db:"company"`
	JobTitle  string    `json:"jobTitle" db:"job_title"`
	Timezone  string    `json:"timezone" db:"timezone"`
	AvatarURL string    `json:"avatarUrl" db:"avatar_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type Theme string

const (
	ThemeLight  Theme = "LIGHT"
	ThemeDark   Theme = "DARK"
	ThemeSystem Theme = "SYSTEM"
)

type DashboardRange string

const (
	RangeWeek    DashboardRange = "WEEK"
	RangeMonth   DashboardRange = "MONTH"
	RangeQuarter DashboardRange = "QUARTER"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type UserPreferences struct {
	UserID             string         `json:"userId" db:"user_id"`
	EmailNotifications bool           `json:"emailNotifications" db:"email_notifications"`
	TaskReminders      bool           `json:"taskReminders" db:"task_reminders"`
	WeeklyDigest       bool           `json:"weeklyDigest" db:"weekly_digest"`
	Theme              Theme          `json:"theme" db:"theme"`
	DefaultPageSize    int            `json:"defaultPageSize" db:"default_page_size"`
	DashboardRange     DashboardRange `json:"dashboardRange" db:"dashboard_range"`
	UpdatedAt          time.Time      `json:"updatedAt" db:"updated_at"`
}

func DefaultPreferences(userID string, now time.Time) *UserPreferences {
	return &UserPreferences{
		UserID:             userID,
		EmailNotifications: true,
		TaskReminders:      true,
		WeeklyDigest:       false,
		Theme:              ThemeSystem,
		DefaultPageSize:    DefaultPageSize,
		DashboardRange:     RangeMonth,
		UpdatedAt:          now,
	}
}

type UserRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*UserProfile, error)
	Create(ctx context.Context, u *UserProfile) error
	Update(ctx context.Context, u *UserProfile) error
	Preferences(ctx context.Context, userID string) (*UserPreferences, error)
	SavePreferences(ctx context.Context, p *UserPreferences) error
}
