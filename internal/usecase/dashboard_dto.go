package usecase

import (
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type DashboardMetrics struct {
	TotalLeads          int                       `json:"totalLeads"`
	NewLeadsThisMonth   int                       `json:"newLeadsThisMonth"`
	NewLeadsThisWeek    int                       `json:"newLeadsThisWeek"`
	ContactedThisMonth  int                       `json:"contactedThisMonth"`
	ConvertedThisMonth  int                       `json:"convertedThisMonth"`
	ConversionRate      float64                   `json:"conversionRate"`
	ActiveCampaigns     int                       `json:"activeCampaigns"`
	PendingTasks        int                       `json:"pendingTasks"`
	OverdueTasks        int                       `json:"overdueTasks"`
	TasksDueToday       int                       `json:"tasksDueToday"`
	UnreadNotifications int                       `json:"unreadNotifications"`
	LeadsByStage        map[entity.LeadStage]int  `json:"leadsByStage"`
	LeadsBySource       map[entity.LeadSource]int `json:"leadsBySource"`
	PipelineValue       int64                     `json:"pipelineValue"`
	GeneratedAt         time.Time                 `json:"generatedAt"`
}

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// DefaultPoints is the bucket count used when the caller does not pick one.
func (p Period) DefaultPoints() int {
	if p == PeriodDaily {
		return 30
	}
	return 12
}

func (p Period) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

const MaxPoints = 366

type TimelinePoint struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Label          string    `json:"label"`
	NewLeads       int       `json:"newLeads"`
	Converted      int       `json:"converted"`
	ConversionRate float64   `json:"conversionRate"`
}

type Timeline struct {
	Period         Period          `json:"period"`
	Points         []TimelinePoint `json:"points"`
	TotalNewLeads  int             `json:"totalNewLeads"`
	TotalConverted int             `json:"totalConverted"`
	ConversionRate float64         `json:"conversionRate"`
	GeneratedAt    time.Time       `json:"generatedAt"`
}

type Metric string

const (
	MetricLeads          Metric = "leads"
	MetricConversions    Metric = "conversions"
	MetricConversations  Metric = "conversations"
	MetricTasksCompleted Metric = "tasks_completed"
	MetricPipelineValue  Metric = "pipeline_value"
)

func (m Metric) Valid() bool {
	switch m {
	case MetricLeads, MetricConversions, MetricConversations, MetricTasksCompleted, MetricPipelineValue:
		return true
	}
	return false
}

type MetricPoint struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
	Value float64   `json:"value"`
}

type HistoricalSeries struct {
	Metric      Metric        `json:"metric"`
	Period      Period        `json:"period"`
	Points      []MetricPoint `json:"points"`
	Total       float64       `json:"total"`
	Change      float64       `json:"change"` // percent, last bucket vs the one before
	GeneratedAt time.Time     `json:"generatedAt"`
}
