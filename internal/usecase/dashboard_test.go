package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
)

type dashboardFixture struct {
	store         *MockDashboardStore
	leads         *MockLeadRepository
	tasks         *MockTaskRepository
	suggestions   *MockSuggestionRepository
	notifications *MockNotificationRepository
	cache         *mapCache
	uc            *DashboardUseCase
}

func newDashboardFixture() *dashboardFixture {
	f := &dashboardFixture{
		store:         new(MockDashboardStore),
		leads:         new(MockLeadRepository),
		tasks:         new(MockTaskRepository),
		suggestions:   new(MockSuggestionRepository),
		notifications: new(MockNotificationRepository),
		cache:         newMapCache(),
	}
	f.uc = NewDashboardUseCase(f.store, f.leads, f.tasks, f.suggestions, f.notifications,
		f.cache, time.Minute, newClock(), zap.NewNop())
	return f
}

func (f *dashboardFixture) expectMetrics() {
	f.store.On("CountLeads", mock.Anything, "u1", mock.MatchedBy(func(q database.LeadCountQuery) bool {
		return !q.ConvertedSince.IsZero()
	})).Return(2, nil)
	f.store.On("CountLeads", mock.Anything, "u1", mock.MatchedBy(func(q database.LeadCountQuery) bool {
		return !q.ContactedSince.IsZero()
	})).Return(8, nil)
	f.store.On("CountLeads", mock.Anything, "u1", mock.Anything).Return(10, nil)
	f.store.On("CountTasks", mock.Anything, "u1", mock.MatchedBy(func(q database.TaskCountQuery) bool {
		return !q.DueFrom.IsZero()
	})).Return(1, nil)
	f.store.On("CountTasks", mock.Anything, "u1", mock.MatchedBy(func(q database.TaskCountQuery) bool {
		return !q.DueBefore.IsZero()
	})).Return(3, nil)
	f.store.On("CountTasks", mock.Anything, "u1", mock.Anything).Return(6, nil)
	f.store.On("CountCampaigns", mock.Anything, "u1", entity.CampaignActive).Return(2, nil)
	f.store.On("LeadsByStage", mock.Anything, "u1").Return(map[entity.LeadStage]int{entity.StageNew: 10}, nil)
	f.store.On("LeadsBySource", mock.Anything, "u1").Return(map[entity.LeadSource]int{entity.SourceOther: 10}, nil)
	f.store.On("PipelineValue", mock.Anything, "u1").Return(int64(12500), nil)
	f.notifications.On("UnreadCount", mock.Anything, "u1").Return(4, nil)
}

func TestDashboardMetrics(t *testing.T) {
	f := newDashboardFixture()
	f.expectMetrics()

	m, err := f.uc.Metrics(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 10, m.TotalLeads)
	assert.Equal(t, 10, m.NewLeadsThisMonth)
	assert.Equal(t, 8, m.ContactedThisMonth)
	assert.Equal(t, 2, m.ConvertedThisMonth)
	assert.Equal(t, 25.0, m.ConversionRate)
	assert.Equal(t, 6, m.PendingTasks)
	assert.Equal(t, 3, m.OverdueTasks)
	assert.Equal(t, 1, m.TasksDueToday)
	assert.Equal(t, 2, m.ActiveCampaigns)
	assert.Equal(t, 4, m.UnreadNotifications)
	assert.Equal(t, int64(12500), m.PipelineValue)
	assert.Equal(t, 10, m.LeadsByStage[entity.StageNew])
	assert.Equal(t, base, m.GeneratedAt)
}

func TestDashboardMetrics_Cache(t *testing.T) {
	ctx := context.Background()
	f := newDashboardFixture()
	f.expectMetrics()

	first, err := f.uc.Metrics(ctx, "u1")
	require.NoError(t, err)
	second, err := f.uc.Metrics(ctx, "u1")
	require.NoError(t, err)
	assert.Same(t, first, second)
	f.store.AssertNumberOfCalls(t, "PipelineValue", 1)

	require.NoError(t, f.uc.Invalidate(ctx, "u1"))
	assert.Zero(t, f.cache.len())

	_, err = f.uc.Metrics(ctx, "u1")
	require.NoError(t, err)
	f.store.AssertNumberOfCalls(t, "PipelineValue", 2)
}

func TestDashboardMetrics_StoreError(t *testing.T) {
	f := newDashboardFixture()
	f.store.On("CountLeads", mock.Anything, "u1", mock.Anything).Return(0, errors.New("connection reset"))
	f.store.On("CountTasks", mock.Anything, "u1", mock.Anything).Return(0, nil)
	f.store.On("CountCampaigns", mock.Anything, "u1", mock.Anything).Return(0, nil)
	f.store.On("LeadsByStage", mock.Anything, "u1").Return(map[entity.LeadStage]int{}, nil)
	f.store.On("LeadsBySource", mock.Anything, "u1").Return(map[entity.LeadSource]int{}, nil)
	f.store.On("PipelineValue", mock.Anything, "u1").Return(int64(0), nil)
	f.notifications.On("UnreadCount", mock.Anything, "u1").Return(0, nil)

	_, err := f.uc.Metrics(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, IsTechnicalError(err))
	assert.Zero(t, f.cache.len())
}

func TestDashboardTimeline(t *testing.T) {
	f := newDashboardFixture()
	since := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	convertedEarly := base.Add(-48 * time.Hour)
	convertedNow := base
	f.store.On("LeadActivitySince", mock.Anything, "u1", since).Return([]database.LeadActivity{
		{ID: "a", CreatedAt: base.Add(-24 * time.Hour)},
		{ID: "b", CreatedAt: base.Add(-time.Hour), ConvertedAt: &convertedNow},
		{ID: "c", CreatedAt: base.Add(-10 * 24 * time.Hour), ConvertedAt: &convertedEarly},
	}, nil)

	tl, err := f.uc.Timeline(context.Background(), "u1", PeriodDaily, 3)
	require.NoError(t, err)

	require.Len(t, tl.Points, 3)
	assert.Equal(t, 0, tl.Points[0].NewLeads)
	assert.Equal(t, 1, tl.Points[0].Converted)
	assert.Zero(t, tl.Points[0].ConversionRate)
	assert.Equal(t, 1, tl.Points[1].NewLeads)
	assert.Equal(t, 1, tl.Points[2].NewLeads)
	assert.Equal(t, 1, tl.Points[2].Converted)
	assert.Equal(t, 100.0, tl.Points[2].ConversionRate)
	assert.Equal(t, 2, tl.TotalNewLeads)
	assert.Equal(t, 2, tl.TotalConverted)
	assert.Equal(t, 100.0, tl.ConversionRate)
}

func TestDashboardTimeline_Validation(t *testing.T) {
	f := newDashboardFixture()
	ctx := context.Background()

	_, err := f.uc.Timeline(ctx, "u1", Period("yearly"), 0)
	requireCode(t, err, CodeBadRequest)

	_, err = f.uc.Timeline(ctx, "u1", PeriodDaily, MaxPoints+1)
	requireCode(t, err, CodeBadRequest)

	_, err = f.uc.Historical(ctx, "u1", Metric("revenue"), PeriodDaily, 0)
	requireCode(t, err, CodeBadRequest)
}

func TestDashboardHistorical(t *testing.T) {
	f := newDashboardFixture()
	since := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	f.store.On("TaskCompletionsSince", mock.Anything, "u1", since).Return([]time.Time{
		base.Add(-24 * time.Hour),
		base.Add(-time.Hour),
		base,
	}, nil)

	s, err := f.uc.Historical(context.Background(), "u1", MetricTasksCompleted, PeriodDaily, 2)
	require.NoError(t, err)

	require.Len(t, s.Points, 2)
	assert.Equal(t, 1.0, s.Points[0].Value)
	assert.Equal(t, 2.0, s.Points[1].Value)
	assert.Equal(t, 3.0, s.Total)
	assert.Equal(t, 100.0, s.Change)
	assert.Equal(t, "2024-03-15", s.Points[1].Label)
}

func TestDashboardHistorical_DefaultPoints(t *testing.T) {
	f := newDashboardFixture()
	f.store.On("LeadActivitySince", mock.Anything, "u1", mock.Anything).Return([]database.LeadActivity{
		{ID: "a", Value: 500, CreatedAt: base},
	}, nil)

	s, err := f.uc.Historical(context.Background(), "u1", MetricPipelineValue, PeriodMonthly, 0)
	require.NoError(t, err)
	assert.Len(t, s.Points, 12)
	assert.Equal(t, 500.0, s.Total)
	assert.Equal(t, 100.0, s.Change)
}

func TestDashboardPriorityTasks(t *testing.T) {
	f := newDashboardFixture()
	tasks := []*entity.Task{entity.NewTask("u1", "Call Ada", base)}
	f.tasks.On("Priority", mock.Anything, "u1", base, 10).Return(tasks, nil)

	got, err := f.uc.PriorityTasks(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, tasks, got)

	_, err = f.uc.PriorityTasks(context.Background(), "u1", 0)
	require.NoError(t, err)
	f.tasks.AssertNumberOfCalls(t, "Priority", 1)
}

func ruleLeads() (lost, stale, proposal *entity.Lead) {
	lost = entity.NewLead("u1", base.Add(-200*24*time.Hour))
	lost.FirstName = "Lost"
	lost.Stage = entity.StageLost
	lost.UpdatedAt = base.Add(-100 * 24 * time.Hour)

	stale = entity.NewLead("u1", base.Add(-20*24*time.Hour))
	stale.FirstName = "Stale"
	stale.Score = 80

	proposal = entity.NewLead("u1", base.Add(-5*24*time.Hour))
	proposal.FirstName = "Prop"
	proposal.Stage = entity.StageProposal
	proposal.Score = 20
	contacted := base.Add(-24 * time.Hour)
	proposal.LastContactedAt = &contacted
	return lost, stale, proposal
}

func TestEvaluateRules(t *testing.T) {
	lost, stale, proposal := ruleLeads()

	recentLost := entity.NewLead("u1", base.Add(-30*24*time.Hour))
	recentLost.Stage = entity.StageLost
	recentLost.UpdatedAt = base.Add(-10 * 24 * time.Hour)

	converted := entity.NewLead("u1", base.Add(-30*24*time.Hour))
	converted.Stage = entity.StageConverted

	out := evaluateRules("u1", []*entity.Lead{lost, recentLost, converted, stale, proposal}, map[string]bool{}, base)

	got := map[string]int{}
	for _, s := range out {
		got[s.Key()] = s.Confidence
		assert.Equal(t, entity.SuggestionPending, s.Status)
	}
	assert.Equal(t, map[string]int{
		lost.ID + "|RE_ENGAGE":       33,
		stale.ID + "|FOLLOW_UP":      76,
		stale.ID + "|STAGE_CHANGE":   80,
		proposal.ID + "|CREATE_TASK": 72,
	}, got)
}

func TestEvaluateRules_OpenTaskSuppressesCreateTask(t *testing.T) {
	_, _, proposal := ruleLeads()

	out := evaluateRules("u1", []*entity.Lead{proposal}, map[string]bool{proposal.ID: true}, base)
	assert.Empty(t, out)
}

func TestDashboardRecommendations(t *testing.T) {
	f := newDashboardFixture()
	lost, stale, proposal := ruleLeads()
	pending := []*entity.Suggestion{entity.NewSuggestion("u1", stale.ID, entity.SuggestStageChange, "Qualify Stale", "", 80, base)}

	f.leads.On("List", mock.Anything, mock.MatchedBy(func(filter entity.LeadFilter) bool {
		return filter.UserID == "u1" && filter.Archived != nil && !*filter.Archived
	})).Return([]*entity.Lead{lost, stale, proposal}, 3, nil)
	f.tasks.On("OpenLeadIDs", mock.Anything, "u1").Return(map[string]bool{}, nil)
	f.suggestions.On("ResolvedKeys", mock.Anything, "u1", base.Add(-30*24*time.Hour)).
		Return(map[string]bool{stale.ID + "|FOLLOW_UP": true}, nil)
	f.suggestions.On("Upsert", mock.Anything, mock.AnythingOfType("*entity.Suggestion")).Return(&entity.Suggestion{}, nil)
	f.suggestions.On("ExpireExcept", mock.Anything, "u1", map[string]bool{
		lost.ID + "|RE_ENGAGE":       true,
		stale.ID + "|STAGE_CHANGE":   true,
		proposal.ID + "|CREATE_TASK": true,
	}, base).Return(1, nil)
	f.suggestions.On("Pending", mock.Anything, "u1", 5).Return(pending, nil)

	got, err := f.uc.Recommendations(context.Background(), "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, pending, got)

	f.suggestions.AssertNumberOfCalls(t, "Upsert", 3)
	for _, call := range f.suggestions.Calls {
		if call.Method == "Upsert" {
			s := call.Arguments.Get(1).(*entity.Suggestion)
			assert.NotEqual(t, entity.SuggestFollowUp, s.Type)
		}
	}
}

func TestDashboardResolveSuggestion(t *testing.T) {
	ctx := context.Background()
	f := newDashboardFixture()
	s := entity.NewSuggestion("u1", "", entity.SuggestReEngage, "Re-engage", "", 50, base.Add(-time.Hour))
	f.suggestions.On("FindByID", mock.Anything, "u1", s.ID).Return(s, nil)
	f.suggestions.On("SetStatus", mock.Anything, "u1", s.ID, entity.SuggestionAccepted, base).Return(nil)
	require.NoError(t, f.cache.Set(ctx, cacheKey("u1", "recommendations", "10"), []*entity.Suggestion{s}, time.Minute))

	_, err := f.uc.ResolveSuggestion(ctx, "u1", s.ID, entity.SuggestionPending)
	requireCode(t, err, CodeBadRequest)

	got, err := f.uc.ResolveSuggestion(ctx, "u1", s.ID, entity.SuggestionAccepted)
	require.NoError(t, err)
	assert.Equal(t, entity.SuggestionAccepted, got.Status)
	assert.Equal(t, base, got.UpdatedAt)
	assert.Zero(t, f.cache.len())

	// s now carries the accepted status
	_, err = f.uc.ResolveSuggestion(ctx, "u1", s.ID, entity.SuggestionDismissed)
	requireCode(t, err, CodeInvalidTransition)
}

func TestDashboardResolveSuggestion_NotFound(t *testing.T) {
	f := newDashboardFixture()
	f.suggestions.On("FindByID", mock.Anything, "u1", "nope").Return(nil, entity.ErrNotFound)

	_, err := f.uc.ResolveSuggestion(context.Background(), "u1", "nope", entity.SuggestionDismissed)
	requireCode(t, err, CodeNotFound)
}

func TestDashboardRecommendations_ExpiresWhenRuleStopsHolding(t *testing.T) {
	ctx := context.Background()
	store, err := database.Open(ctx, database.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "crm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, database.NewMigrator(store, zap.NewNop()).Up(ctx))

	leads := database.NewLeadRepository(store)
	tasks := database.NewTaskRepository(store)
	suggestions := database.NewSuggestionRepository(store)
	uc := NewDashboardUseCase(database.NewDashboardRepository(store), leads, tasks, suggestions,
		database.NewNotificationRepository(store), nil, time.Minute, newClock(), zap.NewNop())

	lead := entity.NewLead("u1", base.Add(-5*24*time.Hour))
	lead.FirstName = "Ada"
	lead.Stage = entity.StageProposal
	contacted := base.Add(-24 * time.Hour)
	lead.LastContactedAt = &contacted
	require.NoError(t, leads.Create(ctx, lead))

	got, err := uc.Recommendations(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity.SuggestCreateTask, got[0].Type)
	first := got[0].ID

	task := entity.NewTask("u1", "Send contract", base)
	task.LeadID = &lead.ID
	require.NoError(t, tasks.Create(ctx, task))

	got, err = uc.Recommendations(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	s, err := suggestions.FindByID(ctx, "u1", first)
	require.NoError(t, err)
	assert.Equal(t, entity.SuggestionExpired, s.Status)

	// an expired suggestion does not suppress the rule when it holds again
	task.SetStatus(entity.TaskCompleted, base)
	require.NoError(t, tasks.Update(ctx, task))
	got, err = uc.Recommendations(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEqual(t, first, got[0].ID)
}
