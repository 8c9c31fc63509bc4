package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, l *entity.Lead) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockLeadRepository) Update(ctx context.Context, l *entity.Lead) error {
	return m.Called(ctx, l).Error(0)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, userID, id string) (*entity.Lead, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) List(ctx context.Context, f entity.LeadFilter) ([]*entity.Lead, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entity.Lead), args.Int(1), args.Error(2)
}

func (m *MockLeadRepository) EmailTaken(ctx context.Context, userID, email, exceptID string) (bool, error) {
	args := m.Called(ctx, userID, email, exceptID)
	return args.Bool(0), args.Error(1)
}

// MockConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, c *entity.Conversation) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockConversationRepository) FindByID(ctx context.Context, userID, id string) (*entity.Conversation, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListByLead(ctx context.Context, userID, leadID string, page entity.Page) ([]*entity.Conversation, int, error) {
	args := m.Called(ctx, userID, leadID, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entity.Conversation), args.Int(1), args.Error(2)
}

func (m *MockConversationRepository) ListByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*entity.Conversation, error) {
	args := m.Called(ctx, userID, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Conversation), args.Error(1)
}

func (m *MockConversationRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockCampaignRepository
type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) Create(ctx context.Context, c *entity.Campaign) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCampaignRepository) Update(ctx context.Context, c *entity.Campaign) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCampaignRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCampaignRepository) FindByID(ctx context.Context, userID, id string) (*entity.Campaign, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) List(ctx context.Context, f entity.CampaignFilter) ([]*entity.Campaign, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entity.Campaign), args.Int(1), args.Error(2)
}

func (m *MockCampaignRepository) ReplaceSteps(ctx context.Context, campaignID string, steps []*entity.CampaignStep) error {
	return m.Called(ctx, campaignID, steps).Error(0)
}

func (m *MockCampaignRepository) Steps(ctx context.Context, campaignID string) ([]*entity.CampaignStep, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.CampaignStep), args.Error(1)
}

func (m *MockCampaignRepository) Enroll(ctx context.Context, e *entity.Enrollment) (bool, error) {
	args := m.Called(ctx, e)
	return args.Bool(0), args.Error(1)
}

func (m *MockCampaignRepository) FindEnrollment(ctx context.Context, campaignID, leadID string) (*entity.Enrollment, error) {
	args := m.Called(ctx, campaignID, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Enrollment), args.Error(1)
}

func (m *MockCampaignRepository) UpdateEnrollment(ctx context.Context, e *entity.Enrollment) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockCampaignRepository) ScheduleActive(ctx context.Context, campaignID string, at time.Time) error {
	return m.Called(ctx, campaignID, at).Error(0)
}

func (m *MockCampaignRepository) DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*entity.DueEnrollment, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.DueEnrollment), args.Error(1)
}

func (m *MockCampaignRepository) EnrollmentStats(ctx context.Context, campaignID string) (map[entity.EnrollmentStatus]int, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entity.EnrollmentStatus]int), args.Error(1)
}

func (m *MockCampaignRepository) CompleteFinished(ctx context.Context, now time.Time) ([]*entity.Campaign, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Campaign), args.Error(1)
}

// MockTaskRepository
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t *entity.Task) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *entity.Task) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTaskRepository) FindByID(ctx context.Context, userID, id string) (*entity.Task, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, f entity.TaskFilter) ([]*entity.Task, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entity.Task), args.Int(1), args.Error(2)
}

func (m *MockTaskRepository) Priority(ctx context.Context, userID string, now time.Time, limit int) ([]*entity.Task, error) {
	args := m.Called(ctx, userID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Task), args.Error(1)
}

func (m *MockTaskRepository) DueForReminder(ctx context.Context, until time.Time, limit int) ([]*entity.Task, error) {
	args := m.Called(ctx, until, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Task), args.Error(1)
}

func (m *MockTaskRepository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockTaskRepository) OpenLeadIDs(ctx context.Context, userID string) (map[string]bool, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

// MockNotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, userID, id string) (*entity.Notification, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Notification), args.Error(1)
}

func (m *MockNotificationRepository) List(ctx context.Context, f entity.NotificationFilter) ([]*entity.Notification, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entity.Notification), args.Int(1), args.Error(2)
}

func (m *MockNotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) SetRead(ctx context.Context, userID string, ids []string, read bool, at time.Time) (int, error) {
	args := m.Called(ctx, userID, ids, read, at)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	args := m.Called(ctx, userID, at)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) Archive(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

// MockSuggestionRepository
type MockSuggestionRepository struct {
	mock.Mock
}

func (m *MockSuggestionRepository) Upsert(ctx context.Context, s *entity.Suggestion) (*entity.Suggestion, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Suggestion), args.Error(1)
}

func (m *MockSuggestionRepository) Pending(ctx context.Context, userID string, limit int) ([]*entity.Suggestion, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Suggestion), args.Error(1)
}

func (m *MockSuggestionRepository) FindByID(ctx context.Context, userID, id string) (*entity.Suggestion, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Suggestion), args.Error(1)
}

func (m *MockSuggestionRepository) SetStatus(ctx context.Context, userID, id string, status entity.SuggestionStatus, at time.Time) error {
	return m.Called(ctx, userID, id, status, at).Error(0)
}

func (m *MockSuggestionRepository) ExpireExcept(ctx context.Context, userID string, keep map[string]bool, at time.Time) (int, error) {
	args := m.Called(ctx, userID, keep, at)
	return args.Int(0), args.Error(1)
}

func (m *MockSuggestionRepository) ResolvedKeys(ctx context.Context, userID string, since time.Time) (map[string]bool, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

// MockUserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*entity.UserProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.UserProfile), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, u *entity.UserProfile) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, u *entity.UserProfile) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) Preferences(ctx context.Context, userID string) (*entity.UserPreferences, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.UserPreferences), args.Error(1)
}

func (m *MockUserRepository) SavePreferences(ctx context.Context, p *entity.UserPreferences) error {
	return m.Called(ctx, p).Error(0)
}

// MockDashboardStore
type MockDashboardStore struct {
	mock.Mock
}

func (m *MockDashboardStore) CountLeads(ctx context.Context, userID string, q database.LeadCountQuery) (int, error) {
	args := m.Called(ctx, userID, q)
	return args.Int(0), args.Error(1)
}

func (m *MockDashboardStore) LeadsByStage(ctx context.Context, userID string) (map[entity.LeadStage]int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entity.LeadStage]int), args.Error(1)
}

func (m *MockDashboardStore) LeadsBySource(ctx context.Context, userID string) (map[entity.LeadSource]int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entity.LeadSource]int), args.Error(1)
}

func (m *MockDashboardStore) PipelineValue(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDashboardStore) CountCampaigns(ctx context.Context, userID string, status entity.CampaignStatus) (int, error) {
	args := m.Called(ctx, userID, status)
	return args.Int(0), args.Error(1)
}

func (m *MockDashboardStore) CountTasks(ctx context.Context, userID string, q database.TaskCountQuery) (int, error) {
	args := m.Called(ctx, userID, q)
	return args.Int(0), args.Error(1)
}

func (m *MockDashboardStore) LeadActivitySince(ctx context.Context, userID string, since time.Time) ([]database.LeadActivity, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.LeadActivity), args.Error(1)
}

func (m *MockDashboardStore) TaskCompletionsSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockDashboardStore) ConversationTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

// MockMailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e entity.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []entity.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entity.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// mapCache is an in-process Cache for dashboard tests. Values are stored
// as-is, so Get only works for pointer destinations of the stored type.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]any
	gets    int
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]any{}}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	switch d := dest.(type) {
	case **DashboardMetrics:
		*d = v.(*DashboardMetrics)
	case **Timeline:
		*d = v.(*Timeline)
	case **HistoricalSeries:
		*d = v.(*HistoricalSeries)
	case *[]*entity.Task:
		*d = v.([]*entity.Task)
	case *[]*entity.Suggestion:
		*d = v.([]*entity.Suggestion)
	default:
		return false, nil
	}
	return true, nil
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = value
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *mapCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var base = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newClock() *clock.Mock {
	c := clock.NewMock()
	c.Set(base)
	return c
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code, de.Message)
}
