package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
)

const (
	staleAfter         = 14 * 24 * time.Hour
	reEngageAfter      = 90 * 24 * time.Hour
	suppressResolved   = 30 * 24 * time.Hour
	highScore          = 70
	recommendationScan = 500
	defaultListLimit   = 10
)

// DashboardService aggregates per-user reporting data.
type DashboardService interface {
	Metrics(ctx context.Context, userID string) (*DashboardMetrics, error)
	Timeline(ctx context.Context, userID string, period Period, points int) (*Timeline, error)
	Historical(ctx context.Context, userID string, metric Metric, period Period, points int) (*HistoricalSeries, error)
	Recommendations(ctx context.Context, userID string, limit int) ([]*entity.Suggestion, error)
	ResolveSuggestion(ctx context.Context, userID, id string, status entity.SuggestionStatus) (*entity.Suggestion, error)
	PriorityTasks(ctx context.Context, userID string, limit int) ([]*entity.Task, error)
	Invalidate(ctx context.Context, userID string) error
}

var _ DashboardService = (*DashboardUseCase)(nil)

type DashboardUseCase struct {
	Store         DashboardStore
	Leads         entity.LeadRepositoryInterface
	Tasks         entity.TaskRepositoryInterface
	Suggestions   entity.SuggestionRepositoryInterface
	Notifications entity.NotificationRepositoryInterface
	Cache         Cache
	TTL           time.Duration
	Clock         clock.Clock
	Log           *zap.Logger
}

func cacheKey(userID, op, params string) string {
	return "dashboard:" + userID + ":" + op + ":" + params
}

func cachePrefix(userID string) string {
	return "dashboard:" + userID + ":"
}

// cached serves op from the cache or computes and stores it. Cache
// failures are logged and never fail the call.
func cached[T any](ctx context.Context, uc *DashboardUseCase, userID, op, params string, compute func(context.Context) (T, error)) (T, error) {
	key := cacheKey(userID, op, params)
	if uc.Cache != nil {
		var hit T
		ok, err := uc.Cache.Get(ctx, key, &hit)
		if err != nil {
			uc.Log.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.RecordCacheLookup(op, ok && err == nil)
		if ok && err == nil {
			return hit, nil
		}
	}

	v, err := compute(ctx)
	if err != nil {
		return v, err
	}
	if uc.Cache != nil {
		if err := uc.Cache.Set(ctx, key, v, uc.TTL); err != nil {
			uc.Log.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

func (uc *DashboardUseCase) now() time.Time {
	return entity.Timestamp(uc.Clock.Now())
}

func (uc *DashboardUseCase) Invalidate(ctx context.Context, userID string) error {
	if uc.Cache == nil {
		return nil
	}
	return uc.Cache.DeletePrefix(ctx, cachePrefix(userID))
}

func (uc *DashboardUseCase) Metrics(ctx context.Context, userID string) (*DashboardMetrics, error) {
	return cached(ctx, uc, userID, "metrics", "", func(ctx context.Context) (*DashboardMetrics, error) {
		return uc.computeMetrics(ctx, userID)
	})
}

func (uc *DashboardUseCase) computeMetrics(ctx context.Context, userID string) (*DashboardMetrics, error) {
	now := uc.now()
	month := startOfMonth(now)
	week := startOfWeek(now)
	today := startOfDay(now)
	open := []entity.TaskStatus{entity.TaskPending, entity.TaskInProgress}

	m := &DashboardMetrics{GeneratedAt: now}
	g, gctx := errgroup.WithContext(ctx)

	count := func(dst *int, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	leads := func(q database.LeadCountQuery) func(context.Context) (int, error) {
		return func(ctx context.Context) (int, error) { return uc.Store.CountLeads(ctx, userID, q) }
	}
	tasks := func(q database.TaskCountQuery) func(context.Context) (int, error) {
		return func(ctx context.Context) (int, error) { return uc.Store.CountTasks(ctx, userID, q) }
	}

	count(&m.TotalLeads, leads(database.LeadCountQuery{}))
	count(&m.NewLeadsThisMonth, leads(database.LeadCountQuery{CreatedSince: month}))
	count(&m.NewLeadsThisWeek, leads(database.LeadCountQuery{CreatedSince: week}))
	count(&m.ContactedThisMonth, leads(database.LeadCountQuery{ContactedSince: month}))
	count(&m.ConvertedThisMonth, leads(database.LeadCountQuery{
		ConvertedSince: month,
		Stages:         []entity.LeadStage{entity.StageConverted},
	}))
	count(&m.PendingTasks, tasks(database.TaskCountQuery{Statuses: open}))
	count(&m.OverdueTasks, tasks(database.TaskCountQuery{Statuses: open, DueBefore: now}))
	count(&m.TasksDueToday, tasks(database.TaskCountQuery{Statuses: open, DueFrom: today, DueBefore: today.AddDate(0, 0, 1)}))
	count(&m.ActiveCampaigns, func(ctx context.Context) (int, error) {
		return uc.Store.CountCampaigns(ctx, userID, entity.CampaignActive)
	})
	count(&m.UnreadNotifications, func(ctx context.Context) (int, error) {
		return uc.Notifications.UnreadCount(ctx, userID)
	})

	g.Go(func() error {
		byStage, err := uc.Store.LeadsByStage(gctx, userID)
		m.LeadsByStage = byStage
		return err
	})
	g.Go(func() error {
		bySource, err := uc.Store.LeadsBySource(gctx, userID)
		m.LeadsBySource = bySource
		return err
	})
	g.Go(func() error {
		v, err := uc.Store.PipelineValue(gctx, userID)
		m.PipelineValue = v
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, repoError(err, "dashboard metrics", userID)
	}
	m.ConversionRate = percent(float64(m.ConvertedThisMonth), float64(m.ContactedThisMonth))
	return m, nil
}

func resolvePoints(period Period, points int) (int, error) {
	if !period.Valid() {
		return 0, badRequest("period must be daily, weekly or monthly")
	}
	if points == 0 {
		return period.DefaultPoints(), nil
	}
	if points < 1 || points > MaxPoints {
		return 0, badRequest(fmt.Sprintf("points must be between 1 and %d", MaxPoints))
	}
	return points, nil
}

func (uc *DashboardUseCase) Timeline(ctx context.Context, userID string, period Period, points int) (*Timeline, error) {
	points, err := resolvePoints(period, points)
	if err != nil {
		return nil, err
	}
	params := string(period) + ":" + strconv.Itoa(points)
	return cached(ctx, uc, userID, "timeline", params, func(ctx context.Context) (*Timeline, error) {
		now := uc.now()
		buckets := buildBuckets(period, points, now)
		activity, err := uc.Store.LeadActivitySince(ctx, userID, buckets[0].Start)
		if err != nil {
			return nil, repoError(err, "lead timeline", userID)
		}

		t := &Timeline{Period: period, Points: make([]TimelinePoint, len(buckets)), GeneratedAt: now}
		for i, b := range buckets {
			t.Points[i] = TimelinePoint{Start: b.Start, End: b.End, Label: b.Label}
		}
		for _, a := range activity {
			if i := bucketIndex(buckets, a.CreatedAt); i >= 0 {
				t.Points[i].NewLeads++
				t.TotalNewLeads++
			}
			if a.ConvertedAt != nil {
				if i := bucketIndex(buckets, *a.ConvertedAt); i >= 0 {
					t.Points[i].Converted++
					t.TotalConverted++
				}
			}
		}
		for i := range t.Points {
			p := &t.Points[i]
			p.ConversionRate = percent(float64(p.Converted), float64(p.NewLeads))
		}
		t.ConversionRate = percent(float64(t.TotalConverted), float64(t.TotalNewLeads))
		return t, nil
	})
}

func (uc *DashboardUseCase) Historical(ctx context.Context, userID string, metric Metric, period Period, points int) (*HistoricalSeries, error) {
	if !metric.Valid() {
		return nil, badRequest("unknown metric " + string(metric))
	}
	points, err := resolvePoints(period, points)
	if err != nil {
		return nil, err
	}
	params := string(metric) + ":" + string(period) + ":" + strconv.Itoa(points)
	return cached(ctx, uc, userID, "historical", params, func(ctx context.Context) (*HistoricalSeries, error) {
		now := uc.now()
		buckets := buildBuckets(period, points, now)
		values := make([]float64, len(buckets))

		add := func(t time.Time, v float64) {
			if i := bucketIndex(buckets, t); i >= 0 {
				values[i] += v
			}
		}

		since := buckets[0].Start
		switch metric {
		case MetricLeads, MetricConversions, MetricPipelineValue:
			activity, err := uc.Store.LeadActivitySince(ctx, userID, since)
			if err != nil {
				return nil, repoError(err, "lead history", userID)
			}
			for _, a := range activity {
				switch metric {
				case MetricLeads:
					add(a.CreatedAt, 1)
				case MetricConversions:
					if a.ConvertedAt != nil {
						add(*a.ConvertedAt, 1)
					}
				case MetricPipelineValue:
					// value entering the pipeline, by creation date
					add(a.CreatedAt, float64(a.Value))
				}
			}
		case MetricConversations:
			times, err := uc.Store.ConversationTimesSince(ctx, userID, since)
			if err != nil {
				return nil, repoError(err, "conversation history", userID)
			}
			for _, t := range times {
				add(t, 1)
			}
		case MetricTasksCompleted:
			times, err := uc.Store.TaskCompletionsSince(ctx, userID, since)
			if err != nil {
				return nil, repoError(err, "task history", userID)
			}
			for _, t := range times {
				add(t, 1)
			}
		}

		s := &HistoricalSeries{Metric: metric, Period: period, Points: make([]MetricPoint, len(buckets)), GeneratedAt: now}
		for i, b := range buckets {
			s.Points[i] = MetricPoint{Start: b.Start, End: b.End, Label: b.Label, Value: values[i]}
			s.Total += values[i]
		}
		if n := len(values); n >= 2 {
			s.Change = change(values[n-2], values[n-1])
		}
		return s, nil
	})
}

func (uc *DashboardUseCase) PriorityTasks(ctx context.Context, userID string, limit int) ([]*entity.Task, error) {
	limit = clampLimit(limit)
	return cached(ctx, uc, userID, "priority-tasks", strconv.Itoa(limit), func(ctx context.Context) ([]*entity.Task, error) {
		tasks, err := uc.Tasks.Priority(ctx, userID, uc.now(), limit)
		if err != nil {
			return nil, repoError(err, "tasks", userID)
		}
		return tasks, nil
	})
}

// Recommendations evaluates the suggestion rules against the user's leads,
// persists new suggestions, expires the ones whose rule stopped holding and
// returns the pending ones by confidence.
func (uc *DashboardUseCase) Recommendations(ctx context.Context, userID string, limit int) ([]*entity.Suggestion, error) {
	limit = clampLimit(limit)
	return cached(ctx, uc, userID, "recommendations", strconv.Itoa(limit), func(ctx context.Context) ([]*entity.Suggestion, error) {
		if err := uc.generateSuggestions(ctx, userID); err != nil {
			return nil, err
		}
		out, err := uc.Suggestions.Pending(ctx, userID, limit)
		if err != nil {
			return nil, repoError(err, "suggestions", userID)
		}
		return out, nil
	})
}

func (uc *DashboardUseCase) generateSuggestions(ctx context.Context, userID string) error {
	now := uc.now()
	archived := false
	leads, _, err := uc.Leads.List(ctx, entity.LeadFilter{
		UserID:   userID,
		Archived: &archived,
		Sort:     "updatedAt",
		Desc:     true,
		Page:     entity.Page{Limit: recommendationScan},
	})
	if err != nil {
		return repoError(err, "leads", userID)
	}
	withTask, err := uc.Tasks.OpenLeadIDs(ctx, userID)
	if err != nil {
		return repoError(err, "tasks", userID)
	}
	resolved, err := uc.Suggestions.ResolvedKeys(ctx, userID, now.Add(-suppressResolved))
	if err != nil {
		return repoError(err, "suggestions", userID)
	}

	candidates := evaluateRules(userID, leads, withTask, now)
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Confidence > candidates[j].Confidence })
	live := make(map[string]bool, len(candidates))
	for _, s := range candidates {
		if resolved[s.Key()] {
			continue
		}
		live[s.Key()] = true
		if _, err := uc.Suggestions.Upsert(ctx, s); err != nil {
			return repoError(err, "suggestion", s.ID)
		}
	}

	// pending suggestions whose rule no longer holds
	expired, err := uc.Suggestions.ExpireExcept(ctx, userID, live, now)
	if err != nil {
		return repoError(err, "suggestions", userID)
	}
	if expired > 0 {
		uc.Log.Debug("expired stale suggestions", zap.String("user_id", userID), zap.Int("count", expired))
	}
	return nil
}

// evaluateRules derives suggestions from lead state. It is pure so the
// rules can be tested without storage.
func evaluateRules(userID string, leads []*entity.Lead, withTask map[string]bool, now time.Time) []*entity.Suggestion {
	var out []*entity.Suggestion
	for _, l := range leads {
		name := l.FullName()
		switch {
		case l.Stage == entity.StageLost:
			lostFor := now.Sub(l.UpdatedAt)
			if lostFor > reEngageAfter {
				days := int(lostFor.Hours() / 24)
				out = append(out, entity.NewSuggestion(userID, l.ID, entity.SuggestReEngage,
					"Re-engage "+name,
					fmt.Sprintf("Lost %d days ago; circumstances may have changed.", days),
					30+l.Score/4+min(days-90, 30)/3, now))
			}
			continue
		case !l.Stage.Open():
			continue
		}

		last := l.CreatedAt
		if l.LastContactedAt != nil {
			last = *l.LastContactedAt
		}
		if idle := now.Sub(last); idle > staleAfter {
			days := int(idle.Hours() / 24)
			out = append(out, entity.NewSuggestion(userID, l.ID, entity.SuggestFollowUp,
				"Follow up with "+name,
				fmt.Sprintf("No contact for %d days.", days),
				50+(days-14)+l.Score/4, now))
		}

		if l.Score >= highScore && (l.Stage == entity.StageNew || l.Stage == entity.StageContacted) {
			out = append(out, entity.NewSuggestion(userID, l.ID, entity.SuggestStageChange,
				"Qualify "+name,
				fmt.Sprintf("Score %d is high for a %s lead.", l.Score, strings.ToLower(string(l.Stage))),
				l.Score, now))
		}

		if (l.Stage == entity.StageProposal || l.Stage == entity.StageNegotiation) && !withTask[l.ID] {
			out = append(out, entity.NewSuggestion(userID, l.ID, entity.SuggestCreateTask,
				"Schedule next step for "+name,
				fmt.Sprintf("Lead is in %s with no open task.", strings.ToLower(string(l.Stage))),
				55+l.Priority*5+l.Score/10, now))
		}
	}
	return out
}

func (uc *DashboardUseCase) ResolveSuggestion(ctx context.Context, userID, id string, status entity.SuggestionStatus) (*entity.Suggestion, error) {
	if status != entity.SuggestionAccepted && status != entity.SuggestionDismissed {
		return nil, badRequest("suggestions can only be accepted or dismissed")
	}
	s, err := uc.Suggestions.FindByID(ctx, userID, id)
	if err != nil {
		return nil, repoError(err, "suggestion", id)
	}
	if s.Status != entity.SuggestionPending {
		return nil, &DomainError{Code: CodeInvalidTransition, Message: "suggestion is already " + strings.ToLower(string(s.Status))}
	}

	now := uc.now()
	if err := uc.Suggestions.SetStatus(ctx, userID, id, status, now); err != nil {
		return nil, repoError(err, "suggestion", id)
	}
	s.Status = status
	s.UpdatedAt = now

	if err := uc.Invalidate(ctx, userID); err != nil {
		uc.Log.Warn("failed to invalidate dashboard cache", zap.String("user_id", userID), zap.Error(err))
	}
	return s, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > entity.MaxPageSize {
		return entity.MaxPageSize
	}
	return limit
}

func NewDashboardUseCase(store DashboardStore, leads entity.LeadRepositoryInterface, tasks entity.TaskRepositoryInterface,
	suggestions entity.SuggestionRepositoryInterface, notifications entity.NotificationRepositoryInterface,
	cache Cache, ttl time.Duration, clk clock.Clock, log *zap.Logger) *DashboardUseCase {
	return &DashboardUseCase{
		Store:         store,
		Leads:         leads,
		Tasks:         tasks,
		Suggestions:   suggestions,
		Notifications: notifications,
		Cache:         cache,
		TTL:           ttl,
		Clock:         clk,
		Log:           log,
	}
}
