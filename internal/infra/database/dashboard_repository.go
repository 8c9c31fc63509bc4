package database

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// LeadCountQuery narrows a lead count; zero values are ignored.
type LeadCountQuery struct {
	CreatedSince   time.Time
	ContactedSince time.Time
	ConvertedSince time.Time
	Stages         []entity.LeadStage
}

type TaskCountQuery struct {
	Statuses  []entity.TaskStatus
	DueBefore time.Time
	DueFrom   time.Time
}

// LeadActivity is the slice of a lead the timeline bucketing needs.
type LeadActivity struct {
	ID          string           `db:"id"`
	Stage       entity.LeadStage `db:"stage"`
	Value       int64            `db:"value"`
	CreatedAt   time.Time        `db:"created_at"`
	ConvertedAt *time.Time       `db:"converted_at"`
}

// DashboardRepository runs the aggregate queries behind the dashboard.
// Archived leads are excluded everywhere.
type DashboardRepository struct {
	*Store
}

func NewDashboardRepository(store *Store) *DashboardRepository {
	return &DashboardRepository{Store: store}
}

func (r *DashboardRepository) CountLeads(ctx context.Context, userID string, q LeadCountQuery) (int, error) {
	where := sq.And{sq.Eq{"user_id": userID, "is_archived": false}}
	if !q.CreatedSince.IsZero() {
		where = append(where, sq.GtOrEq{"created_at": q.CreatedSince})
	}
	if !q.ContactedSince.IsZero() {
		where = append(where, sq.GtOrEq{"last_contacted_at": q.ContactedSince})
	}
	if !q.ConvertedSince.IsZero() {
		where = append(where, sq.GtOrEq{"converted_at": q.ConvertedSince})
	}
	if len(q.Stages) > 0 {
		where = append(where, sq.Eq{"stage": q.Stages})
	}
	return r.count(ctx, r.Builder.Select("COUNT(*)").From("leads").Where(where))
}

func (r *DashboardRepository) LeadsByStage(ctx context.Context, userID string) (map[entity.LeadStage]int, error) {
	var rows []struct {
		Stage entity.LeadStage `db:"stage"`
		N     int              `db:"n"`
	}
	q := r.Builder.Select("stage", "COUNT(*) AS n").From("leads").
		Where(sq.Eq{"user_id": userID, "is_archived": false}).GroupBy("stage")
	if err := r.selectInto(ctx, &rows, q); err != nil {
		return nil, err
	}

	out := make(map[entity.LeadStage]int, len(entity.LeadStages))
	for _, s := range entity.LeadStages {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Stage] = row.N
	}
	return out, nil
}

func (r *DashboardRepository) LeadsBySource(ctx context.Context, userID string) (map[entity.LeadSource]int, error) {
	var rows []struct {
		Source entity.LeadSource `db:"source"`
		N      int               `db:"n"`
	}
	q := r.Builder.Select("source", "COUNT(*) AS n").From("leads").
		Where(sq.Eq{"user_id": userID, "is_archived": false}).GroupBy("source")
	if err := r.selectInto(ctx, &rows, q); err != nil {
		return nil, err
	}

	out := make(map[entity.LeadSource]int, len(entity.LeadSources))
	for _, s := range entity.LeadSources {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Source] = row.N
	}
	return out, nil
}

// PipelineValue sums the estimated value of leads in open stages.
func (r *DashboardRepository) PipelineValue(ctx context.Context, userID string) (int64, error) {
	var v int64
	q := r.Builder.Select("COALESCE(SUM(value), 0)").From("leads").
		Where(sq.Eq{"user_id": userID, "is_archived": false, "stage": entity.OpenStages})
	if err := r.getInto(ctx, &v, q); err != nil {
		return 0, err
	}
	return v, nil
}

func (r *DashboardRepository) CountCampaigns(ctx context.Context, userID string, status entity.CampaignStatus) (int, error) {
	return r.count(ctx, r.Builder.Select("COUNT(*)").From("campaigns").
		Where(sq.Eq{"user_id": userID, "status": status, "is_archived": false}))
}

func (r *DashboardRepository) CountTasks(ctx context.Context, userID string, q TaskCountQuery) (int, error) {
	where := sq.And{sq.Eq{"user_id": userID, "is_deleted": false}}
	if len(q.Statuses) > 0 {
		where = append(where, sq.Eq{"status": q.Statuses})
	}
	if !q.DueFrom.IsZero() {
		where = append(where, sq.GtOrEq{"due_date": q.DueFrom})
	}
	if !q.DueBefore.IsZero() {
		where = append(where, sq.Lt{"due_date": q.DueBefore})
	}
	return r.count(ctx, r.Builder.Select("COUNT(*)").From("tasks").Where(where))
}

// LeadActivitySince returns leads created or converted at or after since.
func (r *DashboardRepository) LeadActivitySince(ctx context.Context, userID string, since time.Time) ([]LeadActivity, error) {
	q := r.Builder.Select("id", "stage", "value", "created_at", "converted_at").From("leads").
		Where(sq.Eq{"user_id": userID, "is_archived": false}).
		Where(sq.Or{
			sq.GtOrEq{"created_at": since},
			sq.GtOrEq{"converted_at": since},
		})
	out := []LeadActivity{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// TaskCompletionsSince returns completion times of tasks finished at or after since.
func (r *DashboardRepository) TaskCompletionsSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	q := r.Builder.Select("completed_at").From("tasks").
		Where(sq.Eq{"user_id": userID, "is_deleted": false, "status": entity.TaskCompleted}).
		Where(sq.GtOrEq{"completed_at": since})
	out := []time.Time{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// ConversationTimesSince returns occurrence times of conversations at or after since.
func (r *DashboardRepository) ConversationTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	q := r.Builder.Select("occurred_at").From("conversations").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"occurred_at": since})
	out := []time.Time{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}
