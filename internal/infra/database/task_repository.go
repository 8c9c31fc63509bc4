package database

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

var taskColumns = []string{
	"id", "user_id", "lead_id", "campaign_id", "title", "description", "type", "priority",
	"status", "due_date", "completed_at", "reminder_sent_at", "is_deleted", "created_at", "updated_at",
}

var taskSortColumns = map[string]string{
	"dueDate":   "due_date",
	"priority":  "priority",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

var openTaskStatuses = []entity.TaskStatus{entity.TaskPending, entity.TaskInProgress}

type TaskRepository struct {
	*Store
}

func NewTaskRepository(store *Store) *TaskRepository {
	return &TaskRepository{Store: store}
}

func (r *TaskRepository) Create(ctx context.Context, t *entity.Task) error {
	q := r.Builder.Insert("tasks").Columns(taskColumns...).Values(
		t.ID, t.UserID, t.LeadID, t.CampaignID, t.Title, t.Description, t.Type, t.Priority,
		t.Status, t.DueDate, t.CompletedAt, t.ReminderSentAt, t.IsDeleted, t.CreatedAt, t.UpdatedAt,
	)
	_, err := r.exec(ctx, q)
	return err
}

func (r *TaskRepository) Update(ctx context.Context, t *entity.Task) error {
	q := r.Builder.Update("tasks").SetMap(map[string]any{
		"lead_id":          t.LeadID,
		"campaign_id":      t.CampaignID,
		"title":            t.Title,
		"description":      t.Description,
		"type":             t.Type,
		"priority":         t.Priority,
		"status":           t.Status,
		"due_date":         t.DueDate,
		"completed_at":     t.CompletedAt,
		"reminder_sent_at": t.ReminderSentAt,
		"is_deleted":       t.IsDeleted,
		"updated_at":       t.UpdatedAt,
	}).Where(sq.Eq{"id": t.ID, "user_id": t.UserID})
	return rowsAffected(r.exec(ctx, q))
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, id string) (*entity.Task, error) {
	var t entity.Task
	q := r.Builder.Select(taskColumns...).From("tasks").
		Where(sq.Eq{"id": id, "user_id": userID, "is_deleted": false})
	if err := r.getInto(ctx, &t, q); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) List(ctx context.Context, f entity.TaskFilter) ([]*entity.Task, int, error) {
	where := sq.And{sq.Eq{"user_id": f.UserID, "is_deleted": false}}
	if len(f.Statuses) > 0 {
		where = append(where, sq.Eq{"status": f.Statuses})
	}
	if f.Priority != nil {
		where = append(where, sq.Eq{"priority": *f.Priority})
	}
	if f.LeadID != "" {
		where = append(where, sq.Eq{"lead_id": f.LeadID})
	}
	if f.CampaignID != "" {
		where = append(where, sq.Eq{"campaign_id": f.CampaignID})
	}
	if f.CreatedSince != nil {
		where = append(where, sq.GtOrEq{"created_at": *f.CreatedSince})
	}
	where = append(where, dueWhere(f.Due, f.Now)...)

	total, err := r.count(ctx, r.Builder.Select("COUNT(*)").From("tasks").Where(where))
	if err != nil {
		return nil, 0, err
	}

	col, ok := taskSortColumns[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	order := []string{col + " " + dir, "id ASC"}
	if col == "due_date" {
		// undated tasks sort last on both dialects
		order = append([]string{"CASE WHEN due_date IS NULL THEN 1 ELSE 0 END"}, order...)
	}

	q := r.Builder.Select(taskColumns...).From("tasks").Where(where).OrderBy(order...)
	q = pageQuery(q, f.Page)

	out := []*entity.Task{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func dueWhere(due entity.DueWindow, now time.Time) []sq.Sqlizer {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch due {
	case entity.DueOverdue:
		return []sq.Sqlizer{
			sq.Eq{"status": openTaskStatuses},
			sq.NotEq{"due_date": nil},
			sq.Lt{"due_date": now},
		}
	case entity.DueToday:
		return []sq.Sqlizer{
			sq.GtOrEq{"due_date": startOfDay},
			sq.Lt{"due_date": startOfDay.AddDate(0, 0, 1)},
		}
	case entity.DueWeek:
		return []sq.Sqlizer{
			sq.GtOrEq{"due_date": startOfDay},
			sq.Lt{"due_date": startOfDay.AddDate(0, 0, 7)},
		}
	}
	return nil
}

// Priority returns open tasks: overdue first, then highest priority, then
// earliest due date with undated tasks last.
func (r *TaskRepository) Priority(ctx context.Context, userID string, now time.Time, limit int) ([]*entity.Task, error) {
	q := r.Builder.Select(taskColumns...).From("tasks").
		Where(sq.Eq{"user_id": userID, "is_deleted": false, "status": openTaskStatuses}).
		OrderByClause("CASE WHEN due_date IS NOT NULL AND due_date < ? THEN 0 ELSE 1 END", now).
		OrderBy(
			"priority DESC",
			"CASE WHEN due_date IS NULL THEN 1 ELSE 0 END",
			"due_date ASC",
			"created_at ASC",
		)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	out := []*entity.Task{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// DueForReminder returns open, dated tasks due before until that have not
// been reminded yet and whose owner wants reminders.
func (r *TaskRepository) DueForReminder(ctx context.Context, until time.Time, limit int) ([]*entity.Task, error) {
	cols := make([]string, 0, len(taskColumns))
	for _, c := range taskColumns {
		cols = append(cols, "t."+c)
	}
	q := r.Builder.Select(cols...).From("tasks t").
		LeftJoin("user_preferences p ON p.user_id = t.user_id").
		Where(sq.Eq{"t.is_deleted": false, "t.status": openTaskStatuses, "t.reminder_sent_at": nil}).
		Where(sq.NotEq{"t.due_date": nil}).
		Where(sq.LtOrEq{"t.due_date": until}).
		Where(sq.Or{sq.Eq{"p.task_reminders": nil}, sq.Eq{"p.task_reminders": true}}).
		OrderBy("t.due_date ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	out := []*entity.Task{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TaskRepository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	q := r.Builder.Update("tasks").Set("reminder_sent_at", at).Where(sq.Eq{"id": id})
	return rowsAffected(r.exec(ctx, q))
}

// OpenLeadIDs returns the set of leads that have at least one open task.
func (r *TaskRepository) OpenLeadIDs(ctx context.Context, userID string) (map[string]bool, error) {
	var ids []string
	q := r.Builder.Select("DISTINCT lead_id").From("tasks").
		Where(sq.Eq{"user_id": userID, "is_deleted": false, "status": openTaskStatuses}).
		Where(sq.NotEq{"lead_id": nil})
	if err := r.selectInto(ctx, &ids, q); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
