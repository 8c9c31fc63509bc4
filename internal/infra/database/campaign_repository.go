package database

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

var campaignColumns = []string{
	"id", "user_id", "name", "description", "status", "start_date", "end_date",
	"is_archived", "created_at", "updated_at",
}

var stepColumns = []string{"id", "campaign_id", "position", "type", "subject", "content", "delay_days"}

var enrollmentColumns = []string{
	"campaign_id", "lead_id", "current_step", "status", "next_run_at", "last_error",
	"enrolled_at", "updated_at",
}

const leadCountColumn = "(SELECT COUNT(*) FROM campaign_leads cl WHERE cl.campaign_id = campaigns.id) AS lead_count"

type CampaignRepository struct {
	*Store
}

func NewCampaignRepository(store *Store) *CampaignRepository {
	return &CampaignRepository{Store: store}
}

func (r *CampaignRepository) Create(ctx context.Context, c *entity.Campaign) error {
	q := r.Builder.Insert("campaigns").Columns(campaignColumns...).Values(
		c.ID, c.UserID, c.Name, c.Description, c.Status, c.StartDate, c.EndDate,
		c.IsArchived, c.CreatedAt, c.UpdatedAt,
	)
	_, err := r.exec(ctx, q)
	return err
}

func (r *CampaignRepository) Update(ctx context.Context, c *entity.Campaign) error {
	q := r.Builder.Update("campaigns").SetMap(map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"status":      c.Status,
		"start_date":  c.StartDate,
		"end_date":    c.EndDate,
		"is_archived": c.IsArchived,
		"updated_at":  c.UpdatedAt,
	}).Where(sq.Eq{"id": c.ID, "user_id": c.UserID})
	return rowsAffected(r.exec(ctx, q))
}

func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	return rowsAffected(r.exec(ctx, r.Builder.Delete("campaigns").Where(sq.Eq{"id": id})))
}

func (r *CampaignRepository) FindByID(ctx context.Context, userID, id string) (*entity.Campaign, error) {
	var c entity.Campaign
	q := r.Builder.Select(append(campaignColumns, leadCountColumn)...).From("campaigns").
		Where(sq.Eq{"id": id, "user_id": userID})
	if err := r.getInto(ctx, &c, q); err != nil {
		return nil, err
	}
	steps, err := r.Steps(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Steps = steps
	return &c, nil
}

func (r *CampaignRepository) List(ctx context.Context, f entity.CampaignFilter) ([]*entity.Campaign, int, error) {
	where := sq.And{sq.Eq{"user_id": f.UserID}}
	if len(f.Statuses) > 0 {
		where = append(where, sq.Eq{"status": f.Statuses})
	}
	if f.Archived != nil {
		where = append(where, sq.Eq{"is_archived": *f.Archived})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := likePattern(s)
		where = append(where, sq.Or{
			sq.Expr(`LOWER(name) LIKE ? ESCAPE '\'`, p),
			sq.Expr(`LOWER(description) LIKE ? ESCAPE '\'`, p),
		})
	}

	total, err := r.count(ctx, r.Builder.Select("COUNT(*)").From("campaigns").Where(where))
	if err != nil {
		return nil, 0, err
	}

	q := r.Builder.Select(append(campaignColumns, leadCountColumn)...).From("campaigns").
		Where(where).OrderBy("created_at DESC", "id ASC")
	q = pageQuery(q, f.Page)

	out := []*entity.Campaign{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, 0, err
	}
	for _, c := range out {
		c.Steps = []*entity.CampaignStep{}
	}
	return out, total, nil
}

// ReplaceSteps swaps the whole step list atomically.
func (r *CampaignRepository) ReplaceSteps(ctx context.Context, campaignID string, steps []*entity.CampaignStep) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := r.Builder.Delete("campaign_steps").Where(sq.Eq{"campaign_id": campaignID}).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return mapError(err)
		}
		if len(steps) == 0 {
			return nil
		}

		ins := r.Builder.Insert("campaign_steps").Columns(stepColumns...)
		for _, s := range steps {
			ins = ins.Values(s.ID, campaignID, s.Position, s.Type, s.Subject, s.Content, s.DelayDays)
		}
		query, args, err = ins.ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query, args...)
		return mapError(err)
	})
}

func (r *CampaignRepository) Steps(ctx context.Context, campaignID string) ([]*entity.CampaignStep, error) {
	q := r.Builder.Select(stepColumns...).From("campaign_steps").
		Where(sq.Eq{"campaign_id": campaignID}).OrderBy("position ASC")
	out := []*entity.CampaignStep{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// Enroll inserts the enrollment and reports false when the lead was
// already enrolled in the campaign.
func (r *CampaignRepository) Enroll(ctx context.Context, e *entity.Enrollment) (bool, error) {
	q := r.Builder.Insert("campaign_leads").Columns(enrollmentColumns...).Values(
		e.CampaignID, e.LeadID, e.CurrentStep, e.Status, e.NextRunAt, e.LastError,
		e.EnrolledAt, e.UpdatedAt,
	)
	if _, err := r.exec(ctx, q); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *CampaignRepository) FindEnrollment(ctx context.Context, campaignID, leadID string) (*entity.Enrollment, error) {
	var e entity.Enrollment
	q := r.Builder.Select(enrollmentColumns...).From("campaign_leads").
		Where(sq.Eq{"campaign_id": campaignID, "lead_id": leadID})
	if err := r.getInto(ctx, &e, q); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *CampaignRepository) UpdateEnrollment(ctx context.Context, e *entity.Enrollment) error {
	q := r.Builder.Update("campaign_leads").SetMap(map[string]any{
		"current_step": e.CurrentStep,
		"status":       e.Status,
		"next_run_at":  e.NextRunAt,
		"last_error":   e.LastError,
		"updated_at":   e.UpdatedAt,
	}).Where(sq.Eq{"campaign_id": e.CampaignID, "lead_id": e.LeadID})
	return rowsAffected(r.exec(ctx, q))
}

// ScheduleActive gives unscheduled active enrollments a first run time.
func (r *CampaignRepository) ScheduleActive(ctx context.Context, campaignID string, at time.Time) error {
	q := r.Builder.Update("campaign_leads").
		Set("next_run_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"campaign_id": campaignID, "status": entity.EnrollmentActive, "next_run_at": nil})
	_, err := r.exec(ctx, q)
	return err
}

func (r *CampaignRepository) DueEnrollments(ctx context.Context, now time.Time, limit int) ([]*entity.DueEnrollment, error) {
	cols := make([]string, 0, len(enrollmentColumns)+1)
	for _, c := range enrollmentColumns {
		cols = append(cols, "cl."+c)
	}
	cols = append(cols, "c.user_id")

	q := r.Builder.Select(cols...).
		From("campaign_leads cl").
		Join("campaigns c ON c.id = cl.campaign_id").
		Where(sq.Eq{"cl.status": entity.EnrollmentActive, "c.status": entity.CampaignActive}).
		Where(sq.NotEq{"cl.next_run_at": nil}).
		Where(sq.LtOrEq{"cl.next_run_at": now}).
		OrderBy("cl.next_run_at ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	out := []*entity.DueEnrollment{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CampaignRepository) EnrollmentStats(ctx context.Context, campaignID string) (map[entity.EnrollmentStatus]int, error) {
	var rows []struct {
		Status entity.EnrollmentStatus `db:"status"`
		N      int                     `db:"n"`
	}
	q := r.Builder.Select("status", "COUNT(*) AS n").From("campaign_leads").
		Where(sq.Eq{"campaign_id": campaignID}).GroupBy("status")
	if err := r.selectInto(ctx, &rows, q); err != nil {
		return nil, err
	}

	stats := map[entity.EnrollmentStatus]int{
		entity.EnrollmentActive:    0,
		entity.EnrollmentCompleted: 0,
		entity.EnrollmentStopped:   0,
		entity.EnrollmentFailed:    0,
	}
	for _, row := range rows {
		stats[row.Status] = row.N
	}
	return stats, nil
}

// CompleteFinished moves ACTIVE campaigns whose enrollments have all
// finished to COMPLETED and returns them.
func (r *CampaignRepository) CompleteFinished(ctx context.Context, now time.Time) ([]*entity.Campaign, error) {
	q := r.Builder.Select(campaignColumns...).From("campaigns").
		Where(sq.Eq{"status": entity.CampaignActive}).
		Where("EXISTS (SELECT 1 FROM campaign_leads cl WHERE cl.campaign_id = campaigns.id)").
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM campaign_leads cl WHERE cl.campaign_id = campaigns.id AND cl.status = ?)", entity.EnrollmentActive))

	done := []*entity.Campaign{}
	if err := r.selectInto(ctx, &done, q); err != nil {
		return nil, err
	}

	for _, c := range done {
		c.Status = entity.CampaignCompleted
		c.UpdatedAt = now
		if err := r.Update(ctx, c); err != nil {
			return nil, err
		}
	}
	return done, nil
}
