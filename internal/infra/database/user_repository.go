package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

var userColumns = []string{
	"id", "email", "name", "company", "job_title", "timezone", "avatar_url", "created_at", "updated_at",
}

var preferenceColumns = []string{
	"user_id", "email_notifications", "task_reminders", "weekly_digest", "theme",
	"default_page_size", "dashboard_range", "updated_at",
}

type UserRepository struct {
	*Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{Store: store}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.UserProfile, error) {
	var u entity.UserProfile
	if err := r.getInto(ctx, &u, r.Builder.Select(userColumns...).From("users").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.UserProfile) error {
	q := r.Builder.Insert("users").Columns(userColumns...).Values(
		u.ID, u.Email, u.Name, u.Company, u.JobTitle, u.Timezone, u.AvatarURL, u.CreatedAt, u.UpdatedAt,
	)
	_, err := r.exec(ctx, q)
	return err
}

func (r *UserRepository) Update(ctx context.Context, u *entity.UserProfile) error {
	q := r.Builder.Update("users").SetMap(map[string]any{
		"email":      u.Email,
		"name":       u.Name,
		"company":    u.Company,
		"job_title":  u.JobTitle,
		"timezone":   u.Timezone,
		"avatar_url": u.AvatarURL,
		"updated_at": u.UpdatedAt,
	}).Where(sq.Eq{"id": u.ID})
	return rowsAffected(r.exec(ctx, q))
}

func (r *UserRepository) Preferences(ctx context.Context, userID string) (*entity.UserPreferences, error) {
	var p entity.UserPreferences
	q := r.Builder.Select(preferenceColumns...).From("user_preferences").Where(sq.Eq{"user_id": userID})
	if err := r.getInto(ctx, &p, q); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePreferences replaces the stored preferences row.
func (r *UserRepository) SavePreferences(ctx context.Context, p *entity.UserPreferences) error {
	q := r.Builder.Update("user_preferences").SetMap(map[string]any{
		"email_notifications": p.EmailNotifications,
		"task_reminders":      p.TaskReminders,
		"weekly_digest":       p.WeeklyDigest,
		"theme":               p.Theme,
		"default_page_size":   p.DefaultPageSize,
		"dashboard_range":     p.DashboardRange,
		"updated_at":          p.UpdatedAt,
	}).Where(sq.Eq{"user_id": p.UserID})

	n, err := affected(r.exec(ctx, q))
	if err != nil || n > 0 {
		return err
	}

	ins := r.Builder.Insert("user_preferences").Columns(preferenceColumns...).Values(
		p.UserID, p.EmailNotifications, p.TaskReminders, p.WeeklyDigest, p.Theme,
		p.DefaultPageSize, p.DashboardRange, p.UpdatedAt,
	)
	_, err = r.exec(ctx, ins)
	return err
}
