package database

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

var notificationColumns = []string{
	"id", "user_id", "type", "title", "message", "link", "is_read", "read_at",
	"is_archived", "created_at",
}

type NotificationRepository struct {
	*Store
}

func NewNotificationRepository(store *Store) *NotificationRepository {
	return &NotificationRepository{Store: store}
}

func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	q := r.Builder.Insert("notifications").Columns(notificationColumns...).Values(
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Link, n.IsRead, n.ReadAt,
		n.IsArchived, n.CreatedAt,
	)
	_, err := r.exec(ctx, q)
	return err
}

func (r *NotificationRepository) FindByID(ctx context.Context, userID, id string) (*entity.Notification, error) {
	var n entity.Notification
	q := r.Builder.Select(notificationColumns...).From("notifications").
		Where(sq.Eq{"id": id, "user_id": userID})
	if err := r.getInto(ctx, &n, q); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) List(ctx context.Context, f entity.NotificationFilter) ([]*entity.Notification, int, error) {
	where := sq.And{sq.Eq{"user_id": f.UserID, "is_archived": f.Archived}}
	if f.UnreadOnly {
		where = append(where, sq.Eq{"is_read": false})
	}
	if len(f.Types) > 0 {
		where = append(where, sq.Eq{"type": f.Types})
	}

	total, err := r.count(ctx, r.Builder.Select("COUNT(*)").From("notifications").Where(where))
	if err != nil {
		return nil, 0, err
	}

	q := r.Builder.Select(notificationColumns...).From("notifications").Where(where).
		OrderBy("created_at DESC", "id ASC")
	q = pageQuery(q, f.Page)

	out := []*entity.Notification{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, r.Builder.Select("COUNT(*)").From("notifications").
		Where(sq.Eq{"user_id": userID, "is_read": false, "is_archived": false}))
}

func (r *NotificationRepository) SetRead(ctx context.Context, userID string, ids []string, read bool, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var readAt *time.Time
	if read {
		readAt = &at
	}
	q := r.Builder.Update("notifications").
		Set("is_read", read).
		Set("read_at", readAt).
		Where(sq.Eq{"user_id": userID, "id": ids})
	return affected(r.exec(ctx, q))
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	q := r.Builder.Update("notifications").
		Set("is_read", true).
		Set("read_at", at).
		Where(sq.Eq{"user_id": userID, "is_read": false})
	return affected(r.exec(ctx, q))
}

func (r *NotificationRepository) Archive(ctx context.Context, userID, id string) error {
	q := r.Builder.Update("notifications").Set("is_archived", true).
		Where(sq.Eq{"user_id": userID, "id": id})
	return rowsAffected(r.exec(ctx, q))
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id string) error {
	q := r.Builder.Delete("notifications").Where(sq.Eq{"user_id": userID, "id": id})
	return rowsAffected(r.exec(ctx, q))
}
