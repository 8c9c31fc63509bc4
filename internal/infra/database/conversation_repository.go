package database

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

var conversationColumns = []string{
	"id", "lead_id", "user_id", "channel", "direction", "subject", "content",
	"outcome", "occurred_at", "created_at",
}

type ConversationRepository struct {
	*Store
}

func NewConversationRepository(store *Store) *ConversationRepository {
	return &ConversationRepository{Store: store}
}

func (r *ConversationRepository) Create(ctx context.Context, c *entity.Conversation) error {
	q := r.Builder.Insert("conversations").Columns(conversationColumns...).Values(
		c.ID, c.LeadID, c.UserID, c.Channel, c.Direction, c.Subject, c.Content,
		c.Outcome, c.OccurredAt, c.CreatedAt,
	)
	_, err := r.exec(ctx, q)
	return err
}

func (r *ConversationRepository) FindByID(ctx context.Context, userID, id string) (*entity.Conversation, error) {
	var c entity.Conversation
	q := r.Builder.Select(conversationColumns...).From("conversations").
		Where(sq.Eq{"id": id, "user_id": userID})
	if err := r.getInto(ctx, &c, q); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) ListByLead(ctx context.Context, userID, leadID string, page entity.Page) ([]*entity.Conversation, int, error) {
	where := sq.Eq{"lead_id": leadID, "user_id": userID}

	total, err := r.count(ctx, r.Builder.Select("COUNT(*)").From("conversations").Where(where))
	if err != nil {
		return nil, 0, err
	}

	q := r.Builder.Select(conversationColumns...).From("conversations").Where(where).
		OrderBy("occurred_at DESC", "id ASC")
	q = pageQuery(q, page)

	out := []*entity.Conversation{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ConversationRepository) ListByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*entity.Conversation, error) {
	q := r.Builder.Select(conversationColumns...).From("conversations").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"occurred_at": since}).
		OrderBy("occurred_at ASC", "id ASC")
	q = pageQuery(q, entity.Page{Limit: limit})

	out := []*entity.Conversation{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	return rowsAffected(r.exec(ctx, r.Builder.Delete("conversations").Where(sq.Eq{"id": id})))
}
