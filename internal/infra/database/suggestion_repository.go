package database

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

var suggestionColumns = []string{
	"id", "user_id", "lead_id", "type", "title", "reason", "confidence", "status",
	"created_at", "updated_at",
}

type SuggestionRepository struct {
	*Store
}

func NewSuggestionRepository(store *Store) *SuggestionRepository {
	return &SuggestionRepository{Store: store}
}

// pendingConflict matches idx_suggestions_pending_key.
const pendingConflict = `ON CONFLICT (user_id, (COALESCE(lead_id, '')), type) WHERE status = 'PENDING'
DO UPDATE SET title = excluded.title, reason = excluded.reason,
	confidence = excluded.confidence, updated_at = excluded.updated_at
RETURNING `

// Upsert relies on the partial unique index over pending suggestions, so
// concurrent callers converge on a single row.
func (r *SuggestionRepository) Upsert(ctx context.Context, s *entity.Suggestion) (*entity.Suggestion, error) {
	q := r.Builder.Insert("suggestions").Columns(suggestionColumns...).Values(
		s.ID, s.UserID, s.LeadID, s.Type, s.Title, s.Reason, s.Confidence, s.Status,
		s.CreatedAt, s.UpdatedAt,
	).Suffix(pendingConflict + strings.Join(suggestionColumns, ", "))

	var out entity.Suggestion
	if err := r.getInto(ctx, &out, q); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *SuggestionRepository) Pending(ctx context.Context, userID string, limit int) ([]*entity.Suggestion, error) {
	q := r.Builder.Select(suggestionColumns...).From("suggestions").
		Where(sq.Eq{"user_id": userID, "status": entity.SuggestionPending}).
		OrderBy("confidence DESC", "created_at ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	out := []*entity.Suggestion{}
	if err := r.selectInto(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SuggestionRepository) FindByID(ctx context.Context, userID, id string) (*entity.Suggestion, error) {
	var s entity.Suggestion
	q := r.Builder.Select(suggestionColumns...).From("suggestions").Where(sq.Eq{"id": id, "user_id": userID})
	if err := r.getInto(ctx, &s, q); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SuggestionRepository) SetStatus(ctx context.Context, userID, id string, status entity.SuggestionStatus, at time.Time) error {
	q := r.Builder.Update("suggestions").
		Set("status", status).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "user_id": userID})
	return rowsAffected(r.exec(ctx, q))
}

// ExpireExcept moves every pending suggestion of the user whose Key is not
// in keep to EXPIRED and reports how many changed.
func (r *SuggestionRepository) ExpireExcept(ctx context.Context, userID string, keep map[string]bool, at time.Time) (int, error) {
	pending, err := r.Pending(ctx, userID, 0)
	if err != nil {
		return 0, err
	}
	var stale []string
	for _, s := range pending {
		if !keep[s.Key()] {
			stale = append(stale, s.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	q := r.Builder.Update("suggestions").
		Set("status", entity.SuggestionExpired).
		Set("updated_at", at).
		Where(sq.Eq{"user_id": userID, "status": entity.SuggestionPending, "id": stale})
	return affected(r.exec(ctx, q))
}

// ResolvedKeys returns the Key of every suggestion accepted or dismissed at
// or after since. Expired ones do not count.
func (r *SuggestionRepository) ResolvedKeys(ctx context.Context, userID string, since time.Time) (map[string]bool, error) {
	q := r.Builder.Select(suggestionColumns...).From("suggestions").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Eq{"status": []entity.SuggestionStatus{entity.SuggestionAccepted, entity.SuggestionDismissed}}).
		Where(sq.GtOrEq{"updated_at": since})
	var rows []*entity.Suggestion
	if err := r.selectInto(ctx, &rows, q); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(rows))
	for _, s := range rows {
		out[s.Key()] = true
	}
	return out, nil
}
