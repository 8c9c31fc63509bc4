package database

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

var leadColumns = []string{
	"id", "user_id", "first_name", "last_name", "email", "phone", "company", "title",
	"source", "stage", "score", "priority", "value", "tags", "notes",
	"last_contacted_at", "converted_at", "is_archived", "created_at", "updated_at",
}

var leadSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"score":     "score",
	"value":     "value",
	"lastName":  "last_name",
	"priority":  "priority",
}

type LeadRepository struct {
	*Store
}

func NewLeadRepository(store *Store) *LeadRepository {
	return &LeadRepository{Store: store}
}

func (r *LeadRepository) Create(ctx context.Context, l *entity.Lead) error {
	q := r.Builder.Insert("leads").Columns(leadColumns...).Values(
		l.ID, l.UserID, l.FirstName, l.LastName, l.Email, l.Phone, l.Company, l.Title,
		l.Source, l.Stage, l.Score, l.Priority, l.Value, l.Tags, l.Notes,
		l.LastContactedAt, l.ConvertedAt, l.IsArchived, l.CreatedAt, l.UpdatedAt,
	)
	_, err := r.exec(ctx, q)
	return err
}

func (r *LeadRepository) Update(ctx context.Context, l *entity.Lead) error {
	q := r.Builder.Update("leads").SetMap(map[string]any{
		"first_name":        l.FirstName,
		"last_name":         l.LastName,
		"email":             l.Email,
		"phone":             l.Phone,
		"company":           l.Company,
		"title":             l.Title,
		"source":            l.Source,
		"stage":             l.Stage,
		"score":             l.Score,
		"priority":          l.Priority,
		"value":             l.Value,
		"tags":              l.Tags,
		"notes":             l.Notes,
		"last_contacted_at": l.LastContactedAt,
		"converted_at":      l.ConvertedAt,
		"is_archived":       l.IsArchived,
		"updated_at":        l.UpdatedAt,
	}).Where(sq.Eq{"id": l.ID, "user_id": l.UserID})
	return rowsAffected(r.exec(ctx, q))
}

func (r *LeadRepository) FindByID(ctx context.Context, userID, id string) (*entity.Lead, error) {
	var l entity.Lead
	q := r.Builder.Select(leadColumns...).From("leads").Where(sq.Eq{"id": id, "user_id": userID})
	if err := r.getInto(ctx, &l, q); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LeadRepository) List(ctx context.Context, f entity.LeadFilter) ([]*entity.Lead, int, error) {
	where := r.where(f)

	total, err := r.count(ctx, r.Builder.Select("COUNT(*)").From("leads").Where(where))
	if err != nil {
		return nil, 0, err
	}

	col, ok := leadSortColumns[f.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}

	q := r.Builder.Select(leadColumns...).From("leads").Where(where).
		OrderBy(col+" "+dir, "id ASC")
	q = pageQuery(q, f.Page)

	leads := []*entity.Lead{}
	if err := r.selectInto(ctx, &leads, q); err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func (r *LeadRepository) where(f entity.LeadFilter) sq.And {
	where := sq.And{sq.Eq{"user_id": f.UserID}}
	if len(f.Stages) > 0 {
		where = append(where, sq.Eq{"stage": f.Stages})
	}
	if len(f.Sources) > 0 {
		where = append(where, sq.Eq{"source": f.Sources})
	}
	if len(f.IDs) > 0 {
		where = append(where, sq.Eq{"id": f.IDs})
	}
	if f.MinScore != nil {
		where = append(where, sq.GtOrEq{"score": *f.MinScore})
	}
	if f.Archived != nil {
		where = append(where, sq.Eq{"is_archived": *f.Archived})
	}
	if f.CreatedSince != nil {
		where = append(where, sq.GtOrEq{"created_at": *f.CreatedSince})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := likePattern(s)
		where = append(where, sq.Or{
			sq.Expr(`LOWER(first_name) LIKE ? ESCAPE '\'`, p),
			sq.Expr(`LOWER(last_name) LIKE ? ESCAPE '\'`, p),
			sq.Expr(`LOWER(email) LIKE ? ESCAPE '\'`, p),
			sq.Expr(`LOWER(company) LIKE ? ESCAPE '\'`, p),
		})
	}
	if f.Tag != "" {
		// tags are a JSON array of lower-case strings
		where = append(where, sq.Expr(`LOWER(tags) LIKE ? ESCAPE '\'`, likePattern(`"`+f.Tag+`"`)))
	}
	return where
}

func (r *LeadRepository) EmailTaken(ctx context.Context, userID, email, exceptID string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, nil
	}
	where := sq.And{
		sq.Eq{"user_id": userID, "is_archived": false},
		sq.Expr("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))),
	}
	if exceptID != "" {
		where = append(where, sq.NotEq{"id": exceptID})
	}
	n, err := r.count(ctx, r.Builder.Select("COUNT(*)").From("leads").Where(where))
	return n > 0, err
}
