package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
)

// Mailer delivers campaign emails.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DashboardStore runs the aggregate queries behind the dashboard.
type DashboardStore interface {
	CountLeads(ctx context.Context, userID string, q database.LeadCountQuery) (int, error)
	LeadsByStage(ctx context.Context, userID string) (map[entity.LeadStage]int, error)
	LeadsBySource(ctx context.Context, userID string) (map[entity.LeadSource]int, error)
	PipelineValue(ctx context.Context, userID string) (int64, error)
	CountCampaigns(ctx context.Context, userID string, status entity.CampaignStatus) (int, error)
	CountTasks(ctx context.Context, userID string, q database.TaskCountQuery) (int, error)
	LeadActivitySince(ctx context.Context, userID string, since time.Time) ([]database.LeadActivity, error)
	TaskCompletionsSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
	ConversationTimesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
}

// Cache mirrors cache.Cache so tests can swap in an in-memory store.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// publish sends e and logs on failure. Writes never fail because the bus
// is unavailable; the dashboard TTL bounds the staleness.
func publish(ctx context.Context, pub entity.EventPublisher, log *zap.Logger, e entity.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		log.Warn("failed to publish event",
			zap.String("type", string(e.Type)),
			zap.String("entity_id", e.EntityID),
			zap.Error(err),
		)
	}
}

// pageResult builds the list envelope for a resolved page.
func pageResult[T any](items []T, total int, page entity.Page) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if page.Limit > 0 {
		pages = (total + page.Limit - 1) / page.Limit
	}
	return PageResult[T]{
		Items:      items,
		Total:      total,
		Page:       page.PageNumber(),
		PageSize:   page.Limit,
		TotalPages: pages,
	}
}

// ResolvePage clamps limit to 1..MaxPageSize, using def when unset.
func ResolvePage(limit, offset, def int) entity.Page {
	if def <= 0 {
		def = entity.DefaultPageSize
	}
	if limit <= 0 {
		limit = def
	}
	if limit > entity.MaxPageSize {
		limit = entity.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return entity.Page{Limit: limit, Offset: offset}
}

func parseArchived(v string) (*bool, error) {
	switch v {
	case "", "false":
		f := false
		return &f, nil
	case "true":
		t := true
		return &t, nil
	case "all":
		return nil, nil
	}
	return nil, badRequest("archived must be true, false or all")
}
