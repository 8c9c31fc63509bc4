package usecase

import (
	"context"
	"strings"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
)

type NotificationUseCase struct {
	Repo  entity.NotificationRepositoryInterface
	Clock clock.Clock
	Log   *zap.Logger
}

func NewNotificationUseCase(repo entity.NotificationRepositoryInterface, clk clock.Clock, log *zap.Logger) *NotificationUseCase {
	return &NotificationUseCase{Repo: repo, Clock: clk, Log: log}
}

// Create stores a notification produced by the system, never by a client.
func (uc *NotificationUseCase) Create(ctx context.Context, userID string, typ entity.NotificationType, title, message, link string) (*entity.Notification, error) {
	n := entity.NewNotification(userID, typ, title, message, link, entity.Timestamp(uc.Clock.Now()))
	if err := uc.Repo.Create(ctx, n); err != nil {
		return nil, repoError(err, "notification", n.ID)
	}
	metrics.RecordNotification(string(typ))
	uc.Log.Debug("notification created",
		zap.String("user_id", userID),
		zap.String("type", string(typ)),
	)
	return n, nil
}

func (uc *NotificationUseCase) List(ctx context.Context, userID string, in NotificationListInput) (*NotificationPage, error) {
	filter := entity.NotificationFilter{
		UserID:     userID,
		UnreadOnly: in.UnreadOnly,
		Archived:   in.Archived,
		Page:       ResolvePage(in.Limit, in.Offset, 0),
	}
	for _, t := range in.Types {
		typ := entity.NotificationType(strings.ToUpper(t))
		if !typ.Valid() {
			return nil, badRequest("unknown notification type " + t)
		}
		filter.Types = append(filter.Types, typ)
	}

	items, total, err := uc.Repo.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "notifications", "")
	}
	unread, err := uc.Repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, repoError(err, "notifications", "")
	}
	return &NotificationPage{PageResult: pageResult(items, total, filter.Page), UnreadCount: unread}, nil
}

func (uc *NotificationUseCase) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := uc.Repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, repoError(err, "notifications", "")
	}
	return n, nil
}

// MarkRead marks the given notifications, or all of them, as read and
// returns how many rows changed.
func (uc *NotificationUseCase) MarkRead(ctx context.Context, userID string, in MarkReadInput) (int, error) {
	now := entity.Timestamp(uc.Clock.Now())
	var (
		n   int
		err error
	)
	switch {
	case in.All:
		n, err = uc.Repo.MarkAllRead(ctx, userID, now)
	case len(in.IDs) > 0:
		n, err = uc.Repo.SetRead(ctx, userID, in.IDs, true, now)
	default:
		return 0, validationFailed([]ValidationError{{"ids", "ids or all is required"}})
	}
	if err != nil {
		return 0, repoError(err, "notifications", "")
	}
	return n, nil
}

func (uc *NotificationUseCase) MarkUnread(ctx context.Context, userID, id string) error {
	n, err := uc.Repo.SetRead(ctx, userID, []string{id}, false, entity.Timestamp(uc.Clock.Now()))
	if err != nil {
		return repoError(err, "notification", id)
	}
	if n == 0 {
		return notFound("notification", id)
	}
	return nil
}

func (uc *NotificationUseCase) Archive(ctx context.Context, userID, id string) error {
	return repoError(uc.Repo.Archive(ctx, userID, id), "notification", id)
}

func (uc *NotificationUseCase) Delete(ctx context.Context, userID, id string) error {
	return repoError(uc.Repo.Delete(ctx, userID, id), "notification", id)
}
