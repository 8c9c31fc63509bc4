package usecase

import (
	"context"
	"strings"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type ConversationUseCase struct {
	Repo     entity.ConversationRepositoryInterface
	LeadRepo entity.LeadRepositoryInterface
	Events   entity.EventPublisher
	Clock    clock.Clock
	Log      *zap.Logger
}

func NewConversationUseCase(repo entity.ConversationRepositoryInterface, leads entity.LeadRepositoryInterface, events entity.EventPublisher, clk clock.Clock, log *zap.Logger) *ConversationUseCase {
	return &ConversationUseCase{Repo: repo, LeadRepo: leads, Events: events, Clock: clk, Log: log}
}

// LogConversation records an interaction with a lead, stamps lastContactedAt and
// advances a NEW lead to CONTACTED.
func (uc *ConversationUseCase) LogConversation(ctx context.Context, userID, leadID string, input ConversationInput) (*entity.Conversation, error) {
	now := entity.Timestamp(uc.Clock.Now())
	input.Channel = strings.ToUpper(strings.TrimSpace(input.Channel))
	input.Direction = strings.ToUpper(strings.TrimSpace(input.Direction))
	if errs := ValidateConversationInput(input, now); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	lead, err := uc.LeadRepo.FindByID(ctx, userID, leadID)
	if err != nil {
		return nil, repoError(err, "lead", leadID)
	}
	if lead.IsArchived {
		return nil, repoError(entity.ErrArchived, "lead", leadID)
	}

	occurredAt := now
	if input.OccurredAt != nil {
		occurredAt = entity.Timestamp(*input.OccurredAt)
	}
	direction := entity.Direction(input.Direction)
	if direction == "" {
		direction = entity.DirectionOutbound
	}

	c := entity.NewConversation(userID, leadID, entity.Channel(input.Channel), direction, occurredAt, now)
	c.Subject = strings.TrimSpace(input.Subject)
	c.Content = input.Content
	c.Outcome = strings.TrimSpace(input.Outcome)

	if err := uc.Repo.Create(ctx, c); err != nil {
		return nil, repoError(err, "conversation", c.ID)
	}

	advanced := lead.MarkContacted(occurredAt, now)
	if err := uc.LeadRepo.Update(ctx, lead); err != nil {
		return nil, repoError(err, "lead", leadID)
	}

	publish(ctx, uc.Events, uc.Log, entity.NewEvent(entity.EventConversationLogged, userID, c.ID, now, map[string]string{
		"leadId":  leadID,
		"channel": string(c.Channel),
	}))
	if advanced {
		publish(ctx, uc.Events, uc.Log, entity.NewEvent(entity.EventLeadStageChanged, userID, leadID, now, map[string]string{
			"from": string(entity.StageNew),
			"to":   string(entity.StageContacted),
			"name": lead.FullName(),
		}))
	}
	return c, nil
}

func (uc *ConversationUseCase) List(ctx context.Context, userID, leadID string, limit, offset int) (PageResult[*entity.Conversation], error) {
	if _, err := uc.LeadRepo.FindByID(ctx, userID, leadID); err != nil {
		return PageResult[*entity.Conversation]{}, repoError(err, "lead", leadID)
	}
	page := ResolvePage(limit, offset, 0)
	items, total, err := uc.Repo.ListByLead(ctx, userID, leadID, page)
	if err != nil {
		return PageResult[*entity.Conversation]{}, repoError(err, "conversations", "")
	}
	return pageResult(items, total, page), nil
}

func (uc *ConversationUseCase) Delete(ctx context.Context, userID, id string) error {
	c, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return repoError(err, "conversation", id)
	}
	if err := uc.Repo.Delete(ctx, c.ID); err != nil {
		return repoError(err, "conversation", id)
	}
	publish(ctx, uc.Events, uc.Log, entity.NewEvent(entity.EventLeadUpdated, userID, c.LeadID,
		entity.Timestamp(uc.Clock.Now()), map[string]string{"conversationId": id, "conversationDeleted": "true"}))
	return nil
}
