package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

var taskSorts = map[string]bool{"dueDate": true, "priority": true, "createdAt": true}

type TaskUseCase struct {
	Repo         entity.TaskRepositoryInterface
	LeadRepo     entity.LeadRepositoryInterface
	CampaignRepo entity.CampaignRepositoryInterface
	Events       entity.EventPublisher
	Clock        clock.Clock
	Log          *zap.Logger
}

func NewTaskUseCase(repo entity.TaskRepositoryInterface, leads entity.LeadRepositoryInterface, campaigns entity.CampaignRepositoryInterface, events entity.EventPublisher, clk clock.Clock, log *zap.Logger) *TaskUseCase {
	return &TaskUseCase{Repo: repo, LeadRepo: leads, CampaignRepo: campaigns, Events: events, Clock: clk, Log: log}
}

func (uc *TaskUseCase) now() time.Time {
	return entity.Timestamp(uc.Clock.Now())
}

func (uc *TaskUseCase) Create(ctx context.Context, userID string, input TaskInput) (*entity.Task, error) {
	now := uc.now()
	t := entity.NewTask(userID, "", now)
	status := input.Status
	input.Status = ""
	if errs := applyTaskPatch(t, input.AsPatch()); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if status != "" {
		t.SetStatus(entity.TaskStatus(strings.ToUpper(status)), now)
	}
	if errs := ValidateTask(t); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if err := uc.checkLinks(ctx, t); err != nil {
		return nil, err
	}

	if err := uc.Repo.Create(ctx, t); err != nil {
		return nil, repoError(err, "task", t.ID)
	}
	publish(ctx, uc.Events, uc.Log, entity.NewEvent(entity.EventTaskCreated, userID, t.ID, now, nil))
	return t, nil
}

func (uc *TaskUseCase) Get(ctx context.Context, userID, id string) (*entity.Task, error) {
	t, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, repoError(err, "task", id)
	}
	return t, nil
}

func (uc *TaskUseCase) List(ctx context.Context, userID string, in TaskListInput) (PageResult[*entity.Task], error) {
	filter := entity.TaskFilter{
		UserID:       userID,
		Priority:     in.Priority,
		LeadID:       in.LeadID,
		CampaignID:   in.CampaignID,
		Now:          uc.now(),
		CreatedSince: in.CreatedSince,
		Page:         ResolvePage(in.Limit, in.Offset, 0),
	}
	for _, s := range in.Statuses {
		st := entity.TaskStatus(strings.ToUpper(s))
		if !st.Valid() {
			return PageResult[*entity.Task]{}, badRequest("unknown status " + s)
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	switch due := entity.DueWindow(strings.ToLower(in.Due)); due {
	case "", entity.DueAll:
		filter.Due = entity.DueAll
	case entity.DueOverdue, entity.DueToday, entity.DueWeek:
		filter.Due = due
	default:
		return PageResult[*entity.Task]{}, badRequest("due must be overdue, today, week or all")
	}
	if in.Sort != "" {
		if !taskSorts[in.Sort] {
			return PageResult[*entity.Task]{}, badRequest("cannot sort by " + in.Sort)
		}
		filter.Sort = in.Sort
	}
	desc, err := parseOrder(in.Order)
	if err != nil {
		return PageResult[*entity.Task]{}, err
	}
	filter.Desc = desc

	items, total, err := uc.Repo.List(ctx, filter)
	if err != nil {
		return PageResult[*entity.Task]{}, repoError(err, "tasks", "")
	}
	return pageResult(items, total, filter.Page), nil
}

func (uc *TaskUseCase) Update(ctx context.Context, userID, id string, patch TaskPatch) (*entity.Task, error) {
	t, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, repoError(err, "task", id)
	}

	now := uc.now()
	status := patch.Status
	patch.Status = nil
	prevDue := t.DueDate
	if errs := applyTaskPatch(t, patch); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	completed := false
	if status != nil {
		to := entity.TaskStatus(strings.ToUpper(*status))
		if !to.Valid() {
			return nil, validationFailed([]ValidationError{{"status", "is invalid"}})
		}
		completed = t.SetStatus(to, now) && to == entity.TaskCompleted
	}
	if errs := ValidateTask(t); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if err := uc.checkLinks(ctx, t); err != nil {
		return nil, err
	}
	if !sameTime(prevDue, t.DueDate) {
		// a rescheduled task earns a fresh reminder
		t.ReminderSentAt = nil
	}

	t.UpdatedAt = now
	if err := uc.Repo.Update(ctx, t); err != nil {
		return nil, repoError(err, "task", id)
	}

	typ := entity.EventTaskUpdated
	if completed {
		typ = entity.EventTaskCompleted
	}
	publish(ctx, uc.Events, uc.Log, entity.NewEvent(typ, userID, t.ID, now, nil))
	return t, nil
}

func (uc *TaskUseCase) Complete(ctx context.Context, userID, id string) (*entity.Task, error) {
	status := string(entity.TaskCompleted)
	return uc.Update(ctx, userID, id, TaskPatch{Status: &status})
}

// Delete is soft: the row stays with is_deleted set.
func (uc *TaskUseCase) Delete(ctx context.Context, userID, id string) error {
	t, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return repoError(err, "task", id)
	}
	now := uc.now()
	t.IsDeleted = true
	t.UpdatedAt = now
	if err := uc.Repo.Update(ctx, t); err != nil {
		return repoError(err, "task", id)
	}
	publish(ctx, uc.Events, uc.Log, entity.NewEvent(entity.EventTaskUpdated, userID, t.ID, now, map[string]string{"deleted": "true"}))
	return nil
}

func (uc *TaskUseCase) checkLinks(ctx context.Context, t *entity.Task) error {
	if t.LeadID != nil {
		if _, err := uc.LeadRepo.FindByID(ctx, t.UserID, *t.LeadID); err != nil {
			if err = repoError(err, "lead", *t.LeadID); IsDomainError(err) {
				return validationFailed([]ValidationError{{"leadId", "does not reference a lead"}})
			}
			return err
		}
	}
	if t.CampaignID != nil && uc.CampaignRepo != nil {
		if _, err := uc.CampaignRepo.FindByID(ctx, t.UserID, *t.CampaignID); err != nil {
			if err = repoError(err, "campaign", *t.CampaignID); IsDomainError(err) {
				return validationFailed([]ValidationError{{"campaignId", "does not reference a campaign"}})
			}
			return err
		}
	}
	return nil
}

func applyTaskPatch(t *entity.Task, p TaskPatch) []ValidationError {
	var errs []ValidationError
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Type != nil {
		typ := entity.TaskType(strings.ToUpper(*p.Type))
		if !typ.Valid() {
			errs = append(errs, ValidationError{"type", "is invalid"})
		} else {
			t.Type = typ
		}
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = timestampPtr(p.DueDate)
	} else if p.ClearDue {
		t.DueDate = nil
	}
	if p.LeadID != nil {
		t.LeadID = emptyToNil(*p.LeadID)
	}
	if p.CampaignID != nil {
		t.CampaignID = emptyToNil(*p.CampaignID)
	}
	return errs
}

func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
