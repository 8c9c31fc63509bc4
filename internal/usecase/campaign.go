package usecase

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type CampaignUseCase struct {
	Repo     entity.CampaignRepositoryInterface
	LeadRepo entity.LeadRepositoryInterface
	Events   entity.EventPublisher
	Clock    clock.Clock
	Log      *zap.Logger
}

func NewCampaignUseCase(repo entity.CampaignRepositoryInterface, leads entity.LeadRepositoryInterface, events entity.EventPublisher, clk clock.Clock, log *zap.Logger) *CampaignUseCase {
	return &CampaignUseCase{Repo: repo, LeadRepo: leads, Events: events, Clock: clk, Log: log}
}

func (uc *CampaignUseCase) now() time.Time {
	return entity.Timestamp(uc.Clock.Now())
}

// Create stores the campaign, its steps and initial enrollments. A failure
// after the campaign row exists deletes it again.
func (uc *CampaignUseCase) Create(ctx context.Context, userID string, input CampaignInput) (*entity.Campaign, error) {
	now := uc.now()
	c := entity.NewCampaign(userID, strings.TrimSpace(input.Name), now)
	c.Description = input.Description
	c.StartDate = timestampPtr(input.StartDate)
	c.EndDate = timestampPtr(input.EndDate)

	errs := ValidateCampaign(c)
	errs = append(errs, ValidateSteps(input.Steps)...)
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	c.Steps = buildSteps(c.ID, input.Steps)

	var enrolled *EnrollOutput
	tx := NewTransaction(uc.Log)
	tx.AddOperation("create_campaign",
		func(ctx context.Context) error { return uc.Repo.Create(ctx, c) },
		func(ctx context.Context) error { return uc.Repo.Delete(ctx, c.ID) },
	)
	tx.AddOperation("save_steps",
		func(ctx context.Context) error { return uc.Repo.ReplaceSteps(ctx, c.ID, c.Steps) },
		nil,
	)
	if len(input.LeadIDs) > 0 {
		tx.AddOperation("enroll_leads", func(ctx context.Context) error {
			out, err := uc.enroll(ctx, c, input.LeadIDs, now)
			enrolled = out
			return err
		}, nil)
	}
	if err := tx.Execute(ctx); err != nil {
		return nil, repoError(err, "campaign", c.ID)
	}
	if enrolled != nil {
		c.LeadCount = len(enrolled.Enrolled)
	}

	uc.Log.Info("campaign created", zap.String("campaign_id", c.ID), zap.Int("steps", len(c.Steps)))
	uc.changed(ctx, c, now)
	return c, nil
}

func (uc *CampaignUseCase) Get(ctx context.Context, userID, id string) (*entity.Campaign, error) {
	c, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, repoError(err, "campaign", id)
	}
	return c, nil
}

func (uc *CampaignUseCase) List(ctx context.Context, userID string, in CampaignListInput) (PageResult[*entity.Campaign], error) {
	filter := entity.CampaignFilter{
		UserID: userID,
		Search: strings.TrimSpace(in.Search),
		Page:   ResolvePage(in.Limit, in.Offset, 0),
	}
	for _, s := range in.Statuses {
		st := entity.CampaignStatus(strings.ToUpper(s))
		if !st.Valid() {
			return PageResult[*entity.Campaign]{}, badRequest("unknown status " + s)
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	archived, err := parseArchived(in.Archived)
	if err != nil {
		return PageResult[*entity.Campaign]{}, err
	}
	filter.Archived = archived

	items, total, err := uc.Repo.List(ctx, filter)
	if err != nil {
		return PageResult[*entity.Campaign]{}, repoError(err, "campaigns", "")
	}
	return pageResult(items, total, filter.Page), nil
}

func (uc *CampaignUseCase) Update(ctx context.Context, userID, id string, patch CampaignPatch) (*entity.Campaign, error) {
	c, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, repoError(err, "campaign", id)
	}
	if c.IsArchived {
		return nil, repoError(entity.ErrArchived, "campaign", id)
	}

	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.StartDate != nil {
		c.StartDate = timestampPtr(patch.StartDate)
	}
	if patch.EndDate != nil {
		c.EndDate = timestampPtr(patch.EndDate)
	}
	if errs := ValidateCampaign(c); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	now := uc.now()
	c.UpdatedAt = now
	if err := uc.Repo.Update(ctx, c); err != nil {
		return nil, repoError(err, "campaign", id)
	}
	uc.changed(ctx, c, now)
	return c, nil
}

// Replace is the PUT form: details are overwritten and, when steps are
// given, the step list is replaced too.
func (uc *CampaignUseCase) Replace(ctx context.Context, userID, id string, input CampaignInput) (*entity.Campaign, error) {
	name := input.Name
	c, err := uc.Update(ctx, userID, id, CampaignPatch{
		Name:        &name,
		Description: &input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	})
	if err != nil {
		return nil, err
	}
	if input.Steps == nil {
		return c, nil
	}
	return uc.ReplaceSteps(ctx, userID, id, input.Steps)
}

func (uc *CampaignUseCase) ReplaceSteps(ctx context.Context, userID, id string, steps []CampaignStepInput) (*entity.Campaign, error) {
	c, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, repoError(err, "campaign", id)
	}
	if !c.Status.Editable() {
		return nil, &DomainError{Code: CodeInvalidTransition, Message: "steps can only be changed while the campaign is DRAFT or PAUSED"}
	}
	if errs := ValidateSteps(steps); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	c.Steps = buildSteps(c.ID, steps)
	if err := uc.Repo.ReplaceSteps(ctx, c.ID, c.Steps); err != nil {
		return nil, repoError(err, "campaign", id)
	}
	now := uc.now()
	c.UpdatedAt = now
	if err := uc.Repo.Update(ctx, c); err != nil {
		return nil, repoError(err, "campaign", id)
	}
	uc.changed(ctx, c, now)
	return c, nil
}

// ChangeStatus applies a status transition. Activating schedules every
// enrollment that has not run yet.
func (uc *CampaignUseCase) ChangeStatus(ctx context.Context, userID, id, status string) (*entity.Campaign, error) {
	to := entity.CampaignStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !to.Valid() {
		return nil, validationFailed([]ValidationError{{"status", "is invalid"}})
	}
	c, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, repoError(err, "campaign", id)
	}
	if to == entity.CampaignActive && len(c.Steps) == 0 {
		return nil, validationFailed([]ValidationError{{"steps", "an active campaign needs at least one step"}})
	}

	now := uc.now()
	from := c.Status
	if err := c.ChangeStatus(to, now); err != nil {
		return nil, &DomainError{
			Code:    CodeInvalidTransition,
			Message: "cannot move campaign from " + string(from) + " to " + string(to),
		}
	}
	if from == to {
		return c, nil
	}
	if err := uc.Repo.Update(ctx, c); err != nil {
		return nil, repoError(err, "campaign", id)
	}
	if to == entity.CampaignActive {
		if err := uc.Repo.ScheduleActive(ctx, c.ID, now.Add(c.Steps[0].Delay())); err != nil {
			return nil, repoError(err, "campaign", id)
		}
	}

	uc.Log.Info("campaign status changed",
		zap.String("campaign_id", c.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	uc.changed(ctx, c, now)
	return c, nil
}

func (uc *CampaignUseCase) Archive(ctx context.Context, userID, id string) error {
	_, err := uc.ChangeStatus(ctx, userID, id, string(entity.CampaignArchived))
	return err
}

func (uc *CampaignUseCase) Enroll(ctx context.Context, userID, id string, leadIDs []string) (*EnrollOutput, error) {
	if len(leadIDs) == 0 {
		return nil, validationFailed([]ValidationError{{"leadIds", "is required"}})
	}
	c, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, repoError(err, "campaign", id)
	}
	now := uc.now()
	out, err := uc.enroll(ctx, c, leadIDs, now)
	if err != nil {
		return nil, err
	}
	if len(out.Enrolled) > 0 {
		uc.changed(ctx, c, now)
	}
	return out, nil
}

func (uc *CampaignUseCase) enroll(ctx context.Context, c *entity.Campaign, leadIDs []string, now time.Time) (*EnrollOutput, error) {
	switch c.Status {
	case entity.CampaignCompleted, entity.CampaignArchived:
		return nil, &DomainError{Code: CodeInvalidTransition, Message: "cannot enroll leads into a " + string(c.Status) + " campaign"}
	}

	var next *time.Time
	if c.Status == entity.CampaignActive && len(c.Steps) > 0 {
		t := now.Add(c.Steps[0].Delay())
		next = &t
	}

	out := &EnrollOutput{Enrolled: []string{}, Skipped: []string{}}
	seen := map[string]bool{}
	for _, leadID := range leadIDs {
		if seen[leadID] {
			continue
		}
		seen[leadID] = true

		lead, err := uc.LeadRepo.FindByID(ctx, c.UserID, leadID)
		if err != nil {
			if err = repoError(err, "lead", leadID); IsDomainError(err) {
				out.Skipped = append(out.Skipped, leadID)
				continue
			}
			return nil, err
		}
		if lead.IsArchived {
			out.Skipped = append(out.Skipped, leadID)
			continue
		}

		ok, err := uc.Repo.Enroll(ctx, &entity.Enrollment{
			CampaignID: c.ID,
			LeadID:     leadID,
			Status:     entity.EnrollmentActive,
			NextRunAt:  next,
			EnrolledAt: now,
			UpdatedAt:  now,
		})
		if err != nil {
			return nil, repoError(err, "enrollment", leadID)
		}
		if !ok {
			out.Skipped = append(out.Skipped, leadID)
			continue
		}
		out.Enrolled = append(out.Enrolled, leadID)
	}
	return out, nil
}

func (uc *CampaignUseCase) Unenroll(ctx context.Context, userID, id, leadID string) error {
	c, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return repoError(err, "campaign", id)
	}
	e, err := uc.Repo.FindEnrollment(ctx, c.ID, leadID)
	if err != nil {
		return repoError(err, "enrollment", leadID)
	}
	if e.Status != entity.EnrollmentActive {
		return nil
	}
	now := uc.now()
	e.Status = entity.EnrollmentStopped
	e.NextRunAt = nil
	e.UpdatedAt = now
	if err := uc.Repo.UpdateEnrollment(ctx, e); err != nil {
		return repoError(err, "enrollment", leadID)
	}
	uc.changed(ctx, c, now)
	return nil
}

func (uc *CampaignUseCase) Stats(ctx context.Context, userID, id string) (*CampaignStats, error) {
	c, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, repoError(err, "campaign", id)
	}
	byStatus, err := uc.Repo.EnrollmentStats(ctx, c.ID)
	if err != nil {
		return nil, repoError(err, "campaign", id)
	}

	stats := &CampaignStats{
		CampaignID: c.ID,
		ByStatus:   make(map[string]int, len(byStatus)),
		StepCount:  len(c.Steps),
	}
	for status, n := range byStatus {
		stats.ByStatus[string(status)] = n
		stats.Total += n
	}
	if stats.Total > 0 {
		stats.CompletedPc = round2(float64(byStatus[entity.EnrollmentCompleted]) / float64(stats.Total) * 100)
	}
	return stats, nil
}

func (uc *CampaignUseCase) changed(ctx context.Context, c *entity.Campaign, now time.Time) {
	publish(ctx, uc.Events, uc.Log, entity.NewEvent(entity.EventCampaignUpdated, c.UserID, c.ID, now, map[string]string{
		"status": string(c.Status),
	}))
}

func buildSteps(campaignID string, in []CampaignStepInput) []*entity.CampaignStep {
	steps := make([]*entity.CampaignStep, 0, len(in))
	for i, s := range in {
		steps = append(steps, entity.NewCampaignStep(campaignID, i, s.stepType(),
			strings.TrimSpace(s.Subject), s.Content, s.DelayDays))
	}
	return steps
}

func timestampPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := entity.Timestamp(*t)
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
