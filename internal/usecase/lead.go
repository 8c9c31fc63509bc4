package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
)

var leadSorts = map[string]bool{
	"createdAt": true, "updatedAt": true, "score": true, "value": true, "lastName": true,
}

type LeadUseCase struct {
	Repo   entity.LeadRepositoryInterface
	Events entity.EventPublisher
	Clock  clock.Clock
	Log    *zap.Logger
}

func NewLeadUseCase(repo entity.LeadRepositoryInterface, events entity.EventPublisher, clk clock.Clock, log *zap.Logger) *LeadUseCase {
	return &LeadUseCase{Repo: repo, Events: events, Clock: clk, Log: log}
}

func (uc *LeadUseCase) now() time.Time {
	return entity.Timestamp(uc.Clock.Now())
}

func (uc *LeadUseCase) Create(ctx context.Context, userID string, input LeadInput) (*entity.Lead, error) {
	now := uc.now()
	lead := entity.NewLead(userID, now)
	stage := input.Stage
	input.Stage = ""
	if errs := applyLeadPatch(lead, input.AsPatch()); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if stage != "" {
		lead.Stage = entity.LeadStage(strings.ToUpper(stage))
		if lead.Stage == entity.StageConverted {
			lead.ConvertedAt = &now
		}
	}
	if errs := ValidateLead(lead); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if err := uc.checkEmail(ctx, lead); err != nil {
		return nil, err
	}

	if err := uc.Repo.Create(ctx, lead); err != nil {
		return nil, repoError(err, "lead", lead.ID)
	}

	metrics.RecordLeadCreated(string(lead.Source))
	uc.Log.Info("lead created", zap.String("lead_id", lead.ID), zap.String("user_id", userID))
	publish(ctx, uc.Events, uc.Log, entity.NewEvent(entity.EventLeadCreated, userID, lead.ID, now, map[string]string{
		"stage":  string(lead.Stage),
		"source": string(lead.Source),
	}))
	return lead, nil
}

func (uc *LeadUseCase) Get(ctx context.Context, userID, id string) (*entity.Lead, error) {
	lead, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, repoError(err, "lead", id)
	}
	return lead, nil
}

func (uc *LeadUseCase) List(ctx context.Context, userID string, in LeadListInput) (PageResult[*entity.Lead], error) {
	filter := entity.LeadFilter{
		UserID:       userID,
		Search:       strings.TrimSpace(in.Search),
		MinScore:     in.MinScore,
		Tag:          strings.ToLower(strings.TrimSpace(in.Tag)),
		CreatedSince: in.CreatedSince,
		Page:         ResolvePage(in.Limit, in.Offset, 0),
	}
	for _, s := range in.Stages {
		st := entity.LeadStage(strings.ToUpper(s))
		if !st.Valid() {
			return PageResult[*entity.Lead]{}, badRequest("unknown stage " + s)
		}
		filter.Stages = append(filter.Stages, st)
	}
	for _, s := range in.Sources {
		src := entity.LeadSource(strings.ToUpper(s))
		if !src.Valid() {
			return PageResult[*entity.Lead]{}, badRequest("unknown source " + s)
		}
		filter.Sources = append(filter.Sources, src)
	}
	archived, err := parseArchived(in.Archived)
	if err != nil {
		return PageResult[*entity.Lead]{}, err
	}
	filter.Archived = archived
	if in.Sort != "" {
		if !leadSorts[in.Sort] {
			return PageResult[*entity.Lead]{}, badRequest("cannot sort by " + in.Sort)
		}
		filter.Sort = in.Sort
	}
	desc, err := parseOrder(in.Order)
	if err != nil {
		return PageResult[*entity.Lead]{}, err
	}
	// newest first unless the caller asked for an ordering
	filter.Desc = desc || (in.Sort == "" && in.Order == "")

	leads, total, err := uc.Repo.List(ctx, filter)
	if err != nil {
		return PageResult[*entity.Lead]{}, repoError(err, "leads", "")
	}
	return pageResult(leads, total, filter.Page), nil
}

// Update applies patch. PUT callers pass LeadInput.AsPatch().
func (uc *LeadUseCase) Update(ctx context.Context, userID, id string, patch LeadPatch) (*entity.Lead, error) {
	lead, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, repoError(err, "lead", id)
	}
	if lead.IsArchived {
		return nil, repoError(entity.ErrArchived, "lead", id)
	}

	now := uc.now()
	stage := patch.Stage
	patch.Stage = nil
	if errs := applyLeadPatch(lead, patch); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if errs := ValidateLead(lead); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	from := lead.Stage
	changed := false
	if stage != nil {
		to := entity.LeadStage(strings.ToUpper(*stage))
		if !to.Valid() {
			return nil, validationFailed([]ValidationError{{"stage", "is invalid"}})
		}
		if changed, err = lead.ChangeStage(to, now); err != nil {
			return nil, repoError(err, "lead", id)
		}
	}
	if err := uc.checkEmail(ctx, lead); err != nil {
		return nil, err
	}

	lead.UpdatedAt = now
	if err := uc.Repo.Update(ctx, lead); err != nil {
		return nil, repoError(err, "lead", id)
	}

	uc.afterStageChange(ctx, lead, from, changed, now)
	publish(ctx, uc.Events, uc.Log, entity.NewEvent(entity.EventLeadUpdated, userID, lead.ID, now, nil))
	return lead, nil
}

func (uc *LeadUseCase) Archive(ctx context.Context, userID, id string) error {
	return uc.setArchived(ctx, userID, id, true)
}

func (uc *LeadUseCase) Restore(ctx context.Context, userID, id string) (*entity.Lead, error) {
	if err := uc.setArchived(ctx, userID, id, false); err != nil {
		return nil, err
	}
	return uc.Get(ctx, userID, id)
}

func (uc *LeadUseCase) setArchived(ctx context.Context, userID, id string, archived bool) error {
	lead, err := uc.Repo.FindByID(ctx, userID, id)
	if err != nil {
		return repoError(err, "lead", id)
	}
	if lead.IsArchived == archived {
		return nil
	}
	if !archived {
		// restoring must not produce two live leads with the same email
		if err := uc.checkEmail(ctx, lead); err != nil {
			return err
		}
	}

	now := uc.now()
	lead.IsArchived = archived
	lead.UpdatedAt = now
	if err := uc.Repo.Update(ctx, lead); err != nil {
		return repoError(err, "lead", id)
	}

	typ := entity.EventLeadUpdated
	if archived {
		typ = entity.EventLeadArchived
	}
	publish(ctx, uc.Events, uc.Log, entity.NewEvent(typ, userID, id, now, nil))
	return nil
}

// BulkUpdateStage moves every found lead to stage. Unknown or archived
// leads are reported in NotFound and do not abort the batch.
func (uc *LeadUseCase) BulkUpdateStage(ctx context.Context, userID string, in BulkStageInput) (*BulkStageOutput, error) {
	stage := entity.LeadStage(strings.ToUpper(in.Stage))
	var errs []ValidationError
	if !stage.Valid() {
		errs = append(errs, ValidationError{"stage", "is invalid"})
	}
	if len(in.IDs) == 0 {
		errs = append(errs, ValidationError{"ids", "is required"})
	} else if len(in.IDs) > entity.MaxPageSize {
		errs = append(errs, ValidationError{"ids", "must not exceed 100 ids"})
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	out := &BulkStageOutput{Updated: []string{}, NotFound: []string{}}
	now := uc.now()
	for _, id := range in.IDs {
		lead, err := uc.Repo.FindByID(ctx, userID, id)
		if err != nil {
			if err = repoError(err, "lead", id); IsDomainError(err) {
				out.NotFound = append(out.NotFound, id)
				continue
			}
			return nil, err
		}
		if lead.IsArchived {
			out.NotFound = append(out.NotFound, id)
			continue
		}

		from := lead.Stage
		changed, err := lead.ChangeStage(stage, now)
		if err != nil {
			return nil, repoError(err, "lead", id)
		}
		if changed {
			if err := uc.Repo.Update(ctx, lead); err != nil {
				return nil, repoError(err, "lead", id)
			}
			uc.afterStageChange(ctx, lead, from, true, now)
		}
		out.Updated = append(out.Updated, id)
	}
	return out, nil
}

func (uc *LeadUseCase) afterStageChange(ctx context.Context, lead *entity.Lead, from entity.LeadStage, changed bool, now time.Time) {
	if !changed {
		return
	}
	if lead.Stage == entity.StageConverted {
		metrics.RecordLeadConverted()
	}
	uc.Log.Info("lead stage changed",
		zap.String("lead_id", lead.ID),
		zap.String("from", string(from)),
		zap.String("to", string(lead.Stage)),
	)
	publish(ctx, uc.Events, uc.Log, entity.NewEvent(entity.EventLeadStageChanged, lead.UserID, lead.ID, now, map[string]string{
		"from": string(from),
		"to":   string(lead.Stage),
		"name": lead.FullName(),
	}))
}

func (uc *LeadUseCase) checkEmail(ctx context.Context, lead *entity.Lead) error {
	if lead.Email == "" {
		return nil
	}
	taken, err := uc.Repo.EmailTaken(ctx, lead.UserID, lead.Email, lead.ID)
	if err != nil {
		return repoError(err, "lead", lead.ID)
	}
	if taken {
		return &DomainError{Code: CodeConflict, Message: "a lead with email " + lead.Email + " already exists"}
	}
	return nil
}

// applyLeadPatch copies the set fields of p onto l. Stage is handled by
// the caller because it goes through the stage rules.
func applyLeadPatch(l *entity.Lead, p LeadPatch) []ValidationError {
	var errs []ValidationError
	if p.FirstName != nil {
		l.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		l.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.Email != nil {
		l.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.Phone != nil {
		l.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Company != nil {
		l.Company = strings.TrimSpace(*p.Company)
	}
	if p.Title != nil {
		l.Title = strings.TrimSpace(*p.Title)
	}
	if p.Source != nil {
		src := entity.LeadSource(strings.ToUpper(*p.Source))
		if !src.Valid() {
			errs = append(errs, ValidationError{"source", "is invalid"})
		} else {
			l.Source = src
		}
	}
	if p.Score != nil {
		l.Score = *p.Score
	}
	if p.Priority != nil {
		l.Priority = *p.Priority
	}
	if p.Value != nil {
		l.Value = *p.Value
	}
	if p.Tags != nil {
		l.Tags = entity.Tags(*p.Tags).Normalize()
	}
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
	return errs
}

func parseOrder(order string) (bool, error) {
	switch strings.ToLower(order) {
	case "", "asc":
		return false, nil
	case "desc":
		return true, nil
	}
	return false, badRequest("order must be asc or desc")
}
