package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
)

const defaultRunnerBatch = 200

// RunReport summarises one runner tick.
type RunReport struct {
	Executed  int
	Completed int
	Stopped   int
	Failed    int
	Campaigns int // campaigns moved to COMPLETED
}

// CampaignRunner executes the current step of every due enrollment.
type CampaignRunner struct {
	Campaigns     entity.CampaignRepositoryInterface
	Leads         entity.LeadRepositoryInterface
	Tasks         entity.TaskRepositoryInterface
	Conversations entity.ConversationRepositoryInterface
	Mailer        Mailer
	Events        entity.EventPublisher
	Clock         clock.Clock
	Log           *zap.Logger
	BatchSize     int
}

// stepData is what EMAIL templates can reference.
type stepData struct {
	FirstName string
	LastName  string
	FullName  string
	Email     string
	Company   string
	Title     string
}

func (r *CampaignRunner) RunDue(ctx context.Context) (RunReport, error) {
	var report RunReport
	now := entity.Timestamp(r.Clock.Now())
	batch := r.BatchSize
	if batch <= 0 {
		batch = defaultRunnerBatch
	}

	due, err := r.Campaigns.DueEnrollments(ctx, now, batch)
	if err != nil {
		return report, fmt.Errorf("load due enrollments: %w", err)
	}

	steps := map[string][]*entity.CampaignStep{}
	var errs error
	for _, e := range due {
		if ctx.Err() != nil {
			return report, multierr.Append(errs, ctx.Err())
		}
		campaignSteps, ok := steps[e.CampaignID]
		if !ok {
			campaignSteps, err = r.Campaigns.Steps(ctx, e.CampaignID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("campaign %s: load steps: %w", e.CampaignID, err))
				continue
			}
			steps[e.CampaignID] = campaignSteps
		}
		if err := r.advance(ctx, e, campaignSteps, now, &report); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("campaign %s lead %s: %w", e.CampaignID, e.LeadID, err))
		}
	}

	finished, err := r.Campaigns.CompleteFinished(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("complete campaigns: %w", err))
	}
	for _, c := range finished {
		report.Campaigns++
		r.Log.Info("campaign completed", zap.String("campaign_id", c.ID))
		publish(ctx, r.Events, r.Log, entity.NewEvent(entity.EventCampaignUpdated, c.UserID, c.ID, now, map[string]string{
			"status": string(c.Status),
		}))
	}
	return report, errs
}

// advance runs one enrollment. Step failures mark the enrollment FAILED and
// are returned; storage failures leave it untouched for the next tick.
func (r *CampaignRunner) advance(ctx context.Context, due *entity.DueEnrollment, steps []*entity.CampaignStep, now time.Time, report *RunReport) error {
	e := due.Enrollment
	e.UpdatedAt = now

	lead, err := r.Leads.FindByID(ctx, due.UserID, e.LeadID)
	switch {
	case errors.Is(err, entity.ErrNotFound):
		lead = nil
	case err != nil:
		return err
	}

	if lead == nil || lead.IsArchived || lead.Stage == entity.StageConverted || lead.Stage == entity.StageLost {
		e.Status = entity.EnrollmentStopped
		e.NextRunAt = nil
		report.Stopped++
		return r.Campaigns.UpdateEnrollment(ctx, &e)
	}
	if e.CurrentStep >= len(steps) {
		e.Status = entity.EnrollmentCompleted
		e.NextRunAt = nil
		report.Completed++
		return r.Campaigns.UpdateEnrollment(ctx, &e)
	}

	step := steps[e.CurrentStep]
	stepErr := r.execute(ctx, due, lead, step, now)
	metrics.RecordCampaignStep(string(step.Type), stepErr)
	if stepErr != nil {
		e.Status = entity.EnrollmentFailed
		e.NextRunAt = nil
		e.LastError = stepErr.Error()
		report.Failed++
		if err := r.Campaigns.UpdateEnrollment(ctx, &e); err != nil {
			return multierr.Append(stepErr, err)
		}
		return stepErr
	}
	report.Executed++

	e.CurrentStep++
	e.LastError = ""
	if e.CurrentStep < len(steps) {
		next := now.Add(steps[e.CurrentStep].Delay())
		e.NextRunAt = &next
	} else {
		e.Status = entity.EnrollmentCompleted
		e.NextRunAt = nil
		report.Completed++
	}
	return r.Campaigns.UpdateEnrollment(ctx, &e)
}

func (r *CampaignRunner) execute(ctx context.Context, due *entity.DueEnrollment, lead *entity.Lead, step *entity.CampaignStep, now time.Time) error {
	data := stepData{
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		FullName:  lead.FullName(),
		Email:     lead.Email,
		Company:   lead.Company,
		Title:     lead.Title,
	}

	switch step.Type {
	case entity.StepWait:
		return nil

	case entity.StepEmail:
		if lead.Email == "" {
			return errors.New("lead has no email address")
		}
		if r.Mailer == nil {
			return errors.New("no mailer configured")
		}
		subject, err := render(step.Subject, data)
		if err != nil {
			return err
		}
		body, err := render(step.Content, data)
		if err != nil {
			return err
		}
		if err := r.Mailer.Send(ctx, lead.Email, subject, body); err != nil {
			return fmt.Errorf("send email: %w", err)
		}

		c := entity.NewConversation(due.UserID, lead.ID, entity.ChannelEmail, entity.DirectionOutbound, now, now)
		c.Subject = subject
		c.Content = body
		c.Outcome = "campaign " + due.CampaignID
		if err := r.Conversations.Create(ctx, c); err != nil {
			return fmt.Errorf("log conversation: %w", err)
		}
		advanced := lead.MarkContacted(now, now)
		if err := r.Leads.Update(ctx, lead); err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		publish(ctx, r.Events, r.Log, entity.NewEvent(entity.EventConversationLogged, due.UserID, c.ID, now, map[string]string{
			"leadId":  lead.ID,
			"channel": string(c.Channel),
		}))
		if advanced {
			publish(ctx, r.Events, r.Log, entity.NewEvent(entity.EventLeadStageChanged, due.UserID, lead.ID, now, map[string]string{
				"from": string(entity.StageNew),
				"to":   string(entity.StageContacted),
				"name": lead.FullName(),
			}))
		}
		return nil

	case entity.StepCall, entity.StepTask:
		typ, title := entity.TaskCall, "Call "+lead.FullName()
		if step.Type == entity.StepTask {
			typ, title = entity.TaskFollowUp, "Follow up with "+lead.FullName()
		}
		if step.Subject != "" {
			s, err := render(step.Subject, data)
			if err != nil {
				return err
			}
			title = s
		}
		desc, err := render(step.Content, data)
		if err != nil {
			return err
		}

		t := entity.NewTask(due.UserID, title, now)
		t.Type = typ
		t.Description = desc
		dueDate := now.Add(24 * time.Hour)
		t.DueDate = &dueDate
		leadID, campaignID := lead.ID, due.CampaignID
		t.LeadID = &leadID
		t.CampaignID = &campaignID
		if err := r.Tasks.Create(ctx, t); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		publish(ctx, r.Events, r.Log, entity.NewEvent(entity.EventTaskCreated, due.UserID, t.ID, now, nil))
		return nil
	}
	return fmt.Errorf("unknown step type %q", step.Type)
}

func render(text string, data stepData) (string, error) {
	if text == "" {
		return "", nil
	}
	t, err := template.New("step").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}
