package usecase

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const (
	maxExportRows  = 10000
	exportPageSize = entity.MaxPageSize
)

type ExportFilter struct {
	Stages   []string   `json:"stages"`
	Statuses []string   `json:"statuses"`
	Archived string     `json:"archived"`
	Since    *time.Time `json:"since"`
}

type ExportInput struct {
	Entity string       `json:"entity"`
	Format string       `json:"format"`
	Filter ExportFilter `json:"filter"`
}

// ExportUseCase writes a user's leads, tasks or conversations as CSV or
// JSON. Callers are throttled per user.
type ExportUseCase struct {
	Leads         *LeadUseCase
	Tasks         *TaskUseCase
	Conversations entity.ConversationRepositoryInterface
	Clock         clock.Clock
	Log           *zap.Logger

	perMinute int
	maxRows   int
	mu        sync.Mutex
	limiters  *expirable.LRU[string, *rate.Limiter]
}

func NewExportUseCase(leads *LeadUseCase, tasks *TaskUseCase, conversations entity.ConversationRepositoryInterface, perMinute int, clk clock.Clock, log *zap.Logger) *ExportUseCase {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &ExportUseCase{
		Leads:         leads,
		Tasks:         tasks,
		Conversations: conversations,
		Clock:         clk,
		Log:           log,
		perMinute:     perMinute,
		maxRows:       maxExportRows,
		limiters:      expirable.NewLRU[string, *rate.Limiter](10000, nil, time.Hour),
	}
}

// Allow reports whether userID may start another export now.
func (uc *ExportUseCase) Allow(userID string) bool {
	return uc.limiter(userID).AllowN(uc.Clock.Now(), 1)
}

func (uc *ExportUseCase) limiter(userID string) *rate.Limiter {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	l, ok := uc.limiters.Get(userID)
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(uc.perMinute)), uc.perMinute)
		uc.limiters.Add(userID, l)
	}
	return l
}

// Validate checks the request before anything is written so errors can
// still be reported as JSON.
func (uc *ExportUseCase) Validate(in *ExportInput) error {
	in.Entity = strings.ToLower(strings.TrimSpace(in.Entity))
	in.Format = strings.ToLower(strings.TrimSpace(in.Format))
	if in.Format == "" {
		in.Format = "csv"
	}
	var errs []ValidationError
	switch in.Entity {
	case "leads", "tasks", "conversations":
	default:
		errs = append(errs, ValidationError{"entity", "must be leads, tasks or conversations"})
	}
	if in.Format != "csv" && in.Format != "json" {
		errs = append(errs, ValidationError{"format", "must be csv or json"})
	}
	if len(errs) > 0 {
		return validationFailed(errs)
	}
	return nil
}

// Filename is the attachment name for in, stamped with the current date.
func (uc *ExportUseCase) Filename(in ExportInput) string {
	return fmt.Sprintf("%s-%s.%s", in.Entity, uc.Clock.Now().UTC().Format("20060102"), in.Format)
}

func (uc *ExportUseCase) Export(ctx context.Context, userID string, in ExportInput, w io.Writer) error {
	if err := uc.Validate(&in); err != nil {
		return err
	}

	var (
		header []string
		rows   [][]string
		items  any
		err    error
	)
	switch in.Entity {
	case "leads":
		var leads []*entity.Lead
		leads, err = uc.collectLeads(ctx, userID, in.Filter)
		header, rows, items = leadHeader, leadRows(leads), leads
	case "tasks":
		var tasks []*entity.Task
		tasks, err = uc.collectTasks(ctx, userID, in.Filter)
		header, rows, items = taskHeader, taskRows(tasks), tasks
	case "conversations":
		var convs []*entity.Conversation
		var since time.Time
		if in.Filter.Since != nil {
			since = *in.Filter.Since
		}
		convs, err = uc.Conversations.ListByUser(ctx, userID, since, uc.maxRows)
		if err != nil {
			err = repoError(err, "conversations", "")
		}
		header, rows, items = conversationHeader, conversationRows(convs), convs
	}
	if err != nil {
		return err
	}

	uc.Log.Info("export generated",
		zap.String("user_id", userID),
		zap.String("entity", in.Entity),
		zap.String("format", in.Format),
		zap.Int("rows", len(rows)),
	)

	if in.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// collectLeads pages through matching leads oldest first, stopping at
// maxRows. Filters run in the query so the cap applies to matches only.
func (uc *ExportUseCase) collectLeads(ctx context.Context, userID string, f ExportFilter) ([]*entity.Lead, error) {
	out := []*entity.Lead{}
	for len(out) < uc.maxRows {
		limit := min(exportPageSize, uc.maxRows-len(out))
		page, err := uc.Leads.List(ctx, userID, LeadListInput{
			Stages:       f.Stages,
			Archived:     f.Archived,
			CreatedSince: f.Since,
			Sort:         "createdAt",
			Order:        "asc",
			Limit:        limit,
			Offset:       len(out),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if len(page.Items) < limit {
			break
		}
	}
	return out, nil
}

func (uc *ExportUseCase) collectTasks(ctx context.Context, userID string, f ExportFilter) ([]*entity.Task, error) {
	out := []*entity.Task{}
	for len(out) < uc.maxRows {
		limit := min(exportPageSize, uc.maxRows-len(out))
		page, err := uc.Tasks.List(ctx, userID, TaskListInput{
			Statuses:     f.Statuses,
			CreatedSince: f.Since,
			Sort:         "createdAt",
			Limit:        limit,
			Offset:       len(out),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if len(page.Items) < limit {
			break
		}
	}
	return out, nil
}

var leadHeader = []string{
	"id", "firstName", "lastName", "email", "phone", "company", "title", "source", "stage",
	"score", "priority", "value", "tags", "lastContactedAt", "convertedAt", "isArchived", "createdAt",
}

func leadRows(leads []*entity.Lead) [][]string {
	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []string{
			l.ID, l.FirstName, l.LastName, l.Email, l.Phone, l.Company, l.Title,
			string(l.Source), string(l.Stage),
			strconv.Itoa(l.Score), strconv.Itoa(l.Priority), strconv.FormatInt(l.Value, 10),
			strings.Join(l.Tags, ";"),
			formatTime(l.LastContactedAt), formatTime(l.ConvertedAt),
			strconv.FormatBool(l.IsArchived), l.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

var taskHeader = []string{
	"id", "title", "type", "priority", "status", "dueDate", "completedAt", "leadId", "campaignId", "createdAt",
}

func taskRows(tasks []*entity.Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.ID, t.Title, string(t.Type), strconv.Itoa(t.Priority), string(t.Status),
			formatTime(t.DueDate), formatTime(t.CompletedAt),
			deref(t.LeadID), deref(t.CampaignID), t.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

var conversationHeader = []string{
	"id", "leadId", "channel", "direction", "subject", "content", "outcome", "occurredAt",
}

func conversationRows(convs []*entity.Conversation) [][]string {
	rows := make([][]string, 0, len(convs))
	for _, c := range convs {
		rows = append(rows, []string{
			c.ID, c.LeadID, string(c.Channel), string(c.Direction), c.Subject, c.Content, c.Outcome,
			c.OccurredAt.Format(time.RFC3339),
		})
	}
	return rows
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
