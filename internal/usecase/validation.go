package usecase

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // zone names validate without system zoneinfo

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var nonDigits = regexp.MustCompile(`\D`)

// ValidateLead checks a lead after a create or update has been applied.
func ValidateLead(l *entity.Lead) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(l.FirstName) == "" && strings.TrimSpace(l.Company) == "" {
		errors = append(errors, ValidationError{"firstName", "first name or company is required"})
	}
	if len(l.FirstName) > 100 {
		errors = append(errors, ValidationError{"firstName", "must not exceed 100 characters"})
	}
	if len(l.LastName) > 100 {
		errors = append(errors, ValidationError{"lastName", "must not exceed 100 characters"})
	}
	if l.Email != "" && !isValidEmail(l.Email) {
		errors = append(errors, ValidationError{"email", "is invalid"})
	}
	if l.Phone != "" && !isValidPhoneNumber(l.Phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid phone number"})
	}
	if !l.Source.Valid() {
		errors = append(errors, ValidationError{"source", "is invalid"})
	}
	if !l.Stage.Valid() {
		errors = append(errors, ValidationError{"stage", "is invalid"})
	}
	if l.Score < 0 || l.Score > 100 {
		errors = append(errors, ValidationError{"score", "must be between 0 and 100"})
	}
	if l.Priority < 1 || l.Priority > 5 {
		errors = append(errors, ValidationError{"priority", "must be between 1 and 5"})
	}
	if l.Value < 0 {
		errors = append(errors, ValidationError{"value", "must not be negative"})
	}
	if len(l.Tags) > 20 {
		errors = append(errors, ValidationError{"tags", "must not exceed 20 tags"})
	}

	return errors
}

func ValidateConversationInput(input ConversationInput, now time.Time) []ValidationError {
	var errors []ValidationError

	if !entity.Channel(input.Channel).Valid() {
		errors = append(errors, ValidationError{"channel", "is invalid"})
	}
	if input.Direction != "" && !entity.Direction(input.Direction).Valid() {
		errors = append(errors, ValidationError{"direction", "must be INBOUND or OUTBOUND"})
	}
	if strings.TrimSpace(input.Content) == "" {
		errors = append(errors, ValidationError{"content", "is required"})
	}
	if input.OccurredAt != nil && input.OccurredAt.After(now) {
		errors = append(errors, ValidationError{"occurredAt", "must not be in the future"})
	}

	return errors
}

func ValidateCampaign(c *entity.Campaign) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Name) == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	} else if len(c.Name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		errors = append(errors, ValidationError{"endDate", "must not be before startDate"})
	}

	return errors
}

func (s CampaignStepInput) stepType() entity.StepType {
	return entity.StepType(strings.ToUpper(strings.TrimSpace(s.Type)))
}

func ValidateSteps(steps []CampaignStepInput) []ValidationError {
	var errors []ValidationError

	for i, s := range steps {
		field := fmt.Sprintf("steps[%d]", i)
		typ := s.stepType()
		if !typ.Valid() {
			errors = append(errors, ValidationError{field + ".type", "must be EMAIL, CALL, WAIT or TASK"})
			continue
		}
		if s.DelayDays < 0 {
			errors = append(errors, ValidationError{field + ".delayDays", "must not be negative"})
		}
		switch typ {
		case entity.StepEmail:
			if strings.TrimSpace(s.Subject) == "" {
				errors = append(errors, ValidationError{field + ".subject", "is required for EMAIL steps"})
			}
			if strings.TrimSpace(s.Content) == "" {
				errors = append(errors, ValidationError{field + ".content", "is required for EMAIL steps"})
			}
		case entity.StepWait:
			if s.DelayDays <= 0 {
				errors = append(errors, ValidationError{field + ".delayDays", "must be positive for WAIT steps"})
			}
		}
	}

	return errors
}

func ValidateTask(t *entity.Task) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(t.Title) == "" {
		errors = append(errors, ValidationError{"title", "is required"})
	} else if len(t.Title) > 200 {
		errors = append(errors, ValidationError{"title", "must not exceed 200 characters"})
	}
	if !t.Type.Valid() {
		errors = append(errors, ValidationError{"type", "is invalid"})
	}
	if !t.Status.Valid() {
		errors = append(errors, ValidationError{"status", "is invalid"})
	}
	if t.Priority < 1 || t.Priority > 5 {
		errors = append(errors, ValidationError{"priority", "must be between 1 and 5"})
	}

	return errors
}

func ValidateProfile(p *entity.UserProfile) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(p.Name) == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	} else if len(p.Name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			errors = append(errors, ValidationError{"timezone", "must be a valid IANA time zone"})
		}
	}
	if p.AvatarURL != "" && !isValidURL(p.AvatarURL) {
		errors = append(errors, ValidationError{"avatarUrl", "must be an absolute http(s) URL"})
	}

	return errors
}

func ValidatePreferences(p *entity.UserPreferences) []ValidationError {
	var errors []ValidationError

	switch p.Theme {
	case entity.ThemeLight, entity.ThemeDark, entity.ThemeSystem:
	default:
		errors = append(errors, ValidationError{"theme", "must be LIGHT, DARK or SYSTEM"})
	}
	switch p.DashboardRange {
	case entity.RangeWeek, entity.RangeMonth, entity.RangeQuarter:
	default:
		errors = append(errors, ValidationError{"dashboardRange", "must be WEEK, MONTH or QUARTER"})
	}
	if p.DefaultPageSize < 1 || p.DefaultPageSize > entity.MaxPageSize {
		errors = append(errors, ValidationError{"defaultPageSize", fmt.Sprintf("must be between 1 and %d", entity.MaxPageSize)})
	}

	return errors
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func isValidPhoneNumber(phone string) bool {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	return len(cleaned) >= 7 && len(cleaned) <= 15
}

func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
