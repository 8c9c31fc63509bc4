package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templates embed.FS

var campaignTemplate = template.Must(template.ParseFS(templates, "templates/campaign.html"))

// Dialer delivers prepared messages; *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		dialer:   gomail.NewDialer(host, port, user, password),
	}
}

// WithDialer replaces the SMTP dialer.
func (s *EmailSender) WithDialer(d Dialer) *EmailSender {
	s.dialer = d
	return s
}

// Send delivers a campaign email with a plain-text body and an HTML
// alternative built from it.
func (s *EmailSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	html, err := renderHTML(body)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	m.AddAlternative("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send smtp email: %w", err)
	}
	return nil
}

func renderHTML(body string) (string, error) {
	var data CampaignEmailData
	for _, p := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			data.Paragraphs = append(data.Paragraphs, p)
		}
	}

	var buf bytes.Buffer
	if err := campaignTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template: %w", err)
	}
	return buf.String(), nil
}
