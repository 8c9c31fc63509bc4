package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestRenderHTML(t *testing.T) {
	html, err := renderHTML("Hi Ada,\r\n\r\nThanks for <your> time.\n\n\n\nBest")
	require.NoError(t, err)

	assert.Contains(t, html, "<p>Hi Ada,</p>")
	assert.Contains(t, html, "<p>Thanks for &lt;your&gt; time.</p>")
	assert.Contains(t, html, "<p>Best</p>")
	assert.Equal(t, 3, bytes.Count([]byte(html), []byte("<p>")))
}

func TestEmailSender_Send(t *testing.T) {
	d := &fakeDialer{}
	s := NewEmailSender("smtp.example.com", 587, "user", "secret", "crm@example.com").WithDialer(d)

	require.NoError(t, s.Send(context.Background(), "ada@example.com", "Welcome", "Hello Ada"))
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"crm@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"ada@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Welcome"}, m.GetHeader("Subject"))

	var raw bytes.Buffer
	_, err := m.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "text/plain")
	assert.Contains(t, raw.String(), "text/html")
	assert.Contains(t, raw.String(), "Hello Ada")
}

func TestEmailSender_SendErrors(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	s := NewEmailSender("smtp.example.com", 587, "", "", "crm@example.com").WithDialer(d)

	err := s.Send(context.Background(), "ada@example.com", "Hi", "Body")
	assert.EqualError(t, err, "send smtp email: connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.sent = nil
	assert.ErrorIs(t, s.Send(ctx, "ada@example.com", "Hi", "Body"), context.Canceled)
	assert.Empty(t, d.sent)
}
