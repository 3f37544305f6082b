package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	e, err := Compose(Message{
		From:       "bot@example.com",
		Recipients: []string{"Alice <alice@example.com>", " bob@example.com ", "ALICE@example.com", ""},
		Summary:    "Decisions:\n- ship it\n\nNext steps: <script>alert(1)</script>",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, e.To)
	assert.Equal(t, DefaultSubject, e.Subject)
	assert.Equal(t, "bot@example.com", e.From)
	assert.Contains(t, e.Text, "ship it")
	assert.Contains(t, e.Text, "<script>", "text body is not escaped")
	assert.NotContains(t, e.HTML, "<script>")
	assert.Contains(t, e.HTML, "&lt;script&gt;")
	assert.Equal(t, 2, strings.Count(e.HTML, "<p>")-1, "one paragraph per block plus footer")
}

func TestCompose_Errors(t *testing.T) {
	many := make([]string, MaxRecipients+1)
	for i := range many {
		many[i] = fmt.Sprintf("u%d@example.com", i)
	}

	tests := []struct {
		name    string
		msg     Message
		wantErr error
	}{
		{"no recipients", Message{Summary: "x"}, ErrNoRecipients},
		{"blank recipients", Message{Summary: "x", Recipients: []string{" ", ""}}, ErrNoRecipients},
		{"bad address", Message{Summary: "x", Recipients: []string{"not-an-email"}}, ErrInvalidRecipient},
		{"too many", Message{Summary: "x", Recipients: many}, ErrTooManyRecipients},
		{"empty summary", Message{Summary: "  ", Recipients: []string{"a@example.com"}}, ErrEmptySummary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compose(tt.msg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCompose_SubjectSingleLine(t *testing.T) {
	e, err := Compose(Message{Recipients: []string{"a@example.com"}, Subject: "Weekly\nsync", Summary: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Weekly sync", e.Subject)
}

func TestSMTPMailer_Send(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	var gotAuth smtp.Auth

	m := NewSMTPMailer("smtp.example.com", 587, "user", "pass")
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	}

	e := Email{From: "bot@example.com", To: []string{"a@example.com", "b@example.com"}, Subject: "Meeting summary", Text: "plain", HTML: "<p>rich</p>"}
	require.NoError(t, m.Send(context.Background(), e))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, e.To, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, msg, "multipart/alternative")
	assert.Contains(t, msg, "text/plain; charset=UTF-8")
	assert.Contains(t, msg, "<p>rich</p>")
}

func TestSMTPMailer_NoAuthWithoutUsername(t *testing.T) {
	m := NewSMTPMailer("localhost", 25, "", "")
	var gotAuth smtp.Auth = smtp.PlainAuth("", "x", "y", "z")
	m.sendMail = func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		gotAuth = a
		return nil
	}
	require.NoError(t, m.Send(context.Background(), Email{To: []string{"a@example.com"}}))
	assert.Nil(t, gotAuth)
}

func TestSMTPMailer_Errors(t *testing.T) {
	m := NewSMTPMailer("localhost", 25, "", "")
	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay denied") }
	err := m.Send(context.Background(), Email{To: []string{"a@example.com"}})
	assert.ErrorContains(t, err, "relay denied")

	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		time.Sleep(time.Second)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Send(ctx, Email{To: []string{"a@example.com"}}), context.DeadlineExceeded)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	require.NoError(t, m.Send(context.Background(), Email{To: []string{"a@example.com"}, Subject: "hi"}))
	assert.Contains(t, buf.String(), "a@example.com")
	assert.Contains(t, buf.String(), `"subject":"hi"`)
}
