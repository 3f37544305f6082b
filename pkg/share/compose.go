// Package share composes summary emails and hands them to a Mailer.
package share

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	texttemplate "text/template"
)

const (
	DefaultSubject = "Meeting summary"
	MaxRecipients  = 20
)

var (
	ErrNoRecipients      = errors.New("share: at least one recipient is required")
	ErrTooManyRecipients = errors.New("share: too many recipients")
	ErrInvalidRecipient  = errors.New("share: invalid recipient address")
	ErrEmptySummary      = errors.New("share: summary content is empty")
)

// Message is what a caller asks to share.
type Message struct {
	From       string
	Recipients []string
	Subject    string
	Summary    string
}

// Email is a composed message ready for delivery.
type Email struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`{{.Subject}}

{{.Summary}}

--
Sent from Transcript Summarizer
`))

var htmlBody = template.Must(template.New("html").Parse(`<!DOCTYPE html>
<html><body>
<h2>{{.Subject}}</h2>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}<hr><p><small>Sent from Transcript Summarizer</small></p>
</body></html>
`))

// Compose validates recipients and renders text and HTML bodies.
func Compose(msg Message) (Email, error) {
	summary := strings.TrimSpace(msg.Summary)
	if summary == "" {
		return Email{}, ErrEmptySummary
	}

	to, err := normalizeRecipients(msg.Recipients)
	if err != nil {
		return Email{}, err
	}

	subject := strings.TrimSpace(strings.ReplaceAll(msg.Subject, "\n", " "))
	if subject == "" {
		subject = DefaultSubject
	}

	data := struct {
		Subject    string
		Summary    string
		Paragraphs []string
	}{
		Subject:    subject,
		Summary:    summary,
		Paragraphs: paragraphs(summary),
	}

	var text, html bytes.Buffer
	if err := textBody.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("share: render text: %w", err)
	}
	if err := htmlBody.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("share: render html: %w", err)
	}

	return Email{
		From:    msg.From,
		To:      to,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func normalizeRecipients(in []string) ([]string, error) {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRecipient, raw)
		}
		key := strings.ToLower(addr.Address)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr.Address)
	}
	switch {
	case len(out) == 0:
		return nil, ErrNoRecipients
	case len(out) > MaxRecipients:
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyRecipients, len(out), MaxRecipients)
	}
	return out, nil
}

func paragraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
