package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	transcriptPrefix = "transcript:"
	summaryPrefix    = "summary:"
	sharePrefix      = "share:"
)

// Transcript is an uploaded, validated meeting transcript.
type Transcript struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Text       string    `json:"text"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Summary is a generated, possibly user-edited, summary.
type Summary struct {
	ID             string    `json:"id"`
	TranscriptID   string    `json:"transcriptId,omitempty"`
	Content        string    `json:"content"`
	Provider       string    `json:"provider"`
	Instructions   string    `json:"instructions,omitempty"`
	AttemptedCount int       `json:"attemptedCount"`
	TokensUsed     int64     `json:"tokensUsed"`
	LatencyMs      int64     `json:"latencyMs"`
	Edited         bool      `json:"edited"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Share records one email delivery of a summary.
type Share struct {
	ID         string    `json:"id"`
	SummaryID  string    `json:"summaryId"`
	Recipients []string  `json:"recipients"`
	Subject    string    `json:"subject"`
	SentAt     time.Time `json:"sentAt"`
}

// Records is a typed JSON facade over any Store.
type Records struct {
	store Store
	now   func() time.Time
}

func NewRecords(s Store) *Records {
	return &Records{store: s, now: time.Now}
}

// SaveTranscript assigns an id and upload time when missing.
func (r *Records) SaveTranscript(ctx context.Context, t Transcript) (Transcript, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.UploadedAt.IsZero() {
		t.UploadedAt = r.now().UTC()
	}
	return t, r.put(ctx, transcriptPrefix+t.ID, t)
}

func (r *Records) Transcript(ctx context.Context, id string) (Transcript, error) {
	var t Transcript
	return t, r.get(ctx, transcriptPrefix+id, &t)
}

// SaveSummary assigns an id on first save and keeps UpdatedAt current.
func (r *Records) SaveSummary(ctx context.Context, s Summary) (Summary, error) {
	now := r.now().UTC()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return s, r.put(ctx, summaryPrefix+s.ID, s)
}

func (r *Records) Summary(ctx context.Context, id string) (Summary, error) {
	var s Summary
	return s, r.get(ctx, summaryPrefix+id, &s)
}

func (r *Records) SaveShare(ctx context.Context, sh Share) (Share, error) {
	if sh.ID == "" {
		sh.ID = uuid.NewString()
	}
	if sh.SentAt.IsZero() {
		sh.SentAt = r.now().UTC()
	}
	return sh, r.put(ctx, sharePrefix+sh.ID, sh)
}

func (r *Records) Share(ctx context.Context, id string) (Share, error) {
	var sh Share
	return sh, r.get(ctx, sharePrefix+id, &sh)
}

func (r *Records) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", key, err)
	}
	if err := r.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store: put %s: %w", key, err)
	}
	return nil
}

func (r *Records) get(ctx context.Context, key string, v any) error {
	data, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("store: get %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: unmarshal %s: %w", key, err)
	}
	return nil
}
