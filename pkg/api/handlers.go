package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abdhe/transcript-summarizer/pkg/failover"
	"github.com/abdhe/transcript-summarizer/pkg/resilience"
	"github.com/abdhe/transcript-summarizer/pkg/share"
	"github.com/abdhe/transcript-summarizer/pkg/status"
	"github.com/abdhe/transcript-summarizer/pkg/store"
	"github.com/abdhe/transcript-summarizer/pkg/transcript"
)

type UploadResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Characters int    `json:"characters"`
}

type CreateSummaryRequest struct {
	TranscriptID string `json:"transcriptId,omitempty"`
	Transcript   string `json:"transcript,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type UpdateSummaryRequest struct {
	Content string `json:"content"`
}

type ShareRequest struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject,omitempty"`
}

type StatusResponse struct {
	Overall   status.Health           `json:"overall"`
	CheckedAt time.Time               `json:"checkedAt"`
	Providers map[string]status.Entry `json:"providers"`
}

// multipartOverhead leaves room for form boundaries around the file part.
const multipartOverhead = 1 << 20

func (s *Server) UploadTranscript(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, transcript.ErrTooLarge)
			return
		}
		writeMessage(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "missing form file \"file\"")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	text, err := transcript.Validate(header.Filename, data, s.maxUploadBytes)
	if err != nil {
		s.writeError(w, err)
		return
	}

	t, err := s.records.SaveTranscript(r.Context(), store.Transcript{Filename: header.Filename, Text: text})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("transcript uploaded", "id", t.ID, "filename", t.Filename, "characters", len(text))
	writeJSON(w, http.StatusCreated, UploadResponse{ID: t.ID, Filename: t.Filename, Characters: len([]rune(text))})
}

func (s *Server) CreateSummary(w http.ResponseWriter, r *http.Request) {
	var req CreateSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := req.Transcript
	if req.TranscriptID != "" {
		t, err := s.records.Transcript(r.Context(), req.TranscriptID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		text = t.Text
	}
	if strings.TrimSpace(text) == "" {
		writeMessage(w, http.StatusBadRequest, "transcript or transcriptId is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	var out failover.Outcome
	err := resilience.Retry(ctx, s.retry, func(ctx context.Context) error {
		var genErr error
		out, genErr = s.summarizer.GenerateSummary(ctx, text, req.Instructions)
		return genErr
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	sum, err := s.records.SaveSummary(r.Context(), store.Summary{
		TranscriptID:   req.TranscriptID,
		Content:        out.Content,
		Provider:       out.Provider,
		Instructions:   req.Instructions,
		AttemptedCount: out.AttemptedCount,
		TokensUsed:     out.TokensUsed,
		LatencyMs:      out.LatencyMs,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.records.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) UpdateSummary(w http.ResponseWriter, r *http.Request) {
	var req UpdateSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeMessage(w, http.StatusBadRequest, "content is required")
		return
	}

	sum, err := s.records.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sum.Content = content
	sum.Edited = true
	if sum, err = s.records.SaveSummary(r.Context(), sum); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) ShareSummary(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sum, err := s.records.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	email, err := share.Compose(share.Message{
		From:       s.mailFrom,
		Recipients: req.Recipients,
		Subject:    req.Subject,
		Summary:    sum.Content,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.mailer.Send(r.Context(), email); err != nil {
		s.logger.Error("share delivery failed", "summary", sum.ID, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "failed to deliver email", Retryable: true})
		return
	}

	rec, err := s.records.SaveShare(r.Context(), store.Share{SummaryID: sum.ID, Recipients: email.To, Subject: email.Subject})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("summary shared", "summary", sum.ID, "recipients", len(email.To))
	writeJSON(w, http.StatusAccepted, rec)
}

func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	report := s.status.Gather(r.Context())
	overall := report.Overall()

	code := http.StatusOK
	if overall != status.Healthy && overall != status.Degraded {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, StatusResponse{Overall: overall, CheckedAt: report.CheckedAt, Providers: report.Providers})
}
