// Package api exposes the summarizer over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abdhe/transcript-summarizer/pkg/failover"
	"github.com/abdhe/transcript-summarizer/pkg/resilience"
	"github.com/abdhe/transcript-summarizer/pkg/share"
	"github.com/abdhe/transcript-summarizer/pkg/status"
	"github.com/abdhe/transcript-summarizer/pkg/store"
	"github.com/abdhe/transcript-summarizer/pkg/transcript"
)

// Summarizer is the orchestrated single-shot summarization call.
type Summarizer interface {
	GenerateSummary(ctx context.Context, transcript, instructions string) (failover.Outcome, error)
}

// StatusSource produces provider health reports.
type StatusSource interface {
	Gather(ctx context.Context) status.Report
}

// Config holds the server's collaborators and limits.
type Config struct {
	Summarizer     Summarizer
	Status         StatusSource
	Records        *store.Records
	Mailer         share.Mailer
	Logger         *slog.Logger
	Retry          resilience.RetryConfig
	RequestTimeout time.Duration
	MaxUploadBytes int64
	MailFrom       string
}

// Server holds the HTTP handlers.
type Server struct {
	summarizer     Summarizer
	status         StatusSource
	records        *store.Records
	mailer         share.Mailer
	logger         *slog.Logger
	retry          resilience.RetryConfig
	requestTimeout time.Duration
	maxUploadBytes int64
	mailFrom       string
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Records == nil {
		cfg.Records = store.NewRecords(store.NewMemory())
	}
	if cfg.Mailer == nil {
		cfg.Mailer = share.LogMailer{Logger: cfg.Logger}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = transcript.DefaultMaxBytes
	}
	return &Server{
		summarizer:     cfg.Summarizer,
		status:         cfg.Status,
		records:        cfg.Records,
		mailer:         cfg.Mailer,
		logger:         cfg.Logger.With("component", "api"),
		retry:          cfg.Retry,
		requestTimeout: cfg.RequestTimeout,
		maxUploadBytes: cfg.MaxUploadBytes,
		mailFrom:       cfg.MailFrom,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.GetStatus)
		r.Post("/transcripts", s.UploadTranscript)
		r.Route("/summaries", func(r chi.Router) {
			r.Post("/", s.CreateSummary)
			r.Get("/{id}", s.GetSummary)
			r.Put("/{id}", s.UpdateSummary)
			r.Post("/{id}/share", s.ShareSummary)
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
