package rpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/abdhe/transcript-summarizer/pkg/failover"
	"github.com/abdhe/transcript-summarizer/pkg/provider"
	"github.com/abdhe/transcript-summarizer/pkg/resilience"
	"github.com/abdhe/transcript-summarizer/pkg/status"
)

// Summarizer is the orchestrated summarization call.
type Summarizer interface {
	GenerateSummary(ctx context.Context, transcript, instructions string) (failover.Outcome, error)
}

// StatusSource produces provider health reports.
type StatusSource interface {
	Gather(ctx context.Context) status.Report
}

// Handler implements SummarizerServer.
type Handler struct {
	summarizer     Summarizer
	status         StatusSource
	health         *health.Server
	logger         *slog.Logger
	retryCfg       resilience.RetryConfig
	requestTimeout time.Duration
}

// Config holds the handler configuration.
type Config struct {
	Summarizer     Summarizer
	Status         StatusSource
	Logger         *slog.Logger
	RetryConfig    resilience.RetryConfig
	RequestTimeout time.Duration
}

var _ SummarizerServer = (*Handler)(nil)

// NewHandler creates a handler with its own grpc.health.v1 server. All
// services start NOT_SERVING until the first Refresh.
func NewHandler(cfg Config) *Handler {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Handler{
		summarizer:     cfg.Summarizer,
		status:         cfg.Status,
		health:         health.NewServer(),
		logger:         cfg.Logger.With("component", "rpc"),
		retryCfg:       cfg.RetryConfig,
		requestTimeout: cfg.RequestTimeout,
	}
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Health returns the grpc.health.v1 server to register alongside the service.
func (h *Handler) Health() *health.Server { return h.health }

// GenerateSummary handles {transcript, instructions}.
func (h *Handler) GenerateSummary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, h.requestTimeout)
	defer cancel()

	fields := in.GetFields()
	transcript := fields["transcript"].GetStringValue()
	instructions := fields["instructions"].GetStringValue()

	var out failover.Outcome
	err := resilience.Retry(ctx, h.retryCfg, func(ctx context.Context) error {
		var genErr error
		out, genErr = h.summarizer.GenerateSummary(ctx, transcript, instructions)
		return genErr
	})
	if err != nil {
		return nil, h.toStatus(err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"content":        out.Content,
		"provider":       out.Provider,
		"attemptedCount": out.AttemptedCount,
		"tokensUsed":     out.TokensUsed,
		"latencyMs":      out.LatencyMs,
	})
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode response: %v", err)
	}
	return resp, nil
}

// GetStatus returns the current provider health report.
func (h *Handler) GetStatus(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	report := h.status.Gather(ctx)
	h.apply(report)

	resp, err := structpb.NewStruct(reportToMap(report))
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode status: %v", err)
	}
	return resp, nil
}

// Refresh gathers a report and updates the health server.
func (h *Handler) Refresh(ctx context.Context) status.Report {
	report := h.status.Gather(ctx)
	h.apply(report)
	return report
}

// RunHealthLoop refreshes health every interval until ctx ends.
func (h *Handler) RunHealthLoop(ctx context.Context, interval time.Duration) {
	h.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING.
func (h *Handler) Shutdown() {
	h.health.Shutdown()
}

func (h *Handler) apply(report status.Report) {
	overall := report.Overall()
	serving := healthpb.HealthCheckResponse_NOT_SERVING
	if overall == status.Healthy || overall == status.Degraded {
		serving = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", serving)
	h.health.SetServingStatus(ServiceName, serving)

	for name, e := range report.Providers {
		ps := healthpb.HealthCheckResponse_NOT_SERVING
		if e.Status == status.Healthy {
			ps = healthpb.HealthCheckResponse_SERVING
		}
		h.health.SetServingStatus(ProviderService(name), ps)
	}
}

// ProviderService is the health service name reported for one provider.
func ProviderService(name string) string {
	return ServiceName + "/" + name
}

// toStatus maps terminal errors to gRPC codes. AllProvidersFailed carries
// its per-provider breakdown as a Struct detail.
func (h *Handler) toStatus(err error) error {
	kind := provider.KindOf(err)
	switch kind {
	case provider.AllProvidersFailed:
		h.logger.Error("summarization unavailable", "err", err)
		st := grpcstatus.New(codes.Unavailable, "summarization temporarily unavailable")
		var fe *failover.Error
		if errors.As(err, &fe) {
			if detail, derr := structpb.NewStruct(map[string]any{"failures": failuresToList(fe.Failures)}); derr == nil {
				if withDetail, werr := st.WithDetails(detail); werr == nil {
					st = withDetail
				}
			}
		}
		return st.Err()
	case provider.NoProvidersConfigured:
		h.logger.Error("summarization not configured", "err", err)
		return grpcstatus.Error(codes.FailedPrecondition, "summarization is not configured")
	case provider.InvalidRequest:
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case provider.Timeout:
		return grpcstatus.Error(codes.DeadlineExceeded, "summarization timed out")
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return grpcstatus.Error(codes.Canceled, err.Error())
	}
	h.logger.Error("request failed", "err", err)
	return grpcstatus.Error(codes.Internal, err.Error())
}

func failuresToList(failures []failover.Failure) []any {
	out := make([]any, 0, len(failures))
	for _, f := range failures {
		out = append(out, map[string]any{
			"provider": f.Provider,
			"kind":     f.Kind.String(),
			"message":  f.Message,
		})
	}
	return out
}

func reportToMap(r status.Report) map[string]any {
	providers := make(map[string]any, len(r.Providers))
	for name, e := range r.Providers {
		providers[name] = map[string]any{
			"configured": e.Configured,
			"reachable":  e.Reachable,
			"status":     string(e.Status),
			"detail":     e.Detail,
			"model":      e.Model,
		}
	}
	return map[string]any{
		"overall":   string(r.Overall()),
		"checkedAt": r.CheckedAt.Format(time.RFC3339Nano),
		"providers": providers,
	}
}
