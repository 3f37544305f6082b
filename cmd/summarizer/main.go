// Command summarizer runs the transcript summarizer HTTP and gRPC servers.
//
// Configuration is read from an optional YAML file (-config or
// SUMMARIZER_CONFIG), then overridden by environment variables, which may
// come from a local .env file:
//
//	GROQ_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY: provider credentials
//	HTTP_ADDR: HTTP listen address (default: :8080)
//	GRPC_ADDR: gRPC listen address (default: :50051; set grpcAddr: "" in YAML to disable)
//	REDIS_ADDR: switches the record store to Redis
//	LOG_LEVEL, LOG_FORMAT
//	SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/abdhe/transcript-summarizer/pkg/api"
	"github.com/abdhe/transcript-summarizer/pkg/config"
	"github.com/abdhe/transcript-summarizer/pkg/failover"
	"github.com/abdhe/transcript-summarizer/pkg/logging"
	"github.com/abdhe/transcript-summarizer/pkg/metrics"
	"github.com/abdhe/transcript-summarizer/pkg/registry"
	"github.com/abdhe/transcript-summarizer/pkg/resilience"
	"github.com/abdhe/transcript-summarizer/pkg/rpc"
	"github.com/abdhe/transcript-summarizer/pkg/share"
	"github.com/abdhe/transcript-summarizer/pkg/status"
	"github.com/abdhe/transcript-summarizer/pkg/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "summarizer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}

	// -------------------------------------------------------------------------
	// Configuration and logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	logger.Info("starting transcript summarizer")

	// -------------------------------------------------------------------------
	// Provider registry
	// -------------------------------------------------------------------------
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := registry.Build(ctx, cfg.ProviderConfigs(), nil)
	if err != nil {
		return err
	}
	for _, a := range reg.All() {
		st := a.DescribeStatus()
		logger.Info("provider registered", "provider", st.Name, "configured", st.Configured, "model", st.Model)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("%w: set GROQ_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY", err)
	}

	recorder := metrics.Prometheus{}
	orchestrator := failover.New(reg, failover.WithLogger(logger), failover.WithRecorder(recorder))
	aggregator := status.NewAggregator(reg, status.WithLogger(logger), status.WithRecorder(recorder))

	// -------------------------------------------------------------------------
	// Record store and mail delivery
	// -------------------------------------------------------------------------
	var backend store.Store = store.NewMemory()
	if cfg.Store.Backend == "redis" {
		rs := store.NewRedis(store.RedisOptions{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
			TTL:      cfg.Store.Redis.TTL,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rs.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, using in-memory store", "addr", cfg.Store.Redis.Addr, "err", err)
			_ = rs.Close()
		} else {
			defer rs.Close()
			backend = rs
			logger.Info("redis store enabled", "addr", cfg.Store.Redis.Addr)
		}
	}
	records := store.NewRecords(backend)

	var mailer share.Mailer = share.LogMailer{Logger: logger}
	if cfg.SMTP.Host != "" {
		mailer = share.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	}

	retryCfg := resilience.RetryConfig{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxDelay:   cfg.Retry.MaxDelay,
	}

	// -------------------------------------------------------------------------
	// gRPC server
	// -------------------------------------------------------------------------
	rpcHandler := rpc.NewHandler(rpc.Config{
		Summarizer:     orchestrator,
		Status:         aggregator,
		Logger:         logger,
		RetryConfig:    retryCfg,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		grpcServer = grpc.NewServer(
			grpc.MaxRecvMsgSize(int(cfg.Server.MaxUploadBytes) + 1<<20),
		)
		rpc.RegisterSummarizerServer(grpcServer, rpcHandler)
		healthpb.RegisterHealthServer(grpcServer, rpcHandler.Health())
		reflection.Register(grpcServer)

		grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc %s: %w", cfg.Server.GRPCAddr, err)
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(grpcLis); err != nil {
				logger.Error("gRPC server error", "err", err)
				stop()
			}
		}()
	}
	go rpcHandler.RunHealthLoop(ctx, cfg.Server.HealthInterval)

	// -------------------------------------------------------------------------
	// HTTP server
	// -------------------------------------------------------------------------
	apiServer := api.NewServer(api.Config{
		Summarizer:     orchestrator,
		Status:         aggregator,
		Records:        records,
		Mailer:         mailer,
		Logger:         logger,
		Retry:          retryCfg,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		MailFrom:       cfg.SMTP.From,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           apiServer.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "err", err)
			stop()
		}
	}()

	// -------------------------------------------------------------------------
	// Graceful shutdown
	// -------------------------------------------------------------------------
	<-ctx.Done()
	logger.Info("shutting down")

	rpcHandler.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	logger.Info("transcript summarizer shut down")
	return nil
}
