package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cleannadu/complaint-bot-go/internal/catalog"
	"github.com/cleannadu/complaint-bot-go/internal/config"
	"github.com/cleannadu/complaint-bot-go/internal/engine"
	"github.com/cleannadu/complaint-bot-go/internal/handler"
	"github.com/cleannadu/complaint-bot-go/internal/infra/observability"
	"github.com/cleannadu/complaint-bot-go/internal/infra/resilience"
	"github.com/cleannadu/complaint-bot-go/internal/infra/supabase"
	"github.com/cleannadu/complaint-bot-go/internal/port"
	"github.com/cleannadu/complaint-bot-go/internal/service"
	"github.com/cleannadu/complaint-bot-go/internal/session"
	"github.com/cleannadu/complaint-bot-go/internal/store"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("signature_check", cfg.TwilioAuthToken != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), cfg.OTLPEndpoint, "complaint-bot")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Sessions ---
	sessions := session.New(cfg.SessionTTL)

	// --- Metrics ---
	metrics := observability.NewMetrics(sessions.Len)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Complaint store ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var complaintStore port.ComplaintStore
	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase complaint store",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		complaintStore = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			logger,
		)
	} else {
		logger.Info("using in-memory complaint store")
		complaintStore = store.NewMemory()
	}

	// --- Engine & services ---
	eng := engine.New(catalog.New(), complaintStore, metrics, logger)
	complaintsSvc := service.NewComplaintsService(complaintStore, logger)
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.AdminUser, cfg.AdminPasswordHash, logger)
	if cfg.AdminPasswordHash == "" {
		logger.Warn("admin login disabled: ADMIN_PASSWORD_HASH not set")
	}

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Engine:          eng,
		Sessions:        sessions,
		Store:           complaintStore,
		Complaints:      complaintsSvc,
		Auth:            authSvc,
		Metrics:         metrics,
		Logger:          logger,
		Bulkhead:        bulkhead,
		TwilioAuthToken: cfg.TwilioAuthToken,
		VerifyToken:     cfg.VerifyToken,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
