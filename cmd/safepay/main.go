// SafePay - Real-time fraud screening for UPI payments.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/safepay-ai/safepay/internal/api"
	"github.com/safepay-ai/safepay/internal/bus"
	"github.com/safepay-ai/safepay/internal/cache"
	"github.com/safepay-ai/safepay/internal/domain"
	"github.com/safepay-ai/safepay/internal/engine"
	"github.com/safepay-ai/safepay/internal/features"
	"github.com/safepay-ai/safepay/internal/model"
	"github.com/safepay-ai/safepay/internal/policy"
	"github.com/safepay-ai/safepay/internal/profile"
	"github.com/safepay-ai/safepay/internal/repository"
	"github.com/safepay-ai/safepay/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg := loadConfig()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if cfg.Logging.Level == "debug" || os.Getenv("SAFEPAY_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("starting safepay",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"model", cfg.Model.Path,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Load the classifier eagerly. The decision policy cannot run
	// without a probability, so a missing artifact is fatal.
	classifier := model.NewLazyClassifier(cfg.Model.Path)
	if err := classifier.Warmup(); err != nil {
		slog.Error("failed to load model artifact", "path", cfg.Model.Path, "error", err)
		os.Exit(1)
	}
	slog.Info("model loaded", "path", cfg.Model.Path, "version", classifier.Version())

	// Telemetry provider for the two synthesized behavioral features
	var telemetry features.TelemetryProvider = features.RandomTelemetry{}
	if cfg.Scoring.FixedTelemetry {
		telemetry = features.DefaultFixedTelemetry()
		slog.Info("deterministic scoring enabled")
	}

	// Assemble the scoring pipeline
	registry := prometheus.NewRegistry()
	resolver := profile.NewResolver(repo, cacheImpl, logger)
	eng := engine.New(
		resolver,
		profile.NewActivityService(repo, logger),
		features.NewBuilder(telemetry),
		classifier,
		policy.MustDefault(),
		logger,
		engine.NewMetrics(registry),
	)
	slog.Info("scoring engine initialized")

	// Alert worker consumes scored events and raises fraud alerts
	alertWorker := worker.NewAlertWorker(busImpl, repo, logger)
	if err := alertWorker.Start(); err != nil {
		slog.Error("failed to start alert worker", "error", err)
		os.Exit(1)
	}
	slog.Info("alert worker started")

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, eng, resolver, registry, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("safepay is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if err := alertWorker.Stop(); err != nil {
		slog.Error("failed to stop alert worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("safepay shutdown complete")
}

// loadConfig builds the configuration from tier defaults plus environment
// overrides.
func loadConfig() *domain.Config {
	cfg := domain.DefaultConfig()
	if os.Getenv("SAFEPAY_TIER") == "pro" {
		cfg = domain.ProConfig()
	}

	if v := os.Getenv("SAFEPAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SAFEPAY_DB_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("SAFEPAY_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("SAFEPAY_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("SAFEPAY_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("SAFEPAY_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("SAFEPAY_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("SAFEPAY_MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if os.Getenv("SAFEPAY_FIXED_TELEMETRY") == "true" {
		cfg.Scoring.FixedTelemetry = true
	}
	if v := os.Getenv("SAFEPAY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if os.Getenv("SAFEPAY_DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}

	return cfg
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🛡  SAFEPAY                  ║")
	fmt.Println("  ║       Fraud Screening for Payments        ║")
	fmt.Println("  ║      Every rupee, checked in flight.      ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /transactions/score    - Score and record a transaction")
	fmt.Println("    GET  /transactions/{ref}    - Get transaction by reference")
	fmt.Println("    POST /predict/transaction   - Prediction only, no ledger write")
	fmt.Println("    POST /predict               - Score a raw feature vector")
	fmt.Println("    GET  /recipients/{upiID}    - Recipient directory lookup")
	fmt.Println("    GET  /recipients/search     - Search the recipient directory")
	fmt.Println("    GET  /health                - Health check")
	fmt.Println("    GET  /metrics               - Prometheus metrics")
	fmt.Println()
}
