package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkuiper/bankboard/internal/infra/gateway/bunq"
	"github.com/mkuiper/bankboard/internal/infra/gateway/frankfurter"
	"github.com/mkuiper/bankboard/internal/infra/postgres"
	infraRedis "github.com/mkuiper/bankboard/internal/infra/redis"
	"github.com/mkuiper/bankboard/internal/platform/fx"
	"github.com/mkuiper/bankboard/internal/platform/history"
	"github.com/mkuiper/bankboard/internal/platform/ingest"
	"github.com/mkuiper/bankboard/internal/platform/secrets"
	"github.com/mkuiper/bankboard/internal/transport/httpapi"
	"github.com/mkuiper/bankboard/internal/transport/httpapi/handler"
	"github.com/mkuiper/bankboard/pkg/config"
	"github.com/mkuiper/bankboard/pkg/logger"
)

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewDefault(cfg.Env)
	log.Info("Starting bankboard API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Initialize database connection pool
	db, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Resolve the provider API key (supports *_FILE indirection). Without
	// it the provider-backed endpoints stay unregistered and the server
	// runs in demo mode, still serving health and demo data.
	secretStore := secrets.NewEnvStore()
	apiKey, hasProvider := secretStore.Get("BUNQ_API_KEY")
	if !hasProvider {
		log.Warn("BUNQ_API_KEY not configured, running in demo mode")
	}

	// FX gateway and rate store
	fxClient := frankfurter.NewClient(log)
	if cfg.FxBaseURL != "" {
		fxClient.SetBaseURL(cfg.FxBaseURL)
	}
	rateStore := postgres.NewRateRepository(db.Pool)

	// Optional Redis tier for the FX rate cache; the in-process cache is
	// used when REDIS_URL is not configured.
	var rateCache fx.RateCache
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		rateCache = infraRedis.NewRateCacheWithTTL(redisClient, cfg.FxRateTTL, log)
		log.Info("Redis connection established")
	}

	fxSvc := fx.NewService(fx.Config{
		ReportingCurrency: cfg.ReportingCurrency,
		TTL:               cfg.FxRateTTL,
		SourceTag:         "frankfurter",
	}, rateCache, rateStore, fxClient, log)
	log.Info("FX service initialized", "reporting_currency", cfg.ReportingCurrency)

	// Provider gateway, ingest pipeline and history snapshots are only
	// wired when the provider key is present.
	var (
		ledgerHandler  *handler.LedgerHandler
		historyHandler *handler.HistoryHandler
		updater        *history.Updater
	)
	if hasProvider {
		bunqClient := bunq.NewClient(apiKey, log)
		if cfg.ProviderBaseURL != "" {
			bunqClient.SetBaseURL(cfg.ProviderBaseURL)
		}
		provider := bunq.NewAdapter(bunqClient)

		txCache := postgres.NewTransactionCacheRepository(db.Pool)
		ingestSvc := ingest.NewService(ingest.Config{
			ConcurrentAccounts: cfg.IngestConcurrency,
			RequestTimeout:     cfg.RequestTimeout,
		}, provider, txCache, fxSvc, log)
		log.Info("Ingest service initialized", "concurrency", cfg.IngestConcurrency)

		snapshotRepo := postgres.NewSnapshotRepository(db.Pool)
		historySvc := history.NewService(ingestSvc, snapshotRepo, fxSvc, log)

		ledgerHandler = handler.NewLedgerHandler(ingestSvc, log)
		historyHandler = handler.NewHistoryHandler(historySvc, log)
		updater = history.NewUpdater(historySvc, cfg.SnapshotInterval, log)
	}
	healthHandler := handler.NewHealthHandler(db)

	// Determine allowed origins for CORS
	allowedOrigins := []string{"http://localhost:5173", "http://localhost:5174"} // Vite ports
	if cfg.IsProduction() {
		if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
			allowedOrigins = []string{origins}
		}
	}

	// Create HTTP router
	r := httpapi.NewRouter(httpapi.Config{
		Logger:         log,
		AllowedOrigins: allowedOrigins,
		LedgerHandler:  ledgerHandler,
		HistoryHandler: historyHandler,
		HealthHandler:  healthHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background snapshot job
	if updater != nil {
		go updater.Run(ctx)
		log.Info("Snapshot updater started", "interval", cfg.SnapshotInterval)
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	log.Info("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
