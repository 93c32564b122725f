// Package main is the entrypoint for the Hushmetrics API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hushmetrics/hushmetrics/internal/auth"
	"github.com/hushmetrics/hushmetrics/internal/cache"
	"github.com/hushmetrics/hushmetrics/internal/config"
	"github.com/hushmetrics/hushmetrics/internal/dedup"
	"github.com/hushmetrics/hushmetrics/internal/fingerprint"
	"github.com/hushmetrics/hushmetrics/internal/handler"
	"github.com/hushmetrics/hushmetrics/internal/importer"
	"github.com/hushmetrics/hushmetrics/internal/ingest"
	"github.com/hushmetrics/hushmetrics/internal/metrics"
	"github.com/hushmetrics/hushmetrics/internal/middleware"
	"github.com/hushmetrics/hushmetrics/internal/pipeline"
	"github.com/hushmetrics/hushmetrics/internal/realtime"
	"github.com/hushmetrics/hushmetrics/internal/repository"
	"github.com/hushmetrics/hushmetrics/internal/server"
	"github.com/hushmetrics/hushmetrics/internal/share"
	"github.com/hushmetrics/hushmetrics/internal/stats"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Fingerprinting secret is a hard requirement. A process that cannot
	// derive visitor fingerprints must not accept traffic.
	hasher, err := fingerprint.New(cfg.FingerprintSecret)
	if err != nil {
		logger.Error("invalid fingerprint secret", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache / event stream
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Owner authentication
	identities, err := auth.ParseStaticTokens(cfg.APITokens)
	if err != nil {
		logger.Error("invalid API_TOKENS", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if identities.Empty() {
		logger.Warn("no API tokens configured, authenticated routes will reject all requests")
	}

	// Metrics
	metricsRecorder := metrics.NewInMemory()

	// Hot-path components
	deduplicator := dedup.New(cfg.DedupWindow)
	realtimeStore := realtime.NewStore(cfg.RealtimeRetention, cfg.RealtimeMaxEvents)
	publisher := pipeline.NewPublisher(cacheClient.Client(), logger, metricsRecorder)
	ingestService := ingest.NewService(hasher, deduplicator, realtimeStore, publisher, logger, metricsRecorder, cfg.DedupTimeBucket)

	// Background maintenance for the in-memory stores.
	maintenanceStop := make(chan struct{})
	go realtimeStore.RunPruner(time.Minute, maintenanceStop)
	go runDedupSweeper(deduplicator, cfg.DedupWindow, maintenanceStop)

	// Cold-path worker
	eventRepo := repository.NewEventRepository(repo)
	worker := pipeline.NewWorker(cacheClient.Client(), eventRepo, logger, pipeline.NewConsumerID(), metricsRecorder)
	go func() {
		if err := worker.Run(context.Background()); err != nil {
			logger.Error("event worker stopped", slog.String("error", err.Error()))
		}
	}()

	// Query-side services
	statsEngine := stats.NewEngine(eventRepo)
	shareGovernor := share.NewGovernor(repository.NewShareRepository(repo))

	// Bulk import
	importSource := importer.NewHTTPSource(cfg.ImportSourceURL, cfg.ImportSourceAPIKey, cfg.ImportSourceTimeout)
	importCoordinator := importer.NewCoordinator(repository.NewImportJobRepository(repo), eventRepo, importSource, cfg.ImportBatchSize, logger)
	credentialResolver := importer.StaticResolver{AccountID: cfg.ImportAccountID}

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)
	eventHandler := handler.NewEventHandler(ingestService, logger, cfg.MaxRequestBodySize)
	realtimeHandler := handler.NewRealtimeHandler(realtimeStore, logger, cfg.TrendSlice, cfg.TrendThreshold)
	statsHandler := handler.NewStatsHandler(statsEngine, cacheClient, cfg.StatsCacheTTL, metricsRecorder, logger)
	shareHandler := handler.NewShareHandler(shareGovernor, statsEngine, logger)
	importHandler := handler.NewImportHandler(importCoordinator, credentialResolver, logger)

	// Setup router
	r := setupRouter(h, healthHandler, metricsHandler, eventHandler, realtimeHandler, statsHandler, shareHandler, importHandler, identities, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	srv.OnShutdown("maintenance", func(ctx context.Context) error {
		close(maintenanceStop)
		return nil
	})
	// The worker drains its in-flight batch last so events already pulled
	// from the stream land in Postgres before the process exits.
	srv.OnShutdown("event worker", worker.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// runDedupSweeper evicts expired dedup entries until stop closes.
func runDedupSweeper(d *dedup.Deduplicator, window time.Duration, stop <-chan struct{}) {
	interval := window
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			d.Sweep(now)
		case <-stop:
			return
		}
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	metricsHandler *handler.MetricsHandler,
	eventHandler *handler.EventHandler,
	realtimeHandler *handler.RealtimeHandler,
	statsHandler *handler.StatsHandler,
	shareHandler *handler.ShareHandler,
	importHandler *handler.ImportHandler,
	identities middleware.IdentityProvider,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	// Rate limit middleware configuration
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  logger,
		Enabled: cfg.IngestRateLimitEnabled,
		RPS:     cfg.IngestRateLimitRPS,
		Burst:   cfg.IngestRateLimitBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public event ingestion with per-client rate limiting.
		r.With(middleware.RateLimitIngest(rateLimitCfg)).
			Post("/sites/{siteID}/events", eventHandler.Track)

		// Public shared dashboard access, governed by the token itself.
		r.Get("/shared/{token}", shareHandler.SharedStats)

		// Owner-facing routes require a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(identities, logger))

			r.Get("/sites/{siteID}/realtime", realtimeHandler.Snapshot)
			r.Get("/sites/{siteID}/stats", statsHandler.Summary)

			r.Post("/sites/{siteID}/shares", shareHandler.Create)
			r.Delete("/shares/{token}", shareHandler.Revoke)

			r.Post("/sites/{siteID}/imports", importHandler.Start)
			r.Get("/imports/{jobID}", importHandler.Status)
			r.Post("/imports/{jobID}/cancel", importHandler.Cancel)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
