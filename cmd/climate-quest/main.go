package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/i474232898/climate-quest/internal/api/http"
	"github.com/i474232898/climate-quest/internal/climate"
	"github.com/i474232898/climate-quest/internal/climate/providers"
	"github.com/i474232898/climate-quest/internal/config"
	"github.com/i474232898/climate-quest/internal/game"
	"github.com/i474232898/climate-quest/internal/ledger"
	"github.com/i474232898/climate-quest/internal/logger"
	"github.com/i474232898/climate-quest/internal/metrics"
	"github.com/i474232898/climate-quest/internal/quiz"
	"github.com/i474232898/climate-quest/internal/scheduler"
	"github.com/i474232898/climate-quest/internal/session"
	"github.com/i474232898/climate-quest/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl := logger.Get()
	defer logger.Sync()

	// Prometheus registry with the standard process collectors.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := newProvider(cfg, httpClient)

	// Durable points ledger.
	storage, closeStorage, err := newLedgerStorage(cfg)
	if err != nil {
		zl.Fatalw("failed to open ledger storage", "backend", cfg.LedgerBackend, "error", err)
	}
	defer closeStorage()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	points, err := ledger.New(startCtx, storage, cfg.LedgerKey,
		ledger.WithLogger(zl.Named("ledger")),
		ledger.WithGauge(m),
	)
	cancelStart()
	if err != nil {
		zl.Fatalw("failed to load ledger", "error", err)
	}

	// In-memory snapshot store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	games := game.NewRegistry(game.Config{
		Provider:  provider,
		Generator: quiz.NewGenerator(nil, quiz.WithQuestionCount(cfg.QuestionsPerRound), quiz.WithRecorder(m)),
		Ledger:    points,
		Store:     memStore,
		Logger:    zl.Named("game"),
		CoordinatorOptions: []climate.Option{
			climate.WithDebounce(cfg.RequestDebounce),
			climate.WithRetry(cfg.MaxRetries, cfg.RetryDelay),
			climate.WithPersistentAfter(cfg.PersistentFailureThreshold),
			climate.WithRecorder(m),
		},
		SessionOptions: []session.Option{
			session.WithFeedbackWindow(cfg.FeedbackWindow),
			session.WithRecorder(m),
		},
	}, cfg.GameIdleTTL, m)
	defer games.Close()

	// Janitor that evicts idle games.
	sched := scheduler.New(games, cfg.JanitorInterval, zl.Named("scheduler"))
	if err := sched.Start(); err != nil {
		zl.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	// Basic app configuration. WriteTimeout stays unset for the SSE streams.
	app := fiber.New(fiber.Config{
		AppName:               "climate-quest",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "climate-quest",
			"provider": provider.Name(),
			"games":    games.Len(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Games:    games,
		Ledger:   points,
		Store:    memStore,
		Gatherer: reg,
	})

	go func() {
		zl.Infow("listening", "port", cfg.Port, "provider", provider.Name(), "ledger", cfg.LedgerBackend)
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Warnw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zl.Errorw("error during shutdown", "error", err)
	}
}

func newProvider(cfg *config.AppConfig, client *http.Client) climate.Provider {
	if cfg.Provider == config.ProviderPower {
		return providers.NewPowerProvider(client, cfg.ClimateAPIURL)
	}
	return providers.NewMiddlewareProvider(client, cfg.ClimateAPIURL, false)
}

func newLedgerStorage(cfg *config.AppConfig) (ledger.Storage, func(), error) {
	switch cfg.LedgerBackend {
	case config.LedgerMemory:
		return ledger.NewMemoryStorage(), func() {}, nil
	case config.LedgerRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		return ledger.NewRedisStorage(client), func() {
			if err := client.Close(); err != nil {
				logger.Get().Warnw("closing redis client", "error", err)
			}
		}, nil
	default:
		return ledger.NewFileStorage(cfg.LedgerFile), func() {}, nil
	}
}

