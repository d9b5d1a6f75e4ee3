package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	ProviderMiddleware = "middleware"
	ProviderPower      = "power"

	LedgerMemory = "memory"
	LedgerFile   = "file"
	LedgerRedis  = "redis"
)

type AppConfig struct {
	Port string `validate:"required"`

	// Climate provider.
	Provider      string        `validate:"oneof=middleware power"`
	ClimateAPIURL string        `validate:"omitempty,url"`
	HTTPTimeout   time.Duration `validate:"gt=0"`

	// Request coordination.
	RequestDebounce            time.Duration `validate:"gte=0"`
	RetryDelay                 time.Duration `validate:"gte=0"`
	MaxRetries                 int           `validate:"gte=0"`
	PersistentFailureThreshold int           `validate:"gte=0"`

	// Quiz session.
	FeedbackWindow    time.Duration `validate:"gt=0"`
	QuestionsPerRound int           `validate:"gt=0"`

	// Points ledger.
	LedgerBackend string `validate:"oneof=memory file redis"`
	LedgerFile    string `validate:"required_if=LedgerBackend file"`
	LedgerKey     string `validate:"required"`
	RedisAddr     string `validate:"required_if=LedgerBackend redis"`
	RedisPassword string

	// Game registry.
	GameIdleTTL     time.Duration `validate:"gte=0"`
	JanitorInterval time.Duration `validate:"gt=0"`

	// In-memory store retention.
	StoreMaxHistory int           // max number of snapshots per map cell (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:          getenvDefault("PORT", "8080"),
		Provider:      getenvDefault("PROVIDER", ProviderMiddleware),
		ClimateAPIURL: os.Getenv("CLIMATE_API_URL"),
		LedgerBackend: getenvDefault("LEDGER_BACKEND", LedgerFile),
		LedgerFile:    getenvDefault("LEDGER_FILE", "data/ledger.yaml"),
		LedgerKey:     getenvDefault("LEDGER_KEY", "totalPoints"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MaxRetries:                 getenvInt("MAX_RETRIES", 2),
		PersistentFailureThreshold: getenvInt("PERSISTENT_FAILURE_THRESHOLD", 2),
		QuestionsPerRound:          getenvInt("QUESTIONS_PER_ROUND", 7),
		StoreMaxHistory:            getenvInt("STORE_MAX_HISTORY", 96),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "15s", &cfg.HTTPTimeout},
		{"REQUEST_DEBOUNCE", "100ms", &cfg.RequestDebounce},
		{"RETRY_DELAY", "1s", &cfg.RetryDelay},
		{"FEEDBACK_WINDOW", "2s", &cfg.FeedbackWindow},
		{"GAME_IDLE_TTL", "30m", &cfg.GameIdleTTL},
		{"JANITOR_INTERVAL", "5m", &cfg.JanitorInterval},
		{"STORE_MAX_AGE", "24h", &cfg.StoreMaxAge},
	}
	for _, d := range durations {
		v, err := getenvDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
