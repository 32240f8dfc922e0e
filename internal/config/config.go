package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Database URLs
	PostgresURL   string
	ClickHouseURL string
	RedisURL      string

	// Classifier
	ModelPath           string
	ModelReloadInterval time.Duration

	// Simulation
	SimStrategy        string
	SimRounds          int
	SimTrials          int
	SimExchanges       int
	SimWorkers         int
	ApplyMismatchAdj   bool
	PredictionCacheTTL time.Duration

	// Batch worker pool
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration

	// Scheduler
	CleanupInterval     time.Duration
	CleanupRetention    time.Duration
	PerformanceInterval time.Duration

	// Model tuning constants
	Tuning Tuning
}

// Load loads configuration from environment variables, after reading a
// .env file when one exists. It returns an error if critical
// configuration is missing.
func Load() (*Config, error) {
	// Missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		ModelReloadInterval: getEnvDuration("MODEL_RELOAD_INTERVAL", 15*time.Minute),

		SimStrategy:        getEnv("SIM_STRATEGY", "standard"),
		SimRounds:          getEnvInt("SIM_ROUNDS", 5),
		SimTrials:          getEnvInt("SIM_TRIALS", 1000),
		SimExchanges:       getEnvInt("SIM_EXCHANGES_PER_ROUND", 10),
		SimWorkers:         getEnvInt("SIM_WORKERS", 4),
		ApplyMismatchAdj:   getEnvBool("APPLY_MISMATCH_ADJUSTMENT", false),
		PredictionCacheTTL: getEnvDuration("PREDICTION_CACHE_TTL", 10*time.Minute),

		WorkerCount:   getEnvInt("WORKER_COUNT", 4),
		QueueSize:     getEnvInt("QUEUE_SIZE", 1000),
		BatchSize:     getEnvInt("BATCH_SIZE", 50),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 2*time.Second),

		CleanupInterval:     getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour),
		CleanupRetention:    getEnvDuration("CLEANUP_RETENTION", 180*24*time.Hour),
		PerformanceInterval: getEnvDuration("PERFORMANCE_INTERVAL", time.Hour),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	rawOrigins := strings.Split(origins, ",")
	for _, o := range rawOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	tuning, err := LoadTuning(getEnv("TUNING_FILE", ""))
	if err != nil {
		return nil, err
	}
	cfg.Tuning = tuning

	// Critical configuration - fail if missing
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}
	if cfg.ClickHouseURL, err = getEnvRequired("CLICKHOUSE_URL"); err != nil {
		return nil, err
	}
	if cfg.RedisURL, err = getEnvRequired("REDIS_URL"); err != nil {
		return nil, err
	}
	if cfg.ModelPath, err = getEnvRequired("MODEL_PATH"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SimStrategy {
	case "standard", "fatigue":
	default:
		return fmt.Errorf("invalid SIM_STRATEGY %q: want standard or fatigue", c.SimStrategy)
	}
	if c.SimRounds < 1 || c.SimTrials < 1 || c.SimExchanges < 1 {
		return fmt.Errorf("simulation rounds, trials and exchanges must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
