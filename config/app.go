package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds the timing knobs for the simulated async operations.
// All delays are read once at startup; tests build their own instance
// with near-zero values instead of going through the environment.
type AppConfig struct {
	Port string

	// ValidateDelay is how long a validation run stays in VALIDATING
	// before it resolves.
	ValidateDelay time.Duration

	// EbsSettleDelay is the settle time between entering EBS_UPLOAD and
	// the auto-triggered upload completion.
	EbsSettleDelay time.Duration

	// MutationDelay simulates network latency on ledger mutations
	// (discussions, prompt save, upload attach).
	MutationDelay time.Duration
}

var app *AppConfig

func GetApp() *AppConfig {
	return app
}

func init() {
	// Load env from .env (developer convenience, ignored when absent).
	godotenv.Load()

	app = &AppConfig{
		Port:           envString("PORT", "8080"),
		ValidateDelay:  envMillis("VALIDATE_DELAY_MS", 1500),
		EbsSettleDelay: envMillis("EBS_SETTLE_DELAY_MS", 3000),
		MutationDelay:  envMillis("MUTATION_DELAY_MS", 400),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envMillis(key string, fallback int64) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return time.Duration(fallback) * time.Millisecond
}
