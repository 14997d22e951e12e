package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	// Realtime Database the CLI talks to.
	BaseURL  string `validate:"required,url"`
	Resource string `validate:"required,excludesall=.$#[]/"`

	// Credentials; the user id may be omitted when the token carries it.
	UserID  string
	IDToken string

	HTTPTimeout time.Duration `validate:"gt=0"`

	// Outbound resilience. RateLimit 0 disables limiting.
	RateLimit       float64 `validate:"gte=0"`
	RateBurst       int     `validate:"gte=0"`
	BreakerFailures uint32
	BreakerTimeout  time.Duration `validate:"gte=0"`
	BreakerHalfOpen uint32
	BreakerWindow   time.Duration `validate:"gte=0"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	// WatchInterval controls how often `watch` refreshes the list.
	WatchInterval time.Duration `validate:"gte=1s"`

	// Emulator.
	Port               string            `validate:"required,numeric"`
	EmulatorTokens     map[string]string // uid -> token; empty accepts any token
	EmulatorMaxRecords int               `validate:"gte=0"`

	DatabaseURL string
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		BaseURL:         strings.TrimRight(getenvDefault("RTDB_BASE_URL", "http://localhost:9000"), "/"),
		Resource:        getenvDefault("RTDB_RESOURCE", "WeatherForecast"),
		UserID:          os.Getenv("FIREBASE_USER_ID"),
		IDToken:         os.Getenv("FIREBASE_ID_TOKEN"),
		RateBurst:       getenvInt("RTDB_RATE_BURST", 1),
		BreakerFailures: uint32(getenvInt("RTDB_BREAKER_FAILURES", 5)),
		BreakerHalfOpen: uint32(getenvInt("RTDB_BREAKER_HALF_OPEN", 1)),
		LogLevel:        strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getenvDefault("LOG_FORMAT", "console")),
		Port:            getenvDefault("PORT", "9000"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),

		EmulatorMaxRecords: getenvInt("EMULATOR_MAX_RECORDS", 0),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.BreakerTimeout, err = getenvDuration("RTDB_BREAKER_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.BreakerWindow, err = getenvDuration("RTDB_BREAKER_WINDOW", "0s"); err != nil {
		return nil, err
	}
	if cfg.WatchInterval, err = getenvDuration("WATCH_INTERVAL", "30s"); err != nil {
		return nil, err
	}

	if v := os.Getenv("RTDB_RATE_LIMIT"); v != "" {
		rl, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RTDB_RATE_LIMIT: %w", err)
		}
		cfg.RateLimit = rl
	}

	tokens, err := parseTokens(os.Getenv("EMULATOR_TOKENS"))
	if err != nil {
		return nil, err
	}
	cfg.EmulatorTokens = tokens

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parseTokens reads "uid:token,uid2:token2".
func parseTokens(raw string) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		uid, token, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || uid == "" || token == "" {
			return nil, fmt.Errorf("invalid EMULATOR_TOKENS entry %q: want uid:token", pair)
		}
		out[uid] = token
	}
	return out, nil
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
