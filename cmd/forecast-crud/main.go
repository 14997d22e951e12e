package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/i474232898/forecast-crud/internal/cli"
	"github.com/i474232898/forecast-crud/internal/config"
	"github.com/i474232898/forecast-crud/internal/logging"
	"github.com/i474232898/forecast-crud/internal/rtdb"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lggr, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lggr.Sync() }()

	// Shared HTTP client for database calls.
	client := rtdb.NewClient(rtdb.Config{
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
		Breaker: rtdb.BreakerConfig{
			MaxRequests:         cfg.BreakerHalfOpen,
			Interval:            cfg.BreakerWindow,
			Timeout:             cfg.BreakerTimeout,
			ConsecutiveFailures: cfg.BreakerFailures,
		},
	})

	root := cli.New(cfg, lggr, client).NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = lggr.Sync()
		os.Exit(1)
	}
}
