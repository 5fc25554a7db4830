package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/asinrank/internal/seeder"
	"github.com/okian/asinrank/pkg/logger"
)

// Default configuration constants.
const (
	defaultASINs   = 20
	defaultPerASIN = 5
	defaultWorkers = 2 // multiplier for runtime.NumCPU()
	defaultTimeout = 10 * time.Second
	runTimeout     = 10 * time.Minute
)

func defaultAPIKey() string {
	if v := os.Getenv("ASINRANK_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("API_KEY")
}

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:5000", "Base URL of the service")
		apiKey  = flag.String("api-key", defaultAPIKey(), "Api-Key header value")
		asins   = flag.Int("asins", defaultASINs, "Number of distinct ASINs to seed")
		perASIN = flag.Int("per-asin", defaultPerASIN, "Observations submitted per ASIN")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verify  = flag.Bool("verify", true, "Fetch and check charts after seeding")
		asJSON  = flag.Bool("json", false, "Log as JSON")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seeder.ShowHelp()
		return
	}

	format := logger.FormatText
	if *asJSON {
		format = logger.FormatJSON
	}
	if err := seeder.SetupLogging(*verbose, format); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	cfg := &seeder.Config{
		BaseURL: *baseURL,
		APIKey:  *apiKey,
		ASINs:   *asins,
		PerASIN: *perASIN,
		Workers: *workers,
		Timeout: *timeout,
		Verbose: *verbose,
		Verify:  *verify,
	}

	if _, err := seeder.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "seeding failed", logger.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}
