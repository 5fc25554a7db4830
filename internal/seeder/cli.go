package seeder

import (
	"fmt"
	"os"

	"github.com/okian/asinrank/pkg/logger"
)

// SetupLogging initializes the global logger for the command line tool.
func SetupLogging(verbose bool, format string) error {
	if err := logger.InitWithOptions(os.Stdout, format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the seeding tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`asinrank seeding tool
=====================

Submits generated rank observations to a running asinrank service and checks
that every seeded ASIN is charted.

Usage:
  go run ./cmd/seed-observations [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5000")
  -api-key string
        Api-Key header value (default $ASINRANK_API_KEY, then $API_KEY)
  -asins int
        Number of distinct ASINs to seed (default 20)
  -per-asin int
        Observations submitted per ASIN (default 5)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -verify
        Fetch and check charts after seeding (default true)
  -json
        Log as JSON
  -verbose
        Enable debug logging and progress reports
  -help
        Show this help message

Examples:
  go run ./cmd/seed-observations -api-key secret
  go run ./cmd/seed-observations -asins 200 -per-asin 30 -workers 16 -url http://localhost:8080
`)
}
