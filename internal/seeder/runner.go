package seeder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/asinrank/pkg/logger"
)

// ErrInvalidConfig is returned by Run for unusable settings.
var ErrInvalidConfig = errors.New("invalid seeder config")

const percentageMultiplier = 100

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url must not be empty", ErrInvalidConfig)
	case c.ASINs <= 0:
		return fmt.Errorf("%w: asins must be positive", ErrInvalidConfig)
	case c.PerASIN <= 0:
		return fmt.Errorf("%w: per-asin must be positive", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Run executes a complete seeding run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting asinrank seeding run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("asins", cfg.ASINs),
		logger.Int("perASIN", cfg.PerASIN),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	c := newClient(cfg)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, c); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate observations
	obs, plan := generate(cfg)
	stats.Generated = len(obs)

	// Step 3: Submit observations concurrently
	submit(ctx, cfg, c, obs, stats)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("submission interrupted: %w", err)
	}

	// Step 4: Verify charts
	if cfg.Verify {
		if stats.Failed > 0 {
			return stats, fmt.Errorf("%w: %d observations were rejected", ErrVerification, stats.Failed)
		}
		if err := verify(ctx, c, plan, stats); err != nil {
			return stats, err
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running and accepts our key.
func checkServiceHealth(ctx context.Context, c *client) error {
	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	status, err := c.get(ctx, "/healthz", nil, &resp)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d: %s", status, resp.Error)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration),
		logger.Any("successRate", successRate),
		logger.Any("observationsPerSecond", perSecond),
	)
}
