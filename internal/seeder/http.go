package seeder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/asinrank/pkg/logger"
)

const (
	apiKeyHeader   = "Api-Key"
	reportInterval = time.Second
)

// client issues authenticated GET requests against the service.
type client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func newClient(cfg *Config) *client {
	return &client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// get requests path with query q and decodes a JSON body into out.
func (c *client) get(ctx context.Context, path string, q url.Values, out any) (int, error) {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read %s: %w", path, err)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// submit sends every observation through the ingestion endpoint using a
// fixed pool of workers.
func submit(ctx context.Context, cfg *Config, c *client, obs []Observation, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting observations",
		logger.Int("count", len(obs)),
		logger.Int("workers", cfg.Workers),
	)

	var (
		submitted  atomic.Int64
		successful atomic.Int64
		failed     atomic.Int64
		lastReport atomic.Int64
	)

	jobs := make(chan Observation, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for o := range jobs {
				var resp messageResponse
				status, err := c.get(ctx, "/", o.Query(), &resp)
				submitted.Add(1)
				if err != nil || status != http.StatusOK || resp.Error != "" {
					failed.Add(1)
					log.Debug(ctx, "observation rejected",
						logger.String("asin", o.ASIN),
						logger.Int("status", status),
						logger.String("message", resp.Error),
						logger.Error(err),
					)
				} else {
					successful.Add(1)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if cfg.Verbose && now-last >= int64(reportInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int64("submitted", submitted.Load()),
						logger.Int("total", len(obs)),
						logger.Int64("failed", failed.Load()),
					)
				}
			}
		}()
	}

	func() {
		defer close(jobs)
		for _, o := range obs {
			select {
			case <-ctx.Done():
				return
			case jobs <- o:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Successful = int(successful.Load())
	stats.Failed = int(failed.Load())
	log.Info(ctx, "submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
	)
}
