// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	repository "github.com/okian/asinrank/internal/adapters/repository"
	"github.com/okian/asinrank/internal/config"
	"github.com/okian/asinrank/internal/domain/charting"
	"github.com/okian/asinrank/internal/domain/model"
	"github.com/okian/asinrank/internal/domain/types"
	"github.com/okian/asinrank/pkg/logger"
	"github.com/okian/asinrank/pkg/metrics"
)

// ErrNotStarted is returned by operations invoked before Start.
var ErrNotStarted = errors.New("service not started")

// Renderer turns one category series into an HTML fragment.
type Renderer interface {
	Render(s charting.Series) (string, error)
}

// Service records rank observations and reports them as charts.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	renderer Renderer

	// Configuration
	backend     string
	dsn         string
	storeOpts   []repository.Option
	titleMaxLen int
	assetsURL   string
	chartWidth  string
	chartHeight string
	now         func() time.Time

	// State
	started   bool
	ownsStore bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDatabase selects the backend Start opens when no store was injected.
func WithDatabase(backend, dsn string) Option {
	return func(s *Service) {
		if backend != "" {
			s.backend = backend
		}
		s.dsn = dsn
	}
}

// WithStoreOptions tunes the store Start opens, such as its connection pool.
func WithStoreOptions(opts ...repository.Option) Option {
	return func(s *Service) {
		s.storeOpts = append(s.storeOpts, opts...)
	}
}

// WithStore injects an already opened store. The caller keeps ownership.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRenderer replaces the chart renderer.
func WithRenderer(r Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithTitleMaxLen caps chart titles.
func WithTitleMaxLen(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.titleMaxLen = n
		}
	}
}

// WithChartAssetsURL sets the charting script referenced by rendered fragments.
func WithChartAssetsURL(url string) Option {
	return func(s *Service) { s.assetsURL = url }
}

// WithChartSize sets the CSS width and height of rendered charts.
func WithChartSize(width, height string) Option {
	return func(s *Service) {
		s.chartWidth = width
		s.chartHeight = height
	}
}

// WithClock overrides the source of observation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backend:     config.BackendSQLite,
		dsn:         "asinrank.db",
		titleMaxLen: charting.DefaultTitleMaxLen,
		assetsURL:   config.DefaultChartAssetsURL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store (unless one was injected) and prepares the renderer.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.store == nil {
		opts := append([]repository.Option{repository.WithLogger(s.logger.Named("repository"))}, s.storeOpts...)
		store, err := repository.Open(ctx, s.backend, s.dsn, opts...)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.backend = store.Backend()
		s.ownsStore = true
	}
	if s.renderer == nil {
		s.renderer = charting.NewRenderer(
			charting.WithAssetsURL(s.assetsURL),
			charting.WithSize(s.chartWidth, s.chartHeight),
		)
	}

	s.started = true
	s.logger.Info(ctx, "asinrank service started",
		logger.String("backend", s.backend),
		logger.Bool("injectedStore", !s.ownsStore),
		logger.Int("titleMaxLen", s.titleMaxLen),
	)
	return nil
}

// Stop closes the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "failed to close store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}
	s.started = false
	s.logger.Info(ctx, "asinrank service stopped")
}

func (s *Service) components() (repository.Store, Renderer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.renderer, nil
}

// Ingest stamps obs with the receipt time and appends it unconditionally.
func (s *Service) Ingest(ctx context.Context, obs model.RankObservation) (model.RankObservation, error) {
	store, _, err := s.components()
	if err != nil {
		return model.RankObservation{}, err
	}
	obs.ID = 0
	obs.Timestamp = s.now().UTC()

	stored, err := store.Append(ctx, obs)
	if err != nil {
		return model.RankObservation{}, err
	}
	metrics.RecordObservationIngested()
	return stored, nil
}

// Charts renders one chart per category slot that has data for asin. A
// single populated slot is always returned as Chart1.
func (s *Service) Charts(ctx context.Context, asin string) (types.ChartsResponse, error) {
	store, renderer, err := s.components()
	if err != nil {
		return types.ChartsResponse{}, err
	}

	rows, err := store.ListByASIN(ctx, asin)
	if err != nil {
		return types.ChartsResponse{}, err
	}
	series := charting.BuildSeries(asin, rows, s.titleMaxLen)
	if len(series) == 0 {
		return types.ChartsResponse{Message: types.MessageNoCategoryData}, nil
	}

	charts := make([]string, len(series))
	for i, sr := range series {
		html, err := renderer.Render(sr)
		if err != nil {
			return types.ChartsResponse{}, fmt.Errorf("render %s: %w", sr.Slot, err)
		}
		charts[i] = html
		metrics.RecordChartRendered(sr.Slot.String())
	}

	s.logger.Debug(ctx, "charts rendered",
		logger.String("asin", asin),
		logger.Int("rows", len(rows)),
		logger.Int("charts", len(charts)),
	)

	resp := types.ChartsResponse{Chart1: charts[0]}
	if len(charts) > 1 {
		resp.Chart2 = charts[1]
	}
	return resp, nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	store, _, err := s.components()
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started": s.started,
		"backend": s.backend,
	}
	if s.started {
		if n, err := s.store.Count(ctx); err == nil {
			stats["observations"] = n
		}
	}
	return stats
}
