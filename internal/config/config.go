// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New() returns a Config populated with defaults.
//   - Load layers a YAML file and environment variables on top of the defaults.
//   - Validation failures wrap ErrInvalidConfig so callers can use errors.Is.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported database backends.
const (
	BackendSQLite   = "sqlite"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
)

// DefaultChartAssetsURL points at the ECharts build published by go-echarts.
const DefaultChartAssetsURL = "https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// APIKey is the static secret every request must present in the Api-Key header.
	APIKey string `koanf:"api_key"`

	// DatabaseBackend selects the SQL driver: sqlite, mysql or postgres.
	DatabaseBackend string `koanf:"database_backend"`

	// DatabaseURL is the driver-specific connection string (a file path for sqlite).
	DatabaseURL string `koanf:"database_url"`

	// DatabaseMaxOpenConns caps the MySQL/PostgreSQL pool. SQLite always uses one connection.
	DatabaseMaxOpenConns int `koanf:"database_max_open_conns"`

	// DatabaseConnMaxLifetime bounds how long a pooled connection is reused, e.g. "30m".
	DatabaseConnMaxLifetime time.Duration `koanf:"database_conn_max_lifetime"`

	// DatabaseSkipMigrations opens the store without applying the embedded schema.
	DatabaseSkipMigrations bool `koanf:"database_skip_migrations"`

	// ChartAssetsURL is prepended to chart fragments as a script tag. Empty disables it.
	ChartAssetsURL string `koanf:"chart_assets_url"`

	// ChartTitleMaxLen caps chart titles in characters.
	ChartTitleMaxLen int `koanf:"chart_title_max_len"`

	// ChartWidth and ChartHeight size the chart container, as CSS lengths.
	ChartWidth  string `koanf:"chart_width"`
	ChartHeight string `koanf:"chart_height"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":5000",
		DatabaseBackend:  BackendSQLite,
		DatabaseURL:      "asinrank.db",
		ChartAssetsURL:   DefaultChartAssetsURL,
		ChartTitleMaxLen: 75,
		ChartWidth:       "900px",
		ChartHeight:      "500px",

		DatabaseMaxOpenConns:    10,
		DatabaseConnMaxLifetime: 30 * time.Minute,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.APIKey == "":
		return fmt.Errorf("%w: api_key must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DatabaseURL) == "":
		return fmt.Errorf("%w: database_url must not be empty", ErrInvalidConfig)
	case c.ChartTitleMaxLen <= 0:
		return fmt.Errorf("%w: chart_title_max_len must be positive", ErrInvalidConfig)
	case c.DatabaseMaxOpenConns <= 0:
		return fmt.Errorf("%w: database_max_open_conns must be positive", ErrInvalidConfig)
	case c.DatabaseConnMaxLifetime <= 0:
		return fmt.Errorf("%w: database_conn_max_lifetime must be positive", ErrInvalidConfig)
	}
	switch c.DatabaseBackend {
	case BackendSQLite, BackendMySQL, BackendPostgres:
	default:
		return fmt.Errorf("%w: unsupported database_backend %q", ErrInvalidConfig, c.DatabaseBackend)
	}
	return nil
}
