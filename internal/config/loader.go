package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables consulted outside the ASINRANK_ namespace.
const (
	envPrefix     = "ASINRANK_"
	envConfigFile = "ASINRANK_CONFIG"
	envDotEnvFile = "ASINRANK_ENV_FILE"

	// Names used by earlier deployments of the service.
	legacyAPIKey      = "API_KEY"
	legacyDatabaseURL = "DATABASE_URL"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ASINRANK_CONFIG is set
//  3. env (prefix ASINRANK_), after a .env file has been merged into the process env
//
// API_KEY and DATABASE_URL fill api_key and database_url when nothing else set them.
func Load(_ context.Context) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ASINRANK_DATABASE_URL -> database_url. Underscores are kept to match koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if !k.Exists("api_key") {
		cfg.APIKey = os.Getenv(legacyAPIKey)
	}
	if !k.Exists("database_url") {
		if v := os.Getenv(legacyDatabaseURL); v != "" {
			cfg.DatabaseURL = v
		}
	}
	cfg.DatabaseBackend = strings.ToLower(strings.TrimSpace(cfg.DatabaseBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv merges a .env file into the process environment without
// overriding variables that are already set. A missing default file is fine.
func loadDotEnv() error {
	path := os.Getenv(envDotEnvFile)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
