// Package config loads registry settings from the environment, optionally
// overlaid by a YAML file named in FUEL_REGISTRY_CONFIG.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	fuel "fuel-registry/internal/fuel/domain"
	"fuel-registry/internal/fuel/query"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var (
	ErrDatabaseURLRequired = errors.New("config: DATABASE_URL or PG_DSN is required")
	ErrJWTSecretRequired   = errors.New("config: AUTH_JWT_SECRET is required")
	ErrUnknownStore        = errors.New("config: unknown store")
)

// Config holds the registry settings.
type Config struct {
	HTTPAddr          string        `yaml:"http_addr"`
	DatabaseURL       string        `yaml:"database_url"`
	Store             string        `yaml:"store"`
	JWTSecret         string        `yaml:"jwt_secret"`
	IngestSecret      string        `yaml:"ingest_secret"`
	IngestSkewSeconds int           `yaml:"ingest_max_skew_seconds"`
	SchemaVariant     string        `yaml:"schema_variant"`
	TrendWindowDays   int           `yaml:"trend_window_days"`
	CurrencyLabel     string        `yaml:"currency_label"`
	PriceUnit         string        `yaml:"price_unit"`
	FuelTypes         []string      `yaml:"fuel_types"`
	StreamBuffer      int           `yaml:"stream_buffer"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	Log               LogConfig     `yaml:"log"`

	Variant fuel.Variant `yaml:"-"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the environment, then the optional YAML file, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		Store:             getenvDefault("STORE", StorePostgres),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
		SchemaVariant:     getenvDefault("SCHEMA_VARIANT", string(fuel.VariantFuelType)),
		TrendWindowDays:   getenvIntDefault("TREND_WINDOW_DAYS", query.DefaultTrendWindowDays),
		CurrencyLabel:     getenvDefault("CURRENCY_LABEL", "Rs."),
		PriceUnit:         getenvDefault("PRICE_UNIT", "/L"),
		FuelTypes:         splitCSV(getenvDefault("FUEL_TYPES", "")),
		StreamBuffer:      getenvIntDefault("STREAM_BUFFER", 8),
		ShutdownTimeout:   getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Log: LogConfig{
			Level:  getenvDefault("LOG_LEVEL", "info"),
			Format: getenvDefault("LOG_FORMAT", "json"),
		},
	}

	if path := os.Getenv("FUEL_REGISTRY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	return cfg, cfg.normalize()
}

func (c *Config) normalize() error {
	variant, err := fuel.ParseVariant(c.SchemaVariant)
	if err != nil {
		return fmt.Errorf("config: schema variant %q: %w", c.SchemaVariant, err)
	}
	c.Variant = variant
	c.SchemaVariant = string(variant)

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.Store)
	}
	if c.TrendWindowDays <= 0 {
		c.TrendWindowDays = query.DefaultTrendWindowDays
	}
	if c.StreamBuffer <= 0 {
		c.StreamBuffer = 8
	}
	c.FuelTypes = dedupe(c.FuelTypes)
	return nil
}

// RequireStore fails when the selected store backend is missing its settings.
func (c Config) RequireStore() error {
	if c.Store == StorePostgres && c.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}
	return nil
}

// RequireJWTSecret fails when the server would run without token verification.
func (c Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return ErrJWTSecretRequired
	}
	return nil
}

// IngestMaxSkew is the accepted clock skew on signed snapshot pushes.
func (c Config) IngestMaxSkew() time.Duration {
	return time.Duration(c.IngestSkewSeconds) * time.Second
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
