package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/runger/ridebook/internal/booking"
	"github.com/runger/ridebook/internal/pricing"
)

// Config represents the ridebook configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Pricing   PricingConfig   `yaml:"pricing"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Path          string `yaml:"path"`            // SQLite file (empty = data dir default)
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"` // SQLite busy timeout in ms
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (empty = stderr)
}

// LifecycleConfig holds booking lifecycle settings.
type LifecycleConfig struct {
	StrictTransitions bool `yaml:"strict_transitions"` // Only allow the ordered status graph
}

// PricingConfig holds the price formula and fixed routes. Amounts are
// decimal strings so they round-trip through YAML without float error.
type PricingConfig struct {
	BaseRate  string        `yaml:"base_rate"`
	PerKmRate string        `yaml:"per_km_rate"`
	Routes    []RouteConfig `yaml:"routes"`
}

// RouteConfig is one fixed-price route.
type RouteConfig struct {
	Pickup  string `yaml:"pickup"`
	Dropoff string `yaml:"dropoff"`
	Price   string `yaml:"price"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	routes := pricing.DefaultRoutes()
	routeCfgs := make([]RouteConfig, 0, len(routes))
	for _, r := range routes {
		routeCfgs = append(routeCfgs, RouteConfig{
			Pickup:  r.Pickup,
			Dropoff: r.Dropoff,
			Price:   r.Price.StringFixed(2),
		})
	}

	return &Config{
		Database: DatabaseConfig{
			Path:          "", // Use default from paths
			BusyTimeoutMs: 5000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Lifecycle: LifecycleConfig{
			StrictTransitions: true,
		},
		Pricing: PricingConfig{
			BaseRate:  "50.00",
			PerKmRate: "2.00",
			Routes:    routeCfgs,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DatabasePath returns the configured database file, or the data dir
// default when unset.
func (c *Config) DatabasePath(paths *Paths) string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return paths.DatabaseFile()
}

// BookingLifecycle builds the booking lifecycle from config.
func (c *Config) BookingLifecycle() *booking.Lifecycle {
	return &booking.Lifecycle{Strict: c.Lifecycle.StrictTransitions}
}

// Pricer builds the price resolver from config.
func (c *Config) Pricer() (pricing.Pricer, error) {
	base, err := decimal.NewFromString(c.Pricing.BaseRate)
	if err != nil {
		return pricing.Pricer{}, fmt.Errorf("pricing.base_rate: %w", err)
	}
	perKm, err := decimal.NewFromString(c.Pricing.PerKmRate)
	if err != nil {
		return pricing.Pricer{}, fmt.Errorf("pricing.per_km_rate: %w", err)
	}

	routes := make([]pricing.Route, 0, len(c.Pricing.Routes))
	for i, rc := range c.Pricing.Routes {
		price, err := decimal.NewFromString(rc.Price)
		if err != nil {
			return pricing.Pricer{}, fmt.Errorf("pricing.routes[%d].price: %w", i, err)
		}
		routes = append(routes, pricing.Route{Pickup: rc.Pickup, Dropoff: rc.Dropoff, Price: price})
	}
	table, err := pricing.NewRouteTable(routes)
	if err != nil {
		return pricing.Pricer{}, fmt.Errorf("pricing.routes: %w", err)
	}

	return pricing.Pricer{
		Calculator: pricing.Calculator{BaseRate: base, PerKmRate: perKm},
		Routes:     table,
	}, nil
}

// Get retrieves a configuration value by key (e.g., "log.level").
func (c *Config) Get(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "database":
		return c.getDatabaseField(field)
	case "log":
		return c.getLogField(field)
	case "lifecycle":
		return c.getLifecycleField(field)
	case "pricing":
		return c.getPricingField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by key (e.g., "log.level").
func (c *Config) Set(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "database":
		return c.setDatabaseField(field, value)
	case "log":
		return c.setLogField(field, value)
	case "lifecycle":
		return c.setLifecycleField(field, value)
	case "pricing":
		return c.setPricingField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) getDatabaseField(field string) (string, error) {
	switch field {
	case "path":
		return c.Database.Path, nil
	case "busy_timeout_ms":
		return strconv.Itoa(c.Database.BusyTimeoutMs), nil
	default:
		return "", fmt.Errorf("unknown field: database.%s", field)
	}
}

func (c *Config) setDatabaseField(field, value string) error {
	switch field {
	case "path":
		c.Database.Path = value
	case "busy_timeout_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for busy_timeout_ms: %w", err)
		}
		if v < 0 {
			return errors.New("invalid busy_timeout_ms: must be non-negative")
		}
		c.Database.BusyTimeoutMs = v
	default:
		return fmt.Errorf("unknown field: database.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

func (c *Config) getLifecycleField(field string) (string, error) {
	switch field {
	case "strict_transitions":
		return strconv.FormatBool(c.Lifecycle.StrictTransitions), nil
	default:
		return "", fmt.Errorf("unknown field: lifecycle.%s", field)
	}
}

func (c *Config) setLifecycleField(field, value string) error {
	switch field {
	case "strict_transitions":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for strict_transitions: %w", err)
		}
		c.Lifecycle.StrictTransitions = b
	default:
		return fmt.Errorf("unknown field: lifecycle.%s", field)
	}
	return nil
}

func (c *Config) getPricingField(field string) (string, error) {
	switch field {
	case "base_rate":
		return c.Pricing.BaseRate, nil
	case "per_km_rate":
		return c.Pricing.PerKmRate, nil
	default:
		return "", fmt.Errorf("unknown field: pricing.%s", field)
	}
}

func (c *Config) setPricingField(field, value string) error {
	switch field {
	case "base_rate", "per_km_rate":
		d, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", field, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("invalid %s: must be non-negative", field)
		}
		if field == "base_rate" {
			c.Pricing.BaseRate = value
		} else {
			c.Pricing.PerKmRate = value
		}
	default:
		return fmt.Errorf("unknown field: pricing.%s", field)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.BusyTimeoutMs < 0 {
		return errors.New("database.busy_timeout_ms must be >= 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	for _, r := range []struct{ key, value string }{
		{"pricing.base_rate", c.Pricing.BaseRate},
		{"pricing.per_km_rate", c.Pricing.PerKmRate},
	} {
		d, err := decimal.NewFromString(r.value)
		if err != nil {
			return fmt.Errorf("%s must be a decimal (got: %q)", r.key, r.value)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s must be >= 0", r.key)
		}
	}

	if _, err := c.Pricer(); err != nil {
		return err
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RIDEBOOK_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("RIDEBOOK_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("RIDEBOOK_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv("RIDEBOOK_STRICT_TRANSITIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Lifecycle.StrictTransitions = b
		}
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"database.path",
		"database.busy_timeout_ms",
		"log.level",
		"log.file",
		"lifecycle.strict_transitions",
		"pricing.base_rate",
		"pricing.per_km_rate",
	}
}
