// Package config holds the crawler configuration, loadable from a YAML
// file and overridable by CLI flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for skucrawler.
type Config struct {
	ConnectionString string   `yaml:"connectionString"` // e.g. "sqlite://skucrawler.db"
	IncludeVendors   []string `yaml:"includeVendors"`   // empty means all registered vendors
	ExcludeVendors   []string `yaml:"excludeVendors"`
	LogLevel         string   `yaml:"logLevel"` // "DEBUG", "INFO", "WARN", "ERROR"
	SCD              bool     `yaml:"scd"`      // duplicate writes into the _scd history tables
	MetricsAddr      string   `yaml:"metricsAddr"`
	Schedule         string   `yaml:"schedule"` // cron expression; empty runs a single pull

	Cache     CacheConfig     `yaml:"cache"`
	Inspector InspectorConfig `yaml:"inspector"`
}

// CacheConfig tunes the per-adapter provider-API response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// InspectorConfig points at the external hardware/benchmark dataset.
type InspectorConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// DefaultInspectorURL is the public archive of hardware probes and
// micro-benchmark outputs keyed by (vendor_id, server api_reference).
const DefaultInspectorURL = "https://github.com/sparecores/sc-inspector-data/archive/refs/heads/main.tar.gz"

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		ConnectionString: "sqlite://skucrawler.db",
		LogLevel:         "INFO",
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Inspector: InspectorConfig{
			Enabled: true,
			URL:     DefaultInspectorURL,
		},
	}
}

// LoadFromFile reads a YAML config, applying defaults for absent fields.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for fatal mistakes before any vendor
// is constructed.
func (c *Config) Validate() error {
	if c.ConnectionString == "" {
		return fmt.Errorf("connectionString is required")
	}
	if !strings.Contains(c.ConnectionString, "://") {
		return fmt.Errorf("connectionString %q is not a URL: expected scheme://...", c.ConnectionString)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "", "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("unknown logLevel %q", c.LogLevel)
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when the cache is enabled")
	}
	if c.Inspector.Enabled && c.Inspector.URL == "" {
		return fmt.Errorf("inspector.url is required when the inspector is enabled")
	}
	for _, v := range c.IncludeVendors {
		for _, x := range c.ExcludeVendors {
			if v == x {
				return fmt.Errorf("vendor %q is both included and excluded", v)
			}
		}
	}
	return nil
}

// SelectedVendors applies the include/exclude lists to the registered
// vendor ids, preserving registration order.
func (c *Config) SelectedVendors(registered []string) []string {
	included := func(id string) bool {
		if len(c.IncludeVendors) == 0 {
			return true
		}
		for _, v := range c.IncludeVendors {
			if v == id {
				return true
			}
		}
		return false
	}
	excluded := func(id string) bool {
		for _, v := range c.ExcludeVendors {
			if v == id {
				return true
			}
		}
		return false
	}
	var out []string
	for _, id := range registered {
		if included(id) && !excluded(id) {
			out = append(out, id)
		}
	}
	return out
}
