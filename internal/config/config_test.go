package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
connectionString: sqlite:///var/lib/skucrawler/db.sqlite
includeVendors: [aws, gcp]
logLevel: DEBUG
scd: true
cache:
  enabled: false
inspector:
  enabled: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if cfg.ConnectionString != "sqlite:///var/lib/skucrawler/db.sqlite" {
		t.Errorf("connectionString = %q", cfg.ConnectionString)
	}
	if diff := cmp.Diff([]string{"aws", "gcp"}, cfg.IncludeVendors); diff != "" {
		t.Errorf("includeVendors (-want +got):\n%s", diff)
	}
	if !cfg.SCD || cfg.Cache.Enabled || cfg.Inspector.Enabled {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// Unset fields keep their defaults.
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("cache TTL default lost: %v", cfg.Cache.TTL)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty connection string", func(c *Config) { c.ConnectionString = "" }, false},
		{"not a url", func(c *Config) { c.ConnectionString = "/tmp/db.sqlite" }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "TRACE" }, false},
		{"cache without ttl", func(c *Config) { c.Cache.TTL = 0 }, false},
		{"inspector without url", func(c *Config) { c.Inspector.URL = "" }, false},
		{"include/exclude conflict", func(c *Config) {
			c.IncludeVendors = []string{"aws"}
			c.ExcludeVendors = []string{"aws"}
		}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			c.mutate(cfg)
			err := cfg.Validate()
			if c.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !c.ok && err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestSelectedVendors(t *testing.T) {
	registered := []string{"aws", "azure", "gcp", "hcloud"}
	cases := []struct {
		name    string
		include []string
		exclude []string
		want    []string
	}{
		{"all by default", nil, nil, registered},
		{"include subset", []string{"gcp", "aws"}, nil, []string{"aws", "gcp"}},
		{"exclude subset", nil, []string{"azure"}, []string{"aws", "gcp", "hcloud"}},
		{"unknown include ignored", []string{"nope"}, nil, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.IncludeVendors = c.include
			cfg.ExcludeVendors = c.exclude
			got := cfg.SelectedVendors(registered)
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("SelectedVendors (-want +got):\n%s", diff)
			}
		})
	}
}
