package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/skucrawler/skucrawler/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildRunnersIncludedVendorWithoutCredentials(t *testing.T) {
	t.Setenv("HCLOUD_TOKEN", "")

	cfg := config.DefaultConfig()
	cfg.IncludeVendors = []string{"hcloud"}

	_, err := buildRunners(context.Background(), cfg, testLogger())
	if err == nil {
		t.Fatal("included vendor without credentials accepted")
	}
	if !strings.Contains(err.Error(), "hcloud") {
		t.Errorf("error does not name the vendor: %v", err)
	}
}

func TestBuildRunnersSkipsUnreadyByDefault(t *testing.T) {
	t.Setenv("HCLOUD_TOKEN", "test-token")
	t.Setenv("UPCLOUD_USERNAME", "")
	t.Setenv("UPCLOUD_PASSWORD", "")

	cfg := config.DefaultConfig()
	cfg.ExcludeVendors = []string{"aws", "azure", "gcp", "ovh", "alibaba"}

	runners, err := buildRunners(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("buildRunners: %v", err)
	}
	if len(runners) != 1 || runners[0].Vendor.VendorID != "hcloud" {
		t.Errorf("runners = %+v, want hcloud only", runners)
	}
}
