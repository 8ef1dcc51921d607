// Command skucrawler pulls cloud compute inventory (regions, zones,
// servers, storages and prices) from the registered vendors into a
// SQL database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/skucrawler/skucrawler/internal/config"
	"github.com/skucrawler/skucrawler/internal/inspector"
	"github.com/skucrawler/skucrawler/internal/metrics"
	"github.com/skucrawler/skucrawler/internal/pipeline"
	"github.com/skucrawler/skucrawler/internal/progress"
	"github.com/skucrawler/skucrawler/internal/store"
	"github.com/skucrawler/skucrawler/internal/vendors/httpx"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "skucrawler",
		Short:         "Multi-cloud compute inventory crawler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(schemaCmd(), pullCmd(), hashCmd(), vendorsCmd())
	return root
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <dialect>",
		Short: "Print the DDL for a dialect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dialect, err := store.ParseDialect(args[0])
			if err != nil {
				return err
			}
			for _, stmt := range store.CreateStatements(dialect, false) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", stmt)
			}
			return nil
		},
	}
}

func hashCmd() *cobra.Command {
	var connectionString string
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print a content hash of the database, ignoring observation timestamps",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(connectionString, store.Options{})
			if err != nil {
				return err
			}
			defer s.Close()
			hash, err := s.HashDatabase([]string{"observed_at"})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&connectionString, "connection-string", "sqlite://skucrawler.db", "database connection URL")
	return cmd
}

func vendorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List registered vendors and whether their credentials resolve",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := httpx.New(httpx.Options{})
			for _, id := range pipeline.Registered() {
				if _, err := pipeline.NewAdapter(cmd.Context(), id, client); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tnot ready: %s\n", id, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tready\n", id)
			}
			return nil
		},
	}
}

func pullCmd() *cobra.Command {
	var (
		configFile       string
		connectionString string
		includeVendors   []string
		excludeVendors   []string
		logLevel         string
		cacheEnabled     bool
		cacheTTL         time.Duration
		scd              bool
		schedule         string
		metricsAddr      string
	)

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull the inventory of the selected vendors into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if configFile != "" {
				var err error
				if cfg, err = config.LoadFromFile(configFile); err != nil {
					return err
				}
			}
			flags := cmd.Flags()
			if flags.Changed("connection-string") {
				cfg.ConnectionString = connectionString
			}
			if flags.Changed("include-vendor") {
				cfg.IncludeVendors = includeVendors
			}
			if flags.Changed("exclude-vendor") {
				cfg.ExcludeVendors = excludeVendors
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("cache") {
				cfg.Cache.Enabled = cacheEnabled
			}
			if flags.Changed("cache-ttl") {
				cfg.Cache.TTL = cacheTTL
			}
			if flags.Changed("scd") {
				cfg.SCD = scd
			}
			if flags.Changed("schedule") {
				cfg.Schedule = schedule
			}
			if flags.Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runPull(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&connectionString, "connection-string", "sqlite://skucrawler.db", "database connection URL")
	cmd.Flags().StringSliceVar(&includeVendors, "include-vendor", nil, "vendor ids to pull (default all)")
	cmd.Flags().StringSliceVar(&excludeVendors, "exclude-vendor", nil, "vendor ids to skip")
	cmd.Flags().StringVar(&logLevel, "log-level", "INFO", "DEBUG, INFO, WARN or ERROR")
	cmd.Flags().BoolVar(&cacheEnabled, "cache", true, "cache provider API responses")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 24*time.Hour, "provider API cache TTL")
	cmd.Flags().BoolVar(&scd, "scd", false, "also append every write to the _scd history tables")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression for repeated pulls")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on")
	return cmd
}

func runPull(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(cfg.ConnectionString, store.Options{SCD: cfg.SCD, Log: log})
	if err != nil {
		return err
	}
	defer s.Close()

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			log.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil {
				log.Warn("metrics server stopped", "error", err)
			}
		}()
		defer metrics.Shutdown(srv)
	}

	driver := &pipeline.Driver{Store: s, Log: log}
	if cfg.Inspector.Enabled {
		dataset, err := inspector.Fetch(ctx, cfg.Inspector.URL, log)
		if err != nil {
			return fmt.Errorf("fetching inspector dataset: %w", err)
		}
		defer dataset.Close()
		driver.Enricher = dataset
	}

	runners, err := buildRunners(ctx, cfg, log)
	if err != nil {
		return err
	}

	if cfg.Schedule == "" {
		return driver.Run(ctx, runners)
	}

	// Scheduled mode: run on the cron expression until interrupted. A
	// failed pull is logged and the next tick retries.
	c := cron.New()
	_, err = c.AddFunc(cfg.Schedule, func() {
		if err := driver.Run(ctx, runners); err != nil {
			log.Error("scheduled pull failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}
	log.Info("scheduler started", "schedule", cfg.Schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// buildRunners constructs an adapter per selected vendor. A vendor named
// by --include-vendor whose credentials do not resolve is a startup
// configuration error; with the default all-vendors selection the vendor
// is skipped with a warning instead. No vendor at all is an error either
// way.
func buildRunners(ctx context.Context, cfg *config.Config, log *slog.Logger) ([]*pipeline.VendorRunner, error) {
	client := httpx.New(httpx.Options{
		CacheEnabled: cfg.Cache.Enabled,
		CacheTTL:     cfg.Cache.TTL,
		Log:          log,
	})
	tracker := progress.New(nil)

	included := make(map[string]bool, len(cfg.IncludeVendors))
	for _, id := range cfg.IncludeVendors {
		included[id] = true
	}

	var runners []*pipeline.VendorRunner
	for _, id := range cfg.SelectedVendors(pipeline.Registered()) {
		adapter, err := pipeline.NewAdapter(ctx, id, client)
		if err != nil {
			if included[id] {
				return nil, fmt.Errorf("vendor %s: %w", id, err)
			}
			log.Warn("skipping vendor", "vendor", id, "error", err)
			continue
		}
		runner, err := pipeline.NewRunner(id, adapter, tracker, log)
		if err != nil {
			return nil, err
		}
		runners = append(runners, runner)
	}
	if len(runners) == 0 {
		return nil, fmt.Errorf("no usable vendors selected")
	}
	return runners, nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		l = slog.LevelDebug
	case "WARN":
		l = slog.LevelWarn
	case "ERROR":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
