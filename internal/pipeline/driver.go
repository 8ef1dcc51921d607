package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/skucrawler/skucrawler/internal/metrics"
	"github.com/skucrawler/skucrawler/internal/store"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// Enricher hydrates server rows from hardware probe outputs and harvests
// benchmark scores for them. The inspector dataset implements it; a nil
// Enricher disables enrichment.
type Enricher interface {
	// Benchmarks returns the workload definitions to seed the benchmark
	// table with.
	Benchmarks() []*catalog.Benchmark
	// HydrateServer fills missing hardware fields in place. Missing probe
	// outputs are non-fatal and leave fields untouched.
	HydrateServer(v *catalog.VendorView, srv *catalog.Server)
	// HarvestBenchmarks parses framework outputs for the given servers.
	// Servers without outputs simply contribute no rows.
	HarvestBenchmarks(v *catalog.VendorView, servers []*catalog.Server) []*catalog.BenchmarkScore
}

// Driver runs the inventory pipeline over a set of vendor runners. It is
// the only component that opens database sessions.
type Driver struct {
	Store    *store.Store
	Log      *slog.Logger
	Enricher Enricher
}

// Run seeds the static tables, then pulls each vendor serially. A vendor
// failure is logged and the driver moves on; the returned error is
// non-nil only when every vendor failed, so partial success still exits
// zero with a summary log.
func (d *Driver) Run(ctx context.Context, runners []*VendorRunner) error {
	if err := d.Seed(ctx); err != nil {
		return fmt.Errorf("seeding static tables: %w", err)
	}

	var errs error
	failed := 0
	for _, r := range runners {
		if err := d.RunVendor(ctx, r); err != nil {
			if ctx.Err() != nil {
				return err
			}
			failed++
			errs = multierr.Append(errs, err)
			r.Log.Error("vendor pull failed", "error", err)
			metrics.VendorPulls.WithLabelValues(r.Vendor.VendorID, "failure").Inc()
			continue
		}
		r.Log.Info("vendor pull complete")
		metrics.VendorPulls.WithLabelValues(r.Vendor.VendorID, "success").Inc()
	}

	d.Log.Info("pull finished", "vendors", len(runners), "failed", failed)
	if len(runners) > 0 && failed == len(runners) {
		return fmt.Errorf("all %d vendors failed: %w", failed, errs)
	}
	return nil
}

// Seed upserts the vendor-independent lookup tables: countries,
// compliance frameworks, the declared vendors, and the benchmark
// workload definitions.
func (d *Driver) Seed(ctx context.Context) error {
	sess, err := d.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Rollback()

	if err := upsertAll(sess, catalog.Countries()); err != nil {
		return err
	}
	if err := upsertAll(sess, catalog.ComplianceFrameworks()); err != nil {
		return err
	}
	vendors := catalog.Vendors()
	if err := upsertAll(sess, vendors); err != nil {
		return err
	}
	for _, v := range vendors {
		if err := sess.DuplicateToSCD(catalog.TableVendor, v.VendorID); err != nil {
			return err
		}
	}
	if d.Enricher != nil {
		if err := upsertAll(sess, d.Enricher.Benchmarks()); err != nil {
			return err
		}
	}
	return sess.Commit()
}

func upsertAll[T catalog.Record](sess *store.Session, rows []T) error {
	records, err := asRecords(rows, nil)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := catalog.Validate(r); err != nil {
			return err
		}
	}
	return sess.Upsert(records)
}

// RunVendor executes all stages for one vendor in order. Any stage error
// aborts the remaining stages; committed stages stay committed.
// Cancellation is cooperative: it is checked between stages, never
// mid-stage.
func (d *Driver) RunVendor(ctx context.Context, r *VendorRunner) error {
	view := r.View()
	vendorID := r.Vendor.VendorID

	for _, st := range stages() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if st.needRegions {
			regions, err := d.Store.LoadRegions(ctx, vendorID)
			if err != nil {
				return fmt.Errorf("vendor %s: loading regions: %w", vendorID, err)
			}
			view.Regions = regions
		}
		if st.needServers {
			servers, err := d.Store.LoadServers(ctx, vendorID)
			if err != nil {
				return fmt.Errorf("vendor %s: loading servers: %w", vendorID, err)
			}
			view.Servers = servers
		}

		if err := d.runStage(ctx, r, view, st); err != nil {
			metrics.StageFailures.WithLabelValues(vendorID, st.name).Inc()
			return fmt.Errorf("vendor %s stage %s: %w", vendorID, st.name, err)
		}
	}
	return nil
}

// runStage executes the inventory protocol for one stage: tombstone,
// pull, validate, upsert, SCD duplicate, commit. One stage is one
// transaction.
func (d *Driver) runStage(ctx context.Context, r *VendorRunner, view *catalog.VendorView, st stage) error {
	log := r.Log.With("stage", st.name)
	vendorID := r.Vendor.VendorID
	start := time.Now()

	sess, err := d.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Rollback()

	invalidated, err := sess.MarkInactive(st.table, vendorID, st.predicate, st.predArgs...)
	if err != nil {
		return err
	}

	rows, err := st.pull(ctx, r.Adapter, view)
	if err != nil {
		return fmt.Errorf("inventory pull: %w", err)
	}

	var scores []*catalog.BenchmarkScore
	if st.servers && d.Enricher != nil {
		servers := make([]*catalog.Server, 0, len(rows))
		for _, row := range rows {
			if srv, ok := row.(*catalog.Server); ok {
				d.Enricher.HydrateServer(view, srv)
				servers = append(servers, srv)
			}
		}
		scores = d.Enricher.HarvestBenchmarks(view, servers)
	}

	for _, row := range rows {
		if err := catalog.Validate(row); err != nil {
			log.Error("invalid row", "error", err)
			return err
		}
	}

	if err := sess.Upsert(rows); err != nil {
		return err
	}
	if err := sess.DuplicateToSCD(st.table, vendorID); err != nil {
		return err
	}

	if st.servers && d.Enricher != nil {
		if err := d.writeScores(sess, vendorID, scores); err != nil {
			return err
		}
	}

	if err := sess.Commit(); err != nil {
		return err
	}

	metrics.StageDuration.WithLabelValues(vendorID, st.name).Observe(time.Since(start).Seconds())
	metrics.StageRowsUpserted.WithLabelValues(vendorID, st.name).Add(float64(len(rows)))
	metrics.StageRowsInvalidated.WithLabelValues(vendorID, st.name).Add(float64(invalidated))
	log.Info("stage complete", "rows", len(rows), "invalidated", invalidated, "elapsed", time.Since(start))
	return nil
}

// writeScores persists harvested benchmark scores inside the server
// stage's transaction. Prior scores are tombstoned first; the upsert's
// observed_at guard keeps a re-harvested older run from clobbering a
// newer score.
func (d *Driver) writeScores(sess *store.Session, vendorID string, scores []*catalog.BenchmarkScore) error {
	if _, err := sess.MarkInactive(catalog.TableBenchmarkScore, vendorID, ""); err != nil {
		return err
	}
	if err := upsertAll(sess, scores); err != nil {
		return err
	}
	return sess.DuplicateToSCD(catalog.TableBenchmarkScore, vendorID)
}
