// Package vendors holds the helpers shared by the adapter packages
// beneath it.
package vendors

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// DefaultWorkers bounds per-region API fan-out inside a stage.
const DefaultWorkers = 8

// DummyZones synthesizes the 1:1 zone per region for providers without an
// availability-zone concept.
func DummyZones(regions []*catalog.Region) []*catalog.Zone {
	zones := make([]*catalog.Zone, 0, len(regions))
	for _, r := range regions {
		zones = append(zones, &catalog.Zone{
			VendorID:     r.VendorID,
			RegionID:     r.RegionID,
			ZoneID:       r.RegionID,
			Name:         r.Name,
			APIReference: r.APIReference,
			DisplayName:  r.DisplayName,
		})
	}
	return zones
}

// ForEach runs fn over items on a bounded worker pool and joins before
// returning, so callers aggregate all results before any database write.
func ForEach[T any](ctx context.Context, items []T, workers int, fn func(ctx context.Context, item T) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		g.Go(func() error { return fn(ctx, item) })
	}
	return g.Wait()
}
