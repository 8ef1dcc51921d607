package pipeline

import (
	"context"

	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// stage is one step of the inventory protocol. Order is load-bearing:
// later stages resolve foreign keys against rows committed by earlier
// ones.
type stage struct {
	name  string
	table *catalog.Table

	// predicate scopes MarkInactive beyond the vendor id; the spot stage
	// must not touch ondemand/reserved rows and vice versa.
	predicate string
	predArgs  []any

	// hydration needed by the adapter before the pull.
	needRegions bool
	needServers bool

	// servers is the enrichment hook point: the inspector hydrates the
	// pulled rows and harvests benchmark scores inside this stage.
	servers bool

	pull func(ctx context.Context, a catalog.Adapter, v *catalog.VendorView) ([]catalog.Record, error)
}

// asRecords lifts a typed adapter result into the generic record slice
// the store operates on.
func asRecords[T catalog.Record](rows []T, err error) ([]catalog.Record, error) {
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

func stages() []stage {
	return []stage{
		{
			name:  "compliance_frameworks",
			table: catalog.TableVendorComplianceLink,
			pull: func(ctx context.Context, a catalog.Adapter, v *catalog.VendorView) ([]catalog.Record, error) {
				return asRecords(a.InventoryComplianceFrameworks(ctx, v))
			},
		},
		{
			name:  "regions",
			table: catalog.TableRegion,
			pull: func(ctx context.Context, a catalog.Adapter, v *catalog.VendorView) ([]catalog.Record, error) {
				return asRecords(a.InventoryRegions(ctx, v))
			},
		},
		{
			name:        "zones",
			table:       catalog.TableZone,
			needRegions: true,
			pull: func(ctx context.Context, a catalog.Adapter, v *catalog.VendorView) ([]catalog.Record, error) {
				return asRecords(a.InventoryZones(ctx, v))
			},
		},
		{
			name:        "servers",
			table:       catalog.TableServer,
			needRegions: true,
			servers:     true,
			pull: func(ctx context.Context, a catalog.Adapter, v *catalog.VendorView) ([]catalog.Record, error) {
				return asRecords(a.InventoryServers(ctx, v))
			},
		},
		{
			name:        "server_prices",
			table:       catalog.TableServerPrice,
			predicate:   "allocation != ?",
			predArgs:    []any{string(catalog.AllocationSpot)},
			needRegions: true,
			needServers: true,
			pull: func(ctx context.Context, a catalog.Adapter, v *catalog.VendorView) ([]catalog.Record, error) {
				return asRecords(a.InventoryServerPrices(ctx, v))
			},
		},
		{
			name:        "server_prices_spot",
			table:       catalog.TableServerPrice,
			predicate:   "allocation = ?",
			predArgs:    []any{string(catalog.AllocationSpot)},
			needRegions: true,
			needServers: true,
			pull: func(ctx context.Context, a catalog.Adapter, v *catalog.VendorView) ([]catalog.Record, error) {
				return asRecords(a.InventoryServerPricesSpot(ctx, v))
			},
		},
		{
			name:  "storages",
			table: catalog.TableStorage,
			pull: func(ctx context.Context, a catalog.Adapter, v *catalog.VendorView) ([]catalog.Record, error) {
				return asRecords(a.InventoryStorages(ctx, v))
			},
		},
		{
			name:        "storage_prices",
			table:       catalog.TableStoragePrice,
			needRegions: true,
			pull: func(ctx context.Context, a catalog.Adapter, v *catalog.VendorView) ([]catalog.Record, error) {
				return asRecords(a.InventoryStoragePrices(ctx, v))
			},
		},
		{
			name:        "traffic_prices",
			table:       catalog.TableTrafficPrice,
			needRegions: true,
			pull: func(ctx context.Context, a catalog.Adapter, v *catalog.VendorView) ([]catalog.Record, error) {
				return asRecords(a.InventoryTrafficPrices(ctx, v))
			},
		},
		{
			name:        "ipv4_prices",
			table:       catalog.TableIpv4Price,
			needRegions: true,
			pull: func(ctx context.Context, a catalog.Adapter, v *catalog.VendorView) ([]catalog.Record, error) {
				return asRecords(a.InventoryIpv4Prices(ctx, v))
			},
		},
	}
}
