package catalog

import (
	"context"
	"log/slog"
)

// TaskTracker is the progress surface adapters report to. Implementations
// must tolerate concurrent AdvanceTask calls: adapters fan out per-region
// lookups to worker goroutines.
type TaskTracker interface {
	StartTask(name string, total int) int
	AdvanceTask(id int, by int)
	HideTask(id int)
}

// VendorView is what an adapter sees of the runtime: the vendor record,
// a logger and tracker, and the regions/servers already committed by
// earlier pipeline stages. Adapters never touch the database session.
type VendorView struct {
	Vendor  *Vendor
	Log     *slog.Logger
	Tracker TaskTracker

	// Regions and Servers are hydrated by the pipeline from the database
	// before the stages that need them (prices depend on both).
	Regions []*Region
	Servers []*Server
}

// Region looks up a previously loaded region by id.
func (v *VendorView) Region(regionID string) (*Region, bool) {
	for _, r := range v.Regions {
		if r.RegionID == regionID {
			return r, true
		}
	}
	return nil, false
}

// Server looks up a previously loaded server by id.
func (v *VendorView) Server(serverID string) (*Server, bool) {
	for _, s := range v.Servers {
		if s.ServerID == serverID {
			return s, true
		}
	}
	return nil, false
}

// Adapter is the full inventory surface a vendor integration implements.
// All methods are pure pulls: they call the provider's APIs and return
// normalized rows; persistence is the pipeline's job. A provider that
// does not publish a price class returns an empty list, which is a valid
// pull (the stage still tombstones stale rows).
type Adapter interface {
	VendorID() string

	InventoryComplianceFrameworks(ctx context.Context, v *VendorView) ([]*VendorComplianceLink, error)
	InventoryRegions(ctx context.Context, v *VendorView) ([]*Region, error)
	InventoryZones(ctx context.Context, v *VendorView) ([]*Zone, error)
	InventoryServers(ctx context.Context, v *VendorView) ([]*Server, error)
	InventoryServerPrices(ctx context.Context, v *VendorView) ([]*ServerPrice, error)
	InventoryServerPricesSpot(ctx context.Context, v *VendorView) ([]*ServerPrice, error)
	InventoryStorages(ctx context.Context, v *VendorView) ([]*Storage, error)
	InventoryStoragePrices(ctx context.Context, v *VendorView) ([]*StoragePrice, error)
	InventoryTrafficPrices(ctx context.Context, v *VendorView) ([]*TrafficPrice, error)
	InventoryIpv4Prices(ctx context.Context, v *VendorView) ([]*Ipv4Price, error)
}
