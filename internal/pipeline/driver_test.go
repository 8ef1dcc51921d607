package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/skucrawler/skucrawler/internal/progress"
	"github.com/skucrawler/skucrawler/internal/store"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// stubAdapter serves a small fixed inventory, optionally failing the
// region stage.
type stubAdapter struct {
	id          string
	regions     []*catalog.Region
	failRegions bool
}

func stubRegion(vendorID, id string) *catalog.Region {
	return &catalog.Region{
		VendorID: vendorID, RegionID: id, Name: id,
		APIReference: id, DisplayName: id, CountryID: "US",
	}
}

func newStubAdapter(vendorID string) *stubAdapter {
	return &stubAdapter{
		id:      vendorID,
		regions: []*catalog.Region{stubRegion(vendorID, "r1"), stubRegion(vendorID, "r2")},
	}
}

func (a *stubAdapter) VendorID() string { return a.id }

func (a *stubAdapter) InventoryComplianceFrameworks(ctx context.Context, v *catalog.VendorView) ([]*catalog.VendorComplianceLink, error) {
	return []*catalog.VendorComplianceLink{{VendorID: a.id, ComplianceFrameworkID: "iso27001"}}, nil
}

func (a *stubAdapter) InventoryRegions(ctx context.Context, v *catalog.VendorView) ([]*catalog.Region, error) {
	if a.failRegions {
		return nil, fmt.Errorf("api unreachable")
	}
	return a.regions, nil
}

func (a *stubAdapter) InventoryZones(ctx context.Context, v *catalog.VendorView) ([]*catalog.Zone, error) {
	zones := make([]*catalog.Zone, 0, len(v.Regions))
	for _, r := range v.Regions {
		if r.Status == catalog.StatusInactive {
			continue
		}
		zones = append(zones, &catalog.Zone{
			VendorID: a.id, RegionID: r.RegionID, ZoneID: r.RegionID + "-a",
			Name: r.RegionID + "-a", APIReference: r.RegionID + "-a", DisplayName: r.RegionID + "-a",
		})
	}
	return zones, nil
}

func (a *stubAdapter) InventoryServers(ctx context.Context, v *catalog.VendorView) ([]*catalog.Server, error) {
	return []*catalog.Server{{
		VendorID: a.id, ServerID: "small", Name: "small",
		APIReference: "small", DisplayName: "small",
		VCpus: 2, MemoryAmount: 4096,
		CPUAllocation: catalog.CPUAllocationShared, CPUArchitecture: catalog.ArchX8664,
	}}, nil
}

func (a *stubAdapter) price(regionID string, alloc catalog.Allocation, price float64) *catalog.ServerPrice {
	return &catalog.ServerPrice{
		VendorID: a.id, RegionID: regionID, ZoneID: regionID + "-a",
		ServerID: "small", Allocation: alloc, OperatingSystem: "Linux",
		Unit: catalog.UnitHour, Price: price, Currency: "USD",
	}
}

func (a *stubAdapter) InventoryServerPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	var prices []*catalog.ServerPrice
	for _, r := range v.Regions {
		if r.Status == catalog.StatusInactive {
			continue
		}
		prices = append(prices, a.price(r.RegionID, catalog.AllocationOnDemand, 0.05))
	}
	return prices, nil
}

func (a *stubAdapter) InventoryServerPricesSpot(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	var prices []*catalog.ServerPrice
	for _, r := range v.Regions {
		if r.Status == catalog.StatusInactive {
			continue
		}
		prices = append(prices, a.price(r.RegionID, catalog.AllocationSpot, 0.01))
	}
	return prices, nil
}

func (a *stubAdapter) InventoryStorages(ctx context.Context, v *catalog.VendorView) ([]*catalog.Storage, error) {
	return []*catalog.Storage{{
		VendorID: a.id, StorageID: "block", Name: "block", StorageType: catalog.StorageNetwork,
	}}, nil
}

func (a *stubAdapter) InventoryStoragePrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.StoragePrice, error) {
	var prices []*catalog.StoragePrice
	for _, r := range v.Regions {
		if r.Status == catalog.StatusInactive {
			continue
		}
		prices = append(prices, &catalog.StoragePrice{
			VendorID: a.id, RegionID: r.RegionID, StorageID: "block",
			Unit: catalog.UnitGBMonth, Price: 0.08, Currency: "USD",
		})
	}
	return prices, nil
}

func (a *stubAdapter) InventoryTrafficPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.TrafficPrice, error) {
	return nil, nil
}

func (a *stubAdapter) InventoryIpv4Prices(ctx context.Context, v *catalog.VendorView) ([]*catalog.Ipv4Price, error) {
	return nil, nil
}

func testDriver(t *testing.T) *Driver {
	t.Helper()
	s, err := store.Open("sqlite://:memory:", store.Options{SCD: true})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return &Driver{Store: s, Log: testLogger()}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRunner(t *testing.T, vendorID string, adapter catalog.Adapter) *VendorRunner {
	t.Helper()
	r, err := NewRunner(vendorID, adapter, progress.New(nil), testLogger())
	if err != nil {
		t.Fatalf("building runner: %v", err)
	}
	return r
}

func TestDriverRunPersistsInventory(t *testing.T) {
	d := testDriver(t)
	adapter := newStubAdapter("aws")
	if err := d.Run(context.Background(), []*VendorRunner{testRunner(t, "aws", adapter)}); err != nil {
		t.Fatalf("running driver: %v", err)
	}

	counts := map[string]int{
		"vendor_compliance_link": 1,
		"region":                 2,
		"zone":                   2,
		"server":                 1,
		"server_price":           4, // 2 regions x (ondemand + spot)
		"storage":                1,
		"storage_price":          2,
	}
	for table, want := range counts {
		got, err := d.Store.CountRows(table)
		if err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if got != want {
			t.Errorf("%s rows = %d, want %d", table, got, want)
		}
	}
}

func TestDriverSecondPullTombstonesMissing(t *testing.T) {
	d := testDriver(t)
	adapter := newStubAdapter("aws")
	runners := []*VendorRunner{testRunner(t, "aws", adapter)}
	if err := d.Run(context.Background(), runners); err != nil {
		t.Fatalf("first pull: %v", err)
	}

	// r2 disappears from the provider's API.
	adapter.regions = adapter.regions[:1]
	if err := d.Run(context.Background(), runners); err != nil {
		t.Fatalf("second pull: %v", err)
	}

	regions, err := store.Query[catalog.Region](context.Background(), d.Store, "vendor_id = ?", "aws")
	if err != nil {
		t.Fatalf("querying regions: %v", err)
	}
	status := map[string]catalog.Status{}
	for _, r := range regions {
		status[r.RegionID] = r.Status
	}
	if status["r1"] != catalog.StatusActive || status["r2"] != catalog.StatusInactive {
		t.Errorf("region statuses after shrink: %v", status)
	}

	// The tombstoned region's dependent rows are tombstoned by their own
	// stages, not deleted.
	prices, err := store.Query[catalog.ServerPrice](context.Background(), d.Store, "region_id = ?", "r2")
	if err != nil {
		t.Fatalf("querying prices: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("r2 price rows = %d, want 2", len(prices))
	}
	for _, p := range prices {
		if p.Status != catalog.StatusInactive {
			t.Errorf("r2 price %s still %s", p.Allocation, p.Status)
		}
	}
}

func TestDriverPartialFailure(t *testing.T) {
	d := testDriver(t)
	healthy := newStubAdapter("aws")
	broken := newStubAdapter("gcp")
	broken.failRegions = true

	runners := []*VendorRunner{
		testRunner(t, "aws", healthy),
		testRunner(t, "gcp", broken),
	}
	if err := d.Run(context.Background(), runners); err != nil {
		t.Errorf("partial failure should not error: %v", err)
	}

	if n, _ := d.Store.CountRows("region"); n != 2 {
		t.Errorf("healthy vendor regions = %d, want 2", n)
	}
}

func TestDriverAllVendorsFailed(t *testing.T) {
	d := testDriver(t)
	broken := newStubAdapter("aws")
	broken.failRegions = true

	err := d.Run(context.Background(), []*VendorRunner{testRunner(t, "aws", broken)})
	if err == nil {
		t.Fatal("all vendors failing should error")
	}
}

func TestDriverCancellationBetweenStages(t *testing.T) {
	d := testDriver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx, []*VendorRunner{testRunner(t, "aws", newStubAdapter("aws"))})
	if err == nil {
		t.Fatal("cancelled context should abort the run")
	}
}

func TestNewRunnerRejectsUnknownVendor(t *testing.T) {
	if _, err := NewRunner("digitalocean", newStubAdapter("digitalocean"), progress.New(nil), testLogger()); err == nil {
		t.Error("unknown vendor accepted")
	}
	if _, err := NewRunner("aws", newStubAdapter("gcp"), progress.New(nil), testLogger()); err == nil {
		t.Error("vendor/adapter mismatch accepted")
	}
}

// stubEnricher records hydration calls and emits one score per server.
type stubEnricher struct{}

func (stubEnricher) Benchmarks() []*catalog.Benchmark {
	return []*catalog.Benchmark{{
		BenchmarkID: "bogomips", Name: "BogoMIPS", Framework: "lscpu", HigherIsBetter: true,
	}}
}

func (stubEnricher) HydrateServer(v *catalog.VendorView, srv *catalog.Server) {
	srv.CPUManufacturer = ptr("Intel")
}

func (stubEnricher) HarvestBenchmarks(v *catalog.VendorView, servers []*catalog.Server) []*catalog.BenchmarkScore {
	var scores []*catalog.BenchmarkScore
	for _, srv := range servers {
		scores = append(scores, &catalog.BenchmarkScore{
			VendorID: srv.VendorID, ServerID: srv.ServerID,
			BenchmarkID: "bogomips", Config: map[string]any{}, Score: 4800,
		})
	}
	return scores
}

func ptr[T any](v T) *T { return &v }

func TestDriverEnrichment(t *testing.T) {
	d := testDriver(t)
	d.Enricher = stubEnricher{}

	if err := d.Run(context.Background(), []*VendorRunner{testRunner(t, "aws", newStubAdapter("aws"))}); err != nil {
		t.Fatalf("running driver: %v", err)
	}

	servers, err := store.Query[catalog.Server](context.Background(), d.Store, "vendor_id = ?", "aws")
	if err != nil {
		t.Fatalf("querying servers: %v", err)
	}
	if len(servers) != 1 || servers[0].CPUManufacturer == nil || *servers[0].CPUManufacturer != "Intel" {
		t.Errorf("server not hydrated: %+v", servers)
	}

	if n, _ := d.Store.CountRows("benchmark"); n != 1 {
		t.Errorf("benchmark rows = %d, want 1", n)
	}
	scores, err := store.Query[catalog.BenchmarkScore](context.Background(), d.Store, "vendor_id = ?", "aws")
	if err != nil {
		t.Fatalf("querying scores: %v", err)
	}
	if len(scores) != 1 || scores[0].Score != 4800 {
		t.Errorf("scores = %+v, want one bogomips row", scores)
	}
}
