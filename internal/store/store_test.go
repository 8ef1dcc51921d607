package store

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/skucrawler/skucrawler/pkg/catalog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite://:memory:", Options{SCD: true})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func upsert(t *testing.T, s *Store, records ...catalog.Record) {
	t.Helper()
	sess, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("beginning session: %v", err)
	}
	defer sess.Rollback()
	if err := sess.Upsert(records); err != nil {
		t.Fatalf("upserting: %v", err)
	}
	if err := sess.Commit(); err != nil {
		t.Fatalf("committing: %v", err)
	}
}

func testRegion(id string) *catalog.Region {
	return &catalog.Region{
		VendorID:     "aws",
		RegionID:     id,
		Name:         id,
		APIReference: id,
		DisplayName:  id,
		CountryID:    "US",
	}
}

// seed writes the FK ancestry every other table hangs off.
func seed(t *testing.T, s *Store) {
	t.Helper()
	upsert(t, s, &catalog.Country{CountryID: "US", Continent: "North America"})
	upsert(t, s, &catalog.Vendor{
		VendorID:     "aws",
		Name:         "Amazon Web Services",
		Homepage:     "https://aws.amazon.com",
		CountryID:    "US",
		FoundingYear: 2002,
	})
	upsert(t, s, testRegion("us-east-1"))
	upsert(t, s, &catalog.Zone{
		VendorID: "aws", RegionID: "us-east-1", ZoneID: "use1-az1",
		Name: "use1-az1", APIReference: "use1-az1", DisplayName: "use1-az1",
	})
	upsert(t, s, &catalog.Server{
		VendorID: "aws", ServerID: "m5.large", Name: "m5.large",
		APIReference: "m5.large", DisplayName: "m5.large",
		VCpus: 2, MemoryAmount: 8192,
		CPUAllocation: catalog.CPUAllocationDedicated, CPUArchitecture: catalog.ArchX8664,
	})
}

func TestUpsertIdempotent(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	before, err := s.HashTables([]string{"observed_at"})
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}

	// Replaying the identical pull only advances timestamps.
	seed(t, s)
	after, err := s.HashTables([]string{"observed_at"})
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("content hash changed on identical re-pull (-before +after):\n%s", diff)
	}
	if n, _ := s.CountRows("region"); n != 1 {
		t.Errorf("region rows = %d, want 1", n)
	}
}

func TestMarkInactiveTombstones(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	upsert(t, s, testRegion("us-west-2"))

	// Next pull sees only us-east-1.
	sess, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("beginning session: %v", err)
	}
	defer sess.Rollback()
	if _, err := sess.MarkInactive(catalog.TableRegion, "aws", ""); err != nil {
		t.Fatalf("marking inactive: %v", err)
	}
	if err := sess.Upsert([]catalog.Record{testRegion("us-east-1")}); err != nil {
		t.Fatalf("upserting: %v", err)
	}
	if err := sess.Commit(); err != nil {
		t.Fatalf("committing: %v", err)
	}

	regions, err := Query[catalog.Region](context.Background(), s, "vendor_id = ?", "aws")
	if err != nil {
		t.Fatalf("querying regions: %v", err)
	}
	status := map[string]catalog.Status{}
	for _, r := range regions {
		status[r.RegionID] = r.Status
	}
	want := map[string]catalog.Status{
		"us-east-1": catalog.StatusActive,
		"us-west-2": catalog.StatusInactive,
	}
	if diff := cmp.Diff(want, status); diff != "" {
		t.Errorf("region statuses (-want +got):\n%s", diff)
	}
}

func TestMarkInactiveScopedToPredicate(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	price := func(alloc catalog.Allocation) *catalog.ServerPrice {
		return &catalog.ServerPrice{
			VendorID: "aws", RegionID: "us-east-1", ZoneID: "use1-az1",
			ServerID: "m5.large", Allocation: alloc, OperatingSystem: "Linux",
			Unit: catalog.UnitHour, Price: 0.096, Currency: "USD",
		}
	}
	upsert(t, s, price(catalog.AllocationOnDemand), price(catalog.AllocationSpot))

	ondemandBefore, err := Query[catalog.ServerPrice](context.Background(), s, "allocation != ?", "SPOT")
	if err != nil {
		t.Fatalf("querying: %v", err)
	}

	// The spot stage tombstones only spot rows.
	sess, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("beginning session: %v", err)
	}
	defer sess.Rollback()
	n, err := sess.MarkInactive(catalog.TableServerPrice, "aws", "allocation = ?", "SPOT")
	if err != nil {
		t.Fatalf("marking inactive: %v", err)
	}
	if n != 1 {
		t.Errorf("tombstoned %d rows, want 1", n)
	}
	if err := sess.Commit(); err != nil {
		t.Fatalf("committing: %v", err)
	}

	spot, err := Query[catalog.ServerPrice](context.Background(), s, "allocation = ?", "SPOT")
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if len(spot) != 1 || spot[0].Status != catalog.StatusInactive {
		t.Errorf("spot row not tombstoned: %+v", spot)
	}

	ondemand, err := Query[catalog.ServerPrice](context.Background(), s, "allocation != ?", "SPOT")
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if len(ondemand) != 1 || ondemand[0].Status != catalog.StatusActive {
		t.Fatalf("ondemand row touched: %+v", ondemand)
	}
	if !ondemand[0].ObservedAt.Equal(ondemandBefore[0].ObservedAt) {
		t.Errorf("ondemand observed_at moved from %v to %v", ondemandBefore[0].ObservedAt, ondemand[0].ObservedAt)
	}
}

func TestSCDAppendOnly(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	duplicate := func() {
		t.Helper()
		sess, err := s.Begin(context.Background())
		if err != nil {
			t.Fatalf("beginning session: %v", err)
		}
		defer sess.Rollback()
		if err := sess.DuplicateToSCD(catalog.TableRegion, "aws"); err != nil {
			t.Fatalf("duplicating: %v", err)
		}
		if err := sess.Commit(); err != nil {
			t.Fatalf("committing: %v", err)
		}
	}

	duplicate()
	if n, _ := s.CountRows("region_scd"); n != 1 {
		t.Fatalf("region_scd rows = %d, want 1", n)
	}

	// Same content, same observed_at: the history must not grow.
	duplicate()
	if n, _ := s.CountRows("region_scd"); n != 1 {
		t.Errorf("region_scd rows = %d after no-op duplicate, want 1", n)
	}

	// A re-observation bumps observed_at, which is part of the SCD key.
	upsert(t, s, testRegion("us-east-1"))
	duplicate()
	if n, _ := s.CountRows("region_scd"); n != 2 {
		t.Errorf("region_scd rows = %d after re-observation, want 2", n)
	}
}

func TestForeignKeyViolationAborts(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	sess, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("beginning session: %v", err)
	}
	defer sess.Rollback()
	err = sess.Upsert([]catalog.Record{&catalog.Zone{
		VendorID: "aws", RegionID: "no-such-region", ZoneID: "z1",
		Name: "z1", APIReference: "z1", DisplayName: "z1",
	}})
	if err == nil {
		t.Fatal("upserting a zone without its region succeeded")
	}
	sess.Rollback()

	if n, _ := s.CountRows("zone"); n != 1 {
		t.Errorf("zone rows = %d after rollback, want 1", n)
	}
}

func TestObservedAtNeverRegresses(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	stale := testRegion("us-east-1")
	stale.DisplayName = "stale name"
	stale.ObservedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	upsert(t, s, stale)

	regions, err := Query[catalog.Region](context.Background(), s, "region_id = ?", "us-east-1")
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if regions[0].DisplayName != "us-east-1" {
		t.Errorf("stale row overwrote a newer observation: display_name = %q", regions[0].DisplayName)
	}
}

func TestInfinityTierRoundTrip(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	upsert(t, s, &catalog.TrafficPrice{
		VendorID: "aws", RegionID: "us-east-1", Direction: catalog.TrafficOut,
		Unit: catalog.UnitGB, Price: 0.09, Currency: "USD",
		PriceTiered: []catalog.PriceTier{
			{Lower: 0, Upper: 10240, Price: 0.09},
			{Lower: 10240, Upper: catalog.InfFloat(math.Inf(1)), Price: 0.05},
		},
	})

	var raw string
	row := s.RawDB().QueryRow("SELECT price_tiered FROM traffic_price")
	if err := row.Scan(&raw); err != nil {
		t.Fatalf("reading stored tiers: %v", err)
	}
	if want := `"Infinity"`; !strings.Contains(raw, want) {
		t.Errorf("stored tiers %q do not contain %s", raw, want)
	}

	prices, err := Query[catalog.TrafficPrice](context.Background(), s, "")
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	tiers := prices[0].PriceTiered
	if len(tiers) != 2 || !math.IsInf(float64(tiers[1].Upper), 1) {
		t.Errorf("tiers did not round-trip: %+v", tiers)
	}
}

func TestHashIgnoresInsertionOrder(t *testing.T) {
	a := openTestStore(t)
	b := openTestStore(t)
	seed(t, a)
	seed(t, b)
	upsert(t, a, testRegion("eu-west-1"), testRegion("us-west-2"))
	upsert(t, b, testRegion("us-west-2"), testRegion("eu-west-1"))

	ha, err := a.HashDatabase([]string{"observed_at"})
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	hb, err := b.HashDatabase([]string{"observed_at"})
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	if ha != hb {
		t.Errorf("hashes differ across insertion orders: %s vs %s", ha, hb)
	}
}

func TestUpsertDedupesWithinPull(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	first := testRegion("eu-west-1")
	first.DisplayName = "first"
	second := testRegion("eu-west-1")
	second.DisplayName = "second"
	upsert(t, s, first, second)

	regions, err := Query[catalog.Region](context.Background(), s, "region_id = ?", "eu-west-1")
	if err != nil {
		t.Fatalf("querying: %v", err)
	}
	if len(regions) != 1 || regions[0].DisplayName != "second" {
		t.Errorf("duplicate key handling: got %+v, want one row with the last occurrence", regions)
	}
}

func TestCreateStatementsCoverAllTables(t *testing.T) {
	stmts := CreateStatements(DialectSQLite, false)
	for _, tbl := range catalog.Tables() {
		if !anyContains(stmts, "CREATE TABLE "+tbl.Name+" ") {
			t.Errorf("no CREATE TABLE for %s", tbl.Name)
		}
		if tbl.SCD && !anyContains(stmts, "CREATE TABLE "+tbl.SCDName()+" ") {
			t.Errorf("no CREATE TABLE for %s", tbl.SCDName())
		}
	}
}

func TestParseDialect(t *testing.T) {
	for _, name := range []string{"postgresql", "mysql", "sqlite", "oracle", "sqlserver"} {
		if _, err := ParseDialect(name); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := ParseDialect("db2"); err == nil {
		t.Error("unknown dialect accepted")
	}
}

func anyContains(stmts []string, sub string) bool {
	for _, s := range stmts {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
