package vendors

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/skucrawler/skucrawler/pkg/catalog"
)

func TestDummyZones(t *testing.T) {
	regions := []*catalog.Region{
		{VendorID: "hcloud", RegionID: "fsn1", Name: "fsn1", APIReference: "fsn1", DisplayName: "Falkenstein"},
		{VendorID: "hcloud", RegionID: "nbg1", Name: "nbg1", APIReference: "nbg1", DisplayName: "Nuremberg"},
	}
	zones := DummyZones(regions)
	if len(zones) != 2 {
		t.Fatalf("zones = %d, want 2", len(zones))
	}
	for i, z := range zones {
		if z.ZoneID != regions[i].RegionID || z.RegionID != regions[i].RegionID {
			t.Errorf("zone %d not 1:1 with its region: %+v", i, z)
		}
		if z.DisplayName != regions[i].DisplayName {
			t.Errorf("zone %d display name = %q", i, z.DisplayName)
		}
	}
}

func TestForEachRunsAll(t *testing.T) {
	var n atomic.Int32
	items := make([]int, 50)
	err := ForEach(context.Background(), items, DefaultWorkers, func(ctx context.Context, _ int) error {
		n.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if n.Load() != 50 {
		t.Errorf("ran %d items, want 50", n.Load())
	}
}

func TestForEachPropagatesError(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	err := ForEach(context.Background(), items, 2, func(ctx context.Context, i int) error {
		if i == 3 {
			return fmt.Errorf("item %d failed", i)
		}
		return nil
	})
	if err == nil {
		t.Fatal("worker error swallowed")
	}
}
