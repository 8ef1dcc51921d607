// Package pipeline drives the per-vendor inventory stages: it binds
// vendor records to their adapters, runs the stages in dependency order,
// and owns all database sessions. Adapters only ever see a VendorView.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/skucrawler/skucrawler/internal/progress"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// VendorRunner binds one vendor record to its adapter and runtime
// collaborators. The persisted Vendor stays a pure value; everything
// session-scoped lives here.
type VendorRunner struct {
	Vendor  *catalog.Vendor
	Adapter catalog.Adapter
	Tracker *progress.Tracker
	Log     *slog.Logger
}

// NewRunner validates the binding at startup: the vendor id must be one
// of the declared vendors and the adapter must identify as it. A nil
// adapter is a configuration error, never a runtime surprise.
func NewRunner(vendorID string, adapter catalog.Adapter, tracker *progress.Tracker, log *slog.Logger) (*VendorRunner, error) {
	var vendor *catalog.Vendor
	for _, v := range catalog.Vendors() {
		if v.VendorID == vendorID {
			vendor = v
			break
		}
	}
	if vendor == nil {
		return nil, fmt.Errorf("unknown vendor %q", vendorID)
	}
	if adapter == nil {
		return nil, fmt.Errorf("vendor %q has no adapter", vendorID)
	}
	if got := adapter.VendorID(); got != vendorID {
		return nil, fmt.Errorf("adapter identifies as %q, expected %q", got, vendorID)
	}
	return &VendorRunner{
		Vendor:  vendor,
		Adapter: adapter,
		Tracker: tracker,
		Log:     log.With("vendor", vendorID),
	}, nil
}

// View builds the adapter-facing view. Regions and Servers are filled by
// the driver before the stages that need them.
func (r *VendorRunner) View() *catalog.VendorView {
	return &catalog.VendorView{
		Vendor:  r.Vendor,
		Log:     r.Log,
		Tracker: r.Tracker,
	}
}
