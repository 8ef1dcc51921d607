package pipeline

import (
	"context"
	"fmt"

	"github.com/skucrawler/skucrawler/internal/vendors/alibaba"
	"github.com/skucrawler/skucrawler/internal/vendors/aws"
	"github.com/skucrawler/skucrawler/internal/vendors/azure"
	"github.com/skucrawler/skucrawler/internal/vendors/gcp"
	"github.com/skucrawler/skucrawler/internal/vendors/hcloud"
	"github.com/skucrawler/skucrawler/internal/vendors/httpx"
	"github.com/skucrawler/skucrawler/internal/vendors/ovh"
	"github.com/skucrawler/skucrawler/internal/vendors/upcloud"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// Registered lists the vendor ids with a wired adapter, in pull order.
func Registered() []string {
	return []string{"aws", "azure", "gcp", "hcloud", "ovh", "upcloud", "alibaba"}
}

// NewAdapter constructs the adapter for a vendor id. Constructors read
// their own credentials from the environment and fail here, at startup,
// when credentials for a selected vendor are absent. Unselected vendors
// are never constructed.
func NewAdapter(ctx context.Context, vendorID string, client *httpx.Client) (catalog.Adapter, error) {
	switch vendorID {
	case "aws":
		return aws.New(ctx)
	case "azure":
		return azure.New(client)
	case "gcp":
		return gcp.New(ctx, client)
	case "hcloud":
		return hcloud.New(client)
	case "ovh":
		return ovh.New(client)
	case "upcloud":
		return upcloud.New(client)
	case "alibaba":
		return alibaba.New(client)
	default:
		return nil, fmt.Errorf("unknown vendor %q", vendorID)
	}
}
