// Package upcloud pulls the UpCloud inventory through the public API at
// api.upcloud.com (basic auth). UpCloud zones are single datacenters, so
// they map to regions with 1:1 dummy zones.
package upcloud

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/internal/vendors"
	"github.com/skucrawler/skucrawler/internal/vendors/httpx"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

const apiBase = "https://api.upcloud.com/1.3"

type Adapter struct {
	client *httpx.Client
	auth   string
}

// New reads UPCLOUD_USERNAME and UPCLOUD_PASSWORD.
func New(client *httpx.Client) (catalog.Adapter, error) {
	user := os.Getenv("UPCLOUD_USERNAME")
	pass := os.Getenv("UPCLOUD_PASSWORD")
	if user == "" || pass == "" {
		return nil, fmt.Errorf("UPCLOUD_USERNAME and UPCLOUD_PASSWORD are not set")
	}
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
	return &Adapter{client: client, auth: auth}, nil
}

func (a *Adapter) VendorID() string { return "upcloud" }

func (a *Adapter) get(ctx context.Context, path string, out any) error {
	headers := map[string]string{"Authorization": a.auth}
	return a.client.GetJSON(ctx, apiBase+path, headers, out)
}

// zoneInfo is the location detail the API does not report.
type zoneInfo struct {
	country string
	city    string
	lat     float64
	lon     float64
}

var zoneInfos = map[string]zoneInfo{
	"au-syd1": {country: "AU", city: "Sydney", lat: -33.8688, lon: 151.2093},
	"de-fra1": {country: "DE", city: "Frankfurt", lat: 50.1109, lon: 8.6821},
	"es-mad1": {country: "ES", city: "Madrid", lat: 40.4168, lon: -3.7038},
	"fi-hel1": {country: "FI", city: "Helsinki", lat: 60.1699, lon: 24.9384},
	"fi-hel2": {country: "FI", city: "Helsinki", lat: 60.1699, lon: 24.9384},
	"nl-ams1": {country: "NL", city: "Amsterdam", lat: 52.3676, lon: 4.9041},
	"pl-waw1": {country: "PL", city: "Warsaw", lat: 52.2297, lon: 21.0122},
	"se-sto1": {country: "SE", city: "Stockholm", lat: 59.3293, lon: 18.0686},
	"sg-sin1": {country: "SG", city: "Singapore", lat: 1.3521, lon: 103.8198},
	"uk-lon1": {country: "GB", city: "London", lat: 51.5074, lon: -0.1278},
	"us-chi1": {country: "US", city: "Chicago", lat: 41.8781, lon: -87.6298},
	"us-nyc1": {country: "US", city: "New York", lat: 40.7128, lon: -74.0060},
	"us-sjo1": {country: "US", city: "San Jose", lat: 37.3382, lon: -121.8863},
}

func (a *Adapter) InventoryComplianceFrameworks(ctx context.Context, v *catalog.VendorView) ([]*catalog.VendorComplianceLink, error) {
	return []*catalog.VendorComplianceLink{
		{VendorID: "upcloud", ComplianceFrameworkID: "iso27001"},
	}, nil
}

func (a *Adapter) InventoryRegions(ctx context.Context, v *catalog.VendorView) ([]*catalog.Region, error) {
	var resp struct {
		Zones struct {
			Zone []struct {
				ID          string `json:"id"`
				Description string `json:"description"`
				Public      string `json:"public"`
			} `json:"zone"`
		} `json:"zones"`
	}
	if err := a.get(ctx, "/zone", &resp); err != nil {
		return nil, err
	}

	var regions []*catalog.Region
	for _, z := range resp.Zones.Zone {
		if z.Public != "yes" {
			continue
		}
		info, ok := zoneInfos[z.ID]
		if !ok {
			// New zones appear before we learn their coordinates; the
			// country code prefix is always reliable.
			info = zoneInfo{country: strings.ToUpper(strings.SplitN(z.ID, "-", 2)[0])}
		}
		r := &catalog.Region{
			VendorID:     "upcloud",
			RegionID:     z.ID,
			Name:         z.ID,
			APIReference: z.ID,
			DisplayName:  z.Description,
			CountryID:    info.country,
		}
		if info.city != "" {
			r.City = util.Ptr(info.city)
			r.Lat = util.Ptr(info.lat)
			r.Lon = util.Ptr(info.lon)
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func (a *Adapter) InventoryZones(ctx context.Context, v *catalog.VendorView) ([]*catalog.Zone, error) {
	return vendors.DummyZones(v.Regions), nil
}

func (a *Adapter) InventoryServers(ctx context.Context, v *catalog.VendorView) ([]*catalog.Server, error) {
	var resp struct {
		Plans struct {
			Plan []struct {
				Name             string `json:"name"`
				CoreNumber       int    `json:"core_number"`
				MemoryAmount     int64  `json:"memory_amount"` // MiB
				StorageSize      int64  `json:"storage_size"`  // GB
				StorageTier      string `json:"storage_tier"`
				PublicTrafficOut int64  `json:"public_traffic_out"` // GB/month
			} `json:"plan"`
		} `json:"plans"`
	}
	if err := a.get(ctx, "/plan", &resp); err != nil {
		return nil, err
	}

	var servers []*catalog.Server
	for _, p := range resp.Plans.Plan {
		servers = append(servers, &catalog.Server{
			VendorID:        "upcloud",
			ServerID:        p.Name,
			Name:            p.Name,
			APIReference:    p.Name,
			DisplayName:     p.Name,
			VCpus:           p.CoreNumber,
			CPUAllocation:   cpuAllocation(p.Name),
			CPUArchitecture: catalog.ArchX8664,
			MemoryAmount:    p.MemoryAmount,
			StorageSize:     float64(p.StorageSize),
			StorageType:     util.Ptr(catalog.StorageNetwork),
			OutboundTraffic: float64(p.PublicTrafficOut),
		})
	}
	return servers, nil
}

// zonePrices is one zone's block of the /price response: a "name" key
// plus dynamic "server_plan_<plan>"/"storage_<tier>"/... price entries.
type zonePrices map[string]json.RawMessage

type priceEntry struct {
	Amount float64 `json:"amount"`
	Price  float64 `json:"price"` // 1/100 EUR
}

func (z zonePrices) name() string {
	var s string
	_ = json.Unmarshal(z["name"], &s)
	return s
}

func (z zonePrices) entry(key string) (priceEntry, bool) {
	raw, ok := z[key]
	if !ok {
		return priceEntry{}, false
	}
	var e priceEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return priceEntry{}, false
	}
	return e, true
}

func (a *Adapter) prices(ctx context.Context) ([]zonePrices, error) {
	var resp struct {
		Prices struct {
			Zone []zonePrices `json:"zone"`
		} `json:"prices"`
	}
	if err := a.get(ctx, "/price", &resp); err != nil {
		return nil, err
	}
	return resp.Prices.Zone, nil
}

func (a *Adapter) InventoryServerPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	zones, err := a.prices(ctx)
	if err != nil {
		return nil, err
	}

	var prices []*catalog.ServerPrice
	for _, z := range zones {
		regionID := z.name()
		if _, ok := v.Region(regionID); !ok {
			continue
		}
		for _, srv := range v.Servers {
			e, ok := z.entry("server_plan_" + srv.ServerID)
			if !ok {
				continue
			}
			prices = append(prices, &catalog.ServerPrice{
				VendorID:        "upcloud",
				RegionID:        regionID,
				ZoneID:          regionID,
				ServerID:        srv.ServerID,
				Allocation:      catalog.AllocationOnDemand,
				OperatingSystem: "Linux",
				Unit:            catalog.UnitHour,
				Price:           e.Price / 100,
				Currency:        "EUR",
			})
		}
	}
	return prices, nil
}

// UpCloud sells no spot capacity.
func (a *Adapter) InventoryServerPricesSpot(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	return nil, nil
}

var storageTiers = []struct {
	id   string
	name string
	typ  catalog.StorageType
}{
	{"maxiops", "MaxIOPS", catalog.StorageNetwork},
	{"hdd", "HDD", catalog.StorageHDD},
	{"standard", "Standard", catalog.StorageNetwork},
}

func (a *Adapter) InventoryStorages(ctx context.Context, v *catalog.VendorView) ([]*catalog.Storage, error) {
	var out []*catalog.Storage
	for _, t := range storageTiers {
		out = append(out, &catalog.Storage{
			VendorID:    "upcloud",
			StorageID:   t.id,
			Name:        t.name,
			StorageType: t.typ,
			MinSize:     util.Ptr(int64(10)),
			MaxSize:     util.Ptr(int64(4096)),
		})
	}
	return out, nil
}

func (a *Adapter) InventoryStoragePrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.StoragePrice, error) {
	zones, err := a.prices(ctx)
	if err != nil {
		return nil, err
	}

	var prices []*catalog.StoragePrice
	for _, z := range zones {
		regionID := z.name()
		if _, ok := v.Region(regionID); !ok {
			continue
		}
		for _, t := range storageTiers {
			e, ok := z.entry("storage_" + t.id)
			if !ok {
				continue
			}
			// Listed per GB per hour; normalized to GB-month.
			prices = append(prices, &catalog.StoragePrice{
				VendorID:  "upcloud",
				RegionID:  regionID,
				StorageID: t.id,
				Unit:      catalog.UnitGBMonth,
				Price:     e.Price / 100 * 730,
				Currency:  "EUR",
			})
		}
	}
	return prices, nil
}

func (a *Adapter) InventoryTrafficPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.TrafficPrice, error) {
	zones, err := a.prices(ctx)
	if err != nil {
		return nil, err
	}

	var prices []*catalog.TrafficPrice
	for _, z := range zones {
		regionID := z.name()
		if _, ok := v.Region(regionID); !ok {
			continue
		}
		e, ok := z.entry("public_ipv4_bandwidth_out")
		if !ok {
			continue
		}
		prices = append(prices, &catalog.TrafficPrice{
			VendorID:  "upcloud",
			RegionID:  regionID,
			Direction: catalog.TrafficOut,
			Unit:      catalog.UnitGB,
			Price:     e.Price / 100,
			Currency:  "EUR",
		})
	}
	return prices, nil
}

func (a *Adapter) InventoryIpv4Prices(ctx context.Context, v *catalog.VendorView) ([]*catalog.Ipv4Price, error) {
	zones, err := a.prices(ctx)
	if err != nil {
		return nil, err
	}

	var prices []*catalog.Ipv4Price
	for _, z := range zones {
		regionID := z.name()
		if _, ok := v.Region(regionID); !ok {
			continue
		}
		e, ok := z.entry("ipv4_address")
		if !ok {
			continue
		}
		prices = append(prices, &catalog.Ipv4Price{
			VendorID: "upcloud",
			RegionID: regionID,
			Unit:     catalog.UnitHour,
			Price:    e.Price / 100,
			Currency: "EUR",
		})
	}
	return prices, nil
}

// Developer plans run on shared cores; general purpose and high-CPU
// plans are dedicated.
func cpuAllocation(plan string) catalog.CPUAllocation {
	if strings.HasPrefix(plan, "DEV-") {
		return catalog.CPUAllocationShared
	}
	return catalog.CPUAllocationDedicated
}
