// Package hcloud pulls the Hetzner Cloud inventory through the public
// API at api.hetzner.cloud. Hetzner has no availability-zone concept, so
// every region gets a 1:1 dummy zone.
package hcloud

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/internal/vendors"
	"github.com/skucrawler/skucrawler/internal/vendors/httpx"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

const apiBase = "https://api.hetzner.cloud/v1"

type Adapter struct {
	client *httpx.Client
	token  string
}

// New reads HCLOUD_TOKEN; its absence is a startup configuration error.
func New(client *httpx.Client) (catalog.Adapter, error) {
	token := os.Getenv("HCLOUD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("HCLOUD_TOKEN is not set")
	}
	return &Adapter{client: client, token: token}, nil
}

func (a *Adapter) VendorID() string { return "hcloud" }

func (a *Adapter) get(ctx context.Context, path string, out any) error {
	headers := map[string]string{"Authorization": "Bearer " + a.token}
	return a.client.GetJSON(ctx, apiBase+path, headers, out)
}

// locationInfo carries what the API does not report about a location.
type locationInfo struct {
	foundingYear int
	greenEnergy  bool
}

// Hetzner runs all locations on renewable energy.
var locations = map[string]locationInfo{
	"fsn1": {foundingYear: 2018, greenEnergy: true},
	"nbg1": {foundingYear: 2018, greenEnergy: true},
	"hel1": {foundingYear: 2019, greenEnergy: true},
	"ash":  {foundingYear: 2021, greenEnergy: true},
	"hil":  {foundingYear: 2022, greenEnergy: true},
	"sin":  {foundingYear: 2024, greenEnergy: true},
}

type location struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Country     string  `json:"country"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type serverTypePrice struct {
	Location    string `json:"location"`
	PriceHourly struct {
		Net string `json:"net"`
	} `json:"price_hourly"`
	PriceMonthly struct {
		Net string `json:"net"`
	} `json:"price_monthly"`
	IncludedTraffic   int64 `json:"included_traffic"` // bytes
	PricePerTBTraffic struct {
		Net string `json:"net"`
	} `json:"price_per_tb_traffic"`
}

type serverType struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Cores        int               `json:"cores"`
	Memory       float64           `json:"memory"` // GB
	Disk         float64           `json:"disk"`   // GB
	CPUType      string            `json:"cpu_type"`
	Architecture string            `json:"architecture"`
	StorageType  string            `json:"storage_type"`
	Deprecated   bool              `json:"deprecated"`
	Prices       []serverTypePrice `json:"prices"`
}

func (a *Adapter) serverTypes(ctx context.Context) ([]serverType, error) {
	var out []serverType
	for page := 1; ; page++ {
		var resp struct {
			ServerTypes []serverType `json:"server_types"`
			Meta        struct {
				Pagination struct {
					NextPage *int `json:"next_page"`
				} `json:"pagination"`
			} `json:"meta"`
		}
		if err := a.get(ctx, fmt.Sprintf("/server_types?page=%d&per_page=50", page), &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.ServerTypes...)
		if resp.Meta.Pagination.NextPage == nil {
			break
		}
	}
	return out, nil
}

func (a *Adapter) InventoryComplianceFrameworks(ctx context.Context, v *catalog.VendorView) ([]*catalog.VendorComplianceLink, error) {
	return []*catalog.VendorComplianceLink{
		{VendorID: "hcloud", ComplianceFrameworkID: "iso27001"},
	}, nil
}

func (a *Adapter) InventoryRegions(ctx context.Context, v *catalog.VendorView) ([]*catalog.Region, error) {
	var resp struct {
		Locations []location `json:"locations"`
	}
	if err := a.get(ctx, "/locations", &resp); err != nil {
		return nil, err
	}

	regions := make([]*catalog.Region, 0, len(resp.Locations))
	for _, loc := range resp.Locations {
		r := &catalog.Region{
			VendorID:     "hcloud",
			RegionID:     loc.Name,
			Name:         loc.Name,
			APIReference: loc.Name,
			DisplayName:  loc.Description,
			CountryID:    loc.Country,
			City:         util.Ptr(loc.City),
			Lon:          util.Ptr(loc.Longitude),
			Lat:          util.Ptr(loc.Latitude),
		}
		if info, ok := locations[loc.Name]; ok {
			r.FoundingYear = util.Ptr(info.foundingYear)
			r.GreenEnergy = util.Ptr(info.greenEnergy)
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func (a *Adapter) InventoryZones(ctx context.Context, v *catalog.VendorView) ([]*catalog.Zone, error) {
	return vendors.DummyZones(v.Regions), nil
}

func (a *Adapter) InventoryServers(ctx context.Context, v *catalog.VendorView) ([]*catalog.Server, error) {
	types, err := a.serverTypes(ctx)
	if err != nil {
		return nil, err
	}

	servers := make([]*catalog.Server, 0, len(types))
	for _, t := range types {
		srv := &catalog.Server{
			VendorID:        "hcloud",
			ServerID:        t.Name,
			Name:            t.Name,
			APIReference:    t.Name,
			DisplayName:     t.Name,
			Description:     util.Ptr(t.Description),
			VCpus:           t.Cores,
			CPUAllocation:   cpuAllocation(t.CPUType),
			CPUArchitecture: architecture(t.Architecture),
			MemoryAmount:    int64(t.Memory * 1024),
			StorageSize:     t.Disk,
			StorageType:     storageType(t.StorageType),
		}
		if t.Deprecated {
			srv.Status = catalog.StatusInactive
		}
		if len(t.Prices) > 0 {
			srv.OutboundTraffic = float64(t.Prices[0].IncludedTraffic) / 1e9
		}
		servers = append(servers, srv)
	}
	return servers, nil
}

func (a *Adapter) InventoryServerPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	types, err := a.serverTypes(ctx)
	if err != nil {
		return nil, err
	}

	var prices []*catalog.ServerPrice
	for _, t := range types {
		for _, p := range t.Prices {
			if _, ok := v.Region(p.Location); !ok {
				continue
			}
			hourly, err := strconv.ParseFloat(p.PriceHourly.Net, 64)
			if err != nil {
				return nil, fmt.Errorf("server type %s price in %s: %w", t.Name, p.Location, err)
			}
			prices = append(prices, &catalog.ServerPrice{
				VendorID:        "hcloud",
				RegionID:        p.Location,
				ZoneID:          p.Location,
				ServerID:        t.Name,
				Allocation:      catalog.AllocationOnDemand,
				OperatingSystem: "Linux",
				Unit:            catalog.UnitHour,
				Price:           hourly,
				Currency:        "EUR",
			})
		}
	}
	return prices, nil
}

// Hetzner sells no spot capacity.
func (a *Adapter) InventoryServerPricesSpot(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	return nil, nil
}

func (a *Adapter) InventoryStorages(ctx context.Context, v *catalog.VendorView) ([]*catalog.Storage, error) {
	return []*catalog.Storage{{
		VendorID:    "hcloud",
		StorageID:   "volume",
		Name:        "Volume",
		Description: util.Ptr("Network block storage volume"),
		StorageType: catalog.StorageNetwork,
		MinSize:     util.Ptr(int64(10)),
		MaxSize:     util.Ptr(int64(10240)),
	}}, nil
}

type pricing struct {
	Volume struct {
		PricePerGBMonth struct {
			Net string `json:"net"`
		} `json:"price_per_gb_month"`
	} `json:"volume"`
	PrimaryIPs []struct {
		Type   string `json:"type"`
		Prices []struct {
			Location     string `json:"location"`
			PriceMonthly struct {
				Net string `json:"net"`
			} `json:"price_monthly"`
		} `json:"prices"`
	} `json:"primary_ips"`
	ServerTypes []struct {
		Prices []serverTypePrice `json:"prices"`
	} `json:"server_types"`
}

func (a *Adapter) pricing(ctx context.Context) (*pricing, error) {
	var resp struct {
		Pricing pricing `json:"pricing"`
	}
	if err := a.get(ctx, "/pricing", &resp); err != nil {
		return nil, err
	}
	return &resp.Pricing, nil
}

func (a *Adapter) InventoryStoragePrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.StoragePrice, error) {
	p, err := a.pricing(ctx)
	if err != nil {
		return nil, err
	}
	perGB, err := strconv.ParseFloat(p.Volume.PricePerGBMonth.Net, 64)
	if err != nil {
		return nil, fmt.Errorf("volume price: %w", err)
	}

	// Volume pricing is location-independent.
	prices := make([]*catalog.StoragePrice, 0, len(v.Regions))
	for _, r := range v.Regions {
		prices = append(prices, &catalog.StoragePrice{
			VendorID:  "hcloud",
			RegionID:  r.RegionID,
			StorageID: "volume",
			Unit:      catalog.UnitGBMonth,
			Price:     perGB,
			Currency:  "EUR",
		})
	}
	return prices, nil
}

func (a *Adapter) InventoryTrafficPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.TrafficPrice, error) {
	p, err := a.pricing(ctx)
	if err != nil {
		return nil, err
	}

	// Overage is priced per TB and identical across server types; inbound
	// traffic is free.
	perTB := 0.0
	for _, t := range p.ServerTypes {
		for _, price := range t.Prices {
			if n, err := strconv.ParseFloat(price.PricePerTBTraffic.Net, 64); err == nil && n > 0 {
				perTB = n
				break
			}
		}
		if perTB > 0 {
			break
		}
	}
	if perTB == 0 {
		return nil, nil
	}

	var prices []*catalog.TrafficPrice
	for _, r := range v.Regions {
		prices = append(prices, &catalog.TrafficPrice{
			VendorID:  "hcloud",
			RegionID:  r.RegionID,
			Direction: catalog.TrafficOut,
			Unit:      catalog.UnitGB,
			Price:     perTB / 1000,
			Currency:  "EUR",
		})
	}
	return prices, nil
}

func (a *Adapter) InventoryIpv4Prices(ctx context.Context, v *catalog.VendorView) ([]*catalog.Ipv4Price, error) {
	p, err := a.pricing(ctx)
	if err != nil {
		return nil, err
	}

	var prices []*catalog.Ipv4Price
	for _, ip := range p.PrimaryIPs {
		if ip.Type != "ipv4" {
			continue
		}
		for _, price := range ip.Prices {
			if _, ok := v.Region(price.Location); !ok {
				continue
			}
			monthly, err := strconv.ParseFloat(price.PriceMonthly.Net, 64)
			if err != nil {
				return nil, fmt.Errorf("ipv4 price in %s: %w", price.Location, err)
			}
			prices = append(prices, &catalog.Ipv4Price{
				VendorID: "hcloud",
				RegionID: price.Location,
				Unit:     catalog.UnitMonth,
				Price:    monthly,
				Currency: "EUR",
			})
		}
	}
	return prices, nil
}

func cpuAllocation(cpuType string) catalog.CPUAllocation {
	if cpuType == "dedicated" {
		return catalog.CPUAllocationDedicated
	}
	return catalog.CPUAllocationShared
}

func architecture(arch string) catalog.CPUArchitecture {
	if arch == "arm" {
		return catalog.ArchARM64
	}
	return catalog.ArchX8664
}

func storageType(s string) *catalog.StorageType {
	switch s {
	case "local":
		return util.Ptr(catalog.StorageNVMeSSD)
	case "network":
		return util.Ptr(catalog.StorageNetwork)
	default:
		return nil
	}
}
