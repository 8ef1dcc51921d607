// Package azure pulls the Azure inventory: regions and VM SKUs from the
// ARM management API, prices from the unauthenticated Retail Prices API
// at prices.azure.com. Retail price rows carry no zone, so regions get
// 1:1 dummy zones.
package azure

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/internal/vendors"
	"github.com/skucrawler/skucrawler/internal/vendors/httpx"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

const (
	armBase    = "https://management.azure.com"
	retailBase = "https://prices.azure.com/api/retail/prices"
)

type Adapter struct {
	client       *httpx.Client
	subscription string
	token        string
}

// New reads AZURE_SUBSCRIPTION_ID and AZURE_ACCESS_TOKEN (a bearer token
// for the management API; the retail price API needs none).
func New(client *httpx.Client) (catalog.Adapter, error) {
	sub := os.Getenv("AZURE_SUBSCRIPTION_ID")
	token := os.Getenv("AZURE_ACCESS_TOKEN")
	if sub == "" || token == "" {
		return nil, fmt.Errorf("AZURE_SUBSCRIPTION_ID and AZURE_ACCESS_TOKEN are not set")
	}
	return &Adapter{client: client, subscription: sub, token: token}, nil
}

func (a *Adapter) VendorID() string { return "azure" }

func (a *Adapter) arm(ctx context.Context, path string, out any) error {
	headers := map[string]string{"Authorization": "Bearer " + a.token}
	return a.client.GetJSON(ctx, armBase+path, headers, out)
}

// retailItem is one row of the retail price feed.
type retailItem struct {
	ArmRegionName    string  `json:"armRegionName"`
	ArmSkuName       string  `json:"armSkuName"`
	MeterName        string  `json:"meterName"`
	ProductName      string  `json:"productName"`
	SkuName          string  `json:"skuName"`
	ServiceName      string  `json:"serviceName"`
	Type             string  `json:"type"`
	UnitOfMeasure    string  `json:"unitOfMeasure"`
	RetailPrice      float64 `json:"retailPrice"`
	TierMinimumUnits float64 `json:"tierMinimumUnits"`
	CurrencyCode     string  `json:"currencyCode"`
	ReservationTerm  string  `json:"reservationTerm"`
}

// retail pages through the price feed for one $filter expression.
func (a *Adapter) retail(ctx context.Context, filter string) ([]retailItem, error) {
	next := retailBase + "?$filter=" + url.QueryEscape(filter)
	var items []retailItem
	for next != "" {
		var resp struct {
			Items        []retailItem `json:"Items"`
			NextPageLink string       `json:"NextPageLink"`
		}
		if err := a.client.GetJSON(ctx, next, nil, &resp); err != nil {
			return nil, err
		}
		items = append(items, resp.Items...)
		next = resp.NextPageLink
	}
	return items, nil
}

// regionCountry maps Azure geographies the metadata does not localize.
var regionCountry = map[string]string{
	"australia": "AU", "brazil": "BR", "canada": "CA", "centralindia": "IN",
	"china": "CN", "eastasia": "HK", "europe": "NL", "france": "FR",
	"germany": "DE", "india": "IN", "israel": "IL", "italy": "IT",
	"japan": "JP", "jio": "IN", "korea": "KR", "mexico": "MX",
	"newzealand": "NZ", "northeurope": "IE", "norway": "NO", "poland": "PL",
	"qatar": "QA", "southafrica": "ZA", "southeastasia": "SG", "spain": "ES",
	"sweden": "SE", "switzerland": "CH", "uae": "AE", "uk": "GB",
	"us": "US", "westeurope": "NL",
}

func countryOf(regionName string) (string, bool) {
	name := strings.ToLower(regionName)
	// Longest prefix wins so "northeurope" beats "us" never matching.
	best := ""
	for prefix := range regionCountry {
		if strings.HasPrefix(name, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return "", false
	}
	return regionCountry[best], true
}

func (a *Adapter) InventoryComplianceFrameworks(ctx context.Context, v *catalog.VendorView) ([]*catalog.VendorComplianceLink, error) {
	return []*catalog.VendorComplianceLink{
		{VendorID: "azure", ComplianceFrameworkID: "iso27001"},
		{VendorID: "azure", ComplianceFrameworkID: "soc2t2"},
		{VendorID: "azure", ComplianceFrameworkID: "hipaa"},
	}, nil
}

func (a *Adapter) InventoryRegions(ctx context.Context, v *catalog.VendorView) ([]*catalog.Region, error) {
	var resp struct {
		Value []struct {
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
			Metadata    struct {
				RegionType       string `json:"regionType"`
				PhysicalLocation string `json:"physicalLocation"`
				Latitude         string `json:"latitude"`
				Longitude        string `json:"longitude"`
			} `json:"metadata"`
		} `json:"value"`
	}
	path := "/subscriptions/" + a.subscription + "/locations?api-version=2022-12-01"
	if err := a.arm(ctx, path, &resp); err != nil {
		return nil, err
	}

	var regions []*catalog.Region
	for _, loc := range resp.Value {
		if loc.Metadata.RegionType != "Physical" {
			continue
		}
		country, ok := countryOf(loc.Name)
		if !ok {
			v.Log.Warn("unknown region geography, skipping", "region", loc.Name)
			continue
		}
		r := &catalog.Region{
			VendorID:     "azure",
			RegionID:     loc.Name,
			Name:         loc.Name,
			APIReference: loc.Name,
			DisplayName:  loc.DisplayName,
			CountryID:    country,
		}
		if loc.Metadata.PhysicalLocation != "" {
			r.City = util.Ptr(loc.Metadata.PhysicalLocation)
		}
		if lat, err := strconv.ParseFloat(loc.Metadata.Latitude, 64); err == nil {
			r.Lat = util.Ptr(lat)
		}
		if lon, err := strconv.ParseFloat(loc.Metadata.Longitude, 64); err == nil {
			r.Lon = util.Ptr(lon)
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func (a *Adapter) InventoryZones(ctx context.Context, v *catalog.VendorView) ([]*catalog.Zone, error) {
	return vendors.DummyZones(v.Regions), nil
}

func (a *Adapter) InventoryServers(ctx context.Context, v *catalog.VendorView) ([]*catalog.Server, error) {
	path := "/subscriptions/" + a.subscription + "/providers/Microsoft.Compute/skus?api-version=2021-07-01"
	var resp struct {
		Value []struct {
			ResourceType string `json:"resourceType"`
			Name         string `json:"name"`
			Family       string `json:"family"`
			Capabilities []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"capabilities"`
		} `json:"value"`
	}
	if err := a.arm(ctx, path, &resp); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var servers []*catalog.Server
	for _, sku := range resp.Value {
		if sku.ResourceType != "virtualMachines" || seen[sku.Name] {
			continue
		}
		seen[sku.Name] = true

		caps := map[string]string{}
		for _, c := range sku.Capabilities {
			caps[c.Name] = c.Value
		}
		vcpus, _ := strconv.Atoi(caps["vCPUs"])
		if vcpus == 0 {
			continue
		}
		memGB, _ := strconv.ParseFloat(caps["MemoryGB"], 64)

		srv := &catalog.Server{
			VendorID:        "azure",
			ServerID:        sku.Name,
			Name:            sku.Name,
			APIReference:    sku.Name,
			DisplayName:     sku.Name,
			Family:          util.Ptr(sku.Family),
			VCpus:           vcpus,
			CPUAllocation:   cpuAllocation(sku.Name),
			CPUArchitecture: architecture(caps["CpuArchitectureType"]),
			MemoryAmount:    int64(memGB * 1024),
		}
		if mb, err := strconv.ParseInt(caps["MaxResourceVolumeMB"], 10, 64); err == nil && mb > 0 {
			srv.StorageSize = float64(mb) / 1000
			srv.StorageType = util.Ptr(catalog.StorageSSD)
		}
		if gpus, err := strconv.ParseFloat(caps["GPUs"], 64); err == nil && gpus > 0 {
			srv.GpuCount = gpus
		}
		servers = append(servers, srv)
	}
	return servers, nil
}

func (a *Adapter) InventoryServerPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	items, err := a.retail(ctx, "serviceName eq 'Virtual Machines'")
	if err != nil {
		return nil, err
	}

	var prices []*catalog.ServerPrice
	for _, it := range items {
		if isSpot(it) {
			continue
		}
		row, ok := a.serverPrice(v, it)
		if !ok {
			continue
		}
		switch it.Type {
		case "Consumption":
			row.Allocation = catalog.AllocationOnDemand
			row.Unit = catalog.UnitHour
		case "Reservation":
			if it.ReservationTerm != "1 Year" {
				continue
			}
			row.Allocation = catalog.AllocationReserved
			row.Unit = catalog.UnitYear
		default:
			continue
		}
		prices = append(prices, row)
	}
	return prices, nil
}

func (a *Adapter) InventoryServerPricesSpot(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	items, err := a.retail(ctx, "serviceName eq 'Virtual Machines' and priceType eq 'Consumption'")
	if err != nil {
		return nil, err
	}

	var prices []*catalog.ServerPrice
	for _, it := range items {
		if !isSpot(it) {
			continue
		}
		row, ok := a.serverPrice(v, it)
		if !ok {
			continue
		}
		row.Allocation = catalog.AllocationSpot
		row.Unit = catalog.UnitHour
		prices = append(prices, row)
	}
	return prices, nil
}

// serverPrice maps a retail row to a price skeleton, dropping rows whose
// region or SKU we did not inventory.
func (a *Adapter) serverPrice(v *catalog.VendorView, it retailItem) (*catalog.ServerPrice, bool) {
	if it.RetailPrice <= 0 {
		return nil, false
	}
	if _, ok := v.Region(it.ArmRegionName); !ok {
		return nil, false
	}
	if _, ok := v.Server(it.ArmSkuName); !ok {
		return nil, false
	}
	osName := "Linux"
	if strings.Contains(it.ProductName, "Windows") {
		osName = "Windows"
	}
	return &catalog.ServerPrice{
		VendorID:        "azure",
		RegionID:        it.ArmRegionName,
		ZoneID:          it.ArmRegionName,
		ServerID:        it.ArmSkuName,
		OperatingSystem: osName,
		Price:           it.RetailPrice,
		Currency:        it.CurrencyCode,
	}, true
}

func isSpot(it retailItem) bool {
	return strings.Contains(it.MeterName, "Spot") || strings.Contains(it.MeterName, "Low Priority")
}

var diskTiers = []struct {
	id      string
	name    string
	typ     catalog.StorageType
	product string
}{
	{"standard-hdd", "Standard HDD Managed Disk", catalog.StorageHDD, "Standard HDD Managed Disks"},
	{"standard-ssd", "Standard SSD Managed Disk", catalog.StorageSSD, "Standard SSD Managed Disks"},
	{"premium-ssd", "Premium SSD Managed Disk", catalog.StorageSSD, "Premium SSD Managed Disks"},
	{"premium-ssd-v2", "Premium SSD v2 Managed Disk", catalog.StorageNVMeSSD, "Azure Premium SSD v2"},
}

func (a *Adapter) InventoryStorages(ctx context.Context, v *catalog.VendorView) ([]*catalog.Storage, error) {
	var out []*catalog.Storage
	for _, t := range diskTiers {
		out = append(out, &catalog.Storage{
			VendorID:    "azure",
			StorageID:   t.id,
			Name:        t.name,
			StorageType: t.typ,
			MaxSize:     util.Ptr(int64(32767)),
		})
	}
	return out, nil
}

func (a *Adapter) InventoryStoragePrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.StoragePrice, error) {
	items, err := a.retail(ctx, "serviceName eq 'Storage' and priceType eq 'Consumption'")
	if err != nil {
		return nil, err
	}

	var prices []*catalog.StoragePrice
	for _, it := range items {
		if it.RetailPrice <= 0 || !strings.Contains(it.UnitOfMeasure, "GiB") && !strings.Contains(it.UnitOfMeasure, "GB") {
			continue
		}
		if _, ok := v.Region(it.ArmRegionName); !ok {
			continue
		}
		for _, t := range diskTiers {
			if it.ProductName != t.product {
				continue
			}
			prices = append(prices, &catalog.StoragePrice{
				VendorID:  "azure",
				RegionID:  it.ArmRegionName,
				StorageID: t.id,
				Unit:      catalog.UnitGBMonth,
				Price:     it.RetailPrice,
				Currency:  it.CurrencyCode,
			})
		}
	}
	return prices, nil
}

func (a *Adapter) InventoryTrafficPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.TrafficPrice, error) {
	items, err := a.retail(ctx, "serviceName eq 'Bandwidth' and priceType eq 'Consumption'")
	if err != nil {
		return nil, err
	}

	// Egress is tiered by monthly volume; collect the tiers per region
	// and expand them into a connected range ending at infinity.
	tiers := map[string][]retailItem{}
	for _, it := range items {
		if !strings.Contains(it.MeterName, "Data Transfer Out") {
			continue
		}
		if _, ok := v.Region(it.ArmRegionName); !ok {
			continue
		}
		tiers[it.ArmRegionName] = append(tiers[it.ArmRegionName], it)
	}

	var prices []*catalog.TrafficPrice
	for region, items := range tiers {
		sort.Slice(items, func(i, j int) bool { return items[i].TierMinimumUnits < items[j].TierMinimumUnits })
		tiered := make([]catalog.PriceTier, len(items))
		for i, it := range items {
			upper := math.Inf(1)
			if i+1 < len(items) {
				upper = items[i+1].TierMinimumUnits
			}
			tiered[i] = catalog.PriceTier{
				Lower: catalog.InfFloat(it.TierMinimumUnits),
				Upper: catalog.InfFloat(upper),
				Price: it.RetailPrice,
			}
		}
		prices = append(prices, &catalog.TrafficPrice{
			VendorID:    "azure",
			RegionID:    region,
			Direction:   catalog.TrafficOut,
			Unit:        catalog.UnitGB,
			Price:       items[0].RetailPrice,
			PriceTiered: tiered,
			Currency:    items[0].CurrencyCode,
		})
	}
	return prices, nil
}

func (a *Adapter) InventoryIpv4Prices(ctx context.Context, v *catalog.VendorView) ([]*catalog.Ipv4Price, error) {
	items, err := a.retail(ctx, "serviceName eq 'Virtual Network' and priceType eq 'Consumption'")
	if err != nil {
		return nil, err
	}

	var prices []*catalog.Ipv4Price
	for _, it := range items {
		if it.MeterName != "Standard Static Public IP" || it.RetailPrice <= 0 {
			continue
		}
		if _, ok := v.Region(it.ArmRegionName); !ok {
			continue
		}
		prices = append(prices, &catalog.Ipv4Price{
			VendorID: "azure",
			RegionID: it.ArmRegionName,
			Unit:     catalog.UnitHour,
			Price:    it.RetailPrice,
			Currency: it.CurrencyCode,
		})
	}
	return prices, nil
}

func architecture(arch string) catalog.CPUArchitecture {
	if strings.EqualFold(arch, "Arm64") {
		return catalog.ArchARM64
	}
	return catalog.ArchX8664
}

// B-series is burstable; everything else gets dedicated vCPU time.
func cpuAllocation(skuName string) catalog.CPUAllocation {
	if strings.HasPrefix(skuName, "Standard_B") {
		return catalog.CPUAllocationBurstable
	}
	return catalog.CPUAllocationDedicated
}
