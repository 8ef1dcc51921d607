// Package gcp pulls the Google Cloud inventory: regions, zones and
// machine types from the Compute Engine REST API, prices from the Cloud
// Billing catalog. Auth comes from application default credentials via
// golang.org/x/oauth2/google.
package gcp

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/internal/vendors/httpx"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

const (
	computeBase = "https://compute.googleapis.com/compute/v1"
	// computeService is the Compute Engine service id in the billing
	// catalog.
	billingSkus = "https://cloudbilling.googleapis.com/v1/services/6F81-5844-456A/skus"
)

type Adapter struct {
	client  *httpx.Client
	project string
	tokens  oauth2.TokenSource
}

// New reads GOOGLE_CLOUD_PROJECT and resolves application default
// credentials; both missing is a startup configuration error.
func New(ctx context.Context, client *httpx.Client) (catalog.Adapter, error) {
	project := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if project == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT is not set")
	}
	tokens, err := google.DefaultTokenSource(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("resolving Google credentials: %w", err)
	}
	return &Adapter{client: client, project: project, tokens: tokens}, nil
}

func (a *Adapter) VendorID() string { return "gcp" }

func (a *Adapter) get(ctx context.Context, url string, out any) error {
	tok, err := a.tokens.Token()
	if err != nil {
		return fmt.Errorf("fetching access token: %w", err)
	}
	headers := map[string]string{"Authorization": "Bearer " + tok.AccessToken}
	return a.client.GetJSON(ctx, url, headers, out)
}

// regionInfo locates a region; the API reports no geography.
type regionInfo struct {
	country string
	city    string
}

var regionInfos = map[string]regionInfo{
	"asia-east1":              {country: "TW", city: "Changhua County"},
	"asia-east2":              {country: "HK", city: "Hong Kong"},
	"asia-northeast1":         {country: "JP", city: "Tokyo"},
	"asia-northeast2":         {country: "JP", city: "Osaka"},
	"asia-northeast3":         {country: "KR", city: "Seoul"},
	"asia-south1":             {country: "IN", city: "Mumbai"},
	"asia-south2":             {country: "IN", city: "Delhi"},
	"asia-southeast1":         {country: "SG", city: "Jurong West"},
	"asia-southeast2":         {country: "ID", city: "Jakarta"},
	"australia-southeast1":    {country: "AU", city: "Sydney"},
	"australia-southeast2":    {country: "AU", city: "Melbourne"},
	"europe-central2":         {country: "PL", city: "Warsaw"},
	"europe-north1":           {country: "FI", city: "Hamina"},
	"europe-southwest1":       {country: "ES", city: "Madrid"},
	"europe-west1":            {country: "BE", city: "St. Ghislain"},
	"europe-west2":            {country: "GB", city: "London"},
	"europe-west3":            {country: "DE", city: "Frankfurt"},
	"europe-west4":            {country: "NL", city: "Eemshaven"},
	"europe-west6":            {country: "CH", city: "Zurich"},
	"europe-west8":            {country: "IT", city: "Milan"},
	"europe-west9":            {country: "FR", city: "Paris"},
	"europe-west10":           {country: "DE", city: "Berlin"},
	"europe-west12":           {country: "IT", city: "Turin"},
	"me-central1":             {country: "QA", city: "Doha"},
	"me-west1":                {country: "IL", city: "Tel Aviv"},
	"northamerica-northeast1": {country: "CA", city: "Montreal"},
	"northamerica-northeast2": {country: "CA", city: "Toronto"},
	"southamerica-east1":      {country: "BR", city: "Sao Paulo"},
	"southamerica-west1":      {country: "CL", city: "Santiago"},
	"us-central1":             {country: "US", city: "Council Bluffs"},
	"us-east1":                {country: "US", city: "Moncks Corner"},
	"us-east4":                {country: "US", city: "Ashburn"},
	"us-east5":                {country: "US", city: "Columbus"},
	"us-south1":               {country: "US", city: "Dallas"},
	"us-west1":                {country: "US", city: "The Dalles"},
	"us-west2":                {country: "US", city: "Los Angeles"},
	"us-west3":                {country: "US", city: "Salt Lake City"},
	"us-west4":                {country: "US", city: "Las Vegas"},
}

func (a *Adapter) InventoryComplianceFrameworks(ctx context.Context, v *catalog.VendorView) ([]*catalog.VendorComplianceLink, error) {
	return []*catalog.VendorComplianceLink{
		{VendorID: "gcp", ComplianceFrameworkID: "iso27001"},
		{VendorID: "gcp", ComplianceFrameworkID: "soc2t2"},
		{VendorID: "gcp", ComplianceFrameworkID: "hipaa"},
	}, nil
}

func (a *Adapter) InventoryRegions(ctx context.Context, v *catalog.VendorView) ([]*catalog.Region, error) {
	var regions []*catalog.Region
	url := computeBase + "/projects/" + a.project + "/regions"
	token := ""
	for {
		var resp struct {
			Items []struct {
				Name   string `json:"name"`
				Status string `json:"status"`
			} `json:"items"`
			NextPageToken string `json:"nextPageToken"`
		}
		page := url
		if token != "" {
			page += "?pageToken=" + token
		}
		if err := a.get(ctx, page, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			info, ok := regionInfos[item.Name]
			if !ok {
				v.Log.Warn("unknown region, skipping", "region", item.Name)
				continue
			}
			r := &catalog.Region{
				VendorID:     "gcp",
				RegionID:     item.Name,
				Name:         item.Name,
				APIReference: item.Name,
				DisplayName:  info.city + " (" + item.Name + ")",
				CountryID:    info.country,
				City:         util.Ptr(info.city),
			}
			if item.Status != "UP" {
				r.Status = catalog.StatusInactive
			}
			regions = append(regions, r)
		}
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	return regions, nil
}

func (a *Adapter) zoneNames(ctx context.Context) (map[string][]string, error) {
	byRegion := map[string][]string{}
	url := computeBase + "/projects/" + a.project + "/zones"
	token := ""
	for {
		var resp struct {
			Items []struct {
				Name   string `json:"name"`
				Region string `json:"region"` // URL
			} `json:"items"`
			NextPageToken string `json:"nextPageToken"`
		}
		page := url
		if token != "" {
			page += "?pageToken=" + token
		}
		if err := a.get(ctx, page, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			region := item.Region[strings.LastIndex(item.Region, "/")+1:]
			byRegion[region] = append(byRegion[region], item.Name)
		}
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	return byRegion, nil
}

func (a *Adapter) InventoryZones(ctx context.Context, v *catalog.VendorView) ([]*catalog.Zone, error) {
	byRegion, err := a.zoneNames(ctx)
	if err != nil {
		return nil, err
	}

	var zones []*catalog.Zone
	for region, names := range byRegion {
		if _, ok := v.Region(region); !ok {
			continue
		}
		for _, name := range names {
			zones = append(zones, &catalog.Zone{
				VendorID:     "gcp",
				RegionID:     region,
				ZoneID:       name,
				Name:         name,
				APIReference: name,
				DisplayName:  name,
			})
		}
	}
	return zones, nil
}

type machineType struct {
	Name         string `json:"name"`
	GuestCpus    int    `json:"guestCpus"`
	MemoryMb     int64  `json:"memoryMb"`
	IsSharedCpu  bool   `json:"isSharedCpu"`
	Accelerators []struct {
		GuestAcceleratorType  string `json:"guestAcceleratorType"`
		GuestAcceleratorCount int    `json:"guestAcceleratorCount"`
	} `json:"accelerators"`
	Deprecated *struct {
		State string `json:"state"`
	} `json:"deprecated"`
}

func (a *Adapter) machineTypes(ctx context.Context) ([]machineType, error) {
	var types []machineType
	seen := map[string]bool{}
	url := computeBase + "/projects/" + a.project + "/aggregated/machineTypes?maxResults=500"
	token := ""
	for {
		var resp struct {
			Items map[string]struct {
				MachineTypes []machineType `json:"machineTypes"`
			} `json:"items"`
			NextPageToken string `json:"nextPageToken"`
		}
		page := url
		if token != "" {
			page += "&pageToken=" + token
		}
		if err := a.get(ctx, page, &resp); err != nil {
			return nil, err
		}
		for _, scope := range resp.Items {
			for _, mt := range scope.MachineTypes {
				if seen[mt.Name] {
					continue
				}
				seen[mt.Name] = true
				types = append(types, mt)
			}
		}
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	return types, nil
}

func (a *Adapter) InventoryServers(ctx context.Context, v *catalog.VendorView) ([]*catalog.Server, error) {
	types, err := a.machineTypes(ctx)
	if err != nil {
		return nil, err
	}

	var servers []*catalog.Server
	for _, mt := range types {
		family := machineFamily(mt.Name)
		srv := &catalog.Server{
			VendorID:        "gcp",
			ServerID:        mt.Name,
			Name:            mt.Name,
			APIReference:    mt.Name,
			DisplayName:     mt.Name,
			Family:          util.Ptr(family),
			VCpus:           mt.GuestCpus,
			CPUAllocation:   cpuAllocation(mt),
			CPUArchitecture: architecture(family),
			MemoryAmount:    mt.MemoryMb,
		}
		if mt.Deprecated != nil && mt.Deprecated.State != "" {
			srv.Status = catalog.StatusInactive
		}
		for _, acc := range mt.Accelerators {
			srv.GpuCount += float64(acc.GuestAcceleratorCount)
			if srv.GpuModel == nil {
				srv.GpuManufacturer = util.Ptr("Nvidia")
				srv.GpuModel = util.Ptr(acceleratorModel(acc.GuestAcceleratorType))
			}
		}
		servers = append(servers, srv)
	}
	return servers, nil
}

// sku is one Cloud Billing catalog entry.
type sku struct {
	Description string `json:"description"`
	Category    struct {
		ResourceFamily string `json:"resourceFamily"`
		ResourceGroup  string `json:"resourceGroup"`
		UsageType      string `json:"usageType"`
	} `json:"category"`
	ServiceRegions []string `json:"serviceRegions"`
	PricingInfo    []struct {
		PricingExpression struct {
			UsageUnit   string `json:"usageUnit"`
			TieredRates []struct {
				StartUsageAmount float64 `json:"startUsageAmount"`
				UnitPrice        struct {
					CurrencyCode string `json:"currencyCode"`
					Units        string `json:"units"`
					Nanos        int64  `json:"nanos"`
				} `json:"unitPrice"`
			} `json:"tieredRates"`
		} `json:"pricingExpression"`
	} `json:"pricingInfo"`
}

func (s *sku) rate() float64 {
	if len(s.PricingInfo) == 0 {
		return 0
	}
	rates := s.PricingInfo[0].PricingExpression.TieredRates
	if len(rates) == 0 {
		return 0
	}
	last := rates[len(rates)-1].UnitPrice
	var units float64
	fmt.Sscanf(last.Units, "%f", &units)
	return units + float64(last.Nanos)/1e9
}

func (a *Adapter) skus(ctx context.Context) ([]sku, error) {
	var all []sku
	token := ""
	for {
		page := billingSkus + "?pageSize=5000"
		if token != "" {
			page += "&pageToken=" + token
		}
		var resp struct {
			Skus          []sku  `json:"skus"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := a.get(ctx, page, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Skus...)
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	return all, nil
}

// instanceRates holds the per-region hourly core and RAM rates of one
// machine family.
type instanceRates struct {
	core float64 // per vCPU hour
	ram  float64 // per GiB hour
}

// familyRates indexes OnDemand or Preemptible compute rates by
// (region, family). Machine prices are assembled from these because the
// catalog prices cores and RAM separately.
func familyRates(skus []sku, usageType string) map[string]map[string]instanceRates {
	out := map[string]map[string]instanceRates{}
	for _, s := range skus {
		if s.Category.ResourceFamily != "Compute" || s.Category.UsageType != usageType {
			continue
		}
		var isCore bool
		switch s.Category.ResourceGroup {
		case "CPU":
			isCore = true
		case "RAM":
		default:
			continue
		}
		family, ok := skuFamily(s.Description)
		if !ok {
			continue
		}
		rate := s.rate()
		if rate <= 0 {
			continue
		}
		for _, region := range s.ServiceRegions {
			if out[region] == nil {
				out[region] = map[string]instanceRates{}
			}
			r := out[region][family]
			if isCore {
				r.core = rate
			} else {
				r.ram = rate
			}
			out[region][family] = r
		}
	}
	return out
}

// skuFamily extracts the machine family from descriptions like
// "N2 Instance Core running in Americas". Custom and sole-tenant SKUs
// are skipped.
func skuFamily(desc string) (string, bool) {
	if strings.Contains(desc, "Custom") || strings.Contains(desc, "Sole Tenancy") {
		return "", false
	}
	for _, marker := range []string{" Instance Core", " Instance Ram", " Predefined Instance Core", " Predefined Instance Ram"} {
		if i := strings.Index(desc, marker); i > 0 {
			family := strings.ToLower(desc[:i])
			family = strings.TrimSuffix(family, " predefined")
			return family, true
		}
	}
	return "", false
}

func (a *Adapter) machinePrices(ctx context.Context, v *catalog.VendorView, usageType string, alloc catalog.Allocation) ([]*catalog.ServerPrice, error) {
	skus, err := a.skus(ctx)
	if err != nil {
		return nil, err
	}
	rates := familyRates(skus, usageType)
	zones, err := a.zoneNames(ctx)
	if err != nil {
		return nil, err
	}

	var prices []*catalog.ServerPrice
	for _, r := range v.Regions {
		regionRates, ok := rates[r.RegionID]
		if !ok {
			continue
		}
		for _, srv := range v.Servers {
			fr, ok := regionRates[machineFamily(srv.ServerID)]
			if !ok || fr.core == 0 {
				continue
			}
			hourly := fr.core*float64(srv.VCpus) + fr.ram*float64(srv.MemoryAmount)/1024
			for _, zone := range zones[r.RegionID] {
				prices = append(prices, &catalog.ServerPrice{
					VendorID:        "gcp",
					RegionID:        r.RegionID,
					ZoneID:          zone,
					ServerID:        srv.ServerID,
					Allocation:      alloc,
					OperatingSystem: "Linux",
					Unit:            catalog.UnitHour,
					Price:           hourly,
					Currency:        "USD",
				})
			}
		}
	}
	return prices, nil
}

func (a *Adapter) InventoryServerPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	return a.machinePrices(ctx, v, "OnDemand", catalog.AllocationOnDemand)
}

// GCP spot capacity is priced as Preemptible in the billing catalog.
func (a *Adapter) InventoryServerPricesSpot(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	return a.machinePrices(ctx, v, "Preemptible", catalog.AllocationSpot)
}

var diskTypes = []struct {
	id     string
	name   string
	typ    catalog.StorageType
	marker string // billing catalog description marker
}{
	{"pd-standard", "Standard persistent disk", catalog.StorageHDD, "Storage PD Capacity"},
	{"pd-balanced", "Balanced persistent disk", catalog.StorageSSD, "Balanced PD Capacity"},
	{"pd-ssd", "SSD persistent disk", catalog.StorageSSD, "SSD backed PD Capacity"},
	{"pd-extreme", "Extreme persistent disk", catalog.StorageNVMeSSD, "Extreme PD Capacity"},
}

func (a *Adapter) InventoryStorages(ctx context.Context, v *catalog.VendorView) ([]*catalog.Storage, error) {
	var out []*catalog.Storage
	for _, t := range diskTypes {
		out = append(out, &catalog.Storage{
			VendorID:    "gcp",
			StorageID:   t.id,
			Name:        t.name,
			StorageType: t.typ,
			MinSize:     util.Ptr(int64(10)),
			MaxSize:     util.Ptr(int64(65536)),
		})
	}
	return out, nil
}

func (a *Adapter) InventoryStoragePrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.StoragePrice, error) {
	skus, err := a.skus(ctx)
	if err != nil {
		return nil, err
	}

	var prices []*catalog.StoragePrice
	for _, s := range skus {
		if s.Category.ResourceFamily != "Storage" || s.Category.UsageType != "OnDemand" {
			continue
		}
		for _, t := range diskTypes {
			if !strings.HasPrefix(s.Description, t.marker) {
				continue
			}
			rate := s.rate()
			if rate <= 0 {
				continue
			}
			for _, region := range s.ServiceRegions {
				if _, ok := v.Region(region); !ok {
					continue
				}
				prices = append(prices, &catalog.StoragePrice{
					VendorID:  "gcp",
					RegionID:  region,
					StorageID: t.id,
					Unit:      catalog.UnitGBMonth,
					Price:     rate,
					Currency:  "USD",
				})
			}
		}
	}
	return prices, nil
}

// Standard-tier internet egress, tiered by monthly volume.
var egressTiers = []catalog.PriceTier{
	{Lower: 0, Upper: 1024, Price: 0.12},
	{Lower: 1024, Upper: 10240, Price: 0.11},
	{Lower: 10240, Upper: catalog.InfFloat(math.Inf(1)), Price: 0.08},
}

func (a *Adapter) InventoryTrafficPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.TrafficPrice, error) {
	var prices []*catalog.TrafficPrice
	for _, r := range v.Regions {
		prices = append(prices, &catalog.TrafficPrice{
			VendorID:    "gcp",
			RegionID:    r.RegionID,
			Direction:   catalog.TrafficOut,
			Unit:        catalog.UnitGB,
			Price:       egressTiers[0].Price,
			PriceTiered: egressTiers,
			Currency:    "USD",
		})
	}
	return prices, nil
}

func (a *Adapter) InventoryIpv4Prices(ctx context.Context, v *catalog.VendorView) ([]*catalog.Ipv4Price, error) {
	// In-use external IPv4 addresses bill at a flat hourly rate.
	var prices []*catalog.Ipv4Price
	for _, r := range v.Regions {
		prices = append(prices, &catalog.Ipv4Price{
			VendorID: "gcp",
			RegionID: r.RegionID,
			Unit:     catalog.UnitHour,
			Price:    0.005,
			Currency: "USD",
		})
	}
	return prices, nil
}

func machineFamily(name string) string {
	if i := strings.Index(name, "-"); i > 0 {
		return name[:i]
	}
	return name
}

func architecture(family string) catalog.CPUArchitecture {
	switch family {
	case "t2a", "c4a":
		return catalog.ArchARM64
	default:
		return catalog.ArchX8664
	}
}

func cpuAllocation(mt machineType) catalog.CPUAllocation {
	if mt.IsSharedCpu {
		return catalog.CPUAllocationShared
	}
	if machineFamily(mt.Name) == "e2" {
		return catalog.CPUAllocationBurstable
	}
	return catalog.CPUAllocationDedicated
}

// acceleratorModel turns "nvidia-tesla-a100" into "A100".
func acceleratorModel(t string) string {
	parts := strings.Split(t, "-")
	last := parts[len(parts)-1]
	return strings.ToUpper(last)
}
