// Package ovh pulls the OVHcloud public-cloud inventory: regions and
// flavors from the signed project API, prices from the public order
// catalog. OVH regions are single-AZ, so zones are 1:1 dummies.
package ovh

import (
	"context"
	"crypto/sha1"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/internal/vendors"
	"github.com/skucrawler/skucrawler/internal/vendors/httpx"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

const defaultEndpoint = "https://eu.api.ovh.com/1.0"

type Adapter struct {
	client    *httpx.Client
	endpoint  string
	appKey    string
	appSecret string
	consumer  string
	project   string
}

// New reads OVH_ENDPOINT, OVH_CLIENT_ID, OVH_CLIENT_SECRET,
// OVH_CONSUMER_KEY and OVH_PROJECT_ID.
func New(client *httpx.Client) (catalog.Adapter, error) {
	a := &Adapter{
		client:    client,
		endpoint:  os.Getenv("OVH_ENDPOINT"),
		appKey:    os.Getenv("OVH_CLIENT_ID"),
		appSecret: os.Getenv("OVH_CLIENT_SECRET"),
		consumer:  os.Getenv("OVH_CONSUMER_KEY"),
		project:   os.Getenv("OVH_PROJECT_ID"),
	}
	if a.endpoint == "" {
		a.endpoint = defaultEndpoint
	}
	if a.appKey == "" || a.appSecret == "" || a.consumer == "" || a.project == "" {
		return nil, fmt.Errorf("OVH_CLIENT_ID, OVH_CLIENT_SECRET, OVH_CONSUMER_KEY and OVH_PROJECT_ID are not all set")
	}
	return a, nil
}

func (a *Adapter) VendorID() string { return "ovh" }

// get performs a signed project-API call. The signature covers the full
// URL, the empty body and a timestamp, per the OVH first-party auth
// scheme.
func (a *Adapter) get(ctx context.Context, path string, out any) error {
	url := a.endpoint + path
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	raw := sha1.Sum([]byte(a.appSecret + "+" + a.consumer + "+GET+" + url + "++" + ts))
	headers := map[string]string{
		"X-Ovh-Application": a.appKey,
		"X-Ovh-Consumer":    a.consumer,
		"X-Ovh-Timestamp":   ts,
		"X-Ovh-Signature":   fmt.Sprintf("$1$%x", raw),
	}
	return a.client.GetJSON(ctx, url, headers, out)
}

// getPublic fetches an unauthenticated endpoint (the order catalog).
func (a *Adapter) getPublic(ctx context.Context, path string, out any) error {
	return a.client.GetJSON(ctx, a.endpoint+path, nil, out)
}

// datacenterInfo locates an OVH datacenter code.
type datacenterInfo struct {
	country string
	city    string
	lat     float64
	lon     float64
	founded int
}

var datacenters = map[string]datacenterInfo{
	"BHS": {country: "CA", city: "Beauharnois", lat: 45.3151, lon: -73.8779, founded: 2012},
	"DE":  {country: "DE", city: "Limburg", lat: 50.3836, lon: 8.0503, founded: 2017},
	"GRA": {country: "FR", city: "Gravelines", lat: 50.9871, lon: 2.1255, founded: 2013},
	"RBX": {country: "FR", city: "Roubaix", lat: 50.6942, lon: 3.1746, founded: 1999},
	"SBG": {country: "FR", city: "Strasbourg", lat: 48.5734, lon: 7.7521, founded: 2012},
	"SGP": {country: "SG", city: "Singapore", lat: 1.3521, lon: 103.8198, founded: 2016},
	"SYD": {country: "AU", city: "Sydney", lat: -33.8688, lon: 151.2093, founded: 2016},
	"UK":  {country: "GB", city: "London", lat: 51.5074, lon: -0.1278, founded: 2017},
	"US":  {country: "US", city: "Vint Hill", lat: 38.7468, lon: -77.7036, founded: 2017},
	"WAW": {country: "PL", city: "Warsaw", lat: 52.2297, lon: 21.0122, founded: 2016},
}

func (a *Adapter) InventoryComplianceFrameworks(ctx context.Context, v *catalog.VendorView) ([]*catalog.VendorComplianceLink, error) {
	return []*catalog.VendorComplianceLink{
		{VendorID: "ovh", ComplianceFrameworkID: "iso27001"},
		{VendorID: "ovh", ComplianceFrameworkID: "hipaa"},
	}, nil
}

func (a *Adapter) InventoryRegions(ctx context.Context, v *catalog.VendorView) ([]*catalog.Region, error) {
	var names []string
	if err := a.get(ctx, "/cloud/project/"+a.project+"/region", &names); err != nil {
		return nil, err
	}
	sort.Strings(names)

	var mu sync.Mutex
	var regions []*catalog.Region
	task := v.Tracker.StartTask("ovh regions", len(names))
	defer v.Tracker.HideTask(task)

	err := vendors.ForEach(ctx, names, vendors.DefaultWorkers, func(ctx context.Context, name string) error {
		var detail struct {
			Name               string `json:"name"`
			DatacenterLocation string `json:"datacenterLocation"`
			Status             string `json:"status"`
		}
		if err := a.get(ctx, "/cloud/project/"+a.project+"/region/"+name, &detail); err != nil {
			return err
		}
		v.Tracker.AdvanceTask(task, 1)

		info, ok := datacenters[detail.DatacenterLocation]
		if !ok {
			v.Log.Warn("unknown datacenter location", "region", name, "location", detail.DatacenterLocation)
			return nil
		}
		r := &catalog.Region{
			VendorID:     "ovh",
			RegionID:     name,
			Name:         name,
			APIReference: name,
			DisplayName:  info.city + " (" + name + ")",
			CountryID:    info.country,
			City:         util.Ptr(info.city),
			Lat:          util.Ptr(info.lat),
			Lon:          util.Ptr(info.lon),
			FoundingYear: util.Ptr(info.founded),
			GreenEnergy:  util.Ptr(true),
		}
		if detail.Status != "UP" {
			r.Status = catalog.StatusInactive
		}
		mu.Lock()
		regions = append(regions, r)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return regions, nil
}

func (a *Adapter) InventoryZones(ctx context.Context, v *catalog.VendorView) ([]*catalog.Zone, error) {
	return vendors.DummyZones(v.Regions), nil
}

type flavor struct {
	Name      string `json:"name"`
	Region    string `json:"region"`
	Vcpus     int    `json:"vcpus"`
	RAM       int64  `json:"ram"`  // MB
	Disk      int64  `json:"disk"` // GB
	Type      string `json:"type"`
	OSType    string `json:"osType"`
	Available bool   `json:"available"`
	PlanCodes struct {
		Hourly  string `json:"hourly"`
		Monthly string `json:"monthly"`
	} `json:"planCodes"`
}

func (a *Adapter) flavors(ctx context.Context, v *catalog.VendorView) ([]flavor, error) {
	var mu sync.Mutex
	var out []flavor
	task := v.Tracker.StartTask("ovh flavors", len(v.Regions))
	defer v.Tracker.HideTask(task)

	err := vendors.ForEach(ctx, v.Regions, vendors.DefaultWorkers, func(ctx context.Context, r *catalog.Region) error {
		var flavors []flavor
		if err := a.get(ctx, "/cloud/project/"+a.project+"/flavor?region="+r.RegionID, &flavors); err != nil {
			return err
		}
		v.Tracker.AdvanceTask(task, 1)
		mu.Lock()
		out = append(out, flavors...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Adapter) InventoryServers(ctx context.Context, v *catalog.VendorView) ([]*catalog.Server, error) {
	flavors, err := a.flavors(ctx, v)
	if err != nil {
		return nil, err
	}

	// The same flavor repeats per region; keep one server per name.
	seen := map[string]bool{}
	var servers []*catalog.Server
	for _, f := range flavors {
		if f.OSType == "windows" || seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		servers = append(servers, &catalog.Server{
			VendorID:        "ovh",
			ServerID:        f.Name,
			Name:            f.Name,
			APIReference:    f.Name,
			DisplayName:     f.Name,
			Family:          util.Ptr(flavorFamily(f.Name)),
			VCpus:           f.Vcpus,
			CPUAllocation:   cpuAllocation(f.Name),
			CPUArchitecture: catalog.ArchX8664,
			MemoryAmount:    f.RAM,
			StorageSize:     float64(f.Disk),
			StorageType:     util.Ptr(storageType(f.Type)),
		})
	}
	return servers, nil
}

// catalogPrices maps plan codes to hourly EUR prices from the public
// order catalog. Prices are listed in 1e-8 EUR.
func (a *Adapter) catalogPrices(ctx context.Context) (map[string]float64, error) {
	var resp struct {
		Addons []struct {
			PlanCode string `json:"planCode"`
			Pricings []struct {
				Price        int64  `json:"price"`
				IntervalUnit string `json:"intervalUnit"`
			} `json:"pricings"`
		} `json:"addons"`
	}
	if err := a.getPublic(ctx, "/order/catalog/public/cloud?ovhSubsidiary=IE", &resp); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(resp.Addons))
	for _, addon := range resp.Addons {
		for _, p := range addon.Pricings {
			if p.IntervalUnit == "hour" || p.IntervalUnit == "none" {
				prices[addon.PlanCode] = float64(p.Price) / 1e8
				break
			}
		}
	}
	return prices, nil
}

func (a *Adapter) InventoryServerPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	flavors, err := a.flavors(ctx, v)
	if err != nil {
		return nil, err
	}
	planPrices, err := a.catalogPrices(ctx)
	if err != nil {
		return nil, err
	}

	var prices []*catalog.ServerPrice
	for _, f := range flavors {
		if f.OSType == "windows" || !f.Available {
			continue
		}
		if _, ok := v.Region(f.Region); !ok {
			continue
		}
		if _, ok := v.Server(f.Name); !ok {
			continue
		}
		price, ok := planPrices[f.PlanCodes.Hourly]
		if !ok {
			continue
		}
		prices = append(prices, &catalog.ServerPrice{
			VendorID:        "ovh",
			RegionID:        f.Region,
			ZoneID:          f.Region,
			ServerID:        f.Name,
			Allocation:      catalog.AllocationOnDemand,
			OperatingSystem: "Linux",
			Unit:            catalog.UnitHour,
			Price:           price,
			Currency:        "EUR",
		})
	}
	return prices, nil
}

// OVH sells no spot capacity.
func (a *Adapter) InventoryServerPricesSpot(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	return nil, nil
}

var volumeTypes = []struct {
	id       string
	name     string
	typ      catalog.StorageType
	planCode string
}{
	{"classic", "Classic", catalog.StorageNetwork, "volume.classic.consumption"},
	{"high-speed", "High Speed", catalog.StorageNetwork, "volume.high-speed.consumption"},
	{"high-speed-gen2", "High Speed Gen2", catalog.StorageNetwork, "volume.high-speed-gen2.consumption"},
}

func (a *Adapter) InventoryStorages(ctx context.Context, v *catalog.VendorView) ([]*catalog.Storage, error) {
	var out []*catalog.Storage
	for _, t := range volumeTypes {
		out = append(out, &catalog.Storage{
			VendorID:    "ovh",
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
	planPrices, err := a.catalogPrices(ctx)
	if err != nil {
		return nil, err
	}

	var prices []*catalog.StoragePrice
	for _, t := range volumeTypes {
		hourly, ok := planPrices[t.planCode]
		if !ok {
			continue
		}
		for _, r := range v.Regions {
			prices = append(prices, &catalog.StoragePrice{
				VendorID:  "ovh",
				RegionID:  r.RegionID,
				StorageID: t.id,
				Unit:      catalog.UnitGBMonth,
				Price:     hourly * 730,
				Currency:  "EUR",
			})
		}
	}
	return prices, nil
}

// Public-cloud traffic and IPv4 addresses are included in the instance
// price.
func (a *Adapter) InventoryTrafficPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.TrafficPrice, error) {
	return nil, nil
}

func (a *Adapter) InventoryIpv4Prices(ctx context.Context, v *catalog.VendorView) ([]*catalog.Ipv4Price, error) {
	return nil, nil
}

func flavorFamily(name string) string {
	if i := strings.IndexAny(name, "0123456789-"); i > 0 {
		return name[:i]
	}
	return name
}

// Sandbox (s1, d2) flavors share cores; the rest are dedicated threads.
func cpuAllocation(name string) catalog.CPUAllocation {
	family := flavorFamily(name)
	if family == "s" || family == "d" {
		return catalog.CPUAllocationShared
	}
	return catalog.CPUAllocationDedicated
}

func storageType(flavorType string) catalog.StorageType {
	if strings.Contains(flavorType, "ssd") || strings.Contains(flavorType, "nvme") {
		return catalog.StorageNVMeSSD
	}
	return catalog.StorageNetwork
}
