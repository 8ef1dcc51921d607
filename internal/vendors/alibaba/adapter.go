// Package alibaba pulls the Alibaba Cloud ECS inventory through the RPC
// API at ecs.aliyuncs.com, signing every request with HMAC-SHA1.
package alibaba

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/internal/vendors"
	"github.com/skucrawler/skucrawler/internal/vendors/httpx"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

const (
	endpoint   = "https://ecs.aliyuncs.com/"
	apiVersion = "2014-05-26"
)

type Adapter struct {
	client    *httpx.Client
	accessKey string
	secret    string
}

// New reads ALIBABA_CLOUD_ACCESS_KEY_ID and
// ALIBABA_CLOUD_ACCESS_KEY_SECRET.
func New(client *httpx.Client) (catalog.Adapter, error) {
	key := os.Getenv("ALIBABA_CLOUD_ACCESS_KEY_ID")
	secret := os.Getenv("ALIBABA_CLOUD_ACCESS_KEY_SECRET")
	if key == "" || secret == "" {
		return nil, fmt.Errorf("ALIBABA_CLOUD_ACCESS_KEY_ID and ALIBABA_CLOUD_ACCESS_KEY_SECRET are not set")
	}
	return &Adapter{client: client, accessKey: key, secret: secret}, nil
}

func (a *Adapter) VendorID() string { return "alibaba" }

// rpc performs a signed RPC GET. The signature is HMAC-SHA1 over the
// sorted, percent-encoded query string, per the Aliyun RPC signature
// spec.
func (a *Adapter) rpc(ctx context.Context, action string, params map[string]string, out any) error {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	all := map[string]string{
		"Action":           action,
		"Format":           "JSON",
		"Version":          apiVersion,
		"AccessKeyId":      a.accessKey,
		"SignatureMethod":  "HMAC-SHA1",
		"SignatureVersion": "1.0",
		"SignatureNonce":   hex.EncodeToString(nonce),
		"Timestamp":        time.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}
	for k, v := range params {
		all[k] = v
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, encode(k)+"="+encode(all[k]))
	}
	canonical := strings.Join(pairs, "&")
	toSign := "GET&" + encode("/") + "&" + encode(canonical)

	mac := hmac.New(sha1.New, []byte(a.secret+"&"))
	mac.Write([]byte(toSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	full := endpoint + "?" + canonical + "&Signature=" + encode(signature)
	return a.client.GetJSON(ctx, full, nil, out)
}

// encode percent-encodes per RFC 3986, the way the signature spec
// requires (space as %20, tilde unescaped).
func encode(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	e = strings.ReplaceAll(e, "*", "%2A")
	e = strings.ReplaceAll(e, "%7E", "~")
	return e
}

// regionInfo locates a region; the API reports only a Chinese or English
// local name.
type regionInfo struct {
	country string
	city    string
}

var regionInfos = map[string]regionInfo{
	"cn-qingdao":     {country: "CN", city: "Qingdao"},
	"cn-beijing":     {country: "CN", city: "Beijing"},
	"cn-zhangjiakou": {country: "CN", city: "Zhangjiakou"},
	"cn-huhehaote":   {country: "CN", city: "Hohhot"},
	"cn-wulanchabu":  {country: "CN", city: "Ulanqab"},
	"cn-hangzhou":    {country: "CN", city: "Hangzhou"},
	"cn-shanghai":    {country: "CN", city: "Shanghai"},
	"cn-nanjing":     {country: "CN", city: "Nanjing"},
	"cn-shenzhen":    {country: "CN", city: "Shenzhen"},
	"cn-heyuan":      {country: "CN", city: "Heyuan"},
	"cn-guangzhou":   {country: "CN", city: "Guangzhou"},
	"cn-fuzhou":      {country: "CN", city: "Fuzhou"},
	"cn-wuhan-lr":    {country: "CN", city: "Wuhan"},
	"cn-chengdu":     {country: "CN", city: "Chengdu"},
	"cn-hongkong":    {country: "HK", city: "Hong Kong"},
	"ap-northeast-1": {country: "JP", city: "Tokyo"},
	"ap-northeast-2": {country: "KR", city: "Seoul"},
	"ap-southeast-1": {country: "SG", city: "Singapore"},
	"ap-southeast-3": {country: "MY", city: "Kuala Lumpur"},
	"ap-southeast-5": {country: "ID", city: "Jakarta"},
	"ap-southeast-6": {country: "PH", city: "Manila"},
	"ap-southeast-7": {country: "TH", city: "Bangkok"},
	"us-east-1":      {country: "US", city: "Ashburn"},
	"us-west-1":      {country: "US", city: "San Mateo"},
	"eu-west-1":      {country: "GB", city: "London"},
	"eu-central-1":   {country: "DE", city: "Frankfurt"},
	"me-east-1":      {country: "AE", city: "Dubai"},
}

func (a *Adapter) InventoryComplianceFrameworks(ctx context.Context, v *catalog.VendorView) ([]*catalog.VendorComplianceLink, error) {
	return []*catalog.VendorComplianceLink{
		{VendorID: "alibaba", ComplianceFrameworkID: "iso27001"},
		{VendorID: "alibaba", ComplianceFrameworkID: "soc2t2"},
	}, nil
}

func (a *Adapter) InventoryRegions(ctx context.Context, v *catalog.VendorView) ([]*catalog.Region, error) {
	var resp struct {
		Regions struct {
			Region []struct {
				RegionID  string `json:"RegionId"`
				LocalName string `json:"LocalName"`
			} `json:"Region"`
		} `json:"Regions"`
	}
	if err := a.rpc(ctx, "DescribeRegions", map[string]string{"AcceptLanguage": "en-US"}, &resp); err != nil {
		return nil, err
	}

	var regions []*catalog.Region
	for _, r := range resp.Regions.Region {
		info, ok := regionInfos[r.RegionID]
		if !ok {
			v.Log.Warn("unknown region, skipping", "region", r.RegionID)
			continue
		}
		regions = append(regions, &catalog.Region{
			VendorID:     "alibaba",
			RegionID:     r.RegionID,
			Name:         r.RegionID,
			APIReference: r.RegionID,
			DisplayName:  r.LocalName,
			CountryID:    info.country,
			City:         util.Ptr(info.city),
		})
	}
	return regions, nil
}

func (a *Adapter) InventoryZones(ctx context.Context, v *catalog.VendorView) ([]*catalog.Zone, error) {
	var mu sync.Mutex
	var zones []*catalog.Zone
	task := v.Tracker.StartTask("alibaba zones", len(v.Regions))
	defer v.Tracker.HideTask(task)

	err := vendors.ForEach(ctx, v.Regions, vendors.DefaultWorkers, func(ctx context.Context, r *catalog.Region) error {
		zs, err := a.zones(ctx, r.RegionID)
		if err != nil {
			return err
		}
		v.Tracker.AdvanceTask(task, 1)
		mu.Lock()
		zones = append(zones, zs...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return zones, nil
}

func (a *Adapter) zones(ctx context.Context, regionID string) ([]*catalog.Zone, error) {
	var resp struct {
		Zones struct {
			Zone []struct {
				ZoneID    string `json:"ZoneId"`
				LocalName string `json:"LocalName"`
			} `json:"Zone"`
		} `json:"Zones"`
	}
	params := map[string]string{"RegionId": regionID, "AcceptLanguage": "en-US"}
	if err := a.rpc(ctx, "DescribeZones", params, &resp); err != nil {
		return nil, err
	}

	var zones []*catalog.Zone
	for _, z := range resp.Zones.Zone {
		zones = append(zones, &catalog.Zone{
			VendorID:     "alibaba",
			RegionID:     regionID,
			ZoneID:       z.ZoneID,
			Name:         z.ZoneID,
			APIReference: z.ZoneID,
			DisplayName:  z.LocalName,
		})
	}
	return zones, nil
}

type instanceType struct {
	InstanceTypeID         string  `json:"InstanceTypeId"`
	InstanceTypeFamily     string  `json:"InstanceTypeFamily"`
	CPUCoreCount           int     `json:"CpuCoreCount"`
	CPUArchitecture        string  `json:"CpuArchitecture"`
	PhysicalProcessorModel string  `json:"PhysicalProcessorModel"`
	MemorySize             float64 `json:"MemorySize"` // GiB
	GPUAmount              float64 `json:"GPUAmount"`
	GPUSpec                string  `json:"GPUSpec"`
	LocalStorageCapacity   int64   `json:"LocalStorageCapacity"` // GiB
	LocalStorageCategory   string  `json:"LocalStorageCategory"`
}

func (a *Adapter) InventoryServers(ctx context.Context, v *catalog.VendorView) ([]*catalog.Server, error) {
	var types []instanceType
	token := ""
	for {
		var resp struct {
			InstanceTypes struct {
				InstanceType []instanceType `json:"InstanceType"`
			} `json:"InstanceTypes"`
			NextToken string `json:"NextToken"`
		}
		params := map[string]string{"MaxResults": "100"}
		if token != "" {
			params["NextToken"] = token
		}
		if err := a.rpc(ctx, "DescribeInstanceTypes", params, &resp); err != nil {
			return nil, err
		}
		types = append(types, resp.InstanceTypes.InstanceType...)
		if resp.NextToken == "" {
			break
		}
		token = resp.NextToken
	}

	var servers []*catalog.Server
	for _, t := range types {
		srv := &catalog.Server{
			VendorID:        "alibaba",
			ServerID:        t.InstanceTypeID,
			Name:            t.InstanceTypeID,
			APIReference:    t.InstanceTypeID,
			DisplayName:     t.InstanceTypeID,
			Family:          util.Ptr(t.InstanceTypeFamily),
			VCpus:           t.CPUCoreCount,
			CPUAllocation:   cpuAllocation(t.InstanceTypeFamily),
			CPUArchitecture: architecture(t.CPUArchitecture),
			MemoryAmount:    int64(t.MemorySize * 1024),
			GpuCount:        t.GPUAmount,
		}
		if t.PhysicalProcessorModel != "" {
			srv.CPUModel = util.Ptr(t.PhysicalProcessorModel)
		}
		if t.GPUAmount > 0 && t.GPUSpec != "" {
			srv.GpuModel = util.Ptr(strings.TrimPrefix(t.GPUSpec, "NVIDIA "))
			srv.GpuManufacturer = util.Ptr("Nvidia")
		}
		if t.LocalStorageCapacity > 0 {
			srv.StorageSize = float64(t.LocalStorageCapacity)
			srv.StorageType = util.Ptr(catalog.StorageNVMeSSD)
		}
		servers = append(servers, srv)
	}
	return servers, nil
}

func (a *Adapter) InventoryServerPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	var mu sync.Mutex
	var prices []*catalog.ServerPrice
	task := v.Tracker.StartTask("alibaba ondemand prices", len(v.Regions))
	defer v.Tracker.HideTask(task)

	err := vendors.ForEach(ctx, v.Regions, vendors.DefaultWorkers, func(ctx context.Context, r *catalog.Region) error {
		defer v.Tracker.AdvanceTask(task, 1)
		zones, err := a.zones(ctx, r.RegionID)
		if err != nil {
			return err
		}
		for _, srv := range v.Servers {
			var resp struct {
				PriceInfo struct {
					Price struct {
						TradePrice float64 `json:"TradePrice"`
						Currency   string  `json:"Currency"`
					} `json:"Price"`
				} `json:"PriceInfo"`
			}
			params := map[string]string{
				"RegionId":     r.RegionID,
				"ResourceType": "instance",
				"InstanceType": srv.ServerID,
				"PriceUnit":    "Hour",
			}
			if err := a.rpc(ctx, "DescribePrice", params, &resp); err != nil {
				// Instance types not offered in the region price as an
				// error; they are simply absent there.
				continue
			}
			if resp.PriceInfo.Price.TradePrice <= 0 {
				continue
			}
			mu.Lock()
			for _, z := range zones {
				prices = append(prices, &catalog.ServerPrice{
					VendorID:        "alibaba",
					RegionID:        r.RegionID,
					ZoneID:          z.ZoneID,
					ServerID:        srv.ServerID,
					Allocation:      catalog.AllocationOnDemand,
					OperatingSystem: "Linux",
					Unit:            catalog.UnitHour,
					Price:           resp.PriceInfo.Price.TradePrice,
					Currency:        currency(resp.PriceInfo.Price.Currency),
				})
			}
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prices, nil
}

func (a *Adapter) InventoryServerPricesSpot(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	var mu sync.Mutex
	var prices []*catalog.ServerPrice
	task := v.Tracker.StartTask("alibaba spot prices", len(v.Regions))
	defer v.Tracker.HideTask(task)

	err := vendors.ForEach(ctx, v.Regions, vendors.DefaultWorkers, func(ctx context.Context, r *catalog.Region) error {
		defer v.Tracker.AdvanceTask(task, 1)
		for _, srv := range v.Servers {
			var resp struct {
				SpotPrices struct {
					SpotPriceType []struct {
						ZoneID    string  `json:"ZoneId"`
						SpotPrice float64 `json:"SpotPrice"`
						Timestamp string  `json:"Timestamp"`
					} `json:"SpotPriceType"`
				} `json:"SpotPrices"`
			}
			params := map[string]string{
				"RegionId":     r.RegionID,
				"NetworkType":  "vpc",
				"InstanceType": srv.ServerID,
			}
			if err := a.rpc(ctx, "DescribeSpotPriceHistory", params, &resp); err != nil {
				continue
			}

			// Keep only the latest observation per zone.
			latest := map[string]struct {
				price float64
				ts    string
			}{}
			for _, p := range resp.SpotPrices.SpotPriceType {
				if cur, ok := latest[p.ZoneID]; !ok || p.Timestamp > cur.ts {
					latest[p.ZoneID] = struct {
						price float64
						ts    string
					}{p.SpotPrice, p.Timestamp}
				}
			}
			mu.Lock()
			for zoneID, p := range latest {
				if p.price <= 0 {
					continue
				}
				prices = append(prices, &catalog.ServerPrice{
					VendorID:        "alibaba",
					RegionID:        r.RegionID,
					ZoneID:          zoneID,
					ServerID:        srv.ServerID,
					Allocation:      catalog.AllocationSpot,
					OperatingSystem: "Linux",
					Unit:            catalog.UnitHour,
					Price:           p.price,
					Currency:        "USD",
				})
			}
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prices, nil
}

var diskCategories = []struct {
	id   string
	name string
	typ  catalog.StorageType
}{
	{"cloud_efficiency", "Ultra disk", catalog.StorageHDD},
	{"cloud_ssd", "Standard SSD", catalog.StorageSSD},
	{"cloud_essd", "ESSD", catalog.StorageNVMeSSD},
}

func (a *Adapter) InventoryStorages(ctx context.Context, v *catalog.VendorView) ([]*catalog.Storage, error) {
	var out []*catalog.Storage
	for _, c := range diskCategories {
		out = append(out, &catalog.Storage{
			VendorID:    "alibaba",
			StorageID:   c.id,
			Name:        c.name,
			StorageType: c.typ,
			MinSize:     util.Ptr(int64(20)),
			MaxSize:     util.Ptr(int64(32768)),
		})
	}
	return out, nil
}

func (a *Adapter) InventoryStoragePrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.StoragePrice, error) {
	var mu sync.Mutex
	var prices []*catalog.StoragePrice
	task := v.Tracker.StartTask("alibaba storage prices", len(v.Regions))
	defer v.Tracker.HideTask(task)

	err := vendors.ForEach(ctx, v.Regions, vendors.DefaultWorkers, func(ctx context.Context, r *catalog.Region) error {
		defer v.Tracker.AdvanceTask(task, 1)
		for _, c := range diskCategories {
			var resp struct {
				PriceInfo struct {
					Price struct {
						TradePrice float64 `json:"TradePrice"`
						Currency   string  `json:"Currency"`
					} `json:"Price"`
				} `json:"PriceInfo"`
			}
			params := map[string]string{
				"RegionId":            r.RegionID,
				"ResourceType":        "disk",
				"DataDisk.1.Category": c.id,
				"DataDisk.1.Size":     "100",
				"PriceUnit":           "Month",
			}
			if err := a.rpc(ctx, "DescribePrice", params, &resp); err != nil {
				continue
			}
			if resp.PriceInfo.Price.TradePrice <= 0 {
				continue
			}
			mu.Lock()
			prices = append(prices, &catalog.StoragePrice{
				VendorID:  "alibaba",
				RegionID:  r.RegionID,
				StorageID: c.id,
				Unit:      catalog.UnitGBMonth,
				Price:     resp.PriceInfo.Price.TradePrice / 100,
				Currency:  currency(resp.PriceInfo.Price.Currency),
			})
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prices, nil
}

// Traffic and IPv4 pricing is not exposed through the ECS API.
func (a *Adapter) InventoryTrafficPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.TrafficPrice, error) {
	return nil, nil
}

func (a *Adapter) InventoryIpv4Prices(ctx context.Context, v *catalog.VendorView) ([]*catalog.Ipv4Price, error) {
	return nil, nil
}

func architecture(arch string) catalog.CPUArchitecture {
	switch strings.ToUpper(arch) {
	case "ARM":
		return catalog.ArchARM64
	default:
		return catalog.ArchX8664
	}
}

// Burstable families are t5/t6; shared families start with s6/xn4; the
// rest are dedicated.
func cpuAllocation(family string) catalog.CPUAllocation {
	short := strings.TrimPrefix(family, "ecs.")
	switch {
	case strings.HasPrefix(short, "t"):
		return catalog.CPUAllocationBurstable
	case strings.HasPrefix(short, "s") || strings.HasPrefix(short, "xn"):
		return catalog.CPUAllocationShared
	default:
		return catalog.CPUAllocationDedicated
	}
}

func currency(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}
