package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"

	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/internal/vendors"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// priceDoc is one entry of the Pricing API's PriceList: a JSON document
// per product with its ondemand and reserved terms.
type priceDoc struct {
	Product struct {
		Attributes map[string]string `json:"attributes"`
	} `json:"product"`
	Terms struct {
		OnDemand map[string]priceTerm `json:"OnDemand"`
		Reserved map[string]priceTerm `json:"Reserved"`
	} `json:"terms"`
}

type priceTerm struct {
	PriceDimensions map[string]priceDimension `json:"priceDimensions"`
	TermAttributes  map[string]string         `json:"termAttributes"`
}

type priceDimension struct {
	Unit         string            `json:"unit"`
	PricePerUnit map[string]string `json:"pricePerUnit"`
}

func termMatch(field, value string) pricingtypes.Filter {
	return pricingtypes.Filter{
		Type:  pricingtypes.FilterTypeTermMatch,
		Field: aws.String(field),
		Value: aws.String(value),
	}
}

// products pages through GetProducts and decodes every price document.
func (a *Adapter) products(ctx context.Context, serviceCode string, filters []pricingtypes.Filter) ([]priceDoc, error) {
	var docs []priceDoc
	paginator := pricing.NewGetProductsPaginator(a.pricing, &pricing.GetProductsInput{
		ServiceCode: aws.String(serviceCode),
		Filters:     filters,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s products: %w", serviceCode, err)
		}
		for _, raw := range page.PriceList {
			var doc priceDoc
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				return nil, fmt.Errorf("decoding price document: %w", err)
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// hourlyRate extracts the USD per-hour rate of a term.
func hourlyRate(t priceTerm) (float64, bool) {
	for _, dim := range t.PriceDimensions {
		if dim.Unit != "Hrs" {
			continue
		}
		price, err := strconv.ParseFloat(dim.PricePerUnit["USD"], 64)
		if err != nil || price == 0 {
			continue
		}
		return price, true
	}
	return 0, false
}

func (a *Adapter) InventoryServerPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	servers := util.IndexBy(v.Servers, func(s *catalog.Server) string { return s.ServerID })
	regions := util.IndexBy(v.Regions, func(r *catalog.Region) string { return r.RegionID })

	var prices []*catalog.ServerPrice
	for _, osName := range []string{"Linux", "Windows"} {
		docs, err := a.products(ctx, "AmazonEC2", []pricingtypes.Filter{
			termMatch("productFamily", "Compute Instance"),
			termMatch("operatingSystem", osName),
			termMatch("tenancy", "Shared"),
			termMatch("preInstalledSw", "NA"),
			termMatch("capacitystatus", "Used"),
		})
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			regionID := doc.Product.Attributes["regionCode"]
			serverID := doc.Product.Attributes["instanceType"]
			if _, ok := regions[regionID]; !ok {
				continue
			}
			if _, ok := servers[serverID]; !ok {
				continue
			}
			azs, err := a.azNames(ctx, regionID)
			if err != nil {
				return nil, err
			}

			rows := map[catalog.Allocation]float64{}
			for _, term := range doc.Terms.OnDemand {
				if price, ok := hourlyRate(term); ok {
					rows[catalog.AllocationOnDemand] = price
				}
			}
			for _, term := range doc.Terms.Reserved {
				if term.TermAttributes["LeaseContractLength"] != "1yr" ||
					term.TermAttributes["PurchaseOption"] != "No Upfront" ||
					term.TermAttributes["OfferingClass"] != "standard" {
					continue
				}
				if price, ok := hourlyRate(term); ok {
					rows[catalog.AllocationReserved] = price
				}
			}

			for allocation, price := range rows {
				for _, az := range azs {
					prices = append(prices, &catalog.ServerPrice{
						VendorID:        "aws",
						RegionID:        regionID,
						ZoneID:          az,
						ServerID:        serverID,
						Allocation:      allocation,
						OperatingSystem: osName,
						Unit:            catalog.UnitHour,
						Price:           price,
						Currency:        "USD",
					})
				}
			}
		}
	}
	return prices, nil
}

// spotProducts maps the spot history product descriptions to the
// operating system names the ondemand rows use.
var spotProducts = map[string]string{
	"Linux/UNIX": "Linux",
	"Windows":    "Windows",
}

func (a *Adapter) InventoryServerPricesSpot(ctx context.Context, v *catalog.VendorView) ([]*catalog.ServerPrice, error) {
	servers := util.IndexBy(v.Servers, func(s *catalog.Server) string { return s.ServerID })

	var mu sync.Mutex
	var prices []*catalog.ServerPrice
	task := v.Tracker.StartTask("aws spot prices", len(v.Regions))
	defer v.Tracker.HideTask(task)

	err := vendors.ForEach(ctx, v.Regions, vendors.DefaultWorkers, func(ctx context.Context, r *catalog.Region) error {
		defer v.Tracker.AdvanceTask(task, 1)
		if r.Status == catalog.StatusInactive {
			return nil
		}

		type key struct{ az, server, os string }
		latest := map[key]ec2types.SpotPrice{}
		paginator := ec2.NewDescribeSpotPriceHistoryPaginator(a.regionClient(r.RegionID), &ec2.DescribeSpotPriceHistoryInput{
			StartTime:           aws.Time(time.Now()),
			ProductDescriptions: []string{"Linux/UNIX", "Windows"},
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("describing spot history in %s: %w", r.RegionID, err)
			}
			for _, sp := range page.SpotPriceHistory {
				k := key{
					az:     aws.ToString(sp.AvailabilityZone),
					server: string(sp.InstanceType),
					os:     string(sp.ProductDescription),
				}
				if prev, ok := latest[k]; ok && prev.Timestamp.After(aws.ToTime(sp.Timestamp)) {
					continue
				}
				latest[k] = sp
			}
		}

		mu.Lock()
		defer mu.Unlock()
		for k, sp := range latest {
			osName, ok := spotProducts[k.os]
			if !ok {
				continue
			}
			if _, ok := servers[k.server]; !ok {
				continue
			}
			price, err := strconv.ParseFloat(aws.ToString(sp.SpotPrice), 64)
			if err != nil {
				continue
			}
			prices = append(prices, &catalog.ServerPrice{
				VendorID:        "aws",
				RegionID:        r.RegionID,
				ZoneID:          k.az,
				ServerID:        k.server,
				Allocation:      catalog.AllocationSpot,
				OperatingSystem: osName,
				Unit:            catalog.UnitHour,
				Price:           price,
				Currency:        "USD",
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prices, nil
}

// ebsType is an EBS volume family; limits from the published volume
// constraints.
type ebsType struct {
	id            string
	name          string
	storageType   catalog.StorageType
	maxIOPS       int64
	maxThroughput int64 // MiB/s
	minSize       int64 // GiB
	maxSize       int64 // GiB
}

var ebsTypes = []ebsType{
	{"gp3", "General Purpose SSD (gp3)", catalog.StorageSSD, 16000, 1000, 1, 16384},
	{"gp2", "General Purpose SSD (gp2)", catalog.StorageSSD, 16000, 250, 1, 16384},
	{"io2", "Provisioned IOPS SSD (io2)", catalog.StorageSSD, 256000, 4000, 4, 65536},
	{"io1", "Provisioned IOPS SSD (io1)", catalog.StorageSSD, 64000, 1000, 4, 16384},
	{"st1", "Throughput Optimized HDD (st1)", catalog.StorageHDD, 500, 500, 125, 16384},
	{"sc1", "Cold HDD (sc1)", catalog.StorageHDD, 250, 250, 125, 16384},
	{"standard", "Magnetic (standard)", catalog.StorageHDD, 200, 90, 1, 1024},
}

func (a *Adapter) InventoryStorages(ctx context.Context, v *catalog.VendorView) ([]*catalog.Storage, error) {
	storages := make([]*catalog.Storage, 0, len(ebsTypes))
	for _, t := range ebsTypes {
		storages = append(storages, &catalog.Storage{
			VendorID:      "aws",
			StorageID:     t.id,
			Name:          t.name,
			StorageType:   t.storageType,
			MaxIOPS:       util.Ptr(t.maxIOPS),
			MaxThroughput: util.Ptr(t.maxThroughput),
			MinSize:       util.Ptr(t.minSize),
			MaxSize:       util.Ptr(t.maxSize),
		})
	}
	return storages, nil
}

func (a *Adapter) InventoryStoragePrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.StoragePrice, error) {
	regions := util.IndexBy(v.Regions, func(r *catalog.Region) string { return r.RegionID })
	known := map[string]bool{}
	for _, t := range ebsTypes {
		known[t.id] = true
	}

	docs, err := a.products(ctx, "AmazonEC2", []pricingtypes.Filter{
		termMatch("productFamily", "Storage"),
	})
	if err != nil {
		return nil, err
	}

	var prices []*catalog.StoragePrice
	for _, doc := range docs {
		regionID := doc.Product.Attributes["regionCode"]
		storageID := doc.Product.Attributes["volumeApiName"]
		if _, ok := regions[regionID]; !ok {
			continue
		}
		if !known[storageID] {
			continue
		}
		for _, term := range doc.Terms.OnDemand {
			for _, dim := range term.PriceDimensions {
				if dim.Unit != "GB-Mo" {
					continue
				}
				price, err := strconv.ParseFloat(dim.PricePerUnit["USD"], 64)
				if err != nil || price == 0 {
					continue
				}
				prices = append(prices, &catalog.StoragePrice{
					VendorID:  "aws",
					RegionID:  regionID,
					StorageID: storageID,
					Unit:      catalog.UnitGBMonth,
					Price:     price,
					Currency:  "USD",
				})
			}
		}
	}
	return prices, nil
}

// egressTiers is the internet data-transfer-out price ladder, including
// the free monthly allowance. The Pricing API spreads these rows over
// dozens of transfer products, so the published ladder is kept inline.
var egressTiers = []catalog.PriceTier{
	{Lower: 0, Upper: 100, Price: 0},
	{Lower: 100, Upper: 10240, Price: 0.09},
	{Lower: 10240, Upper: 51200, Price: 0.085},
	{Lower: 51200, Upper: 153600, Price: 0.07},
	{Lower: 153600, Upper: catalog.InfFloat(math.Inf(1)), Price: 0.05},
}

func (a *Adapter) InventoryTrafficPrices(ctx context.Context, v *catalog.VendorView) ([]*catalog.TrafficPrice, error) {
	var prices []*catalog.TrafficPrice
	for _, r := range v.Regions {
		prices = append(prices,
			&catalog.TrafficPrice{
				VendorID:    "aws",
				RegionID:    r.RegionID,
				Direction:   catalog.TrafficOut,
				Unit:        catalog.UnitGB,
				Price:       egressTiers[1].Price,
				PriceTiered: egressTiers,
				Currency:    "USD",
			},
			&catalog.TrafficPrice{
				VendorID:  "aws",
				RegionID:  r.RegionID,
				Direction: catalog.TrafficIn,
				Unit:      catalog.UnitGB,
				Price:     0,
				Currency:  "USD",
			})
	}
	return prices, nil
}

// Public IPv4 addresses bill at a flat hourly rate in every region.
const ipv4HourlyUSD = 0.005

func (a *Adapter) InventoryIpv4Prices(ctx context.Context, v *catalog.VendorView) ([]*catalog.Ipv4Price, error) {
	var prices []*catalog.Ipv4Price
	for _, r := range v.Regions {
		prices = append(prices, &catalog.Ipv4Price{
			VendorID: "aws",
			RegionID: r.RegionID,
			Unit:     catalog.UnitHour,
			Price:    ipv4HourlyUSD,
			Currency: "USD",
		})
	}
	return prices, nil
}
