// Package aws pulls the AWS inventory through the SDK: EC2 for regions,
// availability zones, instance types and spot history, the Pricing API
// for ondemand, reserved and storage prices.
package aws

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"

	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/internal/vendors"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

type Adapter struct {
	cfg     aws.Config
	ec2     *ec2.Client
	pricing *pricing.Client

	mu        sync.Mutex
	regionEC2 map[string]*ec2.Client
	regionAZs map[string][]string
}

// New loads the default credential chain; unresolvable credentials are a
// startup configuration error. The pricing API lives in us-east-1.
func New(ctx context.Context) (catalog.Adapter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("us-east-1"))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("resolving AWS credentials: %w", err)
	}
	return &Adapter{
		cfg:       cfg,
		ec2:       ec2.NewFromConfig(cfg),
		pricing:   pricing.NewFromConfig(cfg),
		regionEC2: map[string]*ec2.Client{},
		regionAZs: map[string][]string{},
	}, nil
}

func (a *Adapter) VendorID() string { return "aws" }

// regionClient returns a cached EC2 client scoped to a region; the AZ
// and spot APIs only answer for the client's own region.
func (a *Adapter) regionClient(regionID string) *ec2.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.regionEC2[regionID]; ok {
		return c
	}
	cfg := a.cfg.Copy()
	cfg.Region = regionID
	c := ec2.NewFromConfig(cfg)
	a.regionEC2[regionID] = c
	return c
}

// regionInfo is the geography the API does not report.
type regionInfo struct {
	country string
	city    string
	lat     float64
	lon     float64
	founded int
	green   bool
}

var regionInfos = map[string]regionInfo{
	"af-south-1":     {country: "ZA", city: "Cape Town", lat: -33.9249, lon: 18.4241, founded: 2020},
	"ap-east-1":      {country: "HK", city: "Hong Kong", lat: 22.3193, lon: 114.1694, founded: 2019},
	"ap-northeast-1": {country: "JP", city: "Tokyo", lat: 35.6762, lon: 139.6503, founded: 2011},
	"ap-northeast-2": {country: "KR", city: "Seoul", lat: 37.5665, lon: 126.9780, founded: 2016},
	"ap-northeast-3": {country: "JP", city: "Osaka", lat: 34.6937, lon: 135.5023, founded: 2021},
	"ap-south-1":     {country: "IN", city: "Mumbai", lat: 19.0760, lon: 72.8777, founded: 2016},
	"ap-south-2":     {country: "IN", city: "Hyderabad", lat: 17.3850, lon: 78.4867, founded: 2022},
	"ap-southeast-1": {country: "SG", city: "Singapore", lat: 1.3521, lon: 103.8198, founded: 2010},
	"ap-southeast-2": {country: "AU", city: "Sydney", lat: -33.8688, lon: 151.2093, founded: 2012},
	"ap-southeast-3": {country: "ID", city: "Jakarta", lat: -6.2088, lon: 106.8456, founded: 2021},
	"ap-southeast-4": {country: "AU", city: "Melbourne", lat: -37.8136, lon: 144.9631, founded: 2023},
	"ca-central-1":   {country: "CA", city: "Montreal", lat: 45.5017, lon: -73.5673, founded: 2016, green: true},
	"ca-west-1":      {country: "CA", city: "Calgary", lat: 51.0447, lon: -114.0719, founded: 2023},
	"eu-central-1":   {country: "DE", city: "Frankfurt", lat: 50.1109, lon: 8.6821, founded: 2014, green: true},
	"eu-central-2":   {country: "CH", city: "Zurich", lat: 47.3769, lon: 8.5417, founded: 2022},
	"eu-north-1":     {country: "SE", city: "Stockholm", lat: 59.3293, lon: 18.0686, founded: 2018, green: true},
	"eu-south-1":     {country: "IT", city: "Milan", lat: 45.4642, lon: 9.1900, founded: 2020},
	"eu-south-2":     {country: "ES", city: "Zaragoza", lat: 41.6488, lon: -0.8891, founded: 2022},
	"eu-west-1":      {country: "IE", city: "Dublin", lat: 53.3498, lon: -6.2603, founded: 2007, green: true},
	"eu-west-2":      {country: "GB", city: "London", lat: 51.5074, lon: -0.1278, founded: 2016},
	"eu-west-3":      {country: "FR", city: "Paris", lat: 48.8566, lon: 2.3522, founded: 2017},
	"il-central-1":   {country: "IL", city: "Tel Aviv", lat: 32.0853, lon: 34.7818, founded: 2023},
	"me-central-1":   {country: "AE", city: "Dubai", lat: 25.2048, lon: 55.2708, founded: 2022},
	"me-south-1":     {country: "BH", city: "Manama", lat: 26.2285, lon: 50.5860, founded: 2019},
	"sa-east-1":      {country: "BR", city: "Sao Paulo", lat: -23.5505, lon: -46.6333, founded: 2011},
	"us-east-1":      {country: "US", city: "Ashburn", lat: 39.0438, lon: -77.4874, founded: 2006},
	"us-east-2":      {country: "US", city: "Columbus", lat: 39.9612, lon: -82.9988, founded: 2016},
	"us-west-1":      {country: "US", city: "San Francisco", lat: 37.7749, lon: -122.4194, founded: 2009},
	"us-west-2":      {country: "US", city: "Boardman", lat: 45.8399, lon: -119.7006, founded: 2011, green: true},
}

func (a *Adapter) InventoryComplianceFrameworks(ctx context.Context, v *catalog.VendorView) ([]*catalog.VendorComplianceLink, error) {
	return []*catalog.VendorComplianceLink{
		{VendorID: "aws", ComplianceFrameworkID: "iso27001"},
		{VendorID: "aws", ComplianceFrameworkID: "soc2t2"},
		{VendorID: "aws", ComplianceFrameworkID: "hipaa"},
	}, nil
}

func (a *Adapter) InventoryRegions(ctx context.Context, v *catalog.VendorView) ([]*catalog.Region, error) {
	resp, err := a.ec2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{AllRegions: aws.Bool(true)})
	if err != nil {
		return nil, fmt.Errorf("describing regions: %w", err)
	}

	var regions []*catalog.Region
	for _, r := range resp.Regions {
		name := aws.ToString(r.RegionName)
		info, ok := regionInfos[name]
		if !ok {
			v.Log.Warn("unknown region, skipping", "region", name)
			continue
		}
		region := &catalog.Region{
			VendorID:     "aws",
			RegionID:     name,
			Name:         name,
			APIReference: name,
			DisplayName:  info.city + " (" + name + ")",
			CountryID:    info.country,
			City:         util.Ptr(info.city),
			Lat:          util.Ptr(info.lat),
			Lon:          util.Ptr(info.lon),
			FoundingYear: util.Ptr(info.founded),
			GreenEnergy:  util.Ptr(info.green),
		}
		if status := aws.ToString(r.OptInStatus); status == "not-opted-in" {
			region.Status = catalog.StatusInactive
		}
		regions = append(regions, region)
	}
	return regions, nil
}

// azNames lists the AZ names of a region, cached for the price stages.
func (a *Adapter) azNames(ctx context.Context, regionID string) ([]string, error) {
	a.mu.Lock()
	if azs, ok := a.regionAZs[regionID]; ok {
		a.mu.Unlock()
		return azs, nil
	}
	a.mu.Unlock()

	resp, err := a.regionClient(regionID).DescribeAvailabilityZones(ctx, &ec2.DescribeAvailabilityZonesInput{})
	if err != nil {
		return nil, fmt.Errorf("describing availability zones in %s: %w", regionID, err)
	}
	var azs []string
	for _, az := range resp.AvailabilityZones {
		if az.ZoneType != nil && *az.ZoneType != "availability-zone" {
			continue
		}
		azs = append(azs, aws.ToString(az.ZoneName))
	}

	a.mu.Lock()
	a.regionAZs[regionID] = azs
	a.mu.Unlock()
	return azs, nil
}

func (a *Adapter) InventoryZones(ctx context.Context, v *catalog.VendorView) ([]*catalog.Zone, error) {
	var mu sync.Mutex
	var zones []*catalog.Zone
	task := v.Tracker.StartTask("aws zones", len(v.Regions))
	defer v.Tracker.HideTask(task)

	err := vendors.ForEach(ctx, v.Regions, vendors.DefaultWorkers, func(ctx context.Context, r *catalog.Region) error {
		defer v.Tracker.AdvanceTask(task, 1)
		if r.Status == catalog.StatusInactive {
			return nil
		}
		azs, err := a.azNames(ctx, r.RegionID)
		if err != nil {
			return err
		}
		mu.Lock()
		for _, az := range azs {
			zones = append(zones, &catalog.Zone{
				VendorID:     "aws",
				RegionID:     r.RegionID,
				ZoneID:       az,
				Name:         az,
				APIReference: az,
				DisplayName:  az,
			})
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return zones, nil
}

func (a *Adapter) InventoryServers(ctx context.Context, v *catalog.VendorView) ([]*catalog.Server, error) {
	var servers []*catalog.Server
	paginator := ec2.NewDescribeInstanceTypesPaginator(a.ec2, &ec2.DescribeInstanceTypesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing instance types: %w", err)
		}
		for _, it := range page.InstanceTypes {
			servers = append(servers, instanceTypeToServer(it))
		}
	}
	return servers, nil
}

func instanceTypeToServer(it ec2types.InstanceTypeInfo) *catalog.Server {
	name := string(it.InstanceType)
	srv := &catalog.Server{
		VendorID:        "aws",
		ServerID:        name,
		Name:            name,
		APIReference:    name,
		DisplayName:     name,
		Family:          util.Ptr(strings.SplitN(name, ".", 2)[0]),
		CPUAllocation:   catalog.CPUAllocationDedicated,
		CPUArchitecture: catalog.ArchX8664,
	}
	if it.VCpuInfo != nil {
		srv.VCpus = int(aws.ToInt32(it.VCpuInfo.DefaultVCpus))
		if cores := aws.ToInt32(it.VCpuInfo.DefaultCores); cores > 0 {
			srv.CPUCores = util.Ptr(int(cores))
		}
	}
	if it.MemoryInfo != nil {
		srv.MemoryAmount = aws.ToInt64(it.MemoryInfo.SizeInMiB)
	}
	if it.Hypervisor != "" {
		srv.Hypervisor = util.Ptr(string(it.Hypervisor))
	}
	if aws.ToBool(it.BurstablePerformanceSupported) {
		srv.CPUAllocation = catalog.CPUAllocationBurstable
	}
	if it.ProcessorInfo != nil {
		if ghz := aws.ToFloat64(it.ProcessorInfo.SustainedClockSpeedInGhz); ghz > 0 {
			srv.CPUSpeed = util.Ptr(ghz)
		}
		if len(it.ProcessorInfo.SupportedArchitectures) > 0 {
			srv.CPUArchitecture = architecture(it.ProcessorInfo.SupportedArchitectures[0])
		}
	}
	if it.InstanceStorageInfo != nil {
		srv.StorageSize = float64(aws.ToInt64(it.InstanceStorageInfo.TotalSizeInGB))
		if it.InstanceStorageInfo.NvmeSupport == ec2types.EphemeralNvmeSupportRequired {
			srv.StorageType = util.Ptr(catalog.StorageNVMeSSD)
		} else if srv.StorageSize > 0 {
			srv.StorageType = util.Ptr(catalog.StorageSSD)
		}
		for _, d := range it.InstanceStorageInfo.Disks {
			for i := int32(0); i < aws.ToInt32(d.Count); i++ {
				srv.Storages = append(srv.Storages, catalog.Disk{
					SizeGB:      float64(aws.ToInt64(d.SizeInGB)),
					StorageType: diskType(d.Type),
				})
			}
		}
	}
	if it.GpuInfo != nil {
		for _, g := range it.GpuInfo.Gpus {
			count := int(aws.ToInt32(g.Count))
			srv.GpuCount += float64(count)
			var mem int64
			if g.MemoryInfo != nil {
				mem = int64(aws.ToInt32(g.MemoryInfo.SizeInMiB))
			}
			if srv.GpuModel == nil {
				srv.GpuManufacturer = util.Ptr(aws.ToString(g.Manufacturer))
				srv.GpuModel = util.Ptr(aws.ToString(g.Name))
			}
			for i := 0; i < count; i++ {
				srv.Gpus = append(srv.Gpus, catalog.Gpu{
					Manufacturer: aws.ToString(g.Manufacturer),
					Model:        aws.ToString(g.Name),
					MemoryMiB:    mem,
				})
			}
		}
		if it.GpuInfo.TotalGpuMemoryInMiB != nil {
			srv.GpuMemoryTotal = util.Ptr(int64(aws.ToInt32(it.GpuInfo.TotalGpuMemoryInMiB)))
		}
		var min int64
		for _, g := range srv.Gpus {
			if min == 0 || (g.MemoryMiB > 0 && g.MemoryMiB < min) {
				min = g.MemoryMiB
			}
		}
		if min > 0 {
			srv.GpuMemoryMin = util.Ptr(min)
		}
	}
	if it.NetworkInfo != nil {
		if gbps, ok := networkGbps(aws.ToString(it.NetworkInfo.NetworkPerformance)); ok {
			srv.NetworkSpeed = util.Ptr(gbps)
		}
	}
	return srv
}

func architecture(arch ec2types.ArchitectureType) catalog.CPUArchitecture {
	switch arch {
	case ec2types.ArchitectureTypeArm64:
		return catalog.ArchARM64
	case ec2types.ArchitectureTypeArm64Mac:
		return catalog.ArchARM64Mac
	case ec2types.ArchitectureTypeI386:
		return catalog.ArchI386
	case ec2types.ArchitectureTypeX8664Mac:
		return catalog.ArchX8664Mac
	default:
		return catalog.ArchX8664
	}
}

func diskType(t ec2types.DiskType) catalog.StorageType {
	if t == ec2types.DiskTypeHdd {
		return catalog.StorageHDD
	}
	return catalog.StorageSSD
}

// networkGbps parses performance strings like "Up to 12.5 Gigabit" or
// "100 Gigabit"; non-numeric descriptions ("Low", "Moderate") give no
// value.
func networkGbps(perf string) (float64, bool) {
	fields := strings.Fields(strings.TrimPrefix(perf, "Up to "))
	if len(fields) != 2 || fields[1] != "Gigabit" {
		return 0, false
	}
	var gbps float64
	if _, err := fmt.Sscanf(fields[0], "%f", &gbps); err != nil {
		return 0, false
	}
	return gbps, true
}
