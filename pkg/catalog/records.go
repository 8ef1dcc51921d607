package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Meta carries the two bookkeeping columns every table has. Status
// defaults to ACTIVE; ObservedAt is maintained by the persistence engine
// on upsert unless the record supplies its own observation time (the
// benchmark harvester does).
type Meta struct {
	Status     Status    `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	ObservedAt time.Time `json:"observed_at"`
}

// Record is implemented by every entity the persistence engine can store.
type Record interface {
	Table() *Table
}

// Country is a static lookup keyed by ISO-3166 alpha-2 code.
type Country struct {
	CountryID string `json:"country_id" validate:"required,len=2"`
	Continent string `json:"continent" validate:"required"`
	Meta
}

// ComplianceFramework is a static registry entry (e.g. ISO 27001).
type ComplianceFramework struct {
	ComplianceFrameworkID string  `json:"compliance_framework_id" validate:"required"`
	Name                  string  `json:"name" validate:"required"`
	Abbreviation          *string `json:"abbreviation"`
	Description           *string `json:"description"`
	Logo                  *string `json:"logo"`
	Homepage              *string `json:"homepage"`
	Meta
}

// Vendor is one supported cloud provider, declared statically.
type Vendor struct {
	VendorID     string  `json:"vendor_id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Logo         *string `json:"logo"`
	Homepage     string  `json:"homepage" validate:"required"`
	CountryID    string  `json:"country_id" validate:"required,len=2"`
	State        *string `json:"state"`
	City         *string `json:"city"`
	AddressLine  *string `json:"address_line"`
	ZipCode      *string `json:"zip_code"`
	FoundingYear int     `json:"founding_year" validate:"required,gt=1900"`
	StatusPage   *string `json:"status_page"`
	Meta
}

// VendorComplianceLink connects a vendor to a compliance framework it is
// certified for.
type VendorComplianceLink struct {
	VendorID              string  `json:"vendor_id" validate:"required"`
	ComplianceFrameworkID string  `json:"compliance_framework_id" validate:"required"`
	Comment               *string `json:"comment"`
	Meta
}

// Region is a vendor's top-level geographic grouping of datacenters.
type Region struct {
	VendorID     string   `json:"vendor_id" validate:"required"`
	RegionID     string   `json:"region_id" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	APIReference string   `json:"api_reference" validate:"required"`
	DisplayName  string   `json:"display_name" validate:"required"`
	Aliases      []string `json:"aliases"`
	CountryID    string   `json:"country_id" validate:"required,len=2"`
	State        *string  `json:"state"`
	City         *string  `json:"city"`
	AddressLine  *string  `json:"address_line"`
	ZipCode      *string  `json:"zip_code"`
	Lon          *float64 `json:"lon"`
	Lat          *float64 `json:"lat"`
	FoundingYear *int     `json:"founding_year"`
	GreenEnergy  *bool    `json:"green_energy"`
	Meta
}

// Zone is an availability zone inside a region. Vendors without a zone
// concept get a dummy 1:1 zone per region.
type Zone struct {
	VendorID     string `json:"vendor_id" validate:"required"`
	RegionID     string `json:"region_id" validate:"required"`
	ZoneID       string `json:"zone_id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	APIReference string `json:"api_reference" validate:"required"`
	DisplayName  string `json:"display_name" validate:"required"`
	Meta
}

// Storage is a block-storage offering of a vendor.
type Storage struct {
	VendorID      string      `json:"vendor_id" validate:"required"`
	StorageID     string      `json:"storage_id" validate:"required"`
	Name          string      `json:"name" validate:"required"`
	Description   *string     `json:"description"`
	StorageType   StorageType `json:"storage_type" validate:"required,oneof=HDD SSD NVME_SSD NETWORK"`
	MaxIOPS       *int64      `json:"max_iops"`
	MaxThroughput *int64      `json:"max_throughput"` // MiB/s
	MinSize       *int64      `json:"min_size"`       // GiB
	MaxSize       *int64      `json:"max_size"`       // GiB
	Meta
}

// Server is a rentable compute shape (instance type / flavor).
type Server struct {
	VendorID        string          `json:"vendor_id" validate:"required"`
	ServerID        string          `json:"server_id" validate:"required"`
	Name            string          `json:"name" validate:"required"`
	APIReference    string          `json:"api_reference" validate:"required"`
	DisplayName     string          `json:"display_name" validate:"required"`
	Description     *string         `json:"description"`
	Family          *string         `json:"family"`
	VCpus           int             `json:"vcpus" validate:"required,gt=0"`
	Hypervisor      *string         `json:"hypervisor"`
	CPUAllocation   CPUAllocation   `json:"cpu_allocation" validate:"required,oneof=SHARED BURSTABLE DEDICATED"`
	CPUCores        *int            `json:"cpu_cores"`
	CPUSpeed        *float64        `json:"cpu_speed"` // GHz
	CPUArchitecture CPUArchitecture `json:"cpu_architecture" validate:"required,oneof=ARM64 ARM64_MAC I386 X86_64 X86_64_MAC"`
	CPUManufacturer *string         `json:"cpu_manufacturer"`
	CPUFamily       *string         `json:"cpu_family"`
	CPUModel        *string         `json:"cpu_model"`
	CPUL1Cache      *int64          `json:"cpu_l1_cache"` // bytes
	CPUL2Cache      *int64          `json:"cpu_l2_cache"` // bytes
	CPUL3Cache      *int64          `json:"cpu_l3_cache"` // bytes
	CPUFlags        []string        `json:"cpu_flags"`
	Cpus            []Cpu           `json:"cpus"`
	MemoryAmount    int64           `json:"memory_amount" validate:"required,gt=0"` // MiB
	MemoryGen       *DDRGeneration  `json:"memory_generation" validate:"omitempty,oneof=DDR3 DDR4 DDR5"`
	MemorySpeed     *int            `json:"memory_speed"` // MT/s
	MemoryECC       *bool           `json:"memory_ecc"`
	GpuCount        float64         `json:"gpu_count" validate:"gte=0"` // fractional GPUs exist
	GpuMemoryMin    *int64          `json:"gpu_memory_min"`             // MiB
	GpuMemoryTotal  *int64          `json:"gpu_memory_total"`           // MiB
	GpuManufacturer *string         `json:"gpu_manufacturer"`
	GpuFamily       *string         `json:"gpu_family"`
	GpuModel        *string         `json:"gpu_model"`
	Gpus            []Gpu           `json:"gpus"`
	StorageSize     float64         `json:"storage_size" validate:"gte=0"` // GB
	StorageType     *StorageType    `json:"storage_type" validate:"omitempty,oneof=HDD SSD NVME_SSD NETWORK"`
	Storages        []Disk          `json:"storages"`
	NetworkSpeed    *float64        `json:"network_speed"`                     // Gbps
	InboundTraffic  float64         `json:"inbound_traffic" validate:"gte=0"`  // GB/month included
	OutboundTraffic float64         `json:"outbound_traffic" validate:"gte=0"` // GB/month included
	Ipv4            int             `json:"ipv4" validate:"gte=0"`
	Meta
}

// ServerPrice is the price of a server in a zone under one allocation model.
type ServerPrice struct {
	VendorID        string      `json:"vendor_id" validate:"required"`
	RegionID        string      `json:"region_id" validate:"required"`
	ZoneID          string      `json:"zone_id" validate:"required"`
	ServerID        string      `json:"server_id" validate:"required"`
	Allocation      Allocation  `json:"allocation" validate:"required,oneof=ONDEMAND RESERVED SPOT"`
	OperatingSystem string      `json:"operating_system" validate:"required"`
	Unit            PriceUnit   `json:"unit" validate:"required,oneof=YEAR MONTH HOUR GIB GB GB_MONTH"`
	Price           float64     `json:"price" validate:"gte=0"`
	PriceUpfront    float64     `json:"price_upfront" validate:"gte=0"`
	PriceTiered     []PriceTier `json:"price_tiered"`
	Currency        string      `json:"currency" validate:"required,len=3"`
	Meta
}

// StoragePrice is the price of a block-storage offering in a region.
type StoragePrice struct {
	VendorID     string      `json:"vendor_id" validate:"required"`
	RegionID     string      `json:"region_id" validate:"required"`
	StorageID    string      `json:"storage_id" validate:"required"`
	Unit         PriceUnit   `json:"unit" validate:"required,oneof=YEAR MONTH HOUR GIB GB GB_MONTH"`
	Price        float64     `json:"price" validate:"gte=0"`
	PriceUpfront float64     `json:"price_upfront" validate:"gte=0"`
	PriceTiered  []PriceTier `json:"price_tiered"`
	Currency     string      `json:"currency" validate:"required,len=3"`
	Meta
}

// TrafficPrice is the egress or ingress traffic price of a region.
type TrafficPrice struct {
	VendorID     string           `json:"vendor_id" validate:"required"`
	RegionID     string           `json:"region_id" validate:"required"`
	Direction    TrafficDirection `json:"direction" validate:"required,oneof=IN OUT"`
	Unit         PriceUnit        `json:"unit" validate:"required,oneof=YEAR MONTH HOUR GIB GB GB_MONTH"`
	Price        float64          `json:"price" validate:"gte=0"`
	PriceUpfront float64          `json:"price_upfront" validate:"gte=0"`
	PriceTiered  []PriceTier      `json:"price_tiered"`
	Currency     string           `json:"currency" validate:"required,len=3"`
	Meta
}

// Ipv4Price is the public IPv4 address price of a region.
type Ipv4Price struct {
	VendorID     string      `json:"vendor_id" validate:"required"`
	RegionID     string      `json:"region_id" validate:"required"`
	Unit         PriceUnit   `json:"unit" validate:"required,oneof=YEAR MONTH HOUR GIB GB GB_MONTH"`
	Price        float64     `json:"price" validate:"gte=0"`
	PriceUpfront float64     `json:"price_upfront" validate:"gte=0"`
	PriceTiered  []PriceTier `json:"price_tiered"`
	Currency     string      `json:"currency" validate:"required,len=3"`
	Meta
}

// Benchmark is one measurable workload definition (vendor-independent).
type Benchmark struct {
	BenchmarkID    string            `json:"benchmark_id" validate:"required"`
	Name           string            `json:"name" validate:"required"`
	Description    *string           `json:"description"`
	Framework      string            `json:"framework" validate:"required"`
	ConfigFields   map[string]string `json:"config_fields"`
	Measurement    *string           `json:"measurement"`
	Unit           *string           `json:"unit"`
	HigherIsBetter bool              `json:"higher_is_better"`
	Meta
}

// BenchmarkScore is one measured score of a benchmark on a server.
type BenchmarkScore struct {
	VendorID    string         `json:"vendor_id" validate:"required"`
	ServerID    string         `json:"server_id" validate:"required"`
	BenchmarkID string         `json:"benchmark_id" validate:"required"`
	Config      map[string]any `json:"config"`
	Score       float64        `json:"score"`
	Note        *string        `json:"note"`
	Meta
}

func (*Country) Table() *Table              { return TableCountry }
func (*ComplianceFramework) Table() *Table  { return TableComplianceFramework }
func (*Vendor) Table() *Table               { return TableVendor }
func (*VendorComplianceLink) Table() *Table { return TableVendorComplianceLink }
func (*Region) Table() *Table               { return TableRegion }
func (*Zone) Table() *Table                 { return TableZone }
func (*Storage) Table() *Table              { return TableStorage }
func (*Server) Table() *Table               { return TableServer }
func (*ServerPrice) Table() *Table          { return TableServerPrice }
func (*StoragePrice) Table() *Table         { return TableStoragePrice }
func (*TrafficPrice) Table() *Table         { return TableTrafficPrice }
func (*Ipv4Price) Table() *Table            { return TableIpv4Price }
func (*Benchmark) Table() *Table            { return TableBenchmark }
func (*BenchmarkScore) Table() *Table       { return TableBenchmarkScore }

// Values flattens a record into a column name → value map via its JSON
// form. Nested values (cpus, gpus, price_tiered, ...) stay as decoded
// JSON values; the store serializes them to TEXT on write.
func Values(r Record) (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s record: %w", r.Table().Name, err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("flattening %s record: %w", r.Table().Name, err)
	}
	return m, nil
}
