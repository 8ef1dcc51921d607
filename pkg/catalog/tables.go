package catalog

// ColType is the backend-independent column type; the store's DDL
// generator maps it to each dialect.
type ColType string

const (
	TypeText      ColType = "TEXT"
	TypeInt       ColType = "INTEGER"
	TypeFloat     ColType = "FLOAT"
	TypeBool      ColType = "BOOLEAN"
	TypeJSON      ColType = "JSON"
	TypeTimestamp ColType = "TIMESTAMP"
)

// Column is one column of a table, with the free-text comment the DDL
// carries for it.
type Column struct {
	Name     string
	Type     ColType
	Nullable bool
	Comment  string
}

// ForeignKey declares a named FK constraint; the constraint name is
// derived as fk_<table>_<first col>_<referenced table>.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
}

// Table is the metadata of one live table. When SCD is true an
// identically-shaped companion table named <name>_scd exists, with
// observed_at promoted into the primary key.
type Table struct {
	Name    string
	Columns []Column
	PK      []string
	FKs     []ForeignKey
	SCD     bool
}

// SCDName returns the name of the SCD companion table.
func (t *Table) SCDName() string { return t.Name + "_scd" }

// ColumnNames returns all column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKeys returns the PK column names in declaration order.
func (t *Table) PrimaryKeys() []string { return t.PK }

// Attributes returns the non-PK column names in declaration order.
func (t *Table) Attributes() []string {
	pk := make(map[string]bool, len(t.PK))
	for _, k := range t.PK {
		pk[k] = true
	}
	var attrs []string
	for _, c := range t.Columns {
		if !pk[c.Name] {
			attrs = append(attrs, c.Name)
		}
	}
	return attrs
}

func col(name string, typ ColType, comment string) Column {
	return Column{Name: name, Type: typ, Comment: comment}
}

func ncol(name string, typ ColType, comment string) Column {
	return Column{Name: name, Type: typ, Nullable: true, Comment: comment}
}

// metaColumns are appended to every table.
func metaColumns() []Column {
	return []Column{
		col("status", TypeText, "Row status: ACTIVE, or INACTIVE when absent from the most recent pull."),
		col("observed_at", TypeTimestamp, "UTC timestamp of the last observation of this row."),
	}
}

func priceColumns() []Column {
	return []Column{
		col("unit", TypeText, "Billing unit: YEAR, MONTH, HOUR, GIB, GB, or GB_MONTH."),
		col("price", TypeFloat, "Actual price of one unit."),
		col("price_upfront", TypeFloat, "Upfront price paid at purchase time."),
		ncol("price_tiered", TypeJSON, "Tiered prices as a sorted array of lower/upper/price objects; \"Infinity\" marks an unbounded upper."),
		col("currency", TypeText, "ISO 4217 currency code of the price."),
	}
}

var TableCountry = &Table{
	Name: "country",
	Columns: append([]Column{
		col("country_id", TypeText, "Country code in ISO 3166 alpha-2 format."),
		col("continent", TypeText, "Continent the country belongs to."),
	}, metaColumns()...),
	PK: []string{"country_id"},
}

var TableComplianceFramework = &Table{
	Name: "compliance_framework",
	Columns: append([]Column{
		col("compliance_framework_id", TypeText, "Unique identifier of the compliance framework."),
		col("name", TypeText, "Human-friendly name of the framework."),
		ncol("abbreviation", TypeText, "Short abbreviation of the framework name."),
		ncol("description", TypeText, "Description of the framework's scope and purpose."),
		ncol("logo", TypeText, "URL of the framework's logo image."),
		ncol("homepage", TypeText, "URL of the framework's homepage."),
	}, metaColumns()...),
	PK: []string{"compliance_framework_id"},
}

var TableVendor = &Table{
	Name: "vendor",
	Columns: append([]Column{
		col("vendor_id", TypeText, "Unique identifier of the cloud provider."),
		col("name", TypeText, "Human-friendly name of the provider."),
		ncol("logo", TypeText, "URL of the provider's logo image."),
		col("homepage", TypeText, "URL of the provider's homepage."),
		col("country_id", TypeText, "Country of the provider's headquarters."),
		ncol("state", TypeText, "State or province of the headquarters."),
		ncol("city", TypeText, "City of the headquarters."),
		ncol("address_line", TypeText, "Street address of the headquarters."),
		ncol("zip_code", TypeText, "Postal code of the headquarters."),
		col("founding_year", TypeInt, "Year the company was founded."),
		ncol("status_page", TypeText, "URL of the provider's public status page."),
	}, metaColumns()...),
	PK:  []string{"vendor_id"},
	FKs: []ForeignKey{{Columns: []string{"country_id"}, RefTable: "country", RefColumns: []string{"country_id"}}},
	SCD: true,
}

var TableVendorComplianceLink = &Table{
	Name: "vendor_compliance_link",
	Columns: append([]Column{
		col("vendor_id", TypeText, "Identifier of the certified vendor."),
		col("compliance_framework_id", TypeText, "Identifier of the compliance framework."),
		ncol("comment", TypeText, "Note on the scope or status of the certification."),
	}, metaColumns()...),
	PK: []string{"vendor_id", "compliance_framework_id"},
	FKs: []ForeignKey{
		{Columns: []string{"vendor_id"}, RefTable: "vendor", RefColumns: []string{"vendor_id"}},
		{Columns: []string{"compliance_framework_id"}, RefTable: "compliance_framework", RefColumns: []string{"compliance_framework_id"}},
	},
	SCD: true,
}

var TableRegion = &Table{
	Name: "region",
	Columns: append([]Column{
		col("vendor_id", TypeText, "Identifier of the owning vendor."),
		col("region_id", TypeText, "Identifier of the region within the vendor's namespace."),
		col("name", TypeText, "Name of the region."),
		col("api_reference", TypeText, "How this region is referenced in the vendor's API."),
		col("display_name", TypeText, "Region name to use in user-facing output."),
		ncol("aliases", TypeJSON, "Alternative region names as a JSON array of strings."),
		col("country_id", TypeText, "Country the region is located in."),
		ncol("state", TypeText, "State or province of the region."),
		ncol("city", TypeText, "City of the region."),
		ncol("address_line", TypeText, "Street address of the datacenter."),
		ncol("zip_code", TypeText, "Postal code of the datacenter."),
		ncol("lon", TypeFloat, "Longitude of the region's approximate location."),
		ncol("lat", TypeFloat, "Latitude of the region's approximate location."),
		ncol("founding_year", TypeInt, "Year the region was opened."),
		ncol("green_energy", TypeBool, "Whether the region runs on renewable energy."),
	}, metaColumns()...),
	PK: []string{"vendor_id", "region_id"},
	FKs: []ForeignKey{
		{Columns: []string{"vendor_id"}, RefTable: "vendor", RefColumns: []string{"vendor_id"}},
		{Columns: []string{"country_id"}, RefTable: "country", RefColumns: []string{"country_id"}},
	},
	SCD: true,
}

var TableZone = &Table{
	Name: "zone",
	Columns: append([]Column{
		col("vendor_id", TypeText, "Identifier of the owning vendor."),
		col("region_id", TypeText, "Identifier of the containing region."),
		col("zone_id", TypeText, "Identifier of the zone within the vendor's namespace."),
		col("name", TypeText, "Name of the availability zone."),
		col("api_reference", TypeText, "How this zone is referenced in the vendor's API."),
		col("display_name", TypeText, "Zone name to use in user-facing output."),
	}, metaColumns()...),
	PK: []string{"vendor_id", "region_id", "zone_id"},
	FKs: []ForeignKey{
		{Columns: []string{"vendor_id", "region_id"}, RefTable: "region", RefColumns: []string{"vendor_id", "region_id"}},
	},
	SCD: true,
}

var TableStorage = &Table{
	Name: "storage",
	Columns: append([]Column{
		col("vendor_id", TypeText, "Identifier of the owning vendor."),
		col("storage_id", TypeText, "Identifier of the storage offering within the vendor's namespace."),
		col("name", TypeText, "Name of the storage offering."),
		ncol("description", TypeText, "Short description of the storage offering."),
		col("storage_type", TypeText, "Type of the storage medium: HDD, SSD, NVME_SSD, or NETWORK."),
		ncol("max_iops", TypeInt, "Maximum IOPS of a volume."),
		ncol("max_throughput", TypeInt, "Maximum throughput of a volume in MiB/s."),
		ncol("min_size", TypeInt, "Minimum volume size in GiB."),
		ncol("max_size", TypeInt, "Maximum volume size in GiB."),
	}, metaColumns()...),
	PK: []string{"vendor_id", "storage_id"},
	FKs: []ForeignKey{
		{Columns: []string{"vendor_id"}, RefTable: "vendor", RefColumns: []string{"vendor_id"}},
	},
	SCD: true,
}

var TableServer = &Table{
	Name: "server",
	Columns: append([]Column{
		col("vendor_id", TypeText, "Identifier of the owning vendor."),
		col("server_id", TypeText, "Identifier of the server type within the vendor's namespace."),
		col("name", TypeText, "Name of the server type."),
		col("api_reference", TypeText, "How this server type is referenced in the vendor's API."),
		col("display_name", TypeText, "Server name to use in user-facing output."),
		ncol("description", TypeText, "Short description of the server type."),
		ncol("family", TypeText, "Server family or series the type belongs to."),
		col("vcpus", TypeInt, "Default number of virtual CPUs."),
		ncol("hypervisor", TypeText, "Hypervisor the server runs on."),
		col("cpu_allocation", TypeText, "vCPU allocation model: SHARED, BURSTABLE, or DEDICATED."),
		ncol("cpu_cores", TypeInt, "Number of physical CPU cores."),
		ncol("cpu_speed", TypeFloat, "CPU clock speed in GHz."),
		col("cpu_architecture", TypeText, "CPU architecture: ARM64, ARM64_MAC, I386, X86_64, or X86_64_MAC."),
		ncol("cpu_manufacturer", TypeText, "CPU manufacturer, e.g. Intel or AMD."),
		ncol("cpu_family", TypeText, "CPU family, e.g. Xeon or EPYC."),
		ncol("cpu_model", TypeText, "CPU model identifier."),
		ncol("cpu_l1_cache", TypeInt, "L1 cache size in bytes."),
		ncol("cpu_l2_cache", TypeInt, "L2 cache size in bytes."),
		ncol("cpu_l3_cache", TypeInt, "L3 cache size in bytes."),
		ncol("cpu_flags", TypeJSON, "CPU feature flags as a JSON array of strings."),
		ncol("cpus", TypeJSON, "Per-socket CPU details as a JSON array of objects."),
		col("memory_amount", TypeInt, "Amount of memory in MiB."),
		ncol("memory_generation", TypeText, "Memory module generation: DDR3, DDR4, or DDR5."),
		ncol("memory_speed", TypeInt, "Memory speed in MT/s."),
		ncol("memory_ecc", TypeBool, "Whether the memory is error-correcting."),
		col("gpu_count", TypeFloat, "Number of GPUs; fractional for shared GPU offerings."),
		ncol("gpu_memory_min", TypeInt, "Memory of the smallest GPU in MiB."),
		ncol("gpu_memory_total", TypeInt, "Total memory of all GPUs in MiB."),
		ncol("gpu_manufacturer", TypeText, "GPU manufacturer, e.g. Nvidia."),
		ncol("gpu_family", TypeText, "GPU family, e.g. Ampere."),
		ncol("gpu_model", TypeText, "GPU model identifier."),
		ncol("gpus", TypeJSON, "Per-GPU details as a JSON array of objects."),
		col("storage_size", TypeFloat, "Total size of the local storage in GB."),
		ncol("storage_type", TypeText, "Primary storage type: HDD, SSD, NVME_SSD, or NETWORK."),
		ncol("storages", TypeJSON, "Per-disk details as a JSON array of objects."),
		ncol("network_speed", TypeFloat, "Guaranteed network bandwidth in Gbps."),
		col("inbound_traffic", TypeFloat, "Amount of included inbound traffic in GB per month."),
		col("outbound_traffic", TypeFloat, "Amount of included outbound traffic in GB per month."),
		col("ipv4", TypeInt, "Number of included public IPv4 addresses."),
	}, metaColumns()...),
	PK: []string{"vendor_id", "server_id"},
	FKs: []ForeignKey{
		{Columns: []string{"vendor_id"}, RefTable: "vendor", RefColumns: []string{"vendor_id"}},
	},
	SCD: true,
}

var TableServerPrice = &Table{
	Name: "server_price",
	Columns: append(append([]Column{
		col("vendor_id", TypeText, "Identifier of the owning vendor."),
		col("region_id", TypeText, "Identifier of the region the price applies to."),
		col("zone_id", TypeText, "Identifier of the zone the price applies to."),
		col("server_id", TypeText, "Identifier of the priced server type."),
		col("allocation", TypeText, "Purchasing model: ONDEMAND, RESERVED, or SPOT."),
		col("operating_system", TypeText, "Operating system the price applies to."),
	}, priceColumns()...), metaColumns()...),
	PK: []string{"vendor_id", "region_id", "zone_id", "server_id", "allocation"},
	FKs: []ForeignKey{
		{Columns: []string{"vendor_id"}, RefTable: "vendor", RefColumns: []string{"vendor_id"}},
		{Columns: []string{"vendor_id", "region_id"}, RefTable: "region", RefColumns: []string{"vendor_id", "region_id"}},
		{Columns: []string{"vendor_id", "region_id", "zone_id"}, RefTable: "zone", RefColumns: []string{"vendor_id", "region_id", "zone_id"}},
		{Columns: []string{"vendor_id", "server_id"}, RefTable: "server", RefColumns: []string{"vendor_id", "server_id"}},
	},
	SCD: true,
}

var TableStoragePrice = &Table{
	Name: "storage_price",
	Columns: append(append([]Column{
		col("vendor_id", TypeText, "Identifier of the owning vendor."),
		col("region_id", TypeText, "Identifier of the region the price applies to."),
		col("storage_id", TypeText, "Identifier of the priced storage offering."),
	}, priceColumns()...), metaColumns()...),
	PK: []string{"vendor_id", "region_id", "storage_id"},
	FKs: []ForeignKey{
		{Columns: []string{"vendor_id", "region_id"}, RefTable: "region", RefColumns: []string{"vendor_id", "region_id"}},
		{Columns: []string{"vendor_id", "storage_id"}, RefTable: "storage", RefColumns: []string{"vendor_id", "storage_id"}},
	},
	SCD: true,
}

var TableTrafficPrice = &Table{
	Name: "traffic_price",
	Columns: append(append([]Column{
		col("vendor_id", TypeText, "Identifier of the owning vendor."),
		col("region_id", TypeText, "Identifier of the region the price applies to."),
		col("direction", TypeText, "Traffic direction: IN or OUT."),
	}, priceColumns()...), metaColumns()...),
	PK: []string{"vendor_id", "region_id", "direction"},
	FKs: []ForeignKey{
		{Columns: []string{"vendor_id", "region_id"}, RefTable: "region", RefColumns: []string{"vendor_id", "region_id"}},
	},
	SCD: true,
}

var TableIpv4Price = &Table{
	Name: "ipv4_price",
	Columns: append(append([]Column{
		col("vendor_id", TypeText, "Identifier of the owning vendor."),
		col("region_id", TypeText, "Identifier of the region the price applies to."),
	}, priceColumns()...), metaColumns()...),
	PK: []string{"vendor_id", "region_id"},
	FKs: []ForeignKey{
		{Columns: []string{"vendor_id", "region_id"}, RefTable: "region", RefColumns: []string{"vendor_id", "region_id"}},
	},
	SCD: true,
}

var TableBenchmark = &Table{
	Name: "benchmark",
	Columns: append([]Column{
		col("benchmark_id", TypeText, "Unique identifier of the benchmark workload."),
		col("name", TypeText, "Human-friendly name of the benchmark."),
		ncol("description", TypeText, "Description of the workload and its caveats."),
		col("framework", TypeText, "Name of the tool that runs the benchmark."),
		ncol("config_fields", TypeJSON, "Descriptions of the config parameters as a JSON object."),
		ncol("measurement", TypeText, "What the score measures."),
		ncol("unit", TypeText, "Unit of the score."),
		col("higher_is_better", TypeBool, "Whether a higher score means better performance."),
	}, metaColumns()...),
	PK: []string{"benchmark_id"},
}

var TableBenchmarkScore = &Table{
	Name: "benchmark_score",
	Columns: append([]Column{
		col("vendor_id", TypeText, "Identifier of the owning vendor."),
		col("server_id", TypeText, "Identifier of the measured server type."),
		col("benchmark_id", TypeText, "Identifier of the benchmark workload."),
		col("config", TypeJSON, "Benchmark config parameters of this run as a JSON object."),
		col("score", TypeFloat, "Measured score."),
		ncol("note", TypeText, "Optional note on the run."),
	}, metaColumns()...),
	PK: []string{"vendor_id", "server_id", "benchmark_id", "config"},
	FKs: []ForeignKey{
		{Columns: []string{"vendor_id"}, RefTable: "vendor", RefColumns: []string{"vendor_id"}},
		{Columns: []string{"vendor_id", "server_id"}, RefTable: "server", RefColumns: []string{"vendor_id", "server_id"}},
		{Columns: []string{"benchmark_id"}, RefTable: "benchmark", RefColumns: []string{"benchmark_id"}},
	},
	SCD: true,
}

// Tables lists every live table in FK dependency order: referenced tables
// first, so schema creation and seeding can run top to bottom.
func Tables() []*Table {
	return []*Table{
		TableCountry,
		TableComplianceFramework,
		TableVendor,
		TableVendorComplianceLink,
		TableRegion,
		TableZone,
		TableStorage,
		TableServer,
		TableServerPrice,
		TableStoragePrice,
		TableTrafficPrice,
		TableIpv4Price,
		TableBenchmark,
		TableBenchmarkScore,
	}
}

// TableByName looks up a live table by name.
func TableByName(name string) (*Table, bool) {
	for _, t := range Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}
