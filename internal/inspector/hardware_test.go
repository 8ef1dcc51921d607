package inspector

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/skucrawler/skucrawler/pkg/catalog"
)

const dmidecodeFixture = `# dmidecode 3.3
Getting SMBIOS data from sysfs.

Handle 0x0400, DMI type 4, 48 bytes
Processor Information
	Socket Designation: CPU 0
	Manufacturer: Advanced Micro Devices, Inc.
	Family: Zen
	Version: AMD EPYC 7R13 Processor
	Max Speed: 3600 MHz
	Current Speed: 2650 MHz
	Core Count: 24

Handle 0x0401, DMI type 4, 48 bytes
Processor Information
	Socket Designation: CPU 1
	Manufacturer: Advanced Micro Devices, Inc.
	Family: Zen
	Version: AMD EPYC 7R13 Processor
	Max Speed: 3600 MHz
	Core Count: 24

Handle 0x1100, DMI type 17, 40 bytes
Memory Device
	Size: 16 GB
	Type: DDR4
	Speed: 3200 MT/s
`

const lscpuFixture = `Architecture:        x86_64
CPU(s):              96
BogoMIPS:            5299.98
L1d cache:           1.5 MiB (48 instances)
L1i cache:           1.5 MiB (48 instances)
L2 cache:            24 MiB (48 instances)
L3 cache:            192 MiB (6 instances)
Flags:               fpu vme de pse sse sse2 avx avx2
`

const nvidiaSmiFixture = `<?xml version="1.0" ?>
<nvidia_smi_log>
	<gpu id="00000000:00:1E.0">
		<product_name>NVIDIA A10G</product_name>
		<product_brand>NVIDIA</product_brand>
		<product_architecture>Ampere</product_architecture>
		<driver_version>535.104.05</driver_version>
		<vbios_version>94.02.75.00.01</vbios_version>
		<fb_memory_usage>
			<total>23028 MiB</total>
		</fb_memory_usage>
		<max_clocks>
			<graphics_clock>1710 MHz</graphics_clock>
			<sm_clock>1710 MHz</sm_clock>
			<mem_clock>6251 MHz</mem_clock>
			<video_clock>1512 MHz</video_clock>
		</max_clocks>
	</gpu>
</nvidia_smi_log>
`

// writeOutput lays one framework's files into a fixture tree.
func writeOutput(t *testing.T, root, vendor, server, framework, stdout, meta string) {
	t.Helper()
	dir := filepath.Join(root, vendor, server, framework)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stdout"), []byte(stdout), 0o644); err != nil {
		t.Fatal(err)
	}
	if meta != "" {
		if err := os.WriteFile(filepath.Join(dir, "meta.json"), []byte(meta), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func testView(vendorID string) *catalog.VendorView {
	return &catalog.VendorView{Vendor: &catalog.Vendor{VendorID: vendorID}}
}

func testDataset(t *testing.T) (*Dataset, string) {
	t.Helper()
	root := t.TempDir()
	return Open(root, slog.New(slog.NewTextHandler(io.Discard, nil))), root
}

func TestHydrateServerFromProbes(t *testing.T) {
	d, root := testDataset(t)
	writeOutput(t, root, "aws", "m6g.large", "dmidecode", dmidecodeFixture, "")
	writeOutput(t, root, "aws", "m6g.large", "lscpu", lscpuFixture, "")

	srv := &catalog.Server{VendorID: "aws", ServerID: "m6g.large", APIReference: "m6g.large"}
	d.HydrateServer(testView("aws"), srv)

	if srv.CPUManufacturer == nil || *srv.CPUManufacturer != "AMD" {
		t.Errorf("CPUManufacturer = %v, want AMD", srv.CPUManufacturer)
	}
	if srv.CPUModel == nil || *srv.CPUModel != "7R13 Processor" {
		t.Errorf("CPUModel = %v, want 7R13 Processor", srv.CPUModel)
	}
	if srv.CPUFamily == nil || *srv.CPUFamily != "Zen" {
		t.Errorf("CPUFamily = %v, want Zen", srv.CPUFamily)
	}
	if srv.CPUCores == nil || *srv.CPUCores != 48 {
		t.Errorf("CPUCores = %v, want 48 (two sockets)", srv.CPUCores)
	}
	if srv.CPUSpeed == nil || *srv.CPUSpeed != 3.6 {
		t.Errorf("CPUSpeed = %v, want 3.6", srv.CPUSpeed)
	}
	if srv.MemoryGen == nil || *srv.MemoryGen != catalog.DDR4 {
		t.Errorf("MemoryGen = %v, want DDR4", srv.MemoryGen)
	}
	if srv.MemorySpeed == nil || *srv.MemorySpeed != 3200 {
		t.Errorf("MemorySpeed = %v, want 3200", srv.MemorySpeed)
	}
	wantL1 := int64(2 * 48 * 1.5 * 1024 * 1024)
	if srv.CPUL1Cache == nil || *srv.CPUL1Cache != wantL1 {
		t.Errorf("CPUL1Cache = %v, want %d", srv.CPUL1Cache, wantL1)
	}
	if srv.CPUL3Cache == nil || *srv.CPUL3Cache != 6*192*1024*1024 {
		t.Errorf("CPUL3Cache = %v", srv.CPUL3Cache)
	}
	wantFlags := []string{"fpu", "vme", "de", "pse", "sse", "sse2", "avx", "avx2"}
	if diff := cmp.Diff(wantFlags, srv.CPUFlags); diff != "" {
		t.Errorf("CPUFlags (-want +got):\n%s", diff)
	}
}

func TestHydrateServerKeepsAdapterFields(t *testing.T) {
	d, root := testDataset(t)
	writeOutput(t, root, "aws", "c5.large", "dmidecode", dmidecodeFixture, "")

	srv := &catalog.Server{
		VendorID: "aws", ServerID: "c5.large", APIReference: "c5.large",
		CPUManufacturer: strp("Intel"),
		CPUSpeed:        fltp(3.0),
	}
	d.HydrateServer(testView("aws"), srv)

	if *srv.CPUManufacturer != "Intel" {
		t.Errorf("probe output overwrote the adapter's manufacturer: %s", *srv.CPUManufacturer)
	}
	if *srv.CPUSpeed != 3.0 {
		t.Errorf("probe output overwrote the adapter's clock speed: %v", *srv.CPUSpeed)
	}
}

func TestHydrateServerMissingProbesIsNoop(t *testing.T) {
	d, _ := testDataset(t)
	srv := &catalog.Server{VendorID: "aws", ServerID: "x.large", APIReference: "x.large"}
	d.HydrateServer(testView("aws"), srv)
	if srv.CPUManufacturer != nil || srv.CPUCores != nil || srv.CPUL2Cache != nil {
		t.Errorf("hydration without probe outputs mutated the server: %+v", srv)
	}
}

func TestApplyNvidiaSmi(t *testing.T) {
	d, root := testDataset(t)
	writeOutput(t, root, "aws", "g5.xlarge", "nvidia_smi", nvidiaSmiFixture, "")

	srv := &catalog.Server{VendorID: "aws", ServerID: "g5.xlarge", APIReference: "g5.xlarge"}
	d.HydrateServer(testView("aws"), srv)

	if len(srv.Gpus) != 1 {
		t.Fatalf("gpus = %d, want 1", len(srv.Gpus))
	}
	gpu := srv.Gpus[0]
	if gpu.Model != "A10G" || gpu.Manufacturer != "Nvidia" || gpu.Family != "Ampere" {
		t.Errorf("gpu identity = %+v", gpu)
	}
	if gpu.MemoryMiB != 23028 || gpu.GraphicsClk != 1710 || gpu.MemClk != 6251 {
		t.Errorf("gpu numbers = %+v", gpu)
	}
	if srv.GpuMemoryTotal == nil || *srv.GpuMemoryTotal != 23028 {
		t.Errorf("GpuMemoryTotal = %v", srv.GpuMemoryTotal)
	}
	if srv.GpuMemoryMin == nil || *srv.GpuMemoryMin != 23028 {
		t.Errorf("GpuMemoryMin = %v", srv.GpuMemoryMin)
	}
}

func TestStandardizeManufacturer(t *testing.T) {
	cases := map[string]string{
		"Advanced Micro Devices, Inc.": "AMD",
		"GenuineIntel":                 "Intel",
		"Intel(R) Corporation":         "Intel",
		"NVIDIA":                       "Nvidia",
		"Tesla":                        "Nvidia",
		"Not Specified":                "",
		"Unknown":                      "",
		"Ampere Computing":             "Ampere Computing",
	}
	for in, want := range cases {
		if got := StandardizeManufacturer(in); got != want {
			t.Errorf("StandardizeManufacturer(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanCPUModel(t *testing.T) {
	cases := map[string]string{
		"Intel(R) Xeon(R) Platinum 8375C CPU @ 2.90GHz": "8375C",
		"AMD EPYC 7R13 Processor":                       "7R13 Processor",
		"Intel(R) Xeon(R) CPU E5-2686 v4 @ 2.30GHz":     "CPU E5-2686 v4",
		"Not Specified":                                 "",
		"":                                              "",
	}
	for in, want := range cases {
		if got := CleanCPUModel(in); got != want {
			t.Errorf("CleanCPUModel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanGPUModel(t *testing.T) {
	cases := map[string]string{
		"NVIDIA A10G": "A10G",
		"Tesla T4":    "T4",
		"A100-SXM4":   "A100-SXM4",
	}
	for in, want := range cases {
		if got := CleanGPUModel(in); got != want {
			t.Errorf("CleanGPUModel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSpeedGHz(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"3500 MHz", 3.5, true},
		{"2.5 GHz", 2.5, true},
		{"2500000000 Hz", 2.5, true},
		{"Unknown", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := speedGHz(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("speedGHz(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestCacheBytes(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"32K", 32 * 1024, true},
		{"48 KiB", 48 * 1024, true},
		{"1.5 MiB", 1536 * 1024, true},
		{"24 MiB (48 instances)", 48 * 24 * 1024 * 1024, true},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := cacheBytes(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("cacheBytes(%q) = %d, %v; want %d, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func strp(s string) *string { return &s }

func fltp(f float64) *float64 { return &f }
