package inspector

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// HydrateServer fills missing hardware fields of a pulled Server row from
// the probe outputs recorded for its api_reference. Fields the adapter
// already set are left alone; missing probe files leave fields unchanged.
func (d *Dataset) HydrateServer(v *catalog.VendorView, srv *catalog.Server) {
	vendorID := v.Vendor.VendorID
	if out, _, ok := d.output(vendorID, srv.APIReference, "dmidecode"); ok {
		d.applyDmidecode(srv, string(out))
	} else {
		d.log.Debug("no dmidecode output", "vendor", vendorID, "server", srv.APIReference)
	}
	if out, _, ok := d.output(vendorID, srv.APIReference, "lscpu"); ok {
		d.applyLscpu(srv, string(out))
	} else {
		d.log.Debug("no lscpu output", "vendor", vendorID, "server", srv.APIReference)
	}
	if out, _, ok := d.output(vendorID, srv.APIReference, "nvidia_smi"); ok {
		d.applyNvidiaSmi(srv, out)
	}
}

// dmidecode sections are "Processor Information" and "Memory Device"
// blocks of tab-indented "Key: Value" lines.
type dmiBlock struct {
	kind   string
	fields map[string]string
}

func parseDmidecode(out string) []dmiBlock {
	var blocks []dmiBlock
	var cur *dmiBlock
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "Handle "):
			blocks = append(blocks, dmiBlock{fields: map[string]string{}})
			cur = &blocks[len(blocks)-1]
		case cur == nil:
		case cur.kind == "" && !strings.HasPrefix(line, "\t") && strings.TrimSpace(line) != "":
			cur.kind = strings.TrimSpace(line)
		case strings.HasPrefix(line, "\t") && strings.Contains(line, ":"):
			k, val, _ := strings.Cut(strings.TrimPrefix(line, "\t"), ":")
			cur.fields[strings.TrimSpace(k)] = strings.TrimSpace(val)
		}
	}
	return blocks
}

func (d *Dataset) applyDmidecode(srv *catalog.Server, out string) {
	cores := 0
	for _, b := range parseDmidecode(out) {
		switch b.kind {
		case "Processor Information":
			if n, err := strconv.Atoi(b.fields["Core Count"]); err == nil {
				cores += n
			}
			if srv.CPUManufacturer == nil {
				if m := StandardizeManufacturer(b.fields["Manufacturer"]); m != "" {
					srv.CPUManufacturer = util.Ptr(m)
				}
			}
			if srv.CPUFamily == nil {
				if f := b.fields["Family"]; f != "" && f != "Unknown" && f != "Other" {
					srv.CPUFamily = util.Ptr(f)
				}
			}
			if srv.CPUModel == nil {
				if m := CleanCPUModel(b.fields["Version"]); m != "" {
					srv.CPUModel = util.Ptr(m)
				}
			}
			if srv.CPUSpeed == nil {
				speed := b.fields["Max Speed"]
				if speed == "" {
					speed = b.fields["Current Speed"]
				}
				if ghz, ok := speedGHz(speed); ok {
					srv.CPUSpeed = util.Ptr(ghz)
				}
			}
		case "Memory Device":
			if srv.MemoryGen == nil {
				switch gen := catalog.DDRGeneration(b.fields["Type"]); gen {
				case catalog.DDR3, catalog.DDR4, catalog.DDR5:
					srv.MemoryGen = util.Ptr(gen)
				}
			}
			if srv.MemorySpeed == nil {
				if mts, ok := transferRate(b.fields["Speed"]); ok {
					srv.MemorySpeed = util.Ptr(mts)
				}
			}
		}
	}
	if srv.CPUCores == nil && cores > 0 {
		srv.CPUCores = util.Ptr(cores)
	}
}

func (d *Dataset) applyLscpu(srv *catalog.Server, out string) {
	fields := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		if k, v, ok := strings.Cut(line, ":"); ok {
			fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	// L1 is the sum of the instruction and data caches.
	if srv.CPUL1Cache == nil {
		l1d, okd := cacheBytes(fields["L1d cache"])
		l1i, oki := cacheBytes(fields["L1i cache"])
		if okd || oki {
			srv.CPUL1Cache = util.Ptr(l1d + l1i)
		}
	}
	if srv.CPUL2Cache == nil {
		if b, ok := cacheBytes(fields["L2 cache"]); ok {
			srv.CPUL2Cache = util.Ptr(b)
		}
	}
	if srv.CPUL3Cache == nil {
		if b, ok := cacheBytes(fields["L3 cache"]); ok {
			srv.CPUL3Cache = util.Ptr(b)
		}
	}
	if len(srv.CPUFlags) == 0 && fields["Flags"] != "" {
		srv.CPUFlags = strings.Fields(fields["Flags"])
	}
}

// nvidiaSmiLog is the subset of the nvidia-smi -x -q output we consume.
type nvidiaSmiLog struct {
	XMLName xml.Name `xml:"nvidia_smi_log"`
	Gpus    []struct {
		ProductName  string `xml:"product_name"`
		ProductBrand string `xml:"product_brand"`
		Architecture string `xml:"product_architecture"`
		FbMemory     struct {
			Total string `xml:"total"`
		} `xml:"fb_memory_usage"`
		FirmwareVersion string `xml:"driver_version"`
		VbiosVersion    string `xml:"vbios_version"`
		MaxClocks       struct {
			Graphics string `xml:"graphics_clock"`
			SM       string `xml:"sm_clock"`
			Mem      string `xml:"mem_clock"`
			Video    string `xml:"video_clock"`
		} `xml:"max_clocks"`
	} `xml:"gpu"`
}

func (d *Dataset) applyNvidiaSmi(srv *catalog.Server, out []byte) {
	var log nvidiaSmiLog
	if err := xml.Unmarshal(out, &log); err != nil || len(log.Gpus) == 0 {
		return
	}

	var gpus []catalog.Gpu
	var total, min int64
	for _, g := range log.Gpus {
		mem := mibValue(g.FbMemory.Total)
		gpu := catalog.Gpu{
			Manufacturer: "Nvidia",
			Family:       g.Architecture,
			Model:        CleanGPUModel(g.ProductName),
			MemoryMiB:    mem,
			FirmwareVer:  g.FirmwareVersion,
			BiosVer:      g.VbiosVersion,
			GraphicsClk:  mhzValue(g.MaxClocks.Graphics),
			SMClk:        mhzValue(g.MaxClocks.SM),
			MemClk:       mhzValue(g.MaxClocks.Mem),
			VideoClk:     mhzValue(g.MaxClocks.Video),
		}
		gpus = append(gpus, gpu)
		total += mem
		if min == 0 || (mem > 0 && mem < min) {
			min = mem
		}
	}

	if len(srv.Gpus) == 0 {
		srv.Gpus = gpus
	}
	if srv.GpuManufacturer == nil {
		srv.GpuManufacturer = util.Ptr("Nvidia")
	}
	if srv.GpuFamily == nil && gpus[0].Family != "" {
		srv.GpuFamily = util.Ptr(gpus[0].Family)
	}
	if srv.GpuModel == nil && gpus[0].Model != "" {
		srv.GpuModel = util.Ptr(gpus[0].Model)
	}
	if srv.GpuMemoryMin == nil && min > 0 {
		srv.GpuMemoryMin = util.Ptr(min)
	}
	if srv.GpuMemoryTotal == nil && total > 0 {
		srv.GpuMemoryTotal = util.Ptr(total)
	}
}

// StandardizeManufacturer maps the strings hardware probes report to the
// canonical manufacturer names used across vendors.
func StandardizeManufacturer(s string) string {
	switch strings.TrimSpace(s) {
	case "Advanced Micro Devices, Inc.", "AuthenticAMD", "AMD":
		return "AMD"
	case "Intel(R) Corporation", "GenuineIntel", "Intel":
		return "Intel"
	case "NVIDIA", "Nvidia", "Tesla":
		return "Nvidia"
	case "", "Unknown", "Not Specified":
		return ""
	default:
		return strings.TrimSpace(s)
	}
}

var cpuSuffixRe = regexp.MustCompile(`\s*(CPU\s*)?@\s*[\d.]+\s*[GM]Hz$`)

// CleanCPUModel strips vendor prefixes and the trailing " CPU @ X.YGHz"
// decoration from a processor version string.
func CleanCPUModel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "Unknown" || s == "Not Specified" {
		return ""
	}
	s = cpuSuffixRe.ReplaceAllString(s, "")
	for _, prefix := range []string{"Intel(R) Xeon(R) Platinum", "Intel(R) Xeon(R) Gold", "Intel(R) Xeon(R)", "Intel(R) Core(TM)", "Intel(R)", "AMD EPYC", "AMD"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			s = rest
			break
		}
	}
	return strings.TrimSpace(s)
}

// CleanGPUModel drops the brand prefix nvidia-smi repeats in the product
// name ("NVIDIA A10G" -> "A10G", "Tesla T4" -> "T4").
func CleanGPUModel(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"NVIDIA ", "Tesla "} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return s
}

// speedGHz parses a dmidecode speed value ("3500 MHz", "2.5 GHz",
// "2500000000 Hz") into GHz.
func speedGHz(s string) (float64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	unit := "MHz"
	if len(fields) > 1 {
		unit = fields[1]
	}
	switch strings.ToLower(unit) {
	case "ghz":
		return n, true
	case "mhz":
		return n / 1e3, true
	case "hz":
		return n / 1e9, true
	default:
		return 0, false
	}
}

// transferRate parses a dmidecode memory speed ("2933 MT/s") to MT/s.
func transferRate(s string) (int, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

var instancesRe = regexp.MustCompile(`\((\d+) instances?\)`)

// cacheBytes parses an lscpu cache value: "32K", "48 KiB", "1.5 MiB",
// optionally with a "(N instances)" suffix multiplying the size.
func cacheBytes(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	mult := int64(1)
	if m := instancesRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.ParseInt(m[1], 10, 64)
		if n > 0 {
			mult = n
		}
		s = strings.TrimSpace(s[:strings.Index(s, "(")])
	}

	fields := strings.Fields(s)
	num := fields[0]
	unit := ""
	if len(fields) > 1 {
		unit = fields[1]
	} else {
		// compact form "32K"
		i := strings.IndexFunc(num, func(r rune) bool { return r != '.' && (r < '0' || r > '9') })
		if i > 0 {
			unit = num[i:]
			num = num[:i]
		}
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	switch strings.ToUpper(strings.TrimSuffix(strings.TrimSuffix(unit, "iB"), "B")) {
	case "":
		return int64(n) * mult, true
	case "K", "KI":
		return int64(n*1024) * mult, true
	case "M", "MI":
		return int64(n*1024*1024) * mult, true
	case "G", "GI":
		return int64(n*1024*1024*1024) * mult, true
	default:
		return 0, false
	}
}

// mibValue parses "15360 MiB" into 15360.
func mibValue(s string) int64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// mhzValue parses "1710 MHz" into 1710.
func mhzValue(s string) int64 {
	return mibValue(s)
}
