package inspector

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/skucrawler/skucrawler/internal/metrics"
	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// geekbenchWorkloads are the workload names Geekbench 6 reports, plus the
// aggregate score.
var geekbenchWorkloads = []string{
	"Score",
	"File Compression",
	"Navigation",
	"HTML5 Browser",
	"PDF Renderer",
	"Photo Library",
	"Clang",
	"Text Processing",
	"Asset Compression",
	"Object Detection",
	"Background Blur",
	"Horizon Detection",
	"Object Remover",
	"Photo Filter",
	"Ray Tracer",
	"Structure from Motion",
}

// Definitions returns the static benchmark workload registry seeded into
// the benchmark table. Harvested scores referencing anything else are
// dropped to keep the score table referentially closed.
func Definitions() []*catalog.Benchmark {
	defs := []*catalog.Benchmark{
		{
			BenchmarkID:    "bogomips",
			Name:           "BogoMIPS",
			Description:    util.Ptr("CPU frequency measured by the Linux kernel's delay loop calibration."),
			Framework:      "lscpu",
			Measurement:    util.Ptr("BogoMIPS"),
			HigherIsBetter: true,
		},
		{
			BenchmarkID:    "bw_mem",
			Name:           "Memory bandwidth",
			Description:    util.Ptr("lmbench bw_mem memory bandwidth by operation and block size."),
			Framework:      "bw_mem",
			ConfigFields:   map[string]string{"what": "operation measured (rd, wr, rdwr, cp, ...)", "size": "block size in MB"},
			Unit:           util.Ptr("MB/s"),
			HigherIsBetter: true,
		},
		{
			BenchmarkID:    "compression_text:ratio",
			Name:           "Text compression ratio",
			Framework:      "compression_text",
			ConfigFields:   compressionConfigFields,
			HigherIsBetter: true,
		},
		{
			BenchmarkID:    "compression_text:compress",
			Name:           "Text compression speed",
			Framework:      "compression_text",
			ConfigFields:   compressionConfigFields,
			Unit:           util.Ptr("byte/s"),
			HigherIsBetter: true,
		},
		{
			BenchmarkID:    "compression_text:decompress",
			Name:           "Text decompression speed",
			Framework:      "compression_text",
			ConfigFields:   compressionConfigFields,
			Unit:           util.Ptr("byte/s"),
			HigherIsBetter: true,
		},
		{
			BenchmarkID:    "openssl",
			Name:           "OpenSSL speed",
			Description:    util.Ptr("openssl speed throughput by algorithm and block size."),
			Framework:      "openssl",
			ConfigFields:   map[string]string{"algo": "cipher or digest measured", "block_size": "block size in bytes", "framework_version": "openssl version"},
			Unit:           util.Ptr("byte/s"),
			HigherIsBetter: true,
		},
		{
			BenchmarkID:    "stress_ng:cpu_all",
			Name:           "stress-ng CPU (all methods)",
			Description:    util.Ptr("stress-ng --cpu-method all bogo ops per second."),
			Framework:      "stress_ng",
			ConfigFields:   map[string]string{"cores": "number of stressor cores"},
			Unit:           util.Ptr("bogo ops/s"),
			HigherIsBetter: true,
		},
	}
	for _, w := range geekbenchWorkloads {
		defs = append(defs, &catalog.Benchmark{
			BenchmarkID:    "geekbench:" + util.Slugify(w),
			Name:           "Geekbench: " + w,
			Framework:      "geekbench",
			ConfigFields:   map[string]string{"cores": "cores used by the run", "framework_version": "Geekbench version"},
			Unit:           util.Ptr("score"),
			HigherIsBetter: true,
		})
	}
	return defs
}

var compressionConfigFields = map[string]string{
	"algo":              "compression algorithm",
	"compression_level": "algorithm compression level",
	"threads":           "worker threads",
	"block_size":        "block size in bytes, when the algorithm splits input",
}

// Benchmarks implements the pipeline's Enricher seed hook.
func (d *Dataset) Benchmarks() []*catalog.Benchmark { return Definitions() }

// HarvestBenchmarks parses the recorded framework outputs of each server
// into BenchmarkScore rows. A missing output yields no rows for that
// (server, framework); scores for unknown benchmark ids are dropped.
func (d *Dataset) HarvestBenchmarks(v *catalog.VendorView, servers []*catalog.Server) []*catalog.BenchmarkScore {
	known := make(map[string]bool)
	for _, b := range Definitions() {
		known[b.BenchmarkID] = true
	}

	var out []*catalog.BenchmarkScore
	for _, srv := range servers {
		for _, h := range harvesters {
			stdout, meta, ok := d.output(v.Vendor.VendorID, srv.APIReference, h.framework)
			if !ok {
				d.log.Debug("no framework output", "vendor", v.Vendor.VendorID, "server", srv.APIReference, "framework", h.framework)
				metrics.InspectorMisses.WithLabelValues(v.Vendor.VendorID, h.framework).Inc()
				continue
			}
			for _, score := range h.parse(srv, stdout, meta) {
				if !known[score.BenchmarkID] {
					d.log.Debug("dropping unknown benchmark", "benchmark", score.BenchmarkID)
					continue
				}
				score.VendorID = v.Vendor.VendorID
				score.ServerID = srv.ServerID
				// The observation time is the framework run's end, not
				// the pull time.
				score.ObservedAt = meta.End
				out = append(out, score)
			}
		}
	}
	return out
}

type harvester struct {
	framework string
	parse     func(srv *catalog.Server, stdout []byte, meta frameworkMeta) []*catalog.BenchmarkScore
}

var harvesters = []harvester{
	{"lscpu", parseBogomips},
	{"bw_mem", parseBwMem},
	{"compression_text", parseCompressionText},
	{"geekbench", parseGeekbench},
	{"openssl", parseOpenssl},
	{"stressng", stressNg(0)},
	{"stressngsinglecore", stressNg(1)},
}

func parseBogomips(_ *catalog.Server, stdout []byte, _ frameworkMeta) []*catalog.BenchmarkScore {
	for _, line := range strings.Split(string(stdout), "\n") {
		if k, v, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(k) == "BogoMIPS" {
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil
			}
			return []*catalog.BenchmarkScore{{BenchmarkID: "bogomips", Score: n}}
		}
	}
	return nil
}

// bw_mem stdout is one "<what> <size> <bandwidth>" line per measurement.
func parseBwMem(_ *catalog.Server, stdout []byte, _ frameworkMeta) []*catalog.BenchmarkScore {
	var out []*catalog.BenchmarkScore
	for _, line := range strings.Split(string(stdout), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		size, err1 := strconv.ParseFloat(fields[1], 64)
		score, err2 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, &catalog.BenchmarkScore{
			BenchmarkID: "bw_mem",
			Config:      map[string]any{"what": fields[0], "size": size},
			Score:       score,
		})
	}
	return out
}

// compression_text stdout is nested JSON:
// {algo: {level: [{threads, extra_args, ratio, compress, decompress}]}}.
func parseCompressionText(_ *catalog.Server, stdout []byte, _ frameworkMeta) []*catalog.BenchmarkScore {
	var doc map[string]map[string][]struct {
		Threads    int            `json:"threads"`
		ExtraArgs  map[string]any `json:"extra_args"`
		Ratio      float64        `json:"ratio"`
		Compress   float64        `json:"compress"`
		Decompress float64        `json:"decompress"`
	}
	if err := json.Unmarshal(stdout, &doc); err != nil {
		return nil
	}
	var out []*catalog.BenchmarkScore
	for algo, levels := range doc {
		for level, runs := range levels {
			lvl, err := strconv.Atoi(level)
			if err != nil {
				continue
			}
			for _, run := range runs {
				config := map[string]any{
					"algo":              algo,
					"compression_level": lvl,
					"threads":           run.Threads,
				}
				if bs, ok := run.ExtraArgs["block_size"]; ok {
					config["block_size"] = bs
				}
				for id, score := range map[string]float64{
					"compression_text:ratio":      run.Ratio,
					"compression_text:compress":   run.Compress,
					"compression_text:decompress": run.Decompress,
				} {
					if score <= 0 {
						continue
					}
					out = append(out, &catalog.BenchmarkScore{BenchmarkID: id, Config: config, Score: score})
				}
			}
		}
	}
	return out
}

// geekbench stdout is {cores: {workload: {score, description?}}}.
func parseGeekbench(_ *catalog.Server, stdout []byte, meta frameworkMeta) []*catalog.BenchmarkScore {
	var doc map[string]map[string]struct {
		Score       float64 `json:"score"`
		Description string  `json:"description"`
	}
	if err := json.Unmarshal(stdout, &doc); err != nil {
		return nil
	}
	var out []*catalog.BenchmarkScore
	for cores, workloads := range doc {
		n, err := strconv.Atoi(cores)
		if err != nil {
			continue
		}
		for workload, res := range workloads {
			score := &catalog.BenchmarkScore{
				BenchmarkID: "geekbench:" + util.Slugify(workload),
				Config:      map[string]any{"cores": n, "framework_version": meta.Version},
				Score:       res.Score,
			}
			if res.Description != "" {
				score.Note = util.Ptr(res.Description)
			}
			out = append(out, score)
		}
	}
	return out
}

// openssl stdout is [{algo, block_size, speed}].
func parseOpenssl(_ *catalog.Server, stdout []byte, meta frameworkMeta) []*catalog.BenchmarkScore {
	var doc []struct {
		Algo      string  `json:"algo"`
		BlockSize int64   `json:"block_size"`
		Speed     float64 `json:"speed"`
	}
	if err := json.Unmarshal(stdout, &doc); err != nil {
		return nil
	}
	var out []*catalog.BenchmarkScore
	for _, row := range doc {
		out = append(out, &catalog.BenchmarkScore{
			BenchmarkID: "openssl",
			Config:      map[string]any{"algo": row.Algo, "block_size": row.BlockSize, "framework_version": meta.Version},
			Score:       row.Speed,
		})
	}
	return out
}

// stressNg extracts the bogo-ops rate from a stress-ng run. cores 0 means
// the run used every vCPU of the server.
func stressNg(cores int) func(*catalog.Server, []byte, frameworkMeta) []*catalog.BenchmarkScore {
	return func(srv *catalog.Server, stdout []byte, _ frameworkMeta) []*catalog.BenchmarkScore {
		n := cores
		if n == 0 {
			n = srv.VCpus
		}
		for _, line := range strings.Split(string(stdout), "\n") {
			if !strings.Contains(line, "bogo-ops-per-second-real-time") {
				continue
			}
			fields := strings.Fields(line)
			score, err := strconv.ParseFloat(fields[len(fields)-1], 64)
			if err != nil {
				return nil
			}
			return []*catalog.BenchmarkScore{{
				BenchmarkID: "stress_ng:cpu_all",
				Config:      map[string]any{"cores": n},
				Score:       score,
			}}
		}
		return nil
	}
}
