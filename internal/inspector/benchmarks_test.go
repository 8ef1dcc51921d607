package inspector

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/skucrawler/skucrawler/pkg/catalog"
)

const passingMeta = `{"start":"2026-05-01T09:00:00Z","end":"2026-05-01T10:00:00Z","exit_code":0,"version":"6.3.0"}`

func TestHarvestBenchmarks(t *testing.T) {
	d, root := testDataset(t)
	srv := &catalog.Server{VendorID: "aws", ServerID: "m5.large", APIReference: "m5.large", VCpus: 2}

	writeOutput(t, root, "aws", "m5.large", "lscpu", lscpuFixture, passingMeta)
	writeOutput(t, root, "aws", "m5.large", "stressng",
		"stress-ng: info:  [41] setting to a 10 second run per stressor\n"+
			"stress-ng: metrc: [41] cpu bogo-ops-per-second-real-time 2469.13\n",
		passingMeta)
	writeOutput(t, root, "aws", "m5.large", "geekbench",
		`{"1":{"Score":{"score":1234},"File Compression":{"score":200.5}}}`, passingMeta)
	// Failed run: exit code 1 must contribute nothing.
	writeOutput(t, root, "aws", "m5.large", "openssl",
		`[{"algo":"aes-256-gcm","block_size":8192,"speed":1.0e9}]`,
		`{"exit_code":1}`)

	scores := d.HarvestBenchmarks(testView("aws"), []*catalog.Server{srv})

	byID := map[string]*catalog.BenchmarkScore{}
	for _, s := range scores {
		byID[s.BenchmarkID] = s
	}

	if s, ok := byID["bogomips"]; !ok || s.Score != 5299.98 {
		t.Errorf("bogomips score = %+v", byID["bogomips"])
	}
	if s, ok := byID["stress_ng:cpu_all"]; !ok || s.Score != 2469.13 {
		t.Errorf("stress_ng score = %+v", byID["stress_ng:cpu_all"])
	} else if s.Config["cores"] != srv.VCpus {
		t.Errorf("stress_ng cores = %v, want %d", s.Config["cores"], srv.VCpus)
	}
	if s, ok := byID["geekbench:score"]; !ok || s.Score != 1234 {
		t.Errorf("geekbench score = %+v", byID["geekbench:score"])
	}
	if s, ok := byID["geekbench:file_compression"]; !ok || s.Score != 200.5 {
		t.Errorf("geekbench workload = %+v", byID["geekbench:file_compression"])
	}
	if _, ok := byID["openssl"]; ok {
		t.Error("failed framework run contributed scores")
	}

	wantEnd := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for _, s := range scores {
		if s.VendorID != "aws" || s.ServerID != "m5.large" {
			t.Errorf("score identity not filled: %+v", s)
		}
		if !s.ObservedAt.Equal(wantEnd) {
			t.Errorf("score observed_at = %v, want framework end %v", s.ObservedAt, wantEnd)
		}
	}
}

func TestHarvestDropsUnknownBenchmarks(t *testing.T) {
	d, root := testDataset(t)
	srv := &catalog.Server{VendorID: "aws", ServerID: "m5.large", APIReference: "m5.large", VCpus: 2}

	writeOutput(t, root, "aws", "m5.large", "geekbench",
		`{"1":{"Quantum Sort":{"score":999}}}`, passingMeta)

	if scores := d.HarvestBenchmarks(testView("aws"), []*catalog.Server{srv}); len(scores) != 0 {
		t.Errorf("unknown workload produced scores: %+v", scores)
	}
}

func TestParseBwMem(t *testing.T) {
	stdout := []byte("rd 256.00 21859.53\nwr 256.00 14021.77\nnoise line\n")
	scores := parseBwMem(nil, stdout, frameworkMeta{})
	if len(scores) != 2 {
		t.Fatalf("scores = %d, want 2", len(scores))
	}
	want := map[string]any{"what": "rd", "size": 256.0}
	if diff := cmp.Diff(want, scores[0].Config); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	if scores[0].Score != 21859.53 {
		t.Errorf("score = %v", scores[0].Score)
	}
}

func TestParseCompressionText(t *testing.T) {
	stdout := []byte(`{
		"zstd": {
			"3": [{"threads": 1, "extra_args": {"block_size": 65536}, "ratio": 3.2, "compress": 1.2e8, "decompress": 4.5e8}]
		}
	}`)
	scores := parseCompressionText(nil, stdout, frameworkMeta{})
	if len(scores) != 3 {
		t.Fatalf("scores = %d, want ratio+compress+decompress", len(scores))
	}
	for _, s := range scores {
		if s.Config["algo"] != "zstd" || s.Config["compression_level"] != 3 || s.Config["threads"] != 1 {
			t.Errorf("config = %v", s.Config)
		}
		if _, ok := s.Config["block_size"]; !ok {
			t.Errorf("block_size missing from config: %v", s.Config)
		}
	}
}

func TestParseOpenssl(t *testing.T) {
	stdout := []byte(`[{"algo":"sha256","block_size":16384,"speed":4.2e9}]`)
	scores := parseOpenssl(nil, stdout, frameworkMeta{Version: "3.0.13"})
	if len(scores) != 1 {
		t.Fatalf("scores = %d, want 1", len(scores))
	}
	s := scores[0]
	if s.BenchmarkID != "openssl" || s.Score != 4.2e9 {
		t.Errorf("score = %+v", s)
	}
	if s.Config["framework_version"] != "3.0.13" {
		t.Errorf("framework_version = %v", s.Config["framework_version"])
	}
}

func TestDefinitionsAreWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, b := range Definitions() {
		if err := catalog.Validate(b); err != nil {
			t.Errorf("benchmark %s: %v", b.BenchmarkID, err)
		}
		if seen[b.BenchmarkID] {
			t.Errorf("duplicate benchmark id %s", b.BenchmarkID)
		}
		seen[b.BenchmarkID] = true
	}
	for _, id := range []string{"bogomips", "bw_mem", "openssl", "stress_ng:cpu_all", "geekbench:score"} {
		if !seen[id] {
			t.Errorf("missing benchmark id %s", id)
		}
	}
}
