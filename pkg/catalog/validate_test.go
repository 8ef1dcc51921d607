package catalog

import (
	"math"
	"testing"
)

func validServer() *Server {
	return &Server{
		VendorID: "aws", ServerID: "m5.large", Name: "m5.large",
		APIReference: "m5.large", DisplayName: "m5.large",
		VCpus: 2, MemoryAmount: 8192,
		CPUAllocation: CPUAllocationDedicated, CPUArchitecture: ArchX8664,
	}
}

func TestValidateServer(t *testing.T) {
	if err := Validate(validServer()); err != nil {
		t.Errorf("valid server rejected: %v", err)
	}

	missing := validServer()
	missing.VCpus = 0
	if err := Validate(missing); err == nil {
		t.Error("server without vcpus accepted")
	}

	badEnum := validServer()
	badEnum.CPUAllocation = "ELASTIC"
	if err := Validate(badEnum); err == nil {
		t.Error("unknown cpu_allocation accepted")
	}

	badGpu := validServer()
	badGpu.Gpus = []Gpu{{Model: "A10G", MemoryMiB: 23028}}
	badGpu.GpuMemoryTotal = ptr(int64(999))
	if err := Validate(badGpu); err == nil {
		t.Error("gpu_memory_total mismatch accepted")
	}
	badGpu.GpuMemoryTotal = ptr(int64(23028))
	if err := Validate(badGpu); err != nil {
		t.Errorf("consistent gpu memory rejected: %v", err)
	}
}

func TestValidatePriceTiers(t *testing.T) {
	price := &TrafficPrice{
		VendorID: "aws", RegionID: "us-east-1", Direction: TrafficOut,
		Unit: UnitGB, Price: 0.09, Currency: "USD",
		PriceTiered: []PriceTier{
			{Lower: 0, Upper: 100, Price: 0},
			{Lower: 100, Upper: InfFloat(math.Inf(1)), Price: 0.09},
		},
	}
	if err := Validate(price); err != nil {
		t.Errorf("valid tiered price rejected: %v", err)
	}

	price.PriceTiered[1].Lower = 150
	if err := Validate(price); err == nil {
		t.Error("disconnected tiers accepted")
	}
}

func TestValidateNegativePrice(t *testing.T) {
	price := &Ipv4Price{
		VendorID: "aws", RegionID: "us-east-1",
		Unit: UnitHour, Price: -0.005, Currency: "USD",
	}
	if err := Validate(price); err == nil {
		t.Error("negative price accepted")
	}
}

func TestStaticLookupsAreValid(t *testing.T) {
	for _, c := range Countries() {
		if err := Validate(c); err != nil {
			t.Errorf("country %s: %v", c.CountryID, err)
		}
	}
	for _, f := range ComplianceFrameworks() {
		if err := Validate(f); err != nil {
			t.Errorf("framework %s: %v", f.ComplianceFrameworkID, err)
		}
	}
	for _, v := range Vendors() {
		if err := Validate(v); err != nil {
			t.Errorf("vendor %s: %v", v.VendorID, err)
		}
		if _, ok := Continent(v.CountryID); !ok {
			t.Errorf("vendor %s headquarters country %s has no continent entry", v.VendorID, v.CountryID)
		}
	}
}

func ptr[T any](v T) *T { return &v }
