package catalog

import (
	"encoding/json"
	"fmt"
	"math"
)

// InfFloat is a float64 that survives strict JSON. JSON has no ±Inf, so
// infinite values are encoded as the string literals "Infinity" and
// "-Infinity" and decoded back to math.Inf. Finite values round-trip as
// plain numbers.
type InfFloat float64

// MarshalJSON encodes ±Inf as quoted literals and finite values as numbers.
func (f InfFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(v):
		return nil, fmt.Errorf("NaN is not representable in a price tier")
	default:
		return json.Marshal(v)
	}
}

// UnmarshalJSON accepts either a JSON number or the literals "Infinity"
// and "-Infinity".
func (f *InfFloat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "Infinity":
			*f = InfFloat(math.Inf(1))
			return nil
		case "-Infinity":
			*f = InfFloat(math.Inf(-1))
			return nil
		default:
			return fmt.Errorf("unexpected tier bound %q", s)
		}
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("tier bound must be a number or \"Infinity\": %w", err)
	}
	*f = InfFloat(v)
	return nil
}

// PriceTier is one step of a piecewise-constant price function. Upper may
// be +Inf for the unbounded final tier.
type PriceTier struct {
	Lower InfFloat `json:"lower"`
	Upper InfFloat `json:"upper"`
	Price float64  `json:"price"`
}

// ValidateTiers checks that a tier list is sorted by lower bound and covers
// a connected range: each tier's upper equals the next tier's lower.
func ValidateTiers(tiers []PriceTier) error {
	for i, t := range tiers {
		if float64(t.Upper) < float64(t.Lower) {
			return fmt.Errorf("tier %d: upper %v below lower %v", i, float64(t.Upper), float64(t.Lower))
		}
		if i == 0 {
			continue
		}
		if float64(tiers[i-1].Upper) != float64(t.Lower) {
			return fmt.Errorf("tier %d: lower %v does not continue previous upper %v",
				i, float64(t.Lower), float64(tiers[i-1].Upper))
		}
	}
	return nil
}

// Cpu describes one CPU socket as reported by hardware inspection.
type Cpu struct {
	Manufacturer string   `json:"manufacturer,omitempty"`
	Family       string   `json:"family,omitempty"`
	Model        string   `json:"model,omitempty"`
	Cores        int      `json:"cores,omitempty"`
	Threads      int      `json:"threads,omitempty"`
	SpeedGHz     float64  `json:"speed,omitempty"`
	L1CacheBytes int64    `json:"l1_cache_size,omitempty"`
	L2CacheBytes int64    `json:"l2_cache_size,omitempty"`
	L3CacheBytes int64    `json:"l3_cache_size,omitempty"`
	Flags        []string `json:"flags,omitempty"`
}

// Gpu describes one GPU device attached to a server.
type Gpu struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Family       string `json:"family,omitempty"`
	Model        string `json:"model,omitempty"`
	MemoryMiB    int64  `json:"memory,omitempty"`
	FirmwareVer  string `json:"firmware_version,omitempty"`
	BiosVer      string `json:"bios_version,omitempty"`
	GraphicsClk  int64  `json:"graphics_clock,omitempty"`
	SMClk        int64  `json:"sm_clock,omitempty"`
	MemClk       int64  `json:"mem_clock,omitempty"`
	VideoClk     int64  `json:"video_clock,omitempty"`
}

// Disk describes one disk attached to a server.
type Disk struct {
	SizeGB      float64     `json:"size"`
	StorageType StorageType `json:"storage_type,omitempty"`
	Description string      `json:"description,omitempty"`
}
