package catalog

import (
	"encoding/json"
	"math"
	"testing"
)

func TestInfFloatRoundTrip(t *testing.T) {
	cases := []struct {
		in   InfFloat
		json string
	}{
		{InfFloat(0.12), "0.12"},
		{InfFloat(0), "0"},
		{InfFloat(math.Inf(1)), `"Infinity"`},
		{InfFloat(math.Inf(-1)), `"-Infinity"`},
	}
	for _, c := range cases {
		raw, err := json.Marshal(c.in)
		if err != nil {
			t.Fatalf("marshaling %v: %v", float64(c.in), err)
		}
		if string(raw) != c.json {
			t.Errorf("marshal(%v) = %s, want %s", float64(c.in), raw, c.json)
		}
		var back InfFloat
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("unmarshaling %s: %v", raw, err)
		}
		if float64(back) != float64(c.in) {
			t.Errorf("round trip of %v gave %v", float64(c.in), float64(back))
		}
	}
}

func TestInfFloatRejectsGarbage(t *testing.T) {
	for _, raw := range []string{`"inf"`, `"NaN"`, `"Infinityy"`, `true`} {
		var f InfFloat
		if err := json.Unmarshal([]byte(raw), &f); err == nil {
			t.Errorf("unmarshal(%s) accepted", raw)
		}
	}
	if _, err := json.Marshal(InfFloat(math.NaN())); err == nil {
		t.Error("NaN marshaled")
	}
}

func TestValidateTiers(t *testing.T) {
	inf := InfFloat(math.Inf(1))
	cases := []struct {
		name  string
		tiers []PriceTier
		ok    bool
	}{
		{"empty", nil, true},
		{"single unbounded", []PriceTier{{0, inf, 0.1}}, true},
		{"connected ladder", []PriceTier{{0, 100, 0}, {100, 10240, 0.09}, {10240, inf, 0.05}}, true},
		{"inverted bounds", []PriceTier{{100, 50, 0.1}}, false},
		{"gap", []PriceTier{{0, 100, 0}, {200, inf, 0.1}}, false},
		{"overlap", []PriceTier{{0, 100, 0}, {50, inf, 0.1}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateTiers(c.tiers)
			if c.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !c.ok && err == nil {
				t.Error("malformed tiers accepted")
			}
		})
	}
}
