package aws

import (
	"encoding/json"
	"testing"

	"github.com/skucrawler/skucrawler/pkg/catalog"
)

const onDemandDoc = `{
	"product": {
		"attributes": {
			"instanceType": "m5.large",
			"regionCode": "us-east-1",
			"operatingSystem": "Linux",
			"tenancy": "Shared"
		}
	},
	"terms": {
		"OnDemand": {
			"X.JRTCKXETXF": {
				"priceDimensions": {
					"X.JRTCKXETXF.6YS6EN2CT7": {
						"unit": "Hrs",
						"pricePerUnit": {"USD": "0.0960000000"}
					}
				}
			}
		},
		"Reserved": {
			"X.38NPMPTW36": {
				"termAttributes": {
					"LeaseContractLength": "1yr",
					"OfferingClass": "standard",
					"PurchaseOption": "No Upfront"
				},
				"priceDimensions": {
					"X.38NPMPTW36.2TG2D8R56U": {
						"unit": "Hrs",
						"pricePerUnit": {"USD": "0.0620000000"}
					}
				}
			},
			"X.4NA7Y494T4": {
				"termAttributes": {
					"LeaseContractLength": "3yr",
					"OfferingClass": "standard",
					"PurchaseOption": "All Upfront"
				},
				"priceDimensions": {
					"X.4NA7Y494T4.6YS6EN2CT7": {
						"unit": "Hrs",
						"pricePerUnit": {"USD": "0.0000000000"}
					}
				}
			}
		}
	}
}`

func TestPriceDocParsing(t *testing.T) {
	var doc priceDoc
	if err := json.Unmarshal([]byte(onDemandDoc), &doc); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if doc.Product.Attributes["instanceType"] != "m5.large" {
		t.Errorf("instanceType = %q", doc.Product.Attributes["instanceType"])
	}

	var ondemand float64
	for _, term := range doc.Terms.OnDemand {
		if price, ok := hourlyRate(term); ok {
			ondemand = price
		}
	}
	if ondemand != 0.096 {
		t.Errorf("ondemand rate = %v, want 0.096", ondemand)
	}

	var reserved float64
	for _, term := range doc.Terms.Reserved {
		if term.TermAttributes["LeaseContractLength"] != "1yr" ||
			term.TermAttributes["PurchaseOption"] != "No Upfront" {
			continue
		}
		if price, ok := hourlyRate(term); ok {
			reserved = price
		}
	}
	if reserved != 0.062 {
		t.Errorf("reserved rate = %v, want 0.062", reserved)
	}
}

func TestHourlyRateSkipsZeroAndNonHourly(t *testing.T) {
	term := priceTerm{PriceDimensions: map[string]priceDimension{
		"a": {Unit: "Quantity", PricePerUnit: map[string]string{"USD": "100"}},
		"b": {Unit: "Hrs", PricePerUnit: map[string]string{"USD": "0.0000000000"}},
	}}
	if _, ok := hourlyRate(term); ok {
		t.Error("zero or non-hourly dimension produced a rate")
	}
}

func TestNetworkGbps(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"Up to 12.5 Gigabit", 12.5, true},
		{"100 Gigabit", 100, true},
		{"Moderate", 0, false},
		{"High", 0, false},
	}
	for _, c := range cases {
		got, ok := networkGbps(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("networkGbps(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestEgressTiersWellFormed(t *testing.T) {
	if err := catalog.ValidateTiers(egressTiers); err != nil {
		t.Errorf("egress ladder malformed: %v", err)
	}
}

func TestRegionInfosHaveKnownCountries(t *testing.T) {
	for id, info := range regionInfos {
		if _, ok := catalog.Continent(info.country); !ok {
			t.Errorf("region %s country %s missing from the country table", id, info.country)
		}
	}
}
