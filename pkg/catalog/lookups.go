package catalog

import "sort"

func strptr(s string) *string { return &s }

// countryContinent maps ISO-3166 alpha-2 codes to continents for every
// country a supported vendor operates datacenters or headquarters in.
var countryContinent = map[string]string{
	"AE": "Asia",
	"AU": "Oceania",
	"BE": "Europe",
	"BH": "Asia",
	"BR": "South America",
	"CA": "North America",
	"CH": "Europe",
	"CL": "South America",
	"CN": "Asia",
	"DE": "Europe",
	"DK": "Europe",
	"ES": "Europe",
	"FI": "Europe",
	"FR": "Europe",
	"GB": "Europe",
	"HK": "Asia",
	"ID": "Asia",
	"IE": "Europe",
	"IL": "Asia",
	"IN": "Asia",
	"IT": "Europe",
	"JP": "Asia",
	"KR": "Asia",
	"MY": "Asia",
	"NL": "Europe",
	"NO": "Europe",
	"NZ": "Oceania",
	"PH": "Asia",
	"PL": "Europe",
	"PT": "Europe",
	"QA": "Asia",
	"SA": "Asia",
	"SE": "Europe",
	"SG": "Asia",
	"TH": "Asia",
	"TW": "Asia",
	"US": "North America",
	"VN": "Asia",
	"ZA": "Africa",
}

// Countries returns the static country seed rows, sorted by id.
func Countries() []*Country {
	out := make([]*Country, 0, len(countryContinent))
	for id, continent := range countryContinent {
		out = append(out, &Country{CountryID: id, Continent: continent})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CountryID < out[j].CountryID })
	return out
}

// Continent returns the continent of an ISO-3166 alpha-2 country code.
func Continent(countryID string) (string, bool) {
	c, ok := countryContinent[countryID]
	return c, ok
}

// ComplianceFrameworks returns the static registry of compliance
// frameworks vendors can be certified for.
func ComplianceFrameworks() []*ComplianceFramework {
	return []*ComplianceFramework{
		{
			ComplianceFrameworkID: "iso27001",
			Name:                  "ISO/IEC 27001",
			Abbreviation:          strptr("ISO 27001"),
			Description:           strptr("Standard for information security management systems covering policies and procedures for managing information risks."),
			Homepage:              strptr("https://www.iso.org/standard/27001"),
		},
		{
			ComplianceFrameworkID: "soc2t2",
			Name:                  "System and Organization Controls Level 2 Type 2",
			Abbreviation:          strptr("SOC 2 Type 2"),
			Description:           strptr("Audit framework evaluating the operating effectiveness of security, availability, processing integrity, confidentiality and privacy controls over time."),
			Homepage:              strptr("https://www.aicpa-cima.com/topic/audit-assurance/audit-and-assurance-greater-than-soc-2"),
		},
		{
			ComplianceFrameworkID: "hipaa",
			Name:                  "Health Insurance Portability and Accountability Act",
			Abbreviation:          strptr("HIPAA"),
			Description:           strptr("US regulation setting the standard for protecting sensitive patient health information."),
			Homepage:              strptr("https://www.hhs.gov/hipaa/"),
		},
	}
}

// Vendors returns the static seed record of every supported provider.
// Everything else about a vendor is discovered by its inventory pipeline.
func Vendors() []*Vendor {
	return []*Vendor{
		{
			VendorID:     "aws",
			Name:         "Amazon Web Services",
			Homepage:     "https://aws.amazon.com",
			CountryID:    "US",
			State:        strptr("Washington"),
			City:         strptr("Seattle"),
			AddressLine:  strptr("410 Terry Ave N"),
			ZipCode:      strptr("98109"),
			FoundingYear: 2002,
			StatusPage:   strptr("https://health.aws.amazon.com/health/status"),
		},
		{
			VendorID:     "azure",
			Name:         "Microsoft Azure",
			Homepage:     "https://azure.microsoft.com",
			CountryID:    "US",
			State:        strptr("Washington"),
			City:         strptr("Redmond"),
			AddressLine:  strptr("One Microsoft Way"),
			ZipCode:      strptr("98052"),
			FoundingYear: 2008,
			StatusPage:   strptr("https://status.azure.com"),
		},
		{
			VendorID:     "gcp",
			Name:         "Google Cloud Platform",
			Homepage:     "https://cloud.google.com",
			CountryID:    "US",
			State:        strptr("California"),
			City:         strptr("Mountain View"),
			AddressLine:  strptr("1600 Amphitheatre Pkwy"),
			ZipCode:      strptr("94043"),
			FoundingYear: 2008,
			StatusPage:   strptr("https://status.cloud.google.com"),
		},
		{
			VendorID:     "hcloud",
			Name:         "Hetzner Cloud",
			Homepage:     "https://www.hetzner.com/cloud",
			CountryID:    "DE",
			City:         strptr("Gunzenhausen"),
			AddressLine:  strptr("Industriestr. 25"),
			ZipCode:      strptr("91710"),
			FoundingYear: 1997,
			StatusPage:   strptr("https://status.hetzner.com"),
		},
		{
			VendorID:     "ovh",
			Name:         "OVHcloud",
			Homepage:     "https://www.ovhcloud.com",
			CountryID:    "FR",
			City:         strptr("Roubaix"),
			AddressLine:  strptr("2 rue Kellermann"),
			ZipCode:      strptr("59100"),
			FoundingYear: 1999,
			StatusPage:   strptr("https://status.ovhcloud.com"),
		},
		{
			VendorID:     "upcloud",
			Name:         "UpCloud",
			Homepage:     "https://upcloud.com",
			CountryID:    "FI",
			City:         strptr("Helsinki"),
			AddressLine:  strptr("Aleksanterinkatu 15 B"),
			ZipCode:      strptr("00100"),
			FoundingYear: 2012,
			StatusPage:   strptr("https://status.upcloud.com"),
		},
		{
			VendorID:     "alibaba",
			Name:         "Alibaba Cloud",
			Homepage:     "https://www.alibabacloud.com",
			CountryID:    "CN",
			City:         strptr("Hangzhou"),
			AddressLine:  strptr("969 West Wen Yi Road"),
			ZipCode:      strptr("311121"),
			FoundingYear: 2009,
			StatusPage:   strptr("https://status.alibabacloud.com"),
		},
	}
}
