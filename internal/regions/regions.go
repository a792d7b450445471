// Package regions maps portable region codes to provider-specific
// pricing-location identifiers. The tables are static; no network access.
package regions

import (
	"sort"

	"pricecompare/internal/core"
)

// awsLocations maps region codes to the "location" attribute the AWS
// price list and Pricing API use in product records.
var awsLocations = map[core.RegionCode]core.ProviderLocation{
	"us-east-1":      "US East (N. Virginia)",
	"us-east-2":      "US East (Ohio)",
	"us-west-1":      "US West (N. California)",
	"us-west-2":      "US West (Oregon)",
	"af-south-1":     "Africa (Cape Town)",
	"ap-east-1":      "Asia Pacific (Hong Kong)",
	"ap-south-1":     "Asia Pacific (Mumbai)",
	"ap-south-2":     "Asia Pacific (Hyderabad)",
	"ap-southeast-1": "Asia Pacific (Singapore)",
	"ap-southeast-2": "Asia Pacific (Sydney)",
	"ap-southeast-3": "Asia Pacific (Jakarta)",
	"ap-southeast-4": "Asia Pacific (Melbourne)",
	"ap-northeast-1": "Asia Pacific (Tokyo)",
	"ap-northeast-2": "Asia Pacific (Seoul)",
	"ap-northeast-3": "Asia Pacific (Osaka)",
	"ca-central-1":   "Canada (Central)",
	"ca-west-1":      "Canada West (Calgary)",
	"eu-central-1":   "EU (Frankfurt)",
	"eu-central-2":   "EU (Zurich)",
	"eu-west-1":      "EU (Ireland)",
	"eu-west-2":      "EU (London)",
	"eu-west-3":      "EU (Paris)",
	"eu-north-1":     "EU (Stockholm)",
	"eu-south-1":     "EU (Milan)",
	"eu-south-2":     "EU (Spain)",
	"me-south-1":     "Middle East (Bahrain)",
	"me-central-1":   "Middle East (UAE)",
	"sa-east-1":      "South America (São Paulo)",
}

// azureLocations maps region codes to armRegionName values used by the
// Azure Retail Prices API.
var azureLocations = map[core.RegionCode]core.ProviderLocation{
	"us-east-1":      "eastus",
	"us-east-2":      "eastus2",
	"us-west-1":      "westus",
	"us-west-2":      "westus2",
	"af-south-1":     "southafricanorth",
	"ap-east-1":      "eastasia",
	"ap-south-1":     "centralindia",
	"ap-southeast-1": "southeastasia",
	"ap-southeast-2": "australiaeast",
	"ap-northeast-1": "japaneast",
	"ap-northeast-2": "koreacentral",
	"ca-central-1":   "canadacentral",
	"eu-central-1":   "germanywestcentral",
	"eu-central-2":   "switzerlandnorth",
	"eu-west-1":      "northeurope",
	"eu-west-2":      "uksouth",
	"eu-west-3":      "francecentral",
	"eu-north-1":     "swedencentral",
	"eu-south-1":     "italynorth",
	"eu-south-2":     "spaincentral",
	"me-central-1":   "uaenorth",
	"sa-east-1":      "brazilsouth",
}

// gcpLocations maps region codes to GCP region identifiers used by the
// Cloud Billing catalog's serviceRegions.
var gcpLocations = map[core.RegionCode]core.ProviderLocation{
	"us-east-1":      "us-east4",
	"us-east-2":      "us-east5",
	"us-west-1":      "us-west1",
	"us-west-2":      "us-west2",
	"af-south-1":     "africa-south1",
	"ap-east-1":      "asia-east2",
	"ap-south-1":     "asia-south1",
	"ap-south-2":     "asia-south2",
	"ap-southeast-1": "asia-southeast1",
	"ap-southeast-2": "australia-southeast1",
	"ap-southeast-3": "asia-southeast2",
	"ap-northeast-1": "asia-northeast1",
	"ap-northeast-2": "asia-northeast3",
	"ap-northeast-3": "asia-northeast2",
	"ca-central-1":   "northamerica-northeast1",
	"eu-central-1":   "europe-west3",
	"eu-central-2":   "europe-west6",
	"eu-west-1":      "europe-west1",
	"eu-west-2":      "europe-west2",
	"eu-west-3":      "europe-west9",
	"eu-north-1":     "europe-north1",
	"eu-south-1":     "europe-west8",
	"eu-south-2":     "europe-southwest1",
	"me-central-1":   "me-central1",
	"sa-east-1":      "southamerica-east1",
}

var tables = map[string]map[core.RegionCode]core.ProviderLocation{
	"aws":   awsLocations,
	"azure": azureLocations,
	"gcp":   gcpLocations,
}

// reverse indexes, built once at package init.
var reverseTables = func() map[string]map[core.ProviderLocation]core.RegionCode {
	out := make(map[string]map[core.ProviderLocation]core.RegionCode, len(tables))
	for provider, table := range tables {
		rev := make(map[core.ProviderLocation]core.RegionCode, len(table))
		for code, loc := range table {
			rev[loc] = code
		}
		out[provider] = rev
	}
	return out
}()

// LocationFor returns the provider's pricing-location identifier for a
// portable region code. Unknown provider/region pairs return UnknownRegion.
func LocationFor(provider string, region core.RegionCode) (core.ProviderLocation, error) {
	table, ok := tables[provider]
	if !ok {
		return "", core.NewUnknownRegionError(provider, region)
	}
	loc, ok := table[region]
	if !ok {
		return "", core.NewUnknownRegionError(provider, region)
	}
	return loc, nil
}

// RegionFor is the inverse of LocationFor and round-trips for every
// mapped pair.
func RegionFor(provider string, location core.ProviderLocation) (core.RegionCode, error) {
	rev, ok := reverseTables[provider]
	if !ok {
		return "", core.NewUnknownRegionError(provider, core.RegionCode(location))
	}
	code, ok := rev[location]
	if !ok {
		return "", core.NewUnknownRegionError(provider, core.RegionCode(location))
	}
	return code, nil
}

// Entry is one region listing row.
type Entry struct {
	Code     core.RegionCode       `json:"code"`
	Location core.ProviderLocation `json:"location"`
}

// List returns all mapped regions for a provider, sorted by code.
// Unknown providers return an empty list.
func List(provider string) []Entry {
	table := tables[provider]
	out := make([]Entry, 0, len(table))
	for code, loc := range table {
		out = append(out, Entry{Code: code, Location: loc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Providers returns the provider names with a region table, sorted.
func Providers() []string {
	out := make([]string, 0, len(tables))
	for p := range tables {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
