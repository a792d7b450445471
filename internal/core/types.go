// Package core provides canonical types and interfaces for the pricing service.
package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// OpenEnded marks the upper bound of an open-ended tier band.
// JSON does not support Infinity, so a large sentinel is used on the wire;
// any provider-native bound at or above OpenEndedThreshold is normalized to it.
const (
	OpenEnded          = 1e40
	OpenEndedThreshold = 1e35
)

// RegionCode is a portable, caller-supplied region identifier (e.g. "us-east-1").
type RegionCode string

// ProviderLocation is a provider-specific pricing-location string
// (e.g. "US East (N. Virginia)" for AWS, "eastus" for Azure).
type ProviderLocation string

// SourceKind identifies which source a rate was resolved from.
type SourceKind string

const (
	// SourcePublic is an unauthenticated, published price listing.
	SourcePublic SourceKind = "public"
	// SourceAPI is a credentialed pricing API.
	SourceAPI SourceKind = "api"
)

// ProductQuery identifies a single priced product. It is immutable and
// serves as the cache key basis for resolution.
type ProductQuery struct {
	Provider      string     `json:"provider"`
	ServiceID     string     `json:"service_id"`
	Region        RegionCode `json:"region"`
	ProductFamily string     `json:"product_family"`
	// Variant narrows the product within the family, e.g. an object storage
	// class ("Standard") or a backup vault tier ("Warm").
	Variant  string `json:"variant,omitempty"`
	Currency string `json:"currency"`
}

// CacheKey returns a deterministic serialization of the query.
// Fields are sorted by name so equivalent queries always produce the same key.
func (q ProductQuery) CacheKey() string {
	parts := []string{
		"currency=" + q.Currency,
		"family=" + q.ProductFamily,
		"provider=" + q.Provider,
		"region=" + string(q.Region),
		"service=" + q.ServiceID,
	}
	if q.Variant != "" {
		parts = append(parts, "variant="+q.Variant)
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// TierBand is one contiguous usage range with its own per-GB-month rate.
// FromGB is inclusive; ToGB is exclusive, or OpenEnded for the last band.
type TierBand struct {
	FromGB         float64 `json:"from_gb"`
	ToGB           float64 `json:"to_gb"`
	RatePerGBMonth float64 `json:"rate_per_gb_month"`
}

// Open reports whether the band has no upper bound.
func (b TierBand) Open() bool {
	return b.ToGB >= OpenEndedThreshold
}

// Width returns the band's size in GB. Open bands have no finite width.
func (b TierBand) Width() float64 {
	return b.ToGB - b.FromGB
}

// RateResult is the canonical, normalized pricing for one product:
// either a single flat rate or an ordered list of tier bands, plus
// provenance describing how it was resolved.
type RateResult struct {
	// FlatRate is set when pricing is a single rate covering all usage.
	FlatRate *float64 `json:"rate_per_gb_month,omitempty"`
	// Tiers is set when pricing is graduated. Bands are sorted ascending by
	// FromGB, contiguous, with at most one open-ended band in last position.
	Tiers []TierBand `json:"tiers,omitempty"`

	Unit     string `json:"unit"`
	Currency string `json:"currency"`

	// Provenance for the advanced pricing details view.
	SKU               string            `json:"sku,omitempty"`
	Term              string            `json:"term,omitempty"`
	Source            SourceKind        `json:"source"`
	ProductAttributes map[string]string `json:"product_attributes,omitempty"`
	FilterUsed        map[string]string `json:"filter_used,omitempty"`
	ResolvedAt        time.Time         `json:"resolved_at"`
}

// Flat reports whether the result carries a single flat rate.
func (r *RateResult) Flat() bool {
	return r.FlatRate != nil
}

// Validate checks the tier band invariants: non-empty, sorted, contiguous,
// at most one open-ended band and it is last.
func (r *RateResult) Validate() error {
	if r.FlatRate != nil {
		if *r.FlatRate < 0 {
			return fmt.Errorf("negative flat rate %v", *r.FlatRate)
		}
		return nil
	}
	if len(r.Tiers) == 0 {
		return fmt.Errorf("rate result has neither flat rate nor tiers")
	}
	for i, b := range r.Tiers {
		if b.FromGB < 0 || b.RatePerGBMonth < 0 {
			return fmt.Errorf("band %d has negative bound or rate", i)
		}
		if b.Open() && i != len(r.Tiers)-1 {
			return fmt.Errorf("open-ended band %d is not last", i)
		}
		if !b.Open() && b.ToGB <= b.FromGB {
			return fmt.Errorf("band %d is empty or inverted [%v, %v)", i, b.FromGB, b.ToGB)
		}
		if i > 0 && r.Tiers[i-1].ToGB != b.FromGB {
			return fmt.Errorf("band %d starts at %v but previous ends at %v", i, b.FromGB, r.Tiers[i-1].ToGB)
		}
	}
	return nil
}

// RawRange is a provider-native tier range before normalization.
// Begin and End are in the unit named by the enclosing RawProduct dimension.
type RawRange struct {
	Begin float64
	End   float64
	Rate  float64
}

// RawProduct is one candidate product record from a pricing source,
// reduced to the fields resolution needs.
type RawProduct struct {
	SKU        string
	Term       string
	Unit       string
	Attributes map[string]string
	Ranges     []RawRange
}

// UsageInput describes the workload a cost is computed for.
type UsageInput struct {
	// BaseGB is the primary stored data volume.
	BaseGB float64 `json:"base_gb"`
	// OverheadFraction inflates BaseGB for versioning/replica overhead
	// (0.25 means 25% extra).
	OverheadFraction float64 `json:"overhead_fraction"`
	// CopyCount is the number of additional copies (cross-region, vault copies).
	CopyCount int `json:"copy_count"`
	// FlatMonthlyFee is a fixed USD add-on applied once per month.
	FlatMonthlyFee float64 `json:"flat_monthly_fee"`
}

// BandCost records how much of the total one band contributed.
type BandCost struct {
	FromGB     float64 `json:"from_gb"`
	ToGB       float64 `json:"to_gb"`
	ConsumedGB float64 `json:"consumed_gb"`
	Rate       float64 `json:"rate_per_gb_month"`
	CostUSD    float64 `json:"cost_usd"`
}

// CostResult is a derived monthly cost with its per-band breakdown.
type CostResult struct {
	MonthlyUSD     float64    `json:"monthly_usd"`
	EffectiveGB    float64    `json:"effective_gb"`
	CopyMultiplier float64    `json:"copy_multiplier"`
	FlatFeeUSD     float64    `json:"flat_fee_usd"`
	Breakdown      []BandCost `json:"breakdown,omitempty"`
}

// Delta is the cost difference of one provider against the reference.
type Delta struct {
	USD float64 `json:"usd"`
	Pct float64 `json:"pct"`
	// Available is false when the reference provider failed to resolve,
	// in which case USD and Pct are meaningless.
	Available bool `json:"available"`
}

// ProviderOutcome is one provider's slot in a comparison: either a resolved
// rate with its computed cost, or a structured error. Exactly one of
// (Rate, Err) is set.
type ProviderOutcome struct {
	Provider string       `json:"provider"`
	Rate     *RateResult  `json:"rate,omitempty"`
	Cost     *CostResult  `json:"cost,omitempty"`
	Err      *PricingError `json:"error,omitempty"`
	Cached   bool         `json:"cached"`
}

// OK reports whether the provider resolved successfully.
func (o ProviderOutcome) OK() bool {
	return o.Err == nil && o.Rate != nil
}

// ComparisonResult is the full cross-provider comparison. It is always
// returned populated, even when every provider failed.
type ComparisonResult struct {
	ID        string                     `json:"id"`
	ServiceID string                     `json:"service_id"`
	Region    RegionCode                 `json:"region"`
	Reference string                     `json:"reference"`
	Providers map[string]ProviderOutcome `json:"providers"`
	// Deltas is keyed by provider and computed against Reference only when
	// the reference provider resolved successfully.
	Deltas     map[string]Delta `json:"deltas"`
	ResolvedAt time.Time        `json:"resolved_at"`
}

// AllFailed reports whether no provider produced a rate.
func (c *ComparisonResult) AllFailed() bool {
	for _, o := range c.Providers {
		if o.OK() {
			return false
		}
	}
	return true
}
