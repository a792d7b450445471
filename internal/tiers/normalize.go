// Package tiers normalizes provider-native tiered price representations
// into canonical, validated USD/GB-month bands. This is the one place unit
// and ordering bugs would otherwise propagate silently into cost totals.
package tiers

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"pricecompare/internal/core"
)

// CanonicalUnit is the unit every normalized rate is expressed in.
const CanonicalUnit = "GB-Mo"

// unitFactor returns the multiplier that converts a quantity in the given
// unit to GB, or false when the unit cannot be normalized. Rates scale by
// the inverse. GiB-denominated units are treated as GB: the canonical model
// is unit-agnostic about the binary/decimal base, which the cost engine
// applies at conversion time.
func unitFactor(unit string) (float64, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch {
	case u == "":
		return 0, false
	case strings.Contains(u, "byte"):
		// Byte-hour denominated entries (e.g. "Byte-Hrs") need a billing
		// period to convert and are rejected rather than guessed at.
		return 0, false
	case strings.HasPrefix(u, "gb") || strings.HasPrefix(u, "gib"):
		return 1, true
	case strings.HasPrefix(u, "tb") || strings.HasPrefix(u, "tib"):
		return 1000, true
	default:
		return 0, false
	}
}

// Convertible reports whether a provider unit can be normalized to
// GB-month. Resolvers use it to prefer GB-denominated candidates when
// several products match.
func Convertible(unit string) bool {
	_, ok := unitFactor(unit)
	return ok
}

// Normalize converts provider-native tier ranges into a canonical
// RateResult. Steps: unit conversion to GB, sort by start bound,
// contiguity verification, open-bound normalization, and collapse of a
// single all-covering range into a flat rate.
//
// A zero End is treated as open-ended; several providers use 0 to mean
// "unlimited". A range converted this way that does not sort last is
// rejected as malformed, as is a list whose first range starts above 0.
func Normalize(provider, unit string, ranges []core.RawRange) (*core.RateResult, error) {
	if len(ranges) == 0 {
		return nil, core.NewMalformedTierDataError(provider, "no price ranges to normalize")
	}

	factor, ok := unitFactor(unit)
	if !ok {
		return nil, core.NewInvalidUnitError(provider, unit)
	}

	bands := make([]core.TierBand, 0, len(ranges))
	for i, r := range ranges {
		if r.Rate < 0 {
			return nil, core.NewMalformedTierDataError(provider,
				fmt.Sprintf("range %d has negative rate %v", i, r.Rate))
		}
		if r.Begin < 0 {
			return nil, core.NewMalformedTierDataError(provider,
				fmt.Sprintf("range %d has negative start bound %v", i, r.Begin))
		}
		end := r.End
		if end == 0 || math.IsInf(end, 1) || end*factor >= core.OpenEndedThreshold {
			end = core.OpenEnded
		} else {
			end *= factor
		}
		bands = append(bands, core.TierBand{
			FromGB:         r.Begin * factor,
			ToGB:           end,
			RatePerGBMonth: r.Rate / factor,
		})
	}

	sort.Slice(bands, func(i, j int) bool { return bands[i].FromGB < bands[j].FromGB })

	if bands[0].FromGB != 0 {
		return nil, core.NewMalformedTierDataError(provider,
			fmt.Sprintf("first range starts at %vGB, leaving [0, %v) unpriced", bands[0].FromGB, bands[0].FromGB))
	}

	for i, b := range bands {
		if b.Open() && i != len(bands)-1 {
			return nil, core.NewMalformedTierDataError(provider,
				fmt.Sprintf("open-ended range starting at %vGB is not the last range", b.FromGB))
		}
		if !b.Open() && b.ToGB <= b.FromGB {
			return nil, core.NewMalformedTierDataError(provider,
				fmt.Sprintf("range [%v, %v) is empty or inverted", b.FromGB, b.ToGB))
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		switch {
		case prev.ToGB < b.FromGB:
			return nil, core.NewMalformedTierDataError(provider,
				fmt.Sprintf("gap between %vGB and %vGB", prev.ToGB, b.FromGB))
		case prev.ToGB > b.FromGB:
			return nil, core.NewMalformedTierDataError(provider,
				fmt.Sprintf("overlap between range ending at %vGB and range starting at %vGB", prev.ToGB, b.FromGB))
		}
	}

	result := &core.RateResult{Unit: CanonicalUnit}

	// The common case: one range covering [0, open) is a flat rate.
	if len(bands) == 1 && bands[0].FromGB == 0 && bands[0].Open() {
		rate := bands[0].RatePerGBMonth
		result.FlatRate = &rate
		return result, nil
	}

	result.Tiers = bands
	return result, nil
}
