// Package costengine computes monthly storage costs from normalized rates.
// Every function here is pure and deterministic; all I/O and caching lives
// in the resolver layer.
package costengine

import (
	"fmt"

	"pricecompare/internal/core"
)

// UnitsToGB converts a value expressed in steps above GB (1 step = TB,
// 2 = PB) into GB. The binary flag selects 1024 per step instead of 1000.
func UnitsToGB(value float64, steps int, binary bool) float64 {
	base := 1000.0
	if binary {
		base = 1024.0
	}
	for i := 0; i < steps; i++ {
		value *= base
	}
	return value
}

// EffectiveGB inflates the base volume by the overhead fraction
// (versioning, replica metadata).
func EffectiveGB(baseGB, overheadFraction float64) float64 {
	return baseGB * (1 + overheadFraction)
}

// CopyMultiplier returns the total-storage multiplier for n additional
// copies. Negative counts are treated as zero.
func CopyMultiplier(copyCount int) float64 {
	if copyCount < 0 {
		copyCount = 0
	}
	return float64(1 + copyCount)
}

// CostFlat prices gb at a single rate.
func CostFlat(gb, rate float64) float64 {
	return gb * rate
}

// CostTiered walks the bands in order, consuming from each until gb is
// exhausted. The sum of consumed widths equals gb exactly; no GB is
// counted twice. Bands must satisfy the RateResult invariants.
func CostTiered(gb float64, bands []core.TierBand) (float64, []core.BandCost) {
	var total float64
	breakdown := make([]core.BandCost, 0, len(bands))
	remaining := gb
	for _, b := range bands {
		if remaining <= 0 {
			break
		}
		consumed := remaining
		if !b.Open() && b.Width() < consumed {
			consumed = b.Width()
		}
		cost := consumed * b.RatePerGBMonth
		total += cost
		breakdown = append(breakdown, core.BandCost{
			FromGB:     b.FromGB,
			ToGB:       b.ToGB,
			ConsumedGB: consumed,
			Rate:       b.RatePerGBMonth,
			CostUSD:    cost,
		})
		remaining -= consumed
	}
	return total, breakdown
}

// Total applies the copy multiplier to a storage cost and adds the flat fee.
func Total(storageCost, copyMultiplier, flatFee float64) float64 {
	return storageCost*copyMultiplier + flatFee
}

// Delta returns value minus reference.
func Delta(value, reference float64) float64 {
	return value - reference
}

// DeltaPct returns the percentage difference against the reference.
// A zero reference yields 0 rather than an error: "no baseline cost" is a
// valid state that renders as no difference.
func DeltaPct(value, reference float64) float64 {
	if reference == 0 {
		return 0
	}
	return (value - reference) / reference * 100
}

// Compute derives the full monthly cost for one resolved rate and usage
// description, including the per-band breakdown.
func Compute(rate *core.RateResult, usage core.UsageInput) (*core.CostResult, error) {
	if usage.BaseGB < 0 {
		return nil, fmt.Errorf("negative base volume %v GB", usage.BaseGB)
	}
	if usage.OverheadFraction < 0 {
		return nil, fmt.Errorf("negative overhead fraction %v", usage.OverheadFraction)
	}
	if err := rate.Validate(); err != nil {
		return nil, err
	}

	gb := EffectiveGB(usage.BaseGB, usage.OverheadFraction)
	mult := CopyMultiplier(usage.CopyCount)

	var storage float64
	var breakdown []core.BandCost
	if rate.Flat() {
		storage = CostFlat(gb, *rate.FlatRate)
	} else {
		storage, breakdown = CostTiered(gb, rate.Tiers)
	}

	return &core.CostResult{
		MonthlyUSD:     Total(storage, mult, usage.FlatMonthlyFee),
		EffectiveGB:    gb,
		CopyMultiplier: mult,
		FlatFeeUSD:     usage.FlatMonthlyFee,
		Breakdown:      breakdown,
	}, nil
}
