package costengine

import (
	"math"
	"testing"

	"pricecompare/internal/core"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestUnitsToGB(t *testing.T) {
	if got := UnitsToGB(2, 1, false); got != 2000 {
		t.Errorf("UnitsToGB(2 TB decimal) = %v, want 2000", got)
	}
	if got := UnitsToGB(2, 1, true); got != 2048 {
		t.Errorf("UnitsToGB(2 TB binary) = %v, want 2048", got)
	}
	if got := UnitsToGB(1, 2, true); got != 1048576 {
		t.Errorf("UnitsToGB(1 PB binary) = %v, want 1048576", got)
	}
	if got := UnitsToGB(5, 0, true); got != 5 {
		t.Errorf("UnitsToGB(5 GB) = %v, want 5", got)
	}
}

func TestCopyMultiplier(t *testing.T) {
	if got := CopyMultiplier(0); got != 1 {
		t.Errorf("CopyMultiplier(0) = %v, want 1", got)
	}
	if got := CopyMultiplier(2); got != 3 {
		t.Errorf("CopyMultiplier(2) = %v, want 3", got)
	}
	if got := CopyMultiplier(-5); got != 1 {
		t.Errorf("CopyMultiplier(-5) = %v, want 1", got)
	}
}

func TestCostTieredExactAccounting(t *testing.T) {
	bands := []core.TierBand{
		{FromGB: 0, ToGB: 100, RatePerGBMonth: 0.023},
		{FromGB: 100, ToGB: core.OpenEnded, RatePerGBMonth: 0.022},
	}
	cost, breakdown := CostTiered(150, bands)
	if !almostEqual(cost, 3.4) {
		t.Errorf("CostTiered(150) = %v, want 3.4", cost)
	}

	var consumed float64
	for _, b := range breakdown {
		consumed += b.ConsumedGB
	}
	if !almostEqual(consumed, 150) {
		t.Errorf("consumed %v GB across bands, want exactly 150", consumed)
	}
	if len(breakdown) != 2 {
		t.Fatalf("len(breakdown) = %d, want 2", len(breakdown))
	}
	if breakdown[0].ConsumedGB != 100 || !almostEqual(breakdown[0].CostUSD, 2.3) {
		t.Errorf("first band consumed %v GB at cost %v, want 100 GB at 2.3",
			breakdown[0].ConsumedGB, breakdown[0].CostUSD)
	}
}

func TestCostTieredStopsInsideFirstBand(t *testing.T) {
	bands := []core.TierBand{
		{FromGB: 0, ToGB: 100, RatePerGBMonth: 0.02},
		{FromGB: 100, ToGB: core.OpenEnded, RatePerGBMonth: 0.01},
	}
	cost, breakdown := CostTiered(40, bands)
	if !almostEqual(cost, 0.8) {
		t.Errorf("cost = %v, want 0.8", cost)
	}
	if len(breakdown) != 1 {
		t.Errorf("len(breakdown) = %d, want 1", len(breakdown))
	}
}

func TestCostTieredZeroUsage(t *testing.T) {
	bands := []core.TierBand{{FromGB: 0, ToGB: core.OpenEnded, RatePerGBMonth: 0.02}}
	cost, breakdown := CostTiered(0, bands)
	if cost != 0 || len(breakdown) != 0 {
		t.Errorf("CostTiered(0) = (%v, %d bands), want (0, 0 bands)", cost, len(breakdown))
	}
}

func TestDelta(t *testing.T) {
	if d := Delta(5, 3); d != 2 {
		t.Errorf("Delta(5, 3) = %v, want 2", d)
	}
	if Delta(5, 3) != -Delta(3, 5) {
		t.Error("Delta is not antisymmetric")
	}
}

func TestDeltaPct(t *testing.T) {
	if got := DeltaPct(110, 100); !almostEqual(got, 10) {
		t.Errorf("DeltaPct(110, 100) = %v, want 10", got)
	}
	if got := DeltaPct(42, 0); got != 0 {
		t.Errorf("DeltaPct(42, 0) = %v, want 0", got)
	}
	if got := DeltaPct(0, 0); got != 0 {
		t.Errorf("DeltaPct(0, 0) = %v, want 0", got)
	}
}

func TestComputeFlatScenario(t *testing.T) {
	rate := 0.023
	result, err := Compute(
		&core.RateResult{FlatRate: &rate, Unit: "GB-Mo", Currency: "USD"},
		core.UsageInput{BaseGB: 1024, OverheadFraction: 0.25},
	)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if !almostEqual(result.EffectiveGB, 1280) {
		t.Errorf("EffectiveGB = %v, want 1280", result.EffectiveGB)
	}
	if !almostEqual(result.MonthlyUSD, 29.44) {
		t.Errorf("MonthlyUSD = %v, want 29.44", result.MonthlyUSD)
	}
}

func TestComputeCopiesAndFee(t *testing.T) {
	rate := 0.01
	result, err := Compute(
		&core.RateResult{FlatRate: &rate, Unit: "GB-Mo", Currency: "USD"},
		core.UsageInput{BaseGB: 100, CopyCount: 1, FlatMonthlyFee: 5},
	)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	// 100 GB * 0.01 * 2 copies + 5 fee
	if !almostEqual(result.MonthlyUSD, 7) {
		t.Errorf("MonthlyUSD = %v, want 7", result.MonthlyUSD)
	}
	if result.CopyMultiplier != 2 {
		t.Errorf("CopyMultiplier = %v, want 2", result.CopyMultiplier)
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	rate := 0.01
	rr := &core.RateResult{FlatRate: &rate}
	if _, err := Compute(rr, core.UsageInput{BaseGB: -1}); err == nil {
		t.Error("expected error for negative base volume")
	}
	if _, err := Compute(rr, core.UsageInput{BaseGB: 1, OverheadFraction: -0.1}); err == nil {
		t.Error("expected error for negative overhead")
	}
	if _, err := Compute(&core.RateResult{}, core.UsageInput{BaseGB: 1}); err == nil {
		t.Error("expected error for rate with neither flat rate nor tiers")
	}
}
