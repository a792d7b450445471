package aggregator

import (
	"context"
	"math"
	"testing"
	"time"

	"pricecompare/internal/catalog"
	"pricecompare/internal/core"
	"pricecompare/internal/pricecache"
)

// fakeResolver returns a canned rate or error per provider.
type fakeResolver struct {
	name string
	rate float64
	err  *core.PricingError
}

func (f *fakeResolver) Name() string { return f.name }

func (f *fakeResolver) Resolve(ctx context.Context, q core.ProductQuery) (*core.RateResult, error) {
	res, err := f.ResolveDetailed(ctx, q, false)
	if err != nil {
		return nil, err
	}
	return res.Rate, nil
}

func (f *fakeResolver) ResolveDetailed(ctx context.Context, q core.ProductQuery, bypass bool) (*pricecache.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	rate := f.rate
	return &pricecache.Result{
		Rate:     &core.RateResult{FlatRate: &rate, Unit: "GB-Mo", Currency: q.Currency},
		Cached:   false,
		CachedAt: time.Now(),
	}, nil
}

func newTestAggregator(t *testing.T, resolvers ...CompareResolver) *Aggregator {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	return New(cat, 5*time.Second, resolvers...)
}

func baseRequest() Request {
	return Request{
		ServiceID: "object-storage",
		Region:    "us-east-1",
		Usage:     core.UsageInput{BaseGB: 1000},
	}
}

func TestComparePartialFailure(t *testing.T) {
	agg := newTestAggregator(t,
		&fakeResolver{name: "aws", rate: 0.023},
		&fakeResolver{name: "azure", rate: 0.0184},
		&fakeResolver{name: "gcp", err: core.NewSourceUnavailableError("gcp", "catalog down", nil)},
	)

	result, err := agg.Compare(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if len(result.Providers) != 3 {
		t.Fatalf("got %d provider slots, want 3", len(result.Providers))
	}
	ok := 0
	for _, o := range result.Providers {
		if o.OK() {
			ok++
		}
	}
	if ok != 2 {
		t.Errorf("%d providers succeeded, want 2", ok)
	}

	gcp := result.Providers["gcp"]
	if gcp.Err == nil || gcp.Err.Kind != core.KindSourceUnavailable {
		t.Errorf("gcp outcome = %+v, want SourceUnavailable error", gcp)
	}
	if gcp.Cost != nil {
		t.Error("failed provider must not carry a cost")
	}

	if result.Reference != "aws" {
		t.Errorf("reference = %q, want aws by default", result.Reference)
	}
	if !result.Deltas["azure"].Available {
		t.Error("azure delta should be available, reference resolved")
	}
	if result.Deltas["gcp"].Available {
		t.Error("gcp delta should be unavailable, provider failed")
	}

	// azure: 1000 * 0.0184 = 18.40 vs aws 23.00
	azureDelta := result.Deltas["azure"]
	if math.Abs(azureDelta.USD-(-4.6)) > 1e-9 {
		t.Errorf("azure delta = %v USD, want -4.6", azureDelta.USD)
	}
	if math.Abs(azureDelta.Pct-(-20)) > 1e-9 {
		t.Errorf("azure delta = %v%%, want -20", azureDelta.Pct)
	}
	if result.Deltas["aws"].USD != 0 {
		t.Errorf("reference delta = %v, want 0", result.Deltas["aws"].USD)
	}
}

func TestCompareReferenceFailed(t *testing.T) {
	agg := newTestAggregator(t,
		&fakeResolver{name: "aws", err: core.NewSourceUnavailableError("aws", "listing down", nil)},
		&fakeResolver{name: "azure", rate: 0.0184},
	)

	result, err := agg.Compare(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	for name, d := range result.Deltas {
		if d.Available {
			t.Errorf("delta for %s available despite failed reference", name)
		}
	}
	if !result.Providers["azure"].OK() {
		t.Error("azure should still resolve when the reference fails")
	}
}

func TestCompareAllFailedStillStructured(t *testing.T) {
	agg := newTestAggregator(t,
		&fakeResolver{name: "aws", err: core.NewSourceUnavailableError("aws", "down", nil)},
		&fakeResolver{name: "azure", err: core.NewSourceUnavailableError("azure", "down", nil)},
	)

	result, err := agg.Compare(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Compare() error = %v, want structured result", err)
	}
	if !result.AllFailed() {
		t.Error("AllFailed() = false, want true")
	}
	if result.ID == "" {
		t.Error("result must carry an ID even when all providers fail")
	}
	if len(result.Providers) != 2 {
		t.Errorf("got %d provider slots, want 2", len(result.Providers))
	}
}

func TestCompareProviderWithoutCatalogMapping(t *testing.T) {
	// backup-vault has no gcp entry; gcp's slot reports the error and the
	// others are unaffected.
	agg := newTestAggregator(t,
		&fakeResolver{name: "aws", rate: 0.05},
		&fakeResolver{name: "gcp", rate: 0.04},
	)

	req := baseRequest()
	req.ServiceID = "backup-vault"
	result, err := agg.Compare(context.Background(), req)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if !result.Providers["aws"].OK() {
		t.Error("aws should resolve")
	}
	if result.Providers["gcp"].Err == nil {
		t.Error("gcp should report its missing catalog mapping")
	}
}

func TestCompareCostScenario(t *testing.T) {
	agg := newTestAggregator(t, &fakeResolver{name: "aws", rate: 0.023})

	req := baseRequest()
	req.Usage = core.UsageInput{BaseGB: 1024, OverheadFraction: 0.25}
	result, err := agg.Compare(context.Background(), req)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	cost := result.Providers["aws"].Cost
	if cost == nil {
		t.Fatal("aws outcome has no cost")
	}
	if math.Abs(cost.MonthlyUSD-29.44) > 1e-9 {
		t.Errorf("MonthlyUSD = %v, want 29.44", cost.MonthlyUSD)
	}
}

func TestCompareBaseUnitConversion(t *testing.T) {
	agg := newTestAggregator(t, &fakeResolver{name: "aws", rate: 0.01})

	req := baseRequest()
	req.Usage = core.UsageInput{BaseGB: 2}
	req.BaseUnit = "TB"
	req.BinaryBase = true
	result, err := agg.Compare(context.Background(), req)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	cost := result.Providers["aws"].Cost
	if cost == nil {
		t.Fatal("aws outcome has no cost")
	}
	// 2 TiB = 2048 GB at 0.01
	if math.Abs(cost.MonthlyUSD-20.48) > 1e-9 {
		t.Errorf("MonthlyUSD = %v, want 20.48", cost.MonthlyUSD)
	}

	req.BaseUnit = "parsecs"
	if _, err := agg.Compare(context.Background(), req); err == nil {
		t.Error("unsupported base_unit should be rejected")
	}
}

func TestCompareValidation(t *testing.T) {
	agg := newTestAggregator(t, &fakeResolver{name: "aws", rate: 0.023})

	cases := map[string]func(*Request){
		"missingService":   func(r *Request) { r.ServiceID = "" },
		"missingRegion":    func(r *Request) { r.Region = "" },
		"negativeBase":     func(r *Request) { r.Usage.BaseGB = -1 },
		"negativeOverhead": func(r *Request) { r.Usage.OverheadFraction = -0.1 },
		"negativeCopies":   func(r *Request) { r.Usage.CopyCount = -1 },
		"negativeFee":      func(r *Request) { r.Usage.FlatMonthlyFee = -1 },
		"unknownProvider":  func(r *Request) { r.Providers = []string{"oracle"} },
		"refOutsideSet":    func(r *Request) { r.Providers = []string{"aws"}; r.Reference = "azure" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := baseRequest()
			mutate(&req)
			_, err := agg.Compare(context.Background(), req)
			pe, ok := err.(*core.PricingError)
			if !ok || pe.Kind != core.KindInvalidRequest {
				t.Errorf("Compare() error = %v, want InvalidRequest", err)
			}
		})
	}
}
