// Package aggregator fans a comparison request out to every configured
// provider resolver and assembles the cross-provider result. Failures are
// per-provider: one broken source never hides another provider's price.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pricecompare/internal/catalog"
	"pricecompare/internal/core"
	"pricecompare/internal/costengine"
	"pricecompare/internal/pricecache"
)

// Request describes one comparison.
type Request struct {
	ServiceID string          `json:"service_id"`
	Region    core.RegionCode `json:"region"`
	Usage     core.UsageInput `json:"usage"`

	// Providers limits the fan-out; empty means all configured.
	Providers []string `json:"providers,omitempty"`

	// Reference is the baseline for deltas. Defaults to aws when enabled,
	// otherwise the first provider alphabetically.
	Reference string `json:"reference,omitempty"`

	Variant  string `json:"variant,omitempty"`
	Currency string `json:"currency,omitempty"`

	// BaseUnit is the unit of Usage.BaseGB: "GB" (default), "TB" or "PB".
	// BinaryBase converts with 1024 per step instead of 1000.
	BaseUnit   string `json:"base_unit,omitempty"`
	BinaryBase bool   `json:"binary_base,omitempty"`

	// Refresh bypasses the price cache for every provider.
	Refresh bool `json:"refresh,omitempty"`
}

// CompareResolver is what aggregation needs beyond core.Resolver: cache
// provenance and bypass support. ChainResolver satisfies it.
type CompareResolver interface {
	core.Resolver
	ResolveDetailed(ctx context.Context, q core.ProductQuery, bypass bool) (*pricecache.Result, error)
}

// Aggregator runs comparisons over a fixed set of resolvers.
type Aggregator struct {
	resolvers map[string]CompareResolver
	catalog   *catalog.Catalog
	timeout   time.Duration
	log       *slog.Logger
}

// New builds an aggregator. timeout bounds each provider's resolution.
func New(cat *catalog.Catalog, timeout time.Duration, resolvers ...CompareResolver) *Aggregator {
	m := make(map[string]CompareResolver, len(resolvers))
	for _, r := range resolvers {
		m[r.Name()] = r
	}
	return &Aggregator{
		resolvers: m,
		catalog:   cat,
		timeout:   timeout,
		log:       slog.Default(),
	}
}

// Providers returns the configured provider names, sorted.
func (a *Aggregator) Providers() []string {
	out := make([]string, 0, len(a.resolvers))
	for name := range a.resolvers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolver returns one provider's resolver for the single-provider
// pricing endpoint.
func (a *Aggregator) Resolver(name string) (CompareResolver, bool) {
	r, ok := a.resolvers[name]
	return r, ok
}

// Compare resolves pricing across providers in parallel and computes
// costs and deltas. The result is always fully populated; a provider that
// failed occupies its slot with a typed error. Compare itself errors only
// on invalid input.
func (a *Aggregator) Compare(ctx context.Context, req Request) (*core.ComparisonResult, error) {
	if err := a.validate(&req); err != nil {
		return nil, err
	}

	result := &core.ComparisonResult{
		ID:         uuid.NewString(),
		ServiceID:  req.ServiceID,
		Region:     req.Region,
		Reference:  req.Reference,
		Providers:  make(map[string]core.ProviderOutcome, len(req.Providers)),
		Deltas:     make(map[string]core.Delta, len(req.Providers)),
		ResolvedAt: time.Now().UTC(),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, name := range req.Providers {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			outcome := a.resolveOne(ctx, name, req)
			mu.Lock()
			result.Providers[name] = outcome
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	// Deltas are only meaningful against a resolved reference.
	ref, ok := result.Providers[req.Reference]
	for name, outcome := range result.Providers {
		if !ok || !ref.OK() || !outcome.OK() {
			result.Deltas[name] = core.Delta{}
			continue
		}
		result.Deltas[name] = core.Delta{
			USD:       costengine.Delta(outcome.Cost.MonthlyUSD, ref.Cost.MonthlyUSD),
			Pct:       costengine.DeltaPct(outcome.Cost.MonthlyUSD, ref.Cost.MonthlyUSD),
			Available: true,
		}
	}

	a.log.Info("comparison complete",
		"id", result.ID, "service", req.ServiceID, "region", req.Region,
		"providers", len(result.Providers), "all_failed", result.AllFailed())
	return result, nil
}

// resolveOne handles a single provider slot end to end.
func (a *Aggregator) resolveOne(ctx context.Context, name string, req Request) core.ProviderOutcome {
	outcome := core.ProviderOutcome{Provider: name}

	resolver, ok := a.resolvers[name]
	if !ok {
		outcome.Err = core.NewInvalidRequestError(fmt.Sprintf("provider %q is not configured", name), nil)
		return outcome
	}

	q, err := a.catalog.Query(req.ServiceID, name, req.Region, req.Variant, req.Currency)
	if err != nil {
		outcome.Err = core.AsPricingError(name, err)
		return outcome
	}

	rctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := resolver.ResolveDetailed(rctx, q, req.Refresh)
	if err != nil {
		outcome.Err = core.AsPricingError(name, err)
		return outcome
	}
	outcome.Rate = res.Rate
	outcome.Cached = res.Cached

	cost, err := costengine.Compute(res.Rate, req.Usage)
	if err != nil {
		outcome.Err = core.NewMalformedTierDataError(name, err.Error())
		outcome.Rate = nil
		return outcome
	}
	outcome.Cost = cost
	return outcome
}

// validate normalizes defaults and rejects bad input.
func (a *Aggregator) validate(req *Request) error {
	if req.ServiceID == "" {
		return core.NewInvalidRequestError("service_id is required", nil)
	}
	if req.Region == "" {
		return core.NewInvalidRequestError("region is required", nil)
	}
	if req.Usage.BaseGB < 0 {
		return core.NewInvalidRequestError("usage.base_gb must be non-negative", nil)
	}
	if req.Usage.OverheadFraction < 0 {
		return core.NewInvalidRequestError("usage.overhead_fraction must be non-negative", nil)
	}
	if req.Usage.CopyCount < 0 {
		return core.NewInvalidRequestError("usage.copy_count must be non-negative", nil)
	}
	if req.Usage.FlatMonthlyFee < 0 {
		return core.NewInvalidRequestError("usage.flat_monthly_fee must be non-negative", nil)
	}

	switch strings.ToUpper(req.BaseUnit) {
	case "", "GB":
	case "TB":
		req.Usage.BaseGB = costengine.UnitsToGB(req.Usage.BaseGB, 1, req.BinaryBase)
	case "PB":
		req.Usage.BaseGB = costengine.UnitsToGB(req.Usage.BaseGB, 2, req.BinaryBase)
	default:
		return core.NewInvalidRequestError(fmt.Sprintf("unsupported base_unit %q", req.BaseUnit), nil)
	}

	if len(req.Providers) == 0 {
		req.Providers = a.Providers()
	} else {
		for _, p := range req.Providers {
			if _, ok := a.resolvers[p]; !ok {
				return core.NewInvalidRequestError(fmt.Sprintf("unknown provider %q", p), nil)
			}
		}
	}

	if req.Reference == "" {
		req.Reference = req.Providers[0]
		for _, p := range req.Providers {
			if p == "aws" {
				req.Reference = "aws"
				break
			}
		}
	} else {
		found := false
		for _, p := range req.Providers {
			if p == req.Reference {
				found = true
				break
			}
		}
		if !found {
			return core.NewInvalidRequestError(
				fmt.Sprintf("reference provider %q is not in the comparison set", req.Reference), nil)
		}
	}

	if req.Currency == "" {
		req.Currency = "USD"
	}
	return nil
}
