package providers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"pricecompare/internal/core"
	"pricecompare/internal/pricecache"
	"pricecompare/internal/regions"
	"pricecompare/internal/tiers"
)

// DefaultTermPreference orders pricing terms from most to least preferred
// when several candidate products survive filtering.
var DefaultTermPreference = []string{"OnDemand", "Reserved", "Consumption"}

// ChainResolver resolves pricing by walking an ordered list of sources,
// public listing first, credentialed API as fallback. All resolution goes
// through the price cache; concurrent identical queries share one fetch.
type ChainResolver struct {
	name           string
	sources        []core.Source
	cache          *pricecache.Cache
	termPreference []string
	log            *slog.Logger
}

// NewChainResolver builds a resolver for one provider over its sources.
// Sources are tried in the given order; unconfigured ones are skipped.
func NewChainResolver(name string, cache *pricecache.Cache, sources ...core.Source) *ChainResolver {
	return &ChainResolver{
		name:           name,
		sources:        sources,
		cache:          cache,
		termPreference: DefaultTermPreference,
		log:            slog.Default().With("provider", name),
	}
}

// SetTermPreference overrides the term tie-break order.
func (r *ChainResolver) SetTermPreference(terms []string) {
	if len(terms) > 0 {
		r.termPreference = terms
	}
}

// Name returns the provider identifier.
func (r *ChainResolver) Name() string { return r.name }

// Resolve returns the normalized rate for the query.
func (r *ChainResolver) Resolve(ctx context.Context, q core.ProductQuery) (*core.RateResult, error) {
	res, err := r.ResolveDetailed(ctx, q, false)
	if err != nil {
		return nil, err
	}
	return res.Rate, nil
}

// ResolveDetailed resolves with cache provenance. bypass forces a fresh
// fetch whose result replaces whatever the cache held.
func (r *ChainResolver) ResolveDetailed(ctx context.Context, q core.ProductQuery, bypass bool) (*pricecache.Result, error) {
	// Region mapping is deterministic; fail before touching cache or network.
	location, err := regions.LocationFor(r.name, q.Region)
	if err != nil {
		return nil, err
	}

	return r.cache.GetOrFetch(ctx, r.name, q, bypass, func(ctx context.Context) (*core.RateResult, error) {
		return r.fetchAndSelect(ctx, q, location)
	})
}

// fetchAndSelect walks the source chain and reduces candidates to one
// normalized rate.
func (r *ChainResolver) fetchAndSelect(ctx context.Context, q core.ProductQuery, location core.ProviderLocation) (*core.RateResult, error) {
	var lastErr error
	var ambiguous *core.PricingError
	sawEmpty := false
	attempted := 0

	for _, src := range r.sources {
		if !src.Configured() {
			r.log.Debug("skipping unconfigured source", "source", src.Name())
			continue
		}
		attempted++

		products, err := src.Fetch(ctx, q, location)
		if err != nil {
			r.log.Warn("source fetch failed, trying next",
				"source", src.Name(), "region", q.Region, "error", err)
			lastErr = err
			continue
		}
		if len(products) == 0 {
			sawEmpty = true
			continue
		}

		// Ambiguity on one source falls through to the next; a later
		// source with exactly one match still resolves.
		chosen, err := r.selectProduct(products)
		if err != nil {
			r.log.Warn("tie-break left multiple candidates, trying next",
				"source", src.Name(), "region", q.Region, "error", err)
			ambiguous = core.AsPricingError(r.name, err)
			continue
		}

		rate, err := tiers.Normalize(r.name, chosen.Unit, chosen.Ranges)
		if err != nil {
			return nil, err
		}

		rate.Currency = q.Currency
		rate.SKU = chosen.SKU
		rate.Term = chosen.Term
		rate.Source = src.Kind()
		rate.ProductAttributes = chosen.Attributes
		rate.FilterUsed = map[string]string{
			"service":  q.ServiceID,
			"family":   q.ProductFamily,
			"location": string(location),
		}
		if q.Variant != "" {
			rate.FilterUsed["variant"] = q.Variant
		}
		rate.ResolvedAt = time.Now().UTC()

		if err := rate.Validate(); err != nil {
			return nil, core.NewMalformedTierDataError(r.name, err.Error())
		}

		r.log.Info("resolved rate",
			"source", src.Name(), "sku", rate.SKU, "term", rate.Term,
			"region", q.Region, "flat", rate.Flat())
		return rate, nil
	}

	if attempted == 0 {
		return nil, core.NewSourceUnavailableError(r.name, "no pricing source is configured", nil)
	}
	if ambiguous != nil {
		return nil, ambiguous
	}
	if lastErr != nil && !sawEmpty {
		return nil, core.AsPricingError(r.name, lastErr)
	}
	return nil, core.NewNoMatchingProductError(r.name, q)
}

// selectProduct applies the tie-break rules: prefer terms in preference
// order, then GB-denominated units. More than one survivor is an error
// for the source under consideration.
func (r *ChainResolver) selectProduct(products []core.RawProduct) (*core.RawProduct, error) {
	if len(products) == 1 {
		return &products[0], nil
	}

	candidates := products
	for _, term := range r.termPreference {
		var matched []core.RawProduct
		for _, p := range candidates {
			if strings.EqualFold(p.Term, term) {
				matched = append(matched, p)
			}
		}
		if len(matched) > 0 {
			candidates = matched
			break
		}
	}
	if len(candidates) == 1 {
		return &candidates[0], nil
	}

	var gbDenominated []core.RawProduct
	for _, p := range candidates {
		if tiers.Convertible(p.Unit) && strings.HasPrefix(strings.ToLower(p.Unit), "g") {
			gbDenominated = append(gbDenominated, p)
		}
	}
	if len(gbDenominated) > 0 {
		candidates = gbDenominated
	}
	if len(candidates) == 1 {
		return &candidates[0], nil
	}

	return nil, core.NewAmbiguousProductError(r.name, len(candidates))
}

// ClearCache drops this provider's cache namespace.
func (r *ChainResolver) ClearCache(ctx context.Context) (int, error) {
	return r.cache.Clear(ctx, r.name)
}
