package core

import "context"

// Resolver resolves canonical pricing for one cloud provider.
// Implementations route through the price cache and are safe for
// concurrent use.
type Resolver interface {
	// Name returns the provider identifier (e.g. "aws").
	Name() string

	// Resolve returns the normalized rate for the query, or a
	// *PricingError describing why resolution failed.
	Resolve(ctx context.Context, q ProductQuery) (*RateResult, error)
}

// Source is one strategy for fetching raw pricing records: a public price
// listing or a credentialed API. A resolver walks its sources in order
// until one yields a usable match.
type Source interface {
	// Name identifies the source in provenance and logs.
	Name() string

	// Kind reports whether the source is public or credentialed.
	Kind() SourceKind

	// Configured reports whether the source has what it needs to run
	// (credentials for API sources; always true for public ones).
	Configured() bool

	// Fetch returns candidate products for the query at the given
	// provider location. An empty slice with nil error means the source
	// was reachable but had no candidates.
	Fetch(ctx context.Context, q ProductQuery, location ProviderLocation) ([]RawProduct, error)
}
