package pricecache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"pricecompare/internal/core"
)

const (
	// DefaultTTL matches the refresh cadence of provider price listings.
	DefaultTTL = 24 * time.Hour

	// DefaultNegativeTTL holds failures just long enough to shield a slow
	// or broken source from a retry storm.
	DefaultNegativeTTL = 5 * time.Minute
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricecompare_cache_hits_total",
		Help: "Cache hits by namespace.",
	}, []string{"namespace"})
	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricecompare_cache_misses_total",
		Help: "Cache misses by namespace, including explicit bypasses.",
	}, []string{"namespace"})
	cacheFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricecompare_cache_fetches_total",
		Help: "Upstream fetches by namespace and outcome.",
	}, []string{"namespace", "outcome"})
)

// Fetcher resolves a rate when the cache cannot answer.
type Fetcher func(ctx context.Context) (*core.RateResult, error)

// Result is what GetOrFetch hands back: the entry plus whether it was
// served from the store.
type Result struct {
	Rate     *core.RateResult
	Cached   bool
	CachedAt time.Time
}

// Cache is the single-flight TTL cache in front of pricing sources.
type Cache struct {
	store       Store
	group       singleflight.Group
	ttl         time.Duration
	negativeTTL time.Duration
	log         *slog.Logger
}

// Options tunes cache behavior; zero values select the defaults.
type Options struct {
	TTL         time.Duration
	NegativeTTL time.Duration
	Logger      *slog.Logger
}

// New creates a cache over the given store.
func New(store Store, opts Options) *Cache {
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.NegativeTTL == 0 {
		opts.NegativeTTL = DefaultNegativeTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Cache{
		store:       store,
		ttl:         opts.TTL,
		negativeTTL: opts.NegativeTTL,
		log:         opts.Logger,
	}
}

// Key builds the store key for a query: the namespace plus a digest of the
// query's deterministic serialization. The digest keeps keys short and
// uniform regardless of variant/currency contents.
func Key(namespace string, q core.ProductQuery) string {
	return fmt.Sprintf("%s:%016x", namespace, xxhash.Sum64String(q.CacheKey()))
}

// GetOrFetch returns the cached outcome for the query, fetching on miss.
//
// Concurrent callers for the same key share one fetch. Successful fetches
// are cached for the full TTL; failures become negative entries with the
// short TTL so the error is also served from cache until it expires.
// bypass skips the read but still writes, so a forced refresh replaces a
// negative entry rather than racing it.
func (c *Cache) GetOrFetch(ctx context.Context, namespace string, q core.ProductQuery, bypass bool, fetch Fetcher) (*Result, error) {
	key := Key(namespace, q)

	if !bypass {
		e, err := c.store.Get(ctx, key)
		if err != nil {
			c.log.Warn("cache read failed, falling through to fetch", "key", key, "error", err)
		}
		if e != nil {
			cacheHits.WithLabelValues(namespace).Inc()
			if e.Negative() {
				return nil, e.Err
			}
			return &Result{Rate: e.Rate, Cached: true, CachedAt: e.CachedAt}, nil
		}
	}
	cacheMisses.WithLabelValues(namespace).Inc()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// The fetch runs on a detached context so one caller hanging up
		// does not abandon the work for the others sharing the flight.
		fctx := context.WithoutCancel(ctx)
		rate, ferr := fetch(fctx)

		now := time.Now()
		if ferr != nil {
			pe := core.AsPricingError(q.Provider, ferr)
			cacheFetches.WithLabelValues(namespace, "error").Inc()
			if serr := c.store.Set(fctx, key, &Entry{
				Err:       pe,
				CachedAt:  now,
				ExpiresAt: now.Add(c.negativeTTL),
			}, c.negativeTTL); serr != nil {
				c.log.Warn("failed to store negative cache entry", "key", key, "error", serr)
			}
			return nil, pe
		}

		cacheFetches.WithLabelValues(namespace, "ok").Inc()
		if serr := c.store.Set(fctx, key, &Entry{
			Rate:      rate,
			CachedAt:  now,
			ExpiresAt: now.Add(c.ttl),
		}, c.ttl); serr != nil {
			c.log.Warn("failed to store cache entry", "key", key, "error", serr)
		}
		return rate, nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Rate: v.(*core.RateResult), Cached: false, CachedAt: time.Now()}, nil
}

// Clear drops every entry in the namespace and returns the count.
func (c *Cache) Clear(ctx context.Context, namespace string) (int, error) {
	return c.store.Clear(ctx, namespace+":")
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
