// Package gcp resolves storage pricing from the Cloud Billing catalog.
// The catalog requires an API key, so this provider has only a
// credentialed source; without a key it reports unconfigured.
package gcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"pricecompare/config"
	"pricecompare/internal/core"
	"pricecompare/internal/httpclient"
	"pricecompare/internal/providers"
)

const (
	defaultBaseURL = "https://cloudbilling.googleapis.com"
	maxPages       = 10
)

func init() {
	// Self-register with the factory
	providers.Register("gcp", func(cfg config.ProviderConfig, deps providers.Deps) (core.Resolver, error) {
		src := NewCatalogSource(cfg.BaseURL, cfg.APIKey, deps.HTTPClient)
		return providers.NewChainResolver("gcp", deps.Cache, src), nil
	})
}

// CatalogSource fetches SKUs from the Cloud Billing catalog.
type CatalogSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// NewCatalogSource creates the source. An empty baseURL selects production.
func NewCatalogSource(baseURL, apiKey string, client *http.Client) *CatalogSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = httpclient.NewDefaultHTTPClient()
	}
	return &CatalogSource{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: client,
		log:        slog.Default().With("source", "gcp-catalog"),
	}
}

func (s *CatalogSource) Name() string          { return "gcp-catalog" }
func (s *CatalogSource) Kind() core.SourceKind { return core.SourceAPI }
func (s *CatalogSource) Configured() bool      { return s.apiKey != "" }

// Fetch lists the service's SKUs and keeps storage SKUs serving the
// queried region and variant.
func (s *CatalogSource) Fetch(ctx context.Context, q core.ProductQuery, location core.ProviderLocation) ([]core.RawProduct, error) {
	var out []core.RawProduct
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		u := fmt.Sprintf("%s/v1/services/%s/skus?key=%s&currencyCode=%s",
			s.baseURL, url.PathEscape(q.ServiceID), url.QueryEscape(s.apiKey), url.QueryEscape(q.Currency))
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}

		body, err := s.download(ctx, u)
		if err != nil {
			return nil, core.NewSourceUnavailableError("gcp", "billing catalog fetch failed", err)
		}
		if !gjson.ValidBytes(body) {
			return nil, core.NewSourceUnavailableError("gcp", "billing catalog response is not valid JSON", nil)
		}

		gjson.GetBytes(body, "skus").ForEach(func(_, sku gjson.Result) bool {
			if p := s.parseSKU(sku, q, location); p != nil {
				out = append(out, *p)
			}
			return true
		})

		pageToken = gjson.GetBytes(body, "nextPageToken").String()
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

// parseSKU converts one catalog SKU into a RawProduct, or nil when it does
// not serve the query.
func (s *CatalogSource) parseSKU(sku gjson.Result, q core.ProductQuery, location core.ProviderLocation) *core.RawProduct {
	category := sku.Get("category")
	if category.Get("resourceFamily").String() != q.ProductFamily {
		return nil
	}

	servesRegion := false
	sku.Get("serviceRegions").ForEach(func(_, r gjson.Result) bool {
		if r.String() == string(location) || r.String() == "global" {
			servesRegion = true
			return false
		}
		return true
	})
	if !servesRegion {
		return nil
	}

	if q.Variant != "" {
		desc := strings.ToLower(sku.Get("description").String())
		group := strings.ToLower(category.Get("resourceGroup").String())
		want := strings.ToLower(q.Variant)
		if !strings.Contains(desc, want) && !strings.Contains(group, want) {
			return nil
		}
	}

	expr := sku.Get("pricingInfo.0.pricingExpression")
	if !expr.Exists() {
		return nil
	}

	var ranges []core.RawRange
	expr.Get("tieredRates").ForEach(func(_, tier gjson.Result) bool {
		price := tier.Get("unitPrice")
		ranges = append(ranges, core.RawRange{
			Begin: tier.Get("startUsageAmount").Float(),
			Rate:  price.Get("units").Float() + price.Get("nanos").Float()/1e9,
		})
		return true
	})
	if len(ranges) == 0 {
		return nil
	}

	// The catalog gives tier starts only; each tier runs to the next
	// start, and the last is open.
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Begin < ranges[j].Begin })
	for i := range ranges {
		if i < len(ranges)-1 {
			ranges[i].End = ranges[i+1].Begin
		}
	}

	term := category.Get("usageType").String()
	if term == "" {
		term = "OnDemand"
	}

	return &core.RawProduct{
		SKU:  sku.Get("skuId").String(),
		Term: term,
		Unit: expr.Get("usageUnit").String(),
		Attributes: map[string]string{
			"description":   sku.Get("description").String(),
			"resourceGroup": category.Get("resourceGroup").String(),
			"usageType":     category.Get("usageType").String(),
		},
		Ranges: ranges,
	}
}

func (s *CatalogSource) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
