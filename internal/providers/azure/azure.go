// Package azure resolves storage pricing from the Azure Retail Prices
// API. The API is public; there is no credentialed fallback.
package azure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"pricecompare/config"
	"pricecompare/internal/core"
	"pricecompare/internal/httpclient"
	"pricecompare/internal/providers"
)

const (
	defaultBaseURL = "https://prices.azure.com/api/retail/prices"

	// maxPages bounds NextPageLink walking; a filtered storage query fits
	// in far fewer pages, so hitting this means the filter is wrong.
	maxPages = 10
)

func init() {
	// Self-register with the factory
	providers.Register("azure", func(cfg config.ProviderConfig, deps providers.Deps) (core.Resolver, error) {
		src := NewRetailSource(cfg.BaseURL, deps.HTTPClient)
		return providers.NewChainResolver("azure", deps.Cache, src), nil
	})
}

// RetailSource fetches from the Retail Prices API.
type RetailSource struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewRetailSource creates the source. An empty baseURL selects production.
func NewRetailSource(baseURL string, client *http.Client) *RetailSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = httpclient.NewDefaultHTTPClient()
	}
	return &RetailSource{
		baseURL:    baseURL,
		httpClient: client,
		log:        slog.Default().With("source", "azure-retail"),
	}
}

func (s *RetailSource) Name() string          { return "azure-retail" }
func (s *RetailSource) Kind() core.SourceKind { return core.SourcePublic }
func (s *RetailSource) Configured() bool      { return true }

// Fetch queries the retail API and groups tiered meters into products.
func (s *RetailSource) Fetch(ctx context.Context, q core.ProductQuery, location core.ProviderLocation) ([]core.RawProduct, error) {
	filter := fmt.Sprintf("serviceName eq '%s' and armRegionName eq '%s'", q.ServiceID, location)
	if q.Variant != "" {
		filter += fmt.Sprintf(" and skuName eq '%s'", q.Variant)
	}

	next := s.baseURL + "?currencyCode='" + url.QueryEscape(q.Currency) + "'&$filter=" + url.QueryEscape(filter)

	// Tiered prices arrive as one item per tier; group them per meter.
	type group struct {
		attrs  map[string]string
		term   string
		ranges []core.RawRange
	}
	groups := make(map[string]*group)

	for page := 0; next != "" && page < maxPages; page++ {
		body, err := s.download(ctx, next)
		if err != nil {
			return nil, core.NewSourceUnavailableError("azure", "retail prices fetch failed", err)
		}
		if !gjson.ValidBytes(body) {
			return nil, core.NewSourceUnavailableError("azure", "retail prices response is not valid JSON", nil)
		}

		gjson.GetBytes(body, "Items").ForEach(func(_, item gjson.Result) bool {
			unitQty, ok := parseUnitOfMeasure(item.Get("unitOfMeasure").String())
			if !ok {
				return true
			}
			meter := item.Get("meterName").String()
			if !strings.Contains(meter, "Data Stored") && !strings.Contains(meter, "Disk") {
				return true
			}

			key := item.Get("productName").String() + "|" + item.Get("skuName").String() + "|" + meter + "|" + item.Get("type").String()
			g, ok := groups[key]
			if !ok {
				g = &group{
					term: item.Get("type").String(),
					attrs: map[string]string{
						"productName":   item.Get("productName").String(),
						"skuName":       item.Get("skuName").String(),
						"meterName":     meter,
						"armRegionName": item.Get("armRegionName").String(),
					},
				}
				groups[key] = g
			}
			g.ranges = append(g.ranges, core.RawRange{
				Begin: item.Get("tierMinimumUnits").Float(),
				Rate:  item.Get("retailPrice").Float() / unitQty,
			})
			return true
		})

		next = gjson.GetBytes(body, "NextPageLink").String()
	}

	out := make([]core.RawProduct, 0, len(groups))
	for key, g := range groups {
		out = append(out, core.RawProduct{
			SKU:        key,
			Term:       g.term,
			Unit:       "GB-Mo",
			Attributes: g.attrs,
			Ranges:     closeRanges(g.ranges),
		})
	}
	return out, nil
}

// closeRanges turns per-tier minimums into [begin, end) ranges: each
// tier ends where the next begins, and the last is open.
func closeRanges(ranges []core.RawRange) []core.RawRange {
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Begin < ranges[j].Begin })
	for i := range ranges {
		if i < len(ranges)-1 {
			ranges[i].End = ranges[i+1].Begin
		} else {
			ranges[i].End = 0
		}
	}
	return ranges
}

// parseUnitOfMeasure extracts the GB quantity from strings like
// "1 GB/Month" or "100 GB". Non-GB meters are skipped.
func parseUnitOfMeasure(uom string) (float64, bool) {
	fields := strings.Fields(uom)
	if len(fields) < 2 {
		return 0, false
	}
	qty, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || qty <= 0 {
		return 0, false
	}
	if !strings.HasPrefix(strings.ToUpper(fields[1]), "GB") {
		return 0, false
	}
	return qty, true
}

func (s *RetailSource) download(ctx context.Context, url string) ([]byte, error) {
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
