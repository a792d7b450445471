package aws

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"pricecompare/internal/core"
	"pricecompare/internal/httpclient"
)

const defaultPublicBaseURL = "https://pricing.us-east-1.amazonaws.com"

// PublicSource fetches the AWS price list bulk files. No credentials.
// The per-region file is tried first; some offers only publish the global
// document, so that is the fallback, filtered by location attribute.
type PublicSource struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewPublicSource creates the public price list source. An empty baseURL
// selects the production endpoint.
func NewPublicSource(baseURL string, client *http.Client) *PublicSource {
	if baseURL == "" {
		baseURL = defaultPublicBaseURL
	}
	if client == nil {
		client = httpclient.NewDefaultHTTPClient()
	}
	return &PublicSource{
		baseURL:    baseURL,
		httpClient: client,
		log:        slog.Default().With("source", "aws-public"),
	}
}

func (s *PublicSource) Name() string          { return "aws-public" }
func (s *PublicSource) Kind() core.SourceKind { return core.SourcePublic }
func (s *PublicSource) Configured() bool      { return true }

// Fetch downloads the offer document and extracts candidate products.
func (s *PublicSource) Fetch(ctx context.Context, q core.ProductQuery, location core.ProviderLocation) ([]core.RawProduct, error) {
	regionalURL := fmt.Sprintf("%s/offers/v1.0/aws/%s/current/%s/index.json", s.baseURL, q.ServiceID, q.Region)
	globalURL := fmt.Sprintf("%s/offers/v1.0/aws/%s/current/index.json", s.baseURL, q.ServiceID)

	body, err := s.download(ctx, regionalURL)
	if err != nil {
		s.log.Debug("regional offer file unavailable, falling back to global",
			"region", q.Region, "error", err)
		body, err = s.download(ctx, globalURL)
		if err != nil {
			return nil, core.NewSourceUnavailableError("aws",
				fmt.Sprintf("price list fetch failed for %s", q.ServiceID), err)
		}
	}

	if !gjson.ValidBytes(body) {
		return nil, core.NewSourceUnavailableError("aws", "price list response is not valid JSON", nil)
	}

	products := gjson.GetBytes(body, "products")
	terms := gjson.GetBytes(body, "terms")

	var out []core.RawProduct
	products.ForEach(func(sku, product gjson.Result) bool {
		if !matchesProduct(product, q, location, true) {
			return true
		}
		out = append(out, parseTerms(terms, sku.String(), attributeMap(product), "", q.Currency)...)
		return true
	})
	return out, nil
}

func (s *PublicSource) download(ctx context.Context, url string) ([]byte, error) {
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
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
