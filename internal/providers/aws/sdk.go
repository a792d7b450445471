package aws

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/tidwall/gjson"

	"pricecompare/internal/core"
)

// SDKSource queries the AWS Pricing API with the account's credential
// chain. Used only as a fallback when the public price list yields nothing.
type SDKSource struct {
	svc *pricing.Client
	log *slog.Logger
}

// NewSDKSource builds the credentialed source. The Pricing API is only
// served from us-east-1 regardless of the queried region.
func NewSDKSource() (*SDKSource, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion("us-east-1"))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS credentials: %w", err)
	}
	return &SDKSource{
		svc: pricing.NewFromConfig(cfg),
		log: slog.Default().With("source", "aws-sdk"),
	}, nil
}

func (s *SDKSource) Name() string          { return "aws-sdk" }
func (s *SDKSource) Kind() core.SourceKind { return core.SourceAPI }
func (s *SDKSource) Configured() bool      { return s.svc != nil }

// Fetch queries GetProducts with term-match filters and parses the
// returned price list documents.
func (s *SDKSource) Fetch(ctx context.Context, q core.ProductQuery, location core.ProviderLocation) ([]core.RawProduct, error) {
	filters := []types.Filter{
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("serviceCode"),
			Value: aws.String(q.ServiceID),
		},
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("productFamily"),
			Value: aws.String(q.ProductFamily),
		},
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("location"),
			Value: aws.String(string(location)),
		},
	}
	if q.Variant != "" {
		filters = append(filters, types.Filter{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("volumeType"),
			Value: aws.String(q.Variant),
		})
	}

	input := &pricing.GetProductsInput{
		ServiceCode: aws.String(q.ServiceID),
		Filters:     filters,
		MaxResults:  aws.Int32(100),
	}

	var out []core.RawProduct
	paginator := pricing.NewGetProductsPaginator(s.svc, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, core.NewSourceUnavailableError("aws", "pricing API query failed", err)
		}
		for _, doc := range page.PriceList {
			out = append(out, s.parseDocument(doc, q)...)
		}
	}
	return out, nil
}

// parseDocument extracts products from one GetProducts price list entry.
// Each entry is a JSON string holding a single product plus its terms.
func (s *SDKSource) parseDocument(doc string, q core.ProductQuery) []core.RawProduct {
	if !gjson.Valid(doc) {
		s.log.Warn("skipping malformed price list document")
		return nil
	}
	root := gjson.Parse(doc)
	product := root.Get("product")
	sku := product.Get("sku").String()
	if sku == "" {
		return nil
	}
	return parseTerms(root.Get("terms"), sku, attributeMap(product), "", q.Currency)
}
