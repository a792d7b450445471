package gcp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pricecompare/internal/core"
)

const catalogPage = `{
  "skus": [
    {
      "skuId": "1234-5678-9ABC",
      "description": "Standard Storage US East",
      "category": {
        "resourceFamily": "Storage",
        "resourceGroup": "RegionalStorage",
        "usageType": "OnDemand"
      },
      "serviceRegions": ["us-east4"],
      "pricingInfo": [
        {
          "pricingExpression": {
            "usageUnit": "GiBy.mo",
            "tieredRates": [
              {"startUsageAmount": 0, "unitPrice": {"currencyCode": "USD", "units": "0", "nanos": 23000000}},
              {"startUsageAmount": 51200, "unitPrice": {"currencyCode": "USD", "units": "0", "nanos": 22000000}}
            ]
          }
        }
      ]
    },
    {
      "skuId": "EGRESS-0001",
      "description": "Network Egress US East",
      "category": {
        "resourceFamily": "Network",
        "resourceGroup": "Egress",
        "usageType": "OnDemand"
      },
      "serviceRegions": ["us-east4"],
      "pricingInfo": [
        {
          "pricingExpression": {
            "usageUnit": "GiBy",
            "tieredRates": [{"startUsageAmount": 0, "unitPrice": {"units": "0", "nanos": 120000000}}]
          }
        }
      ]
    }
  ],
  "nextPageToken": ""
}`

func TestCatalogSourceFetch(t *testing.T) {
	var gotKey, gotCurrency string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		gotCurrency = r.URL.Query().Get("currencyCode")
		fmt.Fprint(w, catalogPage)
	}))
	defer ts.Close()

	src := NewCatalogSource(ts.URL, "test-key", ts.Client())
	q := core.ProductQuery{
		Provider: "gcp", ServiceID: "95FF-2EF5-5EA1", Region: "us-east-1",
		ProductFamily: "Storage", Variant: "Standard", Currency: "USD",
	}

	products, err := src.Fetch(context.Background(), q, "us-east4")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotKey != "test-key" || gotCurrency != "USD" {
		t.Errorf("request key=%q currency=%q, want test-key/USD", gotKey, gotCurrency)
	}
	// The network egress SKU is a different resource family.
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}

	p := products[0]
	if p.SKU != "1234-5678-9ABC" || p.Term != "OnDemand" || p.Unit != "GiBy.mo" {
		t.Errorf("product = %s/%s/%s, want 1234-5678-9ABC/OnDemand/GiBy.mo", p.SKU, p.Term, p.Unit)
	}
	if len(p.Ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(p.Ranges))
	}
	if p.Ranges[0].Rate != 0.023 {
		t.Errorf("first tier rate = %v, want 0.023 from nanos", p.Ranges[0].Rate)
	}
	if p.Ranges[0].End != 51200 {
		t.Errorf("first tier ends at %v, want the next tier's start 51200", p.Ranges[0].End)
	}
	if p.Ranges[1].End != 0 {
		t.Errorf("last tier end = %v, want open (0)", p.Ranges[1].End)
	}
}

func TestCatalogSourceRegionFilter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, catalogPage)
	}))
	defer ts.Close()

	src := NewCatalogSource(ts.URL, "test-key", ts.Client())
	q := core.ProductQuery{
		Provider: "gcp", ServiceID: "95FF-2EF5-5EA1", Region: "eu-west-1",
		ProductFamily: "Storage", Variant: "Standard", Currency: "USD",
	}

	products, err := src.Fetch(context.Background(), q, "europe-west1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(products) != 0 {
		t.Errorf("got %d products for an unserved region, want 0", len(products))
	}
}

func TestCatalogSourceConfigured(t *testing.T) {
	if NewCatalogSource("", "", nil).Configured() {
		t.Error("source without an API key reports configured")
	}
	if !NewCatalogSource("", "key", nil).Configured() {
		t.Error("source with an API key reports unconfigured")
	}
}
