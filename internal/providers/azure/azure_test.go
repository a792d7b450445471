package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pricecompare/internal/core"
)

const retailPage1 = `{
  "Items": [
    {
      "retailPrice": 0.0184,
      "unitOfMeasure": "1 GB/Month",
      "tierMinimumUnits": 0,
      "armRegionName": "eastus",
      "productName": "Blob Storage",
      "skuName": "Hot LRS",
      "meterName": "Hot LRS Data Stored",
      "type": "Consumption"
    },
    {
      "retailPrice": 0.0177,
      "unitOfMeasure": "1 GB/Month",
      "tierMinimumUnits": 51200,
      "armRegionName": "eastus",
      "productName": "Blob Storage",
      "skuName": "Hot LRS",
      "meterName": "Hot LRS Data Stored",
      "type": "Consumption"
    },
    {
      "retailPrice": 0.0005,
      "unitOfMeasure": "10K",
      "tierMinimumUnits": 0,
      "armRegionName": "eastus",
      "productName": "Blob Storage",
      "skuName": "Hot LRS",
      "meterName": "Hot Write Operations",
      "type": "Consumption"
    }
  ],
  "NextPageLink": "%s"
}`

const retailPage2 = `{
  "Items": [
    {
      "retailPrice": 0.017,
      "unitOfMeasure": "1 GB/Month",
      "tierMinimumUnits": 512000,
      "armRegionName": "eastus",
      "productName": "Blob Storage",
      "skuName": "Hot LRS",
      "meterName": "Hot LRS Data Stored",
      "type": "Consumption"
    }
  ],
  "NextPageLink": ""
}`

func TestRetailSourceFetchGroupsTiers(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, retailPage2)
			return
		}
		fmt.Fprintf(w, retailPage1, ts.URL+"?page=2")
	}))
	defer ts.Close()

	src := NewRetailSource(ts.URL, ts.Client())
	q := core.ProductQuery{
		Provider: "azure", ServiceID: "Storage", Region: "us-east-1",
		ProductFamily: "Storage", Variant: "Hot LRS", Currency: "USD",
	}

	products, err := src.Fetch(context.Background(), q, "eastus")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	// Write operations meter is not GB denominated and must be dropped.
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}

	p := products[0]
	if p.Term != "Consumption" || p.Unit != "GB-Mo" {
		t.Errorf("product = %s/%s, want Consumption/GB-Mo", p.Term, p.Unit)
	}
	if len(p.Ranges) != 3 {
		t.Fatalf("got %d ranges, want 3 across both pages", len(p.Ranges))
	}
	if p.Ranges[0].Begin != 0 || p.Ranges[0].End != 51200 || p.Ranges[0].Rate != 0.0184 {
		t.Errorf("first range = %+v, want [0, 51200) at 0.0184", p.Ranges[0])
	}
	if p.Ranges[1].End != 512000 {
		t.Errorf("second range ends at %v, want 512000", p.Ranges[1].End)
	}
	if p.Ranges[2].End != 0 {
		t.Errorf("last range end = %v, want open (0)", p.Ranges[2].End)
	}
}

func TestRetailSourceFilterQuery(t *testing.T) {
	var filter string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter = r.URL.Query().Get("$filter")
		fmt.Fprint(w, `{"Items": [], "NextPageLink": ""}`)
	}))
	defer ts.Close()

	src := NewRetailSource(ts.URL, ts.Client())
	q := core.ProductQuery{
		Provider: "azure", ServiceID: "Storage", Region: "us-east-1",
		ProductFamily: "Storage", Variant: "Cool LRS", Currency: "USD",
	}

	if _, err := src.Fetch(context.Background(), q, "eastus"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	want := "serviceName eq 'Storage' and armRegionName eq 'eastus' and skuName eq 'Cool LRS'"
	if filter != want {
		t.Errorf("$filter = %q, want %q", filter, want)
	}
}

func TestRetailSourceUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer ts.Close()

	src := NewRetailSource(ts.URL, ts.Client())
	q := core.ProductQuery{Provider: "azure", ServiceID: "Storage", Region: "us-east-1", ProductFamily: "Storage", Currency: "USD"}

	_, err := src.Fetch(context.Background(), q, "eastus")
	pe, ok := err.(*core.PricingError)
	if !ok || pe.Kind != core.KindSourceUnavailable {
		t.Fatalf("Fetch() error = %v, want SourceUnavailable", err)
	}
}
