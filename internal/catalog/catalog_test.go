package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pricecompare/internal/core"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	services := c.Services()
	if len(services) == 0 {
		t.Fatal("default catalog has no services")
	}
	svc, ok := c.Lookup("object-storage")
	if !ok {
		t.Fatal("default catalog is missing object-storage")
	}
	for _, p := range []string{"aws", "azure", "gcp"} {
		if _, ok := svc.Providers[p]; !ok {
			t.Errorf("object-storage has no %s mapping", p)
		}
	}
}

func TestQueryBuildsProductQuery(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	q, err := c.Query("object-storage", "aws", "us-east-1", "", "")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if q.ServiceID != "AmazonS3" {
		t.Errorf("ServiceID = %q, want AmazonS3", q.ServiceID)
	}
	if q.Variant != "Standard" {
		t.Errorf("Variant = %q, want catalog default Standard", q.Variant)
	}
	if q.Currency != "USD" {
		t.Errorf("Currency = %q, want USD default", q.Currency)
	}

	q, err = c.Query("object-storage", "aws", "us-east-1", "Glacier Deep Archive", "EUR")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if q.Variant != "Glacier Deep Archive" {
		t.Errorf("explicit variant not honored, got %q", q.Variant)
	}
	if q.Currency != "EUR" {
		t.Errorf("explicit currency not honored, got %q", q.Currency)
	}
}

func TestQueryUnknownServiceAndProvider(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Query("quantum-storage", "aws", "us-east-1", "", "")
	var pe *core.PricingError
	if !errors.As(err, &pe) || pe.Kind != core.KindInvalidRequest {
		t.Errorf("unknown service error = %v, want InvalidRequest", err)
	}

	// backup-vault has no gcp mapping.
	_, err = c.Query("backup-vault", "gcp", "us-east-1", "", "")
	if !errors.As(err, &pe) || pe.Kind != core.KindInvalidRequest {
		t.Errorf("unmapped provider error = %v, want InvalidRequest", err)
	}
}

func TestLoadRejectsBrokenCatalogs(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty":       "services: {}\n",
		"noProviders": "services:\n  thing:\n    description: x\n    providers: {}\n",
		"missingCode": "services:\n  thing:\n    providers:\n      aws:\n        product_family: Storage\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() accepted a broken catalog")
			}
		})
	}
}
