// Package catalog maps portable service identifiers to the provider-specific
// product coordinates needed to query each pricing source. The table is
// static YAML, loaded once and read-only afterward.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"pricecompare/internal/core"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// ProviderProduct describes how one provider names an equivalent product:
// the service/offer code, the product family, the default variant (storage
// class or tier), and any extra attribute filters the source should apply.
type ProviderProduct struct {
	ServiceCode   string            `yaml:"service_code" json:"service_code"`
	ProductFamily string            `yaml:"product_family" json:"product_family"`
	Variant       string            `yaml:"variant" json:"variant"`
	Attributes    map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Service is one portable service entry with its per-provider mappings.
type Service struct {
	Description string                     `yaml:"description" json:"description"`
	Providers   map[string]ProviderProduct `yaml:"providers" json:"providers"`
}

// Catalog is the loaded equivalency table.
type Catalog struct {
	services map[string]Service
}

type catalogFile struct {
	Services map[string]Service `yaml:"services"`
}

// Default loads the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return parse(defaultCatalogYAML)
}

// Load reads a catalog from a YAML file, for deployments that override the
// built-in table.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Services) == 0 {
		return nil, fmt.Errorf("catalog defines no services")
	}
	for id, svc := range f.Services {
		if len(svc.Providers) == 0 {
			return nil, fmt.Errorf("catalog service %q maps no providers", id)
		}
		for p, pp := range svc.Providers {
			if pp.ServiceCode == "" || pp.ProductFamily == "" {
				return nil, fmt.Errorf("catalog service %q provider %q is missing service_code or product_family", id, p)
			}
		}
	}
	return &Catalog{services: f.Services}, nil
}

// Lookup returns the entry for a service identifier.
func (c *Catalog) Lookup(serviceID string) (Service, bool) {
	svc, ok := c.services[serviceID]
	return svc, ok
}

// Services lists all known service identifiers, sorted.
func (c *Catalog) Services() []string {
	out := make([]string, 0, len(c.services))
	for id := range c.services {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Query builds the ProductQuery for one provider's rendition of a service.
// An explicit variant overrides the catalog default. Unknown services or
// providers without a mapping yield InvalidRequest.
func (c *Catalog) Query(serviceID, provider string, region core.RegionCode, variant, currency string) (core.ProductQuery, error) {
	svc, ok := c.services[serviceID]
	if !ok {
		return core.ProductQuery{}, core.NewInvalidRequestError(
			fmt.Sprintf("unknown service %q", serviceID), nil)
	}
	pp, ok := svc.Providers[provider]
	if !ok {
		return core.ProductQuery{}, core.NewInvalidRequestError(
			fmt.Sprintf("service %q has no %s equivalent", serviceID, provider), nil)
	}
	if variant == "" {
		variant = pp.Variant
	}
	if currency == "" {
		currency = "USD"
	}
	return core.ProductQuery{
		Provider:      provider,
		ServiceID:     pp.ServiceCode,
		Region:        region,
		ProductFamily: pp.ProductFamily,
		Variant:       variant,
		Currency:      currency,
	}, nil
}

// Attributes returns the extra source filters for one provider's mapping,
// or nil when the provider has none.
func (c *Catalog) Attributes(serviceID, provider string) map[string]string {
	svc, ok := c.services[serviceID]
	if !ok {
		return nil
	}
	return svc.Providers[provider].Attributes
}
