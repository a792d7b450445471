// Package providers provides the resolver factory and the shared
// source-chain resolver that every cloud provider package builds on.
package providers

import (
	"fmt"
	"net/http"
	"sort"

	"pricecompare/config"
	"pricecompare/internal/core"
	"pricecompare/internal/pricecache"
)

// Deps carries the shared infrastructure a resolver needs.
type Deps struct {
	Cache      *pricecache.Cache
	HTTPClient *http.Client
}

// Builder creates a resolver instance from configuration
type Builder func(cfg config.ProviderConfig, deps Deps) (core.Resolver, error)

// registry holds all registered resolver builders
var registry = make(map[string]Builder)

// Register allows provider packages to register themselves
// This should be called from init() functions in provider packages
func Register(name string, builder Builder) {
	registry[name] = builder
}

// Create instantiates a resolver based on configuration
func Create(cfg config.ProviderConfig, deps Deps) (core.Resolver, error) {
	builder, ok := registry[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", cfg.Name)
	}
	return builder(cfg, deps)
}

// ListRegistered returns all registered provider names, sorted.
func ListRegistered() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
