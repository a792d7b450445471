// Package aws resolves storage pricing from AWS. The public price list
// bulk files are tried first; the credentialed Pricing API is an optional
// fallback for accounts that enable it.
package aws

import (
	"pricecompare/config"
	"pricecompare/internal/core"
	"pricecompare/internal/providers"
)

func init() {
	// Self-register with the factory
	providers.Register("aws", func(cfg config.ProviderConfig, deps providers.Deps) (core.Resolver, error) {
		sources := []core.Source{NewPublicSource(cfg.BaseURL, deps.HTTPClient)}
		if cfg.UseSDK {
			sdk, err := NewSDKSource()
			if err != nil {
				return nil, err
			}
			sources = append(sources, sdk)
		}
		return providers.NewChainResolver("aws", deps.Cache, sources...), nil
	})
}
