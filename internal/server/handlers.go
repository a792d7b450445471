// Package server provides the HTTP surface for pricing resolution and
// cross-provider cost comparison.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"pricecompare/internal/aggregator"
	"pricecompare/internal/catalog"
	"pricecompare/internal/core"
	"pricecompare/internal/regions"
	"pricecompare/internal/version"
)

// Handler holds the HTTP handlers
type Handler struct {
	agg *aggregator.Aggregator
	cat *catalog.Catalog
}

// NewHandler creates a new handler over the aggregator and catalog
func NewHandler(agg *aggregator.Aggregator, cat *catalog.Catalog) *Handler {
	return &Handler{
		agg: agg,
		cat: cat,
	}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   version.Version,
		"providers": h.agg.Providers(),
	})
}

// ListServices handles GET /v1/services
func (h *Handler) ListServices(c echo.Context) error {
	ids := h.cat.Services()
	services := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		svc, _ := h.cat.Lookup(id)
		providers := make([]string, 0, len(svc.Providers))
		for p := range svc.Providers {
			providers = append(providers, p)
		}
		services = append(services, map[string]interface{}{
			"id":          id,
			"description": svc.Description,
			"providers":   providers,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"services": services})
}

// ListRegions handles GET /v1/regions. An optional provider query param
// narrows the listing to one provider.
func (h *Handler) ListRegions(c echo.Context) error {
	provider := c.QueryParam("provider")
	if provider != "" {
		entries := regions.List(provider)
		if len(entries) == 0 {
			return handleError(c, core.NewInvalidRequestError("unknown provider: "+provider, nil))
		}
		return c.JSON(http.StatusOK, map[string]interface{}{provider: entries})
	}

	out := make(map[string]interface{})
	for _, p := range regions.Providers() {
		out[p] = regions.List(p)
	}
	return c.JSON(http.StatusOK, out)
}

// pricingResponse is the single-provider pricing payload.
type pricingResponse struct {
	Provider string           `json:"provider"`
	Service  string           `json:"service"`
	Region   core.RegionCode  `json:"region"`
	Rate     *core.RateResult `json:"rate"`
	Cached   bool             `json:"cached"`
	CachedAt time.Time        `json:"cached_at"`
}

// Pricing handles GET /v1/pricing/:provider. Query params: service,
// region, variant, currency, refresh.
func (h *Handler) Pricing(c echo.Context) error {
	provider := c.Param("provider")
	resolver, ok := h.agg.Resolver(provider)
	if !ok {
		return handleError(c, core.NewInvalidRequestError("unknown provider: "+provider, nil))
	}

	serviceID := c.QueryParam("service")
	region := c.QueryParam("region")
	if serviceID == "" || region == "" {
		return handleError(c, core.NewInvalidRequestError("service and region query params are required", nil))
	}
	refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))

	q, err := h.cat.Query(serviceID, provider, core.RegionCode(region), c.QueryParam("variant"), c.QueryParam("currency"))
	if err != nil {
		return handleError(c, err)
	}

	res, err := resolver.ResolveDetailed(c.Request().Context(), q, refresh)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, pricingResponse{
		Provider: provider,
		Service:  serviceID,
		Region:   q.Region,
		Rate:     res.Rate,
		Cached:   res.Cached,
		CachedAt: res.CachedAt,
	})
}

// Compare handles POST /v1/compare
func (h *Handler) Compare(c echo.Context) error {
	var req aggregator.Request
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if refresh, err := strconv.ParseBool(c.QueryParam("refresh")); err == nil {
		req.Refresh = refresh
	}

	result, err := h.agg.Compare(c.Request().Context(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ClearCache handles DELETE /v1/cache/:provider
func (h *Handler) ClearCache(c echo.Context) error {
	provider := c.Param("provider")
	resolver, ok := h.agg.Resolver(provider)
	if !ok {
		return handleError(c, core.NewInvalidRequestError("unknown provider: "+provider, nil))
	}

	clearer, ok := resolver.(interface {
		ClearCache(ctx context.Context) (int, error)
	})
	if !ok {
		return c.JSON(http.StatusOK, map[string]interface{}{"provider": provider, "cleared": 0})
	}

	n, err := clearer.ClearCache(c.Request().Context())
	if err != nil {
		return handleError(c, core.NewSourceUnavailableError(provider, "cache clear failed", err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"provider": provider, "cleared": n})
}

// handleError converts pricing errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var pricingErr *core.PricingError
	if errors.As(err, &pricingErr) {
		return c.JSON(pricingErr.HTTPStatusCode(), pricingErr.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"kind":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
