package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies pricing resolution failures. The kinds are part of
// the API contract: callers distinguish "no data for this region" from
// "temporarily unavailable, retry" by kind, not by message.
type ErrorKind string

const (
	// KindUnknownRegion means no location mapping exists for the
	// provider/region pair.
	KindUnknownRegion ErrorKind = "unknown_region"
	// KindInvalidUnit means a provider price dimension used a unit that
	// cannot be converted to GB-month.
	KindInvalidUnit ErrorKind = "invalid_unit"
	// KindMalformedTierData means provider tier ranges failed the
	// contiguity/ordering invariants.
	KindMalformedTierData ErrorKind = "malformed_tier_data"
	// KindNoMatchingProduct means the source was reachable but zero
	// products matched the filters.
	KindNoMatchingProduct ErrorKind = "no_matching_product"
	// KindAmbiguousProduct means multiple products matched and the
	// tie-break rules did not reduce them to one.
	KindAmbiguousProduct ErrorKind = "ambiguous_product"
	// KindSourceUnavailable means a network, credential, or timeout
	// failure prevented reaching any source.
	KindSourceUnavailable ErrorKind = "source_unavailable"
	// KindInvalidRequest means the caller's input failed validation.
	KindInvalidRequest ErrorKind = "invalid_request"
)

// PricingError is the typed error for all pricing resolution failures.
type PricingError struct {
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
	Provider string    `json:"provider,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *PricingError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements the error unwrapping interface.
func (e *PricingError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure may clear on retry. Structural
// errors (mappings, malformed payloads, zero matches) never do.
func (e *PricingError) Retryable() bool {
	return e.Kind == KindSourceUnavailable
}

// HTTPStatusCode returns the status code to serve this error with.
func (e *PricingError) HTTPStatusCode() int {
	switch e.Kind {
	case KindUnknownRegion, KindNoMatchingProduct:
		return http.StatusNotFound
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindSourceUnavailable:
		return http.StatusBadGateway
	case KindInvalidUnit, KindMalformedTierData, KindAmbiguousProduct:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map.
func (e *PricingError) ToJSON() map[string]interface{} {
	inner := map[string]interface{}{
		"kind":      e.Kind,
		"message":   e.Message,
		"retryable": e.Retryable(),
	}
	if e.Provider != "" {
		inner["provider"] = e.Provider
	}
	return map[string]interface{}{"error": inner}
}

// NewUnknownRegionError creates an error for an unmapped region code.
func NewUnknownRegionError(provider string, region RegionCode) *PricingError {
	return &PricingError{
		Kind:     KindUnknownRegion,
		Message:  fmt.Sprintf("no pricing location mapped for region %q", region),
		Provider: provider,
	}
}

// NewInvalidUnitError creates an error for an unconvertible price unit.
func NewInvalidUnitError(provider, unit string) *PricingError {
	return &PricingError{
		Kind:     KindInvalidUnit,
		Message:  fmt.Sprintf("cannot normalize unit %q to GB-month", unit),
		Provider: provider,
	}
}

// NewMalformedTierDataError creates an error for broken tier ranges.
func NewMalformedTierDataError(provider, message string) *PricingError {
	return &PricingError{
		Kind:     KindMalformedTierData,
		Message:  message,
		Provider: provider,
	}
}

// NewNoMatchingProductError creates an error for zero filter matches.
func NewNoMatchingProductError(provider string, q ProductQuery) *PricingError {
	return &PricingError{
		Kind:     KindNoMatchingProduct,
		Message:  fmt.Sprintf("no %s product for service %q in region %q", q.ProductFamily, q.ServiceID, q.Region),
		Provider: provider,
	}
}

// NewAmbiguousProductError creates an error for unresolvable multi-matches.
func NewAmbiguousProductError(provider string, count int) *PricingError {
	return &PricingError{
		Kind:     KindAmbiguousProduct,
		Message:  fmt.Sprintf("%d products matched after tie-break, refusing to guess", count),
		Provider: provider,
	}
}

// NewSourceUnavailableError creates an error for fetch/credential/timeout failures.
func NewSourceUnavailableError(provider, message string, err error) *PricingError {
	return &PricingError{
		Kind:     KindSourceUnavailable,
		Message:  message,
		Provider: provider,
		Err:      err,
	}
}

// NewInvalidRequestError creates an error for bad caller input.
func NewInvalidRequestError(message string, err error) *PricingError {
	return &PricingError{
		Kind:    KindInvalidRequest,
		Message: message,
		Err:     err,
	}
}

// AsPricingError extracts a *PricingError from an error chain, wrapping
// unknown errors as SourceUnavailable so callers always see a typed error.
func AsPricingError(provider string, err error) *PricingError {
	var pe *PricingError
	if errors.As(err, &pe) {
		return pe
	}
	return NewSourceUnavailableError(provider, err.Error(), err)
}
