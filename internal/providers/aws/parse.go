package aws

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"pricecompare/internal/core"
)

// matchesProduct checks one product record from a price list document
// against the query's family and variant. AWS stores the storage class
// under volumeType for S3/EBS and storageClass for some newer offers.
func matchesProduct(product gjson.Result, q core.ProductQuery, location core.ProviderLocation, checkLocation bool) bool {
	if product.Get("productFamily").String() != q.ProductFamily {
		return false
	}
	attrs := product.Get("attributes")
	if checkLocation && attrs.Get("location").String() != string(location) {
		return false
	}
	if q.Variant == "" {
		return true
	}
	for _, key := range []string{"volumeType", "storageClass", "storageType", "volumeApiName"} {
		if strings.EqualFold(attrs.Get(key).String(), q.Variant) {
			return true
		}
	}
	return false
}

// attributeMap flattens a product's attributes for provenance.
func attributeMap(product gjson.Result) map[string]string {
	out := make(map[string]string)
	product.Get("attributes").ForEach(func(k, v gjson.Result) bool {
		out[k.String()] = v.String()
		return true
	})
	return out
}

// parseRange converts one priceDimension bound. AWS uses the string "Inf"
// for open-ended tiers.
func parseRange(v gjson.Result) float64 {
	s := v.String()
	if strings.EqualFold(s, "Inf") {
		return math.Inf(1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseTerms extracts one RawProduct per (sku, term type) from a price
// list document's terms tree. Dimensions priced in a currency the caller
// did not ask for are skipped.
func parseTerms(terms gjson.Result, sku string, attrs map[string]string, unitHint, currency string) []core.RawProduct {
	var out []core.RawProduct
	terms.ForEach(func(termType, skus gjson.Result) bool {
		offers := skus.Get(gjsonEscape(sku))
		if !offers.Exists() {
			return true
		}
		offers.ForEach(func(_, offer gjson.Result) bool {
			var ranges []core.RawRange
			unit := unitHint
			offer.Get("priceDimensions").ForEach(func(_, dim gjson.Result) bool {
				price := dim.Get("pricePerUnit." + currency)
				if !price.Exists() {
					return true
				}
				unit = dim.Get("unit").String()
				ranges = append(ranges, core.RawRange{
					Begin: parseRange(dim.Get("beginRange")),
					End:   parseRange(dim.Get("endRange")),
					Rate:  price.Float(),
				})
				return true
			})
			if len(ranges) > 0 {
				out = append(out, core.RawProduct{
					SKU:        sku,
					Term:       termType.String(),
					Unit:       unit,
					Attributes: attrs,
					Ranges:     ranges,
				})
			}
			return true
		})
		return true
	})
	return out
}

// gjsonEscape protects path metacharacters in SKU keys.
func gjsonEscape(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}
