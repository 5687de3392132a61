// Package fingerprint derives deterministic cache keys from search filters
// and content identity hashes from normalized listings.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cararth/marigold/pkg/models"
	"github.com/cararth/marigold/pkg/normalizers"
)

// searchKeyLen truncates the search fingerprint to 128 bits of hex. Short
// enough for log lines and map keys, long enough that collisions are not a
// practical concern.
const searchKeyLen = 32

// Search creates a deterministic fingerprint for a set of search filters.
// Two filter sets that differ only in field order, string casing, or array
// order produce the same fingerprint; absent fields are omitted entirely so
// {} and {"city": ""} hash identically.
func Search(filters models.SearchFilters) string {
	canonical := canonicalize(filterMap(filters))

	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:])[:searchKeyLen]
}

// filterMap projects the filters into a map holding only present fields,
// with strings normalized and arrays sorted.
func filterMap(filters models.SearchFilters) map[string]any {
	m := make(map[string]any)

	putString(m, "city", normalizers.NormalizeCity(filters.City))
	putString(m, "brand", normalizers.NormalizeBrand(filters.Brand))
	putString(m, "model", normalizers.Lowercase(normalizers.CollapseWhitespace(filters.Model)))
	putString(m, "sort_by", normalizers.Lowercase(strings.TrimSpace(filters.SortBy)))
	putString(m, "sort_order", normalizers.Lowercase(strings.TrimSpace(filters.SortOrder)))

	if filters.PriceMin != nil {
		m["price_min"] = *filters.PriceMin
	}
	if filters.PriceMax != nil {
		m["price_max"] = *filters.PriceMax
	}
	if filters.YearMin != nil {
		m["year_min"] = *filters.YearMin
	}
	if filters.YearMax != nil {
		m["year_max"] = *filters.YearMax
	}
	if filters.MileageMax != nil {
		m["mileage_max"] = *filters.MileageMax
	}

	putArray(m, "fuel_types", filters.FuelTypes, normalizers.NormalizeFuelType)
	putArray(m, "transmissions", filters.Transmissions, normalizers.NormalizeTransmission)
	putArray(m, "portals", filters.Portals, normalizers.Lowercase)

	return m
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func putArray(m map[string]any, key string, values []string, normalize normalizers.Normalizer) {
	if len(values) == 0 {
		return
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := normalize(strings.TrimSpace(v)); n != "" {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return
	}
	sort.Strings(out)
	m[key] = out
}

// canonicalize creates a deterministic string representation of a map
// by sorting keys and JSON-encoding each value.
func canonicalize(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		keyJSON, _ := json.Marshal(k)
		valJSON, _ := json.Marshal(m[k])
		b.Write(keyJSON)
		b.WriteString(":")
		b.Write(valJSON)
	}
	b.WriteString("}")
	return b.String()
}

// Content creates the identity hash for a normalized listing. The hash is
// built from portal, normalized title, price, city, and year only, so minor
// edits on the portal (photos, description) do not change identity, while
// a price change does. Biased toward false negatives: a missed duplicate
// costs a redundant row, a false merge loses a listing.
func Content(rec models.CachedListingRecord) string {
	key := fmt.Sprintf("%s|%s|%s|%s|%s",
		rec.Portal,
		rec.NormalizedTitle,
		strconv.FormatInt(rec.Price, 10),
		rec.City,
		strconv.Itoa(rec.Year),
	)

	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
