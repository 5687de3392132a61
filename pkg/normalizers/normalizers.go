// Package normalizers provides field normalization functions for listing
// canonicalization and content hashing
package normalizers

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("ntitle", NormalizeTitle)
	Register("ncity", NormalizeCity)
	Register("nfuel", NormalizeFuelType)
	Register("ntransmission", NormalizeTransmission)
	Register("nbrand", NormalizeBrand)
	Register("digits_only", DigitsOnly)
	Register("collapse_whitespace", CollapseWhitespace)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

var spaceRe = regexp.MustCompile(`\s+`)

// CollapseWhitespace collapses runs of whitespace into single spaces
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// NormalizeTitle normalizes a listing title for content hashing:
// lowercase, punctuation removed, whitespace collapsed. Two portals listing
// the same car with different punctuation or casing hash identically.
func NormalizeTitle(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	prevSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// cityAliases maps portal spellings to canonical city names.
var cityAliases = map[string]string{
	"hyd":           "hyderabad",
	"secunderabad":  "hyderabad",
	"bengaluru":     "bangalore",
	"bombay":        "mumbai",
	"new delhi":     "delhi",
	"delhi ncr":     "delhi",
	"gurugram":      "gurgaon",
	"calcutta":      "kolkata",
	"madras":        "chennai",
	"trivandrum":    "thiruvananthapuram",
	"vizag":         "visakhapatnam",
	"pondicherry":   "puducherry",
	"navi mumbai":   "mumbai",
	"greater noida": "noida",
}

// NormalizeCity canonicalizes a city name, resolving common aliases
func NormalizeCity(s string) string {
	s = CollapseWhitespace(strings.ToLower(s))
	if canonical, ok := cityAliases[s]; ok {
		return canonical
	}
	return s
}

// NormalizeFuelType maps portal fuel labels onto a small closed set
func NormalizeFuelType(s string) string {
	s = CollapseWhitespace(strings.ToLower(s))
	switch s {
	case "petrol", "gasoline", "gas":
		return "petrol"
	case "diesel":
		return "diesel"
	case "cng", "cng & hybrids", "petrol + cng", "petrol/cng":
		return "cng"
	case "electric", "ev":
		return "electric"
	case "hybrid", "petrol + electric", "mild hybrid":
		return "hybrid"
	case "lpg", "petrol + lpg":
		return "lpg"
	default:
		return s
	}
}

// NormalizeTransmission maps portal transmission labels onto manual/automatic
func NormalizeTransmission(s string) string {
	s = CollapseWhitespace(strings.ToLower(s))
	switch s {
	case "manual", "mt":
		return "manual"
	case "automatic", "auto", "at", "amt", "cvt", "dct", "dsg", "imt":
		return "automatic"
	default:
		return s
	}
}

// brandAliases maps portal brand spellings to canonical brand names.
var brandAliases = map[string]string{
	"maruti":        "maruti suzuki",
	"maruti-suzuki": "maruti suzuki",
	"mercedes":      "mercedes-benz",
	"mercedes benz": "mercedes-benz",
	"vw":            "volkswagen",
	"landrover":     "land rover",
	"mg motor":      "mg",
}

// NormalizeBrand canonicalizes a vehicle brand name
func NormalizeBrand(s string) string {
	s = CollapseWhitespace(strings.ToLower(s))
	if canonical, ok := brandAliases[s]; ok {
		return canonical
	}
	return s
}

// DigitsOnly keeps only digit characters. Portals report prices as
// "₹ 5,50,000" or "5.5 Lakh"; callers that need numeric prices should parse
// the digits form.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
