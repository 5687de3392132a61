package judges

import (
	"fmt"
	"strings"

	"github.com/cararth/marigold/pkg/models"
)

const systemPrompt = "You are an expert on the Indian used car market. You compare vehicle listings across marketplaces and decide whether they describe the same physical car."

// buildPrompt renders the comparison prompt: the listing under resolution,
// the candidates from the target platform, and the exact JSON shape the
// judge must answer with.
func buildPrompt(listing models.CachedListingRecord, platform string, candidates []models.CandidateListing) string {
	var b strings.Builder

	b.WriteString("Determine whether the following listing is a duplicate of any candidate from ")
	b.WriteString(platform)
	b.WriteString(".\n\nListing:\n")
	fmt.Fprintf(&b, "- Title: %s\n", listing.Title)
	fmt.Fprintf(&b, "- Price: ₹%d\n", listing.Price)
	fmt.Fprintf(&b, "- Year: %d\n", listing.Year)
	fmt.Fprintf(&b, "- Make/Model: %s %s\n", listing.Brand, listing.Model)
	if listing.Mileage != nil {
		fmt.Fprintf(&b, "- Mileage: %d km\n", *listing.Mileage)
	}
	fmt.Fprintf(&b, "- Location: %s\n", listing.City)

	b.WriteString("\nCandidates:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s", i+1, c.Title)
		if c.Price > 0 {
			fmt.Fprintf(&b, " | ₹%d", c.Price)
		}
		if c.Year > 0 {
			fmt.Fprintf(&b, " | %d", c.Year)
		}
		if c.City != "" {
			fmt.Fprintf(&b, " | %s", c.City)
		}
		if c.Mileage != nil {
			fmt.Fprintf(&b, " | %d km", *c.Mileage)
		}
		fmt.Fprintf(&b, " | %s\n", c.URL)
	}

	b.WriteString(`
A duplicate means the same physical car, typically the same seller posting on multiple marketplaces. Minor price differences and reworded titles are common for duplicates.

Return JSON only:
{
    "is_duplicate": true/false,
    "confidence": 0.0,
    "matched_url": "url of the matching candidate or empty",
    "matched_fields": ["title", "price", "year", "mileage", "location"],
    "reasoning": "brief explanation"
}
`)

	return b.String()
}
