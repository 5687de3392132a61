package listingcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cararth/marigold/pkg/fingerprint"
	"github.com/cararth/marigold/pkg/models"
	"github.com/cararth/marigold/pkg/normalizers"
)

func TestUpsertQuery_PortalIdentity(t *testing.T) {
	query := upsertQuery("olx-12345")

	assert.Contains(t, query, "ON CONFLICT (portal, external_id) WHERE external_id <> ''")
	assert.Contains(t, query, "price = EXCLUDED.price")
	assert.Contains(t, query, "content_hash = EXCLUDED.content_hash")
	assert.Contains(t, query, "fetched_at = EXCLUDED.fetched_at")
}

func TestUpsertQuery_ContentHashFallback(t *testing.T) {
	query := upsertQuery("")

	assert.Contains(t, query, "ON CONFLICT (content_hash)")
	assert.NotContains(t, query, "price = EXCLUDED.price")
	assert.NotContains(t, query, "title = EXCLUDED.title")
}

func TestUpsert_PriceChangeKeepsPortalIdentity(t *testing.T) {
	// A re-fetch with a changed price hashes to a new content identity, so
	// only the (portal, external_id) arbiter can converge both writes onto
	// one row.
	at := time.Now().UTC()
	input := models.ListingInput{
		Portal:     "OLX",
		ExternalID: "olx-12345",
		Title:      "Honda City VX 2019",
		Price:      750000,
		Year:       2019,
		City:       "Hyderabad",
	}

	first := normalizers.Listing(input, at)
	first.ContentHash = fingerprint.Content(first)

	input.Price = 720000
	second := normalizers.Listing(input, at)
	second.ContentHash = fingerprint.Content(second)

	require.NotEqual(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, first.ExternalID, second.ExternalID)
	assert.Contains(t, upsertQuery(second.ExternalID), "ON CONFLICT (portal, external_id)")
}

func TestSearchQuery_CutoffFallsBackToFetchedAt(t *testing.T) {
	since := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	query, args := searchQuery(models.SearchFilters{City: "Hyderabad", Brand: "HONDA"}, since, 50)

	assert.Contains(t, query, "COALESCE(listing_date, fetched_at) >=")
	assert.Contains(t, args, since)
	assert.Contains(t, args, normalizers.NormalizeCity("Hyderabad"))
	assert.Contains(t, args, normalizers.NormalizeBrand("HONDA"))
}
