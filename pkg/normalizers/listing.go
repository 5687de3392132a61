package normalizers

import (
	"time"

	"github.com/cararth/marigold/pkg/models"
)

// Listing builds a Tier-2 record from a raw portal listing, normalizing the
// fields that feed content hashing and search predicates. The caller assigns
// the record ID and content hash.
func Listing(in models.ListingInput, now time.Time) models.CachedListingRecord {
	rec := models.CachedListingRecord{
		Portal:          CollapseWhitespace(Lowercase(in.Portal)),
		ExternalID:      Trim(in.ExternalID),
		Title:           CollapseWhitespace(in.Title),
		NormalizedTitle: NormalizeTitle(in.Title),
		Brand:           NormalizeBrand(in.Brand),
		Model:           CollapseWhitespace(Lowercase(in.Model)),
		Variant:         CollapseWhitespace(Lowercase(in.Variant)),
		Year:            in.Year,
		Price:           in.Price,
		Mileage:         in.Mileage,
		FuelType:        NormalizeFuelType(in.FuelType),
		Transmission:    NormalizeTransmission(in.Transmission),
		OwnerCount:      in.OwnerCount,
		City:            NormalizeCity(in.City),
		State:           CollapseWhitespace(Lowercase(in.State)),
		URL:             Trim(in.URL),
		Images:          in.Images,
		Verified:        in.Verified,
		QualityScore:    in.QualityScore,
		SourceMetadata:  in.SourceMetadata,
		ListingDate:     in.ListingDate,
		FetchedAt:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return rec
}
