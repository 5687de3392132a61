package normalizers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cararth/marigold/pkg/models"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase and punctuation", "Honda City VX, 2019 - Top Model!", "honda city vx 2019 top model"},
		{"collapses whitespace", "  Maruti   Swift\tVDI ", "maruti swift vdi"},
		{"symbols stripped", "Hyundai i20 @ ₹5.5L", "hyundai i20 5 5l"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTitle(tt.input))
		})
	}
}

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hyderabad", "hyderabad"},
		{"HYD", "hyderabad"},
		{"Secunderabad", "hyderabad"},
		{"Bengaluru", "bangalore"},
		{"New Delhi", "delhi"},
		{"  Pune  ", "pune"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCity(tt.input))
		})
	}
}

func TestNormalizeFuelType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Petrol", "petrol"},
		{"Gasoline", "petrol"},
		{"Petrol + CNG", "cng"},
		{"EV", "electric"},
		{"Mild Hybrid", "hybrid"},
		{"hydrogen", "hydrogen"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeFuelType(tt.input))
		})
	}
}

func TestNormalizeTransmission(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Manual", "manual"},
		{"MT", "manual"},
		{"AMT", "automatic"},
		{"CVT", "automatic"},
		{"DSG", "automatic"},
		{"tiptronic", "tiptronic"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTransmission(tt.input))
		})
	}
}

func TestNormalizeBrand(t *testing.T) {
	assert.Equal(t, "maruti suzuki", NormalizeBrand("Maruti"))
	assert.Equal(t, "mercedes-benz", NormalizeBrand("Mercedes Benz"))
	assert.Equal(t, "honda", NormalizeBrand("  Honda "))
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "550000", DigitsOnly("₹ 5,50,000"))
	assert.Equal(t, "", DigitsOnly("five lakh"))
}

func TestApply_UnknownNormalizerPassesThrough(t *testing.T) {
	assert.Equal(t, "AsIs", Apply("AsIs", "does_not_exist"))
}

func TestListing(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mileage := 42000

	rec := Listing(models.ListingInput{
		Portal:       "CarDekho",
		ExternalID:   " cd-123 ",
		Title:        "Honda City VX (2019) - Single Owner!",
		Brand:        "HONDA",
		Model:        "City",
		Year:         2019,
		Price:        750000,
		Mileage:      &mileage,
		FuelType:     "Petrol",
		Transmission: "CVT",
		City:         "Hyd",
		URL:          "https://cardekho.example/listing/cd-123",
	}, now)

	assert.Equal(t, "cardekho", rec.Portal)
	assert.Equal(t, "cd-123", rec.ExternalID)
	assert.Equal(t, "Honda City VX (2019) - Single Owner!", rec.Title)
	assert.Equal(t, "honda city vx 2019 single owner", rec.NormalizedTitle)
	assert.Equal(t, "honda", rec.Brand)
	assert.Equal(t, "city", rec.Model)
	assert.Equal(t, "petrol", rec.FuelType)
	assert.Equal(t, "automatic", rec.Transmission)
	assert.Equal(t, "hyderabad", rec.City)
	assert.Equal(t, now, rec.FetchedAt)
}
