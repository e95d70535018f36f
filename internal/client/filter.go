package client

import (
	"strconv"
	"strings"

	"gadget-hub/internal/models"
)

// filterListings applies a case-insensitive substring match across the
// display name, origin country, and stringified price. An empty filter
// returns the full set unchanged. The result is recomputed from the full
// set on every call; nothing is incrementally maintained.
func filterListings(listings []models.ProductListing, filterText string) []models.ProductListing {
	needle := strings.ToLower(strings.TrimSpace(filterText))
	if needle == "" {
		return listings
	}

	matched := make([]models.ProductListing, 0, len(listings))
	for _, listing := range listings {
		if matchesListing(&listing, needle) {
			matched = append(matched, listing)
		}
	}
	return matched
}

func matchesListing(listing *models.ProductListing, needle string) bool {
	if strings.Contains(strings.ToLower(listing.Name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(listing.OriginCountry), needle) {
		return true
	}
	price := strconv.FormatFloat(listing.Price, 'f', -1, 64)
	return strings.Contains(price, needle)
}
