package search

import (
	"strings"

	"goodfoods/models"
)

// Vocabulary for the deterministic criteria parse. Matches the categories
// the restaurant mirror is tagged with.
var (
	knownCuisines = []string{
		"italian", "chinese", "mexican", "indian", "japanese", "thai",
		"french", "american", "mediterranean", "korean", "vietnamese",
		"spanish", "greek", "seafood", "steakhouse", "vegan",
	}
	knownLocations = []string{
		"downtown", "midtown", "uptown", "suburbs", "waterfront",
		"old town", "city center", "riverside",
	}
	knownFeatures = []string{
		"romantic", "outdoor-seating", "family-friendly", "live-music",
		"private-dining", "rooftop", "pet-friendly", "wheelchair-accessible",
	}
)

// ParseCriteria pulls search filters out of a free-form query. It is a
// plain keyword match against the mirror's vocabulary: anything it misses
// the user can add in a follow-up turn, and anything it finds came
// literally from the query.
func ParseCriteria(query string) models.SearchCriteria {
	lower := strings.ToLower(query)
	var c models.SearchCriteria

	for _, cuisine := range knownCuisines {
		if strings.Contains(lower, cuisine) {
			c.Cuisine = cuisine
			break
		}
	}
	for _, location := range knownLocations {
		if strings.Contains(lower, location) {
			c.Location = location
			break
		}
	}
	for _, feature := range knownFeatures {
		if strings.Contains(lower, strings.ReplaceAll(feature, "-", " ")) ||
			strings.Contains(lower, feature) {
			c.Features = append(c.Features, feature)
		}
	}

	switch {
	case strings.Contains(lower, "cheap") || strings.Contains(lower, "budget"):
		c.PriceRange = "$"
	case strings.Contains(lower, "upscale") || strings.Contains(lower, "fine dining") || strings.Contains(lower, "fancy"):
		c.PriceRange = "$$$$"
	}
	if strings.Contains(lower, "best") || strings.Contains(lower, "top rated") || strings.Contains(lower, "highly rated") {
		c.MinRating = 4.0
	}
	return c
}
