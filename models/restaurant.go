package models

import "strings"

// Restaurant is reference data mirrored from the restaurant-management
// system. The orchestration core only reads it.
type Restaurant struct {
	ID               string            `bson:"id" json:"id"`
	Name             string            `bson:"name" json:"name"`
	CuisineType      string            `bson:"cuisineType" json:"cuisineType"`
	Location         string            `bson:"location" json:"location"` // neighborhood, e.g. "downtown"
	Address          string            `bson:"address" json:"address"`
	Phone            string            `bson:"phone" json:"phone"`
	Email            string            `bson:"email" json:"email"`
	Capacity         int               `bson:"capacity" json:"capacity"`
	PriceRange       string            `bson:"priceRange" json:"priceRange"` // $, $$, $$$, $$$$
	Rating           float64           `bson:"rating" json:"rating"`
	Description      string            `bson:"description" json:"description"`
	Features         []string          `bson:"features,omitempty" json:"features,omitempty"` // e.g. "romantic", "outdoor-seating"
	OpeningHours     map[string]string `bson:"openingHours,omitempty" json:"openingHours,omitempty"`
	SpecialOccasions []string          `bson:"specialOccasions,omitempty" json:"specialOccasions,omitempty"`
}

// SearchCriteria captures the filters accepted by restaurant search.
type SearchCriteria struct {
	Cuisine    string   `json:"cuisine,omitempty"`
	Location   string   `json:"location,omitempty"`
	Features   []string `json:"features,omitempty"`
	PriceRange string   `json:"priceRange,omitempty"`
	MinRating  float64  `json:"minRating,omitempty"`
	PartySize  int      `json:"partySize,omitempty"`
	Date       string   `json:"date,omitempty"`
	Time       string   `json:"time,omitempty"`
}

// IsEmpty reports whether no filter at all was supplied.
func (c SearchCriteria) IsEmpty() bool {
	return c.Cuisine == "" && c.Location == "" && len(c.Features) == 0 &&
		c.PriceRange == "" && c.MinRating == 0 && c.PartySize == 0
}

// MatchesCriteria checks whether the restaurant satisfies every supplied filter.
func (r Restaurant) MatchesCriteria(c SearchCriteria) bool {
	if c.Cuisine != "" && !strings.Contains(strings.ToLower(r.CuisineType), strings.ToLower(c.Cuisine)) {
		return false
	}
	if c.Location != "" && !strings.Contains(strings.ToLower(r.Location), strings.ToLower(c.Location)) {
		return false
	}
	if len(c.Features) > 0 {
		have := make(map[string]bool, len(r.Features))
		for _, f := range r.Features {
			have[strings.ToLower(f)] = true
		}
		for _, f := range c.Features {
			if !have[strings.ToLower(f)] {
				return false
			}
		}
	}
	if c.PriceRange != "" && c.PriceRange != r.PriceRange {
		return false
	}
	if c.MinRating > 0 && r.Rating < c.MinRating {
		return false
	}
	if c.PartySize > 0 && c.PartySize > r.Capacity {
		return false
	}
	return true
}
