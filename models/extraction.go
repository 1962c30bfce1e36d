package models

// Extraction is the raw output of the language-model oracle for one
// utterance. Nothing in it is trusted until it passes normalization.
type Extraction struct {
	Intent Intent              `json:"intent"`
	Slots  map[SlotName]string `json:"slots,omitempty"`
}

// RestaurantHit is one ranked search result.
type RestaurantHit struct {
	RestaurantID string  `json:"restaurantId"`
	Name         string  `json:"name"`
	CuisineType  string  `json:"cuisineType"`
	Location     string  `json:"location"`
	PriceRange   string  `json:"priceRange"`
	Rating       float64 `json:"rating"`
	Available    bool    `json:"available"`
}

// CancelResult is the outcome of a cancellation, including freed capacity
// offered back as rebooking suggestions.
type CancelResult struct {
	Reservation          *Reservation      `json:"reservation"`
	RebookingSuggestions []AlternativeSlot `json:"rebookingSuggestions,omitempty"`
}

// ToolResult is the envelope the dispatcher returns to the dialogue layer.
type ToolResult struct {
	Tool         string              `json:"tool"`
	Hits         []RestaurantHit     `json:"hits,omitempty"`
	Availability *AvailabilityResult `json:"availability,omitempty"`
	Reservation  *Reservation        `json:"reservation,omitempty"`
	Cancel       *CancelResult       `json:"cancel,omitempty"`
	CommitToken  string              `json:"commitToken,omitempty"`
}
