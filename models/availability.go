package models

import "fmt"

// AvailabilitySlot is the authoritative capacity record for one
// (restaurant, date, time-bucket) tuple. Invariant: ReservedCount never
// exceeds TotalCapacity at any committed state.
type AvailabilitySlot struct {
	RestaurantID  string `bson:"restaurantId" json:"restaurantId"`
	Date          string `bson:"date" json:"date"`     // YYYY-MM-DD
	Bucket        int    `bson:"bucket" json:"bucket"` // minutes from midnight, bucket-aligned
	TotalCapacity int    `bson:"totalCapacity" json:"totalCapacity"`
	ReservedCount int    `bson:"reservedCount" json:"reservedCount"`
	Version       int    `bson:"version" json:"version"`
}

// Remaining returns the uncommitted capacity of the slot.
func (s AvailabilitySlot) Remaining() int {
	return s.TotalCapacity - s.ReservedCount
}

// SlotKey identifies one lockable availability tuple.
func SlotKey(restaurantID, date string, bucket int) string {
	return fmt.Sprintf("%s|%s|%d", restaurantID, date, bucket)
}

// MinutesToClock renders minutes-from-midnight as "HH:MM".
func MinutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// AlternativeSlot is an open bucket offered when the requested one cannot
// fit the party.
type AlternativeSlot struct {
	Time      string `json:"time"` // HH:MM
	Bucket    int    `json:"bucket"`
	Remaining int    `json:"remaining"`
}

// AvailabilityResult is the answer to a read-only availability check.
type AvailabilityResult struct {
	RestaurantID   string            `json:"restaurantId"`
	Date           string            `json:"date"`
	Time           string            `json:"time"`
	Available      bool              `json:"available"`
	CapacityStatus string            `json:"capacityStatus"` // e.g. "available", "full"
	Remaining      int               `json:"remaining"`
	Alternatives   []AlternativeSlot `json:"alternatives,omitempty"`
}
