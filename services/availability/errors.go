package availability

import (
	"errors"
	"fmt"

	"goodfoods/models"
)

// ErrLockTimeout is returned when a reserve/cancel could not take its
// per-slot lock within the configured wait, after one retry.
var ErrLockTimeout = errors.New("timed out waiting for slot lock")

// ErrNotFound is returned when a cancel or lookup targets no active
// reservation.
var ErrNotFound = errors.New("no active reservation found")

// CapacityError reports that the authoritative check refused a commit. It
// carries the nearest open slots so the caller can offer them instead of
// silently substituting one.
type CapacityError struct {
	RestaurantID string
	Date         string
	Time         string
	Requested    int
	Remaining    int
	Alternatives []models.AlternativeSlot
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity at %s on %s %s: requested %d, remaining %d",
		e.RestaurantID, e.Date, e.Time, e.Requested, e.Remaining)
}

// AmbiguousCancelError reports a contact lookup that matched more than one
// active reservation; the caller must disambiguate by code.
type AmbiguousCancelError struct {
	Candidates []models.Reservation
}

func (e *AmbiguousCancelError) Error() string {
	return fmt.Sprintf("%d active reservations match; specify a reservation code", len(e.Candidates))
}
