package reservationRepo

import (
	"context"
	"errors"

	"goodfoods/models"
)

// ErrNotFound is returned when no reservation matches the lookup.
var ErrNotFound = errors.New("reservation not found")

// ContactLookup identifies reservations by customer contact when the code
// is unknown. Phone or Email plus Date form the alternate key.
type ContactLookup struct {
	Phone string
	Email string
	Date  string
}

// ReservationRepository reads committed reservations and hands out the
// per-restaurant sequence used for confirmation codes. Writes go through
// the availability repository's transactional commits.
type ReservationRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Reservation, error)
	FindActiveByContact(ctx context.Context, q ContactLookup) ([]models.Reservation, error)
	// NextSequence atomically increments and returns the restaurant's
	// reservation counter.
	NextSequence(ctx context.Context, restaurantID string) (int64, error)
	// MarkCompletedBefore flips confirmed reservations dated strictly
	// before the given day to completed. Used by the nightly sweeper.
	MarkCompletedBefore(ctx context.Context, date string) (int64, error)
}
