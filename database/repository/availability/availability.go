package availabilityRepo

import (
	"context"
	"errors"

	"goodfoods/models"
)

// ErrCapacityRaced is returned when the conditional commit matched no slot,
// meaning the capacity guard failed at write time.
var ErrCapacityRaced = errors.New("slot capacity exhausted at commit")

// ErrReservationNotFound is returned when a cancel targets a code with no
// active reservation.
var ErrReservationNotFound = errors.New("active reservation not found")

// AvailabilityRepository is the authoritative store for per-bucket capacity.
// Commits are all-or-nothing: the reservation write and the counter update
// happen in one transaction, guarded by a capacity filter.
type AvailabilityRepository interface {
	// EnsureSlot upserts the slot document, seeding TotalCapacity on first
	// sight of the tuple, and returns the authoritative record.
	EnsureSlot(ctx context.Context, restaurantID, date string, bucket, totalCapacity int) (*models.AvailabilitySlot, error)
	// GetSlot returns the authoritative record, or nil if the tuple has
	// never been seeded.
	GetSlot(ctx context.Context, restaurantID, date string, bucket int) (*models.AvailabilitySlot, error)
	// GetDay returns every seeded slot for the restaurant on the date.
	GetDay(ctx context.Context, restaurantID, date string) ([]models.AvailabilitySlot, error)
	// CommitReserve atomically inserts the reservation and increments
	// ReservedCount, refusing if the increment would exceed TotalCapacity.
	CommitReserve(ctx context.Context, res *models.Reservation, bucket int) error
	// CommitCancel atomically marks the reservation cancelled and releases
	// its units from the bucket.
	CommitCancel(ctx context.Context, res *models.Reservation, bucket int) error
}
