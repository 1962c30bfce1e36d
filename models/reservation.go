package models

import "time"

// Reservation statuses.
const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
	ReservationCompleted = "completed"
)

// Reservation represents a committed booking record. Code doubles as the
// primary identifier and the human-shareable confirmation code; it is
// issued only at commit time.
type Reservation struct {
	Code            string     `bson:"code" json:"code"`
	RestaurantID    string     `bson:"restaurantId" json:"restaurantId"`
	CustomerName    string     `bson:"customerName" json:"customerName"`
	CustomerPhone   string     `bson:"customerPhone,omitempty" json:"customerPhone,omitempty"`
	CustomerEmail   string     `bson:"customerEmail,omitempty" json:"customerEmail,omitempty"`
	PartySize       int        `bson:"partySize" json:"partySize"`
	Date            string     `bson:"date" json:"date"` // YYYY-MM-DD
	Time            string     `bson:"time" json:"time"` // HH:MM, 24-hour
	SpecialRequests string     `bson:"specialRequests,omitempty" json:"specialRequests,omitempty"`
	Status          string     `bson:"status" json:"status"`
	CreatedAt       time.Time  `bson:"createdAt" json:"createdAt"`
	CancelledAt     *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
}

// IsActive reports whether the reservation still holds live capacity. A
// completed reservation is settled history: it can no longer be cancelled
// and is not a contact-lookup candidate.
func (r Reservation) IsActive() bool {
	return r.Status == ReservationPending || r.Status == ReservationConfirmed
}
