package idempotencyRepo

import (
	"context"
	"errors"
	"time"

	"goodfoods/models"
)

// ErrTokenNotFound is returned when a commit token was never confirmed or
// has been purged.
var ErrTokenNotFound = errors.New("commit token not found")

// Record statuses.
const (
	StatusPending = "pending"
	StatusApplied = "applied"
)

// Record binds a confirmed SlotSet to at most one durable reservation write.
type Record struct {
	Token           string         `bson:"_id" json:"token"`
	SessionID       string         `bson:"sessionId" json:"sessionId"`
	Slots           models.SlotSet `bson:"slots" json:"slots"`
	Status          string         `bson:"status" json:"status"`
	ReservationCode string         `bson:"reservationCode,omitempty" json:"reservationCode,omitempty"`
	CreatedAt       time.Time      `bson:"createdAt" json:"createdAt"`
	AppliedAt       *time.Time     `bson:"appliedAt,omitempty" json:"appliedAt,omitempty"`
}

// IdempotencyRepository persists commit tokens so a retried commit never
// creates a second reservation.
type IdempotencyRepository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, token string) (*Record, error)
	// MarkApplied records the reservation code against the token; only a
	// pending record can be marked, so concurrent commits settle on one.
	MarkApplied(ctx context.Context, token, reservationCode string) error
}
