// File: services/agent/confirmation.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"goodfoods/config"
	idempotencyRepo "goodfoods/database/repository/idempotency"
	reservationRepo "goodfoods/database/repository/reservation"
	"goodfoods/models"
	"goodfoods/services/availability"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrTokenExpired is returned when a commit arrives after the token's
// holding window. The user has to re-confirm; nothing was committed.
var ErrTokenExpired = errors.New("commit token expired")

// CommitToken derives the idempotency token for a confirmed slot set. The
// derivation is deterministic over session and content, so a retried
// confirm for the same recap lands on the same token and a changed slot
// set gets a fresh one.
func CommitToken(sessionID string, slots models.SlotSet) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sessionID+"|"+canonicalSlots(slots))).String()
}

func canonicalSlots(slots models.SlotSet) string {
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, string(name))
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+slots[models.SlotName(name)].Value)
	}
	return strings.Join(parts, ";")
}

// Confirmer runs the two-phase booking commit: Confirm stages a token
// against the recapped slot set, Commit applies it exactly once.
type Confirmer struct {
	Engine       *availability.Engine
	Tokens       idempotencyRepo.IdempotencyRepository
	Reservations reservationRepo.ReservationRepository
	Logger       *zap.Logger
}

// NewConfirmer wires a confirmer.
func NewConfirmer(
	engine *availability.Engine,
	tokens idempotencyRepo.IdempotencyRepository,
	reservations reservationRepo.ReservationRepository,
	logger *zap.Logger,
) *Confirmer {
	return &Confirmer{Engine: engine, Tokens: tokens, Reservations: reservations, Logger: logger}
}

// Confirm stages a commit token for the confirmed slot set. Re-confirming
// the same recap is a no-op that returns the same token.
func (c *Confirmer) Confirm(ctx context.Context, sessionID string, slots models.SlotSet) (string, error) {
	token := CommitToken(sessionID, slots)
	rec := &idempotencyRepo.Record{
		Token:     token,
		SessionID: sessionID,
		Slots:     slots.Clone(),
		Status:    idempotencyRepo.StatusPending,
		CreatedAt: time.Now(),
	}
	if err := c.Tokens.Create(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Same session, same recap: the earlier token still stands.
			return token, nil
		}
		return "", err
	}
	return token, nil
}

// Commit applies a staged token. Replays return the original reservation;
// concurrent commits of the same token settle on exactly one durable write.
func (c *Confirmer) Commit(ctx context.Context, token string) (*models.Reservation, error) {
	rec, err := c.Tokens.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec.Status == idempotencyRepo.StatusApplied {
		return c.Reservations.GetByCode(ctx, rec.ReservationCode)
	}
	if time.Since(rec.CreatedAt) > config.CommitTokenTTL() {
		return nil, ErrTokenExpired
	}

	res, err := reservationFromSlots(rec.Slots)
	if err != nil {
		return nil, err
	}

	committed, err := c.Engine.Reserve(ctx, res)
	if err != nil {
		return nil, err
	}

	if err := c.Tokens.MarkApplied(ctx, token, committed.Code); err != nil {
		if errors.Is(err, idempotencyRepo.ErrTokenNotFound) {
			// A concurrent commit of the same token won the mark. Release
			// our write and hand back the winner's reservation.
			return c.yieldToWinner(ctx, token, committed)
		}
		// The reservation is durable but the token is still pending, so a
		// retry of this token would book again. Release the reservation
		// before surfacing the failure; the retry then starts clean.
		c.releaseUnmarked(token, committed)
		return nil, fmt.Errorf("mark commit token applied: %w", err)
	}
	return committed, nil
}

// releaseUnmarked compensates for a commit whose token mark failed. It
// runs on a detached context: the caller's deadline may already be spent,
// and leaving the reservation standing would let a retry double-book.
func (c *Confirmer) releaseUnmarked(token string, res *models.Reservation) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.Logger.Warn("token mark failed after commit, releasing reservation",
		zap.String("token", token),
		zap.String("code", res.Code))
	if _, err := c.Engine.Cancel(ctx, res.Code); err != nil {
		c.Logger.Error("failed to release reservation with unmarked token",
			zap.String("token", token),
			zap.String("code", res.Code),
			zap.Error(err))
	}
}

func (c *Confirmer) yieldToWinner(ctx context.Context, token string, loser *models.Reservation) (*models.Reservation, error) {
	c.Logger.Warn("concurrent commit detected, releasing duplicate reservation",
		zap.String("token", token),
		zap.String("duplicateCode", loser.Code))
	if _, err := c.Engine.Cancel(ctx, loser.Code); err != nil {
		c.Logger.Error("failed to release duplicate reservation",
			zap.String("code", loser.Code), zap.Error(err))
	}
	rec, err := c.Tokens.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.Reservations.GetByCode(ctx, rec.ReservationCode)
}

// reservationFromSlots materializes a reservation from a confirmed slot
// set. Fields were format-validated at merge time; the party size parse
// here is a re-read of canonical data, not a second validation.
func reservationFromSlots(slots models.SlotSet) (*models.Reservation, error) {
	party, err := strconv.Atoi(slots.Get(models.SlotPartySize))
	if err != nil {
		return nil, fmt.Errorf("malformed party size in confirmed slots: %w", err)
	}
	return &models.Reservation{
		RestaurantID:    slots.Get(models.SlotRestaurantID),
		CustomerName:    slots.Get(models.SlotCustomerName),
		CustomerPhone:   slots.Get(models.SlotPhone),
		CustomerEmail:   slots.Get(models.SlotEmail),
		PartySize:       party,
		Date:            slots.Get(models.SlotDate),
		Time:            slots.Get(models.SlotTime),
		SpecialRequests: slots.Get(models.SlotSpecialRequests),
		Status:          models.ReservationPending,
	}, nil
}
