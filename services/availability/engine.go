package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	availabilityRepo "goodfoods/database/repository/availability"
	reservationRepo "goodfoods/database/repository/reservation"
	restaurantRepo "goodfoods/database/repository/restaurant"
	"goodfoods/models"
	"goodfoods/utils"

	"go.uber.org/zap"
)

// CodeIssuer produces a reservation code. It is invoked only on the commit
// path, after the capacity check has passed under the slot lock, so a code
// can never exist for a reservation that did not commit.
type CodeIssuer interface {
	Issue(ctx context.Context, restaurantID string) (string, error)
}

// Engine is the transactional availability core. Reserve and Cancel
// serialize per (restaurant, date, bucket) tuple; reads go through the
// bounded-staleness cache and never take tuple locks.
type Engine struct {
	Slots        availabilityRepo.AvailabilityRepository
	Restaurants  restaurantRepo.RestaurantRepository
	Reservations reservationRepo.ReservationRepository
	Cache        SlotCache
	Codes        CodeIssuer
	LockWait     time.Duration
	Logger       *zap.Logger

	locks *lockTable
}

// NewEngine wires an availability engine.
func NewEngine(
	slots availabilityRepo.AvailabilityRepository,
	restaurants restaurantRepo.RestaurantRepository,
	reservations reservationRepo.ReservationRepository,
	cache SlotCache,
	codes CodeIssuer,
	lockWait time.Duration,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		Slots:        slots,
		Restaurants:  restaurants,
		Reservations: reservations,
		Cache:        cache,
		Codes:        codes,
		LockWait:     lockWait,
		Logger:       logger,
		locks:        newLockTable(),
	}
}

const maxAlternatives = 10

// BucketForClock maps an "HH:MM" time into its containing bucket, in
// minutes from midnight.
func BucketForClock(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes - minutes%utils.BucketMinutes, nil
}

// CheckAvailability answers a read-only capacity question from the cache,
// refreshing from the authoritative store when the entry has aged out.
func (e *Engine) CheckAvailability(ctx context.Context, restaurantID, date, clock string, partySize int) (*models.AvailabilityResult, error) {
	bucket, err := BucketForClock(clock)
	if err != nil {
		return nil, err
	}

	restaurant, err := e.Restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	result := &models.AvailabilityResult{
		RestaurantID: restaurantID,
		Date:         date,
		Time:         clock,
	}

	if partySize > restaurant.Capacity {
		result.CapacityStatus = "party_too_large"
		return result, nil
	}

	slot, err := e.readSlot(ctx, restaurant, date, bucket)
	if err != nil {
		return nil, err
	}

	result.Remaining = slot.Remaining()
	if result.Remaining >= partySize {
		result.Available = true
		result.CapacityStatus = "available"
		return result, nil
	}

	result.CapacityStatus = "full"
	alts, err := e.alternatives(ctx, restaurant, date, partySize, bucket, false)
	if err != nil {
		return nil, err
	}
	result.Alternatives = alts
	return result, nil
}

// Reserve commits a reservation against the authoritative store. The
// cached view is never trusted for the decision: the slot is re-read under
// its lock, and the store's own capacity guard backs the check.
func (e *Engine) Reserve(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {
	bucket, err := BucketForClock(res.Time)
	if err != nil {
		return nil, err
	}

	restaurant, err := e.Restaurants.GetByID(ctx, res.RestaurantID)
	if err != nil {
		return nil, err
	}

	key := models.SlotKey(res.RestaurantID, res.Date, bucket)
	if err := e.acquire(ctx, key); err != nil {
		return nil, err
	}
	defer e.locks.release(key)

	slot, err := e.Slots.EnsureSlot(ctx, res.RestaurantID, res.Date, bucket, restaurant.Capacity)
	if err != nil {
		return nil, err
	}

	if slot.ReservedCount+res.PartySize > slot.TotalCapacity {
		return nil, e.capacityError(ctx, restaurant, res, slot.Remaining(), bucket)
	}

	code, err := e.Codes.Issue(ctx, res.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("issue reservation code: %w", err)
	}
	res.Code = code
	res.Status = models.ReservationConfirmed
	res.CreatedAt = time.Now()

	if err := e.Slots.CommitReserve(ctx, res, bucket); err != nil {
		if errors.Is(err, availabilityRepo.ErrCapacityRaced) {
			return nil, e.capacityError(ctx, restaurant, res, slot.Remaining(), bucket)
		}
		return nil, err
	}

	if err := e.Cache.Invalidate(ctx, key); err != nil {
		e.Logger.Warn("cache invalidation failed after reserve",
			zap.String("slotKey", key), zap.Error(err))
	}

	e.Logger.Info("reservation committed",
		zap.String("code", res.Code),
		zap.String("restaurantID", res.RestaurantID),
		zap.String("date", res.Date),
		zap.String("time", res.Time),
		zap.Int("partySize", res.PartySize))
	return res, nil
}

// Cancel releases a reservation's capacity and returns rebooking
// suggestions for the freed slot.
func (e *Engine) Cancel(ctx context.Context, code string) (*models.CancelResult, error) {
	res, err := e.Reservations.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !res.IsActive() {
		return nil, ErrNotFound
	}

	bucket, err := BucketForClock(res.Time)
	if err != nil {
		return nil, err
	}

	key := models.SlotKey(res.RestaurantID, res.Date, bucket)
	if err := e.acquire(ctx, key); err != nil {
		return nil, err
	}
	defer e.locks.release(key)

	if err := e.Slots.CommitCancel(ctx, res, bucket); err != nil {
		if errors.Is(err, availabilityRepo.ErrReservationNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := e.Cache.Invalidate(ctx, key); err != nil {
		e.Logger.Warn("cache invalidation failed after cancel",
			zap.String("slotKey", key), zap.Error(err))
	}

	e.Logger.Info("reservation cancelled",
		zap.String("code", res.Code),
		zap.String("restaurantID", res.RestaurantID))

	result := &models.CancelResult{Reservation: res}
	if restaurant, rerr := e.Restaurants.GetByID(ctx, res.RestaurantID); rerr == nil {
		// Freed capacity is offered back, including the slot just released.
		if alts, aerr := e.alternatives(ctx, restaurant, res.Date, res.PartySize, bucket, true); aerr == nil {
			result.RebookingSuggestions = alts
		}
	}
	return result, nil
}

// CancelByContact resolves the alternate lookup key (phone/email + date)
// to a single active reservation and cancels it.
func (e *Engine) CancelByContact(ctx context.Context, q reservationRepo.ContactLookup) (*models.CancelResult, error) {
	matches, err := e.Reservations.FindActiveByContact(ctx, q)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return e.Cancel(ctx, matches[0].Code)
	default:
		return nil, &AmbiguousCancelError{Candidates: matches}
	}
}

// acquire takes the tuple lock, retrying once with backoff before
// surfacing lock contention as a transient failure.
func (e *Engine) acquire(ctx context.Context, key string) error {
	err := e.locks.acquire(ctx, key, e.LockWait)
	if !errors.Is(err, ErrLockTimeout) {
		return err
	}

	backoff := time.NewTimer(e.LockWait / 4)
	defer backoff.Stop()
	select {
	case <-backoff.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return e.locks.acquire(ctx, key, e.LockWait)
}

// readSlot is the cache-first read path. A missing or expired entry is
// refreshed synchronously from the authoritative store; an unseeded tuple
// reads as an empty slot at the restaurant's full capacity.
func (e *Engine) readSlot(ctx context.Context, restaurant *models.Restaurant, date string, bucket int) (*models.AvailabilitySlot, error) {
	key := models.SlotKey(restaurant.ID, date, bucket)
	if cached, ok, err := e.Cache.Get(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		e.Logger.Warn("slot cache read failed, falling through to store",
			zap.String("slotKey", key), zap.Error(err))
	}

	slot, err := e.Slots.GetSlot(ctx, restaurant.ID, date, bucket)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		slot = &models.AvailabilitySlot{
			RestaurantID:  restaurant.ID,
			Date:          date,
			Bucket:        bucket,
			TotalCapacity: restaurant.Capacity,
		}
	}
	if err := e.Cache.Set(ctx, key, slot); err != nil {
		e.Logger.Warn("slot cache write failed", zap.String("slotKey", key), zap.Error(err))
	}
	return slot, nil
}

func (e *Engine) capacityError(ctx context.Context, restaurant *models.Restaurant, res *models.Reservation, remaining, bucket int) error {
	alts, err := e.alternatives(ctx, restaurant, res.Date, res.PartySize, bucket, false)
	if err != nil {
		e.Logger.Warn("failed to compute alternative slots",
			zap.String("restaurantID", restaurant.ID), zap.Error(err))
	}
	return &CapacityError{
		RestaurantID: res.RestaurantID,
		Date:         res.Date,
		Time:         res.Time,
		Requested:    res.PartySize,
		Remaining:    remaining,
		Alternatives: alts,
	}
}

// alternatives scans the restaurant's open buckets for the date against
// the authoritative day records and returns the nearest ones that fit the
// party, ordered by distance from the requested bucket.
func (e *Engine) alternatives(ctx context.Context, restaurant *models.Restaurant, date string, partySize, aroundBucket int, includeSelf bool) ([]models.AlternativeSlot, error) {
	day, err := e.Slots.GetDay(ctx, restaurant.ID, date)
	if err != nil {
		return nil, err
	}
	seeded := make(map[int]models.AvailabilitySlot, len(day))
	for _, s := range day {
		seeded[s.Bucket] = s
	}

	openMin, closeMin := openingWindow(restaurant, date)
	var out []models.AlternativeSlot
	for b := openMin; b < closeMin; b += utils.BucketMinutes {
		if b == aroundBucket && !includeSelf {
			continue
		}
		remaining := restaurant.Capacity
		if s, ok := seeded[b]; ok {
			remaining = s.Remaining()
		}
		if remaining >= partySize {
			out = append(out, models.AlternativeSlot{
				Time:      models.MinutesToClock(b),
				Bucket:    b,
				Remaining: remaining,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		di, dj := absDiff(out[i].Bucket, aroundBucket), absDiff(out[j].Bucket, aroundBucket)
		if di != dj {
			return di < dj
		}
		return out[i].Bucket < out[j].Bucket
	})
	if len(out) > maxAlternatives {
		out = out[:maxAlternatives]
	}
	return out, nil
}

// openingWindow returns the bookable bucket range for the date, falling
// back to 11:00-21:00 when the restaurant has no hours configured for the
// weekday.
func openingWindow(restaurant *models.Restaurant, date string) (int, int) {
	openMin, closeMin := 11*60, 21*60

	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return openMin, closeMin
	}
	hours, ok := restaurant.OpeningHours[strings.ToLower(d.Weekday().String())]
	if !ok {
		return openMin, closeMin
	}
	parts := strings.SplitN(hours, "-", 2)
	if len(parts) != 2 {
		return openMin, closeMin
	}
	if b, err := BucketForClock(strings.TrimSpace(parts[0])); err == nil {
		openMin = b
	}
	if b, err := BucketForClock(strings.TrimSpace(parts[1])); err == nil {
		closeMin = b
	}
	return openMin, closeMin
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
