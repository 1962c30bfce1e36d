package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	availabilityRepo "goodfoods/database/repository/availability"
	reservationRepo "goodfoods/database/repository/reservation"
	"goodfoods/models"

	"go.uber.org/zap"
)

// memStore is an in-memory stand-in for the mongo repositories. Its
// CommitReserve enforces the same capacity guard the conditional update
// does, so races surface exactly as they would against the real store.
type memStore struct {
	mu           sync.Mutex
	slots        map[string]*models.AvailabilitySlot
	reservations map[string]*models.Reservation
	seq          int64
}

func newMemStore() *memStore {
	return &memStore{
		slots:        make(map[string]*models.AvailabilitySlot),
		reservations: make(map[string]*models.Reservation),
	}
}

func (m *memStore) EnsureSlot(ctx context.Context, restaurantID, date string, bucket, totalCapacity int) (*models.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := models.SlotKey(restaurantID, date, bucket)
	slot, ok := m.slots[key]
	if !ok {
		slot = &models.AvailabilitySlot{
			RestaurantID: restaurantID, Date: date, Bucket: bucket,
			TotalCapacity: totalCapacity,
		}
		m.slots[key] = slot
	}
	cp := *slot
	return &cp, nil
}

func (m *memStore) GetSlot(ctx context.Context, restaurantID, date string, bucket int) (*models.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[models.SlotKey(restaurantID, date, bucket)]
	if !ok {
		return nil, nil
	}
	cp := *slot
	return &cp, nil
}

func (m *memStore) GetDay(ctx context.Context, restaurantID, date string) ([]models.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AvailabilitySlot
	for _, s := range m.slots {
		if s.RestaurantID == restaurantID && s.Date == date {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) CommitReserve(ctx context.Context, res *models.Reservation, bucket int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := models.SlotKey(res.RestaurantID, res.Date, bucket)
	slot, ok := m.slots[key]
	if !ok || slot.ReservedCount+res.PartySize > slot.TotalCapacity {
		return availabilityRepo.ErrCapacityRaced
	}
	slot.ReservedCount += res.PartySize
	slot.Version++
	cp := *res
	m.reservations[res.Code] = &cp
	return nil
}

func (m *memStore) CommitCancel(ctx context.Context, res *models.Reservation, bucket int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.reservations[res.Code]
	if !ok || !stored.IsActive() {
		return availabilityRepo.ErrReservationNotFound
	}
	now := time.Now()
	stored.Status = models.ReservationCancelled
	stored.CancelledAt = &now
	res.Status = models.ReservationCancelled
	res.CancelledAt = &now
	if slot, ok := m.slots[models.SlotKey(res.RestaurantID, res.Date, bucket)]; ok {
		slot.ReservedCount -= res.PartySize
		slot.Version++
	}
	return nil
}

func (m *memStore) GetByCode(ctx context.Context, code string) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[code]
	if !ok {
		return nil, reservationRepo.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (m *memStore) FindActiveByContact(ctx context.Context, q reservationRepo.ContactLookup) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, r := range m.reservations {
		if !r.IsActive() {
			continue
		}
		if q.Date != "" && r.Date != q.Date {
			continue
		}
		if (q.Phone != "" && r.CustomerPhone == q.Phone) || (q.Email != "" && r.CustomerEmail == q.Email) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) NextSequence(ctx context.Context, restaurantID string) (int64, error) {
	return atomic.AddInt64(&m.seq, 1), nil
}

func (m *memStore) MarkCompletedBefore(ctx context.Context, date string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.reservations {
		if r.Status == models.ReservationConfirmed && r.Date < date {
			r.Status = models.ReservationCompleted
			n++
		}
	}
	return n, nil
}

// recordingCache is a map cache that counts hits, misses, and writes.
type recordingCache struct {
	mu      sync.Mutex
	entries map[string]*models.AvailabilitySlot
	hits    int
	misses  int
	sets    int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]*models.AvailabilitySlot)}
}

func (c *recordingCache) Get(ctx context.Context, key string) (*models.AvailabilitySlot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false, nil
	}
	c.hits++
	cp := *slot
	return &cp, true, nil
}

func (c *recordingCache) Set(ctx context.Context, key string, slot *models.AvailabilitySlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *slot
	c.entries[key] = &cp
	c.sets++
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// agingCache ages entries against a manual clock. An entry older than the
// bound is a miss and is dropped, matching the TTL semantics of the redis
// cache.
type agingCache struct {
	mu      sync.Mutex
	bound   time.Duration
	now     time.Time
	stored  map[string]agingEntry
	misses  int
	refills int
}

type agingEntry struct {
	slot models.AvailabilitySlot
	at   time.Time
}

func newAgingCache(bound time.Duration) *agingCache {
	return &agingCache{
		bound:  bound,
		now:    time.Date(2026, 9, 12, 12, 0, 0, 0, time.UTC),
		stored: make(map[string]agingEntry),
	}
}

func (c *agingCache) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *agingCache) plant(key string, slot models.AvailabilitySlot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored[key] = agingEntry{slot: slot, at: c.now}
}

func (c *agingCache) Get(ctx context.Context, key string) (*models.AvailabilitySlot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.stored[key]
	if !ok || c.now.Sub(entry.at) > c.bound {
		delete(c.stored, key)
		c.misses++
		return nil, false, nil
	}
	cp := entry.slot
	return &cp, true, nil
}

func (c *agingCache) Set(ctx context.Context, key string, slot *models.AvailabilitySlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored[key] = agingEntry{slot: *slot, at: c.now}
	c.refills++
	return nil
}

func (c *agingCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.stored, k)
	}
	return nil
}

type fixedRestaurants struct {
	restaurant *models.Restaurant
}

func (f *fixedRestaurants) GetByID(ctx context.Context, id string) (*models.Restaurant, error) {
	cp := *f.restaurant
	return &cp, nil
}

func (f *fixedRestaurants) List(ctx context.Context) ([]models.Restaurant, error) {
	return []models.Restaurant{*f.restaurant}, nil
}

type seqCodes struct{ n int64 }

func (s *seqCodes) Issue(ctx context.Context, restaurantID string) (string, error) {
	return fmt.Sprintf("GF-TEST-%d", atomic.AddInt64(&s.n, 1)), nil
}

func testEngine(capacity int) (*Engine, *memStore, *recordingCache) {
	store := newMemStore()
	cache := newRecordingCache()
	restaurants := &fixedRestaurants{restaurant: &models.Restaurant{
		ID:       "rest_001",
		Name:     "Trattoria Nonna",
		Capacity: capacity,
	}}
	engine := NewEngine(store, restaurants, store, cache, &seqCodes{}, 100*time.Millisecond, zap.NewNop())
	return engine, store, cache
}

func makeReservation(party int, clock string) *models.Reservation {
	return &models.Reservation{
		RestaurantID:  "rest_001",
		CustomerName:  "Ada Lovelace",
		CustomerPhone: "415-867-5309",
		PartySize:     party,
		Date:          "2026-09-12",
		Time:          clock,
	}
}

func TestBucketForClock(t *testing.T) {
	cases := []struct {
		clock  string
		bucket int
		ok     bool
	}{
		{"19:00", 1140, true},
		{"19:07", 1140, true},
		{"19:15", 1155, true},
		{"00:00", 0, true},
		{"7pm", 0, false},
		{"25:00", 0, false},
	}
	for _, tc := range cases {
		got, err := BucketForClock(tc.clock)
		if tc.ok && (err != nil || got != tc.bucket) {
			t.Errorf("BucketForClock(%q) = %d, %v; want %d", tc.clock, got, err, tc.bucket)
		}
		if !tc.ok && err == nil {
			t.Errorf("BucketForClock(%q) succeeded; want error", tc.clock)
		}
	}
}

func TestReserveConcurrentNeverOverbooks(t *testing.T) {
	const capacity = 20
	engine, store, _ := testEngine(capacity)
	ctx := context.Background()

	const workers = 30
	const party = 2
	var wg sync.WaitGroup
	var committed, refused int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Reserve(ctx, makeReservation(party, "19:00"))
			switch {
			case err == nil:
				atomic.AddInt64(&committed, 1)
			default:
				var capErr *CapacityError
				if !errors.As(err, &capErr) {
					t.Errorf("unexpected reserve error: %v", err)
					return
				}
				atomic.AddInt64(&refused, 1)
			}
		}()
	}
	wg.Wait()

	if committed != capacity/party {
		t.Fatalf("committed %d reservations; want %d", committed, capacity/party)
	}
	if refused != workers-capacity/party {
		t.Fatalf("refused %d reservations; want %d", refused, workers-capacity/party)
	}

	bucket, _ := BucketForClock("19:00")
	slot, _ := store.GetSlot(ctx, "rest_001", "2026-09-12", bucket)
	if slot.ReservedCount != capacity {
		t.Fatalf("final ReservedCount = %d; want %d", slot.ReservedCount, capacity)
	}
	if slot.ReservedCount > slot.TotalCapacity {
		t.Fatalf("invariant violated: reserved %d > total %d", slot.ReservedCount, slot.TotalCapacity)
	}
}

func TestReserveFullOffersAlternatives(t *testing.T) {
	engine, _, _ := testEngine(4)
	ctx := context.Background()

	if _, err := engine.Reserve(ctx, makeReservation(4, "19:00")); err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}

	_, err := engine.Reserve(ctx, makeReservation(2, "19:00"))
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("second reserve error = %v; want CapacityError", err)
	}
	if len(capErr.Alternatives) == 0 {
		t.Fatal("capacity error carried no alternatives")
	}
	requested, _ := BucketForClock("19:00")
	for _, alt := range capErr.Alternatives {
		if alt.Bucket == requested {
			t.Errorf("alternatives include the full requested bucket %d", alt.Bucket)
		}
		if alt.Remaining < 2 {
			t.Errorf("alternative at %s cannot fit the party: remaining %d", alt.Time, alt.Remaining)
		}
	}
}

func TestReserveIssuesCodeOnlyOnCommit(t *testing.T) {
	engine, store, _ := testEngine(4)
	ctx := context.Background()

	res, err := engine.Reserve(ctx, makeReservation(2, "18:30"))
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if res.Code == "" || res.Status != models.ReservationConfirmed {
		t.Fatalf("committed reservation = %+v; want code and confirmed status", res)
	}
	if _, err := store.GetByCode(ctx, res.Code); err != nil {
		t.Fatalf("committed reservation not durable: %v", err)
	}

	// A refused reserve must not burn a durable code.
	_, err = engine.Reserve(ctx, makeReservation(4, "18:30"))
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("overflow reserve error = %v; want CapacityError", err)
	}
	store.mu.Lock()
	n := len(store.reservations)
	store.mu.Unlock()
	if n != 1 {
		t.Fatalf("store holds %d reservations; want 1", n)
	}
}

func TestCancelReleasesCapacityAndSuggestsRebooking(t *testing.T) {
	engine, store, _ := testEngine(4)
	ctx := context.Background()

	res, err := engine.Reserve(ctx, makeReservation(4, "20:00"))
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	result, err := engine.Cancel(ctx, res.Code)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if result.Reservation.Status != models.ReservationCancelled {
		t.Fatalf("cancelled reservation status = %q", result.Reservation.Status)
	}

	bucket, _ := BucketForClock("20:00")
	slot, _ := store.GetSlot(ctx, "rest_001", "2026-09-12", bucket)
	if slot.ReservedCount != 0 {
		t.Fatalf("capacity not released: ReservedCount = %d", slot.ReservedCount)
	}

	freed := false
	for _, alt := range result.RebookingSuggestions {
		if alt.Bucket == bucket {
			freed = true
		}
	}
	if !freed {
		t.Error("rebooking suggestions do not include the freed bucket")
	}

	// Second cancel of the same code finds nothing active.
	if _, err := engine.Cancel(ctx, res.Code); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double cancel error = %v; want ErrNotFound", err)
	}
}

func TestCancelUnknownCode(t *testing.T) {
	engine, _, _ := testEngine(4)
	if _, err := engine.Cancel(context.Background(), "GF-XXXX-999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancel unknown code error = %v; want ErrNotFound", err)
	}
}

func TestCancelCompletedReservationRefused(t *testing.T) {
	engine, store, _ := testEngine(10)
	ctx := context.Background()

	res, err := engine.Reserve(ctx, makeReservation(4, "19:00"))
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	// The nightly sweep has settled the reservation. It no longer holds
	// live capacity, so cancelling it must not decrement the bucket.
	store.mu.Lock()
	store.reservations[res.Code].Status = models.ReservationCompleted
	store.mu.Unlock()

	if _, err := engine.Cancel(ctx, res.Code); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancel of completed reservation error = %v; want ErrNotFound", err)
	}

	bucket, _ := BucketForClock("19:00")
	slot, _ := store.GetSlot(ctx, "rest_001", "2026-09-12", bucket)
	if slot.ReservedCount != 4 {
		t.Fatalf("ReservedCount = %d after refused cancel; want 4", slot.ReservedCount)
	}

	matches, err := store.FindActiveByContact(ctx, reservationRepo.ContactLookup{
		Phone: "415-867-5309", Date: "2026-09-12",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("completed reservation surfaced as a contact match: %d", len(matches))
	}
}

func TestCancelByContact(t *testing.T) {
	engine, _, _ := testEngine(10)
	ctx := context.Background()

	first, err := engine.Reserve(ctx, makeReservation(2, "18:00"))
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	result, err := engine.CancelByContact(ctx, reservationRepo.ContactLookup{
		Phone: "415-867-5309", Date: "2026-09-12",
	})
	if err != nil {
		t.Fatalf("cancel by contact failed: %v", err)
	}
	if result.Reservation.Code != first.Code {
		t.Fatalf("cancelled %s; want %s", result.Reservation.Code, first.Code)
	}

	// Two active reservations under the same contact require a code.
	if _, err := engine.Reserve(ctx, makeReservation(2, "18:00")); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if _, err := engine.Reserve(ctx, makeReservation(2, "19:30")); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	_, err = engine.CancelByContact(ctx, reservationRepo.ContactLookup{
		Phone: "415-867-5309", Date: "2026-09-12",
	})
	var ambiguous *AmbiguousCancelError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("ambiguous cancel error = %v; want AmbiguousCancelError", err)
	}
	if len(ambiguous.Candidates) != 2 {
		t.Fatalf("ambiguous candidates = %d; want 2", len(ambiguous.Candidates))
	}
}

func TestCheckAvailabilityRefreshesOnMiss(t *testing.T) {
	engine, _, cache := testEngine(10)
	ctx := context.Background()

	if _, err := engine.Reserve(ctx, makeReservation(4, "19:00")); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	// The commit invalidated the cached entry, so the next read must
	// refresh from the authoritative store.
	result, err := engine.CheckAvailability(ctx, "rest_001", "2026-09-12", "19:00", 2)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !result.Available || result.Remaining != 6 {
		t.Fatalf("result = %+v; want available with remaining 6", result)
	}
	if cache.sets == 0 {
		t.Error("refresh did not repopulate the cache")
	}

	// A second read within the staleness window is served from cache.
	before := cache.hits
	if _, err := engine.CheckAvailability(ctx, "rest_001", "2026-09-12", "19:00", 2); err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if cache.hits != before+1 {
		t.Errorf("second read missed the cache: hits %d -> %d", before, cache.hits)
	}
}

func TestCheckAvailabilityStaleEntryAgesOut(t *testing.T) {
	store := newMemStore()
	cache := newAgingCache(5 * time.Second)
	restaurants := &fixedRestaurants{restaurant: &models.Restaurant{
		ID:       "rest_001",
		Name:     "Trattoria Nonna",
		Capacity: 10,
	}}
	engine := NewEngine(store, restaurants, store, cache, &seqCodes{}, 100*time.Millisecond, zap.NewNop())
	ctx := context.Background()

	if _, err := engine.Reserve(ctx, makeReservation(4, "19:00")); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	// Plant an entry that predates the commit: it still shows the bucket
	// empty. Within the bound, reads may serve it as-is.
	bucket, _ := BucketForClock("19:00")
	key := models.SlotKey("rest_001", "2026-09-12", bucket)
	cache.plant(key, models.AvailabilitySlot{
		RestaurantID: "rest_001", Date: "2026-09-12", Bucket: bucket,
		TotalCapacity: 10,
	})

	result, err := engine.CheckAvailability(ctx, "rest_001", "2026-09-12", "19:00", 2)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if result.Remaining != 10 {
		t.Fatalf("within the bound remaining = %d; want the stale 10", result.Remaining)
	}

	// Past the bound the entry is a miss: the read must refresh from the
	// authoritative store and see the committed reservation.
	cache.advance(6 * time.Second)
	result, err = engine.CheckAvailability(ctx, "rest_001", "2026-09-12", "19:00", 2)
	if err != nil {
		t.Fatalf("check after expiry failed: %v", err)
	}
	if result.Remaining != 6 {
		t.Fatalf("after expiry remaining = %d; want the authoritative 6", result.Remaining)
	}
	if cache.misses == 0 {
		t.Error("expired entry was not treated as a miss")
	}
	if cache.refills == 0 {
		t.Error("refresh did not repopulate the cache")
	}

	// The refreshed entry serves subsequent reads until it ages out again.
	misses := cache.misses
	result, err = engine.CheckAvailability(ctx, "rest_001", "2026-09-12", "19:00", 2)
	if err != nil {
		t.Fatalf("follow-up check failed: %v", err)
	}
	if result.Remaining != 6 || cache.misses != misses {
		t.Fatalf("follow-up read missed the refreshed entry: remaining=%d misses=%d",
			result.Remaining, cache.misses)
	}
}

func TestCheckAvailabilityPartyTooLarge(t *testing.T) {
	engine, _, _ := testEngine(8)
	result, err := engine.CheckAvailability(context.Background(), "rest_001", "2026-09-12", "19:00", 9)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if result.Available || result.CapacityStatus != "party_too_large" {
		t.Fatalf("result = %+v; want party_too_large", result)
	}
}

func TestReserveLockTimeout(t *testing.T) {
	engine, _, _ := testEngine(10)
	engine.LockWait = 10 * time.Millisecond

	bucket, _ := BucketForClock("19:00")
	key := models.SlotKey("rest_001", "2026-09-12", bucket)

	// Hold the tuple lock so the reserve's bounded wait (and its single
	// retry) both expire.
	if err := engine.locks.acquire(context.Background(), key, time.Second); err != nil {
		t.Fatalf("failed to seize lock: %v", err)
	}
	defer engine.locks.release(key)

	_, err := engine.Reserve(context.Background(), makeReservation(2, "19:00"))
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("reserve error = %v; want ErrLockTimeout", err)
	}
}
