package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"goodfoods/config"
	availabilityRepo "goodfoods/database/repository/availability"
	idempotencyRepo "goodfoods/database/repository/idempotency"
	reservationRepo "goodfoods/database/repository/reservation"
	"goodfoods/models"
	"goodfoods/services/availability"
	"goodfoods/services/search"

	"go.uber.org/zap"
)

func init() {
	config.AppConfig.SearchBudgetMS = 500
	config.AppConfig.AvailabilityBudgetMS = 300
	config.AppConfig.BookingBudgetMS = 800
	config.AppConfig.CancelBudgetMS = 400
	config.AppConfig.CommitTokenTTLMin = 15
}

// memBackend is an in-memory stand-in for every repository the agent
// touches. Its conditional writes mirror the mongo guards.
type memBackend struct {
	mu           sync.Mutex
	restaurants  []models.Restaurant
	slots        map[string]*models.AvailabilitySlot
	reservations map[string]*models.Reservation
	tokens       map[string]*idempotencyRepo.Record
	seq          int64

	// slotReadDelay slows authoritative slot reads to exercise budgets.
	slotReadDelay time.Duration
	// failMarkApplied makes the next N MarkApplied calls fail with a
	// transient error.
	failMarkApplied int
}

func newMemBackend() *memBackend {
	return &memBackend{
		restaurants: []models.Restaurant{
			{ID: "rest_001", Name: "Trattoria Nonna", CuisineType: "italian", Location: "downtown", PriceRange: "$$", Rating: 4.6, Capacity: 20},
			{ID: "rest_002", Name: "Baan Suan", CuisineType: "thai", Location: "uptown", PriceRange: "$", Rating: 4.2, Capacity: 12},
		},
		slots:        make(map[string]*models.AvailabilitySlot),
		reservations: make(map[string]*models.Reservation),
		tokens:       make(map[string]*idempotencyRepo.Record),
	}
}

func (m *memBackend) GetByID(ctx context.Context, id string) (*models.Restaurant, error) {
	for i := range m.restaurants {
		if m.restaurants[i].ID == id {
			cp := m.restaurants[i]
			return &cp, nil
		}
	}
	return nil, availability.ErrNotFound
}

func (m *memBackend) List(ctx context.Context) ([]models.Restaurant, error) {
	out := make([]models.Restaurant, len(m.restaurants))
	copy(out, m.restaurants)
	return out, nil
}

func (m *memBackend) EnsureSlot(ctx context.Context, restaurantID, date string, bucket, totalCapacity int) (*models.AvailabilitySlot, error) {
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

func (m *memBackend) GetSlot(ctx context.Context, restaurantID, date string, bucket int) (*models.AvailabilitySlot, error) {
	if m.slotReadDelay > 0 {
		select {
		case <-time.After(m.slotReadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[models.SlotKey(restaurantID, date, bucket)]
	if !ok {
		return nil, nil
	}
	cp := *slot
	return &cp, nil
}

func (m *memBackend) GetDay(ctx context.Context, restaurantID, date string) ([]models.AvailabilitySlot, error) {
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

func (m *memBackend) CommitReserve(ctx context.Context, res *models.Reservation, bucket int) error {
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

func (m *memBackend) CommitCancel(ctx context.Context, res *models.Reservation, bucket int) error {
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

func (m *memBackend) GetByCode(ctx context.Context, code string) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[code]
	if !ok {
		return nil, reservationRepo.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (m *memBackend) FindActiveByContact(ctx context.Context, q reservationRepo.ContactLookup) ([]models.Reservation, error) {
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

func (m *memBackend) NextSequence(ctx context.Context, restaurantID string) (int64, error) {
	return atomic.AddInt64(&m.seq, 1), nil
}

func (m *memBackend) MarkCompletedBefore(ctx context.Context, date string) (int64, error) {
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

func (m *memBackend) Create(ctx context.Context, rec *idempotencyRepo.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tokens[rec.Token]; exists {
		return nil
	}
	cp := *rec
	m.tokens[rec.Token] = &cp
	return nil
}

func (m *memBackend) Get(ctx context.Context, token string) (*idempotencyRepo.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tokens[token]
	if !ok {
		return nil, idempotencyRepo.ErrTokenNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memBackend) MarkApplied(ctx context.Context, token, reservationCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMarkApplied > 0 {
		m.failMarkApplied--
		return errors.New("transient write failure")
	}
	rec, ok := m.tokens[token]
	if !ok || rec.Status != idempotencyRepo.StatusPending {
		return idempotencyRepo.ErrTokenNotFound
	}
	now := time.Now()
	rec.Status = idempotencyRepo.StatusApplied
	rec.ReservationCode = reservationCode
	rec.AppliedAt = &now
	return nil
}

// nullCache always misses, so engine reads hit the backend directly.
type nullCache struct{}

func (nullCache) Get(ctx context.Context, key string) (*models.AvailabilitySlot, bool, error) {
	return nil, false, nil
}
func (nullCache) Set(ctx context.Context, key string, slot *models.AvailabilitySlot) error {
	return nil
}
func (nullCache) Invalidate(ctx context.Context, keys ...string) error { return nil }

type fixture struct {
	backend    *memBackend
	engine     *availability.Engine
	confirmer  *Confirmer
	dispatcher *Dispatcher
}

func newFixture() *fixture {
	backend := newMemBackend()
	logger := zap.NewNop()
	engine := availability.NewEngine(
		backend, backend, backend, nullCache{},
		&SequenceCodeIssuer{Reservations: backend},
		100*time.Millisecond, logger,
	)
	confirmer := NewConfirmer(engine, backend, backend, logger)
	searchSvc := search.NewService(backend, engine, logger)
	return &fixture{
		backend:    backend,
		engine:     engine,
		confirmer:  confirmer,
		dispatcher: NewDispatcher(searchSvc, engine, confirmer, logger),
	}
}

func confirmedBookSlots() models.SlotSet {
	return models.SlotSet{
		models.SlotRestaurantID: {Value: "rest_001", Status: models.FieldConfirmed},
		models.SlotDate:         {Value: "2026-09-12", Status: models.FieldConfirmed},
		models.SlotTime:         {Value: "19:00", Status: models.FieldConfirmed},
		models.SlotPartySize:    {Value: "4", Status: models.FieldConfirmed},
		models.SlotCustomerName: {Value: "Ada Lovelace", Status: models.FieldConfirmed},
		models.SlotPhone:        {Value: "415-867-5309", Status: models.FieldConfirmed},
	}
}

func bookSession(slots models.SlotSet) *models.ConversationSession {
	return &models.ConversationSession{
		SessionID: "s1",
		State:     models.StateReady,
		Intent:    models.IntentBook,
		Slots:     slots,
	}
}
