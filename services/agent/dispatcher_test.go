package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"goodfoods/config"
	"goodfoods/models"
)

func TestDispatchBookBlockedUntilConfirmed(t *testing.T) {
	f := newFixture()
	slots := confirmedBookSlots()
	slots[models.SlotTime] = models.SlotField{Value: "19:00", Status: models.FieldFilled}

	_, err := f.dispatcher.Dispatch(context.Background(), bookSession(slots))
	var notReady *NotReadyError
	if !errors.As(err, &notReady) || !notReady.Unconfirmed {
		t.Fatalf("dispatch error = %v; want NotReadyError{Unconfirmed}", err)
	}
}

func TestDispatchBookMissingFields(t *testing.T) {
	f := newFixture()
	slots := confirmedBookSlots()
	delete(slots, models.SlotDate)

	_, err := f.dispatcher.Dispatch(context.Background(), bookSession(slots))
	var notReady *NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("dispatch error = %v; want NotReadyError", err)
	}
	found := false
	for _, name := range notReady.Missing {
		if name == models.SlotDate {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing = %v; want date", notReady.Missing)
	}
}

func TestDispatchBookCommitsOnceAcrossRetries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	session := bookSession(confirmedBookSlots())

	first, err := f.dispatcher.Dispatch(ctx, session)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if first.Tool != "book_reservation" || first.Reservation == nil || first.CommitToken == "" {
		t.Fatalf("result = %+v; want a committed booking with its token", first)
	}

	// A retried dispatch of the same session lands on the same token and
	// therefore the same reservation.
	retry, err := f.dispatcher.Dispatch(ctx, session)
	if err != nil {
		t.Fatalf("retry dispatch failed: %v", err)
	}
	if retry.Reservation.Code != first.Reservation.Code {
		t.Fatalf("retry committed %s; want %s", retry.Reservation.Code, first.Reservation.Code)
	}
	f.backend.mu.Lock()
	count := len(f.backend.reservations)
	f.backend.mu.Unlock()
	if count != 1 {
		t.Fatalf("store holds %d reservations; want 1", count)
	}
}

func TestDispatchSearchUsesQueryAndSlots(t *testing.T) {
	f := newFixture()
	session := &models.ConversationSession{
		SessionID: "s1",
		State:     models.StateReady,
		Intent:    models.IntentSearch,
		Turns: []models.Turn{
			{Role: "user", Text: "find me an italian place downtown", At: time.Now()},
		},
		Slots: models.SlotSet{
			models.SlotPartySize: {Value: "2", Status: models.FieldFilled},
		},
	}

	result, err := f.dispatcher.Dispatch(context.Background(), session)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Tool != "search_restaurants" {
		t.Fatalf("tool = %s", result.Tool)
	}
	if len(result.Hits) != 1 || result.Hits[0].RestaurantID != "rest_001" {
		t.Fatalf("hits = %+v; want only the downtown italian", result.Hits)
	}
}

func TestDispatchAvailability(t *testing.T) {
	f := newFixture()
	session := &models.ConversationSession{
		SessionID: "s1",
		State:     models.StateReady,
		Intent:    models.IntentCheckAvailability,
		Slots: models.SlotSet{
			models.SlotRestaurantID: {Value: "rest_001", Status: models.FieldFilled},
			models.SlotDate:         {Value: "2026-09-12", Status: models.FieldFilled},
			models.SlotTime:         {Value: "19:00", Status: models.FieldFilled},
			models.SlotPartySize:    {Value: "2", Status: models.FieldFilled},
		},
	}

	result, err := f.dispatcher.Dispatch(context.Background(), session)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Availability == nil || !result.Availability.Available {
		t.Fatalf("availability = %+v; want available", result.Availability)
	}
}

func TestDispatchAvailabilityBudgetOverrun(t *testing.T) {
	f := newFixture()
	f.backend.slotReadDelay = 50 * time.Millisecond

	old := config.AppConfig.AvailabilityBudgetMS
	config.AppConfig.AvailabilityBudgetMS = 5
	defer func() { config.AppConfig.AvailabilityBudgetMS = old }()

	session := &models.ConversationSession{
		SessionID: "s1",
		State:     models.StateReady,
		Intent:    models.IntentCheckAvailability,
		Slots: models.SlotSet{
			models.SlotRestaurantID: {Value: "rest_001", Status: models.FieldFilled},
			models.SlotDate:         {Value: "2026-09-12", Status: models.FieldFilled},
			models.SlotTime:         {Value: "19:00", Status: models.FieldFilled},
			models.SlotPartySize:    {Value: "2", Status: models.FieldFilled},
		},
	}

	_, err := f.dispatcher.Dispatch(context.Background(), session)
	if !errors.Is(err, ErrToolTimeout) {
		t.Fatalf("dispatch error = %v; want ErrToolTimeout", err)
	}
}

func TestDispatchCancelByCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.engine.Reserve(ctx, &models.Reservation{
		RestaurantID: "rest_001", CustomerName: "Ada Lovelace",
		CustomerPhone: "415-867-5309", PartySize: 2,
		Date: "2026-09-12", Time: "19:00",
	})
	if err != nil {
		t.Fatalf("seed reserve failed: %v", err)
	}

	session := &models.ConversationSession{
		SessionID: "s1",
		State:     models.StateReady,
		Intent:    models.IntentCancel,
		Slots: models.SlotSet{
			models.SlotReservationID: {Value: res.Code, Status: models.FieldFilled},
		},
	}
	result, err := f.dispatcher.Dispatch(ctx, session)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Tool != "cancel_reservation" || result.Cancel == nil {
		t.Fatalf("result = %+v", result)
	}
	if result.Cancel.Reservation.Status != models.ReservationCancelled {
		t.Fatalf("status = %s; want cancelled", result.Cancel.Reservation.Status)
	}
}

func TestDispatchNoToolForSmallTalk(t *testing.T) {
	f := newFixture()
	session := &models.ConversationSession{
		SessionID: "s1",
		State:     models.StateCollecting,
		Intent:    models.IntentOther,
	}
	result, err := f.dispatcher.Dispatch(context.Background(), session)
	if err != nil || result != nil {
		t.Fatalf("dispatch = %v, %v; want nil, nil", result, err)
	}
}
