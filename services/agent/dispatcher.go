// File: services/agent/dispatcher.go
package agent

import (
	"context"
	"errors"
	"strconv"
	"time"

	"goodfoods/config"
	reservationRepo "goodfoods/database/repository/reservation"
	"goodfoods/models"
	"goodfoods/services/availability"
	"goodfoods/services/dialogue"
	"goodfoods/services/search"

	"go.uber.org/zap"
)

// Dispatcher routes a ready conversation to exactly one tool per turn,
// under that tool's latency budget. It never runs a tool for a session
// whose required fields are not filled, and never books without an
// explicit user confirmation upstream.
type Dispatcher struct {
	Search    *search.Service
	Engine    *availability.Engine
	Confirmer *Confirmer
	Logger    *zap.Logger
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(searchSvc *search.Service, engine *availability.Engine, confirmer *Confirmer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{Search: searchSvc, Engine: engine, Confirmer: confirmer, Logger: logger}
}

// Dispatch runs the tool for the session's intent. Intents with no tool
// (affirm, other) return a nil result and no error. A budget overrun
// surfaces as ErrToolTimeout with nothing committed.
func (d *Dispatcher) Dispatch(ctx context.Context, session *models.ConversationSession) (*models.ToolResult, error) {
	start := time.Now()
	result, err := d.dispatch(ctx, session)

	tool := "none"
	if result != nil {
		tool = result.Tool
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		var nre *NotReadyError
		if errors.As(err, &nre) {
			outcome = "not_ready"
		} else if errors.Is(err, ErrToolTimeout) {
			outcome = "timeout"
		}
	case result == nil:
		outcome = "no_tool"
	}
	d.Logger.Info("tool dispatch",
		zap.String("sessionID", session.SessionID),
		zap.String("intent", string(session.Intent)),
		zap.String("tool", tool),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", time.Since(start)))
	return result, err
}

func (d *Dispatcher) dispatch(ctx context.Context, session *models.ConversationSession) (*models.ToolResult, error) {
	switch session.Intent {
	case models.IntentSearch:
		return d.dispatchSearch(ctx, session)
	case models.IntentCheckAvailability:
		return d.dispatchAvailability(ctx, session)
	case models.IntentBook:
		return d.dispatchBook(ctx, session)
	case models.IntentCancel, models.IntentModify:
		return d.dispatchCancel(ctx, session)
	default:
		return nil, nil
	}
}

func (d *Dispatcher) dispatchSearch(ctx context.Context, session *models.ConversationSession) (*models.ToolResult, error) {
	criteria := search.ParseCriteria(lastUserText(session))
	criteria.Date = session.Slots.Get(models.SlotDate)
	criteria.Time = session.Slots.Get(models.SlotTime)
	if party := session.Slots.Get(models.SlotPartySize); party != "" {
		criteria.PartySize, _ = strconv.Atoi(party)
	}

	ctx, cancel := budget(ctx, config.AppConfig.SearchBudgetMS)
	defer cancel()

	hits, err := d.Search.Search(ctx, criteria)
	if err != nil {
		return nil, budgetErr(ctx, err)
	}
	return &models.ToolResult{Tool: "search_restaurants", Hits: hits}, nil
}

func (d *Dispatcher) dispatchAvailability(ctx context.Context, session *models.ConversationSession) (*models.ToolResult, error) {
	if missing := dialogue.MissingFor(models.IntentCheckAvailability, session.Slots); len(missing) > 0 {
		return nil, &NotReadyError{Intent: models.IntentCheckAvailability, Missing: missing}
	}

	ctx, cancel := budget(ctx, config.AppConfig.AvailabilityBudgetMS)
	defer cancel()

	party, _ := strconv.Atoi(session.Slots.Get(models.SlotPartySize))
	avail, err := d.Engine.CheckAvailability(ctx,
		session.Slots.Get(models.SlotRestaurantID),
		session.Slots.Get(models.SlotDate),
		session.Slots.Get(models.SlotTime),
		party)
	if err != nil {
		return nil, budgetErr(ctx, err)
	}
	return &models.ToolResult{Tool: "check_availability", Availability: avail}, nil
}

// dispatchBook is the only dispatch that writes. It demands every required
// field confirmed, then runs the confirm/commit pair; the deterministic
// token makes a retried dispatch land on the same reservation.
func (d *Dispatcher) dispatchBook(ctx context.Context, session *models.ConversationSession) (*models.ToolResult, error) {
	if missing := dialogue.MissingFor(models.IntentBook, session.Slots); len(missing) > 0 {
		return nil, &NotReadyError{Intent: models.IntentBook, Missing: missing}
	}
	if !dialogue.ConfirmedFor(models.IntentBook, session.Slots) {
		return nil, &NotReadyError{Intent: models.IntentBook, Unconfirmed: true}
	}

	ctx, cancel := budget(ctx, config.AppConfig.BookingBudgetMS)
	defer cancel()

	token, err := d.Confirmer.Confirm(ctx, session.SessionID, session.Slots)
	if err != nil {
		return nil, budgetErr(ctx, err)
	}
	res, err := d.Confirmer.Commit(ctx, token)
	if err != nil {
		return nil, budgetErr(ctx, err)
	}
	return &models.ToolResult{Tool: "book_reservation", Reservation: res, CommitToken: token}, nil
}

// dispatchCancel serves both cancel and the first half of modify; after a
// modify's cancellation the dialogue layer re-collects the new slot values
// and books through the normal confirm/commit pair.
func (d *Dispatcher) dispatchCancel(ctx context.Context, session *models.ConversationSession) (*models.ToolResult, error) {
	if missing := dialogue.MissingFor(session.Intent, session.Slots); len(missing) > 0 {
		return nil, &NotReadyError{Intent: session.Intent, Missing: missing}
	}

	ctx, cancel := budget(ctx, config.AppConfig.CancelBudgetMS)
	defer cancel()

	var (
		result *models.CancelResult
		err    error
	)
	if code := session.Slots.Get(models.SlotReservationID); code != "" {
		result, err = d.Engine.Cancel(ctx, code)
	} else {
		result, err = d.Engine.CancelByContact(ctx, reservationRepo.ContactLookup{
			Phone: session.Slots.Get(models.SlotPhone),
			Email: session.Slots.Get(models.SlotEmail),
			Date:  session.Slots.Get(models.SlotDate),
		})
	}
	if err != nil {
		return nil, budgetErr(ctx, err)
	}
	return &models.ToolResult{Tool: "cancel_reservation", Cancel: result}, nil
}

func budget(ctx context.Context, ms int) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
}

// budgetErr folds a deadline overrun into the retryable timeout error;
// everything else passes through unchanged.
func budgetErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrToolTimeout
	}
	return err
}

func lastUserText(session *models.ConversationSession) string {
	for i := len(session.Turns) - 1; i >= 0; i-- {
		if session.Turns[i].Role == "user" {
			return session.Turns[i].Text
		}
	}
	return ""
}
