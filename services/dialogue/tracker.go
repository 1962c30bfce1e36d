package dialogue

import (
	"context"
	"fmt"
	"time"

	"goodfoods/models"
	"goodfoods/services/extractor"

	"go.uber.org/zap"
)

// Tracker owns conversation sessions: one per id, mutated every turn,
// evicted by the store after the inactivity window. No cross-session
// synchronization is needed because a session has a single owner.
type Tracker struct {
	Store     SessionStore
	Extractor extractor.Extractor
	Logger    *zap.Logger
}

// NewTracker wires a dialogue state tracker.
func NewTracker(store SessionStore, ext extractor.Extractor, logger *zap.Logger) *Tracker {
	return &Tracker{Store: store, Extractor: ext, Logger: logger}
}

// validTransition is the explicit conversation state machine. Anything not
// listed here is an illegal move and is refused.
var validTransition = map[models.ConversationState][]models.ConversationState{
	models.StateCollecting: {models.StateConfirming, models.StateReady},
	models.StateConfirming: {models.StateReady, models.StateCollecting},
	models.StateReady:      {models.StateDone, models.StateCollecting},
	models.StateDone:       {models.StateCollecting},
}

func transition(session *models.ConversationSession, to models.ConversationState) error {
	if session.State == to {
		return nil
	}
	for _, allowed := range validTransition[session.State] {
		if allowed == to {
			session.State = to
			return nil
		}
	}
	return fmt.Errorf("illegal conversation transition %s -> %s", session.State, to)
}

// Advance appends the utterance to the session, runs the extractor,
// merges validated slots, and moves the conversation state machine.
func (t *Tracker) Advance(ctx context.Context, sessionID, utterance string) (*models.TurnResult, error) {
	session, err := t.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		session = &models.ConversationSession{
			SessionID: sessionID,
			State:     models.StateCollecting,
			Intent:    models.IntentOther,
			Slots:     models.SlotSet{},
		}
	}

	session.Turns = append(session.Turns, models.Turn{Role: "user", Text: utterance, At: time.Now()})

	ext, err := t.Extractor.Extract(ctx, utterance, session.Turns)
	if err != nil {
		// Oracle failures are absorbed as a clarification turn, not a
		// system failure.
		t.Logger.Warn("extractor failed, treating turn as unclassified",
			zap.String("sessionID", sessionID), zap.Error(err))
		ext = models.Extraction{Intent: models.IntentOther}
	}

	var rejected []models.RejectedSlot
	if ext.Intent == models.IntentAffirm && session.State == models.StateConfirming {
		confirmFilled(session)
		if err := transition(session, models.StateReady); err != nil {
			return nil, err
		}
	} else {
		if session.State == models.StateDone && ext.Intent != models.IntentAffirm {
			// New request in an existing conversation.
			if err := transition(session, models.StateCollecting); err != nil {
				return nil, err
			}
		}
		if ext.Intent != models.IntentOther && ext.Intent != models.IntentAffirm {
			session.Intent = ext.Intent
		}

		merged, rej := Merge(session.Slots, ext.Slots)
		rejected = rej
		changed := slotsChanged(session.Slots, merged)
		session.Slots = merged

		if changed && session.State == models.StateConfirming {
			// A corrected value invalidates the recap.
			if err := transition(session, models.StateCollecting); err != nil {
				return nil, err
			}
		}

		if session.State == models.StateCollecting && ReadyFor(session.Intent, session.Slots) {
			// Booking goes through a recap turn; read-only intents are
			// dispatchable as soon as they are complete.
			next := models.StateReady
			if session.Intent == models.IntentBook {
				next = models.StateConfirming
			}
			if err := transition(session, next); err != nil {
				return nil, err
			}
		}
	}

	session.UpdatedAt = time.Now()
	if err := t.Store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return &models.TurnResult{
		SessionID: session.SessionID,
		State:     session.State,
		Intent:    session.Intent,
		Slots:     session.Slots,
		Missing:   MissingFor(session.Intent, session.Slots),
		Rejected:  rejected,
	}, nil
}

// Get returns the live session, or nil after eviction.
func (t *Tracker) Get(ctx context.Context, sessionID string) (*models.ConversationSession, error) {
	return t.Store.Get(ctx, sessionID)
}

// MarkDispatched moves a session to done after its booking committed.
func (t *Tracker) MarkDispatched(ctx context.Context, sessionID string) error {
	session, err := t.Store.Get(ctx, sessionID)
	if err != nil || session == nil {
		return err
	}
	if err := transition(session, models.StateDone); err != nil {
		return err
	}
	session.UpdatedAt = time.Now()
	return t.Store.Save(ctx, session)
}

// EndSession discards dialogue state on explicit close. A confirmed-but-
// uncommitted reservation survives this: it lives under the confirmation
// layer's commit token, not the session.
func (t *Tracker) EndSession(ctx context.Context, sessionID string) error {
	return t.Store.Delete(ctx, sessionID)
}

// confirmFilled promotes every filled field to confirmed. Called only on
// an affirmation of the recap.
func confirmFilled(session *models.ConversationSession) {
	for name, f := range session.Slots {
		if f.Status == models.FieldFilled {
			f.Status = models.FieldConfirmed
			session.Slots[name] = f
		}
	}
}

func slotsChanged(before, after models.SlotSet) bool {
	if len(before) != len(after) {
		return true
	}
	for name, f := range after {
		if before[name].Value != f.Value {
			return true
		}
	}
	return false
}
