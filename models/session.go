package models

import "time"

// Intent is the tracker's current best guess at what the user wants.
type Intent string

const (
	IntentSearch            Intent = "search"
	IntentCheckAvailability Intent = "check_availability"
	IntentBook              Intent = "book"
	IntentModify            Intent = "modify"
	IntentCancel            Intent = "cancel"
	IntentAffirm            Intent = "affirm"
	IntentOther             Intent = "other"
)

// SlotName names one field of the booking request.
type SlotName string

const (
	SlotRestaurantID    SlotName = "restaurant_id"
	SlotDate            SlotName = "date"
	SlotTime            SlotName = "time"
	SlotPartySize       SlotName = "party_size"
	SlotCustomerName    SlotName = "customer_name"
	SlotPhone           SlotName = "phone"
	SlotEmail           SlotName = "email"
	SlotSpecialRequests SlotName = "special_requests"
	SlotReservationID   SlotName = "reservation_id"
)

// Slot field statuses. A field is filled only after format validation of a
// value that originated from user input, and confirmed only after the user
// echoed it back in a recap turn.
const (
	FieldFilled    = "filled"
	FieldConfirmed = "confirmed"
)

// SlotField is one validated field of a SlotSet.
type SlotField struct {
	Value  string `json:"value"`
	Status string `json:"status"`
}

// SlotSet accumulates validated booking fields across turns.
type SlotSet map[SlotName]SlotField

// Get returns the value for name, empty if absent.
func (s SlotSet) Get(name SlotName) string {
	return s[name].Value
}

// Has reports whether name is at least filled.
func (s SlotSet) Has(name SlotName) bool {
	f, ok := s[name]
	return ok && f.Value != ""
}

// Confirmed reports whether name has been confirmed by the user.
func (s SlotSet) Confirmed(name SlotName) bool {
	f, ok := s[name]
	return ok && f.Status == FieldConfirmed
}

// Clone returns a deep copy of the slot set.
func (s SlotSet) Clone() SlotSet {
	out := make(SlotSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ConversationState is the explicit dialogue lifecycle state. Transitions
// are enforced by the tracker; dispatching a booking before confirmation
// is unrepresentable.
type ConversationState string

const (
	StateCollecting ConversationState = "collecting"
	StateConfirming ConversationState = "confirming"
	StateReady      ConversationState = "ready"
	StateDone       ConversationState = "done"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role string    `json:"role"` // "user" or "agent"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// ConversationSession holds per-conversation dialogue state. Owned
// exclusively by the tracker; expires after the inactivity window.
type ConversationSession struct {
	SessionID string            `json:"sessionId"`
	State     ConversationState `json:"state"`
	Intent    Intent            `json:"intent"`
	Turns     []Turn            `json:"turns"`
	Slots     SlotSet           `json:"slots"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// TurnResult is what Advance returns to the caller after each turn.
type TurnResult struct {
	SessionID string            `json:"sessionId"`
	State     ConversationState `json:"state"`
	Intent    Intent            `json:"intent"`
	Slots     SlotSet           `json:"slots"`
	Missing   []SlotName        `json:"missing,omitempty"`
	Rejected  []RejectedSlot    `json:"rejected,omitempty"`
}

// RejectedSlot reports a candidate value the normalizer refused to merge.
type RejectedSlot struct {
	Name   SlotName `json:"name"`
	Value  string   `json:"value"`
	Reason string   `json:"reason"`
}
