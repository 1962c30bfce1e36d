package dialogue

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"goodfoods/models"
)

// ValidationError reports a candidate value the normalizer refused. It is
// recovered locally by re-prompting the user, never surfaced as a system
// failure.
type ValidationError struct {
	Field  models.SlotName
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var (
	emailPattern = regexp.MustCompile(`^[\w.+-]+@[\w-]+\.[\w.]+$`)
	letterRun    = regexp.MustCompile(`[a-zA-Z]`)
)

// Placeholder values a language model tends to emit when it fabricates a
// field instead of asking the user. These can never fill a slot.
var placeholderValues = map[string]bool{
	"your name":              true,
	"your full name":         true,
	"john doe":               true,
	"jane doe":               true,
	"customer name":          true,
	"your_email@example.com": true,
	"user@example.com":       true,
	"email@example.com":      true,
	"1234567890":             true,
	"123-456-7890":           true,
	"0000000000":             true,
	"555-000-0000":           true,
	"555-555-5555":           true,
	"string":                 true,
	"n/a":                    true,
	"unknown":                true,
}

func isPlaceholder(value string) bool {
	return placeholderValues[strings.ToLower(strings.TrimSpace(value))]
}

// ValidateSlot format-checks a single candidate value and returns its
// canonical form. The zero ValidationError return means the value may be
// merged as filled.
func ValidateSlot(name models.SlotName, value string) (string, *ValidationError) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", &ValidationError{Field: name, Value: value, Reason: "empty value"}
	}
	if isPlaceholder(value) {
		return "", &ValidationError{Field: name, Value: value, Reason: "placeholder value"}
	}

	switch name {
	case models.SlotDate:
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return "", &ValidationError{Field: name, Value: value, Reason: "date must be YYYY-MM-DD"}
		}
		return t.Format("2006-01-02"), nil

	case models.SlotTime:
		t, err := time.Parse("15:04", value)
		if err != nil {
			return "", &ValidationError{Field: name, Value: value, Reason: "time must be HH:MM (24-hour)"}
		}
		return t.Format("15:04"), nil

	case models.SlotPartySize:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 50 {
			return "", &ValidationError{Field: name, Value: value, Reason: "party size must be between 1 and 50"}
		}
		return strconv.Itoa(n), nil

	case models.SlotPhone:
		return validatePhone(value)

	case models.SlotEmail:
		if !emailPattern.MatchString(value) || strings.HasSuffix(strings.ToLower(value), "@example.com") {
			return "", &ValidationError{Field: name, Value: value, Reason: "invalid email address"}
		}
		return strings.ToLower(value), nil

	case models.SlotCustomerName:
		if len(value) < 2 || !letterRun.MatchString(value) {
			return "", &ValidationError{Field: name, Value: value, Reason: "name too short"}
		}
		return value, nil

	case models.SlotRestaurantID, models.SlotReservationID, models.SlotSpecialRequests:
		return value, nil
	}

	return "", &ValidationError{Field: name, Value: value, Reason: "unknown slot"}
}

// validatePhone keeps formatting loose but rejects obviously fabricated
// numbers: wrong digit counts, single-digit runs, and 555-000 test ranges.
func validatePhone(value string) (string, *ValidationError) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)

	if len(digits) < 10 || len(digits) > 15 {
		return "", &ValidationError{Field: models.SlotPhone, Value: value, Reason: "phone must have 10-15 digits"}
	}
	if strings.Count(digits, string(digits[0])) == len(digits) {
		return "", &ValidationError{Field: models.SlotPhone, Value: value, Reason: "phone digits are a repeated run"}
	}
	if strings.HasPrefix(digits, "555000") || strings.Contains(digits, "5550000") {
		return "", &ValidationError{Field: models.SlotPhone, Value: value, Reason: "phone is a reserved test number"}
	}
	if digits == "1234567890" || digits == "12345678901" {
		return "", &ValidationError{Field: models.SlotPhone, Value: value, Reason: "phone is a sequential placeholder"}
	}
	return value, nil
}

// Merge folds validated candidates into the current slot set. Confirmed
// fields are never overwritten; rejected candidates are reported back so
// the dialogue layer can re-prompt. This is the only path by which a field
// becomes filled.
func Merge(current models.SlotSet, raw map[models.SlotName]string) (models.SlotSet, []models.RejectedSlot) {
	merged := current.Clone()
	var rejected []models.RejectedSlot

	for name, value := range raw {
		if current.Confirmed(name) {
			continue
		}
		canonical, verr := ValidateSlot(name, value)
		if verr != nil {
			rejected = append(rejected, models.RejectedSlot{Name: name, Value: value, Reason: verr.Reason})
			continue
		}
		merged[name] = models.SlotField{Value: canonical, Status: models.FieldFilled}
	}
	return merged, rejected
}

// RequiredFor returns the base required set per intent. The phone/email
// alternative for book and the cancel lookup alternative are handled by
// MissingFor.
func RequiredFor(intent models.Intent) []models.SlotName {
	switch intent {
	case models.IntentBook:
		return []models.SlotName{
			models.SlotRestaurantID, models.SlotDate, models.SlotTime,
			models.SlotPartySize, models.SlotCustomerName,
		}
	case models.IntentCheckAvailability:
		return []models.SlotName{
			models.SlotRestaurantID, models.SlotDate, models.SlotTime, models.SlotPartySize,
		}
	default:
		return nil
	}
}

// MissingFor computes which required fields still block the intent.
func MissingFor(intent models.Intent, slots models.SlotSet) []models.SlotName {
	var missing []models.SlotName
	for _, name := range RequiredFor(intent) {
		if !slots.Has(name) {
			missing = append(missing, name)
		}
	}

	switch intent {
	case models.IntentBook:
		if !slots.Has(models.SlotPhone) && !slots.Has(models.SlotEmail) {
			missing = append(missing, models.SlotPhone)
		}
	case models.IntentCancel, models.IntentModify:
		if slots.Has(models.SlotReservationID) {
			break
		}
		// Alternate lookup key: contact plus date.
		hasContact := slots.Has(models.SlotPhone) || slots.Has(models.SlotEmail)
		if !hasContact {
			missing = append(missing, models.SlotReservationID)
		} else if !slots.Has(models.SlotDate) {
			missing = append(missing, models.SlotDate)
		}
	}
	return missing
}

// ReadyFor reports whether every required field for the intent is filled.
func ReadyFor(intent models.Intent, slots models.SlotSet) bool {
	return len(MissingFor(intent, slots)) == 0
}

// ConfirmedFor reports whether every required field for the intent has been
// explicitly confirmed by the user. Only book demands this.
func ConfirmedFor(intent models.Intent, slots models.SlotSet) bool {
	if !ReadyFor(intent, slots) {
		return false
	}
	for _, name := range RequiredFor(intent) {
		if !slots.Confirmed(name) {
			return false
		}
	}
	if intent == models.IntentBook {
		if slots.Has(models.SlotPhone) && !slots.Confirmed(models.SlotPhone) {
			return false
		}
		if slots.Has(models.SlotEmail) && !slots.Confirmed(models.SlotEmail) {
			return false
		}
	}
	return true
}
