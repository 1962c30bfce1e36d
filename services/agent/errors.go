package agent

import (
	"errors"
	"fmt"
	"strings"

	"goodfoods/models"
)

// ErrToolTimeout is returned when a tool call missed its latency budget.
// The dialogue layer treats it as retryable; nothing was committed.
var ErrToolTimeout = errors.New("tool call exceeded its latency budget")

// NotReadyError blocks a dispatch whose required fields are not yet filled
// (or, for book, not yet confirmed). Recovered locally by re-prompting.
type NotReadyError struct {
	Intent  models.Intent
	Missing []models.SlotName
	// Unconfirmed is set when the fields are filled but the user has not
	// affirmed the recap yet.
	Unconfirmed bool
}

func (e *NotReadyError) Error() string {
	if e.Unconfirmed {
		return fmt.Sprintf("%s not dispatched: awaiting user confirmation", e.Intent)
	}
	names := make([]string, len(e.Missing))
	for i, n := range e.Missing {
		names[i] = string(n)
	}
	return fmt.Sprintf("%s not dispatched: missing %s", e.Intent, strings.Join(names, ", "))
}
