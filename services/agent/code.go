package agent

import (
	"context"
	"fmt"
	"strings"

	reservationRepo "goodfoods/database/repository/reservation"
)

// MakeCode renders a reservation code: GF-<restaurant suffix>-<seq><check>.
// The Luhn check digit lets support staff catch transposed codes without a
// lookup.
func MakeCode(restaurantID string, seq int64) string {
	suffix := strings.ToUpper(restaurantID)
	suffix = strings.TrimPrefix(suffix, "REST_")
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	body := fmt.Sprintf("%d", seq)
	return fmt.Sprintf("GF-%s-%s%d", suffix, body, luhnDigit(body))
}

// luhnDigit computes the Luhn check digit for a numeric string.
func luhnDigit(digits string) int {
	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}

// ValidCode reports whether a code's check digit is consistent.
func ValidCode(code string) bool {
	parts := strings.Split(code, "-")
	if len(parts) != 3 || len(parts[2]) < 2 {
		return false
	}
	tail := parts[2]
	body, check := tail[:len(tail)-1], tail[len(tail)-1]
	if check < '0' || check > '9' {
		return false
	}
	for _, r := range body {
		if r < '0' || r > '9' {
			return false
		}
	}
	return luhnDigit(body) == int(check-'0')
}

// SequenceCodeIssuer issues codes from the per-restaurant atomic counter.
// It satisfies the availability engine's CodeIssuer, so issuance happens
// only on the commit path.
type SequenceCodeIssuer struct {
	Reservations reservationRepo.ReservationRepository
}

func (s *SequenceCodeIssuer) Issue(ctx context.Context, restaurantID string) (string, error) {
	seq, err := s.Reservations.NextSequence(ctx, restaurantID)
	if err != nil {
		return "", err
	}
	return MakeCode(restaurantID, seq), nil
}
