package handlers

import (
	"errors"
	"net/http"

	idempotencyRepo "goodfoods/database/repository/idempotency"
	"goodfoods/services/agent"
	"goodfoods/services/availability"

	"github.com/gin-gonic/gin"
)

// toolErrorPayload renders a dispatch failure as response data. Capacity
// and ambiguity outcomes carry their payload so a front end can render
// alternatives without a second round trip.
func toolErrorPayload(err error) gin.H {
	var notReady *agent.NotReadyError
	var capErr *availability.CapacityError
	var ambiguous *availability.AmbiguousCancelError

	switch {
	case errors.As(err, &notReady):
		return gin.H{
			"error":       notReady.Error(),
			"missing":     notReady.Missing,
			"unconfirmed": notReady.Unconfirmed,
		}
	case errors.As(err, &capErr):
		return gin.H{
			"error":        capErr.Error(),
			"remaining":    capErr.Remaining,
			"alternatives": capErr.Alternatives,
		}
	case errors.As(err, &ambiguous):
		return gin.H{
			"error":      ambiguous.Error(),
			"candidates": ambiguous.Candidates,
		}
	case errors.Is(err, agent.ErrToolTimeout):
		return gin.H{"error": "tool timed out, please retry", "retryable": true}
	case errors.Is(err, availability.ErrLockTimeout):
		return gin.H{"error": "slot is busy, please retry", "retryable": true}
	default:
		return gin.H{"error": err.Error()}
	}
}

// writeToolError maps domain errors onto HTTP statuses for the direct
// tool endpoints.
func writeToolError(c *gin.Context, err error) {
	var notReady *agent.NotReadyError
	var capErr *availability.CapacityError
	var ambiguous *availability.AmbiguousCancelError

	switch {
	case errors.As(err, &notReady):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":       notReady.Error(),
			"missing":     notReady.Missing,
			"unconfirmed": notReady.Unconfirmed,
		})
	case errors.As(err, &capErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":        capErr.Error(),
			"remaining":    capErr.Remaining,
			"alternatives": capErr.Alternatives,
		})
	case errors.As(err, &ambiguous):
		c.JSON(http.StatusConflict, gin.H{
			"error":      ambiguous.Error(),
			"candidates": ambiguous.Candidates,
		})
	case errors.Is(err, agent.ErrToolTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "tool timed out, please retry"})
	case errors.Is(err, availability.ErrLockTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "slot is busy, please retry"})
	case errors.Is(err, availability.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
	case errors.Is(err, idempotencyRepo.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "commit token not found"})
	case errors.Is(err, agent.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{"error": "commit token expired, please re-confirm"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": err.Error()})
	}
}
