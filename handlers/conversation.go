package handlers

import (
	"errors"
	"net/http"

	"goodfoods/config"
	"goodfoods/middleware"
	"goodfoods/models"
	"goodfoods/services/agent"
	"goodfoods/services/dialogue"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OpenConversation starts a session and hands back its guest token. The
// token is the only credential a chat front end needs.
func (hb *HandlerBundle) OpenConversation(c *gin.Context) {
	sessionID := uuid.New().String()
	token, err := middleware.IssueGuestToken(sessionID, config.SessionTTL())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue session token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionID": sessionID,
		"token":     token,
	})
}

// Message advances the dialogue one user turn and, when the conversation
// reaches ready, dispatches its tool in the same request.
func (hb *HandlerBundle) Message(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var input struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	turn, err := hb.Tracker.Advance(c.Request.Context(), sessionID, input.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to advance conversation", "details": err.Error()})
		return
	}

	resp := gin.H{"turn": turn}
	if turn.State == models.StateReady {
		result, derr := hb.dispatchReady(c, sessionID)
		if derr != nil {
			// Dispatch failures are part of the turn, not a transport
			// failure: report them alongside the dialogue state.
			resp["toolError"] = toolErrorPayload(derr)
		} else if result != nil {
			resp["tool"] = result
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (hb *HandlerBundle) dispatchReady(c *gin.Context, sessionID string) (*models.ToolResult, error) {
	session, err := hb.Tracker.Get(c.Request.Context(), sessionID)
	if err != nil || session == nil {
		return nil, errors.New("session evaporated before dispatch")
	}
	result, err := hb.Dispatcher.Dispatch(c.Request.Context(), session)
	if err != nil {
		return nil, err
	}
	if err := hb.Tracker.MarkDispatched(c.Request.Context(), sessionID); err != nil {
		hb.Logger.Warn("failed to mark session dispatched",
			zap.String("sessionID", sessionID), zap.Error(err))
	}
	return result, nil
}

// Confirm stages the commit token for a fully confirmed booking without
// dispatching it, for front ends that render their own commit button.
func (hb *HandlerBundle) Confirm(c *gin.Context) {
	sessionID := c.Param("sessionID")
	session, err := hb.Tracker.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session", "details": err.Error()})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found or expired"})
		return
	}
	if !dialogue.ConfirmedFor(models.IntentBook, session.Slots) {
		writeToolError(c, &agent.NotReadyError{
			Intent:      models.IntentBook,
			Missing:     dialogue.MissingFor(models.IntentBook, session.Slots),
			Unconfirmed: true,
		})
		return
	}

	token, err := hb.Confirmer.Confirm(c.Request.Context(), sessionID, session.Slots)
	if err != nil {
		writeToolError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commitToken": token})
}

// EndConversation discards dialogue state on explicit close.
func (hb *HandlerBundle) EndConversation(c *gin.Context) {
	sessionID := c.Param("sessionID")
	if err := hb.Tracker.EndSession(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end session", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}
