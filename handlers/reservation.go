package handlers

import (
	"net/http"

	reservationRepo "goodfoods/database/repository/reservation"

	"github.com/gin-gonic/gin"
)

// Commit applies a staged commit token. Safe to retry: a replay returns
// the reservation the first call created.
func (hb *HandlerBundle) Commit(c *gin.Context) {
	var input struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	res, err := hb.Confirmer.Commit(c.Request.Context(), input.Token)
	if err != nil {
		writeToolError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservation": res})
}

// CancelReservation cancels by confirmation code, or by phone/email plus
// date when the code has been lost.
func (hb *HandlerBundle) CancelReservation(c *gin.Context) {
	var input struct {
		Code  string `json:"code"`
		Phone string `json:"phone"`
		Email string `json:"email"`
		Date  string `json:"date"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if input.Code != "" {
		result, err := hb.Engine.Cancel(ctx, input.Code)
		if err != nil {
			writeToolError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cancelled": result})
		return
	}

	if input.Phone == "" && input.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide a confirmation code, or phone/email with date"})
		return
	}
	result, err := hb.Engine.CancelByContact(ctx, reservationRepo.ContactLookup{
		Phone: input.Phone,
		Email: input.Email,
		Date:  input.Date,
	})
	if err != nil {
		writeToolError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": result})
}
