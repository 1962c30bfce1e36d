package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"goodfoods/models"

	"github.com/gin-gonic/gin"
)

// SearchRestaurants is the direct search endpoint for non-chat front ends.
func (hb *HandlerBundle) SearchRestaurants(c *gin.Context) {
	criteria := models.SearchCriteria{
		Cuisine:    c.Query("cuisine"),
		Location:   c.Query("location"),
		PriceRange: c.Query("priceRange"),
		Date:       c.Query("date"),
		Time:       c.Query("time"),
	}
	if features := c.Query("features"); features != "" {
		criteria.Features = strings.Split(features, ",")
	}
	if v := c.Query("minRating"); v != "" {
		criteria.MinRating, _ = strconv.ParseFloat(v, 64)
	}
	if v := c.Query("partySize"); v != "" {
		criteria.PartySize, _ = strconv.Atoi(v)
	}

	hits, err := hb.Search.Search(c.Request.Context(), criteria)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

// CheckAvailability is the direct availability endpoint.
func (hb *HandlerBundle) CheckAvailability(c *gin.Context) {
	restaurantID := c.Query("restaurantId")
	date := c.Query("date")
	clock := c.Query("time")
	party, _ := strconv.Atoi(c.Query("partySize"))
	if restaurantID == "" || date == "" || clock == "" || party < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "restaurantId, date, time and partySize are required"})
		return
	}

	result, err := hb.Engine.CheckAvailability(c.Request.Context(), restaurantID, date, clock, party)
	if err != nil {
		writeToolError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
