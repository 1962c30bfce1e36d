package handlers

import (
	"net/http"

	"goodfoods/utils"

	"github.com/gin-gonic/gin"
)

// Health returns the latest stored health snapshot.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"deps":   utils.GetHealthStatus(),
	})
}
