package routes

import (
	"time"

	"goodfoods/handlers"
	"goodfoods/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterConversationRoutes registers the chat-driven endpoints. The open
// call is public; everything on a session requires its guest token.
func RegisterConversationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/conversation")
	{
		api.POST("", hb.OpenConversation)

		protected := api.Group("")
		protected.Use(middleware.GuestSessionMiddleware())
		protected.POST("/:sessionID/message", hb.Message)
		protected.POST("/:sessionID/confirm", hb.Confirm)
		protected.DELETE("/:sessionID", hb.EndConversation)
	}
}

// RegisterReservationRoutes registers commit and cancellation endpoints.
// They authenticate by commit token or confirmation code, not by session,
// so a booking survives its conversation.
func RegisterReservationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/reservations")
	{
		api.POST("/commit", hb.Commit)
		api.POST("/cancel", hb.CancelReservation)
	}
}

// RegisterRestaurantRoutes registers direct tool access for non-chat
// front ends.
func RegisterRestaurantRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/api/restaurants/search", hb.SearchRestaurants)
	r.GET("/api/availability", hb.CheckAvailability)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.Health)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterConversationRoutes(r, hb)
	RegisterReservationRoutes(r, hb)
	RegisterRestaurantRoutes(r, hb)
	RegisterHealthRoute(r)
}
