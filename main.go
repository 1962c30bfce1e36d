// File: goodfoods/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goodfoods/config"
	"goodfoods/cron"
	"goodfoods/database"
	availabilityRepoPkg "goodfoods/database/repository/availability"
	idempotencyRepoPkg "goodfoods/database/repository/idempotency"
	reservationRepoPkg "goodfoods/database/repository/reservation"
	restaurantRepoPkg "goodfoods/database/repository/restaurant"
	"goodfoods/handlers"
	"goodfoods/middleware"
	"goodfoods/routes"
	"goodfoods/services/agent"
	"goodfoods/services/availability"
	"goodfoods/services/dialogue"
	"goodfoods/services/extractor"
	"goodfoods/services/search"
	"goodfoods/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	restaurantRepo := restaurantRepoPkg.NewMongoRestaurantRepo()
	reservationRepo := reservationRepoPkg.NewMongoReservationRepo()
	availabilityRepo := availabilityRepoPkg.NewMongoAvailabilityRepo()
	idempotencyRepo := idempotencyRepoPkg.NewMongoIdempotencyRepo()

	// services.
	slotCache := availability.NewRedisSlotCache(utils.GetCacheClient(), config.StalenessBound())
	codeIssuer := &agent.SequenceCodeIssuer{Reservations: reservationRepo}
	engine := availability.NewEngine(
		availabilityRepo, restaurantRepo, reservationRepo,
		slotCache, codeIssuer, config.LockWait(), logger,
	)

	var ext extractor.Extractor
	if config.AppConfig.GeminiAPIKey != "" {
		ext = extractor.NewGeminiExtractor(config.AppConfig.GeminiAPIKey)
	} else {
		logger.Warn("No Gemini API key configured, using keyword extractor")
		ext = extractor.NewKeywordExtractor()
	}

	sessionStore := dialogue.NewRedisSessionStore(utils.GetSessionCacheClient(), config.SessionTTL())
	tracker := dialogue.NewTracker(sessionStore, ext, logger)

	searchService := search.NewService(restaurantRepo, engine, logger)
	confirmer := agent.NewConfirmer(engine, idempotencyRepo, reservationRepo, logger)
	dispatcher := agent.NewDispatcher(searchService, engine, confirmer, logger)

	hb := &handlers.HandlerBundle{
		Tracker:    tracker,
		Dispatcher: dispatcher,
		Confirmer:  confirmer,
		Engine:     engine,
		Search:     searchService,
		Logger:     logger,
	}

	routes.RegisterRoutes(router, hb)

	// Background workers and health monitoring.
	cron.InitCompletionWorker(reservationRepo)
	utils.StartHealthMonitor(
		utils.GetCacheClient(),
		utils.GetSessionCacheClient(),
		database.MongoClient,
	)

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("Server listening on port %s", config.AppConfig.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("Forced shutdown: %v", err)
	}
	logger.Info("Server exited")
}
