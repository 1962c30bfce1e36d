package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthStatus is the latest dependency snapshot: the reservation store
// plus the two redis databases (availability cache, conversation sessions).
type HealthStatus struct {
	Mongo        bool      `json:"mongo"`
	CacheRedis   bool      `json:"cacheRedis"`
	SessionRedis bool      `json:"sessionRedis"`
	CheckedAt    time.Time `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	healthMu      sync.RWMutex
)

// GetHealthStatus returns the latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	healthMu.RLock()
	defer healthMu.RUnlock()
	return currentHealth
}

// StartHealthMonitor pings the dependencies every minute and keeps the
// snapshot in memory for the health endpoint.
func StartHealthMonitor(cache, session *redis.Client, mongoClient *mongo.Client) {
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()

		ctx := context.Background()

		for range ticker.C {
			healthMu.Lock()
			currentHealth = HealthStatus{
				Mongo:        mongoClient.Ping(ctx, nil) == nil,
				CacheRedis:   cache.Ping(ctx).Err() == nil,
				SessionRedis: session.Ping(ctx).Err() == nil,
				CheckedAt:    time.Now(),
			}
			healthMu.Unlock()
		}
	}()
}
