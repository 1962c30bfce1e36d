package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB   int    `mapstructure:"REDIS_CACHE_DB"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// Gemini API key for the intent extractor. An empty key falls back to
	// the local keyword extractor.
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	// Availability engine tuning.
	StalenessBoundMS  int `mapstructure:"STALENESS_BOUND_MS"`
	LockWaitMS        int `mapstructure:"LOCK_WAIT_MS"`
	SessionTTLMin     int `mapstructure:"SESSION_TTL_MIN"`
	CommitTokenTTLMin int `mapstructure:"COMMIT_TOKEN_TTL_MIN"`

	// Per-tool latency budgets in milliseconds.
	SearchBudgetMS       int `mapstructure:"SEARCH_BUDGET_MS"`
	AvailabilityBudgetMS int `mapstructure:"AVAILABILITY_BUDGET_MS"`
	BookingBudgetMS      int `mapstructure:"BOOKING_BUDGET_MS"`
	CancelBudgetMS       int `mapstructure:"CANCEL_BUDGET_MS"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_SESSION_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("STALENESS_BOUND_MS", 5000)
	viper.SetDefault("LOCK_WAIT_MS", 250)
	viper.SetDefault("SESSION_TTL_MIN", 30)
	viper.SetDefault("COMMIT_TOKEN_TTL_MIN", 15)
	viper.SetDefault("SEARCH_BUDGET_MS", 500)
	viper.SetDefault("AVAILABILITY_BUDGET_MS", 300)
	viper.SetDefault("BOOKING_BUDGET_MS", 800)
	viper.SetDefault("CANCEL_BUDGET_MS", 400)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// StalenessBound returns the maximum age a cached availability read may have.
func StalenessBound() time.Duration {
	return time.Duration(AppConfig.StalenessBoundMS) * time.Millisecond
}

// LockWait returns how long reserve/cancel waits for its per-slot lock.
func LockWait() time.Duration {
	return time.Duration(AppConfig.LockWaitMS) * time.Millisecond
}

// SessionTTL returns the conversation inactivity window.
func SessionTTL() time.Duration {
	return time.Duration(AppConfig.SessionTTLMin) * time.Minute
}

// CommitTokenTTL returns how long a confirmed-but-uncommitted token is held.
func CommitTokenTTL() time.Duration {
	return time.Duration(AppConfig.CommitTokenTTLMin) * time.Minute
}
