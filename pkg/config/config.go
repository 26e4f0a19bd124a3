package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the core components need. It is loaded once
// at startup and passed down; nothing reads the environment mid-request.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// Weather cache
	CacheTTL    time.Duration // freshness window for a city's readings
	MaxCities   int           // M: distinct cities tracked
	MaxReadings int           // N: readings retained per city

	// Sessions
	MaxSessions   int
	SessionTTL    time.Duration
	SweepInterval time.Duration

	// Connection pool
	PoolSize       int
	AcquireTimeout time.Duration
}

func Load() Config {
	return Config{
		Port:        getenv("PORT", "8082"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		RedisURL:    getenv("REDIS_URL", "redis://localhost:6379"),

		CacheTTL:    duration("WEATHER_CACHE_TTL", time.Minute),
		MaxCities:   integer("WEATHER_MAX_CITIES", 100),
		MaxReadings: integer("WEATHER_MAX_READINGS", 5),

		MaxSessions:   integer("MAX_SESSIONS", 10000),
		SessionTTL:    duration("SESSION_TTL", 24*time.Hour),
		SweepInterval: duration("SESSION_SWEEP_INTERVAL", 5*time.Minute),

		PoolSize:       integer("DB_POOL_SIZE", 10),
		AcquireTimeout: duration("DB_ACQUIRE_TIMEOUT", 3*time.Second),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func integer(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func duration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
