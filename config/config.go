package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env                string
	Port               string
	DBURL              string
	RedisURL           string
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessExpiryMin    int
	RefreshExpiryMin   int

	MaxActiveSessions  int
	LoginMaxAttempts   int
	LockoutDurationMin int

	AuthRateWindowMin    int
	AuthRateMax          int
	PostRateWindowMin    int
	PostRateMax          int
	CommentRateWindowMin int
	CommentRateMax       int
	LikeRateWindowMin    int
	LikeRateMax          int
	GeneralRateWindowMin int
	GeneralRateMax       int

	CleanupIntervalHours  int
	SessionIdleExpiryDays int
}

func Load() *Config {
	return &Config{
		Env:                getEnv("ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DBURL:              mustGetEnv("DB_URL"),
		RedisURL:           getEnv("REDIS_URL", ""),
		AccessTokenSecret:  mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: mustGetEnv("REFRESH_TOKEN_SECRET"),
		AccessExpiryMin:    getEnvAsInt("ACCESS_TOKEN_EXPIRY", 15),
		RefreshExpiryMin:   getEnvAsInt("REFRESH_TOKEN_EXPIRY", 43200),

		MaxActiveSessions:  getEnvAsInt("MAX_ACTIVE_SESSIONS", 5),
		LoginMaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
		LockoutDurationMin: getEnvAsInt("LOCKOUT_DURATION", 120),

		AuthRateWindowMin:    getEnvAsInt("AUTH_RATE_WINDOW", 15),
		AuthRateMax:          getEnvAsInt("AUTH_RATE_MAX", 100),
		PostRateWindowMin:    getEnvAsInt("POST_RATE_WINDOW", 60),
		PostRateMax:          getEnvAsInt("POST_RATE_MAX", 10),
		CommentRateWindowMin: getEnvAsInt("COMMENT_RATE_WINDOW", 15),
		CommentRateMax:       getEnvAsInt("COMMENT_RATE_MAX", 30),
		LikeRateWindowMin:    getEnvAsInt("LIKE_RATE_WINDOW", 15),
		LikeRateMax:          getEnvAsInt("LIKE_RATE_MAX", 100),
		GeneralRateWindowMin: getEnvAsInt("GENERAL_RATE_WINDOW", 15),
		GeneralRateMax:       getEnvAsInt("GENERAL_RATE_MAX", 300),

		CleanupIntervalHours:  getEnvAsInt("CLEANUP_INTERVAL", 24),
		SessionIdleExpiryDays: getEnvAsInt("SESSION_IDLE_EXPIRY", 30),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) AccessTokenExpiry() time.Duration {
	return time.Duration(c.AccessExpiryMin) * time.Minute
}

func (c *Config) RefreshTokenExpiry() time.Duration {
	return time.Duration(c.RefreshExpiryMin) * time.Minute
}

func (c *Config) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutDurationMin) * time.Minute
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required environment variable: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}
