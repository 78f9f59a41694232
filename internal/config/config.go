package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Shared secret for session collaborator bearer tokens (HS256).
	AuthJWTSecret string

	YoutubeClientID     string
	YoutubeClientSecret string
	TwitchClientID      string
	TwitchClientSecret  string

	// Base URL of the cart control gateway the field hardware connects to.
	CartGatewayURL   string
	CartGatewayToken string

	// TTL for cached platform statuses; refresh clicks bypass the cache.
	StatusCacheTTL time.Duration

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		AuthJWTSecret:       getEnv("AUTH_JWT_SECRET", ""),
		YoutubeClientID:     getEnv("YOUTUBE_CLIENT_ID", ""),
		YoutubeClientSecret: getEnv("YOUTUBE_CLIENT_SECRET", ""),
		TwitchClientID:      getEnv("TWITCH_CLIENT_ID", ""),
		TwitchClientSecret:  getEnv("TWITCH_CLIENT_SECRET", ""),
		CartGatewayURL:      getEnv("CART_GATEWAY_URL", ""),
		CartGatewayToken:    getEnv("CART_GATEWAY_TOKEN", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
	}

	ttl := getEnv("STATUS_CACHE_TTL", "5s")
	parsed, err := time.ParseDuration(ttl)
	if err != nil {
		return nil, fmt.Errorf("STATUS_CACHE_TTL must be a duration: %w", err)
	}
	cfg.StatusCacheTTL = parsed

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AuthJWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if cfg.CartGatewayURL == "" {
		return nil, fmt.Errorf("CART_GATEWAY_URL is required")
	}

	// Platform credentials must come in pairs.
	if (cfg.YoutubeClientID == "") != (cfg.YoutubeClientSecret == "") {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID and YOUTUBE_CLIENT_SECRET must be set together")
	}
	if (cfg.TwitchClientID == "") != (cfg.TwitchClientSecret == "") {
		return nil, fmt.Errorf("TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET must be set together")
	}
	if cfg.YoutubeClientID == "" && cfg.TwitchClientID == "" {
		return nil, fmt.Errorf("at least one platform (youtube or twitch) must be configured")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
