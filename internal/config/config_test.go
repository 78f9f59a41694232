package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/fim")
	t.Setenv("AUTH_JWT_SECRET", "super-secret")
	t.Setenv("CART_GATEWAY_URL", "https://gateway.example.com")
	t.Setenv("YOUTUBE_CLIENT_ID", "yt-id")
	t.Setenv("YOUTUBE_CLIENT_SECRET", "yt-secret")
	t.Setenv("TWITCH_CLIENT_ID", "")
	t.Setenv("TWITCH_CLIENT_SECRET", "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "5s", cfg.StatusCacheTTL.String())
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestLoad_PlatformPairEnforced(t *testing.T) {
	setRequired(t)
	t.Setenv("YOUTUBE_CLIENT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestLoad_AtLeastOnePlatform(t *testing.T) {
	setRequired(t)
	t.Setenv("YOUTUBE_CLIENT_ID", "")
	t.Setenv("YOUTUBE_CLIENT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one platform")
}

func TestLoad_BadStatusCacheTTL(t *testing.T) {
	setRequired(t)
	t.Setenv("STATUS_CACHE_TTL", "often")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATUS_CACHE_TTL")
}
