package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 0.75, cfg.Booking.CapacityFactor)
	assert.Equal(t, 60, cfg.Booking.DefaultWindowMinutes)
	assert.Equal(t, 15*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, "./migrations", cfg.Migrations.Dir)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BOOKING_CAPACITY_FACTOR", "0.5")
	t.Setenv("ASSISTANT_SESSION_TTL", "5m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("CATALOG_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 0.5, cfg.Booking.CapacityFactor)
	assert.Equal(t, 5*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.Catalog.CacheTTL)
}

func TestLoadRejectsOutOfRangeCapacityFactor(t *testing.T) {
	t.Setenv("BOOKING_CAPACITY_FACTOR", "1.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.75, cfg.Booking.CapacityFactor)
}
