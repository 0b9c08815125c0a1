package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "gradeshop")
	t.Setenv("DB_NAME", "gradeshop")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 2, cfg.Worker.ImageWorkers)
	assert.Equal(t, 30*time.Second, cfg.Cache.AvailabilityTTL)
	assert.Equal(t, 500, cfg.Import.MaxBatchSize)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.S3.Enabled())
	assert.Equal(t, []string{"localhost:3000", "127.0.0.1:3000"}, cfg.CORSAllowedHosts)
}

func TestLoad_CORSHosts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ALLOWED_HOSTS", " admin.loja.com.br, ,loja.com.br ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"admin.loja.com.br", "loja.com.br"}, cfg.CORSAllowedHosts)
}

func TestLoad_MissingDatabase(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.ErrorContains(t, err, "database configuration incomplete")
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IMAGE_SWEEP_INTERVAL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "IMAGE_SWEEP_INTERVAL")
}

func TestLoad_NegativeDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AVAILABILITY_CACHE_TTL", "-1s")

	_, err := Load()
	assert.ErrorContains(t, err, "AVAILABILITY_CACHE_TTL")
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("IMAGE_QUEUE_SIZE", "many")
	assert.Equal(t, 7, getEnvInt("IMAGE_QUEUE_SIZE", 7))
}
