package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "STORAGE_DRIVER", "APP_TIMEZONE", "CALL_DAILY_GOAL", "CYCLE_SAMPLE_SIZE", "JWT_TTL", "WS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, 400, cfg.CallDailyGoal)
	assert.Equal(t, 3, cfg.CycleSampleSize)
	assert.Equal(t, 12*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("CALL_DAILY_GOAL", "120")
	t.Setenv("CYCLE_SAMPLE_SIZE", "5")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 120, cfg.CallDailyGoal)
	assert.Equal(t, 5, cfg.CycleSampleSize)
	assert.Equal(t, 30*time.Minute, cfg.JWT.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestValidate(t *testing.T) {
	base := Load()
	base.StorageDriver = StorageMemory
	base.Timezone = "UTC"

	bad := base
	bad.StorageDriver = "sqlite"
	assert.Error(t, bad.Validate())

	bad = base
	bad.CycleSampleSize = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.Timezone = "Mars/Olympus"
	assert.Error(t, bad.Validate())

	assert.NoError(t, base.Validate())
}
