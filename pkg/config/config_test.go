package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5.0, cfg.Nutrition.MinBMI)
	assert.Equal(t, 100.0, cfg.Nutrition.MaxBMI)
	assert.Equal(t, 2*time.Minute, cfg.Sensor.ReadingTTL)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "UTC", cfg.School.TimeZone)
	assert.Equal(t, time.UTC, cfg.School.Location)
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SENSOR_READING_TTL", "30s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/health")
	t.Setenv("REDIS_URL", "redis://cache:6380/2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Sensor.ReadingTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "postgres://u:p@db:5432/health", cfg.Database.URL)
	assert.Equal(t, "redis://cache:6380/2", cfg.Redis.URL)
}

func TestLoadFromDotEnvFile(t *testing.T) {
	chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("DB_NAME=clinic\nNUTRITION_MAX_BMI=80\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("DB_NAME")
		_ = os.Unsetenv("NUTRITION_MAX_BMI")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "clinic", cfg.Database.Name)
	assert.Equal(t, 80.0, cfg.Nutrition.MaxBMI)
}

func TestLoadRejectsInvertedBMIWindow(t *testing.T) {
	chdirTemp(t)
	t.Setenv("NUTRITION_MIN_BMI", "50")
	t.Setenv("NUTRITION_MAX_BMI", "10")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadSchoolTimeZone(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SCHOOL_TIMEZONE", "Asia/Jakarta")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.School.Location)
	assert.Equal(t, "Asia/Jakarta", cfg.School.Location.String())

	instant := time.Date(2026, 3, 31, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, instant.In(cfg.School.Location).Day())
}

func TestLoadRejectsUnknownTimeZone(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SCHOOL_TIMEZONE", "Mars/Olympus_Mons")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHOOL_TIMEZONE")
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 3*time.Second, parseDuration("3s", time.Minute))
}
