package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/therapy")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/therapy", cfg.DBDSN)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, 256, cfg.CalendarCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.CalendarCacheTTL)
	assert.Equal(t, 20, cfg.AgendaHour)
	assert.False(t, cfg.StrictLunch)
	assert.Empty(t, cfg.RedisAddr)
	assert.NotNil(t, cfg.Location)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/therapy")
	t.Setenv("ENV", "production")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CALENDAR_CACHE_TTL", "30s")
	t.Setenv("AGENDA_HOUR", "7")
	t.Setenv("LOCATION", "UTC")
	t.Setenv("STRICT_LUNCH", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.CalendarCacheTTL)
	assert.Equal(t, 7, cfg.AgendaHour)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.StrictLunch)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing dsn", map[string]string{"DB_DSN": ""}, "DB_DSN is required"},
		{"bad agenda hour", map[string]string{"AGENDA_HOUR": "24"}, "AGENDA_HOUR"},
		{"non numeric cache size", map[string]string{"CALENDAR_CACHE_SIZE": "many"}, "CALENDAR_CACHE_SIZE"},
		{"zero cache size", map[string]string{"CALENDAR_CACHE_SIZE": "0"}, "CALENDAR_CACHE_SIZE"},
		{"bad ttl", map[string]string{"CALENDAR_CACHE_TTL": "soon"}, "CALENDAR_CACHE_TTL"},
		{"zero ttl", map[string]string{"CALENDAR_CACHE_TTL": "0s"}, "CALENDAR_CACHE_TTL must be positive"},
		{"negative ttl", map[string]string{"CALENDAR_CACHE_TTL": "-1m"}, "CALENDAR_CACHE_TTL must be positive"},
		{"unknown zone", map[string]string{"LOCATION": "Mars/Olympus"}, "LOCATION"},
		{"bad strict lunch", map[string]string{"STRICT_LUNCH": "maybe"}, "STRICT_LUNCH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DSN", "postgres://localhost/therapy")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
