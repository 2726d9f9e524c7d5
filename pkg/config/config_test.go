package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diningmenu.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 7*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.LocationsTimeout)
	assert.Equal(t, 15*time.Second, cfg.MenuTimeout)
	assert.Equal(t, BackendFile, cfg.Snapshot.Backend)
	assert.True(t, cfg.SingleFlight)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://nutrition.sa.ucsc.edu", cfg.BaseURL)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
base_url = "http://localhost:8080"
cache_ttl = "90s"
single_flight = false

[snapshot]
backend = "sqlite"
sqlite_path = "/tmp/snap.db"

[schedule]
mode = "interval"
interval = "6h"
delay = "250ms"
workers = 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.False(t, cfg.SingleFlight)
	assert.Equal(t, BackendSQLite, cfg.Snapshot.Backend)
	assert.Equal(t, "/tmp/snap.db", cfg.Snapshot.SQLitePath)
	assert.Equal(t, ModeInterval, cfg.Schedule.Mode)
	assert.Equal(t, 6*time.Hour, cfg.Schedule.Interval)
	assert.Equal(t, 250*time.Millisecond, cfg.Schedule.Delay)
	assert.Equal(t, 3, cfg.Schedule.Workers)
	// untouched fields keep defaults
	assert.Equal(t, 15*time.Second, cfg.MenuTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, `cache_ttl = "90s"`)
	t.Setenv("DINING_CACHE_TTL", "2000")
	t.Setenv("SNAPSHOT_DIR", "/var/lib/dining")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.CacheTTL)
	assert.Equal(t, "/var/lib/dining", cfg.Snapshot.Dir)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeFile(t, `menu_timeout = "soon"`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "menu_timeout")
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Snapshot.Backend = "redis" }},
		{"bad base url", func(c *Config) { c.BaseURL = "not a url" }},
		{"zero ttl", func(c *Config) { c.CacheTTL = 0 }},
		{"bad schedule time", func(c *Config) { c.Schedule.TimeHHMM = "25:99" }},
		{"too many workers", func(c *Config) { c.Schedule.Workers = 100 }},
		{"unknown mode", func(c *Config) { c.Schedule.Mode = "hourly" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestScheduleLocationFallback(t *testing.T) {
	s := ScheduleConfig{Timezone: "Not/AZone"}
	loc := s.Location()
	require.NotNil(t, loc)
}
