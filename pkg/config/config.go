// Package config loads pipeline settings from defaults, an optional TOML file,
// a .env file and the process environment, in that order of precedence (lowest first).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Snapshot backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Schedule modes.
const (
	ModeDaily    = "daily"
	ModeInterval = "interval"
	ModeOnce     = "once"
)

// DefaultUserAgent mimics a desktop browser so the listing site does not reject the request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// SnapshotConfig selects where resolved catalogs are persisted.
type SnapshotConfig struct {
	Backend    string `validate:"oneof=file sqlite"`
	Dir        string `validate:"required_if=Backend file"`
	SQLitePath string `validate:"required_if=Backend sqlite"`
}

// ScheduleConfig controls the background refresh loop.
type ScheduleConfig struct {
	Mode       string        `validate:"oneof=daily interval once"`
	TimeHHMM   string        `validate:"required_if=Mode daily"`
	Interval   time.Duration `validate:"required_if=Mode interval"`
	Timezone   string        `validate:"required"`
	RunAtStart bool
	// Delay is the minimum spacing between two per-location menu fetches.
	Delay   time.Duration `validate:"gte=0"`
	Workers int           `validate:"gte=1,lte=16"`
}

// Location returns the configured timezone, or America/Los_Angeles when it cannot be loaded.
func (s *ScheduleConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		loc, err = time.LoadLocation("America/Los_Angeles")
		if err != nil {
			return time.UTC
		}
	}
	return loc
}

// Config is the full pipeline configuration.
type Config struct {
	BaseURL          string        `validate:"required,url"`
	SiteName         string        `validate:"required"`
	UserAgent        string        `validate:"required"`
	LocationsTimeout time.Duration `validate:"gt=0"`
	MenuTimeout      time.Duration `validate:"gt=0"`
	MaxBodyBytes     int64         `validate:"gt=0"`
	CacheTTL         time.Duration `validate:"gt=0"`
	SingleFlight     bool
	LogLevel         string `validate:"omitempty,oneof=debug info warn error"`
	OTLPEndpoint     string
	Snapshot         SnapshotConfig
	Schedule         ScheduleConfig
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		BaseURL:          "https://nutrition.sa.ucsc.edu",
		SiteName:         "UC Santa Cruz Dining",
		UserAgent:        DefaultUserAgent,
		LocationsTimeout: 10 * time.Second,
		MenuTimeout:      15 * time.Second,
		MaxBodyBytes:     10 * 1024 * 1024,
		CacheTTL:         7 * time.Minute,
		SingleFlight:     true,
		LogLevel:         "info",
		Snapshot: SnapshotConfig{
			Backend:    BackendFile,
			Dir:        "data",
			SQLitePath: "data/snapshots.db",
		},
		Schedule: ScheduleConfig{
			Mode:     ModeDaily,
			TimeHHMM: "00:00",
			Interval: 24 * time.Hour,
			Timezone: "America/Los_Angeles",
			Delay:    time.Second,
			Workers:  1,
		},
	}
}

// Load builds the configuration. path may be empty, in which case no TOML file is read.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if err := fc.apply(cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints declared in struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Schedule.Mode == ModeDaily {
		if _, err := time.Parse("15:04", cfg.Schedule.TimeHHMM); err != nil {
			return fmt.Errorf("invalid config: schedule time %q: %w", cfg.Schedule.TimeHHMM, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.BaseURL = getEnv("DINING_BASE_URL", cfg.BaseURL)
	cfg.SiteName = getEnv("DINING_SITE_NAME", cfg.SiteName)
	cfg.UserAgent = getEnv("DINING_USER_AGENT", cfg.UserAgent)
	cfg.LocationsTimeout = getEnvDuration("DINING_LOCATIONS_TIMEOUT", cfg.LocationsTimeout)
	cfg.MenuTimeout = getEnvDuration("DINING_MENU_TIMEOUT", cfg.MenuTimeout)
	cfg.MaxBodyBytes = int64(getEnvInt("DINING_MAX_BODY_BYTES", int(cfg.MaxBodyBytes)))
	cfg.CacheTTL = getEnvDuration("DINING_CACHE_TTL", cfg.CacheTTL)
	cfg.SingleFlight = getEnvBool("DINING_SINGLE_FLIGHT", cfg.SingleFlight)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)

	cfg.Snapshot.Backend = getEnv("SNAPSHOT_BACKEND", cfg.Snapshot.Backend)
	cfg.Snapshot.Dir = getEnv("SNAPSHOT_DIR", cfg.Snapshot.Dir)
	cfg.Snapshot.SQLitePath = getEnv("SNAPSHOT_SQLITE_PATH", cfg.Snapshot.SQLitePath)

	cfg.Schedule.Mode = getEnv("SCHEDULE_MODE", cfg.Schedule.Mode)
	cfg.Schedule.TimeHHMM = getEnv("SCHEDULE_TIME", cfg.Schedule.TimeHHMM)
	cfg.Schedule.Interval = getEnvDuration("SCHEDULE_INTERVAL", cfg.Schedule.Interval)
	cfg.Schedule.Timezone = getEnv("TIMEZONE", cfg.Schedule.Timezone)
	cfg.Schedule.RunAtStart = getEnvBool("RUN_AT_START", cfg.Schedule.RunAtStart)
	cfg.Schedule.Delay = getEnvDuration("SCHEDULE_DELAY", cfg.Schedule.Delay)
	cfg.Schedule.Workers = getEnvInt("SCHEDULE_WORKERS", cfg.Schedule.Workers)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvDuration accepts Go duration strings ("15s") or a bare number of milliseconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
