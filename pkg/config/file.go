package config

import (
	"fmt"
	"time"
)

// fileConfig is the TOML shape of Config. Durations are Go duration strings
// ("15s", "7m") and every field is optional.
type fileConfig struct {
	BaseURL          string `toml:"base_url"`
	SiteName         string `toml:"site_name"`
	UserAgent        string `toml:"user_agent"`
	LocationsTimeout string `toml:"locations_timeout"`
	MenuTimeout      string `toml:"menu_timeout"`
	MaxBodyBytes     int64  `toml:"max_body_bytes"`
	CacheTTL         string `toml:"cache_ttl"`
	SingleFlight     *bool  `toml:"single_flight"`
	LogLevel         string `toml:"log_level"`
	OTLPEndpoint     string `toml:"otlp_endpoint"`

	Snapshot struct {
		Backend    string `toml:"backend"`
		Dir        string `toml:"dir"`
		SQLitePath string `toml:"sqlite_path"`
	} `toml:"snapshot"`

	Schedule struct {
		Mode       string `toml:"mode"`
		Time       string `toml:"time"`
		Interval   string `toml:"interval"`
		Timezone   string `toml:"timezone"`
		RunAtStart *bool  `toml:"run_at_start"`
		Delay      string `toml:"delay"`
		Workers    int    `toml:"workers"`
	} `toml:"schedule"`
}

// apply copies every field set in the file over cfg.
func (fc *fileConfig) apply(cfg *Config) error {
	setString(&cfg.BaseURL, fc.BaseURL)
	setString(&cfg.SiteName, fc.SiteName)
	setString(&cfg.UserAgent, fc.UserAgent)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.OTLPEndpoint, fc.OTLPEndpoint)
	if fc.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = fc.MaxBodyBytes
	}
	if fc.SingleFlight != nil {
		cfg.SingleFlight = *fc.SingleFlight
	}

	setString(&cfg.Snapshot.Backend, fc.Snapshot.Backend)
	setString(&cfg.Snapshot.Dir, fc.Snapshot.Dir)
	setString(&cfg.Snapshot.SQLitePath, fc.Snapshot.SQLitePath)

	setString(&cfg.Schedule.Mode, fc.Schedule.Mode)
	setString(&cfg.Schedule.TimeHHMM, fc.Schedule.Time)
	setString(&cfg.Schedule.Timezone, fc.Schedule.Timezone)
	if fc.Schedule.RunAtStart != nil {
		cfg.Schedule.RunAtStart = *fc.Schedule.RunAtStart
	}
	if fc.Schedule.Workers > 0 {
		cfg.Schedule.Workers = fc.Schedule.Workers
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"locations_timeout", fc.LocationsTimeout, &cfg.LocationsTimeout},
		{"menu_timeout", fc.MenuTimeout, &cfg.MenuTimeout},
		{"cache_ttl", fc.CacheTTL, &cfg.CacheTTL},
		{"schedule.interval", fc.Schedule.Interval, &cfg.Schedule.Interval},
		{"schedule.delay", fc.Schedule.Delay, &cfg.Schedule.Delay},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
