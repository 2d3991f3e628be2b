// Package config loads timejump settings from the environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nainya/timejump/pkg/daterange"
)

// Config holds all timejump configuration.
type Config struct {
	Server   ServerConfig
	Timeline TimelineConfig
	Journal  JournalConfig
	Search   SearchConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// TimelineConfig holds timeline source settings.
type TimelineConfig struct {
	Path     string // JSON timeline file loaded at startup; empty starts empty
	Timezone string // IANA name or "Local"
}

// JournalConfig holds mutation journal settings.
type JournalConfig struct {
	Path            string // empty disables journaling
	Sync            bool   // fsync after every entry
	CompactInterval time.Duration
	CompactMinBytes int64
}

// SearchConfig holds resolver settings.
type SearchConfig struct {
	DefaultScale string
	ResultLimit  int // 0 means unlimited
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Addr:            getenv("TIMEJUMP_ADDR", ":8080"),
			ShutdownTimeout: getenvDuration("TIMEJUMP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Timeline: TimelineConfig{
			Path:     os.Getenv("TIMEJUMP_TIMELINE"),
			Timezone: getenv("TIMEJUMP_TIMEZONE", "Local"),
		},
		Journal: JournalConfig{
			Path:            os.Getenv("TIMEJUMP_JOURNAL"),
			Sync:            getenvBool("TIMEJUMP_JOURNAL_SYNC", true),
			CompactInterval: getenvDuration("TIMEJUMP_JOURNAL_COMPACT_INTERVAL", 10*time.Minute),
			CompactMinBytes: int64(getenvInt("TIMEJUMP_JOURNAL_COMPACT_MIN_BYTES", 1<<20)),
		},
		Search: SearchConfig{
			DefaultScale: getenv("TIMEJUMP_DEFAULT_SCALE", string(daterange.ScaleMonth)),
			ResultLimit:  getenvInt("TIMEJUMP_RESULT_LIMIT", 0),
		},
		Log: LogConfig{
			Level:  getenv("TIMEJUMP_LOG_LEVEL", "info"),
			Pretty: getenvBool("TIMEJUMP_LOG_PRETTY", false),
		},
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server address is empty"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %v", c.Server.ShutdownTimeout))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Scale(); err != nil {
		errs = append(errs, err)
	}
	if c.Journal.Path != "" && c.Journal.CompactInterval <= 0 {
		errs = append(errs, fmt.Errorf("journal compact interval must be positive, got %v", c.Journal.CompactInterval))
	}
	if c.Search.ResultLimit < 0 {
		errs = append(errs, fmt.Errorf("result limit must not be negative, got %d", c.Search.ResultLimit))
	}
	return errors.Join(errs...)
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timeline.Timezone == "" || strings.EqualFold(c.Timeline.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timeline.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timeline.Timezone, err)
	}
	return loc, nil
}

// Scale resolves the configured default scale.
func (c Config) Scale() (daterange.Scale, error) {
	return daterange.ParseScale(c.Search.DefaultScale)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
