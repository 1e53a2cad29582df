// Package config reads server settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	DBPath string
	// AutoMigrate applies the embedded migrations on start instead of
	// relying on dbmate.
	AutoMigrate bool

	APIURL            string
	APIEmail          string
	APIPassword       string
	APITimeout        time.Duration
	TokenTTL          time.Duration
	DetailConcurrency int

	// SyncInterval schedules backend syncs; zero leaves only manual passes.
	SyncInterval time.Duration

	LogLevel  slog.Level
	LogFormat string // "text" or "json"
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("error loading .env file", "err", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	c := &Config{
		Port:      or(getenv("PORT"), "8080"),
		DBPath:    or(getenv("DB_PATH"), "freight-reports.db"),
		APIURL:    or(getenv("API_URL"), getenv("REACT_APP_API_URL")),
		APIEmail:  getenv("API_EMAIL"),
		LogFormat: strings.ToLower(or(getenv("LOG_FORMAT"), "text")),
	}
	c.APIPassword = getenv("API_PASSWORD")

	var errs []error
	c.AutoMigrate = parse(getenv, "AUTO_MIGRATE", true, strconv.ParseBool, &errs)
	c.APITimeout = parse(getenv, "API_TIMEOUT", 30*time.Second, time.ParseDuration, &errs)
	c.TokenTTL = parse(getenv, "TOKEN_TTL", time.Hour, time.ParseDuration, &errs)
	c.SyncInterval = parse(getenv, "SYNC_INTERVAL", 0, time.ParseDuration, &errs)
	c.DetailConcurrency = parse(getenv, "DETAIL_CONCURRENCY", 4, strconv.Atoi, &errs)

	if raw := getenv("LOG_LEVEL"); raw != "" {
		if err := c.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}

	if c.APIURL == "" {
		errs = append(errs, errors.New("API_URL is required"))
	} else if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_URL %q is not an absolute URL", c.APIURL))
	}
	if (c.APIEmail == "") != (c.APIPassword == "") {
		errs = append(errs, errors.New("API_EMAIL and API_PASSWORD must be set together"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q: want text or json", c.LogFormat))
	}
	if c.DetailConcurrency < 1 {
		errs = append(errs, errors.New("DETAIL_CONCURRENCY must be at least 1"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// Logger builds the process logger described by the config.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parse[T any](getenv func(string) string, key string, def T, fn func(string) (T, error), errs *[]error) T {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	v, err := fn(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}
