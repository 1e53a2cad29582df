package config_test

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/csg33k/freight-reports/internal/config"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	c, err := config.FromEnv(env(map[string]string{"API_URL": "http://backend:3000"}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.Port != "8080" || c.DBPath != "freight-reports.db" || !c.AutoMigrate {
		t.Fatalf("config = %+v", c)
	}
	if c.APITimeout != 30*time.Second || c.TokenTTL != time.Hour || c.SyncInterval != 0 || c.DetailConcurrency != 4 {
		t.Fatalf("durations = %+v", c)
	}
	if c.LogLevel != slog.LevelInfo || c.LogFormat != "text" {
		t.Fatalf("logging = %v %s", c.LogLevel, c.LogFormat)
	}
}

func TestLegacyAPIURL(t *testing.T) {
	c, err := config.FromEnv(env(map[string]string{"REACT_APP_API_URL": "https://api.example.com"}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.APIURL != "https://api.example.com" {
		t.Fatalf("APIURL = %s", c.APIURL)
	}
}

func TestOverrides(t *testing.T) {
	c, err := config.FromEnv(env(map[string]string{
		"API_URL":            "http://backend:3000",
		"API_EMAIL":          "ops@example.com",
		"API_PASSWORD":       "secret",
		"SYNC_INTERVAL":      "15m",
		"DETAIL_CONCURRENCY": "8",
		"AUTO_MIGRATE":       "false",
		"LOG_LEVEL":          "debug",
		"LOG_FORMAT":         "JSON",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.SyncInterval != 15*time.Minute || c.DetailConcurrency != 8 || c.AutoMigrate {
		t.Fatalf("config = %+v", c)
	}
	if c.LogLevel != slog.LevelDebug || c.LogFormat != "json" {
		t.Fatalf("logging = %v %s", c.LogLevel, c.LogFormat)
	}
}

func TestErrorsAreCollected(t *testing.T) {
	_, err := config.FromEnv(env(map[string]string{
		"API_URL":       "not a url",
		"API_EMAIL":     "ops@example.com",
		"SYNC_INTERVAL": "often",
	}))
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"API_URL", "API_PASSWORD", "SYNC_INTERVAL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}
