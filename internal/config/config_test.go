package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"PULSEBOARD_COMPANION_URL", "PULSEBOARD_COMPANION_WS_URL",
		"PULSEBOARD_LOG_LEVEL", "PULSEBOARD_DB_PATH", "PULSEBOARD_CONFIG",
		"PULSEBOARD_PAGE_SIZE", "PULSEBOARD_REFRESH_SECONDS",
		"PULSEBOARD_TIMEOUT_SECONDS", "PULSEBOARD_RETRIES",
		"PULSEBOARD_CACHE_MAX_EVENTS", "PULSEBOARD_CACHE_MAX_PROMPTS",
		"PULSEBOARD_LINK_THRESHOLD", "PULSEBOARD_TIMELINE_LIMIT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateEnv(t)
	cfg := LoadConfig()
	if cfg.CompanionBaseURL != "http://127.0.0.1:43917" {
		t.Fatalf("base url: %q", cfg.CompanionBaseURL)
	}
	if cfg.CompanionWSURL != "ws://127.0.0.1:43917/ws" {
		t.Fatalf("ws url: %q", cfg.CompanionWSURL)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level: %q", cfg.LogLevel)
	}
	if cfg.PageSize != 500 || cfg.RefreshInterval != 120*time.Second {
		t.Fatalf("sync defaults: %+v", cfg)
	}
	if cfg.FetchTimeout != 20*time.Second || cfg.FetchRetries != 1 {
		t.Fatalf("fetch defaults: %+v", cfg)
	}
	if cfg.LinkThreshold != 0.2 || cfg.TimelineLimit != 100 {
		t.Fatalf("view defaults: %+v", cfg)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PULSEBOARD_COMPANION_URL", "http://10.0.0.5:9000")
	t.Setenv("PULSEBOARD_LOG_LEVEL", "debug")
	t.Setenv("PULSEBOARD_PAGE_SIZE", "250")
	t.Setenv("PULSEBOARD_REFRESH_SECONDS", "30")
	t.Setenv("PULSEBOARD_RETRIES", "3")

	cfg := LoadConfig()
	if cfg.CompanionBaseURL != "http://10.0.0.5:9000" {
		t.Fatalf("base url: %q", cfg.CompanionBaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level: %q", cfg.LogLevel)
	}
	if cfg.PageSize != 250 || cfg.RefreshInterval != 30*time.Second || cfg.FetchRetries != 3 {
		t.Fatalf("numeric overrides: %+v", cfg)
	}
}

func TestLoadConfig_LinkThresholdEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PULSEBOARD_LINK_THRESHOLD", "0.35")
	if cfg := LoadConfig(); cfg.LinkThreshold != 0.35 {
		t.Fatalf("link threshold override: %v", cfg.LinkThreshold)
	}

	t.Setenv("PULSEBOARD_LINK_THRESHOLD", "not-a-number")
	if cfg := LoadConfig(); cfg.LinkThreshold != 0.2 {
		t.Fatalf("invalid threshold must keep the default, got %v", cfg.LinkThreshold)
	}
}

func TestLoadConfig_InvalidNumbersIgnored(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PULSEBOARD_PAGE_SIZE", "not-a-number")
	cfg := LoadConfig()
	if cfg.PageSize != 500 {
		t.Fatalf("invalid number must keep the default, got %d", cfg.PageSize)
	}
}

func TestLoadConfig_TOMLFileLayer(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
companion_base_url = "http://file-host:1234"
log_level = "warn"
page_size = 42
link_threshold = 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PULSEBOARD_CONFIG", path)

	cfg := LoadConfig()
	if cfg.CompanionBaseURL != "http://file-host:1234" || cfg.LogLevel != "warn" {
		t.Fatalf("file layer not applied: %+v", cfg)
	}
	if cfg.PageSize != 42 || cfg.LinkThreshold != 0.5 {
		t.Fatalf("file numerics not applied: %+v", cfg)
	}

	// Env vars take precedence over the file.
	t.Setenv("PULSEBOARD_LOG_LEVEL", "debug")
	cfg = LoadConfig()
	if cfg.LogLevel != "debug" {
		t.Fatalf("env must win over file, got %q", cfg.LogLevel)
	}
}

func TestLoadConfig_MalformedTOMLIgnored(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("{{{ not toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PULSEBOARD_CONFIG", path)
	cfg := LoadConfig()
	if cfg.CompanionBaseURL != "http://127.0.0.1:43917" {
		t.Fatalf("malformed file must fall back to defaults: %+v", cfg)
	}
}

func TestGetConfig_TTLCache(t *testing.T) {
	isolateEnv(t)
	now := time.Now()
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	t.Setenv("PULSEBOARD_LOG_LEVEL", "debug")
	first := LoadConfig()
	if first.LogLevel != "debug" {
		t.Fatalf("initial load: %q", first.LogLevel)
	}

	// Inside the TTL the cached value is served even after env changes.
	t.Setenv("PULSEBOARD_LOG_LEVEL", "error")
	second := GetConfig()
	if second.LogLevel != "debug" {
		t.Fatalf("cached value expected inside the TTL, got %q", second.LogLevel)
	}

	now = now.Add(cacheTTL + time.Second)
	third := GetConfig()
	if third.LogLevel != "error" {
		t.Fatalf("expired cache must reload, got %q", third.LogLevel)
	}
}
