package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	CompanionBaseURL string
	CompanionWSURL   string
	LogLevel         string
	DBPath           string
	PageSize         int
	RefreshInterval  time.Duration
	FetchTimeout     time.Duration
	FetchRetries     int
	CacheMaxEvents   int
	CacheMaxPrompts  int
	LinkThreshold    float64
	TimelineLimit    int
}

// fileConfig mirrors the optional ~/.pulseboard/config.toml. Env vars win.
type fileConfig struct {
	CompanionBaseURL string  `toml:"companion_base_url"`
	CompanionWSURL   string  `toml:"companion_ws_url"`
	LogLevel         string  `toml:"log_level"`
	DBPath           string  `toml:"db_path"`
	PageSize         int     `toml:"page_size"`
	RefreshSeconds   int     `toml:"refresh_seconds"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	Retries          int     `toml:"retries"`
	CacheMaxEvents   int     `toml:"cache_max_events"`
	CacheMaxPrompts  int     `toml:"cache_max_prompts"`
	LinkThreshold    float64 `toml:"link_threshold"`
	TimelineLimit    int     `toml:"timeline_limit"`
}

var (
	cacheTTL   = 10 * time.Second
	nowFunc    = time.Now
	cacheMu    sync.RWMutex
	cachedCfg  Config
	cachedAt   time.Time
	cacheValid bool
)

func LoadConfig() Config {
	cfg := load()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = nowFunc()
	cacheValid = true
	cacheMu.Unlock()
	return cfg
}

func GetConfig() *Config {
	now := nowFunc()
	cacheMu.RLock()
	valid := cacheValid && now.Sub(cachedAt) < cacheTTL
	if valid {
		out := cachedCfg
		cacheMu.RUnlock()
		return &out
	}
	cacheMu.RUnlock()

	cfg := load()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = now
	cacheValid = true
	cacheMu.Unlock()

	out := cfg
	return &out
}

func load() Config {
	cfg := defaults()
	applyFile(&cfg, configFilePath())
	applyEnv(&cfg)
	return cfg
}

func defaults() Config {
	return Config{
		CompanionBaseURL: "http://127.0.0.1:43917",
		CompanionWSURL:   "ws://127.0.0.1:43917/ws",
		LogLevel:         "info",
		DBPath:           defaultDBPath(),
		PageSize:         500,
		RefreshInterval:  120 * time.Second,
		FetchTimeout:     20 * time.Second,
		FetchRetries:     1,
		CacheMaxEvents:   20000,
		CacheMaxPrompts:  10000,
		LinkThreshold:    0.2,
		TimelineLimit:    100,
	}
}

func applyFile(cfg *Config, path string) {
	if path == "" {
		return
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return
	}
	if fc.CompanionBaseURL != "" {
		cfg.CompanionBaseURL = fc.CompanionBaseURL
	}
	if fc.CompanionWSURL != "" {
		cfg.CompanionWSURL = fc.CompanionWSURL
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.DBPath != "" {
		cfg.DBPath = fc.DBPath
	}
	if fc.PageSize > 0 {
		cfg.PageSize = fc.PageSize
	}
	if fc.RefreshSeconds > 0 {
		cfg.RefreshInterval = time.Duration(fc.RefreshSeconds) * time.Second
	}
	if fc.TimeoutSeconds > 0 {
		cfg.FetchTimeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	if fc.Retries > 0 {
		cfg.FetchRetries = fc.Retries
	}
	if fc.CacheMaxEvents > 0 {
		cfg.CacheMaxEvents = fc.CacheMaxEvents
	}
	if fc.CacheMaxPrompts > 0 {
		cfg.CacheMaxPrompts = fc.CacheMaxPrompts
	}
	if fc.LinkThreshold > 0 {
		cfg.LinkThreshold = fc.LinkThreshold
	}
	if fc.TimelineLimit > 0 {
		cfg.TimelineLimit = fc.TimelineLimit
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PULSEBOARD_COMPANION_URL"); v != "" {
		cfg.CompanionBaseURL = v
	}
	if v := os.Getenv("PULSEBOARD_COMPANION_WS_URL"); v != "" {
		cfg.CompanionWSURL = v
	}
	if v := os.Getenv("PULSEBOARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PULSEBOARD_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if n := atoiOrDefault(os.Getenv("PULSEBOARD_PAGE_SIZE"), 0); n > 0 {
		cfg.PageSize = n
	}
	if n := atoiOrDefault(os.Getenv("PULSEBOARD_REFRESH_SECONDS"), 0); n > 0 {
		cfg.RefreshInterval = time.Duration(n) * time.Second
	}
	if n := atoiOrDefault(os.Getenv("PULSEBOARD_TIMEOUT_SECONDS"), 0); n > 0 {
		cfg.FetchTimeout = time.Duration(n) * time.Second
	}
	if n := atoiOrDefault(os.Getenv("PULSEBOARD_RETRIES"), 0); n > 0 {
		cfg.FetchRetries = n
	}
	if n := atoiOrDefault(os.Getenv("PULSEBOARD_CACHE_MAX_EVENTS"), 0); n > 0 {
		cfg.CacheMaxEvents = n
	}
	if n := atoiOrDefault(os.Getenv("PULSEBOARD_CACHE_MAX_PROMPTS"), 0); n > 0 {
		cfg.CacheMaxPrompts = n
	}
	if f := atofOrDefault(os.Getenv("PULSEBOARD_LINK_THRESHOLD"), 0); f > 0 {
		cfg.LinkThreshold = f
	}
	if n := atoiOrDefault(os.Getenv("PULSEBOARD_TIMELINE_LIMIT"), 0); n > 0 {
		cfg.TimelineLimit = n
	}
}

func configFilePath() string {
	if v := os.Getenv("PULSEBOARD_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".pulseboard", "config.toml")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Clean("pulseboard.db")
	}
	return filepath.Join(home, ".pulseboard", "pulseboard.db")
}

func atofOrDefault(v string, fallback float64) float64 {
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func atoiOrDefault(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	return n
}
