package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the CLI configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	LogLevel    string `json:"log_level"`
	CacheSize   int    `json:"cache_size"`
	MaxDepth    int    `json:"max_depth"`
	MaxNodes    int    `json:"max_nodes"`
	MaxArrayLen int    `json:"max_array_len"`
	JournalPath string `json:"journal_path"` // empty disables the journal
}

func defaultConfig() Config {
	return Config{
		LogLevel:  "info",
		CacheSize: 128,
	}
}

func tickruleDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tickrule"
	}
	return filepath.Join(home, ".tickrule")
}

func settingsPath() string {
	return filepath.Join(tickruleDir(), "settings.json")
}

func loadConfig() Config {
	// Layer 0: .env in the working directory (ignore if missing).
	_ = godotenv.Load()

	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("TICKRULE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TICKRULE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheSize = n
		}
	}
	if v := os.Getenv("TICKRULE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDepth = n
		}
	}
	if v := os.Getenv("TICKRULE_MAX_NODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxNodes = n
		}
	}
	if v := os.Getenv("TICKRULE_MAX_ARRAY_LEN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxArrayLen = n
		}
	}
	if v := os.Getenv("TICKRULE_JOURNAL_PATH"); v != "" {
		cfg.JournalPath = v
	}

	return cfg
}
