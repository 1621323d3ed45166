// Package config loads process configuration from an optional JSON file
// plus environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"
)

// Config holds all runtime configuration for the bot server and tools.
type Config struct {
	Port         string `json:"port"`
	DebugEnabled bool   `json:"debug"`

	// Admin surface (audit tail websocket).
	AdminToken string `json:"admin_token"`

	// Secret backend: "redis" or "env".
	SecretBackend string `json:"secret_backend"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	RedisPrefix   string `json:"redis_prefix"`

	// Secret paths, kept compatible with the original deployment layout.
	TelegramTokenPath string `json:"telegram_token_path"`
	CredentialsPrefix string `json:"credentials_prefix"`
	ACLPath           string `json:"acl_path"`

	// Upstream base URLs, overridable for testing.
	TelegramBaseURL  string `json:"telegram_base_url"`
	BitLaunchBaseURL string `json:"bitlaunch_base_url"`
	KamateraBaseURL  string `json:"kamatera_base_url"`

	// Outbound call ceiling in seconds. Pinned by ApplyHardcoded.
	RequestTimeout int `json:"request_timeout"`

	ConcurrencyLimit   int `json:"concurrency_limit"`
	ConcurrencyTimeout int `json:"concurrency_timeout"`
	RateLimitPerMinute int `json:"rate_limit_per_minute"`

	AuditMaxLen int64 `json:"audit_max_len"`
}

// Load reads configuration from the given path (optional) and applies
// environment overrides and defaults. It returns the config and the path
// that was actually read, if any.
func Load(path string) (*Config, string, error) {
	cfg := &Config{}

	usedPath := ""
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", path, err)
		}
		usedPath = path
	}

	applyEnv(cfg)
	ApplyDefaults(cfg)
	ApplyHardcoded(cfg)
	return cfg, usedPath, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.AdminToken, "ADMIN_TOKEN")
	setString(&cfg.SecretBackend, "SECRET_BACKEND")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setInt(&cfg.RedisDB, "REDIS_DB")
	setString(&cfg.RedisPrefix, "REDIS_PREFIX")
	setString(&cfg.TelegramTokenPath, "SSM_TELEGRAM_TOKEN_PATH")
	setString(&cfg.CredentialsPrefix, "SSM_CREDENTIALS_PREFIX")
	setString(&cfg.ACLPath, "SSM_ACL_PATH")
	setString(&cfg.TelegramBaseURL, "TELEGRAM_BASE_URL")
	setString(&cfg.BitLaunchBaseURL, "BITLAUNCH_API_BASE_URL")
	setString(&cfg.KamateraBaseURL, "KAMATERA_API_BASE_URL")
	if v := os.Getenv("DEBUG"); v == "1" || v == "true" {
		cfg.DebugEnabled = true
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// ApplyDefaults fills unset fields with sensible defaults. Fields that are
// already set are preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.SecretBackend == "" {
		cfg.SecretBackend = "redis"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = "vpsbot:"
	}
	if cfg.TelegramTokenPath == "" {
		cfg.TelegramTokenPath = "/telegram-vps-bot/telegram-token"
	}
	if cfg.CredentialsPrefix == "" {
		cfg.CredentialsPrefix = "/telegram-vps-bot/credentials/"
	}
	if cfg.ACLPath == "" {
		cfg.ACLPath = "/telegram-vps-bot/acl-config"
	}
	if cfg.TelegramBaseURL == "" {
		cfg.TelegramBaseURL = "https://api.telegram.org"
	}
	if cfg.BitLaunchBaseURL == "" {
		cfg.BitLaunchBaseURL = "https://app.bitlaunch.io/api"
	}
	if cfg.KamateraBaseURL == "" {
		cfg.KamateraBaseURL = "https://cloudcli.cloudwm.com"
	}
	if cfg.ConcurrencyLimit <= 0 {
		cfg.ConcurrencyLimit = 50
	}
	if cfg.ConcurrencyTimeout <= 0 {
		cfg.ConcurrencyTimeout = 60
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 120
	}
	if cfg.AuditMaxLen <= 0 {
		cfg.AuditMaxLen = 10000
	}
}

// ApplyHardcoded pins values that must not drift regardless of what the
// config file says. The outbound call ceiling is a contract, not a knob.
func ApplyHardcoded(cfg *Config) {
	cfg.RequestTimeout = 30
}
