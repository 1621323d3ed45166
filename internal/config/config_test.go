package config

import (
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Port != "8080" {
		t.Fatalf("Port=%q want=8080", cfg.Port)
	}
	if cfg.SecretBackend != "redis" {
		t.Fatalf("SecretBackend=%q want=redis", cfg.SecretBackend)
	}
	if cfg.TelegramTokenPath != "/telegram-vps-bot/telegram-token" {
		t.Fatalf("TelegramTokenPath=%q unexpected", cfg.TelegramTokenPath)
	}
	if cfg.CredentialsPrefix != "/telegram-vps-bot/credentials/" {
		t.Fatalf("CredentialsPrefix=%q unexpected", cfg.CredentialsPrefix)
	}
	if cfg.ACLPath != "/telegram-vps-bot/acl-config" {
		t.Fatalf("ACLPath=%q unexpected", cfg.ACLPath)
	}
	if cfg.BitLaunchBaseURL != "https://app.bitlaunch.io/api" {
		t.Fatalf("BitLaunchBaseURL=%q unexpected", cfg.BitLaunchBaseURL)
	}
	if cfg.KamateraBaseURL != "https://cloudcli.cloudwm.com" {
		t.Fatalf("KamateraBaseURL=%q unexpected", cfg.KamateraBaseURL)
	}
	if cfg.ConcurrencyLimit != 50 {
		t.Fatalf("ConcurrencyLimit=%d want=50", cfg.ConcurrencyLimit)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Fatalf("RateLimitPerMinute=%d want=120", cfg.RateLimitPerMinute)
	}
}

func TestApplyHardcodedOverridesValues(t *testing.T) {
	cfg := Config{
		RequestTimeout: 999,
	}
	ApplyHardcoded(&cfg)

	if cfg.RequestTimeout != 30 {
		t.Fatalf("RequestTimeout=%d want=30", cfg.RequestTimeout)
	}
}

func TestApplyDefaultsPreservesConfigurableFields(t *testing.T) {
	cfg := Config{
		Port:        "9000",
		RedisAddr:   "redis:6380",
		RedisPrefix: "other:",
		ACLPath:     "/custom/acl",
	}
	ApplyDefaults(&cfg)

	if cfg.Port != "9000" {
		t.Fatalf("Port=%q want=9000", cfg.Port)
	}
	if cfg.RedisAddr != "redis:6380" {
		t.Fatalf("RedisAddr=%q want=redis:6380", cfg.RedisAddr)
	}
	if cfg.RedisPrefix != "other:" {
		t.Fatalf("RedisPrefix=%q want=other:", cfg.RedisPrefix)
	}
	if cfg.ACLPath != "/custom/acl" {
		t.Fatalf("ACLPath=%q want=/custom/acl", cfg.ACLPath)
	}
}
