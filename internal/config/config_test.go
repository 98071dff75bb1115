package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
telegram:
  token: "123:abc"
  admin_user_ids: [42]
  poll_timeout: 10s
logging:
  level: debug
  console: true
storage:
  path: ./data/test.db
  busy_timeout: 5s
broadcast:
  batch_size: 50
  batch_delay: 1s
  progress_every: 5
  rate_per_sec: 25
  send_timeout: 30s
session:
  ttl: 10m
maintenance:
  enabled: true
  schedule: "0 4 * * *"
  retention: 720h
`

func TestParseFull(t *testing.T) {
	cfg, err := parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if !cfg.Telegram.IsAdmin(42) || cfg.Telegram.IsAdmin(43) {
		t.Fatal("admin list not honored")
	}
	if cfg.Broadcast.BatchDelay.Std() != time.Second {
		t.Fatalf("batch_delay = %v", cfg.Broadcast.BatchDelay.Std())
	}
	if cfg.Session.TTL.Std() != 10*time.Minute {
		t.Fatalf("session ttl = %v", cfg.Session.TTL.Std())
	}
	if cfg.Maintenance.Retention.Std() != 720*time.Hour {
		t.Fatalf("retention = %v", cfg.Maintenance.Retention.Std())
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]byte("telegram:\n  token: t\n  admin_user_ids: [1]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("default level = %q", cfg.Logging.Level)
	}
	if cfg.Storage.Path == "" {
		t.Fatal("storage path not defaulted")
	}
	if cfg.Maintenance.Schedule != "0 4 * * *" {
		t.Fatalf("default schedule = %q", cfg.Maintenance.Schedule)
	}
	if cfg.Maintenance.Retention.Std() != 90*24*time.Hour {
		t.Fatalf("default retention = %v", cfg.Maintenance.Retention.Std())
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := parse([]byte("telegram:\n  token: t\n  admin_user_ids: [1]\n  legacy_owner: 5\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	_, err := parse([]byte("telegram:\n  token: t\n  admin_user_ids: [1]\nbroadcast:\n  batch_delay: soon\n"))
	if err == nil || !strings.Contains(err.Error(), "duration") {
		t.Fatalf("err = %v, want duration parse error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing token", yaml: "telegram:\n  admin_user_ids: [1]\n"},
		{name: "no admins", yaml: "telegram:\n  token: t\n"},
		{name: "negative rate", yaml: "telegram:\n  token: t\n  admin_user_ids: [1]\nbroadcast:\n  rate_per_sec: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse([]byte(tt.yaml)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnvTokenOverride(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	cfg, err := parse([]byte("telegram:\n  admin_user_ids: [1]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("token = %q, want env override", cfg.Telegram.Token)
	}
}
