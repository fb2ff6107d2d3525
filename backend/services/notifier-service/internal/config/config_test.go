package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresWebhookURL(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TEAMS_WEBHOOK_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without webhook url")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TEAMS_WEBHOOK_URL", "https://example.invalid/hook")
	t.Setenv("PORT", "8088")
	t.Setenv("ENDING_SOON_LOWER_SECONDS", "270")
	t.Setenv("ENDING_SOON_UPPER_SECONDS", "330")
	t.Setenv("NOTIFY_STRICT_STATUS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.HTTPAddress(); got != ":8088" {
		t.Errorf("HTTPAddress: got %q, want :8088", got)
	}
	lower, upper := cfg.EndingSoonWindow()
	if lower != 270*time.Second || upper != 330*time.Second {
		t.Errorf("window: got (%v, %v)", lower, upper)
	}
	if !cfg.Push.StrictStatus {
		t.Error("expected strict status")
	}
	if cfg.Redis.KeyPrefix != "stations" {
		t.Errorf("key prefix: got %q", cfg.Redis.KeyPrefix)
	}
	if cfg.Webhook.Timeout != 10*time.Second {
		t.Errorf("webhook timeout: got %v", cfg.Webhook.Timeout)
	}
}

func TestLoadDurationAndListOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TEAMS_WEBHOOK_URL", "https://example.invalid/hook")
	t.Setenv("NOTIFIER_WEBHOOK_TIMEOUT", "2500ms")
	t.Setenv("NOTIFIER_WS_ALLOWED_ORIGINS", "https://admin.example, https://ops.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Webhook.Timeout != 2500*time.Millisecond {
		t.Errorf("webhook timeout: got %v", cfg.Webhook.Timeout)
	}
	origins := cfg.WebSocket.AllowedOrigins
	if len(origins) != 2 || origins[0] != "https://admin.example" || origins[1] != "https://ops.example" {
		t.Errorf("allowed origins: got %v", origins)
	}
}

func TestLoadFileDuration(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("NOTIFIER_WEBHOOK_TIMEOUT", "")
	os.Unsetenv("NOTIFIER_WEBHOOK_TIMEOUT")
	t.Setenv("TEAMS_WEBHOOK_URL", "")
	os.Unsetenv("TEAMS_WEBHOOK_URL")
	path := filepath.Join(t.TempDir(), "notifier.yaml")
	body := "webhook:\n  url: https://example.invalid/hook\n  timeout: 3s\nwebsocket:\n  allowedOrigins: [https://admin.example]\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Webhook.Timeout != 3*time.Second {
		t.Errorf("webhook timeout: got %v", cfg.Webhook.Timeout)
	}
	if len(cfg.WebSocket.AllowedOrigins) != 1 {
		t.Errorf("allowed origins: got %v", cfg.WebSocket.AllowedOrigins)
	}
}

func TestValidateRejectsZeroTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Webhook.URL = "https://example.invalid/hook"
	cfg.Webhook.Timeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero webhook timeout")
	}
}

func TestValidateRejectsEmptyWindow(t *testing.T) {
	cfg := Defaults()
	cfg.Webhook.URL = "https://example.invalid/hook"
	cfg.Rules.EndingSoonLowerSeconds = 360
	cfg.Rules.EndingSoonUpperSeconds = 360
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty window")
	}
}

func TestReadSkipsValidation(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TEAMS_WEBHOOK_URL", "")
	t.Setenv("NOTIFIER_REDIS_ADDR", "redis:6380")

	cfg, err := Read("")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Errorf("redis addr: got %q", cfg.Redis.Addr)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("validate should still reject a missing webhook url")
	}
}
