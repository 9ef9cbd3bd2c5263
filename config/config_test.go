package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TokenTTL() != 15*time.Minute {
		t.Errorf("TokenTTL() = %v, want 15m", cfg.TokenTTL())
	}
	if cfg.SessionTTL() != 7*24*time.Hour {
		t.Errorf("SessionTTL() = %v, want 168h", cfg.SessionTTL())
	}
	if cfg.EventBufferSize != 500 {
		t.Errorf("EventBufferSize = %d, want 500", cfg.EventBufferSize)
	}
	if cfg.Keepalive() != 15*time.Second {
		t.Errorf("Keepalive() = %v, want 15s", cfg.Keepalive())
	}
	if len(cfg.AllowedEmails) != 0 {
		t.Errorf("AllowedEmails = %v, want empty", cfg.AllowedEmails)
	}
	if cfg.ShowAllowlistError {
		t.Error("ShowAllowlistError should default to false")
	}
}

func TestLoad_NormalizesAllowList(t *testing.T) {
	t.Setenv("ALLOWED_EMAILS", " Admin@Example.com ,,ops@example.com, ")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"admin@example.com", "ops@example.com"}
	if len(cfg.AllowedEmails) != len(want) {
		t.Fatalf("AllowedEmails = %v, want %v", cfg.AllowedEmails, want)
	}
	for i := range want {
		if cfg.AllowedEmails[i] != want[i] {
			t.Errorf("AllowedEmails[%d] = %q, want %q", i, cfg.AllowedEmails[i], want[i])
		}
	}
}

func TestLoad_ProductionRequiresResend(t *testing.T) {
	t.Setenv("ENV", "production")

	if _, err := config.Load(); err == nil {
		t.Fatal("want error when RESEND_API_KEY is missing in production")
	}

	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("RESEND_FROM", "no-reply@example.com")
	if _, err := config.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("EVENT_BUFFER_SIZE", "0")
	if _, err := config.Load(); err == nil {
		t.Error("want error for zero buffer size")
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug"}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
	cfg.LogLevel = "info"
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, want info", cfg.SlogLevel())
	}
}
