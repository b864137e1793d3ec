package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("WEDDINGBELL_JWT_SECRET", "")
	t.Setenv("FCM_PROJECT_ID", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("WEDDINGBELL_INVITES_REQUIRE_ADMIN", "false")
	t.Setenv("WEDDINGBELL_PORT", "8080")
	t.Setenv("WEDDINGBELL_DB_PATH", "weddingbell.db")
	t.Setenv("WHATSAPP_MODE", "Cloud")
	t.Setenv("FCM_CONCURRENCY", "16")
	t.Setenv("WEDDINGBELL_SEND_TIMEOUT", "10s")
	t.Setenv("WEDDINGBELL_SWEEP_SCHEDULE", "*/5 * * * *")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WhatsApp.Mode != ModeCloud {
		t.Errorf("Mode = %q, want cloud", cfg.WhatsApp.Mode)
	}
	if cfg.SendTimeout != 10*time.Second {
		t.Errorf("SendTimeout = %v, want 10s", cfg.SendTimeout)
	}
	if cfg.Push.Enabled() {
		t.Error("push should be disabled without credentials")
	}
	if cfg.InvitesRequireAdmin {
		t.Error("InvitesRequireAdmin should default to false")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "forty")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_BAD_DURATION", "soon")
	t.Setenv("TEST_BOOL", "true")

	if got := getEnvAsInt("TEST_INT", 1); got != 42 {
		t.Errorf("getEnvAsInt = %d, want 42", got)
	}
	if got := getEnvAsInt("TEST_BAD_INT", 7); got != 7 {
		t.Errorf("getEnvAsInt bad = %d, want default 7", got)
	}
	if got := getEnvAsInt("TEST_UNSET_INT", 3); got != 3 {
		t.Errorf("getEnvAsInt unset = %d, want 3", got)
	}
	if got := getEnvAsDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("getEnvAsDuration = %v, want 90s", got)
	}
	if got := getEnvAsDuration("TEST_BAD_DURATION", time.Minute); got != time.Minute {
		t.Errorf("getEnvAsDuration bad = %v, want 1m", got)
	}
	if !getEnvAsBool("TEST_BOOL", false) {
		t.Error("getEnvAsBool = false, want true")
	}
}

func validConfig() Config {
	return Config{
		Port:          "8080",
		DBPath:        "weddingbell.db",
		WhatsApp:      WhatsAppConfig{Mode: ModeCloud},
		Push:          PushConfig{Concurrency: 16},
		SendTimeout:   10 * time.Second,
		ChunkTimeout:  time.Minute,
		ClaimLease:    15 * time.Minute,
		SweepSchedule: "*/5 * * * *",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = "http" }, "WEDDINGBELL_PORT"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "WEDDINGBELL_JWT_SECRET"},
		{"bad mode", func(c *Config) { c.WhatsApp.Mode = "sms" }, "WHATSAPP_MODE"},
		{"zero concurrency", func(c *Config) { c.Push.Concurrency = 0 }, "FCM_CONCURRENCY"},
		{"bad schedule", func(c *Config) { c.SweepSchedule = "every five minutes" }, "WEDDINGBELL_SWEEP_SCHEDULE"},
		{"zero timeout", func(c *Config) { c.SendTimeout = 0 }, "timeouts"},
		{"missing credentials ok", func(c *Config) { c.WhatsApp.AccessToken = ""; c.Push.ProjectID = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestPushEnabled(t *testing.T) {
	p := PushConfig{ProjectID: "demo"}
	if p.Enabled() {
		t.Error("Enabled without credentials file")
	}
	p.CredentialsFile = "sa.json"
	if !p.Enabled() {
		t.Error("Enabled = false with project and credentials")
	}
}
