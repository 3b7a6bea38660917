package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("FACTRELAY_TEST_TOKEN", "secret123")
	defer os.Unsetenv("FACTRELAY_TEST_TOKEN")

	cases := []struct {
		in, want string
	}{
		{"${FACTRELAY_TEST_TOKEN}", "secret123"},
		{"${FACTRELAY_TEST_UNSET:-fallback}", "fallback"},
		{"${FACTRELAY_TEST_TOKEN:-fallback}", "secret123"},
		{"${FACTRELAY_TEST_UNSET}", "${FACTRELAY_TEST_UNSET}"},
		{"plain text", "plain text"},
		{"prefix ${FACTRELAY_TEST_TOKEN} suffix", "prefix secret123 suffix"},
	}
	for _, tc := range cases {
		if got := ExpandEnvVars(tc.in); got != tc.want {
			t.Errorf("ExpandEnvVars(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadJSON(t *testing.T) {
	os.Setenv("FACTRELAY_TEST_BOT", "123:abc")
	defer os.Unsetenv("FACTRELAY_TEST_BOT")

	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"agent": {"baseUrl": "http://agent:8000", "timeoutSeconds": 120},
		"channels": {"telegram": {"enabled": true, "botToken": "${FACTRELAY_TEST_BOT}"}}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Agent.BaseURL != "http://agent:8000" {
		t.Errorf("unexpected baseUrl: %q", cfg.Agent.BaseURL)
	}
	if cfg.Agent.TimeoutSeconds != 120 {
		t.Errorf("unexpected timeout: %d", cfg.Agent.TimeoutSeconds)
	}
	if cfg.Channels.Telegram.BotToken != "123:abc" {
		t.Errorf("env var not expanded: %q", cfg.Channels.Telegram.BotToken)
	}
	// Untouched sections keep their defaults.
	if cfg.Agent.MaxAttempts != 3 {
		t.Errorf("defaults not applied: maxAttempts = %d", cfg.Agent.MaxAttempts)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
agent:
  baseUrl: http://agent:8000
channels:
  whatsapp:
    enabled: true
    accessToken: tok
    verifyToken: vt
    phoneNumberId: "100"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Channels.WhatsApp.Enabled || cfg.Channels.WhatsApp.PhoneNumberID != "100" {
		t.Errorf("yaml not parsed: %+v", cfg.Channels.WhatsApp)
	}
}

func TestValidateRejectsEnabledChannelWithoutSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.WhatsApp.Enabled = true

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"accessToken", "verifyToken", "phoneNumberId"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error must name %s, got: %v", field, err)
		}
	}
}

func TestValidateTelegramToken(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Fatal("enabled telegram without a bot token must not validate")
	}
	cfg.Channels.Telegram.BotToken = "123:abc"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateBounds(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 99999
	cfg.Agent.MaxAttempts = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "server.port") || !strings.Contains(err.Error(), "maxAttempts") {
		t.Errorf("error must list every violation: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	if err := Save(path, Defaults()); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Agent.TimeoutSeconds != Defaults().Agent.TimeoutSeconds {
		t.Errorf("round trip changed agent timeout: %d", cfg.Agent.TimeoutSeconds)
	}
}
