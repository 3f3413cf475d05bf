package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"general": {"logLevel": "debug"},
		"database": {"path": "/tmp/agro.db"},
		"provider": {"model": "gpt-4o"}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.LogLevel != "debug" {
		t.Errorf("logLevel = %q", cfg.General.LogLevel)
	}
	if cfg.Provider.Model != "gpt-4o" {
		t.Errorf("model = %q", cfg.Provider.Model)
	}
	// Untouched sections keep their defaults.
	if cfg.Provider.APIBase != "https://api.openai.com/v1" {
		t.Errorf("apiBase = %q", cfg.Provider.APIBase)
	}
	if cfg.Classifier.Threshold != 0.5 {
		t.Errorf("threshold = %v", cfg.Classifier.Threshold)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("AGRO_TEST_KEY", "sk-123")
	os.Unsetenv("AGRO_TEST_MISSING")

	cases := []struct {
		in, want string
	}{
		{"${AGRO_TEST_KEY}", "sk-123"},
		{"${AGRO_TEST_MISSING:-fallback}", "fallback"},
		{"${AGRO_TEST_MISSING}", "${AGRO_TEST_MISSING}"},
		{"prefix-${AGRO_TEST_KEY}-suffix", "prefix-sk-123-suffix"},
	}
	for _, tc := range cases {
		if got := ExpandEnvVars(tc.in); got != tc.want {
			t.Errorf("ExpandEnvVars(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadExpandsEnvInValues(t *testing.T) {
	t.Setenv("AGRO_TEST_TOKEN", "tok-xyz")
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"whatsapp": {"accessToken": "${AGRO_TEST_TOKEN}"}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WhatsApp.AccessToken != "tok-xyz" {
		t.Errorf("accessToken = %q", cfg.WhatsApp.AccessToken)
	}
}

func TestValidateAccumulatesErrors(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "loud"
	cfg.Provider.Model = ""
	cfg.Classifier.Threshold = 1.5

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate accepted an invalid config")
	}
	msg := err.Error()
	for _, want := range []string{"logLevel", "provider.model", "classifier.threshold"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q lacks %q", msg, want)
		}
	}
}

func TestValidateWebhookPath(t *testing.T) {
	cfg := Defaults()
	cfg.WhatsApp.WebhookPath = "webhook"
	if err := Validate(cfg); err == nil {
		t.Error("relative webhook path was accepted")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Defaults()
	cfg.WhatsApp.PhoneNumberID = "12345"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.WhatsApp.PhoneNumberID != "12345" {
		t.Errorf("phoneNumberId = %q", loaded.WhatsApp.PhoneNumberID)
	}
}
