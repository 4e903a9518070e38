package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 9999\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 8080\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want config.yaml", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("{}\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Listen.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Listen.Port)
	}
	if cfg.OpenRouter.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("base URL = %q", cfg.OpenRouter.BaseURL)
	}
	if cfg.OpenRouter.Model != "mistralai/mistral-7b-instruct:free" {
		t.Errorf("model = %q", cfg.OpenRouter.Model)
	}
	if cfg.Game.MaxLog != 100 {
		t.Errorf("max_log = %d, want 100", cfg.Game.MaxLog)
	}
	if cfg.Game.SessionTTLMinutes != 60 {
		t.Errorf("session_ttl_minutes = %d, want 60", cfg.Game.SessionTTLMinutes)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_Values(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte(`
listen:
  port: 9090
openrouter:
  model: some/other-model
game:
  max_log: 50
  allowed_origins:
    - https://game.example.com
log_level: debug
`), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Listen.Port != 9090 {
		t.Errorf("port = %d", cfg.Listen.Port)
	}
	if cfg.OpenRouter.Model != "some/other-model" {
		t.Errorf("model = %q", cfg.OpenRouter.Model)
	}
	if cfg.Game.MaxLog != 50 {
		t.Errorf("max_log = %d", cfg.Game.MaxLog)
	}
	if len(cfg.Game.AllowedOrigins) != 1 || cfg.Game.AllowedOrigins[0] != "https://game.example.com" {
		t.Errorf("allowed_origins = %v", cfg.Game.AllowedOrigins)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	t.Setenv("OPENROUTER_MODEL", "env/model")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("openrouter:\n  api_key: file-key\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.OpenRouter.APIKey != "env-key" {
		t.Errorf("api_key = %q, env should win", cfg.OpenRouter.APIKey)
	}
	if cfg.OpenRouter.Model != "env/model" {
		t.Errorf("model = %q", cfg.OpenRouter.Model)
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("log_level: loud\n"), 0600)

	if _, err := Load(path); err == nil {
		t.Fatal("invalid log level should fail validation")
	}
}

func TestLoad_MaxLogTooSmall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("game:\n  max_log: 1\n"), 0600)

	if _, err := Load(path); err == nil {
		t.Fatal("max_log below 2 should fail validation")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"trace", false},
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"TRACE", false},
		{"verbose", true},
	}
	for _, tt := range tests {
		_, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
