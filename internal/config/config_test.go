package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := LoadConfig(DefaultConfigPath, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Backend != "file" {
		t.Fatalf("backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.AI.ConcurrentLimit != 4 {
		t.Fatalf("concurrent_limit = %d, want 4", cfg.AI.ConcurrentLimit)
	}
	if cfg.AutosaveInterval != 30*time.Second {
		t.Fatalf("autosave = %v, want 30s", cfg.AutosaveInterval)
	}
}

func TestLoadConfigMissingExplicitPathFails(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
		t.Fatal("a missing file at a non-default path must be an error")
	}
}

func TestLoadConfigNormalizesChatSection(t *testing.T) {
	path := writeConfig(t, `
chat:
  model_config:
    model: gpt-4o
    temperature: -5
    max_tokens: 100
`)
	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.Chat.ModelConfig.Temperature; got != 0 {
		t.Fatalf("temperature = %v, want clamp to 0", got)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown backend", "storage:\n  backend: tape\n"},
		{"redis backend without url", "storage:\n  backend: redis\n"},
		{"bad encryption key length", "storage:\n  encryption_key: short\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			if _, err := LoadConfig(path, false); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}
