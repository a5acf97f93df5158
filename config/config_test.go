package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Jobs.ETASeconds != 60 {
		t.Errorf("expected default eta of 60s, got %d", cfg.Jobs.ETASeconds)
	}
	if cfg.Jobs.Workers != 4 {
		t.Errorf("expected default worker pool of 4, got %d", cfg.Jobs.Workers)
	}
	if cfg.Jobs.Pipeline != "wikipedia" {
		t.Errorf("expected wikipedia pipeline default, got %s", cfg.Jobs.Pipeline)
	}
	if cfg.Tools.Wikipedia.Language != "pt" || cfg.Tools.Wikipedia.MaxChars != 2000 {
		t.Errorf("unexpected wikipedia defaults: %+v", cfg.Tools.Wikipedia)
	}
	if cfg.Tools.WebSearch.Provider != "duckduckgo" {
		t.Errorf("unexpected search provider default: %s", cfg.Tools.WebSearch.Provider)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("unexpected storage driver default: %s", cfg.Storage.Driver)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
general:
  listen: ":9000"
jobs:
  pipeline: websearch
  workers: 8
  eta_seconds: 30
  retention: 1h
storage:
  driver: redis
  redis:
    host: localhost
    port: "6379"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.General.Listen != ":9000" {
		t.Errorf("listen: %s", cfg.General.Listen)
	}
	if cfg.Jobs.Pipeline != "websearch" || cfg.Jobs.Workers != 8 || cfg.Jobs.ETASeconds != 30 {
		t.Errorf("jobs: %+v", cfg.Jobs)
	}
	if cfg.Jobs.Retention != time.Hour {
		t.Errorf("retention: %v", cfg.Jobs.Retention)
	}
	if cfg.Storage.Driver != "redis" || cfg.Storage.Redis.Host != "localhost" {
		t.Errorf("storage: %+v", cfg.Storage)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"unknown driver", "storage:\n  driver: cassandra\n"},
		{"negative workers", "jobs:\n  workers: -1\n"},
		{"redis without host", "storage:\n  driver: redis\n"},
		{"postgres without host", "storage:\n  driver: postgres\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", User: "app", Password: "secret", DBName: "research"}
	want := "postgres://app:secret@db:5432/research?sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %s, want %s", got, want)
	}

	p = PostgresConfig{URL: "postgres://explicit"}
	if got := p.DSN(); got != "postgres://explicit" {
		t.Errorf("explicit url should win, got %s", got)
	}
}

func TestCompletionAPIKeyResolution(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := &Config{}
	if key := cfg.CompletionAPIKey(); key != "" {
		t.Errorf("expected empty key, got %q", key)
	}

	t.Setenv("OPENAI_API_KEY", "openai-key")
	if key := cfg.CompletionAPIKey(); key != "openai-key" {
		t.Errorf("expected openai fallback, got %q", key)
	}

	t.Setenv("GROQ_API_KEY", "groq-key")
	if key := cfg.CompletionAPIKey(); key != "groq-key" {
		t.Errorf("groq should take precedence over openai, got %q", key)
	}

	cfg.LLM.Providers = map[string]LLMProvider{"groq": {APIKey: "from-config"}}
	if key := cfg.CompletionAPIKey(); key != "from-config" {
		t.Errorf("config key should win, got %q", key)
	}
}
