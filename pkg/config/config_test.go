package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	configDir := filepath.Join(home, ".retailgate")
	if cfg.StorePath != filepath.Join(configDir, DefaultStoreFile) {
		t.Fatalf("unexpected store path: %q", cfg.StorePath)
	}
	if cfg.PolicyDocPath != filepath.Join(configDir, DefaultPolicyFile) {
		t.Fatalf("unexpected policy path: %q", cfg.PolicyDocPath)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	if cfg.MaxAttempts != 3 {
		t.Fatalf("unexpected max attempts: %d", cfg.MaxAttempts)
	}
}

func TestLoadReadsFileConfig(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearEnv(t)

	configDir := filepath.Join(home, ".retailgate")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data := []byte(`api_keys:
  openai: file-openai
paths:
  store: /data/retail.db
  policy_doc: /data/policies.md
server:
  listen_addr: ":9090"
sql:
  max_attempts: 5
routes:
  default:
    adapter: openai
    model: gpt-5.2-instant
  capabilities:
    generate_sql:
      model: gpt-5.2-codex
`)
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAIAPIKey != "file-openai" {
		t.Fatalf("file API key not read: %q", cfg.OpenAIAPIKey)
	}
	if cfg.StorePath != "/data/retail.db" || cfg.PolicyDocPath != "/data/policies.md" {
		t.Fatalf("file paths not read: %q %q", cfg.StorePath, cfg.PolicyDocPath)
	}
	if cfg.ListenAddr != ":9090" || cfg.MaxAttempts != 5 {
		t.Fatalf("server/sql settings not read: %q %d", cfg.ListenAddr, cfg.MaxAttempts)
	}
	if cfg.Routes.Default.Adapter != "openai" {
		t.Fatalf("default route not read: %+v", cfg.Routes.Default)
	}
	if cfg.Routes.ByCapability["generate_sql"].Model != "gpt-5.2-codex" {
		t.Fatalf("capability route not read: %+v", cfg.Routes.ByCapability)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearEnv(t)

	configDir := filepath.Join(home, ".retailgate")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data := []byte("api_keys:\n  openai: file-openai\npaths:\n  store: /data/file.db\n")
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("RETAILGATE_STORE_PATH", "/data/env.db")
	t.Setenv("RETAILGATE_MAX_ATTEMPTS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OpenAIAPIKey != "env-openai" {
		t.Fatalf("env API key not preferred: %q", cfg.OpenAIAPIKey)
	}
	if cfg.StorePath != "/data/env.db" {
		t.Fatalf("env store path not preferred: %q", cfg.StorePath)
	}
	if cfg.MaxAttempts != 2 {
		t.Fatalf("env max attempts not preferred: %d", cfg.MaxAttempts)
	}
}

func TestInvalidMaxAttemptsRejected(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearEnv(t)
	t.Setenv("RETAILGATE_MAX_ATTEMPTS", "zero")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric max attempts")
	}
}

func TestHasAdapter(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: "x"}
	if !cfg.HasAdapter("openai") {
		t.Fatalf("expected openai adapter to be configured")
	}
	if cfg.HasAdapter("anthropic") || cfg.HasAdapter("nonsense") {
		t.Fatalf("unexpected adapters reported as configured")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "DEEPSEEK_API_KEY",
		"RETAILGATE_STORE_PATH", "RETAILGATE_POLICY_DOC", "RETAILGATE_TRACE_PATH",
		"RETAILGATE_LISTEN_ADDR", "RETAILGATE_MAX_ATTEMPTS",
	} {
		t.Setenv(name, "")
	}
}

func setHomeEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
}
