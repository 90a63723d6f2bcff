package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skillsenselab/resilix/errors"
	"github.com/skillsenselab/resilix/timeout"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_DefaultsWithoutSources(t *testing.T) {
	var s Settings
	if err := Load(&s); err != nil {
		t.Fatalf("expected defaults to load, got %v", err)
	}

	if s.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %q", s.Logging.Level)
	}
	if s.Timeout.Default != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", s.Timeout.Default)
	}
	if s.Timeout.Strategy != "optimistic" {
		t.Errorf("expected default strategy optimistic, got %q", s.Timeout.Strategy)
	}
}

func TestLoad_FromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "resilix.yml", `
logging:
  level: debug
  format: console
timeout:
  default: 5s
  strategy: pessimistic
registry:
  case_insensitive_keys: true
`)

	var s Settings
	if err := Load(&s, WithConfigFile(path)); err != nil {
		t.Fatalf("load: %v", err)
	}

	if s.Logging.Level != "debug" || s.Logging.Format != "console" {
		t.Errorf("unexpected logging config: %+v", s.Logging)
	}
	if s.Timeout.Default != 5*time.Second {
		t.Errorf("expected 5s, got %v", s.Timeout.Default)
	}
	if s.Timeout.Strategy != "pessimistic" {
		t.Errorf("expected pessimistic, got %q", s.Timeout.Strategy)
	}
	if !s.Registry.CaseInsensitiveKeys {
		t.Error("expected case-insensitive keys enabled")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "resilix.yml", `
timeout:
  strategy: optimistic
`)
	t.Setenv("RESILIX_TIMEOUT_STRATEGY", "pessimistic")
	t.Setenv("RESILIX_LOGGING_LEVEL", "warn")

	var s Settings
	if err := Load(&s, WithConfigFile(path)); err != nil {
		t.Fatalf("load: %v", err)
	}

	if s.Timeout.Strategy != "pessimistic" {
		t.Errorf("expected env to override file, got %q", s.Timeout.Strategy)
	}
	if s.Logging.Level != "warn" {
		t.Errorf("expected env-only key bound, got %q", s.Logging.Level)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "RESILIXTEST_TIMEOUT_STRATEGY=pessimistic\n")

	var s Settings
	if err := Load(&s, WithEnvFile(envPath), WithEnvPrefix("RESILIXTEST")); err != nil {
		t.Fatalf("load: %v", err)
	}

	if s.Timeout.Strategy != "pessimistic" {
		t.Errorf("expected .env value, got %q", s.Timeout.Strategy)
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	var s Settings
	err := Load(&s, WithConfigFile("/nonexistent/resilix.yml"))
	if err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestLoad_InvalidStrategyRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "resilix.yml", `
timeout:
  strategy: hopeful
`)

	var s Settings
	err := Load(&s, WithConfigFile(path))
	if !errors.IsInvalidConfig(err) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
	if !strings.Contains(err.Error(), "strategy") {
		t.Errorf("expected the failing field in the message, got %q", err.Error())
	}
}

func TestTimeoutSettings_StrategyValue(t *testing.T) {
	s := TimeoutSettings{Strategy: "pessimistic"}
	if s.StrategyValue() != timeout.Pessimistic {
		t.Error("expected pessimistic")
	}
	s.Strategy = "optimistic"
	if s.StrategyValue() != timeout.Optimistic {
		t.Error("expected optimistic")
	}
}

func TestTimeoutSettings_TimeoutConfig(t *testing.T) {
	s := TimeoutSettings{Default: 2 * time.Second, Strategy: "pessimistic"}
	cfg := s.TimeoutConfig()

	if cfg.Timeout != 2*time.Second || cfg.Strategy != timeout.Pessimistic {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if _, err := timeout.New(cfg); err != nil {
		t.Errorf("expected a buildable timeout config, got %v", err)
	}
}

func TestRegistrySettings_Options(t *testing.T) {
	s := RegistrySettings{CaseInsensitiveKeys: true}
	opts := s.Options(nil)
	if opts.KeyNormalizer == nil {
		t.Fatal("expected a key normalizer")
	}
	if opts.KeyNormalizer("PiPeLine-A") != "pipeline-a" {
		t.Error("expected lower-casing normalizer")
	}

	s.CaseInsensitiveKeys = false
	if s.Options(nil).KeyNormalizer != nil {
		t.Error("expected no normalizer by default")
	}
}
