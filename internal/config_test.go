package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/wikivault/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestSQLiteConfig_EmptyPathDisablesIndex(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty sqlite path should be allowed: %v", err)
	}
	if cfg.SQLite.Enabled() {
		t.Error("index should be disabled")
	}
}

func TestResolverConfig_Invalid(t *testing.T) {
	cases := map[string]func(*ResolverConfig){
		"nested marker":   func(c *ResolverConfig) { c.MarkerDir = "a/b" },
		"ext without dot": func(c *ResolverConfig) { c.NoteExt = "md" },
		"bare dot":        func(c *ResolverConfig) { c.NoteExt = "." },
		"zero depth":      func(c *ResolverConfig) { c.MarkerDepth = 0 },
		"deep scan":       func(c *ResolverConfig) { c.ScanDepth = 100 },
		"zero threshold":  func(c *ResolverConfig) { c.DensityThreshold = 0 },
	}
	for name, mutate := range cases {
		cfg := NewDefaultConfig()
		mutate(&cfg.Resolver)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestResolverConfig_Detector(t *testing.T) {
	cfg := NewDefaultConfig().Resolver
	cfg.MarkerDir = ".vault"
	cfg.DensityThreshold = 3
	d := cfg.Detector()
	if d.MarkerDir != ".vault" || d.DensityThreshold != 3 || d.MarkerDepth != 10 {
		t.Errorf("detector = %+v", d)
	}
	if opts := cfg.ScanOptions(); opts.MarkerDir != ".vault" || opts.MaxDepth != 3 {
		t.Errorf("scan options = %+v", opts)
	}
}

func TestConfig_LoadYAMLOverDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	body := "app:\n  log_level: debug\n  http:\n    port: 9090\nworkspace:\n  path: /notes\nresolver:\n  vault_scoped: true\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Port != 9090 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Workspace.Path != "/notes" || !cfg.Resolver.VaultScoped || cfg.Resolver.ScanDepth != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestConfig_LoadTOML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.toml")
	body := "[app]\nlog_level = \"warn\"\n[app.http]\nport = 7070\n[resolver]\nnote_ext = \".markdown\"\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelWarn || cfg.App.HTTP.Port != 7070 || cfg.Resolver.NoteExt != ".markdown" {
		t.Errorf("cfg = %+v", cfg)
	}
}
