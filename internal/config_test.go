package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/flexdir/pkg/config"
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

func TestDataConfig_Drivers(t *testing.T) {
	cfg := DataConfig{Root: ""}
	if err := cfg.Validate(); err == nil {
		t.Error("local driver without root should fail")
	}
	if cfg.Driver != DriverLocal {
		t.Errorf("driver = %q, want default %q", cfg.Driver, DriverLocal)
	}
	mem := DataConfig{Driver: DriverMemory}
	if err := mem.Validate(); err != nil {
		t.Errorf("memory driver needs no root: %v", err)
	}
	bad := DataConfig{Driver: "s3", Root: "x"}
	if err := bad.Validate(); err == nil {
		t.Error("unknown driver should fail")
	}
}

func TestLanguagesConfig(t *testing.T) {
	ok := LanguagesConfig{Active: "de", Default: "en", Supported: []string{"en", "de", "pt-BR"}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid languages: %v", err)
	}
	r := ok.Resolver()
	if r.Active() != "de" || r.Default() != "en" {
		t.Errorf("resolver = %s/%s", r.Active(), r.Default())
	}

	bad := LanguagesConfig{Supported: []string{"en", "English"}}
	if err := bad.Validate(); err == nil {
		t.Error("invalid language code should fail")
	}

	var none LanguagesConfig
	if none.Resolver().Active() != "" {
		t.Error("empty config should not be multilingual")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	t.Setenv("FLEXDIR_TEST_TOKEN", "s3cret")
	src := `app:
  http:
    port: 9090
  event_throttle: 500ms
data:
  root: ./content
  locations:
    media: assets
directory:
  blueprints: ./bp
  header_blocks: [summary]
  types:
    contacts:
      blueprint: people.yaml
    faq:
      enabled: false
languages:
  active: en
  supported: [en, de]
sqlite:
  path: ./x.db
auth:
  mode: token
  token: ${FLEXDIR_TEST_TOKEN}
`
	if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.EventThrottle != 500*time.Millisecond {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Directory.Types["contacts"].Blueprint != "people.yaml" {
		t.Errorf("types = %+v", cfg.Directory.Types)
	}
	if e := cfg.Directory.Types["faq"].Enabled; e == nil || *e {
		t.Error("faq should be disabled")
	}
	if cfg.Data.Locations["media"] != "assets" || !cfg.Data.Watch {
		t.Errorf("data = %+v", cfg.Data)
	}
}
