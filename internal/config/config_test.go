package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "5175" {
		t.Errorf("Port = %q, want %q", cfg.Port, "5175")
	}
	if cfg.AutoAdvance() != time.Second {
		t.Errorf("AutoAdvance() = %v, want 1s", cfg.AutoAdvance())
	}
	if cfg.SessionTTL() != 2*time.Hour {
		t.Errorf("SessionTTL() = %v, want 2h", cfg.SessionTTL())
	}
	if cfg.JWTExpiry() != 14*24*time.Hour {
		t.Errorf("JWTExpiry() = %v", cfg.JWTExpiry())
	}
	if *cfg != *Default() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("WHOLEPART_PORT", "9000")
	t.Setenv("WHOLEPART_AUTO_ADVANCE_MS", "0")
	t.Setenv("WHOLEPART_DEFAULT_LANG", "es")

	v := viper.New()
	if err := Init(v, ""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9000" || cfg.AutoAdvanceMs != 0 || cfg.DefaultLang != "es" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wholepart.yaml")
	if err := os.WriteFile(path, []byte("log_format: console\nsession_ttl_minutes: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v := viper.New()
	if err := Init(v, path); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogFormat != "console" || cfg.SessionTTLMinutes != 5 {
		t.Errorf("unexpected config %+v", cfg)
	}

	if err := Init(viper.New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a named missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"default secret in production", func(c *Config) { c.Production = true }, "changed in production"},
		{"bad lang", func(c *Config) { c.DefaultLang = "not a tag!" }, "default_lang"},
		{"negative advance", func(c *Config) { c.AutoAdvanceMs = -1 }, "auto_advance_ms"},
		{"zero ttl", func(c *Config) { c.SessionTTLMinutes = 0 }, "session_ttl_minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			switch {
			case tt.want == "" && err != nil:
				t.Errorf("Validate() error = %v, want nil", err)
			case tt.want != "" && (err == nil || !strings.Contains(err.Error(), tt.want)):
				t.Errorf("Validate() error = %v, want %q", err, tt.want)
			}
		})
	}
}
