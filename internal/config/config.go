// Package config holds the server configuration. Values come from defaults,
// an optional YAML file, and WHOLEPART_* environment variables, resolved by
// viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// EnvPrefix prefixes every environment override, e.g. WHOLEPART_PORT.
const EnvPrefix = "WHOLEPART"

// Config is the resolved server configuration.
type Config struct {
	Port      string `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // json | console

	DBPath string `mapstructure:"db_path"`

	JWTSecret      string `mapstructure:"jwt_secret"`
	JWTExpiresDays int    `mapstructure:"jwt_expires_days"`
	CookieName     string `mapstructure:"cookie_name"`
	ClientOrigin   string `mapstructure:"client_origin"`
	Production     bool   `mapstructure:"production"`

	DefaultLang       string `mapstructure:"default_lang"`
	AutoAdvanceMs     int    `mapstructure:"auto_advance_ms"`
	SessionTTLMinutes int    `mapstructure:"session_ttl_minutes"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Port:              "5175",
		LogLevel:          "info",
		LogFormat:         "json",
		DBPath:            "./data/wholepart.db",
		JWTSecret:         "dev_secret_change_me",
		JWTExpiresDays:    14,
		CookieName:        "wholepart_token",
		ClientOrigin:      "http://localhost:5173",
		Production:        false,
		DefaultLang:       "en",
		AutoAdvanceMs:     1000,
		SessionTTLMinutes: 120,
	}
}

// SetDefaults registers the defaults with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("port", d.Port)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("jwt_secret", d.JWTSecret)
	v.SetDefault("jwt_expires_days", d.JWTExpiresDays)
	v.SetDefault("cookie_name", d.CookieName)
	v.SetDefault("client_origin", d.ClientOrigin)
	v.SetDefault("production", d.Production)
	v.SetDefault("default_lang", d.DefaultLang)
	v.SetDefault("auto_advance_ms", d.AutoAdvanceMs)
	v.SetDefault("session_ttl_minutes", d.SessionTTLMinutes)
}

// Init prepares v: defaults, environment binding, and the config file when
// one is given. A missing file is an error only when it was named explicitly.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		return nil
	}
	v.SetConfigName("wholepart")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()
	return nil
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("log_format %q: want json or console", c.LogFormat))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.Production && c.JWTSecret == Default().JWTSecret {
		errs = append(errs, errors.New("jwt_secret must be changed in production"))
	}
	if c.JWTExpiresDays <= 0 {
		errs = append(errs, errors.New("jwt_expires_days must be positive"))
	}
	if c.CookieName == "" {
		errs = append(errs, errors.New("cookie_name is required"))
	}
	if _, err := language.Parse(c.DefaultLang); err != nil {
		errs = append(errs, fmt.Errorf("default_lang: %w", err))
	}
	if c.AutoAdvanceMs < 0 {
		errs = append(errs, errors.New("auto_advance_ms must not be negative"))
	}
	if c.SessionTTLMinutes <= 0 {
		errs = append(errs, errors.New("session_ttl_minutes must be positive"))
	}
	return errors.Join(errs...)
}

// AutoAdvance is the delay before timed scene advances; zero disables them.
func (c *Config) AutoAdvance() time.Duration {
	return time.Duration(c.AutoAdvanceMs) * time.Millisecond
}

// SessionTTL is how long an idle session is kept.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// JWTExpiry is the lifetime of issued tokens.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}
