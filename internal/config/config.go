// Package config loads fpsqr settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/fps2me/fpsqr/form"
	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/render"
)

// EnvConfigPath names the config file when -config is not given
const EnvConfigPath = "FPSQR_CONFIG"

// Duration is a time.Duration written as "30s" or "10m" in YAML
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Generation GenerationConfig `yaml:"generation"`
	Rules      RulesConfig      `yaml:"rules"`
	QR         QRConfig         `yaml:"qr"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	RequestTimeout Duration `yaml:"request_timeout"`
	SessionTTL     Duration `yaml:"session_ttl"`
	MaxSessions    int      `yaml:"max_sessions"`
	// EditableRules enables the rule mutation endpoints
	EditableRules bool `yaml:"editable_rules"`
}

type GenerationConfig struct {
	MerchantName    string   `yaml:"merchant_name"`
	DefaultCurrency string   `yaml:"default_currency"`
	DiscardStale    bool     `yaml:"discard_stale"`
	RewriteMode     string   `yaml:"rewrite_mode"`
	Timeout         Duration `yaml:"timeout"`
}

type RulesConfig struct {
	// File is a YAML rule set; empty uses the built-in rules
	File string `yaml:"file"`
}

type QRConfig struct {
	Size  int    `yaml:"size"`
	Level string `yaml:"level"`
	Logo  string `yaml:"logo"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			RequestTimeout: Duration(10 * time.Second),
			SessionTTL:     Duration(30 * time.Minute),
			MaxSessions:    10000,
		},
		Generation: GenerationConfig{
			MerchantName:    generation.DefaultMerchantName,
			DefaultCurrency: string(generation.DefaultCurrency),
			RewriteMode:     string(form.RewriteOnInput),
			Timeout:         Duration(5 * time.Second),
		},
		QR: QRConfig{
			Size:  render.DefaultSize,
			Level: "H",
			Logo:  render.DefaultLogoText,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Path returns flagValue, or $FPSQR_CONFIG when the flag is empty
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvConfigPath)
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		host, _, err := net.SplitHostPort(c.Server.Addr)
		if err != nil {
			host = ""
		}
		c.Server.Addr = net.JoinHostPort(host, port)
	}
	if addr := os.Getenv("FPSQR_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if file := os.Getenv("FPSQR_RULES"); file != "" {
		c.Rules.File = file
	}
	if mode := os.Getenv("FPSQR_REWRITE_MODE"); mode != "" {
		c.Generation.RewriteMode = mode
	}
	if v := os.Getenv("FPSQR_DISCARD_STALE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid FPSQR_DISCARD_STALE %q: %w", v, err)
		}
		c.Generation.DiscardStale = b
	}
	if v := os.Getenv("FPSQR_EDITABLE_RULES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid FPSQR_EDITABLE_RULES %q: %w", v, err)
		}
		c.Server.EditableRules = b
	}
	return nil
}

// Validate checks value ranges and enum fields
func (c Config) Validate() error {
	var problems []string

	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Server.RequestTimeout <= 0 {
		problems = append(problems, "server.request_timeout must be positive")
	}
	if c.Server.SessionTTL <= 0 {
		problems = append(problems, "server.session_ttl must be positive")
	}
	if c.Server.MaxSessions <= 0 {
		problems = append(problems, "server.max_sessions must be positive")
	}
	if c.Generation.Timeout <= 0 {
		problems = append(problems, "generation.timeout must be positive")
	}
	if n := len([]rune(c.Generation.MerchantName)); n == 0 || n > 25 {
		problems = append(problems, "generation.merchant_name must be 1-25 characters")
	}
	if _, err := generation.ParseCurrency(c.Generation.DefaultCurrency); err != nil {
		problems = append(problems, "generation.default_currency: "+err.Error())
	}
	if _, err := form.ParseRewriteMode(c.Generation.RewriteMode); err != nil {
		problems = append(problems, "generation.rewrite_mode: "+err.Error())
	}
	if c.QR.Size < 64 || c.QR.Size > 2048 {
		problems = append(problems, "qr.size must be between 64 and 2048")
	}
	if _, err := render.ParseLevel(c.QR.Level); err != nil {
		problems = append(problems, "qr.level: "+err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Currency returns the configured default currency
func (c Config) Currency() generation.Currency {
	cur, err := generation.ParseCurrency(c.Generation.DefaultCurrency)
	if err != nil {
		return generation.DefaultCurrency
	}
	return cur
}

// RewriteMode returns the configured form rewrite mode
func (c Config) RewriteMode() form.RewriteMode {
	mode, _ := form.ParseRewriteMode(c.Generation.RewriteMode)
	return mode
}

// RenderOptions returns image options for the configured size, level and logo
func (c Config) RenderOptions() render.Options {
	opts := render.DefaultOptions()
	opts.Size = c.QR.Size
	if level, err := render.ParseLevel(c.QR.Level); err == nil {
		opts.Level = level
	}
	if c.QR.Logo != "" {
		opts.Logo = render.TextLogo(c.QR.Logo)
	}
	return opts
}
