package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"sysbridge/internal/whitelist"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultAddr           = "127.0.0.1:8472"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultPPSRoot        = "/"
	DefaultSandboxRoot    = "/"
	DefaultPollIntervalMS = 500
)

// CORS configures cross-origin access for the web runtime.
type CORS struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// Host locates the property-store objects read for host properties.
type Host struct {
	DevicePath string `json:"device_path" yaml:"device_path" toml:"device_path"`
	LocalePath string `json:"locale_path" yaml:"locale_path" toml:"locale_path"`
	FontPath   string `json:"font_path" yaml:"font_path" toml:"font_path"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr           string            `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel       string            `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat      string            `json:"log_format" yaml:"log_format" toml:"log_format"`
	PPSRoot        string            `json:"pps_root" yaml:"pps_root" toml:"pps_root"`
	SandboxRoot    string            `json:"sandbox_root" yaml:"sandbox_root" toml:"sandbox_root"`
	PollIntervalMS int               `json:"poll_interval_ms" yaml:"poll_interval_ms" toml:"poll_interval_ms"`
	TimezonePath   string            `json:"timezone_path" yaml:"timezone_path" toml:"timezone_path"`
	TimezonesFile  string            `json:"timezones_file" yaml:"timezones_file" toml:"timezones_file"`
	Host           Host              `json:"host" yaml:"host" toml:"host"`
	CORS           CORS              `json:"cors" yaml:"cors" toml:"cors"`
	Whitelist      []whitelist.Entry `json:"whitelist" yaml:"whitelist" toml:"whitelist"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills unspecified fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.PPSRoot == "" {
		c.PPSRoot = DefaultPPSRoot
	}
	if c.SandboxRoot == "" {
		c.SandboxRoot = DefaultSandboxRoot
	}
	if c.PollIntervalMS <= 0 {
		c.PollIntervalMS = DefaultPollIntervalMS
	}
	if c.CORS.Enabled && len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
}

// ApplyEnv overrides fields from SYSBRIDGE_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SYSBRIDGE_ADDR"); v != "" {
		c.Addr = v
	}
	if v := getenv("SYSBRIDGE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("SYSBRIDGE_PPS_ROOT"); v != "" {
		c.PPSRoot = v
	}
	if v := getenv("SYSBRIDGE_SANDBOX_ROOT"); v != "" {
		c.SandboxRoot = v
	}
}

// Validate checks fields that defaults cannot fix.
func (c Config) Validate() error {
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	if _, err := whitelist.New(c.Whitelist); err != nil {
		return err
	}
	return nil
}
