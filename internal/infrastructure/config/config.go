package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/fsguard/internal/security"
)

// Transports
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Confirmation modes
const (
	ConfirmAuto        = "auto"
	ConfirmNone        = "none"
	ConfirmTTY         = "tty"
	ConfirmWebSocket   = "websocket"
	ConfirmElicitation = "elicitation"
)

// Config holds all application configuration.
type Config struct {
	Security  SecurityConfig  `yaml:"security" toml:"security"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Confirm   ConfirmConfig   `yaml:"confirm" toml:"confirm"`
	Media     MediaConfig     `yaml:"media" toml:"media"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rateLimit" toml:"rateLimit"`
}

// SecurityConfig holds the inputs of the security policy.
type SecurityConfig struct {
	AllowedDirs                     DirList  `envconfig:"FSGUARD_ALLOWED_DIRS" yaml:"allowedDirectories" toml:"allowedDirectories"`
	PathTraversalProtection         bool     `envconfig:"FSGUARD_PATH_TRAVERSAL_PROTECTION" default:"true" yaml:"pathTraversalProtection" toml:"pathTraversalProtection"`
	AllowForceDelete                bool     `envconfig:"FSGUARD_ALLOW_FORCE_DELETE" default:"true" yaml:"allowForceDelete" toml:"allowForceDelete"`
	ForceDeleteRequiresConfirmation bool     `envconfig:"FSGUARD_FORCE_DELETE_REQUIRES_CONFIRMATION" default:"true" yaml:"forceDeleteRequiresConfirmation" toml:"forceDeleteRequiresConfirmation"`
	MaxFileSize                     int64    `envconfig:"FSGUARD_MAX_FILE_SIZE" default:"0" yaml:"maxFileSize" toml:"maxFileSize"`
	BlockedExtensions               []string `envconfig:"FSGUARD_BLOCKED_EXTENSIONS" yaml:"blockedExtensions" toml:"blockedExtensions"`
}

// ServerConfig holds transport configuration.
type ServerConfig struct {
	Transport      string   `envconfig:"FSGUARD_TRANSPORT" default:"stdio" yaml:"transport" toml:"transport"`
	Host           string   `envconfig:"FSGUARD_HOST" default:"127.0.0.1" yaml:"host" toml:"host"`
	Port           string   `envconfig:"FSGUARD_PORT" default:"8000" yaml:"port" toml:"port"`
	AllowedOrigins []string `envconfig:"FSGUARD_CORS_ORIGINS" default:"*" yaml:"allowedOrigins" toml:"allowedOrigins"`
}

// ConfirmConfig selects how sensitive operations are confirmed.
type ConfirmConfig struct {
	Mode    string   `envconfig:"FSGUARD_CONFIRM_MODE" default:"auto" yaml:"mode" toml:"mode"`
	Timeout Duration `envconfig:"FSGUARD_CONFIRM_TIMEOUT" default:"2m" yaml:"timeout" toml:"timeout"`
}

// MediaConfig holds metadata engine configuration.
type MediaConfig struct {
	ExifToolPath string   `envconfig:"FSGUARD_EXIFTOOL_PATH" default:"exiftool" yaml:"exiftoolPath" toml:"exiftoolPath"`
	Timeout      Duration `envconfig:"FSGUARD_EXIFTOOL_TIMEOUT" default:"30s" yaml:"timeout" toml:"timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"FSGUARD_LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"FSGUARD_LOG_DEV" default:"false" yaml:"development" toml:"development"`
	File        string `envconfig:"FSGUARD_LOG_FILE" yaml:"file" toml:"file"`
	MaxSizeMB   int    `envconfig:"FSGUARD_LOG_MAX_SIZE_MB" default:"100" yaml:"maxSizeMB" toml:"maxSizeMB"`
	MaxBackups  int    `envconfig:"FSGUARD_LOG_MAX_BACKUPS" default:"3" yaml:"maxBackups" toml:"maxBackups"`
	MaxAgeDays  int    `envconfig:"FSGUARD_LOG_MAX_AGE_DAYS" default:"28" yaml:"maxAgeDays" toml:"maxAgeDays"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"FSGUARD_RATE_LIMIT_RPS" default:"50" yaml:"requestsPerSecond" toml:"requestsPerSecond"`
	Burst             int  `envconfig:"FSGUARD_RATE_LIMIT_BURST" default:"100" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"FSGUARD_RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// DirList is a list of directories. From the environment it is split on commas and
// on the OS path-list separator.
type DirList []string

// Decode implements envconfig.Decoder.
func (d *DirList) Decode(value string) error {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == os.PathListSeparator
	})
	dirs := make(DirList, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			dirs = append(dirs, f)
		}
	}
	*d = dirs
	return nil
}

// Duration is a time.Duration read from strings such as "90s" or "2m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile overlays a YAML or TOML file on cfg. Keys absent from the file keep their
// current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// SetDirectories replaces the allow-list with directories given on the command line.
// Each must exist and be absolute after home expansion.
func (c *Config) SetDirectories(dirs []string) error {
	out := make(DirList, 0, len(dirs))
	for _, dir := range dirs {
		expanded, err := expandHome(dir)
		if err != nil {
			return err
		}
		if !filepath.IsAbs(expanded) {
			return fmt.Errorf("allowed directory must be absolute: %s", dir)
		}
		info, err := os.Stat(expanded)
		if err != nil {
			return fmt.Errorf("allowed directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("allowed directory is not a directory: %s", dir)
		}
		out = append(out, filepath.Clean(expanded))
	}
	c.Security.AllowedDirs = out
	return nil
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unknown transport: %q", c.Server.Transport)
	}
	switch c.Confirm.Mode {
	case ConfirmAuto, ConfirmNone, ConfirmTTY, ConfirmWebSocket, ConfirmElicitation:
	default:
		return fmt.Errorf("unknown confirmation mode: %q", c.Confirm.Mode)
	}
	if c.Confirm.Timeout <= 0 {
		return fmt.Errorf("confirmation timeout must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit must be positive when enabled")
	}
	return nil
}

// Policy builds the immutable security policy.
func (c *Config) Policy() (*security.Policy, error) {
	return security.NewPolicy(security.PolicyOptions{
		AllowedDirectories:              c.Security.AllowedDirs,
		PathTraversalProtection:         c.Security.PathTraversalProtection,
		AllowForceDelete:                c.Security.AllowForceDelete,
		ForceDeleteRequiresConfirmation: c.Security.ForceDeleteRequiresConfirmation,
		MaxFileSize:                     c.Security.MaxFileSize,
		BlockedExtensions:               c.Security.BlockedExtensions,
	})
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Security: SecurityConfig{
			PathTraversalProtection:         true,
			AllowForceDelete:                true,
			ForceDeleteRequiresConfirmation: true,
		},
		Server: ServerConfig{
			Transport:      TransportStdio,
			Host:           "127.0.0.1",
			Port:           "8000",
			AllowedOrigins: []string{"*"},
		},
		Confirm: ConfirmConfig{
			Mode:    ConfirmAuto,
			Timeout: Duration(2 * time.Minute),
		},
		Media: MediaConfig{
			ExifToolPath: "exiftool",
			Timeout:      Duration(30 * time.Second),
		},
		Logging: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return filepath.Join(home, path[1:]), nil
}
