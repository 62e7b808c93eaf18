// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the full parley configuration.
type Config struct {
	API         APIConfig        `toml:"api" json:"api"`
	Auth        AuthConfig       `toml:"auth" json:"auth"`
	Chat        ChatConfig       `toml:"chat" json:"chat"`
	Session     SessionConfig    `toml:"session" json:"session"`
	Attachments AttachmentConfig `toml:"attachments" json:"attachments"`
	Log         LogConfig        `toml:"log" json:"log"`
}

// APIConfig controls the HTTP client for the assistant backend.
type APIConfig struct {
	BaseURL          string   `toml:"base_url" json:"base_url"`
	Timeout          Duration `toml:"timeout" json:"timeout"`
	RateLimit        float64  `toml:"rate_limit" json:"rate_limit"`
	Burst            int      `toml:"burst" json:"burst"`
	MaxResponseBytes int64    `toml:"max_response_bytes" json:"max_response_bytes"`
}

// AuthConfig locates the bearer token.
type AuthConfig struct {
	TokenFile string `toml:"token_file" json:"token_file"`
	// RefreshCommand is run through the shell when the backend rejects the
	// token; it is expected to rewrite TokenFile.
	RefreshCommand string `toml:"refresh_command" json:"refresh_command"`
}

// ChatConfig holds model and roster settings.
type ChatConfig struct {
	DefaultModel   string   `toml:"default_model" json:"default_model"`
	Models         []string `toml:"models" json:"models"`
	SearchModels   []string `toml:"search_models" json:"search_models"`
	RosterPageSize int      `toml:"roster_page_size" json:"roster_page_size"`
}

// SessionConfig selects the per-terminal session store.
type SessionConfig struct {
	Backend     string   `toml:"backend" json:"backend"`
	Path        string   `toml:"path" json:"path"`
	IdleTimeout Duration `toml:"idle_timeout" json:"idle_timeout"`
}

// AttachmentConfig limits uploads.
type AttachmentConfig struct {
	MaxSizeMB  int      `toml:"max_size_mb" json:"max_size_mb"`
	Extensions []string `toml:"extensions" json:"extensions"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level    string `toml:"level" json:"level"`
	Encoding string `toml:"encoding" json:"encoding"`
	File     string `toml:"file" json:"file"`
}

// Duration is a time.Duration written as a string ("30s", "8h") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultBaseURL          = "http://127.0.0.1:5000"
	DefaultModel            = "gpt-4o"
	DefaultTimeout          = 120 * time.Second
	DefaultRateLimit        = 5.0
	DefaultBurst            = 10
	DefaultMaxResponseBytes = 10 << 20
	DefaultRosterPageSize   = 10
	DefaultIdleTimeout      = 8 * time.Hour
	DefaultMaxSizeMB        = 10
)

// DefaultExtensions are the upload types the backend accepts.
var DefaultExtensions = []string{
	"pdf", "txt", "doc", "docx", "xls", "xlsx", "csv", "png", "jpg", "jpeg", "md", "json",
}

// Default returns the built-in configuration. Paths are left empty and
// resolved against Dir by SetDefaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:          DefaultBaseURL,
			Timeout:          Duration{DefaultTimeout},
			RateLimit:        DefaultRateLimit,
			Burst:            DefaultBurst,
			MaxResponseBytes: DefaultMaxResponseBytes,
		},
		Chat: ChatConfig{
			DefaultModel:   DefaultModel,
			Models:         []string{"gpt-4o", "gpt-4o-mini", "o3-mini"},
			SearchModels:   []string{"gpt-4o"},
			RosterPageSize: DefaultRosterPageSize,
		},
		Session: SessionConfig{
			Backend:     "sqlite",
			IdleTimeout: Duration{DefaultIdleTimeout},
		},
		Attachments: AttachmentConfig{
			MaxSizeMB:  DefaultMaxSizeMB,
			Extensions: append([]string(nil), DefaultExtensions...),
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the parley state directory: $PARLEY_HOME or ~/.parley.
func Dir() (string, error) {
	if dir := os.Getenv("PARLEY_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".parley"), nil
}

// Path returns the config file location: $PARLEY_CONFIG or Dir/config.toml.
func Path() (string, error) {
	if p := os.Getenv("PARLEY_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the configuration from the default path. A missing file is not
// an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path, then applies .env, the
// environment, defaults and validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path into cfg. Keys absent from the file keep their
// current values.
func LoadTOML(cfg *Config, path string) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return err
		}
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// SaveTOML writes cfg to path atomically with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# parley configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// ApplyEnvOverrides copies PARLEY_* variables over the loaded values.
func (c *Config) ApplyEnvOverrides() {
	overrides := map[string]*string{
		"PARLEY_API_URL":         &c.API.BaseURL,
		"PARLEY_MODEL":           &c.Chat.DefaultModel,
		"PARLEY_TOKEN_FILE":      &c.Auth.TokenFile,
		"PARLEY_REFRESH_COMMAND": &c.Auth.RefreshCommand,
		"PARLEY_SESSION_BACKEND": &c.Session.Backend,
		"PARLEY_SESSION_PATH":    &c.Session.Path,
		"PARLEY_LOG_LEVEL":       &c.Log.Level,
		"PARLEY_LOG_FILE":        &c.Log.File,
	}
	for env, dst := range overrides {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
}

// SetDefaults fills zero values and resolves file locations under Dir.
func (c *Config) SetDefaults() error {
	def := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout.Duration == 0 {
		c.API.Timeout = def.API.Timeout
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = def.API.RateLimit
	}
	if c.API.Burst == 0 {
		c.API.Burst = def.API.Burst
	}
	if c.API.MaxResponseBytes == 0 {
		c.API.MaxResponseBytes = def.API.MaxResponseBytes
	}
	if len(c.Chat.Models) == 0 {
		c.Chat.Models = def.Chat.Models
	}
	if c.Chat.DefaultModel == "" {
		c.Chat.DefaultModel = c.Chat.Models[0]
	}
	if c.Chat.RosterPageSize == 0 {
		c.Chat.RosterPageSize = def.Chat.RosterPageSize
	}
	if c.Session.Backend == "" {
		c.Session.Backend = def.Session.Backend
	}
	if c.Session.IdleTimeout.Duration == 0 {
		c.Session.IdleTimeout = def.Session.IdleTimeout
	}
	if c.Attachments.MaxSizeMB == 0 {
		c.Attachments.MaxSizeMB = def.Attachments.MaxSizeMB
	}
	if len(c.Attachments.Extensions) == 0 {
		c.Attachments.Extensions = def.Attachments.Extensions
	}

	dir, err := Dir()
	if err != nil {
		return err
	}
	if c.Auth.TokenFile == "" {
		c.Auth.TokenFile = filepath.Join(dir, "token")
	}
	if c.Session.Path == "" {
		c.Session.Path = filepath.Join(dir, "session.db")
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(dir, "parley.log")
	}
	return nil
}

// MaxAttachmentBytes returns the upload limit in bytes.
func (c *Config) MaxAttachmentBytes() int64 {
	return int64(c.Attachments.MaxSizeMB) << 20
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Chat.Models = append([]string(nil), c.Chat.Models...)
	cp.Chat.SearchModels = append([]string(nil), c.Chat.SearchModels...)
	cp.Attachments.Extensions = append([]string(nil), c.Attachments.Extensions...)
	return &cp
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}
