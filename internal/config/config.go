// Package config loads and validates clipforge configuration from TOML,
// with environment-variable overrides for service credentials.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	CallbackBind string `toml:"callback_bind"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Workflow contains pipeline timing and budget settings.
type Workflow struct {
	// ItemDelayMS is the fixed pause between throttled generation calls.
	ItemDelayMS int `toml:"item_delay_ms"`
	// ClipPollIntervalSeconds is the clip-status poll interval.
	ClipPollIntervalSeconds int `toml:"clip_poll_interval_seconds"`
	// ClipPollMaxAttempts bounds the clip poll loop.
	ClipPollMaxAttempts int `toml:"clip_poll_max_attempts"`
	// Autosave persists a snapshot to the local journal after every
	// stage completion.
	Autosave bool `toml:"autosave"`
}

// ScriptGen configures the chat-completion service.
type ScriptGen struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ImageGen configures the image generation service.
type ImageGen struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ClipGen configures the clip job service.
type ClipGen struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications configures ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config is the root configuration document.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Workflow      Workflow      `toml:"workflow"`
	ScriptGen     ScriptGen     `toml:"scriptgen"`
	ImageGen      ImageGen      `toml:"imagegen"`
	ClipGen       ClipGen       `toml:"clipgen"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	return "~/.config/clipforge/config.toml"
}

// Load reads the config file at path (DefaultPath when empty), applies
// defaults, environment overrides, and validation. A missing file is not an
// error; defaults apply.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	data, err := os.ReadFile(expanded)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", expanded, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	default:
		return nil, fmt.Errorf("read config %s: %w", expanded, err)
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets credentials come from the environment (optionally
// seeded from a .env file) so keys stay out of the config file.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()
	if v := strings.TrimSpace(os.Getenv("CLIPFORGE_SCRIPTGEN_API_KEY")); v != "" {
		cfg.ScriptGen.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIPFORGE_IMAGEGEN_API_KEY")); v != "" {
		cfg.ImageGen.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIPFORGE_CLIPGEN_API_KEY")); v != "" {
		cfg.ClipGen.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("CLIPFORGE_NTFY_TOPIC")); v != "" {
		cfg.Notifications.NtfyTopic = v
	}
}

// Normalize expands home-relative paths in place.
func (c *Config) Normalize() error {
	for _, target := range []*string{&c.Paths.DataDir, &c.Paths.LogDir} {
		expanded, err := ExpandPath(*target)
		if err != nil {
			return err
		}
		*target = expanded
	}
	return nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
