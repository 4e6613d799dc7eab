package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config is the on-disk configuration of the surgery CLI.
type Config struct {
	// Validation is "full" (decode all pixels) or "header" (decode
	// headers only) for the post-rewrite check.
	Validation string `json:"validation"`
	// JPEGDecoder is "std" (image/jpeg) or "jpegli".
	JPEGDecoder string `json:"jpeg_decoder"`
	// MaxInflateBytes caps zTXt/iTXt decompression.
	MaxInflateBytes int64 `json:"max_inflate_bytes"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `json:"log_level"`
	// JSON switches CLI output to JSON.
	JSON bool `json:"json"`
}

// DefaultMaxInflateBytes is used when the config leaves the cap unset.
const DefaultMaxInflateBytes = 8 << 20

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Validation:      "full",
		JPEGDecoder:     "std",
		MaxInflateBytes: DefaultMaxInflateBytes,
		LogLevel:        "warn",
	}
}

// ConfigPath returns ~/.config/web-image-meta/config.json.
func ConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", IOErr(err, "locate home directory")
	}
	return filepath.Join(homeDir, ".config", "web-image-meta", "config.json"), nil
}

// LoadConfig reads path, filling unset fields from DefaultConfig.
// A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, IOErr(err, "read config")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, &Error{Kind: InvalidFormat, Msg: "decode config " + path, Err: err}
	}
	if cfg.Validation == "" {
		cfg.Validation = "full"
	}
	if cfg.JPEGDecoder == "" {
		cfg.JPEGDecoder = "std"
	}
	if cfg.MaxInflateBytes <= 0 {
		cfg.MaxInflateBytes = DefaultMaxInflateBytes
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	return cfg, cfg.Validate()
}

// SaveConfig writes cfg as indented JSON, creating the directory.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return IOErr(err, "creating config directory")
	}
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return IOErr(err, "write config")
	}
	return nil
}

// Validate rejects unknown enum values.
func (c Config) Validate() error {
	switch c.Validation {
	case "full", "header":
	default:
		return InvalidFormatf("config: unknown validation %q", c.Validation)
	}
	switch c.JPEGDecoder {
	case "std", "jpegli":
	default:
		return InvalidFormatf("config: unknown jpeg_decoder %q", c.JPEGDecoder)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel onto slog.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, InvalidFormatf("config: unknown log_level %q", c.LogLevel)
}
