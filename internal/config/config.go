package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DataDir  string `json:"dataDir"`
	HTTPAddr string `json:"httpAddr"`
	// APIURL is the base URL client commands talk to.
	APIURL string `json:"apiUrl"`
	// PageSize is the number of entries a fetch returns per page.
	PageSize int `json:"pageSize"`
	// InboxSize bounds every actor inbox; 0 keeps inboxes unbounded.
	InboxSize int `json:"inboxSize"`
	// EmptyText is shown by views when a load produced no rows.
	EmptyText string `json:"emptyText"`
	// NameRegex validates group and stream names.
	NameRegex string          `json:"nameRegex"`
	Log       LogConfig       `json:"log"`
	Export    ExportConfig    `json:"export"`
	Retention RetentionConfig `json:"retention"`
}

// LogConfig selects the process logger.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// ExportConfig bounds full-stream exports.
type ExportConfig struct {
	// MaxPages stops an export early with a resume token; 0 means unbounded.
	MaxPages int `json:"maxPages"`
}

// RetentionConfig drives age-based trimming in the server.
type RetentionConfig struct {
	MaxAgeMs   int64 `json:"maxAgeMs"`
	IntervalMs int64 `json:"intervalMs"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:  ":8080",
		APIURL:    "http://127.0.0.1:8080",
		PageSize:  100,
		EmptyText: "No events",
		NameRegex: `^[A-Za-z0-9._\-]{1,256}$`,
		Log:       LogConfig{Level: "info", Format: "text"},
		Export:    ExportConfig{MaxPages: 20},
		Retention: RetentionConfig{IntervalMs: 60_000},
	}
}

// Load reads configuration from a JSON file. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return Config{}, errors.New("yaml config not supported; use JSON")
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("pageSize must be positive, got %d", c.PageSize)
	}
	if c.InboxSize < 0 {
		return fmt.Errorf("inboxSize must not be negative, got %d", c.InboxSize)
	}
	if _, err := regexp.Compile(c.NameRegex); err != nil {
		return fmt.Errorf("nameRegex: %w", err)
	}
	return nil
}
