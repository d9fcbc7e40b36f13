package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/thinkwright/hl7v/internal/reference"
)

type Config struct {
	DocBaseURL      string `json:"doc_base_url"`
	StandardVersion string `json:"standard_version"`
	HistoryVisible  bool   `json:"history_visible"`
	DefaultTab      string `json:"default_tab"` // "parser", "explorer"
	SerialBaud      int    `json:"serial_baud"`
	HistoryLimit    int    `json:"history_limit"`
}

// DocURL returns the documentation link for a segment code.
func (c Config) DocURL(code string) string {
	return reference.DocURL(c.DocBaseURL, c.StandardVersion, code)
}

func DefaultConfig() Config {
	return Config{
		DocBaseURL:      reference.DefaultDocBaseURL,
		StandardVersion: reference.DefaultStandardVersion,
		HistoryVisible:  false,
		DefaultTab:      "parser",
		SerialBaud:      9600,
		HistoryLimit:    200,
	}
}

func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "hl7v")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "hl7v")
}

func configPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func Load() Config {
	cfg := DefaultConfig()
	data, err := os.ReadFile(configPath())
	if err != nil {
		return cfg
	}
	_ = json.Unmarshal(data, &cfg) // ignore errors; fall back to defaults
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	return cfg
}

func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0o644)
}
