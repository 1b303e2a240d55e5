// Package config loads process configuration from an optional YAML file
// and environment variables, environment winning on conflict.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Archive server
	BaseURL         string
	DownloadTimeout time.Duration

	// Output
	OutputDir string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Download history database; empty disables history.
	HistoryDB string

	// Task registry eviction
	TaskRetention time.Duration
}

// fileConfig mirrors the YAML config file layout.
type fileConfig struct {
	BaseURL         string `yaml:"base_url"`
	DownloadTimeout string `yaml:"download_timeout"`
	OutputDir       string `yaml:"output_dir"`
	LogFile         string `yaml:"log_file"`
	LogLevel        string `yaml:"log_level"`
	HistoryDB       string `yaml:"history_db"`
	TaskRetention   string `yaml:"task_retention"`
}

// Load builds the configuration: defaults, then the YAML file named by
// SPECFETCH_CONFIG (or ~/.config/specfetch/config.yaml when present), then
// environment variables on top.
func Load() Config {
	cfg := Config{
		BaseURL:         "https://www.3gpp.org/ftp/Specs/archive",
		DownloadTimeout: 600 * time.Second,
		OutputDir:       "./downloads",
		LogFile:         "/tmp/specfetch.log",
		LogLevel:        slog.LevelInfo,
		HistoryDB:       defaultHistoryPath(),
		TaskRetention:   time.Hour,
	}

	if path := configFilePath(); path != "" {
		if err := cfg.applyFile(path); err != nil {
			slog.Warn("ignoring config file", "path", path, "error", err)
		}
	}
	cfg.applyEnv()
	return cfg
}

func configFilePath() string {
	if p := os.Getenv("SPECFETCH_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := home + "/.config/specfetch/config.yaml"
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.OutputDir != "" {
		c.OutputDir = fc.OutputDir
	}
	if fc.LogFile != "" {
		c.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		c.LogLevel = parseLogLevel(fc.LogLevel)
	}
	if fc.HistoryDB != "" {
		c.HistoryDB = fc.HistoryDB
	}
	if fc.DownloadTimeout != "" {
		if d, err := time.ParseDuration(fc.DownloadTimeout); err == nil {
			c.DownloadTimeout = d
		}
	}
	if fc.TaskRetention != "" {
		if d, err := time.ParseDuration(fc.TaskRetention); err == nil {
			c.TaskRetention = d
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getEnv("SPECFETCH_BASE_URL", c.BaseURL)
	c.OutputDir = getEnv("SPECFETCH_OUTPUT_DIR", c.OutputDir)
	c.LogFile = getEnv("SPECFETCH_LOG_FILE", c.LogFile)
	c.HistoryDB = getEnv("SPECFETCH_HISTORY_DB", c.HistoryDB)

	if v := os.Getenv("SPECFETCH_LOG_LEVEL"); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv("SPECFETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DownloadTimeout = d
		}
	}
	if v := os.Getenv("SPECFETCH_TASK_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.TaskRetention = d
		}
	}
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.local/share/specfetch/history.db"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
