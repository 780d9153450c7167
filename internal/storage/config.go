package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds application configuration.
type Config struct {
	DefaultRoot         string   `json:"defaultRoot"`
	AuditExcludeDomains []string `json:"auditExcludeDomains"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultRoot:         "bookmark_bar",
		AuditExcludeDomains: []string{"github.com", "gitlab.com"},
	}
}

// LoadConfig reads config from the JSON file.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			// Non-fatal: return defaults even if save fails
			_ = SaveConfig(path, &config)
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if config.DefaultRoot == "" {
		config.DefaultRoot = defaults.DefaultRoot
	}
	if config.AuditExcludeDomains == nil {
		config.AuditExcludeDomains = defaults.AuditExcludeDomains
	}

	return &config, nil
}

// SaveConfig writes config to the JSON file.
// Creates the directory if it doesn't exist.
func SaveConfig(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultStorePath returns the default store file path:
// ~/.config/bmsync/bookmarks.json
func DefaultStorePath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bookmarks.json"), nil
}

// DefaultBackupsDir returns the default backups directory:
// ~/.config/bmsync/backups
func DefaultBackupsDir() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "backups"), nil
}

// DefaultConfigFilePath returns the default config path:
// ~/.config/bmsync/config.json
func DefaultConfigFilePath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func configDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bmsync"), nil
}
