package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the tool configuration
type Config struct {
	// Logging settings
	DecisionLogPath string `json:"decision_log_path,omitempty"` // Optional: path to the access-decision log
	AppLogPath      string `json:"app_log_path,omitempty"`      // Optional: path to the application log
	LogLevel        string `json:"log_level,omitempty"`         // debug, info, warn or error

	// Policy settings
	PolicyFile string `json:"policy_file,omitempty"` // Optional: YAML rule overrides applied at init

	// Portal settings
	PortalTimeout int `json:"portal_timeout,omitempty"` // Seconds before an unanswered dialog resolves; 0 disables

	// Status settings
	StatusDir string `json:"status_dir,omitempty"` // Optional: directory for daemon status files
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	// Convert relative paths to absolute paths based on config file location
	configDir := filepath.Dir(path)
	if config.DecisionLogPath != "" && !filepath.IsAbs(config.DecisionLogPath) {
		config.DecisionLogPath = filepath.Join(configDir, config.DecisionLogPath)
	}
	if config.AppLogPath != "" && !filepath.IsAbs(config.AppLogPath) {
		config.AppLogPath = filepath.Join(configDir, config.AppLogPath)
	}
	if config.PolicyFile != "" && !filepath.IsAbs(config.PolicyFile) {
		config.PolicyFile = filepath.Join(configDir, config.PolicyFile)
	}
	if config.StatusDir != "" && !filepath.IsAbs(config.StatusDir) {
		config.StatusDir = filepath.Join(configDir, config.StatusDir)
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	return nil
}
