package config_manager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/sirupsen/logrus"
)

// CurrentConfigVersion is the latest version of the config.json format.
const CurrentConfigVersion = "v0.0.3"

// DefaultConfigPath is used when SCANMUX_CONFIG_PATH is not set.
const DefaultConfigPath = "/etc/scanmux/config.json"

// TelemetryConfig holds the nostr telemetry publishing parameters.
type TelemetryConfig struct {
	Enabled    bool     `json:"enabled"`
	PrivateKey string   `json:"private_key"`
	Relays     []string `json:"relays"`
}

// Config holds the configuration parameters for the scan daemon.
type Config struct {
	ConfigVersion     string          `json:"config_version"`
	LogLevel          string          `json:"log_level"`
	InterfaceName     string          `json:"interface_name"`
	HwPnoSupported    bool            `json:"hw_pno_supported"`
	SwPnoScanPeriodMs int             `json:"sw_pno_scan_period_ms"`
	MaxApPerScan      int             `json:"max_ap_per_scan"`
	ListenAddress     string          `json:"listen_address"`
	ArchivePath       string          `json:"archive_path"`
	Telemetry         TelemetryConfig `json:"telemetry"`
}

// ConfigManager manages the configuration file.
type ConfigManager struct {
	FilePath string
}

// NewConfigManager creates a new ConfigManager instance.
func NewConfigManager(filePath string) (*ConfigManager, error) {
	if filePath == "" {
		filePath = os.Getenv("SCANMUX_CONFIG_PATH")
	}
	if filePath == "" {
		filePath = DefaultConfigPath
	}
	return &ConfigManager{FilePath: filePath}, nil
}

// NewDefaultConfig creates a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		ConfigVersion:     CurrentConfigVersion,
		LogLevel:          "info",
		InterfaceName:     "wlan0",
		HwPnoSupported:    true,
		SwPnoScanPeriodMs: 20000,
		MaxApPerScan:      32,
		ListenAddress:     ":2122",
		ArchivePath:       "/var/lib/scanmux/scans.db",
		Telemetry: TelemetryConfig{
			Enabled: false,
			Relays: []string{
				"wss://relay.damus.io",
				"wss://nos.lol",
				"wss://nostr.mom",
			},
		},
	}
}

// LoadConfig reads and parses the managed config file.
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(cm.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Return nil config if file does not exist
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil // Return nil config if file is empty
	}
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return &config, nil
}

// SaveConfig writes the configuration to the managed file with pretty formatting.
func (cm *ConfigManager) SaveConfig(config *Config) error {
	if err := os.MkdirAll(filepath.Dir(cm.FilePath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(cm.FilePath, data, 0644)
}

// EnsureDefaultConfig ensures a config file exists, creating the default if
// necessary. An existing config with an older config_version is backed up and
// replaced by the current default.
func (cm *ConfigManager) EnsureDefaultConfig() (*Config, error) {
	config, err := cm.LoadConfig()
	if err != nil {
		logger.WithError(err).Warn("Invalid config file, replacing with default")
		config = nil
	}

	defaultConfig := NewDefaultConfig()
	if config == nil {
		return defaultConfig, cm.SaveConfig(defaultConfig)
	}

	outdated, err := isOlderVersion(config.ConfigVersion, CurrentConfigVersion)
	if err != nil {
		logger.WithError(err).WithField("config_version", config.ConfigVersion).
			Warn("Unparseable config version, replacing with default")
		outdated = true
	}
	if outdated {
		if backupErr := cm.backupConfig(config.ConfigVersion); backupErr != nil {
			return nil, backupErr
		}
		return defaultConfig, cm.SaveConfig(defaultConfig)
	}

	return config, nil
}

// isOlderVersion reports whether have predates want.
func isOlderVersion(have, want string) (bool, error) {
	if have == "" {
		return true, nil
	}
	haveVersion, err := version.NewVersion(have)
	if err != nil {
		return false, err
	}
	wantVersion, err := version.NewVersion(want)
	if err != nil {
		return false, err
	}
	return haveVersion.LessThan(wantVersion), nil
}

// backupConfig moves the current config file aside before it gets replaced.
func (cm *ConfigManager) backupConfig(oldVersion string) error {
	if oldVersion == "" {
		oldVersion = "unversioned"
	}
	backupPath := fmt.Sprintf("%s.%s.%d.bak", cm.FilePath, oldVersion, time.Now().Unix())
	logger.WithFields(logrus.Fields{
		"old_version": oldVersion,
		"backup_path": backupPath,
	}).Info("Backing up outdated config file")
	return os.Rename(cm.FilePath, backupPath)
}
