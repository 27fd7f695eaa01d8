// Package core contains configuration loading and validation for the
// session vault.
package core

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/valter-silva-au/session-vault/pkg/models"
)

// ConfigurationManager loads and validates the vault configuration from the
// .svaultconfig file in the base path.
type ConfigurationManager interface {
	LoadConfig() (*models.VaultConfig, error)
	ValidateConfig(cfg *models.VaultConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for reading
// the YAML configuration file.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// .svaultconfig relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns a VaultConfig populated with sensible defaults.
func DefaultConfig() *models.VaultConfig {
	return &models.VaultConfig{
		Storage: models.StorageConfig{
			Compression:      true,
			CompressionLevel: 3,
			Checksum:         true,
			MaxFileSize:      50 * 1024 * 1024,
		},
		Recovery: models.RecoveryConfig{
			QuarantineThreshold: 3,
			RetentionHours:      24,
		},
		AutoSave: models.AutoSaveConfig{
			Enabled:         true,
			IntervalSeconds: 30,
		},
	}
}

// LoadConfig reads .svaultconfig from the base path. If the file does not
// exist, defaults are returned.
func (cm *viperConfigManager) LoadConfig() (*models.VaultConfig, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(".svaultconfig")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("storage.compression", cfg.Storage.Compression)
	v.SetDefault("storage.compression_level", cfg.Storage.CompressionLevel)
	v.SetDefault("storage.checksum", cfg.Storage.Checksum)
	v.SetDefault("storage.max_file_size", cfg.Storage.MaxFileSize)
	v.SetDefault("recovery.quarantine_threshold", cfg.Recovery.QuarantineThreshold)
	v.SetDefault("recovery.retention_hours", cfg.Recovery.RetentionHours)
	v.SetDefault("autosave.enabled", cfg.AutoSave.Enabled)
	v.SetDefault("autosave.interval_seconds", cfg.AutoSave.IntervalSeconds)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .svaultconfig: %w", err)
	}

	cfg.Storage.Compression = v.GetBool("storage.compression")
	cfg.Storage.CompressionLevel = v.GetInt("storage.compression_level")
	cfg.Storage.Checksum = v.GetBool("storage.checksum")
	cfg.Storage.MaxFileSize = v.GetInt64("storage.max_file_size")
	cfg.Recovery.QuarantineThreshold = v.GetInt("recovery.quarantine_threshold")
	cfg.Recovery.RetentionHours = v.GetInt("recovery.retention_hours")
	cfg.AutoSave.Enabled = v.GetBool("autosave.enabled")
	cfg.AutoSave.IntervalSeconds = v.GetInt("autosave.interval_seconds")

	return cfg, nil
}

// ValidateConfig checks the configuration for invalid values and returns a
// clear error message identifying every problem.
func (cm *viperConfigManager) ValidateConfig(cfg *models.VaultConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.Storage.CompressionLevel < 1 || cfg.Storage.CompressionLevel > 22 {
		errs = append(errs, fmt.Sprintf(
			"storage.compression_level %d is invalid, must be between 1 and 22",
			cfg.Storage.CompressionLevel,
		))
	}
	if cfg.Storage.MaxFileSize <= 0 {
		errs = append(errs, fmt.Sprintf(
			"storage.max_file_size must be positive, got %d", cfg.Storage.MaxFileSize,
		))
	}
	if cfg.Recovery.QuarantineThreshold < 1 {
		errs = append(errs, fmt.Sprintf(
			"recovery.quarantine_threshold must be at least 1, got %d",
			cfg.Recovery.QuarantineThreshold,
		))
	}
	if cfg.Recovery.RetentionHours < 1 {
		errs = append(errs, fmt.Sprintf(
			"recovery.retention_hours must be at least 1, got %d",
			cfg.Recovery.RetentionHours,
		))
	}
	if cfg.AutoSave.Enabled && cfg.AutoSave.IntervalSeconds < 1 {
		errs = append(errs, fmt.Sprintf(
			"autosave.interval_seconds must be at least 1 when enabled, got %d",
			cfg.AutoSave.IntervalSeconds,
		))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
