package models

import "time"

// VaultConfig is the merged configuration for the session vault, loaded from
// .svaultconfig with defaults applied for missing keys.
type VaultConfig struct {
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Recovery RecoveryConfig `yaml:"recovery" mapstructure:"recovery"`
	AutoSave AutoSaveConfig `yaml:"autosave" mapstructure:"autosave"`
}

// StorageConfig controls the on-disk envelope format and read limits.
type StorageConfig struct {
	// Compression enables zstd compression of the session payload.
	Compression bool `yaml:"compression" mapstructure:"compression"`
	// CompressionLevel is the zstd level (1 fastest, 22 smallest).
	CompressionLevel int `yaml:"compression_level" mapstructure:"compression_level"`
	// Checksum embeds a digest of the uncompressed payload in each envelope.
	Checksum bool `yaml:"checksum" mapstructure:"checksum"`
	// MaxFileSize bounds how large a session file may be before reads and
	// validation reject it, in bytes.
	MaxFileSize int64 `yaml:"max_file_size" mapstructure:"max_file_size"`
}

// RecoveryConfig controls failure tracking and quarantine behavior.
type RecoveryConfig struct {
	// QuarantineThreshold is the number of consecutive restoration failures
	// after which a session is marked problematic.
	QuarantineThreshold int `yaml:"quarantine_threshold" mapstructure:"quarantine_threshold"`
	// RetentionHours is how long failure records are kept before the
	// retention sweep ages them out.
	RetentionHours int `yaml:"retention_hours" mapstructure:"retention_hours"`
}

// AutoSaveConfig controls the periodic save of the current session.
type AutoSaveConfig struct {
	Enabled         bool `yaml:"enabled" mapstructure:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds" mapstructure:"interval_seconds"`
}

// Retention returns the failure-record retention window as a duration.
func (c RecoveryConfig) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

// Interval returns the auto-save interval as a duration.
func (c AutoSaveConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
