package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ghodss/yaml"

	"github.com/safing/ledgerbase/formats/dsd"
	"github.com/safing/ledgerbase/log"
	"github.com/safing/ledgerbase/storage"
)

// Defaults.
const (
	DefaultName        = "ledger"
	DefaultStorageType = "bbolt"
	DefaultLocation    = "./ledger-data"
	DefaultScanStart   = "000"
	DefaultScanEnd     = "999"
)

// Errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds everything needed to open a ledger.
type Config struct {
	Name        string `json:"name"`
	StorageType string `json:"storage_type"`
	Location    string `json:"location"`
	Format      string `json:"format"`
	ScanStart   string `json:"scan_start"`
	ScanEnd     string `json:"scan_end"`
	LogLevel    string `json:"log_level"`
	Metrics     bool   `json:"metrics"`

	// IdentifyFormat prefixes stored records with their format identifier,
	// so that records written in different formats can be read back.
	IdentifyFormat bool `json:"identify_format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Name:        DefaultName,
		StorageType: DefaultStorageType,
		Location:    DefaultLocation,
		Format:      dsd.JSON.String(),
		ScanStart:   DefaultScanStart,
		ScanEnd:     DefaultScanEnd,
		LogLevel:    "info",
	}
}

// Load loads configuration from a YAML file if path is provided, applies
// environment variable overrides, fills in defaults and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides allows environment variables to override file values.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LEDGER_NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv("LEDGER_STORAGE_TYPE"); v != "" {
		cfg.StorageType = v
	}
	if v := os.Getenv("LEDGER_LOCATION"); v != "" {
		cfg.Location = v
	}
	if v := os.Getenv("LEDGER_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("LEDGER_IDENTIFY_FORMAT"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LEDGER_IDENTIFY_FORMAT value: %w", err)
		}
		cfg.IdentifyFormat = enabled
	}
	if v := os.Getenv("LEDGER_SCAN_START"); v != "" {
		cfg.ScanStart = v
	}
	if v := os.Getenv("LEDGER_SCAN_END"); v != "" {
		cfg.ScanEnd = v
	}
	if v := os.Getenv("LEDGER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LEDGER_METRICS"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LEDGER_METRICS value: %w", err)
		}
		cfg.Metrics = enabled
	}
	return nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.StorageType == "" {
		cfg.StorageType = DefaultStorageType
	}
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if cfg.Format == "" {
		cfg.Format = dsd.JSON.String()
	}
	// An explicit start without end means an unbounded scan.
	if cfg.ScanStart == "" && cfg.ScanEnd == "" {
		cfg.ScanStart = DefaultScanStart
		cfg.ScanEnd = DefaultScanEnd
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks the configuration for errors.
func (cfg *Config) Validate() error {
	if !storage.Registered(cfg.StorageType) {
		return fmt.Errorf("%w: unknown storage type %q (available: %v)", ErrInvalidConfig, cfg.StorageType, storage.Types())
	}
	if _, err := dsd.ParseFormat(cfg.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := storage.CheckRange(cfg.ScanStart, cfg.ScanEnd); err != nil {
		return fmt.Errorf("%w: scan range [%q, %q): %w", ErrInvalidConfig, cfg.ScanStart, cfg.ScanEnd, err)
	}
	if log.ParseLevel(cfg.LogLevel) == 0 {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, cfg.LogLevel)
	}
	return nil
}

// SerializationFormat returns the parsed record format.
func (cfg *Config) SerializationFormat() dsd.SerializationFormat {
	format, err := dsd.ParseFormat(cfg.Format)
	if err != nil {
		return dsd.DefaultSerializationFormat
	}
	return format
}
