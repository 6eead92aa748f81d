package configs

import (
	"fmt"
	"os"
	"path/filepath"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/PolarWolf314/coffer/internal/finance"
	"github.com/PolarWolf314/coffer/internal/secrets"
	"github.com/PolarWolf314/coffer/internal/session"
	"github.com/PolarWolf314/coffer/internal/store"
	"github.com/google/uuid"
)

// Storage drivers.
const (
	DriverBolt   = "bolt"
	DriverMemory = "memory"
)

// DatabaseFileName is the bolt file name used when storage.path is empty.
const DatabaseFileName = "coffer.db"

type Config struct {
	Storage      StorageConfig  `toml:"storage"`
	Security     SecurityConfig `toml:"security"`
	Display      DisplayConfig  `toml:"display"`
	Installation Installation   `toml:"installation"`
}

type StorageConfig struct {
	Driver string `toml:"driver"`
	// Path is the bolt database file. Empty means <data dir>/coffer.db.
	Path   string `toml:"path"`
	Prefix string `toml:"prefix"`
}

type SecurityConfig struct {
	Iterations  int `toml:"iterations"`
	MaxAttempts int `toml:"max_attempts"`
}

type DisplayConfig struct {
	// Currency is used when the stored settings carry none.
	Currency string `toml:"currency"`
}

type Installation struct {
	ID string `toml:"id"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: DriverBolt,
			Prefix: store.DefaultPrefix,
		},
		Security: SecurityConfig{
			Iterations:  secrets.DefaultIterations,
			MaxAttempts: session.DefaultMaxAttempts,
		},
		Display: DisplayConfig{
			Currency: finance.DefaultCurrency,
		},
	}
}

// Load reads the config file at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(path, config); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return config, nil
}

// Save writes config to path.
func Save(path string, config *Config) error {
	if err := SaveTOML(path, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// GenerateInstallationID generates a new installation UUID.
func GenerateInstallationID() string {
	return uuid.New().String()
}

// Ensure loads the config at path and, on first run, generates the
// installation id and writes the file.
func Ensure(path string) (*Config, error) {
	config, err := Load(path)
	if err != nil {
		return nil, err
	}

	if config.Installation.ID == "" {
		config.Installation.ID = GenerateInstallationID()
		if err := Save(path, config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// Validate rejects settings coffer cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverBolt, DriverMemory:
	default:
		return fmt.Errorf("%w: unknown storage driver %q (want %q or %q)", kerrors.ErrValidation, c.Storage.Driver, DriverBolt, DriverMemory)
	}
	if c.Storage.Prefix == "" {
		return fmt.Errorf("%w: storage prefix must not be empty", kerrors.ErrValidation)
	}
	if c.Security.Iterations < secrets.MinIterations {
		return fmt.Errorf("%w: security.iterations must be at least %d", kerrors.ErrValidation, secrets.MinIterations)
	}
	if c.Security.MaxAttempts <= 0 {
		return fmt.Errorf("%w: security.max_attempts must be positive", kerrors.ErrValidation)
	}
	if c.Installation.ID != "" {
		if _, err := uuid.Parse(c.Installation.ID); err != nil {
			return fmt.Errorf("%w: installation.id is not a UUID", kerrors.ErrValidation)
		}
	}
	return nil
}

// DatabasePath returns the bolt file location for dataDir.
func (c *Config) DatabasePath(dataDir string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(dataDir, DatabaseFileName)
}
