package configs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that override the default locations.
const (
	EnvConfig  = "COFFER_CONFIG"
	EnvDataDir = "COFFER_DATA_DIR"
)

// ConfigFileName is the config file name inside the config directory.
const ConfigFileName = "config.toml"

// Paths locates coffer's files on disk.
type Paths struct {
	// ConfigFile is the TOML config file.
	ConfigFile string
	// DataDir holds the database and the audit trail.
	DataDir string
}

// ResolvePaths works out where the config file and data directory live.
// Explicit arguments win, then COFFER_CONFIG and COFFER_DATA_DIR, then
// $XDG_CONFIG_HOME/coffer and $XDG_DATA_HOME/coffer.
func ResolvePaths(configFile, dataDir string) (Paths, error) {
	if configFile == "" {
		configFile = os.Getenv(EnvConfig)
	}
	if configFile == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return Paths{}, fmt.Errorf("error getting config directory: %w", err)
		}
		configFile = filepath.Join(configDir, "coffer", ConfigFileName)
	}

	if dataDir == "" {
		dataDir = os.Getenv(EnvDataDir)
	}
	if dataDir == "" {
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return Paths{}, fmt.Errorf("error getting home directory: %w", err)
			}
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
		dataDir = filepath.Join(dataHome, "coffer")
	}

	return Paths{ConfigFile: configFile, DataDir: dataDir}, nil
}
