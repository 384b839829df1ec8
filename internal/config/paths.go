package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".payadmin"

// DataDir returns the base data directory for payadmin.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to the TOML configuration file.
func ConfigPath() (string, error) {
	return dataFile("config.toml")
}

// DBPath returns the path to the bbolt database holding the session and UI state.
func DBPath() (string, error) {
	return dataFile("payadmin.db")
}

// LogPath returns the path the dashboard writes its log to.
func LogPath() (string, error) {
	return dataFile("payadmin.log")
}

// EnvPath returns the path to the optional dotenv file in the data directory.
func EnvPath() (string, error) {
	return dataFile(".env")
}

// SandboxDBPath returns the default sqlite file for the local sandbox API.
func SandboxDBPath() (string, error) {
	return dataFile("sandbox.db")
}

func dataFile(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
