package config

import (
	"os"
	"path/filepath"
)

const (
	// ConfigDirName is the name of the config directory under ~/.config.
	ConfigDirName = "devbox"
	// ConfigFileName is the name of the main config file.
	ConfigFileName = "config.yaml"
	// StateDirName is the name of the state subdirectory.
	StateDirName = "state"
	// SecretsFileName is the file backend for API keys.
	SecretsFileName = "secrets.env"
	// AIEnvFileName is the shell-sourceable file with AI exports.
	AIEnvFileName = "ai.env"
)

// ConfigDir returns the config directory path (~/.config/devbox).
// Respects XDG_CONFIG_HOME if set.
func ConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDirName), nil
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	return inConfigDir(ConfigFileName)
}

// StateDir returns the path to the state directory.
func StateDir() (string, error) {
	return inConfigDir(StateDirName)
}

// SecretsPath returns the path of the file-based secrets store.
func SecretsPath() (string, error) {
	return inConfigDir(SecretsFileName)
}

// AIEnvPath returns the path of the generated AI env file.
func AIEnvPath() (string, error) {
	return inConfigDir(AIEnvFileName)
}

func inConfigDir(name string) (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, name), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	configDir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}
	// Also ensure state directory exists
	stateDir, err := StateDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(stateDir, 0755)
}
