package paths

import (
	"os"
	"path/filepath"
)

const appName = "mcpbridge"

// ConfigEnvVar overrides the config file location.
const ConfigEnvVar = "MCPBRIDGE_CONFIG"

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func xdgDir(envVar string, fallbackParts ...string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, appName)
	}
	parts := append([]string{homeDir()}, fallbackParts...)
	return filepath.Join(append(parts, appName)...)
}

// ConfigDir returns the config directory ($XDG_CONFIG_HOME/mcpbridge).
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the state directory ($XDG_STATE_HOME/mcpbridge).
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

// ConfigFile returns the path to config.toml, honoring $MCPBRIDGE_CONFIG.
func ConfigFile() string {
	if v := os.Getenv(ConfigEnvVar); v != "" {
		return v
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// SignalsFile returns where `mcpbridge bridge` records the messaging
// signals of its last run.
func SignalsFile() string {
	return filepath.Join(StateDir(), "last-signals.json")
}
