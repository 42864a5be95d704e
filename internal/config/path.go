package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	appDir      = "voce"
	configFile  = "config.toml"
	envFileName = "voce.env"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.toml location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, configFile), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", appDir, configFile), nil
}

// EnvPath is the dotenv file that sits next to the config file.
func EnvPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), envFileName)
}

// LoadEnvFile exports KEY=value pairs from path into the process
// environment. Variables that are already set win. A missing file is not
// an error; loaded reports whether one was read.
func LoadEnvFile(path string) (loaded bool, err error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat env file %q: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("load env file %q: %w", path, err)
	}
	return true, nil
}
