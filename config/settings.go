package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every setting read from the environment,
// e.g. ROUTEADD_REGISTRY.
const EnvPrefix = "ROUTEADD"

// Settings holds the tool configuration
type Settings struct {
	RegistryPath string `mapstructure:"registry"`     // JSON registry of provisioned apps
	ComposeFile  string `mapstructure:"compose_file"` // Relative to the app directory
	Network      string `mapstructure:"network"`      // Shared network the proxy lives on
	EntryPoint   string `mapstructure:"entrypoint"`   // Traefik entrypoint for routers
	LogLevel     string `mapstructure:"log_level"`

	// Parse "8080:80/tcp" style ports entries as 80 instead of skipping them
	StripPortProtocol bool `mapstructure:"strip_port_protocol"`
}

// Defaults returns the default settings
func Defaults() Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/"
	}

	return Settings{
		RegistryPath: filepath.Join(home, "docker-infrastructure", "config", "apps.json"),
		ComposeFile:  "docker-compose.yml",
		Network:      "web",
		EntryPoint:   DefaultEntryPoint,
		LogLevel:     "info",
	}
}

// SetDefaults registers defaults and environment lookup on v
func SetDefaults(v *viper.Viper) {
	defaults := Defaults()
	v.SetDefault("registry", defaults.RegistryPath)
	v.SetDefault("compose_file", defaults.ComposeFile)
	v.SetDefault("network", defaults.Network)
	v.SetDefault("entrypoint", defaults.EntryPoint)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("strip_port_protocol", defaults.StripPortProtocol)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// ReadConfigFile loads an optional settings file into v.
// An explicit path must exist; otherwise ~/.config/routeadd/config.yaml is
// used when present and silently skipped when not.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(filepath.Join(home, ".config", "routeadd"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load resolves the settings from v
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decoding config: %w", err)
	}

	if s.ComposeFile == "" {
		return s, fmt.Errorf("compose_file must not be empty")
	}
	if s.Network == "" {
		return s, fmt.Errorf("network must not be empty")
	}
	if s.EntryPoint == "" {
		s.EntryPoint = DefaultEntryPoint
	}

	return s, nil
}
