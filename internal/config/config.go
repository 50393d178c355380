// Package config loads docsman settings with Viper from command-line flags,
// DOCSMAN_* environment variables and an optional .docsman.yml file.
//
// Keys follow the <section>.<option> layout, so server.port can be set with
// --port, DOCSMAN_SERVER_PORT or a "server: {port: ...}" block in the file.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/conneroisu/docsman/internal/errors"
	"github.com/conneroisu/docsman/internal/logging"
)

// Viper keys.
const (
	KeyRoot       = "root"
	KeyHost       = "server.host"
	KeyPort       = "server.port"
	KeyAutoReload = "features.autoreload"
	KeyLegend     = "features.legend"
	KeyLogLevel   = "log.level"
	KeyLogFormat  = "log.format"
)

// Defaults.
const (
	DefaultHost      = "0.0.0.0"
	DefaultPort      = 8080
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

type Config struct {
	Root     string         `mapstructure:"root" yaml:"root"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Features FeaturesConfig `mapstructure:"features" yaml:"features"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type FeaturesConfig struct {
	AutoReload bool `mapstructure:"autoreload" yaml:"autoreload"`
	Legend     bool `mapstructure:"legend" yaml:"legend"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	// Registered so that DOCSMAN_ROOT is seen by Unmarshal.
	v.SetDefault(KeyRoot, "")
	v.SetDefault(KeyHost, DefaultHost)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyAutoReload, true)
	v.SetDefault(KeyLegend, true)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
}

// Load reads the configuration from v, makes the root absolute and
// validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	config.Server.Host = strings.TrimSpace(config.Server.Host)
	config.Log.Level = strings.ToLower(strings.TrimSpace(config.Log.Level))
	config.Log.Format = strings.ToLower(strings.TrimSpace(config.Log.Format))

	if config.Root != "" {
		abs, err := filepath.Abs(config.Root)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w",
				errors.NewConfigError("ERR_ROOT", fmt.Sprintf("cannot resolve root %q", config.Root)))
		}
		config.Root = abs
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, fmt.Sprint(c.Server.Port))
}

// LoggerConfig maps the log section onto a logging configuration writing to
// stderr.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.Log.Format
	cfg.Output = os.Stderr
	return cfg
}

func validateConfig(config *Config) error {
	if config.Root == "" {
		return errors.NewConfigError("ERR_ROOT", "a documentation root path is required")
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return errors.NewConfigError("ERR_LOG_LEVEL", fmt.Sprintf("unknown log level %q", config.Log.Level))
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return errors.NewConfigError("ERR_LOG_FORMAT", fmt.Sprintf("unknown log format %q (want text or json)", config.Log.Format))
	}

	return nil
}

// validateServerConfig accepts IP literals and localhost only, so a bad bind
// address is reported before anything starts listening.
func validateServerConfig(config *ServerConfig) error {
	if config.Port < 1 || config.Port > 65535 {
		return errors.NewConfigError("ERR_PORT", fmt.Sprintf("port %d is not in valid range 1-65535", config.Port))
	}

	if config.Host == "" {
		return errors.NewConfigError("ERR_HOST", "host must not be empty")
	}
	if config.Host != "localhost" && net.ParseIP(config.Host) == nil {
		return errors.NewConfigError("ERR_HOST", fmt.Sprintf("host %q is not an IP address", config.Host))
	}

	return nil
}
