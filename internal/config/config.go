// Package config loads the display server's configuration using Viper.
//
// Precedence, lowest to highest: defaults, config file, CASCADE_* env
// vars, flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the display server's configuration.
type Config struct {
	// Socket is the name or absolute path of the listening socket. If
	// it is empty, the first free wayland-N in $XDG_RUNTIME_DIR is
	// used.
	Socket string `mapstructure:"socket"`

	// FlushInterval is how often queued requests are dispatched and
	// queued events are sent.
	FlushInterval time.Duration `mapstructure:"flush_interval"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Extensions ExtensionsConfig `mapstructure:"extensions"`
}

// ExtensionsConfig controls which optional protocol extensions are
// advertised.
type ExtensionsConfig struct {
	Disabled []string `mapstructure:"disabled"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		FlushInterval: time.Second / 60,
		LogLevel:      "",
		LogFormat:     "auto",
	}
}

// AddFlags adds the configuration flags to fs.
func AddFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String("config", "", "path to config file (overrides auto-discovery)")
	fs.String("socket", def.Socket, "socket name or path to listen on (default: first free wayland-N)")
	fs.Duration("flush-interval", def.FlushInterval, "interval between dispatch flushes")
	fs.String("log-level", def.LogLevel, "log level: debug|info|warn|error (default: $LOG_LEVEL or info)")
	fs.String("log-format", def.LogFormat, "log format: auto|text|json")
	fs.StringSlice("disable-extension", def.Extensions.Disabled, "protocol extension to leave unadvertised (repeatable)")
}

var flagKeys = map[string]string{
	"socket":            "socket",
	"flush-interval":    "flush_interval",
	"log-level":         "log_level",
	"log-format":        "log_format",
	"disable-extension": "extensions.disabled",
}

// Load reads the configuration into v from the config file, the
// environment and fs, which should have been populated by AddFlags. fs
// may be nil.
func Load(v *viper.Viper, fs *pflag.FlagSet) (Config, error) {
	def := Default()
	v.SetDefault("socket", def.Socket)
	v.SetDefault("flush_interval", def.FlushInterval)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("extensions.disabled", def.Extensions.Disabled)

	var configFlag string
	if fs != nil {
		configFlag, _ = fs.GetString("config")
	}
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("cascade")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/cascade")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "cascade"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("CASCADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %q: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// ExtensionDisabled reports whether the named extension was disabled.
func (cfg Config) ExtensionDisabled(name string) bool {
	for _, d := range cfg.Extensions.Disabled {
		if d == name {
			return true
		}
	}
	return false
}
