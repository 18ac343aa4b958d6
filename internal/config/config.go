// Package config loads golede settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DeviceConfig selects how to reach the bulb.
type DeviceConfig struct {
	// Mock talks to a simulated bulb instead of the Bluetooth adapter.
	Mock bool `mapstructure:"mock"`
}

// SessionConfig tunes the command session.
type SessionConfig struct {
	SettleDelay time.Duration `mapstructure:"settleDelay"`
}

// ScanConfig controls device discovery.
type ScanConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Prefixes []string      `mapstructure:"prefixes"`
}

// DemoConfig paces the demo sequence.
type DemoConfig struct {
	StepPause     time.Duration `mapstructure:"stepPause"`
	PresetPause   time.Duration `mapstructure:"presetPause"`
	RandomColours int           `mapstructure:"randomColours"`
}

// LumberjackConfig configures the rotating log file. An empty Filename disables it.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig sets level, encoding and file output.
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// Config is the top level configuration.
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Session SessionConfig `mapstructure:"session"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Demo    DemoConfig    `mapstructure:"demo"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load reads configuration from a YAML/TOML/JSON file and LEDE_ environment variables,
// with flags (if any) taking precedence. An empty path looks for lede.yaml in the
// working directory and ~/.config/golede; a missing file is not an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/golede")
		v.SetConfigName("lede")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("LEDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"mock":         "device.mock",
	"settle-delay": "session.settleDelay",
	"scan-timeout": "scan.timeout",
	"prefix":       "scan.prefixes",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"log-file":     "logging.file.filename",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.mock", false)

	v.SetDefault("session.settleDelay", "200ms")

	v.SetDefault("scan.timeout", "10s")
	v.SetDefault("scan.prefixes", []string{})

	v.SetDefault("demo.stepPause", "3s")
	v.SetDefault("demo.presetPause", "5s")
	v.SetDefault("demo.randomColours", 19)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", false)
}
