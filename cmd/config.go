// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/actuator"
	"github.com/Thermoquad/actuatorctl/pkg/canbus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Transport kinds accepted by --transport
const (
	TransportSocketCAN = "socketcan"
	TransportSLCAN     = "slcan"
	TransportWebSocket = "ws"
)

// TransportConfig selects and configures the CAN transport
type TransportConfig struct {
	Kind        string        `mapstructure:"kind"`
	Interface   string        `mapstructure:"interface"`
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	Bitrate     int           `mapstructure:"bitrate"`
	URL         string        `mapstructure:"url"`
	Username    string        `mapstructure:"username"`
	NoSSLVerify bool          `mapstructure:"noSSLVerify"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// DeviceConfig holds the actuator identifiers. Identifiers are strings so
// that hex (0xFF0000) and decimal forms both work in flags, env and files.
type DeviceConfig struct {
	CommandID string   `mapstructure:"commandID"`
	ReportID  string   `mapstructure:"reportID"`
	Ignore    []string `mapstructure:"ignore"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// Config is the top-level CLI configuration
type Config struct {
	Transport TransportConfig `mapstructure:"transport"`
	Device    DeviceConfig    `mapstructure:"device"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Trace     bool            `mapstructure:"trace"`
}

// flagKeys maps persistent flag names to config keys
var flagKeys = map[string]string{
	"transport":     "transport.kind",
	"interface":     "transport.interface",
	"port":          "transport.port",
	"baud":          "transport.baud",
	"bitrate":       "transport.bitrate",
	"url":           "transport.url",
	"username":      "transport.username",
	"no-ssl-verify": "transport.noSSLVerify",
	"timeout":       "transport.timeout",
	"command-id":    "device.commandID",
	"report-id":     "device.reportID",
	"ignore":        "device.ignore",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"log-file":      "logging.file",
	"metrics-addr":  "metrics.addr",
	"trace":         "trace",
}

// LoadConfig reads the configuration from an optional file, ACTUATOR_*
// environment variables and the given flags, in increasing precedence
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	v.SetEnvPrefix("ACTUATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("actuatorctl")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/actuatorctl")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("transport.kind", TransportSocketCAN)
	v.SetDefault("transport.interface", "can0")
	v.SetDefault("transport.baud", 115200)
	v.SetDefault("transport.bitrate", 500000)
	v.SetDefault("transport.timeout", "2s")

	v.SetDefault("device.commandID", fmt.Sprintf("0x%06X", actuator.DefaultCommandAddress))
	v.SetDefault("device.reportID", fmt.Sprintf("0x%06X", actuator.DefaultReportAddress))

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.maxSize", 10)
	v.SetDefault("logging.maxBackups", 3)
	v.SetDefault("logging.maxAge", 28)

	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks values that flags and env vars cannot constrain
func (c *Config) Validate() error {
	switch c.Transport.Kind {
	case TransportSocketCAN, TransportSLCAN, TransportWebSocket:
	default:
		return fmt.Errorf("unsupported transport %q (use socketcan, slcan or ws)", c.Transport.Kind)
	}
	if c.Transport.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Transport.Timeout)
	}
	if _, err := c.Device.Options(); err != nil {
		return err
	}
	return nil
}

// Options converts the device section to actuator options
func (d DeviceConfig) Options() ([]actuator.Option, error) {
	var opts []actuator.Option

	if d.CommandID != "" {
		id, err := parseIdentifier(d.CommandID)
		if err != nil {
			return nil, fmt.Errorf("command id: %w", err)
		}
		opts = append(opts, actuator.WithCommandAddress(id))
	}
	if d.ReportID != "" {
		id, err := parseIdentifier(d.ReportID)
		if err != nil {
			return nil, fmt.Errorf("report id: %w", err)
		}
		opts = append(opts, actuator.WithReportAddress(id))
	}

	ignore := make([]uint32, 0, len(d.Ignore))
	for _, s := range d.Ignore {
		id, err := parseIdentifier(s)
		if err != nil {
			return nil, fmt.Errorf("ignore: %w", err)
		}
		ignore = append(ignore, id)
	}
	if len(ignore) > 0 {
		opts = append(opts, actuator.WithIgnore(ignore...))
	}

	return opts, nil
}

// parseIdentifier parses a 29-bit identifier in decimal, 0x hex or 0o octal
func parseIdentifier(s string) (uint32, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	if id > canbus.MaxExtendedID {
		return 0, fmt.Errorf("identifier %q exceeds 29 bits", s)
	}
	return uint32(id), nil
}
