// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/actuator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string

	// Loaded in PersistentPreRunE
	cfg           *Config
	logger        = zap.NewNop()
	registry      *prometheus.Registry
	metrics       *actuator.Metrics
	metricsServer *http.Server
)

var rootCmd = &cobra.Command{
	Use:   "actuatorctl",
	Short: "CAN Actuator Command Tool",
	Long: `actuatorctl - A CLI tool for commanding and querying a CAN actuator.

Sends 8-byte command frames to the actuator's command identifier and decodes
the confirmation echoes and reports it sends back on its report identifier.

Connection modes:
  SocketCAN: --transport socketcan --interface can0
  SLCAN:     --transport slcan --port /dev/ttyACM0 [--bitrate 500000]
  WebSocket: --transport ws --url ws://host/path [--username user]

Every flag can also be set in a config file (--config, or actuatorctl.yaml in
the current directory or ~/.config/actuatorctl) or through ACTUATOR_*
environment variables, e.g. ACTUATOR_TRANSPORT_KIND=slcan.

For WebSocket authentication, the password is read from the ACTUATOR_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")

	// Transport flags
	flags.StringP("transport", "t", TransportSocketCAN, "Transport: socketcan, slcan or ws")
	flags.StringP("interface", "i", "can0", "SocketCAN interface")
	flags.StringP("port", "p", "", "Serial port device (slcan only)")
	flags.IntP("baud", "b", 115200, "Baud rate (slcan only)")
	flags.Int("bitrate", 500000, "CAN bitrate (slcan only)")
	flags.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
	flags.Duration("timeout", 2*time.Second, "Receive timeout per frame")

	// Device flags
	flags.String("command-id", "0xFF0000", "Identifier commands are sent to")
	flags.String("report-id", "0xFF0001", "Identifier reports are expected from")
	flags.StringSlice("ignore", nil, "Identifiers to drop on receive (repeatable)")

	// Diagnostics flags
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-format", "console", "Log format: console or json")
	flags.String("log-file", "", "Also write logs to this file (rotated)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	flags.Bool("trace", false, "Print every frame sent and received to stderr")
}

// setup loads the configuration and starts logging and metrics
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = loaded

	logger, err = NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	registry = NewRegistry()
	metrics = actuator.NewMetrics(registry)
	if cfg.Metrics.Addr != "" {
		metricsServer = StartMetricsServer(cfg.Metrics, registry, logger)
	}

	logger.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("transport", cfg.Transport.Kind),
		zap.Duration("timeout", cfg.Transport.Timeout),
	)
	return nil
}

// teardown stops the metrics server and flushes the logger. It runs after
// every command, including failed ones.
func teardown() {
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		metricsServer.Shutdown(ctx)
	}
	_ = logger.Sync()
}

// ExitError carries a specific process exit code out of a command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Execute runs the root command
func Execute() error {
	defer teardown()
	return rootCmd.Execute()
}
