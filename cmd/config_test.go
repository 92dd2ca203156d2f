// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/actuator"
	"github.com/Thermoquad/actuatorctl/pkg/canbus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nullInterface satisfies canbus.Interface for option tests
type nullInterface struct{}

func (nullInterface) Open(time.Duration) (canbus.Bus, error) { return nil, os.ErrInvalid }
func (nullInterface) String() string { return "null" }

// testFlags mirrors the persistent flags used by LoadConfig
func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("transport", TransportSocketCAN, "")
	fs.String("port", "", "")
	fs.Duration("timeout", 2*time.Second, "")
	fs.String("command-id", "0xFF0000", "")
	fs.StringSlice("ignore", nil, "")
	fs.Bool("trace", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", testFlags(t))
	require.NoError(t, err)

	assert.Equal(t, TransportSocketCAN, cfg.Transport.Kind)
	assert.Equal(t, "can0", cfg.Transport.Interface)
	assert.Equal(t, 115200, cfg.Transport.Baud)
	assert.Equal(t, 500000, cfg.Transport.Bitrate)
	assert.Equal(t, 2*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, "0xFF0000", cfg.Device.CommandID)
	assert.Equal(t, "0xFF0001", cfg.Device.ReportID)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Trace)
}

func TestLoadConfig_Flags(t *testing.T) {
	fs := testFlags(t, "--transport", "slcan", "--port", "/dev/ttyACM0",
		"--timeout", "500ms", "--ignore", "0x10,0x20", "--trace")

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	assert.Equal(t, TransportSLCAN, cfg.Transport.Kind)
	assert.Equal(t, "/dev/ttyACM0", cfg.Transport.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Transport.Timeout)
	assert.Equal(t, []string{"0x10", "0x20"}, cfg.Device.Ignore)
	assert.True(t, cfg.Trace)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("ACTUATOR_TRANSPORT_KIND", "ws")
	t.Setenv("ACTUATOR_TRANSPORT_URL", "ws://bridge.local/can")
	t.Setenv("ACTUATOR_DEVICE_REPORTID", "0x123")

	cfg, err := LoadConfig("", testFlags(t))
	require.NoError(t, err)

	assert.Equal(t, TransportWebSocket, cfg.Transport.Kind)
	assert.Equal(t, "ws://bridge.local/can", cfg.Transport.URL)
	assert.Equal(t, "0x123", cfg.Device.ReportID)
}

func TestLoadConfig_FlagBeatsEnv(t *testing.T) {
	t.Setenv("ACTUATOR_TRANSPORT_KIND", "ws")

	cfg, err := LoadConfig("", testFlags(t, "--transport", "slcan"))
	require.NoError(t, err)
	assert.Equal(t, TransportSLCAN, cfg.Transport.Kind)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actuatorctl.yaml")
	content := `transport:
  kind: slcan
  port: /dev/ttyUSB1
  bitrate: 250000
device:
  reportID: "0x200"
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path, testFlags(t))
	require.NoError(t, err)

	assert.Equal(t, TransportSLCAN, cfg.Transport.Kind)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Transport.Port)
	assert.Equal(t, 250000, cfg.Transport.Bitrate)
	assert.Equal(t, "0x200", cfg.Device.ReportID)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), testFlags(t))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown transport", []string{"--transport", "usb"}},
		{"zero timeout", []string{"--timeout", "0s"}},
		{"bad command id", []string{"--command-id", "nope"}},
		{"bad ignore id", []string{"--ignore", "0x20000000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig("", testFlags(t, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestDeviceConfigOptions(t *testing.T) {
	d := DeviceConfig{CommandID: "0x100", ReportID: "257", Ignore: []string{"0x5"}}
	opts, err := d.Options()
	require.NoError(t, err)

	a := actuator.New(nullInterface{}, opts...)
	assert.Equal(t, uint32(0x100), a.CommandAddress())
	assert.Equal(t, uint32(257), a.ReportAddress())
}

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"0xFF0000", 0xFF0000, false},
		{"16", 16, false},
		{" 0x1FFFFFFF ", 0x1FFFFFFF, false},
		{"0x20000000", 0, true},
		{"zz", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseIdentifier(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseIdentifier(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseIdentifier(%q) = 0x%X, want 0x%X", tt.in, got, tt.want)
		}
	}
}
