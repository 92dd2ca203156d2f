// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/actuator"
	"github.com/Thermoquad/actuatorctl/pkg/canbus"
	"golang.org/x/term"
)

// PasswordEnv names the environment variable holding the WebSocket password
const PasswordEnv = "ACTUATOR_PASSWORD"

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenInterface builds the CAN interface selected by the transport config.
// The returned string describes the connection for banners. Serial and
// WebSocket devices are shared between the send and receive buses; SocketCAN
// gets one socket per bus.
func OpenInterface(tc TransportConfig) (canbus.Interface, string, error) {
	switch tc.Kind {
	case TransportSocketCAN:
		if tc.Interface == "" {
			return nil, "", fmt.Errorf("--interface must be specified for socketcan")
		}
		return canbus.NewSocketCAN(tc.Interface), fmt.Sprintf("SocketCAN: %s", tc.Interface), nil

	case TransportSLCAN:
		if tc.Port == "" {
			return nil, "", fmt.Errorf("--port must be specified for slcan")
		}
		info := fmt.Sprintf("SLCAN: %s @ %d baud, %d bit/s", tc.Port, tc.Baud, tc.Bitrate)
		return canbus.Shared(canbus.NewSLCAN(tc.Port, tc.Baud, tc.Bitrate)), info, nil

	case TransportWebSocket:
		if tc.URL == "" {
			return nil, "", fmt.Errorf("--url must be specified for ws")
		}
		password := ""
		if tc.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}
		ws := canbus.NewWebSocket(tc.URL, tc.Username, password, tc.NoSSLVerify)
		return canbus.Shared(ws), fmt.Sprintf("WebSocket: %s", tc.URL), nil

	default:
		return nil, "", fmt.Errorf("unsupported transport %q", tc.Kind)
	}
}

// actuatorOptions collects the engine options derived from the global
// configuration. Frame tracing goes to stderr when enabled.
func actuatorOptions(trace bool) ([]actuator.Option, error) {
	opts, err := cfg.Device.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, actuator.WithLogger(logger), actuator.WithMetrics(metrics))

	if trace {
		opts = append(opts,
			actuator.WithSendObserver(func(f canbus.Frame) {
				fmt.Fprintf(os.Stderr, "TX %s", actuator.FormatFrame(f, time.Now()))
			}),
			actuator.WithReceiveObserver(func(f canbus.Frame) {
				fmt.Fprintf(os.Stderr, "RX %s", actuator.FormatFrame(f, time.Now()))
			}),
		)
	}
	return opts, nil
}

// NewActuator creates an engine on the configured transport without
// opening any bus
func NewActuator(extra ...actuator.Option) (*actuator.Actuator, string, error) {
	iface, info, err := OpenInterface(cfg.Transport)
	if err != nil {
		return nil, "", err
	}
	opts, err := actuatorOptions(cfg.Trace)
	if err != nil {
		return nil, "", err
	}
	if cfg.Transport.Kind == TransportSocketCAN {
		// The kernel loops our commands back to the receive socket
		id, err := parseIdentifier(cfg.Device.CommandID)
		if err != nil {
			return nil, "", err
		}
		opts = append(opts, actuator.WithIgnore(id))
	}
	return actuator.New(iface, append(opts, extra...)...), info, nil
}

// OpenActuator creates an engine and opens its send bus, plus the receive
// bus when responses will be read. The receive side is opened first so
// that no response can be missed.
func OpenActuator(waitResponse bool) (*actuator.Actuator, string, error) {
	a, info, err := NewActuator()
	if err != nil {
		return nil, "", err
	}

	if waitResponse {
		if err := a.StartReceivingBus(cfg.Transport.Timeout); err != nil {
			return nil, "", err
		}
	}
	if err := a.StartSendingBus(cfg.Transport.Timeout); err != nil {
		a.Close()
		return nil, "", err
	}
	return a, info, nil
}
