// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// actuatorctl - CAN Actuator Command Tool
//
// A CLI tool for commanding, querying and monitoring a CAN actuator over
// SocketCAN, SLCAN serial adapters or a WebSocket CAN bridge.

package main

import (
	"errors"
	"os"

	"github.com/Thermoquad/actuatorctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
