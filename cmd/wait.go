// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/actuator"
	"github.com/Thermoquad/actuatorctl/pkg/canbus"
	"github.com/spf13/cobra"
)

var (
	waitTimeout     int
	waitReportsOnly bool
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Test the connection by waiting for a frame",
	Long: `Wait for a CAN frame on the connection until timeout.

With --reports-only, frames from identifiers other than the report identifier
are skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a frame
  2 - Connection error

Useful for testing connectivity to the actuator or the WebSocket bridge.`,
	Args: cobra.NoArgs,
	RunE: runWait,
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().IntVar(&waitTimeout, "wait-timeout", 10, "Timeout in seconds to wait for a frame")
	waitCmd.Flags().BoolVar(&waitReportsOnly, "reports-only", false, "Only accept frames from the report identifier")
}

// Exit codes of the wait command
const (
	waitExitReceived = 0
	waitExitTimeout  = 1
	waitExitError    = 2
)

// firstFrame is the Receiver behind wait: it stops on the first matching
// frame, the first transport error or the deadline
type firstFrame struct {
	deadline      time.Time
	reportAddress uint32
	reportsOnly   bool

	frame   *canbus.Frame
	err     error
	skipped int
}

func (w *firstFrame) OnFrameReceived(f canbus.Frame) actuator.Outcome {
	if w.reportsOnly && f.ID != w.reportAddress {
		w.skipped++
		return w.untilDeadline()
	}
	w.frame = &f
	return actuator.Stop
}

func (w *firstFrame) OnFrameTimeout(err error) actuator.Outcome {
	return w.untilDeadline()
}

func (w *firstFrame) OnFrameError(err error) actuator.Outcome {
	w.err = err
	return actuator.Stop
}

func (w *firstFrame) untilDeadline() actuator.Outcome {
	if time.Now().After(w.deadline) {
		return actuator.Stop
	}
	return actuator.Continue
}

// exitCode maps the wait result to the documented exit codes
func (w *firstFrame) exitCode() int {
	switch {
	case w.frame != nil:
		return waitExitReceived
	case w.err != nil:
		return waitExitError
	default:
		return waitExitTimeout
	}
}

// result converts the outcome into the error runWait returns. Running out
// of frames before the deadline means the connection was lost.
func (w *firstFrame) result(timeout time.Duration) error {
	switch w.exitCode() {
	case waitExitReceived:
		return nil
	case waitExitError:
		return &ExitError{Code: waitExitError, Err: fmt.Errorf("read error: %w", w.err)}
	}
	if time.Now().Before(w.deadline) {
		return &ExitError{Code: waitExitError, Err: errors.New("connection lost")}
	}
	return &ExitError{Code: waitExitTimeout, Err: fmt.Errorf("timeout: no frame received within %s", timeout)}
}

func runWait(cmd *cobra.Command, args []string) error {
	if waitTimeout <= 0 {
		return fmt.Errorf("--wait-timeout must be positive, got %d", waitTimeout)
	}
	timeout := time.Duration(waitTimeout) * time.Second

	a, connInfo, err := NewActuator()
	if err != nil {
		return &ExitError{Code: waitExitError, Err: fmt.Errorf("connection error: %w", err)}
	}
	defer a.Close()

	fmt.Printf("actuatorctl - Wait\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %s\n", timeout)
	fmt.Printf("Waiting for a frame...\n\n")

	w := &firstFrame{
		deadline:      time.Now().Add(timeout),
		reportAddress: a.ReportAddress(),
		reportsOnly:   waitReportsOnly,
	}

	// Receive in short slices so the deadline is honoured
	slice := cfg.Transport.Timeout
	if slice > timeout {
		slice = timeout
	}

	if err := a.RunReceiver(w, slice); err != nil {
		return &ExitError{Code: waitExitError, Err: fmt.Errorf("connection error: %w", err)}
	}

	if w.frame != nil {
		if w.skipped > 0 {
			fmt.Printf("(skipped %d frames from other identifiers)\n", w.skipped)
		}
		fmt.Printf("SUCCESS: Received frame\n")
		fmt.Print(actuator.FormatFrame(*w.frame, time.Now()))
	}
	return w.result(timeout)
}
