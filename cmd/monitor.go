// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/actuatorctl/pkg/actuator"
	"github.com/Thermoquad/actuatorctl/pkg/canbus"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var monitorShowAll bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI monitoring the actuator",
	Long: `Monitor the actuator in a terminal UI.

Frames are received continuously and counted; reports update the actuator
panel and anomalies (impossible release dates, reports from an unexpected
identifier, short reports) are logged as they occur.

Keys:
  v  send a software version query
  u  send a unique device ID query
  a  toggle logging of every frame
  c  clear the event log
  q  quit

By default only reports and errors are logged. Use --show-all to log every
frame.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorShowAll, "show-all", false, "Log all frames (not just reports and errors)")
}

// programForwarder is the Receiver behind the monitor: it forwards every
// event to the TUI until done is closed
type programForwarder struct {
	p             *tea.Program
	reportAddress uint32
	done          <-chan struct{}
}

func (f *programForwarder) OnFrameReceived(frame canbus.Frame) actuator.Outcome {
	f.p.Send(newFrameMsg(frame, f.reportAddress))
	return f.outcome()
}

func (f *programForwarder) OnFrameTimeout(err error) actuator.Outcome {
	f.p.Send(timeoutMsg{})
	return f.outcome()
}

func (f *programForwarder) OnFrameError(err error) actuator.Outcome {
	f.p.Send(receiveErrMsg{err: err})
	return f.outcome()
}

func (f *programForwarder) outcome() actuator.Outcome {
	select {
	case <-f.done:
		return actuator.Stop
	default:
		return actuator.Continue
	}
}

// monitorQuery returns the queryFunc used by the TUI keys. Queries are sent
// without waiting so they never compete with the receive loop for frames.
func monitorQuery(a *actuator.Actuator) queryFunc {
	return func(op string) error {
		var err error
		switch op {
		case actuator.OpSoftwareVersion:
			_, err = a.SoftwareVersionData(false, false)
		case actuator.OpUniqueDeviceID:
			_, err = a.UniqueDeviceID(false, false)
		default:
			err = fmt.Errorf("unsupported query %q", op)
		}
		return err
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	// Frame tracing would draw over the TUI
	cfg.Trace = false
	a, connInfo, err := NewActuator()
	if err != nil {
		return err
	}
	defer a.Close()

	// The receive bus is opened before anything is sent so no report is missed
	if err := a.StartReceivingBus(cfg.Transport.Timeout); err != nil {
		return err
	}
	if err := a.StartSendingBus(cfg.Transport.Timeout); err != nil {
		return err
	}

	m := newMonitorModel(connInfo, a.ReportAddress(), monitorShowAll, monitorQuery(a))
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan struct{})
	loopDone := make(chan error, 1)
	go func() {
		fwd := &programForwarder{p: p, reportAddress: a.ReportAddress(), done: done}
		err := a.RunReceiver(fwd, cfg.Transport.Timeout)
		p.Send(receiverDoneMsg{err: err})
		loopDone <- err
	}()

	_, runErr := p.Run()
	close(done)

	// The loop notices done after at most one receive timeout
	if err := <-loopDone; err != nil {
		logger.Warn("receive loop ended with error", zap.Error(err))
	}

	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}
