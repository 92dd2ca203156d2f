// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import (
	"errors"
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/canbus"
	"go.uber.org/zap"
)

// Outcome tells the receive loop whether to keep running
type Outcome int

const (
	Continue Outcome = iota
	Stop
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Receiver decides, after each receive event, whether RunReceiver continues
type Receiver interface {
	// OnFrameReceived is called with every frame not in the ignore set
	OnFrameReceived(frame canbus.Frame) Outcome

	// OnFrameTimeout is called when no frame arrived within the bus timeout
	OnFrameTimeout(err error) Outcome

	// OnFrameError is called when the transport fails
	OnFrameError(err error) Outcome
}

// ReceiverFuncs adapts plain functions to the Receiver interface. A nil
// function stops the loop on that event.
type ReceiverFuncs struct {
	Received func(frame canbus.Frame) Outcome
	Timeout  func(err error) Outcome
	Error    func(err error) Outcome
}

// OnFrameReceived implements Receiver
func (r ReceiverFuncs) OnFrameReceived(frame canbus.Frame) Outcome {
	if r.Received == nil {
		return Stop
	}
	return r.Received(frame)
}

// OnFrameTimeout implements Receiver
func (r ReceiverFuncs) OnFrameTimeout(err error) Outcome {
	if r.Timeout == nil {
		return Stop
	}
	return r.Timeout(err)
}

// OnFrameError implements Receiver
func (r ReceiverFuncs) OnFrameError(err error) Outcome {
	if r.Error == nil {
		return Stop
	}
	return r.Error(err)
}

// IsReceiverWorking reports whether RunReceiver is active
func (a *Actuator) IsReceiverWorking() bool {
	return a.working.Load()
}

// RunReceiver receives frames until r returns Stop or the connection is
// lost, dispatching each event to r. It opens the receive bus with timeout
// if needed and always closes it before returning.
//
// RunReceiver blocks the calling goroutine. Stopping is cooperative: the
// only way to end the loop from outside is for r to return Stop.
func (a *Actuator) RunReceiver(r Receiver, timeout time.Duration) error {
	if !a.working.CompareAndSwap(false, true) {
		return ErrReceiverRunning
	}
	defer a.working.Store(false)

	if err := a.StartReceivingBus(timeout); err != nil {
		return err
	}
	bus := a.receiveBus()
	defer func() {
		if err := a.StopReceivingBus(); err != nil {
			a.log.Warn("failed to close receive bus", zap.Error(err))
		}
	}()

	a.log.Debug("receiver started")
	for a.working.Load() {
		frame, err := a.receive(bus)

		var outcome Outcome
		switch {
		case err != nil && errors.Is(err, canbus.ErrTimeout):
			a.config.Metrics.receiveTimeout()
			outcome = r.OnFrameTimeout(err)
		case err != nil:
			a.config.Metrics.receiveError()
			a.log.Debug("receive error", zap.Error(err))
			outcome = r.OnFrameError(err)
		case frame == nil:
			a.log.Debug("connection lost, receiver stopping")
			return nil
		default:
			outcome = r.OnFrameReceived(*frame)
		}

		a.working.Store(outcome == Continue)
	}
	a.log.Debug("receiver stopped")
	return nil
}
