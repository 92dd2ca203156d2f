// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Bus.Receive when no frame arrived within the
// timeout given to Interface.Open. Transports may wrap it.
var ErrTimeout = errors.New("canbus: receive timeout")

// frameQueueSize bounds frames buffered between a transport reader and Receive
const frameQueueSize = 64

// ErrClosed is returned when using a bus after Close
var ErrClosed = errors.New("canbus: bus closed")

// Bus is an opened handle on a CAN interface.
//
// Receive blocks until a frame arrives, the timeout elapses (ErrTimeout) or
// the transport fails. A nil frame with a nil error means the connection is
// gone and no more frames will arrive.
type Bus interface {
	Send(f Frame) error
	Receive() (*Frame, error)
	Close() error
}

// Interface opens bus handles. Each call to Open returns an independent
// handle; the timeout applies to every Receive on that handle.
type Interface interface {
	Open(timeout time.Duration) (Bus, error)
	String() string
}

// receiveTimeout waits on a frame channel the way every channel-backed
// transport does. A closed channel reports a lost connection.
func receiveTimeout(frames <-chan Frame, errs <-chan error, done <-chan struct{}, timeout time.Duration) (*Frame, error) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case f, ok := <-frames:
		if !ok {
			return nil, nil
		}
		return &f, nil
	case err := <-errs:
		return nil, err
	case <-done:
		return nil, ErrClosed
	case <-timer:
		return nil, ErrTimeout
	}
}
