// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import (
	"errors"
	"fmt"
)

var (
	// ErrSendBusClosed is returned when sending before StartSendingBus
	ErrSendBusClosed = errors.New("actuator: send bus is not open")
	// ErrReceiveBusClosed is returned when waiting for a response before StartReceivingBus
	ErrReceiveBusClosed = errors.New("actuator: receive bus is not open")
	// ErrReceiverRunning is returned when a receive loop is already active
	ErrReceiverRunning = errors.New("actuator: receiver already running")
	// ErrConnectionLost is returned when the bus reports no more frames while
	// a response is outstanding
	ErrConnectionLost = errors.New("actuator: connection lost")
)

// RangeError indicates a frame byte position or value out of bounds
type RangeError struct {
	What  string // "position" or "value"
	Value int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [0, %d]", e.What, e.Value, e.Max)
}

// InvalidArgumentError indicates missing or out-of-range operation parameters
type InvalidArgumentError struct {
	Operation string
	Message   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid argument: %s", e.Operation, e.Message)
}

// ProtocolMismatchError indicates a report header that does not match the
// report variant being decoded. Expected is zero when the header matches no
// known variant.
type ProtocolMismatchError struct {
	Report   string
	Expected byte
	Actual   byte
}

func (e *ProtocolMismatchError) Error() string {
	if e.Expected == 0 {
		return fmt.Sprintf("%s: unknown header 0x%02X", e.Report, e.Actual)
	}
	return fmt.Sprintf("%s: header mismatch: expected 0x%02X, got 0x%02X", e.Report, e.Expected, e.Actual)
}

// UnexpectedResponseError indicates a confirmation frame that does not echo
// the outstanding command's opcode
type UnexpectedResponseError struct {
	Operation string
	Opcode    byte
	Received  [FrameSize]byte
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("%s: unexpected response: expected opcode 0x%02X, got 0x%02X (% X)",
		e.Operation, e.Opcode, e.Received[0], e.Received[:])
}

// IsProtocolMismatch returns true if err is or wraps a ProtocolMismatchError
func IsProtocolMismatch(err error) bool {
	var target *ProtocolMismatchError
	return errors.As(err, &target)
}

// IsUnexpectedResponse returns true if err is or wraps an UnexpectedResponseError
func IsUnexpectedResponse(err error) bool {
	var target *UnexpectedResponseError
	return errors.As(err, &target)
}
