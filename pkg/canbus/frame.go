// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package canbus provides classical CAN frames and the bus transports used
// by actuatorctl: SocketCAN, SLCAN serial adapters and a WebSocket bridge.
package canbus

import (
	"errors"
	"fmt"
	"strings"
)

// Identifier limits
const (
	MaxStandardID = 0x7FF
	MaxExtendedID = 0x1FFFFFFF
	MaxDataLen    = 8
)

var (
	ErrInvalidID  = errors.New("canbus: invalid identifier")
	ErrInvalidLen = errors.New("canbus: invalid data length")
)

// Frame represents a classical CAN 2.0A/2.0B data frame
type Frame struct {
	ID       uint32 // 11-bit (standard) or 29-bit (extended)
	Extended bool
	Len      uint8 // 0..8
	Data     [MaxDataLen]byte
}

// NewExtendedFrame builds an extended (29-bit) frame carrying data
func NewExtendedFrame(id uint32, data []byte) (Frame, error) {
	f := Frame{ID: id, Extended: true}
	if len(data) > MaxDataLen {
		return Frame{}, ErrInvalidLen
	}
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate returns an error if the frame cannot be put on the wire
func (f Frame) Validate() error {
	if f.Len > MaxDataLen {
		return ErrInvalidLen
	}
	if f.Extended {
		if f.ID > MaxExtendedID {
			return ErrInvalidID
		}
	} else if f.ID > MaxStandardID {
		return ErrInvalidID
	}
	return nil
}

// Payload returns the valid data bytes of the frame
func (f Frame) Payload() []byte {
	n := f.Len
	if n > MaxDataLen {
		n = MaxDataLen
	}
	return f.Data[:n]
}

// String formats the frame in candump style: 00FF0001#EF410102030405
func (f Frame) String() string {
	var b strings.Builder
	if f.Extended {
		fmt.Fprintf(&b, "%08X#", f.ID)
	} else {
		fmt.Fprintf(&b, "%03X#", f.ID)
	}
	for _, v := range f.Payload() {
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}
