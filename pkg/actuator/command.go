// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import (
	"encoding/binary"
	"fmt"
)

// Command is an outbound 8-byte command frame.
//
// Layout:
//
//	[OPCODE][DATA_TYPE|FLAGS][PAYLOAD(6)]
//
// Multi-byte payload fields are big-endian.
type Command [FrameSize]byte

// NewCommand builds a command frame with an empty payload
func NewCommand(opcode, dataType byte, confirmation, autoReply bool) Command {
	var c Command
	c[0] = opcode
	c[1] = dataType
	if confirmation {
		c[1] |= FlagConfirmation
	}
	if autoReply {
		c[1] |= FlagAutoReply
	}
	return c
}

// SetByte stores value at position and returns the stored byte
func (c *Command) SetByte(position, value int) (byte, error) {
	if err := checkPosition(position); err != nil {
		return 0, err
	}
	if value < 0 || value > 0xFF {
		return 0, &RangeError{What: "value", Value: value, Max: 0xFF}
	}
	c[position] = byte(value)
	return c[position], nil
}

// ReadByte returns the byte at position
func (c Command) ReadByte(position int) (byte, error) {
	if err := checkPosition(position); err != nil {
		return 0, err
	}
	return c[position], nil
}

// PutUint16 writes v big-endian at position and position+1
func (c *Command) PutUint16(position int, v uint16) error {
	if err := checkPosition(position); err != nil {
		return err
	}
	if err := checkPosition(position + 1); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(c[position:position+2], v)
	return nil
}

// Bytes returns a copy of the raw frame for transmission
func (c Command) Bytes() []byte {
	out := make([]byte, FrameSize)
	copy(out, c[:])
	return out
}

// Opcode returns byte 0
func (c Command) Opcode() byte {
	return c[0]
}

// DataType returns byte 1 with the flag bits cleared
func (c Command) DataType() byte {
	return c[1] &^ (FlagConfirmation | FlagAutoReply)
}

// Confirmation reports whether the device is asked to echo the opcode
func (c Command) Confirmation() bool {
	return c[1]&FlagConfirmation != 0
}

// AutoReply reports whether the auto-reply flag is set
func (c Command) AutoReply() bool {
	return c[1]&FlagAutoReply != 0
}

func (c Command) String() string {
	return fmt.Sprintf("% X", c[:])
}

func checkPosition(position int) error {
	if position < 0 || position >= FrameSize {
		return &RangeError{What: "position", Value: position, Max: FrameSize - 1}
	}
	return nil
}
