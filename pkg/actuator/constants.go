// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package actuator implements the actuator command/report protocol over a
// CAN bus: 8-byte command frames with confirmation and auto-reply flags,
// typed report decoding and a synchronous request/response engine.
package actuator

// FrameSize is the fixed payload length of every command and report
const FrameSize = 8

// Default bus identifiers (29-bit extended)
const (
	DefaultCommandAddress = 0xFF0000 // commands to the actuator
	DefaultReportAddress  = 0xFF0001 // reports from the actuator
)

// Data type flag bits (byte 1)
const (
	FlagConfirmation = 0x01
	FlagAutoReply    = 0x02
)

// Command opcodes (byte 0 of a command)
const (
	CmdReset           = 0x10
	CmdUniqueDeviceID  = 0x28
	CmdPWMFrequency    = 0x4D
	CmdSoftwareVersion = 0x7F
)

// Command data types (byte 1 of a command, before flags)
const (
	DataTypeReset           = 0x00
	DataTypeUniqueDeviceID  = 0x40
	DataTypeSoftwareVersion = 0x41
	DataTypePWMFrequency    = 0x42
)

// Report headers (echoed opcode in byte 0 of a report)
const (
	ReportUniqueDeviceID   = 0xA8
	ReportSoftwareRevision = 0xEF
)

// softwareVersionSubtype is written to byte 2 of a software version query
const softwareVersionSubtype = 0x01

// PWM duty cycle limits in percent
const (
	DefaultPWMMin = 0
	DefaultPWMMax = 100
	MaxPWMPercent = 100
)

// ResponseMode describes which frames an operation reads back
type ResponseMode int

const (
	// ResponseConfirmThenReport reads an optional confirmation echo followed
	// by a report frame
	ResponseConfirmThenReport ResponseMode = iota
	// ResponseConfirmOnly reads a single confirmation echo and no report
	ResponseConfirmOnly
)

func (m ResponseMode) String() string {
	switch m {
	case ResponseConfirmThenReport:
		return "confirm-then-report"
	case ResponseConfirmOnly:
		return "confirm-only"
	default:
		return "unknown"
	}
}
