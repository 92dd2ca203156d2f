// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/canbus"
)

// FormatFrame formats a frame into a human-readable string: the header
// line plus decoded fields for known commands and reports
func FormatFrame(f canbus.Frame, timestamp time.Time) string {
	payload := f.Payload()

	var opcode byte
	if len(payload) > 0 {
		opcode = payload[0]
	}

	result := fmt.Sprintf("[%s] %s (0x%02X) id=%08X len=%d\n",
		timestamp.Format("15:04:05.000"), FormatOpcode(opcode), opcode, f.ID, f.Len)
	result += FormatPayload(payload)
	return result
}

// FormatOpcode returns the human-readable name for byte 0 of a frame
func FormatOpcode(opcode byte) string {
	switch opcode {
	// Commands
	case CmdReset:
		return "RESET"
	case CmdUniqueDeviceID:
		return "UNIQUE_DEVICE_ID"
	case CmdPWMFrequency:
		return "PWM_FREQUENCY"
	case CmdSoftwareVersion:
		return "SOFTWARE_VERSION"

	// Reports
	case ReportUniqueDeviceID:
		return "UNIQUE_DEVICE_ID_REPORT"
	case ReportSoftwareRevision:
		return "SOFTWARE_REVISION_REPORT"

	default:
		return "UNKNOWN"
	}
}

// FormatPayload decodes the payload of known frames, falling back to a hex dump
func FormatPayload(payload []byte) string {
	if len(payload) == FrameSize {
		switch payload[0] {
		case ReportSoftwareRevision:
			if r, err := NewSoftwareRevisionReport(payload); err == nil {
				return fmt.Sprintf("  Version: %s, Date (DD/MM/YY): %02d/%02d/%02d\n",
					r.SoftwareVersion(), r.SwDay(), r.SwMonth(), r.SwYear())
			}

		case ReportUniqueDeviceID:
			if r, err := NewUniqueDeviceIDReport(payload); err == nil {
				return fmt.Sprintf("  Actuator ID: %012X\n", r.ActuatorIDPart())
			}

		case CmdReset, CmdPWMFrequency, CmdSoftwareVersion, CmdUniqueDeviceID:
			var c Command
			copy(c[:], payload)
			return formatCommand(c)
		}
	}

	return formatHexDump(payload)
}

func formatCommand(c Command) string {
	flags := []string{}
	if c.Confirmation() {
		flags = append(flags, "confirm")
	}
	if c.AutoReply() {
		flags = append(flags, "auto-reply")
	}
	flagStr := "none"
	if len(flags) > 0 {
		flagStr = strings.Join(flags, ",")
	}

	result := fmt.Sprintf("  Data Type: 0x%02X, Flags: %s\n", c.DataType(), flagStr)

	switch c.Opcode() {
	case CmdReset:
		result += fmt.Sprintf("  Reset Type: 0x%04X, Extended: 0x%04X\n",
			uint16(c[2])<<8|uint16(c[3]), uint16(c[4])<<8|uint16(c[5]))
	case CmdPWMFrequency:
		result += fmt.Sprintf("  PWM: %d%%-%d%%, Frequency: %d Hz\n",
			c[2], c[3], uint16(c[6])<<8|uint16(c[7]))
	}
	return result
}

func formatHexDump(payload []byte) string {
	if len(payload) == 0 {
		return "  (no payload)\n"
	}
	result := "  Payload: "
	for _, b := range payload {
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}
