// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import (
	"fmt"

	"github.com/Thermoquad/actuatorctl/pkg/canbus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Operation names used in errors, logs and metrics
const (
	OpSoftwareVersion = "software_version"
	OpUniqueDeviceID  = "unique_device_id"
	OpReset           = "reset"
	OpPWMFrequency    = "pwm_frequency"
)

// SoftwareVersionData queries the firmware revision.
//
// When waitResponse is false the command is sent and nil is returned.
// Otherwise the confirmation echo is read first if confirmation is set,
// followed by the software revision report.
func (a *Actuator) SoftwareVersionData(confirmation, waitResponse bool) (*SoftwareRevisionReport, error) {
	cmd := NewCommand(CmdSoftwareVersion, DataTypeSoftwareVersion, confirmation, false)
	cmd[2] = softwareVersionSubtype

	frame, err := a.exchange(OpSoftwareVersion, cmd, ResponseConfirmThenReport, waitResponse)
	if err != nil || frame == nil {
		return nil, err
	}

	report, err := NewSoftwareRevisionReport(frame)
	if err != nil {
		a.config.Metrics.operation(OpSoftwareVersion, err)
		return nil, fmt.Errorf("%s: %w", OpSoftwareVersion, err)
	}
	a.config.Metrics.operation(OpSoftwareVersion, nil)
	return report, nil
}

// UniqueDeviceID queries the actuator's unique identifier. Response handling
// matches SoftwareVersionData.
func (a *Actuator) UniqueDeviceID(confirmation, waitResponse bool) (*UniqueDeviceIDReport, error) {
	cmd := NewCommand(CmdUniqueDeviceID, DataTypeUniqueDeviceID, confirmation, false)

	frame, err := a.exchange(OpUniqueDeviceID, cmd, ResponseConfirmThenReport, waitResponse)
	if err != nil || frame == nil {
		return nil, err
	}

	report, err := NewUniqueDeviceIDReport(frame)
	if err != nil {
		a.config.Metrics.operation(OpUniqueDeviceID, err)
		return nil, fmt.Errorf("%s: %w", OpUniqueDeviceID, err)
	}
	a.config.Metrics.operation(OpUniqueDeviceID, nil)
	return report, nil
}

// Reset resets the actuator. At least one of resetType and resetTypeExt must
// be given; each is written big-endian (bytes 2-3 and 4-5). Only the
// confirmation echo is read back.
func (a *Actuator) Reset(resetType, resetTypeExt *uint16, confirmation, waitResponse bool) error {
	if resetType == nil && resetTypeExt == nil {
		err := &InvalidArgumentError{Operation: OpReset, Message: "reset type or extended reset type required"}
		a.config.Metrics.operation(OpReset, err)
		return err
	}

	cmd := NewCommand(CmdReset, DataTypeReset, confirmation, false)
	if resetType != nil {
		cmd.PutUint16(2, *resetType)
	}
	if resetTypeExt != nil {
		cmd.PutUint16(4, *resetTypeExt)
	}

	_, err := a.exchange(OpReset, cmd, ResponseConfirmOnly, waitResponse)
	return err
}

// PWMFrequency configures the PWM output. pwmMin (byte 2) defaults to 0 and
// pwmMax (byte 3) to 100 percent; pwmFreq is written big-endian to bytes
// 6-7 when given. Only the confirmation echo is read back.
func (a *Actuator) PWMFrequency(pwmMin, pwmMax *uint8, pwmFreq *uint16, confirmation, waitResponse bool) error {
	minDuty := uint8(DefaultPWMMin)
	if pwmMin != nil {
		minDuty = *pwmMin
	}
	maxDuty := uint8(DefaultPWMMax)
	if pwmMax != nil {
		maxDuty = *pwmMax
	}

	if minDuty > MaxPWMPercent {
		err := &InvalidArgumentError{Operation: OpPWMFrequency, Message: fmt.Sprintf("pwm min %d exceeds %d", minDuty, MaxPWMPercent)}
		a.config.Metrics.operation(OpPWMFrequency, err)
		return err
	}
	if maxDuty > MaxPWMPercent {
		err := &InvalidArgumentError{Operation: OpPWMFrequency, Message: fmt.Sprintf("pwm max %d exceeds %d", maxDuty, MaxPWMPercent)}
		a.config.Metrics.operation(OpPWMFrequency, err)
		return err
	}

	cmd := NewCommand(CmdPWMFrequency, DataTypePWMFrequency, confirmation, false)
	cmd[2] = minDuty
	cmd[3] = maxDuty
	if pwmFreq != nil {
		cmd.PutUint16(6, *pwmFreq)
	}

	_, err := a.exchange(OpPWMFrequency, cmd, ResponseConfirmOnly, waitResponse)
	return err
}

// exchange runs one request cycle: send, then read back frames according
// to mode. It returns the report frame for ResponseConfirmThenReport when
// waitResponse is set, nil otherwise. The operation metric is recorded here
// except for a returned report frame, which the caller records after decoding.
func (a *Actuator) exchange(op string, cmd Command, mode ResponseMode, waitResponse bool) ([]byte, error) {
	log := a.log.With(
		zap.String("op", op),
		zap.String("request_id", uuid.NewString()),
		zap.Stringer("mode", mode),
	)

	if err := a.sendCommand(cmd, log); err != nil {
		a.config.Metrics.operation(op, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !waitResponse {
		a.config.Metrics.operation(op, nil)
		return nil, nil
	}

	if cmd.Confirmation() {
		log.Debug("awaiting confirmation")
		frame, err := a.awaitFrame(op)
		if err != nil {
			a.config.Metrics.operation(op, err)
			return nil, err
		}
		if frame[0] != cmd.Opcode() {
			err := &UnexpectedResponseError{Operation: op, Opcode: cmd.Opcode()}
			copy(err.Received[:], frame)
			a.config.Metrics.operation(op, err)
			return nil, err
		}
		log.Debug("confirmed")
	}

	if mode == ResponseConfirmOnly {
		a.config.Metrics.operation(op, nil)
		return nil, nil
	}

	log.Debug("awaiting report")
	frame, err := a.awaitFrame(op)
	if err != nil {
		a.config.Metrics.operation(op, err)
		return nil, err
	}
	return frame, nil
}

// awaitFrame reads the next frame sent from the report address. Frames
// from other nodes are observed and skipped. Timeouts and transport errors
// are returned unwrapped.
func (a *Actuator) awaitFrame(op string) ([]byte, error) {
	bus := a.receiveBus()
	if bus == nil {
		return nil, ErrReceiveBusClosed
	}
	var frame *canbus.Frame
	for {
		var err error
		frame, err = a.receive(bus)
		if err != nil {
			return nil, err
		}
		if frame == nil {
			return nil, fmt.Errorf("%s: %w", op, ErrConnectionLost)
		}
		if frame.ID == a.config.ReportAddress {
			break
		}
		a.log.Debug("skipping frame from another node", zap.String("op", op), zap.Stringer("frame", frame))
	}
	// Short frames are zero padded so header checks still apply
	payload := make([]byte, FrameSize)
	copy(payload, frame.Payload())
	return payload, nil
}
