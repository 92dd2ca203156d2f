// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import "fmt"

// AnomalyType represents different types of report anomalies
type AnomalyType int

const (
	AnomalyInvalidDay AnomalyType = iota
	AnomalyInvalidMonth
	AnomalyShortFrame
	AnomalyUnexpectedAddress
)

// ValidationError represents a report validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks a received frame for anomalies. reportAddress is the
// identifier reports are expected from.
// Returns a slice of validation errors (empty if the frame looks valid)
func ValidateFrame(id uint32, payload []byte, reportAddress uint32) []ValidationError {
	errors := []ValidationError{}

	if len(payload) == 0 {
		return errors
	}

	switch payload[0] {
	case ReportSoftwareRevision, ReportUniqueDeviceID:
		if id != reportAddress {
			errors = append(errors, ValidationError{
				Type:    AnomalyUnexpectedAddress,
				Message: fmt.Sprintf("report from 0x%08X, expected 0x%08X", id, reportAddress),
				Details: map[string]interface{}{"id": id, "expected": reportAddress},
			})
		}
		if len(payload) != FrameSize {
			errors = append(errors, ValidationError{
				Type:    AnomalyShortFrame,
				Message: fmt.Sprintf("report length %d, expected %d", len(payload), FrameSize),
				Details: map[string]interface{}{"received": len(payload), "expected": FrameSize},
			})
			return errors
		}
	}

	if payload[0] == ReportSoftwareRevision {
		errors = append(errors, validateSoftwareRevision(payload)...)
	}

	return errors
}

// validateSoftwareRevision validates the release date fields
func validateSoftwareRevision(payload []byte) []ValidationError {
	errors := []ValidationError{}

	day, month := payload[5], payload[6]
	if day < 1 || day > 31 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidDay,
			Message: fmt.Sprintf("invalid release day: %d", day),
			Details: map[string]interface{}{"day": day},
		})
	}
	if month < 1 || month > 12 {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidMonth,
			Message: fmt.Sprintf("invalid release month: %d", month),
			Details: map[string]interface{}{"month": month},
		})
	}

	return errors
}
