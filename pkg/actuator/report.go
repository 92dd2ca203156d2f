// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import (
	"encoding/binary"
	"fmt"
	"time"
)

// ReportKind identifies a report variant
type ReportKind int

// Report kinds
const (
	KindSoftwareRevision ReportKind = iota
	KindUniqueDeviceID
)

func (k ReportKind) String() string {
	switch k {
	case KindSoftwareRevision:
		return "SOFTWARE_REVISION"
	case KindUniqueDeviceID:
		return "UNIQUE_DEVICE_ID"
	default:
		return "UNKNOWN"
	}
}

// Report is a decoded report frame
type Report interface {
	Kind() ReportKind
	Bytes() [FrameSize]byte
}

// DecodeReport decodes a received frame into the report variant selected by
// its header byte
func DecodeReport(frame []byte) (Report, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty report frame")
	}
	switch frame[0] {
	case ReportSoftwareRevision:
		return NewSoftwareRevisionReport(frame)
	case ReportUniqueDeviceID:
		return NewUniqueDeviceIDReport(frame)
	default:
		return nil, &ProtocolMismatchError{Report: "report", Actual: frame[0]}
	}
}

// reportFrame holds a validated report frame
type reportFrame [FrameSize]byte

func newReportFrame(name string, header byte, frame []byte) (reportFrame, error) {
	var r reportFrame
	if len(frame) != FrameSize {
		return r, fmt.Errorf("%s: frame length %d, expected %d", name, len(frame), FrameSize)
	}
	if frame[0] != header {
		return r, &ProtocolMismatchError{Report: name, Expected: header, Actual: frame[0]}
	}
	copy(r[:], frame)
	return r, nil
}

// Bytes returns the raw report frame
func (r reportFrame) Bytes() [FrameSize]byte {
	return r
}

// SoftwareRevisionReport is the reply to a software version query.
//
// Layout:
//
//	[0xEF][DATA_TYPE][MAJOR][MINOR_H][MINOR_L][DAY][MONTH][YEAR]
type SoftwareRevisionReport struct {
	reportFrame
}

// NewSoftwareRevisionReport validates and wraps a received frame
func NewSoftwareRevisionReport(frame []byte) (*SoftwareRevisionReport, error) {
	r, err := newReportFrame("software revision report", ReportSoftwareRevision, frame)
	if err != nil {
		return nil, err
	}
	return &SoftwareRevisionReport{reportFrame: r}, nil
}

// Kind implements Report
func (r *SoftwareRevisionReport) Kind() ReportKind {
	return KindSoftwareRevision
}

// Major returns the major version (byte 2)
func (r *SoftwareRevisionReport) Major() uint8 {
	return r.reportFrame[2]
}

// Minor returns the minor version (bytes 3-4, big-endian)
func (r *SoftwareRevisionReport) Minor() uint16 {
	return binary.BigEndian.Uint16(r.reportFrame[3:5])
}

// SoftwareVersion returns the version as "major.minor"
func (r *SoftwareRevisionReport) SoftwareVersion() string {
	return fmt.Sprintf("%d.%d", r.Major(), r.Minor())
}

// SwDay returns the release day of month (byte 5)
func (r *SoftwareRevisionReport) SwDay() uint8 {
	return r.reportFrame[5]
}

// SwMonth returns the release month (byte 6)
func (r *SoftwareRevisionReport) SwMonth() uint8 {
	return r.reportFrame[6]
}

// SwYear returns the two-digit release year (byte 7)
func (r *SoftwareRevisionReport) SwYear() uint8 {
	return r.reportFrame[7]
}

// ReleaseDate returns the release date, taking the year as 2000+SwYear
func (r *SoftwareRevisionReport) ReleaseDate() (time.Time, error) {
	day, month, year := int(r.SwDay()), int(r.SwMonth()), 2000+int(r.SwYear())
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid release month: %d", month)
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow, e.g. 31 Feb becomes 3 Mar
	if day < 1 || date.Day() != day {
		return time.Time{}, fmt.Errorf("invalid release day: %d", day)
	}
	return date, nil
}

// UniqueDeviceIDReport is the reply to a unique device ID query.
//
// Layout:
//
//	[0xA8][DATA_TYPE][ID(6), big-endian]
type UniqueDeviceIDReport struct {
	reportFrame
}

// NewUniqueDeviceIDReport validates and wraps a received frame
func NewUniqueDeviceIDReport(frame []byte) (*UniqueDeviceIDReport, error) {
	r, err := newReportFrame("unique device ID report", ReportUniqueDeviceID, frame)
	if err != nil {
		return nil, err
	}
	return &UniqueDeviceIDReport{reportFrame: r}, nil
}

// Kind implements Report
func (r *UniqueDeviceIDReport) Kind() ReportKind {
	return KindUniqueDeviceID
}

// ActuatorIDPart returns bytes 2-7 as a 48-bit big-endian integer
func (r *UniqueDeviceIDReport) ActuatorIDPart() uint64 {
	var id uint64
	for _, b := range r.reportFrame[2:] {
		id = id<<8 | uint64(b)
	}
	return id
}
