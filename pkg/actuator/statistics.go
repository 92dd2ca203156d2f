// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import (
	"fmt"
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/canbus"
)

// Statistics tracks receive loop events and rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	ReportFrames    uint64
	OtherFrames     uint64
	ReportErrors    uint64
	AnomalousValues uint64
	Timeouts        uint64
	TransportErrors uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// UpdateFrame records a received frame, its decoded report (if any) and
// validation results
func (s *Statistics) UpdateFrame(frame canbus.Frame, report Report, decodeErr error, validationErrors []ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	switch {
	case decodeErr != nil:
		s.ReportErrors++
	case report != nil:
		s.ReportFrames++
	default:
		s.OtherFrames++
	}

	if len(validationErrors) > 0 {
		s.AnomalousValues += uint64(len(validationErrors))
	}
}

// UpdateTimeout records a receive timeout
func (s *Statistics) UpdateTimeout() {
	s.Timeouts++
	s.LastUpdateTime = time.Now()
}

// UpdateError records a transport error
func (s *Statistics) UpdateError() {
	s.TransportErrors++
	s.LastUpdateTime = time.Now()
}

// ErrorCount returns all counted errors
func (s *Statistics) ErrorCount() uint64 {
	return s.ReportErrors + s.AnomalousValues + s.TransportErrors
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.ErrorCount()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var reportPercent float64
	if s.TotalFrames > 0 {
		reportPercent = float64(s.ReportFrames) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Reports:         %8d (%.1f%%)\n", s.ReportFrames, reportPercent)
	result += fmt.Sprintf("Other Frames:    %8d\n", s.OtherFrames)

	if s.ReportErrors > 0 {
		result += fmt.Sprintf("Report Errors:   %8d\n", s.ReportErrors)
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d\n", s.AnomalousValues)
	}
	if s.TransportErrors > 0 {
		result += fmt.Sprintf("Transport Errors:%8d\n", s.TransportErrors)
	}
	result += fmt.Sprintf("Timeouts:        %8d\n", s.Timeouts)

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
