// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by the engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	FramesSent      prometheus.Counter
	FramesReceived  prometheus.Counter
	ReceiveTimeouts prometheus.Counter
	ReceiveErrors   prometheus.Counter
	Operations      *prometheus.CounterVec // labels: op, result=ok|error
}

// NewMetrics creates the engine collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actuator_frames_sent_total",
			Help: "Total command frames sent.",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actuator_frames_received_total",
			Help: "Total frames received, including ignored identifiers.",
		}),
		ReceiveTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actuator_receive_timeouts_total",
			Help: "Receive loop timeouts.",
		}),
		ReceiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actuator_receive_errors_total",
			Help: "Receive loop transport errors.",
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actuator_operations_total",
			Help: "Actuator operations by name and result.",
		}, []string{"op", "result"}),
	}
	reg.MustRegister(m.FramesSent, m.FramesReceived, m.ReceiveTimeouts, m.ReceiveErrors, m.Operations)
	return m
}

func (m *Metrics) frameSent() {
	if m != nil {
		m.FramesSent.Inc()
	}
}

func (m *Metrics) frameReceived() {
	if m != nil {
		m.FramesReceived.Inc()
	}
}

func (m *Metrics) receiveTimeout() {
	if m != nil {
		m.ReceiveTimeouts.Inc()
	}
}

func (m *Metrics) receiveError() {
	if m != nil {
		m.ReceiveErrors.Inc()
	}
}

func (m *Metrics) operation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
}
