// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import (
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/canbus"
)

// scriptStep is one scripted Receive result
type scriptStep struct {
	frame *canbus.Frame
	err   error
}

// scriptedBus replays a fixed sequence of receive results. Once the script
// is exhausted it reports a lost connection.
type scriptedBus struct {
	script     []scriptStep
	sent       []canbus.Frame
	closeCount int
	sendErr    error
}

func (b *scriptedBus) Send(f canbus.Frame) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, f)
	return nil
}

func (b *scriptedBus) Receive() (*canbus.Frame, error) {
	if len(b.script) == 0 {
		return nil, nil
	}
	step := b.script[0]
	b.script = b.script[1:]
	return step.frame, step.err
}

func (b *scriptedBus) Close() error {
	b.closeCount++
	return nil
}

// fakeInterface hands out pre-built buses in order, then fresh empty ones
type fakeInterface struct {
	buses    []*scriptedBus
	opened   []*scriptedBus
	timeouts []time.Duration
	openErr  error
}

func (f *fakeInterface) Open(timeout time.Duration) (canbus.Bus, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.timeouts = append(f.timeouts, timeout)
	var b *scriptedBus
	if len(f.buses) > 0 {
		b = f.buses[0]
		f.buses = f.buses[1:]
	} else {
		b = &scriptedBus{}
	}
	f.opened = append(f.opened, b)
	return b, nil
}

func (f *fakeInterface) String() string {
	return "fake"
}

// reportFrom builds a received extended frame from the report address
func reportFrom(data ...byte) *canbus.Frame {
	f, err := canbus.NewExtendedFrame(DefaultReportAddress, data)
	if err != nil {
		panic(err)
	}
	return &f
}

// newTestActuator returns an actuator whose send and receive buses are the
// given scripted buses, both already open
func newTestActuator(send, recv *scriptedBus, opts ...Option) *Actuator {
	iface := &fakeInterface{buses: []*scriptedBus{send, recv}}
	a := New(iface, opts...)
	if err := a.StartSendingBus(time.Second); err != nil {
		panic(err)
	}
	if err := a.StartReceivingBus(time.Second); err != nil {
		panic(err)
	}
	return a
}

func ptr[T any](v T) *T {
	return &v
}
