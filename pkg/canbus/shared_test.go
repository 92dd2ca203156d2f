// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"errors"
	"testing"
	"time"
)

// countingBus records sends and closes
type countingBus struct {
	sent   []Frame
	closes int
}

func (b *countingBus) Send(f Frame) error {
	b.sent = append(b.sent, f)
	return nil
}

func (b *countingBus) Receive() (*Frame, error) {
	return &Frame{ID: 0x42, Len: 1}, nil
}

func (b *countingBus) Close() error {
	b.closes++
	return nil
}

type countingInterface struct {
	opens int
	bus   *countingBus
}

func (c *countingInterface) Open(timeout time.Duration) (Bus, error) {
	c.opens++
	c.bus = &countingBus{}
	return c.bus, nil
}

func (c *countingInterface) String() string {
	return "counting"
}

func TestShared_OpensOnce(t *testing.T) {
	inner := &countingInterface{}
	iface := Shared(inner)

	if got := iface.String(); got != "counting" {
		t.Errorf("String() = %q, want %q", got, "counting")
	}

	send, err := iface.Open(time.Second)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	recv, err := iface.Open(time.Second)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if inner.opens != 1 {
		t.Fatalf("underlying opens = %d, want 1", inner.opens)
	}

	if err := send.Send(Frame{ID: 1}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if f, err := recv.Receive(); err != nil || f.ID != 0x42 {
		t.Fatalf("Receive() = (%v, %v)", f, err)
	}

	// Closing one handle twice only drops one reference
	send.Close()
	send.Close()
	if inner.bus.closes != 0 {
		t.Fatalf("bus closed with a handle still open")
	}
	if err := send.Send(Frame{ID: 1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after Close = %v, want ErrClosed", err)
	}

	recv.Close()
	if inner.bus.closes != 1 {
		t.Errorf("underlying closes = %d, want 1", inner.bus.closes)
	}
	if len(inner.bus.sent) != 1 {
		t.Errorf("sent = %d frames, want 1", len(inner.bus.sent))
	}

	// Reopening after the last close opens the device again
	if _, err := iface.Open(time.Second); err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if inner.opens != 2 {
		t.Errorf("underlying opens = %d, want 2", inner.opens)
	}
}
