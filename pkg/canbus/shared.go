// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"sync"
	"time"
)

// Shared wraps an Interface whose underlying device can only be opened
// once (a serial port, a bridge session). Every Open after the first
// returns a handle on the same bus; the bus is closed when the last handle
// is. The receive timeout is the one passed to the first Open.
func Shared(iface Interface) Interface {
	return &sharedInterface{iface: iface}
}

type sharedInterface struct {
	iface Interface

	mu   sync.Mutex
	bus  Bus
	refs int
}

func (s *sharedInterface) String() string {
	return s.iface.String()
}

func (s *sharedInterface) Open(timeout time.Duration) (Bus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bus == nil {
		bus, err := s.iface.Open(timeout)
		if err != nil {
			return nil, err
		}
		s.bus = bus
	}
	s.refs++
	return &sharedHandle{owner: s}, nil
}

func (s *sharedInterface) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs--
	if s.refs > 0 {
		return nil
	}
	bus := s.bus
	s.bus = nil
	return bus.Close()
}

// sharedHandle is one reference on a shared bus
type sharedHandle struct {
	owner  *sharedInterface
	once   sync.Once
	closed bool
	mu     sync.Mutex
}

func (h *sharedHandle) current() (Bus, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	h.owner.mu.Lock()
	defer h.owner.mu.Unlock()
	if h.owner.bus == nil {
		return nil, ErrClosed
	}
	return h.owner.bus, nil
}

func (h *sharedHandle) Send(f Frame) error {
	bus, err := h.current()
	if err != nil {
		return err
	}
	return bus.Send(f)
}

func (h *sharedHandle) Receive() (*Frame, error) {
	bus, err := h.current()
	if err != nil {
		return nil, err
	}
	return bus.Receive()
}

func (h *sharedHandle) Close() error {
	var err error
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()
		err = h.owner.release()
	})
	return err
}
