// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/brutella/can"
)

// SocketCAN identifier flags as carried in can.Frame.ID
const (
	socketCANEffFlag = 0x80000000
	socketCANRtrFlag = 0x40000000
	socketCANErrFlag = 0x20000000
)

// SocketCAN is a Linux SocketCAN network interface such as can0 or vcan0
type SocketCAN struct {
	name string
}

// NewSocketCAN returns an Interface for the named SocketCAN device
func NewSocketCAN(name string) *SocketCAN {
	return &SocketCAN{name: name}
}

func (s *SocketCAN) String() string {
	return fmt.Sprintf("SocketCAN: %s", s.name)
}

// Open binds a raw CAN socket and starts publishing received frames
func (s *SocketCAN) Open(timeout time.Duration) (Bus, error) {
	bus, err := can.NewBusForInterfaceWithName(s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to open SocketCAN interface %s: %w", s.name, err)
	}

	b := &socketCANBus{
		bus:     bus,
		timeout: timeout,
		frames:  make(chan Frame, frameQueueSize),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	bus.SubscribeFunc(b.handle)

	go func() {
		// ConnectAndPublish blocks until Disconnect or a read failure
		err := bus.ConnectAndPublish()
		select {
		case <-b.done:
		default:
			if err != nil {
				b.errs <- fmt.Errorf("SocketCAN %s: %w", s.name, err)
			}
		}
		b.closeFrames()
	}()

	return b, nil
}

type socketCANBus struct {
	bus     *can.Bus
	timeout time.Duration

	frames chan Frame
	errs   chan error
	done   chan struct{}

	mu           sync.Mutex
	closed       bool
	framesClosed bool
}

func (b *socketCANBus) handle(frm can.Frame) {
	if frm.ID&socketCANErrFlag != 0 || frm.ID&socketCANRtrFlag != 0 {
		return
	}
	f := Frame{Len: frm.Length, Data: frm.Data}
	if frm.ID&socketCANEffFlag != 0 {
		f.Extended = true
		f.ID = frm.ID & MaxExtendedID
	} else {
		f.ID = frm.ID & MaxStandardID
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.framesClosed {
		return
	}
	select {
	case b.frames <- f:
	default:
		// queue full, oldest frames win
	}
}

func (b *socketCANBus) closeFrames() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.framesClosed {
		b.framesClosed = true
		close(b.frames)
	}
}

func (b *socketCANBus) Send(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	id := f.ID
	if f.Extended {
		id |= socketCANEffFlag
	}
	return b.bus.Publish(can.Frame{ID: id, Length: f.Len, Data: f.Data})
}

func (b *socketCANBus) Receive() (*Frame, error) {
	return receiveTimeout(b.frames, b.errs, b.done, b.timeout)
}

func (b *socketCANBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	return b.bus.Disconnect()
}
