// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// SLCAN (Lawicel) ASCII protocol bytes
const (
	slcanTerminator = '\r'
	slcanBell       = 0x07 // adapter error reply
	slcanMaxLine    = 32
)

// SLCAN bitrate setup codes (S0..S8)
var slcanBitrates = map[int]byte{
	10000:   '0',
	20000:   '1',
	50000:   '2',
	100000:  '3',
	125000:  '4',
	250000:  '5',
	500000:  '6',
	800000:  '7',
	1000000: '8',
}

// EncodeSLCAN encodes a frame as an SLCAN transmit command, including the
// trailing carriage return
func EncodeSLCAN(f Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var b bytes.Buffer
	if f.Extended {
		fmt.Fprintf(&b, "T%08X", f.ID)
	} else {
		fmt.Fprintf(&b, "t%03X", f.ID)
	}
	fmt.Fprintf(&b, "%d", f.Len)
	for _, v := range f.Payload() {
		fmt.Fprintf(&b, "%02X", v)
	}
	b.WriteByte(slcanTerminator)
	return b.Bytes(), nil
}

// DecodeSLCAN parses one SLCAN receive line (without the carriage return)
func DecodeSLCAN(line []byte) (Frame, error) {
	if len(line) == 0 {
		return Frame{}, errors.New("slcan: empty line")
	}

	var f Frame
	idLen := 0
	switch line[0] {
	case 'T':
		f.Extended = true
		idLen = 8
	case 't':
		idLen = 3
	default:
		return Frame{}, fmt.Errorf("slcan: unsupported command %q", line[0])
	}

	if len(line) < 1+idLen+1 {
		return Frame{}, fmt.Errorf("slcan: line too short: %d bytes", len(line))
	}

	id, err := strconv.ParseUint(string(line[1:1+idLen]), 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("slcan: invalid identifier: %w", err)
	}
	f.ID = uint32(id)

	dlc := line[1+idLen]
	if dlc < '0' || dlc > '8' {
		return Frame{}, fmt.Errorf("slcan: invalid length %q", dlc)
	}
	f.Len = dlc - '0'

	data := line[2+idLen:]
	// Some adapters append a 4 digit timestamp after the data
	if len(data) != int(f.Len)*2 && len(data) != int(f.Len)*2+4 {
		return Frame{}, fmt.Errorf("slcan: data length mismatch: got %d hex digits, expected %d", len(data), f.Len*2)
	}
	for i := 0; i < int(f.Len); i++ {
		v, err := strconv.ParseUint(string(data[i*2:i*2+2]), 16, 8)
		if err != nil {
			return Frame{}, fmt.Errorf("slcan: invalid data byte %d: %w", i, err)
		}
		f.Data[i] = byte(v)
	}

	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// SLCAN is a serial-line CAN adapter speaking the Lawicel protocol
type SLCAN struct {
	portName string
	baudRate int
	bitrate  int
}

// NewSLCAN returns an Interface for an SLCAN adapter on portName.
// bitrate is the CAN bus bitrate (e.g. 500000).
func NewSLCAN(portName string, baudRate, bitrate int) *SLCAN {
	return &SLCAN{portName: portName, baudRate: baudRate, bitrate: bitrate}
}

func (s *SLCAN) String() string {
	return fmt.Sprintf("SLCAN: %s @ %d baud, CAN %d bit/s", s.portName, s.baudRate, s.bitrate)
}

// Open opens the serial port, sets the bitrate and opens the CAN channel
func (s *SLCAN) Open(timeout time.Duration) (Bus, error) {
	code, ok := slcanBitrates[s.bitrate]
	if !ok {
		return nil, fmt.Errorf("unsupported SLCAN bitrate: %d", s.bitrate)
	}

	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(s.portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", s.portName, err)
	}

	if timeout > 0 {
		if err := port.SetReadTimeout(timeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	// Close any channel left open by a previous session, then configure
	setup := []byte{'C', slcanTerminator, 'S', code, slcanTerminator, 'O', slcanTerminator}
	if _, err := port.Write(setup); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to configure SLCAN adapter: %w", err)
	}

	return &slcanBus{port: port}, nil
}

// slcanBus may be shared by a sender and one receiver. Only Receive
// touches the line buffers.
type slcanBus struct {
	port   serial.Port
	line   []byte
	buf    [64]byte
	rest   []byte
	closed atomic.Bool
}

func (b *slcanBus) Send(f Frame) error {
	if b.closed.Load() {
		return ErrClosed
	}
	data, err := EncodeSLCAN(f)
	if err != nil {
		return err
	}
	_, err = b.port.Write(data)
	return err
}

// Receive reads lines until a frame line arrives. Acknowledgements
// ("z", "Z", bare CR) are skipped; a BEL reply is an adapter error.
func (b *slcanBus) Receive() (*Frame, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	for {
		for len(b.rest) > 0 {
			c := b.rest[0]
			b.rest = b.rest[1:]

			switch {
			case c == slcanBell:
				b.line = b.line[:0]
				return nil, errors.New("slcan: adapter reported an error")
			case c == slcanTerminator:
				line := b.line
				b.line = b.line[:0]
				if len(line) == 0 || line[0] == 'z' || line[0] == 'Z' {
					continue
				}
				f, err := DecodeSLCAN(line)
				if err != nil {
					return nil, err
				}
				return &f, nil
			default:
				if len(b.line) >= slcanMaxLine {
					b.line = b.line[:0]
					return nil, fmt.Errorf("slcan: line exceeds %d bytes", slcanMaxLine)
				}
				b.line = append(b.line, c)
			}
		}

		n, err := b.port.Read(b.buf[:])
		if err != nil {
			if portGone(err) {
				return nil, nil
			}
			return nil, err
		}
		if n == 0 {
			// go.bug.st/serial signals a read timeout with (0, nil)
			return nil, ErrTimeout
		}
		b.rest = b.buf[:n]
	}
}

func (b *slcanBus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.port.Write([]byte{'C', slcanTerminator})
	return b.port.Close()
}

// portGone reports whether a read error means the adapter is gone
func portGone(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return true
	}
	return errors.Is(err, io.EOF)
}
