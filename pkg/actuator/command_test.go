// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import (
	"errors"
	"testing"
)

func TestNewCommand(t *testing.T) {
	for _, opcode := range []byte{0x00, CmdReset, CmdUniqueDeviceID, CmdSoftwareVersion, 0xFF} {
		for _, dataType := range []byte{0x00, 0x40, 0x80, 0xFC} {
			for _, confirmation := range []bool{false, true} {
				for _, autoReply := range []bool{false, true} {
					c := NewCommand(opcode, dataType, confirmation, autoReply)

					if c[0] != opcode {
						t.Errorf("byte0 = 0x%02X, want 0x%02X", c[0], opcode)
					}
					if got := c[1]&FlagConfirmation != 0; got != confirmation {
						t.Errorf("opcode 0x%02X type 0x%02X: confirmation bit = %v, want %v", opcode, dataType, got, confirmation)
					}
					if got := c[1]&FlagAutoReply != 0; got != autoReply {
						t.Errorf("opcode 0x%02X type 0x%02X: auto-reply bit = %v, want %v", opcode, dataType, got, autoReply)
					}
					if c.Confirmation() != confirmation || c.AutoReply() != autoReply {
						t.Errorf("flag accessors = (%v, %v), want (%v, %v)", c.Confirmation(), c.AutoReply(), confirmation, autoReply)
					}
					for i := 2; i < FrameSize; i++ {
						if c[i] != 0 {
							t.Errorf("byte%d = 0x%02X, want 0", i, c[i])
						}
					}
				}
			}
		}
	}
}

func TestCommand_DataType(t *testing.T) {
	c := NewCommand(CmdUniqueDeviceID, DataTypeUniqueDeviceID, true, true)
	if c[1] != 0x43 {
		t.Errorf("byte1 = 0x%02X, want 0x43", c[1])
	}
	if c.DataType() != DataTypeUniqueDeviceID {
		t.Errorf("DataType() = 0x%02X, want 0x%02X", c.DataType(), DataTypeUniqueDeviceID)
	}
	if c.Opcode() != CmdUniqueDeviceID {
		t.Errorf("Opcode() = 0x%02X, want 0x%02X", c.Opcode(), CmdUniqueDeviceID)
	}
}

func TestCommand_SetByte(t *testing.T) {
	tests := []struct {
		name     string
		position int
		value    int
		wantErr  bool
	}{
		{"first byte", 0, 0x7F, false},
		{"last byte max value", 7, 255, false},
		{"zero", 4, 0, false},
		{"position 8", 8, 1, true},
		{"negative position", -1, 1, true},
		{"value 256", 3, 256, true},
		{"negative value", 3, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Command
			got, err := c.SetByte(tt.position, tt.value)

			if tt.wantErr {
				var rangeErr *RangeError
				if !errors.As(err, &rangeErr) {
					t.Fatalf("SetByte(%d, %d) err = %v, want RangeError", tt.position, tt.value, err)
				}
				if c != (Command{}) {
					t.Errorf("failed SetByte modified command: %v", c)
				}
				return
			}

			if err != nil {
				t.Fatalf("SetByte(%d, %d) failed: %v", tt.position, tt.value, err)
			}
			if int(got) != tt.value {
				t.Errorf("SetByte returned %d, want %d", got, tt.value)
			}
			read, err := c.ReadByte(tt.position)
			if err != nil {
				t.Fatalf("ReadByte(%d) failed: %v", tt.position, err)
			}
			if int(read) != tt.value {
				t.Errorf("ReadByte(%d) = %d, want %d", tt.position, read, tt.value)
			}
		})
	}
}

func TestCommand_ReadByteOutOfRange(t *testing.T) {
	var c Command
	for _, pos := range []int{-1, 8, 100} {
		if _, err := c.ReadByte(pos); err == nil {
			t.Errorf("ReadByte(%d) succeeded, want RangeError", pos)
		}
	}
}

func TestCommand_PutUint16(t *testing.T) {
	var c Command
	if err := c.PutUint16(6, 0x1234); err != nil {
		t.Fatalf("PutUint16 failed: %v", err)
	}
	if c[6] != 0x12 || c[7] != 0x34 {
		t.Errorf("bytes6-7 = %02X %02X, want 12 34", c[6], c[7])
	}
	if err := c.PutUint16(7, 1); err == nil {
		t.Error("PutUint16(7) succeeded, want RangeError")
	}
}

func TestCommand_BytesIsCopy(t *testing.T) {
	c := NewCommand(CmdReset, DataTypeReset, false, false)
	b := c.Bytes()
	if len(b) != FrameSize {
		t.Fatalf("len(Bytes()) = %d, want %d", len(b), FrameSize)
	}
	b[0] = 0xFF
	if c[0] != CmdReset {
		t.Error("modifying Bytes() result changed the command")
	}
}
