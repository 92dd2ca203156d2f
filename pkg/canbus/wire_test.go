// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestBridgeFrame_RoundTrip(t *testing.T) {
	in := Frame{ID: 0xFF0001, Extended: true, Len: 8, Data: [8]byte{0xA8, 0x40, 1, 2, 3, 4, 5, 6}}

	data, err := MarshalBridgeFrame(in)
	if err != nil {
		t.Fatalf("MarshalBridgeFrame failed: %v", err)
	}

	out, err := UnmarshalBridgeFrame(data)
	if err != nil {
		t.Fatalf("UnmarshalBridgeFrame failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}

func TestUnmarshalBridgeFrame_Invalid(t *testing.T) {
	mustMarshal := func(v interface{}) []byte {
		data, err := cbor.Marshal(v)
		if err != nil {
			t.Fatalf("cbor.Marshal failed: %v", err)
		}
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not cbor array", mustMarshal(42)},
		{"wrong element count", mustMarshal([]interface{}{uint64(1), true})},
		{"string identifier", mustMarshal([]interface{}{"id", true, []byte{}})},
		{"identifier out of range", mustMarshal([]interface{}{uint64(0x20000000), true, []byte{}})},
		{"non-bool extended", mustMarshal([]interface{}{uint64(1), uint64(1), []byte{}})},
		{"non-bytes data", mustMarshal([]interface{}{uint64(1), true, "data"})},
		{"too much data", mustMarshal([]interface{}{uint64(1), true, make([]byte, 9)})},
		{"standard id out of range", mustMarshal([]interface{}{uint64(0x800), false, []byte{}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalBridgeFrame(tt.data); err == nil {
				t.Error("UnmarshalBridgeFrame succeeded, want error")
			}
		})
	}
}
