// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MarshalBridgeFrame encodes a frame for the WebSocket bridge as a CBOR
// array: [id, extended, data]
func MarshalBridgeFrame(f Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	msg := []interface{}{uint64(f.ID), f.Extended, f.Payload()}
	data, err := cbor.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR frame: %w", err)
	}
	return data, nil
}

// UnmarshalBridgeFrame decodes a CBOR bridge message: [id, extended, data]
func UnmarshalBridgeFrame(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("empty CBOR frame")
	}

	var msg []interface{}
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return Frame{}, fmt.Errorf("failed to decode CBOR: %w", err)
	}

	if len(msg) != 3 {
		return Frame{}, fmt.Errorf("expected 3-element array, got %d elements", len(msg))
	}

	var f Frame
	switch v := msg[0].(type) {
	case uint64:
		if v > MaxExtendedID {
			return Frame{}, fmt.Errorf("identifier out of range: 0x%X", v)
		}
		f.ID = uint32(v)
	default:
		return Frame{}, fmt.Errorf("expected uint for identifier, got %T", msg[0])
	}

	ext, ok := msg[1].(bool)
	if !ok {
		return Frame{}, fmt.Errorf("expected bool for extended flag, got %T", msg[1])
	}
	f.Extended = ext

	payload, ok := msg[2].([]byte)
	if !ok {
		return Frame{}, fmt.Errorf("expected byte string for data, got %T", msg[2])
	}
	if len(payload) > MaxDataLen {
		return Frame{}, ErrInvalidLen
	}
	f.Len = uint8(len(payload))
	copy(f.Data[:], payload)

	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}
