// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package canbus

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := time.Now().UnixNano()
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if s, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			seed = s
		}
	}
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomFrame(rng *rand.Rand) Frame {
	f := Frame{Extended: rng.Intn(2) == 0, Len: uint8(rng.Intn(MaxDataLen + 1))}
	if f.Extended {
		f.ID = uint32(rng.Int63n(MaxExtendedID + 1))
	} else {
		f.ID = uint32(rng.Intn(MaxStandardID + 1))
	}
	rng.Read(f.Data[:f.Len])
	return f
}

// TestFuzzSLCAN_RoundTrip encodes random valid frames and decodes them back
func TestFuzzSLCAN_RoundTrip(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		f := randomFrame(rng)
		line, err := EncodeSLCAN(f)
		if err != nil {
			t.Fatalf("round %d: EncodeSLCAN(%v) error = %v", i, f, err)
		}
		got, err := DecodeSLCAN(bytes.TrimSuffix(line, []byte{'\r'}))
		if err != nil {
			t.Fatalf("round %d: DecodeSLCAN(%q) error = %v", i, line, err)
		}
		if got != f {
			t.Fatalf("round %d: DecodeSLCAN(%q) = %v, want %v", i, line, got, f)
		}
	}
}

// TestFuzzSLCAN_RandomLines feeds mutated lines to the decoder and checks
// that anything accepted is a valid frame
func TestFuzzSLCAN_RandomLines(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	alphabet := []byte("0123456789ABCDEFabcdefTtzZ\a ")

	for i := 0; i < rounds; i++ {
		line, _ := EncodeSLCAN(randomFrame(rng))
		line = bytes.TrimSuffix(line, []byte{'\r'})
		for n := rng.Intn(3); n > 0; n-- {
			line[rng.Intn(len(line))] = alphabet[rng.Intn(len(alphabet))]
		}

		f, err := DecodeSLCAN(line)
		if err != nil {
			continue
		}
		if verr := f.Validate(); verr != nil {
			t.Fatalf("round %d: DecodeSLCAN(%q) accepted invalid frame: %v", i, line, verr)
		}
	}
}

// TestFuzzBridgeFrame_RandomBytes feeds random bytes to the CBOR bridge decoder
func TestFuzzBridgeFrame_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		data := make([]byte, rng.Intn(32))
		rng.Read(data)

		f, err := UnmarshalBridgeFrame(data)
		if err != nil {
			continue
		}
		if verr := f.Validate(); verr != nil {
			t.Fatalf("round %d: UnmarshalBridgeFrame(%X) accepted invalid frame: %v", i, data, verr)
		}
	}
}
