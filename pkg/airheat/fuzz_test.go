// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package airheat

import (
	"errors"
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

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// buildRandomFrame creates a valid frame with a random type and payload
func buildRandomFrame(rng *rand.Rand, p *Profile) []byte {
	payload := make([]byte, rng.Intn(MaxPayloadSize+1))
	rng.Read(payload)
	return encodeFrame(p.Header, byte(rng.Intn(256)), payload)
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder
// and verifies it doesn't crash or panic
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder(DefaultProfile())

		length := rng.Intn(512) + 1
		data := make([]byte, length)
		rng.Read(data)

		for _, b := range data {
			d.DecodeByte(b)
		}
	}
}

// TestFuzzDecoder_ValidFramesWithNoise interleaves valid frames with
// random inter-frame noise and verifies every frame is recovered
func TestFuzzDecoder_ValidFramesWithNoise(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	p := DefaultProfile()

	for i := 0; i < rounds; i++ {
		d := NewDecoder(p)
		frameCount := rng.Intn(5) + 1

		var stream []byte
		for j := 0; j < frameCount; j++ {
			// Noise must not contain the header byte or it would be
			// taken for a frame start.
			noiseLen := rng.Intn(8)
			for k := 0; k < noiseLen; k++ {
				b := byte(rng.Intn(256))
				if b == p.Header {
					b++
				}
				stream = append(stream, b)
			}
			stream = append(stream, buildRandomFrame(rng, p)...)
		}

		var decoded int
		// Split the stream into random deliveries.
		for len(stream) > 0 {
			n := rng.Intn(len(stream)) + 1
			frames, _ := d.Feed(stream[:n])
			decoded += len(frames)
			stream = stream[n:]
		}

		if decoded != frameCount {
			t.Fatalf("Round %d: expected %d frames, decoded %d", i, frameCount, decoded)
		}
	}
}

// ============================================================
// ParseFrame Fuzz Tests
// ============================================================

// TestFuzzParseFrame_RandomSpans verifies ParseFrame never panics and
// only ever fails with the documented error taxonomy
func TestFuzzParseFrame_RandomSpans(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	p := DefaultProfile()

	for i := 0; i < rounds; i++ {
		data := make([]byte, rng.Intn(80))
		rng.Read(data)

		_, err := ParseFrame(p, data)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrMalformed) && !errors.Is(err, ErrChecksumInvalid) {
			t.Fatalf("ParseFrame returned an error outside the taxonomy: %v", err)
		}
	}
}

// TestFuzzParseFrame_RoundTrip encodes random frames and verifies
// they parse back to the same type and payload
func TestFuzzParseFrame_RoundTrip(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	p := DefaultProfile()

	for i := 0; i < rounds; i++ {
		wire := buildRandomFrame(rng, p)

		f, err := ParseFrame(p, wire)
		if err != nil {
			t.Fatalf("Round %d: encoded frame failed to parse: %v", i, err)
		}
		if f.Type() != wire[1] {
			t.Fatalf("Round %d: type 0x%02X became 0x%02X", i, wire[1], f.Type())
		}
		if len(f.Payload()) != int(wire[2]) {
			t.Fatalf("Round %d: payload length %d became %d", i, wire[2], len(f.Payload()))
		}
	}
}
