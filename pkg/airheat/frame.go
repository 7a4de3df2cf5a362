// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package airheat

import (
	"fmt"
	"time"
)

// Frame is one complete, checksum-verified protocol message.
type Frame struct {
	frameType byte
	payload   []byte
	checksum  byte
	timestamp time.Time
}

// Type returns the frame's type byte.
func (f *Frame) Type() byte {
	return f.frameType
}

// Payload returns the frame's payload bytes.
func (f *Frame) Payload() []byte {
	return f.payload
}

// Checksum returns the checksum byte carried on the wire.
func (f *Frame) Checksum() byte {
	return f.checksum
}

// Timestamp returns the time the frame was decoded.
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Bytes re-serializes the frame to wire format.
func (f *Frame) Bytes(p *Profile) []byte {
	return encodeFrame(p.Header, f.frameType, f.payload)
}

// EncodeCommand serializes a command to wire format. Commands are
// range-checked at construction, so encoding is deterministic and has
// no failure path.
func EncodeCommand(p *Profile, c Command) []byte {
	return encodeFrame(p.Header, c.Type(), c.Payload())
}

// encodeFrame builds header | type | length | payload | checksum.
func encodeFrame(header, frameType byte, payload []byte) []byte {
	frame := make([]byte, 0, FrameOverhead+len(payload))
	frame = append(frame, header, frameType, byte(len(payload)))
	frame = append(frame, payload...)
	frame = append(frame, Checksum(frame))
	return frame
}

// ParseFrame decodes a complete byte span into a Frame. The span must
// hold exactly one frame: reassembly of partial notifications is the
// Decoder's job. Structural failures return ErrMalformed; a frame
// whose checksum disagrees returns ErrChecksumInvalid and must not be
// trusted in part.
func ParseFrame(p *Profile, data []byte) (*Frame, error) {
	if len(data) < FrameOverhead {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformed, len(data), FrameOverhead)
	}
	if data[0] != p.Header {
		return nil, fmt.Errorf("%w: header 0x%02X, want 0x%02X", ErrMalformed, data[0], p.Header)
	}
	length := int(data[2])
	if length > MaxPayloadSize {
		return nil, fmt.Errorf("%w: declared length %d exceeds max %d", ErrMalformed, length, MaxPayloadSize)
	}
	if len(data) != FrameOverhead+length {
		return nil, fmt.Errorf("%w: declared length %d, span holds %d payload bytes", ErrMalformed, length, len(data)-FrameOverhead)
	}

	body := data[:len(data)-1]
	wire := data[len(data)-1]
	if sum := Checksum(body); sum != wire {
		return nil, fmt.Errorf("%w: computed 0x%02X, frame carries 0x%02X", ErrChecksumInvalid, sum, wire)
	}

	return &Frame{
		frameType: data[1],
		payload:   append([]byte(nil), data[3:3+length]...),
		checksum:  wire,
		timestamp: time.Now(),
	}, nil
}
