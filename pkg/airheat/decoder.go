// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package airheat

import (
	"fmt"
	"time"
)

// Decoder is the streaming frame decoder. BLE notifications carry no
// alignment guarantee: a frame may arrive split across deliveries or
// packed together with the next one, so the decoder consumes byte by
// byte and reassembles by the length prefix. ParseFrame is only ever
// applied to spans this decoder has bounded.
//
// A Decoder is not safe for concurrent use; each link owns one.
type Decoder struct {
	state     int
	frameType byte
	length    int
	payload   []byte
	body      []byte // header..payload, checksum input
	profile   *Profile
}

// NewDecoder creates a streaming decoder for the given profile.
func NewDecoder(p *Profile) *Decoder {
	return &Decoder{
		profile: p,
		body:    make([]byte, 0, MaxFrameSize),
	}
}

// Reset returns the decoder to the idle state, discarding any
// partially assembled frame.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.frameType = 0
	d.length = 0
	d.payload = nil
	d.body = d.body[:0]
}

// DecodeByte advances the decoder by one byte. It returns a completed
// frame, or nil while a frame is still assembling. Checksum and
// framing failures reset the decoder and return an error; the decoder
// then resynchronizes on the next header byte, so one bad frame never
// stalls the ones behind it.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch d.state {
	case stateIdle:
		if b != d.profile.Header {
			// Noise between frames; skip until a header shows up.
			return nil, nil
		}
		d.body = append(d.body[:0], b)
		d.state = stateType
		return nil, nil

	case stateType:
		d.frameType = b
		d.body = append(d.body, b)
		d.state = stateLength
		return nil, nil

	case stateLength:
		if int(b) > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("%w: declared length %d exceeds max %d", ErrMalformed, b, MaxPayloadSize)
		}
		d.length = int(b)
		d.body = append(d.body, b)
		d.payload = make([]byte, 0, d.length)
		if d.length == 0 {
			d.state = stateChecksum
		} else {
			d.state = statePayload
		}
		return nil, nil

	case statePayload:
		d.payload = append(d.payload, b)
		d.body = append(d.body, b)
		if len(d.payload) >= d.length {
			d.state = stateChecksum
		}
		return nil, nil

	case stateChecksum:
		sum := Checksum(d.body)
		if b != sum {
			err := fmt.Errorf("%w: computed 0x%02X, frame carries 0x%02X", ErrChecksumInvalid, sum, b)
			d.Reset()
			return nil, err
		}
		frame := &Frame{
			frameType: d.frameType,
			payload:   d.payload,
			checksum:  b,
			timestamp: time.Now(),
		}
		d.Reset()
		return frame, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("%w: invalid decoder state", ErrMalformed)
	}
}

// Feed runs every byte of a notification delivery through the decoder
// and collects the completed frames and any decode errors. Errors do
// not stop the scan; frames behind a corrupt one are still returned.
func (d *Decoder) Feed(data []byte) ([]*Frame, []error) {
	var frames []*Frame
	var errs []error
	for _, b := range data {
		frame, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames, errs
}
