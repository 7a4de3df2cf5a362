// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package airheat

import (
	"fmt"
	"time"
)

// StatusSnapshot is one decoded device status. Snapshots are immutable
// values; each successful decode produces a fresh one.
type StatusSnapshot struct {
	Power              bool
	TargetTemperature  int // °C
	CurrentTemperature int // °C
	FanSpeed           int
	Fault              ErrorCode
	ObservedAt         time.Time
}

// Equal reports whether two snapshots agree on every observable
// field. ObservedAt is ignored: a re-read of an unchanged device is
// not a change.
func (s StatusSnapshot) Equal(o StatusSnapshot) bool {
	return s.Power == o.Power &&
		s.TargetTemperature == o.TargetTemperature &&
		s.CurrentTemperature == o.CurrentTemperature &&
		s.FanSpeed == o.FanSpeed &&
		s.Fault == o.Fault
}

// Faulted reports whether the heater is reporting a fault code.
func (s StatusSnapshot) Faulted() bool {
	return s.Fault != ErrorNone
}

// DecodeStatus maps a verified frame onto a StatusSnapshot using the
// profile's response layout. A frame of the wrong type returns
// ErrUnexpectedType; a payload shorter than the layout requires
// returns ErrMalformed. Fault codes outside the documented set are
// preserved as-is.
func DecodeStatus(p *Profile, f *Frame) (StatusSnapshot, error) {
	layout := p.Response
	if f.Type() != layout.Type {
		return StatusSnapshot{}, fmt.Errorf("%w: 0x%02X is not a status response (want 0x%02X)", ErrUnexpectedType, f.Type(), layout.Type)
	}
	payload := f.Payload()
	if len(payload) < layout.MinLength {
		return StatusSnapshot{}, fmt.Errorf("%w: status payload of %d bytes, layout needs %d", ErrMalformed, len(payload), layout.MinLength)
	}
	return StatusSnapshot{
		Power:              payload[layout.Power] != 0,
		TargetTemperature:  int(payload[layout.Target]),
		CurrentTemperature: int(payload[layout.Current]),
		FanSpeed:           int(payload[layout.Fan]),
		Fault:              ErrorCode(payload[layout.Fault]),
		ObservedAt:         f.Timestamp(),
	}, nil
}

// EncodeStatus re-serializes a snapshot as the status response frame
// the heater would have sent, per the profile's layout. Used by the
// capture format and by replay tooling.
func EncodeStatus(p *Profile, s StatusSnapshot) []byte {
	layout := p.Response
	payload := make([]byte, layout.MinLength)
	if s.Power {
		payload[layout.Power] = 1
	}
	payload[layout.Target] = byte(s.TargetTemperature)
	payload[layout.Current] = byte(s.CurrentTemperature)
	payload[layout.Fan] = byte(s.FanSpeed)
	payload[layout.Fault] = byte(s.Fault)
	return encodeFrame(p.Header, layout.Type, payload)
}

// DecodeStatusBytes parses a complete frame span and decodes it as a
// status response in one step.
func DecodeStatusBytes(p *Profile, data []byte) (StatusSnapshot, error) {
	f, err := ParseFrame(p, data)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return DecodeStatus(p, f)
}
