// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package airheat

import (
	"bytes"
	"errors"
	"testing"
)

// buildStatusFrame assembles a valid status response frame for tests,
// playing the role of the heater.
func buildStatusFrame(p *Profile, power byte, target, current, fan byte, fault byte) []byte {
	payload := make([]byte, p.Response.MinLength)
	payload[p.Response.Power] = power
	payload[p.Response.Target] = target
	payload[p.Response.Current] = current
	payload[p.Response.Fan] = fan
	payload[p.Response.Fault] = fault

	frame := append([]byte{p.Header, p.Response.Type, byte(len(payload))}, payload...)
	return append(frame, Checksum(frame))
}

// ============================================================
// Checksum Tests
// ============================================================

func TestChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected byte
	}{
		{"empty", []byte{}, 0x00},
		{"single byte", []byte{0x76}, 0x76},
		{"set temperature body", []byte{0x76, 0x18, 0x01, 0x16}, 0xA5},
		{"wraps modulo 256", []byte{0xFF, 0xFF, 0x03}, 0x01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if sum := Checksum(tt.data); sum != tt.expected {
				t.Errorf("Checksum mismatch: expected 0x%02X, got 0x%02X", tt.expected, sum)
			}
		})
	}
}

// ============================================================
// Encode Tests
// ============================================================

func TestEncodeCommand_KnownFrames(t *testing.T) {
	p := DefaultProfile()

	setTemp22, err := NewTemperatureSet(p, 22)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fan3, err := NewFanSpeedSet(p, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		command  Command
		expected []byte
	}{
		{"set temperature 22", setTemp22, []byte{0x76, 0x18, 0x01, 0x16, 0xA5}},
		{"power on", NewPowerSet(p, true), []byte{0x76, 0x16, 0x01, 0x01, 0x8E}},
		{"power off", NewPowerSet(p, false), []byte{0x76, 0x16, 0x01, 0x00, 0x8D}},
		{"status query", NewStatusQuery(p), []byte{0x76, 0x17, 0x00, 0x8D}},
		{"fan speed 3", fan3, []byte{0x76, 0x19, 0x01, 0x03, 0x93}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := EncodeCommand(p, tt.command)
			if !bytes.Equal(frame, tt.expected) {
				t.Errorf("Frame mismatch:\nexpected % X\ngot      % X", tt.expected, frame)
			}
		})
	}
}

func TestEncodeCommand_ChecksumInvariant(t *testing.T) {
	p := DefaultProfile()

	commands := []Command{
		NewPowerSet(p, true),
		NewPowerSet(p, false),
		NewStatusQuery(p),
	}
	for deg := MinTemperature; deg <= MaxTemperature; deg++ {
		c, err := NewTemperatureSet(p, deg)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		commands = append(commands, c)
	}
	for speed := MinFanSpeed; speed <= MaxFanSpeed; speed++ {
		c, err := NewFanSpeedSet(p, speed)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		commands = append(commands, c)
	}

	for _, c := range commands {
		frame := EncodeCommand(p, c)
		body := frame[:len(frame)-1]
		if frame[len(frame)-1] != Checksum(body) {
			t.Errorf("%s: checksum byte 0x%02X does not equal sum 0x%02X",
				FormatCommand(c), frame[len(frame)-1], Checksum(body))
		}
		if frame[0] != p.Header {
			t.Errorf("%s: frame does not start with header", FormatCommand(c))
		}
		if int(frame[2]) != len(frame)-FrameOverhead {
			t.Errorf("%s: length byte %d disagrees with payload size %d",
				FormatCommand(c), frame[2], len(frame)-FrameOverhead)
		}
	}
}

// ============================================================
// ParseFrame Tests
// ============================================================

func TestParseFrame_Malformed(t *testing.T) {
	p := DefaultProfile()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"too short", []byte{0x76, 0x17, 0x00}},
		{"bad header", []byte{0x77, 0x17, 0x00, 0x8E}},
		{"length disagrees short", []byte{0x76, 0x17, 0x05, 0x01, 0x93}},
		{"length disagrees long", []byte{0x76, 0x17, 0x00, 0x01, 0x8E}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame(p, tt.data)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestParseFrame_ChecksumInvalid(t *testing.T) {
	p := DefaultProfile()
	frame := buildStatusFrame(p, 1, 22, 20, 3, 0)
	frame[4] ^= 0x01 // corrupt a payload byte

	_, err := ParseFrame(p, frame)
	if !errors.Is(err, ErrChecksumInvalid) {
		t.Errorf("Expected ErrChecksumInvalid, got %v", err)
	}
}

// Flipping any single bit of a valid frame must be detected: the
// additive checksum catches every single-bit change in the body, and
// flips of the checksum byte itself break the comparison.
func TestParseFrame_SingleBitFlipsDetected(t *testing.T) {
	p := DefaultProfile()
	valid := buildStatusFrame(p, 1, 22, 20, 3, 0)

	if _, err := ParseFrame(p, valid); err != nil {
		t.Fatalf("Baseline frame must parse: %v", err)
	}

	for i := range valid {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), valid...)
			mutated[i] ^= 1 << bit
			if _, err := ParseFrame(p, mutated); err == nil {
				t.Errorf("Bit %d of byte %d flipped and the frame was still accepted", bit, i)
			}
		}
	}
}

// ============================================================
// Status Decode Tests
// ============================================================

func TestDecodeStatusBytes_Vector(t *testing.T) {
	p := DefaultProfile()

	// power on, target 22°C, current 20°C, fan 3, no fault
	data := []byte{0x76, 0x17, 0x05, 0x01, 0x16, 0x14, 0x03, 0x00, 0xC0}

	s, err := DecodeStatusBytes(p, data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !s.Power {
		t.Error("Expected power on")
	}
	if s.TargetTemperature != 22 {
		t.Errorf("Expected target 22, got %d", s.TargetTemperature)
	}
	if s.CurrentTemperature != 20 {
		t.Errorf("Expected current 20, got %d", s.CurrentTemperature)
	}
	if s.FanSpeed != 3 {
		t.Errorf("Expected fan 3, got %d", s.FanSpeed)
	}
	if s.Fault != ErrorNone {
		t.Errorf("Expected no fault, got %v", s.Fault)
	}
	if s.ObservedAt.IsZero() {
		t.Error("Expected ObservedAt to be set")
	}
}

func TestDecodeStatus_UnexpectedType(t *testing.T) {
	p := DefaultProfile()
	frame := []byte{0x76, 0x18, 0x01, 0x16, 0xA5} // a command echo, not a status

	_, err := DecodeStatusBytes(p, frame)
	if !errors.Is(err, ErrUnexpectedType) {
		t.Errorf("Expected ErrUnexpectedType, got %v", err)
	}
}

func TestDecodeStatus_ShortPayload(t *testing.T) {
	p := DefaultProfile()
	frame := []byte{0x76, 0x17, 0x02, 0x01, 0x16}
	frame = append(frame, Checksum(frame))

	_, err := DecodeStatusBytes(p, frame)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
}

// Undocumented fault codes pass through untouched so new firmware
// revisions keep reporting something useful.
func TestDecodeStatus_UnknownFaultPreserved(t *testing.T) {
	p := DefaultProfile()
	data := buildStatusFrame(p, 1, 22, 20, 3, 0x7F)

	s, err := DecodeStatusBytes(p, data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if s.Fault != ErrorCode(0x7F) {
		t.Errorf("Expected fault 0x7F preserved, got 0x%02X", uint8(s.Fault))
	}
	if got := FormatErrorCode(s.Fault); got != "FAULT_0x7F" {
		t.Errorf("Expected FAULT_0x7F, got %q", got)
	}
}

// A set command followed by the device's status echo reflects the
// value that was set.
func TestCommandStatusRoundTrip(t *testing.T) {
	p := DefaultProfile()

	for deg := MinTemperature; deg <= MaxTemperature; deg++ {
		c, err := NewTemperatureSet(p, deg)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		sent := EncodeCommand(p, c)
		echo := buildStatusFrame(p, 1, sent[3], 20, 2, 0)

		s, err := DecodeStatusBytes(p, echo)
		if err != nil {
			t.Fatalf("Decode error: %v", err)
		}
		if s.TargetTemperature != deg {
			t.Errorf("Set %d, echo reports %d", deg, s.TargetTemperature)
		}
	}
}

func TestStatusSnapshot_Equal(t *testing.T) {
	p := DefaultProfile()
	a, err := DecodeStatusBytes(p, buildStatusFrame(p, 1, 22, 20, 3, 0))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	b, err := DecodeStatusBytes(p, buildStatusFrame(p, 1, 22, 20, 3, 0))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !a.Equal(b) {
		t.Error("Snapshots with identical fields must compare equal despite timestamps")
	}

	c := b
	c.FanSpeed = 4
	if a.Equal(c) {
		t.Error("Snapshots differing in fan speed must not compare equal")
	}
}
