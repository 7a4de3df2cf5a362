// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

// Package airheat implements the byte protocol spoken by BLE diesel air
// heaters of the common 0x76-framed family.
//
// The protocol is a simple request/response exchange over a GATT
// write/notify characteristic pair. Every message is one frame:
//
//	HEADER (0x76) | TYPE | LENGTH | PAYLOAD[LENGTH] | CHECKSUM
//
// where CHECKSUM is the sum of all preceding bytes modulo 256. The
// package provides frame encoding/decoding, command construction with
// range validation, and status payload parsing. Command bytes and the
// response layout vary between heater models, so they are carried as
// Profile data rather than compiled constants.
package airheat

// Frame layout
const (
	// HeaderByte opens every frame of the default profile.
	HeaderByte = 0x76

	// FrameOverhead is header + type + length + checksum.
	FrameOverhead = 4

	// MaxPayloadSize bounds the length byte. Real heaters answer well
	// under one BLE notification (20 bytes on a default MTU).
	MaxPayloadSize = 59

	// MaxFrameSize is the largest frame the decoder will buffer.
	MaxFrameSize = FrameOverhead + MaxPayloadSize
)

// Command type bytes of the default profile
const (
	TypePower          = 0x16
	TypeStatusQuery    = 0x17
	TypeSetTemperature = 0x18
	TypeSetFanSpeed    = 0x19
)

// Value domains of the default profile
const (
	MinTemperature = 8
	MaxTemperature = 36
	MinFanSpeed    = 1
	MaxFanSpeed    = 5
)

// GATT identifiers of the default profile
const (
	DefaultServiceUUID = "0000fff0-0000-1000-8000-00805f9b34fb"
	DefaultWriteUUID   = "0000fff1-0000-1000-8000-00805f9b34fb"
	DefaultNotifyUUID  = "0000fff2-0000-1000-8000-00805f9b34fb"
)

// Decoder states (internal)
const (
	stateIdle = iota
	stateType
	stateLength
	statePayload
	stateChecksum
)

// ErrorCode is the fault code reported in a status frame. Codes not
// listed here are passed through untouched; heaters report vendor
// specific faults that no public documentation covers.
type ErrorCode uint8

// Fault codes commonly reported by 0x76-family heaters
const (
	ErrorNone          ErrorCode = 0x00
	ErrorLowVoltage    ErrorCode = 0x01
	ErrorOverheat      ErrorCode = 0x02
	ErrorGlowPlugFault ErrorCode = 0x03
	ErrorPumpFault     ErrorCode = 0x04
	ErrorIgnitionFail  ErrorCode = 0x05
	ErrorFlameOut      ErrorCode = 0x06
	ErrorFanStall      ErrorCode = 0x07
	ErrorSensorFault   ErrorCode = 0x08
)
