// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package airheat

import (
	"fmt"
	"strings"
)

// FormatErrorCode returns the human-readable name for a fault code.
func FormatErrorCode(code ErrorCode) string {
	switch code {
	case ErrorNone:
		return "OK"
	case ErrorLowVoltage:
		return "LOW_VOLTAGE"
	case ErrorOverheat:
		return "OVERHEAT"
	case ErrorGlowPlugFault:
		return "GLOW_PLUG_FAULT"
	case ErrorPumpFault:
		return "PUMP_FAULT"
	case ErrorIgnitionFail:
		return "IGNITION_FAIL"
	case ErrorFlameOut:
		return "FLAME_OUT"
	case ErrorFanStall:
		return "FAN_STALL"
	case ErrorSensorFault:
		return "SENSOR_FAULT"
	default:
		return fmt.Sprintf("FAULT_0x%02X", uint8(code))
	}
}

// FormatStatus formats a snapshot into a single human-readable line.
func FormatStatus(s StatusSnapshot) string {
	power := "off"
	if s.Power {
		power = "on"
	}
	return fmt.Sprintf("[%s] power=%s target=%d°C current=%d°C fan=%d fault=%s",
		s.ObservedAt.Format("15:04:05.000"), power,
		s.TargetTemperature, s.CurrentTemperature, s.FanSpeed,
		FormatErrorCode(s.Fault))
}

// FormatCommand formats a command for logs: catalog name, type byte
// and payload.
func FormatCommand(c Command) string {
	if len(c.Payload()) == 0 {
		return fmt.Sprintf("%s (0x%02X)", c.Name(), c.Type())
	}
	return fmt.Sprintf("%s (0x%02X) payload=%s", c.Name(), c.Type(), FormatHex(c.Payload()))
}

// FormatFrame formats a decoded frame with timestamp, type and raw
// payload.
func FormatFrame(p *Profile, f *Frame) string {
	name := "UNKNOWN"
	switch f.Type() {
	case p.Power.Type:
		name = p.Power.Name
	case p.StatusQuery.Type:
		name = p.StatusQuery.Name
	case p.Temperature.Type:
		name = p.Temperature.Name
	case p.FanSpeed.Type:
		name = p.FanSpeed.Name
	}
	if f.Type() == p.Response.Type {
		name = "STATUS"
	}
	return fmt.Sprintf("[%s] %s (0x%02X) len=%d payload=%s",
		f.Timestamp().Format("15:04:05.000"), name, f.Type(), len(f.Payload()), FormatHex(f.Payload()))
}

// FormatHex renders bytes as space-separated hex pairs.
func FormatHex(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}
