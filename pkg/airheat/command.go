// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package airheat

import "fmt"

// CommandKind identifies a command variant.
type CommandKind int

// Command variants
const (
	KindPowerSet CommandKind = iota
	KindStatusQuery
	KindTemperatureSet
	KindFanSpeedSet
	KindAuth
)

// Command is a validated, ready-to-encode heater command. Construct
// one through the New* functions; they perform all range checking, so
// encoding a Command cannot fail.
type Command struct {
	kind     CommandKind
	typeByte byte
	payload  []byte
	name     string
}

// Kind returns the command variant.
func (c Command) Kind() CommandKind {
	return c.kind
}

// Type returns the wire type byte assigned by the profile.
func (c Command) Type() byte {
	return c.typeByte
}

// Payload returns the command payload bytes.
func (c Command) Payload() []byte {
	return c.payload
}

// Name returns the catalog name of the command, for logs.
func (c Command) Name() string {
	return c.name
}

// NewPowerSet creates a POWER command turning the heater on or off.
func NewPowerSet(p *Profile, on bool) Command {
	var v byte
	if on {
		v = 1
	}
	return Command{
		kind:     KindPowerSet,
		typeByte: p.Power.Type,
		payload:  []byte{v},
		name:     p.Power.Name,
	}
}

// NewStatusQuery creates a STATUS_QUERY command. The heater answers
// with a status frame.
func NewStatusQuery(p *Profile) Command {
	return Command{
		kind:     KindStatusQuery,
		typeByte: p.StatusQuery.Type,
		name:     p.StatusQuery.Name,
	}
}

// NewTemperatureSet creates a SET_TEMPERATURE command. The target is
// validated against the profile's domain; out-of-range values are
// rejected, never clamped.
func NewTemperatureSet(p *Profile, degreesC int) (Command, error) {
	spec := p.Temperature
	if degreesC < spec.Min || degreesC > spec.Max {
		return Command{}, fmt.Errorf("%w: temperature %d not in [%d, %d]", ErrOutOfRange, degreesC, spec.Min, spec.Max)
	}
	return Command{
		kind:     KindTemperatureSet,
		typeByte: spec.Type,
		payload:  []byte{byte(degreesC)},
		name:     spec.Name,
	}, nil
}

// NewFanSpeedSet creates a SET_FAN_SPEED command, validated against
// the profile's domain.
func NewFanSpeedSet(p *Profile, speed int) (Command, error) {
	spec := p.FanSpeed
	if speed < spec.Min || speed > spec.Max {
		return Command{}, fmt.Errorf("%w: fan speed %d not in [%d, %d]", ErrOutOfRange, speed, spec.Min, spec.Max)
	}
	return Command{
		kind:     KindFanSpeedSet,
		typeByte: spec.Type,
		payload:  []byte{byte(speed)},
		name:     spec.Name,
	}, nil
}

// NewAuthCommand creates the shared-secret exchange frame for
// profiles that require one. The secret bytes are sent verbatim as
// the payload.
func NewAuthCommand(p *Profile, secret []byte) (Command, error) {
	if p.Auth == nil {
		return Command{}, fmt.Errorf("profile %q has no auth exchange", p.Name)
	}
	if len(secret) > MaxPayloadSize {
		return Command{}, fmt.Errorf("%w: secret of %d bytes exceeds payload limit", ErrOutOfRange, len(secret))
	}
	return Command{
		kind:     KindAuth,
		typeByte: p.Auth.Type,
		payload:  append([]byte(nil), secret...),
		name:     "AUTH",
	}, nil
}
