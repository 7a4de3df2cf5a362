// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package airheat

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes one heater model: its GATT identifiers, the
// command catalog, and the status response layout. The wire framing
// (header/type/length/checksum) is shared across the family, but the
// type bytes and payload positions are known to differ between vendor
// firmwares, so they live here as data instead of compiled constants.
//
// A profile file overrides only the fields it names; everything else
// keeps the DefaultProfile value.
type Profile struct {
	Name string `yaml:"name"`

	// Header is the frame start byte.
	Header byte `yaml:"header"`

	GATT GATTConfig `yaml:"gatt"`

	Power       CommandSpec `yaml:"power"`
	StatusQuery CommandSpec `yaml:"status_query"`
	Temperature CommandSpec `yaml:"temperature"`
	FanSpeed    CommandSpec `yaml:"fan_speed"`

	Response ResponseLayout `yaml:"response"`

	// Auth, when present, enables the shared-secret exchange after
	// connect. The secret itself is runtime configuration, not profile
	// data.
	Auth *AuthSpec `yaml:"auth,omitempty"`
}

// GATTConfig names the service and characteristic pair the heater
// exposes: one write characteristic for commands, one notify
// characteristic for responses.
type GATTConfig struct {
	Service string `yaml:"service"`
	Write   string `yaml:"write"`
	Notify  string `yaml:"notify"`
}

// CommandSpec maps one command variant to its type byte and value
// domain. Min and Max are unused for commands without a numeric
// argument.
type CommandSpec struct {
	Type byte   `yaml:"type"`
	Min  int    `yaml:"min,omitempty"`
	Max  int    `yaml:"max,omitempty"`
	Name string `yaml:"name,omitempty"`
}

// ResponseLayout gives the positional layout of the status response
// payload. Offsets are indices into the payload, not the frame.
type ResponseLayout struct {
	Type      byte `yaml:"type"`
	MinLength int  `yaml:"min_length"`
	Power     int  `yaml:"power"`
	Target    int  `yaml:"target"`
	Current   int  `yaml:"current"`
	Fan       int  `yaml:"fan"`
	Fault     int  `yaml:"fault"`
}

// AuthSpec describes the optional shared-secret exchange. The secret
// is sent as the payload of a frame with the given type byte; the
// heater acknowledges with a status frame.
type AuthSpec struct {
	Type byte `yaml:"type"`
}

// DefaultProfile returns the catalog observed on the common
// 0x76-family heaters. The response echoes the status query type byte
// with a five byte payload: power, target temp, current temp, fan
// speed, fault code.
func DefaultProfile() *Profile {
	return &Profile{
		Name:   "generic-0x76",
		Header: HeaderByte,
		GATT: GATTConfig{
			Service: DefaultServiceUUID,
			Write:   DefaultWriteUUID,
			Notify:  DefaultNotifyUUID,
		},
		Power:       CommandSpec{Type: TypePower, Min: 0, Max: 1, Name: "POWER"},
		StatusQuery: CommandSpec{Type: TypeStatusQuery, Name: "STATUS_QUERY"},
		Temperature: CommandSpec{Type: TypeSetTemperature, Min: MinTemperature, Max: MaxTemperature, Name: "SET_TEMPERATURE"},
		FanSpeed:    CommandSpec{Type: TypeSetFanSpeed, Min: MinFanSpeed, Max: MaxFanSpeed, Name: "SET_FAN_SPEED"},
		Response: ResponseLayout{
			Type:      TypeStatusQuery,
			MinLength: 5,
			Power:     0,
			Target:    1,
			Current:   2,
			Fan:       3,
			Fault:     4,
		},
	}
}

// LoadProfile reads a YAML profile file and applies it on top of the
// default profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile applies YAML profile data on top of the default
// profile and validates the result.
func ParseProfile(data []byte) (*Profile, error) {
	p := DefaultProfile()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the profile for contradictions that would produce
// unparseable frames.
func (p *Profile) Validate() error {
	if p.Response.MinLength < 1 || p.Response.MinLength > MaxPayloadSize {
		return fmt.Errorf("profile %q: response min_length %d out of bounds", p.Name, p.Response.MinLength)
	}
	for _, off := range []int{p.Response.Power, p.Response.Target, p.Response.Current, p.Response.Fan, p.Response.Fault} {
		if off < 0 || off >= p.Response.MinLength {
			return fmt.Errorf("profile %q: response offset %d outside payload of %d bytes", p.Name, off, p.Response.MinLength)
		}
	}
	for _, spec := range []CommandSpec{p.Temperature, p.FanSpeed} {
		if spec.Min > spec.Max {
			return fmt.Errorf("profile %q: %s has min %d > max %d", p.Name, spec.Name, spec.Min, spec.Max)
		}
	}
	if p.GATT.Service == "" || p.GATT.Write == "" || p.GATT.Notify == "" {
		return fmt.Errorf("profile %q: incomplete gatt configuration", p.Name)
	}
	return nil
}
