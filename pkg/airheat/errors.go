// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package airheat

import "errors"

// Codec errors. All decode failures wrap one of these sentinels so
// callers can match with errors.Is while still seeing the detail.
var (
	// ErrMalformed marks a structurally invalid frame: too short, bad
	// header, or a length byte that disagrees with the span.
	ErrMalformed = errors.New("airheat: malformed frame")

	// ErrChecksumInvalid marks a frame whose checksum byte does not
	// match the sum of the preceding bytes.
	ErrChecksumInvalid = errors.New("airheat: checksum mismatch")

	// ErrUnexpectedType marks a well-formed frame whose type byte is
	// not the status response the caller asked to decode.
	ErrUnexpectedType = errors.New("airheat: unexpected frame type")

	// ErrOutOfRange is returned by command constructors when a value
	// falls outside the profile's domain. Values are never clamped.
	ErrOutOfRange = errors.New("airheat: value out of range")
)
