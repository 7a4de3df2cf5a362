// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package link

import (
	"errors"
	"fmt"
)

// Link errors. Callers match with errors.Is; TransportError is
// matched with errors.As.
var (
	// ErrNotConnected is returned when a command is submitted while
	// the link is not Ready. It indicates a caller contract
	// violation, not a link problem, and is never retried internally.
	ErrNotConnected = errors.New("link: not connected")

	// ErrBusy is returned when a request is already in flight. The
	// link carries no multiplexing, so a second write would corrupt
	// frame boundaries.
	ErrBusy = errors.New("link: request already in flight")

	// ErrTimeout is returned when the device does not answer within
	// the response deadline. A single slow response is not by itself
	// link loss; the state machine only reconnects when the transport
	// reports the link broken.
	ErrTimeout = errors.New("link: response timeout")

	// ErrAuthFailed is returned when the shared-secret exchange
	// cannot be performed. It is terminal for the session: retrying
	// with the same secret cannot succeed.
	ErrAuthFailed = errors.New("link: authentication failed")

	// ErrRetryLimit is returned once the reconnect ceiling is
	// exceeded. The session stays Failed until a fresh Connect
	// re-arms it; it is never auto-retried further.
	ErrRetryLimit = errors.New("link: retry limit exceeded")
)

// TransportError wraps a failure reported by the underlying
// transport.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("link: transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport failure.
func (e *TransportError) Unwrap() error {
	return e.Err
}
