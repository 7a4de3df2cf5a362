// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

// Package link owns one logical connection to one heater: it
// sequences connect, authenticate, request/response and reconnect,
// applies timeouts and backoff, and caches the latest decoded status
// for stale-tolerant reads.
//
// The package is transport-agnostic. It drives any Transport
// implementation; pkg/bleconn provides the real BLE one, and tests
// use an in-memory fake.
package link

import "context"

// NotificationFunc receives raw notification bytes from the device.
// Deliveries carry no frame alignment guarantee.
type NotificationFunc func(data []byte)

// DisconnectFunc is invoked once when the transport observes the
// underlying link drop.
type DisconnectFunc func(err error)

// Transport is the capability the link layer needs from a wireless
// stack: connect to an address, write raw bytes, deliver notification
// bytes, and report link loss. Implementations hand every
// notification to onNotify in arrival order.
type Transport interface {
	// Connect establishes the link and wires up the notification and
	// disconnect callbacks. It blocks until the device is ready to
	// accept writes or ctx expires.
	Connect(ctx context.Context, address string, onNotify NotificationFunc, onDisconnect DisconnectFunc) error

	// Write sends one complete frame to the device.
	Write(ctx context.Context, frame []byte) error

	// Close tears the link down. Closing an unconnected transport is
	// a no-op.
	Close() error
}
