// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

// Package bleconn provides the Bluetooth Low Energy transport for a
// heater link session. It owns the adapter, the GATT discovery
// handshake, and the write/notify characteristic pair; everything
// above it speaks complete frames.
package bleconn

import (
	"context"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/emberline/pyrostat/pkg/airheat"
	"github.com/emberline/pyrostat/pkg/link"
)

// Transport is a link.Transport over a BLE peripheral. One Transport
// serves one device at a time; Connect after Connect replaces the
// session.
type Transport struct {
	adapter *bluetooth.Adapter
	gatt    airheat.GATTConfig

	mu      sync.Mutex
	enabled bool
	device  bluetooth.Device
	active  bool
	writeCh bluetooth.DeviceCharacteristic
	onDisc  link.DisconnectFunc
}

// New creates a BLE transport on the platform's default adapter,
// targeting the given GATT identifiers.
func New(gatt airheat.GATTConfig) *Transport {
	return &Transport{adapter: bluetooth.DefaultAdapter, gatt: gatt}
}

// verify Transport satisfies the link contract
var _ link.Transport = (*Transport)(nil)

func (t *Transport) enable() error {
	if t.enabled {
		return nil
	}
	if err := t.adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}
	t.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		t.mu.Lock()
		ours := t.active && device.Address == t.device.Address
		cb := t.onDisc
		if ours {
			t.active = false
		}
		t.mu.Unlock()
		if ours && cb != nil {
			cb(fmt.Errorf("peripheral %s disconnected", device.Address))
		}
	})
	t.enabled = true
	return nil
}

// Connect dials the peripheral, discovers the heater service and its
// write/notify characteristics, and subscribes to notifications. The
// context bounds the whole handshake.
func (t *Transport) Connect(ctx context.Context, address string, onNotify link.NotificationFunc, onDisconnect link.DisconnectFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.enable(); err != nil {
		return err
	}
	if t.active {
		t.disconnectLocked()
	}

	addr, err := parseAddress(address)
	if err != nil {
		return err
	}

	type dialResult struct {
		device bluetooth.Device
		err    error
	}
	dialed := make(chan dialResult, 1)
	go func() {
		d, err := t.adapter.Connect(addr, bluetooth.ConnectionParams{})
		dialed <- dialResult{device: d, err: err}
	}()

	var device bluetooth.Device
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-dialed:
		if res.err != nil {
			return fmt.Errorf("connect %s: %w", address, res.err)
		}
		device = res.device
	}

	writeCh, notifyCh, err := t.discover(device)
	if err != nil {
		device.Disconnect()
		return err
	}
	if err := notifyCh.EnableNotifications(func(buf []byte) {
		data := make([]byte, len(buf))
		copy(data, buf)
		onNotify(data)
	}); err != nil {
		device.Disconnect()
		return fmt.Errorf("enable notifications: %w", err)
	}

	t.device = device
	t.writeCh = writeCh
	t.onDisc = onDisconnect
	t.active = true
	return nil
}

// discover walks the GATT tree down to the heater's characteristic
// pair.
func (t *Transport) discover(device bluetooth.Device) (write, notify bluetooth.DeviceCharacteristic, err error) {
	svcUUID, err := bluetooth.ParseUUID(t.gatt.Service)
	if err != nil {
		return write, notify, fmt.Errorf("service uuid %q: %w", t.gatt.Service, err)
	}
	writeUUID, err := bluetooth.ParseUUID(t.gatt.Write)
	if err != nil {
		return write, notify, fmt.Errorf("write uuid %q: %w", t.gatt.Write, err)
	}
	notifyUUID, err := bluetooth.ParseUUID(t.gatt.Notify)
	if err != nil {
		return write, notify, fmt.Errorf("notify uuid %q: %w", t.gatt.Notify, err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil {
		return write, notify, fmt.Errorf("discover service %s: %w", t.gatt.Service, err)
	}
	if len(services) == 0 {
		return write, notify, fmt.Errorf("device does not expose service %s", t.gatt.Service)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{writeUUID, notifyUUID})
	if err != nil {
		return write, notify, fmt.Errorf("discover characteristics: %w", err)
	}
	var haveWrite, haveNotify bool
	for _, ch := range chars {
		switch ch.UUID() {
		case writeUUID:
			write, haveWrite = ch, true
		case notifyUUID:
			notify, haveNotify = ch, true
		}
	}
	if !haveWrite || !haveNotify {
		return write, notify, fmt.Errorf("service %s is missing its characteristic pair", t.gatt.Service)
	}
	return write, notify, nil
}

// Write sends one complete frame over the write characteristic.
func (t *Transport) Write(ctx context.Context, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return fmt.Errorf("transport not connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.writeCh.WriteWithoutResponse(frame); err != nil {
		return fmt.Errorf("gatt write: %w", err)
	}
	return nil
}

// Close drops the peripheral connection. Closing an idle transport is
// a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnectLocked()
	return nil
}

func (t *Transport) disconnectLocked() {
	if !t.active {
		return
	}
	// Cleared first so the adapter's disconnect callback does not
	// report a teardown we asked for.
	t.active = false
	t.onDisc = nil
	t.device.Disconnect()
}

func parseAddress(address string) (bluetooth.Address, error) {
	mac, err := bluetooth.ParseMAC(address)
	if err != nil {
		return bluetooth.Address{}, fmt.Errorf("address %q: %w", address, err)
	}
	return bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}, nil
}
