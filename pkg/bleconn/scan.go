// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package bleconn

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tinygo.org/x/bluetooth"
)

// ScanResult is one advertising peripheral seen during a scan.
type ScanResult struct {
	Address string
	Name    string
	RSSI    int16
}

// Scan listens for advertising peripherals until the context expires
// and returns the strongest-signal-first list of devices seen. With
// serviceUUID set, only peripherals advertising that service are
// reported.
func Scan(ctx context.Context, serviceUUID string) ([]ScanResult, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}

	var filter bluetooth.UUID
	filtered := serviceUUID != ""
	if filtered {
		var err error
		filter, err = bluetooth.ParseUUID(serviceUUID)
		if err != nil {
			return nil, fmt.Errorf("service uuid %q: %w", serviceUUID, err)
		}
	}

	var mu sync.Mutex
	seen := make(map[string]ScanResult)

	scanErr := make(chan error, 1)
	go func() {
		scanErr <- adapter.Scan(func(_ *bluetooth.Adapter, device bluetooth.ScanResult) {
			if filtered && !device.HasServiceUUID(filter) {
				return
			}
			addr := device.Address.String()
			mu.Lock()
			prev, ok := seen[addr]
			// Keep the strongest reading and the first non-empty name.
			if !ok || device.RSSI > prev.RSSI {
				name := device.LocalName()
				if name == "" {
					name = prev.Name
				}
				seen[addr] = ScanResult{Address: addr, Name: name, RSSI: device.RSSI}
			}
			mu.Unlock()
		})
	}()

	select {
	case <-ctx.Done():
		adapter.StopScan()
		<-scanErr
	case err := <-scanErr:
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
	}

	mu.Lock()
	results := make([]ScanResult, 0, len(seen))
	for _, r := range seen {
		results = append(results, r)
	}
	mu.Unlock()

	sort.Slice(results, func(i, j int) bool { return results[i].RSSI > results[j].RSSI })
	return results, nil
}
