// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments
//
// Pyrostat - BLE parking heater controller
//
// Control and monitor the cheap BLE diesel parking heaters that speak
// the 0x76-framed command protocol.

package main

import (
	"os"

	"github.com/emberline/pyrostat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
