// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Emberline Instruments

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Device selection flags
	deviceAddress string
	profilePath   string

	// Behavior flags
	verbose bool
	noPin   bool
)

var rootCmd = &cobra.Command{
	Use:   "pyrostat",
	Short: "BLE parking heater controller",
	Long: `Pyrostat - control and monitor BLE diesel parking heaters.

Speaks the 0x76-framed command protocol common to the cheap BLE heater
controllers: power, target temperature, fan speed, and status polling,
over a GATT write/notify characteristic pair.

Device selection:
  --address AA:BB:CC:DD:EE:FF    (find one with 'pyrostat scan')
  --profile custom.yaml          (override the command catalog per vendor)

Heaters that require a pairing PIN read it from the PYROSTAT_PIN
environment variable, or prompt interactively if not set. There is no
--pin flag to keep the PIN out of shell history.`,
	Version: "1.2.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&deviceAddress, "address", "a", "", "Heater BLE address")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "Device profile YAML file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVar(&noPin, "no-pin", false, "Never prompt for a PIN")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
