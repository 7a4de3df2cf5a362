// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Emberline Instruments

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emberline/pyrostat/pkg/bleconn"
)

var (
	scanDuration time.Duration
	scanAll      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover nearby heaters",
	Long: `Scan for BLE peripherals advertising the heater service and list
them strongest signal first. Use --all to list every advertising
peripheral regardless of service.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "How long to scan")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "List all peripherals, not just heaters")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	profile, err := loadProfile()
	if err != nil {
		return err
	}
	service := profile.GATT.Service
	if scanAll {
		service = ""
	}

	fmt.Printf("Scanning for %s...\n\n", scanDuration)
	ctx, cancel := context.WithTimeout(cmd.Context(), scanDuration)
	defer cancel()

	results, err := bleconn.Scan(ctx, service)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No heaters found. Is the controller powered and in range?")
		return nil
	}

	fmt.Printf("%-20s %6s  %s\n", "ADDRESS", "RSSI", "NAME")
	for _, r := range results {
		name := r.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%-20s %4d dB  %s\n", r.Address, r.RSSI, name)
	}
	return nil
}
