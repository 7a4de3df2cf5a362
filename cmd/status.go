// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Emberline Instruments

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emberline/pyrostat/pkg/airheat"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the heater's current status",
	Long: `Connect to the heater, issue one status query, print the decoded
snapshot, and disconnect.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	mgr, err := openSession(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer mgr.Disconnect()

	snap, err := mgr.Submit(cmd.Context(), airheat.NewStatusQuery(mgr.Profile()))
	if err != nil {
		return fmt.Errorf("status query: %w", err)
	}

	fmt.Println(airheat.FormatStatus(snap))
	if snap.Faulted() {
		fmt.Printf("Fault: %s\n", airheat.FormatErrorCode(snap.Fault))
	}
	return nil
}
