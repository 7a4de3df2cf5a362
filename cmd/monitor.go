// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Emberline Instruments

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emberline/pyrostat/pkg/airheat"
	"github.com/emberline/pyrostat/pkg/link"
)

var monitorInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll the heater and print status changes",
	Long: `Stay connected and poll the heater on a fixed cadence, printing a
line whenever the reported status differs from the previous poll.
Unchanged polls are silent. Press Ctrl+C to exit.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVarP(&monitorInterval, "interval", "i", link.DefaultPollInterval, "Poll interval")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Monitoring %s every %s\n", deviceAddress, monitorInterval)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := link.NewPoller(mgr, monitorInterval, log)
	poller.OnChange = func(snap airheat.StatusSnapshot) {
		fmt.Printf("[%s] %s\n", snap.ObservedAt.Format("15:04:05"), airheat.FormatStatus(snap))
		if snap.Faulted() {
			log.Warn("heater fault reported", zap.String("fault", airheat.FormatErrorCode(snap.Fault)))
		}
	}
	poller.Run(ctx)

	fmt.Printf("\n%s", mgr.Stats())
	return nil
}
