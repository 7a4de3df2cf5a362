// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Emberline Instruments

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/emberline/pyrostat/pkg/airheat"
)

var pingTimeout time.Duration

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test connectivity by waiting for one valid status frame",
	Long: `Connect to the heater, send one status query, and wait for a valid
status response.

Exit codes:
  0 - Valid status frame received
  1 - Timeout or protocol error
  2 - Connection error

Useful for scripting and for checking that an address/profile pair
actually talks before setting up monitoring.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPing,
}

func init() {
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 10*time.Second, "How long to wait for a response")
	rootCmd.AddCommand(pingCmd)
}

// pingError carries the scriptable exit code for a failed ping. It is
// returned up through Execute so deferred teardown still runs; the
// process exit itself happens in main via ExitCode.
type pingError struct {
	code int
	err  error
}

func (e *pingError) Error() string { return e.err.Error() }
func (e *pingError) Unwrap() error { return e.err }

// ExitCode maps an Execute error to the process exit code: 0 on nil,
// the carried code for failures that declare one, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var pe *pingError
	if errors.As(err, &pe) {
		return pe.code
	}
	return 1
}

func runPing(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	start := time.Now()
	mgr, err := openSession(cmd.Context(), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		return &pingError{code: 2, err: err}
	}
	defer mgr.Disconnect()

	ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
	defer cancel()

	snap, err := mgr.Submit(ctx, airheat.NewStatusQuery(mgr.Profile()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
		stats := mgr.Stats().Snapshot()
		if stats.ChecksumErrors > 0 || stats.MalformedFrames > 0 {
			fmt.Fprintf(os.Stderr, "(saw %d corrupt and %d malformed frames)\n",
				stats.ChecksumErrors, stats.MalformedFrames)
		}
		return &pingError{code: 1, err: err}
	}

	fmt.Printf("SUCCESS: valid status in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  %s\n", airheat.FormatStatus(snap))
	return nil
}
