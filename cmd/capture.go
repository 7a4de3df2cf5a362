// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Emberline Instruments

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"github.com/emberline/pyrostat/pkg/airheat"
)

// captureRecord is one frame observation in a capture file. Files are
// a plain concatenation of CBOR-encoded records.
type captureRecord struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	Frame     []byte    `cbor:"2,keyasint"`
	Power     bool      `cbor:"3,keyasint"`
	Target    int       `cbor:"4,keyasint"`
	Current   int       `cbor:"5,keyasint"`
	Fan       int       `cbor:"6,keyasint"`
	Fault     uint8     `cbor:"7,keyasint"`
}

var (
	captureInterval time.Duration
	captureDump     bool
)

var captureCmd = &cobra.Command{
	Use:   "capture <file>",
	Short: "Record status frames to a CBOR capture file",
	Long: `Poll the heater and append every status response to a capture file
as a stream of CBOR records, raw frame bytes included. Useful for
diagnosing a misbehaving controller offline.

Replay a file with --dump:
  pyrostat capture --dump heater.cap`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().DurationVarP(&captureInterval, "interval", "i", 5*time.Second, "Capture poll interval")
	captureCmd.Flags().BoolVar(&captureDump, "dump", false, "Print an existing capture file and exit")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	if captureDump {
		return dumpCapture(args[0])
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open capture file: %w", err)
	}
	defer f.Close()
	enc := cbor.NewEncoder(f)

	mgr, err := openSession(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer mgr.Disconnect()

	fmt.Printf("Capturing to %s every %s\n", args[0], captureInterval)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile := mgr.Profile()
	records := 0
	ticker := time.NewTicker(captureInterval)
	defer ticker.Stop()

	for {
		snap, err := mgr.Submit(ctx, airheat.NewStatusQuery(profile))
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Printf("[ERROR] %v\n", err)
		} else {
			rec := captureRecord{
				Timestamp: snap.ObservedAt,
				Frame:     airheat.EncodeStatus(profile, snap),
				Power:     snap.Power,
				Target:    snap.TargetTemperature,
				Current:   snap.CurrentTemperature,
				Fan:       snap.FanSpeed,
				Fault:     uint8(snap.Fault),
			}
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("write capture record: %w", err)
			}
			records++
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
			continue
		}
		break
	}

	fmt.Printf("\nWrote %d records to %s\n", records, args[0])
	return nil
}

func dumpCapture(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capture file: %w", err)
	}
	defer f.Close()

	dec := cbor.NewDecoder(f)
	count := 0
	for {
		var rec captureRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("record %d: %w", count+1, err)
		}
		count++
		fmt.Printf("[%s] power=%v target=%d°C current=%d°C fan=%d fault=%s\n",
			rec.Timestamp.Format(time.RFC3339),
			rec.Power, rec.Target, rec.Current, rec.Fan,
			airheat.FormatErrorCode(airheat.ErrorCode(rec.Fault)))
	}
	fmt.Printf("%d records\n", count)
	return nil
}
