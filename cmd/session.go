// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Emberline Instruments

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/emberline/pyrostat/pkg/airheat"
	"github.com/emberline/pyrostat/pkg/bleconn"
	"github.com/emberline/pyrostat/pkg/link"
)

// loadProfile returns the configured device profile, or the default
// catalog when --profile is not given.
func loadProfile() (*airheat.Profile, error) {
	if profilePath == "" {
		return airheat.DefaultProfile(), nil
	}
	return airheat.LoadProfile(profilePath)
}

// newLogger builds the CLI logger. Console encoding, debug level only
// under --verbose.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

// readPIN obtains the pairing PIN for profiles that need one:
// PYROSTAT_PIN first, interactive prompt second. Prompting is skipped
// under --no-pin and when stdin is not a terminal.
func readPIN() ([]byte, error) {
	if pin := os.Getenv("PYROSTAT_PIN"); pin != "" {
		return []byte(strings.TrimSpace(pin)), nil
	}
	if noPin || !term.IsTerminal(int(syscall.Stdin)) {
		return nil, nil
	}
	fmt.Fprint(os.Stderr, "Pairing PIN: ")
	pin, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read pin: %w", err)
	}
	return pin, nil
}

// openSession builds a ready link session to the heater named by the
// persistent flags. The caller owns teardown via Manager.Disconnect.
func openSession(ctx context.Context, log *zap.Logger) (*link.Manager, error) {
	if deviceAddress == "" {
		return nil, fmt.Errorf("no heater selected: pass --address (try 'pyrostat scan')")
	}
	profile, err := loadProfile()
	if err != nil {
		return nil, err
	}

	var secret []byte
	if profile.Auth != nil {
		secret, err = readPIN()
		if err != nil {
			return nil, err
		}
	}

	mgr := link.New(link.Config{
		Address: deviceAddress,
		Secret:  secret,
	}, profile, bleconn.New(profile.GATT), log)

	if err := mgr.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", deviceAddress, err)
	}
	return mgr, nil
}
