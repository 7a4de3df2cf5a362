// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Emberline Instruments

package cmd

import (
	"errors"
	"fmt"
	"testing"
)

// ============================================================
// Exit Code Mapping Tests
// ============================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "success",
			err:  nil,
			want: 0,
		},
		{
			name: "plain error",
			err:  errors.New("flag parse failure"),
			want: 1,
		},
		{
			name: "connection failure",
			err:  &pingError{code: 2, err: errors.New("device out of range")},
			want: 2,
		},
		{
			name: "protocol failure",
			err:  &pingError{code: 1, err: errors.New("no response")},
			want: 1,
		},
		{
			name: "wrapped connection failure",
			err:  fmt.Errorf("ping: %w", &pingError{code: 2, err: errors.New("adapter off")}),
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPingError_Unwrap(t *testing.T) {
	base := errors.New("gatt write rejected")
	err := &pingError{code: 1, err: base}
	if !errors.Is(err, base) {
		t.Error("pingError should unwrap to its cause")
	}
	if err.Error() != base.Error() {
		t.Errorf("pingError message %q should match its cause %q", err.Error(), base.Error())
	}
}
