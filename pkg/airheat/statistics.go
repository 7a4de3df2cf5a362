// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package airheat

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Statistics tracks frame and error counts for one link session.
// Safe for concurrent use: the notification path records while the
// monitor and TUI read.
type Statistics struct {
	mu sync.Mutex

	StartTime time.Time

	TotalFrames     uint64
	ValidFrames     uint64
	ChecksumErrors  uint64
	MalformedFrames uint64
	UnexpectedTypes uint64
}

// NewStatistics creates a statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// RecordFrame counts one completed, checksum-valid frame.
func (s *Statistics) RecordFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalFrames++
	s.ValidFrames++
}

// RecordError counts one decode failure by taxonomy.
func (s *Statistics) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalFrames++
	switch {
	case errors.Is(err, ErrChecksumInvalid):
		s.ChecksumErrors++
	case errors.Is(err, ErrUnexpectedType):
		s.UnexpectedTypes++
	default:
		s.MalformedFrames++
	}
}

// Snapshot returns a copy of the counters for display.
func (s *Statistics) Snapshot() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Statistics{
		StartTime:       s.StartTime,
		TotalFrames:     s.TotalFrames,
		ValidFrames:     s.ValidFrames,
		ChecksumErrors:  s.ChecksumErrors,
		MalformedFrames: s.MalformedFrames,
		UnexpectedTypes: s.UnexpectedTypes,
	}
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	snap := s.Snapshot()
	elapsed := time.Since(snap.StartTime)

	var validPercent float64
	if snap.TotalFrames > 0 {
		validPercent = float64(snap.ValidFrames) * 100.0 / float64(snap.TotalFrames)
	}

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", snap.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", snap.ValidFrames, validPercent)
	if snap.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", snap.ChecksumErrors)
	}
	if snap.MalformedFrames > 0 {
		result += fmt.Sprintf("Malformed:       %8d\n", snap.MalformedFrames)
	}
	if snap.UnexpectedTypes > 0 {
		result += fmt.Sprintf("Unexpected Type: %8d\n", snap.UnexpectedTypes)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", float64(snap.TotalFrames)/secs)
	}
	result += "================================\n"
	return result
}

// Reset zeroes all counters and restarts the clock.
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartTime = time.Now()
	s.TotalFrames = 0
	s.ValidFrames = 0
	s.ChecksumErrors = 0
	s.MalformedFrames = 0
	s.UnexpectedTypes = 0
}
