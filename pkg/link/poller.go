// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package link

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/emberline/pyrostat/pkg/airheat"
)

// DefaultPollInterval is the status refresh cadence.
const DefaultPollInterval = 30 * time.Second

// Poller drives periodic status refreshes over a link session and
// publishes changed snapshots to its subscriber. Ticks that land
// while an earlier refresh is still in flight are skipped rather
// than queued.
type Poller struct {
	mgr      *Manager
	interval time.Duration
	log      *zap.Logger
	busy     atomic.Bool

	// OnChange, if set, is called with each snapshot that differs
	// from the previous one. Called from the poll goroutine.
	OnChange func(airheat.StatusSnapshot)

	last    airheat.StatusSnapshot
	hasLast bool
}

// NewPoller creates a poller on the given session. A non-positive
// interval takes the default; a nil logger disables logging.
func NewPoller(mgr *Manager, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{mgr: mgr, interval: interval, log: log}
}

// Run polls until the context is cancelled. The first refresh fires
// immediately. Individual poll failures are logged and absorbed; the
// cadence is never disturbed.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Poll performs one refresh cycle by hand, outside the Run cadence.
func (p *Poller) Poll(ctx context.Context) {
	p.poll(ctx)
}

func (p *Poller) poll(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		p.log.Debug("poll tick skipped, refresh in flight")
		return
	}
	defer p.busy.Store(false)

	if p.mgr.State() != StateReady {
		if err := p.mgr.Connect(ctx); err != nil {
			if !errors.Is(err, ErrBusy) {
				p.log.Warn("poll connect failed", zap.Error(err))
			}
			return
		}
	}

	cmd := airheat.NewStatusQuery(p.mgr.Profile())
	snap, err := p.mgr.Submit(ctx, cmd)
	if err != nil {
		p.log.Warn("status poll failed", zap.Error(err))
		return
	}
	p.publish(snap)
}

// publish forwards the snapshot when it differs from the last one
// seen. Timestamps alone do not count as a change.
func (p *Poller) publish(snap airheat.StatusSnapshot) {
	if p.hasLast && snap.Equal(p.last) {
		return
	}
	p.last = snap
	p.hasLast = true
	p.log.Debug("status changed", zap.String("status", airheat.FormatStatus(snap)))
	if p.OnChange != nil {
		p.OnChange(snap)
	}
}
