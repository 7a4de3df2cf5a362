// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Emberline Instruments

package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/emberline/pyrostat/pkg/airheat"
)

// State is the link session state.
type State int

// Session states. Idle and Failed are the only states with no pending
// transport operation.
const (
	StateIdle State = iota
	StateConnecting
	StateAuthenticating
	StateReady
	StateReconnecting
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds the session parameters. Zero values take the defaults
// below.
type Config struct {
	// Address is the device address the session is bound to.
	Address string

	// Secret is the shared secret for profiles with an auth exchange.
	Secret []byte

	ConnectTimeout  time.Duration // per connect attempt, default 10s
	ResponseTimeout time.Duration // per request, default 5s

	// RetryCeiling bounds consecutive failed connect attempts before
	// the session goes Failed. Default 3.
	RetryCeiling int

	BackoffInitial time.Duration // first reconnect delay, default 1s
	BackoffMax     time.Duration // backoff cap, default 30s

	// StaleAfter is the snapshot age beyond which LatestStatus
	// reports stale. Tie it to the poll cadence; default 60s.
	StaleAfter time.Duration

	// LivenessDeadline is the notification silence after which a
	// Ready link is treated as lost. Default 90s.
	LivenessDeadline time.Duration
}

func (c *Config) applyDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = 5 * time.Second
	}
	if c.RetryCeiling <= 0 {
		c.RetryCeiling = 3
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 60 * time.Second
	}
	if c.LivenessDeadline <= 0 {
		c.LivenessDeadline = 90 * time.Second
	}
}

// result resolves one in-flight request.
type result struct {
	snapshot airheat.StatusSnapshot
	err      error
}

// pendingRequest is the single-slot pending exchange. The generation
// counter lets a timed-out request be cancelled without a late frame
// resolving the wrong caller.
type pendingRequest struct {
	gen uint64
	ch  chan result
}

// Manager is the link state machine for one heater. It is the sole
// owner of the transport and the cached snapshot; all mutation is
// serialized behind one mutex. At most one request is in flight at a
// time.
type Manager struct {
	cfg       Config
	profile   *airheat.Profile
	transport Transport
	log       *zap.Logger
	stats     *airheat.Statistics

	mu          sync.Mutex
	state       State
	retries     int
	lastErr     error
	snapshot    airheat.StatusSnapshot
	hasSnapshot bool
	lastFrame   time.Time
	decoder     *airheat.Decoder
	pending     *pendingRequest
	gen         uint64
	watchGen    uint64        // bumps per Ready period, retires old watchdogs
	laddering   bool          // a connect ladder is running
	stop        chan struct{} // closed on teardown, re-armed by Disconnect
}

// New creates a link manager. A nil logger disables logging.
func New(cfg Config, profile *airheat.Profile, transport Transport, log *zap.Logger) *Manager {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		profile:   profile,
		transport: transport,
		log:       log.With(zap.String("address", cfg.Address)),
		stats:     airheat.NewStatistics(),
		decoder:   airheat.NewDecoder(profile),
		stop:      make(chan struct{}),
	}
}

// Profile returns the device profile the session speaks.
func (m *Manager) Profile() *airheat.Profile {
	return m.profile
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent link failure, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Stats returns the session's frame statistics tracker.
func (m *Manager) Stats() *airheat.Statistics {
	return m.stats
}

// Connect brings the session to Ready, walking the retry ladder with
// exponential backoff. It returns nil once Ready, ErrRetryLimit once
// the ceiling is exceeded, or ErrBusy if a connect is already in
// progress. Calling Connect on a Failed session re-arms it.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateReady:
		m.mu.Unlock()
		return nil
	case StateConnecting, StateAuthenticating, StateReconnecting:
		m.mu.Unlock()
		return ErrBusy
	}
	if m.laddering {
		// A background ladder already owns the transport.
		m.mu.Unlock()
		return ErrBusy
	}
	m.retries = 0
	m.laddering = true
	m.state = StateConnecting
	stop := m.stop
	m.mu.Unlock()

	err := m.ladder(ctx, stop)

	m.mu.Lock()
	m.laddering = false
	m.mu.Unlock()
	return err
}

// tornDown reports whether the session's stop channel is closed.
// Callers hold m.mu so the check is atomic with the state write it
// guards.
func tornDown(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

// transition writes s unless the session was torn down. A torn-down
// session keeps the Idle state Disconnect left behind.
func (m *Manager) transition(stop <-chan struct{}, s State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tornDown(stop) {
		return false
	}
	m.state = s
	return true
}

var errTornDown = fmt.Errorf("%w: session torn down", ErrNotConnected)

// ladder runs connect attempts until Ready, teardown, or the retry
// ceiling. Backoff doubles per failure up to the cap. Every state
// write re-checks stop first: Disconnect during an attempt must leave
// the session Idle, not parked in a transient state.
func (m *Manager) ladder(ctx context.Context, stop <-chan struct{}) error {
	backoff := m.cfg.BackoffInitial
	for {
		if !m.transition(stop, StateConnecting) {
			return errTornDown
		}
		err := m.attempt(ctx, stop)
		if err == nil {
			if !m.toReady(stop) {
				m.transport.Close()
				return errTornDown
			}
			return nil
		}
		if errors.Is(err, ErrAuthFailed) {
			m.mu.Lock()
			if !tornDown(stop) {
				m.state = StateFailed
				m.lastErr = err
			}
			m.mu.Unlock()
			m.log.Error("authentication failed", zap.Error(err))
			return err
		}

		m.mu.Lock()
		if tornDown(stop) {
			m.mu.Unlock()
			return errTornDown
		}
		m.retries++
		m.lastErr = err
		attempt := m.retries
		if attempt >= m.cfg.RetryCeiling {
			m.state = StateFailed
			m.lastErr = fmt.Errorf("%w after %d attempts: %v", ErrRetryLimit, attempt, err)
			final := m.lastErr
			m.mu.Unlock()
			m.log.Error("giving up", zap.Int("attempts", attempt), zap.Error(err))
			return final
		}
		m.state = StateReconnecting
		m.mu.Unlock()
		m.log.Warn("connect attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			m.transition(stop, StateIdle)
			return ctx.Err()
		case <-stop:
			return errTornDown
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > m.cfg.BackoffMax {
			backoff = m.cfg.BackoffMax
		}
	}
}

// attempt performs one connect plus the optional auth exchange.
func (m *Manager) attempt(ctx context.Context, stop <-chan struct{}) error {
	cctx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	if err := m.transport.Connect(cctx, m.cfg.Address, m.handleNotification, m.handleDisconnect); err != nil {
		return &TransportError{Op: "connect", Err: err}
	}

	m.mu.Lock()
	if tornDown(stop) {
		m.mu.Unlock()
		m.transport.Close()
		return errTornDown
	}
	m.state = StateAuthenticating
	m.decoder.Reset()
	m.lastFrame = time.Now()
	m.mu.Unlock()

	if m.profile.Auth != nil {
		if err := m.authenticate(ctx); err != nil {
			m.transport.Close()
			return err
		}
	}
	return nil
}

// authenticate sends the shared secret and waits for the heater's
// acknowledging status frame. A timeout here is retryable; a missing
// secret is not.
func (m *Manager) authenticate(ctx context.Context) error {
	if len(m.cfg.Secret) == 0 {
		return fmt.Errorf("%w: profile %q requires a secret and none is configured", ErrAuthFailed, m.profile.Name)
	}
	cmd, err := airheat.NewAuthCommand(m.profile, m.cfg.Secret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if _, err := m.exchange(ctx, cmd); err != nil {
		return fmt.Errorf("auth exchange: %w", err)
	}
	return nil
}

// Submit sends a command and waits for the heater's status echo.
// Only a Ready session accepts commands; anything else fails fast
// with ErrNotConnected. A second Submit while one is outstanding
// fails with ErrBusy.
func (m *Manager) Submit(ctx context.Context, cmd airheat.Command) (airheat.StatusSnapshot, error) {
	m.mu.Lock()
	if m.state != StateReady {
		st := m.state
		m.mu.Unlock()
		return airheat.StatusSnapshot{}, fmt.Errorf("%w: session is %s", ErrNotConnected, st)
	}
	m.mu.Unlock()

	m.log.Debug("submitting", zap.String("command", airheat.FormatCommand(cmd)))
	return m.exchange(ctx, cmd)
}

// exchange performs one write-and-await-response cycle through the
// single pending slot.
func (m *Manager) exchange(ctx context.Context, cmd airheat.Command) (airheat.StatusSnapshot, error) {
	m.mu.Lock()
	if m.pending != nil {
		m.mu.Unlock()
		return airheat.StatusSnapshot{}, fmt.Errorf("%w: %s outstanding", ErrBusy, airheat.FormatCommand(cmd))
	}
	m.gen++
	pr := &pendingRequest{gen: m.gen, ch: make(chan result, 1)}
	m.pending = pr
	m.mu.Unlock()

	wctx, cancel := context.WithTimeout(ctx, m.cfg.ResponseTimeout)
	defer cancel()

	if err := m.transport.Write(wctx, airheat.EncodeCommand(m.profile, cmd)); err != nil {
		m.clearPending(pr.gen)
		werr := &TransportError{Op: "write", Err: err}
		m.linkLost(werr)
		return airheat.StatusSnapshot{}, werr
	}

	timer := time.NewTimer(m.cfg.ResponseTimeout)
	defer timer.Stop()

	select {
	case res := <-pr.ch:
		return res.snapshot, res.err
	case <-timer.C:
		// Cancelled locally. The link is only torn down if the
		// transport itself reports it broken.
		m.clearPending(pr.gen)
		return airheat.StatusSnapshot{}, fmt.Errorf("%w: no response to %s", ErrTimeout, cmd.Name())
	case <-ctx.Done():
		m.clearPending(pr.gen)
		return airheat.StatusSnapshot{}, ctx.Err()
	}
}

// clearPending removes the pending slot if it still belongs to the
// given generation.
func (m *Manager) clearPending(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil && m.pending.gen == gen {
		m.pending = nil
	}
}

// LatestStatus returns the cached snapshot and a staleness flag. It
// never blocks. The flag is true when the snapshot's age exceeds the
// configured threshold or the session is not Ready; the snapshot
// itself is retained across transient disconnects and terminal
// failures.
func (m *Manager) LatestStatus() (airheat.StatusSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSnapshot {
		return airheat.StatusSnapshot{}, true
	}
	stale := time.Since(m.snapshot.ObservedAt) > m.cfg.StaleAfter || m.state != StateReady
	return m.snapshot, stale
}

// Disconnect tears the session down from any state: the transport is
// released, the retry count cleared, and the snapshot retained but
// reported stale. A torn-down session is re-armed by Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return
	}
	m.state = StateIdle
	m.retries = 0
	pr := m.pending
	m.pending = nil
	close(m.stop)
	m.stop = make(chan struct{})
	m.mu.Unlock()

	if pr != nil {
		pr.ch <- result{err: ErrNotConnected}
	}
	m.transport.Close()
	m.log.Info("session closed")
}

// handleNotification is the transport's data callback. Frames are
// processed in arrival order; a decode failure on one frame never
// stalls the frames behind it, and a corrupted frame never updates
// the cache.
func (m *Manager) handleNotification(data []byte) {
	m.mu.Lock()
	frames, errs := m.decoder.Feed(data)
	m.mu.Unlock()

	for _, err := range errs {
		m.stats.RecordError(err)
		m.log.Warn("frame decode failed", zap.Error(err))
	}

	for _, f := range frames {
		snap, err := airheat.DecodeStatus(m.profile, f)
		if err != nil {
			m.stats.RecordError(err)
			m.log.Warn("status decode failed", zap.Error(err))
			continue
		}
		m.stats.RecordFrame()

		m.mu.Lock()
		m.snapshot = snap
		m.hasSnapshot = true
		m.lastFrame = time.Now()
		pr := m.pending
		m.pending = nil
		m.mu.Unlock()

		if pr != nil {
			pr.ch <- result{snapshot: snap}
		}
	}
}

// handleDisconnect is the transport's link-loss callback.
func (m *Manager) handleDisconnect(err error) {
	m.linkLost(&TransportError{Op: "link", Err: err})
}

// linkLost fails the in-flight request and starts a background
// reconnect ladder, unless one is already running or the session is
// already settled.
func (m *Manager) linkLost(err error) {
	m.mu.Lock()
	if m.state == StateIdle || m.state == StateFailed {
		m.mu.Unlock()
		return
	}
	pr := m.pending
	m.pending = nil
	m.lastErr = err
	already := m.laddering
	if !already {
		m.state = StateReconnecting
		m.laddering = true
	}
	stop := m.stop
	m.mu.Unlock()

	if pr != nil {
		pr.ch <- result{err: err}
	}
	if already {
		return
	}

	m.log.Warn("link lost, reconnecting", zap.Error(err))
	go func() {
		m.transport.Close()
		m.ladder(context.Background(), stop)
		m.mu.Lock()
		m.laddering = false
		m.mu.Unlock()
	}()
}

// toReady finalizes a successful connect and arms the liveness
// watchdog, unless the session was torn down mid-attempt.
func (m *Manager) toReady(stop <-chan struct{}) bool {
	m.mu.Lock()
	if tornDown(stop) {
		m.mu.Unlock()
		return false
	}
	m.state = StateReady
	m.retries = 0
	m.lastErr = nil
	m.lastFrame = time.Now()
	m.watchGen++
	gen := m.watchGen
	m.mu.Unlock()

	m.log.Info("link ready")
	go m.watchdog(stop, gen)
	return true
}

// watchdog treats notification silence beyond the liveness deadline
// as link loss. It exits as soon as the session leaves Ready or a
// newer Ready period supersedes it.
func (m *Manager) watchdog(stop <-chan struct{}, gen uint64) {
	interval := m.cfg.LivenessDeadline / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		if m.state != StateReady || m.watchGen != gen {
			m.mu.Unlock()
			return
		}
		silence := time.Since(m.lastFrame)
		m.mu.Unlock()

		if silence > m.cfg.LivenessDeadline {
			m.linkLost(&TransportError{Op: "liveness", Err: fmt.Errorf("no notifications for %s", silence.Round(time.Second))})
			return
		}
	}
}
