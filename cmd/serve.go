// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Emberline Instruments

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emberline/pyrostat/pkg/airheat"
	"github.com/emberline/pyrostat/pkg/link"
)

var (
	serveListen   string
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose heater status over WebSocket",
	Long: `Stay connected to the heater and serve its status on a WebSocket
endpoint at /ws. Each client gets the latest snapshot on connect and
a JSON message for every status change after that.

Intended for dashboards and home automation bridges that cannot speak
BLE themselves.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", ":8721", "HTTP listen address")
	serveCmd.Flags().DurationVarP(&serveInterval, "interval", "i", link.DefaultPollInterval, "Poll interval")
	rootCmd.AddCommand(serveCmd)
}

// statusMessage is the wire shape sent to WebSocket clients.
type statusMessage struct {
	Power      bool      `json:"power"`
	TargetC    int       `json:"target_c"`
	CurrentC   int       `json:"current_c"`
	FanSpeed   int       `json:"fan_speed"`
	Fault      string    `json:"fault,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
	Stale      bool      `json:"stale"`
}

func makeStatusMessage(snap airheat.StatusSnapshot, stale bool) statusMessage {
	msg := statusMessage{
		Power:      snap.Power,
		TargetC:    snap.TargetTemperature,
		CurrentC:   snap.CurrentTemperature,
		FanSpeed:   snap.FanSpeed,
		ObservedAt: snap.ObservedAt,
		Stale:      stale,
	}
	if snap.Faulted() {
		msg.Fault = airheat.FormatErrorCode(snap.Fault)
	}
	return msg
}

// statusHub fans status changes out to connected WebSocket clients.
type statusHub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	mgr     *link.Manager
}

func newStatusHub(mgr *link.Manager, log *zap.Logger) *statusHub {
	return &statusHub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*websocket.Conn]struct{}),
		mgr:      mgr,
	}
}

func (h *statusHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.log.Info("client connected", zap.String("remote", r.RemoteAddr))

	// New clients start from the cached snapshot.
	if snap, stale := h.mgr.LatestStatus(); !snap.ObservedAt.IsZero() {
		conn.WriteJSON(makeStatusMessage(snap, stale))
	}

	// Drain the client's read side so pings and closes are processed.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *statusHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
	if ok {
		h.log.Info("client disconnected")
	}
}

// broadcast sends one status change to every client, dropping clients
// whose writes fail.
func (h *statusHub) broadcast(snap airheat.StatusSnapshot) {
	payload, err := json.Marshal(makeStatusMessage(snap, false))
	if err != nil {
		h.log.Error("encode status", zap.Error(err))
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
		}
	}
}

func (h *statusHub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func runServe(cmd *cobra.Command, args []string) error {
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

	hub := newStatusHub(mgr, log)
	defer hub.closeAll()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s\n", mgr.State())
	})

	srv := &http.Server{Addr: serveListen, Handler: mux}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := link.NewPoller(mgr, serveInterval, log)
	poller.OnChange = hub.broadcast
	go poller.Run(ctx)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("serving", zap.String("listen", serveListen))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
