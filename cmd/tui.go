// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Emberline Instruments

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emberline/pyrostat/pkg/airheat"
	"github.com/emberline/pyrostat/pkg/link"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive control panel",
	Long: `Full-screen control panel for one heater: live status, power
toggle, and target temperature / fan speed adjustment.

Keys:
  p        toggle power
  up/down  target temperature
  t        type a target temperature
  left/right  fan speed
  r        refresh now
  q        quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

//////////////////////////////////////////////////////////////
// Styles
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("166")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	onStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	offStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	faultStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	staleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type tuiTickMsg time.Time

type tuiStatusMsg struct {
	snap airheat.StatusSnapshot
}

type tuiErrMsg struct {
	err error
}

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

type tuiModel struct {
	mgr     *link.Manager
	snap    airheat.StatusSnapshot
	haveOne bool
	stale   bool
	busy    bool
	lastErr error

	// Direct temperature entry
	tempInput textinput.Model
	entering  bool
}

func initialTUIModel(mgr *link.Manager) tuiModel {
	ti := textinput.New()
	ti.Placeholder = "22"
	ti.CharLimit = 2
	ti.Width = 4

	m := tuiModel{mgr: mgr, tempInput: ti}
	if snap, stale := mgr.LatestStatus(); !snap.ObservedAt.IsZero() {
		m.snap, m.stale, m.haveOne = snap, stale, true
	}
	return m
}

func tuiTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tuiTickMsg(t)
	})
}

// submitCmd runs one command against the link off the UI goroutine.
func (m tuiModel) submitCmd(c airheat.Command) tea.Cmd {
	mgr := m.mgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		snap, err := mgr.Submit(ctx, c)
		if err != nil {
			return tuiErrMsg{err: err}
		}
		return tuiStatusMsg{snap: snap}
	}
}

func (m tuiModel) refreshCmd() tea.Cmd {
	return m.submitCmd(airheat.NewStatusQuery(m.mgr.Profile()))
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), tuiTick())
}

//////////////////////////////////////////////////////////////
// Update
//////////////////////////////////////////////////////////////

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tuiTickMsg:
		// Refresh on the poll cadence; every tick just re-renders the
		// age and link state.
		if m.haveOne && time.Since(m.snap.ObservedAt) > link.DefaultPollInterval && !m.busy {
			m.busy = true
			return m, tea.Batch(m.refreshCmd(), tuiTick())
		}
		return m, tuiTick()

	case tuiStatusMsg:
		m.snap = msg.snap
		m.haveOne = true
		m.stale = false
		m.busy = false
		m.lastErr = nil
		return m, nil

	case tuiErrMsg:
		m.busy = false
		m.lastErr = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.entering {
		return m.handleEntryKey(msg)
	}
	if m.busy {
		// One request at a time; drop keys while one is in flight.
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	}

	profile := m.mgr.Profile()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		m.busy = true
		return m, m.refreshCmd()

	case "p":
		m.busy = true
		return m, m.submitCmd(airheat.NewPowerSet(profile, !m.snap.Power))

	case "t":
		m.entering = true
		m.tempInput.SetValue("")
		m.tempInput.Focus()
		return m, textinput.Blink

	case "up", "down":
		delta := 1
		if msg.String() == "down" {
			delta = -1
		}
		cmd, err := airheat.NewTemperatureSet(profile, m.snap.TargetTemperature+delta)
		if err != nil {
			m.lastErr = err
			return m, nil
		}
		m.busy = true
		return m, m.submitCmd(cmd)

	case "left", "right":
		delta := 1
		if msg.String() == "left" {
			delta = -1
		}
		cmd, err := airheat.NewFanSpeedSet(profile, m.snap.FanSpeed+delta)
		if err != nil {
			m.lastErr = err
			return m, nil
		}
		m.busy = true
		return m, m.submitCmd(cmd)
	}
	return m, nil
}

// handleEntryKey drives the direct temperature input.
func (m tuiModel) handleEntryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.entering = false
		m.tempInput.Blur()
		return m, nil

	case "enter":
		m.entering = false
		m.tempInput.Blur()
		deg, err := strconv.Atoi(strings.TrimSpace(m.tempInput.Value()))
		if err != nil {
			m.lastErr = fmt.Errorf("temperature %q is not a number", m.tempInput.Value())
			return m, nil
		}
		cmd, err := airheat.NewTemperatureSet(m.mgr.Profile(), deg)
		if err != nil {
			m.lastErr = err
			return m, nil
		}
		m.busy = true
		return m, m.submitCmd(cmd)
	}

	var cmd tea.Cmd
	m.tempInput, cmd = m.tempInput.Update(msg)
	return m, cmd
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf(" Pyrostat — %s ", deviceAddress)))
	b.WriteString("\n\n")

	if !m.haveOne {
		body := "Waiting for first status..."
		if m.lastErr != nil {
			body = errStyle.Render(m.lastErr.Error())
		}
		b.WriteString(panelStyle.Render(body))
	} else {
		power := offStyle.Render("OFF")
		if m.snap.Power {
			power = onStyle.Render("ON")
		}

		rows := []string{
			fmt.Sprintf("%s  %s", labelStyle.Render("Power:  "), power),
			fmt.Sprintf("%s  %s", labelStyle.Render("Target: "), valueStyle.Render(fmt.Sprintf("%d°C", m.snap.TargetTemperature))),
			fmt.Sprintf("%s  %s", labelStyle.Render("Current:"), valueStyle.Render(fmt.Sprintf("%d°C", m.snap.CurrentTemperature))),
			fmt.Sprintf("%s  %s", labelStyle.Render("Fan:    "), valueStyle.Render(fanGauge(m.snap.FanSpeed))),
		}
		if m.snap.Faulted() {
			rows = append(rows, fmt.Sprintf("%s  %s", labelStyle.Render("Fault:  "), faultStyle.Render(airheat.FormatErrorCode(m.snap.Fault))))
		}

		age := time.Since(m.snap.ObservedAt).Round(time.Second)
		footer := labelStyle.Render(fmt.Sprintf("link %s · updated %s ago", m.mgr.State(), age))
		if m.stale || m.mgr.State() != link.StateReady {
			footer = staleStyle.Render(fmt.Sprintf("link %s · STALE, last seen %s ago", m.mgr.State(), age))
		}
		if m.busy {
			footer += labelStyle.Render("  …")
		}
		if m.entering {
			rows = append(rows, "", labelStyle.Render("New target °C: ")+m.tempInput.View())
		}
		rows = append(rows, "", footer)

		b.WriteString(panelStyle.Render(strings.Join(rows, "\n")))
	}

	if m.lastErr != nil && m.haveOne {
		b.WriteString("\n")
		b.WriteString(errStyle.Render("error: " + m.lastErr.Error()))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("p power · ↑/↓ temp · t set temp · ←/→ fan · r refresh · q quit"))
	b.WriteString("\n")
	return b.String()
}

// fanGauge renders the fan level against the default range.
func fanGauge(level int) string {
	var g strings.Builder
	for i := airheat.MinFanSpeed; i <= airheat.MaxFanSpeed; i++ {
		if i <= level {
			g.WriteString("█")
		} else {
			g.WriteString("░")
		}
	}
	return fmt.Sprintf("%s %d", g.String(), level)
}

//////////////////////////////////////////////////////////////
// Entry point
//////////////////////////////////////////////////////////////

func runTUI(cmd *cobra.Command, args []string) error {
	// Logging would fight the alternate screen for the terminal.
	mgr, err := openSession(cmd.Context(), zap.NewNop())
	if err != nil {
		return err
	}
	defer mgr.Disconnect()

	p := tea.NewProgram(initialTUIModel(mgr), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
