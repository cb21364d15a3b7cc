// internal/tui/model.go
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tamzrod/modbus-viewer/internal/formatter"
	"github.com/tamzrod/modbus-viewer/internal/poller"
	"github.com/tamzrod/modbus-viewer/internal/status"
)

// Poller is the slice of *poller.Poller the dashboard drives.
type Poller interface {
	Start(ctx context.Context, cfg poller.ConnectionConfig) error
	Stop()
	Running() bool
	Snapshot() poller.Snapshot
}

// SnapshotMsg carries a poller snapshot into the event loop.
type SnapshotMsg poller.Snapshot

type startedMsg struct{ err error }

const (
	fieldHost = iota
	fieldPort
	fieldToken
	fieldCount
)

// --- MODEL ---
type Model struct {
	ctx    context.Context
	p      Poller
	inputs []textinput.Model
	focus  int
	snap   poller.Snapshot
	busy   bool
}

// NewModel builds the dashboard with inputs pre-filled from initial.
func NewModel(ctx context.Context, p Poller, initial poller.ConnectionConfig) Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		inputs[i] = ti
	}

	inputs[fieldHost].Placeholder = "127.0.0.1"
	inputs[fieldHost].Width = 24
	inputs[fieldHost].SetValue(initial.Host)

	inputs[fieldPort].Placeholder = "8000"
	inputs[fieldPort].Width = 6
	inputs[fieldPort].CharLimit = 5
	inputs[fieldPort].SetValue(initial.Port)

	inputs[fieldToken].Placeholder = "token"
	inputs[fieldToken].Width = 24
	inputs[fieldToken].EchoMode = textinput.EchoPassword
	inputs[fieldToken].EchoCharacter = '•'
	inputs[fieldToken].SetValue(initial.Token)

	inputs[fieldHost].Focus()

	return Model{
		ctx:    ctx,
		p:      p,
		inputs: inputs,
		snap:   p.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Connection returns the parameters currently entered.
func (m Model) Connection() poller.ConnectionConfig {
	return poller.ConnectionConfig{
		Host:  strings.TrimSpace(m.inputs[fieldHost].Value()),
		Port:  strings.TrimSpace(m.inputs[fieldPort].Value()),
		Token: strings.TrimSpace(m.inputs[fieldToken].Value()),
	}
}

// --- UPDATE ---
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.busy {
				return m, nil
			}
			m.busy = true
			return m, m.fetch(m.Connection())
		case "ctrl+x":
			return m, m.stop()
		case "tab", "down":
			return m, m.setFocus((m.focus + 1) % fieldCount)
		case "shift+tab", "up":
			return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		}

	case SnapshotMsg:
		m.snap = poller.Snapshot(msg)
		return m, nil

	case startedMsg:
		m.busy = false
		// the outcome itself arrives as a SnapshotMsg; this only catches up if none did
		m.snap = m.p.Snapshot()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[m.focus].Focus()
}

// fetch restarts polling when the entered parameters differ from the running timer's.
func (m Model) fetch(cfg poller.ConnectionConfig) tea.Cmd {
	ctx, p := m.ctx, m.p
	return func() tea.Msg {
		if p.Running() && p.Snapshot().Config != cfg {
			p.Stop()
		}
		return startedMsg{err: p.Start(ctx, cfg)}
	}
}

func (m Model) stop() tea.Cmd {
	p := m.p
	return func() tea.Msg {
		p.Stop()
		return SnapshotMsg(p.Snapshot())
	}
}

// --- VIEW ---
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Modbus Viewer") + "\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Render("Host"), m.inputs[fieldHost].View(), "  ",
		labelStyle.Render("Port"), m.inputs[fieldPort].View(), "  ",
		labelStyle.Render("Token"), m.inputs[fieldToken].View(),
	) + "\n")
	b.WriteString(helpStyle.Render("enter fetch • tab next field • ctrl+x stop • esc quit") + "\n\n")

	b.WriteString(m.renderStatus() + "\n")

	if m.snap.Err != nil {
		b.WriteString(errorStyle.Render("Error: "+m.snap.Err.Error()) + "\n")
		return b.String()
	}
	if m.snap.Payload != nil {
		b.WriteString(renderPanel(formatter.BuildPanel(*m.snap.Payload)) + "\n")
	}
	return b.String()
}

func (m Model) renderStatus() string {
	if m.busy {
		return "Fetching " + m.Connection().URL() + " ..."
	}

	s := m.snap
	switch s.State {
	case status.Polling:
		line := fmt.Sprintf("Polling %s every %s · %d fetches", s.Config.URL(), poller.DefaultInterval, s.Fetches)
		if !s.LastSuccess.IsZero() {
			line += " · last " + s.LastSuccess.Format("15:04:05")
		}
		return okStyle.Render(line)
	case status.Errored:
		return errorStyle.Render(fmt.Sprintf("Stopped after error · %d failures", s.Failures))
	default:
		if s.Payload != nil {
			return "Stopped"
		}
		return "Idle: enter connection details and press enter"
	}
}

func renderPanel(p formatter.Panel) string {
	rows := []string{
		fmt.Sprintf("User: %s   Device: %s", p.User, p.IP),
		"",
		sectionStyle.Render("Coils") + renderLEDs(p.Coils),
		sectionStyle.Render("Discrete inputs") + renderLEDs(p.DiscreteInputs),
		"",
		sectionStyle.Render("Input registers"),
		renderRegisters(p.InputRegisters),
		sectionStyle.Render("Holding registers"),
		renderRegisters(p.HoldingRegisters),
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderLEDs(leds []formatter.LED) string {
	if len(leds) == 0 {
		return helpStyle.Render("none")
	}
	parts := make([]string, len(leds))
	for i, l := range leds {
		if l.On {
			parts[i] = ledOnStyle.Render("●") + " " + l.Label
		} else {
			parts[i] = ledOffStyle.Render("○") + " " + l.Label
		}
	}
	return strings.Join(parts, "  ")
}

func renderRegisters(boxes []formatter.RegisterBox) string {
	if len(boxes) == 0 {
		return helpStyle.Render("none")
	}
	cells := make([]string, len(boxes))
	for i, r := range boxes {
		style := registerStyle
		if !r.Valid {
			style = registerBadStyle
		}
		cells[i] = style.Render(r.Label + "\n" + r.Value)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}
