package ui

import (
	"fmt"
	"time"

	"github.com/bnema/wlseat/internal/ipc"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// StatusMsg carries a freshly fetched status
type StatusMsg struct {
	Status *ipc.Status
	Err    error
}

type tickMsg time.Time

type watchKeys struct {
	Block   key.Binding
	Policy  key.Binding
	Release key.Binding
	Quit    key.Binding
}

func (k watchKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Block, k.Policy, k.Release, k.Quit}
}

func (k watchKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultWatchKeys() watchKeys {
	return watchKeys{
		Block: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "block keys"),
		),
		Policy: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "focus policy"),
		),
		Release: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "release input"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// WatchModel polls a status source and renders it. The source is either the
// local session or a daemon reached over the control socket.
type WatchModel struct {
	src      ipc.Handler
	interval time.Duration

	spinner spinner.Model
	help    help.Model
	keys    watchKeys

	status  *ipc.Status
	err     error
	updated time.Time
	width   int
}

// NewWatchModel creates a model refreshing every interval
func NewWatchModel(src ipc.Handler, interval time.Duration) *WatchModel {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &WatchModel{
		src:      src,
		interval: interval,
		spinner:  s,
		help:     help.New(),
		keys:     defaultWatchKeys(),
	}
}

// Status returns the last status received
func (m *WatchModel) Status() *ipc.Status {
	return m.status
}

// Err returns the last fetch error
func (m *WatchModel) Err() error {
	return m.err
}

func (m *WatchModel) fetch(fn func() (*ipc.Status, error)) tea.Cmd {
	return func() tea.Msg {
		st, err := fn()
		return StatusMsg{Status: st, Err: err}
	}
}

func (m *WatchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model
func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(m.src.Status))
}

// Update implements tea.Model
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Block):
			if m.status == nil {
				return m, nil
			}
			blocked := !m.status.Blocked
			return m, m.fetch(func() (*ipc.Status, error) { return m.src.SetBlocked(blocked) })
		case key.Matches(msg, m.keys.Policy):
			if m.status == nil {
				return m, nil
			}
			policy := "retain"
			if m.status.FocusPolicy == "retain" {
				policy = "clear"
			}
			return m, m.fetch(func() (*ipc.Status, error) { return m.src.SetFocusPolicy(policy) })
		case key.Matches(msg, m.keys.Release):
			return m, m.fetch(m.src.Release)
		}

	case StatusMsg:
		if msg.Err != nil {
			m.err = msg.Err
		} else {
			m.err = nil
			m.status = msg.Status
			m.updated = time.Now()
		}
		return m, m.tick()

	case tickMsg:
		return m, m.fetch(m.src.Status)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m *WatchModel) View() string {
	if m.status == nil {
		if m.err != nil {
			return m.spinner.View() + " " + ErrorStyle.Render(m.err.Error()) + "\n"
		}
		return m.spinner.View() + " " + SubtleStyle.Render("waiting for status") + "\n"
	}

	view := RenderStatus(m.status, m.width)
	if m.err != nil {
		view += "\n\n" + m.spinner.View() + " " + ErrorStyle.Render(fmt.Sprintf("stale: %v", m.err))
	}
	return view + "\n\n" + m.help.View(m.keys) + "\n"
}
