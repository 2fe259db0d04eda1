package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/bnema/wlseat/internal/ipc"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	status   *ipc.Status
	err      error
	released int
}

func (f *fakeSource) Status() (*ipc.Status, error) {
	if f.err != nil {
		return nil, f.err
	}
	st := *f.status
	return &st, nil
}

func (f *fakeSource) SetBlocked(blocked bool) (*ipc.Status, error) {
	f.status.Blocked = blocked
	return f.Status()
}

func (f *fakeSource) SetFocusPolicy(policy string) (*ipc.Status, error) {
	f.status.FocusPolicy = policy
	return f.Status()
}

func (f *fakeSource) Release() (*ipc.Status, error) {
	f.released++
	f.status.Keys = nil
	return f.Status()
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// deliver runs cmd and feeds the resulting message back into m
func deliver(t *testing.T, m *WatchModel, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)
	_, next := m.Update(cmd())
	return next
}

func TestWatchModelStatus(t *testing.T) {
	src := &fakeSource{status: testStatus()}
	m := NewWatchModel(src, time.Millisecond)

	assert.Contains(t, m.View(), "waiting for status")

	next := deliver(t, m, m.fetch(src.Status))
	assert.NotNil(t, next, "a refresh tick is scheduled")
	require.NotNil(t, m.Status())
	assert.Equal(t, "seat0", m.Status().Seat)
	assert.Contains(t, m.View(), "seat0")
	assert.Contains(t, m.View(), "quit")
}

func TestWatchModelErrorKeepsLastStatus(t *testing.T) {
	src := &fakeSource{status: testStatus()}
	m := NewWatchModel(src, time.Millisecond)
	deliver(t, m, m.fetch(src.Status))

	m.Update(StatusMsg{Err: ipc.ErrDaemonNotRunning})
	assert.ErrorIs(t, m.Err(), ipc.ErrDaemonNotRunning)
	assert.Equal(t, "seat0", m.Status().Seat)
	assert.Contains(t, m.View(), "stale")

	m.Update(StatusMsg{Status: testStatus()})
	assert.NoError(t, m.Err())
}

func TestWatchModelErrorBeforeStatus(t *testing.T) {
	m := NewWatchModel(&fakeSource{err: errors.New("boom")}, 0)
	m.Update(StatusMsg{Err: errors.New("boom")})
	assert.Contains(t, m.View(), "boom")
	assert.Equal(t, 100*time.Millisecond, m.interval)
}

func TestWatchModelKeys(t *testing.T) {
	src := &fakeSource{status: testStatus()}
	m := NewWatchModel(src, time.Millisecond)

	// Toggles need a status first
	_, cmd := m.Update(runes("b"))
	assert.Nil(t, cmd)

	deliver(t, m, m.fetch(src.Status))

	_, cmd = m.Update(runes("b"))
	deliver(t, m, cmd)
	assert.True(t, src.status.Blocked)
	assert.True(t, m.Status().Blocked)

	_, cmd = m.Update(runes("p"))
	deliver(t, m, cmd)
	assert.Equal(t, "retain", m.Status().FocusPolicy)

	_, cmd = m.Update(runes("p"))
	deliver(t, m, cmd)
	assert.Equal(t, "clear", m.Status().FocusPolicy)

	_, cmd = m.Update(runes("r"))
	deliver(t, m, cmd)
	assert.Equal(t, 1, src.released)
	assert.Empty(t, m.Status().Keys)

	_, cmd = m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestWatchModelWindowSize(t *testing.T) {
	m := NewWatchModel(&fakeSource{status: testStatus()}, time.Millisecond)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, 100, m.width)
	assert.Equal(t, 100, m.help.Width)
}
