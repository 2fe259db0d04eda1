package wayland

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bnema/wlseat/internal/input"
	xdg_shell "github.com/rajveermalviya/go-wayland/wayland/stable/xdg-shell"
	"github.com/stretchr/testify/assert"
)

func packUint32(vals ...uint32) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		out = binary.NativeEndian.AppendUint32(out, v)
	}
	return out
}

func TestDecodeKeys(t *testing.T) {
	assert.Equal(t, []uint32{30, 42, 0x2ff}, decodeKeys(packUint32(30, 42, 0x2ff)))
	assert.Empty(t, decodeKeys(nil))
	assert.Equal(t, []uint32{1}, decodeKeys(append(packUint32(1), 0xff, 0xff)), "trailing partial element ignored")
}

func TestToplevelFlags(t *testing.T) {
	states := packUint32(
		uint32(xdg_shell.ToplevelStateMaximized),
		uint32(xdg_shell.ToplevelStateActivated),
		uint32(xdg_shell.ToplevelStateResizing),
	)
	assert.Equal(t, ConfigureMaximized|ConfigureActivated, toplevelFlags(states))
	assert.Zero(t, toplevelFlags(nil))
	assert.Equal(t, ConfigureFullscreen, toplevelFlags(packUint32(uint32(xdg_shell.ToplevelStateFullscreen))))
}

func TestFill(t *testing.T) {
	data := make([]byte, 8)
	fill(data, 0xff112233)
	assert.Equal(t, []byte{0x33, 0x22, 0x11, 0xff, 0x33, 0x22, 0x11, 0xff}, data)
}

func TestClient_NotConnected(t *testing.T) {
	ctx := NewContext(input.ClearKeysOnFocusLoss)
	c := NewClient(ctx, NewListeners(ctx, nil, nil), Options{})

	assert.True(t, errors.Is(c.Run(context.Background()), ErrNotConnected))
	assert.True(t, errors.Is(c.Roundtrip(), ErrNotConnected))
	assert.False(t, c.HasSeat())
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestNewClient_Defaults(t *testing.T) {
	ctx := NewContext(input.ClearKeysOnFocusLoss)
	c := NewClient(ctx, NewListeners(ctx, nil, nil), Options{Probe: true})

	assert.Equal(t, "wlseat", c.opts.Title)
	assert.Equal(t, "wlseat", c.opts.AppID)
	assert.Equal(t, int32(320), c.opts.Width)
	assert.Equal(t, int32(240), c.opts.Height)
}
