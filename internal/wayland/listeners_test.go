package wayland

import (
	"testing"

	"github.com/bnema/wlseat/internal/input"
	evdev "github.com/gvalkov/golang-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
}

func (r *recorder) Record(e Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func newTestListeners(policy input.FocusPolicy) (*Context, *Listeners, *recorder) {
	ctx := NewContext(policy)
	rec := &recorder{}
	return ctx, NewListeners(ctx, nil, rec), rec
}

func TestKeyboardListener_KeyState(t *testing.T) {
	ctx, l, rec := newTestListeners(input.ClearKeysOnFocusLoss)

	l.Keyboard.Enter(1, []uint32{evdev.KEY_LEFTCTRL})
	l.Keyboard.Key(2, 100, evdev.KEY_A, KeyStatePressed)

	assert.True(t, ctx.KeyPressed(evdev.KEY_LEFTCTRL), "keys held at enter are pressed")
	assert.True(t, ctx.KeyPressed(evdev.KEY_A))

	l.Keyboard.Key(3, 101, evdev.KEY_A, KeyStateReleased)
	assert.False(t, ctx.KeyPressed(evdev.KEY_A))

	// Out of range codes from the compositor are ignored.
	l.Keyboard.Key(4, 102, input.KeyMax+1, KeyStatePressed)
	snap := ctx.Snapshot()
	assert.Equal(t, []uint32{evdev.KEY_LEFTCTRL}, snap.Input.Keys.Pressed())

	require.Len(t, rec.events, 4)
	assert.Equal(t, "KEY_A", rec.events[1].Name)
	assert.Equal(t, uint64(4), snap.Events)
}

func TestKeyboardListener_FocusPolicy(t *testing.T) {
	t.Run("clear", func(t *testing.T) {
		ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)
		l.Keyboard.Enter(1, nil)
		l.Keyboard.Key(2, 0, evdev.KEY_W, KeyStatePressed)
		l.Keyboard.Modifiers(3, input.ModShift, 0, 0, 0)
		l.Keyboard.Leave(4)

		snap := ctx.Snapshot()
		assert.False(t, snap.Input.KeyboardFocus())
		assert.Zero(t, snap.Input.Keys.Count())
		assert.Zero(t, snap.Input.Modifiers.Effective())
	})

	t.Run("retain", func(t *testing.T) {
		ctx, l, _ := newTestListeners(input.RetainKeysOnFocusLoss)
		l.Keyboard.Enter(1, nil)
		l.Keyboard.Key(2, 0, evdev.KEY_W, KeyStatePressed)
		l.Keyboard.Leave(3)

		snap := ctx.Snapshot()
		assert.True(t, snap.Input.Keys.IsKeyDown(evdev.KEY_W))
	})

	t.Run("policy switch at runtime", func(t *testing.T) {
		ctx, l, _ := newTestListeners(input.RetainKeysOnFocusLoss)
		ctx.SetFocusPolicy(input.ClearKeysOnFocusLoss)
		l.Keyboard.Enter(1, nil)
		l.Keyboard.Key(2, 0, evdev.KEY_W, KeyStatePressed)
		l.Keyboard.Leave(3)

		snap := ctx.Snapshot()
		assert.False(t, snap.Input.Keys.IsKeyDown(evdev.KEY_W))
	})
}

func TestKeyboardListener_RecordsTranslation(t *testing.T) {
	tr := input.NewKeymapTranslator("us")
	require.NoError(t, tr.Load([]byte("xkb_keymap {\n\txkb_symbols \"pc+fr+inet(evdev)\" { };\n};\n")))

	ctx := NewContext(input.ClearKeysOnFocusLoss)
	rec := &recorder{}
	l := NewListeners(ctx, tr, rec)
	l.Keyboard.Modifiers(1, input.ModShift, 0, 0, 0)
	l.Keyboard.Key(2, 0, evdev.KEY_A, KeyStatePressed)

	ev := rec.events[len(rec.events)-1]
	assert.Equal(t, uint32(evdev.KEY_A), ev.Code)
	assert.Equal(t, uint32(evdev.KEY_Q), ev.Mapped)
	assert.Equal(t, "KEY_Q", ev.Name)
	assert.Equal(t, input.ModShift, ev.Mods[0])
	assert.Equal(t, "key KEY_Q (30) down as 16 [Shift]", ev.String())
	assert.True(t, ctx.KeyPressed(evdev.KEY_A), "state tracks the raw code")
}

func TestKeyboardListener_Blocked(t *testing.T) {
	ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)
	l.Keyboard.Key(1, 0, evdev.KEY_ENTER, KeyStatePressed)

	ctx.SetBlocked(true)
	assert.False(t, ctx.KeyPressed(evdev.KEY_ENTER))
	ctx.SetBlocked(false)
	assert.True(t, ctx.KeyPressed(evdev.KEY_ENTER))
}

func TestKeyboardListener_ModifiersAndRepeat(t *testing.T) {
	ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)
	l.Keyboard.Modifiers(1, input.ModControl, 0, input.ModNumLock, 2)
	l.Keyboard.RepeatInfo(25, 600)

	snap := ctx.Snapshot()
	assert.Equal(t, input.Modifiers{Depressed: input.ModControl, Locked: input.ModNumLock, Group: 2}, snap.Input.Modifiers)
	assert.Equal(t, int32(25), snap.Seat.RepeatRate)
	assert.Equal(t, int32(600), snap.Seat.RepeatDelay)
}

func TestKeyboardListener_UnsupportedKeymap(t *testing.T) {
	ctx, l, rec := newTestListeners(input.ClearKeysOnFocusLoss)
	l.Keyboard.Keymap(KeymapFormatNoKeymap, -1, 0)

	assert.Equal(t, []EventKind{EventKeymap}, rec.kinds())
	assert.Empty(t, ctx.Snapshot().Seat.Layout)
}

func TestPointerListener_Delta(t *testing.T) {
	ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)

	l.Pointer.Enter(42, 10, 10)
	snap := ctx.Snapshot()
	assert.Equal(t, uint32(42), snap.Cursor.Serial)
	assert.True(t, snap.Input.Mouse.Focus)
	assert.Zero(t, snap.Input.Mouse.DeltaX)

	l.Pointer.Motion(0, 13, 7)
	dx, dy, _, _ := ctx.PollMouse()
	assert.Equal(t, int32(3), dx)
	assert.Equal(t, int32(-3), dy)

	l.Pointer.Leave(43)
	l.Pointer.Enter(44, 300, 300)
	dx, dy, _, _ = ctx.PollMouse()
	assert.Zero(t, dx, "no delta across a focus loss")
	assert.Zero(t, dy)
}

func TestPointerListener_PollAccumulatesMotion(t *testing.T) {
	ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)

	l.Pointer.Enter(1, 0, 0)
	l.Pointer.Motion(0, 4, 0)
	l.Pointer.Motion(0, 7, 2)
	l.Pointer.Motion(0, 10, 1)

	dx, dy, _, _ := ctx.PollMouse()
	assert.Equal(t, int32(10), dx)
	assert.Equal(t, int32(1), dy)

	dx, dy, _, _ = ctx.PollMouse()
	assert.Zero(t, dx)
	assert.Zero(t, dy)
}

func TestPointerListener_LeaveReleasesButtons(t *testing.T) {
	ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)

	l.Pointer.Enter(1, 5, 5)
	l.Pointer.Button(2, 0, evdev.BTN_LEFT, 1)
	l.Pointer.Leave(3)

	snap := ctx.Snapshot()
	assert.False(t, snap.Input.Mouse.Focus)
	assert.False(t, snap.Input.Mouse.LastValid)
	assert.False(t, snap.Input.Mouse.Left)
}

func TestPointerListener_ButtonsAndAxis(t *testing.T) {
	ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)
	l.Pointer.Button(1, 0, evdev.BTN_RIGHT, 1)
	l.Pointer.Axis(0, 0, 10)
	l.Pointer.Axis(0, 1, -3)

	snap := ctx.Snapshot()
	assert.True(t, snap.Input.Mouse.Right)
	assert.False(t, snap.Input.Mouse.Left)

	_, _, wx, wy := ctx.PollMouse()
	assert.Equal(t, -3.0, wx)
	assert.Equal(t, 10.0, wy)

	l.Pointer.Button(2, 0, evdev.BTN_RIGHT, 0)
	assert.False(t, ctx.Snapshot().Input.Mouse.Right)
}

func TestPointerListener_BufferScale(t *testing.T) {
	ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)
	l.Output.Added(5)
	l.Output.Scale(5, 2)
	l.Output.SurfaceEnter(5)

	l.Pointer.Enter(1, 10.5, 20.25)
	snap := ctx.Snapshot()
	assert.Equal(t, int32(21), snap.Input.Mouse.X)
	assert.Equal(t, int32(40), snap.Input.Mouse.Y)
}

func TestTouchListener(t *testing.T) {
	ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)

	for id := int32(0); id <= input.MaxTouches; id++ {
		l.Touch.Down(uint32(id), 0, id, float64(id), float64(id))
	}
	snap := ctx.Snapshot()
	assert.Equal(t, input.MaxTouches, snap.Touch.ActiveCount())
	for _, slot := range snap.Touch.ActiveSlots() {
		assert.NotEqual(t, int32(input.MaxTouches), slot.ID, "contact beyond capacity is dropped")
	}

	l.Touch.Motion(0, 3, 50, 60)
	l.Touch.Frame()
	snap = ctx.Snapshot()
	assert.Contains(t, snap.Touch.ActiveSlots(), input.TouchSlot{Active: true, ID: 3, X: 50, Y: 60})
	assert.Equal(t, input.TouchContact{Active: true, X: 50, Y: 60}, snap.Input.Touches[3])

	l.Touch.Up(0, 0, 3)
	snap = ctx.Snapshot()
	assert.Equal(t, input.MaxTouches-1, snap.Touch.ActiveCount())
	assert.False(t, snap.Input.Touches[3].Active)

	l.Touch.Cancel()
	snap = ctx.Snapshot()
	assert.Zero(t, snap.Touch.ActiveCount())
	assert.Equal(t, input.TouchContacts{}, snap.Input.Touches)
}

func TestSeatListener(t *testing.T) {
	ctx, l, rec := newTestListeners(input.ClearKeysOnFocusLoss)
	l.Seat.Name("seat0")
	l.Seat.Capabilities(uint32(CapPointer | CapKeyboard | CapTouch))

	l.Keyboard.Enter(1, []uint32{evdev.KEY_A})
	l.Touch.Down(2, 0, 1, 5, 5)
	l.Pointer.Button(3, 0, evdev.BTN_LEFT, 1)

	l.Seat.Capabilities(uint32(CapPointer))
	snap := ctx.Snapshot()
	assert.Equal(t, "seat0", snap.Seat.Name)
	assert.Equal(t, CapPointer, snap.Seat.Capabilities)
	assert.False(t, snap.Input.KeyboardFocus())
	assert.Zero(t, snap.Input.Keys.Count())
	assert.Zero(t, snap.Touch.ActiveCount())
	assert.True(t, snap.Input.Mouse.Left, "pointer capability kept")

	assert.Equal(t, "capabilities pointer", rec.events[len(rec.events)-1].String())
}

func TestOutputListener(t *testing.T) {
	ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)

	l.Output.Added(10)
	l.Output.Geometry(10, 1920, 0, 600, 340, "Dell", "U2720Q", 0)
	l.Output.Mode(10, 0, 1280, 720, 60000) // not current, ignored
	l.Output.Mode(10, 1, 3840, 2160, 59997)
	l.Output.Scale(10, 2)
	l.Output.Name(10, "DP-2")
	l.Output.Description(10, "Dell U2720Q")

	snap := ctx.Snapshot()
	o, ok := snap.Outputs.Get(10)
	require.True(t, ok)
	assert.Equal(t, int32(1920), o.X)
	assert.Equal(t, int32(3840), o.Width)
	assert.Equal(t, int32(59997), o.RefreshRate)
	assert.Equal(t, int32(600), o.PhysicalWidth)
	assert.Equal(t, "Dell", o.Make)
	assert.Equal(t, "U2720Q", o.Model)
	assert.Equal(t, "DP-2", o.Name)
	assert.Equal(t, "Dell U2720Q", o.Description)

	l.Output.SurfaceEnter(10)
	snap = ctx.Snapshot()
	assert.Equal(t, int32(2), snap.Window.BufferScale)
	assert.Equal(t, int32(1), snap.Window.LastBufferScale)

	l.Output.Removed(10)
	snap = ctx.Snapshot()
	_, ok = snap.Outputs.Current()
	assert.False(t, ok, "current output cleared on removal")
	assert.Equal(t, int32(1), snap.Window.BufferScale)
	assert.Zero(t, snap.Outputs.Len())
}

func TestOutputListener_SurfaceLeave(t *testing.T) {
	ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)
	l.Output.Added(1)
	l.Output.Added(2)
	l.Output.SurfaceEnter(1)

	l.Output.SurfaceLeave(2)
	id, ok := ctx.Snapshot().Outputs.CurrentID()
	require.True(t, ok)
	assert.Equal(t, uint32(1), id)

	l.Output.SurfaceLeave(1)
	_, ok = ctx.Snapshot().Outputs.CurrentID()
	assert.False(t, ok)
}

func TestListeners_Configure(t *testing.T) {
	ctx, l, _ := newTestListeners(input.ClearKeysOnFocusLoss)

	l.Configure(800, 600, ConfigureActivated)
	snap := ctx.Snapshot()
	assert.Equal(t, int32(800), snap.Window.Width)
	assert.True(t, snap.Window.Activated)
	assert.True(t, snap.Window.Resize)

	ctx.Do(func(s *State) { assert.True(t, s.AckResize()) })

	l.Configure(0, 0, ConfigureMaximized)
	snap = ctx.Snapshot()
	assert.Equal(t, int32(800), snap.Window.Width, "zero size keeps current size")
	assert.True(t, snap.Window.Maximized)
	assert.False(t, snap.Window.Activated)
	assert.False(t, snap.Window.Resize)

	l.Configure(1024, 768, ConfigureFullscreen)
	snap = ctx.Snapshot()
	assert.Equal(t, int32(800), snap.Window.PrevWidth)
	assert.Equal(t, int32(1024), snap.Window.Width)
	assert.True(t, snap.Window.Fullscreen)
}
