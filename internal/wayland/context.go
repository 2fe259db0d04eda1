// Package wayland binds a seat on a Wayland compositor and feeds its input
// events into a lock-protected session context.
package wayland

import (
	"sync"

	"github.com/bnema/wlseat/internal/display"
	"github.com/bnema/wlseat/internal/input"
)

// Window holds the probe surface's layout bookkeeping
type Window struct {
	Width      int32
	Height     int32
	PrevWidth  int32
	PrevHeight int32

	Fullscreen bool
	Maximized  bool
	Resize     bool // a configure changed the size and has not been acked
	Configured bool
	Activated  bool

	BufferScale     int32
	LastBufferScale int32
}

// Cursor tracks pointer cursor state for the surface
type Cursor struct {
	Visible bool
	Serial  uint32 // last wl_pointer.enter serial, needed for set_cursor
}

// Capabilities mirrors wl_seat capability bits
type Capabilities uint32

const (
	CapPointer  Capabilities = 1
	CapKeyboard Capabilities = 2
	CapTouch    Capabilities = 4
)

func (c Capabilities) Has(bit Capabilities) bool { return c&bit != 0 }

func (c Capabilities) String() string {
	s := ""
	for _, b := range []struct {
		bit  Capabilities
		name string
	}{{CapPointer, "pointer"}, {CapKeyboard, "keyboard"}, {CapTouch, "touch"}} {
		if c.Has(b.bit) {
			if s != "" {
				s += ","
			}
			s += b.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// Seat describes the bound wl_seat
type Seat struct {
	Name         string
	Capabilities Capabilities
	RepeatRate   int32
	RepeatDelay  int32
	Layout       string
}

// State is the whole session aggregate: window layout, cursor, seat, input
// trackers and outputs. Listener callbacks mutate it through Context.
type State struct {
	Window Window
	Cursor Cursor
	Seat   Seat

	Input   input.State
	Touch   input.TouchTable
	Outputs *display.OutputSet

	Events uint64 // protocol events applied so far
}

// Configure applies a toplevel configure. Zero sizes keep the current size.
func (s *State) Configure(width, height int32, fullscreen, maximized, activated bool) {
	s.Window.Fullscreen = fullscreen
	s.Window.Maximized = maximized
	s.Window.Activated = activated

	if width > 0 && height > 0 && (width != s.Window.Width || height != s.Window.Height) {
		s.Window.PrevWidth, s.Window.PrevHeight = s.Window.Width, s.Window.Height
		s.Window.Width, s.Window.Height = width, height
		s.Window.Resize = true
	}
}

// AckResize clears the pending resize flag after the surface was redrawn at
// the new size. It reports whether a resize was pending.
func (s *State) AckResize() bool {
	pending := s.Window.Resize
	s.Window.Resize = false
	s.Window.Configured = true
	return pending
}

// SetBufferScale records a new buffer scale. It reports whether the scale
// differs from the one in effect at the last reconfiguration.
func (s *State) SetBufferScale(scale int32) bool {
	if scale < 1 {
		scale = 1
	}
	s.Window.LastBufferScale = s.Window.BufferScale
	s.Window.BufferScale = scale
	return s.Window.LastBufferScale != scale
}

// EnterOutput marks the output the surface entered as current and adopts its
// scale.
func (s *State) EnterOutput(id uint32) bool {
	if !s.Outputs.SetCurrent(id) {
		return false
	}
	o, _ := s.Outputs.Get(id)
	return s.SetBufferScale(o.Scale)
}

// clone returns a deep copy
func (s *State) clone() State {
	c := *s
	if s.Outputs != nil {
		c.Outputs = s.Outputs.Clone()
	}
	return c
}

// Context guards a State with a single mutex. Protocol events are applied on
// the dispatch goroutine; pollers take snapshots from any goroutine.
type Context struct {
	mu sync.Mutex
	st State
}

// NewContext creates a session context with the given focus-loss policy
func NewContext(policy input.FocusPolicy) *Context {
	c := &Context{}
	c.st.Outputs = display.NewOutputSet()
	c.st.Window.BufferScale = 1
	c.st.Window.LastBufferScale = 1
	c.st.Cursor.Visible = true
	c.st.Input.SetFocusPolicy(policy)
	return c
}

// Do runs fn with the state locked
func (c *Context) Do(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.st)
}

// Snapshot returns a deep copy of the current state
func (c *Context) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.clone()
}

// SetFocusPolicy changes the keyboard focus-loss policy
func (c *Context) SetFocusPolicy(p input.FocusPolicy) {
	c.Do(func(s *State) { s.Input.SetFocusPolicy(p) })
}

// KeyPressed is the poll-side key query
func (c *Context) KeyPressed(code uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Input.KeyPressed(code)
}

// SetBlocked suppresses or restores poll-side key reporting
func (c *Context) SetBlocked(blocked bool) {
	c.Do(func(s *State) { s.Input.Blocked = blocked })
}

// ReleaseInput drops every pressed key, modifier, button and touch contact
// without touching focus. It returns how many keys were held.
func (c *Context) ReleaseInput() int {
	var held int
	c.Do(func(s *State) {
		held = s.Input.Keys.Count()
		s.Input.Keys.Reset()
		s.Input.Modifiers = input.Modifiers{}
		s.Input.Mouse.ReleaseButtons()
		s.Input.Touches.Clear()
		s.Touch.Cancel()
	})
	return held
}

// PollMouse returns and clears the pending pointer delta and wheel motion
func (c *Context) PollMouse() (dx, dy int32, wheelX, wheelY float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dx, dy = c.st.Input.Mouse.ConsumeDelta()
	wheelX, wheelY = c.st.Input.Mouse.ConsumeWheel()
	return dx, dy, wheelX, wheelY
}
