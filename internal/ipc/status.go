package ipc

import (
	"github.com/bnema/wlseat/internal/display"
	"github.com/bnema/wlseat/internal/input"
	"github.com/bnema/wlseat/internal/wayland"
)

// Status is the externally visible view of a session snapshot. It is what
// the socket returns, what the SSH monitor renders and what `status --json`
// prints.
type Status struct {
	Seat         string `json:"seat"`
	Capabilities string `json:"capabilities"`
	Layout       string `json:"layout,omitempty"`
	RepeatRate   int32  `json:"repeat_rate"`
	RepeatDelay  int32  `json:"repeat_delay"`

	FocusPolicy   string      `json:"focus_policy"`
	KeyboardFocus bool        `json:"keyboard_focus"`
	Blocked       bool        `json:"blocked"`
	Keys          []KeyStatus `json:"keys"`
	Modifiers     uint32      `json:"modifiers"`
	ModifierNames []string    `json:"modifier_names,omitempty"`

	Pointer PointerStatus `json:"pointer"`
	Touches []TouchStatus `json:"touches"`
	Window  WindowStatus  `json:"window"`

	Outputs       []display.OutputInfo `json:"outputs"`
	CurrentOutput string               `json:"current_output,omitempty"`

	Events uint64 `json:"events"`
}

// KeyStatus is one pressed key
type KeyStatus struct {
	Code uint32 `json:"code"`
	Name string `json:"name"`
}

// PointerStatus is the pointer position and button state
type PointerStatus struct {
	Focus  bool  `json:"focus"`
	X      int32 `json:"x"`
	Y      int32 `json:"y"`
	Left   bool  `json:"left"`
	Middle bool  `json:"middle"`
	Right  bool  `json:"right"`
}

// TouchStatus is one active touch slot
type TouchStatus struct {
	ID int32 `json:"id"`
	X  int32 `json:"x"`
	Y  int32 `json:"y"`
}

// WindowStatus is the probe surface layout
type WindowStatus struct {
	Width      int32 `json:"width"`
	Height     int32 `json:"height"`
	Scale      int32 `json:"scale"`
	Fullscreen bool  `json:"fullscreen"`
	Maximized  bool  `json:"maximized"`
	Activated  bool  `json:"activated"`
	Configured bool  `json:"configured"`
}

// NewStatus builds a Status from a context snapshot
func NewStatus(st wayland.State) *Status {
	s := &Status{
		Seat:         st.Seat.Name,
		Capabilities: st.Seat.Capabilities.String(),
		Layout:       st.Seat.Layout,
		RepeatRate:   st.Seat.RepeatRate,
		RepeatDelay:  st.Seat.RepeatDelay,

		FocusPolicy:   st.Input.FocusPolicy().String(),
		KeyboardFocus: st.Input.KeyboardFocus(),
		Blocked:       st.Input.Blocked,
		Keys:          []KeyStatus{},
		Modifiers:     st.Input.Modifiers.Effective(),
		ModifierNames: st.Input.Modifiers.Names(),

		Pointer: PointerStatus{
			Focus:  st.Input.Mouse.Focus,
			X:      st.Input.Mouse.X,
			Y:      st.Input.Mouse.Y,
			Left:   st.Input.Mouse.Left,
			Middle: st.Input.Mouse.Middle,
			Right:  st.Input.Mouse.Right,
		},
		Touches: []TouchStatus{},
		Window: WindowStatus{
			Width:      st.Window.Width,
			Height:     st.Window.Height,
			Scale:      st.Window.BufferScale,
			Fullscreen: st.Window.Fullscreen,
			Maximized:  st.Window.Maximized,
			Activated:  st.Window.Activated,
			Configured: st.Window.Configured,
		},
		Outputs: []display.OutputInfo{},
		Events:  st.Events,
	}

	for _, code := range st.Input.Keys.Pressed() {
		s.Keys = append(s.Keys, KeyStatus{Code: code, Name: input.KeyName(code)})
	}
	for _, slot := range st.Touch.ActiveSlots() {
		s.Touches = append(s.Touches, TouchStatus{ID: slot.ID, X: slot.X, Y: slot.Y})
	}
	if st.Outputs != nil {
		for _, o := range st.Outputs.All() {
			s.Outputs = append(s.Outputs, *o)
		}
		if cur, ok := st.Outputs.Current(); ok {
			s.CurrentOutput = cur.Name
		}
	}
	return s
}
