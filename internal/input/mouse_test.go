package input

import (
	"testing"

	evdev "github.com/gvalkov/golang-evdev"
)

func TestMouseState_Delta(t *testing.T) {
	var m MouseState

	m.Motion(10, 10)
	if m.DeltaX != 0 || m.DeltaY != 0 {
		t.Errorf("first motion delta = (%d,%d), want (0,0)", m.DeltaX, m.DeltaY)
	}
	if !m.LastValid {
		t.Error("LastValid should be set after first motion")
	}

	m.Motion(13, 7)
	if m.DeltaX != 3 || m.DeltaY != -3 {
		t.Errorf("second motion delta = (%d,%d), want (3,-3)", m.DeltaX, m.DeltaY)
	}
	if m.LastX != 13 || m.LastY != 7 {
		t.Errorf("last position = (%d,%d), want (13,7)", m.LastX, m.LastY)
	}
}

func TestMouseState_FocusLossInvalidates(t *testing.T) {
	var m MouseState
	m.SetFocus(true)
	m.Motion(10, 10)
	m.Motion(20, 20)

	m.SetFocus(false)
	if m.LastValid {
		t.Fatal("focus loss should invalidate the last position")
	}

	m.SetFocus(true)
	m.Motion(500, 400)
	if m.DeltaX != 0 || m.DeltaY != 0 {
		t.Errorf("delta after refocus = (%d,%d), want (0,0)", m.DeltaX, m.DeltaY)
	}
}

func TestMouseState_Buttons(t *testing.T) {
	tests := []struct {
		name    string
		button  uint32
		tracked bool
		check   func(*MouseState) bool
	}{
		{"left", evdev.BTN_LEFT, true, func(m *MouseState) bool { return m.Left }},
		{"middle", evdev.BTN_MIDDLE, true, func(m *MouseState) bool { return m.Middle }},
		{"right", evdev.BTN_RIGHT, true, func(m *MouseState) bool { return m.Right }},
		{"side", evdev.BTN_SIDE, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m MouseState
			if got := m.SetButton(tt.button, true); got != tt.tracked {
				t.Fatalf("SetButton tracked = %v, want %v", got, tt.tracked)
			}
			if !tt.tracked {
				return
			}
			if !tt.check(&m) {
				t.Error("button should be down")
			}
			m.SetButton(tt.button, false)
			if tt.check(&m) {
				t.Error("button should be up")
			}
		})
	}
}

func TestMouseState_Consume(t *testing.T) {
	var m MouseState
	m.Motion(0, 0)
	m.Motion(4, 5)
	m.Axis(0, 10)
	m.Axis(0, 5)
	m.Axis(1, -2)

	dx, dy := m.ConsumeDelta()
	if dx != 4 || dy != 5 {
		t.Errorf("ConsumeDelta = (%d,%d), want (4,5)", dx, dy)
	}
	if dx, dy = m.ConsumeDelta(); dx != 0 || dy != 0 {
		t.Errorf("second ConsumeDelta = (%d,%d), want zero", dx, dy)
	}

	wx, wy := m.ConsumeWheel()
	if wx != -2 || wy != 15 {
		t.Errorf("ConsumeWheel = (%v,%v), want (-2,15)", wx, wy)
	}
}

func TestMouseState_ConsumeAccumulates(t *testing.T) {
	var m MouseState
	m.Motion(0, 0)
	m.Motion(4, 1)
	m.Motion(7, 2)
	m.Motion(10, 0)

	if m.DeltaX != 3 || m.DeltaY != -2 {
		t.Errorf("per-event delta = (%d,%d), want (3,-2)", m.DeltaX, m.DeltaY)
	}
	dx, dy := m.ConsumeDelta()
	if dx != 10 || dy != 0 {
		t.Errorf("ConsumeDelta = (%d,%d), want (10,0)", dx, dy)
	}

	m.Motion(12, 5)
	if dx, dy = m.ConsumeDelta(); dx != 2 || dy != 5 {
		t.Errorf("ConsumeDelta after poll = (%d,%d), want (2,5)", dx, dy)
	}
}
