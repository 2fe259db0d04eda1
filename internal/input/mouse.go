package input

import (
	evdev "github.com/gvalkov/golang-evdev"
)

// MouseState tracks absolute pointer position, the delta between the last
// two positions, button state and accumulated wheel motion.
type MouseState struct {
	LastX, LastY   int32
	X, Y           int32
	DeltaX, DeltaY int32

	// PendingX and PendingY sum every delta since the last ConsumeDelta.
	PendingX, PendingY int32

	// LastValid is false until a position has been observed in the current
	// focused session; the delta is meaningless before that.
	LastValid bool
	Focus     bool

	Left, Middle, Right bool

	WheelX, WheelY float64
}

// Motion records a new absolute position and updates the delta.
func (m *MouseState) Motion(x, y int32) {
	if !m.LastValid {
		m.LastX, m.LastY = x, y
		m.X, m.Y = x, y
		m.DeltaX, m.DeltaY = 0, 0
		m.LastValid = true
		return
	}
	m.X, m.Y = x, y
	m.DeltaX = x - m.LastX
	m.DeltaY = y - m.LastY
	m.PendingX += m.DeltaX
	m.PendingY += m.DeltaY
	m.LastX, m.LastY = x, y
}

// SetFocus records pointer focus. Losing focus invalidates the previous
// position so the next motion starts a new delta sequence.
func (m *MouseState) SetFocus(focused bool) {
	m.Focus = focused
	if !focused {
		m.LastValid = false
	}
}

// SetButton mirrors a button event. Only left, middle and right are tracked.
func (m *MouseState) SetButton(button uint32, down bool) bool {
	switch button {
	case evdev.BTN_LEFT:
		m.Left = down
	case evdev.BTN_MIDDLE:
		m.Middle = down
	case evdev.BTN_RIGHT:
		m.Right = down
	default:
		return false
	}
	return true
}

// Axis accumulates wheel motion. Axis 0 is vertical, 1 horizontal.
func (m *MouseState) Axis(axis uint32, value float64) {
	if axis == 0 {
		m.WheelY += value
	} else {
		m.WheelX += value
	}
}

// ConsumeDelta returns the motion accumulated since the previous call and
// zeroes it.
func (m *MouseState) ConsumeDelta() (dx, dy int32) {
	dx, dy = m.PendingX, m.PendingY
	m.PendingX, m.PendingY = 0, 0
	return dx, dy
}

// ConsumeWheel returns the accumulated wheel motion and zeroes it.
func (m *MouseState) ConsumeWheel() (x, y float64) {
	x, y = m.WheelX, m.WheelY
	m.WheelX, m.WheelY = 0, 0
	return x, y
}

// ReleaseButtons clears every button flag.
func (m *MouseState) ReleaseButtons() {
	m.Left, m.Middle, m.Right = false, false, false
}
