// Package input tracks per-seat input state: pressed keys, pointer deltas and
// buttons, and active touch contacts.
package input

import (
	"math/bits"

	"github.com/bnema/wlseat/internal/logger"
)

const (
	// KeyMax is the highest key code the bitmap can represent (KEY_MAX in
	// linux/input-event-codes.h). Wayland key events carry evdev codes.
	KeyMax = 0x2ff

	// KeyBytes is the bitmap size, rounded up to whole bytes.
	KeyBytes = (KeyMax + 7) / 8
)

// KeyState is a dense bit-per-key map of currently pressed key codes.
// The zero value is an empty, unfocused map that clears itself on focus loss.
type KeyState struct {
	bits    [KeyBytes]uint8
	focused bool

	// retainOnFocusLoss keeps pressed bits across a focus loss.
	retainOnFocusLoss bool
}

// SetRetainOnFocusLoss selects the focus-loss policy.
func (k *KeyState) SetRetainOnFocusLoss(retain bool) {
	k.retainOnFocusLoss = retain
}

// RetainOnFocusLoss reports the focus-loss policy.
func (k *KeyState) RetainOnFocusLoss() bool {
	return k.retainOnFocusLoss
}

// InRange reports whether code has a bit in the map.
func InRange(code uint32) bool {
	return code <= KeyMax && code/8 < KeyBytes
}

// SetKey marks code as pressed or released. Codes outside the map are ignored.
func (k *KeyState) SetKey(code uint32, down bool) {
	if !InRange(code) {
		logger.Debugf("ignoring out of range key code %#x", code)
		return
	}
	mask := uint8(1) << (code % 8)
	if down {
		k.bits[code/8] |= mask
	} else {
		k.bits[code/8] &^= mask
	}
}

// IsKeyDown reports whether code is currently pressed.
func (k *KeyState) IsKeyDown(code uint32) bool {
	if !InRange(code) {
		return false
	}
	return k.bits[code/8]&(uint8(1)<<(code%8)) != 0
}

// SetFocus records keyboard focus. Losing focus clears every key unless the
// retain policy is set.
func (k *KeyState) SetFocus(focused bool) {
	if !focused && !k.retainOnFocusLoss {
		k.Reset()
	}
	k.focused = focused
}

// Focused reports whether the surface currently has keyboard focus.
func (k *KeyState) Focused() bool {
	return k.focused
}

// Reset releases every key.
func (k *KeyState) Reset() {
	k.bits = [KeyBytes]uint8{}
}

// Count returns the number of pressed keys.
func (k *KeyState) Count() int {
	n := 0
	for _, b := range k.bits {
		n += bits.OnesCount8(b)
	}
	return n
}

// Pressed returns the pressed key codes in ascending order.
func (k *KeyState) Pressed() []uint32 {
	var codes []uint32
	for i, b := range k.bits {
		for b != 0 {
			bit := bits.TrailingZeros8(b)
			codes = append(codes, uint32(i*8+bit))
			b &^= 1 << bit
		}
	}
	return codes
}
