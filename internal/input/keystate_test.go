package input

import (
	"testing"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/stretchr/testify/assert"
)

func TestKeyState_SetKey(t *testing.T) {
	codes := []uint32{0, 1, 7, 8, evdev.KEY_A, evdev.KEY_LEFTSHIFT, 0x1ff, KeyMax}

	for _, code := range codes {
		var k KeyState
		k.SetKey(code, true)
		assert.True(t, k.IsKeyDown(code), "code %#x should be down", code)
		assert.Equal(t, 1, k.Count())

		k.SetKey(code, false)
		assert.False(t, k.IsKeyDown(code), "code %#x should be up", code)
		assert.Zero(t, k.Count())
	}
}

func TestKeyState_OutOfRangeDoesNotAlias(t *testing.T) {
	var k KeyState
	for _, code := range []uint32{KeyMax + 1, KeyMax + 8, 0x300 + evdev.KEY_A, 1 << 20, ^uint32(0)} {
		k.SetKey(code, true)
		assert.False(t, k.IsKeyDown(code))
	}

	for code := uint32(0); code <= KeyMax; code++ {
		if k.IsKeyDown(code) {
			t.Fatalf("in-range code %#x reported down after out-of-range presses", code)
		}
	}
	assert.Empty(t, k.Pressed())
}

func TestKeyState_Pressed(t *testing.T) {
	var k KeyState
	k.SetKey(evdev.KEY_Z, true)
	k.SetKey(evdev.KEY_A, true)
	k.SetKey(KeyMax, true)
	k.SetKey(evdev.KEY_ESC, true)

	assert.Equal(t, []uint32{evdev.KEY_ESC, evdev.KEY_A, evdev.KEY_Z, KeyMax}, k.Pressed())
}

func TestKeyState_FocusLoss(t *testing.T) {
	t.Run("clears by default", func(t *testing.T) {
		var k KeyState
		k.SetFocus(true)
		k.SetKey(evdev.KEY_W, true)
		k.SetKey(evdev.KEY_D, true)

		k.SetFocus(false)
		assert.False(t, k.Focused())
		assert.Zero(t, k.Count())
	})

	t.Run("retain policy keeps keys", func(t *testing.T) {
		var k KeyState
		k.SetRetainOnFocusLoss(true)
		k.SetFocus(true)
		k.SetKey(evdev.KEY_W, true)

		k.SetFocus(false)
		assert.True(t, k.IsKeyDown(evdev.KEY_W))
	})

	t.Run("gaining focus keeps keys", func(t *testing.T) {
		var k KeyState
		k.SetKey(evdev.KEY_W, true)
		k.SetFocus(true)
		assert.True(t, k.Focused())
		assert.True(t, k.IsKeyDown(evdev.KEY_W))
	})
}

func TestKeyBytes(t *testing.T) {
	assert.Equal(t, 96, KeyBytes)
	assert.True(t, InRange(KeyMax))
	assert.False(t, InRange(KeyMax+1))
}
