package input

import (
	"testing"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frenchKeymap = "xkb_keymap {\n" +
	"\txkb_keycodes \"evdev+aliases(azerty)\" { };\n" +
	"\txkb_symbols \"pc+fr+inet(evdev)\" { };\n" +
	"};\n\x00"

func TestKeymapTranslator_Load(t *testing.T) {
	tr := NewKeymapTranslator("us")
	require.NoError(t, tr.Load([]byte(frenchKeymap)))
	assert.Equal(t, "fr", tr.Layout())

	key := tr.Handle(evdev.KEY_A, true)
	assert.Equal(t, uint32(evdev.KEY_A), key.Raw)
	assert.Equal(t, uint32(evdev.KEY_Q), key.Code)
	assert.Equal(t, "KEY_Q", key.Name)
	assert.True(t, key.Pressed)

	require.NoError(t, tr.Close())
	assert.Equal(t, uint32(evdev.KEY_A), tr.Handle(evdev.KEY_A, false).Code)
}

func TestKeymapTranslator_NoTarget(t *testing.T) {
	tr := NewKeymapTranslator("")
	require.NoError(t, tr.Load([]byte(frenchKeymap)))

	key := tr.Handle(evdev.KEY_A, true)
	assert.Equal(t, key.Raw, key.Code)
}

func TestKeymapTranslator_Modifiers(t *testing.T) {
	tr := NewKeymapTranslator("")
	tr.UpdateModifiers(ModShift, 0, ModCapsLock, 1)

	key := tr.Handle(evdev.KEY_B, true)
	assert.Equal(t, Modifiers{Depressed: ModShift, Locked: ModCapsLock, Group: 1}, key.Modifiers)
}

func TestNopTranslator(t *testing.T) {
	var tr NopTranslator
	require.NoError(t, tr.Init(-1, 0))

	tr.UpdateModifiers(ModControl, 0, 0, 0)
	key := tr.Handle(evdev.KEY_ENTER, false)
	assert.Equal(t, uint32(evdev.KEY_ENTER), key.Code)
	assert.False(t, key.Pressed)
	assert.True(t, key.Modifiers.Active(ModControl))
	assert.Equal(t, "KEY_ENTER", key.Name)
}

func TestKeyName_Unknown(t *testing.T) {
	assert.Equal(t, "KEY_0x2fe", KeyName(0x2fe))
}

var (
	_ Translator = (*NopTranslator)(nil)
	_ Translator = (*KeymapTranslator)(nil)
)

func TestKeyCode(t *testing.T) {
	tests := []struct {
		name string
		want uint32
		ok   bool
	}{
		{"KEY_A", 30, true},
		{"a", 30, true},
		{"leftshift", 42, true},
		{"KEY_0x2fe", 0x2fe, true},
		{"30", 30, true},
		{"0x300", 0, false},
		{"KEY_NOPE", 0, false},
	}
	for _, tt := range tests {
		got, ok := KeyCode(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	code, ok := KeyCode(KeyName(57))
	assert.True(t, ok)
	assert.Equal(t, uint32(57), code)
}
