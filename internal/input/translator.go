package input

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bnema/wlseat/internal/logger"
	evdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/sys/unix"
)

// Key is a translated key event. Raw is the code as sent by the compositor
// and is what the key bitmap stores; Code is Raw after layout remapping.
type Key struct {
	Raw       uint32
	Code      uint32
	Name      string
	Pressed   bool
	Modifiers Modifiers
}

// Translator turns raw wl_keyboard codes into frontend keys. Init receives
// the keymap file descriptor from wl_keyboard.keymap and takes ownership of
// it.
type Translator interface {
	Init(fd int, size uint32) error
	Handle(code uint32, down bool) Key
	UpdateModifiers(depressed, latched, locked, group uint32)
	Close() error
}

// KeyName returns the evdev name of a key code, e.g. "KEY_A".
func KeyName(code uint32) string {
	if name, ok := evdev.KEY[int(code)]; ok {
		return name
	}
	return fmt.Sprintf("KEY_%#x", code)
}

var (
	keyCodesOnce sync.Once
	keyCodes     map[string]uint32
)

// KeyCode is the inverse of KeyName. The KEY_ prefix is optional and names
// are case-insensitive; numeric forms such as "KEY_0x1e" or "30" are accepted.
func KeyCode(name string) (uint32, bool) {
	keyCodesOnce.Do(func() {
		keyCodes = make(map[string]uint32, len(evdev.KEY))
		for code, n := range evdev.KEY {
			keyCodes[n] = uint32(code)
		}
	})

	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "KEY_") && !strings.HasPrefix(upper, "BTN_") {
		upper = "KEY_" + upper
	}
	if code, ok := keyCodes[upper]; ok {
		return code, true
	}
	code, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(name), "key_"), 0, 32)
	if err != nil || !InRange(uint32(code)) {
		return 0, false
	}
	return uint32(code), true
}

// NopTranslator passes codes through untouched and ignores keymaps.
type NopTranslator struct {
	mods Modifiers
}

func (n *NopTranslator) Init(fd int, size uint32) error {
	if fd >= 0 {
		return unix.Close(fd)
	}
	return nil
}

func (n *NopTranslator) Handle(code uint32, down bool) Key {
	return Key{Raw: code, Code: code, Name: KeyName(code), Pressed: down, Modifiers: n.mods}
}

func (n *NopTranslator) UpdateModifiers(depressed, latched, locked, group uint32) {
	n.mods = Modifiers{Depressed: depressed, Latched: latched, Locked: locked, Group: group}
}

func (n *NopTranslator) Close() error { return nil }

// KeymapTranslator reads the compositor's xkb keymap to learn the active
// layout and remaps codes into the configured target layout.
type KeymapTranslator struct {
	targetLayout string
	layout       string
	keymapSize   int
	remapper     *LayoutRemapper
	mods         Modifiers
}

// NewKeymapTranslator creates a translator remapping into targetLayout. An
// empty target disables remapping.
func NewKeymapTranslator(targetLayout string) *KeymapTranslator {
	return &KeymapTranslator{targetLayout: targetLayout}
}

// Init maps the keymap fd, detects the layout and closes the fd.
func (t *KeymapTranslator) Init(fd int, size uint32) error {
	defer unix.Close(fd)

	if size == 0 {
		return fmt.Errorf("empty keymap")
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return fmt.Errorf("failed to map keymap: %w", err)
	}
	defer unix.Munmap(data)

	return t.Load(data)
}

// Load parses keymap text directly. The text may carry a trailing NUL.
func (t *KeymapTranslator) Load(keymap []byte) error {
	if i := bytes.IndexByte(keymap, 0); i >= 0 {
		keymap = keymap[:i]
	}
	t.keymapSize = len(keymap)
	t.layout = DetectLayout(string(keymap))
	t.remapper = NewLayoutRemapper(t.layout, t.targetLayout)
	logger.Debug("keymap loaded", "layout", t.layout, "target", t.targetLayout, "bytes", t.keymapSize)
	return nil
}

// Layout returns the layout detected from the last keymap.
func (t *KeymapTranslator) Layout() string {
	return t.layout
}

func (t *KeymapTranslator) Handle(code uint32, down bool) Key {
	mapped := t.remapper.Remap(code)
	return Key{
		Raw:       code,
		Code:      mapped,
		Name:      KeyName(mapped),
		Pressed:   down,
		Modifiers: t.mods,
	}
}

func (t *KeymapTranslator) UpdateModifiers(depressed, latched, locked, group uint32) {
	t.mods = Modifiers{Depressed: depressed, Latched: latched, Locked: locked, Group: group}
}

func (t *KeymapTranslator) Close() error {
	t.remapper = nil
	t.layout = ""
	return nil
}
