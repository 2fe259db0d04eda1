package input

import (
	"strings"

	"github.com/bnema/wlseat/internal/logger"
	evdev "github.com/gvalkov/golang-evdev"
)

// LayoutRemapper rewrites key codes from the compositor's layout to the
// layout the frontend binds against.
type LayoutRemapper struct {
	mapping map[uint32]uint32
}

// NewLayoutRemapper builds a remapper between two xkb layout names.
func NewLayoutRemapper(sourceLayout, targetLayout string) *LayoutRemapper {
	r := &LayoutRemapper{}
	if sourceLayout != targetLayout && targetLayout != "" {
		r.mapping = layoutMapping(sourceLayout, targetLayout)
		if r.mapping == nil {
			logger.Debugf("no key remapping for %s -> %s", sourceLayout, targetLayout)
		}
	}
	return r
}

// Remap translates code, returning it unchanged when no mapping applies.
func (r *LayoutRemapper) Remap(code uint32) uint32 {
	if r == nil || r.mapping == nil {
		return code
	}
	if translated, ok := r.mapping[code]; ok {
		return translated
	}
	return code
}

func layoutMapping(sourceLayout, targetLayout string) map[uint32]uint32 {
	switch {
	case sourceLayout == "us" && targetLayout == "fr":
		return qwertyToAzerty
	case sourceLayout == "fr" && targetLayout == "us":
		return azertyToQwerty
	}
	return nil
}

var qwertyToAzerty = map[uint32]uint32{
	evdev.KEY_Q:          evdev.KEY_A,
	evdev.KEY_W:          evdev.KEY_Z,
	evdev.KEY_A:          evdev.KEY_Q,
	evdev.KEY_Z:          evdev.KEY_W,
	evdev.KEY_M:          evdev.KEY_SEMICOLON,
	evdev.KEY_SEMICOLON:  evdev.KEY_M,
	evdev.KEY_APOSTROPHE: evdev.KEY_4,
	evdev.KEY_LEFTBRACE:  evdev.KEY_5,
	evdev.KEY_MINUS:      evdev.KEY_6,
	evdev.KEY_RIGHTBRACE: evdev.KEY_MINUS,
}

var azertyToQwerty = map[uint32]uint32{
	evdev.KEY_A:         evdev.KEY_Q,
	evdev.KEY_Z:         evdev.KEY_W,
	evdev.KEY_Q:         evdev.KEY_A,
	evdev.KEY_W:         evdev.KEY_Z,
	evdev.KEY_SEMICOLON: evdev.KEY_M,
	evdev.KEY_M:         evdev.KEY_SEMICOLON,
	evdev.KEY_4:         evdev.KEY_APOSTROPHE,
	evdev.KEY_5:         evdev.KEY_LEFTBRACE,
	evdev.KEY_6:         evdev.KEY_MINUS,
	evdev.KEY_MINUS:     evdev.KEY_RIGHTBRACE,
}

// DetectLayout extracts the primary layout name from xkb keymap text by
// reading the symbols component string, e.g. xkb_symbols "pc+fr(oss)+inet(evdev)"
// yields "fr". It returns "" when no layout can be found.
func DetectLayout(keymap string) string {
	spec := quoted(keymap, "xkb_symbols")
	for _, part := range strings.Split(spec, "+") {
		name := part
		if i := strings.IndexAny(name, "(:"); i >= 0 {
			name = name[:i]
		}
		switch name {
		case "", "pc", "inet", "group", "level3", "compose", "ctrl", "altwin", "terminate":
			continue
		}
		return name
	}
	return ""
}

func quoted(s, keyword string) string {
	i := strings.Index(s, keyword)
	if i < 0 {
		return ""
	}
	s = s[i+len(keyword):]
	open := strings.IndexByte(s, '"')
	if open < 0 {
		return ""
	}
	closing := strings.IndexByte(s[open+1:], '"')
	if closing < 0 {
		return ""
	}
	return s[open+1 : open+1+closing]
}
