package input

// FocusPolicy controls what a keyboard focus loss does to pressed keys.
type FocusPolicy int

const (
	// ClearKeysOnFocusLoss releases every key when keyboard focus leaves.
	ClearKeysOnFocusLoss FocusPolicy = iota
	// RetainKeysOnFocusLoss keeps pressed keys until their key-up arrives.
	RetainKeysOnFocusLoss
)

func (p FocusPolicy) String() string {
	if p == RetainKeysOnFocusLoss {
		return "retain"
	}
	return "clear"
}

// ParseFocusPolicy maps a config value to a policy. Anything but "retain"
// selects the clearing policy.
func ParseFocusPolicy(s string) FocusPolicy {
	if s == "retain" {
		return RetainKeysOnFocusLoss
	}
	return ClearKeysOnFocusLoss
}

// State is the input half of a windowing session: keyboard, pointer and raw
// touch state, fed by protocol callbacks and read by the polling side.
type State struct {
	Keys    KeyState
	Mouse   MouseState
	Touches TouchContacts

	// Modifiers mirrors the last wl_keyboard.modifiers event.
	Modifiers Modifiers

	// Blocked suppresses key reporting to pollers while set, e.g. while an
	// on-screen menu owns the keyboard.
	Blocked bool
}

// Modifiers holds serialized xkb modifier masks.
type Modifiers struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// SetFocusPolicy applies a keyboard focus-loss policy.
func (s *State) SetFocusPolicy(p FocusPolicy) {
	s.Keys.SetRetainOnFocusLoss(p == RetainKeysOnFocusLoss)
}

// FocusPolicy returns the active focus-loss policy.
func (s *State) FocusPolicy() FocusPolicy {
	if s.Keys.RetainOnFocusLoss() {
		return RetainKeysOnFocusLoss
	}
	return ClearKeysOnFocusLoss
}

// KeyboardFocus reports whether the session surface has keyboard focus.
func (s *State) KeyboardFocus() bool {
	return s.Keys.Focused()
}

// SetKeyboardFocus records keyboard focus, applying the focus policy.
func (s *State) SetKeyboardFocus(focused bool) {
	s.Keys.SetFocus(focused)
	if !focused && !s.Keys.RetainOnFocusLoss() {
		s.Modifiers = Modifiers{}
	}
}

// KeyPressed is the poll-side key query: it honours Blocked.
func (s *State) KeyPressed(code uint32) bool {
	if s.Blocked {
		return false
	}
	return s.Keys.IsKeyDown(code)
}

// Modifier bits in the default xkb keymap's real modifier order.
const (
	ModShift    uint32 = 1 << 0
	ModCapsLock uint32 = 1 << 1
	ModControl  uint32 = 1 << 2
	ModAlt      uint32 = 1 << 3
	ModNumLock  uint32 = 1 << 4
	ModSuper    uint32 = 1 << 6
)

// Effective returns the union of depressed, latched and locked modifiers.
func (m Modifiers) Effective() uint32 {
	return m.Depressed | m.Latched | m.Locked
}

// Active reports whether mod is in effect.
func (m Modifiers) Active(mod uint32) bool {
	return m.Effective()&mod != 0
}

var modifierNames = []struct {
	mask uint32
	name string
}{
	{ModShift, "Shift"},
	{ModControl, "Ctrl"},
	{ModAlt, "Alt"},
	{ModSuper, "Super"},
	{ModCapsLock, "Caps"},
	{ModNumLock, "Num"},
}

// Names lists the modifiers in effect, Shift first and locks last.
func (m Modifiers) Names() []string {
	var names []string
	for _, mod := range modifierNames {
		if m.Active(mod.mask) {
			names = append(names, mod.name)
		}
	}
	return names
}
