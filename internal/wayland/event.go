package wayland

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/wlseat/internal/input"
)

// EventKind names a protocol event applied to the context
type EventKind string

const (
	EventKeymap        EventKind = "keymap"
	EventKeyboardEnter EventKind = "keyboard_enter"
	EventKeyboardLeave EventKind = "keyboard_leave"
	EventKey           EventKind = "key"
	EventModifiers     EventKind = "modifiers"
	EventRepeatInfo    EventKind = "repeat_info"

	EventPointerEnter  EventKind = "pointer_enter"
	EventPointerLeave  EventKind = "pointer_leave"
	EventPointerMotion EventKind = "pointer_motion"
	EventButton        EventKind = "button"
	EventAxis          EventKind = "axis"

	EventTouchDown   EventKind = "touch_down"
	EventTouchUp     EventKind = "touch_up"
	EventTouchMotion EventKind = "touch_motion"
	EventTouchFrame  EventKind = "touch_frame"
	EventTouchCancel EventKind = "touch_cancel"

	EventCapabilities EventKind = "capabilities"
	EventSeatName     EventKind = "seat_name"

	EventOutputGeometry EventKind = "output_geometry"
	EventOutputMode     EventKind = "output_mode"
	EventOutputScale    EventKind = "output_scale"
	EventOutputName     EventKind = "output_name"
	EventOutputDesc     EventKind = "output_description"
	EventOutputAdded    EventKind = "output_added"
	EventOutputRemoved  EventKind = "output_removed"
	EventSurfaceEnter   EventKind = "surface_enter"
	EventSurfaceLeave   EventKind = "surface_leave"

	EventConfigure EventKind = "configure"
)

// Configure state flags
const (
	ConfigureFullscreen uint32 = 1 << iota
	ConfigureMaximized
	ConfigureActivated
)

// Event is a flattened record of one protocol event. Only the fields relevant
// to Kind are set. Events are what the journal stores and replays.
type Event struct {
	Kind EventKind `json:"kind"`
	Time time.Time `json:"time"`

	Serial uint32 `json:"serial,omitempty"`
	Code   uint32 `json:"code,omitempty"`   // key, button, axis, capability bits or output id
	Mapped uint32 `json:"mapped,omitempty"` // key code after layout remapping
	ID     int32  `json:"id,omitempty"` // touch id
	Flags  uint32 `json:"flags,omitempty"`

	Pressed bool    `json:"pressed,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Amount  float64 `json:"amount,omitempty"` // axis value

	Width  int32 `json:"width,omitempty"`
	Height int32 `json:"height,omitempty"`
	Value  int32 `json:"value,omitempty"` // refresh, scale, transform or keymap size
	Rate   int32 `json:"rate,omitempty"`
	Delay  int32 `json:"delay,omitempty"`

	Keys []uint32 `json:"keys,omitempty"`
	Mods [4]uint32 `json:"mods"`
	Text string    `json:"text,omitempty"`
	Name string    `json:"name,omitempty"` // translated key name or output model
}

func (e Event) String() string {
	switch e.Kind {
	case EventKey:
		state := "up"
		if e.Pressed {
			state = "down"
		}
		s := fmt.Sprintf("key %s (%d) %s", e.Name, e.Code, state)
		if e.Mapped != 0 && e.Mapped != e.Code {
			s += fmt.Sprintf(" as %d", e.Mapped)
		}
		if mods := (input.Modifiers{Depressed: e.Mods[0], Latched: e.Mods[1], Locked: e.Mods[2]}).Names(); len(mods) > 0 {
			s += " [" + strings.Join(mods, "+") + "]"
		}
		return s
	case EventButton:
		state := "up"
		if e.Pressed {
			state = "down"
		}
		return fmt.Sprintf("button %#x %s", e.Code, state)
	case EventPointerMotion, EventPointerEnter:
		return fmt.Sprintf("%s %.1f,%.1f", e.Kind, e.X, e.Y)
	case EventTouchDown, EventTouchMotion:
		return fmt.Sprintf("%s id=%d %.1f,%.1f", e.Kind, e.ID, e.X, e.Y)
	case EventTouchUp:
		return fmt.Sprintf("%s id=%d", e.Kind, e.ID)
	case EventAxis:
		return fmt.Sprintf("axis %d %.2f", e.Code, e.Amount)
	case EventModifiers:
		return fmt.Sprintf("modifiers %#x/%#x/%#x group %d", e.Mods[0], e.Mods[1], e.Mods[2], e.Mods[3])
	case EventCapabilities:
		return fmt.Sprintf("capabilities %s", Capabilities(e.Code))
	}
	if e.Text != "" {
		return fmt.Sprintf("%s %s", e.Kind, e.Text)
	}
	return string(e.Kind)
}

// Sink receives every event after it was applied to the context
type Sink interface {
	Record(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

func (f SinkFunc) Record(e Event) { f(e) }

// MultiSink fans an event out to several sinks
type MultiSink []Sink

func (m MultiSink) Record(e Event) {
	for _, s := range m {
		if s != nil {
			s.Record(e)
		}
	}
}

type nopSink struct{}

func (nopSink) Record(Event) {}
