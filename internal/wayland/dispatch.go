package wayland

import (
	"time"

	"github.com/bnema/wlseat/internal/display"
	"github.com/bnema/wlseat/internal/input"
)

// wl_keyboard key states and keymap formats
const (
	KeyStateReleased uint32 = 0
	KeyStatePressed  uint32 = 1

	KeymapFormatNoKeymap uint32 = 0
	KeymapFormatXkbV1    uint32 = 1

	outputModeCurrent uint32 = 1
)

// Dispatcher applies protocol events to a Context and forwards them to a
// sink. It is not safe for concurrent use; events are applied from the
// dispatch goroutine only.
type Dispatcher struct {
	ctx  *Context
	tr   input.Translator
	sink Sink
	now  func() time.Time
}

// NewDispatcher creates a dispatcher. A nil translator passes codes through
// and a nil sink discards events.
func NewDispatcher(ctx *Context, tr input.Translator, sink Sink) *Dispatcher {
	if tr == nil {
		tr = &input.NopTranslator{}
	}
	if sink == nil {
		sink = nopSink{}
	}
	return &Dispatcher{ctx: ctx, tr: tr, sink: sink, now: time.Now}
}

// Context returns the context events are applied to
func (d *Dispatcher) Context() *Context { return d.ctx }

// Translator returns the key translator
func (d *Dispatcher) Translator() input.Translator { return d.tr }

func (d *Dispatcher) event(kind EventKind) Event {
	return Event{Kind: kind, Time: d.now()}
}

// Apply mutates the context according to ev, then records it.
func (d *Dispatcher) Apply(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = d.now()
	}

	// Translation runs outside the lock, it may log.
	switch ev.Kind {
	case EventKey:
		key := d.tr.Handle(ev.Code, ev.Pressed)
		ev.Name = key.Name
		ev.Mapped = key.Code
		ev.Mods = [4]uint32{key.Modifiers.Depressed, key.Modifiers.Latched, key.Modifiers.Locked, key.Modifiers.Group}
	case EventModifiers:
		d.tr.UpdateModifiers(ev.Mods[0], ev.Mods[1], ev.Mods[2], ev.Mods[3])
	}

	d.ctx.Do(func(s *State) {
		apply(s, &ev)
		s.Events++
	})
	d.sink.Record(ev)
}

func apply(s *State, ev *Event) {
	scale := float64(s.Window.BufferScale)
	if scale < 1 {
		scale = 1
	}

	switch ev.Kind {
	case EventKeymap:
		s.Seat.Layout = ev.Text

	case EventKeyboardEnter:
		s.Input.SetKeyboardFocus(true)
		for _, k := range ev.Keys {
			s.Input.Keys.SetKey(k, true)
		}
	case EventKeyboardLeave:
		s.Input.SetKeyboardFocus(false)
	case EventKey:
		s.Input.Keys.SetKey(ev.Code, ev.Pressed)
	case EventModifiers:
		s.Input.Modifiers = input.Modifiers{
			Depressed: ev.Mods[0],
			Latched:   ev.Mods[1],
			Locked:    ev.Mods[2],
			Group:     ev.Mods[3],
		}
	case EventRepeatInfo:
		s.Seat.RepeatRate, s.Seat.RepeatDelay = ev.Rate, ev.Delay

	case EventPointerEnter:
		s.Cursor.Serial = ev.Serial
		s.Input.Mouse.SetFocus(true)
		s.Input.Mouse.Motion(int32(ev.X*scale), int32(ev.Y*scale))
	case EventPointerLeave:
		s.Input.Mouse.SetFocus(false)
		s.Input.Mouse.ReleaseButtons()
	case EventPointerMotion:
		s.Input.Mouse.Motion(int32(ev.X*scale), int32(ev.Y*scale))
	case EventButton:
		s.Input.Mouse.SetButton(ev.Code, ev.Pressed)
	case EventAxis:
		s.Input.Mouse.Axis(ev.Code, ev.Amount)

	case EventTouchDown:
		x, y := int32(ev.X*scale), int32(ev.Y*scale)
		if s.Touch.Down(ev.ID, x, y) {
			s.Input.Touches.Set(ev.ID, x, y)
		}
	case EventTouchMotion:
		x, y := int32(ev.X*scale), int32(ev.Y*scale)
		s.Touch.Motion(ev.ID, x, y)
		s.Input.Touches.Move(ev.ID, x, y)
	case EventTouchUp:
		s.Touch.Up(ev.ID)
		s.Input.Touches.Release(ev.ID)
	case EventTouchCancel:
		s.Touch.Cancel()
		s.Input.Touches.Clear()

	case EventCapabilities:
		caps := Capabilities(ev.Code)
		lost := s.Seat.Capabilities &^ caps
		s.Seat.Capabilities = caps
		if lost.Has(CapKeyboard) {
			s.Input.SetKeyboardFocus(false)
		}
		if lost.Has(CapPointer) {
			s.Input.Mouse.SetFocus(false)
			s.Input.Mouse.ReleaseButtons()
		}
		if lost.Has(CapTouch) {
			s.Touch.Cancel()
			s.Input.Touches.Clear()
		}
	case EventSeatName:
		s.Seat.Name = ev.Text

	case EventOutputAdded:
		s.Outputs.Add(ev.Code)
	case EventOutputRemoved:
		wasCurrent := false
		if id, ok := s.Outputs.CurrentID(); ok && id == ev.Code {
			wasCurrent = true
		}
		s.Outputs.Remove(ev.Code)
		if wasCurrent {
			s.SetBufferScale(1)
		}
	case EventOutputGeometry:
		s.Outputs.Update(ev.Code, func(o *display.OutputInfo) {
			o.X, o.Y = int32(ev.X), int32(ev.Y)
			o.PhysicalWidth, o.PhysicalHeight = ev.Width, ev.Height
			o.Make, o.Model = ev.Text, ev.Name
			o.Transform = ev.Value
		})
	case EventOutputMode:
		if ev.Flags&outputModeCurrent == 0 {
			return
		}
		s.Outputs.Update(ev.Code, func(o *display.OutputInfo) {
			o.Width, o.Height = ev.Width, ev.Height
			o.RefreshRate = ev.Value
		})
	case EventOutputScale:
		s.Outputs.Update(ev.Code, func(o *display.OutputInfo) { o.Scale = ev.Value })
		if id, ok := s.Outputs.CurrentID(); ok && id == ev.Code {
			s.SetBufferScale(ev.Value)
		}
	case EventOutputName:
		s.Outputs.Update(ev.Code, func(o *display.OutputInfo) { o.Name = ev.Text })
	case EventOutputDesc:
		s.Outputs.Update(ev.Code, func(o *display.OutputInfo) { o.Description = ev.Text })

	case EventSurfaceEnter:
		s.EnterOutput(ev.Code)
	case EventSurfaceLeave:
		if id, ok := s.Outputs.CurrentID(); ok && id == ev.Code {
			s.Outputs.ClearCurrent()
		}

	case EventConfigure:
		s.Configure(ev.Width, ev.Height,
			ev.Flags&ConfigureFullscreen != 0,
			ev.Flags&ConfigureMaximized != 0,
			ev.Flags&ConfigureActivated != 0)
	}
}
