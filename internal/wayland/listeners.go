package wayland

import (
	"github.com/bnema/wlseat/internal/input"
	"github.com/bnema/wlseat/internal/logger"
	"golang.org/x/sys/unix"
)

// KeyboardListener receives wl_keyboard events
type KeyboardListener interface {
	Keymap(format uint32, fd int, size uint32)
	Enter(serial uint32, keys []uint32)
	Leave(serial uint32)
	Key(serial, time, key, state uint32)
	Modifiers(serial, depressed, latched, locked, group uint32)
	RepeatInfo(rate, delay int32)
}

// PointerListener receives wl_pointer events. Coordinates are surface-local.
type PointerListener interface {
	Enter(serial uint32, x, y float64)
	Leave(serial uint32)
	Motion(time uint32, x, y float64)
	Button(serial, time, button, state uint32)
	Axis(time, axis uint32, value float64)
}

// TouchListener receives wl_touch events
type TouchListener interface {
	Down(serial, time uint32, id int32, x, y float64)
	Up(serial, time uint32, id int32)
	Motion(time uint32, id int32, x, y float64)
	Frame()
	Cancel()
}

// SeatListener receives wl_seat events
type SeatListener interface {
	Capabilities(caps uint32)
	Name(name string)
}

// OutputListener receives wl_output events plus registry add/remove of
// output globals and surface enter/leave
type OutputListener interface {
	Added(id uint32)
	Removed(id uint32)
	Geometry(id uint32, x, y, physicalWidth, physicalHeight int32, manufacturer, model string, transform int32)
	Mode(id, flags uint32, width, height, refresh int32)
	Scale(id uint32, factor int32)
	Name(id uint32, name string)
	Description(id uint32, description string)
	SurfaceEnter(id uint32)
	SurfaceLeave(id uint32)
}

// Listeners is the set of listener tables bound to one Context. The client
// registers them on protocol objects; tests call them directly.
type Listeners struct {
	Keyboard KeyboardListener
	Pointer  PointerListener
	Touch    TouchListener
	Seat     SeatListener
	Output   OutputListener

	dispatcher *Dispatcher
}

// NewListeners creates listener tables that apply events to ctx
func NewListeners(ctx *Context, tr input.Translator, sink Sink) *Listeners {
	d := NewDispatcher(ctx, tr, sink)
	return &Listeners{
		Keyboard:   &keyboardListener{d},
		Pointer:    &pointerListener{d},
		Touch:      &touchListener{d},
		Seat:       &seatListener{d},
		Output:     &outputListener{d},
		dispatcher: d,
	}
}

// Dispatcher returns the dispatcher shared by the tables
func (l *Listeners) Dispatcher() *Dispatcher { return l.dispatcher }

// Configure applies an xdg_toplevel configure
func (l *Listeners) Configure(width, height int32, flags uint32) {
	ev := l.dispatcher.event(EventConfigure)
	ev.Width, ev.Height, ev.Flags = width, height, flags
	l.dispatcher.Apply(ev)
}

type keyboardListener struct{ d *Dispatcher }

func (k *keyboardListener) Keymap(format uint32, fd int, size uint32) {
	ev := k.d.event(EventKeymap)
	ev.Code, ev.Value = format, int32(size)

	if format != KeymapFormatXkbV1 {
		logger.Warnf("unsupported keymap format %d", format)
		if fd >= 0 {
			unix.Close(fd)
		}
		k.d.Apply(ev)
		return
	}

	if err := k.d.tr.Init(fd, size); err != nil {
		logger.Warnf("failed to load keymap: %v", err)
	}
	if l, ok := k.d.tr.(interface{ Layout() string }); ok {
		ev.Text = l.Layout()
	}
	k.d.Apply(ev)
}

func (k *keyboardListener) Enter(serial uint32, keys []uint32) {
	ev := k.d.event(EventKeyboardEnter)
	ev.Serial = serial
	ev.Keys = append([]uint32(nil), keys...)
	k.d.Apply(ev)
}

func (k *keyboardListener) Leave(serial uint32) {
	ev := k.d.event(EventKeyboardLeave)
	ev.Serial = serial
	k.d.Apply(ev)
}

func (k *keyboardListener) Key(serial, time, key, state uint32) {
	ev := k.d.event(EventKey)
	ev.Serial, ev.Code = serial, key
	ev.Pressed = state == KeyStatePressed
	k.d.Apply(ev)
}

func (k *keyboardListener) Modifiers(serial, depressed, latched, locked, group uint32) {
	ev := k.d.event(EventModifiers)
	ev.Serial = serial
	ev.Mods = [4]uint32{depressed, latched, locked, group}
	k.d.Apply(ev)
}

func (k *keyboardListener) RepeatInfo(rate, delay int32) {
	ev := k.d.event(EventRepeatInfo)
	ev.Rate, ev.Delay = rate, delay
	k.d.Apply(ev)
}

type pointerListener struct{ d *Dispatcher }

func (p *pointerListener) Enter(serial uint32, x, y float64) {
	ev := p.d.event(EventPointerEnter)
	ev.Serial, ev.X, ev.Y = serial, x, y
	p.d.Apply(ev)
}

func (p *pointerListener) Leave(serial uint32) {
	ev := p.d.event(EventPointerLeave)
	ev.Serial = serial
	p.d.Apply(ev)
}

func (p *pointerListener) Motion(time uint32, x, y float64) {
	ev := p.d.event(EventPointerMotion)
	ev.X, ev.Y = x, y
	p.d.Apply(ev)
}

func (p *pointerListener) Button(serial, time, button, state uint32) {
	ev := p.d.event(EventButton)
	ev.Serial, ev.Code = serial, button
	ev.Pressed = state == 1
	p.d.Apply(ev)
}

func (p *pointerListener) Axis(time, axis uint32, value float64) {
	ev := p.d.event(EventAxis)
	ev.Code, ev.Amount = axis, value
	p.d.Apply(ev)
}

type touchListener struct{ d *Dispatcher }

func (t *touchListener) Down(serial, time uint32, id int32, x, y float64) {
	ev := t.d.event(EventTouchDown)
	ev.Serial, ev.ID, ev.X, ev.Y = serial, id, x, y
	t.d.Apply(ev)
}

func (t *touchListener) Up(serial, time uint32, id int32) {
	ev := t.d.event(EventTouchUp)
	ev.Serial, ev.ID = serial, id
	t.d.Apply(ev)
}

func (t *touchListener) Motion(time uint32, id int32, x, y float64) {
	ev := t.d.event(EventTouchMotion)
	ev.ID, ev.X, ev.Y = id, x, y
	t.d.Apply(ev)
}

// Frame carries no state; the table is consistent after every event.
func (t *touchListener) Frame() {}

func (t *touchListener) Cancel() {
	t.d.Apply(t.d.event(EventTouchCancel))
}

type seatListener struct{ d *Dispatcher }

func (s *seatListener) Capabilities(caps uint32) {
	ev := s.d.event(EventCapabilities)
	ev.Code = caps
	s.d.Apply(ev)
}

func (s *seatListener) Name(name string) {
	ev := s.d.event(EventSeatName)
	ev.Text = name
	s.d.Apply(ev)
}

type outputListener struct{ d *Dispatcher }

func (o *outputListener) Added(id uint32) {
	ev := o.d.event(EventOutputAdded)
	ev.Code = id
	o.d.Apply(ev)
}

func (o *outputListener) Removed(id uint32) {
	ev := o.d.event(EventOutputRemoved)
	ev.Code = id
	o.d.Apply(ev)
}

func (o *outputListener) Geometry(id uint32, x, y, physicalWidth, physicalHeight int32, manufacturer, model string, transform int32) {
	ev := o.d.event(EventOutputGeometry)
	ev.Code = id
	ev.X, ev.Y = float64(x), float64(y)
	ev.Width, ev.Height = physicalWidth, physicalHeight
	ev.Text, ev.Name = manufacturer, model
	ev.Value = transform
	o.d.Apply(ev)
}

func (o *outputListener) Mode(id, flags uint32, width, height, refresh int32) {
	ev := o.d.event(EventOutputMode)
	ev.Code, ev.Flags = id, flags
	ev.Width, ev.Height, ev.Value = width, height, refresh
	o.d.Apply(ev)
}

func (o *outputListener) Scale(id uint32, factor int32) {
	ev := o.d.event(EventOutputScale)
	ev.Code, ev.Value = id, factor
	o.d.Apply(ev)
}

func (o *outputListener) Name(id uint32, name string) {
	ev := o.d.event(EventOutputName)
	ev.Code, ev.Text = id, name
	o.d.Apply(ev)
}

func (o *outputListener) Description(id uint32, description string) {
	ev := o.d.event(EventOutputDesc)
	ev.Code, ev.Text = id, description
	o.d.Apply(ev)
}

func (o *outputListener) SurfaceEnter(id uint32) {
	ev := o.d.event(EventSurfaceEnter)
	ev.Code = id
	o.d.Apply(ev)
}

func (o *outputListener) SurfaceLeave(id uint32) {
	ev := o.d.event(EventSurfaceLeave)
	ev.Code = id
	o.d.Apply(ev)
}
