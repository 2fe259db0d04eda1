package wayland

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bnema/wlseat/internal/logger"
	"github.com/rajveermalviya/go-wayland/wayland/client"
	xdg_shell "github.com/rajveermalviya/go-wayland/wayland/stable/xdg-shell"
)

// Options controls what the client binds and maps
type Options struct {
	// Probe maps a small toplevel so the compositor routes input focus to us.
	Probe      bool
	Title      string
	AppID      string
	Width      int32
	Height     int32
	Color      uint32 // ARGB fill of the probe surface
	HideCursor bool
}

// Client owns the compositor connection and every protocol object bound on
// it. Events are dispatched into Listeners from Run.
type Client struct {
	opts      Options
	state     *Context
	listeners *Listeners

	display  *client.Display
	wl       *client.Context
	registry *client.Registry

	compositor *client.Compositor
	shm        *client.Shm
	wmBase     *xdg_shell.WmBase

	seat     *client.Seat
	seatName uint32
	keyboard *client.Keyboard
	pointer  *client.Pointer
	touch    *client.Touch

	outputs   map[uint32]*client.Output
	outputIDs map[*client.Output]uint32

	window *window

	closeRequested bool
	shutdownOnce   sync.Once
	disconnected   atomic.Bool
	closed         bool
}

// NewClient creates a client feeding events into l, which must be bound to
// state
func NewClient(state *Context, l *Listeners, opts Options) *Client {
	if opts.Title == "" {
		opts.Title = "wlseat"
	}
	if opts.AppID == "" {
		opts.AppID = "wlseat"
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 320, 240
	}
	return &Client{
		opts:      opts,
		state:     state,
		listeners: l,
		outputs:   make(map[uint32]*client.Output),
		outputIDs: make(map[*client.Output]uint32),
	}
}

// Connect establishes connection to the Wayland display, binds globals and
// maps the probe window when enabled
func (c *Client) Connect() error {
	display, err := client.Connect("")
	if err != nil {
		return fmt.Errorf("failed to connect to Wayland display: %w", err)
	}
	c.display = display
	c.wl = display.Context()

	registry, err := display.GetRegistry()
	if err != nil {
		c.Close()
		return fmt.Errorf("failed to get registry: %w", err)
	}
	c.registry = registry
	registry.SetGlobalHandler(c.handleGlobal)
	registry.SetGlobalRemoveHandler(c.handleGlobalRemove)

	// First roundtrip delivers globals, the second their initial events.
	for i := 0; i < 2; i++ {
		if err := c.Roundtrip(); err != nil {
			c.Close()
			return fmt.Errorf("initial roundtrip: %w", err)
		}
	}

	if c.seat == nil {
		logger.Warn("no wl_seat advertised, input tracking disabled")
	}

	if c.opts.Probe {
		if err := c.createWindow(); err != nil {
			c.Close()
			return err
		}
		if err := c.Roundtrip(); err != nil {
			c.Close()
			return fmt.Errorf("roundtrip after window: %w", err)
		}
	}

	logger.Infof("Connected to Wayland display (%d outputs)", len(c.outputs))
	return nil
}

// HasSeat reports whether a seat was bound
func (c *Client) HasSeat() bool {
	return c.seat != nil
}

// Roundtrip blocks until the compositor processed every request sent so far
func (c *Client) Roundtrip() error {
	if c.wl == nil {
		return ErrNotConnected
	}
	callback, err := c.display.Sync()
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	defer callback.Destroy()

	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})
	for !done {
		if err := c.wl.Dispatch(); err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}
	}
	return nil
}

// Run dispatches events until ctx is cancelled, the probe window is closed
// or the connection fails
func (c *Client) Run(ctx context.Context) error {
	if c.wl == nil {
		return ErrNotConnected
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.shutdown()
		case <-stop:
		}
	}()

	for !c.closeRequested {
		if err := c.wl.Dispatch(); err != nil {
			if ctx.Err() != nil || c.disconnected.Load() {
				return nil
			}
			return fmt.Errorf("dispatch: %w", err)
		}
	}
	logger.Info("Probe window closed")
	return nil
}

// shutdown closes the connection, unblocking Dispatch
func (c *Client) shutdown() error {
	var err error
	c.shutdownOnce.Do(func() {
		c.disconnected.Store(true)
		if c.wl != nil {
			err = c.wl.Close()
		}
	})
	return err
}

// Close releases every protocol object and closes the connection. Release
// requests are skipped when the connection is already gone.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.wl != nil && !c.disconnected.Load() {
		if c.window != nil {
			c.window.destroy()
		}
		if c.keyboard != nil {
			_ = c.keyboard.Release()
		}
		if c.pointer != nil {
			_ = c.pointer.Release()
		}
		if c.touch != nil {
			_ = c.touch.Release()
		}
		if c.seat != nil {
			_ = c.seat.Release()
		}
		for _, o := range c.outputs {
			_ = o.Release()
		}
		if c.wmBase != nil {
			_ = c.wmBase.Destroy()
		}
	} else if c.window != nil {
		c.window.unmap()
	}
	c.window = nil
	c.keyboard, c.pointer, c.touch, c.seat = nil, nil, nil, nil

	err := c.shutdown()
	c.wl, c.display, c.registry = nil, nil, nil
	return err
}

func (c *Client) handleGlobal(e client.RegistryGlobalEvent) {
	switch e.Interface {
	case "wl_compositor":
		comp := client.NewCompositor(c.wl)
		if err := c.registry.Bind(e.Name, e.Interface, min(e.Version, 4), comp); err == nil {
			c.compositor = comp
		}

	case "wl_shm":
		shm := client.NewShm(c.wl)
		if err := c.registry.Bind(e.Name, e.Interface, 1, shm); err == nil {
			c.shm = shm
		}

	case "xdg_wm_base":
		wmBase := xdg_shell.NewWmBase(c.wl)
		if err := c.registry.Bind(e.Name, e.Interface, 1, wmBase); err == nil {
			c.wmBase = wmBase
			wmBase.SetPingHandler(func(ev xdg_shell.WmBasePingEvent) {
				_ = wmBase.Pong(ev.Serial)
			})
		}

	case "wl_seat":
		if c.seat != nil {
			logger.Debugf("ignoring additional seat %d", e.Name)
			return
		}
		seat := client.NewSeat(c.wl)
		if err := c.registry.Bind(e.Name, e.Interface, min(e.Version, 7), seat); err != nil {
			logger.Warnf("failed to bind seat: %v", err)
			return
		}
		c.seat, c.seatName = seat, e.Name
		seat.SetCapabilitiesHandler(func(ev client.SeatCapabilitiesEvent) {
			c.listeners.Seat.Capabilities(ev.Capabilities)
			c.updateDevices(Capabilities(ev.Capabilities))
		})
		seat.SetNameHandler(func(ev client.SeatNameEvent) {
			c.listeners.Seat.Name(ev.Name)
		})

	case "wl_output":
		output := client.NewOutput(c.wl)
		if err := c.registry.Bind(e.Name, e.Interface, min(e.Version, 4), output); err != nil {
			logger.Warnf("failed to bind output %d: %v", e.Name, err)
			return
		}
		c.outputs[e.Name] = output
		c.outputIDs[output] = e.Name
		c.listeners.Output.Added(e.Name)
		c.bindOutput(e.Name, output)
	}
}

func (c *Client) handleGlobalRemove(e client.RegistryGlobalRemoveEvent) {
	if output, ok := c.outputs[e.Name]; ok {
		c.listeners.Output.Removed(e.Name)
		delete(c.outputs, e.Name)
		delete(c.outputIDs, output)
		_ = output.Release()
		return
	}
	if c.seat != nil && e.Name == c.seatName {
		logger.Warn("seat removed by compositor")
		c.listeners.Seat.Capabilities(0)
		c.updateDevices(0)
		_ = c.seat.Release()
		c.seat = nil
	}
}

func (c *Client) bindOutput(id uint32, output *client.Output) {
	l := c.listeners.Output
	output.SetGeometryHandler(func(e client.OutputGeometryEvent) {
		l.Geometry(id, e.X, e.Y, e.PhysicalWidth, e.PhysicalHeight, e.Make, e.Model, int32(e.Transform))
	})
	output.SetModeHandler(func(e client.OutputModeEvent) {
		l.Mode(id, e.Flags, e.Width, e.Height, e.Refresh)
	})
	output.SetScaleHandler(func(e client.OutputScaleEvent) {
		l.Scale(id, e.Factor)
	})
	output.SetNameHandler(func(e client.OutputNameEvent) {
		l.Name(id, e.Name)
	})
	output.SetDescriptionHandler(func(e client.OutputDescriptionEvent) {
		l.Description(id, e.Description)
	})
}

// updateDevices acquires or releases seat devices to match caps
func (c *Client) updateDevices(caps Capabilities) {
	if caps.Has(CapKeyboard) && c.keyboard == nil {
		kb, err := c.seat.GetKeyboard()
		if err != nil {
			logger.Warnf("failed to get keyboard: %v", err)
		} else {
			c.keyboard = kb
			c.bindKeyboard(kb)
		}
	} else if !caps.Has(CapKeyboard) && c.keyboard != nil {
		_ = c.keyboard.Release()
		c.keyboard = nil
	}

	if caps.Has(CapPointer) && c.pointer == nil {
		p, err := c.seat.GetPointer()
		if err != nil {
			logger.Warnf("failed to get pointer: %v", err)
		} else {
			c.pointer = p
			c.bindPointer(p)
		}
	} else if !caps.Has(CapPointer) && c.pointer != nil {
		_ = c.pointer.Release()
		c.pointer = nil
	}

	if caps.Has(CapTouch) && c.touch == nil {
		t, err := c.seat.GetTouch()
		if err != nil {
			logger.Warnf("failed to get touch: %v", err)
		} else {
			c.touch = t
			c.bindTouch(t)
		}
	} else if !caps.Has(CapTouch) && c.touch != nil {
		_ = c.touch.Release()
		c.touch = nil
	}
}

func (c *Client) bindKeyboard(kb *client.Keyboard) {
	l := c.listeners.Keyboard
	kb.SetKeymapHandler(func(e client.KeyboardKeymapEvent) {
		l.Keymap(e.Format, e.Fd, e.Size)
	})
	kb.SetEnterHandler(func(e client.KeyboardEnterEvent) {
		l.Enter(e.Serial, decodeKeys(e.Keys))
	})
	kb.SetLeaveHandler(func(e client.KeyboardLeaveEvent) {
		l.Leave(e.Serial)
	})
	kb.SetKeyHandler(func(e client.KeyboardKeyEvent) {
		l.Key(e.Serial, e.Time, e.Key, e.State)
	})
	kb.SetModifiersHandler(func(e client.KeyboardModifiersEvent) {
		l.Modifiers(e.Serial, e.ModsDepressed, e.ModsLatched, e.ModsLocked, e.Group)
	})
	kb.SetRepeatInfoHandler(func(e client.KeyboardRepeatInfoEvent) {
		l.RepeatInfo(e.Rate, e.Delay)
	})
}

func (c *Client) bindPointer(p *client.Pointer) {
	l := c.listeners.Pointer
	p.SetEnterHandler(func(e client.PointerEnterEvent) {
		l.Enter(e.Serial, e.SurfaceX, e.SurfaceY)
		c.applyCursor(p, e.Serial)
	})
	p.SetLeaveHandler(func(e client.PointerLeaveEvent) {
		l.Leave(e.Serial)
	})
	p.SetMotionHandler(func(e client.PointerMotionEvent) {
		l.Motion(e.Time, e.SurfaceX, e.SurfaceY)
	})
	p.SetButtonHandler(func(e client.PointerButtonEvent) {
		l.Button(e.Serial, e.Time, e.Button, e.State)
	})
	p.SetAxisHandler(func(e client.PointerAxisEvent) {
		l.Axis(e.Time, e.Axis, e.Value)
	})
}

// applyCursor hides the cursor over the probe surface when configured. Theme
// loading is not supported, so a visible cursor is whatever the compositor
// shows by default.
func (c *Client) applyCursor(p *client.Pointer, serial uint32) {
	visible := !c.opts.HideCursor
	if !visible {
		if err := p.SetCursor(serial, nil, 0, 0); err != nil {
			logger.Debugf("failed to hide cursor: %v", err)
			visible = true
		}
	}
	c.state.Do(func(s *State) { s.Cursor.Visible = visible })
}

func (c *Client) bindTouch(t *client.Touch) {
	l := c.listeners.Touch
	t.SetDownHandler(func(e client.TouchDownEvent) {
		l.Down(e.Serial, e.Time, e.Id, e.X, e.Y)
	})
	t.SetUpHandler(func(e client.TouchUpEvent) {
		l.Up(e.Serial, e.Time, e.Id)
	})
	t.SetMotionHandler(func(e client.TouchMotionEvent) {
		l.Motion(e.Time, e.Id, e.X, e.Y)
	})
	t.SetFrameHandler(func(client.TouchFrameEvent) {
		l.Frame()
	})
	t.SetCancelHandler(func(client.TouchCancelEvent) {
		l.Cancel()
	})
}

// decodeKeys unpacks the wl_array of uint32 key codes sent with
// wl_keyboard.enter
func decodeKeys(raw []byte) []uint32 {
	keys := make([]uint32, 0, len(raw)/4)
	for i := 0; i+4 <= len(raw); i += 4 {
		keys = append(keys, binary.NativeEndian.Uint32(raw[i:]))
	}
	return keys
}
