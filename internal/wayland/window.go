package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bnema/wlseat/internal/logger"
	"github.com/rajveermalviya/go-wayland/wayland/client"
	xdg_shell "github.com/rajveermalviya/go-wayland/wayland/stable/xdg-shell"
	"golang.org/x/sys/unix"
)

// window is the probe toplevel. It draws a solid shm buffer, which is all a
// compositor needs to give it keyboard and pointer focus.
type window struct {
	surface    *client.Surface
	xdgSurface *xdg_shell.Surface
	toplevel   *xdg_shell.Toplevel
	buffer     *shmBuffer

	color uint32

	pendingWidth  int32
	pendingHeight int32
	pendingFlags  uint32
}

// shmBuffer is a wl_buffer backed by a memfd
type shmBuffer struct {
	fd     int
	data   []byte
	pool   *client.ShmPool
	buffer *client.Buffer
	width  int32
	height int32
}

func newShmBuffer(shm *client.Shm, width, height int32, argb uint32) (*shmBuffer, error) {
	stride := width * 4
	size := stride * height

	fd, err := unix.MemfdCreate("wlseat-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ftruncate: %w", err)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap: %w", err)
	}
	fill(data, argb)

	b := &shmBuffer{fd: fd, data: data, width: width, height: height}
	b.pool, err = shm.CreatePool(fd, size)
	if err != nil {
		b.release()
		return nil, fmt.Errorf("create pool: %w", err)
	}
	b.buffer, err = b.pool.CreateBuffer(0, width, height, stride, uint32(client.ShmFormatArgb8888))
	if err != nil {
		b.release()
		return nil, fmt.Errorf("create buffer: %w", err)
	}
	return b, nil
}

// fill writes argb to every pixel. wl_shm formats are little endian.
func fill(data []byte, argb uint32) {
	for i := 0; i+4 <= len(data); i += 4 {
		binary.LittleEndian.PutUint32(data[i:], argb)
	}
}

// destroy releases the protocol objects and local memory
func (b *shmBuffer) destroy() {
	if b.buffer != nil {
		_ = b.buffer.Destroy()
		b.buffer = nil
	}
	if b.pool != nil {
		_ = b.pool.Destroy()
		b.pool = nil
	}
	b.release()
}

// release frees local memory only
func (b *shmBuffer) release() {
	if b.data != nil {
		_ = unix.Munmap(b.data)
		b.data = nil
	}
	if b.fd >= 0 {
		_ = unix.Close(b.fd)
		b.fd = -1
	}
}

func (c *Client) createWindow() error {
	if c.compositor == nil || c.shm == nil {
		return errors.New("compositor lacks wl_compositor or wl_shm")
	}
	if c.wmBase == nil {
		return errors.New("compositor lacks xdg_wm_base")
	}

	surface, err := c.compositor.CreateSurface()
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	w := &window{surface: surface, color: c.opts.Color}
	c.window = w

	surface.SetEnterHandler(func(e client.SurfaceEnterEvent) {
		if id, ok := c.outputIDs[e.Output]; ok {
			c.listeners.Output.SurfaceEnter(id)
		}
	})
	surface.SetLeaveHandler(func(e client.SurfaceLeaveEvent) {
		if id, ok := c.outputIDs[e.Output]; ok {
			c.listeners.Output.SurfaceLeave(id)
		}
	})

	w.xdgSurface, err = c.wmBase.GetXdgSurface(surface)
	if err != nil {
		return fmt.Errorf("get xdg surface: %w", err)
	}
	w.toplevel, err = w.xdgSurface.GetToplevel()
	if err != nil {
		return fmt.Errorf("get toplevel: %w", err)
	}

	w.toplevel.SetConfigureHandler(func(e xdg_shell.ToplevelConfigureEvent) {
		w.pendingWidth, w.pendingHeight = e.Width, e.Height
		w.pendingFlags = toplevelFlags(e.States)
	})
	w.toplevel.SetCloseHandler(func(xdg_shell.ToplevelCloseEvent) {
		c.closeRequested = true
	})
	w.xdgSurface.SetConfigureHandler(func(e xdg_shell.SurfaceConfigureEvent) {
		if err := w.xdgSurface.AckConfigure(e.Serial); err != nil {
			logger.Warnf("ack configure: %v", err)
			return
		}
		c.listeners.Configure(w.pendingWidth, w.pendingHeight, w.pendingFlags)
		c.redraw()
	})

	_ = w.toplevel.SetTitle(c.opts.Title)
	_ = w.toplevel.SetAppId(c.opts.AppID)
	c.state.Do(func(s *State) {
		s.Window.Width, s.Window.Height = c.opts.Width, c.opts.Height
	})

	// The initial commit without a buffer asks for the first configure.
	if err := surface.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// redraw attaches a buffer matching the current size and scale when the
// window resized, the scale changed or nothing is attached yet
func (c *Client) redraw() {
	w := c.window
	var width, height, scale int32
	var resized bool
	c.state.Do(func(s *State) {
		width, height = s.Window.Width, s.Window.Height
		scale = s.Window.BufferScale
		resized = s.AckResize()
	})
	if scale < 1 {
		scale = 1
	}

	bw, bh := width*scale, height*scale
	if !resized && w.buffer != nil && w.buffer.width == bw && w.buffer.height == bh {
		_ = w.surface.Commit()
		return
	}

	buf, err := newShmBuffer(c.shm, bw, bh, w.color)
	if err != nil {
		logger.Errorf("failed to create probe buffer: %v", err)
		return
	}
	if w.buffer != nil {
		w.buffer.destroy()
	}
	w.buffer = buf

	_ = w.surface.SetBufferScale(scale)
	_ = w.surface.Attach(buf.buffer, 0, 0)
	_ = w.surface.Damage(0, 0, width, height)
	if err := w.surface.Commit(); err != nil {
		logger.Warnf("commit: %v", err)
	}
	logger.Debugf("probe surface drawn at %dx%d scale %d", width, height, scale)
}

// toplevelFlags converts the xdg_toplevel states array into Configure flags
func toplevelFlags(states []byte) uint32 {
	var flags uint32
	for i := 0; i+4 <= len(states); i += 4 {
		switch xdg_shell.ToplevelState(binary.NativeEndian.Uint32(states[i:])) {
		case xdg_shell.ToplevelStateFullscreen:
			flags |= ConfigureFullscreen
		case xdg_shell.ToplevelStateMaximized:
			flags |= ConfigureMaximized
		case xdg_shell.ToplevelStateActivated:
			flags |= ConfigureActivated
		}
	}
	return flags
}

// destroy releases the window's protocol objects in reverse creation order
func (w *window) destroy() {
	if w.toplevel != nil {
		_ = w.toplevel.Destroy()
	}
	if w.xdgSurface != nil {
		_ = w.xdgSurface.Destroy()
	}
	if w.buffer != nil {
		w.buffer.destroy()
		w.buffer = nil
	}
	if w.surface != nil {
		_ = w.surface.Destroy()
	}
}

// unmap frees local buffer memory when the connection is already closed
func (w *window) unmap() {
	if w.buffer != nil {
		w.buffer.release()
		w.buffer = nil
	}
}
