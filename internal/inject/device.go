package inject

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThomasT75/uinput"
	"github.com/bnema/wlseat/internal/logger"
)

// Keyboard is the subset of uinput.Keyboard the runner drives
type Keyboard interface {
	KeyPress(key int) error
	KeyDown(key int) error
	KeyUp(key int) error
	Close() error
}

// Mouse is the subset of uinput.Mouse the runner drives
type Mouse interface {
	Move(x, y int32) error
	LeftPress() error
	LeftRelease() error
	RightPress() error
	RightRelease() error
	MiddlePress() error
	MiddleRelease() error
	Wheel(horizontal bool, delta int32) error
	Close() error
}

// Devices is a virtual keyboard and mouse pair
type Devices struct {
	Keyboard Keyboard
	Mouse    Mouse
}

// Open creates the virtual devices on the uinput node at path
func Open(path string) (*Devices, error) {
	kb, err := uinput.CreateKeyboard(path, []byte("wlseat virtual keyboard"))
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	mouse, err := uinput.CreateMouse(path, []byte("wlseat virtual mouse"))
	if err != nil {
		kb.Close()
		return nil, fmt.Errorf("failed to create virtual mouse: %w", err)
	}
	return &Devices{Keyboard: kb, Mouse: mouse}, nil
}

// Close destroys both devices
func (d *Devices) Close() error {
	var errs []error
	if d.Keyboard != nil {
		errs = append(errs, d.Keyboard.Close())
	}
	if d.Mouse != nil {
		errs = append(errs, d.Mouse.Close())
	}
	return errors.Join(errs...)
}

// Runner executes parsed steps against devices
type Runner struct {
	dev   *Devices
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a runner for dev
func NewRunner(dev *Devices) *Runner {
	return &Runner{dev: dev, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes steps in order and stops at the first failure
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.exec(ctx, s); err != nil {
			return fmt.Errorf("line %d: %w", s.Line, err)
		}
	}
	return nil
}

func (r *Runner) exec(ctx context.Context, s Step) error {
	kb, mouse := r.dev.Keyboard, r.dev.Mouse
	switch s.Op {
	case OpKey:
		logger.Debugf("inject key %d", s.Key)
		return kb.KeyPress(int(s.Key))
	case OpKeyDown:
		return kb.KeyDown(int(s.Key))
	case OpKeyUp:
		return kb.KeyUp(int(s.Key))
	case OpMove:
		return mouse.Move(s.X, s.Y)
	case OpClick:
		if err := r.button(s.Button, true); err != nil {
			return err
		}
		return r.button(s.Button, false)
	case OpPress:
		return r.button(s.Button, true)
	case OpRelease:
		return r.button(s.Button, false)
	case OpWheel:
		return mouse.Wheel(false, s.Y)
	case OpHWheel:
		return mouse.Wheel(true, s.Y)
	case OpSleep:
		return r.sleep(ctx, s.Delay)
	}
	return fmt.Errorf("unknown op %d", s.Op)
}

func (r *Runner) button(b Button, down bool) error {
	m := r.dev.Mouse
	switch b {
	case ButtonLeft:
		if down {
			return m.LeftPress()
		}
		return m.LeftRelease()
	case ButtonRight:
		if down {
			return m.RightPress()
		}
		return m.RightRelease()
	case ButtonMiddle:
		if down {
			return m.MiddlePress()
		}
		return m.MiddleRelease()
	}
	return fmt.Errorf("unknown button %d", b)
}
