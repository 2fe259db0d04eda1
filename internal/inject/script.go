// Package inject drives virtual uinput devices from a small line-based
// script, used to exercise a running session end to end.
//
// Script syntax, one command per line, '#' starts a comment:
//
//	key KEY_A           press and release
//	down leftshift      hold a key
//	up leftshift        release a key
//	move 10 -5          relative pointer motion
//	click left          left, right or middle
//	press left
//	release left
//	wheel -1            vertical wheel, positive is up
//	hwheel 1            horizontal wheel, positive is right
//	sleep 50ms
package inject

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/wlseat/internal/input"
)

// Op is a script operation
type Op int

const (
	OpKey Op = iota
	OpKeyDown
	OpKeyUp
	OpMove
	OpClick
	OpPress
	OpRelease
	OpWheel
	OpHWheel
	OpSleep
)

var opNames = map[string]Op{
	"key":     OpKey,
	"down":    OpKeyDown,
	"up":      OpKeyUp,
	"move":    OpMove,
	"click":   OpClick,
	"press":   OpPress,
	"release": OpRelease,
	"wheel":   OpWheel,
	"hwheel":  OpHWheel,
	"sleep":   OpSleep,
}

// Button is a pointer button
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
)

// Step is one parsed script line
type Step struct {
	Op     Op
	Line   int
	Key    uint32
	Button Button
	X, Y   int32
	Delay  time.Duration
}

// Parse reads a script
func Parse(r io.Reader) ([]Step, error) {
	var steps []Step
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		step, err := parseStep(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		step.Line = line
		steps = append(steps, step)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

func parseStep(fields []string) (Step, error) {
	op, ok := opNames[strings.ToLower(fields[0])]
	if !ok {
		return Step{}, fmt.Errorf("unknown command %q", fields[0])
	}
	args := fields[1:]
	step := Step{Op: op}

	want := 1
	if op == OpMove {
		want = 2
	}
	if len(args) != want {
		return Step{}, fmt.Errorf("%s takes %d argument(s), got %d", fields[0], want, len(args))
	}

	switch op {
	case OpKey, OpKeyDown, OpKeyUp:
		code, ok := input.KeyCode(args[0])
		if !ok {
			return Step{}, fmt.Errorf("unknown key %q", args[0])
		}
		step.Key = code
	case OpMove:
		x, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return Step{}, fmt.Errorf("bad x %q", args[0])
		}
		y, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return Step{}, fmt.Errorf("bad y %q", args[1])
		}
		step.X, step.Y = int32(x), int32(y)
	case OpClick, OpPress, OpRelease:
		switch strings.ToLower(args[0]) {
		case "left":
			step.Button = ButtonLeft
		case "right":
			step.Button = ButtonRight
		case "middle":
			step.Button = ButtonMiddle
		default:
			return Step{}, fmt.Errorf("unknown button %q", args[0])
		}
	case OpWheel, OpHWheel:
		d, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return Step{}, fmt.Errorf("bad wheel delta %q", args[0])
		}
		step.Y = int32(d)
	case OpSleep:
		d, err := time.ParseDuration(args[0])
		if err != nil || d < 0 {
			return Step{}, fmt.Errorf("bad duration %q", args[0])
		}
		step.Delay = d
	}
	return step, nil
}
