package inject

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	script := `# warm up
key KEY_A
down leftshift   # hold
key b
up leftshift

move 10 -5
click left
press Right
release right
wheel -1
hwheel 2
sleep 20ms
`
	steps, err := Parse(strings.NewReader(script))
	require.NoError(t, err)
	require.Len(t, steps, 11)

	assert.Equal(t, Step{Op: OpKey, Line: 2, Key: 30}, steps[0])
	assert.Equal(t, Step{Op: OpKeyDown, Line: 3, Key: 42}, steps[1])
	assert.Equal(t, Step{Op: OpKey, Line: 4, Key: 48}, steps[2])
	assert.Equal(t, Step{Op: OpKeyUp, Line: 5, Key: 42}, steps[3])
	assert.Equal(t, Step{Op: OpMove, Line: 7, X: 10, Y: -5}, steps[4])
	assert.Equal(t, Step{Op: OpClick, Line: 8, Button: ButtonLeft}, steps[5])
	assert.Equal(t, Step{Op: OpPress, Line: 9, Button: ButtonRight}, steps[6])
	assert.Equal(t, Step{Op: OpWheel, Line: 11, Y: -1}, steps[8])
	assert.Equal(t, Step{Op: OpHWheel, Line: 12, Y: 2}, steps[9])
	assert.Equal(t, Step{Op: OpSleep, Line: 13, Delay: 20 * time.Millisecond}, steps[10])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		script string
		want   string
	}{
		{"jump 1", "unknown command"},
		{"key", "takes 1 argument"},
		{"move 1", "takes 2 argument"},
		{"key KEY_NOPE", "unknown key"},
		{"move x 1", "bad x"},
		{"click thumb", "unknown button"},
		{"wheel up", "bad wheel delta"},
		{"sleep -1s", "bad duration"},
		{"key a\nkey ?", "line 2"},
	}
	for _, tt := range tests {
		_, err := Parse(strings.NewReader(tt.script))
		require.Error(t, err, tt.script)
		assert.Contains(t, err.Error(), tt.want, tt.script)
	}
}

// recorder implements Keyboard and Mouse, logging every call
type recorder struct {
	calls  []string
	failOn string
}

func (r *recorder) log(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	r.calls = append(r.calls, call)
	if call == r.failOn {
		return errors.New("device gone")
	}
	return nil
}

func (r *recorder) KeyPress(key int) error { return r.log("press %d", key) }
func (r *recorder) KeyDown(key int) error  { return r.log("down %d", key) }
func (r *recorder) KeyUp(key int) error    { return r.log("up %d", key) }
func (r *recorder) Move(x, y int32) error  { return r.log("move %d %d", x, y) }
func (r *recorder) LeftPress() error       { return r.log("left down") }
func (r *recorder) LeftRelease() error     { return r.log("left up") }
func (r *recorder) RightPress() error      { return r.log("right down") }
func (r *recorder) RightRelease() error    { return r.log("right up") }
func (r *recorder) MiddlePress() error     { return r.log("middle down") }
func (r *recorder) MiddleRelease() error   { return r.log("middle up") }
func (r *recorder) Wheel(horizontal bool, delta int32) error {
	return r.log("wheel %v %d", horizontal, delta)
}
func (r *recorder) Close() error { return r.log("close") }

func newTestRunner(rec *recorder) (*Runner, *[]time.Duration) {
	var slept []time.Duration
	r := NewRunner(&Devices{Keyboard: rec, Mouse: rec})
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestRunner(t *testing.T) {
	steps, err := Parse(strings.NewReader("key a\ndown leftctrl\nup leftctrl\nmove 3 4\nclick middle\nwheel 1\nhwheel -1\nsleep 1s"))
	require.NoError(t, err)

	rec := &recorder{}
	r, slept := newTestRunner(rec)
	require.NoError(t, r.Run(context.Background(), steps))

	assert.Equal(t, []string{
		"press 30", "down 29", "up 29", "move 3 4",
		"middle down", "middle up", "wheel false 1", "wheel true -1",
	}, rec.calls)
	assert.Equal(t, []time.Duration{time.Second}, *slept)
}

func TestRunnerStopsOnError(t *testing.T) {
	steps, err := Parse(strings.NewReader("key a\nclick left\nkey b"))
	require.NoError(t, err)

	rec := &recorder{failOn: "left up"}
	r, _ := newTestRunner(rec)
	err = r.Run(context.Background(), steps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, []string{"press 30", "left down", "left up"}, rec.calls)
}

func TestRunnerCancelled(t *testing.T) {
	steps, err := Parse(strings.NewReader("key a"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}
	r, _ := newTestRunner(rec)
	assert.ErrorIs(t, r.Run(ctx, steps), context.Canceled)
	assert.Empty(t, rec.calls)

	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestDevicesClose(t *testing.T) {
	kb, mouse := &recorder{}, &recorder{failOn: "close"}
	d := &Devices{Keyboard: kb, Mouse: mouse}
	assert.Error(t, d.Close())
	assert.Equal(t, []string{"close"}, kb.calls)
	assert.Equal(t, []string{"close"}, mouse.calls)
}
