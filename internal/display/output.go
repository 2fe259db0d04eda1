// Package display keeps the set of outputs advertised by the compositor
package display

import (
	"fmt"
	"sort"

	"github.com/bnema/wlseat/internal/logger"
)

// OutputInfo describes one wl_output
type OutputInfo struct {
	GlobalID    uint32 `json:"global_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`

	X      int32 `json:"x"` // Position in global coordinate space
	Y      int32 `json:"y"`
	Width  int32 `json:"width"` // Current mode, in pixels
	Height int32 `json:"height"`

	PhysicalWidth  int32 `json:"physical_width"` // Millimetres
	PhysicalHeight int32 `json:"physical_height"`

	RefreshRate int32 `json:"refresh_rate"` // mHz
	Scale       int32 `json:"scale"`
	Transform   int32 `json:"transform"`
}

// RefreshHz returns the refresh rate in Hz.
func (o *OutputInfo) RefreshHz() float64 {
	return float64(o.RefreshRate) / 1000
}

// DPI estimates horizontal dots per inch from the physical width. It returns
// 0 when the compositor did not report a physical size.
func (o *OutputInfo) DPI() float64 {
	if o.PhysicalWidth <= 0 || o.Width <= 0 {
		return 0
	}
	return float64(o.Width) / (float64(o.PhysicalWidth) / 25.4)
}

func (o *OutputInfo) String() string {
	name := o.Name
	if name == "" {
		name = fmt.Sprintf("output-%d", o.GlobalID)
	}
	return fmt.Sprintf("%s %dx%d@%.2fHz+%d,%d scale %d", name, o.Width, o.Height, o.RefreshHz(), o.X, o.Y, o.Scale)
}

// OutputSet owns every known output, keyed by registry global id. The
// current output is held as an id so removing it never leaves a dangling
// reference.
type OutputSet struct {
	outputs    map[uint32]*OutputInfo
	current    uint32
	hasCurrent bool
}

// NewOutputSet creates an empty set
func NewOutputSet() *OutputSet {
	return &OutputSet{outputs: make(map[uint32]*OutputInfo)}
}

// Add registers a newly advertised output. Scale defaults to 1.
func (s *OutputSet) Add(id uint32) *OutputInfo {
	if s.outputs == nil {
		s.outputs = make(map[uint32]*OutputInfo)
	}
	if o, ok := s.outputs[id]; ok {
		return o
	}
	o := &OutputInfo{GlobalID: id, Scale: 1}
	s.outputs[id] = o
	logger.Debugf("output %d added", id)
	return o
}

// Update applies fn to the output with the given id. It reports whether the
// output exists.
func (s *OutputSet) Update(id uint32, fn func(*OutputInfo)) bool {
	o, ok := s.outputs[id]
	if !ok {
		return false
	}
	fn(o)
	return true
}

// Remove drops an output. If it was the current output, the current output
// is cleared.
func (s *OutputSet) Remove(id uint32) bool {
	if _, ok := s.outputs[id]; !ok {
		return false
	}
	delete(s.outputs, id)
	if s.hasCurrent && s.current == id {
		s.current, s.hasCurrent = 0, false
		logger.Debugf("current output %d removed", id)
	}
	return true
}

// Get returns the output with the given id
func (s *OutputSet) Get(id uint32) (*OutputInfo, bool) {
	o, ok := s.outputs[id]
	return o, ok
}

// All returns every output ordered by global id
func (s *OutputSet) All() []*OutputInfo {
	out := make([]*OutputInfo, 0, len(s.outputs))
	for _, o := range s.outputs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GlobalID < out[j].GlobalID })
	return out
}

// Len returns the number of outputs
func (s *OutputSet) Len() int {
	return len(s.outputs)
}

// SetCurrent marks the output the surface is on. Unknown ids are rejected.
func (s *OutputSet) SetCurrent(id uint32) bool {
	if _, ok := s.outputs[id]; !ok {
		return false
	}
	s.current, s.hasCurrent = id, true
	return true
}

// ClearCurrent forgets the current output
func (s *OutputSet) ClearCurrent() {
	s.current, s.hasCurrent = 0, false
}

// Current returns the output the surface is on, if any
func (s *OutputSet) Current() (*OutputInfo, bool) {
	if !s.hasCurrent {
		return nil, false
	}
	return s.Get(s.current)
}

// CurrentID returns the current output id
func (s *OutputSet) CurrentID() (uint32, bool) {
	return s.current, s.hasCurrent
}

// Primary returns the output at (0,0), falling back to the lowest id
func (s *OutputSet) Primary() (*OutputInfo, bool) {
	all := s.All()
	for _, o := range all {
		if o.X == 0 && o.Y == 0 {
			return o, true
		}
	}
	if len(all) > 0 {
		return all[0], true
	}
	return nil, false
}

// Clone returns a deep copy of the set
func (s *OutputSet) Clone() *OutputSet {
	c := &OutputSet{
		outputs:    make(map[uint32]*OutputInfo, len(s.outputs)),
		current:    s.current,
		hasCurrent: s.hasCurrent,
	}
	for id, o := range s.outputs {
		cp := *o
		c.outputs[id] = &cp
	}
	return c
}
