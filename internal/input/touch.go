package input

import (
	"math"

	"github.com/bnema/wlseat/internal/logger"
)

// MaxTouches is the number of simultaneous touch contacts tracked. Consumers
// iterating ActiveSlots can rely on never seeing more than this.
const MaxTouches = 16

// TouchSlot is one entry of the active-contact table.
type TouchSlot struct {
	Active bool
	ID     int32
	X      int32
	Y      int32
}

// TouchTable maps protocol touch ids onto a fixed arena of slots. Lookups
// are linear scans over MaxTouches entries. Contacts arriving while every
// slot is taken are dropped, and later motion/up events for them are no-ops.
type TouchTable struct {
	slots  [MaxTouches]TouchSlot
	active int
}

func (t *TouchTable) find(id int32) int {
	for i := range t.slots {
		if t.slots[i].Active && t.slots[i].ID == id {
			return i
		}
	}
	return -1
}

// Down starts tracking a contact. It returns false when the contact was
// dropped because the table is full.
func (t *TouchTable) Down(id int32, x, y int32) bool {
	if i := t.find(id); i >= 0 {
		// A second down for a live id restarts that contact in place.
		t.slots[i].X, t.slots[i].Y = x, y
		return true
	}
	for i := range t.slots {
		if !t.slots[i].Active {
			t.slots[i] = TouchSlot{Active: true, ID: id, X: x, Y: y}
			t.active++
			return true
		}
	}
	logger.Debugf("touch table full, dropping contact %d", id)
	return false
}

// Motion moves a tracked contact.
func (t *TouchTable) Motion(id int32, x, y int32) {
	if i := t.find(id); i >= 0 {
		t.slots[i].X, t.slots[i].Y = x, y
	}
}

// Up frees the slot held by id.
func (t *TouchTable) Up(id int32) {
	if i := t.find(id); i >= 0 {
		t.slots[i] = TouchSlot{}
		t.active--
	}
}

// Cancel frees every slot, as on wl_touch.cancel.
func (t *TouchTable) Cancel() {
	t.slots = [MaxTouches]TouchSlot{}
	t.active = 0
}

// ActiveCount returns the number of occupied slots.
func (t *TouchTable) ActiveCount() int {
	return t.active
}

// ActiveSlots returns the occupied slots in slot-index order.
func (t *TouchTable) ActiveSlots() []TouchSlot {
	out := make([]TouchSlot, 0, t.active)
	for _, s := range t.slots {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

// TouchContact is the raw per-id view of a contact, indexed by protocol id.
type TouchContact struct {
	Active bool
	X      int16
	Y      int16
}

// TouchContacts mirrors contacts whose protocol id is below MaxTouches
// directly into an id-indexed array.
type TouchContacts [MaxTouches]TouchContact

// Set records a contact position. Ids outside the array are ignored.
func (c *TouchContacts) Set(id int32, x, y int32) {
	if id < 0 || id >= MaxTouches {
		return
	}
	c[id] = TouchContact{Active: true, X: clamp16(x), Y: clamp16(y)}
}

// Move updates an active contact. Inactive ids are ignored.
func (c *TouchContacts) Move(id int32, x, y int32) {
	if id < 0 || id >= MaxTouches || !c[id].Active {
		return
	}
	c[id].X, c[id].Y = clamp16(x), clamp16(y)
}

// Release marks id inactive.
func (c *TouchContacts) Release(id int32) {
	if id < 0 || id >= MaxTouches {
		return
	}
	c[id] = TouchContact{}
}

// Clear releases every contact.
func (c *TouchContacts) Clear() {
	*c = TouchContacts{}
}

func clamp16(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
