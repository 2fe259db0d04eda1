package input

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchTable_Capacity(t *testing.T) {
	var tt TouchTable
	for id := int32(0); id < MaxTouches; id++ {
		require.True(t, tt.Down(id*3+100, id, id))
	}

	overflow := int32(9999)
	assert.False(t, tt.Down(overflow, 1, 1))
	assert.Equal(t, MaxTouches, tt.ActiveCount())

	for _, s := range tt.ActiveSlots() {
		assert.NotEqual(t, overflow, s.ID)
	}

	// Events for the dropped contact are no-ops.
	tt.Motion(overflow, 5, 5)
	tt.Up(overflow)
	assert.Equal(t, MaxTouches, tt.ActiveCount())
	assert.Equal(t, -1, tt.find(overflow))
}

func TestTouchTable_Correlation(t *testing.T) {
	var tt TouchTable
	tt.Down(5, 1, 1)
	tt.Motion(5, 2, 2)

	i := tt.find(5)
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, TouchSlot{Active: true, ID: 5, X: 2, Y: 2}, tt.slots[i])

	tt.Up(5)
	assert.Zero(t, tt.ActiveCount())

	tt.Motion(5, 3, 3)
	assert.Zero(t, tt.ActiveCount())
	assert.Empty(t, tt.ActiveSlots())
}

func TestTouchTable_IdentifierReuse(t *testing.T) {
	var tt TouchTable
	tt.Down(5, 10, 10)
	tt.Motion(5, 40, 40)
	tt.Up(5)

	tt.Down(5, 7, 8)
	i := tt.find(5)
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, int32(7), tt.slots[i].X)
	assert.Equal(t, int32(8), tt.slots[i].Y)
	assert.Equal(t, 1, tt.ActiveCount())
}

func TestTouchTable_SlotOrder(t *testing.T) {
	var tt TouchTable
	tt.Down(10, 0, 0)
	tt.Down(20, 0, 0)
	tt.Down(30, 0, 0)
	tt.Up(10)
	tt.Down(40, 0, 0) // takes slot 0, freed by id 10

	var ids []int32
	for _, s := range tt.ActiveSlots() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int32{40, 20, 30}, ids)
}

func TestTouchTable_DuplicateDown(t *testing.T) {
	var tt TouchTable
	tt.Down(1, 0, 0)
	tt.Down(1, 9, 9)

	assert.Equal(t, 1, tt.ActiveCount())
	assert.Equal(t, int32(9), tt.slots[tt.find(1)].X)
}

func TestTouchTable_Cancel(t *testing.T) {
	var tt TouchTable
	tt.Down(1, 0, 0)
	tt.Down(2, 0, 0)
	tt.Cancel()

	assert.Zero(t, tt.ActiveCount())
	assert.True(t, tt.Down(3, 0, 0))
}

func TestTouchContacts(t *testing.T) {
	var c TouchContacts
	c.Set(3, 100, -100)
	assert.Equal(t, TouchContact{Active: true, X: 100, Y: -100}, c[3])

	c.Set(4, math.MaxInt32, math.MinInt32)
	assert.Equal(t, int16(math.MaxInt16), c[4].X)
	assert.Equal(t, int16(math.MinInt16), c[4].Y)

	// Out of range ids are ignored rather than wrapping.
	c.Set(MaxTouches, 1, 1)
	c.Set(-1, 1, 1)
	c.Release(MaxTouches)

	c.Move(3, 7, 8)
	assert.Equal(t, TouchContact{Active: true, X: 7, Y: 8}, c[3])
	c.Move(5, 7, 8)
	assert.False(t, c[5].Active, "motion must not activate a contact")

	c.Release(3)
	assert.False(t, c[3].Active)

	c.Clear()
	assert.Equal(t, TouchContacts{}, c)
}
