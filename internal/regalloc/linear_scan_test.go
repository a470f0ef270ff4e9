package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viperlang/ilc/internal/mir"
)

func TestAllocateGivesOverlappingIntervalsDistinctRegisters(t *testing.T) {
	intervals := []Interval{
		{VReg: VReg{Class: mir.GPR, ID: 1}, Start: 0, End: 2},
		{VReg: VReg{Class: mir.GPR, ID: 2}, Start: 0, End: 2},
	}
	var frameSize int64
	alloc := Allocate(intervals, &frameSize)

	r1, ok1 := alloc.PhysReg[VReg{Class: mir.GPR, ID: 1}]
	r2, ok2 := alloc.PhysReg[VReg{Class: mir.GPR, ID: 2}]
	require.True(t, ok1)
	require.True(t, ok2)
	assert.NotEqual(t, r1, r2)
	assert.Equal(t, int64(0), frameSize)
}

func TestAllocateReusesRegisterAfterIntervalEnds(t *testing.T) {
	intervals := []Interval{
		{VReg: VReg{Class: mir.GPR, ID: 1}, Start: 0, End: 1},
		{VReg: VReg{Class: mir.GPR, ID: 2}, Start: 2, End: 3},
	}
	var frameSize int64
	alloc := Allocate(intervals, &frameSize)

	r1 := alloc.PhysReg[VReg{Class: mir.GPR, ID: 1}]
	r2 := alloc.PhysReg[VReg{Class: mir.GPR, ID: 2}]
	assert.Equal(t, r1, r2, "the second interval starts after the first ends, so it should reuse its register")
}

func TestAllocateSpillsWhenPoolExhausted(t *testing.T) {
	var intervals []Interval
	for i := 0; i < len(gprPool)+1; i++ {
		intervals = append(intervals, Interval{VReg: VReg{Class: mir.GPR, ID: i}, Start: 0, End: 100})
	}
	var frameSize int64
	alloc := Allocate(intervals, &frameSize)

	spilled := 0
	for _, iv := range intervals {
		if _, ok := alloc.SpillSlot[iv.VReg]; ok {
			spilled++
		}
	}
	assert.Equal(t, 1, spilled)
	assert.Equal(t, int64(8), frameSize)
}

func TestAllocateBlockParamsAlwaysSpill(t *testing.T) {
	intervals := []Interval{
		{VReg: VReg{Class: mir.GPR, ID: 1}, Start: 0, End: 5, IsBlockParam: true},
	}
	var frameSize int64
	alloc := Allocate(intervals, &frameSize)

	_, hasReg := alloc.PhysReg[VReg{Class: mir.GPR, ID: 1}]
	assert.False(t, hasReg)
	slot, hasSlot := alloc.SpillSlot[VReg{Class: mir.GPR, ID: 1}]
	require.True(t, hasSlot)
	assert.Equal(t, int64(8), slot)
}

func TestAllocateTracksUsedCalleeSavedRegisters(t *testing.T) {
	var intervals []Interval
	for i := 0; i < len(gprPool); i++ {
		intervals = append(intervals, Interval{VReg: VReg{Class: mir.GPR, ID: i}, Start: 0, End: 100})
	}
	var frameSize int64
	alloc := Allocate(intervals, &frameSize)

	sawCalleeSaved := false
	for r, used := range alloc.UsedCallee {
		if used && isCalleeSaved(r) {
			sawCalleeSaved = true
		}
	}
	assert.True(t, sawCalleeSaved, "exhausting the caller-saved-first pool should eventually hand out a callee-saved register")
}

func TestIsLeaf(t *testing.T) {
	assert.True(t, IsLeaf(0))
	assert.False(t, IsLeaf(1))
}
