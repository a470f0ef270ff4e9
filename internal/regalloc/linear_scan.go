// Package regalloc assigns physical AArch64 registers to the virtual
// registers an instruction-selection pass produces, via linear-scan over
// two register classes (general-purpose and floating-point).
package regalloc

import (
	"sort"

	"github.com/viperlang/ilc/internal/mir"
)

// VReg is a virtual register: a class plus a dense id assigned by
// instruction selection, not yet bound to any physical register.
type VReg struct {
	Class mir.RegClass
	ID    int
}

// Interval is a virtual register's live range, expressed as instruction
// indices in one linear, already-block-ordered instruction stream (blocks
// are laid out in their function's block order). Allocate does not extend
// intervals across control-flow back-edges; block parameters always take a
// spill slot instead of a register (see IsBlockParam).
type Interval struct {
	VReg  VReg
	Start int
	End   int
	// IsBlockParam marks intervals that must never receive a parallel-copy
	// treatment: block parameters spill to a dedicated stack slot instead,
	// matching spec.md's "block params get spill slots not parallel
	// copies" rule.
	IsBlockParam bool
}

// Allocation is the result of running the allocator: a physical register or
// a spill-slot offset for every virtual register, plus which callee-saved
// registers ended up used (so the caller's prologue/epilogue generator
// knows what to save).
type Allocation struct {
	PhysReg    map[VReg]mir.Reg
	SpillSlot  map[VReg]int64 // byte offset from frame base, only set when spilled
	UsedCallee map[mir.Reg]bool
}

// gprPool and fprPool list the allocatable registers in preference order.
// x19-x28 are callee-saved and handed out last since using one costs a
// prologue/epilogue save/restore; x9-x15 are caller-saved scratch and
// preferred first. x0-x7/v0-v7 are reserved for argument passing and
// excluded from general allocation (the instruction selector binds them
// explicitly at call sites).
var gprPool = buildPool(mir.GPR, []int{9, 10, 11, 12, 13, 14, 15, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28})
var fprPool = buildPool(mir.FPR, []int{16, 17, 18, 19, 20, 21, 22, 23, 8, 9, 10, 11, 12, 13, 14, 15})

func buildPool(class mir.RegClass, nums []int) []mir.Reg {
	pool := make([]mir.Reg, len(nums))
	for i, n := range nums {
		pool[i] = mir.Reg{Class: class, Num: n}
	}
	return pool
}

var calleeSavedGPR = map[int]bool{19: true, 20: true, 21: true, 22: true, 23: true, 24: true, 25: true, 26: true, 27: true, 28: true}
var calleeSavedFPR = map[int]bool{8: true, 9: true, 10: true, 11: true, 12: true, 13: true, 14: true, 15: true}

// Allocate runs linear-scan over intervals, spilling to the stack (growing
// frameSize) whenever a class's pool is exhausted. Intervals must be
// pre-sorted by Start is not required; Allocate sorts them itself.
func Allocate(intervals []Interval, frameSize *int64) Allocation {
	sorted := append([]Interval(nil), intervals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	alloc := Allocation{
		PhysReg:    map[VReg]mir.Reg{},
		SpillSlot:  map[VReg]int64{},
		UsedCallee: map[mir.Reg]bool{},
	}

	var active []Interval
	freeGPR := append([]mir.Reg(nil), gprPool...)
	freeFPR := append([]mir.Reg(nil), fprPool...)

	release := func(iv Interval) {
		r, ok := alloc.PhysReg[iv.VReg]
		if !ok {
			return
		}
		if iv.VReg.Class == mir.GPR {
			freeGPR = append([]mir.Reg{r}, freeGPR...)
		} else {
			freeFPR = append([]mir.Reg{r}, freeFPR...)
		}
	}

	for _, iv := range sorted {
		var stillActive []Interval
		for _, a := range active {
			if a.End < iv.Start {
				release(a)
			} else {
				stillActive = append(stillActive, a)
			}
		}
		active = stillActive

		if iv.IsBlockParam {
			*frameSize += 8
			alloc.SpillSlot[iv.VReg] = *frameSize
			continue
		}

		var pool *[]mir.Reg
		if iv.VReg.Class == mir.GPR {
			pool = &freeGPR
		} else {
			pool = &freeFPR
		}

		if len(*pool) == 0 {
			*frameSize += 8
			alloc.SpillSlot[iv.VReg] = *frameSize
			continue
		}

		r := (*pool)[0]
		*pool = (*pool)[1:]
		alloc.PhysReg[iv.VReg] = r
		if isCalleeSaved(r) {
			alloc.UsedCallee[r] = true
		}
		active = append(active, iv)
	}

	return alloc
}

func isCalleeSaved(r mir.Reg) bool {
	if r.Class == mir.GPR {
		return calleeSavedGPR[r.Num]
	}
	return calleeSavedFPR[r.Num]
}

// IsLeaf reports whether a function containing callSites call instructions
// can skip saving the link register (x30) in its prologue.
func IsLeaf(callSites int) bool {
	return callSites == 0
}
