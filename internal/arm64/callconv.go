// Package arm64 lowers IL to AArch64 machine IR (internal/mir), runs a
// deterministic peephole pass, and emits assembly text.
package arm64

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/mir"
)

// AAPCS64 argument classes: the first eight integer/pointer arguments go in
// x0-x7, the first eight float arguments in v0-v7; everything past that
// spills to the stack, 16-byte aligned per slot.
const (
	maxIntArgRegs   = 8
	maxFloatArgRegs = 8
	stackArgAlign   = 16
)

// ArgLocation is where one argument (or return value) lives under AAPCS64:
// either a physical register or a stack offset from the incoming SP.
type ArgLocation struct {
	Reg         mir.Reg
	InRegister  bool
	StackOffset int64
}

// ClassifyArgs assigns AAPCS64 locations to a call's (or a function
// entry's) argument list, in order.
func ClassifyArgs(types []il.Type) []ArgLocation {
	locs := make([]ArgLocation, len(types))
	intIdx, fpIdx := 0, 0
	stackOffset := int64(0)
	for i, ty := range types {
		if ty == il.F64 {
			if fpIdx < maxFloatArgRegs {
				locs[i] = ArgLocation{Reg: mir.Reg{Class: mir.FPR, Num: fpIdx}, InRegister: true}
				fpIdx++
				continue
			}
		} else {
			if intIdx < maxIntArgRegs {
				locs[i] = ArgLocation{Reg: mir.Reg{Class: mir.GPR, Num: intIdx}, InRegister: true}
				intIdx++
				continue
			}
		}
		locs[i] = ArgLocation{StackOffset: alignUp(stackOffset, stackArgAlign)}
		stackOffset = alignUp(stackOffset, stackArgAlign) + 8
	}
	return locs
}

// ReturnLocation is where a function's single return value lives: x0 for
// every integer/pointer-shaped type, v0 for F64, no location for Void.
func ReturnLocation(ty il.Type) (ArgLocation, bool) {
	switch ty {
	case il.Void:
		return ArgLocation{}, false
	case il.F64:
		return ArgLocation{Reg: mir.Reg{Class: mir.FPR, Num: 0}, InRegister: true}, true
	default:
		return ArgLocation{Reg: mir.Reg{Class: mir.GPR, Num: 0}, InRegister: true}, true
	}
}

func alignUp(v, align int64) int64 {
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}
