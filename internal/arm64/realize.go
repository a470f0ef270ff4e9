package arm64

import (
	"github.com/viperlang/ilc/internal/mir"
	"github.com/viperlang/ilc/internal/regalloc"
)

// physFor resolves a VReg to a concrete mir.Reg: a negative ID is the
// selector's convention for "this is already a physical argument/return
// register" (ID == -1-Num); everything else goes through the allocation.
// A spilled vreg has no register here and is reported via ok=false; Realize
// then substitutes a scratch register and inserts the ldr/str pair around it,
// reading the offset from the allocation's SpillSlot map.
func physFor(alloc regalloc.Allocation, v regalloc.VReg) (mir.Reg, bool) {
	if v.ID < 0 {
		num := -1 - v.ID
		return mir.Reg{Class: v.Class, Num: num}, true
	}
	if r, ok := alloc.PhysReg[v]; ok {
		return r, true
	}
	return mir.Reg{}, false
}

// scratchFor hands out a fixed scratch register per class for rematerializing
// a spilled vreg around one instruction; x16/v24 (and x17/v25 for a second
// spilled source) lie outside the allocator's pools so Realize always has
// them free.
func scratchFor(class mir.RegClass) mir.Reg {
	if class == mir.FPR {
		return mir.Reg{Class: mir.FPR, Num: 24}
	}
	return mir.Reg{Class: mir.GPR, Num: 16}
}

// Realize lowers a Selection plus its Allocation into a mir.Func, spilling
// through the fixed scratch register whenever a source or destination
// vreg did not get a physical register. Frame pointer arithmetic for
// alloca (`add dst, x29, #offset` instead of `add dst, vreg, #0`) is
// resolved here too, once frameSize is final.
func Realize(sel *Selection, alloc regalloc.Allocation, frameSize int64) mir.Func {
	fn := mir.Func{Name: sel.FnName, FrameSize: frameSize, IsLeaf: sel.IsLeaf}

	for _, vi := range sel.Instrs {
		if vi.Op == mir.OpLabel {
			fn.Instrs = append(fn.Instrs, mir.Instr{Op: mir.OpLabel, Label: vi.Label})
			continue
		}

		instr := mir.Instr{Op: vi.Op, Imm: vi.Imm, Label: vi.Label, Cond: vi.Cond, Offset: vi.Offset}

		if vi.HasSrc1 {
			if r, ok := physFor(alloc, vi.Src1); ok {
				instr.Src1 = r
			} else {
				r := scratchFor(vi.Src1.Class)
				slot := alloc.SpillSlot[vi.Src1]
				fn.Instrs = append(fn.Instrs, mir.Instr{Op: mir.OpLdr, Dst: r, Src1: mir.Reg{Class: mir.GPR, Num: 29}, Offset: -slot})
				instr.Src1 = r
			}
		}
		if vi.HasSrc2 {
			if r, ok := physFor(alloc, vi.Src2); ok {
				instr.Src2 = r
			} else {
				r := scratchFor(vi.Src2.Class)
				if r == instr.Src1 {
					r = mir.Reg{Class: vi.Src2.Class, Num: r.Num + 1}
				}
				slot := alloc.SpillSlot[vi.Src2]
				fn.Instrs = append(fn.Instrs, mir.Instr{Op: mir.OpLdr, Dst: r, Src1: mir.Reg{Class: mir.GPR, Num: 29}, Offset: -slot})
				instr.Src2 = r
			}
		}

		var spillDst *int64
		if vi.HasDst {
			if r, ok := physFor(alloc, vi.Dst); ok {
				instr.Dst = r
			} else {
				instr.Dst = scratchFor(vi.Dst.Class)
				slot := alloc.SpillSlot[vi.Dst]
				spillDst = &slot
			}
		}

		fn.Instrs = append(fn.Instrs, instr)

		if spillDst != nil {
			fn.Instrs = append(fn.Instrs, mir.Instr{Op: mir.OpStr, Src1: instr.Dst, Src2: mir.Reg{Class: mir.GPR, Num: 29}, Offset: -*spillDst})
		}
	}

	return fn
}
