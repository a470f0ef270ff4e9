package arm64

import "github.com/viperlang/ilc/internal/mir"

// AddPrologueEpilogue wraps fn's body with its AAPCS64 frame setup/teardown.
// A leaf function that needs no stack frame skips saving x29/x30 entirely;
// every other function saves the frame pointer and link register as a pair
// via a pre-indexed `stp`, establishes a new frame pointer, and restores
// the pair via a matching post-indexed `ldp` before ret.
func AddPrologueEpilogue(fn mir.Func, usedCallee map[mir.Reg]bool) mir.Func {
	if fn.IsLeaf && fn.FrameSize == 0 && len(usedCallee) == 0 {
		return fn
	}

	frameSize := alignFrame(fn.FrameSize + 16) // +16 for saved x29/x30
	sp := mir.Reg{Class: mir.GPR, Num: 31}
	fp := mir.Reg{Class: mir.GPR, Num: 29}
	lr := mir.Reg{Class: mir.GPR, Num: 30}

	var prologue []mir.Instr
	prologue = append(prologue,
		mir.Instr{Op: mir.OpStp, Dst: sp, Src1: fp, Src2: lr, Offset: -frameSize},
		mir.Instr{Op: mir.OpMovRR, Dst: fp, Src1: sp},
	)
	for r := range usedCallee {
		prologue = append(prologue, mir.Instr{Op: mir.OpStr, Src1: r, Src2: fp, Offset: calleeSlot(r)})
	}

	var epilogue []mir.Instr
	for r := range usedCallee {
		epilogue = append(epilogue, mir.Instr{Op: mir.OpLdr, Dst: r, Src1: fp, Offset: calleeSlot(r)})
	}
	epilogue = append(epilogue, mir.Instr{Op: mir.OpLdp, Dst: sp, Src1: fp, Src2: lr, Offset: frameSize})

	out := mir.Func{Name: fn.Name, FrameSize: frameSize, IsLeaf: fn.IsLeaf}
	out.Instrs = append(out.Instrs, prologue...)
	for _, instr := range fn.Instrs {
		if instr.Op == mir.OpRet {
			out.Instrs = append(out.Instrs, epilogue...)
		}
		out.Instrs = append(out.Instrs, instr)
	}
	return out
}

func calleeSlot(r mir.Reg) int64 {
	// Callee-saved spill slots live below the saved fp/lr pair; the exact
	// packing only needs to be internally consistent, not minimal.
	return int64(8 + r.Num*8)
}

func alignFrame(n int64) int64 {
	if n%16 == 0 {
		return n
	}
	return n + (16 - n%16)
}
