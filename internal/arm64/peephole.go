package arm64

import "github.com/viperlang/ilc/internal/mir"

// Peephole runs a fixed-point pass over fn's instructions applying small,
// purely-local simplifications:
//
//   - identity moves (mov/fmov where Dst == Src1) are dropped
//   - an unconditional branch immediately followed by a label matching its
//     own target is dropped (branch-to-fallthrough)
//   - arithmetic/shift-by-immediate-zero (add/sub/lsl/lsr/asr r, s, #0)
//     collapses to mov r, s, which may itself become an identity move
//   - cmp r, #0 rewrites to tst r, r, matching the condition flags cmp
//     against zero would have set
//   - a mov into a register immediately followed by a second mov that
//     consumes it as its only source folds into one mov, provided nothing
//     later in the stream still reads the intermediate register
//
// Each pass can expose a new instance of an earlier one (a zero-immediate
// add collapsing to an identity mov, say), so passes repeat until a fixed
// point. Idempotent: running it again on its own output is a no-op, which
// is what the round-trip-stability law for the backend (L2) checks.
func Peephole(fn mir.Func) mir.Func {
	instrs := fn.Instrs
	for {
		next, changed := peepholePass(instrs)
		instrs = next
		if !changed {
			break
		}
	}
	fn.Instrs = instrs
	return fn
}

func peepholePass(instrs []mir.Instr) ([]mir.Instr, bool) {
	instrs, changed1 := simplifyPass(instrs)
	instrs, changed2 := foldMovesPass(instrs)
	instrs, changed3 := stripPass(instrs)
	return instrs, changed1 || changed2 || changed3
}

// simplifyPass rewrites individual instructions in place: zero-immediate
// arithmetic/shifts become moves, and cmp r, #0 becomes tst r, r.
func simplifyPass(instrs []mir.Instr) ([]mir.Instr, bool) {
	out := make([]mir.Instr, len(instrs))
	changed := false
	for i, instr := range instrs {
		switch instr.Op {
		case mir.OpAddRI, mir.OpSubRI, mir.OpLslRI, mir.OpLsrRI, mir.OpAsrRI:
			if instr.Imm == 0 {
				instr = mir.Instr{Op: mir.OpMovRR, Dst: instr.Dst, Src1: instr.Src1}
				changed = true
			}
		case mir.OpCmpRI:
			if instr.Imm == 0 {
				instr = mir.Instr{Op: mir.OpTstRR, Src1: instr.Src1, Src2: instr.Src1}
				changed = true
			}
		}
		out[i] = instr
	}
	return out, changed
}

// stripPass removes identity moves and branches to the immediately
// following label.
func stripPass(instrs []mir.Instr) ([]mir.Instr, bool) {
	out := make([]mir.Instr, 0, len(instrs))
	changed := false

	for i := 0; i < len(instrs); i++ {
		instr := instrs[i]

		if isIdentityMove(instr) {
			changed = true
			continue
		}

		if instr.Op == mir.OpB && i+1 < len(instrs) && instrs[i+1].Op == mir.OpLabel && instrs[i+1].Label == instr.Label {
			changed = true
			continue
		}

		out = append(out, instr)
	}
	return out, changed
}

// foldMovesPass collapses "mov a, b" immediately followed by "mov c, a"
// into "mov c, b", provided a is dead from that point on (never read as a
// source, and not itself the destination being folded away by something
// else first). Only adjacent pairs are considered; the fixed-point loop in
// Peephole lets a fold expose another one on a later pass.
func foldMovesPass(instrs []mir.Instr) ([]mir.Instr, bool) {
	out := make([]mir.Instr, 0, len(instrs))
	changed := false

	for i := 0; i < len(instrs); i++ {
		instr := instrs[i]

		if i+1 < len(instrs) && isRegisterMov(instr) && isRegisterMov(instrs[i+1]) {
			first, second := instr, instrs[i+1]
			if second.Src1 == first.Dst && !regUsedAfter(first.Dst, instrs[i+2:]) {
				out = append(out, mir.Instr{Op: second.Op, Dst: second.Dst, Src1: first.Src1})
				i++ // consumed both instructions
				changed = true
				continue
			}
		}

		out = append(out, instr)
	}
	return out, changed
}

// isRegisterMov reports whether instr is a register-to-register move. It
// excludes the OpFMovRR immediate-load form (Offset < 0, see select.go's
// loadOperand), whose Src1 field is unused and must not be read as a
// source register.
func isRegisterMov(instr mir.Instr) bool {
	switch instr.Op {
	case mir.OpMovRR:
		return true
	case mir.OpFMovRR:
		return instr.Offset >= 0
	default:
		return false
	}
}

// regUsedAfter reports whether r is read as a source anywhere in instrs.
// A later redefinition of r as a destination does not by itself make r
// dead here, since an intervening read would still observe the old value;
// callers only need this for straight-line source liveness.
func regUsedAfter(r mir.Reg, instrs []mir.Instr) bool {
	for _, instr := range instrs {
		if instr.Src1 == r || instr.Src2 == r {
			return true
		}
	}
	return false
}

func isIdentityMove(instr mir.Instr) bool {
	switch instr.Op {
	case mir.OpMovRR, mir.OpFMovRR:
		return instr.Dst == instr.Src1
	default:
		return false
	}
}
